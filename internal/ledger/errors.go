package ledger

import (
	"fmt"
	"strings"
)

// ValidationError names the entry fields that failed validation. The draft
// workflow surfaces these to the operator verbatim, so messages stay short.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("invalid field(s): %s", strings.Join(e.Fields, ", "))
}
