package backend

import "fmt"

// SyncError wraps a transport or format failure on a backend round-trip.
// Op is "load", "persist" or "catalog"; callers use it to tell a failed
// commit apart from a failed refresh.
type SyncError struct {
	Op  string
	Err error
}

func (e *SyncError) Error() string {
	if e == nil {
		return "sync error"
	}
	return fmt.Sprintf("sync %s: %v", e.Op, e.Err)
}

func (e *SyncError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
