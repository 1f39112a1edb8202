// Package commit implements the two-phase stage/confirm protocol used for
// every ledger mutation: an operation is staged with a human-readable
// summary, and nothing touches the ledger until the operator confirms.
package commit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tradedesk/internal/ledger"
	"tradedesk/internal/logger"

	"github.com/google/uuid"
)

// Operation is the kind of staged mutation.
type Operation string

const (
	OpSave  Operation = "save"
	OpClose Operation = "close"
)

// ErrNothingStaged is returned by Confirm when no operation is pending.
var ErrNothingStaged = errors.New("no operation staged")

// Executor applies a confirmed command. The desk service implements it;
// Save routes to the ledger's upsert, Close to the close workflow, and
// both are followed by a persistence round-trip there.
type Executor interface {
	Save(ctx context.Context, entry ledger.Entry) error
	Close(ctx context.Context, symbol string, kind ledger.Kind, id int) error
}

// Command captures a staged operation: what to do, on which entry, and the
// summary shown in the confirmation prompt.
type Command struct {
	ID       string       `json:"id"`
	Op       Operation    `json:"op"`
	Entry    ledger.Entry `json:"entry"`
	Message  string       `json:"message,omitempty"`
	Summary  string       `json:"summary"`
	StagedAt time.Time    `json:"staged_at"`
}

// Stager holds at most one pending command. Staging while one is pending
// replaces it: last stage wins.
type Stager struct {
	mu       sync.Mutex
	executor Executor
	pending  *Command
}

func NewStager(executor Executor) *Stager {
	return &Stager{executor: executor}
}

// Stage records a pending operation and returns the command including its
// rendered summary. No mutation happens here.
func (s *Stager) Stage(op Operation, entry ledger.Entry, message string) Command {
	cmd := Command{
		ID:       uuid.NewString(),
		Op:       op,
		Entry:    entry,
		Message:  strings.TrimSpace(message),
		Summary:  Summarize(op, entry),
		StagedAt: time.Now(),
	}
	s.mu.Lock()
	if s.pending != nil {
		logger.Warnf("commit: replacing pending %s command %s with %s", s.pending.Op, s.pending.ID, cmd.ID)
	}
	s.pending = &cmd
	s.mu.Unlock()
	return cmd
}

// Pending returns the staged command, if any.
func (s *Stager) Pending() (Command, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return Command{}, false
	}
	return *s.pending, true
}

// Confirm dispatches the pending command to the executor. The command is
// consumed whether or not execution succeeds; the error tells the caller
// what happened.
func (s *Stager) Confirm(ctx context.Context) (Command, error) {
	s.mu.Lock()
	cmd := s.pending
	s.pending = nil
	s.mu.Unlock()
	if cmd == nil {
		return Command{}, ErrNothingStaged
	}
	if s.executor == nil {
		return *cmd, fmt.Errorf("no executor configured")
	}
	var err error
	switch cmd.Op {
	case OpClose:
		err = s.executor.Close(ctx, cmd.Entry.Symbol, cmd.Entry.Kind, cmd.Entry.ID)
	default:
		err = s.executor.Save(ctx, cmd.Entry)
	}
	if err != nil {
		return *cmd, fmt.Errorf("confirm %s failed: %w", cmd.Op, err)
	}
	logger.Infof("commit: confirmed %s %s (%s)", cmd.Op, cmd.ID, cmd.Summary)
	return *cmd, nil
}

// Cancel discards the pending command with no side effects.
func (s *Stager) Cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return false
	}
	logger.Debugf("commit: cancelled %s command %s", s.pending.Op, s.pending.ID)
	s.pending = nil
	return true
}

// Summarize renders the confirmation line shown to the operator.
func Summarize(op Operation, e ledger.Entry) string {
	return fmt.Sprintf("%s %s @ %s %s/%s price=%g amount=%g",
		op, e.Symbol, e.Exchange, e.Side, e.Kind, e.Price, e.Amount)
}
