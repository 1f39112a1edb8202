package desk

import (
	"context"

	"tradedesk/internal/commit"
	"tradedesk/internal/draft"
	"tradedesk/internal/ledger"
	"tradedesk/internal/logger"
)

// BeginEdit opens the edit session on an existing active entry.
func (s *Service) BeginEdit(ctx context.Context, symbol string, kind ledger.Kind, id int) (map[string]string, error) {
	entry, ok, err := s.FindEntry(ctx, symbol, kind, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ledger.ValidationError{Fields: []string{"id"}}
	}
	if err := s.mu.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.unlock()
	s.session.Begin(entry)
	logger.Debugf("desk: editing entry %d (%s %s)", id, entry.Symbol, kind)
	return s.session.Fields(), nil
}

// BeginNew opens the edit session on a fresh entry with sane defaults.
// The identifier is assigned when the confirmed save lands in the book.
func (s *Service) BeginNew(ctx context.Context) (map[string]string, error) {
	blank := ledger.Entry{
		Side:     ledger.SideLong,
		Kind:     ledger.KindMarket,
		Leverage: 1,
	}
	blank.Normalize()
	if err := s.mu.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.unlock()
	s.session.Begin(blank)
	return s.session.Fields(), nil
}

// SetFields applies raw field inputs to the open edit session.
func (s *Service) SetFields(ctx context.Context, values map[string]string) error {
	if err := s.mu.lock(ctx); err != nil {
		return err
	}
	defer s.mu.unlock()
	s.session.SetFields(values)
	return nil
}

// EditState reports the session state and current draft fields.
func (s *Service) EditState(ctx context.Context) (draft.State, map[string]string, error) {
	if err := s.mu.lock(ctx); err != nil {
		return "", nil, err
	}
	defer s.mu.unlock()
	return s.session.State(), s.session.Fields(), nil
}

// CancelEdit discards the draft without touching the ledger.
func (s *Service) CancelEdit(ctx context.Context) error {
	if err := s.mu.lock(ctx); err != nil {
		return err
	}
	defer s.mu.unlock()
	s.session.Cancel()
	return nil
}

// SubmitEdit validates the draft and stages a save command. On a
// validation failure the session stays in Editing and no command is
// staged.
func (s *Service) SubmitEdit(ctx context.Context, message string) (commit.Command, error) {
	if err := s.mu.lock(ctx); err != nil {
		return commit.Command{}, err
	}
	candidate, err := s.session.Submit()
	s.mu.unlock()
	if err != nil {
		return commit.Command{}, err
	}
	// The candidate carries the original's identifier, so the confirmed
	// save lands as an update, not a duplicate insert.
	cmd := s.stager.Stage(commit.OpSave, candidate, message)
	logger.Infof("desk: staged %s", cmd.Summary)
	return cmd, nil
}

// StageClose stages a close command for an existing active entry.
func (s *Service) StageClose(ctx context.Context, symbol string, kind ledger.Kind, id int, message string) (commit.Command, error) {
	entry, ok, err := s.FindEntry(ctx, symbol, kind, id)
	if err != nil {
		return commit.Command{}, err
	}
	if !ok {
		return commit.Command{}, &ledger.ValidationError{Fields: []string{"id"}}
	}
	cmd := s.stager.Stage(commit.OpClose, entry, message)
	logger.Infof("desk: staged %s", cmd.Summary)
	return cmd, nil
}

// Pending returns the staged command awaiting confirmation, if any.
func (s *Service) Pending() (commit.Command, bool) {
	return s.stager.Pending()
}

// Confirm executes the staged command. The command is consumed either
// way; the error reports validation or sync failures.
func (s *Service) Confirm(ctx context.Context) (commit.Command, error) {
	return s.stager.Confirm(ctx)
}

// CancelStaged drops the staged command without executing it.
func (s *Service) CancelStaged() bool {
	return s.stager.Cancel()
}
