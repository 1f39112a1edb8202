package desk

import "context"

// Status is a point-in-time operational summary of the desk.
type Status struct {
	Symbols      int    `json:"symbols"`
	TotalEntries int    `json:"total_entries"`
	Exchanges    int    `json:"exchanges"`
	CatalogSize  int    `json:"catalog_size"`
	SessionState string `json:"session_state"`
	PendingOp    string `json:"pending_op,omitempty"`
	PendingID    string `json:"pending_id,omitempty"`
}

// CatalogSets returns the permitted exchange and symbol lists.
func (s *Service) CatalogSets() (exchanges, symbols []string) {
	if s.catalog == nil {
		return nil, nil
	}
	return s.catalog.Exchanges(), s.catalog.Symbols()
}

// Status reports entry counts, catalog sizes, and the workflow state.
func (s *Service) Status(ctx context.Context) (Status, error) {
	if err := s.mu.lock(ctx); err != nil {
		return Status{}, err
	}
	st := Status{
		Symbols:      s.book.SymbolCount(),
		TotalEntries: s.book.TotalEntries(),
		SessionState: string(s.session.State()),
	}
	s.mu.unlock()
	if s.catalog != nil {
		st.Exchanges = len(s.catalog.Exchanges())
		st.CatalogSize = len(s.catalog.Symbols())
	}
	if cmd, ok := s.stager.Pending(); ok {
		st.PendingOp = string(cmd.Op)
		st.PendingID = cmd.ID
	}
	return st, nil
}
