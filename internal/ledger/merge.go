package ledger

// mergeEntry lays patch over the stored entry. The patch is authoritative
// for every field it carries; identity and lifecycle stamps survive when
// the patch leaves them blank.
func mergeEntry(existing, patch Entry) Entry {
	out := patch
	out.ID = existing.ID
	if out.Symbol == "" {
		out.Symbol = existing.Symbol
	}
	if out.Exchange == "" {
		out.Exchange = existing.Exchange
	}
	if out.Side == "" {
		out.Side = existing.Side
	}
	if out.Kind == "" {
		out.Kind = existing.Kind
	}
	if out.CreatedAt == "" {
		out.CreatedAt = existing.CreatedAt
	}
	if out.ClosedAt == "" {
		out.ClosedAt = existing.ClosedAt
	}
	return out
}
