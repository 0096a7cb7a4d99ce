package ledger

// DocRegistry is the external content-identifier lookup: it maps an entity
// reference to the opaque document handle stored for it. The engine never
// implements this itself; records carry whatever handle the caller supplied
// and reads may fall back to the registry when that handle is empty.
type DocRegistry interface {
	Resolve(entityType string, entityID uint64) (handle string, ok bool)
}

// Registry entity types the engine queries.
const (
	EntityTender = "TENDER"
	EntityBid    = "BID"
)

// TenderRequirements returns the requirements-document handle for a tender,
// consulting the registry when the record itself carries none.
func (e *Engine) TenderRequirements(id uint64) (string, error) {
	rec, err := e.Tenders.Tender(id)
	if err != nil {
		return "", err
	}
	if rec.RequirementsHandle != "" {
		return rec.RequirementsHandle, nil
	}
	if e.registry != nil {
		if h, ok := e.registry.Resolve(EntityTender, id); ok {
			return h, nil
		}
	}
	return "", nil
}

// BidProposal returns the proposal-document handle for a bid, consulting the
// registry when the record itself carries none.
func (e *Engine) BidProposal(id uint64) (string, error) {
	rec, err := e.Bids.Bid(id)
	if err != nil {
		return "", err
	}
	if rec.ProposalHandle != "" {
		return rec.ProposalHandle, nil
	}
	if e.registry != nil {
		if h, ok := e.registry.Resolve(EntityBid, id); ok {
			return h, nil
		}
	}
	return "", nil
}
