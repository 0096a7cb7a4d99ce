package ledger

import "time"

// Tender is a government-published procurement request. Records are never
// deleted; completed is monotonic and bidIDs only grows while active.
type Tender struct {
	ID                 uint64
	Description        string
	Budget             uint64
	RequirementsHandle string
	Completed          bool
	BidIDs             []uint64
	Creator            string
	CreatedAt          time.Time
}

// TenderInfo is the summary view returned to read callers.
type TenderInfo struct {
	ID          uint64
	Description string
	Budget      uint64
	Completed   bool
	Creator     string
	BidCount    int
	CreatedAt   time.Time
}

type TenderLedger struct {
	core *core

	serviceFee uint64
	payee      string

	tenders []*Tender
}

// linkCap is the capability to append bid ids to a tender. The tender ledger
// mints exactly one at composition time and the engine hands it to the bid
// ledger; nothing else can link bids.
type linkCap struct {
	t *TenderLedger
}

func (t *TenderLedger) grantLinkCap() linkCap { return linkCap{t: t} }

// CreateTender publishes a new tender. Government role, fee-bearing.
// The whole operation commits or fails: if any settlement leg fails, no
// record is stored and no id is consumed.
func (t *TenderLedger) CreateTender(caller, description string, budget uint64, requirementsHandle string, feePaid uint64) (uint64, error) {
	c := t.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardMutation(caller, LedgerTenders, RoleGovernment); err != nil {
		return 0, err
	}
	moves, err := feeMoves(caller, feePaid, t.serviceFee, t.payee)
	if err != nil {
		return 0, err
	}
	if err := c.settle(moves); err != nil {
		return 0, err
	}

	id := uint64(len(t.tenders)) + 1
	t.tenders = append(t.tenders, &Tender{
		ID:                 id,
		Description:        description,
		Budget:             budget,
		RequirementsHandle: requirementsHandle,
		Creator:            caller,
		CreatedAt:          c.now(),
	})
	c.audit(caller, LedgerTenders, "TENDER_CREATED", map[string]any{
		"tender_id": id,
		"budget":    budget,
		"fee":       t.serviceFee,
	})
	return id, nil
}

// MarkComplete closes a tender. Irreversible; a second call fails.
func (t *TenderLedger) MarkComplete(caller string, id uint64) error {
	c := t.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardMutation(caller, LedgerTenders, RoleGovernment); err != nil {
		return err
	}
	rec, ok := t.byID(id)
	if !ok {
		return ErrInvalidTenderID
	}
	if rec.Completed {
		return ErrTenderCompleted
	}
	rec.Completed = true
	c.audit(caller, LedgerTenders, "TENDER_COMPLETED", map[string]any{"tender_id": id})
	return nil
}

// addBid appends a bid id to an active tender. Reachable only through the
// link capability held by the bid ledger; callers there run under the same
// core lock as this method, inside the same atomic unit.
func (cap linkCap) addBid(actor string, tenderID, bidID uint64) error {
	t := cap.t
	if t.core.paused[LedgerTenders] {
		return ErrLedgerPaused
	}
	rec, ok := t.byID(tenderID)
	if !ok {
		return ErrInvalidTenderID
	}
	if rec.Completed {
		return ErrTenderCompleted
	}
	rec.BidIDs = append(rec.BidIDs, bidID)
	t.core.audit(actor, LedgerTenders, "TENDER_BID_ADDED", map[string]any{
		"tender_id": tenderID,
		"bid_id":    bidID,
	})
	return nil
}

// byID resolves a tender record. Caller must hold mu.
func (t *TenderLedger) byID(id uint64) (*Tender, bool) {
	if id == 0 || id > uint64(len(t.tenders)) {
		return nil, false
	}
	return t.tenders[id-1], true
}

// Tender returns a copy of the full record, bid ids included.
func (t *TenderLedger) Tender(id uint64) (Tender, error) {
	c := t.core
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := t.byID(id)
	if !ok {
		return Tender{}, ErrInvalidTenderID
	}
	out := *rec
	out.BidIDs = append([]uint64(nil), rec.BidIDs...)
	return out, nil
}

// TenderInfo returns the summary view.
func (t *TenderLedger) TenderInfo(id uint64) (TenderInfo, error) {
	c := t.core
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := t.byID(id)
	if !ok {
		return TenderInfo{}, ErrInvalidTenderID
	}
	return TenderInfo{
		ID:          rec.ID,
		Description: rec.Description,
		Budget:      rec.Budget,
		Completed:   rec.Completed,
		Creator:     rec.Creator,
		BidCount:    len(rec.BidIDs),
		CreatedAt:   rec.CreatedAt,
	}, nil
}

// TenderCount returns the highest assigned tender id.
func (t *TenderLedger) TenderCount() uint64 {
	c := t.core
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint64(len(t.tenders))
}

func (t *TenderLedger) ServiceFee() uint64 {
	c := t.core
	c.mu.Lock()
	defer c.mu.Unlock()
	return t.serviceFee
}

// SetServiceFee updates the tender fee schedule. Admin only, prospective.
func (t *TenderLedger) SetServiceFee(caller string, fee uint64) error {
	c := t.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settling {
		return ErrReentrantCall
	}
	if !c.hasRole(caller, RoleAdmin) {
		return ErrUnauthorized
	}
	t.serviceFee = fee
	c.audit(caller, LedgerTenders, "FEE_UPDATED", map[string]any{"fee": fee})
	return nil
}

// SetPlatformWallet redirects future fee collection. Admin only.
func (t *TenderLedger) SetPlatformWallet(caller, wallet string) error {
	c := t.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settling {
		return ErrReentrantCall
	}
	if !c.hasRole(caller, RoleAdmin) {
		return ErrUnauthorized
	}
	if wallet == "" {
		return ErrInvalidAddress
	}
	t.payee = wallet
	c.audit(caller, LedgerTenders, "WALLET_UPDATED", map[string]any{"wallet": wallet})
	return nil
}
