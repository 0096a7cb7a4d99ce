package ledger

import "time"

type BidStatus string

const (
	BidPending  BidStatus = "PENDING"
	BidAccepted BidStatus = "ACCEPTED"
	BidRejected BidStatus = "REJECTED"
)

// Bid is a vendor's priced proposal against one tender. TenderID is fixed at
// submission; Status moves at most once, from pending to a terminal value.
type Bid struct {
	ID             uint64
	TenderID       uint64
	Vendor         string
	Price          uint64
	Description    string
	ProposalHandle string
	Status         BidStatus
	SubmittedAt    time.Time
}

type BidLedger struct {
	core *core

	serviceFee uint64
	payee      string

	// tenders is the read-only validation view; link is the append
	// capability minted by the tender ledger at composition.
	tenders *TenderLedger
	link    linkCap

	bids []*Bid
}

// SubmitBid records a new pending bid against an active tender and links it.
// Any caller; fee-bearing on the bid ledger's own schedule. The submission is
// atomic: a failed settlement or link leaves no bid and no consumed id.
func (b *BidLedger) SubmitBid(caller string, tenderID uint64, price uint64, description, proposalHandle string, feePaid uint64) (uint64, error) {
	c := b.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardMutation(caller, LedgerBids, 0); err != nil {
		return 0, err
	}
	if b.tenders == nil {
		return 0, ErrInvalidLink
	}
	// Linking mutates the tender record, so a paused tender ledger blocks
	// the submission before any fee moves.
	if c.paused[LedgerTenders] {
		return 0, ErrLedgerPaused
	}
	// Cross-ledger probe: absent and inactive map to distinct local errors.
	rec, ok := b.tenders.byID(tenderID)
	if !ok {
		return 0, ErrTenderNotFound
	}
	if rec.Completed {
		return 0, ErrTenderNotActive
	}
	moves, err := feeMoves(caller, feePaid, b.serviceFee, b.payee)
	if err != nil {
		return 0, err
	}
	if err := c.settle(moves); err != nil {
		return 0, err
	}
	// The settling window rejects every other mutation, so the tender
	// validated above is still active here.

	id := uint64(len(b.bids)) + 1
	b.bids = append(b.bids, &Bid{
		ID:             id,
		TenderID:       tenderID,
		Vendor:         caller,
		Price:          price,
		Description:    description,
		ProposalHandle: proposalHandle,
		Status:         BidPending,
		SubmittedAt:    c.now(),
	})
	if err := b.link.addBid(caller, tenderID, id); err != nil {
		// No orphan bids: unlink failure discards the stored record and
		// returns the id to the sequence.
		b.bids = b.bids[:len(b.bids)-1]
		return 0, err
	}
	c.audit(caller, LedgerBids, "BID_SUBMITTED", map[string]any{
		"bid_id":    id,
		"tender_id": tenderID,
		"price":     price,
		"fee":       b.serviceFee,
	})
	return id, nil
}

// AcceptBid marks a pending bid accepted. Government role; terminal.
func (b *BidLedger) AcceptBid(caller string, tenderID, bidID uint64) error {
	return b.decideBid(caller, tenderID, bidID, BidAccepted, "BID_ACCEPTED")
}

// RejectBid marks a pending bid rejected. Government role; terminal.
func (b *BidLedger) RejectBid(caller string, tenderID, bidID uint64) error {
	return b.decideBid(caller, tenderID, bidID, BidRejected, "BID_REJECTED")
}

func (b *BidLedger) decideBid(caller string, tenderID, bidID uint64, status BidStatus, action string) error {
	c := b.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardMutation(caller, LedgerBids, RoleGovernment); err != nil {
		return err
	}
	rec, ok := b.byID(bidID)
	if !ok {
		return ErrInvalidBidID
	}
	// The supplied tender must be the bid's own: accepting a bid through a
	// different tender id is cross-tender manipulation.
	if rec.TenderID != tenderID {
		return ErrInvalidTenderID
	}
	if rec.Status != BidPending {
		return ErrBidProcessed
	}
	rec.Status = status
	c.audit(caller, LedgerBids, action, map[string]any{"bid_id": bidID, "tender_id": tenderID})
	return nil
}

func (b *BidLedger) byID(id uint64) (*Bid, bool) {
	if id == 0 || id > uint64(len(b.bids)) {
		return nil, false
	}
	return b.bids[id-1], true
}

// Bid returns a copy of the stored record.
func (b *BidLedger) Bid(id uint64) (Bid, error) {
	c := b.core
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := b.byID(id)
	if !ok {
		return Bid{}, ErrInvalidBidID
	}
	return *rec, nil
}

// TenderBids returns the bid ids linked to a tender, in submission order.
func (b *BidLedger) TenderBids(tenderID uint64) ([]uint64, error) {
	c := b.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if b.tenders == nil {
		return nil, ErrInvalidLink
	}
	rec, ok := b.tenders.byID(tenderID)
	if !ok {
		return nil, ErrInvalidTenderID
	}
	return append([]uint64(nil), rec.BidIDs...), nil
}

// VendorBids scans all bids for one vendor, in submission order.
func (b *BidLedger) VendorBids(vendor string) []uint64 {
	c := b.core
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []uint64
	for _, rec := range b.bids {
		if rec.Vendor == vendor {
			out = append(out, rec.ID)
		}
	}
	return out
}

func (b *BidLedger) BidExists(id uint64) bool {
	c := b.core
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := b.byID(id)
	return ok
}

// BidStatusText returns the bid's status as its wire string.
func (b *BidLedger) BidStatusText(id uint64) (string, error) {
	c := b.core
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := b.byID(id)
	if !ok {
		return "", ErrInvalidBidID
	}
	return string(rec.Status), nil
}

// BidCount returns the highest assigned bid id.
func (b *BidLedger) BidCount() uint64 {
	c := b.core
	c.mu.Lock()
	defer c.mu.Unlock()
	return uint64(len(b.bids))
}

func (b *BidLedger) ServiceFee() uint64 {
	c := b.core
	c.mu.Lock()
	defer c.mu.Unlock()
	return b.serviceFee
}

// SetServiceFee updates the bid fee schedule. Admin only, prospective.
func (b *BidLedger) SetServiceFee(caller string, fee uint64) error {
	c := b.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settling {
		return ErrReentrantCall
	}
	if !c.hasRole(caller, RoleAdmin) {
		return ErrUnauthorized
	}
	b.serviceFee = fee
	c.audit(caller, LedgerBids, "FEE_UPDATED", map[string]any{"fee": fee})
	return nil
}

// SetPlatformWallet redirects future bid-fee collection. Admin only.
func (b *BidLedger) SetPlatformWallet(caller, wallet string) error {
	c := b.core
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
	b.payee = wallet
	c.audit(caller, LedgerBids, "WALLET_UPDATED", map[string]any{"wallet": wallet})
	return nil
}

// SetTenderSource re-points the validation view and link capability at a
// replacement tender ledger. Admin only; nil is rejected.
func (b *BidLedger) SetTenderSource(caller string, t *TenderLedger) error {
	c := b.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settling {
		return ErrReentrantCall
	}
	if !c.hasRole(caller, RoleAdmin) {
		return ErrUnauthorized
	}
	if t == nil || t.core != c {
		return ErrInvalidLink
	}
	b.tenders = t
	b.link = t.grantLinkCap()
	c.audit(caller, LedgerBids, "LEDGER_LINK_UPDATED", nil)
	return nil
}
