package ledger

import (
	"fmt"
	"sort"
	"time"

	"tendercraft.dev/internal/persistence/snapshot"
)

// ExportSnapshot captures the full engine state for durable resume.
func (e *Engine) ExportSnapshot() snapshot.LedgerSnapshotV1 {
	c := e.core
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := snapshot.LedgerSnapshotV1{
		Header: snapshot.Header{
			Version: 1,
			Service: "tendercraft",
			Seq:     c.auditSeq,
		},
		TenderServiceFee: e.Tenders.serviceFee,
		BidServiceFee:    e.Bids.serviceFee,
		TenderFeeWallet:  e.Tenders.payee,
		BidFeeWallet:     e.Bids.payee,
	}

	for _, t := range e.Tenders.tenders {
		snap.Tenders = append(snap.Tenders, snapshot.TenderV1{
			ID:                 t.ID,
			Description:        t.Description,
			Budget:             t.Budget,
			RequirementsHandle: t.RequirementsHandle,
			Completed:          t.Completed,
			BidIDs:             append([]uint64(nil), t.BidIDs...),
			Creator:            t.Creator,
			CreatedAtUnix:      t.CreatedAt.Unix(),
		})
	}
	for _, b := range e.Bids.bids {
		snap.Bids = append(snap.Bids, snapshot.BidV1{
			ID:              b.ID,
			TenderID:        b.TenderID,
			Vendor:          b.Vendor,
			Price:           b.Price,
			Description:     b.Description,
			ProposalHandle:  b.ProposalHandle,
			Status:          string(b.Status),
			SubmittedAtUnix: b.SubmittedAt.Unix(),
		})
	}
	for _, esc := range e.Vault.escrows {
		row := snapshot.EscrowV1{
			TenderID:        esc.TenderID,
			Amount:          esc.Amount,
			Depositor:       esc.Depositor,
			Released:        esc.Released,
			DepositedAtUnix: esc.DepositedAt.Unix(),
			ReleasedTo:      esc.ReleasedTo,
		}
		if !esc.ReleasedAt.IsZero() {
			row.ReleasedAtUnix = esc.ReleasedAt.Unix()
		}
		snap.Escrows = append(snap.Escrows, row)
	}
	sort.Slice(snap.Escrows, func(i, j int) bool { return snap.Escrows[i].TenderID < snap.Escrows[j].TenderID })

	for id, bal := range c.accounts {
		snap.Accounts = append(snap.Accounts, snapshot.AccountV1{ID: id, Balance: bal})
	}
	sort.Slice(snap.Accounts, func(i, j int) bool { return snap.Accounts[i].ID < snap.Accounts[j].ID })

	for id, r := range c.roles {
		snap.Roles = append(snap.Roles, snapshot.RoleV1{ID: id, Roles: uint8(r)})
	}
	sort.Slice(snap.Roles, func(i, j int) bool { return snap.Roles[i].ID < snap.Roles[j].ID })

	for _, name := range []string{LedgerTenders, LedgerBids, LedgerEscrow} {
		if c.paused[name] {
			snap.Paused = append(snap.Paused, name)
		}
	}
	return snap
}

// RestoreSnapshot loads a previously exported state into a freshly built
// engine. It replaces parameters, records, balances, roles and pause flags
// wholesale; id sequences resume from the restored records.
func (e *Engine) RestoreSnapshot(snap snapshot.LedgerSnapshotV1) error {
	if snap.Header.Version != 1 {
		return fmt.Errorf("snapshot version %d not supported", snap.Header.Version)
	}
	c := e.core
	c.mu.Lock()
	defer c.mu.Unlock()

	e.Tenders.serviceFee = snap.TenderServiceFee
	e.Bids.serviceFee = snap.BidServiceFee
	if snap.TenderFeeWallet != "" {
		e.Tenders.payee = snap.TenderFeeWallet
	}
	if snap.BidFeeWallet != "" {
		e.Bids.payee = snap.BidFeeWallet
	}

	e.Tenders.tenders = e.Tenders.tenders[:0]
	for i, t := range snap.Tenders {
		if t.ID != uint64(i)+1 {
			return fmt.Errorf("snapshot tenders not dense at index %d", i)
		}
		e.Tenders.tenders = append(e.Tenders.tenders, &Tender{
			ID:                 t.ID,
			Description:        t.Description,
			Budget:             t.Budget,
			RequirementsHandle: t.RequirementsHandle,
			Completed:          t.Completed,
			BidIDs:             append([]uint64(nil), t.BidIDs...),
			Creator:            t.Creator,
			CreatedAt:          time.Unix(t.CreatedAtUnix, 0).UTC(),
		})
	}

	e.Bids.bids = e.Bids.bids[:0]
	for i, b := range snap.Bids {
		if b.ID != uint64(i)+1 {
			return fmt.Errorf("snapshot bids not dense at index %d", i)
		}
		status := BidStatus(b.Status)
		switch status {
		case BidPending, BidAccepted, BidRejected:
		default:
			return fmt.Errorf("snapshot bid %d has unknown status %q", b.ID, b.Status)
		}
		e.Bids.bids = append(e.Bids.bids, &Bid{
			ID:             b.ID,
			TenderID:       b.TenderID,
			Vendor:         b.Vendor,
			Price:          b.Price,
			Description:    b.Description,
			ProposalHandle: b.ProposalHandle,
			Status:         status,
			SubmittedAt:    time.Unix(b.SubmittedAtUnix, 0).UTC(),
		})
	}

	e.Vault.escrows = map[uint64]*Escrow{}
	for _, row := range snap.Escrows {
		esc := &Escrow{
			TenderID:    row.TenderID,
			Amount:      row.Amount,
			Depositor:   row.Depositor,
			Released:    row.Released,
			DepositedAt: time.Unix(row.DepositedAtUnix, 0).UTC(),
			ReleasedTo:  row.ReleasedTo,
		}
		if row.ReleasedAtUnix != 0 {
			esc.ReleasedAt = time.Unix(row.ReleasedAtUnix, 0).UTC()
		}
		e.Vault.escrows[row.TenderID] = esc
	}

	c.accounts = map[string]uint64{}
	for _, a := range snap.Accounts {
		c.accounts[a.ID] = a.Balance
	}
	c.roles = map[string]Role{}
	for _, r := range snap.Roles {
		c.roles[r.ID] = Role(r.Roles)
	}
	c.paused = map[string]bool{}
	for _, name := range snap.Paused {
		c.paused[name] = true
	}
	c.auditSeq = snap.Header.Seq
	return nil
}
