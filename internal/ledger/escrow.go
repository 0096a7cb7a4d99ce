package ledger

import "time"

// Escrow is the custody record for one tender, keyed 1:1 by tender id.
// A record with zero amount and no depositor does not exist: refund resets
// to that state rather than recording a third terminal status.
type Escrow struct {
	TenderID    uint64
	Amount      uint64
	Depositor   string
	Released    bool
	DepositedAt time.Time
	ReleasedTo  string
	ReleasedAt  time.Time
}

func (e Escrow) exists() bool { return e.Amount > 0 || e.Depositor != "" }

type EscrowVault struct {
	core *core

	// tenders is consulted read-only to gate on activity/completion.
	tenders *TenderLedger

	escrows map[uint64]*Escrow
}

// DepositFunds custodies exactly the tender's budget. Government role.
// One live escrow per tender; a refunded escrow may be deposited again.
func (v *EscrowVault) DepositFunds(caller string, tenderID, amount uint64) error {
	c := v.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardMutation(caller, LedgerEscrow, RoleGovernment); err != nil {
		return err
	}
	rec, ok := v.tenders.byID(tenderID)
	if !ok {
		return ErrTenderNotFound
	}
	if rec.Completed {
		return ErrTenderNotActive
	}
	if amount == 0 || amount != rec.Budget {
		return ErrInvalidAmount
	}
	if esc := v.escrows[tenderID]; esc != nil && esc.exists() {
		return ErrEscrowReleased
	}
	if err := c.settle([]transfer{{From: caller, To: escrowVaultAccount, Amount: amount, Memo: "escrow_deposit"}}); err != nil {
		return err
	}
	v.escrows[tenderID] = &Escrow{
		TenderID:    tenderID,
		Amount:      amount,
		Depositor:   caller,
		DepositedAt: c.now(),
	}
	c.audit(caller, LedgerEscrow, "ESCROW_DEPOSITED", map[string]any{
		"tender_id": tenderID,
		"amount":    amount,
	})
	return nil
}

// ReleaseFunds pays the full escrowed amount to recipient once the tender is
// complete. Government role; once per tender.
func (v *EscrowVault) ReleaseFunds(caller string, tenderID uint64, recipient string) error {
	c := v.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardMutation(caller, LedgerEscrow, RoleGovernment); err != nil {
		return err
	}
	rec, ok := v.tenders.byID(tenderID)
	if !ok {
		return ErrTenderNotFound
	}
	if !rec.Completed {
		return ErrTenderNotCompleted
	}
	esc := v.escrows[tenderID]
	if esc == nil || !esc.exists() {
		return ErrEscrowNotFound
	}
	if esc.Released {
		return ErrEscrowReleased
	}
	if recipient == "" {
		return ErrInvalidRecipient
	}
	if err := c.settle([]transfer{{From: escrowVaultAccount, To: recipient, Amount: esc.Amount, Memo: "escrow_release"}}); err != nil {
		return err
	}
	esc.Released = true
	esc.ReleasedTo = recipient
	esc.ReleasedAt = c.now()
	c.audit(caller, LedgerEscrow, "ESCROW_RELEASED", map[string]any{
		"tender_id": tenderID,
		"recipient": recipient,
		"amount":    esc.Amount,
	})
	return nil
}

// RefundFunds returns the full amount to the depositor while the tender is
// still active and consumes the escrow record entirely.
func (v *EscrowVault) RefundFunds(caller string, tenderID uint64) error {
	c := v.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.guardMutation(caller, LedgerEscrow, RoleGovernment); err != nil {
		return err
	}
	rec, ok := v.tenders.byID(tenderID)
	if !ok {
		return ErrTenderNotFound
	}
	if rec.Completed {
		return ErrTenderNotActive
	}
	esc := v.escrows[tenderID]
	if esc == nil || !esc.exists() {
		return ErrEscrowNotFound
	}
	if esc.Released {
		return ErrEscrowReleased
	}
	amount, depositor := esc.Amount, esc.Depositor
	if err := c.settle([]transfer{{From: escrowVaultAccount, To: depositor, Amount: amount, Memo: "escrow_refund"}}); err != nil {
		return err
	}
	delete(v.escrows, tenderID)
	c.audit(caller, LedgerEscrow, "ESCROW_REFUNDED", map[string]any{
		"tender_id": tenderID,
		"depositor": depositor,
		"amount":    amount,
	})
	return nil
}

// Escrow returns a copy of the custody record for a tender.
func (v *EscrowVault) Escrow(tenderID uint64) (Escrow, error) {
	c := v.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := v.tenders.byID(tenderID); !ok {
		return Escrow{}, ErrInvalidTenderID
	}
	esc := v.escrows[tenderID]
	if esc == nil || !esc.exists() {
		return Escrow{}, ErrEscrowNotFound
	}
	return *esc, nil
}

// EscrowExists reports whether a live custody record exists for a tender.
func (v *EscrowVault) EscrowExists(tenderID uint64) bool {
	c := v.core
	c.mu.Lock()
	defer c.mu.Unlock()
	esc := v.escrows[tenderID]
	return esc != nil && esc.exists()
}

// TotalEscrowBalance sums all unreleased custody.
func (v *EscrowVault) TotalEscrowBalance() uint64 {
	c := v.core
	c.mu.Lock()
	defer c.mu.Unlock()
	return v.liveTotal()
}

func (v *EscrowVault) liveTotal() uint64 {
	var total uint64
	for _, esc := range v.escrows {
		if esc.Amount > 0 && !esc.Released {
			total += esc.Amount
		}
	}
	return total
}

// EscrowBalances batches per-tender balance lookups. Unknown or empty
// entries report zero.
func (v *EscrowVault) EscrowBalances(tenderIDs []uint64) []uint64 {
	c := v.core
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint64, len(tenderIDs))
	for i, id := range tenderIDs {
		if esc := v.escrows[id]; esc != nil {
			out[i] = esc.Amount
		}
	}
	return out
}

// RecoverSurplus moves custody not tracked by any live escrow to recipient,
// for incident recovery. Admin only; bounded by current vault holdings.
func (v *EscrowVault) RecoverSurplus(caller, recipient string) error {
	c := v.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settling {
		return ErrReentrantCall
	}
	if c.paused[LedgerEscrow] {
		return ErrLedgerPaused
	}
	if !c.hasRole(caller, RoleAdmin) {
		return ErrUnauthorized
	}
	if recipient == "" {
		return ErrInvalidRecipient
	}
	held := c.accounts[escrowVaultAccount]
	tracked := v.liveTotal()
	if held <= tracked {
		return ErrInvalidAmount
	}
	surplus := held - tracked
	if err := c.settle([]transfer{{From: escrowVaultAccount, To: recipient, Amount: surplus, Memo: "escrow_recover"}}); err != nil {
		return err
	}
	c.audit(caller, LedgerEscrow, "ESCROW_RECOVERED", map[string]any{
		"recipient": recipient,
		"amount":    surplus,
	})
	return nil
}
