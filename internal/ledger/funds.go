package ledger

import "fmt"

// SettlementHook mirrors fund movements to an external settlement system.
// Transfer is invoked once per leg while the operation that produced it is
// still in flight; an error from any leg fails the whole operation and no
// balance changes. Implementations must not call back into mutating engine
// operations: such calls fail with ErrReentrantCall.
type SettlementHook interface {
	Transfer(from, to string, amount uint64) error
}

// transfer is one settlement leg. Legs of an operation settle together.
type transfer struct {
	From   string
	To     string
	Amount uint64
	Memo   string
}

// feeMoves builds the fee-collection legs: the payee is credited exactly fee
// and the caller keeps exactly feePaid-fee. Returns ErrInsufficientFee when
// underpaying; zero-amount legs are elided.
func feeMoves(caller string, feePaid, fee uint64, payee string) ([]transfer, error) {
	if feePaid < fee {
		return nil, ErrInsufficientFee
	}
	moves := []transfer{{From: caller, To: payee, Amount: fee, Memo: "service_fee"}}
	if excess := feePaid - fee; excess > 0 {
		// Collect the full feePaid, then hand the excess straight back.
		moves[0].Amount = feePaid
		moves = append(moves, transfer{From: payee, To: caller, Amount: excess, Memo: "fee_refund"})
	}
	return moves, nil
}

// settle applies a batch of transfer legs atomically.
//
// Caller must hold mu and have passed guardMutation. The legs are first
// verified against the balance book, then the settlement hook runs for each
// leg with mu released and the settling flag set. Any mutating operation
// re-entered from the hook fails with ErrReentrantCall, so the validated
// preconditions of the enclosing operation cannot be invalidated while the
// hook runs. Only after every leg succeeds are the book balances updated;
// a hook failure leaves the book untouched and maps to ErrTransferFailed.
func (c *core) settle(moves []transfer) error {
	// Verify all legs in order against a scratch view, so a later leg may
	// spend what an earlier leg credited.
	scratch := map[string]uint64{}
	bal := func(id string) uint64 {
		if v, ok := scratch[id]; ok {
			return v
		}
		return c.accounts[id]
	}
	for _, m := range moves {
		if m.Amount == 0 {
			continue
		}
		if bal(m.From) < m.Amount {
			return fmt.Errorf("%w: %s short %d", ErrTransferFailed, m.Memo, m.Amount-bal(m.From))
		}
		scratch[m.From] = bal(m.From) - m.Amount
		scratch[m.To] = bal(m.To) + m.Amount
	}

	if c.hook != nil {
		c.settling = true
		c.mu.Unlock()
		var hookErr error
		for _, m := range moves {
			if m.Amount == 0 {
				continue
			}
			if err := c.hook.Transfer(m.From, m.To, m.Amount); err != nil {
				hookErr = err
				break
			}
		}
		c.mu.Lock()
		c.settling = false
		if hookErr != nil {
			return fmt.Errorf("%w: %v", ErrTransferFailed, hookErr)
		}
	}

	for id, v := range scratch {
		if v == 0 {
			delete(c.accounts, id)
			continue
		}
		c.accounts[id] = v
	}
	return nil
}

// Transfer moves the caller's own funds to another account. The escrow vault
// is not a valid destination: custody only grows through DepositFunds.
func (e *Engine) Transfer(caller, to string, amount uint64) error {
	c := e.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settling {
		return ErrReentrantCall
	}
	if to == "" {
		return ErrInvalidAddress
	}
	if to == escrowVaultAccount {
		return ErrVaultTransfer
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	if err := c.settle([]transfer{{From: caller, To: to, Amount: amount, Memo: "transfer"}}); err != nil {
		return err
	}
	c.audit(caller, "FUNDS", "TRANSFER", map[string]any{"to": to, "amount": amount})
	return nil
}

func (e *Engine) BalanceOf(id string) uint64 {
	c := e.core
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accounts[id]
}
