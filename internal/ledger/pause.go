package ledger

import "fmt"

func validLedgerName(name string) bool {
	switch name {
	case LedgerTenders, LedgerBids, LedgerEscrow:
		return true
	}
	return false
}

// Pause stops all mutating operations on one ledger. Pauser role only.
// The pause check runs before any other validation in every mutating op.
func (e *Engine) Pause(caller, ledgerName string) error {
	return e.setPaused(caller, ledgerName, true)
}

// Unpause re-enables mutating operations on one ledger. Pauser role only.
func (e *Engine) Unpause(caller, ledgerName string) error {
	return e.setPaused(caller, ledgerName, false)
}

func (e *Engine) setPaused(caller, ledgerName string, paused bool) error {
	c := e.core
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.settling {
		return ErrReentrantCall
	}
	if !c.hasRole(caller, RolePauser) {
		return ErrUnauthorized
	}
	if !validLedgerName(ledgerName) {
		return fmt.Errorf("pause: unknown ledger %q", ledgerName)
	}
	c.paused[ledgerName] = paused
	action := "PAUSED"
	if !paused {
		action = "UNPAUSED"
	}
	c.audit(caller, ledgerName, action, nil)
	return nil
}

func (e *Engine) Paused(ledgerName string) bool {
	c := e.core
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused[ledgerName]
}
