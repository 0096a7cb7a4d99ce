package ledger

import (
	"errors"
	"fmt"
	"testing"
)

func TestTransferBasics(t *testing.T) {
	eng := newTestEngine(t)

	if err := eng.Transfer(testVendor, testGov, 400); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := eng.BalanceOf(testVendor); got != 600 {
		t.Fatalf("sender balance = %d, want 600", got)
	}
	if got := eng.BalanceOf(testGov); got != 100400 {
		t.Fatalf("receiver balance = %d, want 100400", got)
	}

	if err := eng.Transfer(testVendor, "", 1); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("empty recipient: expected ErrInvalidAddress, got %v", err)
	}
	if err := eng.Transfer(testVendor, testGov, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero amount: expected ErrInvalidAmount, got %v", err)
	}
	if err := eng.Transfer(testVendor, testGov, 601); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("overdraw: expected ErrTransferFailed, got %v", err)
	}
	if got := eng.BalanceOf(testVendor); got != 600 {
		t.Fatalf("sender balance changed on failed transfer: %d", got)
	}
}

func TestTransferCannotReachVault(t *testing.T) {
	eng := newTestEngine(t)
	if err := eng.Transfer(testVendor, escrowVaultAccount, 10); !errors.Is(err, ErrVaultTransfer) {
		t.Fatalf("expected ErrVaultTransfer, got %v", err)
	}
}

// hookFunc adapts a function to the settlement hook interface.
type hookFunc func(from, to string, amount uint64) error

func (f hookFunc) Transfer(from, to string, amount uint64) error { return f(from, to, amount) }

func newHookedEngine(t *testing.T, hook SettlementHook) *Engine {
	t.Helper()
	eng, err := New(EngineConfig{
		TenderServiceFee: 10,
		BidServiceFee:    5,
		PlatformWallet:   testWallet,
		Admin:            testAdmin,
		Government:       []string{testGov},
		GenesisBalances:  map[string]uint64{testGov: 100000, testVendor: 1000},
		Now:              testClock(),
		Settlement:       hook,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return eng
}

func TestSettlementHookSeesAllLegs(t *testing.T) {
	var legs []string
	eng := newHookedEngine(t, hookFunc(func(from, to string, amount uint64) error {
		legs = append(legs, fmt.Sprintf("%s->%s:%d", from, to, amount))
		return nil
	}))

	// Overpaid fee settles as collect-then-refund, two legs.
	if _, err := eng.Tenders.CreateTender(testGov, "t", 100, "", 25); err != nil {
		t.Fatalf("create tender: %v", err)
	}
	want := []string{
		testGov + "->" + testWallet + ":25",
		testWallet + "->" + testGov + ":15",
	}
	if len(legs) != len(want) || legs[0] != want[0] || legs[1] != want[1] {
		t.Fatalf("hook legs = %v, want %v", legs, want)
	}
	if got := eng.BalanceOf(testWallet); got != 10 {
		t.Fatalf("platform balance = %d, want 10", got)
	}
}

func TestSettlementHookFailureRollsBack(t *testing.T) {
	calls := 0
	eng := newHookedEngine(t, hookFunc(func(from, to string, amount uint64) error {
		calls++
		return errors.New("downstream unavailable")
	}))

	if _, err := eng.Tenders.CreateTender(testGov, "t", 100, "", 10); !errors.Is(err, ErrTransferFailed) {
		t.Fatalf("expected ErrTransferFailed, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("hook called %d times, want 1", calls)
	}
	if got := eng.Tenders.TenderCount(); got != 0 {
		t.Fatalf("tender stored despite hook failure")
	}
	if got := eng.BalanceOf(testGov); got != 100000 {
		t.Fatalf("balance moved despite hook failure: %d", got)
	}
	if got := eng.BalanceOf(testWallet); got != 0 {
		t.Fatalf("platform credited despite hook failure: %d", got)
	}
}

func TestSettlementHookReentrancyRejected(t *testing.T) {
	var eng *Engine
	var inner []error
	hook := hookFunc(func(from, to string, amount uint64) error {
		// A hook that calls back into the engine must be rejected without
		// failing the settlement it was invoked from.
		_, err := eng.Tenders.CreateTender(testGov, "sneak", 1, "", 10)
		inner = append(inner, err)
		inner = append(inner, eng.Transfer(testGov, testVendor, 1))
		inner = append(inner, eng.Vault.DepositFunds(testGov, 1, 100))
		return nil
	})
	eng = newHookedEngine(t, hook)

	id, err := eng.Tenders.CreateTender(testGov, "t", 100, "", 10)
	if err != nil {
		t.Fatalf("create tender: %v", err)
	}
	if id != 1 {
		t.Fatalf("tender id = %d, want 1", id)
	}
	if len(inner) != 3 {
		t.Fatalf("expected 3 reentrant attempts, got %d", len(inner))
	}
	for i, e := range inner {
		if !errors.Is(e, ErrReentrantCall) {
			t.Fatalf("reentrant attempt %d: expected ErrReentrantCall, got %v", i, e)
		}
	}
	// Only the outer operation's effects landed.
	if got := eng.Tenders.TenderCount(); got != 1 {
		t.Fatalf("tender count = %d, want 1", got)
	}
	if got := eng.BalanceOf(testGov); got != 100000-10 {
		t.Fatalf("creator balance = %d, want %d", got, 100000-10)
	}
}

func TestFeeMovesArithmetic(t *testing.T) {
	if _, err := feeMoves("a", 4, 5, "p"); !errors.Is(err, ErrInsufficientFee) {
		t.Fatalf("underpay: expected ErrInsufficientFee, got %v", err)
	}

	exact, err := feeMoves("a", 5, 5, "p")
	if err != nil {
		t.Fatalf("exact: %v", err)
	}
	if len(exact) != 1 || exact[0].Amount != 5 || exact[0].From != "a" || exact[0].To != "p" {
		t.Fatalf("exact moves = %+v", exact)
	}

	over, err := feeMoves("a", 12, 5, "p")
	if err != nil {
		t.Fatalf("overpay: %v", err)
	}
	if len(over) != 2 || over[0].Amount != 12 || over[1].Amount != 7 || over[1].From != "p" || over[1].To != "a" {
		t.Fatalf("overpay moves = %+v", over)
	}

	free, err := feeMoves("a", 0, 0, "p")
	if err != nil {
		t.Fatalf("zero fee: %v", err)
	}
	if len(free) != 1 || free[0].Amount != 0 {
		t.Fatalf("zero-fee moves = %+v", free)
	}
}
