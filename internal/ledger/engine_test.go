package ledger

import (
	"errors"
	"testing"
	"time"
)

const (
	testAdmin  = "admin-1"
	testGov    = "gov-1"
	testPauser = "pauser-1"
	testVendor = "vendor-1"
	testWallet = "platform-wallet"
)

func testClock() func() time.Time {
	base := time.Unix(1_700_000_000, 0).UTC()
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	eng, err := New(EngineConfig{
		TenderServiceFee: 10,
		BidServiceFee:    5,
		PlatformWallet:   testWallet,
		Admin:            testAdmin,
		Government:       []string{testGov},
		Pausers:          []string{testPauser},
		GenesisBalances: map[string]uint64{
			testGov:    100000,
			testVendor: 1000,
			"vendor-2": 1000,
		},
		Now: testClock(),
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return eng
}

func TestNewRequiresWalletAndAdmin(t *testing.T) {
	if _, err := New(EngineConfig{Admin: testAdmin}); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress without wallet, got %v", err)
	}
	if _, err := New(EngineConfig{PlatformWallet: testWallet}); !errors.Is(err, ErrInvalidAddress) {
		t.Fatalf("expected ErrInvalidAddress without admin, got %v", err)
	}
}

func TestDefaultFees(t *testing.T) {
	eng, err := New(EngineConfig{PlatformWallet: testWallet, Admin: testAdmin})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	if got := eng.Tenders.ServiceFee(); got != 10 {
		t.Fatalf("tender fee = %d, want 10", got)
	}
	if got := eng.Bids.ServiceFee(); got != 5 {
		t.Fatalf("bid fee = %d, want 5", got)
	}
}

type recordingSink struct {
	audits []AuditEntry
	events []Event
}

func (r *recordingSink) WriteAudit(e AuditEntry) error { r.audits = append(r.audits, e); return nil }
func (r *recordingSink) Notify(ev Event)               { r.events = append(r.events, ev) }

func TestAuditSequenceMonotonic(t *testing.T) {
	eng := newTestEngine(t)
	sink := &recordingSink{}
	eng.SetSinks(sink, sink)

	if _, err := eng.Tenders.CreateTender(testGov, "roads", 500, "", 10); err != nil {
		t.Fatalf("create tender: %v", err)
	}
	if err := eng.Transfer(testVendor, testGov, 100); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if len(sink.audits) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(sink.audits))
	}
	for i, e := range sink.audits {
		if e.Seq != uint64(i)+1 {
			t.Fatalf("audit seq[%d] = %d, want %d", i, e.Seq, i+1)
		}
	}
	if len(sink.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(sink.events))
	}
	if sink.events[0]["type"] != "TENDER_CREATED" {
		t.Fatalf("event[0] type = %v", sink.events[0]["type"])
	}
}
