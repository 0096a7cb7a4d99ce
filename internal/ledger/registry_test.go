package ledger

import (
	"strconv"
	"testing"
)

type mapRegistry map[string]string

func (m mapRegistry) Resolve(entityType string, entityID uint64) (string, bool) {
	h, ok := m[entityType+":"+strconv.FormatUint(entityID, 10)]
	return h, ok
}

func TestDocumentHandleFallback(t *testing.T) {
	reg := mapRegistry{
		"TENDER:1": "reg-tender-doc",
		"BID:1":    "reg-bid-doc",
	}
	eng, err := New(EngineConfig{
		PlatformWallet:  testWallet,
		Admin:           testAdmin,
		Government:      []string{testGov},
		GenesisBalances: map[string]uint64{testGov: 1000, testVendor: 1000},
		Now:             testClock(),
		Registry:        reg,
	})
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	// Stored handles win over the registry.
	t1, err := eng.Tenders.CreateTender(testGov, "t", 100, "stored-doc", 10)
	if err != nil {
		t.Fatalf("create tender: %v", err)
	}
	h, err := eng.TenderRequirements(t1)
	if err != nil {
		t.Fatalf("requirements: %v", err)
	}
	if h != "stored-doc" {
		t.Fatalf("handle = %q, want stored-doc", h)
	}

	// An empty stored handle falls back to the registry.
	b1, err := eng.Bids.SubmitBid(testVendor, t1, 90, "", "", 5)
	if err != nil {
		t.Fatalf("submit bid: %v", err)
	}
	h, err = eng.BidProposal(b1)
	if err != nil {
		t.Fatalf("proposal: %v", err)
	}
	if h != "reg-bid-doc" {
		t.Fatalf("handle = %q, want reg-bid-doc", h)
	}
}

func TestDocumentHandleWithoutRegistry(t *testing.T) {
	eng := newTestEngine(t)
	tid := newTenderFor(t, eng, 100)
	h, err := eng.TenderRequirements(tid)
	if err != nil {
		t.Fatalf("requirements: %v", err)
	}
	if h != "" {
		t.Fatalf("handle = %q, want empty", h)
	}
}
