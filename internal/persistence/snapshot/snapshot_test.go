package snapshot

import (
	"os"
	"path/filepath"
	"testing"
)

func sampleSnapshot() LedgerSnapshotV1 {
	return LedgerSnapshotV1{
		Header:           Header{Version: 1, Service: "tendercraft", Seq: 42},
		TenderServiceFee: 10,
		BidServiceFee:    5,
		TenderFeeWallet:  "platform",
		BidFeeWallet:     "platform",
		Tenders: []TenderV1{
			{ID: 1, Description: "alpha", Budget: 500, Completed: true, BidIDs: []uint64{1}, Creator: "gov", CreatedAtUnix: 1700000001},
		},
		Bids: []BidV1{
			{ID: 1, TenderID: 1, Vendor: "vendor", Price: 450, Status: "ACCEPTED", SubmittedAtUnix: 1700000002},
		},
		Escrows: []EscrowV1{
			{TenderID: 1, Amount: 500, Depositor: "gov", Released: true, DepositedAtUnix: 1700000003, ReleasedTo: "vendor", ReleasedAtUnix: 1700000004},
		},
		Accounts: []AccountV1{{ID: "gov", Balance: 99490}, {ID: "vendor", Balance: 1445}},
		Roles:    []RoleV1{{ID: "admin", Roles: 2}, {ID: "gov", Roles: 1}},
		Paused:   []string{"BIDS"},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snap", "000042.zst")
	want := sampleSnapshot()
	if err := WriteSnapshot(path, want); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Header != want.Header {
		t.Fatalf("header = %+v, want %+v", got.Header, want.Header)
	}
	if len(got.Tenders) != 1 || got.Tenders[0].Description != "alpha" || len(got.Tenders[0].BidIDs) != 1 {
		t.Fatalf("tenders = %+v", got.Tenders)
	}
	if len(got.Bids) != 1 || got.Bids[0].Status != "ACCEPTED" {
		t.Fatalf("bids = %+v", got.Bids)
	}
	if len(got.Escrows) != 1 || got.Escrows[0].ReleasedTo != "vendor" {
		t.Fatalf("escrows = %+v", got.Escrows)
	}
	if len(got.Accounts) != 2 || got.Accounts[0].Balance != 99490 {
		t.Fatalf("accounts = %+v", got.Accounts)
	}
	if len(got.Paused) != 1 || got.Paused[0] != "BIDS" {
		t.Fatalf("paused = %v", got.Paused)
	}
}

func TestReadSnapshotMissing(t *testing.T) {
	if _, err := ReadSnapshot(filepath.Join(t.TempDir(), "nope.zst")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLatestPath(t *testing.T) {
	dir := t.TempDir()
	if got := LatestPath(dir); got != "" {
		t.Fatalf("empty dir: got %q", got)
	}

	for _, name := range []string{"000010.zst", "000002.zst", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "999999.zst"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if got, want := LatestPath(dir), filepath.Join(dir, "000010.zst"); got != want {
		t.Fatalf("latest = %q, want %q", got, want)
	}
	if got := LatestPath(filepath.Join(dir, "absent")); got != "" {
		t.Fatalf("missing dir: got %q", got)
	}
}
