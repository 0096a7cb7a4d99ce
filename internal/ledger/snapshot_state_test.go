package ledger

import (
	"testing"

	"tendercraft.dev/internal/persistence/snapshot"
)

func populatedEngine(t *testing.T) *Engine {
	t.Helper()
	eng := newTestEngine(t)

	t1, err := eng.Tenders.CreateTender(testGov, "alpha", 500, "doc-a", 10)
	if err != nil {
		t.Fatalf("create tender: %v", err)
	}
	t2, err := eng.Tenders.CreateTender(testGov, "beta", 900, "", 10)
	if err != nil {
		t.Fatalf("create tender: %v", err)
	}
	b1, err := eng.Bids.SubmitBid(testVendor, t1, 450, "offer", "prop", 5)
	if err != nil {
		t.Fatalf("submit bid: %v", err)
	}
	if err := eng.Bids.AcceptBid(testGov, t1, b1); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := eng.Vault.DepositFunds(testGov, t2, 900); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if err := eng.Pause(testPauser, LedgerBids); err != nil {
		t.Fatalf("pause: %v", err)
	}
	return eng
}

func TestSnapshotRoundTrip(t *testing.T) {
	src := populatedEngine(t)
	snap := src.ExportSnapshot()

	if snap.Header.Version != 1 || snap.Header.Service != "tendercraft" {
		t.Fatalf("unexpected header: %+v", snap.Header)
	}
	if len(snap.Tenders) != 2 || len(snap.Bids) != 1 || len(snap.Escrows) != 1 {
		t.Fatalf("snapshot sizes: %d tenders, %d bids, %d escrows",
			len(snap.Tenders), len(snap.Bids), len(snap.Escrows))
	}

	dst := newTestEngine(t)
	if err := dst.RestoreSnapshot(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}

	rec, err := dst.Tenders.Tender(1)
	if err != nil {
		t.Fatalf("restored tender: %v", err)
	}
	if rec.Description != "alpha" || rec.Budget != 500 || len(rec.BidIDs) != 1 {
		t.Fatalf("restored tender record: %+v", rec)
	}
	status, err := dst.Bids.BidStatusText(1)
	if err != nil {
		t.Fatalf("restored bid: %v", err)
	}
	if status != "ACCEPTED" {
		t.Fatalf("restored bid status = %q", status)
	}
	if got := dst.Vault.TotalEscrowBalance(); got != 900 {
		t.Fatalf("restored escrow total = %d, want 900", got)
	}
	if got, want := dst.BalanceOf(testGov), src.BalanceOf(testGov); got != want {
		t.Fatalf("restored balance = %d, want %d", got, want)
	}
	if !dst.Paused(LedgerBids) {
		t.Fatalf("pause flag lost in round trip")
	}
	if dst.Paused(LedgerTenders) {
		t.Fatalf("spurious pause flag after restore")
	}

	// Id sequences resume after the restored records.
	id, err := dst.Tenders.CreateTender(testGov, "gamma", 100, "", 10)
	if err != nil {
		t.Fatalf("create after restore: %v", err)
	}
	if id != 3 {
		t.Fatalf("next tender id = %d, want 3", id)
	}

	// The bid ledger still validates and links through the restored tenders.
	if err := dst.Unpause(testPauser, LedgerBids); err != nil {
		t.Fatalf("unpause: %v", err)
	}
	if _, err := dst.Bids.SubmitBid(testVendor, id, 90, "", "", 5); err != nil {
		t.Fatalf("bid after restore: %v", err)
	}
}

func TestRestoreRejectsBadSnapshots(t *testing.T) {
	eng := newTestEngine(t)

	if err := eng.RestoreSnapshot(snapshot.LedgerSnapshotV1{
		Header: snapshot.Header{Version: 2},
	}); err == nil {
		t.Fatalf("expected version error")
	}

	if err := eng.RestoreSnapshot(snapshot.LedgerSnapshotV1{
		Header:  snapshot.Header{Version: 1},
		Tenders: []snapshot.TenderV1{{ID: 2}},
	}); err == nil {
		t.Fatalf("expected dense-id error for tenders")
	}

	if err := eng.RestoreSnapshot(snapshot.LedgerSnapshotV1{
		Header: snapshot.Header{Version: 1},
		Bids:   []snapshot.BidV1{{ID: 1, Status: "MAYBE"}},
	}); err == nil {
		t.Fatalf("expected status error for bids")
	}
}

func TestRestoreAuditSeqContinues(t *testing.T) {
	src := populatedEngine(t)
	snap := src.ExportSnapshot()
	if snap.Header.Seq == 0 {
		t.Fatalf("populated engine exported zero audit seq")
	}

	dst := newTestEngine(t)
	if err := dst.RestoreSnapshot(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	sink := &recordingSink{}
	dst.SetSinks(sink, sink)
	if err := dst.Transfer(testVendor, testGov, 1); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if len(sink.audits) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(sink.audits))
	}
	if got := sink.audits[0].Seq; got != snap.Header.Seq+1 {
		t.Fatalf("audit seq = %d, want %d", got, snap.Header.Seq+1)
	}
}
