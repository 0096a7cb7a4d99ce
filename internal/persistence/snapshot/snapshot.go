package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

type Header struct {
	Version int    `json:"version"`
	Service string `json:"service"`
	Seq     uint64 `json:"seq"`
}

// LedgerSnapshotV1 captures the full engine state for resume: parameters,
// records, balances, role grants, pause flags. Counters are implied by the
// record sequences (ids are dense from 1).
type LedgerSnapshotV1 struct {
	Header Header `json:"header"`

	TenderServiceFee uint64 `json:"tender_service_fee"`
	BidServiceFee    uint64 `json:"bid_service_fee"`
	TenderFeeWallet  string `json:"tender_fee_wallet"`
	BidFeeWallet     string `json:"bid_fee_wallet"`

	Tenders []TenderV1 `json:"tenders"`
	Bids    []BidV1    `json:"bids"`
	Escrows []EscrowV1 `json:"escrows"`

	Accounts []AccountV1 `json:"accounts"`
	Roles    []RoleV1    `json:"roles"`
	Paused   []string    `json:"paused,omitempty"`
}

type TenderV1 struct {
	ID                 uint64   `json:"id"`
	Description        string   `json:"description"`
	Budget             uint64   `json:"budget"`
	RequirementsHandle string   `json:"requirements_handle,omitempty"`
	Completed          bool     `json:"completed"`
	BidIDs             []uint64 `json:"bid_ids,omitempty"`
	Creator            string   `json:"creator"`
	CreatedAtUnix      int64    `json:"created_at"`
}

type BidV1 struct {
	ID              uint64 `json:"id"`
	TenderID        uint64 `json:"tender_id"`
	Vendor          string `json:"vendor"`
	Price           uint64 `json:"price"`
	Description     string `json:"description"`
	ProposalHandle  string `json:"proposal_handle,omitempty"`
	Status          string `json:"status"`
	SubmittedAtUnix int64  `json:"submitted_at"`
}

type EscrowV1 struct {
	TenderID        uint64 `json:"tender_id"`
	Amount          uint64 `json:"amount"`
	Depositor       string `json:"depositor"`
	Released        bool   `json:"released"`
	DepositedAtUnix int64  `json:"deposited_at"`
	ReleasedTo      string `json:"released_to,omitempty"`
	ReleasedAtUnix  int64  `json:"released_at,omitempty"`
}

type AccountV1 struct {
	ID      string `json:"id"`
	Balance uint64 `json:"balance"`
}

type RoleV1 struct {
	ID    string `json:"id"`
	Roles uint8  `json:"roles"`
}

func WriteSnapshot(path string, snap LedgerSnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 256*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (LedgerSnapshotV1, error) {
	var snap LedgerSnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// Header line is informational; gob carries it too.
	_, _ = br.ReadBytes('\n')

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// LatestPath returns the newest snapshot file under dir, or "" when none.
func LatestPath(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	best := ""
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if filepath.Ext(name) != ".zst" {
			continue
		}
		if best == "" || name > best {
			best = name
		}
	}
	if best == "" {
		return ""
	}
	return filepath.Join(dir, best)
}
