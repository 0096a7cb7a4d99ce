package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"tendercraft.dev/internal/persistence/snapshot"
)

// CloseoutMeta describes one archived quiescent point.
type CloseoutMeta struct {
	Seq              uint64 `json:"seq"`
	Tenders          int    `json:"tenders"`
	CompletedTenders int    `json:"completed_tenders"`
	Bids             int    `json:"bids"`
	Snapshot         string `json:"snapshot"`
	CreatedAt        string `json:"created_at"`
}

// ArchiveCloseout copies a snapshot into `dataDir/archives/closeout_<seq>/`
// when it captures a quiescent ledger: at least one tender, every tender
// completed and no custody outstanding. Such snapshots are natural retention
// points, the books balance and nothing in them can move again.
func ArchiveCloseout(dataDir, snapshotPath string, snap snapshot.LedgerSnapshotV1) (archivedPath string, archived bool, err error) {
	if len(snap.Tenders) == 0 {
		return "", false, nil
	}
	completed := 0
	for _, t := range snap.Tenders {
		if t.Completed {
			completed++
		}
	}
	if completed != len(snap.Tenders) {
		return "", false, nil
	}
	for _, esc := range snap.Escrows {
		if esc.Amount > 0 && !esc.Released {
			return "", false, nil
		}
	}

	archiveDir := filepath.Join(dataDir, "archives", fmt.Sprintf("closeout_%06d", snap.Header.Seq))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := CloseoutMeta{
		Seq:              snap.Header.Seq,
		Tenders:          len(snap.Tenders),
		CompletedTenders: completed,
		Bids:             len(snap.Bids),
		Snapshot:         filepath.Base(dst),
		CreatedAt:        time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
