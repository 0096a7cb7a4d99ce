package ledgerdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"tendercraft.dev/internal/ledger"
)

// LedgerDB is an async read-model mirror of the engine. Rows are refreshed
// from notifications on a single writer goroutine; the JSONL logs and
// snapshots remain the source of truth, so entries may be dropped under
// backpressure without losing durability.
type LedgerDB struct {
	db  *sql.DB
	eng *ledger.Engine

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool
}

type reqKind int

const (
	reqAudit reqKind = iota + 1
	reqEvent
)

type req struct {
	kind  reqKind
	audit ledger.AuditEntry
	event ledger.Event
}

func Open(path string, eng *ledger.Engine) (*LedgerDB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &LedgerDB{
		db:  db,
		eng: eng,
		// High buffer: bursty submission waves must not stall the engine.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads; NORMAL is a decent
	// durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS tenders (
			id INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			budget INTEGER NOT NULL,
			requirements_handle TEXT,
			completed INTEGER NOT NULL,
			creator TEXT NOT NULL,
			created_at TEXT NOT NULL,
			bid_ids TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tenders_creator ON tenders(creator);`,
		`CREATE TABLE IF NOT EXISTS bids (
			id INTEGER PRIMARY KEY,
			tender_id INTEGER NOT NULL,
			vendor TEXT NOT NULL,
			price INTEGER NOT NULL,
			description TEXT NOT NULL,
			proposal_handle TEXT,
			status TEXT NOT NULL,
			submitted_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_bids_tender ON bids(tender_id);`,
		`CREATE INDEX IF NOT EXISTS idx_bids_vendor ON bids(vendor);`,
		`CREATE TABLE IF NOT EXISTS escrows (
			tender_id INTEGER PRIMARY KEY,
			amount INTEGER NOT NULL,
			depositor TEXT NOT NULL,
			released INTEGER NOT NULL,
			deposited_at TEXT NOT NULL,
			released_to TEXT,
			released_at TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			seq INTEGER PRIMARY KEY,
			type TEXT NOT NULL,
			ledger TEXT,
			actor TEXT,
			time INTEGER,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);`,
		`CREATE TABLE IF NOT EXISTS audits (
			seq INTEGER PRIMARY KEY,
			time TEXT NOT NULL,
			actor TEXT NOT NULL,
			ledger TEXT NOT NULL,
			action TEXT NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_actor ON audits(actor);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *LedgerDB) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteAudit implements ledger.AuditLogger. Non-blocking; drops when the
// mirror falls behind.
func (s *LedgerDB) WriteAudit(entry ledger.AuditEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{kind: reqAudit, audit: entry}:
	default:
	}
	return nil
}

// Notify implements ledger.Notifier. The engine emits under its own lock, so
// this only enqueues; record refresh happens on the writer goroutine where
// engine reads are safe.
func (s *LedgerDB) Notify(ev ledger.Event) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- req{kind: reqEvent, event: ev}:
	default:
	}
}

func (s *LedgerDB) loop() {
	ctx := context.Background()

	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO events(seq,type,ledger,actor,time,raw_json) VALUES(?,?,?,?,?,?)`)
	insertAudit, _ := s.db.Prepare(`INSERT OR REPLACE INTO audits(seq,time,actor,ledger,action,raw_json) VALUES(?,?,?,?,?,?)`)
	upsertTender, _ := s.db.Prepare(`INSERT OR REPLACE INTO tenders(id,description,budget,requirements_handle,completed,creator,created_at,bid_ids) VALUES(?,?,?,?,?,?,?,?)`)
	upsertBid, _ := s.db.Prepare(`INSERT OR REPLACE INTO bids(id,tender_id,vendor,price,description,proposal_handle,status,submitted_at) VALUES(?,?,?,?,?,?,?,?)`)
	upsertEscrow, _ := s.db.Prepare(`INSERT OR REPLACE INTO escrows(tender_id,amount,depositor,released,deposited_at,released_to,released_at) VALUES(?,?,?,?,?,?,?)`)
	deleteEscrow, _ := s.db.Prepare(`DELETE FROM escrows WHERE tender_id=?`)
	defer func() {
		for _, st := range []*sql.Stmt{insertEvent, insertAudit, upsertTender, upsertBid, upsertEscrow, deleteEscrow} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqAudit:
			a := r.audit
			raw, _ := json.Marshal(a)
			if insertAudit != nil {
				if _, err := tx.Stmt(insertAudit).Exec(
					int64(a.Seq),
					a.Time.UTC().Format(time.RFC3339Nano),
					a.Actor,
					a.Ledger,
					a.Action,
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqEvent:
			ev := r.event
			raw, _ := json.Marshal(ev)
			seq, _ := ev["seq"].(uint64)
			evTime, _ := ev["time"].(int64)
			typ, _ := ev["type"].(string)
			ledgerName, _ := ev["ledger"].(string)
			actor, _ := ev["actor"].(string)
			if insertEvent != nil {
				if _, err := tx.Stmt(insertEvent).Exec(
					int64(seq), typ, ledgerName, actor, evTime, string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
			if !s.refresh(tx, typ, ev, upsertTender, upsertBid, upsertEscrow, deleteEscrow, &opCount) {
				rollback()
				continue
			}
		}
		flushIfNeeded()
	}

	commit()
}

// refresh re-reads the affected record from the engine and upserts its row.
// Runs on the writer goroutine, outside the engine lock.
func (s *LedgerDB) refresh(tx *sql.Tx, typ string, ev ledger.Event, upsertTender, upsertBid, upsertEscrow, deleteEscrow *sql.Stmt, opCount *int) bool {
	if s.eng == nil {
		return true
	}
	evID := func(key string) (uint64, bool) {
		v, ok := ev[key].(uint64)
		return v, ok
	}

	switch typ {
	case "TENDER_CREATED", "TENDER_COMPLETED", "TENDER_BID_ADDED":
		id, ok := evID("tender_id")
		if !ok || upsertTender == nil {
			return true
		}
		rec, err := s.eng.Tenders.Tender(id)
		if err != nil {
			return true
		}
		bidIDs, _ := json.Marshal(rec.BidIDs)
		if _, err := tx.Stmt(upsertTender).Exec(
			int64(rec.ID),
			rec.Description,
			int64(rec.Budget),
			rec.RequirementsHandle,
			boolInt(rec.Completed),
			rec.Creator,
			rec.CreatedAt.UTC().Format(time.RFC3339Nano),
			string(bidIDs),
		); err != nil {
			return false
		}
		*opCount++

	case "BID_SUBMITTED", "BID_ACCEPTED", "BID_REJECTED":
		id, ok := evID("bid_id")
		if !ok || upsertBid == nil {
			return true
		}
		rec, err := s.eng.Bids.Bid(id)
		if err != nil {
			return true
		}
		if _, err := tx.Stmt(upsertBid).Exec(
			int64(rec.ID),
			int64(rec.TenderID),
			rec.Vendor,
			int64(rec.Price),
			rec.Description,
			rec.ProposalHandle,
			string(rec.Status),
			rec.SubmittedAt.UTC().Format(time.RFC3339Nano),
		); err != nil {
			return false
		}
		*opCount++

	case "ESCROW_DEPOSITED", "ESCROW_RELEASED":
		id, ok := evID("tender_id")
		if !ok || upsertEscrow == nil {
			return true
		}
		rec, err := s.eng.Vault.Escrow(id)
		if err != nil {
			return true
		}
		releasedAt := ""
		if !rec.ReleasedAt.IsZero() {
			releasedAt = rec.ReleasedAt.UTC().Format(time.RFC3339Nano)
		}
		if _, err := tx.Stmt(upsertEscrow).Exec(
			int64(rec.TenderID),
			int64(rec.Amount),
			rec.Depositor,
			boolInt(rec.Released),
			rec.DepositedAt.UTC().Format(time.RFC3339Nano),
			rec.ReleasedTo,
			releasedAt,
		); err != nil {
			return false
		}
		*opCount++

	case "ESCROW_REFUNDED":
		id, ok := evID("tender_id")
		if !ok || deleteEscrow == nil {
			return true
		}
		if _, err := tx.Stmt(deleteEscrow).Exec(int64(id)); err != nil {
			return false
		}
		*opCount++
	}
	return true
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
