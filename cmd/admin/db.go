package main

import (
	"database/sql"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	limit := fs.Int("limit", 20, "result limit")
	vendor := fs.String("vendor", "", "vendor filter (bids)")
	tenderID := fs.Int64("tender", 0, "tender_id filter (bids, escrows)")
	_ = fs.Parse(args)

	q := "tenders"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "ledger.sqlite")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer db.Close()

	switch q {
	case "tenders":
		query(db, `SELECT id,description,budget,completed,creator,created_at FROM tenders ORDER BY id DESC LIMIT ?`, *limit)
	case "bids":
		switch {
		case *vendor != "":
			query(db, `SELECT id,tender_id,vendor,price,status,submitted_at FROM bids WHERE vendor=? ORDER BY id DESC LIMIT ?`, *vendor, *limit)
		case *tenderID > 0:
			query(db, `SELECT id,tender_id,vendor,price,status,submitted_at FROM bids WHERE tender_id=? ORDER BY id DESC LIMIT ?`, *tenderID, *limit)
		default:
			query(db, `SELECT id,tender_id,vendor,price,status,submitted_at FROM bids ORDER BY id DESC LIMIT ?`, *limit)
		}
	case "escrows":
		if *tenderID > 0 {
			query(db, `SELECT tender_id,amount,depositor,released,deposited_at,released_to FROM escrows WHERE tender_id=?`, *tenderID)
		} else {
			query(db, `SELECT tender_id,amount,depositor,released,deposited_at,released_to FROM escrows ORDER BY tender_id DESC LIMIT ?`, *limit)
		}
	case "events":
		query(db, `SELECT seq,type,ledger,actor,time FROM events ORDER BY seq DESC LIMIT ?`, *limit)
	case "audits":
		query(db, `SELECT seq,time,actor,ledger,action FROM audits ORDER BY seq DESC LIMIT ?`, *limit)
	default:
		fmt.Fprintf(os.Stderr, "unknown query %q (tenders|bids|escrows|events|audits)\n", q)
		os.Exit(2)
	}
}

func query(db *sql.DB, stmt string, args ...any) {
	rows, err := db.Query(stmt, args...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		fmt.Fprintln(os.Stderr, "columns:", err)
		os.Exit(1)
	}
	fmt.Println(strings.Join(cols, "\t"))

	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			fmt.Fprintln(os.Stderr, "scan:", err)
			os.Exit(1)
		}
		parts := make([]string, len(vals))
		for i, v := range vals {
			switch t := v.(type) {
			case []byte:
				parts[i] = string(t)
			case nil:
				parts[i] = ""
			default:
				parts[i] = fmt.Sprint(t)
			}
		}
		fmt.Println(strings.Join(parts, "\t"))
	}
	if err := rows.Err(); err != nil {
		fmt.Fprintln(os.Stderr, "rows:", err)
		os.Exit(1)
	}
}
