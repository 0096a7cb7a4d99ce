package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"tendercraft.dev/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "logs":
			logsCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	entries, err := os.ReadDir(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, e := range entries {
		fmt.Println(e.Name())
	}
}

// logsCmd decompresses and prints JSONL audit/event logs.
func logsCmd(args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	kind := fs.String("kind", "audit", "log kind: audit or events")
	limit := fs.Int("limit", 50, "max lines to print (0 = all)")
	_ = fs.Parse(args)

	dir := filepath.Join(*dataDir, *kind)
	entries, err := os.ReadDir(dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jsonl.zst") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	printed := 0
	for _, path := range files {
		if err := catZstd(path, limit, &printed); err != nil {
			fmt.Fprintln(os.Stderr, path+":", err)
			os.Exit(1)
		}
		if *limit > 0 && printed >= *limit {
			return
		}
	}
}

func catZstd(path string, limit *int, printed *int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	for sc.Scan() {
		fmt.Println(sc.Text())
		*printed++
		if *limit > 0 && *printed >= *limit {
			return nil
		}
	}
	return sc.Err()
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	path := fs.String("path", "", "snapshot path (defaults to latest)")
	_ = fs.Parse(args)

	p := strings.TrimSpace(*path)
	if p == "" {
		p = snapshot.LatestPath(filepath.Join(*dataDir, "snapshots"))
	}
	if p == "" {
		fmt.Fprintln(os.Stderr, "no snapshot found")
		os.Exit(1)
	}
	snap, err := snapshot.ReadSnapshot(p)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	fmt.Printf("path=%s version=%d seq=%d\n", p, snap.Header.Version, snap.Header.Seq)
	fmt.Printf("tenders=%d bids=%d escrows=%d accounts=%d roles=%d\n",
		len(snap.Tenders), len(snap.Bids), len(snap.Escrows), len(snap.Accounts), len(snap.Roles))
	if len(snap.Paused) > 0 {
		fmt.Printf("paused=%s\n", strings.Join(snap.Paused, ","))
	}
	fmt.Printf("tender_fee=%d bid_fee=%d\n", snap.TenderServiceFee, snap.BidServiceFee)
}
