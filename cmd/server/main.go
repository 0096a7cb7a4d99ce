package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"tendercraft.dev/internal/config"
	"tendercraft.dev/internal/ledger"
	"tendercraft.dev/internal/persistence/archive"
	"tendercraft.dev/internal/persistence/ledgerdb"
	persistlog "tendercraft.dev/internal/persistence/log"
	"tendercraft.dev/internal/persistence/objstore"
	"tendercraft.dev/internal/persistence/snapshot"
	"tendercraft.dev/internal/transport/ws"
)

func main() {
	var (
		addr       = flag.String("addr", "", "http listen address (overrides config)")
		configPath = flag.String("config", "./configs/server.yaml", "server config path")
		dataDir    = flag.String("data", "", "runtime data directory (overrides config)")
		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "load latest snapshot from data dir if present (when -snapshot is empty)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read-model mirror")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if strings.TrimSpace(*addr) != "" {
		cfg.ListenAddr = strings.TrimSpace(*addr)
	}
	if strings.TrimSpace(*dataDir) != "" {
		cfg.DataDir = strings.TrimSpace(*dataDir)
	}
	if *disableDB {
		cfg.DisableDB = true
	}
	_ = os.MkdirAll(cfg.DataDir, 0o755)

	eng, err := ledger.New(ledger.EngineConfig{
		TenderServiceFee: cfg.TenderServiceFee,
		BidServiceFee:    cfg.BidServiceFee,
		PlatformWallet:   cfg.PlatformWallet,
		Admin:            cfg.Admin,
		Government:       cfg.Government,
		Pausers:          cfg.Pausers,
		GenesisBalances:  cfg.GenesisBalances,
	})
	if err != nil {
		logger.Fatalf("build engine: %v", err)
	}

	// Resume from snapshot if one exists.
	snapDir := filepath.Join(cfg.DataDir, "snapshots")
	resumeFrom := strings.TrimSpace(*snapPath)
	if resumeFrom == "" && *loadLatest {
		resumeFrom = snapshot.LatestPath(snapDir)
	}
	if resumeFrom != "" {
		snap, err := snapshot.ReadSnapshot(resumeFrom)
		if err != nil {
			logger.Fatalf("read snapshot %s: %v", resumeFrom, err)
		}
		if err := eng.RestoreSnapshot(snap); err != nil {
			logger.Fatalf("restore snapshot %s: %v", resumeFrom, err)
		}
		logger.Printf("resumed from %s (tenders=%d bids=%d)", resumeFrom, eng.Tenders.TenderCount(), eng.Bids.BidCount())
	}

	auditLog := persistlog.NewAuditLogger(cfg.DataDir)
	defer auditLog.Close()
	eventLog := persistlog.NewEventLogger(cfg.DataDir)
	defer eventLog.Close()

	wsServer := ws.NewServer(eng, logger)

	notifiers := []ledger.Notifier{eventLog, wsServer}
	var db *ledgerdb.LedgerDB
	if !cfg.DisableDB {
		db, err = ledgerdb.Open(filepath.Join(cfg.DataDir, "index", "ledger.sqlite"), eng)
		if err != nil {
			logger.Fatalf("open ledger db: %v", err)
		}
		defer db.Close()
		notifiers = append(notifiers, db)
	}

	var opCount atomic.Int64
	fan := fanout{sinks: notifiers, ops: &opCount}

	audits := []ledger.AuditLogger{auditLog}
	if db != nil {
		audits = append(audits, db)
	}
	eng.SetSinks(auditFan(audits), fan)

	var mirror *objstore.Mirror
	if cfg.Offsite.Enabled {
		client, err := objstore.New(cfg.Offsite.Endpoint, cfg.Offsite.Bucket, cfg.Offsite.Region,
			cfg.Offsite.AccessKeyID, cfg.Offsite.SecretAccessKey)
		if err != nil {
			logger.Fatalf("offsite mirror: %v", err)
		}
		mirror = objstore.NewMirror(client, cfg.DataDir, cfg.Offsite.Prefix,
			cfg.Offsite.Workers, cfg.Offsite.QueueCapacity, 0, logger)
		logger.Printf("offsite mirror enabled bucket=%s prefix=%s", cfg.Offsite.Bucket, cfg.Offsite.Prefix)
	}

	writeSnap := func(reason string) {
		snap := eng.ExportSnapshot()
		path := filepath.Join(snapDir, time.Now().UTC().Format("20060102-150405")+".snap.zst")
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			logger.Printf("write snapshot (%s): %v", reason, err)
			return
		}
		logger.Printf("snapshot written (%s): %s", reason, path)
		mirror.Enqueue(path)

		archived, ok, err := archive.ArchiveCloseout(cfg.DataDir, path, snap)
		if err != nil {
			logger.Printf("closeout archive: %v", err)
		} else if ok {
			logger.Printf("closeout archived: %s", archived)
			mirror.Enqueue(archived)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Periodic snapshots, off the engine's lock.
	if cfg.SnapshotEveryOps > 0 {
		go func() {
			t := time.NewTicker(10 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-t.C:
					if opCount.Swap(0) >= int64(cfg.SnapshotEveryOps) {
						writeSnap("periodic")
					}
				}
			}
		}()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/ws", wsServer.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	go func() {
		logger.Printf("listening on %s", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http serve: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Printf("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)

	writeSnap("shutdown")
	mirror.Close()
}

// fanout replicates notifications to every sink and counts ops for the
// snapshot trigger.
type fanout struct {
	sinks []ledger.Notifier
	ops   *atomic.Int64
}

func (f fanout) Notify(ev ledger.Event) {
	f.ops.Add(1)
	for _, s := range f.sinks {
		s.Notify(ev)
	}
}

// auditFan replicates audit entries to every sink.
type auditFanImpl struct {
	sinks []ledger.AuditLogger
}

func auditFan(sinks []ledger.AuditLogger) ledger.AuditLogger {
	return auditFanImpl{sinks: sinks}
}

func (f auditFanImpl) WriteAudit(entry ledger.AuditEntry) error {
	var first error
	for _, s := range f.sinks {
		if err := s.WriteAudit(entry); err != nil && first == nil {
			first = err
		}
	}
	return first
}
