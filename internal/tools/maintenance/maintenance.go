package maintenance

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	server "github.com/louisbranch/parkline/internal/services/game/app"
	"github.com/louisbranch/parkline/internal/services/game/domain/actions"
	"github.com/louisbranch/parkline/internal/services/game/domain/authz"
	"github.com/louisbranch/parkline/internal/services/game/domain/replay"
	"github.com/louisbranch/parkline/internal/services/game/storage"
	"github.com/louisbranch/parkline/internal/services/game/storage/integrity"
	"github.com/louisbranch/parkline/internal/services/game/storage/sqlite"
)

const (
	modeIntegrity = "integrity"
	modeReplay    = "replay"
	modeAudit     = "audit"
)

// Config holds maintenance command configuration.
type Config struct {
	DBPath       string
	PolicyPath   string
	Timeout      time.Duration
	UntilSeq     uint64
	Integrity    bool
	Audit        bool
	AuditEvent   string
	AuditLimit   int
	SnapshotPath string
	JSONOutput   bool
	Park         server.ParkConfig
}

type envConfig struct {
	DBPath     string        `env:"PARKLINE_GAME_DB_PATH"`
	PolicyPath string        `env:"PARKLINE_GAME_POLICY_PATH"`
	Timeout    time.Duration `env:"PARKLINE_MAINTENANCE_TIMEOUT" envDefault:"10m"`
	Park       server.ParkConfig
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var envCfg envConfig
	if err := env.Parse(&envCfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg := Config{
		DBPath:     envCfg.DBPath,
		PolicyPath: envCfg.PolicyPath,
		Timeout:    envCfg.Timeout,
		Park:       envCfg.Park,
		AuditLimit: 50,
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join("data", "game.db")
	}

	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "path to the replication log database (default: PARKLINE_GAME_DB_PATH or data/game.db)")
	fs.StringVar(&cfg.PolicyPath, "policy", cfg.PolicyPath, "permission policy the park was started with")
	fs.Uint64Var(&cfg.UntilSeq, "until-seq", 0, "replay up to this entry sequence (0 = latest)")
	fs.BoolVar(&cfg.Integrity, "integrity", false, "verify hashes and signatures without replaying")
	fs.BoolVar(&cfg.Audit, "audit", false, "list recorded audit events")
	fs.StringVar(&cfg.AuditEvent, "audit-event", "", "only list audit events with this name")
	fs.IntVar(&cfg.AuditLimit, "audit-limit", cfg.AuditLimit, "max audit events to list")
	fs.StringVar(&cfg.SnapshotPath, "snapshot", "", "write the replayed world as JSON to this path")
	fs.BoolVar(&cfg.JSONOutput, "json", false, "output JSON reports")
	fs.Int64Var(&cfg.Park.StartingCash, "starting-cash", cfg.Park.StartingCash, "starting cash the park was created with")
	var mapSize int
	fs.IntVar(&mapSize, "map-size", int(cfg.Park.MapSize), "map size the park was created with")
	var seed uint
	fs.UintVar(&seed, "seed", uint(cfg.Park.Seed), "random seed the park was created with")
	fs.BoolVar(&cfg.Park.Editor, "editor", cfg.Park.Editor, "the park was created in editor mode")
	fs.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "overall timeout")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Park.MapSize = int32(mapSize)
	cfg.Park.Seed = uint32(seed)
	return cfg, nil
}

// Report is the outcome of one maintenance run.
type Report struct {
	Mode     string               `json:"mode"`
	LastSeq  uint64               `json:"last_seq"`
	Applied  int                  `json:"applied,omitempty"`
	Tick     uint64               `json:"tick,omitempty"`
	Checksum string               `json:"checksum,omitempty"`
	Events   []storage.AuditEvent `json:"events,omitempty"`
}

// Run executes the maintenance command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if cfg.Integrity && cfg.Audit {
		return errors.New("-integrity cannot be combined with -audit")
	}
	if cfg.Audit && (cfg.UntilSeq > 0 || cfg.SnapshotPath != "") {
		return errors.New("-audit cannot be combined with replay flags")
	}
	if cfg.Audit && cfg.AuditLimit <= 0 {
		return errors.New("-audit-limit must be > 0")
	}
	store, err := openStore(cfg.DBPath)
	if err != nil {
		return err
	}
	return runWithDeps(ctx, cfg, store, out, errOut)
}

func runWithDeps(ctx context.Context, cfg Config, store logStore, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(errOut, "Error: close replication log: %v\n", err)
		}
	}()

	var (
		report Report
		err    error
	)
	switch {
	case cfg.Audit:
		report, err = listAudit(ctx, store, cfg)
	case cfg.Integrity:
		report, err = verify(ctx, store)
	default:
		report, err = replayLog(ctx, store, cfg)
	}
	if err != nil {
		return err
	}
	if cfg.JSONOutput {
		return outputJSON(out, report)
	}
	printReport(out, report)
	return nil
}

func verify(ctx context.Context, store logStore) (Report, error) {
	lastSeq, err := store.VerifyIntegrity(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("verify replication log: %w", err)
	}
	return Report{Mode: modeIntegrity, LastSeq: lastSeq}, nil
}

func replayLog(ctx context.Context, store logStore, cfg Config) (Report, error) {
	if _, err := store.VerifyIntegrity(ctx); err != nil {
		return Report{}, fmt.Errorf("verify replication log: %w", err)
	}
	policy := authz.DefaultPolicy()
	if cfg.PolicyPath != "" {
		loaded, err := authz.LoadPolicy(cfg.PolicyPath)
		if err != nil {
			return Report{}, err
		}
		policy = loaded
	}
	registry, err := actions.NewRegistry()
	if err != nil {
		return Report{}, fmt.Errorf("build command registry: %w", err)
	}
	state := server.NewWorld(cfg.Park, policy)
	result, err := replay.Replay(ctx, store, registry, state, replay.Options{UntilSeq: cfg.UntilSeq})
	if err != nil {
		return Report{}, fmt.Errorf("replay through seq %d: %w", result.LastSeq, err)
	}
	sum, err := state.Checksum()
	if err != nil {
		return Report{}, fmt.Errorf("checksum: %w", err)
	}
	if cfg.SnapshotPath != "" {
		data, err := state.MarshalJSON()
		if err != nil {
			return Report{}, fmt.Errorf("encode snapshot: %w", err)
		}
		if err := os.WriteFile(cfg.SnapshotPath, data, 0o644); err != nil {
			return Report{}, fmt.Errorf("write snapshot: %w", err)
		}
	}
	return Report{
		Mode:     modeReplay,
		LastSeq:  result.LastSeq,
		Applied:  result.Applied,
		Tick:     state.Tick(),
		Checksum: sum,
	}, nil
}

func listAudit(ctx context.Context, store logStore, cfg Config) (Report, error) {
	evts, err := store.ListAuditEvents(ctx, storage.AuditEventFilter{EventName: cfg.AuditEvent, Limit: cfg.AuditLimit})
	if err != nil {
		return Report{}, fmt.Errorf("list audit events: %w", err)
	}
	lastSeq, err := store.LastSeq(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load last seq: %w", err)
	}
	return Report{Mode: modeAudit, LastSeq: lastSeq, Events: evts}, nil
}

func outputJSON(out io.Writer, report Report) error {
	encoded, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	_, err = fmt.Fprintln(out, string(encoded))
	return err
}

func printReport(out io.Writer, report Report) {
	switch report.Mode {
	case modeIntegrity:
		fmt.Fprintf(out, "Verified replication log through seq %d\n", report.LastSeq)
	case modeAudit:
		fmt.Fprintf(out, "%d audit events (log at seq %d)\n", len(report.Events), report.LastSeq)
		for _, evt := range report.Events {
			fmt.Fprintf(out, "%s %-5s %s actor=%s\n", evt.Timestamp.UTC().Format(time.RFC3339), evt.Severity, evt.EventName, evt.ActorID)
		}
	default:
		fmt.Fprintf(out, "Replayed %d entries through seq %d (tick %d)\n", report.Applied, report.LastSeq, report.Tick)
		fmt.Fprintf(out, "Checksum: %s\n", report.Checksum)
	}
}

func openStore(path string) (*sqlite.Store, error) {
	cleanPath := filepath.Clean(path)
	if cleanPath == "." || cleanPath == "" {
		return nil, fmt.Errorf("db path is required")
	}
	if _, err := os.Stat(cleanPath); err != nil {
		return nil, fmt.Errorf("open replication log: %w", err)
	}
	keyring, err := integrity.KeyringFromEnv()
	if errors.Is(err, integrity.ErrKeyNotConfigured) {
		log.Printf("signature checks disabled: %v", err)
		keyring = nil
	} else if err != nil {
		return nil, err
	}
	store, err := sqlite.Open(cleanPath, keyring)
	if err != nil {
		return nil, fmt.Errorf("open replication log: %w", err)
	}
	return store, nil
}
