package maintenance

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	server "github.com/louisbranch/parkline/internal/services/game/app"
	"github.com/louisbranch/parkline/internal/services/game/domain/actions"
	"github.com/louisbranch/parkline/internal/services/game/domain/authz"
	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/engine"
	"github.com/louisbranch/parkline/internal/services/game/domain/journal"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
	"github.com/louisbranch/parkline/internal/services/game/storage"
	"github.com/louisbranch/parkline/internal/services/game/storage/sqlite"
)

var testPark = server.ParkConfig{MapSize: 32, Seed: 3, StartingCash: 1000, MaxElements: 1024, HostName: "Host"}

func unsigned(t *testing.T) {
	t.Helper()
	t.Setenv("PARKLINE_GAME_LOG_HMAC_KEYS", "")
	t.Setenv("PARKLINE_GAME_LOG_HMAC_KEY", "")
}

// seedLog writes a join and a pause, one per tick, and returns the database
// path and the mark of the last tick.
func seedLog(t *testing.T) (string, journal.TickMark) {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "game.db")
	store, err := sqlite.Open(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	registry, err := actions.NewRegistry()
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	d, err := engine.NewDispatcher(ctx, engine.Config{
		Registry: registry,
		Gate:     authz.NewGate(authz.DefaultPolicy(), false),
		State:    server.NewWorld(testPark, authz.DefaultPolicy()),
		Log:      store,
	})
	if err != nil {
		t.Fatalf("dispatcher: %v", err)
	}
	host := command.Header{Issuer: world.HostPlayerID}
	if err := d.Execute(ctx, command.Envelope{Header: host, Command: &actions.PlayerJoin{Player: 5, Name: "Ada", Group: authz.GroupGuest}}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := d.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if err := d.Execute(ctx, command.Envelope{Header: host, Command: &actions.PauseToggle{}}); err != nil {
		t.Fatalf("pause: %v", err)
	}
	mark, err := d.Tick(ctx)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if mark.LastSeq != 2 {
		t.Fatalf("last seq = %d, want 2", mark.LastSeq)
	}
	if err := store.AppendAuditEvent(ctx, storage.AuditEvent{EventName: "authz.forbidden", Severity: "warn", ActorID: "5"}); err != nil {
		t.Fatalf("append audit event: %v", err)
	}
	return path, mark
}

func runJSON(t *testing.T, cfg Config) Report {
	t.Helper()
	cfg.JSONOutput = true
	var out bytes.Buffer
	if err := Run(context.Background(), cfg, &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	var report Report
	if err := json.Unmarshal(out.Bytes(), &report); err != nil {
		t.Fatalf("decode report %q: %v", out.String(), err)
	}
	return report
}

func TestParseConfigDefaults(t *testing.T) {
	t.Setenv("PARKLINE_GAME_DB_PATH", "data/game.db")
	fs := flag.NewFlagSet("maintenance", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "data/game.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.Timeout != 10*time.Minute {
		t.Fatalf("expected 10m timeout, got %v", cfg.Timeout)
	}
	if cfg.AuditLimit != 50 {
		t.Fatalf("expected audit limit 50, got %d", cfg.AuditLimit)
	}
	if cfg.Park.MapSize != 150 {
		t.Fatalf("expected map size 150, got %d", cfg.Park.MapSize)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	fs := flag.NewFlagSet("maintenance", flag.ContinueOnError)
	args := []string{"-db-path", "flag.db", "-until-seq", "3", "-map-size", "40", "-seed", "9", "-json"}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "flag.db" || cfg.UntilSeq != 3 || !cfg.JSONOutput {
		t.Fatalf("expected flag overrides, got %+v", cfg)
	}
	if cfg.Park.MapSize != 40 || cfg.Park.Seed != 9 {
		t.Fatalf("expected park overrides, got %+v", cfg.Park)
	}
}

func TestRunReplayReproducesTickChecksum(t *testing.T) {
	unsigned(t)
	path, mark := seedLog(t)
	report := runJSON(t, Config{DBPath: path, Park: testPark})
	if report.Mode != modeReplay || report.Applied != 2 || report.LastSeq != 2 {
		t.Fatalf("report = %+v", report)
	}
	if report.Tick != mark.Tick {
		t.Fatalf("tick = %d, want %d", report.Tick, mark.Tick)
	}
	if report.Checksum != mark.Checksum {
		t.Fatalf("checksum = %s, want %s", report.Checksum, mark.Checksum)
	}
}

func TestRunReplayStopsAtUntilSeq(t *testing.T) {
	unsigned(t)
	path, _ := seedLog(t)
	report := runJSON(t, Config{DBPath: path, Park: testPark, UntilSeq: 1})
	if report.Applied != 1 || report.LastSeq != 1 {
		t.Fatalf("report = %+v", report)
	}
}

func TestRunReplayWritesSnapshot(t *testing.T) {
	unsigned(t)
	path, mark := seedLog(t)
	snapshot := filepath.Join(t.TempDir(), "park.json")
	var out bytes.Buffer
	if err := Run(context.Background(), Config{DBPath: path, Park: testPark, SnapshotPath: snapshot}, &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Replayed 2 entries through seq 2") {
		t.Fatalf("unexpected output %q", out.String())
	}
	data, err := os.ReadFile(snapshot)
	if err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	state, err := world.Decode(data)
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	sum, err := state.Checksum()
	if err != nil {
		t.Fatalf("checksum: %v", err)
	}
	if sum != mark.Checksum || !state.Paused() {
		t.Fatalf("snapshot checksum = %s paused=%v, want %s paused", sum, state.Paused(), mark.Checksum)
	}
}

func TestRunIntegrity(t *testing.T) {
	unsigned(t)
	path, _ := seedLog(t)
	var out bytes.Buffer
	if err := Run(context.Background(), Config{DBPath: path, Integrity: true}, &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.TrimSpace(out.String()); got != "Verified replication log through seq 2" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestRunAuditListsEvents(t *testing.T) {
	unsigned(t)
	path, _ := seedLog(t)
	report := runJSON(t, Config{DBPath: path, Audit: true, AuditLimit: 10})
	if report.Mode != modeAudit || report.LastSeq != 2 {
		t.Fatalf("report = %+v", report)
	}
	if len(report.Events) != 1 || report.Events[0].EventName != "authz.forbidden" {
		t.Fatalf("events = %+v", report.Events)
	}
}

func TestRunRejectsConflictingModes(t *testing.T) {
	tests := []Config{
		{DBPath: "x.db", Integrity: true, Audit: true, AuditLimit: 1},
		{DBPath: "x.db", Audit: true, UntilSeq: 4, AuditLimit: 1},
		{DBPath: "x.db", Audit: true},
	}
	for _, cfg := range tests {
		if err := Run(context.Background(), cfg, nil, nil); err == nil {
			t.Fatalf("expected error for %+v", cfg)
		}
	}
}

func TestRunRequiresExistingLog(t *testing.T) {
	unsigned(t)
	missing := filepath.Join(t.TempDir(), "missing.db")
	if err := Run(context.Background(), Config{DBPath: missing}, nil, nil); err == nil {
		t.Fatal("expected error for missing log")
	}
}
