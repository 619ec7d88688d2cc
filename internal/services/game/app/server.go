package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel"
	"golang.org/x/net/netutil"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/louisbranch/parkline/internal/platform/id"
	"github.com/louisbranch/parkline/internal/platform/timeouts"
	"github.com/louisbranch/parkline/internal/services/game/api/grpc/interceptors"
	grpcmeta "github.com/louisbranch/parkline/internal/services/game/api/grpc/metadata"
	"github.com/louisbranch/parkline/internal/services/game/api/grpc/replication"
	"github.com/louisbranch/parkline/internal/services/game/api/ws/spectator"
	"github.com/louisbranch/parkline/internal/services/game/domain/actions"
	"github.com/louisbranch/parkline/internal/services/game/domain/authz"
	"github.com/louisbranch/parkline/internal/services/game/domain/checkpoint"
	"github.com/louisbranch/parkline/internal/services/game/domain/command"
	"github.com/louisbranch/parkline/internal/services/game/domain/engine"
	"github.com/louisbranch/parkline/internal/services/game/domain/replay"
	"github.com/louisbranch/parkline/internal/services/game/domain/world"
	"github.com/louisbranch/parkline/internal/services/game/observability/audit"
	"github.com/louisbranch/parkline/internal/services/game/observability/audit/metrics"
	"github.com/louisbranch/parkline/internal/services/game/storage/integrity"
	"github.com/louisbranch/parkline/internal/services/game/storage/sqlite"
)

// checkpointRetain is how many in-memory checkpoints the dispatcher keeps for
// invariant recovery.
const checkpointRetain = 4

// Server hosts the authority: one dispatcher, its replication log and the
// endpoints participants and spectators connect to.
type Server struct {
	cfg          Config
	listener     net.Listener
	grpcServer   *grpc.Server
	health       *health.Server
	store        *sqlite.Store
	registry     *command.Registry
	gate         *authz.Gate
	dispatcher   *engine.Dispatcher
	hub          *replication.Hub
	auditor      *audit.Auditor
	reloader     *authz.Reloader
	spectator    *http.Server
	spectatorLis net.Listener
}

// New opens the log, rebuilds the park from it and binds the listeners. The
// caller owns the returned server and must call Serve.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	policy, err := loadPolicy(cfg.PolicyPath)
	if err != nil {
		return nil, err
	}
	gate := authz.NewGate(policy, cfg.Unrestricted)
	registry, err := actions.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("build command registry: %w", err)
	}

	store, err := openStore(cfg.dbPath())
	if err != nil {
		return nil, err
	}
	s := &Server{cfg: cfg, store: store, registry: registry, gate: gate}
	if err := s.build(ctx, policy); err != nil {
		s.closeListeners()
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *Server) build(ctx context.Context, policy *authz.Policy) error {
	verified, err := s.store.VerifyIntegrity(ctx)
	if err != nil {
		return fmt.Errorf("verify replication log: %w", err)
	}

	recorder, err := metrics.NewRecorder(otel.Meter("github.com/louisbranch/parkline/internal/services/game/app"))
	if err != nil {
		return fmt.Errorf("build audit metrics: %w", err)
	}
	emitter := audit.NewEmitter(s.store, audit.WithRecorder(recorder))
	s.auditor = audit.NewAuditor(emitter, s.store.SessionID())

	state := NewWorld(s.cfg.Park, policy)
	result, err := replay.Replay(ctx, s.store, s.registry, state, replay.Options{})
	if err != nil {
		return fmt.Errorf("replay log: %w", err)
	}
	if result.Applied > 0 {
		// The tick of the last entry was closed before the previous run stopped.
		state.AdvanceTick()
	}
	log.Printf("rebuilt park from %d entries (verified %d), seq %d tick %d", result.Applied, verified, result.LastSeq, state.Tick())

	s.hub = replication.NewHub()
	s.dispatcher, err = engine.NewDispatcher(ctx, engine.Config{
		Registry:        s.registry,
		Gate:            s.gate,
		State:           state,
		Log:             s.store,
		Publisher:       s.hub,
		Checkpoints:     checkpoint.NewMemory(checkpointRetain),
		Auditor:         s.auditor,
		CheckpointEvery: s.cfg.CheckpointEvery,
		QueueCapacity:   s.cfg.QueueCapacity,
		IssuerLimit:     s.cfg.IssuerLimit,
	})
	if err != nil {
		return fmt.Errorf("build dispatcher: %w", err)
	}

	sessions, err := replication.NewServer(replication.ServerConfig{
		Dispatcher: s.dispatcher,
		Hub:        s.hub,
		Auditor:    s.auditor,
		JoinGroup:  func() world.GroupID { return s.gate.Policy().DefaultGroup },
		Buffer:     s.cfg.SubscriberBuffer,
	})
	if err != nil {
		return fmt.Errorf("build replication server: %w", err)
	}

	s.grpcServer = grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(grpcmeta.UnaryServerInterceptor(id.NewID)),
		grpc.ChainStreamInterceptor(
			grpcmeta.StreamServerInterceptor(id.NewID),
			interceptors.SessionAuditInterceptor(emitter, s.store.SessionID(), nil),
		),
	)
	replication.RegisterReplicationServer(s.grpcServer, sessions)
	s.health = health.NewServer()
	grpc_health_v1.RegisterHealthServer(s.grpcServer, s.health)
	s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	s.health.SetServingStatus(replication.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	listener, err := net.Listen("tcp", s.cfg.ListenAddr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddr(), err)
	}
	s.listener = netutil.LimitListener(listener, s.cfg.MaxConnections)

	if s.cfg.SpectatorAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/spectate", spectator.NewHandler(s.hub, s.registry, spectator.WithBuffer(s.cfg.SubscriberBuffer)))
		s.spectator = &http.Server{Handler: mux, ReadHeaderTimeout: timeouts.ReadHeader}
		s.spectatorLis, err = net.Listen("tcp", s.cfg.SpectatorAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", s.cfg.SpectatorAddr, err)
		}
	}

	if s.cfg.PolicyPath != "" {
		s.reloader, err = authz.NewReloader(s.gate, s.cfg.PolicyPath)
		if err != nil {
			return fmt.Errorf("watch policy: %w", err)
		}
	}
	return nil
}

// Addr returns the replication listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// SpectatorAddr returns the spectator listener address, or "" when disabled.
func (s *Server) SpectatorAddr() string {
	if s == nil || s.spectatorLis == nil {
		return ""
	}
	return s.spectatorLis.Addr().String()
}

// Run builds and serves the authority until ctx ends.
func Run(ctx context.Context, cfg Config) error {
	s, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Serve runs the tick loop and every listener until ctx ends or the
// dispatcher stops on an unrecoverable error, which is returned.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Printf("game server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	spectatorErr := make(chan error, 1)
	if s.spectator != nil {
		log.Printf("spectator feed listening at %v", s.spectatorLis.Addr())
		go func() {
			spectatorErr <- s.spectator.Serve(s.spectatorLis)
		}()
	}

	var wg sync.WaitGroup
	if s.reloader != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.watchPolicy(runCtx)
		}()
	}

	tickErr := make(chan error, 1)
	go func() {
		tickErr <- s.dispatcher.Run(runCtx, s.cfg.TickInterval)
	}()

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, grpc.ErrServerStopped) || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}

	var result error
	select {
	case <-ctx.Done():
	case err := <-tickErr:
		tickErr <- err
		if err != nil {
			log.Printf("dispatcher stopped: %v", err)
			s.hub.Fail(err)
			s.health.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
			result = fmt.Errorf("run dispatcher: %w", err)
		}
	case err := <-serveErr:
		serveErr <- err
		if err := handleErr(err); err != nil {
			result = fmt.Errorf("serve gRPC: %w", err)
		}
	case err := <-spectatorErr:
		spectatorErr <- err
		if err := handleErr(err); err != nil {
			result = fmt.Errorf("serve spectators: %w", err)
		}
	}

	cancel()
	if err := <-tickErr; err != nil && result == nil {
		result = fmt.Errorf("run dispatcher: %w", err)
	}
	wg.Wait()

	s.hub.Close()
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
	if err := handleErr(<-serveErr); err != nil && result == nil {
		result = fmt.Errorf("serve gRPC: %w", err)
	}
	if s.spectator != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancelShutdown()
		if err := s.spectator.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown spectator feed: %v", err)
		}
	}
	return result
}

func (s *Server) watchPolicy(ctx context.Context) {
	done := make(chan error, 1)
	go func() { done <- s.reloader.Run(ctx) }()
	for {
		select {
		case err := <-done:
			if err != nil {
				log.Printf("policy watcher: %v", err)
			}
			return
		case err := <-s.reloader.Reloaded():
			if err != nil {
				s.auditor.PolicyReloadFailed(ctx, s.cfg.PolicyPath, err)
				continue
			}
			s.auditor.PolicyReloaded(ctx, s.cfg.PolicyPath, len(s.gate.Policy().Groups))
		}
	}
}

func (s *Server) closeListeners() {
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.spectatorLis != nil {
		_ = s.spectatorLis.Close()
	}
}

func (s *Server) close() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close replication log: %v", err)
	}
	s.store = nil
}

func loadPolicy(path string) (*authz.Policy, error) {
	if path == "" {
		return authz.DefaultPolicy(), nil
	}
	policy, err := authz.LoadPolicy(path)
	if err != nil {
		return nil, fmt.Errorf("load policy: %w", err)
	}
	return policy, nil
}

func openStore(path string) (*sqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	keyring, err := integrity.KeyringFromEnv()
	if errors.Is(err, integrity.ErrKeyNotConfigured) {
		log.Printf("replication log signing disabled: %v", err)
		keyring = nil
	} else if err != nil {
		return nil, fmt.Errorf("load log signing keys: %w", err)
	} else {
		log.Printf("replication log signed with key %s (verifies %s)", keyring.ActiveKeyID(), strings.Join(keyring.KeyIDs(), ","))
	}
	store, err := sqlite.Open(path, keyring)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return store, nil
}
