package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/banshee-data/pathing/internal/api"
	"github.com/banshee-data/pathing/internal/config"
	"github.com/banshee-data/pathing/internal/monitoring"
	"github.com/banshee-data/pathing/internal/optimizer"
	"github.com/banshee-data/pathing/internal/store"
	"github.com/banshee-data/pathing/internal/timeutil"
)

// healthService is the gRPC health service name reported for the optimiser.
const healthService = "pathing.Optimizer"

var logf = monitoring.Prefixed("serve")

func handleServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file")
	listen := fs.String("listen", "", "HTTP listen address (overrides config)")
	grpcListen := fs.String("grpc-listen", "", "gRPC health listen address (overrides config)")
	dbPath := fs.String("db", "", "SQLite database path (overrides config)")
	statusEvery := fs.Duration("status-interval", 30*time.Second, "Interval between optimiser status log lines, 0 disables")
	fs.Parse(args)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Listen = listen
	}
	if *grpcListen != "" {
		cfg.GRPC = grpcListen
	}
	if *dbPath != "" {
		cfg.Database = dbPath
	}

	svc, err := newService(cfg, timeutil.RealClock{})
	if err != nil {
		return err
	}
	defer svc.Close()
	svc.statusEvery = *statusEvery

	ln, err := net.Listen("tcp", cfg.GetListen())
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	var grpcLn net.Listener
	if addr := cfg.GetGRPCListen(); addr != "" {
		if grpcLn, err = net.Listen("tcp", addr); err != nil {
			ln.Close()
			return fmt.Errorf("grpc listen: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return svc.Run(ctx, ln, grpcLn)
}

// service owns the long-lived pieces of the server process.
type service struct {
	db      *store.DB
	manager *optimizer.Manager
	handler http.Handler
	health  *health.Server
	clock   timeutil.Clock

	statusEvery time.Duration
}

// newService opens and migrates the run database and builds the HTTP
// handler.
func newService(cfg *config.PathingConfig, clock timeutil.Clock) (*service, error) {
	db, err := store.Open(cfg.GetDatabase())
	if err != nil {
		return nil, err
	}
	if err := db.MigrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	runs := store.NewRunStore(db)
	manager := optimizer.NewManager(runs, clock)

	mux := api.NewServer(manager, runs, cfg.Settings(), cfg.OptimizerConfig()).ServeMux()
	if err := runs.AttachAdminRoutes(mux); err != nil {
		db.Close()
		return nil, err
	}

	return &service{
		db:      db,
		manager: manager,
		handler: api.LoggingMiddleware(mux),
		health:  health.NewServer(),
		clock:   clock,
	}, nil
}

// Run serves HTTP on ln, and the gRPC health service on grpcLn when it is
// non-nil, until ctx is done. The current optimiser run is stopped on the
// way out.
func (s *service) Run(ctx context.Context, ln, grpcLn net.Listener) error {
	var wg sync.WaitGroup
	errc := make(chan error, 2)

	server := &http.Server{Handler: s.handler}
	wg.Add(1)
	go func() {
		defer wg.Done()
		logf("HTTP server listening on %s", ln.Addr())
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- fmt.Errorf("http server: %w", err)
		}
	}()

	var grpcServer *grpc.Server
	if grpcLn != nil {
		grpcServer = grpc.NewServer()
		healthpb.RegisterHealthServer(grpcServer, s.health)
		reflection.Register(grpcServer)
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		s.health.SetServingStatus(healthService, healthpb.HealthCheckResponse_SERVING)
		wg.Add(1)
		go func() {
			defer wg.Done()
			logf("gRPC health server listening on %s", grpcLn.Addr())
			if err := grpcServer.Serve(grpcLn); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				errc <- fmt.Errorf("grpc server: %w", err)
			}
		}()
	}

	statusCtx, stopStatus := context.WithCancel(ctx)
	if s.statusEvery > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.logStatus(statusCtx, s.statusEvery)
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errc:
	}
	stopStatus()
	logf("shutting down")

	s.health.Shutdown()
	s.manager.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logf("HTTP server shutdown error: %v", err)
		if err := server.Close(); err != nil {
			logf("HTTP server force close error: %v", err)
		}
	}
	if grpcServer != nil {
		grpcServer.GracefulStop()
	}
	if err := s.manager.Wait(shutdownCtx); err != nil {
		logf("optimizer did not stop in time: %v", err)
	}

	wg.Wait()
	logf("graceful shutdown complete")
	return runErr
}

// logStatus writes a line about the optimiser every interval while a run is
// in progress.
func (s *service) logStatus(ctx context.Context, every time.Duration) {
	ticker := s.clock.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C():
			st := s.manager.State()
			if st.Status != optimizer.StatusRunning {
				continue
			}
			elapsed := time.Duration(0)
			if st.StartedAt != nil {
				elapsed = s.clock.Since(*st.StartedAt)
			}
			if st.Progress == nil {
				logf("run %s starting (%s)", st.RunID, elapsed.Round(time.Second))
				continue
			}
			logf("run %s generation %d best=%.3f collisions=%d (%s)",
				st.RunID, st.Progress.Generation, st.Progress.BestFitness, st.Progress.Collisions,
				elapsed.Round(time.Second))
		}
	}
}

// Close releases the database.
func (s *service) Close() error {
	return s.db.Close()
}

func handleMigrate(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", "", "Configuration file")
	dbPath := fs.String("db", "", "SQLite database path (overrides config)")
	fs.Parse(args)

	action := "up"
	if fs.NArg() > 0 {
		action = fs.Arg(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	path := cfg.GetDatabase()
	if *dbPath != "" {
		path = *dbPath
	}
	return runMigrate(path, action, stdout)
}

func runMigrate(path, action string, stdout io.Writer) error {
	db, err := store.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()

	switch action {
	case "up":
		if err := db.MigrateUp(); err != nil {
			return err
		}
	case "down":
		if err := db.MigrateDown(); err != nil {
			return err
		}
	case "version":
	default:
		return fmt.Errorf("unknown migrate action %q (want up, down or version)", action)
	}

	v, dirty, err := db.MigrateVersion()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "%s: schema version %d (dirty=%t)\n", path, v, dirty)
	return err
}
