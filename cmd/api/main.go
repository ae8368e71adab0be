package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"progtrack.org/internal/audit"
	"progtrack.org/internal/auth"
	"progtrack.org/internal/directory"
	"progtrack.org/internal/httpapi"
	"progtrack.org/internal/migrate"
	"progtrack.org/internal/obs"
	"progtrack.org/internal/programme"
	"progtrack.org/internal/store/pg"
	"progtrack.org/internal/stream"
)

var version = "0.3.1"

func main() {
	var (
		addr        = flag.String("addr", envOr("PROGTRACK_ADDR", ":8080"), "listen address")
		dsn         = flag.String("dsn", os.Getenv("PROGTRACK_PG_DSN"), "PostgreSQL DSN")
		policy      = flag.String("status-policy", envOr("PROGTRACK_STATUS_POLICY", ""), "status change policy (any_actor|admin_or_assigned)")
		autoMigrate = flag.Bool("auto-migrate", os.Getenv("PROGTRACK_AUTO_MIGRATE") == "1", "apply pending migrations on startup")
		dev         = flag.Bool("dev", os.Getenv("PROGTRACK_DEV") == "1", "development logging")
	)
	flag.Parse()

	log, err := obs.NewLogger(*dev)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	obs.Init()

	accessSecret := os.Getenv("PROGTRACK_ACCESS_SECRET")
	refreshSecret := os.Getenv("PROGTRACK_REFRESH_SECRET")
	tokens, err := auth.NewTokenService(accessSecret, refreshSecret)
	if err != nil {
		log.Fatal("token service", zap.Error(err))
	}

	if *dsn == "" {
		log.Fatal("missing DSN: provide via -dsn or PROGTRACK_PG_DSN")
	}
	if *autoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := migrate.Up(ctx, *dsn); err != nil {
			cancel()
			log.Fatal("migrate", zap.Error(err))
		}
		cancel()
	}
	db, err := pg.Open(*dsn)
	if err != nil {
		log.Fatal("open db", zap.Error(err))
	}
	defer db.Close()

	actors := auth.NewPGActorStore(db)
	authSvc := auth.NewService(tokens, actors, log)
	resolver := auth.NewResolver(tokens, actors, log)

	dirSvc := directory.NewService(pg.NewDirectoryStore(db))
	updates := stream.New()

	progOpts := []programme.ServiceOption{
		programme.WithPublisher(updates),
		programme.WithLogger(log),
	}
	if *policy != "" {
		p, ok := programme.ParseStatusChangePolicy(*policy)
		if !ok {
			log.Fatal("unknown status change policy", zap.String("policy", *policy))
		}
		progOpts = append(progOpts, programme.WithStatusChangePolicy(p))
	}
	progSvc := programme.NewService(pg.NewProgrammeStore(db), pg.NewDirectoryStore(db), progOpts...)

	recorder := audit.NewRecorder(audit.NewPGStore(db), log)

	api := httpapi.New(httpapi.Config{
		Auth:       authSvc,
		Resolver:   resolver,
		Programmes: progSvc,
		Directory:  dirSvc,
		Audit:      recorder,
		Stream:     updates,
		Ready:      httpapi.ReadyProbe{DB: db},
		Log:        log,
		Version:    version,
	})

	srv := &http.Server{
		Addr:              *addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("starting progtrack-api", zap.String("version", version), zap.String("addr", srv.Addr))

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Info("stopped")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
