// Package server wires storage, services, background tasks and the gRPC
// endpoint of the library server and runs them until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrijs2005/librarian/internal/clock"
	"github.com/dmitrijs2005/librarian/internal/logging"
	"github.com/dmitrijs2005/librarian/internal/server/auth"
	"github.com/dmitrijs2005/librarian/internal/server/config"
	"github.com/dmitrijs2005/librarian/internal/server/covers"
	"github.com/dmitrijs2005/librarian/internal/server/ratelimit"
	"github.com/dmitrijs2005/librarian/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/librarian/internal/server/services"

	gs "github.com/dmitrijs2005/librarian/internal/server/grpc"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	manager repomanager.RepositoryManager
	clock   clock.Clock
	redis   *redis.Client

	circulation *services.CirculationService
	reclaimer   *services.OverdueReclaimer
	issuer      *services.CredentialIssuer
	rotator     *services.CredentialRotator
	covers      *covers.Service
	limiter     ratelimit.Limiter
}

// openStorage returns the database handle (nil in memory mode) and the
// repository manager selected by the DSN.
func openStorage(c *config.Config) (*sql.DB, repomanager.RepositoryManager, error) {
	if c.DatabaseDSN == config.MemoryDSN {
		return nil, repomanager.NewMemoryRepositoryManager(), nil
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db open error: %w", err)
	}

	m, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("repository manager init error: %w", err)
	}
	return db, m, nil
}

func NewApp(c *config.Config) (*App, error) {

	logger := logging.NewJSON(os.Stdout, logging.ParseLevel(c.LogLevel))

	db, m, err := openStorage(c)
	if err != nil {
		return nil, err
	}

	app, err := newApp(c, logger, db, m, clock.NewSystem())
	if err != nil {
		if db != nil {
			_ = db.Close()
		}
		return nil, err
	}
	return app, nil
}

func newApp(c *config.Config, logger logging.Logger, db *sql.DB, m repomanager.RepositoryManager, clk clock.Clock) (*App, error) {
	tokens := auth.NewTokenIssuer([]byte(c.SecretKey), c.TokenIssuer, c.TokenAudience)

	circulation := services.NewCirculationService(db, m, clk, c.LoanPeriod, logger)
	rotator := services.NewCredentialRotator(db, m, clk, tokens,
		c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration, c.CredentialSweepInterval, logger)
	issuer := services.NewCredentialIssuer(db, m, clk, tokens, auth.Argon2{}, rotator,
		c.AccessTokenValidityDuration, c.RefreshTokenValidityDuration, logger)

	cv, err := covers.NewService(context.Background(), c, circulation, logger)
	if err != nil {
		return nil, fmt.Errorf("cover storage init error: %w", err)
	}
	if cv == nil {
		logger.Info(context.Background(), "cover storage is not configured")
	}

	rc := ratelimit.NewClient(c.RedisAddr)

	return &App{
		config:      c,
		logger:      logger,
		db:          db,
		manager:     m,
		clock:       clk,
		redis:       rc,
		circulation: circulation,
		reclaimer:   services.NewOverdueReclaimer(circulation, c.ReclaimInterval, logger),
		issuer:      issuer,
		rotator:     rotator,
		covers:      cv,
		limiter:     ratelimit.NewRedisLimiter(rc, c.LoginRateLimit, c.LoginRateWindow, "login", logger),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// prepare migrates the schema and bootstraps the admin holder.
func (app *App) prepare(ctx context.Context) error {
	if app.db != nil {
		if err := app.manager.RunMigrations(ctx, app.db); err != nil {
			return fmt.Errorf("migrations error: %w", err)
		}
	}

	if app.config.AdminLogin != "" && app.config.AdminSecret != "" {
		if err := app.issuer.EnsureAdmin(ctx, app.config.AdminLogin, app.config.AdminSecret); err != nil {
			return fmt.Errorf("admin bootstrap error: %w", err)
		}
	}
	return nil
}

func (app *App) grpcServer() *gs.GRPCServer {
	// a nil *covers.Service must reach Deps as a nil interface
	var cv gs.Covers
	if app.covers != nil {
		cv = app.covers
	}

	return gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, gs.Deps{
		Clock:       app.clock,
		Circulation: app.circulation,
		Credentials: app.issuer,
		Rotation:    app.rotator,
		Reclaimer:   app.reclaimer,
		Covers:      cv,
		Limiter:     app.limiter,
	})
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.grpcServer().Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives. The
// background tasks are stopped after the gRPC server has drained.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	if err := app.prepare(ctx); err != nil {
		app.close(ctx)
		return err
	}

	app.reclaimer.Start(ctx)
	app.rotator.Start(ctx)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	app.reclaimer.Stop()
	app.rotator.Stop()
	app.close(ctx)

	app.logger.Info(context.Background(), "App stopped")
	return nil
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close error", "error", err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Warn(ctx, "db close error", "error", err)
		}
	}
}
