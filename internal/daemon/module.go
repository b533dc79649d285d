package daemon

import (
	"context"

	"github.com/matheus3301/xmark/internal/account"
	"github.com/matheus3301/xmark/internal/api"
	"github.com/matheus3301/xmark/internal/bus"
	"github.com/matheus3301/xmark/internal/config"
	"github.com/matheus3301/xmark/internal/correlate"
	"github.com/matheus3301/xmark/internal/lock"
	"github.com/matheus3301/xmark/internal/logging"
	"github.com/matheus3301/xmark/internal/muc"
	"github.com/matheus3301/xmark/internal/status"
	"github.com/matheus3301/xmark/internal/store"
	intsync "github.com/matheus3301/xmark/internal/sync"
	"github.com/matheus3301/xmark/internal/xmpp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Params holds the resolved account configuration passed to the fx module.
type Params struct {
	AccountName string
	SocketPath  string // optional override for testing; empty = use default
	Debug       bool
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideAccount,
			providePreferences,
			provideStore,
			provideAdapter,
			provideCorrelation,
			provideRooms,
			provideController,
			provideEventHandler,
			provideSession,
			provideBookmarkService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if p.Debug {
		level = zapcore.DebugLevel
	}
	return logging.New(account.LogPath(p.AccountName), p.AccountName, level)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := account.EnsureDir(p.AccountName); err != nil {
		return nil, err
	}
	logger.Info("acquiring account lock", zap.String("account", p.AccountName))
	l, err := lock.Acquire(account.Dir(p.AccountName))
	if err != nil {
		return nil, err
	}
	logger.Info("account lock acquired")
	return l, nil
}

func provideAccount(p Params, _ *lock.Lock) (*config.Account, error) {
	return config.LoadAccount(account.ConfigPath(p.AccountName))
}

func providePreferences(p Params, acct *config.Account, logger *zap.Logger) *config.Live {
	return config.NewLive(account.ConfigPath(p.AccountName), acct.Preferences(), logger.Named("config"))
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := account.AuditDBPath(p.AccountName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideAdapter(acct *config.Account, logger *zap.Logger) (*xmpp.Adapter, error) {
	return xmpp.NewAdapter(acct, logger.Named("xmpp"))
}

func provideCorrelation(adapter *xmpp.Adapter, logger *zap.Logger) *correlate.Engine {
	return correlate.NewEngine(adapter, logger.Named("correlate"))
}

func provideRooms(adapter *xmpp.Adapter, logger *zap.Logger) *muc.Registry {
	return muc.NewRegistry(adapter, muc.DefaultJoinTimeout, logger.Named("muc"))
}

func provideController(engine *correlate.Engine, rooms *muc.Registry, live *config.Live, db *store.DB, b *bus.Bus, logger *zap.Logger) *intsync.Controller {
	return intsync.New(intsync.Deps{
		Requests:   engine,
		Membership: rooms,
		UI:         api.NewFocusRelay(b),
		Prefs:      live,
		Audit:      db,
		Bus:        b,
	}, logger.Named("bookmarks"))
}

func provideEventHandler(engine *correlate.Engine, rooms *muc.Registry, ctrl *intsync.Controller, machine *status.Machine, logger *zap.Logger) *xmpp.EventHandler {
	return xmpp.NewEventHandler(engine, rooms, ctrl, machine, logger.Named("xmpp"))
}

func provideSession(adapter *xmpp.Adapter, handler *xmpp.EventHandler, machine *status.Machine, logger *zap.Logger) *xmpp.Session {
	return xmpp.NewSession(adapter, handler, machine, logger.Named("session"))
}

func provideBookmarkService(p Params, ctrl *intsync.Controller, machine *status.Machine, db *store.DB, rooms *muc.Registry, b *bus.Bus, logger *zap.Logger) *api.BookmarkService {
	return api.NewBookmarkService(p.AccountName, ctrl, machine, db, rooms, b, logger.Named("api"))
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, lk *lock.Lock, ctrl *intsync.Controller, session *xmpp.Session, engine *correlate.Engine, live *config.Live, db *store.DB, logger *zap.Logger) {
	var (
		cancel      context.CancelFunc
		sessionDone = make(chan struct{})
	)
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())

			// The controller outlives the session so the final disconnect
			// can still discard bookmarks.
			ctrl.Start(context.Background())

			if err := live.Watch(ctx); err != nil {
				logger.Warn("account file hot reload disabled", zap.Error(err))
			}

			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			go func() {
				defer close(sessionDone)
				session.Run(ctx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-sessionDone:
			case <-ctx.Done():
				logger.Warn("session did not stop in time")
			}
			ctrl.Stop()
			engine.Close()
			srv.Stop(ctx)
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
