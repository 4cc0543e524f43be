package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tribu-ledger/internal/adapters/directory/tribuapi"
	mem "tribu-ledger/internal/adapters/storage/memory"
	pg "tribu-ledger/internal/adapters/storage/postgres"
	rds "tribu-ledger/internal/adapters/storage/redis"
	"tribu-ledger/internal/config"
	"tribu-ledger/internal/domain/directory"
	"tribu-ledger/internal/domain/ledger"
	"tribu-ledger/internal/middleware"
	"tribu-ledger/internal/platform/logger"
	"tribu-ledger/internal/ports/auth"
	"tribu-ledger/internal/ports/kvstore"
)

type Options struct {
	Config *config.Config
	Log    logger.Logger

	AuthVerifier auth.AuthVerifier // puede ser nil (modo dev)

	// Opcional: kvstore explícito (tests). Si viene nil se elige por
	// config: DB_DSN > REDIS_ADDR > memoria.
	KV kvstore.Store
}

func NewRouter(opts Options) (http.Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = &config.Config{DefaultExchangeRate: ledger.DefaultExchangeRate}
	}
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}

	kv, err := pickKV(opts, cfg, log)
	if err != nil {
		return nil, err
	}

	master, err := ledger.NewMasterSource(cfg.MasterDataPath, log)
	if err != nil {
		return nil, err
	}
	if _, err := master.Watch(); err != nil {
		log.Warn("masterdata watch deshabilitado", map[string]any{"err": err.Error()})
	}

	ctx := context.Background()

	store := ledger.NewStore(kv, log)
	store.Init(ctx)
	manager := ledger.NewManager(store)

	var remote directory.RemoteAPI
	if cfg.APIBaseURL != "" {
		client, err := tribuapi.NewClient(tribuapi.Config{
			BaseURL: cfg.APIBaseURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.APITimeout,
		})
		if err != nil {
			return nil, err
		}
		remote = client
	}

	dirSvc := directory.NewService(kv, remote, log)
	dirSvc.Init(ctx)

	ctrl := ledger.NewController(store, manager, master, dirSvc, log)
	ctrl.SetDefaultExchangeRate(cfg.DefaultExchangeRate)

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Rutas por módulo
	ledger.RegisterRoutes(r, ctrl)
	directory.RegisterRoutes(r, dirSvc)

	return r, nil
}

func pickKV(opts Options, cfg *config.Config, log logger.Logger) (kvstore.Store, error) {
	if opts.KV != nil {
		return opts.KV, nil
	}

	if cfg.DBDSN != "" {
		db, err := pg.Open(cfg.DBDSN)
		if err != nil {
			return nil, err
		}
		log.Info("snapshots en postgres", nil)
		return pg.NewKVStore(db), nil
	}

	if cfg.RedisAddr != "" {
		kv, err := rds.NewKVStore(cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		log.Info("snapshots en redis", map[string]any{"addr": cfg.RedisAddr})
		return kv, nil
	}

	log.Warn("snapshots en memoria, se pierden al reiniciar", nil)
	return mem.NewKVStore(), nil
}
