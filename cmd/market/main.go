package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Skotchmaster/parts_market/internal/catalog"
	"github.com/Skotchmaster/parts_market/internal/config"
	"github.com/Skotchmaster/parts_market/internal/httpserver"
	"github.com/Skotchmaster/parts_market/internal/notify"
	"github.com/Skotchmaster/parts_market/internal/repo"
	"github.com/Skotchmaster/parts_market/internal/repo/mongorepo"
	"github.com/Skotchmaster/parts_market/internal/service"
	pkgdb "github.com/Skotchmaster/parts_market/pkg/db"
	"github.com/Skotchmaster/parts_market/pkg/logging"
	loggingmw "github.com/Skotchmaster/parts_market/pkg/middleware/logging"
	"github.com/Skotchmaster/parts_market/pkg/validate"
)

type stores struct {
	carts   service.CartStore
	orders  service.OrderStore
	catalog service.CatalogReader
	ready   func(ctx context.Context) error
	close   func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreBackend {
	case config.StoreMongo:
		client, store, err := mongorepo.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return &stores{
			carts:   store,
			orders:  store,
			catalog: store,
			ready:   store.Ping,
			close:   func() { disconnect(client) },
		}, nil
	default:
		db, err := pkgdb.Open(ctx, cfg.DatabaseURL, pkgdb.DefaultPool())
		if err != nil {
			return nil, err
		}
		r := &repo.GormRepo{DB: db}
		if err := r.Migrate(); err != nil {
			pkgdb.Close(db)
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return &stores{
			carts:   r,
			orders:  r,
			catalog: r,
			ready:   func(ctx context.Context) error { return pkgdb.Ping(ctx, db) },
			close:   func() { pkgdb.Close(db) },
		}, nil
	}
}

func disconnect(client *mongo.Client) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = client.Disconnect(ctx)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)

	initCtx, cancel := context.WithTimeout(logging.IntoContext(context.Background(), logger), 15*time.Second)
	st, err := openStores(initCtx, cfg)
	if err != nil {
		cancel()
		log.Fatalf("store init (%s): %v", cfg.StoreBackend, err)
	}

	catalogReader := st.catalog
	if cfg.CatalogBackend == config.CatalogES {
		es, err := catalog.NewESClient(initCtx, catalog.ESConfig{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword})
		if err != nil {
			cancel()
			log.Fatalf("elasticsearch init: %v", err)
		}
		catalogReader = &catalog.ESReader{Client: es, Index: cfg.ESIndex}
	}
	cancel()

	hub := notify.NewHub()
	events := notify.Fanout{hub}
	var kafkaPub *notify.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub = notify.NewKafkaPublisher(cfg.KafkaBrokers)
		events = append(events, kafkaPub)
	}

	cartSvc := &service.CartService{
		Carts:        st.carts,
		Catalog:      catalogReader,
		Events:       events,
		Hub:          hub,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.CartMaxRetries,
	}
	orderSvc := &service.OrderService{
		Orders:                st.orders,
		Carts:                 st.carts,
		Catalog:               catalogReader,
		Events:                events,
		Hub:                   hub,
		WriteTimeout:          cfg.WriteTimeout,
		StockCheckConcurrency: cfg.StockCheckConcurrency,
	}
	reconciler := &service.Reconciler{
		Orders:       st.orders,
		Carts:        st.carts,
		Events:       events,
		Grace:        cfg.ReconcileGrace,
		WriteTimeout: cfg.WriteTimeout,
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = validate.New()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		CartHandler:  &httpserver.CartHTTP{Svc: cartSvc},
		OrderHandler: &httpserver.OrderHTTP{Svc: orderSvc},
		AdminHandler: &httpserver.AdminHTTP{Orders: orderSvc, Reconciler: reconciler},
		JWTSecret:    cfg.JWTSecret,
		Ready:        st.ready,
	})

	// cancelling runCtx also ends open badge streams so Shutdown can drain
	runCtx, stopRun := context.WithCancel(logging.IntoContext(context.Background(), logger))
	go reconciler.Run(runCtx, cfg.ReconcileInterval)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return runCtx },
	}

	go func() {
		logger.Info("listening", "addr", srv.Addr, "store", cfg.StoreBackend, "catalog", cfg.CatalogBackend)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	stopRun()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err)
	}

	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			logger.Error("kafka close", "error", err)
		}
	}
	st.close()

	logger.Info("stopped")
}
