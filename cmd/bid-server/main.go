package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bidding-app/internal/api"
	"bidding-app/internal/api/handlers"
	"bidding-app/internal/config"
	"bidding-app/internal/domain"
	"bidding-app/internal/infrastructure/memory"
	"bidding-app/internal/infrastructure/mysql"
	"bidding-app/internal/infrastructure/redis"
	"bidding-app/internal/infrastructure/websocket"
	"bidding-app/internal/services"
	"bidding-app/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	serviceName = "bid-server"
	version     = "1.0.0"
)

var (
	configPath string
	port       int
)

var rootCmd = &cobra.Command{
	Use:   "bid-server",
	Short: "Product offer API and bid notification hub",
	Long: `bid-server serves the product offer REST API and the notification hub
the bid client talks to. Storage is in memory unless Redis or MySQL is
configured.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a config file")
	rootCmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// stores groups the backends picked from configuration.
type stores struct {
	catalog    domain.CatalogRepository
	bids       domain.BidRepository
	publisher  domain.EventPublisher
	subscriber domain.EventSubscriber
	closers    []func() error
}

func (s *stores) Close(log logger.Logger) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Error("Failed to close store", "error", err)
		}
	}
}

func openStores(ctx context.Context, cfg *config.Config, log logger.Logger) (*stores, error) {
	s := &stores{}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if cfg.Redis.Address != "" {
		rdb := redisClient.NewClient(&redisClient.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		s.closers = append(s.closers, rdb.Close)

		// Test Redis connection
		if err := rdb.Ping(ctx).Err(); err != nil {
			s.Close(log)
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		s.catalog = redis.NewCatalogStore(rdb)
		s.publisher = redis.NewEventPublisher(rdb, cfg.Redis.Channel)
		s.subscriber = redis.NewRedisEventSubscriber(rdb, cfg.Redis.Channel, log)
		log.Info("Using redis catalog and pub/sub", "address", cfg.Redis.Address)
	} else {
		bus := memory.NewEventBus(log)
		s.catalog = memory.NewCatalogRepository()
		s.publisher = bus
		s.subscriber = bus
		log.Info("Using in-memory catalog and event bus")
	}

	if cfg.MySQL.DSN != "" {
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			s.Close(log)
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		s.closers = append(s.closers, db.Close)

		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)

		// Test MySQL connection
		if err := db.PingContext(ctx); err != nil {
			s.Close(log)
			return nil, fmt.Errorf("ping mysql: %w", err)
		}
		repo := mysql.NewMySQLBidRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			s.Close(log)
			return nil, err
		}
		s.bids = repo
		log.Info("Using mysql bid history")
	} else {
		s.bids = memory.NewBidRepository()
		log.Info("Using in-memory bid history")
	}

	seed := make([]domain.Product, 0, len(cfg.Catalog.Seed))
	for _, p := range cfg.Catalog.Seed {
		seed = append(seed, domain.Product{ID: p.ID, Title: p.Title, CurrentBid: p.CurrentBid})
	}
	if err := s.catalog.Seed(ctx, seed); err != nil {
		s.Close(log)
		return nil, fmt.Errorf("seed catalog: %w", err)
	}

	return s, nil
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFromFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	return cfg, nil
}

func run(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var outputs []string
	if cfg.Log.File != "" {
		outputs = []string{cfg.Log.File}
	}
	log, err := logger.NewWithConfig(logger.Options{Level: cfg.Log.Level, OutputPaths: outputs})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if zl, ok := log.(*logger.ZapLogger); ok {
		defer zl.Sync()
	}
	log = log.With("service", serviceName)
	log.Info("Loaded configuration", "config", cfg.GetConfigString())

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer st.Close(log)

	validator := services.NewIncrementValidator(cfg.Bidding.MinIncrement)
	bidService := services.NewBidService(st.catalog, st.bids, st.publisher, validator, log)

	connManager := websocket.NewConnectionManager(log)
	hubHandler := websocket.NewHubHandler(connManager, cfg.Hub.KeepAlive, log)
	broadcaster := websocket.NewHubBroadcaster(connManager)
	eventListener := services.NewEventListener(broadcaster, cfg.Hub.Event, log)

	productOffers := handlers.NewProductOfferHandler(bidService, log)
	router := api.NewRouter(api.RouterConfig{
		HubPath:        cfg.Hub.Path,
		ServiceName:    serviceName,
		Version:        version,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, productOffers, hubHandler, connManager, st.subscriber, log)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := eventListener.Start(gctx, st.subscriber)
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("event listener: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("Starting bid server", "address", server.Addr, "tls", cfg.Server.CertFile != "")
		var err error
		if cfg.Server.CertFile != "" && cfg.Server.KeyFile != "" {
			err = server.ListenAndServeTLS(cfg.Server.CertFile, cfg.Server.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down bid server...")

		// Graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Hijacked hub sockets are not tracked by Shutdown.
		if err := connManager.CloseAll(); err != nil {
			log.Error("Failed to close hub connections", "error", err)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("Bid server stopped")
	return nil
}
