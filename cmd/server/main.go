package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tablekit/restaurant-api/internal/cache"
	"github.com/tablekit/restaurant-api/internal/config"
	"github.com/tablekit/restaurant-api/internal/database"
	"github.com/tablekit/restaurant-api/internal/events"
	"github.com/tablekit/restaurant-api/internal/router"
	"github.com/tablekit/restaurant-api/internal/service"
	"github.com/tablekit/restaurant-api/internal/ws"
	"go.uber.org/zap"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "restaurant-api",
	Short: "Restaurant order management API",
	Long:  `restaurant-api serves order taking, kitchen display and payment endpoints for multi-tenant restaurants.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.New()
		if err := v.BindPFlag("port", cmd.Flags().Lookup("port")); err != nil {
			return err
		}
		cfg, err := config.Load(v, cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return run(cfg)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	rootCmd.Flags().String("port", "8081", "HTTP listen port")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	if err := zcfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log_level %q: %w", level, err)
	}
	return zcfg.Build()
}

func run(cfg *config.Config) error {
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("unable to create connection pool: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("unable to ping database: %w", err)
	}
	logger.Info("connected to database")

	// Cache
	var c cache.Cache = cache.NewMemoryCache()
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedisCacheFromURL(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer rc.Close()
		c = rc
		logger.Info("using redis cache")
	} else {
		logger.Info("using in-process cache")
	}

	// Realtime hub and event fan-out
	hub := ws.NewHub(logger.Named("ws"))
	go hub.Run(ctx)

	publishers := events.Multi{events.NewHubPublisher(hub)}
	switch cfg.EventsBroker {
	case config.BrokerRabbitMQ:
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		defer p.Close()
		publishers = append(publishers, p)
	case config.BrokerKafka:
		p, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer p.Close()
		publishers = append(publishers, p)
	}
	logger.Info("event publishers ready", zap.String("broker", cfg.EventsBroker), zap.Int("count", len(publishers)))

	r := router.New(router.Deps{
		Config:    cfg,
		Queries:   database.New(pool),
		Pool:      pool,
		Hub:       hub,
		Cache:     c,
		Publisher: publishers,
		Gateway:   service.NewSimulatedGateway(cfg.PaymentSuccessRate),
		Logger:    logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  router.ReadTimeout,
		WriteTimeout: router.WriteTimeout,
		IdleTimeout:  router.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
