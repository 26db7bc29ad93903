package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/errgroup"

	"github.com/fjod/go_storefront/internal/auth"
	"github.com/fjod/go_storefront/internal/cart/cache"
	"github.com/fjod/go_storefront/internal/cart/poller"
	cartrepo "github.com/fjod/go_storefront/internal/cart/repository"
	cartservice "github.com/fjod/go_storefront/internal/cart/service"
	"github.com/fjod/go_storefront/internal/config"
	opsgrpc "github.com/fjod/go_storefront/internal/grpc"
	h "github.com/fjod/go_storefront/internal/http"
	"github.com/fjod/go_storefront/internal/orders/publisher"
	ordersrepo "github.com/fjod/go_storefront/internal/orders/repository"
	orderservice "github.com/fjod/go_storefront/internal/orders/service"
	"github.com/fjod/go_storefront/internal/product"
	productrepo "github.com/fjod/go_storefront/internal/product/repository"
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the ops gRPC endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	pricing, err := cfg.PricingPolicy()
	if err != nil {
		return err
	}

	// Cart storage
	mongoDB, err := cartrepo.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
			slog.Error("mongo disconnect failed", "error", err)
		}
	}()
	slog.Info("connected to mongo", "database", cfg.Mongo.Database)

	cartRepo := cartrepo.NewMongoRepository(mongoDB)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		return fmt.Errorf("create cart indexes: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis connection failed: %w", err)
	}
	slog.Info("redis ping succeeded", "addr", cfg.Redis.Addr)

	// Catalog
	catalogRepo, err := productrepo.NewRepository(cfg.Catalog.DBPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer catalogRepo.Close()
	if err := catalogRepo.RunMigrations(); err != nil {
		return fmt.Errorf("migrate catalog: %w", err)
	}
	lookup := product.NewLookup(catalogRepo)

	// Orders
	ordersRepo, err := ordersrepo.NewRepository(postgresCredentials(cfg))
	if err != nil {
		return err
	}
	defer ordersRepo.Close()
	if err := ordersRepo.RunMigrations(); err != nil {
		return fmt.Errorf("migrate orders: %w", err)
	}

	carts := cartservice.NewCartService(cartRepo, cache.NewRedisCache(redisClient), lookup)
	orders := orderservice.NewOrderService(ordersRepo, carts, lookup, pricing)
	gate := auth.NewGate(cfg.JWTSecret, cfg.TokenTTL)

	router := h.NewRouter(h.Services{
		Carts:    carts,
		Orders:   orders,
		Products: lookup,
	}, gate.Authenticate, h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		ExposeErrors:       !cfg.IsProduction(),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ops := opsgrpc.NewOpsServer(map[string]opsgrpc.Check{
		"mongo": func(ctx context.Context) error {
			return mongoDB.Client().Ping(ctx, readpref.Primary())
		},
		"redis": func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		},
		"postgres": ordersRepo.Ping,
		"catalog":  catalogRepo.Ping,
	})
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen on grpc port: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server starting", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("ops grpc server starting", "port", cfg.GRPCPort)
		return ops.Serve(lis)
	})

	g.Go(func() error {
		ops.Watch(gctx)
		return nil
	})

	if len(cfg.Kafka.Brokers) > 0 {
		outbox := publisher.NewOutboxPoller(ordersRepo, cfg.Kafka.OrderTopic, cfg.Kafka.Brokers...)
		defer outbox.Close()
		reconciler := poller.NewPoller(carts, cfg.Kafka.OrderTopic, cfg.Kafka.GroupID, cfg.Kafka.Brokers...)
		defer reconciler.Close()

		g.Go(func() error {
			outbox.Run(gctx)
			return nil
		})
		g.Go(func() error {
			reconciler.Run(gctx)
			return nil
		})
		slog.Info("order events enabled", "topic", cfg.Kafka.OrderTopic, "brokers", cfg.Kafka.Brokers)
	} else {
		slog.Warn("kafka brokers not configured, order events are not published")
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		ops.GracefulStop()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server exited")
	return nil
}
