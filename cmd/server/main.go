package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/valeevte/PriceLedger/internal/auth"
	"github.com/valeevte/PriceLedger/internal/awsutil"
	"github.com/valeevte/PriceLedger/internal/cache"
	"github.com/valeevte/PriceLedger/internal/config"
	"github.com/valeevte/PriceLedger/internal/database"
	"github.com/valeevte/PriceLedger/internal/expenses"
	"github.com/valeevte/PriceLedger/internal/logger"
	"github.com/valeevte/PriceLedger/internal/prices"
	"github.com/valeevte/PriceLedger/internal/products"
	"github.com/valeevte/PriceLedger/internal/receipts"
	"github.com/valeevte/PriceLedger/internal/scheduler"
	"github.com/valeevte/PriceLedger/internal/server"
	"github.com/valeevte/PriceLedger/internal/stores"
	"github.com/valeevte/PriceLedger/internal/wishlist"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	// суммы в JSON отдаём числами
	decimal.MarshalJSONWithoutQuotes = true

	// graceful shutdown coordination
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DB, zl)
	if err != nil {
		zl.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(ctx, pool); err != nil {
		zl.Fatal("failed to migrate database", zap.Error(err))
	}

	productRepo := products.NewRepository(pool)
	storeRepo := stores.NewRepository(pool)
	priceRepo := prices.NewRepository(pool)
	wishRepo := wishlist.NewRepository(pool)

	var cmpOpts []prices.ComparatorOption
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, "priceledger:")
		if err != nil {
			zl.Warn("redis unavailable, comparison cache disabled", zap.Error(err))
		} else {
			defer rc.Close()
			cmpOpts = append(cmpOpts, prices.WithCache(rc, cfg.CompareCacheTTL))
		}
	}

	var (
		awsCfg aws.Config
		hasAWS bool
	)
	if cfg.AlertTopicARN != "" || cfg.ReceiptBucket != "" || cfg.OCRQueueURL != "" || cfg.OCRResultURL != "" {
		if awsCfg, err = awsutil.Load(ctx, cfg.AWSEndpoint); err != nil {
			zl.Warn("aws config unavailable, aws adapters disabled", zap.Error(err))
		} else {
			hasAWS = true
		}
	}

	var notifier wishlist.Notifier = wishlist.NewLogNotifier(zl)
	var (
		blobs receipts.BlobStore
		queue receipts.TaskQueue
	)
	if hasAWS {
		if cfg.AlertTopicARN != "" {
			notifier = wishlist.NewSNSNotifier(awsCfg, cfg.AlertTopicARN)
		}
		if cfg.ReceiptBucket != "" {
			blobs = receipts.NewS3BlobStore(awsCfg, cfg.ReceiptBucket)
		}
		if cfg.OCRQueueURL != "" {
			queue = receipts.NewSQSTaskQueue(awsCfg, cfg.OCRQueueURL)
		}
	}

	resolver := prices.NewResolver(priceRepo, productRepo, prices.Policy{HonorValidUntil: cfg.HonorValidUntil})
	comparator := prices.NewComparator(resolver, storeRepo, cfg.FanoutLimit, zl, cmpOpts...)
	monitor := wishlist.NewMonitor(resolver, wishRepo, notifier, cfg.FanoutLimit, zl)
	receiptSvc := receipts.NewService(receipts.NewRepository(pool), blobs, queue, cfg.ReceiptMaxBytes, zl)

	wg := &sync.WaitGroup{}

	// start scheduler
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx, scheduler.Config{Name: "wishlist-sweep", Interval: cfg.SweepInterval}, zl, func(ctx context.Context) error {
			res, err := monitor.Sweep(ctx, time.Now())
			if err != nil {
				return err
			}
			zl.Info("wishlist sweep finished",
				zap.Int("checked", res.Checked),
				zap.Int("notified", res.Notified),
				zap.Int("failed", res.Failed))
			return nil
		})
	}()

	if hasAWS && cfg.OCRResultURL != "" {
		consumer := receipts.NewResultConsumer(awsCfg, cfg.OCRResultURL, receiptSvc, zl)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = consumer.Run(ctx)
		}()
	}

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	} else if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := server.NewRouter(server.Deps{
		Log:            zl,
		Verifier:       auth.NewJWTVerifier(cfg.JWTSecret),
		RequestTimeout: cfg.RequestTimeout,
		DB:             pool,
		Products:       productRepo,
		Stores:         storeRepo,
		Prices:         prices.NewService(priceRepo, resolver, comparator, productRepo, storeRepo, cfg.Location, zl),
		Wishlist:       wishlist.NewService(wishRepo, monitor, productRepo),
		Expenses:       expenses.NewService(expenses.NewRepository(pool), cfg.Location),
		Receipts:       receiptSvc,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// start server
	go func() {
		zl.Info("server started", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server ListenAndServe", zap.Error(err))
		}
	}()

	// wait for interrupt
	<-ctx.Done()
	zl.Info("shutdown signal received")

	// stop accepting new requests, allow 15s to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server Shutdown", zap.Error(err))
	}

	// scheduler и consumer реагируют на ctx
	wg.Wait()

	// close DB pool (blocks until connections returned)
	pool.Close()

	zl.Info("graceful shutdown complete")
}
