package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aniladanir/bulk-messenger-service/internal/cache"
	redisCache "github.com/aniladanir/bulk-messenger-service/internal/cache/redis"
	"github.com/aniladanir/bulk-messenger-service/internal/dispatcher"
	amqpDispatcher "github.com/aniladanir/bulk-messenger-service/internal/dispatcher/amqp"
	"github.com/aniladanir/bulk-messenger-service/internal/dispatcher/webhook"
	amqpHandler "github.com/aniladanir/bulk-messenger-service/internal/handler/amqp"
	httpHandler "github.com/aniladanir/bulk-messenger-service/internal/handler/http"
	"github.com/aniladanir/bulk-messenger-service/internal/persistant"
	"github.com/aniladanir/bulk-messenger-service/internal/persistant/postgresql"
	"github.com/aniladanir/bulk-messenger-service/internal/persistant/sqlite"
	accountRepo "github.com/aniladanir/bulk-messenger-service/internal/repository/account"
	campaignRepo "github.com/aniladanir/bulk-messenger-service/internal/repository/campaign"
	reportRepo "github.com/aniladanir/bulk-messenger-service/internal/repository/report"
	"github.com/aniladanir/bulk-messenger-service/internal/service"
	"gorm.io/gorm"
)

const cachePrefix = "bulk_messenger:"

var (
	configFile = flag.String("config", "config.json", "config file path")
)

func main() {
	// create root context
	appCtx, appCtxCancel := context.WithCancel(context.Background())
	defer appCtxCancel()

	// listen for terminate signal
	notifyCtx, stop := signal.NotifyContext(appCtx, syscall.SIGTERM, os.Interrupt)
	defer stop()

	// parse flags
	flag.Parse()

	// parse config
	config, err := ReadConfigJson(*configFile)
	if err != nil {
		log.Fatalf("failed to read config file: %v", err)
	}

	// setup logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// initialize external dependencies
	db, rCache, err := initExternalDependencies(notifyCtx, config)
	if err != nil {
		log.Fatalf("failed to initialize external dependencies: %v", err)
	}

	// init repositories
	accounts := accountRepo.NewAccountRepository(db)
	campaigns := campaignRepo.NewCampaignRepository(db)
	reports := reportRepo.NewReportRepository(db)

	// init services
	ledger, err := service.NewLedger(accounts, config.Costs, &config.StorageMaxRetry,
		logger.With(slog.String("component", "ledger")))
	if err != nil {
		log.Fatalf("failed to initiate ledger: %v", err)
	}
	campaignStore, err := service.NewCampaignStore(campaigns, ledger, config.Costs, &config.StorageMaxRetry,
		logger.With(slog.String("component", "campaignStore")))
	if err != nil {
		log.Fatalf("failed to initiate campaign store: %v", err)
	}
	importer := service.NewImporter(campaignStore, ledger, config.Costs,
		logger.With(slog.String("component", "importer")))

	msgDispatcher, closeDispatcher, err := initDispatcher(config, logger.With(slog.String("component", "dispatcher")))
	if err != nil {
		log.Fatalf("failed to initiate dispatcher: %v", err)
	}

	var batchCache cache.Cache
	if rCache != nil {
		batchCache = rCache
	}
	orchestrator, err := service.NewOrchestrator(ledger, reports, msgDispatcher, batchCache,
		service.OrchestratorConfig{
			Costs:           config.Costs,
			ReportTimeout:   config.ReportTimeout,
			RefundOnTimeout: config.RefundOnTimeout,
			BatchRetention:  config.BatchRetention,
			MaxRetry:        &config.StorageMaxRetry,
		},
		logger.With(slog.String("component", "orchestrator")))
	if err != nil {
		log.Fatalf("failed to initiate orchestrator: %v", err)
	}

	sweepInterval := config.SweepInterval
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval(config.ReportTimeout, config.BatchRetention)
	}
	sweeper := service.NewSweeper(orchestrator, sweepInterval, logger.With(slog.String("component", "sweeper")))

	// init http handler
	httpHandler := httpHandler.NewHttpHandler(
		fmt.Sprintf(":%d", config.HttpPort),
		httpHandler.Services{
			Ledger:       ledger,
			Campaigns:    campaignStore,
			Importer:     importer,
			Orchestrator: orchestrator,
			Costs:        config.Costs,
		},
		logger.With(slog.String("component", "httpHandler")),
	)

	// init report consumer
	var reportConsumer *amqpHandler.ReportConsumer
	if config.AmqpUrl != "" {
		reportConsumer, err = amqpHandler.NewReportConsumer(config.AmqpUrl, config.AmqpReportQueue, orchestrator,
			logger.With(slog.String("component", "reportConsumer")))
		if err != nil {
			log.Fatalf("failed to initiate report consumer: %v", err)
		}
	}

	// start the sweeper right away
	sweeper.Start()

	wg := sync.WaitGroup{}
	// run http handler
	wg.Go(func() {
		if err := httpHandler.Run(); err != nil {
			logger.Error("http server encountered with an error and closed", "error", err.Error())
		}
		// cancel app context if http handler fails
		appCtxCancel()
	})

	// run report consumer
	if reportConsumer != nil {
		wg.Go(func() {
			if err := reportConsumer.Run(notifyCtx); err != nil {
				logger.Error("report consumer stopped", "error", err.Error())
				appCtxCancel()
			}
		})
	}

	// graceful shutdown
	wg.Go(func() {
		<-notifyCtx.Done()
		logger.Info("application shutting down...")

		shutDownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()

		sweeper.Stop()
		httpHandler.Shutdown(shutDownCtx)
		if reportConsumer != nil {
			reportConsumer.Close()
		}
		closeDispatcher()
		if rCache != nil {
			rCache.Close()
		}
		postgresql.Close(db)
	})

	wg.Wait()
	os.Exit(0)
}

func initExternalDependencies(ctx context.Context, config *Config) (db *gorm.DB, rCache *redisCache.RedisCache, err error) {
	// initialize database
	switch config.DbDriver {
	case driverSqlite:
		db, err = sqlite.Initialize(config.DbConnString, persistant.Models())
	default:
		db, err = postgresql.Initialize(config.DbConnString, persistant.Models())
	}
	if err != nil {
		return
	}

	// cache is optional
	if config.RedisAddr == "" {
		return
	}
	rCache, err = redisCache.NewRedisCache(ctx, config.RedisAddr, cachePrefix)

	return
}

func initDispatcher(config *Config, logger *slog.Logger) (d dispatcher.Dispatcher, closeFn func(), err error) {
	switch config.Dispatcher {
	case dispatcherAMQP:
		publisher, err := amqpDispatcher.New(config.AmqpUrl, config.AmqpDispatchQueue, logger)
		if err != nil {
			return nil, nil, err
		}
		return publisher, func() { publisher.Close() }, nil
	default:
		hook, err := webhook.New(config.WebHookUrl, &config.DispatchMaxRetry, logger)
		if err != nil {
			return nil, nil, err
		}
		return hook, func() {}, nil
	}
}
