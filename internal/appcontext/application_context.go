package appcontext

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EventStore/EventStore-Client-Go/v4/esdb"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/config"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/limiter"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/payment"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/payment/fintoc"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/payment/stripegw"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/producer"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/repository/db"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/repository/eventdb"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/repository/redis_decorator"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/infra/repository/redis_repo"
	"github.com/Fintoc-PepeStore2-0/Backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type ApplicationContext struct {
	Cf     *config.Config
	Logger zerolog.Logger

	DbDao       *db.DbDao
	RedisClient *redis.Client
	EsdbClient  *esdb.Client

	// ProductLedger reads postgres directly; ProductCatalog is the cached view for display.
	ProductLedger  db.IProductRepository
	ProductCatalog db.IProductRepository
	CartRepo       db.ICartRepository
	OrderRepo      db.IOrderRepository
	UserRepo       db.IUserRepository

	Gateway         payment.Gateway
	OrderProducer   *producer.OrderEventProducer
	OrderJournal    *eventdb.OrderJournal
	CheckoutLimiter *limiter.TokenBucket

	ReservationService *service.ReservationService
	CartService        *service.CartService
	OrderService       *service.OrderService
}

func NewApplicationContext(cf *config.Config, logger zerolog.Logger) (*ApplicationContext, error) {
	app := ApplicationContext{
		Cf:     cf,
		Logger: logger.With().Str("component", "appcontext").Logger(),
	}
	if err := app.Init(); err != nil {
		// 已經建好的連線要收掉
		_ = app.Shutdown(context.Background())
		return nil, err
	}
	return &app, nil
}

func (app *ApplicationContext) Init() error {
	steps := []struct {
		name string
		fn   func() error
	}{
		{"database connection", app.setUpDbDao},
		{"redis client", app.setUpRedis},
		{"repositories", app.setUpRepositories},
		{"payment gateway", app.setUpGateway},
		{"order event producer", app.setUpOrderProducer},
		{"order journal", app.setUpOrderJournal},
		{"checkout limiter", app.setUpCheckoutLimiter},
		{"services", app.setUpServices},
	}
	for _, step := range steps {
		app.Logger.Info().Msgf("Start setup %s", step.name)
		if err := step.fn(); err != nil {
			return fmt.Errorf("setup %s: %w", step.name, err)
		}
		app.Logger.Info().Msgf("Finish setup %s", step.name)
	}
	return nil
}

func (app *ApplicationContext) setUpDbDao() error {
	conn, err := db.GetDbConn(app.Cf.DbName, app.Cf.DbHost, app.Cf.DbPort, app.Cf.DbUser, app.Cf.DbPas)
	if err != nil {
		return err
	}
	app.DbDao = db.NewDbDao(conn)
	return app.DbDao.InitMigrate()
}

func (app *ApplicationContext) setUpRedis() error {
	app.RedisClient = redis.NewClient(&redis.Options{
		Addr:     app.Cf.RedisAddr,
		Password: app.Cf.RedisPassword,
		DB:       app.Cf.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return app.RedisClient.Ping(ctx).Err()
}

func (app *ApplicationContext) setUpRepositories() error {
	app.ProductLedger = db.NewProductDBRepo(app.DbDao)
	cache := redis_repo.NewProductCacheRepo(app.RedisClient, app.Cf.ProductCacheTTL)
	app.ProductCatalog = redis_decorator.NewCacheAsideProductRepo(app.ProductLedger, cache, app.Logger)
	app.CartRepo = db.NewCartRepo(app.DbDao)
	app.OrderRepo = db.NewOrderRepo(app.DbDao)
	app.UserRepo = db.NewUserRepo(app.DbDao)
	return nil
}

func (app *ApplicationContext) setUpGateway() error {
	var inner payment.Gateway
	switch app.Cf.PaymentProvider {
	case "fintoc":
		contract := payment.ContractCheckoutSession
		if app.Cf.FintocContract == "payment_intent" {
			contract = payment.ContractPaymentIntent
		}
		inner = fintoc.NewClient(fintoc.Config{
			BaseURL:          app.Cf.FintocBaseURL,
			SecretKey:        app.Cf.FintocSecretKey,
			Contract:         contract,
			RecipientAccount: app.Cf.FintocRecipientAccount,
			ReturnURL:        app.Cf.FintocReturnURL,
		}, nil)
	case "stripe":
		inner = stripegw.New(app.Cf.StripeSecretKey, nil)
	default:
		return fmt.Errorf("unknown payment provider %q", app.Cf.PaymentProvider)
	}
	app.Gateway = payment.NewBreakerGateway(inner, app.Cf.GatewayBreakerFailures, app.Cf.GatewayBreakerCooldown)
	return nil
}

func (app *ApplicationContext) setUpOrderProducer() error {
	brokers := app.Cf.Brokers()
	if len(brokers) == 0 {
		app.Logger.Warn().Msg("KAFKA_BROKERS is empty, order events are not published to kafka")
		return nil
	}
	app.OrderProducer = producer.NewOrderEventProducer(producer.NewOrderEventWriter(brokers, app.Cf.KafkaOrderTopic))
	return nil
}

func (app *ApplicationContext) setUpOrderJournal() error {
	if app.Cf.EsdbConnection == "" {
		app.Logger.Warn().Msg("ESDB_CONNECTION is empty, order events are not journaled")
		return nil
	}
	client, err := eventdb.GetClient(app.Cf.EsdbConnection)
	if err != nil {
		return err
	}
	app.EsdbClient = client
	app.OrderJournal = eventdb.NewOrderJournal(client)
	return nil
}

func (app *ApplicationContext) setUpCheckoutLimiter() error {
	app.CheckoutLimiter = limiter.NewTokenBucket(app.RedisClient, limiter.Config{
		Capacity:   app.Cf.CheckoutRateCapacity,
		RatePerSec: app.Cf.CheckoutRatePerSec,
		Prefix:     "ratelimit",
	})
	return nil
}

func (app *ApplicationContext) setUpServices() error {
	// 庫存檢查一律讀 db, cache 只給 stock report 顯示
	app.ReservationService = service.NewReservationService(app.ProductLedger).WithCatalog(app.ProductCatalog)
	app.CartService = service.NewCartService(app.CartRepo, app.ReservationService, app.Cf.CartCASRetries, app.Logger)

	var publishers []service.OrderEventPublisher
	if app.OrderProducer != nil {
		publishers = append(publishers, app.OrderProducer)
	}
	if app.OrderJournal != nil {
		publishers = append(publishers, app.OrderJournal)
	}
	app.OrderService = service.NewOrderService(
		app.CartRepo,
		app.OrderRepo,
		app.UserRepo,
		app.Gateway,
		service.CheckoutConfig{
			Currency:       app.Cf.FintocCurrency,
			SuccessURL:     app.Cf.FintocSuccessURL,
			CancelURL:      app.Cf.FintocCancelURL,
			ReturnURL:      app.Cf.FintocReturnURL,
			PublicKey:      app.Cf.FintocPublicKey,
			GatewayTimeout: app.Cf.GatewayTimeout,
		},
		app.Logger,
		publishers...,
	)
	return nil
}

// Shutdown closes every connection that was opened, even after a partial Init.
func (app *ApplicationContext) Shutdown(ctx context.Context) error {
	app.Logger.Info().Msg("Start application shutdown")

	done := make(chan error, 1)
	go func() {
		var errs []error
		if app.OrderProducer != nil {
			if err := app.OrderProducer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close kafka producer: %w", err))
			}
		}
		if app.EsdbClient != nil {
			if err := app.EsdbClient.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close esdb client: %w", err))
			}
		}
		if app.RedisClient != nil {
			if err := app.RedisClient.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close redis: %w", err))
			}
		}
		if app.DbDao != nil {
			if err := app.DbDao.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close database: %w", err))
			}
		}
		done <- errors.Join(errs...)
	}()

	select {
	case err := <-done:
		app.Logger.Info().Err(err).Msg("Application shutdown complete")
		return err
	case <-ctx.Done():
		return fmt.Errorf("shutdown timeout: %w", ctx.Err())
	}
}
