// Package app assembles the engine for embedding: the host system calls
// New and uses the exposed services; HTTP routing, auth and UI live
// outside this module.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	autoservices "github.com/CaptainRedCodes/CareOps/internal/automations/application/services"
	"github.com/CaptainRedCodes/CareOps/internal/automations/application/subscribers"
	autodomain "github.com/CaptainRedCodes/CareOps/internal/automations/domain"
	autopersistence "github.com/CaptainRedCodes/CareOps/internal/automations/infrastructure/persistence"
	bookingservices "github.com/CaptainRedCodes/CareOps/internal/booking/application/services"
	bookingdomain "github.com/CaptainRedCodes/CareOps/internal/booking/domain"
	bookingpersistence "github.com/CaptainRedCodes/CareOps/internal/booking/infrastructure/persistence"
	"github.com/CaptainRedCodes/CareOps/internal/delivery"
	"github.com/CaptainRedCodes/CareOps/internal/events"
	eventpersistence "github.com/CaptainRedCodes/CareOps/internal/events/persistence"
	inventoryservices "github.com/CaptainRedCodes/CareOps/internal/inventory/application/services"
	inventorydomain "github.com/CaptainRedCodes/CareOps/internal/inventory/domain"
	inventorypersistence "github.com/CaptainRedCodes/CareOps/internal/inventory/infrastructure/persistence"
	"github.com/CaptainRedCodes/CareOps/internal/shared/infrastructure/database/postgres"
	"github.com/CaptainRedCodes/CareOps/internal/shared/infrastructure/database/sqlite"
	"github.com/CaptainRedCodes/CareOps/pkg/config"
)

// App wires every context together. SQLite is the local-mode store;
// setting DATABASE_URL moves the booking write path, the event log and
// the inventory store to Postgres, whose row locks serialize the
// contended writes across processes. Those stores move together:
// transactions append event entries into their own database, so the
// dispatcher and sweeper must read the same one or dispatch never claims
// the entries.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Bookings     *bookingservices.BookingService
	Availability *bookingservices.AvailabilityService
	Rules        *autoservices.RuleService
	Inventory    *inventoryservices.InventoryService
	Events       *events.Service
	Dispatcher   *events.Dispatcher
	Sweeper      *events.Sweeper

	db        *sql.DB
	pool      *pgxpool.Pool
	redis     *redis.Client
	publisher events.Publisher
}

// Options carries the injectable collaborators the host may replace.
type Options struct {
	// Provider is the outbound message provider. Nil selects a
	// log-only sender for local development.
	Provider delivery.Sender

	// BusyBlocks supplies external calendar busy intervals. May be nil.
	BusyBlocks bookingservices.BusyBlockSource
}

// New assembles the engine from configuration.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Config: cfg, Logger: logger}

	db, err := sqlite.Open(ctx, cfg.SQLitePath)
	if err != nil {
		return nil, err
	}
	a.db = db

	if err := sqlite.EnsureSchema(ctx, db); err != nil {
		a.Close()
		return nil, err
	}

	var (
		bookingRepo   bookingdomain.BookingRepository
		creationStore bookingdomain.CreationStore
		types         bookingdomain.BookingTypeRepository
		eventRepo     events.Repository
		itemStore     inventorydomain.Store
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.pool = pool
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			a.Close()
			return nil, err
		}
		store := bookingpersistence.NewPostgresBookingStore(pool)
		bookingRepo, creationStore = store, store
		types = bookingpersistence.NewPostgresBookingTypeRepository(pool)
		eventRepo = eventpersistence.NewPostgresEventRepository(pool)
		itemStore = inventorypersistence.NewPostgresItemStore(pool)
		logger.Info("booking, event log and inventory stores backed by postgres")
	} else {
		store := bookingpersistence.NewSQLiteBookingStore(db)
		bookingRepo, creationStore = store, store
		types = bookingpersistence.NewSQLiteBookingTypeRepository(db)
		eventRepo = eventpersistence.NewSQLiteEventRepository(db)
		itemStore = inventorypersistence.NewSQLiteItemStore(db)
	}

	var pause autodomain.PauseRegistry = autopersistence.NewSQLitePauseRegistry(db)
	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("invalid redis url: %w", err)
		}
		a.redis = redis.NewClient(redisOpts)
		pause = autopersistence.NewRedisPauseRegistry(a.redis)
		logger.Info("pause registry backed by redis")
	}

	a.publisher = events.NewNoopPublisher(logger)
	if cfg.RabbitMQURL != "" {
		publisher, err := events.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.publisher = publisher
	}

	provider := opts.Provider
	if provider == nil {
		provider = logSender(logger)
	}
	sender := delivery.NewRetrier(
		delivery.NewBreaker(provider, "outbound", logger),
		delivery.RetryConfig{
			MaxAttempts: cfg.DeliveryMaxAttempts,
			BackoffBase: cfg.DeliveryBackoffBase,
		},
		logger,
	)

	rules := autopersistence.NewSQLiteRuleRepository(db)
	logs := autopersistence.NewSQLiteLogRepository(db)
	engine := autoservices.NewEngine(rules, logs, pause, sender, logger)
	a.Rules = autoservices.NewRuleService(rules, logs, pause, logger)

	registry := events.NewRegistry(logger)
	if err := registry.Register(events.TypeStaffReplied, subscribers.NewStaffReplyPauser(pause, logger)); err != nil {
		a.Close()
		return nil, err
	}
	registry.Freeze()

	a.Dispatcher = events.NewDispatcher(eventRepo, registry, engine, a.publisher, logger)
	a.Events = events.NewService(eventRepo, a.Dispatcher, logger)
	a.Sweeper = events.NewSweeper(eventRepo, a.Dispatcher, events.SweeperConfig{
		PollInterval: cfg.SweepInterval,
		GracePeriod:  cfg.SweepGracePeriod,
		BatchSize:    cfg.SweepBatchSize,
	}, logger)

	a.Inventory = inventoryservices.NewInventoryService(itemStore, a.Dispatcher, logger)

	a.Availability = bookingservices.NewAvailabilityService(types, bookingRepo, opts.BusyBlocks, logger)
	a.Bookings = bookingservices.NewBookingService(types, bookingRepo, creationStore, a.Dispatcher, a.Events, a.Inventory, logger)

	return a, nil
}

// Close releases every connection the app owns.
func (a *App) Close() error {
	if a.Sweeper != nil {
		a.Sweeper.Stop()
	}
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// logSender is the local-mode provider: it logs instead of sending.
func logSender(logger *slog.Logger) delivery.Sender {
	return delivery.SenderFunc(func(ctx context.Context, msg delivery.Message) error {
		switch msg.Channel {
		case delivery.ChannelEmail, delivery.ChannelSMS:
			logger.Info("outbound message",
				"channel", msg.Channel,
				"recipient", msg.Recipient,
				"subject", msg.Subject,
			)
			return nil
		default:
			return delivery.ErrUnsupportedChannel
		}
	})
}
