package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	appbooking "storeshare/internal/app/booking"
	"storeshare/internal/app/chat"
	"storeshare/internal/app/ledger"
	"storeshare/internal/app/notify"
	appoutbox "storeshare/internal/app/outbox"
	"storeshare/internal/app/schedule"
	"storeshare/internal/config"
	domainbooking "storeshare/internal/domain/booking"
	domainlisting "storeshare/internal/domain/listing"
	"storeshare/internal/domain/messaging"
	"storeshare/internal/domain/pricing"
	"storeshare/internal/domain/shared/daterange"
	"storeshare/internal/domain/shared/money"
	"storeshare/internal/infra/broker/kafka"
	mongodb "storeshare/internal/infra/db/mongo"
	ginserver "storeshare/internal/infra/http/gin"
	infraoutbox "storeshare/internal/infra/outbox"
	"storeshare/internal/infra/storage/memory"
	"storeshare/internal/obs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	fixturesPath := getenv("LISTING_FIXTURES", defaultFixturesPath())
	if err := app.loadListingFixtures(ctx, fixturesPath, logger); err != nil {
		logger.Warn("listing fixtures load failed", "error", err, "path", fixturesPath)
	}

	go func() {
		if err := app.sweeper.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("sweeper stopped", "error", err)
		}
	}()
	if app.worker != nil {
		go func() {
			if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		app.close(logger)
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	listings domainlisting.Repository
	sweeper  *schedule.Sweeper
	worker   *infraoutbox.Worker
	ready    func() error
	close    func(*slog.Logger)
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, error) {
	var (
		listings      domainlisting.Repository
		bookings      domainbooking.Repository
		messages      messaging.MessageRepository
		notifications messaging.NotificationRepository
		box           appoutbox.Outbox
		worker        *infraoutbox.Worker
		producer      *kafka.Producer
		ready         = func() error { return nil }
	)

	switch cfg.StorageMode {
	case "mongo":
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, fmt.Errorf("mongo connect: %w", err)
		}
		if err := client.Ping(ctx); err != nil {
			return application{}, fmt.Errorf("mongo ping: %w", err)
		}
		listings = mongodb.NewListingRepository(client.DB)
		bookings = mongodb.NewBookingRepository(client.DB)
		messages = mongodb.NewMessageRepository(client.DB, logger)
		notifications = mongodb.NewNotificationRepository(client.DB)
		store := infraoutbox.NewStore(client.DB)
		box = store
		ready = func() error { return client.Ping(context.Background()) }

		if len(cfg.KafkaBrokers) > 0 {
			producer, err = kafka.NewProducer(cfg.KafkaBrokers, nil)
			if err != nil {
				return application{}, fmt.Errorf("kafka producer: %w", err)
			}
			worker = &infraoutbox.Worker{
				Store:       store,
				Producer:    producer,
				Logger:      logger,
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Backoff:     cfg.OutboxRetryBackoff,
			}
		} else {
			logger.Warn("no kafka brokers configured, outbox events will accumulate unsent")
		}
	default:
		listings = memory.NewListingRepository()
		bookings = memory.NewBookingRepository()
		messages = memory.NewMessageRepository()
		notifications = memory.NewNotificationRepository()
		box = memory.NewOutbox()
	}

	dispatcher := notify.NewDispatcher(notifications, logger)
	router := chat.NewRouter(messages, bookings, listings, dispatcher, logger)
	ledgerSvc := ledger.New(listings, box, logger, ledger.Config{
		MaxAttempts: cfg.AllocateAttempts,
		BackoffBase: cfg.AllocateBackoff,
	})
	calculator := pricing.NewCalculator(cfg)
	bookingSvc := appbooking.NewService(bookings, listings, ledgerSvc, calculator, router, box, logger, appbooking.Config{
		CancellationCutoff: cfg.CancellationCutoff,
	})
	sweeper := schedule.NewSweeper(bookings, bookingSvc, logger, cfg.SweepInterval)

	return application{
		handlers: ginserver.Handlers{
			Booking:      ginserver.BookingHandler{Service: bookingSvc},
			Chat:         ginserver.ChatHandler{Router: router, Bookings: bookings},
			Notification: ginserver.NotificationHandler{Dispatcher: dispatcher},
		},
		listings: listings,
		sweeper:  sweeper,
		worker:   worker,
		ready:    ready,
		close: func(logger *slog.Logger) {
			if producer != nil {
				if err := producer.Close(); err != nil {
					logger.Error("kafka producer close failed", "error", err)
				}
			}
		},
	}, nil
}

type listingFixture struct {
	ID            string `json:"id"`
	Owner         string `json:"owner"`
	Title         string `json:"title"`
	PriceAmount   int64  `json:"price_amount"`
	PriceCurrency string `json:"price_currency"`
	AvailableFrom string `json:"available_from"`
	AvailableTo   string `json:"available_to"`
}

func (a application) loadListingFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now().UTC()
	for _, fx := range fixtures {
		bookable, err := parseFixtureRange(fx, now)
		if err != nil {
			logger.Error("fixture range invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		l, err := domainlisting.New(domainlisting.CreateParams{
			ID:        domainlisting.ListingID(fx.ID),
			OwnerID:   fx.Owner,
			Title:     fx.Title,
			Price:     money.Money{Amount: fx.PriceAmount, Currency: fx.PriceCurrency},
			Bookable:  bookable,
			CreatedAt: now,
		})
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		if err := a.listings.Save(ctx, l); err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		logger.Info("listing fixture imported", "listing_id", l.ID)
	}
	return nil
}

func parseFixtureRange(fx listingFixture, now time.Time) (daterange.DateRange, error) {
	start := now
	if strings.TrimSpace(fx.AvailableFrom) != "" {
		t, err := time.Parse(daterange.KeyLayout, fx.AvailableFrom)
		if err != nil {
			return daterange.DateRange{}, err
		}
		start = t
	}
	end := start.AddDate(0, 3, 0)
	if strings.TrimSpace(fx.AvailableTo) != "" {
		t, err := time.Parse(daterange.KeyLayout, fx.AvailableTo)
		if err != nil {
			return daterange.DateRange{}, err
		}
		end = t
	}
	return daterange.New(start, end)
}

func defaultFixturesPath() string {
	return filepath.Join("data", "listings.json")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
