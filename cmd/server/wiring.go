package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/twmb/franz-go/pkg/kgo"

	"hemolink/internal/forecast"
	forecastHandler "hemolink/internal/forecast/handler"
	forecastStore "hemolink/internal/forecast/store"
	"hemolink/internal/inventory"
	inventoryHandler "hemolink/internal/inventory/handler"
	inventoryStore "hemolink/internal/inventory/store"
	"hemolink/internal/matching"
	matchingHandler "hemolink/internal/matching/handler"
	matchingMetrics "hemolink/internal/matching/metrics"
	matchingStore "hemolink/internal/matching/store"
	"hemolink/internal/notification"
	"hemolink/internal/notification/adapters"
	"hemolink/internal/notification/appeal"
	"hemolink/internal/notification/channel"
	notificationHandler "hemolink/internal/notification/handler"
	notificationMetrics "hemolink/internal/notification/metrics"
	deliveryStore "hemolink/internal/notification/store"
	"hemolink/internal/platform/config"
	"hemolink/internal/platform/metrics"
	"hemolink/internal/platform/postgres"
	"hemolink/internal/platform/redis"
	httptransport "hemolink/internal/transport/http"
	"hemolink/internal/urgency"
	urgencyHandler "hemolink/internal/urgency/handler"
	"hemolink/pkg/platform/circuit"
)

// donorStore serves both matching ports.
type donorStore interface {
	matching.DonorStore
	matching.ProfileStore
}

type stores struct {
	donors     donorStore
	units      inventory.Store
	forecasts  forecast.Store
	deliveries notification.DeliveryStore
	// deliveryLog is the durable log behind any delivered-key cache.
	deliveryLog notificationHandler.DeliveryLog
}

type application struct {
	router      *chi.Mux
	channelName string
	closers     []func()
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func build(ctx context.Context, cfg config.Config, log *slog.Logger) (*application, error) {
	app := &application{}
	health := map[string]httptransport.HealthCheck{}

	st, err := openStores(ctx, cfg, app, health)
	if err != nil {
		app.Close()
		return nil, err
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		app.Close()
		return nil, err
	}
	if redisClient != nil {
		app.closers = append(app.closers, func() { _ = redisClient.Close() })
		health["redis"] = redisClient.Health
		st.deliveries = deliveryStore.NewRedisDeliveredIndex(redisClient.Client, st.deliveries,
			deliveryStore.WithDeliveredTTL(cfg.Redis.DeliveredTTL))
	}

	dispatchMetrics := notificationMetrics.New(nil)
	ch, err := buildChannel(ctx, cfg, log, dispatchMetrics, app, health)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.channelName = ch.Name()

	capPolicy, err := matching.ParseCapPolicy(cfg.Matching.CapPolicy)
	if err != nil {
		app.Close()
		return nil, err
	}
	ranker, err := matching.New(st.donors, st.donors,
		matching.WithLogger(log),
		matching.WithMetrics(matchingMetrics.New(nil)),
		matching.WithCapPolicy(capPolicy),
	)
	if err != nil {
		app.Close()
		return nil, err
	}
	inv, err := inventory.New(st.units, inventory.WithLogger(log))
	if err != nil {
		app.Close()
		return nil, err
	}
	fc, err := forecast.New(st.forecasts, forecast.WithLogger(log))
	if err != nil {
		app.Close()
		return nil, err
	}
	recommender, err := urgency.New(inv, fc, urgency.WithLogger(log))
	if err != nil {
		app.Close()
		return nil, err
	}
	dispatcher, err := notification.NewDispatcher(ch, adapters.NewProfileContacts(st.donors), st.deliveries,
		notification.WithLogger(log),
		notification.WithMetrics(dispatchMetrics),
		notification.WithConcurrency(cfg.Dispatch.Concurrency),
		notification.WithDeliveryTimeout(cfg.Dispatch.DeliveryTimeout),
	)
	if err != nil {
		app.Close()
		return nil, err
	}
	appeals, err := appeal.New(recommender, inv, ranker, dispatcher, appeal.WithLogger(log))
	if err != nil {
		app.Close()
		return nil, err
	}

	app.router = httptransport.NewRouter(httptransport.Deps{
		Logger:       log,
		Metrics:      metrics.New(nil),
		CORSOrigins:  cfg.Server.CORSOrigins,
		AdminToken:   cfg.Server.AdminToken,
		HealthChecks: health,
		Public: []httptransport.Registrar{
			matchingHandler.New(ranker, log),
			inventoryHandler.New(inv, log),
			forecastHandler.New(fc, log),
			urgencyHandler.New(recommender, log),
		},
		Protected: []httptransport.Registrar{
			notificationHandler.New(dispatcher, appeals, st.deliveryLog, log),
		},
	})
	return app, nil
}

// openStores returns Postgres stores when a database URL is configured and
// in-memory stores otherwise.
func openStores(ctx context.Context, cfg config.Config, app *application, health map[string]httptransport.HealthCheck) (*stores, error) {
	if cfg.Postgres.URL == "" {
		deliveries := deliveryStore.NewInMemory()
		return &stores{
			donors:      matchingStore.NewInMemory(),
			units:       inventoryStore.NewInMemory(),
			forecasts:   forecastStore.NewInMemory(),
			deliveries:  deliveries,
			deliveryLog: deliveries,
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, func() { _ = db.Close() })
	if err := postgres.CreateSchema(ctx, db); err != nil {
		return nil, err
	}
	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, pool.Close)
	health["postgres"] = pingBoth(db, pool)

	deliveries := deliveryStore.NewPostgres(db)
	return &stores{
		donors:      matchingStore.NewPostgres(db),
		units:       inventoryStore.NewPostgres(db),
		forecasts:   forecastStore.NewPostgres(pool),
		deliveries:  deliveries,
		deliveryLog: deliveries,
	}, nil
}

func pingBoth(db *sql.DB, pool *pgxpool.Pool) httptransport.HealthCheck {
	return func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		return pool.Ping(ctx)
	}
}

// buildChannel picks Kafka, then SMTP, then the log channel, and wraps the
// transport in a circuit breaker and a rate limiter. While the circuit is open
// sends fail and are copied to the log.
func buildChannel(ctx context.Context, cfg config.Config, log *slog.Logger, m *notificationMetrics.Metrics, app *application, health map[string]httptransport.HealthCheck) (notification.Channel, error) {
	logChannel := channel.NewLog(log)

	var primary notification.Channel
	switch {
	case len(cfg.Kafka.Brokers) > 0:
		client, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Brokers...),
			kgo.ProducerBatchCompression(kgo.SnappyCompression()),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka client: %w", err)
		}
		app.closers = append(app.closers, client.Close)
		health["kafka"] = client.Ping
		if err := channel.EnsureTopic(ctx, client, cfg.Kafka.Topic,
			int32(cfg.Kafka.Partitions), int16(cfg.Kafka.ReplicationFactor)); err != nil {
			return nil, err
		}
		primary, err = channel.NewKafka(client, cfg.Kafka.Topic)
		if err != nil {
			return nil, err
		}
	case cfg.SMTP.Host != "":
		smtp, err := channel.NewSMTP(channel.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
		if err != nil {
			return nil, err
		}
		primary = smtp
	default:
		return logChannel, nil
	}

	breaker := circuit.New(primary.Name(),
		circuit.WithFailureThreshold(cfg.Dispatch.FailureThreshold),
		circuit.WithSuccessThreshold(cfg.Dispatch.SuccessThreshold),
		circuit.WithCooldown(cfg.Dispatch.CircuitCooldown),
	)
	guarded := channel.NewBreaker(primary, breaker,
		channel.WithFallback(logChannel),
		channel.WithBreakerLogger(log),
		channel.WithBreakerMetrics(m),
	)
	return channel.NewRateLimited(guarded, cfg.Dispatch.RatePerSecond, cfg.Dispatch.RateBurst), nil
}
