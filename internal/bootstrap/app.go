package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"userapi/internal/config"
	"userapi/internal/pkg/logger"
	"userapi/internal/platform/database"
	rabbitmqClient "userapi/internal/platform/rabbitmq"
)

type App struct {
	Config *config.Config
	Logger zerolog.Logger
	DB     *gorm.DB
	MQConn *amqp.Connection
	Events *rabbitmqClient.UserEventPublisher

	StartedAt time.Time
}

// New returns an error without serving when the database cannot be reached
// within the configured attempts. A broker failure only disables events.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	log := logger.New(cfg.App.LogLevel, cfg.App.Env, os.Stdout).With().Str("app", cfg.App.Name).Logger()
	log.Info().Str("config", cfg.String()).Msg("configuration loaded")

	db, err := database.Connect(ctx, database.Options{
		URL:          cfg.Database.URL,
		MaxIdleConns: cfg.Database.MaxIdleConns,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		Logger:       log,
	}, cfg.Database.ConnectAttempts, cfg.ConnectDelay(), log)
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}

	app := &App{
		Config:    cfg,
		Logger:    log,
		DB:        db,
		StartedAt: time.Now(),
	}

	if cfg.EventsEnabled() {
		mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, user events disabled")
		} else {
			app.MQConn = mqConn
			app.Events = rabbitmqClient.NewUserEventPublisher(mqConn, cfg.RabbitMQ.UserEventsQueue)
			log.Info().Str("queue", cfg.RabbitMQ.UserEventsQueue).Msg("user events enabled")
		}
	}

	return app, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		if err := database.Close(a.DB); err != nil {
			closeErr = err
		}
	}
	return closeErr
}
