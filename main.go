package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"meetix/config"
	"meetix/gateway"
	"meetix/pubsub"
	"meetix/service"
	"meetix/tracing"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	tp := tracing.ConfigureTraceProvider(cfg.JaegerEndpoint)
	defer func() {
		_ = tp.Shutdown(context.Background())
	}()

	traceDB, err := otelsql.Open("postgres", cfg.PostgresURL, otelsql.WithAttributes(semconv.DBSystemPostgreSQL))
	if err != nil {
		panic(err)
	}
	db := sqlx.NewDb(traceDB, "postgres")
	defer db.Close()

	redisClient := pubsub.NewRedisClient(cfg.RedisAddr)
	defer redisClient.Close()

	fedapayClient := gateway.NewFedapayClient(cfg.Fedapay.SecretKey, cfg.Fedapay.Environment)

	storageClient, err := gateway.NewStorageClient(ctx, gateway.StorageConfig{
		Bucket:        cfg.Storage.Bucket,
		Region:        cfg.Storage.Region,
		Endpoint:      cfg.Storage.Endpoint,
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
	})
	if err != nil {
		panic(err)
	}

	mailerClient := gateway.NewMailerClient(cfg.SMTP.Addr, cfg.SMTP.From, cfg.SMTP.User, cfg.SMTP.Password)

	err = service.New(
		cfg,
		db,
		redisClient,
		fedapayClient,
		storageClient,
		mailerClient,
	).Run(ctx)
	if err != nil {
		panic(err)
	}
}
