package main

import (
	"context"
	"fmt"

	"github.com/abduss/bucketlist/internal/config"
	"github.com/abduss/bucketlist/internal/item"
	"github.com/abduss/bucketlist/internal/media"
	"github.com/abduss/bucketlist/internal/server"
	"github.com/abduss/bucketlist/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// openRecords returns the item record store picked by RECORDS_DRIVER. Users
// and sessions stay in PostgreSQL either way, so the postgres driver needs
// no extra health check.
func openRecords(ctx context.Context, cfg config.Config, pool *pgxpool.Pool) (item.RecordStore, *server.HealthCheck, func(), error) {
	switch cfg.Records.Driver {
	case config.RecordsMongo:
		client, err := storage.NewMongoClient(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, nil, err
		}
		repo := item.NewMongoRepository(client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection))
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		return repo, &server.HealthCheck{Name: "mongo", Check: repo.Ping}, closeFn, nil
	default:
		return item.NewRepository(pool), nil, func() {}, nil
	}
}

// openMedia returns the object store picked by MEDIA_DRIVER together with
// its readiness check.
func openMedia(ctx context.Context, cfg config.Config) (media.Store, server.HealthCheck, error) {
	switch cfg.Media.Driver {
	case config.MediaS3:
		client, err := storage.NewS3Client(ctx, cfg.S3)
		if err != nil {
			return nil, server.HealthCheck{}, fmt.Errorf("s3 client: %w", err)
		}
		check := server.HealthCheck{Name: "s3", Check: func(ctx context.Context) error {
			return storage.PingS3(ctx, client, cfg.S3.Bucket)
		}}
		return media.NewS3Store(client, cfg.S3.Bucket), check, nil
	default:
		client, err := storage.OpenMinIO(ctx, cfg.MinIO)
		if err != nil {
			return nil, server.HealthCheck{}, err
		}
		check := server.HealthCheck{Name: "minio", Check: func(ctx context.Context) error {
			return storage.PingMinIO(ctx, client, cfg.MinIO.Bucket)
		}}
		return media.NewMinIOStore(client, cfg.MinIO.Bucket), check, nil
	}
}
