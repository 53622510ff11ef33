package db

import (
	"context"
	"submission_service/internal/config"
	"submission_service/pkg/logging"

	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// NewMongo builds a client for cfg.MongoURL. Connecting is lazy; callers Ping.
func NewMongo(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(cfg.MongoURL).
		SetServerMonitor(heartbeatMonitor(ctx, logger))

	return mongo.Connect(ctx, opts)
}

func heartbeatMonitor(ctx context.Context, logger *logging.Logger) *event.ServerMonitor {
	return &event.ServerMonitor{
		ServerHeartbeatFailed: func(e *event.ServerHeartbeatFailedEvent) {
			logger.Warn(ctx, "mongo heartbeat failed",
				zap.String("connection_id", e.ConnectionID),
				zap.Error(e.Failure),
			)
		},
		ServerClosed: func(e *event.ServerClosedEvent) {
			logger.Warn(ctx, "mongo disconnected", zap.String("address", e.Address.String()))
		},
	}
}
