package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mansoorceksport/fittrack/internal/bootstrap"
	"github.com/mansoorceksport/fittrack/internal/cli"
	"github.com/mansoorceksport/fittrack/internal/config"
	"github.com/mansoorceksport/fittrack/internal/logger"
	"github.com/mansoorceksport/fittrack/internal/server"
	"github.com/mansoorceksport/fittrack/internal/service"
	"go.uber.org/zap"
)

func main() {
	if err := cli.NewRootCmd(open).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// open connects to the same stores as the API server
func open(ctx context.Context) (*cli.Env, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := logger.Must(cfg.Log).Named("fitctl")

	mongoClient, db, err := bootstrap.ConnectMongo(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	redisClient, err := bootstrap.ConnectRedis(ctx, cfg, log)
	if err != nil {
		_ = mongoClient.Disconnect(context.Background())
		return nil, nil, err
	}

	svc := server.NewServices(server.AppDependencies{
		Config:      cfg,
		MongoDB:     db,
		RedisClient: redisClient,
		Logger:      log,
	})

	closeFn := func() {
		_ = redisClient.Close()
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Warn("error disconnecting from mongodb", zap.Error(err))
		}
		_ = log.Sync()
	}

	return &cli.Env{
		Progress: svc.Progress,
		SeedCatalog: func(ctx context.Context) (int, error) {
			return service.SeedCatalog(ctx, svc.Achievements)
		},
		Tokens: svc.Tokens,
	}, closeFn, nil
}
