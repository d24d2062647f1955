package main

import (
	"context"

	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/pos-orders/internal/app"
	"github.com/xenking/pos-orders/internal/cli"
)

func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		root := cli.NewRootCmd(func(ctx context.Context) (cli.Backend, error) {
			cfg, err := appkg.LoadConfig()
			if err != nil {
				return nil, err
			}
			env, err := appkg.Open(ctx, m, cfg)
			if err != nil {
				return nil, err
			}
			return env, nil
		})
		return root.ExecuteContext(ctx)
	})
}
