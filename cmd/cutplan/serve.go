package main

import (
	"context"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/piwi3910/cutplan/internal/api"
	"github.com/piwi3910/cutplan/internal/logger"
	"github.com/piwi3910/cutplan/internal/service"
)

const drainTimeout = 30 * time.Second

func serve(ctx context.Context, args []string) error {
	cfg, err := loadConfig(pflag.NewFlagSet("serve", pflag.ExitOnError), args)
	if err != nil {
		return err
	}
	log := logger.For(logger.ComponentCLI)

	svc, err := service.New(cfg)
	if err != nil {
		return err
	}
	server := api.New(svc, cfg.Server)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		svc.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return server.Run(gctx)
	})
	err = g.Wait()

	log.Info("terminating active tasks")
	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if shutdownErr := svc.Shutdown(drainCtx); shutdownErr != nil {
		log.Warnf("tasks did not stop in time: %v", shutdownErr)
	}
	return err
}
