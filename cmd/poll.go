package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"storefront/storebot/internal/handler"
	"storefront/storebot/internal/telegram"
)

func newPollCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Long-poll Telegram for updates; the HTTP server keeps serving health, metrics and the API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(*configPath, true)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// getUpdates is refused while a webhook is registered.
			if err := a.telegram.DeleteWebhook(ctx); err != nil {
				return err
			}

			poller := telegram.NewPoller(a.telegram, a.dispatcher, a.cfg.Telegram.PollTimeout, a.logger)
			router := handler.SetupRouter(a.cfg, a.logger, a.jwt, nil, a.storefront)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				a.logger.Info("long polling started")
				return poller.Run(gctx)
			})
			g.Go(func() error {
				return a.runHTTP(gctx, router)
			})
			return g.Wait()
		},
	}
}
