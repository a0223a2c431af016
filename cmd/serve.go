package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storefront/storebot/internal/handler"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server with the Telegram webhook and storefront API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(*configPath, false)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var webhook *handler.WebhookHandler
			if a.dispatcher != nil {
				webhook = handler.NewWebhookHandler(a.cfg.Telegram.WebhookSecret, a.dispatcher, a.logger)
				if url := a.cfg.Telegram.WebhookURL; url != "" {
					if err := a.telegram.SetWebhook(ctx, url, a.cfg.Telegram.WebhookSecret); err != nil {
						return err
					}
					a.logger.Info("telegram webhook registered", zap.String("url", url))
				}
			}

			router := handler.SetupRouter(a.cfg, a.logger, a.jwt, webhook, a.storefront)
			err = a.runHTTP(ctx, router)
			if webhook != nil {
				webhook.Wait()
			}
			return err
		},
	}
}
