package notification

import (
	"github.com/nilemart/storefront/internal/config"
	"github.com/nilemart/storefront/internal/notification/email"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func provideEmailProvider(cfg config.Config) email.Provider {
	if cfg.SMTPHost == "" {
		return &email.NoOpProvider{}
	}
	return email.NewSMTP(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

func provideNotifier(provider email.Provider, log *zap.Logger, cfg config.Config) Notifier {
	return NewNotifier(provider, log, cfg.AdminEmail)
}

var Module = fx.Module("notification",
	fx.Provide(provideEmailProvider),
	fx.Provide(provideNotifier),
)
