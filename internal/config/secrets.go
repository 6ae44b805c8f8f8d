package config

import "slices"

const redacted = "***"

// RedactedConfig returns a copy of cfg that is safe to log: every credential
// is replaced by "***" and slices are copied.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	for _, s := range []*string{
		&out.Database.DSN,
		&out.Database.Password,
		&out.Redis.Password,
		&out.S3.AccessKey,
		&out.S3.SecretKey,
		&out.Kalshi.APIKeyID,
		&out.LLM.APIKey,
		&out.Research.TavilyAPIKey,
		&out.Wallet.PrivateKey,
		&out.Wallet.KeyPassword,
		&out.Notify.TelegramToken,
		&out.Notify.DiscordWebhookURL,
	} {
		if *s != "" {
			*s = redacted
		}
	}

	out.Research.ExcludeDomains = slices.Clone(cfg.Research.ExcludeDomains)
	out.Research.Feeds = slices.Clone(cfg.Research.Feeds)
	out.Notify.Events = slices.Clone(cfg.Notify.Events)
	return out
}
