package notify

import (
	"context"
	"fmt"
	"net/http"
)

// Discord embed limits.
const (
	discordTitleMax = 256
	discordDescMax  = 4096
	discordColor    = 0x1F6FEB
)

type discordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Color       int    `json:"color"`
}

type discordPayload struct {
	Username string         `json:"username,omitempty"`
	Embeds   []discordEmbed `json:"embeds"`
}

// DiscordSender posts an embed to a Discord webhook.
type DiscordSender struct {
	webhookURL string
	username   string
	client     *http.Client
}

func NewDiscordSender(webhookURL, username string) *DiscordSender {
	return &DiscordSender{webhookURL: webhookURL, username: username, client: newHTTPClient()}
}

func (d *DiscordSender) Send(ctx context.Context, title, message string) error {
	err := postJSON(ctx, d.client, d.webhookURL, discordPayload{
		Username: d.username,
		Embeds: []discordEmbed{{
			Title:       clip(title, discordTitleMax),
			Description: clip(message, discordDescMax),
			Color:       discordColor,
		}},
	})
	if err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

func (d *DiscordSender) Name() string { return "discord" }

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
