package main

import (
	"log"

	"github.com/slack-go/slack"
)

// notifySlack posts a status message to the configured channel. Delivery
// is best-effort: notification failures never fail a pipeline phase.
func notifySlack(cfg Config, message string) {
	if cfg.SlackBotToken == "" || cfg.SlackChannelID == "" {
		return
	}
	api := slack.New(cfg.SlackBotToken)
	_, _, err := api.PostMessage(cfg.SlackChannelID, slack.MsgOptionText(message, false))
	if err != nil {
		log.Printf("slack notify error channel=%s: %v", cfg.SlackChannelID, err)
	}
}
