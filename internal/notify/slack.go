package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/slack-go/slack"
)

// SlackMirror posts enterprise-hub notifications into a Slack channel.
type SlackMirror struct {
	api     *slack.Client
	channel string
}

// NewSlackMirror builds the mirror. apiBase overrides the Slack API URL
// for tests; empty means the public API.
func NewSlackMirror(botToken, channel, apiBase string) (*SlackMirror, error) {
	botToken = strings.TrimSpace(botToken)
	if botToken == "" {
		return nil, errors.New("missing slack bot token")
	}
	if strings.TrimSpace(channel) == "" {
		return nil, errors.New("missing slack channel")
	}

	opts := []slack.Option{}
	if base := strings.TrimSpace(apiBase); base != "" {
		opts = append(opts, slack.OptionAPIURL(strings.TrimRight(base, "/")+"/"))
	}
	return &SlackMirror{
		api:     slack.New(botToken, opts...),
		channel: channel,
	}, nil
}

// Post sends one notification as a Slack message.
func (m *SlackMirror) Post(ctx context.Context, title, body string) error {
	text := "*" + title + "*"
	if body != "" {
		text += "\n" + body
	}
	_, _, err := m.api.PostMessageContext(ctx, m.channel,
		slack.MsgOptionText(text, false))
	return err
}
