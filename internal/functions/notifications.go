package functions

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vovakirdan/friendlychat-server/internal/events"
	"github.com/vovakirdan/friendlychat-server/internal/messaging"
	"github.com/vovakirdan/friendlychat-server/internal/store"
)

const (
	// PlaceholderPhotoURL is the icon for senders without a profile picture.
	PlaceholderPhotoURL = "/images/profile_placeholder.png"

	maxBodyRunes = 100
	ellipsis     = "..."
)

// TokenRegistry is the device token registry as seen by the fan-out.
type TokenRegistry interface {
	ListTokens(ctx context.Context) ([]*store.DeviceToken, error)
	DeleteToken(ctx context.Context, token string) error
}

// Messenger sends one notification to many devices in one call.
type Messenger interface {
	SendToDevices(ctx context.Context, tokens []string, n messaging.Notification) ([]messaging.Result, error)
}

// Notifier pushes a notification to every registered device when a message is created.
type Notifier struct {
	tokens      TokenRegistry
	messenger   Messenger
	clickAction string
	log         *zerolog.Logger
}

// NewNotifier wires the fan-out. authDomain is the host notifications link to.
func NewNotifier(tokens TokenRegistry, messenger Messenger, authDomain string, logger *zerolog.Logger) *Notifier {
	return &Notifier{
		tokens:      tokens,
		messenger:   messenger,
		clickAction: "https://" + authDomain,
		log:         logger,
	}
}

// BuildNotification renders the push payload for msg.
func BuildNotification(msg *store.Message, clickAction string) messaging.Notification {
	kind := "an image"
	body := ""
	if msg.Text != "" {
		kind = "a message"
		body = truncateBody(msg.Text)
	}

	icon := msg.PhotoURL
	if icon == "" {
		icon = PlaceholderPhotoURL
	}

	return messaging.Notification{
		Title:       fmt.Sprintf("%s posted %s", msg.Name, kind),
		Body:        body,
		Icon:        icon,
		ClickAction: clickAction,
	}
}

func truncateBody(text string) string {
	runes := []rune(text)
	if len(runes) <= maxBodyRunes {
		return text
	}
	return string(runes[:maxBodyRunes-len(ellipsis)]) + ellipsis
}

// Handle processes one write under the messages collection.
func (n *Notifier) Handle(ctx context.Context, ev events.MessageWrite) error {
	if !ev.IsCreate() {
		n.log.Debug().Str("path", ev.Path).Msg("message update, skipping notification")
		return nil
	}
	if ev.Current == nil {
		return nil
	}

	payload := BuildNotification(ev.Current, n.clickAction)

	registry, err := n.tokens.ListTokens(ctx)
	if err != nil {
		return fmt.Errorf("list tokens: %w", err)
	}
	if len(registry) == 0 {
		n.log.Debug().Str("path", ev.Path).Msg("no device tokens registered")
		return nil
	}

	tokens := make([]string, len(registry))
	for i, t := range registry {
		tokens[i] = t.Token
	}

	results, err := n.messenger.SendToDevices(ctx, tokens, payload)
	if err != nil {
		return fmt.Errorf("send to devices: %w", err)
	}
	if len(results) > len(tokens) {
		return fmt.Errorf("send to devices: got %d results for %d tokens", len(results), len(tokens))
	}

	// Every prune runs to completion even when a sibling fails.
	var g errgroup.Group
	for i, res := range results {
		if !res.Failed() {
			continue
		}
		token := tokens[i]
		switch res.Failure {
		case messaging.FailureInvalidToken, messaging.FailureTokenNotRegistered:
			n.log.Error().Str("token", token).Stringer("failure", res.Failure).Msg("failure sending notification, removing token")
			g.Go(func() error {
				if err := n.tokens.DeleteToken(ctx, token); err != nil {
					return fmt.Errorf("delete token %s: %w", token, err)
				}
				return nil
			})
		case messaging.FailureUnavailable, messaging.FailureOther:
			n.log.Error().Str("token", token).Stringer("failure", res.Failure).Str("code", res.Code).Msg("failure sending notification")
		}
	}

	return g.Wait()
}
