package functions

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/friendlychat-server/internal/events"
	"github.com/vovakirdan/friendlychat-server/internal/store"
)

const (
	// SystemBotName authors system messages.
	SystemBotName = "System Bot"
	// BotPhotoURL is the avatar of the system bot.
	BotPhotoURL = "images/firebase-logo.png"
)

// MessagePusher appends messages to the chat log.
type MessagePusher interface {
	CreateMessage(ctx context.Context, msg *store.Message) error
}

// Greeter welcomes users on their first sign-in.
type Greeter struct {
	messages MessagePusher
	log      *zerolog.Logger
}

// NewGreeter builds a Greeter.
func NewGreeter(messages MessagePusher, logger *zerolog.Logger) *Greeter {
	return &Greeter{messages: messages, log: logger}
}

// WelcomeText is the greeting for a new user.
func WelcomeText(displayName string) string {
	if displayName == "" {
		displayName = "Anonymous"
	}
	return displayName + " signed in for the first time! Welcome!"
}

// Handle appends the welcome message. Write failures are logged and never returned.
func (g *Greeter) Handle(ctx context.Context, ev events.UserCreated) error {
	g.log.Info().Str("uid", ev.UID).Msg("a new user signed in for the first time")

	msg := &store.Message{
		Name:     SystemBotName,
		PhotoURL: BotPhotoURL,
		Text:     WelcomeText(ev.DisplayName),
	}
	if err := g.messages.CreateMessage(ctx, msg); err != nil {
		g.log.Warn().Err(err).Str("uid", ev.UID).Msg("welcome message was not written")
		return nil
	}

	g.log.Info().Str("message_id", msg.ID).Msg("welcome message written to chatroom")
	return nil
}
