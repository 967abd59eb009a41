package functions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/friendlychat-server/internal/classifier"
	"github.com/vovakirdan/friendlychat-server/internal/events"
	"github.com/vovakirdan/friendlychat-server/internal/store"
)

// Names of the blur sequence stages, as reported in StepError.
const (
	StepDeriveMessageID = "derive message id"
	StepDownload        = "download"
	StepBlur            = "blur"
	StepUpload          = "upload"
	StepMarkModerated   = "mark moderated"
)

// ErrMalformedPath is returned for object names not shaped like {userId}/{messageId}/{filename}.
var ErrMalformedPath = errors.New("malformed object path")

//go:generate go run go.uber.org/mock/mockgen@v0.5.0 -destination=mock/mock.go -package=mock github.com/vovakirdan/friendlychat-server/internal/functions Classifier,Messenger

// Classifier returns a safe-search verdict for an object.
type Classifier interface {
	DetectSafeSearch(ctx context.Context, ref classifier.ObjectRef) (classifier.SafeSearch, error)
}

// ObjectTransfer moves objects between the bucket and local scratch files.
type ObjectTransfer interface {
	Download(ctx context.Context, name string) (localPath string, err error)
	Upload(ctx context.Context, localPath, name string) error
}

// Blurrer blurs a local image file in place.
type Blurrer interface {
	Blur(ctx context.Context, localPath string) (string, error)
}

// MessageUpdater applies partial updates to messages.
type MessageUpdater interface {
	UpdateMessage(ctx context.Context, id string, patch store.MessagePatch) (before, after *store.Message, err error)
}

// Moderator blurs uploaded chat images that the classifier flags and marks their message moderated.
type Moderator struct {
	classifier Classifier
	objects    ObjectTransfer
	blur       Blurrer
	messages   MessageUpdater
	log        *zerolog.Logger
}

// NewModerator wires the moderation pipeline.
func NewModerator(c Classifier, objects ObjectTransfer, blur Blurrer, messages MessageUpdater, logger *zerolog.Logger) *Moderator {
	return &Moderator{
		classifier: c,
		objects:    objects,
		blur:       blur,
		messages:   messages,
		log:        logger,
	}
}

// Handle processes one object change notification.
// Running it twice on a still-flagged object blurs the object twice.
func (m *Moderator) Handle(ctx context.Context, ev events.ObjectChanged) error {
	if ev.ResourceState == events.ResourceNotExists {
		m.log.Info().Str("object", ev.Name).Msg("this is a deletion event")
		return nil
	}
	if ev.Name == "" {
		m.log.Info().Str("bucket", ev.Bucket).Msg("this is a deploy event")
		return nil
	}

	verdict, err := m.classifier.DetectSafeSearch(ctx, classifier.ObjectRef{Bucket: ev.Bucket, Name: ev.Name})
	if err != nil {
		return fmt.Errorf("detect safe search for %s: %w", ev.Name, err)
	}

	if !verdict.Flagged() {
		m.log.Info().Str("object", ev.Name).Msg("the image has been detected as OK")
		return nil
	}

	m.log.Info().
		Str("object", ev.Name).
		Bool("adult", verdict.Adult).
		Bool("violence", verdict.Violence).
		Msg("the image has been detected as inappropriate")

	return m.blurImage(ctx, ev.Name)
}

func (m *Moderator) blurImage(ctx context.Context, objectName string) error {
	var messageID, localPath string

	err := runSteps(ctx,
		step{StepDeriveMessageID, func(context.Context) error {
			id, err := MessageIDFromPath(objectName)
			messageID = id
			return err
		}},
		step{StepDownload, func(ctx context.Context) error {
			p, err := m.objects.Download(ctx, objectName)
			if err != nil {
				return err
			}
			localPath = p
			m.log.Debug().Str("local_path", localPath).Msg("image has been downloaded")
			return nil
		}},
		step{StepBlur, func(ctx context.Context) error {
			p, err := m.blur.Blur(ctx, localPath)
			if err != nil {
				return err
			}
			localPath = p
			m.log.Debug().Str("local_path", localPath).Msg("image has been blurred")
			return nil
		}},
		step{StepUpload, func(ctx context.Context) error {
			if err := m.objects.Upload(ctx, localPath, objectName); err != nil {
				return err
			}
			m.log.Debug().Str("object", objectName).Msg("blurred image has been uploaded")
			return nil
		}},
		step{StepMarkModerated, func(ctx context.Context) error {
			moderated := true
			if _, _, err := m.messages.UpdateMessage(ctx, messageID, store.MessagePatch{Moderated: &moderated}); err != nil {
				return err
			}
			m.log.Info().Str("message_id", messageID).Msg("marked the image as moderated")
			return nil
		}},
	)
	if errors.Is(err, ErrMalformedPath) {
		// Object names are immutable; a malformed one fails on every attempt.
		return backoff.Permanent(err)
	}
	return err
}

// MessageIDFromPath extracts the message id from {userId}/{messageId}/{filename}.
func MessageIDFromPath(name string) (string, error) {
	parts := strings.Split(name, "/")
	if len(parts) != 3 {
		return "", fmt.Errorf("%w: %q", ErrMalformedPath, name)
	}
	for _, p := range parts {
		if p == "" {
			return "", fmt.Errorf("%w: %q", ErrMalformedPath, name)
		}
	}
	return parts[1], nil
}
