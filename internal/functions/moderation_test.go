package functions

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vovakirdan/friendlychat-server/internal/classifier"
	"github.com/vovakirdan/friendlychat-server/internal/events"
	"github.com/vovakirdan/friendlychat-server/internal/functions/mock"
	"github.com/vovakirdan/friendlychat-server/internal/imaging"
	logpkg "github.com/vovakirdan/friendlychat-server/internal/log"
	"github.com/vovakirdan/friendlychat-server/internal/store"
)

const (
	testBucket = "friendlychat"
	testObject = "7/msg-a/cat.png"
)

type moderationFixture struct {
	classifier *mock.MockClassifier
	objects    *memObjects
	blur       *suffixBlur
	messages   *memMessages
	moderator  *Moderator
}

func newModerationFixture(t *testing.T) *moderationFixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	f := &moderationFixture{
		classifier: mock.NewMockClassifier(ctrl),
		objects:    newMemObjects(t),
		blur:       &suffixBlur{},
		messages:   newMemMessages(),
	}
	f.moderator = NewModerator(f.classifier, f.objects, f.blur, f.messages, logpkg.Nop())

	require.NoError(t, f.messages.CreateMessage(context.Background(), &store.Message{ID: "msg-a", Name: "Ada", ImageURL: "/objects/" + testObject}))
	f.objects.objects[testObject] = []byte("original-pixels")
	return f
}

func uploadEvent(name string) events.ObjectChanged {
	return events.ObjectChanged{Bucket: testBucket, Name: name, ResourceState: events.ResourceExists}
}

func TestModeratorIgnoresDeletion(t *testing.T) {
	f := newModerationFixture(t)

	// No EXPECT: any classifier call fails the test.
	err := f.moderator.Handle(context.Background(), events.ObjectChanged{
		Bucket:        testBucket,
		Name:          testObject,
		ResourceState: events.ResourceNotExists,
	})
	require.NoError(t, err)
	assert.Zero(t, f.blur.calls)
	assert.Zero(t, f.objects.uploads)
	assert.Zero(t, f.messages.updates)
}

func TestModeratorIgnoresNamelessEvent(t *testing.T) {
	f := newModerationFixture(t)

	err := f.moderator.Handle(context.Background(), uploadEvent(""))
	require.NoError(t, err)
	assert.Zero(t, f.messages.updates)
}

func TestModeratorLeavesCleanImages(t *testing.T) {
	f := newModerationFixture(t)
	f.classifier.EXPECT().
		DetectSafeSearch(gomock.Any(), classifier.ObjectRef{Bucket: testBucket, Name: testObject}).
		Return(classifier.SafeSearch{}, nil)

	require.NoError(t, f.moderator.Handle(context.Background(), uploadEvent(testObject)))

	assert.Zero(t, f.blur.calls)
	assert.Zero(t, f.objects.uploads)
	assert.Equal(t, []byte("original-pixels"), f.objects.get(testObject))
	assert.False(t, f.messages.all()[0].Moderated)
}

func TestModeratorBlursFlaggedImages(t *testing.T) {
	verdicts := map[string]classifier.SafeSearch{
		"adult":    {Adult: true},
		"violence": {Violence: true},
		"both":     {Adult: true, Violence: true},
	}

	for name, verdict := range verdicts {
		t.Run(name, func(t *testing.T) {
			f := newModerationFixture(t)
			f.classifier.EXPECT().DetectSafeSearch(gomock.Any(), gomock.Any()).Return(verdict, nil)

			require.NoError(t, f.moderator.Handle(context.Background(), uploadEvent(testObject)))

			assert.Equal(t, 1, f.blur.calls)
			assert.NotEqual(t, []byte("original-pixels"), f.objects.get(testObject))
			assert.Equal(t, []byte("original-pixels|blurred"), f.objects.get(testObject))
			assert.True(t, f.messages.all()[0].Moderated)
		})
	}
}

func TestModeratorClassifierFailureChangesNothing(t *testing.T) {
	f := newModerationFixture(t)
	f.classifier.EXPECT().DetectSafeSearch(gomock.Any(), gomock.Any()).Return(classifier.SafeSearch{}, errors.New("vision down"))

	err := f.moderator.Handle(context.Background(), uploadEvent(testObject))
	require.Error(t, err)
	assert.Zero(t, f.objects.uploads)
	assert.Zero(t, f.messages.updates)
}

func TestModeratorMalformedPathFails(t *testing.T) {
	f := newModerationFixture(t)
	f.objects.objects["loose.png"] = []byte("pixels")
	f.classifier.EXPECT().DetectSafeSearch(gomock.Any(), gomock.Any()).Return(classifier.SafeSearch{Adult: true}, nil)

	err := f.moderator.Handle(context.Background(), uploadEvent("loose.png"))
	require.Error(t, err)

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepDeriveMessageID, stepErr.Step)
	assert.ErrorIs(t, err, ErrMalformedPath)
	assert.Zero(t, f.blur.calls)

	var permanent *backoff.PermanentError
	assert.ErrorAs(t, err, &permanent, "a malformed path must not be redelivered")
}

func TestModeratorUploadFailureAbortsBeforeFlagging(t *testing.T) {
	f := newModerationFixture(t)
	f.objects.uploadErr = errors.New("permission denied")
	f.classifier.EXPECT().DetectSafeSearch(gomock.Any(), gomock.Any()).Return(classifier.SafeSearch{Violence: true}, nil)

	err := f.moderator.Handle(context.Background(), uploadEvent(testObject))

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepUpload, stepErr.Step)
	assert.Equal(t, 1, f.blur.calls)
	assert.Zero(t, f.messages.updates)
	assert.False(t, f.messages.all()[0].Moderated)
}

func TestModeratorMissingMessageFails(t *testing.T) {
	f := newModerationFixture(t)
	f.objects.objects["7/ghost/cat.png"] = []byte("pixels")
	f.classifier.EXPECT().DetectSafeSearch(gomock.Any(), gomock.Any()).Return(classifier.SafeSearch{Adult: true}, nil)

	err := f.moderator.Handle(context.Background(), uploadEvent("7/ghost/cat.png"))

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, StepMarkModerated, stepErr.Step)
	assert.ErrorIs(t, err, store.ErrNotFound)

	var permanent *backoff.PermanentError
	assert.False(t, errors.As(err, &permanent), "a missing message may still appear, so it stays retryable")
}

func TestModeratorBlursExtensionlessImage(t *testing.T) {
	const object = "7/msg-a/image"

	ctrl := gomock.NewController(t)
	vision := mock.NewMockClassifier(ctrl)
	objects := newMemObjects(t)
	messages := newMemMessages()
	require.NoError(t, messages.CreateMessage(context.Background(), &store.Message{ID: "msg-a", Name: "Ada", ImageURL: "/objects/" + object}))

	pixels := checkerboardPNG(t)
	objects.objects[object] = pixels
	vision.EXPECT().DetectSafeSearch(gomock.Any(), classifier.ObjectRef{Bucket: testBucket, Name: object}).Return(classifier.SafeSearch{Adult: true}, nil)

	moderator := NewModerator(vision, objects, imaging.NewBlurrer(4), messages, logpkg.Nop())
	require.NoError(t, moderator.Handle(context.Background(), uploadEvent(object)))

	blurred := objects.get(object)
	assert.NotEqual(t, pixels, blurred)
	_, err := png.Decode(bytes.NewReader(blurred))
	assert.NoError(t, err, "blurred object should still be a png")
	assert.True(t, messages.all()[0].Moderated)
}

func checkerboardPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := range 16 {
		for x := range 16 {
			c := color.NRGBA{A: 255}
			if (x/4+y/4)%2 == 0 {
				c = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// Re-running on a still-flagged object blurs it again; there is no double-processing guard.
func TestModeratorBlursAgainOnRedelivery(t *testing.T) {
	f := newModerationFixture(t)
	f.classifier.EXPECT().DetectSafeSearch(gomock.Any(), gomock.Any()).Return(classifier.SafeSearch{Adult: true}, nil).Times(2)

	require.NoError(t, f.moderator.Handle(context.Background(), uploadEvent(testObject)))
	require.NoError(t, f.moderator.Handle(context.Background(), uploadEvent(testObject)))

	assert.Equal(t, 2, f.blur.calls)
	assert.Equal(t, 2, f.objects.uploads)
	assert.Equal(t, []byte("original-pixels|blurred|blurred"), f.objects.get(testObject))
	assert.True(t, f.messages.all()[0].Moderated)
}

func TestMessageIDFromPath(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "uid/mid/file.png", want: "mid"},
		{path: "12/0190c0de-aaaa/photo.jpeg", want: "0190c0de-aaaa"},
		{path: "file.png", wantErr: true},
		{path: "uid/file.png", wantErr: true},
		{path: "uid//file.png", wantErr: true},
		{path: "a/b/c/d.png", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := MessageIDFromPath(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRunStepsStopsAtFirstFailure(t *testing.T) {
	var ran []string
	boom := errors.New("boom")
	mk := func(name string, err error) step {
		return step{name, func(context.Context) error {
			ran = append(ran, name)
			return err
		}}
	}

	err := runSteps(context.Background(), mk("one", nil), mk("two", boom), mk("three", nil))

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"one", "two"}, ran)
	assert.Equal(t, "two: boom", err.Error())
}
