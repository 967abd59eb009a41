package client

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logpkg "github.com/vovakirdan/friendlychat-server/internal/log"
	"github.com/vovakirdan/friendlychat-server/internal/proto"
)

const testToken = "tok-123"

// fakeServer records what the client sends and pushes frames to subscribers.
type fakeServer struct {
	mu      sync.Mutex
	texts   []string
	uploads []string
	devices []string
	feed    chan proto.Outbound
}

func newFakeServer(t *testing.T) (*fakeServer, *httptest.Server) {
	t.Helper()

	fs := &fakeServer{feed: make(chan proto.Outbound, 8)}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/guest", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, authResponse{Token: testToken, User: User{ID: 7, IsGuest: true}})
	})
	mux.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "password123" {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid credentials"})
			return
		}
		writeJSON(w, http.StatusOK, authResponse{Token: testToken, User: User{ID: 1, Username: body["username"], DisplayName: "Ada"}})
	})
	mux.HandleFunc("POST /api/messages", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		fs.mu.Lock()
		fs.texts = append(fs.texts, body["text"])
		fs.mu.Unlock()
		msg := &proto.Message{ID: "m1", Name: "Ada", Text: body["text"]}
		fs.feed <- proto.Outbound{Type: proto.OutboundTypeEvent, Event: proto.EventChildAdded, Data: msg}
		writeJSON(w, http.StatusCreated, msg)
	})
	mux.HandleFunc("POST /api/messages/image", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		_, header, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "file is required"})
			return
		}
		fs.mu.Lock()
		fs.uploads = append(fs.uploads, header.Filename)
		fs.mu.Unlock()
		writeJSON(w, http.StatusCreated, proto.Message{ID: "m2", Name: "Ada", ImageURL: "/objects/1/m2/" + header.Filename})
	})
	mux.HandleFunc("POST /api/tokens", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		fs.mu.Lock()
		fs.devices = append(fs.devices, body["token"])
		fs.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("GET /api/messages", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		writeJSON(w, http.StatusOK, []proto.Message{{ID: "a", Text: "one"}, {ID: "b", Text: "two"}})
	})
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != testToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		for {
			select {
			case out, ok := <-fs.feed:
				if !ok {
					return
				}
				if err := wsjson.Write(r.Context(), conn, out); err != nil {
					return
				}
			case <-r.Context().Done():
				return
			}
		}
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return fs, ts
}

func authorized(w http.ResponseWriter, r *http.Request) bool {
	if r.Header.Get("Authorization") != "Bearer "+testToken {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "invalid token"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writePNG(t *testing.T, dir, name string) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 2, 2))))
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, buf.Bytes(), 0o600))
	return p
}

func TestCallsRequireSignIn(t *testing.T) {
	_, ts := newFakeServer(t)
	c := New(ts.URL, time.Second)

	_, err := c.SendText(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrSignedOut)
	assert.ErrorIs(t, c.Subscribe(context.Background(), func(proto.Outbound) {}), ErrSignedOut)
}

func TestLoginFailureIsAPIError(t *testing.T) {
	_, ts := newFakeServer(t)
	c := New(ts.URL, time.Second)

	err := c.Login(context.Background(), "ada", "wrong")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid credentials", apiErr.Message)
}

func TestSignedInCalls(t *testing.T) {
	fs, ts := newFakeServer(t)
	c := New(ts.URL+"/", time.Second)
	ctx := context.Background()

	require.NoError(t, c.Login(ctx, "ada", "password123"))
	assert.Equal(t, "Ada", c.User().DisplayName)

	require.NoError(t, c.RegisterDevice(ctx, "device-1"))

	msg, err := c.SendText(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Text)

	img, err := c.SendImage(ctx, writePNG(t, t.TempDir(), "cat.png"))
	require.NoError(t, err)
	assert.Equal(t, "/objects/1/m2/cat.png", img.ImageURL)

	history, err := c.History(ctx, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "two", history[1].Text)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Equal(t, []string{"device-1"}, fs.devices)
	assert.Equal(t, []string{"hello"}, fs.texts)
	assert.Equal(t, []string{"cat.png"}, fs.uploads)
}

func TestSendImageRejectsNonImages(t *testing.T) {
	fs, ts := newFakeServer(t)
	c := New(ts.URL, time.Second)
	require.NoError(t, c.Guest(context.Background()))

	p := filepath.Join(t.TempDir(), "notes.png")
	require.NoError(t, os.WriteFile(p, []byte("plain text"), 0o600))

	_, err := c.SendImage(context.Background(), p)
	assert.ErrorIs(t, err, ErrNotImage)
	assert.Empty(t, fs.uploads)
}

func TestChatSendsLinesAndPrintsFeed(t *testing.T) {
	fs, ts := newFakeServer(t)
	c := New(ts.URL, time.Second)
	require.NoError(t, c.Guest(context.Background()))

	var out syncBuffer
	chat := NewChat(c, &out, logpkg.Nop())

	// The pipe stays open until the echoed message shows up in the output.
	pr, pw := io.Pipe()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chat.Run(ctx, pr) }()

	_, err := io.WriteString(pw, "hello there\n\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Ada: hello there")
	}, 3*time.Second, 10*time.Millisecond)

	require.NoError(t, pw.Close())
	require.NoError(t, <-done)

	fs.mu.Lock()
	defer fs.mu.Unlock()
	assert.Equal(t, []string{"hello there"}, fs.texts)
}

func TestFormatMessage(t *testing.T) {
	img := FormatMessage(proto.Outbound{
		Event: proto.EventChildChanged,
		Data:  &proto.Message{Name: "Bob", ImageURL: "/objects/1/m/cat.png", Moderated: true},
	})
	assert.True(t, strings.HasSuffix(img, "Bob: [image] /objects/1/m/cat.png (blurred) (updated)"), img)

	text := FormatMessage(proto.Outbound{
		Event: proto.EventChildAdded,
		Data:  &proto.Message{Name: "Ada", Text: "hi"},
	})
	assert.True(t, strings.HasSuffix(text, "Ada: hi"), text)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
