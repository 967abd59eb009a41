package http

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vovakirdan/friendlychat-server/internal/auth"
	"github.com/vovakirdan/friendlychat-server/internal/config"
	"github.com/vovakirdan/friendlychat-server/internal/core"
	logpkg "github.com/vovakirdan/friendlychat-server/internal/log"
	"github.com/vovakirdan/friendlychat-server/internal/objectstore"
	"github.com/vovakirdan/friendlychat-server/internal/platform"
	"github.com/vovakirdan/friendlychat-server/internal/store/sqlite"
)

type testEnv struct {
	ts       *httptest.Server
	auth     *auth.Service
	db       *platform.Database
	triggers *platform.Dispatcher
}

// newTestEnv serves the full API over an in-memory store and a temp-dir bucket.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := logpkg.Nop()

	st, err := sqlite.NewWithSetup(":memory:", sqlite.ApplySchema)
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	bucket, err := objectstore.New("friendlychat", t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	hub := core.NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	triggers := platform.NewDispatcher(time.Second, 0, logger)
	t.Cleanup(func() { _ = triggers.Stop(context.Background()) })

	db := platform.NewDatabase(st, hub, triggers)
	authService := auth.NewService(db, &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "test",
		Audience: "test",
		TTL:      time.Hour,
	})

	cfg := config.Default()
	cfg.MaxUploadBytes = 1 << 20

	server := NewServer(Deps{
		Hub:     hub,
		Auth:    authService,
		Store:   db,
		Objects: platform.NewStorage(bucket, triggers),
	}, &cfg, logger)

	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, auth: authService, db: db, triggers: triggers}
}

func (e *testEnv) register(t *testing.T, username, displayName string) *auth.Session {
	t.Helper()

	sess, err := e.auth.Register(context.Background(), username, "password123", displayName, "")
	if err != nil {
		t.Fatalf("failed to register %s: %v", username, err)
	}
	return sess
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.ts.URL+path, &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (e *testEnv) upload(t *testing.T, token, filename string, content []byte) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, e.ts.URL+"/api/messages/image", &buf)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := e.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func testPNG(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for x := range 4 {
		for y := range 4 {
			img.Set(x, y, color.RGBA{R: uint8(x * 60), G: uint8(y * 60), B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
