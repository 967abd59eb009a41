package functions

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/vovakirdan/friendlychat-server/internal/store"
)

// memObjects keeps objects in memory and downloads them into a temp dir.
type memObjects struct {
	mu        sync.Mutex
	dir       string
	objects   map[string][]byte
	uploads   int
	uploadErr error
}

func newMemObjects(t *testing.T) *memObjects {
	t.Helper()
	return &memObjects{dir: t.TempDir(), objects: make(map[string][]byte)}
}

func (m *memObjects) Download(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.objects[name]
	if !ok {
		return "", errors.New("no such object")
	}
	dir, err := os.MkdirTemp(m.dir, "dl-")
	if err != nil {
		return "", err
	}
	local := filepath.Join(dir, filepath.Base(name))
	return local, os.WriteFile(local, data, 0o600)
}

func (m *memObjects) Upload(_ context.Context, localPath, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.uploadErr != nil {
		return m.uploadErr
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	m.objects[name] = data
	m.uploads++
	return nil
}

func (m *memObjects) get(name string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.objects[name]...)
}

// suffixBlur is a visibly non-identity transform: it appends a marker to the file.
type suffixBlur struct {
	calls int
}

func (b *suffixBlur) Blur(_ context.Context, localPath string) (string, error) {
	b.calls++
	f, err := os.OpenFile(localPath, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return "", err
	}
	defer f.Close()
	_, err = f.Write([]byte("|blurred"))
	return localPath, err
}

// memMessages is an in-memory message log.
type memMessages struct {
	mu        sync.Mutex
	seq       int
	order     []string
	messages  map[string]*store.Message
	updates   int
	createErr error
}

func newMemMessages() *memMessages {
	return &memMessages{messages: make(map[string]*store.Message)}
}

func (m *memMessages) CreateMessage(_ context.Context, msg *store.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	m.seq++
	if msg.ID == "" {
		msg.ID = "msg-" + string(rune('a'+m.seq-1))
	}
	cp := *msg
	m.messages[msg.ID] = &cp
	m.order = append(m.order, msg.ID)
	return nil
}

func (m *memMessages) UpdateMessage(_ context.Context, id string, patch store.MessagePatch) (*store.Message, *store.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.messages[id]
	if !ok {
		return nil, nil, store.ErrNotFound
	}
	before := *cur
	if patch.ImageURL != nil {
		cur.ImageURL = *patch.ImageURL
	}
	if patch.Moderated != nil {
		cur.Moderated = *patch.Moderated
	}
	m.updates++
	after := *cur
	return &before, &after, nil
}

func (m *memMessages) all() []store.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]store.Message, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.messages[id])
	}
	return out
}

// memTokens is an in-memory device token registry.
type memTokens struct {
	mu       sync.Mutex
	tokens   map[string]int64
	listErr  error
	onDelete func(ctx context.Context, token string) error
}

func newMemTokens(tokens ...string) *memTokens {
	m := &memTokens{tokens: make(map[string]int64)}
	for i, tok := range tokens {
		m.tokens[tok] = int64(i + 1)
	}
	return m
}

func (m *memTokens) ListTokens(context.Context) ([]*store.DeviceToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*store.DeviceToken, 0, len(m.tokens))
	for tok, uid := range m.tokens {
		out = append(out, &store.DeviceToken{Token: tok, UserID: uid})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}

func (m *memTokens) DeleteToken(ctx context.Context, token string) error {
	if m.onDelete != nil {
		if err := m.onDelete(ctx, token); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
	return nil
}

func (m *memTokens) names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.tokens))
	for tok := range m.tokens {
		out = append(out, tok)
	}
	sort.Strings(out)
	return out
}
