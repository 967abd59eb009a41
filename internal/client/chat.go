package client

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/friendlychat-server/internal/proto"
)

const imageCommand = "/image "

// Chat is an interactive terminal session: it prints the live feed and turns
// input lines into messages.
type Chat struct {
	client *Client
	out    io.Writer
	mu     sync.Mutex
	log    *zerolog.Logger
}

// NewChat builds a chat session for a signed-in client.
func NewChat(c *Client, out io.Writer, logger *zerolog.Logger) *Chat {
	return &Chat{client: c, out: out, log: logger}
}

// Run subscribes to the feed and sends each line read from in until in is
// exhausted or ctx ends. Plain lines are text messages; "/image PATH" uploads a file.
func (ch *Chat) Run(ctx context.Context, in io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	subErr := make(chan error, 1)
	go func() {
		subErr <- ch.client.Subscribe(ctx, ch.print)
		cancel()
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

loop:
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				break loop
			}
			ch.send(ctx, strings.TrimSpace(line))
		case <-ctx.Done():
			break loop
		}
	}

	cancel()
	if err := <-subErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (ch *Chat) send(ctx context.Context, line string) {
	if line == "" {
		return
	}

	var err error
	if path, ok := strings.CutPrefix(line, imageCommand); ok {
		_, err = ch.client.SendImage(ctx, strings.TrimSpace(path))
	} else {
		_, err = ch.client.SendText(ctx, line)
	}
	if err != nil {
		ch.log.Error().Err(err).Msg("message not sent")
		ch.printf("! %v\n", err)
	}
}

func (ch *Chat) print(out proto.Outbound) {
	ch.printf("%s\n", FormatMessage(out))
}

func (ch *Chat) printf(format string, args ...any) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	fmt.Fprintf(ch.out, format, args...)
}

// FormatMessage renders one feed frame as a terminal line.
func FormatMessage(out proto.Outbound) string {
	m := out.Data
	ts := time.UnixMilli(m.TS).Format("15:04")

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: ", ts, m.Name)
	switch {
	case m.Text != "":
		b.WriteString(m.Text)
	case m.ImageURL != "":
		b.WriteString("[image] " + m.ImageURL)
	}
	if m.Moderated {
		b.WriteString(" (blurred)")
	}
	if out.Event == proto.EventChildChanged {
		b.WriteString(" (updated)")
	}
	return b.String()
}
