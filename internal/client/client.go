// Package client talks to a FriendlyChat server: REST for sign-in and posting,
// a WebSocket subscription for the live message feed.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"

	"github.com/vovakirdan/friendlychat-server/internal/proto"
)

var (
	// ErrNotImage is returned by SendImage for files that are not images.
	ErrNotImage = errors.New("you can only share images")
	// ErrSignedOut is returned by calls that need a session before one exists.
	ErrSignedOut = errors.New("you must sign in first")
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// User is the signed-in profile.
type User struct {
	ID          int64  `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	PhotoURL    string `json:"photo_url,omitempty"`
	IsGuest     bool   `json:"is_guest"`
}

type authResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Client is a signed-in (or not yet signed-in) chat user.
type Client struct {
	baseURL string
	rest    *resty.Client
	token   string
	user    User
}

// New builds a client for the server at baseURL (http or https).
func New(baseURL string, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL: baseURL,
		rest: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(timeout).
			SetHeader("Accept", "application/json"),
	}
}

// User returns the signed-in profile.
func (c *Client) User() User {
	return c.user
}

// Register creates an account and signs in with it.
func (c *Client) Register(ctx context.Context, username, password, displayName string) error {
	return c.signIn(ctx, "/api/register", map[string]string{
		"username":     username,
		"password":     password,
		"display_name": displayName,
	})
}

// Login signs in with an existing account.
func (c *Client) Login(ctx context.Context, username, password string) error {
	return c.signIn(ctx, "/api/login", map[string]string{
		"username": username,
		"password": password,
	})
}

// Guest signs in anonymously.
func (c *Client) Guest(ctx context.Context) error {
	return c.signIn(ctx, "/api/guest", nil)
}

func (c *Client) signIn(ctx context.Context, path string, body any) error {
	var out authResponse
	req := c.rest.R().SetContext(ctx).SetResult(&out).SetError(&errorResponse{})
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Post(path)
	if err := check(resp, err); err != nil {
		return fmt.Errorf("sign in: %w", err)
	}
	c.token = out.Token
	c.user = out.User
	return nil
}

// RegisterDevice stores a push token for the signed-in user.
func (c *Client) RegisterDevice(ctx context.Context, token string) error {
	req, err := c.authed(ctx)
	if err != nil {
		return err
	}
	resp, err := req.SetBody(map[string]string{"token": token}).Post("/api/tokens")
	if err := check(resp, err); err != nil {
		return fmt.Errorf("register device: %w", err)
	}
	return nil
}

// History returns up to limit of the newest messages, oldest first.
func (c *Client) History(ctx context.Context, limit int) ([]proto.Message, error) {
	req, err := c.authed(ctx)
	if err != nil {
		return nil, err
	}
	var out []proto.Message
	resp, err := req.SetQueryParam("limit", fmt.Sprint(limit)).SetResult(&out).Get("/api/messages")
	if err := check(resp, err); err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return out, nil
}

// SendText posts a text message.
func (c *Client) SendText(ctx context.Context, text string) (*proto.Message, error) {
	req, err := c.authed(ctx)
	if err != nil {
		return nil, err
	}
	var out proto.Message
	resp, err := req.SetBody(map[string]string{"text": text}).SetResult(&out).Post("/api/messages")
	if err := check(resp, err); err != nil {
		return nil, fmt.Errorf("send text: %w", err)
	}
	return &out, nil
}

// SendImage uploads the image at path as a new message.
func (c *Client) SendImage(ctx context.Context, path string) (*proto.Message, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, ErrNotImage
	}

	req, err := c.authed(ctx)
	if err != nil {
		return nil, err
	}
	var out proto.Message
	resp, err := req.SetFile("file", path).SetResult(&out).Post("/api/messages/image")
	if err := check(resp, err); err != nil {
		return nil, fmt.Errorf("send image: %w", err)
	}
	return &out, nil
}

// Subscribe streams child_added and child_changed frames to fn until ctx ends or
// the server closes the connection. The server replays recent history first.
func (c *Client) Subscribe(ctx context.Context, fn func(proto.Outbound)) error {
	if c.token == "" {
		return ErrSignedOut
	}

	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws?token=" + c.token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	for {
		var out proto.Outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		if out.Type == proto.OutboundTypeEvent && out.Data != nil {
			fn(out)
		}
	}
}

func (c *Client) authed(ctx context.Context) (*resty.Request, error) {
	if c.token == "" {
		return nil, ErrSignedOut
	}
	return c.rest.R().SetContext(ctx).SetAuthToken(c.token).SetError(&errorResponse{}), nil
}

func check(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		apiErr := &APIError{Status: resp.StatusCode()}
		if body, ok := resp.Error().(*errorResponse); ok {
			apiErr.Message = body.Error
		}
		return apiErr
	}
	return nil
}
