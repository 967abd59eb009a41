// Package messaging delivers push notifications to device tokens.
package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// FailureKind classifies a per-token delivery failure.
type FailureKind int

const (
	// FailureNone means the token accepted the message.
	FailureNone FailureKind = iota
	// FailureInvalidToken means the token is malformed or was never valid.
	FailureInvalidToken
	// FailureTokenNotRegistered means the install behind the token is gone.
	FailureTokenNotRegistered
	// FailureUnavailable is a transient provider-side failure.
	FailureUnavailable
	// FailureOther covers every remaining provider error.
	FailureOther
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureInvalidToken:
		return "invalid-registration-token"
	case FailureTokenNotRegistered:
		return "registration-token-not-registered"
	case FailureUnavailable:
		return "unavailable"
	case FailureOther:
		return "other"
	}
	return fmt.Sprintf("FailureKind(%d)", int(k))
}

// Notification is the visible part of a push message.
type Notification struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	Icon        string `json:"icon"`
	ClickAction string `json:"click_action"`
}

// Result is the outcome for one token, in request order.
type Result struct {
	Token     string
	MessageID string
	Failure   FailureKind
	// Code is the raw provider error code, empty on success.
	Code string
}

// Failed reports whether delivery to the token failed.
func (r Result) Failed() bool {
	return r.Failure != FailureNone
}

// failureFromCode maps legacy FCM result codes onto FailureKind.
func failureFromCode(code string) FailureKind {
	switch code {
	case "":
		return FailureNone
	case "InvalidRegistration", "MissingRegistration":
		return FailureInvalidToken
	case "NotRegistered":
		return FailureTokenNotRegistered
	case "Unavailable", "InternalServerError", "DeviceMessageRateExceeded":
		return FailureUnavailable
	default:
		return FailureOther
	}
}

type sendRequest struct {
	RegistrationIDs []string     `json:"registration_ids"`
	Notification    Notification `json:"notification"`
}

type sendResponse struct {
	MulticastID int64 `json:"multicast_id"`
	Success     int   `json:"success"`
	Failure     int   `json:"failure"`
	Results     []struct {
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	} `json:"results"`
}

// FCMClient sends through the FCM HTTP endpoint, one batched request per call.
type FCMClient struct {
	http *resty.Client
}

// NewFCMClient builds a client authenticated with a server key.
func NewFCMClient(endpoint, serverKey string, timeout time.Duration) *FCMClient {
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Authorization", "key="+serverKey)

	return &FCMClient{http: client}
}

// SendToDevices delivers n to every token and returns one result per token.
func (c *FCMClient) SendToDevices(ctx context.Context, tokens []string, n Notification) ([]Result, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	var out sendResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(sendRequest{RegistrationIDs: tokens, Notification: n}).
		SetResult(&out).
		Post("/fcm/send")
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("send: status %d: %s", resp.StatusCode(), resp.String())
	}
	if len(out.Results) != len(tokens) {
		return nil, fmt.Errorf("send: got %d results for %d tokens", len(out.Results), len(tokens))
	}

	results := make([]Result, len(tokens))
	for i, r := range out.Results {
		results[i] = Result{
			Token:     tokens[i],
			MessageID: r.MessageID,
			Failure:   failureFromCode(r.Error),
			Code:      r.Error,
		}
	}
	return results, nil
}
