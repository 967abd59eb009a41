// Package classifier asks an image-annotation service for a safe-search verdict.
package classifier

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ErrEmptyResponse is returned when the service answers without an annotation.
var ErrEmptyResponse = errors.New("empty safe search annotation")

// ObjectRef addresses an object inside a bucket.
type ObjectRef struct {
	Bucket string
	Name   string
}

// SafeSearch is the verdict for one image.
type SafeSearch struct {
	Adult    bool
	Violence bool
}

// Flagged reports whether the image must be moderated.
func (s SafeSearch) Flagged() bool {
	return s.Adult || s.Violence
}

// ObjectReader loads object bytes so they can be sent inline.
type ObjectReader interface {
	ReadObject(ctx context.Context, name string) ([]byte, error)
}

// Likelihood values reported by the Vision API.
const (
	LikelihoodUnknown      = "UNKNOWN"
	LikelihoodVeryUnlikely = "VERY_UNLIKELY"
	LikelihoodUnlikely     = "UNLIKELY"
	LikelihoodPossible     = "POSSIBLE"
	LikelihoodLikely       = "LIKELY"
	LikelihoodVeryLikely   = "VERY_LIKELY"
)

// likely mirrors the non-verbose client behavior: only LIKELY and VERY_LIKELY count.
func likely(v string) bool {
	return v == LikelihoodLikely || v == LikelihoodVeryLikely
}

type annotateRequest struct {
	Requests []imageRequest `json:"requests"`
}

type imageRequest struct {
	Image    image     `json:"image"`
	Features []feature `json:"features"`
}

type image struct {
	Content string `json:"content"`
}

type feature struct {
	Type string `json:"type"`
}

type annotateResponse struct {
	Responses []struct {
		SafeSearchAnnotation *struct {
			Adult    string `json:"adult"`
			Violence string `json:"violence"`
			Racy     string `json:"racy"`
			Medical  string `json:"medical"`
			Spoof    string `json:"spoof"`
		} `json:"safeSearchAnnotation"`
		Error *apiError `json:"error"`
	} `json:"responses"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error *apiError `json:"error"`
}

// VisionClient calls the images:annotate endpoint with SAFE_SEARCH_DETECTION.
type VisionClient struct {
	http    *resty.Client
	apiKey  string
	objects ObjectReader
}

// NewVisionClient builds a client for the given endpoint, e.g. https://vision.googleapis.com.
func NewVisionClient(endpoint, apiKey string, timeout time.Duration, objects ObjectReader) *VisionClient {
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &VisionClient{
		http:    client,
		apiKey:  apiKey,
		objects: objects,
	}
}

// DetectSafeSearch classifies the referenced object.
func (c *VisionClient) DetectSafeSearch(ctx context.Context, ref ObjectRef) (SafeSearch, error) {
	data, err := c.objects.ReadObject(ctx, ref.Name)
	if err != nil {
		return SafeSearch{}, fmt.Errorf("read object %s: %w", ref.Name, err)
	}

	body := annotateRequest{
		Requests: []imageRequest{{
			Image:    image{Content: base64.StdEncoding.EncodeToString(data)},
			Features: []feature{{Type: "SAFE_SEARCH_DETECTION"}},
		}},
	}

	var out annotateResponse
	var apiErr errorEnvelope
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post("/v1/images:annotate")
	if err != nil {
		return SafeSearch{}, fmt.Errorf("annotate request: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error != nil {
			return SafeSearch{}, fmt.Errorf("annotate: status %d: %s", resp.StatusCode(), apiErr.Error.Message)
		}
		return SafeSearch{}, fmt.Errorf("annotate: status %d", resp.StatusCode())
	}

	if len(out.Responses) == 0 {
		return SafeSearch{}, ErrEmptyResponse
	}
	first := out.Responses[0]
	if first.Error != nil {
		return SafeSearch{}, fmt.Errorf("annotate: %s", first.Error.Message)
	}
	if first.SafeSearchAnnotation == nil {
		return SafeSearch{}, ErrEmptyResponse
	}

	return SafeSearch{
		Adult:    likely(first.SafeSearchAnnotation.Adult),
		Violence: likely(first.SafeSearchAnnotation.Violence),
	}, nil
}
