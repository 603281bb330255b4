package voice

import (
	"context"
	"errors"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultBaseURL = "https://api.elevenlabs.io"

// ElevenLabs fetches signed conversation URLs for a configured agent.
type ElevenLabs struct {
	http    *resty.Client
	agentID string
}

func NewElevenLabs(apiKey, agentID, baseURL string) *ElevenLabs {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("xi-api-key", apiKey)
	return &ElevenLabs{http: c, agentID: agentID}
}

func (e *ElevenLabs) SignedSessionURL(ctx context.Context) (string, error) {
	var out struct {
		SignedURL string `json:"signed_url"`
	}

	resp, err := e.http.R().
		SetContext(ctx).
		SetQueryParam("agent_id", e.agentID).
		SetResult(&out).
		Get("/v1/convai/conversation/get_signed_url")
	if err != nil {
		return "", err
	}
	if !resp.IsSuccess() {
		return "", errors.New("signed url request failed: " + resp.Status())
	}
	if out.SignedURL == "" {
		return "", errors.New("signed url response missing signed_url")
	}
	return out.SignedURL, nil
}
