// Package captcha verifies contact form tokens against a siteverify endpoint.
package captcha

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dsautocare/site/internal/errors"
)

// Verifier checks a client-supplied token.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// NopVerifier accepts every token. Used when no secret is configured.
type NopVerifier struct{}

// Verify always succeeds.
func (NopVerifier) Verify(context.Context, string, string) error { return nil }

// SiteVerifier posts tokens to a reCAPTCHA-compatible siteverify URL.
type SiteVerifier struct {
	Secret   string
	URL      string
	MinScore float64 // ignored when zero or when the provider returns no score
	Client   *http.Client
}

// NewSiteVerifier returns a verifier with a bounded HTTP timeout.
func NewSiteVerifier(secret, verifyURL string, minScore float64) *SiteVerifier {
	return &SiteVerifier{
		Secret:   secret,
		URL:      verifyURL,
		MinScore: minScore,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	Score      *float64 `json:"score,omitempty"`
	Action     string   `json:"action,omitempty"`
	ErrorCodes []string `json:"error-codes,omitempty"`
}

// Verify rejects blank tokens, tokens the provider reports as invalid, and
// scores below MinScore. Provider outages fail closed.
func (v *SiteVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	if strings.TrimSpace(token) == "" {
		return errors.NewVerificationFailed("missing token")
	}

	form := url.Values{"secret": {v.Secret}, "response": {token}}
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.NewInternal(fmt.Errorf("build siteverify request: %w", err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		slog.Warn("captcha provider unreachable", "error", err)
		return errors.NewVerificationFailed("provider unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		slog.Warn("captcha provider error", "status", resp.StatusCode)
		return errors.NewVerificationFailed("provider unavailable")
	}

	var result siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return errors.NewVerificationFailed("malformed provider response")
	}

	if !result.Success {
		reason := "rejected"
		if len(result.ErrorCodes) > 0 {
			reason = strings.Join(result.ErrorCodes, ",")
		}
		return errors.NewVerificationFailed(reason)
	}
	if v.MinScore > 0 && result.Score != nil && *result.Score < v.MinScore {
		return errors.NewVerificationFailed(fmt.Sprintf("score %.2f below %.2f", *result.Score, v.MinScore))
	}
	return nil
}
