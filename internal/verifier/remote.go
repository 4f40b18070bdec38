package verifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sflowg/workflow-compiler/internal/codegen"
)

// RemoteConfig configures a Remote verifier.
type RemoteConfig struct {
	URL         string
	Timeout     time.Duration
	MaxRetries  int
	RetryWaitMS int
	Debug       bool
}

// Remote delegates verification to an HTTP checker service that accepts
// the bundle files and answers with a Result.
type Remote struct {
	endpoint string
	client   *resty.Client
}

type remoteFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type remoteRequest struct {
	Files []remoteFile `json:"files"`
}

// NewRemote builds a client for the service at cfg.URL.
func NewRemote(cfg RemoteConfig) *Remote {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(time.Duration(cfg.RetryWaitMS) * time.Millisecond).
		SetDebug(cfg.Debug).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500 || r.StatusCode() == 429
		})

	return &Remote{
		endpoint: strings.TrimRight(cfg.URL, "/") + "/verify",
		client:   client,
	}
}

// Verify posts the bundle and decodes the service's verdict.
func (r *Remote) Verify(ctx context.Context, b *codegen.Bundle) (*Result, error) {
	start := time.Now()

	req := remoteRequest{}
	for _, f := range b.Files() {
		req.Files = append(req.Files, remoteFile{Path: f.Path, Content: f.Content})
	}

	result := &Result{}
	errorResponse := map[string]any{}
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(result).
		SetError(&errorResponse).
		Post(r.endpoint)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("verification request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("verification service returned %s: %v", resp.Status(), errorResponse)
	}

	if result.DurationMs == 0 {
		result.DurationMs = time.Since(start).Milliseconds()
	}
	reported := result.Success
	result.settle()
	result.Success = result.Success && reported
	return result, nil
}
