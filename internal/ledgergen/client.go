package ledgergen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/vists/internal/adapters/sheet"
	"github.com/okian/vists/internal/domain/model"
	"github.com/okian/vists/internal/domain/types"
	"github.com/okian/vists/pkg/logger"
)

const defaultPollInterval = 200 * time.Millisecond

// Client talks to a running vists HTTP service.
type Client struct {
	baseURL      string
	http         *http.Client
	pollInterval time.Duration
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:      baseURL,
		http:         &http.Client{Timeout: timeout},
		pollInterval: defaultPollInterval,
	}
}

// Submit posts table as CSV to /ledger.
func (c *Client) Submit(ctx context.Context, table model.Table) (types.Submission, error) {
	var body bytes.Buffer
	if err := sheet.WriteTable(&body, table); err != nil {
		return types.Submission{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ledger", &body)
	if err != nil {
		return types.Submission{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/csv")

	var sub types.Submission
	if err := c.do(req, &sub, http.StatusAccepted, http.StatusOK); err != nil {
		return types.Submission{}, err
	}
	return sub, nil
}

// Run fetches the status of one run.
func (c *Client) Run(ctx context.Context, id string) (types.Run, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/runs/"+url.PathEscape(id), http.NoBody)
	if err != nil {
		return types.Run{}, fmt.Errorf("failed to create request: %w", err)
	}
	var run types.Run
	if err := c.do(req, &run, http.StatusOK); err != nil {
		return types.Run{}, err
	}
	return run, nil
}

// WaitRun polls a run until it is done or failed.
func (c *Client) WaitRun(ctx context.Context, id string) (types.Run, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		run, err := c.Run(ctx, id)
		if err != nil {
			return types.Run{}, err
		}
		switch run.State {
		case types.RunDone:
			return run, nil
		case types.RunFailed:
			return run, fmt.Errorf("%w: %s", ErrRunFailed, run.Error)
		}
		select {
		case <-ctx.Done():
			return types.Run{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Leaderboard fetches the top n standings.
func (c *Client) Leaderboard(ctx context.Context, n int) ([]types.Standing, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/leaderboard?limit=%d", c.baseURL, n), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	var out []types.Standing
	if err := c.do(req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(req *http.Request, out any, accept ...int) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	for _, code := range accept {
		if resp.StatusCode == code {
			return json.Unmarshal(data, out)
		}
	}
	logger.Get().Debug(req.Context(), "unexpected response",
		logger.String("url", req.URL.String()),
		logger.Int("status", resp.StatusCode),
	)
	return fmt.Errorf("%w: %s %s: %d %s", ErrUnexpectedStatus, req.Method, req.URL.Path, resp.StatusCode, bytes.TrimSpace(data))
}
