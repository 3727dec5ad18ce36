// Package directory provides the remote directory lookup client: a batched
// query endpoint that reports which phone numbers belong to registered
// users and returns their public identity.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/time/rate"

	"github.com/contact-sync/internal/config"
	"github.com/contact-sync/internal/logging"
	"github.com/contact-sync/internal/retry"
	"github.com/contact-sync/internal/types"
)

// Client is the remote directory lookup contract. Unmatched numbers are
// simply absent from the result, not flagged.
type Client interface {
	LookupPhones(ctx context.Context, phones []string) ([]types.DirectoryMember, error)
}

// HTTPClient queries the directory service over HTTP. Requests are rate
// limited client-side and retried with exponential backoff on transport
// errors and 5xx responses.
type HTTPClient struct {
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	retryCfg *retry.RetryConfig
}

// NewHTTPClient creates a directory client from configuration
func NewHTTPClient(cfg *config.DirectoryConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter:  rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		retryCfg: retry.DefaultRetryConfig(),
	}
}

// lookupRequest is the wire format for a batched lookup
type lookupRequest struct {
	PhoneNumbers []string `json:"phoneNumbers"`
}

// lookupResponse is the wire format for a lookup result
type lookupResponse struct {
	Members []types.DirectoryMember `json:"members"`
}

// permanentError marks a response that must not be retried
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// LookupPhones submits one batch of raw phone numbers and returns the
// members the directory recognized
func (c *HTTPClient) LookupPhones(ctx context.Context, phones []string) ([]types.DirectoryMember, error) {
	if len(phones) == 0 {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var members []types.DirectoryMember
	var permanent error

	result := retry.WithExponentialBackoff(ctx, c.retryCfg, func(ctx context.Context, attempt int) error {
		got, err := c.doLookup(ctx, phones)
		if err != nil {
			var perm *permanentError
			if pe, ok := err.(*permanentError); ok {
				perm = pe
			}
			if perm != nil {
				// Stop retrying; surface the error after the loop
				permanent = perm.err
				return nil
			}
			return err
		}
		members = got
		return nil
	})

	if permanent != nil {
		return nil, permanent
	}
	if !result.Success {
		return nil, fmt.Errorf("directory lookup failed: %w", result.LastError)
	}

	return c.filterMembers(ctx, members), nil
}

// doLookup performs a single lookup request
func (c *HTTPClient) doLookup(ctx context.Context, phones []string) ([]types.DirectoryMember, error) {
	body, err := json.Marshal(&lookupRequest{PhoneNumbers: phones})
	if err != nil {
		return nil, &permanentError{err: fmt.Errorf("failed to encode lookup request: %w", err)}
	}

	url := c.baseURL + "/v1/directory/lookup"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &permanentError{err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("directory returned status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &permanentError{err: fmt.Errorf("directory returned status %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var decoded lookupResponse
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, &permanentError{err: fmt.Errorf("failed to decode lookup response: %w", err)}
	}

	return decoded.Members, nil
}

// filterMembers drops entries whose identity is incomplete or whose wallet
// address is malformed. A half-populated identity must never reach the
// reconciliation engine.
func (c *HTTPClient) filterMembers(ctx context.Context, members []types.DirectoryMember) []types.DirectoryMember {
	logger := logging.FromContext(ctx)

	out := make([]types.DirectoryMember, 0, len(members))
	for _, m := range members {
		if m.PhoneNumber == "" || m.UserID == "" || m.Handle == "" || m.WalletAddress == "" {
			logger.WithField("phone", m.PhoneNumber).Warn("Dropping directory member with incomplete identity")
			continue
		}
		if !common.IsHexAddress(m.WalletAddress) {
			logger.WithFields(map[string]interface{}{
				"phone":  m.PhoneNumber,
				"wallet": m.WalletAddress,
			}).Warn("Dropping directory member with malformed wallet address")
			continue
		}
		out = append(out, m)
	}
	return out
}
