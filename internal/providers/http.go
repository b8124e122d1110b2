package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// postJSON issues a JSON POST and decodes the response body into out. The
// returned errors are already classified as adapter errors.
func postJSON(ctx context.Context, client *http.Client, provider, endpoint string, decorate func(*http.Request), payload any, out any) error {
	if endpoint == "" {
		return &Error{Provider: provider, Kind: KindUnavailable, Err: errors.New("empty endpoint")}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return &Error{Provider: provider, Kind: KindInvalidInput, Err: fmt.Errorf("marshal payload: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return &Error{Provider: provider, Kind: KindUnavailable, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if decorate != nil {
		decorate(req)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &Error{Provider: provider, Kind: classifyTransport(err), Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusBadRequest:
		return &Error{Provider: provider, Kind: KindInvalidInput, Err: fmt.Errorf("provider rejected input: %s", resp.Status)}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &Error{Provider: provider, Kind: KindUnavailable, Err: fmt.Errorf("provider returned %s", resp.Status)}
	default:
		return &Error{Provider: provider, Kind: KindUnavailable, Err: fmt.Errorf("unexpected status %s", resp.Status)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{Provider: provider, Kind: KindUnavailable, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func classifyTransport(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindUnavailable
}
