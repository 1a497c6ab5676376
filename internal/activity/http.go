package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.temporal.io/sdk/temporal"
)

// postJSON sends body to url. 2xx succeeds, 4xx is a non-retryable
// CLIENT_ERROR and 5xx or transport errors are retried by Temporal.
func postJSON(ctx context.Context, client *http.Client, url string, body any, header http.Header) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return temporal.NewNonRetryableApplicationError("marshal payload", "MARSHAL_ERROR", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return temporal.NewNonRetryableApplicationError("create request", "REQUEST_ERROR", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", url, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("POST %s returned %d", url, resp.StatusCode), "CLIENT_ERROR", nil)
	}
	return fmt.Errorf("POST %s returned %d", url, resp.StatusCode)
}
