// Package billing fires the post-purchase invoice trigger.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Trigger POSTs {"user_id": ...} to the billing endpoint.
type Trigger struct {
	URL    string
	Client *http.Client
}

func New(url string, c *http.Client) *Trigger {
	if c == nil {
		c = &http.Client{Timeout: 20 * time.Second}
	}
	return &Trigger{URL: url, Client: c}
}

// Fire sends the trigger once. An empty URL disables it.
func (t *Trigger) Fire(ctx context.Context, userID string) error {
	if t.URL == "" {
		return nil
	}
	if userID == "" {
		return fmt.Errorf("billing: user id is empty")
	}
	body, err := json.Marshal(map[string]string{"user_id": userID})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.Client.Do(req)
	if err != nil {
		return fmt.Errorf("billing trigger: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("billing trigger: status %d, body: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
