package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type Client struct {
	url  string
	http *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url: url,
		http: &http.Client{
			Timeout: timeout,
		},
	}
}

type Receipt struct {
	UserID         int64  `json:"user_id"`
	TxHash         string `json:"tx_hash"`
	MarketQuestion string `json:"market_question"`
}

// Notify tells the bot backend a transaction landed for the user.
func (c *Client) Notify(ctx context.Context, userID int64, txHash string, marketQuestion string) error {
	body, err := json.Marshal(Receipt{
		UserID:         userID,
		TxHash:         txHash,
		MarketQuestion: marketQuestion,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal receipt: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make http call: %w", err)
	}
	defer func() {
		_ = res.Body.Close()
	}()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("notify endpoint returned %d: %s", res.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
