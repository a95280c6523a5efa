package telephony

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"baitboard/internal/config"
)

// Client is the minimal provider REST surface this service needs: pulling
// recording audio. Credentials ride as HTTP basic auth, per the provider's
// API contract.
type Client struct {
	accountSID string
	authToken  string
	httpClient *http.Client
}

func NewClient(cfg config.TwilioConfig) *Client {
	return &Client{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// FetchRecording downloads the audio behind a RecordingUrl. The provider
// serves mp3 when the URL carries the extension; callbacks deliver the URL
// without one.
func (c *Client) FetchRecording(ctx context.Context, recordingURL string) (io.ReadCloser, string, error) {
	if recordingURL == "" {
		return nil, "", fmt.Errorf("telephony: recording url is empty")
	}
	if !strings.HasSuffix(recordingURL, ".mp3") {
		recordingURL += ".mp3"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, recordingURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("telephony: recording fetch: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, "", fmt.Errorf("telephony: recording fetch returned %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "audio/mpeg"
	}
	return resp.Body, contentType, nil
}
