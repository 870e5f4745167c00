package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"notedrop/internal/catalog"
)

// Client is the opaque blob-store contract: channels addressed by
// normalized negative ids, messages by their channel-local id.
type Client interface {
	GetRecentItems(ctx context.Context, channelID int64, limit int) ([]Item, error)
	SendItem(ctx context.Context, channelID int64, payload io.Reader, name string, caption string) (int64, error)
	DownloadItem(ctx context.Context, channelID int64, messageID int64) (*Content, error)
	JoinChannel(ctx context.Context, channelID int64) error
	LeaveChannel(ctx context.Context, channelID int64) error
}

// BridgeClient talks to the MTProto bridge service over HTTP. One
// long-lived client (pooled transport) is shared by all requests
// instead of reconnecting per request.
type BridgeClient struct {
	baseURL string
	session string
	http    *http.Client
}

type BridgeOptions struct {
	Timeout        time.Duration
	ConnectRetries int
}

// NewBridgeClient builds the client and verifies bridge reachability,
// retrying with exponential backoff up to ConnectRetries times.
func NewBridgeClient(ctx context.Context, baseURL string, session string, opts BridgeOptions) (*BridgeClient, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.ConnectRetries <= 0 {
		opts.ConnectRetries = 5
	}

	c := &BridgeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		session: session,
		http:    &http.Client{Timeout: opts.Timeout},
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(opts.ConnectRetries)),
		ctx,
	)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if pingErr := c.ping(ctx); pingErr != nil {
			slog.Warn("bridge not reachable", "attempt", attempt, "error", pingErr)
			return pingErr
		}
		return nil
	}, policy)
	if err != nil {
		return nil, fmt.Errorf("connect to bridge at %s: %w", baseURL, err)
	}

	slog.Info("bridge connected", "url", c.baseURL)
	return c, nil
}

func (c *BridgeClient) ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bridge health check returned %d", resp.StatusCode)
	}
	return nil
}

func (c *BridgeClient) GetRecentItems(ctx context.Context, channelID int64, limit int) ([]Item, error) {
	channelID = catalog.NormalizeLocationID(channelID)
	path := fmt.Sprintf("/channels/%d/messages?limit=%d", channelID, limit)

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch messages from channel %d: %w", channelID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch messages from channel %d: %s", channelID, readBridgeError(resp))
	}

	var items []Item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode messages from channel %d: %w", channelID, err)
	}
	return items, nil
}

func (c *BridgeClient) SendItem(ctx context.Context, channelID int64, payload io.Reader, name string, caption string) (int64, error) {
	channelID = catalog.NormalizeLocationID(channelID)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return 0, err
	}
	if _, err := io.Copy(part, payload); err != nil {
		return 0, fmt.Errorf("buffer upload payload: %w", err)
	}
	if err := writer.WriteField("caption", caption); err != nil {
		return 0, err
	}
	if err := writer.Close(); err != nil {
		return 0, err
	}

	path := fmt.Sprintf("/channels/%d/files", channelID)
	req, err := c.newRequest(ctx, http.MethodPost, path, &body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("send file to channel %d: %w", channelID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("send file to channel %d: %s", channelID, readBridgeError(resp))
	}

	var result struct {
		MessageID int64 `json:"message_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, fmt.Errorf("decode send result: %w", err)
	}
	if result.MessageID == 0 {
		return 0, fmt.Errorf("bridge returned no message id for channel %d", channelID)
	}
	return result.MessageID, nil
}

func (c *BridgeClient) DownloadItem(ctx context.Context, channelID int64, messageID int64) (*Content, error) {
	channelID = catalog.NormalizeLocationID(channelID)
	path := fmt.Sprintf("/channels/%d/messages/%d/content", channelID, messageID)

	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download message %d from channel %d: %w", messageID, channelID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("message %d not found in channel %d", messageID, channelID)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download message %d from channel %d: %s", messageID, channelID, readBridgeError(resp))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read downloaded payload: %w", err)
	}

	fileName := resp.Header.Get("X-File-Name")
	if fileName == "" {
		fileName = "file_" + strconv.FormatInt(messageID, 10)
	}

	return &Content{
		FileName: fileName,
		MimeType: resp.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

func (c *BridgeClient) JoinChannel(ctx context.Context, channelID int64) error {
	return c.membership(ctx, channelID, "join")
}

func (c *BridgeClient) LeaveChannel(ctx context.Context, channelID int64) error {
	return c.membership(ctx, channelID, "leave")
}

func (c *BridgeClient) membership(ctx context.Context, channelID int64, action string) error {
	channelID = catalog.NormalizeLocationID(channelID)
	path := fmt.Sprintf("/channels/%d/%s", channelID, action)

	req, err := c.newRequest(ctx, http.MethodPost, path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s channel %d: %w", action, channelID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%s channel %d: %s", action, channelID, readBridgeError(resp))
	}
	return nil
}

func (c *BridgeClient) newRequest(ctx context.Context, method string, path string, body io.Reader) (*http.Request, error) {
	target, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("build bridge URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}

	if c.session != "" {
		req.Header.Set("Authorization", "Bearer "+c.session)
	}
	return req, nil
}

func readBridgeError(resp *http.Response) string {
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1024))
	if err != nil || len(bytes.TrimSpace(data)) == 0 {
		return fmt.Sprintf("status %d", resp.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}
