// Package telegram implements the Messenger port with the Telegram Bot API.
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
	"os"
	"path/filepath"
	"time"

	"github.com/ericfisherdev/panelkeeper/internal/domain/port/driven"
	"github.com/ericfisherdev/panelkeeper/internal/domain/redact"
)

// Compile-time interface satisfaction check.
var _ driven.Messenger = (*Client)(nil)

// DefaultBaseURL is the Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

const (
	// Markdown is trimmed before rendering so the resulting HTML stays under
	// the Bot API limits (4096 for messages, 1024 for captions).
	textSourceLimit    = 3800
	captionSourceLimit = 900
)

// Client sends messages to one chat.
type Client struct {
	http    *http.Client
	baseURL string
	token   string
	chatID  string
}

// NewClient creates a Client for the given bot token and chat id.
func NewClient(token, chatID string) *Client {
	return NewClientWithHTTPClient(&http.Client{Timeout: 30 * time.Second}, DefaultBaseURL, token, chatID)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token, chatID string) *Client {
	return &Client{http: httpClient, baseURL: baseURL, token: token, chatID: chatID}
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// SendText posts text as an HTML message.
func (c *Client) SendText(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                c.chatID,
		Text:                  RenderHTML(redact.Truncate(text, textSourceLimit)),
		ParseMode:             "HTML",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("encode sendMessage: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, "sendMessage")
}

// SendPhoto uploads the image at path with text as its HTML caption.
func (c *Client) SendPhoto(ctx context.Context, path, caption string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open photo: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := map[string]string{
		"chat_id":    c.chatID,
		"caption":    RenderHTML(redact.Truncate(caption, captionSourceLimit)),
		"parse_mode": "HTML",
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("write field %s: %w", k, err)
		}
	}
	part, err := w.CreateFormFile("photo", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("create photo part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copy photo: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("sendPhoto"), &buf)
	if err != nil {
		return fmt.Errorf("build sendPhoto request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	return c.do(req, "sendPhoto")
}

func (c *Client) endpoint(method string) string {
	return c.baseURL + "/bot" + c.token + "/" + method
}

// do executes req and maps a non-ok Bot API reply to an error. The token is
// part of the URL, so transport errors are reported without it.
func (c *Client) do(req *http.Request, method string) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return fmt.Errorf("telegram %s: %w", method, ctxErr)
		}
		return fmt.Errorf("telegram %s: request failed", method)
	}
	defer resp.Body.Close()

	var out apiResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return fmt.Errorf("telegram %s: decode response (status %d): %w", method, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !out.OK {
		return fmt.Errorf("telegram %s: status %d: %s", method, resp.StatusCode, out.Description)
	}

	slog.Debug("telegram message delivered", "method", method)
	return nil
}
