// Package whatsapp is a thin client for the Meta WhatsApp Cloud API: outbound
// messages, interactive buttons/lists, read receipts, reactions and media
// download.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	graphBaseURL = "https://graph.facebook.com"

	// Cloud API rejects text bodies over 4096 chars; long model output is
	// split into sequential messages.
	maxTextLength = 4000

	sendTimeout     = 10 * time.Second
	downloadTimeout = 30 * time.Second
)

type Button struct {
	ID    string
	Title string
}

type Row struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type Section struct {
	Title string `json:"title"`
	Rows  []Row  `json:"rows"`
}

type Client struct {
	http          *http.Client
	baseURL       string
	token         string
	phoneNumberID string
	apiVersion    string
	downloadDir   string
}

func NewClient(token, phoneNumberID, apiVersion, downloadDir string) *Client {
	return &Client{
		http:          &http.Client{},
		baseURL:       graphBaseURL,
		token:         token,
		phoneNumberID: phoneNumberID,
		apiVersion:    apiVersion,
		downloadDir:   downloadDir,
	}
}

func (c *Client) messagesURL() string {
	return fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, c.phoneNumberID)
}

// SendText delivers a text message, splitting bodies longer than the Cloud API
// limit into consecutive chunks. Cuts never land inside a multibyte rune.
func (c *Client) SendText(ctx context.Context, to, text string) error {
	for len(text) > maxTextLength {
		cut := maxTextLength
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			cut = maxTextLength
		}
		if err := c.sendTextChunk(ctx, to, text[:cut]); err != nil {
			return err
		}
		text = text[cut:]
	}
	return c.sendTextChunk(ctx, to, text)
}

func (c *Client) sendTextChunk(ctx context.Context, to, text string) error {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": text},
	}
	return c.post(ctx, payload, sendTimeout)
}

// SendButtons attaches up to three reply buttons to a prompt. Titles are
// clipped to the 20-char API limit.
func (c *Client) SendButtons(ctx context.Context, to, text string, buttons []Button) error {
	formatted := make([]map[string]any, 0, len(buttons))
	for _, b := range buttons {
		title := b.Title
		if len([]rune(title)) > 20 {
			title = string([]rune(title)[:20])
		}
		formatted = append(formatted, map[string]any{
			"type":  "reply",
			"reply": map[string]string{"id": b.ID, "title": title},
		})
	}

	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]any{
			"type":   "button",
			"body":   map[string]string{"text": text},
			"action": map[string]any{"buttons": formatted},
		},
	}
	return c.post(ctx, payload, sendTimeout)
}

// SendList shows a list-picker with the given sections.
func (c *Client) SendList(ctx context.Context, to, bodyText, buttonText string, sections []Section) error {
	if len([]rune(buttonText)) > 20 {
		buttonText = string([]rune(buttonText)[:20])
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]any{
			"type":   "list",
			"body":   map[string]string{"text": bodyText},
			"action": map[string]any{"button": buttonText, "sections": sections},
		},
	}
	return c.post(ctx, payload, sendTimeout)
}

// MarkAsRead flips the sender's message to blue ticks. Failures are logged and
// swallowed, receipts are cosmetic.
func (c *Client) MarkAsRead(ctx context.Context, messageID string) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"status":            "read",
		"message_id":        messageID,
	}
	if err := c.post(ctx, payload, 5*time.Second); err != nil {
		log.Printf("mark as read failed: %v", err)
	}
}

// SendReaction reacts to a message with an emoji. Also best-effort.
func (c *Client) SendReaction(ctx context.Context, to, messageID, emoji string) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"recipient_type":    "individual",
		"to":                to,
		"type":              "reaction",
		"reaction":          map[string]string{"message_id": messageID, "emoji": emoji},
	}
	if err := c.post(ctx, payload, 5*time.Second); err != nil {
		log.Printf("reaction failed: %v", err)
	}
}

func (c *Client) post(ctx context.Context, payload any, timeout time.Duration) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.messagesURL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp api request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("whatsapp api error (%d): %s", resp.StatusCode, detail)
	}
	return nil
}

// DownloadMedia resolves a media ID to its ephemeral URL and stores the bytes
// under the download dir. The caller owns the returned path and must delete it.
func (c *Client) DownloadMedia(ctx context.Context, mediaID, extension string) (string, error) {
	if err := os.MkdirAll(c.downloadDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure download dir: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	metaURL := fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, mediaID)
	var meta struct {
		URL string `json:"url"`
	}
	if err := c.getJSON(ctx, metaURL, &meta); err != nil {
		return "", fmt.Errorf("resolve media url: %w", err)
	}
	if meta.URL == "" {
		return "", fmt.Errorf("no download url for media %s", mediaID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("download media: status %d", resp.StatusCode)
	}

	filePath := filepath.Join(c.downloadDir, fmt.Sprintf("%s-%s.%s", mediaID, uuid.NewString(), extension))
	f, err := os.Create(filePath)
	if err != nil {
		return "", fmt.Errorf("create download file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		os.Remove(filePath)
		return "", fmt.Errorf("write download file: %w", err)
	}
	return filePath, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
