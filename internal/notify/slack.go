package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"workcal/internal/config"
	"workcal/internal/errs"
	"workcal/internal/log"
)

// Client delivers notifications to Slack: JSON posts to an incoming
// webhook for text, multipart posts to the file-upload endpoint for the
// chart image.
type Client struct {
	http *http.Client
	cfg  config.SlackConfig
}

// NewClient builds a Slack client from the settings record.
func NewClient(cfg config.SlackConfig) *Client {
	return &Client{
		http: &http.Client{Timeout: 15 * time.Second},
		cfg:  cfg,
	}
}

// PostMessage posts the composed message to the webhook URL. Failures are
// transport errors; by the time this runs the ledger rows are already
// persisted and must not be rolled back or re-appended.
func (c *Client) PostMessage(ctx context.Context, msg *Message) error {
	if c.cfg.WebhookURL == "" {
		return errs.New(errs.CodeConfiguration, "slack webhook_url is not set")
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return errs.Wrap(errs.CodeTransport, err, "marshal slack message")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return errs.Wrap(errs.CodeTransport, err, "build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.CodeTransport, err, "post to slack webhook")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errs.New(errs.CodeTransport, "slack webhook returned %s", resp.Status)
	}

	log.Info("slack notification posted", "blocks", len(msg.Blocks))
	return nil
}

// uploadResponse is the slice of the files.upload response we care about.
type uploadResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// UploadFile posts a PNG (or any file) to the file-upload endpoint with
// bearer-token auth, targeting the configured channel.
func (c *Client) UploadFile(ctx context.Context, title, filename string, content []byte) error {
	if c.cfg.BotToken == "" {
		return errs.New(errs.CodeConfiguration, "slack bot_token is not set")
	}
	if c.cfg.ChannelName == "" {
		return errs.New(errs.CodeConfiguration, "slack channel_name is not set")
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	if err := form.WriteField("title", title); err != nil {
		return errs.Wrap(errs.CodeTransport, err, "build upload form")
	}
	if err := form.WriteField("channels", c.cfg.ChannelName); err != nil {
		return errs.Wrap(errs.CodeTransport, err, "build upload form")
	}
	if err := form.WriteField("filetype", "png"); err != nil {
		return errs.Wrap(errs.CodeTransport, err, "build upload form")
	}
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return errs.Wrap(errs.CodeTransport, err, "build upload form")
	}
	if _, err := part.Write(content); err != nil {
		return errs.Wrap(errs.CodeTransport, err, "build upload form")
	}
	if err := form.Close(); err != nil {
		return errs.Wrap(errs.CodeTransport, err, "build upload form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.FileUploadURL, &buf)
	if err != nil {
		return errs.Wrap(errs.CodeTransport, err, "build upload request")
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.cfg.BotToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.CodeTransport, err, "post file to slack")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errs.New(errs.CodeTransport, "slack upload returned %s", resp.Status)
	}

	// The upload endpoint reports failures inside a 200 body.
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errs.Wrap(errs.CodeTransport, err, "read upload response")
	}
	var parsed uploadResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return errs.Wrap(errs.CodeTransport, err, "parse upload response")
	}
	if !parsed.OK {
		return errs.New(errs.CodeTransport, "slack upload failed: %s", parsed.Error)
	}

	log.Info("slack file uploaded", "filename", filename, "bytes", len(content))
	return nil
}
