// Package ocr is a client for OCR.space compatible text recognition.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/josephcasey/mybgg/internal/logging"
)

const DefaultEndpoint = "https://api.ocr.space/parse/image"

// ErrNoText means the service answered but recognised nothing.
var ErrNoText = errors.New("ocr: no text recognised")

type Client struct {
	endpoint string
	apiKey   string
	cli      *http.Client
	log      *zap.Logger
}

func New(endpoint, apiKey string, cli *http.Client, lg *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if cli == nil {
		cli = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{endpoint: endpoint, apiKey: apiKey, cli: cli, log: logging.OrNop(lg)}
}

type response struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

// ReadText uploads one image and returns the concatenated parsed text.
func (c *Client) ReadText(ctx context.Context, img []byte, filename string) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("apikey", c.apiKey)
	_ = mw.WriteField("language", "eng")
	_ = mw.WriteField("scale", "true")
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("ocr form: %w", err)
	}
	if _, err := fw.Write(img); err != nil {
		return "", fmt.Errorf("ocr form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("ocr form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("ocr request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.cli.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr post: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ocr read: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ocr status %d", resp.StatusCode)
	}

	var r response
	if err := json.Unmarshal(body, &r); err != nil {
		return "", fmt.Errorf("ocr decode: %w", err)
	}
	if r.IsErroredOnProcessing {
		return "", fmt.Errorf("ocr processing failed: %s", errorText(r.ErrorMessage))
	}
	var parts []string
	for _, pr := range r.ParsedResults {
		if t := strings.TrimSpace(pr.ParsedText); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", ErrNoText
	}
	text := strings.Join(parts, "\n")
	c.log.Debug("ocr text", zap.String("file", filename), zap.String("text", text))
	return text, nil
}

// errorText accepts both the string and the list form of ErrorMessage.
func errorText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "unknown error"
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
