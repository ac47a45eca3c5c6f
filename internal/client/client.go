// Package client talks to the studybuddy HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"studybuddy/internal/apperr"
	"studybuddy/internal/flashcard"
	"studybuddy/internal/ingest"
)

const DefaultTimeout = 60 * time.Second

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: DefaultTimeout},
	}
}

// APIError is a non-2xx reply. It unwraps to the apperr sentinel named by
// Code, so errors.Is works the same on both sides of the wire.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d %s)", e.Message, e.Status, e.Code)
}

func (e *APIError) Unwrap() error { return apperr.FromCode(e.Code) }

type Answer struct {
	Response string `json:"response"`
	Model    string `json:"model"`
}

type Health struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

type cardReq struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

func cardPath(id string) string {
	return "/api/flashcards/" + url.PathEscape(id)
}

func (c *Client) List(ctx context.Context) ([]flashcard.Flashcard, error) {
	var out []flashcard.Flashcard
	if err := c.doJSON(ctx, http.MethodGet, "/api/flashcards", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []flashcard.Flashcard{}
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id string) (flashcard.Flashcard, error) {
	var out flashcard.Flashcard
	err := c.doJSON(ctx, http.MethodGet, cardPath(id), nil, &out)
	return out, err
}

func (c *Client) Create(ctx context.Context, question, answer string) (flashcard.Flashcard, error) {
	var out flashcard.Flashcard
	err := c.doJSON(ctx, http.MethodPost, "/api/flashcards", cardReq{question, answer}, &out)
	return out, err
}

func (c *Client) Update(ctx context.Context, id, question, answer string) (flashcard.Flashcard, error) {
	var out flashcard.Flashcard
	err := c.doJSON(ctx, http.MethodPut, cardPath(id), cardReq{question, answer}, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, cardPath(id), nil, nil)
}

func (c *Client) MarkReviewed(ctx context.Context, id string) (flashcard.Flashcard, error) {
	var out flashcard.Flashcard
	err := c.doJSON(ctx, http.MethodPost, cardPath(id)+"/review", nil, &out)
	return out, err
}

func (c *Client) Export(ctx context.Context) (flashcard.ExportDocument, error) {
	var out flashcard.ExportDocument
	err := c.doJSON(ctx, http.MethodGet, "/api/flashcards/export", nil, &out)
	return out, err
}

func (c *Client) Import(ctx context.Context, doc flashcard.ExportDocument) (int, error) {
	var out struct {
		Imported int `json:"imported"`
	}
	if err := c.doJSON(ctx, http.MethodPost, "/api/flashcards/import", doc, &out); err != nil {
		return 0, err
	}
	return out.Imported, nil
}

func (c *Client) Ask(ctx context.Context, question string) (Answer, error) {
	var out Answer
	err := c.doJSON(ctx, http.MethodPost, "/api/ask", map[string]string{"question": question}, &out)
	return out, err
}

// UploadPDF sends r as the "pdf" field of a multipart form.
func (c *Client) UploadPDF(ctx context.Context, filename string, r io.Reader) (ingest.Result, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("pdf", filename)
	if err != nil {
		return ingest.Result{}, err
	}
	if _, err := io.Copy(fw, r); err != nil {
		return ingest.Result{}, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return ingest.Result{}, err
	}

	var out ingest.Result
	err = c.do(ctx, http.MethodPost, "/api/pdf/upload", &buf, mw.FormDataContentType(), &out)
	return out, err
}

func (c *Client) Health(ctx context.Context) (Health, error) {
	var out Health
	err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, &out)
	return out, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, body, contentType, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Code != "" {
		return &APIError{Status: resp.StatusCode, Code: body.Error.Code, Message: body.Error.Message}
	}

	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		msg = resp.Status
	}
	return &APIError{Status: resp.StatusCode, Code: apperr.CodeInternal, Message: msg}
}
