package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

// Status is a page's review state.
type Status string

const (
	StatusSkip Status = "skip"
	StatusR0   Status = "reviewed-0"
	StatusR1   Status = "reviewed-1"
	StatusR2   Status = "reviewed-2"
)

// PageData is the page payload served by the page-data endpoint.
type PageData struct {
	ProjectSlug      string `json:"projectSlug"`
	ProjectTitle     string `json:"projectTitle"`
	PageSlug         string `json:"pageSlug"`
	PrevSlug         string `json:"prevSlug"`
	NextSlug         string `json:"nextSlug"`
	PageNumber       string `json:"pageNumber"`
	NumPages         int    `json:"numPages"`
	Status           Status `json:"status"`
	Version          int    `json:"version"`
	Content          string `json:"content"`
	ImageURL         string `json:"imageUrl"`
	OCRBoundingBoxes string `json:"ocrBoundingBoxes"`
	EditURL          string `json:"editUrl"`
}

// SaveRequest carries one save submission.
type SaveRequest struct {
	Content     string
	Version     int
	Status      Status
	Summary     string
	Explanation string
}

// SaveResult is a successful (or plainly rejected) save response.
type SaveResult struct {
	OK         bool   `json:"ok"`
	Message    string `json:"message"`
	NewVersion int    `json:"new_version"`
	NewStatus  Status `json:"new_status"`
}

// Revision is one entry of a page's edit history.
type Revision struct {
	ID          int    `json:"id"`
	Created     string `json:"created"`
	Author      string `json:"author"`
	Summary     string `json:"summary"`
	Status      string `json:"status"`
	RevisionURL string `json:"revision_url"`
	AuthorURL   string `json:"author_url"`
}

// AutoStructureRequest asks the server to re-segment plain content into
// typed blocks, optionally pattern-matching drama annotations.
type AutoStructureRequest struct {
	Content      string `json:"content"`
	MatchStage   bool   `json:"match_stage"`
	MatchSpeaker bool   `json:"match_speaker"`
	MatchChaya   bool   `json:"match_chaya"`
}

// Client talks to the library server's proofing endpoints.
type Client struct {
	base   string
	http   *http.Client
	csrf   string
	logger *slog.Logger
}

// NewClient builds a client for the given server base URL.
func NewClient(base string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		base:   strings.TrimRight(base, "/"),
		http:   &http.Client{},
		logger: logger,
	}
}

// SetCSRFToken sets the token included with save submissions.
func (c *Client) SetCSRFToken(token string) { c.csrf = token }

// SetHTTPClient overrides the underlying HTTP client.
func (c *Client) SetHTTPClient(h *http.Client) { c.http = h }

// PageData fetches the page payload for SPA-style navigation.
func (c *Client) PageData(ctx context.Context, project, page string) (*PageData, error) {
	url := fmt.Sprintf("%s/api/proofing/%s/%s/page-data", c.base, project, page)
	var data PageData
	if err := c.getJSON(ctx, url, &data); err != nil {
		return nil, &NetworkError{Op: "page-data", Err: err}
	}
	return &data, nil
}

// Save submits page content with the optimistic-concurrency version. A
// version mismatch returns *ConflictError; 401/403 returns
// ErrSessionExpired.
func (c *Client) Save(ctx context.Context, project, page string, req SaveRequest) (*SaveResult, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	fields := map[string]string{
		"content":     req.Content,
		"version":     strconv.Itoa(req.Version),
		"status":      string(req.Status),
		"summary":     req.Summary,
		"explanation": req.Explanation,
		"csrf_token":  c.csrf,
	}
	for name, value := range fields {
		if err := form.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to build save form: %w", err)
		}
	}
	if err := form.Close(); err != nil {
		return nil, fmt.Errorf("failed to build save form: %w", err)
	}

	url := fmt.Sprintf("%s/api/proofing/%s/%s/save", c.base, project, page)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, &NetworkError{Op: "save", Err: err}
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &NetworkError{Op: "save", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrSessionExpired
	}

	var payload struct {
		OK              bool   `json:"ok"`
		Message         string `json:"message"`
		NewVersion      int    `json:"new_version"`
		NewStatus       Status `json:"new_status"`
		ConflictContent string `json:"conflict_content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &NetworkError{Op: "save", Err: err}
	}
	if !payload.OK && payload.ConflictContent != "" {
		return nil, &ConflictError{
			Message:         payload.Message,
			ConflictContent: payload.ConflictContent,
			NewVersion:      payload.NewVersion,
		}
	}
	return &SaveResult{
		OK:         payload.OK,
		Message:    payload.Message,
		NewVersion: payload.NewVersion,
		NewStatus:  payload.NewStatus,
	}, nil
}

// OCR runs the server's OCR over the page image and returns the resulting
// markup text as-is.
func (c *Client) OCR(ctx context.Context, project, page string) (string, error) {
	url := fmt.Sprintf("%s/api/ocr/%s/%s/", c.base, project, page)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &NetworkError{Op: "ocr", Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", &NetworkError{Op: "ocr", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", &NetworkError{Op: "ocr", Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &NetworkError{Op: "ocr", Err: err}
	}
	return string(text), nil
}

// LLMStructure asks the LLM-structuring service to restructure content.
func (c *Client) LLMStructure(ctx context.Context, project, page, content string) (string, error) {
	url := fmt.Sprintf("%s/api/llm-structuring/%s/%s/", c.base, project, page)
	return c.postStructuring(ctx, "llm-structuring", url, map[string]string{"content": content})
}

// Structure asks the rule-based structuring service to restructure content.
func (c *Client) Structure(ctx context.Context, project, page, content string) (string, error) {
	url := fmt.Sprintf("%s/api/structuring/%s/%s/", c.base, project, page)
	return c.postStructuring(ctx, "structuring", url, map[string]string{"content": content})
}

// AutoStructure applies the server's structuring heuristics to content.
func (c *Client) AutoStructure(ctx context.Context, req AutoStructureRequest) (string, error) {
	url := c.base + "/api/proofing/auto-structure"
	return c.postStructuring(ctx, "auto-structure", url, req)
}

// History fetches the page's revision history, newest first.
func (c *Client) History(ctx context.Context, project, page string) ([]Revision, error) {
	url := fmt.Sprintf("%s/api/proofing/%s/%s/history", c.base, project, page)
	var payload struct {
		Revisions []Revision `json:"revisions"`
	}
	if err := c.getJSON(ctx, url, &payload); err != nil {
		return nil, &NetworkError{Op: "history", Err: err}
	}
	return payload.Revisions, nil
}

// postStructuring POSTs a JSON body and decodes the {content}/{error}
// response shape shared by the structuring endpoints.
func (c *Client) postStructuring(ctx context.Context, op, url string, body any) (string, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return "", &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	var payload struct {
		Content string `json:"content"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", &NetworkError{Op: op, Err: err}
	}
	if payload.Error != "" {
		return "", &NetworkError{Op: op, Err: fmt.Errorf("server error: %s", payload.Error)}
	}
	return payload.Content, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
