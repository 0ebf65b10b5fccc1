package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
)

// FileUploadResponse is the subset of the gateway's file resource the
// backend uses: the serving URL for handing to trainings and predictions.
type FileUploadResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URLs struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// UploadFile uploads content to the gateway's file store and returns the
// resulting resource. The gateway serves the file at the returned
// URLs.Get address.
func (c *Client) UploadFile(ctx context.Context, filename string, content io.Reader) (*FileUploadResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("content", filename)
	if err != nil {
		return nil, fmt.Errorf("creating multipart form: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("writing upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("finalizing multipart form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", &buf)
	if err != nil {
		return nil, fmt.Errorf("creating upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uploading file: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	var out FileUploadResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	if out.URLs.Get == "" {
		return nil, fmt.Errorf("gateway file response missing serving URL")
	}
	return &out, nil
}
