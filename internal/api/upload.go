package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// uploadResult is the shape both upload endpoints answer with: one
// object for the single call, a list of them for the batch call.
type uploadResult struct {
	URL string `json:"url"`
}

// UploadPhoto sends one local file through POST /upload (multipart
// field "photo") and returns the remote reference.
func (c *Client) UploadPhoto(ctx context.Context, path string) (string, error) {
	body, contentType, err := buildMultipart("photo", []string{path})
	if err != nil {
		return "", err
	}
	respBody, err := c.do(ctx, http.MethodPost, "/upload", body, contentType)
	if err != nil {
		return "", err
	}
	var result uploadResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse upload response: %w", err)
	}
	if result.URL == "" {
		return "", fmt.Errorf("upload response carried no url")
	}
	return result.URL, nil
}

// UploadPhotos sends several local files through POST /upload/multiple
// (multipart field "photos[]") and returns the remote references in
// upload order.
func (c *Client) UploadPhotos(ctx context.Context, paths []string) ([]string, error) {
	body, contentType, err := buildMultipart("photos[]", paths)
	if err != nil {
		return nil, err
	}
	respBody, err := c.do(ctx, http.MethodPost, "/upload/multiple", body, contentType)
	if err != nil {
		return nil, err
	}
	var results []uploadResult
	if err := json.Unmarshal(respBody, &results); err != nil {
		return nil, fmt.Errorf("failed to parse batch upload response: %w", err)
	}
	urls := make([]string, 0, len(results))
	for _, r := range results {
		if r.URL != "" {
			urls = append(urls, r.URL)
		}
	}
	return urls, nil
}

// buildMultipart assembles a multipart body from local files. The body
// is fully buffered so the rate-limit retry in do() can replay it.
func buildMultipart(field string, paths []string) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read photo %s: %w", path, err)
		}
		part, err := writer.CreateFormFile(field, filepath.Base(path))
		if err != nil {
			return nil, "", fmt.Errorf("failed to build multipart form: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", fmt.Errorf("failed to write photo data: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart form: %w", err)
	}
	return buf.Bytes(), writer.FormDataContentType(), nil
}
