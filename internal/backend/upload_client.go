package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
)

// MediaUpload describes one file to send to the upload service. Content is
// read once while the multipart body is built.
type MediaUpload struct {
	FileName string
	Content  io.Reader
	Model    string
}

// UploadClient talks to the upload service.
type UploadClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewUploadClient(baseURL string, logger *slog.Logger) *UploadClient {
	return &UploadClient{
		baseURL:    baseURL,
		httpClient: newHTTPClient(),
		logger:     logger,
	}
}

// UploadReceipt is what the upload service returns after accepting a file.
// Older deployments respond with an empty body, so every field is optional.
type UploadReceipt struct {
	MediaID string      `json:"mediaId"`
	Status  MediaStatus `json:"status,omitempty"`
}

// UploadMedia POSTs the file as multipart form data ("file" field) with the
// transcription model passed as a query parameter.
func (c *UploadClient) UploadMedia(ctx context.Context, upload MediaUpload) (*UploadReceipt, error) {
	body, contentType, err := buildMultipartBody(upload)
	if err != nil {
		return nil, err
	}

	u := c.baseURL + "/Upload"
	if upload.Model != "" {
		u += "?model=" + url.QueryEscape(upload.Model)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	c.logger.Info("uploading media",
		"file_name", upload.FileName,
		"model", upload.Model,
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	receipt := &UploadReceipt{}
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, receipt); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}

	c.logger.Info("upload accepted", "file_name", upload.FileName, "media_id", receipt.MediaID)
	return receipt, nil
}

func buildMultipartBody(upload MediaUpload) (io.Reader, string, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("file", upload.FileName)
		if err != nil {
			pw.CloseWithError(fmt.Errorf("create form file: %w", err))
			return
		}
		if _, err := io.Copy(part, upload.Content); err != nil {
			pw.CloseWithError(fmt.Errorf("copy file content: %w", err))
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	return pr, writer.FormDataContentType(), nil
}

// GetUploadStatus fetches the processing-status snapshot from the upload
// service. Semantically equivalent to QueryClient.GetMediaStatus.
func (c *UploadClient) GetUploadStatus(ctx context.Context, id string) (*MediaStatusSnapshot, error) {
	u := fmt.Sprintf("%s/Upload/%s/status", c.baseURL, url.PathEscape(id))

	var snap MediaStatusSnapshot
	if err := getJSON(ctx, c.httpClient, u, &snap); err != nil {
		return nil, err
	}

	c.logger.Debug("upload status fetched", "media_id", id, "status", snap.Status)
	return &snap, nil
}

// GetAllMedia returns the full unpaginated media list.
func (c *UploadClient) GetAllMedia(ctx context.Context) ([]MediaItem, error) {
	u := c.baseURL + "/Upload/GetAllMedia"

	var items []MediaItem
	if err := getJSON(ctx, c.httpClient, u, &items); err != nil {
		return nil, err
	}

	c.logger.Debug("media list fetched", "count", len(items))
	return items, nil
}

// GetTranscribedMedia returns one page of transcribed media. Page numbering
// is 1-based.
func (c *UploadClient) GetTranscribedMedia(ctx context.Context, page, pageSize int) (*TranscribedMediaPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(pageSize))
	u := c.baseURL + "/Upload/transcribed?" + q.Encode()

	var result TranscribedMediaPage
	if err := getJSON(ctx, c.httpClient, u, &result); err != nil {
		return nil, err
	}

	c.logger.Debug("transcribed page fetched",
		"page", result.Page,
		"page_size", result.PageSize,
		"total", result.Total,
	)
	return &result, nil
}

// GetTranscribedMediaByID returns the full detail for one transcribed item,
// including the transcription text when processing has completed.
func (c *UploadClient) GetTranscribedMediaByID(ctx context.Context, id string) (*TranscribedMedia, error) {
	u := fmt.Sprintf("%s/Upload/transcribed/%s", c.baseURL, url.PathEscape(id))

	var result TranscribedMedia
	if err := getJSON(ctx, c.httpClient, u, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
