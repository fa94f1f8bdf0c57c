// internal/extraction/client.go
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"menuscan/internal/common/auth"
	"menuscan/internal/common/errors"
	"menuscan/internal/common/httpclient"
	"menuscan/internal/common/logger"
	"menuscan/internal/common/metrics"
)

// Client submits menu images to the extraction service and queries job
// status. Polling to completion is the Poller's job.
type Client struct {
	baseURL    string
	tokens     auth.TokenProvider
	httpClient *httpclient.Client
	logger     logger.Logger
}

func NewClient(baseURL string, tokens auth.TokenProvider, log logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		tokens:     tokens,
		httpClient: httpclient.NewClient(60 * time.Second),
		logger:     log.WithFields(map[string]interface{}{"component": "extraction-client"}),
	}
}

// Submit sends the image to POST /ocr/menus and returns the job handle.
// Non-image MIME types are rejected client-side before submission.
func (c *Client) Submit(ctx context.Context, image Upload) (JobHandle, error) {
	if !IsAcceptedImageType(image.ContentType) {
		return JobHandle{}, errors.NewInvalidFileTypeError(image.ContentType)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return JobHandle{}, errors.NewAuthError(err.Error())
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := createImagePart(writer, "image", image.Filename, image.ContentType)
	if err != nil {
		return JobHandle{}, errors.NewUploadError(err)
	}
	if _, err := part.Write(image.Data); err != nil {
		return JobHandle{}, errors.NewUploadError(err)
	}
	if err := writer.Close(); err != nil {
		return JobHandle{}, errors.NewUploadError(err)
	}

	req, err := http.NewRequest(http.MethodPost, c.baseURL+"/ocr/menus", body)
	if err != nil {
		return JobHandle{}, errors.NewUploadError(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.DoWithContext(ctx, req)
	if err != nil {
		return JobHandle{}, errors.NewUploadError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return JobHandle{}, errors.NewAuthError(fmt.Sprintf("submit rejected with status %d", resp.StatusCode))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return JobHandle{}, errors.NewUploadError(
			fmt.Errorf("submit failed with status %d: %s", resp.StatusCode, string(respBody)))
	}

	var handle JobHandle
	if err := json.NewDecoder(resp.Body).Decode(&handle); err != nil {
		return JobHandle{}, errors.NewUploadError(fmt.Errorf("failed to decode submit response: %w", err))
	}
	if handle.JobID == "" {
		return JobHandle{}, errors.NewUploadError(fmt.Errorf("submit response carried no job_id"))
	}

	metrics.ExtractionJobsSubmitted.Inc()
	c.logger.Info("extraction job submitted", map[string]interface{}{
		"jobId":    handle.JobID,
		"filename": image.Filename,
	})

	return handle, nil
}

// Status queries GET /ocr/menus/{job_id} once and returns the job snapshot.
func (c *Client) Status(ctx context.Context, handle JobHandle) (*Job, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, errors.NewAuthError(err.Error())
	}

	req, err := http.NewRequest(http.MethodGet, fmt.Sprintf("%s/ocr/menus/%s", c.baseURL, handle.JobID), nil)
	if err != nil {
		return nil, errors.NewExternalServiceError("extraction", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.DoWithContext(ctx, req)
	if err != nil {
		return nil, errors.NewExternalServiceError("extraction", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, errors.NewAuthError(fmt.Sprintf("status rejected with status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, errors.NewExternalServiceError("extraction",
			fmt.Errorf("status request failed with status %d: %s", resp.StatusCode, string(respBody)))
	}

	var job Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, errors.NewExternalServiceError("extraction",
			fmt.Errorf("failed to decode status response: %w", err))
	}
	if job.ID == "" {
		job.ID = handle.JobID
	}

	return &job, nil
}

func createImagePart(writer *multipart.Writer, fieldName, filename, contentType string) (io.Writer, error) {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="%s"; filename="%s"`, fieldName, filename))
	header.Set("Content-Type", contentType)
	return writer.CreatePart(header)
}
