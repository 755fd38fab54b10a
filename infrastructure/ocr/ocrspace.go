// Package ocr holds the cloud recognizer and the registry that maps a
// configured backend to a recognizer.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cartbot/domain/entities"
	"cartbot/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// DefaultEndpoint is the OCR.space parse endpoint
const DefaultEndpoint = "https://api.ocr.space/parse/image"

var _ interfaces.Recognizer = (*OCRSpaceClient)(nil)

// OCRSpaceClient is the cloud text-extraction backend
type OCRSpaceClient struct {
	apiKey   string
	endpoint string
	client   *http.Client
	timeout  time.Duration
	logger   *logrus.Logger
}

type parseResponse struct {
	ParsedResults []struct {
		ParsedText *string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

func NewOCRSpaceClient(apiKey, endpoint string, timeout time.Duration, logger *logrus.Logger) (*OCRSpaceClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OCR_SPACE_API_KEY environment variable is not set")
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &OCRSpaceClient{
		apiKey:   apiKey,
		endpoint: endpoint,
		client:   &http.Client{},
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Recognize uploads the sample and returns the first parsed text.
// Any response without a parsed text entry yields "" and no error.
func (c *OCRSpaceClient) Recognize(ctx context.Context, sample entities.VisualSample) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, contentType, err := c.buildForm(sample.Path)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read ocr response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Warnf("OCR API error: %s", resp.Status)
		return "", nil
	}

	var parsed parseResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		c.logger.Debugf("unexpected OCR response: %v", err)
		return "", nil
	}
	if parsed.IsErroredOnProcessing {
		c.logger.Debugf("OCR processing error: %s", string(parsed.ErrorMessage))
	}
	if len(parsed.ParsedResults) == 0 || parsed.ParsedResults[0].ParsedText == nil {
		return "", nil
	}
	return strings.TrimSpace(*parsed.ParsedResults[0].ParsedText), nil
}

func (c *OCRSpaceClient) buildForm(path string) (io.Reader, string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open sample: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"apikey", c.apiKey},
		{"language", "eng"},
		{"isOverlayRequired", "false"},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	part, err := w.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("failed to read sample: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
