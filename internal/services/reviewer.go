package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aqureshiest/parse-pdf/internal/gcp"
	"github.com/aqureshiest/parse-pdf/internal/llm"
	"github.com/aqureshiest/parse-pdf/internal/models"
)

const DefaultParserURL = "http://localhost:8000/parse-pdf"

// Reviewer critiques a composed design document.
type Reviewer interface {
	Review(ctx context.Context, document string) (string, error)
}

// ParseClient uploads PDFs to the parse endpoint.
type ParseClient struct {
	endpoint   string
	httpClient *http.Client
}

func NewParseClient(endpoint string, timeout time.Duration) *ParseClient {
	if endpoint == "" {
		endpoint = DefaultParserURL
	}
	return &ParseClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// ParseFile reads a PDF from disk and returns the composed document.
func (c *ParseClient) ParseFile(ctx context.Context, path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return c.Parse(ctx, filepath.Base(path), data)
}

// Parse uploads data as an application/pdf part named "file".
func (c *ParseClient) Parse(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", "application/pdf")
	part, err := writer.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("failed to create multipart part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("parse request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read parse response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr models.ErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Detail != "" {
			return "", fmt.Errorf("parse endpoint returned %d: %s", resp.StatusCode, apiErr.Detail)
		}
		return "", fmt.Errorf("parse endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed models.ParsePDFResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode parse response: %w", err)
	}
	return parsed.Content, nil
}

// ReviewerConfig holds configuration for the review command.
type ReviewerConfig struct {
	ParserURL     string
	ParserTimeout time.Duration
	OpenAIAPIKey  string
	OpenAIModel   string
}

// ReviewerFunction uploads a PDF for parsing and reviews the composed document.
type ReviewerFunction struct {
	parseClient *ParseClient
	reviewer    Reviewer
}

func loadReviewerConfig() (*ReviewerConfig, error) {
	config := &ReviewerConfig{
		ParserURL:     gcp.GetEnv("PARSER_URL", DefaultParserURL),
		ParserTimeout: gcp.GetEnvDuration("PARSER_TIMEOUT", 0),
		OpenAIAPIKey:  gcp.GetEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   gcp.GetEnv("OPENAI_MODEL", llm.DefaultReviewModel),
	}
	if strings.TrimSpace(config.OpenAIAPIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable must be set")
	}
	return config, nil
}

// NewReviewer creates a ReviewerFunction from the environment. parserURL overrides PARSER_URL when set.
func NewReviewer(parserURL string) (*ReviewerFunction, error) {
	config, err := loadReviewerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if parserURL != "" {
		config.ParserURL = parserURL
	}

	openaiClient, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey: config.OpenAIAPIKey,
		Model:  config.OpenAIModel,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}

	return NewReviewerFunction(NewParseClient(config.ParserURL, config.ParserTimeout), openaiClient), nil
}

func NewReviewerFunction(parseClient *ParseClient, reviewer Reviewer) *ReviewerFunction {
	return &ReviewerFunction{parseClient: parseClient, reviewer: reviewer}
}

// Process parses one PDF through the service and reviews the result.
func (f *ReviewerFunction) Process(ctx context.Context, path string) (*models.ReviewResponse, error) {
	logCtx := slog.With("path", path)

	logCtx.Info("Uploading PDF for parsing.")
	document, err := f.parseClient.ParseFile(ctx, path)
	if err != nil {
		logCtx.Error("Parsing failed", "error", err)
		return nil, err
	}

	logCtx.Info("Requesting design review.", "documentLength", len(document))
	review, err := f.reviewer.Review(ctx, document)
	if err != nil {
		logCtx.Error("Review failed", "error", err)
		return nil, fmt.Errorf("failed to review %s: %w", path, err)
	}

	return &models.ReviewResponse{Path: path, Review: review}, nil
}
