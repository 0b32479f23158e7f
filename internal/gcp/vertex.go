package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/aqureshiest/parse-pdf/internal/llm"
)

// --- Image Analyst Model Prompts ---
const ImageAnalystSystemPrompt = "You are a software architect who reads technical design documents. You describe diagrams, tables and flows precisely so that a reader without the image can reconstruct them."

// VertexClient holds the pre-configured Gemini model used for image analysis.
type VertexClient struct {
	ImageAnalystModel *genai.GenerativeModel
	baseClient        *genai.Client
}

// NewVertexClient creates a new client holding the image analyst model.
func NewVertexClient(ctx context.Context, projectID, region, modelName string, maxTokens int) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}
	if maxTokens <= 0 {
		maxTokens = llm.DefaultMaxTokens
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	analystModel := baseClient.GenerativeModel(modelName)
	analystModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(ImageAnalystSystemPrompt)},
	}
	analystModel.SetMaxOutputTokens(int32(maxTokens))

	return &VertexClient{
		ImageAnalystModel: analystModel,
		baseClient:        baseClient,
	}, nil
}

// AnalyzeImage sends one image plus the accumulated document context to Gemini.
func (c *VertexClient) AnalyzeImage(ctx context.Context, data []byte, mediaType, contextText string) (string, error) {
	imagePart := genai.Blob{
		MIMEType: mediaType,
		Data:     data,
	}
	prompt := genai.Text(llm.ImageAnalysisPrompt(contextText))

	resp, err := c.ImageAnalystModel.GenerateContent(ctx, prompt, imagePart)
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}

	text := extractText(resp)
	if text == "" {
		return llm.NoAnalysisAvailable, nil
	}
	return text, nil
}

// extractText concatenates the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var content strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			content.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(content.String())
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
