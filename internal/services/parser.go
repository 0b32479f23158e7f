package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aqureshiest/parse-pdf/internal/cache"
	"github.com/aqureshiest/parse-pdf/internal/extract"
	"github.com/aqureshiest/parse-pdf/internal/gcp"
	"github.com/aqureshiest/parse-pdf/internal/llm"
	"github.com/aqureshiest/parse-pdf/internal/models"
)

var (
	ErrMalformedDocument = errors.New("failed to parse PDF structure")
	ErrEmptyDocument     = errors.New("uploaded document is empty")
)

const (
	ProviderAnthropic = "anthropic"
	ProviderVertex    = "vertex"
)

// ParserConfig holds all configuration for the parser service.
type ParserConfig struct {
	AnalyzerProvider string
	AnthropicAPIKey  string
	AnthropicModel   string
	MaxTokens        int
	AnalysisTimeout  time.Duration

	ProjectID      string
	VertexAIRegion string
	VertexModel    string

	PolicyVersion string
	Cache         cache.Config

	WorkflowID       string
	WorkflowLocation string
}

// CompletionNotifier is told about every freshly parsed document.
type CompletionNotifier interface {
	NotifyParsed(ctx context.Context, event models.ParsedEvent) error
}

// ParserDeps are the collaborators of the pipeline. Opener and Notifier are optional.
type ParserDeps struct {
	Cache    cache.Store
	Analyzer ImageAnalyzer
	Opener   extract.Opener
	Notifier CompletionNotifier
}

// ParserFunction turns a PDF into a composed document of page text and image analyses.
type ParserFunction struct {
	cache    cache.Store
	analyzer ImageAnalyzer
	open     extract.Opener
	notifier CompletionNotifier
	config   ParserConfig
	closers  []io.Closer
}

// ParseRequest carries the raw upload.
type ParseRequest struct {
	Data     []byte
	Filename string
}

// ParseResult is the composed document plus counters describing how it was built.
type ParseResult struct {
	Content     string
	Fingerprint string
	CacheKey    string
	CacheHit    bool
	PageCount   int

	Analyses          []ImageAnalysis
	ImagesUnsupported int
	ImagesUndecodable int
	ImagesFiltered    int
}

// ImagesFailed counts analyses that degraded to a placeholder.
func (r *ParseResult) ImagesFailed() int {
	var n int
	for _, a := range r.Analyses {
		if a.Failed() {
			n++
		}
	}
	return n
}

// loadParserConfig loads and validates all necessary environment variables for this service.
func loadParserConfig() (*ParserConfig, error) {
	config := &ParserConfig{
		AnalyzerProvider: strings.ToLower(gcp.GetEnv("ANALYZER_PROVIDER", ProviderAnthropic)),
		AnthropicAPIKey:  gcp.GetEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:   gcp.GetEnv("ANTHROPIC_MODEL", llm.DefaultAnthropicModel),
		MaxTokens:        gcp.GetEnvInt("ANALYSIS_MAX_TOKENS", llm.DefaultMaxTokens),
		AnalysisTimeout:  gcp.GetEnvDuration("ANALYSIS_TIMEOUT", 0),
		ProjectID:        gcp.GetEnv("PROJECT_ID", ""),
		VertexAIRegion:   gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		VertexModel:      gcp.GetEnv("VERTEX_MODEL", "gemini-1.5-pro"),
		PolicyVersion:    gcp.GetEnv("CACHE_POLICY_VERSION", "v1"),
		WorkflowID:       gcp.GetEnv("COMPLETION_WORKFLOW_ID", ""),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
	}
	config.Cache = cache.Config{
		Backend:       gcp.GetEnv("CACHE_BACKEND", cache.BackendFile),
		Dir:           gcp.GetEnv("CACHE_DIR", cache.DefaultDir),
		Bucket:        gcp.GetEnv("CACHE_BUCKET", ""),
		Prefix:        gcp.GetEnv("CACHE_PREFIX", cache.DefaultPrefix),
		ProjectID:     config.ProjectID,
		DatabaseID:    gcp.GetEnv("FIRESTORE_DATABASE", ""),
		Collection:    gcp.GetEnv("FIRESTORE_COLLECTION", cache.DefaultCollection),
		RedisAddr:     gcp.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: gcp.GetEnv("REDIS_PASSWORD", ""),
		RedisDB:       gcp.GetEnvInt("REDIS_DB", 0),
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *ParserConfig) validate() error {
	switch c.AnalyzerProvider {
	case ProviderAnthropic:
		if strings.TrimSpace(c.AnthropicAPIKey) == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY environment variable must be set")
		}
	case ProviderVertex:
		if c.ProjectID == "" {
			return fmt.Errorf("PROJECT_ID environment variable must be set for the vertex analyzer")
		}
	default:
		return fmt.Errorf("unknown ANALYZER_PROVIDER %q", c.AnalyzerProvider)
	}

	backend := strings.ToLower(c.Cache.Backend)
	if backend == cache.BackendFirestore && c.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID environment variable must be set for the firestore cache")
	}
	if c.WorkflowID != "" && c.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID environment variable must be set when COMPLETION_WORKFLOW_ID is set")
	}
	return nil
}

// NewParser creates a new ParserFunction from the environment.
func NewParser(ctx context.Context) (*ParserFunction, error) {
	config, err := loadParserConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var closers []io.Closer
	var analyzer ImageAnalyzer
	switch config.AnalyzerProvider {
	case ProviderVertex:
		vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion, config.VertexModel, config.MaxTokens)
		if err != nil {
			return nil, fmt.Errorf("failed to create vertex client: %w", err)
		}
		closers = append(closers, vertexClient)
		analyzer = vertexClient
	default:
		anthropicClient, err := llm.NewAnthropicClient(llm.AnthropicConfig{
			APIKey:    config.AnthropicAPIKey,
			Model:     config.AnthropicModel,
			MaxTokens: config.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create anthropic client: %w", err)
		}
		analyzer = anthropicClient
	}

	store, err := cache.Open(ctx, config.Cache)
	if err != nil {
		closeAll(closers)
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	closers = append(closers, store)

	deps := ParserDeps{Cache: store, Analyzer: analyzer}
	if config.WorkflowID != "" {
		trigger, err := gcp.NewWorkflowTrigger(ctx, config.ProjectID, config.WorkflowLocation, config.WorkflowID)
		if err != nil {
			closeAll(closers)
			return nil, fmt.Errorf("failed to create workflow trigger: %w", err)
		}
		closers = append(closers, trigger)
		deps.Notifier = trigger
	}

	f, err := NewParserFunction(*config, deps)
	if err != nil {
		closeAll(closers)
		return nil, err
	}
	f.closers = closers
	slog.Info("Parser initialized.", "analyzer", config.AnalyzerProvider, "cacheBackend", config.Cache.Backend, "policyVersion", config.PolicyVersion)
	return f, nil
}

// NewParserFunction wires a parser from explicit collaborators.
func NewParserFunction(config ParserConfig, deps ParserDeps) (*ParserFunction, error) {
	if deps.Cache == nil {
		return nil, fmt.Errorf("NewParserFunction: cache store is required")
	}
	if deps.Analyzer == nil {
		return nil, fmt.Errorf("NewParserFunction: image analyzer is required")
	}
	opener := deps.Opener
	if opener == nil {
		opener = extract.Open
	}
	return &ParserFunction{
		cache:    deps.Cache,
		analyzer: deps.Analyzer,
		open:     opener,
		notifier: deps.Notifier,
		config:   config,
	}, nil
}

// Process handles the core logic of composing a document from a PDF upload.
func (f *ParserFunction) Process(ctx context.Context, req *ParseRequest) (*ParseResult, error) {
	if req == nil || len(req.Data) == 0 {
		return nil, ErrEmptyDocument
	}

	fingerprint := cache.Fingerprint(req.Data)
	cacheKey := cache.Key(fingerprint, f.config.PolicyVersion)
	logCtx := slog.With("fingerprint", fingerprint, "filename", req.Filename)

	// --- 1. Serve from cache ---
	if cached, ok := f.lookup(ctx, logCtx, cacheKey); ok {
		logCtx.Info("Cache hit, returning stored document.")
		return &ParseResult{
			Content:     cached.Content,
			Fingerprint: fingerprint,
			CacheKey:    cacheKey,
			CacheHit:    true,
		}, nil
	}

	// --- 2. Parse document structure ---
	doc, err := f.open(req.Data)
	if err != nil {
		logCtx.Error("Failed to open PDF.", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
	}

	result := &ParseResult{
		Fingerprint: fingerprint,
		CacheKey:    cacheKey,
		PageCount:   doc.NumPages(),
	}
	logCtx.Info("Starting extraction.", "pageCount", result.PageCount)

	// --- 3. Walk pages in order, interleaving text and image analyses ---
	var content strings.Builder
	for pageNum := 1; pageNum <= result.PageCount; pageNum++ {
		if err := f.processPage(ctx, logCtx, doc, pageNum, &content, result); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
		}
	}

	// A cancelled request would leave placeholders for every remaining image; don't cache that.
	if err := ctx.Err(); err != nil {
		logCtx.Warn("Request cancelled during extraction.", "error", err)
		return nil, err
	}

	result.Content = strings.TrimSpace(content.String())

	// --- 4. Store and announce ---
	f.store(ctx, logCtx, cacheKey, &models.ParsedDocument{
		Fingerprint:   fingerprint,
		PolicyVersion: f.config.PolicyVersion,
		Content:       result.Content,
		CreatedAt:     time.Now().UTC(),
	})
	f.notify(ctx, logCtx, models.ParsedEvent{
		Fingerprint: fingerprint,
		CacheKey:    cacheKey,
		Filename:    req.Filename,
		PageCount:   result.PageCount,
	})

	logCtx.Info("Extraction complete.",
		"pageCount", result.PageCount,
		"imagesAnalyzed", len(result.Analyses),
		"imagesFailed", result.ImagesFailed(),
		"imagesFiltered", result.ImagesFiltered,
		"imagesUnsupported", result.ImagesUnsupported,
		"imagesUndecodable", result.ImagesUndecodable,
	)
	return result, nil
}

func (f *ParserFunction) processPage(ctx context.Context, logCtx *slog.Logger, doc extract.Document, pageNum int, content *strings.Builder, result *ParseResult) error {
	text, err := doc.PageText(pageNum)
	if err != nil {
		return fmt.Errorf("page %d: %w", pageNum, err)
	}
	fmt.Fprintf(content, "\n\n--- Page %d ---\n\n%s\n", pageNum, text)

	images, err := doc.PageImages(pageNum)
	if err != nil {
		return fmt.Errorf("page %d: failed to enumerate images: %w", pageNum, err)
	}

	for _, img := range images {
		if !extract.IsRecognizedFilter(img.Filter) {
			result.ImagesUnsupported++
			continue
		}

		bitmap, err := extract.Decode(img)
		if err != nil {
			logCtx.Warn("Skipping image that could not be decoded.", "page", pageNum, "image", img.Name, "filter", img.Filter, "error", err)
			result.ImagesUndecodable++
			continue
		}

		if !extract.IsRelevantImage(bitmap.Width, bitmap.Height) {
			result.ImagesFiltered++
			continue
		}

		analysis := f.analyzeImage(ctx, logCtx, pageNum, bitmap, content.String())
		result.Analyses = append(result.Analyses, analysis)
		fmt.Fprintf(content, "\n\n--- Image Analysis (Page %d) ---\n\n%s\n", pageNum, analysis.Section())
	}
	return nil
}

// lookup treats every cache failure as a miss.
func (f *ParserFunction) lookup(ctx context.Context, logCtx *slog.Logger, key string) (*models.ParsedDocument, bool) {
	cached, ok, err := f.cache.Get(ctx, key)
	if err != nil {
		logCtx.Warn("Cache read failed, parsing from scratch.", "cacheKey", key, "error", err)
		return nil, false
	}
	return cached, ok
}

// store logs and swallows cache write failures; the document is still returned.
func (f *ParserFunction) store(ctx context.Context, logCtx *slog.Logger, key string, doc *models.ParsedDocument) {
	if err := f.cache.Put(ctx, key, doc); err != nil {
		logCtx.Error("Cache write failed, continuing without caching.", "cacheKey", key, "error", err)
	}
}

func (f *ParserFunction) notify(ctx context.Context, logCtx *slog.Logger, event models.ParsedEvent) {
	if f.notifier == nil {
		return
	}
	if err := f.notifier.NotifyParsed(ctx, event); err != nil {
		logCtx.Error("Failed to notify completion workflow.", "error", err)
	}
}

// Close releases the clients created by NewParser.
func (f *ParserFunction) Close() error {
	return closeAll(f.closers)
}

func closeAll(closers []io.Closer) error {
	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
