package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aqureshiest/parse-pdf/internal/extract"
)

// ImageAnalyzer describes an image for a reader who cannot see it.
// contextText is the document composed so far.
type ImageAnalyzer interface {
	AnalyzeImage(ctx context.Context, data []byte, mediaType, contextText string) (string, error)
}

// AnalysisErrorPrefix starts every placeholder that replaces a failed analysis.
const AnalysisErrorPrefix = "Error analyzing image: "

// ImageAnalysis is the outcome of one analyzer call. Exactly one of Text and Err is meaningful.
type ImageAnalysis struct {
	Page      int
	MediaType string
	Width     int
	Height    int
	Text      string
	Err       error
}

// Failed reports whether the analysis degraded to a placeholder.
func (a ImageAnalysis) Failed() bool {
	return a.Err != nil
}

// Section is the text that goes into the composed document.
func (a ImageAnalysis) Section() string {
	if a.Err != nil {
		return AnalysisErrorPrefix + a.Err.Error()
	}
	return a.Text
}

// analyzeImage never fails: any error or panic from the analyzer is captured in the result.
func (f *ParserFunction) analyzeImage(ctx context.Context, logCtx *slog.Logger, page int, bm extract.Bitmap, contextText string) (analysis ImageAnalysis) {
	analysis = ImageAnalysis{Page: page, MediaType: bm.MediaType, Width: bm.Width, Height: bm.Height}

	defer func() {
		if r := recover(); r != nil {
			analysis.Text = ""
			analysis.Err = fmt.Errorf("analyzer panic: %v", r)
		}
		if analysis.Err != nil {
			logCtx.Warn("Image analysis failed, embedding placeholder.", "page", page, "mediaType", bm.MediaType, "error", analysis.Err)
		}
	}()

	if f.config.AnalysisTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.config.AnalysisTimeout)
		defer cancel()
	}

	text, err := f.analyzer.AnalyzeImage(ctx, bm.Data, bm.MediaType, contextText)
	if err != nil {
		analysis.Err = err
		return analysis
	}
	analysis.Text = text
	return analysis
}
