// Package extract reads page text and embedded raster images out of PDF documents and
// turns those images into bitmaps ready for a vision model.
package extract

import "strings"

// Recognized image filters. Anything else is skipped by the pipeline.
const (
	FilterFlate = "FlateDecode"
	FilterDCT   = "DCTDecode"
	FilterJPX   = "JPXDecode"
)

// EmbeddedImage describes an image XObject as found in the document.
// Width and Height come from the image dictionary; Data holds the stream bytes.
type EmbeddedImage struct {
	Page   int
	Name   string
	ObjNr  int
	Filter string
	Width  int
	Height int
	Data   []byte
}

// Bitmap is a decoded image re-encoded into a transport format.
type Bitmap struct {
	Width     int
	Height    int
	MediaType string
	Data      []byte
}

// Document gives page-ordered access to a parsed PDF.
type Document interface {
	NumPages() int
	// PageText returns the plain text of page n (1-based).
	PageText(n int) (string, error)
	// PageImages returns the embedded images of page n in encounter order.
	PageImages(n int) ([]EmbeddedImage, error)
}

// Opener parses raw PDF bytes into a Document.
type Opener func(data []byte) (Document, error)

// NormalizeFilter reduces a filter pipeline such as "/FlateDecode" or
// "ASCII85Decode,DCTDecode" to the final filter name.
func NormalizeFilter(filter string) string {
	filter = strings.TrimSpace(filter)
	if i := strings.LastIndexAny(filter, ", "); i >= 0 {
		filter = filter[i+1:]
	}
	return strings.TrimPrefix(filter, "/")
}

// IsRecognizedFilter reports whether the pipeline knows how to decode filter.
func IsRecognizedFilter(filter string) bool {
	switch NormalizeFilter(filter) {
	case FilterFlate, FilterDCT, FilterJPX:
		return true
	default:
		return false
	}
}
