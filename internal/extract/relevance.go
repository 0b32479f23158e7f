package extract

const (
	// Images smaller than this many pixels are candidates for being icons.
	iconPixelThreshold = 40000
	squareRatioMin     = 0.8
	squareRatioMax     = 1.2
)

// IsRelevantImage reports whether an image is worth a model call. Small, roughly square
// images are treated as logos, icons or bullets and skipped. A zero height yields ratio 0,
// which falls outside the square band, so such images are analyzed.
func IsRelevantImage(width, height int) bool {
	totalPixels := width * height
	var aspectRatio float64
	if height != 0 {
		aspectRatio = float64(width) / float64(height)
	}
	small := totalPixels < iconPixelThreshold
	square := aspectRatio >= squareRatioMin && aspectRatio <= squareRatioMax
	return !(small && square)
}
