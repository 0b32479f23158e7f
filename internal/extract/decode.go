package extract

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"golang.org/x/image/tiff"
)

var (
	ErrUnsupportedFilter = errors.New("unsupported image filter")
	ErrUndecodable       = errors.New("image data could not be decoded")
)

var (
	pngSignature    = []byte("\x89PNG\r\n\x1a\n")
	tiffSignatureLE = []byte("II*\x00")
	tiffSignatureBE = []byte("MM\x00*")
)

// Decode turns an embedded image into a bitmap with explicit dimensions and re-encodes it
// into the transport format of its family: Flate to PNG, DCT to JPEG, JPX to JP2.
func Decode(img EmbeddedImage) (Bitmap, error) {
	switch NormalizeFilter(img.Filter) {
	case FilterFlate:
		decoded, err := decodeFlateRaster(img)
		if err != nil {
			return Bitmap{}, err
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, decoded); err != nil {
			return Bitmap{}, fmt.Errorf("failed to encode png: %w", err)
		}
		return newBitmap(decoded, "image/png", buf.Bytes()), nil

	case FilterDCT:
		// CMYK JPEGs come out of the renderer as PNG.
		var decoded image.Image
		var err error
		if bytes.HasPrefix(img.Data, pngSignature) {
			decoded, err = png.Decode(bytes.NewReader(img.Data))
		} else {
			decoded, err = jpeg.Decode(bytes.NewReader(img.Data))
		}
		if err != nil {
			return Bitmap{}, fmt.Errorf("%w: jpeg: %v", ErrUndecodable, err)
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, decoded, &jpeg.Options{Quality: jpeg.DefaultQuality}); err != nil {
			return Bitmap{}, fmt.Errorf("failed to encode jpeg: %w", err)
		}
		return newBitmap(decoded, "image/jpeg", buf.Bytes()), nil

	case FilterJPX:
		// No JPEG 2000 codec is available, so the stream is forwarded as-is and the
		// dimensions come from its header, falling back to the image dictionary.
		width, height, ok := jpxDimensions(img.Data)
		if !ok {
			width, height = img.Width, img.Height
		}
		if len(img.Data) == 0 || width <= 0 || height < 0 {
			return Bitmap{}, fmt.Errorf("%w: jpx stream without usable dimensions", ErrUndecodable)
		}
		return Bitmap{Width: width, Height: height, MediaType: "image/jp2", Data: img.Data}, nil

	default:
		return Bitmap{}, fmt.Errorf("%w: %q", ErrUnsupportedFilter, img.Filter)
	}
}

func newBitmap(img image.Image, mediaType string, data []byte) Bitmap {
	bounds := img.Bounds()
	return Bitmap{Width: bounds.Dx(), Height: bounds.Dy(), MediaType: mediaType, Data: data}
}

// decodeFlateRaster accepts either an already rendered PNG/TIFF or raw samples.
// Raw samples are read as 8-bit RGB, or 8-bit gray when the length says so.
func decodeFlateRaster(img EmbeddedImage) (image.Image, error) {
	data := img.Data
	switch {
	case bytes.HasPrefix(data, pngSignature):
		decoded, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: png: %v", ErrUndecodable, err)
		}
		return decoded, nil
	case bytes.HasPrefix(data, tiffSignatureLE), bytes.HasPrefix(data, tiffSignatureBE):
		decoded, err := tiff.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: tiff: %v", ErrUndecodable, err)
		}
		return decoded, nil
	}

	w, h := img.Width, img.Height
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: raw samples need positive dimensions, got %dx%d", ErrUndecodable, w, h)
	}
	pixels := w * h
	switch len(data) {
	case pixels * 3:
		rgba := image.NewRGBA(image.Rect(0, 0, w, h))
		for i := 0; i < pixels; i++ {
			rgba.Set(i%w, i/w, color.RGBA{R: data[3*i], G: data[3*i+1], B: data[3*i+2], A: 0xff})
		}
		return rgba, nil
	case pixels:
		gray := image.NewGray(image.Rect(0, 0, w, h))
		copy(gray.Pix, data)
		return gray, nil
	default:
		return nil, fmt.Errorf("%w: %d bytes do not match %dx%d samples", ErrUndecodable, len(data), w, h)
	}
}

// jpxDimensions reads width and height from a JP2 "ihdr" box or a raw J2K SIZ marker.
func jpxDimensions(data []byte) (int, int, bool) {
	if i := bytes.Index(data, []byte("ihdr")); i >= 0 && len(data) >= i+12 {
		height := binary.BigEndian.Uint32(data[i+4:])
		width := binary.BigEndian.Uint32(data[i+8:])
		return int(width), int(height), true
	}
	// SOC (FF4F) followed by SIZ (FF51): Lsiz, Rsiz, Xsiz, Ysiz, XOsiz, YOsiz.
	if len(data) >= 24 && bytes.HasPrefix(data, []byte{0xFF, 0x4F, 0xFF, 0x51}) {
		xsiz := binary.BigEndian.Uint32(data[8:])
		ysiz := binary.BigEndian.Uint32(data[12:])
		xosiz := binary.BigEndian.Uint32(data[16:])
		yosiz := binary.BigEndian.Uint32(data[20:])
		if xsiz >= xosiz && ysiz >= yosiz {
			return int(xsiz - xosiz), int(ysiz - yosiz), true
		}
	}
	return 0, 0, false
}
