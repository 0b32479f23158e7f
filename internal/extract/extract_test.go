package extract

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsRelevantImage(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		want          bool
	}{
		{"small square icon", 200, 200, false},
		{"just over the pixel threshold", 201, 200, true},
		{"small but tall", 100, 200, true},
		{"zero height", 150, 0, true},
		{"zero width and height", 0, 0, true},
		{"band lower edge", 80, 100, false},
		{"band upper edge", 120, 100, false},
		{"just outside upper edge", 121, 100, true},
		{"large square diagram", 500, 500, true},
		{"wide banner", 1200, 30, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRelevantImage(tt.width, tt.height))
		})
	}
}

func TestNormalizeFilter(t *testing.T) {
	assert.Equal(t, "FlateDecode", NormalizeFilter("/FlateDecode"))
	assert.Equal(t, "DCTDecode", NormalizeFilter("ASCII85Decode,DCTDecode"))
	assert.Equal(t, "JPXDecode", NormalizeFilter(" JPXDecode "))
	assert.Equal(t, "", NormalizeFilter(""))
}

func TestIsRecognizedFilter(t *testing.T) {
	assert.True(t, IsRecognizedFilter("FlateDecode"))
	assert.True(t, IsRecognizedFilter("/DCTDecode"))
	assert.True(t, IsRecognizedFilter("JPXDecode"))
	assert.False(t, IsRecognizedFilter("CCITTFaxDecode"))
	assert.False(t, IsRecognizedFilter("JBIG2Decode"))
	assert.False(t, IsRecognizedFilter(""))
}

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	return img
}

func TestDecode_FlatePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(30, 20)))

	bm, err := Decode(EmbeddedImage{Filter: FilterFlate, Width: 30, Height: 20, Data: buf.Bytes()})
	require.NoError(t, err)
	assert.Equal(t, 30, bm.Width)
	assert.Equal(t, 20, bm.Height)
	assert.Equal(t, "image/png", bm.MediaType)
	assert.True(t, bytes.HasPrefix(bm.Data, pngSignature))
}

func TestDecode_FlateRawRGB(t *testing.T) {
	w, h := 4, 3
	raw := make([]byte, w*h*3)
	for i := range raw {
		raw[i] = byte(i)
	}

	bm, err := Decode(EmbeddedImage{Filter: "/FlateDecode", Width: w, Height: h, Data: raw})
	require.NoError(t, err)
	assert.Equal(t, w, bm.Width)
	assert.Equal(t, h, bm.Height)

	decoded, err := png.Decode(bytes.NewReader(bm.Data))
	require.NoError(t, err)
	r, g, b, _ := decoded.At(1, 0).RGBA()
	assert.Equal(t, uint32(3), r>>8)
	assert.Equal(t, uint32(4), g>>8)
	assert.Equal(t, uint32(5), b>>8)
}

func TestDecode_FlateRawGray(t *testing.T) {
	bm, err := Decode(EmbeddedImage{Filter: FilterFlate, Width: 5, Height: 2, Data: make([]byte, 10)})
	require.NoError(t, err)
	assert.Equal(t, 5, bm.Width)
	assert.Equal(t, 2, bm.Height)
}

func TestDecode_FlateSizeMismatch(t *testing.T) {
	_, err := Decode(EmbeddedImage{Filter: FilterFlate, Width: 5, Height: 5, Data: []byte{1, 2, 3}})
	assert.True(t, errors.Is(err, ErrUndecodable))
}

func TestDecode_DCT(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, testImage(64, 48), nil))

	bm, err := Decode(EmbeddedImage{Filter: FilterDCT, Data: buf.Bytes()})
	require.NoError(t, err)
	assert.Equal(t, 64, bm.Width)
	assert.Equal(t, 48, bm.Height)
	assert.Equal(t, "image/jpeg", bm.MediaType)

	_, err = jpeg.Decode(bytes.NewReader(bm.Data))
	assert.NoError(t, err)
}

func TestDecode_DCTRenderedAsPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, testImage(40, 30)))

	bm, err := Decode(EmbeddedImage{Filter: FilterDCT, Data: buf.Bytes()})
	require.NoError(t, err)
	assert.Equal(t, 40, bm.Width)
	assert.Equal(t, 30, bm.Height)
	assert.Equal(t, "image/jpeg", bm.MediaType)
}

func TestDecode_DCTGarbage(t *testing.T) {
	_, err := Decode(EmbeddedImage{Filter: FilterDCT, Data: []byte("not a jpeg")})
	assert.True(t, errors.Is(err, ErrUndecodable))
}

func TestDecode_JPX(t *testing.T) {
	// Minimal JP2 header box sequence carrying an ihdr box: height 300, width 640.
	header := []byte("\x00\x00\x00\x0cjP  \r\n\x87\n\x00\x00\x00\x2djp2h\x00\x00\x00\x16ihdr")
	dims := make([]byte, 8)
	binary.BigEndian.PutUint32(dims[0:], 300)
	binary.BigEndian.PutUint32(dims[4:], 640)
	data := append(append(header, dims...), 0x00, 0x03, 0x07, 0x07, 0x00, 0x00)

	bm, err := Decode(EmbeddedImage{Filter: FilterJPX, Width: 1, Height: 1, Data: data})
	require.NoError(t, err)
	assert.Equal(t, 640, bm.Width)
	assert.Equal(t, 300, bm.Height)
	assert.Equal(t, "image/jp2", bm.MediaType)
	assert.Equal(t, data, bm.Data)
}

func TestDecode_JPXFallsBackToDictionary(t *testing.T) {
	bm, err := Decode(EmbeddedImage{Filter: FilterJPX, Width: 320, Height: 200, Data: []byte("opaque")})
	require.NoError(t, err)
	assert.Equal(t, 320, bm.Width)
	assert.Equal(t, 200, bm.Height)
}

func TestDecode_UnsupportedFilter(t *testing.T) {
	_, err := Decode(EmbeddedImage{Filter: "CCITTFaxDecode", Data: []byte{0}})
	assert.True(t, errors.Is(err, ErrUnsupportedFilter))
}

func TestOpen_NotAPDF(t *testing.T) {
	_, err := Open([]byte("this is plainly not a pdf"))
	assert.Error(t, err)
}
