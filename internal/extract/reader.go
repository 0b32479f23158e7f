package extract

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// pdfDocument reads page text with ledongthuc/pdf and embedded images with pdfcpu.
type pdfDocument struct {
	text   *pdf.Reader
	images map[int][]EmbeddedImage
}

// Open parses data as a PDF. Both the text layer and the image resources are read up
// front, so a structurally broken file fails here rather than halfway through the pages.
func Open(data []byte) (doc Document, err error) {
	// ledongthuc/pdf panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	textReader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf text layer: %w", err)
	}

	images, err := extractImages(data)
	if err != nil {
		return nil, err
	}

	return &pdfDocument{text: textReader, images: images}, nil
}

func (d *pdfDocument) NumPages() int {
	return d.text.NumPage()
}

func (d *pdfDocument) PageText(n int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("page %d: pdf reader panic: %v", n, r)
		}
	}()

	page := d.text.Page(n)
	if page.V.IsNull() {
		return "", nil
	}
	text, err = page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("page %d: failed to extract text: %w", n, err)
	}
	return text, nil
}

func (d *pdfDocument) PageImages(n int) ([]EmbeddedImage, error) {
	return d.images[n], nil
}

func pdfcpuConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	conf.Cmd = model.EXTRACTIMAGES
	return conf
}

// extractImages collects the image XObjects of every page, grouped by page number and
// ordered by object number within a page. Page thumbnails are not included.
func extractImages(data []byte) (map[int][]EmbeddedImage, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), pdfcpuConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf structure: %w", err)
	}

	byPage := make(map[int][]EmbeddedImage)
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		for _, objNr := range pdfcpu.ImageObjNrs(ctx, pageNr) {
			if isPageThumb(ctx, objNr) {
				continue
			}
			imageObj := ctx.Optimize.ImageObjects[objNr]
			if imageObj == nil || imageObj.ImageDict == nil {
				continue
			}
			byPage[pageNr] = append(byPage[pageNr], readImage(ctx, imageObj, pageNr, objNr))
		}
		imgs := byPage[pageNr]
		sort.SliceStable(imgs, func(i, j int) bool { return imgs[i].ObjNr < imgs[j].ObjNr })
	}
	return byPage, nil
}

// readImage takes filter and dimensions from the image dictionary and the bytes from
// pdfcpu's renderer. Streams are only rendered for recognized filters. An image that
// cannot be read is returned without data so the caller counts it as undecodable.
func readImage(ctx *model.Context, imageObj *model.ImageObject, pageNr, objNr int) EmbeddedImage {
	sd := imageObj.ImageDict
	img := EmbeddedImage{
		Page:   pageNr,
		Name:   imageObj.ResourceNames[pageNr-1],
		ObjNr:  objNr,
		Filter: NormalizeFilter(lastFilter(sd)),
	}

	stub, err := pdfcpu.ExtractImage(ctx, sd, false, img.Name, objNr, true)
	if err != nil || stub == nil {
		return img
	}
	img.Filter = NormalizeFilter(stub.Filter)
	img.Width, img.Height = stub.Width, stub.Height

	if !IsRecognizedFilter(img.Filter) {
		return img
	}

	rendered, err := pdfcpu.ExtractImage(ctx, sd, false, img.Name, objNr, false)
	if err != nil || rendered == nil || rendered.Reader == nil {
		return img
	}
	raw, err := io.ReadAll(rendered)
	if err != nil {
		return img
	}
	img.Data = raw
	return img
}

// isPageThumb reports whether objNr is the /Thumb preview of any page.
func isPageThumb(ctx *model.Context, objNr int) bool {
	for _, indRef := range ctx.PageThumbs {
		if indRef.ObjectNumber.Value() == objNr {
			return true
		}
	}
	return false
}

func lastFilter(sd *types.StreamDict) string {
	if len(sd.FilterPipeline) == 0 {
		return ""
	}
	return sd.FilterPipeline[len(sd.FilterPipeline)-1].Name
}
