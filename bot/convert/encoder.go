package convert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/go-pdf/fpdf"
)

// Encoder renders an ordered list of images into one document.
type Encoder interface {
	Encode(ctx context.Context, images []string, w io.Writer) error
}

// DefaultJPEGQuality is used when PDFEncoder.Quality is zero.
const DefaultJPEGQuality = 90

// PDFEncoder writes one page per image, each page sized to its image
// (1 px = 1 pt). Images are flattened onto white before embedding, so
// transparency and palette images come out as plain RGB.
type PDFEncoder struct {
	Quality int
}

// NewPDFEncoder returns an encoder with default settings.
func NewPDFEncoder() *PDFEncoder {
	return &PDFEncoder{Quality: DefaultJPEGQuality}
}

// Encode implements Encoder.
func (e *PDFEncoder) Encode(ctx context.Context, images []string, w io.Writer) error {
	if len(images) == 0 {
		return ErrEmptyInput
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("pdfbot", false)

	for i, path := range images {
		if err := ctx.Err(); err != nil {
			return err
		}
		page, bounds, err := e.loadRGB(path)
		if err != nil {
			return &EncodingError{Image: path, Err: err}
		}

		name := fmt.Sprintf("page-%d", i)
		opts := fpdf.ImageOptions{ImageType: "JPG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(page))
		wd, ht := float64(bounds.Dx()), float64(bounds.Dy())
		pdf.AddPageFormat("P", fpdf.SizeType{Wd: wd, Ht: ht})
		pdf.ImageOptions(name, 0, 0, wd, ht, false, opts, 0, "")
		if err := pdf.Error(); err != nil {
			return &EncodingError{Image: path, Err: err}
		}
	}

	if err := pdf.Output(w); err != nil {
		return &EncodingError{Err: err}
	}
	return nil
}

// loadRGB decodes the image at path and re-encodes it as an opaque JPEG.
func (e *PDFEncoder) loadRGB(path string) ([]byte, image.Rectangle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, image.Rectangle{}, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("decode: %w", err)
	}
	b := src.Bounds()
	if b.Empty() {
		return nil, image.Rectangle{}, fmt.Errorf("decode: empty image")
	}

	canvas := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, canvas.Bounds(), src, b.Min, draw.Over)

	q := e.Quality
	if q <= 0 {
		q = DefaultJPEGQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, canvas, &jpeg.Options{Quality: q}); err != nil {
		return nil, image.Rectangle{}, fmt.Errorf("jpeg: %w", err)
	}
	return buf.Bytes(), canvas.Bounds(), nil
}
