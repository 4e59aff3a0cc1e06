package processor

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"imscale/pkg/imgutil"
)

// EncodeOptions selects the per-format knobs for a single encode.
type EncodeOptions struct {
	// Quality applies to JPEG and lossy WebP (0-100).
	Quality int
	// Optimize requests lossless recompression where the format supports
	// it (PNG best-compression).
	Optimize bool
	// Lossless switches WebP to lossless mode; Quality is then ignored.
	Lossless bool
}

// Codec is the narrow seam between the orchestration and the imaging
// libraries, so the pipeline can be exercised with a stub under test.
type Codec interface {
	Decode(r io.Reader, kind imgutil.Kind) (image.Image, error)
	Resample(img image.Image, width, height int) image.Image
	Encode(w io.Writer, img image.Image, kind imgutil.Kind, opts EncodeOptions) error
}

// DefaultCodec returns the production codec backed by disintegration/imaging
// and chai2010/webp.
func DefaultCodec() Codec { return imagingCodec{} }

type imagingCodec struct{}

func (imagingCodec) Decode(r io.Reader, kind imgutil.Kind) (image.Image, error) {
	if kind == imgutil.KindWebP {
		return webp.Decode(r)
	}
	// AutoOrientation applies the EXIF orientation tag before any
	// resampling happens.
	return imaging.Decode(r, imaging.AutoOrientation(true))
}

func (imagingCodec) Resample(img image.Image, width, height int) image.Image {
	return imaging.Resize(img, width, height, imaging.Lanczos)
}

func (imagingCodec) Encode(w io.Writer, img image.Image, kind imgutil.Kind, opts EncodeOptions) error {
	switch kind {
	case imgutil.KindWebP:
		return webp.Encode(w, img, &webp.Options{
			Lossless: opts.Lossless,
			Quality:  float32(opts.Quality),
		})
	case imgutil.KindJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(opts.Quality))
	case imgutil.KindPNG:
		level := png.DefaultCompression
		if opts.Optimize {
			level = png.BestCompression
		}
		return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(level))
	case imgutil.KindTIFF:
		return imaging.Encode(w, img, imaging.TIFF)
	case imgutil.KindBMP:
		return imaging.Encode(w, img, imaging.BMP)
	default:
		return fmt.Errorf("unsupported output format: %s", kind)
	}
}
