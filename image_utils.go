package yolocrop

import (
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Registers the WebP decoder for source images.
)

// Encoding is the file format of written crops.
type Encoding string

// The supported crop encodings.
const (
	JPEG Encoding = "jpg"
	PNG  Encoding = "png"
	WebP Encoding = "webp"
)

// ParseEncoding maps a user supplied encoding name to an Encoding.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "jpg", "jpeg":
		return JPEG, nil
	case "png":
		return PNG, nil
	case "webp":
		return WebP, nil
	}
	return "", fmt.Errorf("unsupported output encoding %q", s)
}

// Ext returns the file extension for e, without the dot.
func (e Encoding) Ext() string {
	return string(e)
}

// EncodeOptions configures how crops are encoded.
type EncodeOptions struct {
	Encoding    Encoding
	JPEGQuality int  // [1, 100], used for JPEG and lossy WebP.
	Lossless    bool // WebP only.
}

// encodeImage writes img to w in the format selected by opts.
func encodeImage(w io.Writer, img image.Image, opts EncodeOptions) error {
	switch opts.Encoding {
	case PNG:
		return imaging.Encode(w, img, imaging.PNG)
	case WebP:
		return webp.Encode(w, img, &webp.Options{Lossless: opts.Lossless, Quality: float32(opts.JPEGQuality)})
	case JPEG, "":
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(opts.JPEGQuality))
	}
	return fmt.Errorf("unsupported output encoding %q", opts.Encoding)
}

// ParseResampleFilter maps a filter name to an imaging.ResampleFilter.
func ParseResampleFilter(name string) (imaging.ResampleFilter, error) {
	switch name {
	case "nearest":
		return imaging.NearestNeighbor, nil
	case "box":
		return imaging.Box, nil
	case "linear":
		return imaging.Linear, nil
	case "gaussian":
		return imaging.Gaussian, nil
	case "lanczos":
		return imaging.Lanczos, nil
	}
	return imaging.ResampleFilter{}, fmt.Errorf("unknown resampling filter %q", name)
}

// resizeImage resamples the image to match the longer and shorter sides (one may be 0, in which
// case the aspect ratio is kept).
//
// Returns the resized image along with the width and height scale factors.
func resizeImage(img image.Image, longerSide, shorterSide int,
	downsamplingFilter, upsamplingFilter imaging.ResampleFilter) (
	resized image.Image, scaleWidth, scaleHeight float64) {

	imgBounds := img.Bounds()
	imgWidth := imgBounds.Dx()
	imgHeight := imgBounds.Dy()

	imgLonger := imgWidth
	imgShorter := imgHeight
	isLandscape := true
	if imgHeight > imgWidth {
		imgLonger = imgHeight
		imgShorter = imgWidth
		isLandscape = false
	}

	// Calculate the target dimensions.
	if longerSide <= 0 {
		longerSide = int(math.Round(float64(shorterSide) * (float64(imgLonger) / float64(imgShorter))))
	} else if shorterSide <= 0 {
		shorterSide = int(math.Round(float64(longerSide) * (float64(imgShorter) / float64(imgLonger))))
	}
	longerSide = max(longerSide, 1)
	shorterSide = max(shorterSide, 1)

	// Select the filter based on the direction of the rescaling operation.
	filter := upsamplingFilter
	if longerSide*shorterSide < imgWidth*imgHeight {
		filter = downsamplingFilter
	}

	if isLandscape {
		resized = imaging.Resize(img, longerSide, shorterSide, filter)
		scaleWidth = float64(longerSide) / float64(imgLonger)
		scaleHeight = float64(shorterSide) / float64(imgShorter)
	} else { // Portrait.
		resized = imaging.Resize(img, shorterSide, longerSide, filter)
		scaleWidth = float64(shorterSide) / float64(imgShorter)
		scaleHeight = float64(longerSide) / float64(imgLonger)
	}

	return resized, scaleWidth, scaleHeight
}

// OpenSourceImage decodes the image for stem from imageDir, trying the extensions in order. The
// first existing file is used; if it cannot be decoded, later extensions are not tried.
//
// Returns the decoded image and its path, or a *DecodeError.
func OpenSourceImage(imageDir, stem string, exts []string) (image.Image, string, error) {
	for _, ext := range exts {
		path := filepath.Join(imageDir, stem+ext)
		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, path, &DecodeError{Stem: stem, Path: path, Err: err}
		}
		if info.IsDir() {
			continue
		}

		img, err := loadImage(path)
		if err != nil {
			return nil, path, &DecodeError{Stem: stem, Path: path, Err: err}
		}
		if img.Bounds().Empty() {
			return nil, path, &DecodeError{Stem: stem, Path: path, Err: errors.New("empty image")}
		}
		return img, path, nil
	}

	return nil, "", &DecodeError{Stem: stem, Err: ErrImageNotFound}
}

// loadImage reads and decodes the image at path.
func loadImage(path string) (image.Image, error) {
	return imaging.Open(path)
}

// decodeImageConfig opens the file at path and returns the results of image.DecodeConfig.
func decodeImageConfig(path string) (config image.Config, format string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer closeWithErrCheck(file, &err)

	return image.DecodeConfig(file)
}
