package yolocrop

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// ExtractCrop returns a copy of the region of img selected by box. The box is relative to the
// upper-left corner of img.
func ExtractCrop(img image.Image, box PixelBox) *image.NRGBA {
	return imaging.Crop(img, box.Rect().Add(img.Bounds().Min))
}

// CropPath is the output location of the crop for the record with the given ordinal:
// <outRoot>/<split>/<class>/<stem>_<ordinal>.<ext>.
func CropPath(outRoot, split, class, stem string, ordinal int, enc Encoding) string {
	return filepath.Join(outRoot, split, class, fmt.Sprintf("%s_%d.%s", stem, ordinal, enc.Ext()))
}

// WriteCrop encodes img and stores it at path, creating the parent directory if needed. The file
// is written to a temporary name in the same directory and renamed into place, so an existing
// crop is replaced atomically.
//
// All failures are returned as *IOWriteError.
func WriteCrop(path string, img image.Image, opts EncodeOptions) (err error) {
	defer func() {
		if err != nil {
			err = &IOWriteError{Path: path, Err: err}
		}
	}()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if err := encodeImage(tmp, img, opts); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return err
	}

	return os.Rename(tmpPath, path)
}
