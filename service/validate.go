package service

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/disintegration/imaging"
	_ "github.com/gen2brain/avif"
	_ "github.com/chai2010/webp"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

const (
	DefaultMaxFileBytes   = 20 << 20
	DefaultMaxImagePixels = 2 * 89478485
)

// Decoder reads image headers and pixels. The default one applies EXIF
// orientation from JPEG, PNG, WebP and TIFF metadata.
type Decoder interface {
	DecodeConfig(r io.Reader) (image.Config, string, error)
	Decode(r io.Reader) (image.Image, error)
}

type orientingDecoder struct{}

func (orientingDecoder) DecodeConfig(r io.Reader) (image.Config, string, error) {
	return image.DecodeConfig(r)
}

func (orientingDecoder) Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if isJPEG(data) {
		return imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return orient(img, exifOrientation(exifBlob(data))), nil
}

// Validator turns a path into an upright decoded image, refusing anything that
// could exhaust memory before the pixels are allocated.
type Validator struct {
	MaxFileBytes   int64
	MaxImagePixels int64
	decoder        Decoder
}

func NewValidator(maxFileBytes, maxImagePixels int64) *Validator {
	return &Validator{
		MaxFileBytes:   maxFileBytes,
		MaxImagePixels: maxImagePixels,
		decoder:        orientingDecoder{},
	}
}

// WithDecoder returns a copy of v that decodes with d.
func (v *Validator) WithDecoder(d Decoder) *Validator {
	c := *v
	c.decoder = d
	return &c
}

func (v *Validator) Validate(path string) (image.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, unreadable(err)
	}
	if info.IsDir() {
		return nil, newError(KindFileUnreadable, nil, "%s is a directory, not an image", info.Name())
	}
	if info.Size() > v.MaxFileBytes {
		return nil, v.tooLarge()
	}

	data, err := v.read(path)
	if err != nil {
		return nil, err
	}

	cfg, format, err := v.decoder.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, unsupported(err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, unsupported(fmt.Errorf("%s image reports %dx%d pixels", format, cfg.Width, cfg.Height))
	}
	if int64(cfg.Width)*int64(cfg.Height) > v.MaxImagePixels {
		return nil, newError(KindImageTooLarge, nil,
			"image too large (%dx%d pixels); try an image with a lower resolution", cfg.Width, cfg.Height)
	}

	img, err := v.decoder.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, unsupported(err)
	}
	return img, nil
}

// read loads the file but never more than the cap, in case it grew after Stat.
func (v *Validator) read(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, unreadable(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, v.MaxFileBytes+1))
	if err != nil {
		return nil, unreadable(err)
	}
	if int64(len(data)) > v.MaxFileBytes {
		return nil, v.tooLarge()
	}
	return data, nil
}

func (v *Validator) tooLarge() *Error {
	return newError(KindFileTooLarge, nil, "image too large (max %d MB)", v.MaxFileBytes>>20)
}

func unsupported(err error) *Error {
	return newError(KindUnsupportedFormat, err, "invalid file; please select an image (PNG, JPG, BMP, WebP)")
}

func unreadable(err error) *Error {
	return newError(KindFileUnreadable, err, "could not read file: %v", err)
}
