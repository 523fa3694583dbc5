package service

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/krau/bananaripe/model"
)

// prepare turns img into the tensor spec asks for. img itself is left untouched.
func prepare(img image.Image, spec model.Spec) (model.Tensor, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return model.Tensor{}, fmt.Errorf("invalid model input size %dx%d", spec.Width, spec.Height)
	}
	if img.Bounds().Empty() {
		return model.Tensor{}, fmt.Errorf("image has no pixels")
	}

	// Alpha must be gone before resampling, otherwise the filter weights by it.
	rgb := toRGB(img)
	resized := imaging.Resize(rgb, spec.Width, spec.Height, spec.Filter)

	w, h := spec.Width, spec.Height
	if resized.Bounds().Dx() != w || resized.Bounds().Dy() != h {
		return model.Tensor{}, fmt.Errorf("resize produced %dx%d, want %dx%d",
			resized.Bounds().Dx(), resized.Bounds().Dy(), w, h)
	}

	out := make([]float32, spec.Len())
	plane := w * h
	for y := 0; y < h; y++ {
		row := resized.Pix[y*resized.Stride : y*resized.Stride+w*4]
		for x := 0; x < w; x++ {
			r := scale(row[x*4], spec.Scaling)
			g := scale(row[x*4+1], spec.Scaling)
			b := scale(row[x*4+2], spec.Scaling)

			switch spec.Layout {
			case model.NCHW:
				i := y*w + x
				out[i] = r
				out[plane+i] = g
				out[2*plane+i] = b
			default:
				i := (y*w + x) * 3
				out[i] = r
				out[i+1] = g
				out[i+2] = b
			}
		}
	}

	return model.Tensor{Shape: spec.InputShape(), Data: out}, nil
}

// toRGB copies img into an opaque NRGBA: grayscale and palette images are
// expanded and the alpha channel is dropped, keeping the stored color.
func toRGB(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

func scale(v uint8, s model.Scaling) float32 {
	if s == model.ScaleUnit {
		return float32(v) / 255
	}
	return float32(v)
}
