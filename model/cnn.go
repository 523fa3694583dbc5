package model

import (
	"github.com/disintegration/imaging"
	"github.com/krau/bananaripe/onnx"
)

// CNNSpec is the input contract of the network trained from scratch: 180x180
// channels-last pixels in 0-255. Its first layer divides by 255, so the
// preprocessor must not.
var CNNSpec = Spec{
	Name:    "cnn",
	Width:   180,
	Height:  180,
	Layout:  NHWC,
	Scaling: ScaleRaw,
	Filter:  imaging.Lanczos,
}

// CNN is four conv+maxpool stages (32, 64, 128, 256 filters), a 512-unit dense
// layer and a linear head with one logit per class. The exported graph is the
// inference graph: the flip/rotate/zoom augmentation and the dropout layer are
// identities there.
type CNN struct {
	*onnxBackend
}

func NewCNN(path string, numClasses int, so onnx.SessionOptions) (*CNN, error) {
	b, err := openONNX(CNNSpec, path, numClasses, so)
	if err != nil {
		return nil, err
	}
	return &CNN{b}, nil
}

var _ Backend = (*CNN)(nil)
