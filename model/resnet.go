package model

import (
	"github.com/disintegration/imaging"
	"github.com/krau/bananaripe/onnx"
)

// ResNet18Spec feeds channels-first 224x224 pixels scaled to [0,1]. The model
// was fine-tuned without mean/std normalization, so none is applied.
var ResNet18Spec = Spec{
	Name:    "resnet18",
	Width:   224,
	Height:  224,
	Layout:  NCHW,
	Scaling: ScaleUnit,
	Filter:  imaging.Lanczos,
}

// ResNet18 is an 18-layer residual network whose final fully connected layer
// was replaced by one with an output per local class.
type ResNet18 struct {
	*onnxBackend
}

func NewResNet18(path string, numClasses int, so onnx.SessionOptions) (*ResNet18, error) {
	b, err := openONNX(ResNet18Spec, path, numClasses, so)
	if err != nil {
		return nil, err
	}
	return &ResNet18{b}, nil
}

var _ Backend = (*ResNet18)(nil)
