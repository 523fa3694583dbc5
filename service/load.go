package service

import (
	"github.com/krau/bananaripe/config"
	"github.com/krau/bananaripe/model"
	"github.com/krau/bananaripe/onnx"
)

// Load reads the class list and the model weights named by c. Any error here
// means the program has no usable model and must not start. The ONNX Runtime
// environment has to be initialized beforehand.
func Load(c config.Config, opts ...Option) (*Engine, error) {
	names, err := ReadClassNames(c.ClassNamesPath())
	if err != nil {
		return nil, newError(KindClassListUnreadable, err, "could not read class names from %s", c.ClassNamesPath())
	}
	classes, err := NewClasses(names, c.Descriptions)
	if err != nil {
		return nil, newError(KindClassListUnreadable, err, "invalid class list")
	}

	backend, err := model.Open(c.Backend, c.ModelPath(), classes.Len(), onnx.SessionOptions{
		IntraOpThreads: c.IntraOpThreads,
	})
	if err != nil {
		return nil, newError(KindModelIncompatible, err, "could not load model %s", c.ModelPath())
	}

	base := []Option{
		WithValidator(NewValidator(c.MaxFileBytes(), c.MaxImagePixels)),
		WithMinConfidence(c.MinConfidence),
	}
	return New(backend, classes, append(base, opts...)...), nil
}
