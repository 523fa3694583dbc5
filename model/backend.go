// Package model holds the trained networks the classifier can run and the
// contract they share. Each backend declares the input it expects so the
// preprocessing stage can be driven entirely by that declaration.
package model

import (
	"errors"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/krau/bananaripe/onnx"
)

// ErrIncompatible marks a load failure: missing or corrupt weights, or a graph
// whose shapes do not fit the backend's architecture or the class list.
var ErrIncompatible = errors.New("model incompatible")

type Layout int

const (
	NHWC Layout = iota
	NCHW
)

func (l Layout) String() string {
	if l == NCHW {
		return "NCHW"
	}
	return "NHWC"
}

type Scaling int

const (
	// ScaleRaw forwards 0-255 values; the graph rescales them itself.
	ScaleRaw Scaling = iota
	// ScaleUnit divides by 255 and applies nothing else.
	ScaleUnit
)

// Spec is the input contract of a backend.
type Spec struct {
	Name    string
	Width   int
	Height  int
	Layout  Layout
	Scaling Scaling
	Filter  imaging.ResampleFilter
}

func (s Spec) InputShape() []int64 {
	if s.Layout == NCHW {
		return []int64{1, 3, int64(s.Height), int64(s.Width)}
	}
	return []int64{1, int64(s.Height), int64(s.Width), 3}
}

// Len is the number of float32 values in one prepared input.
func (s Spec) Len() int {
	return 3 * s.Width * s.Height
}

// Tensor is a prepared batch of one image.
type Tensor struct {
	Shape []int64
	Data  []float32
}

// Backend runs a forward pass and returns one raw score per class.
// Implementations are not safe for concurrent Forward calls.
type Backend interface {
	Spec() Spec
	Forward(t Tensor) ([]float32, error)
	Close() error
}

// Open loads the backend registered under name.
func Open(name, path string, numClasses int, so onnx.SessionOptions) (Backend, error) {
	switch name {
	case CNNSpec.Name:
		b, err := NewCNN(path, numClasses, so)
		if err != nil {
			return nil, err
		}
		return b, nil
	case ResNet18Spec.Name:
		b, err := NewResNet18(path, numClasses, so)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrIncompatible, name)
	}
}

type onnxBackend struct {
	spec    Spec
	classes int
	session *onnx.Session
}

func openONNX(spec Spec, path string, numClasses int, so onnx.SessionOptions) (*onnxBackend, error) {
	if numClasses <= 0 {
		return nil, fmt.Errorf("%w: no classes", ErrIncompatible)
	}
	session, err := onnx.NewSession(path, spec.InputShape(), []int64{1, int64(numClasses)}, so)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrIncompatible, spec.Name, err)
	}
	return &onnxBackend{spec: spec, classes: numClasses, session: session}, nil
}

func (b *onnxBackend) Spec() Spec {
	return b.spec
}

func (b *onnxBackend) Forward(t Tensor) ([]float32, error) {
	if err := checkTensor(b.spec, t); err != nil {
		return nil, err
	}
	out, err := b.session.Run(t.Data)
	if err != nil {
		return nil, err
	}
	if len(out) != b.classes {
		return nil, fmt.Errorf("%s returned %d scores, want %d", b.spec.Name, len(out), b.classes)
	}
	return out, nil
}

func (b *onnxBackend) Close() error {
	return b.session.Destroy()
}

func checkTensor(spec Spec, t Tensor) error {
	want := spec.InputShape()
	if len(t.Shape) != len(want) {
		return fmt.Errorf("tensor shape %v, %s expects %v", t.Shape, spec.Name, want)
	}
	for i := range want {
		if t.Shape[i] != want[i] {
			return fmt.Errorf("tensor shape %v, %s expects %v", t.Shape, spec.Name, want)
		}
	}
	if len(t.Data) != spec.Len() {
		return fmt.Errorf("tensor has %d values, %s expects %d", len(t.Data), spec.Name, spec.Len())
	}
	return nil
}
