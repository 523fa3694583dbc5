package onnx

import (
	"errors"
	"fmt"
	"os"

	ort "github.com/yalue/onnxruntime_go"
)

var ErrShapeMismatch = errors.New("model shape mismatch")

// Session is a single-input, single-output float32 graph bound to preallocated
// tensors. Run overwrites those tensors, so calls must not overlap.
type Session struct {
	session    *ort.AdvancedSession
	input      *ort.Tensor[float32]
	output     *ort.Tensor[float32]
	inputName  string
	outputName string
}

type SessionOptions struct {
	// IntraOpThreads of 0 leaves the runtime default.
	IntraOpThreads int
}

// NewSession opens the graph at path after checking that its declared input and
// output match inShape and outShape. Dynamic dims (<= 0) in the graph match anything.
func NewSession(path string, inShape, outShape ort.Shape, so SessionOptions) (*Session, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file: %w", err)
	}

	inputs, outputs, err := ort.GetInputOutputInfo(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get model input/output info: %w", err)
	}
	if len(inputs) != 1 || len(outputs) != 1 {
		return nil, fmt.Errorf("%w: want 1 input and 1 output, got %d and %d",
			ErrShapeMismatch, len(inputs), len(outputs))
	}
	if err := checkInfo("input", inputs[0], inShape); err != nil {
		return nil, err
	}
	if err := checkInfo("output", outputs[0], outShape); err != nil {
		return nil, err
	}

	opts, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer opts.Destroy()
	if so.IntraOpThreads > 0 {
		if err := opts.SetIntraOpNumThreads(so.IntraOpThreads); err != nil {
			return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
		}
	}

	inputTensor, err := ort.NewEmptyTensor[float32](inShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](outShape)
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		path,
		[]string{inputs[0].Name},
		[]string{outputs[0].Name},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		opts,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX Runtime session: %w", err)
	}

	return &Session{
		session:    session,
		input:      inputTensor,
		output:     outputTensor,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
	}, nil
}

func checkInfo(role string, info ort.InputOutputInfo, want ort.Shape) error {
	if info.DataType != ort.TensorElementDataTypeFloat {
		return fmt.Errorf("%w: %s %q is %s, want float32", ErrShapeMismatch, role, info.Name, info.DataType)
	}
	if !ShapeMatches(info.Dimensions, want) {
		return fmt.Errorf("%w: %s %q has shape %v, want %v", ErrShapeMismatch, role, info.Name, info.Dimensions, want)
	}
	return nil
}

// ShapeMatches reports whether a declared graph shape is compatible with want.
func ShapeMatches(declared, want ort.Shape) bool {
	if len(declared) != len(want) {
		return false
	}
	for i, d := range declared {
		if d > 0 && d != want[i] {
			return false
		}
	}
	return true
}

// Run copies in into the input tensor, evaluates the graph and returns a copy of the output.
func (s *Session) Run(in []float32) ([]float32, error) {
	data := s.input.GetData()
	if len(in) != len(data) {
		return nil, fmt.Errorf("input has %d values, session expects %d", len(in), len(data))
	}
	copy(data, in)
	if err := s.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	out := s.output.GetData()
	result := make([]float32, len(out))
	copy(result, out)
	return result, nil
}

func (s *Session) Destroy() error {
	var errs []error
	if s.session != nil {
		errs = append(errs, s.session.Destroy())
		s.session = nil
	}
	if s.input != nil {
		errs = append(errs, s.input.Destroy())
		s.input = nil
	}
	if s.output != nil {
		errs = append(errs, s.output.Destroy())
		s.output = nil
	}
	return errors.Join(errs...)
}
