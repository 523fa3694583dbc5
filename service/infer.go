package service

import (
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/krau/bananaripe/model"
)

// Observer receives per-call timings and outcomes. metrics.Recorder implements it.
type Observer interface {
	ObserveStage(stage string, d time.Duration)
	ObserveOutcome(outcome string)
	ObserveConfidence(percent float64)
}

type nopObserver struct{}

func (nopObserver) ObserveStage(string, time.Duration) {}
func (nopObserver) ObserveOutcome(string)              {}
func (nopObserver) ObserveConfidence(float64)          {}

// Engine is the classification pipeline. It owns the backend for the life of
// the process. Classify is synchronous and calls must not overlap: backends
// reuse their input and output buffers.
type Engine struct {
	validator     *Validator
	backend       model.Backend
	classes       *Classes
	minConfidence float64
	observer      Observer
	log           *slog.Logger
}

type Option func(*Engine)

func WithValidator(v *Validator) Option {
	return func(e *Engine) { e.validator = v }
}

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMinConfidence records the low-confidence threshold. It is only reported
// in logs; results below it are still returned.
func WithMinConfidence(percent float64) Option {
	return func(e *Engine) { e.minConfidence = percent }
}

func New(backend model.Backend, classes *Classes, opts ...Option) *Engine {
	e := &Engine{
		validator: NewValidator(DefaultMaxFileBytes, DefaultMaxImagePixels),
		backend:   backend,
		classes:   classes,
		observer:  nopObserver{},
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Classify runs validate, preprocess, forward and interpret on the file at
// path. Every failure comes back as *Error; a Result is only returned whole.
func (e *Engine) Classify(path string) (Result, error) {
	log := e.log.With(slog.String("call", uuid.NewString()), slog.String("path", path))
	start := time.Now()

	res, err := e.classify(path)
	elapsed := time.Since(start)
	if err != nil {
		kind := KindOf(err)
		e.observer.ObserveOutcome(kind.String())
		attrs := []any{
			slog.String("kind", kind.String()),
			slog.String("error", err.Error()),
			slog.Duration("elapsed", elapsed),
		}
		if kind.Category() == CategoryInput {
			log.Warn("Image rejected", attrs...)
		} else {
			log.Error("Classification failed", attrs...)
		}
		return Result{}, err
	}

	e.observer.ObserveOutcome("ok")
	e.observer.ObserveConfidence(res.confidence)
	log.Info("Classified",
		slog.String("class", res.className),
		slog.String("description", res.description),
		slog.Float64("confidence", res.confidence),
		slog.Duration("elapsed", elapsed),
	)
	if res.confidence < e.minConfidence {
		log.Debug("Confidence below threshold", slog.Float64("threshold", e.minConfidence))
	}
	return res, nil
}

func (e *Engine) classify(path string) (Result, error) {
	var img image.Image
	err := e.stage("validate", KindUnsupportedFormat, func() error {
		var err error
		img, err = e.validator.Validate(path)
		return err
	})
	if err != nil {
		return Result{}, err
	}

	var tensor model.Tensor
	err = e.stage("preprocess", KindPreprocessFailure, func() error {
		var err error
		tensor, err = prepare(img, e.backend.Spec())
		if err != nil {
			return newError(KindPreprocessFailure, err, "could not prepare the image for the model")
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	var raw []float32
	err = e.stage("forward", KindInferenceFailure, func() error {
		var err error
		raw, err = e.backend.Forward(tensor)
		if err != nil {
			return newError(KindInferenceFailure, err, "error while analysing the image")
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	var score Score
	err = e.stage("interpret", KindInferenceFailure, func() error {
		var err error
		score, err = interpret(raw, e.classes.Len())
		if err != nil {
			return newError(KindInferenceFailure, err, "error while analysing the image")
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	name := e.classes.Name(score.Index)
	return Result{
		className:   name,
		description: e.classes.Describe(name),
		confidence:  roundTo(score.Probability*100, 2),
	}, nil
}

// stage times fn and turns a panic inside it into an *Error of kind.
func (e *Engine) stage(name string, kind Kind, fn func() error) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = newError(kind, fmt.Errorf("panic: %v", r), "unexpected failure during %s", name)
		}
		e.observer.ObserveStage(name, time.Since(start))
	}()
	return fn()
}

func (e *Engine) Spec() model.Spec {
	return e.backend.Spec()
}

func (e *Engine) Classes() *Classes {
	return e.classes
}

func (e *Engine) Close() error {
	return e.backend.Close()
}
