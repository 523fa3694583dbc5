package service

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindFileUnreadable is an OS-level failure to stat or read the file.
	KindFileUnreadable
	// KindFileTooLarge is a file over the byte cap; it is never decoded.
	KindFileTooLarge
	// KindUnsupportedFormat is a byte stream no registered decoder accepts.
	KindUnsupportedFormat
	// KindImageTooLarge is an image whose declared pixel count exceeds the cap.
	KindImageTooLarge
	KindPreprocessFailure
	KindInferenceFailure
	// KindModelIncompatible and KindClassListUnreadable only occur at load time.
	KindModelIncompatible
	KindClassListUnreadable
)

var kindNames = map[Kind]string{
	KindUnknown:             "Unknown",
	KindFileUnreadable:      "FileUnreadable",
	KindFileTooLarge:        "FileTooLarge",
	KindUnsupportedFormat:   "UnsupportedFormat",
	KindImageTooLarge:       "ImageTooLarge",
	KindPreprocessFailure:   "PreprocessFailure",
	KindInferenceFailure:    "InferenceFailure",
	KindModelIncompatible:   "ModelIncompatible",
	KindClassListUnreadable: "ClassListUnreadable",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Category tells the caller what the user should do next.
type Category int

const (
	// CategoryInput: the file is the problem, pick a different one.
	CategoryInput Category = iota
	// CategoryInternal: something went wrong inside the classifier.
	CategoryInternal
)

func (c Category) String() string {
	if c == CategoryInput {
		return "input"
	}
	return "internal"
}

func (k Kind) Category() Category {
	switch k {
	case KindFileUnreadable, KindFileTooLarge, KindUnsupportedFormat, KindImageTooLarge:
		return CategoryInput
	default:
		return CategoryInternal
	}
}

// Error is the only error type Classify and Load return.
type Error struct {
	Kind Kind
	// Message is meant for display.
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
