package service

import (
	"errors"
	"fmt"
	"maps"
)

const UnknownDescription = "Unknown"

// Score is the normalized model output for one image.
type Score struct {
	Probabilities []float64
	Index         int
	Probability   float64
}

// Result is a successful classification. It cannot be changed once built.
type Result struct {
	className   string
	description string
	confidence  float64
}

func (r Result) ClassName() string {
	return r.className
}

func (r Result) Description() string {
	return r.description
}

// Confidence is the winning probability as a percentage rounded to 2 places.
func (r Result) Confidence() float64 {
	return r.confidence
}

func (r Result) String() string {
	return fmt.Sprintf("Result: [%s] (%s)\nConfidence: %.2f%%", r.description, r.className, r.confidence)
}

// Classes is the read-only class table: names in model output order plus
// their human-readable descriptions.
type Classes struct {
	names        []string
	descriptions map[string]string
}

func NewClasses(names []string, descriptions map[string]string) (*Classes, error) {
	if len(names) == 0 {
		return nil, errors.New("no class names")
	}
	return &Classes{
		names:        append([]string(nil), names...),
		descriptions: maps.Clone(descriptions),
	}, nil
}

func (c *Classes) Len() int {
	return len(c.names)
}

func (c *Classes) Name(i int) string {
	return c.names[i]
}

func (c *Classes) Names() []string {
	return append([]string(nil), c.names...)
}

// Describe never fails: names without a description map to UnknownDescription.
func (c *Classes) Describe(name string) string {
	if d, ok := c.descriptions[name]; ok {
		return d
	}
	return UnknownDescription
}
