package service

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
)

// ReadClassNames reads the newline-delimited class list written at training
// time. Order is the model's output order and is kept exactly, duplicates
// included. Trailing blank lines are ignored; a blank line between names would
// shift every later index, so it is rejected.
func ReadClassNames(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(b), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil, errors.New("class list is empty")
	}
	names := make([]string, len(lines))
	for i, l := range lines {
		l = strings.TrimSpace(l)
		if l == "" {
			return nil, fmt.Errorf("class list has a blank line at %d", i+1)
		}
		names[i] = l
	}
	return names, nil
}

// softmax is computed in float64 after subtracting the max logit.
func softmax(logits []float32) []float64 {
	maxLogit := math.Inf(-1)
	for _, v := range logits {
		maxLogit = math.Max(maxLogit, float64(v))
	}
	probs := make([]float64, len(logits))
	sum := 0.0
	for i, v := range logits {
		probs[i] = math.Exp(float64(v) - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// argmax returns the first index holding the largest value.
func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// interpret normalizes raw backend output into a distribution over the classes.
func interpret(raw []float32, numClasses int) (Score, error) {
	if len(raw) != numClasses {
		return Score{}, fmt.Errorf("model returned %d scores for %d classes", len(raw), numClasses)
	}
	for i, v := range raw {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return Score{}, fmt.Errorf("model returned a non-finite score at %d", i)
		}
	}
	probs := softmax(raw)
	idx := argmax(probs)
	return Score{Probabilities: probs, Index: idx, Probability: probs[idx]}, nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
