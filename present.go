package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/krau/bananaripe/service"
)

type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// Message is what the user sees for one classification attempt.
type Message struct {
	Severity Severity
	Text     string
}

func (m Message) String() string {
	return fmt.Sprintf("[%s] %s", m.Severity, m.Text)
}

// Render maps a classification outcome to a message. Problems with the chosen
// file are errors the user can fix by picking another one; anything else is a
// warning about the classifier itself.
func Render(res service.Result, err error) Message {
	if err == nil {
		return Message{Severity: SeverityInfo, Text: res.String()}
	}
	var se *service.Error
	if !errors.As(err, &se) {
		return Message{Severity: SeverityWarning, Text: "unexpected error: " + err.Error()}
	}
	if se.Kind.Category() == service.CategoryInput {
		return Message{Severity: SeverityError, Text: se.Message}
	}
	return Message{Severity: SeverityWarning, Text: se.Message}
}

type classifier interface {
	Classify(path string) (service.Result, error)
}

// prompt reads one image path per line from in and classifies it, one at a
// time, until in is exhausted or ctx is done. Blank lines are skipped.
func prompt(ctx context.Context, c classifier, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	fmt.Fprint(out, "image path> ")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			path := strings.Trim(strings.TrimSpace(line), `"'`)
			if path != "" {
				fmt.Fprintln(out, Render(c.Classify(path)))
			}
			fmt.Fprint(out, "image path> ")
		}
	}
}
