// Package setup implements the interactive first-run wizard that points
// toursync at an API, signs the user in, and writes the config file.
package setup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Prompter asks the wizard's questions on w and reads answers line by line
// from r.
type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewPrompter returns a Prompter reading r and writing w.
func NewPrompter(r io.Reader, w io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(r), out: w}
}

// ask prints the prompt and returns the trimmed answer. ok is false once
// input is exhausted.
func (p *Prompter) ask(format string, args ...any) (answer string, ok bool) {
	_, _ = fmt.Fprintf(p.out, "  "+format+": ", args...)
	if !p.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(p.in.Text()), true
}

func (p *Prompter) hint(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, "  ("+format+")\n", args...)
}

// String asks for a line of text. An empty answer yields def; when def is
// empty too the question repeats.
func (p *Prompter) String(label, def string) string {
	for {
		var (
			answer string
			ok     bool
		)
		if def != "" {
			answer, ok = p.ask("%s [%s]", label, def)
		} else {
			answer, ok = p.ask("%s", label)
		}
		switch {
		case !ok:
			return def
		case answer != "":
			return answer
		case def != "":
			return def
		}
		p.hint("required, please enter a value")
	}
}

// Secret asks for a required value such as a password. Input is echoed.
func (p *Prompter) Secret(label string) string {
	return p.String(label, "")
}

// Confirm asks a yes/no question; an empty answer yields defaultYes.
func (p *Prompter) Confirm(label string, defaultYes bool) bool {
	hint := "[y/N]"
	if defaultYes {
		hint = "[Y/n]"
	}
	answer, ok := p.ask("%s %s", label, hint)
	if !ok || answer == "" {
		return defaultYes
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes"
}

// Duration asks for a Go duration between lo and hi. An empty, unparsable,
// or out-of-range answer yields def.
func (p *Prompter) Duration(label string, def, lo, hi time.Duration) time.Duration {
	answer, ok := p.ask("%s (%s-%s) [%s]", label, shortDuration(lo), shortDuration(hi), shortDuration(def))
	if !ok || answer == "" {
		return def
	}
	d, err := time.ParseDuration(answer)
	if err != nil || d < lo || d > hi {
		p.hint("invalid duration, using default %s", shortDuration(def))
		return def
	}
	return d
}

// Select lists options numbered from 1 and returns the zero-based index of
// the one picked. Invalid answers repeat the question.
func (p *Prompter) Select(label string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, errors.New("no options to select from")
	}
	_, _ = fmt.Fprintf(p.out, "  %s:\n", label)
	for i, opt := range options {
		_, _ = fmt.Fprintf(p.out, "    %d) %s\n", i+1, opt)
	}
	for {
		answer, ok := p.ask("Choice [1-%d]", len(options))
		if !ok {
			return -1, errors.New("no input")
		}
		if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
			return n - 1, nil
		}
		p.hint("enter a number between 1 and %d", len(options))
	}
}

// shortDuration formats d without zero trailing units, so 5m0s reads 5m.
func shortDuration(d time.Duration) string {
	s := d.String()
	if strings.HasSuffix(s, "m0s") {
		s = s[:len(s)-2]
	}
	if strings.HasSuffix(s, "h0m") {
		s = s[:len(s)-2]
	}
	return s
}
