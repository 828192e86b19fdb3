// Package console renders experiment screens on a terminal. Fixation,
// impulse and blank frames clear the screen and draw a centered glyph;
// instruction and feedback text goes through glamour so operator-facing
// screens read as formatted markdown.
package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Display implements ports.Display on a terminal writer.
type Display struct {
	out    io.Writer
	output *termenv.Output
	render func(string) (string, error)
	width  int
	height int
	plain  bool
}

// Option configures a Display.
type Option func(*Display)

// WithWriter redirects output, mainly for tests.
func WithWriter(w io.Writer) Option {
	return func(d *Display) {
		d.out = w
		d.plain = true
	}
}

// New creates a terminal display. Screen geometry is probed once at
// startup; fixed-size lab monitors do not resize mid-run.
func New(opts ...Option) *Display {
	d := &Display{out: os.Stdout, width: 80, height: 24}
	for _, opt := range opts {
		opt(d)
	}

	if !d.plain {
		if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
			d.width, d.height = w, h
		}
	}
	d.output = termenv.NewOutput(d.out)

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(d.width),
	)
	if err != nil || d.plain {
		d.render = func(md string) (string, error) { return md, nil }
	} else {
		d.render = r.Render
	}
	return d
}

// Fixation draws the centered cross that anchors gaze between stimuli.
func (d *Display) Fixation() error {
	return d.centered("+")
}

// Impulse draws the neutral impulse marker.
func (d *Display) Impulse() error {
	p := d.output.ColorProfile()
	glyph := termenv.String("◆").Foreground(p.Color("#fb7185")).String()
	if d.plain {
		glyph = "◆"
	}
	return d.centered(glyph)
}

// Blank clears the screen.
func (d *Display) Blank() error {
	d.clear()
	return nil
}

// Message renders markdown text from the top of a cleared screen.
func (d *Display) Message(text string) error {
	d.clear()
	rendered, err := d.render(text)
	if err != nil {
		rendered = text
	}
	_, err = fmt.Fprint(d.out, rendered)
	return err
}

func (d *Display) clear() {
	if d.plain {
		fmt.Fprint(d.out, "\n")
		return
	}
	d.output.ClearScreen()
	d.output.MoveCursor(1, 1)
}

func (d *Display) centered(glyph string) error {
	d.clear()
	if d.plain {
		_, err := fmt.Fprintln(d.out, glyph)
		return err
	}
	row := d.height / 2
	col := d.width / 2
	d.output.MoveCursor(row, col)
	_, err := fmt.Fprint(d.out, glyph)
	return err
}

// Prompter collects subject details on the same terminal before the run
// starts, while the terminal is still in cooked mode.
type Prompter struct {
	in  io.Reader
	out io.Writer
}

// NewPrompter creates a subject info prompter.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Prompter{in: in, out: out}
}

// Collect asks for a subject identifier. An empty answer cancels the run.
func (p *Prompter) Collect() (string, error) {
	fmt.Fprint(p.out, "Subject ID: ")

	var line string
	if _, err := fmt.Fscanln(p.in, &line); err != nil {
		if err == io.EOF {
			return "", nil
		}
		// Fscanln errors on empty input; treat it as a cancel.
		return "", nil
	}
	return strings.TrimSpace(line), nil
}
