// Package chart models the visual input to a description run, either a
// pre-rendered raster image or a renderable figure object.
package chart

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Figure is a weather chart that can render itself. The agents never
// inspect the plot directly, they render it to an image and read its
// metadata.
type Figure interface {
	// Save writes the rendered chart to w in the given format ("png" or
	// "jpeg").
	Save(w io.Writer, format string) error

	// Metadata returns descriptive facts about the figure.
	Metadata() Metadata
}

// Metadata is the set of figure facts surfaced to the agents as prompt
// context. Empty fields are omitted from the prompt.
type Metadata struct {
	Title     string
	XLabel    string
	YLabel    string
	Domain    string   // geographic domain, e.g. "Western Europe"
	Variables []string // plotted variables, e.g. "mean sea level pressure"
}

// PromptBlock renders the metadata as a prompt section. It returns ""
// when every field is empty.
func (m Metadata) PromptBlock() string {
	var sb strings.Builder
	write := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		fmt.Fprintf(&sb, "- %s: %s\n", label, strings.TrimSpace(value))
	}
	write("title", m.Title)
	write("x-axis label", m.XLabel)
	write("y-axis label", m.YLabel)
	write("geographic domain", m.Domain)
	write("plotted variables", strings.Join(m.Variables, ", "))

	if sb.Len() == 0 {
		return ""
	}
	return "# FIGURE METADATA\n\nThe following metadata was extracted from the source figure:\n\n" + sb.String()
}

var (
	// ErrNoInput reports an Input built without an image or a figure.
	ErrNoInput = errors.New("chart: no image or figure provided")
)

// Input is exactly one of a raster image or a figure. Use FromImage or
// FromFigure to build one, the zero value is unusable.
type Input struct {
	image  []byte
	figure Figure
}

// FromImage wraps pre-rendered image bytes.
func FromImage(data []byte) Input {
	return Input{image: data}
}

// FromFigure wraps a renderable figure.
func FromFigure(f Figure) Input {
	return Input{figure: f}
}

// Resolve produces the image bytes to send to the model, plus figure
// metadata when the input wraps a figure.
func (in Input) Resolve() ([]byte, *Metadata, error) {
	switch {
	case in.figure != nil:
		var buf bytes.Buffer
		if err := in.figure.Save(&buf, "png"); err != nil {
			return nil, nil, fmt.Errorf("chart: rendering figure: %w", err)
		}
		md := in.figure.Metadata()
		return buf.Bytes(), &md, nil
	case len(in.image) > 0:
		return in.image, nil, nil
	default:
		return nil, nil, ErrNoInput
	}
}
