// Package cli contains an apex/log handler for the terminal.
package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/apex/log"
	"github.com/fatih/color"
	colorable "github.com/mattn/go-colorable"
)

// Default handler outputting to stderr.
var Default = New(os.Stderr)

var bold = color.New(color.Bold)

// Colors mapping.
var Colors = [...]*color.Color{
	log.DebugLevel: color.New(color.FgWhite),
	log.InfoLevel:  color.New(color.FgBlue),
	log.WarnLevel:  color.New(color.FgYellow),
	log.ErrorLevel: color.New(color.FgRed),
	log.FatalLevel: color.New(color.FgRed),
}

// Strings mapping.
var Strings = [...]string{
	log.DebugLevel: "•",
	log.InfoLevel:  "•",
	log.WarnLevel:  "•",
	log.ErrorLevel: "⨯",
	log.FatalLevel: "⨯",
}

// Handler implementation.
type Handler struct {
	mu      sync.Mutex
	Writer  io.Writer
	Padding int
}

// New handler.
func New(w io.Writer) *Handler {
	if f, ok := w.(*os.File); ok {
		return &Handler{
			Writer:  colorable.NewColorable(f),
			Padding: 3,
		}
	}

	return &Handler{
		Writer:  w,
		Padding: 3,
	}
}

func logSectionTitle(w io.Writer, f log.Fields) error {
	colWidth := 24

	title, _ := f.Get("title").(string)
	return writeBox(w, []string{title}, max(colWidth, EscapeAwareRuneCountInString(title)))
}

// tlsStateNames is the order in which we print the TLS state.
var tlsStateNames = []string{
	"target",
	"remote",
	"version",
	"cipher_suite",
	"alpn",
	"subject",
	"issuer",
}

// logTable prints the fields named by names, skipping the missing ones,
// or all the fields sorted by name when names is empty.
func logTable(w io.Writer, f log.Fields, names ...string) error {
	color := color.New(color.FgBlue)

	if len(names) <= 0 {
		names = f.Names()
		sort.Strings(names)
	}

	var lines []string
	colWidth := 0
	for _, name := range names {
		value, found := f[name]
		if !found || name == "type" {
			continue
		}
		line := fmt.Sprintf("%s: %v", color.Sprint(name), value)
		lines = append(lines, line)
		colWidth = max(colWidth, EscapeAwareRuneCountInString(line))
	}
	return writeBox(w, lines, colWidth)
}

// writeBox writes lines inside a box whose inner width is colWidth.
func writeBox(w io.Writer, lines []string, colWidth int) error {
	if _, err := fmt.Fprint(w, "┏"+strings.Repeat("━", colWidth+2)+"┓\n"); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := fmt.Fprintf(w, "┃ %s ┃\n", RightPad(line, colWidth)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprint(w, "┗"+strings.Repeat("━", colWidth+2)+"┛\n")
	return err
}

// TypedLog is used for handling special "typed" logs to the CLI
func (h *Handler) TypedLog(t string, e *log.Entry) error {
	switch t {
	case "table":
		return logTable(h.Writer, e.Fields)
	case "tls_state":
		return logTable(h.Writer, e.Fields, tlsStateNames...)
	case "section_title":
		return logSectionTitle(h.Writer, e.Fields)
	default:
		return h.DefaultLog(e)
	}
}

// DefaultLog is the default way of printing out logs
func (h *Handler) DefaultLog(e *log.Entry) error {
	color := Colors[e.Level]
	level := Strings[e.Level]
	names := e.Fields.Names()
	sort.Strings(names)

	s := color.Sprintf("%s %-25s", bold.Sprintf("%*s", h.Padding+1, level), e.Message)
	for _, name := range names {
		if name == "source" || name == "type" {
			continue
		}
		s += fmt.Sprintf(" %s=%v", color.Sprint(name), e.Fields.Get(name))
	}

	fmt.Fprintln(h.Writer, s)
	return nil
}

// HandleLog implements log.Handler.
func (h *Handler) HandleLog(e *log.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	t, isTyped := e.Fields["type"].(string)
	if isTyped {
		return h.TypedLog(t, e)
	}

	return h.DefaultLog(e)
}
