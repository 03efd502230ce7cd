// Package output renders scan results on the console in one of four
// formats and provides the table/section primitives reports are
// assembled from.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	toon "github.com/toon-format/toon-go"
)

// Format selects how results are rendered.
type Format string

const (
	FormatText     Format = "text"
	FormatJSON     Format = "json"
	FormatMarkdown Format = "markdown"
	FormatTOON     Format = "toon"
)

// ParseFormat maps a user-supplied format name to a Format. Unknown
// names fall back to text so a typo still prints something readable.
func ParseFormat(s string) Format {
	switch strings.ToLower(s) {
	case "json":
		return FormatJSON
	case "markdown", "md":
		return FormatMarkdown
	case "toon":
		return FormatTOON
	default:
		return FormatText
	}
}

// Renderable is implemented by report values that can draw themselves
// as text or markdown and expose a serializable form for json/toon.
type Renderable interface {
	RenderText(w io.Writer, colored bool) error
	RenderMarkdown(w io.Writer) error
	// RenderData returns the underlying data for JSON and TOON serialization.
	RenderData() any
}

// Formatter writes rendered output to stdout or a file.
type Formatter struct {
	format  Format
	writer  io.Writer
	file    *os.File
	colored bool
}

// NewFormatter creates a formatter for the given format. A non-empty
// output path redirects everything to that file and disables color.
func NewFormatter(format Format, output string, colored bool) (*Formatter, error) {
	f := &Formatter{format: format, writer: os.Stdout, colored: colored}

	if output != "" {
		file, err := os.Create(output)
		if err != nil {
			return nil, err
		}
		f.writer = file
		f.file = file
		f.colored = false
	}

	return f, nil
}

// Close closes the output file, if any.
func (f *Formatter) Close() error {
	if f.file != nil {
		return f.file.Close()
	}
	return nil
}

// Writer returns the underlying writer.
func (f *Formatter) Writer() io.Writer {
	return f.writer
}

// Format returns the configured format.
func (f *Formatter) Format() Format {
	return f.format
}

// Colored returns whether colored output is enabled.
func (f *Formatter) Colored() bool {
	return f.colored
}

// Output renders data in the configured format. Values implementing
// Renderable draw themselves; anything else is serialized directly.
func (f *Formatter) Output(data any) error {
	r, ok := data.(Renderable)
	if !ok {
		return f.writeRaw(data)
	}
	switch f.format {
	case FormatJSON:
		return f.writeJSON(r.RenderData())
	case FormatTOON:
		return f.writeTOON(r.RenderData())
	case FormatMarkdown:
		return r.RenderMarkdown(f.writer)
	default:
		return r.RenderText(f.writer, f.colored)
	}
}

// writeRaw serializes plain values: toon stays toon, markdown wraps
// the JSON in a code fence, and everything else prints as JSON.
func (f *Formatter) writeRaw(data any) error {
	switch f.format {
	case FormatTOON:
		return f.writeTOON(data)
	case FormatMarkdown:
		fmt.Fprintln(f.writer, "```json")
		if err := f.writeJSON(data); err != nil {
			return err
		}
		fmt.Fprintln(f.writer, "```")
		return nil
	default:
		return f.writeJSON(data)
	}
}

func (f *Formatter) writeJSON(data any) error {
	enc := json.NewEncoder(f.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

// writeTOON emits TOON, a token-lean format for LLM consumers.
func (f *Formatter) writeTOON(data any) error {
	out, err := toon.Marshal(data, toon.WithIndent(2))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f.writer, string(out))
	return err
}

// underline writes a rule of ch characters matching the title width.
func underline(w io.Writer, title, ch string) {
	fmt.Fprintln(w, strings.Repeat(ch, len(title)))
}

// title prints a heading, bold when colored, with an = rule under it.
func title(w io.Writer, colored bool, attrs []color.Attribute, text string) {
	if colored {
		color.New(attrs...).Fprintln(w, text)
	} else {
		fmt.Fprintln(w, text)
	}
	underline(w, text, "=")
	fmt.Fprintln(w)
}

// Table renders tabular rows with an optional title and footer. Data,
// when set, is what serializing formats emit instead of the cells.
type Table struct {
	Title   string     `json:"-"`
	Headers []string   `json:"-"`
	Rows    [][]string `json:"-"`
	Footer  []string   `json:"-"`
	Data    any        `json:"data,omitempty"`
}

// NewTable creates a table that wraps structured data for serialization.
func NewTable(title string, headers []string, rows [][]string, footer []string, data any) *Table {
	return &Table{
		Title:   title,
		Headers: headers,
		Rows:    rows,
		Footer:  footer,
		Data:    data,
	}
}

// RenderData prefers the structured Data payload; without one the cells
// are folded into header-keyed maps.
func (t *Table) RenderData() any {
	if t.Data != nil {
		return t.Data
	}
	rows := make([]map[string]string, len(t.Rows))
	for i, cells := range t.Rows {
		row := make(map[string]string, len(t.Headers))
		for j, h := range t.Headers {
			if j < len(cells) {
				row[h] = cells[j]
			}
		}
		rows[i] = row
	}
	return rows
}

// newPlainTable builds the borderless left-aligned layout used for all
// console tables. AutoFormat uppercases the headers.
func newPlainTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Header: tw.CellConfig{
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
			},
			Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignLeft}},
			Footer: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignLeft}},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders:  tw.Border{Left: tw.Off, Right: tw.Off, Top: tw.Off, Bottom: tw.Off},
			Settings: tw.Settings{Separators: tw.Separators{BetweenColumns: tw.Off}},
		}),
	)
}

func (t *Table) RenderText(w io.Writer, colored bool) error {
	if t.Title != "" {
		title(w, colored, []color.Attribute{color.Bold}, t.Title)
	}

	tbl := newPlainTable(w)
	tbl.Header(t.Headers)
	for _, row := range t.Rows {
		tbl.Append(row)
	}
	if len(t.Footer) > 0 {
		cells := make([]any, len(t.Footer))
		for i, c := range t.Footer {
			cells[i] = c
		}
		tbl.Footer(cells...)
	}
	tbl.Render()
	fmt.Fprintln(w)
	return nil
}

// mdRow writes one markdown table row.
func mdRow(w io.Writer, cells []string) {
	fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
}

func (t *Table) RenderMarkdown(w io.Writer) error {
	if t.Title != "" {
		fmt.Fprintf(w, "## %s\n\n", t.Title)
	}

	mdRow(w, t.Headers)
	seps := make([]string, len(t.Headers))
	for i := range seps {
		seps[i] = "---"
	}
	mdRow(w, seps)
	for _, row := range t.Rows {
		mdRow(w, row)
	}
	if len(t.Footer) > 0 {
		mdRow(w, t.Footer)
	}

	fmt.Fprintln(w)
	return nil
}

// Section is a titled block of prose with optional nested subsections.
type Section struct {
	Title    string    `json:"title,omitempty"`
	Content  string    `json:"content,omitempty"`
	Sections []Section `json:"sections,omitempty"`
	Data     any       `json:"data,omitempty"`
}

func (s *Section) RenderData() any {
	if s.Data != nil {
		return s.Data
	}
	return s
}

func (s *Section) RenderText(w io.Writer, colored bool) error {
	s.textAt(w, colored, 0)
	return nil
}

// textAt renders the section at the given nesting depth. Top-level
// titles get an = rule, nested ones a - rule.
func (s *Section) textAt(w io.Writer, colored bool, depth int) {
	if s.Title != "" {
		if colored {
			color.New(color.Bold).Fprintln(w, s.Title)
		} else {
			fmt.Fprintln(w, s.Title)
		}
		ch := "="
		if depth > 0 {
			ch = "-"
		}
		underline(w, s.Title, ch)
	}

	if s.Content != "" {
		fmt.Fprintln(w, s.Content)
	}

	for _, sub := range s.Sections {
		fmt.Fprintln(w)
		sub.textAt(w, colored, depth+1)
	}
}

func (s *Section) RenderMarkdown(w io.Writer) error {
	s.markdownAt(w, 2)
	return nil
}

// markdownAt renders headings starting at ## so sections nest under a
// report's # title.
func (s *Section) markdownAt(w io.Writer, level int) {
	if s.Title != "" {
		fmt.Fprintf(w, "%s %s\n\n", strings.Repeat("#", level), s.Title)
	}

	if s.Content != "" {
		fmt.Fprintln(w, s.Content)
		fmt.Fprintln(w)
	}

	for _, sub := range s.Sections {
		sub.markdownAt(w, level+1)
	}
}

// Report strings sections and tables together under one heading.
type Report struct {
	Title    string       `json:"title,omitempty"`
	Sections []Renderable `json:"-"`
	Data     any          `json:"data,omitempty"`
}

func (r *Report) RenderData() any {
	if r.Data != nil {
		return r.Data
	}
	parts := make([]any, len(r.Sections))
	for i, s := range r.Sections {
		parts[i] = s.RenderData()
	}
	return map[string]any{
		"title":    r.Title,
		"sections": parts,
	}
}

func (r *Report) RenderText(w io.Writer, colored bool) error {
	if r.Title != "" {
		title(w, colored, []color.Attribute{color.Bold, color.FgCyan}, r.Title)
	}

	for i, s := range r.Sections {
		if err := s.RenderText(w, colored); err != nil {
			return err
		}
		if i < len(r.Sections)-1 {
			fmt.Fprintln(w)
		}
	}
	return nil
}

func (r *Report) RenderMarkdown(w io.Writer) error {
	if r.Title != "" {
		fmt.Fprintf(w, "# %s\n\n", r.Title)
	}

	for _, s := range r.Sections {
		if err := s.RenderMarkdown(w); err != nil {
			return err
		}
	}
	return nil
}

// Status line helpers. With color enabled these print through the color
// package; otherwise the line goes to the formatter's writer with a
// severity prefix where one applies.

func (f *Formatter) Success(format string, args ...any) {
	f.status(color.Green, "", format, args)
}

func (f *Formatter) Warning(format string, args ...any) {
	f.status(color.Yellow, "WARNING: ", format, args)
}

func (f *Formatter) Error(format string, args ...any) {
	f.status(color.Red, "ERROR: ", format, args)
}

func (f *Formatter) Info(format string, args ...any) {
	f.status(color.Cyan, "", format, args)
}

func (f *Formatter) status(paint func(string, ...any), prefix, format string, args []any) {
	if f.colored {
		paint(format, args...)
		return
	}
	fmt.Fprintf(f.writer, prefix+format+"\n", args...)
}

// SimilarityColor colors text by how close a clone pair is to identical.
// Near-identical pairs read as red, strong matches as yellow.
func SimilarityColor(similarity float64, text string) string {
	switch {
	case similarity >= 0.9:
		return color.RedString(text)
	case similarity >= 0.75:
		return color.YellowString(text)
	default:
		return text
	}
}
