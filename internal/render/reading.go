package render

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/danielpatrickdp/hexagram-oracle/internal/engine"
	"github.com/danielpatrickdp/hexagram-oracle/internal/loader"
	"github.com/danielpatrickdp/hexagram-oracle/internal/reference"
)

// Width is the column at which prose is wrapped.
const Width = 76

const (
	yangGlyph = "━━━━━━━━━"
	yinGlyph  = "━━━━   ━━━━"
)

// #region figure
// Figure draws lines top to bottom, marking moving lines with o (old yang)
// and x (old yin).
func Figure(lines reference.Lines) []string {
	out := make([]string, 0, len(lines))
	for i := len(lines) - 1; i >= 0; i-- {
		v := lines[i]
		glyph := yinGlyph
		if v.IsYang() {
			glyph = yangGlyph
		}
		mark := " "
		switch v {
		case reference.OldYang:
			mark = "o"
		case reference.OldYin:
			mark = "x"
		}
		out = append(out, fmt.Sprintf("%d  %-11s %s", v, glyph, mark))
	}
	return out
}

// #endregion figure

// #region reading
// Reading lays out a reading: the figures side by side, then the primary
// text with its moving lines, then the relating hexagram's judgment.
func Reading(r *engine.Reading) string {
	var b strings.Builder
	if r.Question != "" {
		fmt.Fprintf(&b, "Question: %s\n", r.Question)
	}
	fmt.Fprintf(&b, "Method:   %s\n", r.Method)
	fmt.Fprintf(&b, "Cast:     %s\n", r.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Source:   %s", r.SourceUsed())
	if r.FellBack() {
		fmt.Fprintf(&b, " (%s has no text for this hexagram)", r.Source)
	}
	fmt.Fprintf(&b, "\nID:       %s\n\n", r.ID)

	left := Figure(r.Primary.Lines)
	var right []string
	if r.Relating != nil {
		right = Figure(r.Relating.Lines)
	}
	for i, l := range left {
		if right != nil {
			arrow := "   "
			if i == 2 {
				arrow = "-->"
			}
			fmt.Fprintf(&b, "  %s   %s   %s\n", l, arrow, right[i])
			continue
		}
		fmt.Fprintf(&b, "  %s\n", l)
	}
	b.WriteString("\n")

	b.WriteString(heading(r.Primary.Hexagram, r.Primary.Bundle))
	writeSection(&b, "Judgment", r.Primary.Bundle.Judgment)
	writeSection(&b, "Image", r.Primary.Bundle.Image)

	if moving := r.MovingPositions(); len(moving) > 0 {
		b.WriteString("\nMoving lines\n")
		for _, pos := range moving {
			writeLine(&b, pos, r.Primary.Bundle.Lines[pos-1])
		}
	}

	if r.Relating != nil {
		b.WriteString("\nBecoming ")
		b.WriteString(heading(r.Relating.Hexagram, r.Relating.Bundle))
		writeSection(&b, "Judgment", r.Relating.Bundle.Judgment)
	}
	return b.String()
}

// #endregion reading

// #region bundle
// Bundle lays out the full text of one hexagram.
func Bundle(h reference.Hexagram, bundle loader.Bundle) string {
	var b strings.Builder
	b.WriteString(heading(h, bundle))
	fmt.Fprintf(&b, "Source: %s", bundle.Source)
	if m := bundle.Meta; m.Translator != "" {
		fmt.Fprintf(&b, ", %s", m.Translator)
		if m.Year != 0 {
			fmt.Fprintf(&b, " (%d)", m.Year)
		}
	}
	b.WriteString("\n\n")
	for _, l := range Figure(h.Lines()) {
		fmt.Fprintf(&b, "  %s\n", l)
	}
	writeSection(&b, "Judgment", bundle.Judgment)
	writeSection(&b, "Image", bundle.Image)
	b.WriteString("\nLines\n")
	for i, l := range bundle.Lines {
		writeLine(&b, i+1, l)
	}
	return b.String()
}

// #endregion bundle

// #region helpers
func heading(h reference.Hexagram, bundle loader.Bundle) string {
	name := bundle.Name
	if name == "" {
		name = h.Names.Pinyin
	}
	english := bundle.EnglishName
	if english == "" {
		english = h.Names.English
	}
	s := fmt.Sprintf("%d %s %s (%s)", h.Number, h.Symbol(), name, english)
	if bundle.Title != "" && bundle.Title != english {
		s += ": " + bundle.Title
	}
	return s + "\n"
}

func writeSection(b *strings.Builder, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(b, "\n%s\n%s\n", title, indent(text.WrapSoft(body, Width-2), "  "))
}

func writeLine(b *strings.Builder, pos int, l loader.LineText) {
	label := fmt.Sprintf("%d", pos)
	if l.Type != "" {
		label = fmt.Sprintf("%d (%s)", pos, l.Type)
	}
	if l.Empty() {
		fmt.Fprintf(b, "  %s: -\n", label)
		return
	}
	fmt.Fprintf(b, "  %s: %s\n", label, strings.TrimLeft(indent(text.WrapSoft(l.Text, Width-6), "    "), " "))
	if l.Comment != "" {
		fmt.Fprintf(b, "%s\n", indent(text.WrapSoft(l.Comment, Width-6), "      "))
	}
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// #endregion helpers
