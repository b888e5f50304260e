package scene

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wordwrap"
)

// SelectionIndicator marks the selected popup row. It is a plain glyph so it
// stays countable after styling codes are stripped.
const SelectionIndicator = "▸"

// InputMaxContentLines caps how many wrapped content lines the input box may
// occupy. Content beyond the cap scrolls inside the box instead of growing it.
const InputMaxContentLines = 6

// Input box edge glyphs. The box is always edge + content + edge, so an empty
// input renders as three lines.
const (
	inputTopEdge    = "▄"
	inputBottomEdge = "▀"
)

var (
	dimStyle      = lipgloss.NewStyle().Faint(true)
	cursorStyle   = lipgloss.NewStyle().Reverse(true)
	edgeStyle     = lipgloss.NewStyle().Faint(true)
	kindTagStyle  = lipgloss.NewStyle().Faint(true)
	selectedStyle = lipgloss.NewStyle().Bold(true)
)

// VisibleWidth reports the display width of s after stripping styling codes.
func VisibleWidth(s string) int {
	return ansi.StringWidth(s)
}

// StripStyles removes terminal styling escape sequences from s.
func StripStyles(s string) string {
	return ansi.Strip(s)
}

// RenderLines lays the subtree out at the given width and returns the
// resulting display lines. Overlay subtrees contribute nothing: they are laid
// out in isolation by the planner so they can never reflow the base layout.
// Degenerate input (nil node, zero width) yields an empty result, never an
// error.
func RenderLines(n Node, width int) []string {
	var out []string
	renderNode(n, width, &out)
	return out
}

// Render is RenderLines joined with newlines.
func Render(n Node, width int) string {
	return strings.Join(RenderLines(n, width), "\n")
}

func renderNode(n Node, width int, out *[]string) {
	switch v := n.(type) {
	case nil:
	case TextNode:
		*out = append(*out, renderText(v, width)...)
	case ColumnNode:
		renderColumn(v, width, out)
	case FragmentNode:
		renderFragment(v, width, out)
	case SpacerNode:
		*out = append(*out, "")
	case TextInputNode:
		*out = append(*out, renderInput(v, width)...)
	case ScrollbackNode:
		for _, child := range v.Children {
			renderNode(child, width, out)
		}
	case PopupNode:
		*out = append(*out, RenderPopup(v, width)...)
	case OverlayNode:
		// Extracted by the planner; absent from the base flow.
	}
}

func renderColumn(col ColumnNode, width int, out *[]string) {
	first := true
	for _, child := range col.Children {
		if child == nil {
			continue
		}
		lines := RenderLines(child, width)
		if len(lines) == 0 {
			continue
		}
		if !first {
			for i := 0; i < col.Gap; i++ {
				*out = append(*out, "")
			}
		}
		*out = append(*out, lines...)
		first = false
	}
}

func renderFragment(frag FragmentNode, width int, out *[]string) {
	for _, child := range frag.Children {
		lines := RenderLines(child, width)
		if len(lines) == 0 {
			continue
		}
		if len(*out) == 0 {
			*out = append(*out, lines...)
			continue
		}
		// Continue the current line with the child's first line.
		(*out)[len(*out)-1] += lines[0]
		*out = append(*out, lines[1:]...)
	}
}

func renderText(t TextNode, width int) []string {
	content := t.Content
	if width > 0 {
		content = wordwrap.String(content, width)
	}
	raw := strings.Split(content, "\n")
	lines := make([]string, len(raw))
	for i, line := range raw {
		lines[i] = t.Style.Render(line)
	}
	return lines
}

// renderInput draws the bounded input box: a top edge row, between one and
// InputMaxContentLines wrapped content rows, and a bottom edge row. The
// window of visible content rows follows the cursor.
func renderInput(in TextInputNode, width int) []string {
	if width <= 0 {
		return nil
	}

	edgeTop := edgeStyle.Render(strings.Repeat(inputTopEdge, width))
	edgeBottom := edgeStyle.Render(strings.Repeat(inputBottomEdge, width))

	innerWidth := width - 2
	if innerWidth < 1 {
		innerWidth = 1
	}

	if in.Content == "" {
		line := " "
		if in.Placeholder != "" {
			line += dimStyle.Render(ansi.Truncate(in.Placeholder, innerWidth, "…"))
		}
		if in.Focused {
			line = " " + cursorStyle.Render(" ")
			if in.Placeholder != "" && innerWidth > 1 {
				line += dimStyle.Render(ansi.Truncate(in.Placeholder, innerWidth-1, "…"))
			}
		}
		return []string{edgeTop, line, edgeBottom}
	}

	runes := []rune(in.Content)
	cursor := in.Cursor
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(runes) {
		cursor = len(runes)
	}

	rows, cursorRow, cursorIdx := wrapInputCells(runes, innerWidth, cursor)

	start, end := 0, len(rows)
	if len(rows) > InputMaxContentLines {
		start = cursorRow - InputMaxContentLines + 1
		if start < 0 {
			start = 0
		}
		if start > len(rows)-InputMaxContentLines {
			start = len(rows) - InputMaxContentLines
		}
		end = start + InputMaxContentLines
	}

	lines := make([]string, 0, end-start+2)
	lines = append(lines, edgeTop)
	for i := start; i < end; i++ {
		lines = append(lines, " "+styleInputRow(rows[i], in.Focused && i == cursorRow, cursorIdx))
	}
	lines = append(lines, edgeBottom)
	return lines
}

func styleInputRow(row []rune, hasCursor bool, cursorIdx int) string {
	if !hasCursor {
		return string(row)
	}
	if cursorIdx >= len(row) {
		return string(row) + cursorStyle.Render(" ")
	}
	return string(row[:cursorIdx]) +
		cursorStyle.Render(string(row[cursorIdx])) +
		string(row[cursorIdx+1:])
}

// wrapInputCells hard-wraps runes into rows no wider than width display
// cells, and locates the cursor as a row plus a rune index within it. Wide
// runes (CJK, emoji) occupy their full cell count, so a row holds fewer of
// them than of ASCII.
func wrapInputCells(runes []rune, width, cursor int) (rows [][]rune, cursorRow, cursorIdx int) {
	if width < 1 {
		width = 1
	}
	var row []rune
	rowWidth := 0
	for i, r := range runes {
		w := ansi.StringWidth(string(r))
		if rowWidth+w > width && len(row) > 0 {
			rows = append(rows, row)
			row, rowWidth = nil, 0
		}
		if i == cursor {
			cursorRow, cursorIdx = len(rows), len(row)
		}
		row = append(row, r)
		rowWidth += w
	}
	if cursor >= len(runes) {
		// Cursor sits just past the last rune; wrap it onto a fresh row when
		// the current one has no cell left for it.
		if rowWidth >= width {
			rows = append(rows, row)
			row, rowWidth = nil, 0
		}
		cursorRow, cursorIdx = len(rows), len(row)
	}
	return append(rows, row), cursorRow, cursorIdx
}

// RenderPopup lays a selection list out at the target width. At most
// MaxVisible rows render, starting at ViewportOffset; the output is padded to
// MaxVisible rows so the popup height is stable while the window slides.
// Exactly one row carries the selection indicator.
func RenderPopup(p PopupNode, width int) []string {
	if width <= 0 || p.MaxVisible <= 0 {
		return nil
	}

	offset := p.ViewportOffset
	if offset < 0 {
		offset = 0
	}
	if offset > len(p.Items) {
		offset = len(p.Items)
	}
	end := offset + p.MaxVisible
	if end > len(p.Items) {
		end = len(p.Items)
	}
	visible := p.Items[offset:end]

	lines := make([]string, 0, p.MaxVisible)
	for i := 0; i < p.MaxVisible-len(visible); i++ {
		lines = append(lines, "")
	}

	for i, item := range visible {
		selected := offset+i == p.Selected
		lines = append(lines, renderPopupRow(item, selected, width))
	}
	return lines
}

func renderPopupRow(item PopupItem, selected bool, width int) string {
	indicator := "  "
	if selected {
		indicator = SelectionIndicator + " "
	}

	budget := width - VisibleWidth(indicator)
	if budget < 1 {
		return strings.TrimRight(indicator, " ")
	}

	label := ansi.Truncate(item.Label, budget, "…")
	row := label
	used := VisibleWidth(label)

	if item.Description != "" && budget-used > 6 {
		desc := ansi.Truncate(item.Description, budget-used-2, "…")
		row += "  " + dimStyle.Render(desc)
		used += 2 + VisibleWidth(desc)
	}
	if item.KindTag != "" && budget-used > len(item.KindTag)+4 {
		tag := "[" + item.KindTag + "]"
		row += "  " + kindTagStyle.Render(tag)
	}

	if selected {
		return indicator + selectedStyle.Render(StripStyles(row))
	}
	return indicator + row
}
