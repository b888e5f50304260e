package scene

import "github.com/charmbracelet/lipgloss"

// Node is a single element of a frame's scene tree. A tree is a pure
// description of the desired UI: it is built fresh from application state for
// every frame, handed to the planner, and discarded. Nodes carry no identity
// beyond the explicit key on ScrollbackNode.
//
// A nil Node is legal anywhere a Node is accepted and renders to nothing.
type Node interface {
	node()
}

// TextNode renders a string, word-wrapped to the target width.
type TextNode struct {
	Content string
	Style   lipgloss.Style
}

// ColumnNode stacks its children vertically, one child per run of lines.
type ColumnNode struct {
	Children []Node
	// Gap inserts extra blank lines between children.
	Gap int
}

// FragmentNode renders its children sequentially without separation: the
// first line of each child continues the last line of the previous one.
type FragmentNode struct {
	Children []Node
}

// SpacerNode renders a single blank line.
type SpacerNode struct{}

// TextInputNode renders the chrome-pinned input box. Content wraps inside the
// box; the box grows with wrapped content up to a fixed maximum and scrolls
// internally beyond that.
type TextInputNode struct {
	Content     string
	Cursor      int
	Placeholder string
	Focused     bool
}

// ScrollbackNode marks a subtree as historical. The planner graduates it to
// the persistent sink exactly once (keyed on Key) and excludes it from the
// live viewport from then on.
type ScrollbackNode struct {
	Key      string
	Children []Node
}

// PopupItem is one row of a PopupNode. It has no behavior.
type PopupItem struct {
	Label       string
	Description string
	KindTag     string
}

// Item starts a PopupItem builder.
func Item(label string) PopupItem {
	return PopupItem{Label: label}
}

// Desc sets the item description.
func (i PopupItem) Desc(d string) PopupItem {
	i.Description = d
	return i
}

// Kind sets the item kind tag.
func (i PopupItem) Kind(k string) PopupItem {
	i.KindTag = k
	return i
}

// PopupNode renders a windowed selection list. Rows outside
// [ViewportOffset, ViewportOffset+MaxVisible) are omitted entirely.
type PopupNode struct {
	Items          []PopupItem
	Selected       int
	MaxVisible     int
	ViewportOffset int
}

// OverlayAnchor positions overlay content relative to a viewport edge.
type OverlayAnchor struct {
	// FromBottom is the number of lines between the overlay's last line and
	// the bottom of the composited output.
	FromBottom int
}

// OverlayNode floats its child above the viewport without participating in
// the base layout. The planner lays the child out in isolation; the
// compositor splices it in at the anchor.
type OverlayNode struct {
	Child  Node
	Anchor OverlayAnchor
}

func (TextNode) node()       {}
func (ColumnNode) node()     {}
func (FragmentNode) node()   {}
func (SpacerNode) node()     {}
func (TextInputNode) node()  {}
func (ScrollbackNode) node() {}
func (PopupNode) node()      {}
func (OverlayNode) node()    {}

// Text builds an unstyled text node.
func Text(content string) Node {
	return TextNode{Content: content}
}

// Styled builds a text node rendered through the given lipgloss style.
func Styled(content string, style lipgloss.Style) Node {
	return TextNode{Content: content, Style: style}
}

// Col stacks children vertically.
func Col(children ...Node) Node {
	return ColumnNode{Children: children}
}

// ColGap stacks children vertically with gap blank lines between them.
func ColGap(gap int, children ...Node) Node {
	return ColumnNode{Children: children, Gap: gap}
}

// Frag concatenates children inline.
func Frag(children ...Node) Node {
	return FragmentNode{Children: children}
}

// Spacer emits one blank line.
func Spacer() Node {
	return SpacerNode{}
}

// Input builds the input-box node.
func Input(content string, cursor int) Node {
	return TextInputNode{Content: content, Cursor: cursor, Focused: true}
}

// Scrollback wraps children as a keyed historical block.
func Scrollback(key string, children ...Node) Node {
	return ScrollbackNode{Key: key, Children: children}
}

// Popup builds a selection list with the default window offset.
func Popup(items []PopupItem, selected, maxVisible int) Node {
	return PopupNode{Items: items, Selected: selected, MaxVisible: maxVisible}
}

// OverlayFromBottom anchors child so its last line sits offset lines above
// the bottom of the composited frame.
func OverlayFromBottom(child Node, offset int) Node {
	return OverlayNode{Child: child, Anchor: OverlayAnchor{FromBottom: offset}}
}
