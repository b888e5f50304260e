package scene

// LayoutPlan is the live viewport for one frame: bounded lines recomputed
// from scratch every plan call.
type LayoutPlan struct {
	Content []string
	Width   int
	Height  int
}

// RenderedOverlay is one overlay subtree laid out in isolation at the target
// width, ready for compositing.
type RenderedOverlay struct {
	Lines  []string
	Anchor OverlayAnchor
}

// Snapshot is the planner's complete output for one frame.
type Snapshot struct {
	Plan     LayoutPlan
	Overlays []RenderedOverlay
}

// Sink receives graduated scrollback blocks. The planner guarantees each key
// is delivered at most once; the sink's job is only to persist the lines
// (terminal scrollback, a buffer in tests).
type Sink interface {
	WriteBlock(key string, lines []string) error
}

// Planner turns a scene tree plus target dimensions into a Snapshot. Planning
// is deterministic for a given tree and size except for its one side effect:
// newly observed scrollback keys are rendered in isolation, written to the
// sink, and recorded in the ledger so they never re-enter the viewport.
type Planner struct {
	ledger *Ledger
	sink   Sink
}

// NewPlanner builds a planner with a fresh ledger writing graduated blocks to
// sink.
func NewPlanner(sink Sink) *Planner {
	return &Planner{ledger: NewLedger(), sink: sink}
}

// Ledger exposes the planner's graduation ledger.
func (p *Planner) Ledger() *Ledger {
	return p.ledger
}

// Plan lays the tree out for one frame.
//
// Scrollback subtrees graduate on first observation: their lines go to the
// sink once and the live viewport excludes them from this call onward.
// Overlay subtrees are laid out in isolation and never contribute to the live
// layout, so base height is identical with or without them. The remaining
// live content is bottom-anchored into the height budget, which keeps the
// input and status chrome on the trailing lines. Zero or negative dimensions
// produce an empty viewport, never an error.
func (p *Planner) Plan(tree Node, width, height int) Snapshot {
	p.graduate(tree, width)

	var overlays []RenderedOverlay
	collectOverlays(tree, width, &overlays)

	plan := LayoutPlan{Width: width, Height: height}
	if width > 0 && height > 0 {
		lines := RenderLines(p.pruneLive(tree), width)
		if len(lines) > height {
			lines = lines[len(lines)-height:]
		}
		plan.Content = lines
	}

	return Snapshot{Plan: plan, Overlays: overlays}
}

// graduate walks the tree depth-first and flushes newly observed scrollback
// subtrees to the sink in encounter order. A sink failure leaves the key
// unmarked so delivery is retried on the next plan; the ledger only advances
// once the block is actually written.
func (p *Planner) graduate(n Node, width int) {
	switch v := n.(type) {
	case ScrollbackNode:
		if p.ledger.Contains(v.Key) {
			return
		}
		lines := RenderLines(Col(v.Children...), width)
		if err := p.sink.WriteBlock(v.Key, lines); err != nil {
			return
		}
		p.ledger.Graduate(v.Key)
	case ColumnNode:
		for _, c := range v.Children {
			p.graduate(c, width)
		}
	case FragmentNode:
		for _, c := range v.Children {
			p.graduate(c, width)
		}
	case OverlayNode:
		// Overlay content never graduates.
	}
}

// pruneLive strips scrollback and overlay subtrees, leaving only the nodes
// that belong in the live viewport.
func (p *Planner) pruneLive(n Node) Node {
	switch v := n.(type) {
	case ScrollbackNode:
		return nil
	case OverlayNode:
		return nil
	case ColumnNode:
		children := make([]Node, len(v.Children))
		for i, c := range v.Children {
			children[i] = p.pruneLive(c)
		}
		return ColumnNode{Children: children, Gap: v.Gap}
	case FragmentNode:
		children := make([]Node, len(v.Children))
		for i, c := range v.Children {
			children[i] = p.pruneLive(c)
		}
		return FragmentNode{Children: children}
	default:
		return n
	}
}

func collectOverlays(n Node, width int, out *[]RenderedOverlay) {
	switch v := n.(type) {
	case OverlayNode:
		*out = append(*out, RenderedOverlay{
			Lines:  RenderLines(v.Child, width),
			Anchor: v.Anchor,
		})
	case ColumnNode:
		for _, c := range v.Children {
			collectOverlays(c, width, out)
		}
	case FragmentNode:
		for _, c := range v.Children {
			collectOverlays(c, width, out)
		}
	case ScrollbackNode:
		for _, c := range v.Children {
			collectOverlays(c, width, out)
		}
	}
}
