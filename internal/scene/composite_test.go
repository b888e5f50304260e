package scene

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func overlay(anchor int, lines ...string) RenderedOverlay {
	return RenderedOverlay{Lines: lines, Anchor: OverlayAnchor{FromBottom: anchor}}
}

func TestCompositeNoOverlaysReturnsBaseCopy(t *testing.T) {
	base := []string{"one", "two", "three"}
	out := Composite(base, nil, 80)
	require.Equal(t, base, out)

	out[0] = "mutated"
	require.Equal(t, "one", base[0], "compositing must not alias the base slice")
}

func TestCompositeAnchorsLastLineAboveBottom(t *testing.T) {
	base := []string{"a", "b", "c", "d", "e", "f"}
	out := Composite(base, []RenderedOverlay{overlay(2, "POP-1", "POP-2")}, 80)

	// Two base lines remain below the overlay's last line.
	require.Equal(t, "POP-2", out[len(out)-3])
	require.Equal(t, "e", out[len(out)-2])
	require.Equal(t, "f", out[len(out)-1])
}

func TestCompositeZeroOffsetSitsAtBottom(t *testing.T) {
	base := []string{"a", "b"}
	out := Composite(base, []RenderedOverlay{overlay(0, "POP")}, 80)
	require.Equal(t, []string{"a", "b", "POP"}, out)
}

func TestCompositePreservesEveryBaseLine(t *testing.T) {
	base := []string{"keep-0", "keep-1", "keep-2", "keep-3"}
	out := Composite(base, []RenderedOverlay{
		overlay(1, "ov-a"),
		overlay(3, "ov-b", "ov-c"),
	}, 80)

	seen := map[string]bool{}
	for _, line := range out {
		seen[line] = true
	}
	for _, line := range base {
		if !seen[line] {
			t.Fatalf("base line %q lost during compositing", line)
		}
	}
	require.Len(t, out, len(base)+3)
}

func TestCompositeExtendsUpwardWhenAnchorAboveTop(t *testing.T) {
	base := []string{"only"}
	out := Composite(base, []RenderedOverlay{overlay(5, "tall")}, 80)

	// Extension, never truncation: the single base line survives and the
	// buffer grows upward with blank padding.
	require.Contains(t, out, "only")
	require.Contains(t, out, "tall")
	require.Equal(t, "only", out[len(out)-1])
	require.Len(t, out, 6)
}

func TestCompositeEmptyOverlayIsNoOp(t *testing.T) {
	base := []string{"x", "y"}
	out := Composite(base, []RenderedOverlay{overlay(1)}, 80)
	require.Equal(t, base, out)
}

func TestCompositeAppliesOverlaysInOrder(t *testing.T) {
	base := []string{"b1", "b2", "b3", "b4"}
	out := Composite(base, []RenderedOverlay{
		overlay(2, "first"),
		overlay(2, "second"),
	}, 80)

	// The second overlay splices against the buffer the first produced, so
	// both land above the same two trailing base lines.
	require.Equal(t, []string{"b1", "b2", "first", "second", "b3", "b4"}, out)
}

func TestCompositeEmptyBase(t *testing.T) {
	out := Composite(nil, []RenderedOverlay{overlay(0, "alone")}, 80)
	require.Equal(t, []string{"alone"}, out)
}
