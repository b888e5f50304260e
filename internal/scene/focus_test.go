package scene

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFocusRegisterAndActivate(t *testing.T) {
	f := NewFocusContext()
	require.Equal(t, FocusID(""), f.ActiveID())

	f.Register("input", true)
	f.Register("palette", false)
	require.Equal(t, FocusID("input"), f.ActiveID())
	require.Equal(t, []FocusID{"input", "palette"}, f.Order())
}

func TestFocusRegisterIsIdempotent(t *testing.T) {
	f := NewFocusContext()
	f.Register("input", true)
	f.Register("input", false)
	f.Register("input", true)
	require.Equal(t, []FocusID{"input"}, f.Order())
	require.Equal(t, FocusID("input"), f.ActiveID())
}

func TestFocusNextCyclesBackToStart(t *testing.T) {
	f := NewFocusContext()
	f.Register("a", true)
	f.Register("b", false)
	f.Register("c", false)

	start := f.ActiveID()
	for i := 0; i < len(f.Order()); i++ {
		f.FocusNext()
	}
	require.Equal(t, start, f.ActiveID(), "cycling through every region returns to the start")
}

func TestFocusPrevWrapsAround(t *testing.T) {
	f := NewFocusContext()
	f.Register("a", true)
	f.Register("b", false)

	f.FocusPrev()
	require.Equal(t, FocusID("b"), f.ActiveID())
	f.FocusPrev()
	require.Equal(t, FocusID("a"), f.ActiveID())
}

func TestFocusDirectJump(t *testing.T) {
	f := NewFocusContext()
	f.Register("input", true)
	f.Register("selector", false)

	f.Focus("selector")
	require.Equal(t, FocusID("selector"), f.ActiveID())

	f.Focus("unknown")
	require.Equal(t, FocusID("selector"), f.ActiveID(), "focusing an unregistered id is a no-op")
}

func TestFocusNextOnEmptyContext(t *testing.T) {
	f := NewFocusContext()
	f.FocusNext()
	f.FocusPrev()
	require.Equal(t, FocusID(""), f.ActiveID())
}
