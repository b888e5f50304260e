package scene

// FocusID names one focusable region of the UI.
type FocusID string

// FocusContext tracks which interactive region owns key routing. It is owned
// by the runtime driver and threaded by reference into tree construction each
// frame; it is never a process-wide singleton.
type FocusContext struct {
	order  []FocusID
	active int
}

// NewFocusContext returns a context with no registered regions and nothing
// focused.
func NewFocusContext() *FocusContext {
	return &FocusContext{active: -1}
}

// Register appends id to the focus order if it is not already present. When
// focus is true the region becomes active immediately.
func (f *FocusContext) Register(id FocusID, focus bool) {
	for i, existing := range f.order {
		if existing == id {
			if focus {
				f.active = i
			}
			return
		}
	}
	f.order = append(f.order, id)
	if focus {
		f.active = len(f.order) - 1
	}
}

// ActiveID returns the focused region, or "" when nothing is focused.
func (f *FocusContext) ActiveID() FocusID {
	if f.active < 0 || f.active >= len(f.order) {
		return ""
	}
	return f.order[f.active]
}

// Focus moves focus directly to id if registered.
func (f *FocusContext) Focus(id FocusID) {
	for i, existing := range f.order {
		if existing == id {
			f.active = i
			return
		}
	}
}

// FocusNext advances focus to the next registered region, wrapping around.
func (f *FocusContext) FocusNext() {
	if len(f.order) == 0 {
		return
	}
	f.active = (f.active + 1) % len(f.order)
}

// FocusPrev moves focus to the previous registered region, wrapping around.
func (f *FocusContext) FocusPrev() {
	if len(f.order) == 0 {
		return
	}
	if f.active <= 0 {
		f.active = len(f.order) - 1
		return
	}
	f.active--
}

// Order returns the registration order. The slice is a copy.
func (f *FocusContext) Order() []FocusID {
	out := make([]FocusID, len(f.order))
	copy(out, f.order)
	return out
}

// ViewContext carries the per-frame inputs to tree construction: the focus
// context and the current terminal size. It is rebuilt every iteration.
type ViewContext struct {
	Focus  *FocusContext
	Width  int
	Height int
}

// NewViewContext builds a per-frame view context.
func NewViewContext(focus *FocusContext, width, height int) ViewContext {
	return ViewContext{Focus: focus, Width: width, Height: height}
}
