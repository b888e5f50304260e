package scene

// Composite layers overlays onto the base viewport lines and returns the
// final display text. It is pure: neither input is mutated, base lines are
// never dropped or overwritten, and overlay lines are strictly additive.
//
// Each overlay is spliced into the accumulating output so that its last line
// lands Anchor.FromBottom lines above the current bottom. When the anchor
// points above the top of the output, the output is extended with blank
// lines, never truncated. Overlays apply in the order given, each against
// the then-current buffer.
func Composite(base []string, overlays []RenderedOverlay, width int) []string {
	out := make([]string, len(base))
	copy(out, base)

	for _, ov := range overlays {
		if len(ov.Lines) == 0 {
			continue
		}
		offset := ov.Anchor.FromBottom
		if offset < 0 {
			offset = 0
		}
		at := len(out) - offset
		if at < 0 {
			pad := make([]string, -at)
			out = append(pad, out...)
			at = 0
		}
		spliced := make([]string, 0, len(out)+len(ov.Lines))
		spliced = append(spliced, out[:at]...)
		spliced = append(spliced, ov.Lines...)
		spliced = append(spliced, out[at:]...)
		out = spliced
	}

	return out
}
