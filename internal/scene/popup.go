package scene

// EnsureVisible returns the viewport offset that keeps selected inside a
// window of maxVisible rows over itemCount items, moving the given offset as
// little as possible. The policy is a plain clamp: the window slides only
// when the selection leaves it.
func EnsureVisible(selected, offset, maxVisible, itemCount int) int {
	if maxVisible <= 0 || itemCount <= 0 {
		return 0
	}
	if selected < 0 {
		selected = 0
	}
	if selected >= itemCount {
		selected = itemCount - 1
	}
	if offset < 0 {
		offset = 0
	}
	if selected < offset {
		offset = selected
	}
	if selected >= offset+maxVisible {
		offset = selected - maxVisible + 1
	}
	if max := itemCount - maxVisible; offset > max {
		if max < 0 {
			max = 0
		}
		offset = max
	}
	return offset
}
