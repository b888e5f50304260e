package tui

// InputBuffer is the editable draft message: runes plus a cursor. The cursor
// is always within [0, len(runes)].
type InputBuffer struct {
	runes  []rune
	cursor int
}

// String returns the buffer contents.
func (b *InputBuffer) String() string {
	return string(b.runes)
}

// Cursor returns the cursor position in runes.
func (b *InputBuffer) Cursor() int {
	return b.cursor
}

// Len returns the content length in runes.
func (b *InputBuffer) Len() int {
	return len(b.runes)
}

// Empty reports whether the buffer holds no content.
func (b *InputBuffer) Empty() bool {
	return len(b.runes) == 0
}

// InsertRune inserts r at the cursor and advances it.
func (b *InputBuffer) InsertRune(r rune) {
	b.runes = append(b.runes[:b.cursor], append([]rune{r}, b.runes[b.cursor:]...)...)
	b.cursor++
}

// InsertString inserts s at the cursor.
func (b *InputBuffer) InsertString(s string) {
	for _, r := range s {
		b.InsertRune(r)
	}
}

// Backspace removes the rune before the cursor.
func (b *InputBuffer) Backspace() {
	if b.cursor == 0 {
		return
	}
	b.runes = append(b.runes[:b.cursor-1], b.runes[b.cursor:]...)
	b.cursor--
}

// Delete removes the rune under the cursor.
func (b *InputBuffer) Delete() {
	if b.cursor >= len(b.runes) {
		return
	}
	b.runes = append(b.runes[:b.cursor], b.runes[b.cursor+1:]...)
}

// Left moves the cursor one rune left.
func (b *InputBuffer) Left() {
	if b.cursor > 0 {
		b.cursor--
	}
}

// Right moves the cursor one rune right.
func (b *InputBuffer) Right() {
	if b.cursor < len(b.runes) {
		b.cursor++
	}
}

// Home moves the cursor to the start.
func (b *InputBuffer) Home() {
	b.cursor = 0
}

// End moves the cursor past the last rune.
func (b *InputBuffer) End() {
	b.cursor = len(b.runes)
}

// Clear empties the buffer.
func (b *InputBuffer) Clear() {
	b.runes = nil
	b.cursor = 0
}
