package tui

import "unicode/utf8"

// KeyKind identifies a decoded terminal key.
type KeyKind int

const (
	KeyRune KeyKind = iota
	KeyEnter
	KeyBackspace
	KeyDelete
	KeyLeft
	KeyRight
	KeyUp
	KeyDown
	KeyHome
	KeyEnd
	KeyTab
	KeyShiftTab
	KeyEsc
	KeyCtrlA
	KeyCtrlC
	KeyCtrlE
	KeyCtrlU
)

// Key is one decoded key press. Rune is set only for KeyRune.
type Key struct {
	Kind KeyKind
	Rune rune
}

// decodeKeys turns a raw byte buffer from the terminal into key presses.
// Unrecognized escape sequences are dropped rather than leaking control bytes
// into the input. Returns the decoded keys and any trailing bytes belonging
// to an incomplete sequence.
func decodeKeys(buf []byte) ([]Key, []byte) {
	var keys []Key
	for len(buf) > 0 {
		b := buf[0]
		switch {
		case b == 0x1b:
			key, n, incomplete := decodeEscape(buf)
			if incomplete {
				return keys, buf
			}
			buf = buf[n:]
			if key != nil {
				keys = append(keys, *key)
			}
		case b == '\r' || b == '\n':
			keys = append(keys, Key{Kind: KeyEnter})
			buf = buf[1:]
		case b == 0x7f || b == 0x08:
			keys = append(keys, Key{Kind: KeyBackspace})
			buf = buf[1:]
		case b == '\t':
			keys = append(keys, Key{Kind: KeyTab})
			buf = buf[1:]
		case b == 0x01:
			keys = append(keys, Key{Kind: KeyCtrlA})
			buf = buf[1:]
		case b == 0x03:
			keys = append(keys, Key{Kind: KeyCtrlC})
			buf = buf[1:]
		case b == 0x05:
			keys = append(keys, Key{Kind: KeyCtrlE})
			buf = buf[1:]
		case b == 0x15:
			keys = append(keys, Key{Kind: KeyCtrlU})
			buf = buf[1:]
		case b < 0x20:
			// Other control bytes are ignored.
			buf = buf[1:]
		default:
			r, size := utf8.DecodeRune(buf)
			if r == utf8.RuneError && size == 1 {
				if !utf8.FullRune(buf) {
					return keys, buf // wait for the rest of the rune
				}
				buf = buf[1:]
				continue
			}
			keys = append(keys, Key{Kind: KeyRune, Rune: r})
			buf = buf[size:]
		}
	}
	return keys, nil
}

// decodeEscape decodes one escape sequence starting at buf[0] == ESC. It
// reports the decoded key (nil when the sequence is unknown), how many bytes
// were consumed, and whether more bytes are needed.
func decodeEscape(buf []byte) (*Key, int, bool) {
	if len(buf) == 1 {
		// A bare ESC is a real key; terminals send it alone. Treat a lone
		// trailing ESC as complete since the read already drained the buffer.
		return &Key{Kind: KeyEsc}, 1, false
	}
	if buf[1] == '[' {
		if len(buf) < 3 {
			return nil, 0, true
		}
		switch buf[2] {
		case 'A':
			return &Key{Kind: KeyUp}, 3, false
		case 'B':
			return &Key{Kind: KeyDown}, 3, false
		case 'C':
			return &Key{Kind: KeyRight}, 3, false
		case 'D':
			return &Key{Kind: KeyLeft}, 3, false
		case 'H':
			return &Key{Kind: KeyHome}, 3, false
		case 'F':
			return &Key{Kind: KeyEnd}, 3, false
		case 'Z':
			return &Key{Kind: KeyShiftTab}, 3, false
		case '3':
			if len(buf) < 4 {
				return nil, 0, true
			}
			if buf[3] == '~' {
				return &Key{Kind: KeyDelete}, 4, false
			}
			return nil, 4, false
		case '1', '4', '7', '8':
			if len(buf) < 4 {
				return nil, 0, true
			}
			if buf[3] == '~' {
				if buf[2] == '1' || buf[2] == '7' {
					return &Key{Kind: KeyHome}, 4, false
				}
				return &Key{Kind: KeyEnd}, 4, false
			}
			return nil, 4, false
		default:
			// Swallow the rest of an unknown CSI sequence.
			n := 2
			for n < len(buf) && !isCSIFinal(buf[n]) {
				n++
			}
			if n == len(buf) {
				return nil, 0, true
			}
			return nil, n + 1, false
		}
	}
	if buf[1] == 'O' && len(buf) >= 3 {
		switch buf[2] {
		case 'H':
			return &Key{Kind: KeyHome}, 3, false
		case 'F':
			return &Key{Kind: KeyEnd}, 3, false
		}
		return nil, 3, false
	}
	// ESC followed by a printable byte: treat the ESC alone.
	return &Key{Kind: KeyEsc}, 1, false
}

func isCSIFinal(b byte) bool {
	return b >= 0x40 && b <= 0x7e
}
