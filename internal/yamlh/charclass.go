package yamlh

// Check if the character at the specified position is an alphabetical
// character, a digit, '_', or '-'.
func Is_alpha(b []byte, i int) bool {
	return b[i] >= '0' && b[i] <= '9' || b[i] >= 'A' && b[i] <= 'Z' || b[i] >= 'a' && b[i] <= 'z' || b[i] == '_' || b[i] == '-'
}

// Check if the character at the specified position is a digit.
func Is_digit(b []byte, i int) bool {
	return b[i] >= '0' && b[i] <= '9'
}

// Get the value of a digit.
func As_digit(b []byte, i int) int {
	return int(b[i]) - '0'
}

// Check if the character at the specified position is a hex-digit.
func Is_hex(b []byte, i int) bool {
	return b[i] >= '0' && b[i] <= '9' || b[i] >= 'A' && b[i] <= 'F' || b[i] >= 'a' && b[i] <= 'f'
}

// Get the value of a hex-digit.
func As_hex(b []byte, i int) int {
	bi := b[i]
	if bi >= 'A' && bi <= 'F' {
		return int(bi) - 'A' + 10
	}
	if bi >= 'a' && bi <= 'f' {
		return int(bi) - 'a' + 10
	}
	return int(bi) - '0'
}

// IsPrintable checks if the character at the start of the buffer can be
// printed unescaped, per the YAML 1.2 "printable character" production.
func IsPrintable(b []byte) bool {
	return (b[0] == 0x0A) ||
		(b[0] >= 0x20 && b[0] <= 0x7E) ||
		(b[0] == 0xC2 && b[0+1] >= 0xA0) ||
		(b[0] > 0xC2 && b[0] < 0xED) ||
		(b[0] == 0xED && b[0+1] < 0xA0) ||
		(b[0] == 0xEE) ||
		(b[0] == 0xEF &&
			!(b[0+1] == 0xBB && b[0+2] == 0xBF) &&
			!(b[0+1] == 0xBF && (b[0+2] == 0xBE || b[0+2] == 0xBF)))
}

// Check if the character at the specified position is NUL.
func Is_z(b []byte, i int) bool {
	return b[i] == 0x00
}

// Check if the beginning of the buffer is a UTF-8 BOM.
func Is_bom(b []byte) bool {
	return b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF
}

func Is_space(b []byte, i int) bool {
	return b[i] == ' '
}

func Is_tab(b []byte, i int) bool {
	return b[i] == '\t'
}

func Is_blank(b []byte, i int) bool {
	return b[i] == ' ' || b[i] == '\t'
}

func IsBlank(b byte) bool {
	return b == ' ' || b == '\t'
}

// isBreakSeq reports whether the 1-3 byte sequence starting at b[i] encodes
// a line break: CR, LF, or the UTF-8 encodings of NEL, LS, or PS. Every
// break-aware predicate below calls this instead of repeating the pattern.
func isBreakSeq(b []byte, i int) bool {
	// Reader windows are sub-slices of a buffer that holds whole decoded
	// characters, so a 1-byte window still has a multi-byte character's
	// continuation bytes within its capacity.
	b = b[:cap(b)]
	return b[i] == '\r' ||
		b[i] == '\n' ||
		b[i] == 0xC2 && b[i+1] == 0x85 || // NEL
		b[i] == 0xE2 && b[i+1] == 0x80 && (b[i+2] == 0xA8 || b[i+2] == 0xA9) // LS, PS
}

// Is_break checks if the character at the specified position is a line break.
func Is_break(b []byte, i int) bool {
	return isBreakSeq(b, i)
}

func IsBreak(b []byte) bool {
	return isBreakSeq(b, 0)
}

func Is_crlf(b []byte, i int) bool {
	return b[i] == '\r' && b[i+1] == '\n'
}

// Is_breakz checks if the character is a line break or NUL.
func Is_breakz(b []byte, i int) bool {
	return isBreakSeq(b, i) || b[i] == 0
}

// Is_spacez checks if the character is a line break, space, or NUL.
func Is_spacez(b []byte, i int) bool {
	return b[i] == ' ' || isBreakSeq(b, i) || b[i] == 0
}

// Is_blankz checks if the character is a line break, space, tab, or NUL.
func Is_blankz(b []byte, i int) bool {
	return b[i] == ' ' || b[i] == '\t' || isBreakSeq(b, i) || b[i] == 0
}

func IsBlankz(b []byte) bool {
	return Is_blankz(b, 0)
}

// Width determines the number of bytes a UTF-8 sequence occupies given its
// leading octet, or 0 if it isn't a valid leading octet.
func Width(b byte) int {
	if b&0x80 == 0x00 {
		return 1
	}
	if b&0xE0 == 0xC0 {
		return 2
	}
	if b&0xF0 == 0xE0 {
		return 3
	}
	if b&0xF8 == 0xF0 {
		return 4
	}
	return 0
}
