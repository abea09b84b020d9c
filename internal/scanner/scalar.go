package scanner

import "github.com/yaml-stream/yamlstream/internal/yamlh"

// Materialize returns a deferred scalar's final content, computing it once
// and memoizing the result on the payload. For Lazy block/flow/plain
// scalars the escape and fold processing already ran during the scan (the
// extent of a block scalar can't be found without folding it); what's
// deferred is only the copy into the token's public Value, so Materialize
// is O(1) after the first call.
func Materialize(p *yamlh.ScalarPayload) []byte {
	if p.Form == yamlh.ScalarEager {
		return p.Value
	}
	if p.Value == nil {
		p.Value = p.Raw
	}
	return p.Value
}

func (s *Scanner) wrapScalar(style yamlh.ScalarStyle, form yamlh.ScalarForm, content []byte, indent int, chomp yamlh.Chomping) *yamlh.ScalarPayload {
	if !s.flags.Lazy || form == yamlh.ScalarEager {
		return &yamlh.ScalarPayload{Form: yamlh.ScalarEager, Style: style, Value: content}
	}
	return &yamlh.ScalarPayload{Form: form, Style: style, Raw: content, Indent: indent, Chomp: chomp}
}

func (s *Scanner) scanBlockScalar(literal bool) (yamlh.Token, error) {
	start := s.rd.Mark()
	style := yamlh.FOLDED_SCALAR_STYLE
	if literal {
		style = yamlh.LITERAL_SCALAR_STYLE
	}
	s.skip() // the '|' or '>' indicator

	var chomp yamlh.Chomping = yamlh.CHOMP_CLIP
	increment := 0

	if err := s.ensure(1); err != nil {
		return yamlh.Token{}, err
	}
	if s.byteAt(0) == '+' || s.byteAt(0) == '-' {
		if s.byteAt(0) == '+' {
			chomp = yamlh.CHOMP_KEEP
		} else {
			chomp = yamlh.CHOMP_STRIP
		}
		s.skip()
		if err := s.ensure(1); err != nil {
			return yamlh.Token{}, err
		}
		if yamlh.Is_digit(s.rd.Bytes(0, 1), 0) {
			if s.byteAt(0) == '0' {
				return yamlh.Token{}, newScannerError(start, "found an invalid indentation indicator")
			}
			increment = yamlh.As_digit(s.rd.Bytes(0, 1), 0)
			s.skip()
		}
	} else if yamlh.Is_digit(s.rd.Bytes(0, 1), 0) {
		if s.byteAt(0) == '0' {
			return yamlh.Token{}, newScannerError(start, "found an invalid indentation indicator")
		}
		increment = yamlh.As_digit(s.rd.Bytes(0, 1), 0)
		s.skip()
		if err := s.ensure(1); err != nil {
			return yamlh.Token{}, err
		}
		if s.byteAt(0) == '+' || s.byteAt(0) == '-' {
			if s.byteAt(0) == '+' {
				chomp = yamlh.CHOMP_KEEP
			} else {
				chomp = yamlh.CHOMP_STRIP
			}
			s.skip()
		}
	}

	if err := s.ensure(1); err != nil {
		return yamlh.Token{}, err
	}
	for yamlh.Is_blank(s.rd.Bytes(0, 1), 0) {
		s.skip()
		if err := s.ensure(1); err != nil {
			return yamlh.Token{}, err
		}
	}
	if s.byteAt(0) == '#' {
		for !yamlh.Is_breakz(s.rd.Bytes(0, 1), 0) {
			s.skip()
			if err := s.ensure(1); err != nil {
				return yamlh.Token{}, err
			}
		}
	}
	if !yamlh.Is_breakz(s.rd.Bytes(0, 1), 0) {
		return yamlh.Token{}, newScannerError(start, "did not find expected comment or line break")
	}
	if yamlh.Is_break(s.rd.Bytes(0, 3), 0) {
		if err := s.ensure(2); err != nil {
			return yamlh.Token{}, err
		}
		s.skipLine()
	}

	indent := 0
	if increment > 0 {
		if s.indent >= 0 {
			indent = s.indent + increment
		} else {
			indent = increment
		}
	}

	var content []byte
	leadingBlank := false
	var trailing []byte

	for {
		if err := s.scanBlockScalarBreaks(&indent, &trailing, start); err != nil {
			return yamlh.Token{}, err
		}
		if err := s.ensure(1); err != nil {
			return yamlh.Token{}, err
		}
		if s.rd.Mark().Column != indent || yamlh.Is_z(s.rd.Bytes(0, 1), 0) {
			break
		}

		thisLeadingBlank := yamlh.Is_blank(s.rd.Bytes(0, 1), 0)
		// trailing starts with the previous line's own break: a lone '\n'
		// folds to a space, and before further breaks it is dropped.
		if !literal && !leadingBlank && !thisLeadingBlank && len(content) > 0 && len(trailing) > 0 && trailing[0] == '\n' {
			if len(trailing) == 1 {
				content = append(content, ' ')
			}
			trailing = trailing[1:]
		}
		content = append(content, trailing...)
		trailing = trailing[:0]
		leadingBlank = thisLeadingBlank

		for !yamlh.Is_breakz(s.rd.Bytes(0, 1), 0) {
			content = s.read(content)
			if err := s.ensure(1); err != nil {
				return yamlh.Token{}, err
			}
		}
		if err := s.ensure(2); err != nil {
			return yamlh.Token{}, err
		}
		trailing = s.readLine(trailing)
	}

	switch chomp {
	case yamlh.CHOMP_KEEP:
		content = append(content, trailing...)
	case yamlh.CHOMP_CLIP:
		if len(trailing) > 0 {
			content = append(content, '\n')
		}
	}

	form := yamlh.ScalarDeferredBlock
	return yamlh.Token{
		Kind:  yamlh.SCALAR_TOKEN,
		Start: start, End: s.rd.Mark(),
		Scalar: s.wrapScalar(style, form, content, indent, chomp),
	}, nil
}

func (s *Scanner) scanBlockScalarBreaks(indent *int, trailing *[]byte, start yamlh.Position) error {
	maxIndent := 0
	for {
		if err := s.ensure(1); err != nil {
			return err
		}
		for (*indent == 0 || s.rd.Mark().Column < *indent) && yamlh.Is_space(s.rd.Bytes(0, 1), 0) {
			s.skip()
			if err := s.ensure(1); err != nil {
				return err
			}
		}
		if s.rd.Mark().Column > maxIndent {
			maxIndent = s.rd.Mark().Column
		}
		if yamlh.Is_break(s.rd.Bytes(0, 3), 0) {
			if err := s.ensure(2); err != nil {
				return err
			}
			*trailing = s.readLine(*trailing)
			continue
		}
		break
	}
	if *indent == 0 {
		if maxIndent > s.indent {
			*indent = maxIndent
		} else {
			*indent = s.indent + 1
		}
		if *indent < 1 {
			*indent = 1
		}
	}
	return nil
}

func (s *Scanner) scanFlowScalar(single bool) (yamlh.Token, error) {
	start := s.rd.Mark()
	s.skip()

	var content []byte
	for {
		if err := s.ensure(4); err != nil {
			return yamlh.Token{}, err
		}
		if yamlh.Is_z(s.rd.Bytes(0, 1), 0) {
			return yamlh.Token{}, newScannerError(start, "found unexpected end of stream")
		}
		if (single && s.byteAt(0) == '\'') || (!single && s.byteAt(0) == '"') {
			break
		}
		for !yamlh.Is_blankz(s.rd.Bytes(0, 1), 0) {
			if single && s.byteAt(0) == '\'' && s.byteAt(1) == '\'' {
				content = append(content, '\'')
				s.skip()
				s.skip()
			} else if single && s.byteAt(0) == '\'' {
				break
			} else if !single && s.byteAt(0) == '"' {
				break
			} else if !single && s.byteAt(0) == '\\' && yamlh.Is_break(s.rd.Bytes(0, 3), 1) {
				if err := s.ensure(3); err != nil {
					return yamlh.Token{}, err
				}
				s.skip()
				s.skipLine()
			} else if !single && s.byteAt(0) == '\\' {
				if err := s.ensure(2); err != nil {
					return yamlh.Token{}, err
				}
				esc, err := s.scanEscape(start)
				if err != nil {
					return yamlh.Token{}, err
				}
				content = append(content, esc...)
			} else {
				content = s.read(content)
			}
			if err := s.ensure(2); err != nil {
				return yamlh.Token{}, err
			}
		}

		if err := s.ensure(1); err != nil {
			return yamlh.Token{}, err
		}
		if (single && s.byteAt(0) == '\'') || (!single && s.byteAt(0) == '"') {
			break
		}

		var leadingBreak, trailingBreaks []byte
		whitespaces := false
		for yamlh.Is_blank(s.rd.Bytes(0, 1), 0) {
			s.skip()
			whitespaces = true
			if err := s.ensure(1); err != nil {
				return yamlh.Token{}, err
			}
		}
		if yamlh.Is_break(s.rd.Bytes(0, 3), 0) {
			if err := s.ensure(2); err != nil {
				return yamlh.Token{}, err
			}
			leadingBreak = s.readLine(leadingBreak)
			whitespaces = false
		}
		if len(leadingBreak) > 0 {
			for {
				if err := s.ensure(1); err != nil {
					return yamlh.Token{}, err
				}
				if !yamlh.Is_blank(s.rd.Bytes(0, 1), 0) && !yamlh.Is_break(s.rd.Bytes(0, 3), 0) {
					break
				}
				if yamlh.Is_blank(s.rd.Bytes(0, 1), 0) {
					s.skip()
				} else {
					if err := s.ensure(2); err != nil {
						return yamlh.Token{}, err
					}
					trailingBreaks = s.readLine(trailingBreaks)
				}
			}
			if leadingBreak[0] == '\n' {
				if len(trailingBreaks) == 0 {
					content = append(content, ' ')
				} else {
					content = append(content, trailingBreaks...)
				}
			} else {
				content = append(content, leadingBreak...)
				content = append(content, trailingBreaks...)
			}
		} else if whitespaces {
			content = append(content, ' ')
		}
	}
	s.skip() // closing quote

	var kind yamlh.ScalarStyle = yamlh.DOUBLE_QUOTED_SCALAR_STYLE
	if single {
		kind = yamlh.SINGLE_QUOTED_SCALAR_STYLE
	}
	return yamlh.Token{
		Kind:  yamlh.SCALAR_TOKEN,
		Start: start, End: s.rd.Mark(),
		Scalar: s.wrapScalar(kind, yamlh.ScalarDeferredFlow, content, 0, yamlh.CHOMP_CLIP),
	}, nil
}

// scanEscape handles a '\' double-quoted escape sequence, cursor already
// positioned on the backslash.
func (s *Scanner) scanEscape(start yamlh.Position) ([]byte, error) {
	var codeLength int
	s.skip()
	switch s.byteAt(0) {
	case '0':
		s.skip()
		return []byte{0}, nil
	case 'a':
		s.skip()
		return []byte{'\a'}, nil
	case 'b':
		s.skip()
		return []byte{'\b'}, nil
	case 't', '\t':
		s.skip()
		return []byte{'\t'}, nil
	case 'n':
		s.skip()
		return []byte{'\n'}, nil
	case 'v':
		s.skip()
		return []byte{'\v'}, nil
	case 'f':
		s.skip()
		return []byte{'\f'}, nil
	case 'r':
		s.skip()
		return []byte{'\r'}, nil
	case 'e':
		s.skip()
		return []byte{0x1B}, nil
	case ' ':
		s.skip()
		return []byte{' '}, nil
	case '"':
		s.skip()
		return []byte{'"'}, nil
	case '\'':
		s.skip()
		return []byte{'\''}, nil
	case '\\':
		s.skip()
		return []byte{'\\'}, nil
	case 'N':
		s.skip()
		return []byte{0xC2, 0x85}, nil
	case '_':
		s.skip()
		return []byte{0xC2, 0xA0}, nil
	case 'L':
		s.skip()
		return []byte{0xE2, 0x80, 0xA8}, nil
	case 'P':
		s.skip()
		return []byte{0xE2, 0x80, 0xA9}, nil
	case 'x':
		codeLength = 2
	case 'u':
		codeLength = 4
	case 'U':
		codeLength = 8
	default:
		return nil, newScannerError(start, "found unknown escape character")
	}
	s.skip()
	if err := s.ensure(codeLength); err != nil {
		return nil, err
	}
	value := 0
	for k := 0; k < codeLength; k++ {
		if !yamlh.Is_hex(s.rd.Bytes(k, k+1), 0) {
			return nil, newScannerError(start, "did not find expected hexadecimal number")
		}
		value = (value << 4) + yamlh.As_hex(s.rd.Bytes(k, k+1), 0)
	}
	rune_ := rune(value)
	var buf []byte
	switch {
	case rune_ <= 0x7F:
		buf = append(buf, byte(rune_))
	case rune_ <= 0x7FF:
		buf = append(buf, byte(0xC0+(rune_>>6)), byte(0x80+(rune_&0x3F)))
	case rune_ <= 0xFFFF:
		buf = append(buf,
			byte(0xE0+(rune_>>12)),
			byte(0x80+((rune_>>6)&0x3F)),
			byte(0x80+(rune_&0x3F)))
	default:
		buf = append(buf,
			byte(0xF0+(rune_>>18)),
			byte(0x80+((rune_>>12)&0x3F)),
			byte(0x80+((rune_>>6)&0x3F)),
			byte(0x80+(rune_&0x3F)))
	}
	for i := 0; i < codeLength; i++ {
		s.skip()
	}
	return buf, nil
}

func (s *Scanner) scanPlainScalar() (yamlh.Token, error) {
	start := s.rd.Mark()
	var content []byte
	var leadingBreak, trailingBreaks []byte
	leadingBlanks := false
	indent := s.indent + 1

	for {
		if err := s.ensure(1); err != nil {
			return yamlh.Token{}, err
		}
		if s.byteAt(0) == '#' {
			break
		}
		for {
			if err := s.ensure(3); err != nil {
				return yamlh.Token{}, err
			}
			if yamlh.Is_blankz(s.rd.Bytes(0, 1), 0) {
				break
			}
			if s.flowLevel > 0 && s.byteAt(0) == ':' && yamlh.Is_blankz(s.rd.Bytes(1, 2), 0) {
				break
			}
			if s.byteAt(0) == ':' && yamlh.Is_blankz(s.rd.Bytes(1, 2), 0) {
				break
			}
			if s.flowLevel > 0 && (s.byteAt(0) == ',' || s.byteAt(0) == ':' || s.byteAt(0) == '?' ||
				s.byteAt(0) == '[' || s.byteAt(0) == ']' || s.byteAt(0) == '{' || s.byteAt(0) == '}') {
				break
			}
			if yamlh.Is_break(s.rd.Bytes(0, 3), 0) {
				break
			}
			content = s.read(content)
			if err := s.ensure(2); err != nil {
				return yamlh.Token{}, err
			}
		}

		if err := s.ensure(1); err != nil {
			return yamlh.Token{}, err
		}
		if !(yamlh.Is_blank(s.rd.Bytes(0, 1), 0) || yamlh.Is_break(s.rd.Bytes(0, 3), 0)) {
			break
		}

		for yamlh.Is_blank(s.rd.Bytes(0, 1), 0) || yamlh.Is_break(s.rd.Bytes(0, 3), 0) {
			if yamlh.Is_blank(s.rd.Bytes(0, 1), 0) {
				if leadingBlanks && s.rd.Mark().Column < indent && yamlh.Is_tab(s.rd.Bytes(0, 1), 0) {
					return yamlh.Token{}, newScannerError(start, "found a tab character that violates indentation")
				}
				s.skip()
			} else {
				if err := s.ensure(2); err != nil {
					return yamlh.Token{}, err
				}
				if !leadingBlanks {
					leadingBreak = s.readLine(leadingBreak[:0])
					leadingBlanks = true
				} else {
					trailingBreaks = s.readLine(trailingBreaks)
				}
			}
			if err := s.ensure(1); err != nil {
				return yamlh.Token{}, err
			}
		}

		if s.flowLevel == 0 && s.rd.Mark().Column < indent {
			break
		}

		if leadingBlanks {
			if len(leadingBreak) > 0 && leadingBreak[0] == '\n' {
				if len(trailingBreaks) == 0 {
					content = append(content, ' ')
				} else {
					content = append(content, trailingBreaks...)
				}
			} else {
				content = append(content, leadingBreak...)
				content = append(content, trailingBreaks...)
			}
			leadingBreak = leadingBreak[:0]
			trailingBreaks = trailingBreaks[:0]
			leadingBlanks = false
		}
	}

	if leadingBlanks {
		s.simpleKeyAllowed = true
	}

	return yamlh.Token{
		Kind:  yamlh.SCALAR_TOKEN,
		Start: start, End: s.rd.Mark(),
		Scalar: s.wrapScalar(yamlh.PLAIN_SCALAR_STYLE, yamlh.ScalarDeferredPlain, content, indent, yamlh.CHOMP_CLIP),
	}, nil
}
