package scanner

import (
	"github.com/yaml-stream/yamlstream/internal/yamlh"
)

func (s *Scanner) scanDirective() (yamlh.Token, error) {
	start := s.rd.Mark()
	s.skip()

	var tok yamlh.Token
	var err error
	name, err := s.scanDirectiveName(start)
	if err != nil {
		return tok, err
	}
	switch string(name) {
	case "YAML":
		tok, err = s.scanVersionDirectiveValue(start)
	case "TAG":
		tok, err = s.scanTagDirectiveValue(start)
	default:
		return yamlh.Token{}, newScannerError(start, "found unknown directive name")
	}
	if err != nil {
		return tok, err
	}
	if err := s.scanDirectiveTrailer(start); err != nil {
		return yamlh.Token{}, err
	}
	return tok, nil
}

func (s *Scanner) scanDirectiveTrailer(start yamlh.Position) error {
	if err := s.ensure(1); err != nil {
		return err
	}
	for yamlh.Is_blank(s.rd.Bytes(0, 1), 0) {
		s.skip()
		if err := s.ensure(1); err != nil {
			return err
		}
	}
	if s.byteAt(0) == '#' {
		for !yamlh.Is_breakz(s.rd.Bytes(0, 1), 0) {
			s.skip()
			if err := s.ensure(1); err != nil {
				return err
			}
		}
	}
	if !yamlh.Is_breakz(s.rd.Bytes(0, 1), 0) {
		return newScannerError(start, "did not find expected comment or line break")
	}
	if yamlh.Is_break(s.rd.Bytes(0, 3), 0) {
		if err := s.ensure(2); err != nil {
			return err
		}
		s.skipLine()
	}
	return nil
}

func (s *Scanner) scanDirectiveName(start yamlh.Position) ([]byte, error) {
	var name []byte
	if err := s.ensure(1); err != nil {
		return nil, err
	}
	for yamlh.Is_alpha(s.rd.Bytes(0, 1), 0) {
		name = s.read(name)
		if err := s.ensure(1); err != nil {
			return nil, err
		}
	}
	if len(name) == 0 {
		return nil, newScannerError(start, "could not find expected directive name")
	}
	if !yamlh.Is_blankz(s.rd.Bytes(0, 1), 0) {
		return nil, newScannerError(start, "found unexpected non-alphabetical character")
	}
	return name, nil
}

const maxVersionNumberLength = 9

func (s *Scanner) scanVersionDirectiveValue(start yamlh.Position) (yamlh.Token, error) {
	if err := s.skipBlanks(); err != nil {
		return yamlh.Token{}, err
	}
	major, err := s.scanVersionDirectiveNumber(start)
	if err != nil {
		return yamlh.Token{}, err
	}
	if err := s.ensure(1); err != nil {
		return yamlh.Token{}, err
	}
	if s.byteAt(0) != '.' {
		return yamlh.Token{}, newScannerError(start, "did not find expected digit or '.' character")
	}
	s.skip()
	minor, err := s.scanVersionDirectiveNumber(start)
	if err != nil {
		return yamlh.Token{}, err
	}
	return yamlh.Token{
		Kind:  yamlh.VERSION_DIRECTIVE_TOKEN,
		Start: start, End: s.rd.Mark(),
		Major: int8(major), Minor: int8(minor),
	}, nil
}

func (s *Scanner) scanVersionDirectiveNumber(start yamlh.Position) (int, error) {
	value := 0
	length := 0
	if err := s.ensure(1); err != nil {
		return 0, err
	}
	for yamlh.Is_digit(s.rd.Bytes(0, 1), 0) {
		length++
		if length > maxVersionNumberLength {
			return 0, newScannerError(start, "found extremely long version number")
		}
		value = value*10 + yamlh.As_digit(s.rd.Bytes(0, 1), 0)
		if value > 127 {
			return 0, newScannerError(start, "found version number out of range")
		}
		s.skip()
		if err := s.ensure(1); err != nil {
			return 0, err
		}
	}
	if length == 0 {
		return 0, newScannerError(start, "did not find expected version number")
	}
	return value, nil
}

func (s *Scanner) scanTagDirectiveValue(start yamlh.Position) (yamlh.Token, error) {
	if err := s.skipBlanks(); err != nil {
		return yamlh.Token{}, err
	}
	handle, err := s.scanTagHandle(true, start)
	if err != nil {
		return yamlh.Token{}, err
	}
	if err := s.skipBlanks(); err != nil {
		return yamlh.Token{}, err
	}
	prefix, err := s.scanTagURI(true, nil, start)
	if err != nil {
		return yamlh.Token{}, err
	}
	if err := s.ensure(1); err != nil {
		return yamlh.Token{}, err
	}
	if !yamlh.Is_blankz(s.rd.Bytes(0, 1), 0) {
		return yamlh.Token{}, newScannerError(start, "did not find expected whitespace or line break")
	}
	return yamlh.Token{Kind: yamlh.TAG_DIRECTIVE_TOKEN, Start: start, End: s.rd.Mark(), Value: handle, Prefix: prefix}, nil
}

func (s *Scanner) skipBlanks() error {
	if err := s.ensure(1); err != nil {
		return err
	}
	for yamlh.Is_blank(s.rd.Bytes(0, 1), 0) {
		s.skip()
		if err := s.ensure(1); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scanner) scanAnchor(kind yamlh.TokenKind) (yamlh.Token, error) {
	start := s.rd.Mark()
	s.skip()
	var value []byte
	if err := s.ensure(1); err != nil {
		return yamlh.Token{}, err
	}
	for yamlh.Is_alpha(s.rd.Bytes(0, 1), 0) {
		value = s.read(value)
		if err := s.ensure(1); err != nil {
			return yamlh.Token{}, err
		}
	}
	if err := s.ensure(1); err != nil {
		return yamlh.Token{}, err
	}
	if len(value) == 0 || !(yamlh.Is_blankz(s.rd.Bytes(0, 1), 0) ||
		s.byteAt(0) == '?' || s.byteAt(0) == ':' || s.byteAt(0) == ',' ||
		s.byteAt(0) == ']' || s.byteAt(0) == '}' || s.byteAt(0) == '%' ||
		s.byteAt(0) == '@' || s.byteAt(0) == '`') {
		return yamlh.Token{}, newScannerError(start, "did not find expected alphabetic or numeric character")
	}
	return yamlh.Token{Kind: kind, Start: start, End: s.rd.Mark(), Value: value}, nil
}

func (s *Scanner) scanTag() (yamlh.Token, error) {
	start := s.rd.Mark()
	var handle, suffix []byte
	var err error

	if err := s.ensure(2); err != nil {
		return yamlh.Token{}, err
	}
	if s.byteAt(1) == '<' {
		s.skip()
		s.skip()
		suffix, err = s.scanTagURI(false, nil, start)
		if err != nil {
			return yamlh.Token{}, err
		}
		if err := s.ensure(1); err != nil {
			return yamlh.Token{}, err
		}
		if s.byteAt(0) != '>' {
			return yamlh.Token{}, newScannerError(start, "did not find the expected '>'")
		}
		s.skip()
	} else {
		handle, err = s.scanTagHandle(false, start)
		if err != nil {
			return yamlh.Token{}, err
		}
		if len(handle) >= 2 && handle[0] == '!' && handle[len(handle)-1] == '!' {
			suffix, err = s.scanTagURI(false, nil, start)
		} else {
			suffix, err = s.scanTagURI(false, handle, start)
			handle = []byte("!")
		}
		if err != nil {
			return yamlh.Token{}, err
		}
	}

	if err := s.ensure(1); err != nil {
		return yamlh.Token{}, err
	}
	if !yamlh.Is_blankz(s.rd.Bytes(0, 1), 0) {
		if !(s.flowLevel > 0 && (s.byteAt(0) == ',' || s.byteAt(0) == '[' || s.byteAt(0) == ']' || s.byteAt(0) == '{' || s.byteAt(0) == '}')) {
			return yamlh.Token{}, newScannerError(start, "did not find expected whitespace or line break")
		}
	}
	return yamlh.Token{Kind: yamlh.TAG_TOKEN, Start: start, End: s.rd.Mark(), Value: handle, Suffix: suffix}, nil
}

func (s *Scanner) scanTagHandle(directive bool, start yamlh.Position) ([]byte, error) {
	if err := s.ensure(1); err != nil {
		return nil, err
	}
	if s.byteAt(0) != '!' {
		return nil, newScannerError(start, "did not find expected '!'")
	}
	var value []byte
	value = s.read(value)
	if err := s.ensure(1); err != nil {
		return nil, err
	}
	for yamlh.Is_alpha(s.rd.Bytes(0, 1), 0) {
		value = s.read(value)
		if err := s.ensure(1); err != nil {
			return nil, err
		}
	}
	if s.byteAt(0) == '!' {
		value = s.read(value)
	} else if directive && !(len(value) == 1 && value[0] == '!') {
		return nil, newScannerError(start, "did not find expected '!'")
	}
	return value, nil
}

func (s *Scanner) scanTagURI(directive bool, head []byte, start yamlh.Position) ([]byte, error) {
	var value []byte
	if len(head) > 1 {
		value = append(value, head[1:]...)
	}
	if err := s.ensure(1); err != nil {
		return nil, err
	}
	for yamlh.Is_alpha(s.rd.Bytes(0, 1), 0) || s.byteAt(0) == ';' || s.byteAt(0) == '/' ||
		s.byteAt(0) == '?' || s.byteAt(0) == ':' || s.byteAt(0) == '@' || s.byteAt(0) == '&' ||
		s.byteAt(0) == '=' || s.byteAt(0) == '+' || s.byteAt(0) == '$' || s.byteAt(0) == ',' ||
		s.byteAt(0) == '.' || s.byteAt(0) == '!' || s.byteAt(0) == '~' || s.byteAt(0) == '*' ||
		s.byteAt(0) == '\'' || s.byteAt(0) == '(' || s.byteAt(0) == ')' || s.byteAt(0) == '[' || s.byteAt(0) == ']' ||
		s.byteAt(0) == '%' {
		if s.byteAt(0) == '%' {
			var err error
			value, err = s.scanURIEscapes(directive, start, value)
			if err != nil {
				return nil, err
			}
		} else {
			value = s.read(value)
		}
		if err := s.ensure(1); err != nil {
			return nil, err
		}
	}
	if len(value) == 0 {
		return nil, newScannerError(start, "did not find expected tag URI")
	}
	return value, nil
}

func (s *Scanner) scanURIEscapes(directive bool, start yamlh.Position, value []byte) ([]byte, error) {
	width := 0
	for {
		if err := s.ensure(1); err != nil {
			return nil, err
		}
		if s.byteAt(0) != '%' {
			break
		}
		if err := s.ensure(3); err != nil {
			return nil, err
		}
		if !(yamlh.Is_hex(s.rd.Bytes(1, 2), 0) && yamlh.Is_hex(s.rd.Bytes(2, 3), 0)) {
			return nil, newScannerError(start, "did not find URI escaped octet")
		}
		octet := byte(yamlh.As_hex(s.rd.Bytes(1, 2), 0)<<4 + yamlh.As_hex(s.rd.Bytes(2, 3), 0))
		if width == 0 {
			switch {
			case octet&0x80 == 0x00:
				width = 1
			case octet&0xE0 == 0xC0:
				width = 2
			case octet&0xF0 == 0xE0:
				width = 3
			case octet&0xF8 == 0xF0:
				width = 4
			default:
				return nil, newScannerError(start, "found an incorrect leading UTF-8 octet")
			}
			value = append(value, octet)
		} else {
			if octet&0xC0 != 0x80 {
				return nil, newScannerError(start, "found an incorrect trailing UTF-8 octet")
			}
			value = append(value, octet)
		}
		width--
		s.skip()
		s.skip()
		s.skip()
	}
	if width > 0 {
		return nil, newScannerError(start, "found an incomplete UTF-8 octet sequence")
	}
	return value, nil
}
