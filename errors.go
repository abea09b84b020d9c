package yamlstream

import (
	"fmt"

	"github.com/yaml-stream/yamlstream/internal/parser"
	"github.com/yaml-stream/yamlstream/internal/reader"
	"github.com/yaml-stream/yamlstream/internal/yamlh"
)

// ErrorKind classifies an Error by the pipeline stage that raised it.
type ErrorKind int

const (
	UnknownError ErrorKind = iota
	ReadError               // malformed encoding, I/O failure
	ScanError               // lexical problem: bad escape, bad indicator, depth limit
	ParseError              // grammatical problem: unexpected token, undefined tag handle
)

func (k ErrorKind) String() string {
	switch k {
	case ReadError:
		return "read error"
	case ScanError:
		return "scan error"
	case ParseError:
		return "parse error"
	}
	return "unknown error"
}

// Error is the single error type Next ever returns for a malformed stream
// (ErrNeedMore and ErrStreamEnd are returned as distinct sentinels instead).
type Error struct {
	Pos     Position
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("yamlstream: %s at line %d, column %d: %s", e.Kind, e.Pos.Line+1, e.Pos.Column+1, e.Message)
}

func translateError(err error) error {
	if err == nil {
		return nil
	}
	if err == reader.ErrNeedMore {
		return ErrNeedMore
	}
	switch e := err.(type) {
	case *reader.Error:
		return &Error{Kind: ReadError, Message: e.Problem}
	case *yamlh.ScanError:
		return &Error{Pos: e.Mark, Kind: ScanError, Message: e.Problem}
	case *parser.Error:
		return &Error{Pos: e.Pos, Kind: ParseError, Message: e.Problem}
	}
	return &Error{Kind: UnknownError, Message: err.Error()}
}
