package yamlstream

import (
	"github.com/yaml-stream/yamlstream/internal/scanner"
	"github.com/yaml-stream/yamlstream/internal/yamlh"
)

// EventKind enumerates the closed set of events Next can return.
type EventKind = yamlh.EventKind

const (
	StreamStartEvent   = yamlh.STREAM_START_EVENT
	StreamEndEvent     = yamlh.STREAM_END_EVENT
	DocumentStartEvent = yamlh.DOCUMENT_START_EVENT
	DocumentEndEvent   = yamlh.DOCUMENT_END_EVENT
	AliasEvent         = yamlh.ALIAS_EVENT
	ScalarEvent        = yamlh.SCALAR_EVENT
	SequenceStartEvent = yamlh.SEQUENCE_START_EVENT
	SequenceEndEvent   = yamlh.SEQUENCE_END_EVENT
	MappingStartEvent  = yamlh.MAPPING_START_EVENT
	MappingEndEvent    = yamlh.MAPPING_END_EVENT
)

// Position identifies a location in the decoded input stream.
type Position = yamlh.Position

// ScalarStyle distinguishes how a scalar token was written in the source.
type ScalarStyle = yamlh.ScalarStyle

const (
	AnyScalarStyle     = yamlh.ANY_SCALAR_STYLE
	PlainStyle         = yamlh.PLAIN_SCALAR_STYLE
	SingleQuotedStyle  = yamlh.SINGLE_QUOTED_SCALAR_STYLE
	DoubleQuotedStyle  = yamlh.DOUBLE_QUOTED_SCALAR_STYLE
	LiteralStyle       = yamlh.LITERAL_SCALAR_STYLE
	FoldedStyle        = yamlh.FOLDED_SCALAR_STYLE
)

// VersionDirective records a %YAML directive.
type VersionDirective = yamlh.VersionDirective

// TagDirective records a %TAG directive.
type TagDirective = yamlh.TagDirective

// Event is one unit of the parsed stream. Which fields are meaningful
// depends on Kind; see the yamlh.EventKind constants' doc comments.
type Event struct{ yamlh.Event }

// Scalar returns the event's scalar content. It is only meaningful for
// ScalarEvent; other kinds return nil. Escape and fold processing already
// ran during the scan, for Lazy scalars too; for a Lazy scalar the first
// call stores the processed content in the payload's Value.
func (e Event) Scalar() []byte {
	if e.Kind != yamlh.SCALAR_EVENT || e.payload().Scalar == nil {
		return nil
	}
	return materialize(e.payload().Scalar)
}

// Style reports the scalar's written form; zero value for non-scalar events
// or an empty implicit scalar.
func (e Event) Style() ScalarStyle {
	if e.payload().Scalar == nil {
		return yamlh.ANY_SCALAR_STYLE
	}
	return e.payload().Scalar.Style
}

func (e Event) payload() yamlh.Event { return e.Event }

func materialize(p *yamlh.ScalarPayload) []byte { return scanner.Materialize(p) }
