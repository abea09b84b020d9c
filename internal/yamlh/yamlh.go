//
// Copyright (c) 2011-2019 Canonical Ltd
// Copyright (c) 2006-2010 Kirill Simonov
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package yamlh holds the shared low-level vocabulary of the scanner and
// parser: positions, token/event kinds, directives and the character
// classification helpers they're built on.
package yamlh

import "fmt"

const (
	// Input_raw_buffer_size is the size of the raw (pre-decode) read buffer.
	Input_raw_buffer_size = 512

	// Input_buffer_size must be able to hold the decoded form of a full
	// raw buffer (UTF-8 expansion of UTF-16 can be up to 3x).
	Input_buffer_size = Input_raw_buffer_size * 3

	Initial_stack_size = 16
	Initial_queue_size = 16

	// MaxFlowLevel and MaxIndents bound resource usage on adversarial input.
	MaxFlowLevel = 10000
	MaxIndents   = 10000

	// SimpleKeyLookaheadLimit is the one-line/1024-character lookahead bound
	// a potential simple key may span before it's ruled out, per the YAML 1.2
	// "implicit key" production. It is compared against Position.Index,
	// which counts decoded characters, not bytes.
	SimpleKeyLookaheadLimit = 1024
)

// Position identifies a location in the decoded input stream.
type Position struct {
	Index  int
	Line   int
	Column int
}

// Encoding is the detected or requested stream encoding.
type Encoding int

const (
	ANY_ENCODING Encoding = iota
	UTF8_ENCODING
	UTF16LE_ENCODING
	UTF16BE_ENCODING
)

func (e Encoding) String() string {
	switch e {
	case UTF8_ENCODING:
		return "UTF-8"
	case UTF16LE_ENCODING:
		return "UTF-16LE"
	case UTF16BE_ENCODING:
		return "UTF-16BE"
	}
	return "unspecified"
}

// VersionDirective records a %YAML directive.
type VersionDirective struct {
	Major int8
	Minor int8
}

// TagDirective records a %TAG directive, or one of the two implicit ones
// every document starts with.
type TagDirective struct {
	Handle []byte
	Prefix []byte
}

// ScalarStyle distinguishes how a scalar token was written.
type ScalarStyle int8

const (
	ANY_SCALAR_STYLE ScalarStyle = 0

	PLAIN_SCALAR_STYLE ScalarStyle = 1 << iota
	SINGLE_QUOTED_SCALAR_STYLE
	DOUBLE_QUOTED_SCALAR_STYLE
	LITERAL_SCALAR_STYLE
	FOLDED_SCALAR_STYLE
)

func (s ScalarStyle) String() string {
	switch s {
	case PLAIN_SCALAR_STYLE:
		return "plain"
	case SINGLE_QUOTED_SCALAR_STYLE:
		return "single-quoted"
	case DOUBLE_QUOTED_SCALAR_STYLE:
		return "double-quoted"
	case LITERAL_SCALAR_STYLE:
		return "literal"
	case FOLDED_SCALAR_STYLE:
		return "folded"
	}
	return "unspecified"
}

// CollectionStyle distinguishes block from flow for sequences and mappings.
type CollectionStyle int8

const (
	ANY_COLLECTION_STYLE CollectionStyle = iota
	BLOCK_COLLECTION_STYLE
	FLOW_COLLECTION_STYLE
)

// Chomping is the block scalar chomping indicator (spec.md block-scalar rules).
type Chomping int8

const (
	CHOMP_CLIP Chomping = iota // default: single trailing newline kept
	CHOMP_STRIP                // '-': no trailing line break
	CHOMP_KEEP                 // '+': all trailing line breaks kept
)

// TokenKind enumerates the closed set of scanner tokens.
type TokenKind int

const (
	NO_TOKEN TokenKind = iota

	STREAM_START_TOKEN
	STREAM_END_TOKEN

	VERSION_DIRECTIVE_TOKEN
	TAG_DIRECTIVE_TOKEN
	DOCUMENT_START_TOKEN
	DOCUMENT_END_TOKEN

	BLOCK_SEQUENCE_START_TOKEN
	BLOCK_MAPPING_START_TOKEN
	BLOCK_END_TOKEN

	FLOW_SEQUENCE_START_TOKEN
	FLOW_SEQUENCE_END_TOKEN
	FLOW_MAPPING_START_TOKEN
	FLOW_MAPPING_END_TOKEN

	BLOCK_ENTRY_TOKEN
	FLOW_ENTRY_TOKEN
	KEY_TOKEN
	VALUE_TOKEN

	ALIAS_TOKEN
	ANCHOR_TOKEN
	TAG_TOKEN
	SCALAR_TOKEN
)

var tokenKindNames = [...]string{
	NO_TOKEN:                   "NO_TOKEN",
	STREAM_START_TOKEN:         "STREAM_START_TOKEN",
	STREAM_END_TOKEN:           "STREAM_END_TOKEN",
	VERSION_DIRECTIVE_TOKEN:    "VERSION_DIRECTIVE_TOKEN",
	TAG_DIRECTIVE_TOKEN:        "TAG_DIRECTIVE_TOKEN",
	DOCUMENT_START_TOKEN:       "DOCUMENT_START_TOKEN",
	DOCUMENT_END_TOKEN:         "DOCUMENT_END_TOKEN",
	BLOCK_SEQUENCE_START_TOKEN: "BLOCK_SEQUENCE_START_TOKEN",
	BLOCK_MAPPING_START_TOKEN:  "BLOCK_MAPPING_START_TOKEN",
	BLOCK_END_TOKEN:            "BLOCK_END_TOKEN",
	FLOW_SEQUENCE_START_TOKEN:  "FLOW_SEQUENCE_START_TOKEN",
	FLOW_SEQUENCE_END_TOKEN:    "FLOW_SEQUENCE_END_TOKEN",
	FLOW_MAPPING_START_TOKEN:   "FLOW_MAPPING_START_TOKEN",
	FLOW_MAPPING_END_TOKEN:     "FLOW_MAPPING_END_TOKEN",
	BLOCK_ENTRY_TOKEN:          "BLOCK_ENTRY_TOKEN",
	FLOW_ENTRY_TOKEN:           "FLOW_ENTRY_TOKEN",
	KEY_TOKEN:                  "KEY_TOKEN",
	VALUE_TOKEN:                "VALUE_TOKEN",
	ALIAS_TOKEN:                "ALIAS_TOKEN",
	ANCHOR_TOKEN:               "ANCHOR_TOKEN",
	TAG_TOKEN:                  "TAG_TOKEN",
	SCALAR_TOKEN:               "SCALAR_TOKEN",
}

func (k TokenKind) String() string {
	if k < 0 || int(k) >= len(tokenKindNames) || tokenKindNames[k] == "" {
		return fmt.Sprintf("unknown token kind %d", int(k))
	}
	return tokenKindNames[k]
}

// ScalarForm distinguishes an eagerly materialized scalar from one of the
// deferred forms a Lazy scanner produces (spec.md §4.3.5).
type ScalarForm int8

const (
	ScalarEager ScalarForm = iota
	ScalarDeferredFlow
	ScalarDeferredPlain
	ScalarDeferredBlock
)

// ScalarPayload is the token's scalar-specific content. For a deferred form,
// Raw holds the content after escape and fold processing, which already ran
// during the scan, and Materialize (see package scanner) sets Value to it.
type ScalarPayload struct {
	Form  ScalarForm
	Style ScalarStyle

	// Value holds the fully processed content for ScalarEager tokens, and
	// is filled in by Materialize for deferred ones.
	Value []byte

	// Raw holds the already-processed content for deferred tokens.
	Raw []byte

	// Indent records the indentation in effect when a deferred block or
	// plain scalar was scanned; Materialize does not use it.
	Indent int

	// Chomp is the chomping mode for deferred block scalars.
	Chomp Chomping
}

// Token is a single scanner output unit.
type Token struct {
	Kind       TokenKind
	Start, End Position

	Encoding Encoding

	// Value holds the alias/anchor name, or the tag handle/eager scalar
	// bytes, depending on Kind.
	Value []byte

	Suffix []byte // tag suffix, for TAG_TOKEN
	Prefix []byte // tag directive prefix, for TAG_DIRECTIVE_TOKEN

	Scalar *ScalarPayload // non-nil for SCALAR_TOKEN

	Major, Minor int8 // version directive, for VERSION_DIRECTIVE_TOKEN
}

// EventKind enumerates the high-level stream events the parser emits.
type EventKind int8

const (
	NO_EVENT EventKind = iota

	STREAM_START_EVENT
	STREAM_END_EVENT
	DOCUMENT_START_EVENT
	DOCUMENT_END_EVENT
	ALIAS_EVENT
	SCALAR_EVENT
	SEQUENCE_START_EVENT
	SEQUENCE_END_EVENT
	MAPPING_START_EVENT
	MAPPING_END_EVENT
)

var eventKindNames = [...]string{
	NO_EVENT:             "none",
	STREAM_START_EVENT:   "stream start",
	STREAM_END_EVENT:     "stream end",
	DOCUMENT_START_EVENT: "document start",
	DOCUMENT_END_EVENT:   "document end",
	ALIAS_EVENT:          "alias",
	SCALAR_EVENT:         "scalar",
	SEQUENCE_START_EVENT: "sequence start",
	SEQUENCE_END_EVENT:   "sequence end",
	MAPPING_START_EVENT:  "mapping start",
	MAPPING_END_EVENT:    "mapping end",
}

func (e EventKind) String() string {
	if e < 0 || int(e) >= len(eventKindNames) {
		return fmt.Sprintf("unknown event kind %d", int(e))
	}
	return eventKindNames[e]
}

// Event is a single unit of the parser's output stream.
type Event struct {
	Kind       EventKind
	Start, End Position

	Encoding Encoding // STREAM_START_EVENT

	VersionDirective *VersionDirective // DOCUMENT_START_EVENT
	TagDirectives    []TagDirective    // DOCUMENT_START_EVENT

	Anchor []byte // ALIAS_EVENT, SCALAR_EVENT, *_START_EVENT
	Tag    []byte // SCALAR_EVENT, *_START_EVENT

	Scalar *ScalarPayload // SCALAR_EVENT; nil means an empty ("") plain scalar

	Implicit       bool // SCALAR_EVENT (plain), *_START_EVENT, DOCUMENT_*_EVENT
	QuotedImplicit bool // SCALAR_EVENT (quoted but still untagged)
	Flow           bool // *_START_EVENT: flow vs block collection style
}

const (
	NULL_TAG      = "tag:yaml.org,2002:null"
	BOOL_TAG      = "tag:yaml.org,2002:bool"
	STR_TAG       = "tag:yaml.org,2002:str"
	INT_TAG       = "tag:yaml.org,2002:int"
	FLOAT_TAG     = "tag:yaml.org,2002:float"
	TIMESTAMP_TAG = "tag:yaml.org,2002:timestamp"
	BINARY_TAG    = "tag:yaml.org,2002:binary"
	MERGE_TAG     = "tag:yaml.org,2002:merge"

	SEQ_TAG = "tag:yaml.org,2002:seq"
	MAP_TAG = "tag:yaml.org,2002:map"

	DEFAULT_SCALAR_TAG   = STR_TAG
	DEFAULT_SEQUENCE_TAG = SEQ_TAG
	DEFAULT_MAPPING_TAG  = MAP_TAG
)

// ScanError reports a lexical problem found while scanning, at a fixed
// source position.
type ScanError struct {
	Mark    Position
	Problem string
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("yaml: line %d: %s", e.Mark.Line+1, e.Problem)
}

// SimpleKey tracks a potential implicit key at some earlier point in the
// token stream, per spec.md §4.3.6. QueueIndex is the slot the eventual
// KEY_TOKEN must be spliced into if the candidate turns out to be real.
type SimpleKey struct {
	Possible   bool
	Required   bool
	Mark       Position
	QueueIndex int
}
