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

// Package parser turns the scanner's token stream into the high-level
// event stream a caller actually wants: document boundaries, scalars with
// their resolved tag/anchor, and balanced sequence/mapping start-end pairs.
package parser

import (
	"bytes"
	"fmt"

	"github.com/yaml-stream/yamlstream/internal/scanner"
	"github.com/yaml-stream/yamlstream/internal/yamlh"
)

// State is one node of the parser's explicit state machine.
type State int

const (
	StreamStartState State = iota
	ImplicitDocumentStartState
	DocumentStartState
	DocumentContentState
	DocumentEndState
	BlockNodeState
	BlockNodeOrIndentlessSequenceState
	FlowNodeState
	BlockSequenceFirstEntryState
	BlockSequenceEntryState
	IndentlessSequenceEntryState
	BlockMappingFirstKeyState
	BlockMappingKeyState
	BlockMappingValueState
	FlowSequenceFirstEntryState
	FlowSequenceEntryState
	FlowSequenceEntryMappingKeyState
	FlowSequenceEntryMappingValueState
	FlowSequenceEntryMappingEndState
	FlowMappingFirstKeyState
	FlowMappingKeyState
	FlowMappingValueState
	FlowMappingEmptyValueState
	EndState
)

var defaultTagDirectives = []yamlh.TagDirective{
	{Handle: []byte("!"), Prefix: []byte("!")},
	{Handle: []byte("!!"), Prefix: []byte("tag:yaml.org,2002:")},
}

// Parser drives the scanner and produces one Event per call to Next.
type Parser struct {
	sc *scanner.Scanner

	state  State
	states []State
	marks  []yamlh.Position

	tagDirectives []yamlh.TagDirective

	streamEndProduced bool

	lookahead    yamlh.Token
	haveLookahed bool
}

func New(sc *scanner.Scanner) *Parser {
	return &Parser{sc: sc, state: StreamStartState}
}

// Error reports a grammatical problem found while parsing tokens into
// events, at a fixed source position.
type Error struct {
	Pos     yamlh.Position
	Problem string
}

func (e *Error) Error() string {
	return fmt.Sprintf("yaml: line %d: %s", e.Pos.Line+1, e.Problem)
}

func newParserError(pos yamlh.Position, problem string) error {
	return &Error{Pos: pos, Problem: problem}
}

// Next returns the next event, or (Event{Kind: yamlh.NO_EVENT}, nil) once
// the stream has ended.
func (p *Parser) Next() (yamlh.Event, error) {
	if p.streamEndProduced || p.state == EndState {
		return yamlh.Event{}, nil
	}
	return p.stateMachine()
}

func (p *Parser) peek() (yamlh.Token, error) {
	if !p.haveLookahed {
		tok, err := p.sc.Next()
		if err != nil {
			return yamlh.Token{}, err
		}
		p.lookahead = tok
		p.haveLookahed = true
	}
	return p.lookahead, nil
}

func (p *Parser) skip() {
	p.streamEndProduced = p.lookahead.Kind == yamlh.STREAM_END_TOKEN
	p.haveLookahed = false
}

func (p *Parser) pushState(s State) { p.states = append(p.states, s) }

func (p *Parser) popState() State {
	s := p.states[len(p.states)-1]
	p.states = p.states[:len(p.states)-1]
	return s
}

func (p *Parser) pushMark(m yamlh.Position) { p.marks = append(p.marks, m) }

func (p *Parser) popMark() yamlh.Position {
	m := p.marks[len(p.marks)-1]
	p.marks = p.marks[:len(p.marks)-1]
	return m
}

func (p *Parser) stateMachine() (yamlh.Event, error) {
	switch p.state {
	case StreamStartState:
		return p.parseStreamStart()
	case ImplicitDocumentStartState:
		return p.parseDocumentStart(true)
	case DocumentStartState:
		return p.parseDocumentStart(false)
	case DocumentContentState:
		return p.parseDocumentContent()
	case DocumentEndState:
		return p.parseDocumentEnd()
	case BlockNodeState:
		return p.parseNode(true, false)
	case BlockNodeOrIndentlessSequenceState:
		return p.parseNode(true, true)
	case FlowNodeState:
		return p.parseNode(false, false)
	case BlockSequenceFirstEntryState:
		return p.parseBlockSequenceEntry(true)
	case BlockSequenceEntryState:
		return p.parseBlockSequenceEntry(false)
	case IndentlessSequenceEntryState:
		return p.parseIndentlessSequenceEntry()
	case BlockMappingFirstKeyState:
		return p.parseBlockMappingKey(true)
	case BlockMappingKeyState:
		return p.parseBlockMappingKey(false)
	case BlockMappingValueState:
		return p.parseBlockMappingValue()
	case FlowSequenceFirstEntryState:
		return p.parseFlowSequenceEntry(true)
	case FlowSequenceEntryState:
		return p.parseFlowSequenceEntry(false)
	case FlowSequenceEntryMappingKeyState:
		return p.parseFlowSequenceEntryMappingKey()
	case FlowSequenceEntryMappingValueState:
		return p.parseFlowSequenceEntryMappingValue()
	case FlowSequenceEntryMappingEndState:
		return p.parseFlowSequenceEntryMappingEnd()
	case FlowMappingFirstKeyState:
		return p.parseFlowMappingKey(true)
	case FlowMappingKeyState:
		return p.parseFlowMappingKey(false)
	case FlowMappingValueState:
		return p.parseFlowMappingValue(false)
	case FlowMappingEmptyValueState:
		return p.parseFlowMappingValue(true)
	}
	panic("parser: invalid state")
}

func (p *Parser) parseStreamStart() (yamlh.Event, error) {
	tok, err := p.peek()
	if err != nil {
		return yamlh.Event{}, err
	}
	if tok.Kind != yamlh.STREAM_START_TOKEN {
		return yamlh.Event{}, newParserError(tok.Start, "did not find expected <stream-start>")
	}
	p.state = ImplicitDocumentStartState
	ev := yamlh.Event{Kind: yamlh.STREAM_START_EVENT, Start: tok.Start, End: tok.End, Encoding: tok.Encoding}
	p.skip()
	return ev, nil
}

func (p *Parser) parseDocumentStart(implicit bool) (yamlh.Event, error) {
	tok, err := p.peek()
	if err != nil {
		return yamlh.Event{}, err
	}
	if !implicit {
		for tok.Kind == yamlh.DOCUMENT_END_TOKEN {
			p.skip()
			tok, err = p.peek()
			if err != nil {
				return yamlh.Event{}, err
			}
		}
	}

	if implicit && tok.Kind != yamlh.VERSION_DIRECTIVE_TOKEN &&
		tok.Kind != yamlh.TAG_DIRECTIVE_TOKEN &&
		tok.Kind != yamlh.DOCUMENT_START_TOKEN &&
		tok.Kind != yamlh.STREAM_END_TOKEN {
		if err := p.processDirectives(nil, nil); err != nil {
			return yamlh.Event{}, err
		}
		p.pushState(DocumentEndState)
		p.state = BlockNodeState
		return yamlh.Event{Kind: yamlh.DOCUMENT_START_EVENT, Start: tok.Start, End: tok.End, Implicit: true}, nil
	}

	if tok.Kind != yamlh.STREAM_END_TOKEN {
		var version *yamlh.VersionDirective
		var tags []yamlh.TagDirective
		start := tok.Start
		if err := p.processDirectives(&version, &tags); err != nil {
			return yamlh.Event{}, err
		}
		tok, err = p.peek()
		if err != nil {
			return yamlh.Event{}, err
		}
		if tok.Kind != yamlh.DOCUMENT_START_TOKEN {
			return yamlh.Event{}, newParserError(tok.Start, "did not find expected <document start>")
		}
		p.pushState(DocumentEndState)
		p.state = DocumentContentState
		end := tok.End
		ev := yamlh.Event{
			Kind: yamlh.DOCUMENT_START_EVENT, Start: start, End: end,
			VersionDirective: version, TagDirectives: tags, Implicit: false,
		}
		p.skip()
		return ev, nil
	}

	p.state = EndState
	ev := yamlh.Event{Kind: yamlh.STREAM_END_EVENT, Start: tok.Start, End: tok.End}
	p.skip()
	return ev, nil
}

func (p *Parser) parseDocumentContent() (yamlh.Event, error) {
	tok, err := p.peek()
	if err != nil {
		return yamlh.Event{}, err
	}
	if tok.Kind == yamlh.VERSION_DIRECTIVE_TOKEN || tok.Kind == yamlh.TAG_DIRECTIVE_TOKEN ||
		tok.Kind == yamlh.DOCUMENT_START_TOKEN || tok.Kind == yamlh.DOCUMENT_END_TOKEN ||
		tok.Kind == yamlh.STREAM_END_TOKEN {
		p.state = p.popState()
		return emptyScalar(tok.Start), nil
	}
	return p.parseNode(true, false)
}

func (p *Parser) parseDocumentEnd() (yamlh.Event, error) {
	tok, err := p.peek()
	if err != nil {
		return yamlh.Event{}, err
	}
	start := tok.Start
	end := tok.Start
	implicit := true
	if tok.Kind == yamlh.DOCUMENT_END_TOKEN {
		end = tok.End
		p.skip()
		implicit = false
	}
	p.tagDirectives = p.tagDirectives[:0]
	p.state = DocumentStartState
	return yamlh.Event{Kind: yamlh.DOCUMENT_END_EVENT, Start: start, End: end, Implicit: implicit}, nil
}

func (p *Parser) parseNode(block, indentlessSequence bool) (yamlh.Event, error) {
	tok, err := p.peek()
	if err != nil {
		return yamlh.Event{}, err
	}

	if tok.Kind == yamlh.ALIAS_TOKEN {
		p.state = p.popState()
		ev := yamlh.Event{Kind: yamlh.ALIAS_EVENT, Start: tok.Start, End: tok.End, Anchor: tok.Value}
		p.skip()
		return ev, nil
	}

	start := tok.Start
	end := tok.Start

	var haveTag bool
	var tagHandle, tagSuffix, anchor []byte
	var tagMark yamlh.Position

	if tok.Kind == yamlh.ANCHOR_TOKEN {
		anchor = tok.Value
		start, end = tok.Start, tok.End
		p.skip()
		tok, err = p.peek()
		if err != nil {
			return yamlh.Event{}, err
		}
		if tok.Kind == yamlh.TAG_TOKEN {
			haveTag = true
			tagHandle, tagSuffix, tagMark, end = tok.Value, tok.Suffix, tok.Start, tok.End
			p.skip()
			tok, err = p.peek()
			if err != nil {
				return yamlh.Event{}, err
			}
		}
	} else if tok.Kind == yamlh.TAG_TOKEN {
		haveTag = true
		tagHandle, tagSuffix = tok.Value, tok.Suffix
		start, tagMark, end = tok.Start, tok.Start, tok.End
		p.skip()
		tok, err = p.peek()
		if err != nil {
			return yamlh.Event{}, err
		}
		if tok.Kind == yamlh.ANCHOR_TOKEN {
			anchor = tok.Value
			end = tok.End
			p.skip()
			tok, err = p.peek()
			if err != nil {
				return yamlh.Event{}, err
			}
		}
	}

	var tag []byte
	if haveTag {
		if len(tagHandle) == 0 {
			tag = tagSuffix
		} else {
			for i := range p.tagDirectives {
				if bytes.Equal(p.tagDirectives[i].Handle, tagHandle) {
					tag = append([]byte(nil), p.tagDirectives[i].Prefix...)
					tag = append(tag, tagSuffix...)
					break
				}
			}
			if len(tag) == 0 {
				return yamlh.Event{}, newParserError(tagMark, "found undefined tag handle")
			}
		}
	}

	implicit := len(tag) == 0

	if indentlessSequence && tok.Kind == yamlh.BLOCK_ENTRY_TOKEN {
		end = tok.End
		p.state = IndentlessSequenceEntryState
		return yamlh.Event{
			Kind: yamlh.SEQUENCE_START_EVENT, Start: start, End: end,
			Anchor: anchor, Tag: tag, Implicit: implicit, Flow: false,
		}, nil
	}

	if tok.Kind == yamlh.SCALAR_TOKEN {
		end = tok.End
		plainImplicit := false
		quotedImplicit := false
		if (len(tag) == 0 && tok.Scalar.Style == yamlh.PLAIN_SCALAR_STYLE) || (len(tag) == 1 && tag[0] == '!') {
			plainImplicit = true
		} else if len(tag) == 0 {
			quotedImplicit = true
		}
		p.state = p.popState()
		ev := yamlh.Event{
			Kind: yamlh.SCALAR_EVENT, Start: start, End: end,
			Anchor: anchor, Tag: tag, Scalar: tok.Scalar,
			Implicit: plainImplicit, QuotedImplicit: quotedImplicit,
		}
		p.skip()
		return ev, nil
	}

	if tok.Kind == yamlh.FLOW_SEQUENCE_START_TOKEN {
		end = tok.End
		p.state = FlowSequenceFirstEntryState
		return yamlh.Event{Kind: yamlh.SEQUENCE_START_EVENT, Start: start, End: end, Anchor: anchor, Tag: tag, Implicit: implicit, Flow: true}, nil
	}
	if tok.Kind == yamlh.FLOW_MAPPING_START_TOKEN {
		end = tok.End
		p.state = FlowMappingFirstKeyState
		return yamlh.Event{Kind: yamlh.MAPPING_START_EVENT, Start: start, End: end, Anchor: anchor, Tag: tag, Implicit: implicit, Flow: true}, nil
	}
	if block && tok.Kind == yamlh.BLOCK_SEQUENCE_START_TOKEN {
		end = tok.End
		p.state = BlockSequenceFirstEntryState
		return yamlh.Event{Kind: yamlh.SEQUENCE_START_EVENT, Start: start, End: end, Anchor: anchor, Tag: tag, Implicit: implicit, Flow: false}, nil
	}
	if block && tok.Kind == yamlh.BLOCK_MAPPING_START_TOKEN {
		end = tok.End
		p.state = BlockMappingFirstKeyState
		return yamlh.Event{Kind: yamlh.MAPPING_START_EVENT, Start: start, End: end, Anchor: anchor, Tag: tag, Implicit: implicit, Flow: false}, nil
	}
	if len(anchor) > 0 || len(tag) > 0 {
		p.state = p.popState()
		return yamlh.Event{Kind: yamlh.SCALAR_EVENT, Start: start, End: end, Anchor: anchor, Tag: tag, Implicit: implicit}, nil
	}

	return yamlh.Event{}, newParserError(tok.Start, "did not find expected node content")
}

func (p *Parser) parseBlockSequenceEntry(first bool) (yamlh.Event, error) {
	if first {
		tok, err := p.peek()
		if err != nil {
			return yamlh.Event{}, err
		}
		p.pushMark(tok.Start)
		p.skip()
	}
	tok, err := p.peek()
	if err != nil {
		return yamlh.Event{}, err
	}
	if tok.Kind == yamlh.BLOCK_ENTRY_TOKEN {
		mark := tok.End
		p.skip()
		tok, err = p.peek()
		if err != nil {
			return yamlh.Event{}, err
		}
		if tok.Kind != yamlh.BLOCK_ENTRY_TOKEN && tok.Kind != yamlh.BLOCK_END_TOKEN {
			p.pushState(BlockSequenceEntryState)
			return p.parseNode(true, false)
		}
		p.state = BlockSequenceEntryState
		return emptyScalar(mark), nil
	}
	if tok.Kind == yamlh.BLOCK_END_TOKEN {
		p.state = p.popState()
		p.popMark()
		ev := yamlh.Event{Kind: yamlh.SEQUENCE_END_EVENT, Start: tok.Start, End: tok.End}
		p.skip()
		return ev, nil
	}
	context := p.popMark()
	return yamlh.Event{}, newParserError(context, "did not find expected '-' indicator")
}

func (p *Parser) parseIndentlessSequenceEntry() (yamlh.Event, error) {
	tok, err := p.peek()
	if err != nil {
		return yamlh.Event{}, err
	}
	if tok.Kind == yamlh.BLOCK_ENTRY_TOKEN {
		mark := tok.End
		p.skip()
		tok, err = p.peek()
		if err != nil {
			return yamlh.Event{}, err
		}
		if tok.Kind != yamlh.BLOCK_ENTRY_TOKEN && tok.Kind != yamlh.KEY_TOKEN &&
			tok.Kind != yamlh.VALUE_TOKEN && tok.Kind != yamlh.BLOCK_END_TOKEN {
			p.pushState(IndentlessSequenceEntryState)
			return p.parseNode(true, false)
		}
		p.state = IndentlessSequenceEntryState
		return emptyScalar(mark), nil
	}
	p.state = p.popState()
	return yamlh.Event{Kind: yamlh.SEQUENCE_END_EVENT, Start: tok.Start, End: tok.Start}, nil
}

func (p *Parser) parseBlockMappingKey(first bool) (yamlh.Event, error) {
	if first {
		tok, err := p.peek()
		if err != nil {
			return yamlh.Event{}, err
		}
		p.pushMark(tok.Start)
		p.skip()
	}
	tok, err := p.peek()
	if err != nil {
		return yamlh.Event{}, err
	}
	if tok.Kind == yamlh.KEY_TOKEN {
		mark := tok.End
		p.skip()
		tok, err = p.peek()
		if err != nil {
			return yamlh.Event{}, err
		}
		if tok.Kind != yamlh.KEY_TOKEN && tok.Kind != yamlh.VALUE_TOKEN && tok.Kind != yamlh.BLOCK_END_TOKEN {
			p.pushState(BlockMappingValueState)
			return p.parseNode(true, true)
		}
		p.state = BlockMappingValueState
		return emptyScalar(mark), nil
	}
	if tok.Kind == yamlh.BLOCK_END_TOKEN {
		p.state = p.popState()
		p.popMark()
		ev := yamlh.Event{Kind: yamlh.MAPPING_END_EVENT, Start: tok.Start, End: tok.End}
		p.skip()
		return ev, nil
	}
	context := p.popMark()
	return yamlh.Event{}, newParserError(context, "did not find expected key")
}

func (p *Parser) parseBlockMappingValue() (yamlh.Event, error) {
	tok, err := p.peek()
	if err != nil {
		return yamlh.Event{}, err
	}
	if tok.Kind == yamlh.VALUE_TOKEN {
		mark := tok.End
		p.skip()
		tok, err = p.peek()
		if err != nil {
			return yamlh.Event{}, err
		}
		if tok.Kind != yamlh.KEY_TOKEN && tok.Kind != yamlh.VALUE_TOKEN && tok.Kind != yamlh.BLOCK_END_TOKEN {
			p.pushState(BlockMappingKeyState)
			return p.parseNode(true, true)
		}
		p.state = BlockMappingKeyState
		return emptyScalar(mark), nil
	}
	p.state = BlockMappingKeyState
	return emptyScalar(tok.Start), nil
}

func (p *Parser) parseFlowSequenceEntry(first bool) (yamlh.Event, error) {
	if first {
		tok, err := p.peek()
		if err != nil {
			return yamlh.Event{}, err
		}
		p.pushMark(tok.Start)
		p.skip()
	}
	tok, err := p.peek()
	if err != nil {
		return yamlh.Event{}, err
	}
	if tok.Kind != yamlh.FLOW_SEQUENCE_END_TOKEN {
		if !first {
			if tok.Kind == yamlh.FLOW_ENTRY_TOKEN {
				p.skip()
				tok, err = p.peek()
				if err != nil {
					return yamlh.Event{}, err
				}
			} else {
				context := p.popMark()
				return yamlh.Event{}, newParserError(context, "did not find expected ',' or ']'")
			}
		}
		if tok.Kind == yamlh.KEY_TOKEN {
			p.state = FlowSequenceEntryMappingKeyState
			ev := yamlh.Event{Kind: yamlh.MAPPING_START_EVENT, Start: tok.Start, End: tok.End, Implicit: true, Flow: true}
			p.skip()
			return ev, nil
		}
		if tok.Kind != yamlh.FLOW_SEQUENCE_END_TOKEN {
			p.pushState(FlowSequenceEntryState)
			return p.parseNode(false, false)
		}
	}
	p.state = p.popState()
	p.popMark()
	ev := yamlh.Event{Kind: yamlh.SEQUENCE_END_EVENT, Start: tok.Start, End: tok.End}
	p.skip()
	return ev, nil
}

func (p *Parser) parseFlowSequenceEntryMappingKey() (yamlh.Event, error) {
	tok, err := p.peek()
	if err != nil {
		return yamlh.Event{}, err
	}
	if tok.Kind != yamlh.VALUE_TOKEN && tok.Kind != yamlh.FLOW_ENTRY_TOKEN && tok.Kind != yamlh.FLOW_SEQUENCE_END_TOKEN {
		p.pushState(FlowSequenceEntryMappingValueState)
		return p.parseNode(false, false)
	}
	mark := tok.End
	p.skip()
	p.state = FlowSequenceEntryMappingValueState
	return emptyScalar(mark), nil
}

func (p *Parser) parseFlowSequenceEntryMappingValue() (yamlh.Event, error) {
	tok, err := p.peek()
	if err != nil {
		return yamlh.Event{}, err
	}
	if tok.Kind == yamlh.VALUE_TOKEN {
		p.skip()
		tok, err = p.peek()
		if err != nil {
			return yamlh.Event{}, err
		}
		if tok.Kind != yamlh.FLOW_ENTRY_TOKEN && tok.Kind != yamlh.FLOW_SEQUENCE_END_TOKEN {
			p.pushState(FlowSequenceEntryMappingEndState)
			return p.parseNode(false, false)
		}
	}
	p.state = FlowSequenceEntryMappingEndState
	return emptyScalar(tok.Start), nil
}

func (p *Parser) parseFlowSequenceEntryMappingEnd() (yamlh.Event, error) {
	tok, err := p.peek()
	if err != nil {
		return yamlh.Event{}, err
	}
	p.state = FlowSequenceEntryState
	return yamlh.Event{Kind: yamlh.MAPPING_END_EVENT, Start: tok.Start, End: tok.Start}, nil
}

func (p *Parser) parseFlowMappingKey(first bool) (yamlh.Event, error) {
	if first {
		tok, err := p.peek()
		if err != nil {
			return yamlh.Event{}, err
		}
		p.pushMark(tok.Start)
		p.skip()
	}
	tok, err := p.peek()
	if err != nil {
		return yamlh.Event{}, err
	}
	if tok.Kind != yamlh.FLOW_MAPPING_END_TOKEN {
		if !first {
			if tok.Kind == yamlh.FLOW_ENTRY_TOKEN {
				p.skip()
				tok, err = p.peek()
				if err != nil {
					return yamlh.Event{}, err
				}
			} else {
				context := p.popMark()
				return yamlh.Event{}, newParserError(context, "did not find expected ',' or '}'")
			}
		}
		if tok.Kind == yamlh.KEY_TOKEN {
			p.skip()
			tok, err = p.peek()
			if err != nil {
				return yamlh.Event{}, err
			}
			if tok.Kind != yamlh.VALUE_TOKEN && tok.Kind != yamlh.FLOW_ENTRY_TOKEN && tok.Kind != yamlh.FLOW_MAPPING_END_TOKEN {
				p.pushState(FlowMappingValueState)
				return p.parseNode(false, false)
			}
			p.state = FlowMappingValueState
			return emptyScalar(tok.Start), nil
		}
		if tok.Kind != yamlh.FLOW_MAPPING_END_TOKEN {
			p.pushState(FlowMappingEmptyValueState)
			return p.parseNode(false, false)
		}
	}
	p.state = p.popState()
	p.popMark()
	ev := yamlh.Event{Kind: yamlh.MAPPING_END_EVENT, Start: tok.Start, End: tok.End}
	p.skip()
	return ev, nil
}

func (p *Parser) parseFlowMappingValue(empty bool) (yamlh.Event, error) {
	tok, err := p.peek()
	if err != nil {
		return yamlh.Event{}, err
	}
	if empty {
		p.state = FlowMappingKeyState
		return emptyScalar(tok.Start), nil
	}
	if tok.Kind == yamlh.VALUE_TOKEN {
		p.skip()
		tok, err = p.peek()
		if err != nil {
			return yamlh.Event{}, err
		}
		if tok.Kind != yamlh.FLOW_ENTRY_TOKEN && tok.Kind != yamlh.FLOW_MAPPING_END_TOKEN {
			p.pushState(FlowMappingKeyState)
			return p.parseNode(false, false)
		}
	}
	p.state = FlowMappingKeyState
	return emptyScalar(tok.Start), nil
}

func emptyScalar(mark yamlh.Position) yamlh.Event {
	return yamlh.Event{Kind: yamlh.SCALAR_EVENT, Start: mark, End: mark, Implicit: true}
}

func (p *Parser) processDirectives(versionRef **yamlh.VersionDirective, tagsRef *[]yamlh.TagDirective) error {
	var version *yamlh.VersionDirective
	var tags []yamlh.TagDirective

	tok, err := p.peek()
	if err != nil {
		return err
	}
	for tok.Kind == yamlh.VERSION_DIRECTIVE_TOKEN || tok.Kind == yamlh.TAG_DIRECTIVE_TOKEN {
		if tok.Kind == yamlh.VERSION_DIRECTIVE_TOKEN {
			if version != nil {
				return newParserError(tok.Start, "found duplicate %YAML directive")
			}
			if tok.Major > 1 {
				return newParserError(tok.Start, "found incompatible YAML document")
			}
			version = &yamlh.VersionDirective{Major: tok.Major, Minor: tok.Minor}
		} else {
			value := yamlh.TagDirective{Handle: tok.Value, Prefix: tok.Prefix}
			if err := p.appendTagDirective(value, false, tok.Start); err != nil {
				return err
			}
			tags = append(tags, value)
		}
		p.skip()
		tok, err = p.peek()
		if err != nil {
			return err
		}
	}
	for i := range defaultTagDirectives {
		if err := p.appendTagDirective(defaultTagDirectives[i], true, tok.Start); err != nil {
			return err
		}
	}
	if versionRef != nil {
		*versionRef = version
	}
	if tagsRef != nil {
		*tagsRef = tags
	}
	return nil
}

func (p *Parser) appendTagDirective(value yamlh.TagDirective, allowDuplicates bool, mark yamlh.Position) error {
	for i := range p.tagDirectives {
		if bytes.Equal(value.Handle, p.tagDirectives[i].Handle) {
			if allowDuplicates {
				return nil
			}
			return newParserError(mark, "found duplicate %TAG directive")
		}
	}
	cp := yamlh.TagDirective{Handle: append([]byte(nil), value.Handle...), Prefix: append([]byte(nil), value.Prefix...)}
	p.tagDirectives = append(p.tagDirectives, cp)
	return nil
}
