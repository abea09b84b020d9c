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

// Package scanner turns decoded input bytes into a stream of tokens: it
// owns the indentation stack, the simple-key table and the flow-level
// counter, and pushes tokens (including ones spliced in behind already-
// emitted tokens, for implicit mapping keys) onto a token.Queue.
package scanner

import (
	"fmt"

	"github.com/yaml-stream/yamlstream/internal/reader"
	"github.com/yaml-stream/yamlstream/internal/token"
	"github.com/yaml-stream/yamlstream/internal/yamlh"
)

// Flags configure optional scanner behavior.
type Flags struct {
	// Lazy makes scalar tokens carry a deferred payload (Raw) instead of a
	// filled-in Value. Escape and fold processing still runs during the
	// scan; Materialize only stores the processed content into Value.
	Lazy bool
	// Extendable makes Next report ErrNeedMore, after restoring the state
	// the interrupted scan step started from, when the Source has no more
	// bytes yet, so the caller can feed more bytes and retry. Without it, a
	// starved Source is a scan error.
	Extendable bool
	// SmallBufferTest shrinks the reader's raw-buffer capacity so tests can
	// exercise refill/NeedMore boundaries without a deliberately slow Source.
	SmallBufferTest bool
}

const smallRawBufferSize = 8

// Scanner is the token producer described in package doc.
type Scanner struct {
	rd    *reader.Reader
	q     *token.Queue
	flags Flags

	streamStartProduced bool
	streamEndProduced   bool

	flowLevel int

	indent  int
	indents []int

	simpleKeyAllowed bool
	simpleKeys       []yamlh.SimpleKey
	simpleKeysByTok  map[int]int
}

func New(src reader.Source, flags Flags) *Scanner {
	rd := reader.New(src)
	if flags.SmallBufferTest {
		rd = reader.NewSized(src, smallRawBufferSize)
	}
	return &Scanner{
		rd:    rd,
		q:     token.New(),
		flags: flags,
	}
}

// Mark reports the scanner's current position, for error reporting.
func (s *Scanner) Mark() yamlh.Position { return s.rd.Mark() }

type snapshot struct {
	reader reader.Snapshot
	queue  token.Snapshot

	streamStartProduced bool
	streamEndProduced   bool
	flowLevel           int
	indent              int
	indents             []int
	simpleKeyAllowed    bool
	simpleKeys          []yamlh.SimpleKey
	simpleKeysByTok     map[int]int
}

// snapshotState captures everything a scan step can mutate, per the coarse
// snapshot/restart protocol: if the step runs out of input mid-way, Restore
// undoes it completely and the caller retries once more bytes are fed.
func (s *Scanner) snapshotState() snapshot {
	indents := make([]int, len(s.indents))
	copy(indents, s.indents)
	simpleKeys := make([]yamlh.SimpleKey, len(s.simpleKeys))
	copy(simpleKeys, s.simpleKeys)
	byTok := make(map[int]int, len(s.simpleKeysByTok))
	for k, v := range s.simpleKeysByTok {
		byTok[k] = v
	}
	return snapshot{
		reader:              s.rd.Snapshot(),
		queue:               s.q.Mark(),
		streamStartProduced: s.streamStartProduced,
		streamEndProduced:   s.streamEndProduced,
		flowLevel:           s.flowLevel,
		indent:              s.indent,
		indents:             indents,
		simpleKeyAllowed:    s.simpleKeyAllowed,
		simpleKeys:          simpleKeys,
		simpleKeysByTok:     byTok,
	}
}

func (s *Scanner) restoreState(snap snapshot) {
	s.rd.Restore(snap.reader)
	s.q.Restore(snap.queue)
	s.streamStartProduced = snap.streamStartProduced
	s.streamEndProduced = snap.streamEndProduced
	s.flowLevel = snap.flowLevel
	s.indent = snap.indent
	s.indents = snap.indents
	s.simpleKeyAllowed = snap.simpleKeyAllowed
	s.simpleKeys = snap.simpleKeys
	s.simpleKeysByTok = snap.simpleKeysByTok
}

// Next returns the next token, fetching from the Source as needed. It
// returns reader.ErrNeedMore (unwrapped, comparable with errors.Is) when
// Extendable is set and the Source has no more bytes buffered right now.
func (s *Scanner) Next() (yamlh.Token, error) {
	for s.needMoreTokens() {
		if err := s.fetchStep(); err != nil {
			return yamlh.Token{}, err
		}
	}
	tok, _ := s.q.PopFront()
	return tok, nil
}

// needMoreTokens reports whether the front of the queue isn't safe to hand
// out yet: either nothing has been produced, or a still-possible simple key
// refers to exactly the position about to be popped, meaning a later
// character could still retroactively splice a KEY_TOKEN in front of it.
// Stopping as soon as the queue is merely non-empty would let that position
// be consumed before the splice could happen.
func (s *Scanner) needMoreTokens() bool {
	if s.q.Len() == 0 {
		return true
	}
	_, possible := s.simpleKeysByTok[s.popped()]
	return possible
}

// fetchStep runs exactly one unit of scanning work, wrapped in the coarse
// snapshot/restore protocol used under Extendable.
func (s *Scanner) fetchStep() error {
	var snap snapshot
	if s.flags.Extendable {
		snap = s.snapshotState()
	}
	err := s.fetchNextToken()
	if err != nil {
		if err == reader.ErrNeedMore {
			if !s.flags.Extendable {
				return newScannerError(s.rd.Mark(), "source has no more bytes available")
			}
			s.restoreState(snap)
		}
		return err
	}
	return nil
}

func (s *Scanner) pos() int { return s.rd.Pos() }

func (s *Scanner) skip() { s.rd.Skip() }

func (s *Scanner) skipLine() { s.rd.SkipLine() }

func (s *Scanner) read(buf []byte) []byte { return s.rd.Read(buf) }

func (s *Scanner) readLine(buf []byte) []byte { return s.rd.ReadLine(buf) }

func (s *Scanner) byteAt(i int) byte { return s.rd.Byte(i) }

func (s *Scanner) ensure(n int) error { return s.rd.Ensure(n) }

func newScannerError(mark yamlh.Position, problem string) error {
	return &yamlh.ScanError{Mark: mark, Problem: problem}
}

// pushToken appends a token at the back of the queue.
func (s *Scanner) pushToken(tok yamlh.Token) { s.q.Push(tok) }

// insertTokenAt splices a token at logical queue index.
func (s *Scanner) insertTokenAt(i int, tok yamlh.Token) { s.q.InsertAt(i, tok) }

// tokenNumber is the stable "how many tokens have ever been produced"
// counter a SimpleKey is tagged with, so it can be located again even after
// the front of the queue has been dequeued.
func (s *Scanner) tokenNumber() int { return s.q.Pushed() }

func (s *Scanner) popped() int { return s.q.Pushed() - s.q.Len() }

func (s *Scanner) indexOfTokenNumber(n int) int { return n - s.popped() }

func (s *Scanner) fetchNextToken() error {
	if err := s.ensure(1); err != nil {
		return err
	}
	if !s.streamStartProduced {
		s.fetchStreamStart()
		return nil
	}

	if err := s.scanToNextToken(); err != nil {
		return err
	}

	s.unrollIndent(s.rd.Mark().Column)

	if err := s.ensure(4); err != nil {
		return err
	}
	if yamlh.Is_z(s.rd.Bytes(0, 1), 0) {
		return s.fetchStreamEnd()
	}

	mark := s.rd.Mark()
	b0, b1, b2 := s.byteAt(0), s.byteAt(1), s.byteAt(2)

	if mark.Column == 0 && b0 == '%' {
		return s.fetchDirective()
	}
	if mark.Column == 0 && b0 == '-' && b1 == '-' && b2 == '-' && yamlh.Is_blankz(s.rd.Bytes(3, 4), 0) {
		return s.fetchDocumentIndicator(yamlh.DOCUMENT_START_TOKEN)
	}
	if mark.Column == 0 && b0 == '.' && b1 == '.' && b2 == '.' && yamlh.Is_blankz(s.rd.Bytes(3, 4), 0) {
		return s.fetchDocumentIndicator(yamlh.DOCUMENT_END_TOKEN)
	}

	switch {
	case b0 == '[':
		return s.fetchFlowCollectionStart(yamlh.FLOW_SEQUENCE_START_TOKEN)
	case b0 == '{':
		return s.fetchFlowCollectionStart(yamlh.FLOW_MAPPING_START_TOKEN)
	case b0 == ']':
		return s.fetchFlowCollectionEnd(yamlh.FLOW_SEQUENCE_END_TOKEN)
	case b0 == '}':
		return s.fetchFlowCollectionEnd(yamlh.FLOW_MAPPING_END_TOKEN)
	case b0 == ',':
		return s.fetchFlowEntry()
	case b0 == '-' && yamlh.Is_blankz(s.rd.Bytes(1, 2), 0):
		return s.fetchBlockEntry()
	case b0 == '?' && (s.flowLevel > 0 || yamlh.Is_blankz(s.rd.Bytes(1, 2), 0)):
		return s.fetchKey()
	case b0 == ':' && (s.flowLevel > 0 || yamlh.Is_blankz(s.rd.Bytes(1, 2), 0)):
		return s.fetchValue()
	case b0 == '*':
		return s.fetchAnchor(yamlh.ALIAS_TOKEN)
	case b0 == '&':
		return s.fetchAnchor(yamlh.ANCHOR_TOKEN)
	case b0 == '!':
		return s.fetchTag()
	case b0 == '|' && s.flowLevel == 0:
		return s.fetchBlockScalar(true)
	case b0 == '>' && s.flowLevel == 0:
		return s.fetchBlockScalar(false)
	case b0 == '\'':
		return s.fetchFlowScalar(true)
	case b0 == '"':
		return s.fetchFlowScalar(false)
	}

	// A plain scalar may start with any non-blank character except the
	// indicators above, with a few context-dependent exceptions for '-',
	// '?' and ':'.
	if !(yamlh.Is_blankz(s.rd.Bytes(0, 1), 0) || b0 == '-' || b0 == '?' || b0 == ':' ||
		b0 == ',' || b0 == '[' || b0 == ']' || b0 == '{' || b0 == '}' || b0 == '#' ||
		b0 == '&' || b0 == '*' || b0 == '!' || b0 == '|' || b0 == '>' || b0 == '\'' ||
		b0 == '"' || b0 == '%' || b0 == '@' || b0 == '`') ||
		(b0 == '-' && !yamlh.Is_blank(s.rd.Bytes(1, 2), 0)) ||
		(s.flowLevel == 0 && (b0 == '?' || b0 == ':') && !yamlh.Is_blankz(s.rd.Bytes(1, 2), 0)) {
		return s.fetchPlainScalar()
	}

	return newScannerError(mark, "found character that cannot start any token")
}

func (s *Scanner) simpleKeyIsValid(k *yamlh.SimpleKey) (bool, error) {
	if !k.Possible {
		return false, nil
	}
	mark := s.rd.Mark()
	if k.Mark.Line < mark.Line || k.Mark.Index+yamlh.SimpleKeyLookaheadLimit < mark.Index {
		if k.Required {
			return false, newScannerError(k.Mark, "could not find expected ':'")
		}
		k.Possible = false
		return false, nil
	}
	return true, nil
}

func (s *Scanner) saveSimpleKey() error {
	required := s.flowLevel == 0 && s.indent == s.rd.Mark().Column
	if s.simpleKeyAllowed {
		k := yamlh.SimpleKey{
			Possible:   true,
			Required:   required,
			QueueIndex: s.tokenNumber(),
			Mark:       s.rd.Mark(),
		}
		if err := s.removeSimpleKey(); err != nil {
			return err
		}
		s.simpleKeys[len(s.simpleKeys)-1] = k
		s.simpleKeysByTok[k.QueueIndex] = len(s.simpleKeys) - 1
	}
	return nil
}

func (s *Scanner) removeSimpleKey() error {
	i := len(s.simpleKeys) - 1
	if s.simpleKeys[i].Possible {
		if s.simpleKeys[i].Required {
			return newScannerError(s.simpleKeys[i].Mark, "could not find expected ':'")
		}
		s.simpleKeys[i].Possible = false
		delete(s.simpleKeysByTok, s.simpleKeys[i].QueueIndex)
	}
	return nil
}

func (s *Scanner) increaseFlowLevel() error {
	s.simpleKeys = append(s.simpleKeys, yamlh.SimpleKey{QueueIndex: s.tokenNumber(), Mark: s.rd.Mark()})
	s.flowLevel++
	if s.flowLevel > yamlh.MaxFlowLevel {
		return newScannerError(s.simpleKeys[len(s.simpleKeys)-1].Mark, fmt.Sprintf("exceeded max depth of %d", yamlh.MaxFlowLevel))
	}
	return nil
}

func (s *Scanner) decreaseFlowLevel() {
	if s.flowLevel > 0 {
		s.flowLevel--
		last := len(s.simpleKeys) - 1
		// The slot's QueueIndex can equal that of a key saved one level up
		// (the collection's own start token), so only a still-possible key
		// owns its map entry.
		if s.simpleKeys[last].Possible {
			delete(s.simpleKeysByTok, s.simpleKeys[last].QueueIndex)
		}
		s.simpleKeys = s.simpleKeys[:last]
	}
}

// rollIndent pushes a new indentation level and inserts typ at the queue
// position number (or at the back, if number < 0) if column increases the
// current indent. In block context only.
func (s *Scanner) rollIndent(column, number int, typ yamlh.TokenKind, mark yamlh.Position) error {
	if s.flowLevel > 0 {
		return nil
	}
	if s.indent < column {
		s.indents = append(s.indents, s.indent)
		s.indent = column
		if len(s.indents) > yamlh.MaxIndents {
			return newScannerError(s.simpleKeys[len(s.simpleKeys)-1].Mark, fmt.Sprintf("exceeded max depth of %d", yamlh.MaxIndents))
		}
		tok := yamlh.Token{Kind: typ, Start: mark, End: mark}
		if number < 0 {
			s.pushToken(tok)
		} else {
			s.insertTokenAt(s.indexOfTokenNumber(number), tok)
		}
	}
	return nil
}

// unrollIndent emits BLOCK-END tokens until the indent stack's top is <=
// column. In block context only.
func (s *Scanner) unrollIndent(column int) {
	if s.flowLevel > 0 {
		return
	}
	mark := s.rd.Mark()
	for s.indent > column {
		s.pushToken(yamlh.Token{Kind: yamlh.BLOCK_END_TOKEN, Start: mark, End: mark})
		s.indent = s.indents[len(s.indents)-1]
		s.indents = s.indents[:len(s.indents)-1]
	}
}

func (s *Scanner) fetchStreamStart() {
	s.indent = -1
	s.simpleKeys = append(s.simpleKeys, yamlh.SimpleKey{})
	s.simpleKeysByTok = make(map[int]int)
	s.simpleKeyAllowed = true
	s.streamStartProduced = true
	mark := s.rd.Mark()
	s.pushToken(yamlh.Token{Kind: yamlh.STREAM_START_TOKEN, Start: mark, End: mark, Encoding: s.rd.Encoding()})
}

func (s *Scanner) fetchStreamEnd() error {
	mark := s.rd.Mark()
	if mark.Column != 0 {
		mark.Column = 0
		mark.Line++
	}
	s.unrollIndent(-1)
	if err := s.removeSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = false
	s.pushToken(yamlh.Token{Kind: yamlh.STREAM_END_TOKEN, Start: mark, End: mark})
	s.streamEndProduced = true
	return nil
}

func (s *Scanner) fetchDocumentIndicator(kind yamlh.TokenKind) error {
	s.unrollIndent(-1)
	if err := s.removeSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = false
	start := s.rd.Mark()
	s.skip()
	s.skip()
	s.skip()
	s.pushToken(yamlh.Token{Kind: kind, Start: start, End: s.rd.Mark()})
	return nil
}

func (s *Scanner) fetchFlowCollectionStart(kind yamlh.TokenKind) error {
	if err := s.saveSimpleKey(); err != nil {
		return err
	}
	if err := s.increaseFlowLevel(); err != nil {
		return err
	}
	s.simpleKeyAllowed = true
	start := s.rd.Mark()
	s.skip()
	s.pushToken(yamlh.Token{Kind: kind, Start: start, End: s.rd.Mark()})
	return nil
}

func (s *Scanner) fetchFlowCollectionEnd(kind yamlh.TokenKind) error {
	if err := s.removeSimpleKey(); err != nil {
		return err
	}
	s.decreaseFlowLevel()
	s.simpleKeyAllowed = false
	start := s.rd.Mark()
	s.skip()
	s.pushToken(yamlh.Token{Kind: kind, Start: start, End: s.rd.Mark()})
	return nil
}

func (s *Scanner) fetchFlowEntry() error {
	if err := s.removeSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = true
	start := s.rd.Mark()
	s.skip()
	s.pushToken(yamlh.Token{Kind: yamlh.FLOW_ENTRY_TOKEN, Start: start, End: s.rd.Mark()})
	return nil
}

func (s *Scanner) fetchBlockEntry() error {
	if s.flowLevel == 0 {
		if !s.simpleKeyAllowed {
			return newScannerError(s.rd.Mark(), "block sequence entries are not allowed in this context")
		}
		if err := s.rollIndent(s.rd.Mark().Column, -1, yamlh.BLOCK_SEQUENCE_START_TOKEN, s.rd.Mark()); err != nil {
			return err
		}
	}
	if err := s.removeSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = true
	start := s.rd.Mark()
	s.skip()
	s.pushToken(yamlh.Token{Kind: yamlh.BLOCK_ENTRY_TOKEN, Start: start, End: s.rd.Mark()})
	return nil
}

func (s *Scanner) fetchKey() error {
	if s.flowLevel == 0 {
		if !s.simpleKeyAllowed {
			return newScannerError(s.rd.Mark(), "mapping keys are not allowed in this context")
		}
		if err := s.rollIndent(s.rd.Mark().Column, -1, yamlh.BLOCK_MAPPING_START_TOKEN, s.rd.Mark()); err != nil {
			return err
		}
	}
	if err := s.removeSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = s.flowLevel == 0
	start := s.rd.Mark()
	s.skip()
	s.pushToken(yamlh.Token{Kind: yamlh.KEY_TOKEN, Start: start, End: s.rd.Mark()})
	return nil
}

func (s *Scanner) fetchValue() error {
	k := &s.simpleKeys[len(s.simpleKeys)-1]
	valid, err := s.simpleKeyIsValid(k)
	if err != nil {
		return err
	}
	if valid {
		s.insertTokenAt(s.indexOfTokenNumber(k.QueueIndex), yamlh.Token{Kind: yamlh.KEY_TOKEN, Start: k.Mark, End: k.Mark})
		if err := s.rollIndent(k.Mark.Column, k.QueueIndex, yamlh.BLOCK_MAPPING_START_TOKEN, k.Mark); err != nil {
			return err
		}
		k.Possible = false
		delete(s.simpleKeysByTok, k.QueueIndex)
		s.simpleKeyAllowed = false
	} else {
		if s.flowLevel == 0 {
			if !s.simpleKeyAllowed {
				return newScannerError(s.rd.Mark(), "mapping values are not allowed in this context")
			}
			if err := s.rollIndent(s.rd.Mark().Column, -1, yamlh.BLOCK_MAPPING_START_TOKEN, s.rd.Mark()); err != nil {
				return err
			}
		}
		s.simpleKeyAllowed = s.flowLevel == 0
	}
	start := s.rd.Mark()
	s.skip()
	s.pushToken(yamlh.Token{Kind: yamlh.VALUE_TOKEN, Start: start, End: s.rd.Mark()})
	return nil
}

func (s *Scanner) fetchAnchor(kind yamlh.TokenKind) error {
	if err := s.saveSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = false
	tok, err := s.scanAnchor(kind)
	if err != nil {
		return err
	}
	s.pushToken(tok)
	return nil
}

func (s *Scanner) fetchTag() error {
	if err := s.saveSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = false
	tok, err := s.scanTag()
	if err != nil {
		return err
	}
	s.pushToken(tok)
	return nil
}

func (s *Scanner) fetchBlockScalar(literal bool) error {
	if err := s.removeSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = true
	tok, err := s.scanBlockScalar(literal)
	if err != nil {
		return err
	}
	s.pushToken(tok)
	return nil
}

func (s *Scanner) fetchFlowScalar(single bool) error {
	if err := s.saveSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = false
	tok, err := s.scanFlowScalar(single)
	if err != nil {
		return err
	}
	s.pushToken(tok)
	return nil
}

func (s *Scanner) fetchPlainScalar() error {
	if err := s.saveSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = false
	tok, err := s.scanPlainScalar()
	if err != nil {
		return err
	}
	s.pushToken(tok)
	return nil
}

func (s *Scanner) fetchDirective() error {
	s.unrollIndent(-1)
	if err := s.removeSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = false
	tok, err := s.scanDirective()
	if err != nil {
		return err
	}
	s.pushToken(tok)
	return nil
}

// scanToNextToken eats whitespace, comments and line breaks until the
// cursor sits on the first character of the next token.
func (s *Scanner) scanToNextToken() error {
	for {
		if err := s.ensure(1); err != nil {
			return err
		}
		if err := s.ensure(3); err == nil && s.rd.Mark().Column == 0 && yamlh.Is_bom(s.rd.Bytes(0, 3)) {
			s.skip()
		}
		if err := s.ensure(1); err != nil {
			return err
		}
		for s.byteAt(0) == ' ' || ((s.flowLevel > 0 || !s.simpleKeyAllowed) && s.byteAt(0) == '\t') {
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
		if yamlh.Is_break(s.rd.Bytes(0, 3), 0) {
			if err := s.ensure(2); err != nil {
				return err
			}
			s.skipLine()
			if s.flowLevel == 0 {
				s.simpleKeyAllowed = true
			}
		} else {
			break
		}
	}
	return nil
}
