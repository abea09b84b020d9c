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

// Package yamlstream is a streaming YAML 1.2 front end: it turns a byte
// Source into a sequence of high-level Events (stream/document boundaries,
// scalars, and balanced sequence/mapping start-end pairs) without building
// a document tree. It does not resolve tags, compose a node graph, or
// re-emit YAML; see internal/scanner and internal/parser for the two
// stages that do the work.
package yamlstream

import (
	"errors"
	"io"

	"github.com/yaml-stream/yamlstream/internal/parser"
	"github.com/yaml-stream/yamlstream/internal/reader"
	"github.com/yaml-stream/yamlstream/internal/scanner"
	"github.com/yaml-stream/yamlstream/internal/yamlh"
)

// SourceStatus reports the outcome of a single Source.ReadInto call.
type SourceStatus = reader.SourceStatus

const (
	StatusOK       = reader.StatusOK
	StatusEOF      = reader.StatusEOF
	StatusNeedMore = reader.StatusNeedMore
)

// Source is the pull contract Stream drives. A Source whose bytes aren't
// all available up front (used together with Flags.Extendable) must report
// StatusNeedMore instead of blocking.
type Source = reader.Source

// ByteSliceSource serves a fixed, already-complete byte slice.
func ByteSliceSource(data []byte) Source { return reader.NewByteSliceSource(data) }

// ReaderSource adapts a blocking io.Reader.
func ReaderSource(r io.Reader) Source { return reader.ReaderSource{R: r} }

// FeedSource is an incrementally-fed Source for use with Flags.Extendable:
// call Feed as bytes arrive and Close once the stream is complete.
type FeedSource = reader.FeedSource

func NewFeedSource() *FeedSource { return reader.NewFeedSource() }

// Flags configure optional Stream behavior.
type Flags struct {
	// Lazy defers storing scalar content into the payload's Value until
	// Event.Scalar() is first called; escape and fold processing still runs
	// during the scan.
	Lazy bool
	// Extendable lets Next return ErrNeedMore instead of a hard error when
	// the Source has no more bytes buffered right now, so Feed can supply
	// more and the caller can retry.
	Extendable bool
	// SmallBufferTest shrinks internal buffers to exercise refill
	// boundaries more often; for tests only.
	SmallBufferTest bool
}

// ErrNeedMore is returned by Next when Flags.Extendable is set and the
// Source has no more bytes buffered right now but hasn't reached EOF.
var ErrNeedMore = reader.ErrNeedMore

// ErrStreamEnd is returned by Next once the stream has been fully consumed.
var ErrStreamEnd = errors.New("yamlstream: stream end")

// Events is an open event stream over a Source.
type Events struct {
	p      *parser.Parser
	feed   *FeedSource
	ended  bool
}

// Stream begins reading events from src. The returned Events is not safe
// for concurrent use: pull one Source at a time, one Event at a time.
func Stream(src Source, flags Flags) *Events {
	sc := scanner.New(src, scanner.Flags{
		Lazy:            flags.Lazy,
		Extendable:      flags.Extendable,
		SmallBufferTest: flags.SmallBufferTest,
	})
	var fs *FeedSource
	if f, ok := src.(*FeedSource); ok {
		fs = f
	}
	return &Events{p: parser.New(sc), feed: fs}
}

// Next returns the next event, ErrStreamEnd once the stream has ended, or
// ErrNeedMore (Extendable only) if more bytes must be Feed'd first.
func (e *Events) Next() (Event, error) {
	if e.ended {
		return Event{}, ErrStreamEnd
	}
	ev, err := e.p.Next()
	if err != nil {
		return Event{}, translateError(err)
	}
	if ev.Kind == yamlh.NO_EVENT {
		e.ended = true
		return Event{}, ErrStreamEnd
	}
	return Event{ev}, nil
}

// Feed appends more bytes to the underlying Source. It only has an effect
// when Stream was called with a *FeedSource (typically via NewFeedSource)
// and Flags.Extendable.
func (e *Events) Feed(p []byte) {
	if e.feed != nil {
		e.feed.Feed(p)
	}
}

// Close marks the underlying FeedSource complete, so a subsequent Next that
// runs out of fed bytes reports ErrStreamEnd-driving StatusEOF rather than
// ErrNeedMore.
func (e *Events) Close() {
	if e.feed != nil {
		e.feed.Close()
	}
}
