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

// Package reader is the byte-cursor layer: it pulls raw bytes from a Source,
// detects and decodes the stream encoding (UTF-8, UTF-16LE/BE with BOM), and
// hands the scanner a decoded buffer addressed by rune-aware Skip/Read
// operations. It never blocks on the caller's behalf: a Source that has no
// bytes ready yet reports StatusNeedMore and Ensure surfaces ErrNeedMore so
// the scanner can suspend and retry once more input has been fed.
package reader

import (
	"errors"
	"io"

	"github.com/yaml-stream/yamlstream/internal/yamlh"
)

// SourceStatus reports the outcome of a single Source.ReadInto call.
type SourceStatus int

const (
	StatusOK SourceStatus = iota
	StatusEOF
	StatusNeedMore
)

// Source is the pull contract a Reader drives. Implementations must not
// block when they have no data currently available: report StatusNeedMore
// instead, so incremental callers can feed more bytes and retry.
type Source interface {
	ReadInto(buf []byte) (n int, status SourceStatus, err error)
}

// ErrNeedMore is returned by Ensure when the Source has no more bytes right
// now but hasn't reached EOF either.
var ErrNeedMore = errors.New("reader: need more input")

// ReaderSource adapts a blocking io.Reader: it always blocks until data or
// EOF, so it never reports StatusNeedMore.
type ReaderSource struct {
	R io.Reader
}

func (s ReaderSource) ReadInto(buf []byte) (int, SourceStatus, error) {
	n, err := s.R.Read(buf)
	switch err {
	case nil:
		return n, StatusOK, nil
	case io.EOF:
		return n, StatusEOF, nil
	default:
		return n, StatusOK, err
	}
}

// ByteSliceSource serves a fixed, already-complete byte slice.
type ByteSliceSource struct {
	data []byte
	pos  int
}

func NewByteSliceSource(data []byte) *ByteSliceSource {
	return &ByteSliceSource{data: data}
}

func (s *ByteSliceSource) ReadInto(buf []byte) (int, SourceStatus, error) {
	if s.pos >= len(s.data) {
		return 0, StatusEOF, nil
	}
	n := copy(buf, s.data[s.pos:])
	s.pos += n
	return n, StatusOK, nil
}

// FeedSource is an incrementally-fed Source for the Extendable protocol: the
// caller calls Feed as new bytes arrive and Close once the stream is
// complete. Before Close, running out of buffered bytes reports
// StatusNeedMore rather than StatusEOF.
type FeedSource struct {
	buf    []byte
	pos    int
	closed bool
}

func NewFeedSource() *FeedSource { return &FeedSource{} }

func (s *FeedSource) Feed(p []byte) {
	s.buf = append(s.buf, p...)
}

func (s *FeedSource) Close() { s.closed = true }

func (s *FeedSource) ReadInto(buf []byte) (int, SourceStatus, error) {
	if s.pos >= len(s.buf) {
		if s.closed {
			return 0, StatusEOF, nil
		}
		return 0, StatusNeedMore, nil
	}
	n := copy(buf, s.buf[s.pos:])
	s.pos += n
	return n, StatusOK, nil
}

// byte order marks.
const (
	bomUTF8    = "\xef\xbb\xbf"
	bomUTF16LE = "\xff\xfe"
	bomUTF16BE = "\xfe\xff"
)

// Reader is the decoded-byte cursor the scanner operates on.
//
// Unlike the teacher's circular Buffer, this one never slides consumed
// bytes out from under itself: Buffer only grows. That costs memory on very
// long single-line documents, but it means a Snapshot captured before a
// scan step is always valid to Restore afterwards, which the incremental
// (Extendable) feeding protocol depends on (see package scanner).
type Reader struct {
	src Source

	rawBuffer []byte
	rawPos    int
	srcEOF    bool

	buffer []byte
	bufPos int
	unread int

	encoding yamlh.Encoding
	offset   int
	mark     yamlh.Position
	newlines int
}

func New(src Source) *Reader {
	return NewSized(src, yamlh.Input_raw_buffer_size)
}

// NewSized is New with an explicit raw-buffer capacity, letting tests force
// frequent short reads (and thus frequent StatusNeedMore/refill boundaries)
// without needing a deliberately slow Source.
func NewSized(src Source, rawBufferSize int) *Reader {
	return &Reader{
		src:       src,
		rawBuffer: make([]byte, 0, rawBufferSize),
		buffer:    make([]byte, 0, rawBufferSize*3),
	}
}

func (r *Reader) Mark() yamlh.Position { return r.mark }
func (r *Reader) Offset() int          { return r.offset }
func (r *Reader) Unread() int          { return r.unread }
func (r *Reader) Encoding() yamlh.Encoding {
	return r.encoding
}

// Byte returns the decoded byte at offset i from the cursor. The caller
// must have Ensure'd at least i+1 bytes first.
func (r *Reader) Byte(i int) byte { return r.buffer[r.bufPos+i] }

// Bytes returns the decoded range [i, j) relative to the cursor, as a
// sub-slice of the reader's own buffer. Callers that need to retain the
// bytes beyond the next mutation must copy them.
func (r *Reader) Bytes(i, j int) []byte { return r.buffer[r.bufPos+i : r.bufPos+j] }

// Pos returns the cursor's absolute offset into the reader's decoded
// buffer. Paired with Slice, this lets a deferred scalar remember a byte
// range to reprocess later without copying it up front: since Buffer only
// grows (see the type comment), the slice stays valid for the life of the
// Reader.
func (r *Reader) Pos() int { return r.bufPos }

// Slice returns the decoded bytes in the absolute range [a, b), as
// previously captured via Pos.
func (r *Reader) Slice(a, b int) []byte { return r.buffer[a:b] }

// Snapshot is the coarse restart point for the Extendable protocol.
type Snapshot struct {
	bufPos, unread, offset, newlines int
	mark                             yamlh.Position
}

func (r *Reader) Snapshot() Snapshot {
	return Snapshot{bufPos: r.bufPos, unread: r.unread, offset: r.offset, newlines: r.newlines, mark: r.mark}
}

func (r *Reader) Restore(s Snapshot) {
	r.bufPos, r.unread, r.offset, r.newlines, r.mark = s.bufPos, s.unread, s.offset, s.newlines, s.mark
}

// fillRawBuffer pulls one round of bytes from the Source.
func (r *Reader) fillRawBuffer() error {
	if r.srcEOF {
		return nil
	}
	if r.rawPos > 0 {
		copy(r.rawBuffer, r.rawBuffer[r.rawPos:])
		r.rawBuffer = r.rawBuffer[:len(r.rawBuffer)-r.rawPos]
		r.rawPos = 0
	}
	if len(r.rawBuffer) == cap(r.rawBuffer) {
		grown := make([]byte, len(r.rawBuffer), cap(r.rawBuffer)*2)
		copy(grown, r.rawBuffer)
		r.rawBuffer = grown
	}
	n, status, err := r.src.ReadInto(r.rawBuffer[len(r.rawBuffer):cap(r.rawBuffer)])
	if err != nil {
		return newReaderError("input error: " + err.Error())
	}
	r.rawBuffer = r.rawBuffer[:len(r.rawBuffer)+n]
	switch status {
	case StatusEOF:
		r.srcEOF = true
	case StatusNeedMore:
		if n == 0 {
			return ErrNeedMore
		}
	}
	return nil
}

func (r *Reader) determineEncoding() error {
	for !r.srcEOF && len(r.rawBuffer)-r.rawPos < 3 {
		if err := r.fillRawBuffer(); err != nil {
			if len(r.rawBuffer)-r.rawPos >= 2 || r.srcEOF {
				break
			}
			return err
		}
	}
	buf, pos := r.rawBuffer, r.rawPos
	avail := len(buf) - pos
	switch {
	case avail >= 2 && buf[pos] == bomUTF16LE[0] && buf[pos+1] == bomUTF16LE[1]:
		r.encoding = yamlh.UTF16LE_ENCODING
		r.rawPos += 2
		r.offset += 2
	case avail >= 2 && buf[pos] == bomUTF16BE[0] && buf[pos+1] == bomUTF16BE[1]:
		r.encoding = yamlh.UTF16BE_ENCODING
		r.rawPos += 2
		r.offset += 2
	case avail >= 3 && buf[pos] == bomUTF8[0] && buf[pos+1] == bomUTF8[1] && buf[pos+2] == bomUTF8[2]:
		r.encoding = yamlh.UTF8_ENCODING
		r.rawPos += 3
		r.offset += 3
	default:
		r.encoding = yamlh.UTF8_ENCODING
	}
	return nil
}

// Ensure guarantees the buffer holds at least `length` unread decoded
// bytes, pulling from the Source and decoding as needed. It returns
// ErrNeedMore if the Source can't currently supply enough without blocking.
func (r *Reader) Ensure(length int) error {
	if r.unread >= length {
		return nil
	}
	if r.encoding == yamlh.ANY_ENCODING {
		if err := r.determineEncoding(); err != nil {
			return err
		}
	}

	for r.unread < length {
		if r.rawPos == len(r.rawBuffer) && !r.srcEOF {
			if err := r.fillRawBuffer(); err != nil {
				return err
			}
			if r.rawPos == len(r.rawBuffer) && !r.srcEOF {
				return ErrNeedMore
			}
		}

		progressed := false
		for r.rawPos != len(r.rawBuffer) {
			value, width, err := r.decodeOne()
			if err != nil {
				return err
			}
			if width == 0 {
				// incomplete sequence at the tail of what we have so far
				if r.srcEOF {
					return newReaderError("incomplete character sequence")
				}
				break
			}
			r.rawPos += width
			r.offset += width
			r.appendDecoded(value)
			r.unread++
			progressed = true
		}
		if r.srcEOF {
			r.buffer = append(r.buffer, 0)
			r.unread++
			break
		}
		if !progressed && r.rawPos == len(r.rawBuffer) {
			if err := r.fillRawBuffer(); err != nil {
				return err
			}
			if r.rawPos == len(r.rawBuffer) && !r.srcEOF {
				return ErrNeedMore
			}
		}
	}
	return nil
}

// decodeOne decodes the next character starting at r.rawPos. width==0 means
// "not enough bytes buffered yet, not an error unless srcEOF".
func (r *Reader) decodeOne() (value rune, width int, err error) {
	rawUnread := len(r.rawBuffer) - r.rawPos
	switch r.encoding {
	case yamlh.UTF8_ENCODING:
		octet := r.rawBuffer[r.rawPos]
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
			return 0, 0, newReaderError("invalid leading UTF-8 octet")
		}
		if width > rawUnread {
			return 0, 0, nil
		}
		switch {
		case octet&0x80 == 0x00:
			value = rune(octet & 0x7F)
		case octet&0xE0 == 0xC0:
			value = rune(octet & 0x1F)
		case octet&0xF0 == 0xE0:
			value = rune(octet & 0x0F)
		case octet&0xF8 == 0xF0:
			value = rune(octet & 0x07)
		}
		for k := 1; k < width; k++ {
			octet = r.rawBuffer[r.rawPos+k]
			if octet&0xC0 != 0x80 {
				return 0, 0, newReaderError("invalid trailing UTF-8 octet")
			}
			value = (value << 6) + rune(octet&0x3F)
		}
		switch {
		case width == 1:
		case width == 2 && value >= 0x80:
		case width == 3 && value >= 0x800:
		case width == 4 && value >= 0x10000:
		default:
			return 0, 0, newReaderError("invalid length of a UTF-8 sequence")
		}
		if value >= 0xD800 && value <= 0xDFFF || value > 0x10FFFF {
			return 0, 0, newReaderError("invalid Unicode character")
		}

	case yamlh.UTF16LE_ENCODING, yamlh.UTF16BE_ENCODING:
		var low, high int
		if r.encoding == yamlh.UTF16LE_ENCODING {
			low, high = 0, 1
		} else {
			low, high = 1, 0
		}
		if rawUnread < 2 {
			return 0, 0, nil
		}
		value = rune(r.rawBuffer[r.rawPos+low]) + (rune(r.rawBuffer[r.rawPos+high]) << 8)
		if value&0xFC00 == 0xDC00 {
			return 0, 0, newReaderError("unexpected low surrogate area")
		}
		if value&0xFC00 == 0xD800 {
			width = 4
			if rawUnread < 4 {
				return 0, 0, nil
			}
			value2 := rune(r.rawBuffer[r.rawPos+low+2]) + (rune(r.rawBuffer[r.rawPos+high+2]) << 8)
			if value2&0xFC00 != 0xDC00 {
				return 0, 0, newReaderError("expected low surrogate area")
			}
			value = 0x10000 + ((value & 0x3FF) << 10) + (value2 & 0x3FF)
		} else {
			width = 2
		}
	}

	switch {
	case value == 0x09, value == 0x0A, value == 0x0D:
	case value >= 0x20 && value <= 0x7E:
	case value == 0x85:
	case value >= 0xA0 && value <= 0xD7FF:
	case value >= 0xE000 && value <= 0xFFFD:
	case value >= 0x10000 && value <= 0x10FFFF:
	default:
		return 0, 0, newReaderError("control characters are not allowed")
	}
	return value, width, nil
}

func (r *Reader) appendDecoded(value rune) {
	switch {
	case value <= 0x7F:
		r.buffer = append(r.buffer, byte(value))
	case value <= 0x7FF:
		r.buffer = append(r.buffer, byte(0xC0+(value>>6)), byte(0x80+(value&0x3F)))
	case value <= 0xFFFF:
		r.buffer = append(r.buffer,
			byte(0xE0+(value>>12)),
			byte(0x80+((value>>6)&0x3F)),
			byte(0x80+(value&0x3F)))
	default:
		r.buffer = append(r.buffer,
			byte(0xF0+(value>>18)),
			byte(0x80+((value>>12)&0x3F)),
			byte(0x80+((value>>6)&0x3F)),
			byte(0x80+(value&0x3F)))
	}
}

// Skip advances the cursor by one decoded character.
func (r *Reader) Skip() {
	if !yamlh.Is_blank(r.buffer, r.bufPos) {
		r.newlines = 0
	}
	r.mark.Index++
	r.mark.Column++
	r.unread--
	r.bufPos += yamlh.Width(r.buffer[r.bufPos])
}

// SkipLine advances the cursor past a line break, normalizing its width.
func (r *Reader) SkipLine() {
	switch {
	case yamlh.Is_crlf(r.buffer, r.bufPos):
		r.bufPos += 2
		r.mark.Index += 2
		r.unread -= 2
	case yamlh.Is_break(r.buffer, r.bufPos):
		r.mark.Index++
		r.unread--
		r.bufPos += yamlh.Width(r.buffer[r.bufPos])
	default:
		return
	}
	r.mark.Column = 0
	r.mark.Line++
	r.newlines++
}

// Read appends the current character to s and advances the cursor.
func (r *Reader) Read(s []byte) []byte {
	if !yamlh.Is_blank(r.buffer, r.bufPos) {
		r.newlines = 0
	}
	w := yamlh.Width(r.buffer[r.bufPos])
	if w == 0 {
		panic("reader: invalid character sequence")
	}
	s = append(s, r.buffer[r.bufPos:r.bufPos+w]...)
	r.bufPos += w
	r.mark.Index++
	r.mark.Column++
	r.unread--
	return s
}

// ReadLine appends a normalized '\n' (or LS/PS verbatim) for the line break
// at the cursor, and advances past it.
func (r *Reader) ReadLine(s []byte) []byte {
	buf, pos := r.buffer, r.bufPos
	switch {
	case buf[pos] == '\r' && buf[pos+1] == '\n':
		s = append(s, '\n')
		r.bufPos += 2
		r.mark.Index++
		r.unread--
	case buf[pos] == '\r' || buf[pos] == '\n':
		s = append(s, '\n')
		r.bufPos++
	case buf[pos] == '\xC2' && buf[pos+1] == '\x85':
		s = append(s, '\n')
		r.bufPos += 2
	case buf[pos] == '\xE2' && buf[pos+1] == '\x80' && (buf[pos+2] == '\xA8' || buf[pos+2] == '\xA9'):
		s = append(s, buf[pos:pos+3]...)
		r.bufPos += 3
	default:
		return s
	}
	r.mark.Index++
	r.mark.Column = 0
	r.mark.Line++
	r.unread--
	r.newlines++
	return s
}

func newReaderError(problem string) error {
	return &Error{Problem: problem}
}

// Error reports a failure to read or decode the input stream.
type Error struct {
	Problem string
}

func (e *Error) Error() string { return "reader: " + e.Problem }
