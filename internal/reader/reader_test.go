package reader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yaml-stream/yamlstream/internal/yamlh"
)

func TestReaderDetectsUTF8NoBOM(t *testing.T) {
	r := New(NewByteSliceSource([]byte("abc")))
	require.NoError(t, r.Ensure(3))
	require.Equal(t, yamlh.UTF8_ENCODING, r.Encoding())
	require.Equal(t, byte('a'), r.Byte(0))
	require.Equal(t, byte('b'), r.Byte(1))
	require.Equal(t, byte('c'), r.Byte(2))
}

func TestReaderStripsUTF8BOM(t *testing.T) {
	data := append([]byte(bomUTF8), []byte("xy")...)
	r := New(NewByteSliceSource(data))
	require.NoError(t, r.Ensure(2))
	require.Equal(t, yamlh.UTF8_ENCODING, r.Encoding())
	require.Equal(t, byte('x'), r.Byte(0))
	require.Equal(t, byte('y'), r.Byte(1))
}

func TestReaderDecodesUTF16LE(t *testing.T) {
	data := []byte(bomUTF16LE)
	data = append(data, 'h', 0, 'i', 0)
	r := New(NewByteSliceSource(data))
	require.NoError(t, r.Ensure(2))
	require.Equal(t, yamlh.UTF16LE_ENCODING, r.Encoding())
	require.Equal(t, byte('h'), r.Byte(0))
	require.Equal(t, byte('i'), r.Byte(1))
}

func TestReaderDecodesUTF16BE(t *testing.T) {
	data := []byte(bomUTF16BE)
	data = append(data, 0, 'h', 0, 'i')
	r := New(NewByteSliceSource(data))
	require.NoError(t, r.Ensure(2))
	require.Equal(t, yamlh.UTF16BE_ENCODING, r.Encoding())
	require.Equal(t, byte('h'), r.Byte(0))
	require.Equal(t, byte('i'), r.Byte(1))
}

func TestReaderSkipAdvancesMark(t *testing.T) {
	r := New(NewByteSliceSource([]byte("ab\ncd")))
	require.NoError(t, r.Ensure(1))
	require.Equal(t, yamlh.Position{}, r.Mark())
	r.Skip()
	require.Equal(t, yamlh.Position{Index: 1, Line: 0, Column: 1}, r.Mark())
}

func TestReaderSkipLineNormalizesCRLF(t *testing.T) {
	r := New(NewByteSliceSource([]byte("a\r\nb")))
	require.NoError(t, r.Ensure(1))
	r.Skip() // past 'a'
	require.NoError(t, r.Ensure(2))
	r.SkipLine()
	require.Equal(t, 0, r.Mark().Column)
	require.Equal(t, 1, r.Mark().Line)
	require.NoError(t, r.Ensure(1))
	require.Equal(t, byte('b'), r.Byte(0))
}

func TestReaderReadAppendsAndAdvances(t *testing.T) {
	r := New(NewByteSliceSource([]byte("xyz")))
	var buf []byte
	require.NoError(t, r.Ensure(1))
	buf = r.Read(buf)
	require.NoError(t, r.Ensure(1))
	buf = r.Read(buf)
	require.Equal(t, []byte("xy"), buf)
}

func TestReaderReadLineNormalizesToLF(t *testing.T) {
	r := New(NewByteSliceSource([]byte("\r\nrest")))
	require.NoError(t, r.Ensure(2))
	var buf []byte
	buf = r.ReadLine(buf)
	require.Equal(t, []byte("\n"), buf)
	require.NoError(t, r.Ensure(1))
	require.Equal(t, byte('r'), r.Byte(0))
}

func TestReaderEnsureReportsNeedMoreUnderFeedSource(t *testing.T) {
	fs := NewFeedSource()
	r := New(fs)
	err := r.Ensure(5)
	require.ErrorIs(t, err, ErrNeedMore)

	fs.Feed([]byte("hello"))
	require.NoError(t, r.Ensure(5))
	require.Equal(t, byte('h'), r.Byte(0))
}

func TestReaderSnapshotRestoreUndoesSkips(t *testing.T) {
	r := New(NewByteSliceSource([]byte("abcdef")))
	require.NoError(t, r.Ensure(3))
	snap := r.Snapshot()
	r.Skip()
	r.Skip()
	require.Equal(t, 2, r.Mark().Index)

	r.Restore(snap)
	require.Equal(t, 0, r.Mark().Index)
	require.NoError(t, r.Ensure(1))
	require.Equal(t, byte('a'), r.Byte(0))
}

func TestReaderSmallRawBufferStillDecodesFullInput(t *testing.T) {
	text := strings.Repeat("abcdefgh ", 50)
	r := NewSized(NewByteSliceSource([]byte(text)), 8)
	var got []byte
	for {
		if err := r.Ensure(1); err != nil {
			break
		}
		if r.Byte(0) == 0 {
			break
		}
		got = r.Read(got)
	}
	require.Equal(t, text, string(got))
}

func TestReaderSlicePosRoundtrip(t *testing.T) {
	r := New(NewByteSliceSource([]byte("hello")))
	require.NoError(t, r.Ensure(5))
	start := r.Pos()
	r.Skip()
	r.Skip()
	end := r.Pos()
	require.Equal(t, "he", string(r.Slice(start, end)))
}

func TestReaderRejectsInvalidUTF8(t *testing.T) {
	r := New(NewByteSliceSource([]byte{0xFF, 0xFF, 'x'}))
	err := r.Ensure(1)
	require.Error(t, err)
}
