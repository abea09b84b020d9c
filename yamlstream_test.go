package yamlstream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func drainEvents(t *testing.T, e *Events) []Event {
	t.Helper()
	var events []Event
	for {
		ev, err := e.Next()
		if err == ErrStreamEnd {
			return events
		}
		require.NoError(t, err)
		events = append(events, ev)
		if len(events) > 10000 {
			t.Fatal("stream did not end")
		}
	}
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func TestStreamSimpleMapping(t *testing.T) {
	e := Stream(ByteSliceSource([]byte("a: b\n")), Flags{})
	events := drainEvents(t, e)
	require.Equal(t, []EventKind{
		StreamStartEvent,
		DocumentStartEvent,
		MappingStartEvent,
		ScalarEvent,
		ScalarEvent,
		MappingEndEvent,
		DocumentEndEvent,
		StreamEndEvent,
	}, kinds(events))
	require.Equal(t, "a", string(events[3].Scalar()))
	require.Equal(t, "b", string(events[4].Scalar()))
	require.Equal(t, PlainStyle, events[3].Style())
}

func TestStreamReaderSource(t *testing.T) {
	e := Stream(ReaderSource(strings.NewReader("- 1\n- 2\n")), Flags{})
	events := drainEvents(t, e)
	require.Equal(t, []EventKind{
		StreamStartEvent,
		DocumentStartEvent,
		SequenceStartEvent,
		ScalarEvent,
		ScalarEvent,
		SequenceEndEvent,
		DocumentEndEvent,
		StreamEndEvent,
	}, kinds(events))
}

func TestStreamAfterEndReturnsErrStreamEnd(t *testing.T) {
	e := Stream(ByteSliceSource([]byte("v\n")), Flags{})
	_ = drainEvents(t, e)
	_, err := e.Next()
	require.Equal(t, ErrStreamEnd, err)
}

func TestStreamExtendableFeedAndClose(t *testing.T) {
	fs := NewFeedSource()
	e := Stream(fs, Flags{Extendable: true})

	// Even the first event needs enough buffered input for the reader to
	// sniff the encoding (or EOF), so it can report ErrNeedMore too.
	_, err := e.Next()
	require.Equal(t, ErrNeedMore, err)

	e.Feed([]byte("a: b\n"))
	e.Close()

	var events []Event
	for {
		ev, err := e.Next()
		if err == ErrStreamEnd {
			break
		}
		require.NoError(t, err)
		events = append(events, ev)
	}
	require.Equal(t, []EventKind{
		StreamStartEvent,
		DocumentStartEvent,
		MappingStartEvent,
		ScalarEvent,
		ScalarEvent,
		MappingEndEvent,
		DocumentEndEvent,
		StreamEndEvent,
	}, kinds(events))
}

func TestStreamLazyScalarMaterializesOnDemand(t *testing.T) {
	e := Stream(ByteSliceSource([]byte("v: |\n  line\n")), Flags{Lazy: true})
	events := drainEvents(t, e)
	var value *Event
	for i := range events {
		if events[i].Kind == ScalarEvent && events[i].Style() == LiteralStyle {
			value = &events[i]
		}
	}
	require.NotNil(t, value)
	require.Equal(t, "line\n", string(value.Scalar()))
}

func TestStreamScanErrorTranslatesKindAndPosition(t *testing.T) {
	e := Stream(ByteSliceSource([]byte("\"unterminated\n")), Flags{})
	var lastErr error
	for i := 0; i < 20; i++ {
		_, err := e.Next()
		if err != nil && err != ErrStreamEnd {
			lastErr = err
			break
		}
		if err == ErrStreamEnd {
			break
		}
	}
	require.Error(t, lastErr)
	yerr, ok := lastErr.(*Error)
	require.True(t, ok, "expected *yamlstream.Error, got %T", lastErr)
	require.Equal(t, ScanError, yerr.Kind)
}

func TestStreamParseErrorOnUndefinedTagHandle(t *testing.T) {
	e := Stream(ByteSliceSource([]byte("!q!foo bar\n")), Flags{})
	var lastErr error
	for i := 0; i < 20; i++ {
		_, err := e.Next()
		if err != nil && err != ErrStreamEnd {
			lastErr = err
			break
		}
		if err == ErrStreamEnd {
			break
		}
	}
	require.Error(t, lastErr)
	yerr, ok := lastErr.(*Error)
	require.True(t, ok, "expected *yamlstream.Error, got %T", lastErr)
	require.Equal(t, ParseError, yerr.Kind)
}

func TestStreamMultiDocument(t *testing.T) {
	e := Stream(ByteSliceSource([]byte("---\na: 1\n---\nb: 2\n")), Flags{})
	events := drainEvents(t, e)
	var docStarts int
	for _, ev := range events {
		if ev.Kind == DocumentStartEvent {
			docStarts++
		}
	}
	require.Equal(t, 2, docStarts)
	require.Equal(t, StreamStartEvent, events[0].Kind)
	require.Equal(t, StreamEndEvent, events[len(events)-1].Kind)
}

func TestFeedHasNoEffectWithoutExtendableFeedSource(t *testing.T) {
	e := Stream(ByteSliceSource([]byte("a: b\n")), Flags{})
	// Feed/Close are no-ops when the Source isn't a *FeedSource; this must
	// not panic.
	e.Feed([]byte("more"))
	e.Close()
	events := drainEvents(t, e)
	require.Equal(t, StreamEndEvent, events[len(events)-1].Kind)
}
