package token

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yaml-stream/yamlstream/internal/yamlh"
)

func tok(kind yamlh.TokenKind) yamlh.Token {
	return yamlh.Token{Kind: kind}
}

func TestQueuePushPopFIFO(t *testing.T) {
	q := New()
	require.Equal(t, 0, q.Len())

	q.Push(tok(yamlh.KEY_TOKEN))
	q.Push(tok(yamlh.VALUE_TOKEN))
	require.Equal(t, 2, q.Len())
	require.Equal(t, 2, q.Pushed())

	front, ok := q.Front()
	require.True(t, ok)
	require.Equal(t, yamlh.KEY_TOKEN, front.Kind)

	got, ok := q.PopFront()
	require.True(t, ok)
	require.Equal(t, yamlh.KEY_TOKEN, got.Kind)

	got, ok = q.PopFront()
	require.True(t, ok)
	require.Equal(t, yamlh.VALUE_TOKEN, got.Kind)

	_, ok = q.PopFront()
	require.False(t, ok)
}

func TestQueueInsertAtSplicesBehindFront(t *testing.T) {
	q := New()
	q.Push(tok(yamlh.SCALAR_TOKEN))
	q.Push(tok(yamlh.VALUE_TOKEN))

	// Splice a KEY_TOKEN in front of the already-pushed SCALAR_TOKEN, as the
	// scanner does when a simple key is confirmed.
	q.InsertAt(0, tok(yamlh.KEY_TOKEN))
	require.Equal(t, 3, q.Len())
	require.Equal(t, 3, q.Pushed())

	kinds := make([]yamlh.TokenKind, 0, 3)
	for {
		t2, ok := q.PopFront()
		if !ok {
			break
		}
		kinds = append(kinds, t2.Kind)
	}
	require.Equal(t, []yamlh.TokenKind{yamlh.KEY_TOKEN, yamlh.SCALAR_TOKEN, yamlh.VALUE_TOKEN}, kinds)
}

func TestQueueInsertAtMiddle(t *testing.T) {
	q := New()
	q.Push(tok(yamlh.BLOCK_ENTRY_TOKEN))
	q.Push(tok(yamlh.VALUE_TOKEN))
	q.InsertAt(1, tok(yamlh.KEY_TOKEN))

	at0, _ := q.At(0)
	at1, _ := q.At(1)
	at2, _ := q.At(2)
	require.Equal(t, yamlh.BLOCK_ENTRY_TOKEN, at0.Kind)
	require.Equal(t, yamlh.KEY_TOKEN, at1.Kind)
	require.Equal(t, yamlh.VALUE_TOKEN, at2.Kind)
}

func TestQueueAtOutOfRange(t *testing.T) {
	q := New()
	q.Push(tok(yamlh.SCALAR_TOKEN))
	_, ok := q.At(-1)
	require.False(t, ok)
	_, ok = q.At(1)
	require.False(t, ok)
}

func TestQueueMarkRestoreUndoesPushesAndCounter(t *testing.T) {
	q := New()
	q.Push(tok(yamlh.STREAM_START_TOKEN))
	_, _ = q.PopFront()

	snap := q.Mark()
	q.Push(tok(yamlh.SCALAR_TOKEN))
	q.InsertAt(0, tok(yamlh.KEY_TOKEN))
	require.Equal(t, 2, q.Len())

	q.Restore(snap)
	require.Equal(t, 0, q.Len())
	require.Equal(t, 1, q.Pushed(), "Restore must roll back the push counter too, or retried steps renumber tokens")

	// A retry after Restore reproduces exactly the state a first attempt
	// would have produced.
	q.Push(tok(yamlh.SCALAR_TOKEN))
	require.Equal(t, 2, q.Pushed())
}

func TestQueueRestoreDoesNotUnpopConsumedTokens(t *testing.T) {
	q := New()
	q.Push(tok(yamlh.STREAM_START_TOKEN))
	q.Push(tok(yamlh.SCALAR_TOKEN))
	snap := q.Mark()
	_, _ = q.PopFront()
	q.Restore(snap)
	// The consumed STREAM_START_TOKEN is gone for good; only the unconsumed
	// tail is restorable.
	front, ok := q.Front()
	require.True(t, ok)
	require.Equal(t, yamlh.SCALAR_TOKEN, front.Kind)
}

func TestQueuePopFrontCompacts(t *testing.T) {
	q := New()
	for i := 0; i < 100; i++ {
		q.Push(tok(yamlh.SCALAR_TOKEN))
	}
	for i := 0; i < 60; i++ {
		_, ok := q.PopFront()
		require.True(t, ok)
	}
	require.Equal(t, 40, q.Len())
	require.Equal(t, 100, q.Pushed())
}
