package scanner

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yaml-stream/yamlstream/internal/reader"
	"github.com/yaml-stream/yamlstream/internal/yamlh"
)

func drain(t *testing.T, sc *Scanner) []yamlh.Token {
	t.Helper()
	var toks []yamlh.Token
	for {
		tok, err := sc.Next()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == yamlh.STREAM_END_TOKEN {
			return toks
		}
		if len(toks) > 10000 {
			t.Fatal("scanner did not produce STREAM_END_TOKEN")
		}
	}
}

func kinds(toks []yamlh.Token) []yamlh.TokenKind {
	out := make([]yamlh.TokenKind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func scanString(t *testing.T, src string, flags Flags) []yamlh.Token {
	t.Helper()
	sc := New(reader.NewByteSliceSource([]byte(src)), flags)
	return drain(t, sc)
}

func TestScannerSimpleBlockMapping(t *testing.T) {
	toks := scanString(t, "a: b\n", Flags{})
	require.Equal(t, []yamlh.TokenKind{
		yamlh.STREAM_START_TOKEN,
		yamlh.BLOCK_MAPPING_START_TOKEN,
		yamlh.KEY_TOKEN,
		yamlh.SCALAR_TOKEN,
		yamlh.VALUE_TOKEN,
		yamlh.SCALAR_TOKEN,
		yamlh.BLOCK_END_TOKEN,
		yamlh.STREAM_END_TOKEN,
	}, kinds(toks))

	require.Equal(t, "a", string(Materialize(toks[3].Scalar)))
	require.Equal(t, "b", string(Materialize(toks[5].Scalar)))
}

func TestScannerBlockSequence(t *testing.T) {
	toks := scanString(t, "- 1\n- 2\n", Flags{})
	require.Equal(t, []yamlh.TokenKind{
		yamlh.STREAM_START_TOKEN,
		yamlh.BLOCK_SEQUENCE_START_TOKEN,
		yamlh.BLOCK_ENTRY_TOKEN,
		yamlh.SCALAR_TOKEN,
		yamlh.BLOCK_ENTRY_TOKEN,
		yamlh.SCALAR_TOKEN,
		yamlh.BLOCK_END_TOKEN,
		yamlh.STREAM_END_TOKEN,
	}, kinds(toks))
}

func TestScannerFlowSequence(t *testing.T) {
	toks := scanString(t, "[1, 2]\n", Flags{})
	require.Equal(t, []yamlh.TokenKind{
		yamlh.STREAM_START_TOKEN,
		yamlh.FLOW_SEQUENCE_START_TOKEN,
		yamlh.SCALAR_TOKEN,
		yamlh.FLOW_ENTRY_TOKEN,
		yamlh.SCALAR_TOKEN,
		yamlh.FLOW_SEQUENCE_END_TOKEN,
		yamlh.STREAM_END_TOKEN,
	}, kinds(toks))
	require.Equal(t, "1", string(Materialize(toks[2].Scalar)))
	require.Equal(t, "2", string(Materialize(toks[4].Scalar)))
}

func TestScannerFlowMappingImplicitKey(t *testing.T) {
	toks := scanString(t, "{a: 1}\n", Flags{})
	require.Equal(t, []yamlh.TokenKind{
		yamlh.STREAM_START_TOKEN,
		yamlh.FLOW_MAPPING_START_TOKEN,
		yamlh.KEY_TOKEN,
		yamlh.SCALAR_TOKEN,
		yamlh.VALUE_TOKEN,
		yamlh.SCALAR_TOKEN,
		yamlh.FLOW_MAPPING_END_TOKEN,
		yamlh.STREAM_END_TOKEN,
	}, kinds(toks))
}

func TestScannerAnchorAliasTag(t *testing.T) {
	toks := scanString(t, "a: &x !!str v\nb: *x\n", Flags{})
	var kindSeq []yamlh.TokenKind
	for _, tok := range toks {
		kindSeq = append(kindSeq, tok.Kind)
	}
	require.Contains(t, kindSeq, yamlh.ANCHOR_TOKEN)
	require.Contains(t, kindSeq, yamlh.TAG_TOKEN)
	require.Contains(t, kindSeq, yamlh.ALIAS_TOKEN)

	for _, tok := range toks {
		switch tok.Kind {
		case yamlh.ANCHOR_TOKEN, yamlh.ALIAS_TOKEN:
			require.Equal(t, "x", string(tok.Value))
		case yamlh.TAG_TOKEN:
			require.Equal(t, "!!", string(tok.Value))
			require.Equal(t, "str", string(tok.Suffix))
		}
	}
}

func TestScannerSingleQuotedEscapesDoubledQuote(t *testing.T) {
	toks := scanString(t, "'it''s'\n", Flags{})
	var scalar *yamlh.ScalarPayload
	for _, tok := range toks {
		if tok.Kind == yamlh.SCALAR_TOKEN {
			scalar = tok.Scalar
		}
	}
	require.NotNil(t, scalar)
	require.Equal(t, "it's", string(Materialize(scalar)))
	require.Equal(t, yamlh.SINGLE_QUOTED_SCALAR_STYLE, scalar.Style)
}

func TestScannerDoubleQuotedEscapes(t *testing.T) {
	toks := scanString(t, `"a\tb\ncA"`+"\n", Flags{})
	var scalar *yamlh.ScalarPayload
	for _, tok := range toks {
		if tok.Kind == yamlh.SCALAR_TOKEN {
			scalar = tok.Scalar
		}
	}
	require.NotNil(t, scalar)
	require.Equal(t, "a\tb\nc" + "A", string(Materialize(scalar)))
}

func TestScannerLiteralBlockScalarKeepsNewlines(t *testing.T) {
	toks := scanString(t, "v: |\n  line1\n  line2\n", Flags{})
	var scalar *yamlh.ScalarPayload
	for _, tok := range toks {
		if tok.Kind == yamlh.SCALAR_TOKEN && tok.Scalar.Style == yamlh.LITERAL_SCALAR_STYLE {
			scalar = tok.Scalar
		}
	}
	require.NotNil(t, scalar)
	require.Equal(t, "line1\nline2\n", string(Materialize(scalar)))
}

func TestScannerLiteralBlockScalarChompStrip(t *testing.T) {
	toks := scanString(t, "v: |-\n  a\n  b\n", Flags{})
	var scalar *yamlh.ScalarPayload
	for _, tok := range toks {
		if tok.Kind == yamlh.SCALAR_TOKEN && tok.Scalar.Style == yamlh.LITERAL_SCALAR_STYLE {
			scalar = tok.Scalar
		}
	}
	require.NotNil(t, scalar)
	require.Equal(t, "a\nb", string(Materialize(scalar)))
}

func TestScannerLiteralBlockScalarChompKeep(t *testing.T) {
	toks := scanString(t, "v: |+\n  a\n\n\n", Flags{})
	var scalar *yamlh.ScalarPayload
	for _, tok := range toks {
		if tok.Kind == yamlh.SCALAR_TOKEN && tok.Scalar.Style == yamlh.LITERAL_SCALAR_STYLE {
			scalar = tok.Scalar
		}
	}
	require.NotNil(t, scalar)
	require.Equal(t, "a\n\n\n", string(Materialize(scalar)))
}

// TestScannerLiteralBlockScalarAtDocumentRoot covers a block scalar that is
// the whole document (indicator at column 0, no enclosing mapping/sequence),
// exercising the auto-detected-indent path with no parent indentation level.
func TestScannerLiteralBlockScalarAtDocumentRoot(t *testing.T) {
	toks := scanString(t, "|\n a\n b\n", Flags{})
	var scalar *yamlh.ScalarPayload
	for _, tok := range toks {
		if tok.Kind == yamlh.SCALAR_TOKEN && tok.Scalar.Style == yamlh.LITERAL_SCALAR_STYLE {
			scalar = tok.Scalar
		}
	}
	require.NotNil(t, scalar)
	require.Equal(t, "a\nb\n", string(Materialize(scalar)))
}

func TestScannerFoldedBlockScalarFoldsSingleBreaks(t *testing.T) {
	toks := scanString(t, "v: >\n  line1\n  line2\n", Flags{})
	var scalar *yamlh.ScalarPayload
	for _, tok := range toks {
		if tok.Kind == yamlh.SCALAR_TOKEN && tok.Scalar.Style == yamlh.FOLDED_SCALAR_STYLE {
			scalar = tok.Scalar
		}
	}
	require.NotNil(t, scalar)
	require.Equal(t, "line1 line2\n", string(Materialize(scalar)))
}

func TestScannerLazyScalarDefersUntilMaterialize(t *testing.T) {
	toks := scanString(t, "v: |\n  x\n", Flags{Lazy: true})
	var scalar *yamlh.ScalarPayload
	for _, tok := range toks {
		if tok.Kind == yamlh.SCALAR_TOKEN && tok.Scalar.Style == yamlh.LITERAL_SCALAR_STYLE {
			scalar = tok.Scalar
		}
	}
	require.NotNil(t, scalar)
	require.Equal(t, yamlh.ScalarDeferredBlock, scalar.Form)
	require.Nil(t, scalar.Value)
	require.Equal(t, "x\n", string(Materialize(scalar)))
	require.Equal(t, "x\n", string(scalar.Value), "Materialize should memoize into Value")
}

func TestScannerSmallRawBufferProducesSameTokens(t *testing.T) {
	src := "a: b\nc:\n  - 1\n  - 2\n"
	want := scanString(t, src, Flags{})
	sc := New(reader.NewByteSliceSource([]byte(src)), Flags{SmallBufferTest: true})
	got := drain(t, sc)
	require.Equal(t, kinds(want), kinds(got))
}

func TestScannerExtendableNeedsMoreThenResumes(t *testing.T) {
	fs := reader.NewFeedSource()
	sc := New(fs, Flags{Extendable: true})

	// Even STREAM_START_TOKEN needs enough buffered input to sniff the
	// encoding (or EOF), so the very first call can report ErrNeedMore too.
	_, err := sc.Next()
	require.ErrorIs(t, err, reader.ErrNeedMore)

	fs.Feed([]byte("a: b\n"))
	fs.Close()

	var toks []yamlh.Token
	for {
		tok, err := sc.Next()
		require.NoError(t, err)
		toks = append(toks, tok)
		if tok.Kind == yamlh.STREAM_END_TOKEN {
			break
		}
	}
	require.Equal(t, []yamlh.TokenKind{
		yamlh.STREAM_START_TOKEN,
		yamlh.BLOCK_MAPPING_START_TOKEN,
		yamlh.KEY_TOKEN,
		yamlh.SCALAR_TOKEN,
		yamlh.VALUE_TOKEN,
		yamlh.SCALAR_TOKEN,
		yamlh.BLOCK_END_TOKEN,
		yamlh.STREAM_END_TOKEN,
	}, kinds(toks))
}

func TestScannerVersionAndTagDirectives(t *testing.T) {
	toks := scanString(t, "%YAML 1.2\n%TAG !e! tag:example.com,2000:app/\n---\nv\n...\n", Flags{})
	var version, tagDir yamlh.Token
	for _, tok := range toks {
		switch tok.Kind {
		case yamlh.VERSION_DIRECTIVE_TOKEN:
			version = tok
		case yamlh.TAG_DIRECTIVE_TOKEN:
			tagDir = tok
		}
	}
	require.Equal(t, int8(1), version.Major)
	require.Equal(t, int8(2), version.Minor)
	require.Equal(t, "!e!", string(tagDir.Value))
	require.Equal(t, "tag:example.com,2000:app/", string(tagDir.Prefix))
}

func TestScannerRejectsTabIndentationViolation(t *testing.T) {
	sc := New(reader.NewByteSliceSource([]byte("a: b\n\tc: d\n")), Flags{})
	var lastErr error
	for i := 0; i < 20; i++ {
		_, err := sc.Next()
		if err != nil {
			lastErr = err
			break
		}
	}
	require.Error(t, lastErr)
}
