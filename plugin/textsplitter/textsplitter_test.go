package textsplitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	s := New(0, -1, "")
	assert.Equal(t, DefaultChunkSize, s.ChunkSize)
	assert.Equal(t, DefaultChunkOverlap, s.ChunkOverlap)
	assert.Equal(t, DefaultSeparator, s.Separator)

	// Overlap at or above chunk size is clamped to zero.
	s = New(100, 100, "\n")
	assert.Equal(t, 0, s.ChunkOverlap)
}

func TestSplitText_Empty(t *testing.T) {
	s := New(1000, 200, "\n")
	assert.Empty(t, s.SplitText(""))
	assert.Empty(t, s.SplitText("\n\n\n"))
	assert.Empty(t, s.SplitText("   "))
}

func TestSplitText_SingleSmallSegment(t *testing.T) {
	s := New(1000, 200, "\n")
	chunks := s.SplitText("hello world")
	require.Len(t, chunks, 1)
	assert.Equal(t, "hello world", chunks[0])
}

func TestSplitText_MergesUpToChunkSize(t *testing.T) {
	// Three 4-char segments, chunk size 10, separator "\n": the first two fit
	// (4+1+4 = 9), the third does not.
	s := New(10, 0, "\n")
	chunks := s.SplitText("aaaa\nbbbb\ncccc")
	require.Len(t, chunks, 2)
	assert.Equal(t, "aaaa\nbbbb", chunks[0])
	assert.Equal(t, "cccc", chunks[1])
}

func TestSplitText_OverlapCarriesTail(t *testing.T) {
	s := New(10, 5, "\n")
	chunks := s.SplitText("aaaa\nbbbb\ncccc")
	require.Len(t, chunks, 2)
	assert.Equal(t, "aaaa\nbbbb", chunks[0])
	// The 4-char tail segment fits within the 5-char overlap budget and is
	// duplicated at the head of the next chunk.
	assert.Equal(t, "bbbb\ncccc", chunks[1])
}

func TestSplitText_HardCutOversizedSegment(t *testing.T) {
	// A single 2500-char segment with no separator inside: cut at 0, 800 and
	// 1600 (step = size - overlap).
	s := New(1000, 200, "\n")
	chunks := s.SplitText(strings.Repeat("x", 2500))
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 1000)
	assert.Len(t, chunks[1], 1000)
	assert.Len(t, chunks[2], 900)
}

func TestSplitText_Deterministic(t *testing.T) {
	// Five 300-char newline-delimited segments with size 1000 / overlap 200:
	// always exactly two chunks, independent of call order.
	seg := strings.Repeat("a", 300)
	text := strings.Join([]string{seg, seg, seg, seg, seg}, "\n")

	s := New(1000, 200, "\n")
	first := s.SplitText(text)
	require.Len(t, first, 2)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.SplitText(text))
	}
}

func TestSplitText_ChunksRespectBound(t *testing.T) {
	s := New(50, 10, "\n")
	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, strings.Repeat("w", 7))
	}
	for _, c := range s.SplitText(strings.Join(lines, "\n")) {
		assert.LessOrEqual(t, len(c), 50)
	}
}
