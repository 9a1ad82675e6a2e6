// Package textsplitter splits extracted document text into bounded,
// overlapping chunks for indexing.
package textsplitter

import "strings"

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
	DefaultSeparator    = "\n"
)

// CharacterSplitter accumulates separator-delimited segments into chunks of at
// most ChunkSize characters, carrying up to ChunkOverlap trailing characters
// of the previous chunk into the next one. Segments longer than ChunkSize are
// hard-cut at character boundaries.
type CharacterSplitter struct {
	ChunkSize    int
	ChunkOverlap int
	Separator    string
}

// New returns a splitter with the given parameters, substituting defaults for
// zero values. An overlap >= chunk size is clamped to zero.
func New(chunkSize, chunkOverlap int, separator string) *CharacterSplitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = 0
	}
	if separator == "" {
		separator = DefaultSeparator
	}
	return &CharacterSplitter{ChunkSize: chunkSize, ChunkOverlap: chunkOverlap, Separator: separator}
}

// SplitText splits text into chunks. The result is deterministic for a given
// input and configuration. Whitespace-only chunks are dropped.
func (s *CharacterSplitter) SplitText(text string) []string {
	var splits []string
	for _, seg := range strings.Split(text, s.Separator) {
		if seg == "" {
			continue
		}
		if len(seg) <= s.ChunkSize {
			splits = append(splits, seg)
			continue
		}
		// Hard cut: no separator inside the segment to break on.
		step := s.ChunkSize - s.ChunkOverlap
		for start := 0; start < len(seg); start += step {
			end := start + s.ChunkSize
			if end >= len(seg) {
				splits = append(splits, seg[start:])
				break
			}
			splits = append(splits, seg[start:end])
		}
	}
	return s.merge(splits)
}

// merge joins consecutive splits until adding the next one would exceed
// ChunkSize, then closes the chunk and carries forward trailing splits whose
// combined length fits within ChunkOverlap.
func (s *CharacterSplitter) merge(splits []string) []string {
	sepLen := len(s.Separator)

	var chunks []string
	var current []string
	total := 0

	joined := func(extra int) int {
		if len(current) > 0 {
			return total + extra + sepLen
		}
		return total + extra
	}

	for _, d := range splits {
		if joined(len(d)) > s.ChunkSize && len(current) > 0 {
			if c := strings.TrimSpace(strings.Join(current, s.Separator)); c != "" {
				chunks = append(chunks, c)
			}
			for total > s.ChunkOverlap || (joined(len(d)) > s.ChunkSize && total > 0) {
				total -= len(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		if len(current) > 0 {
			total += sepLen
		}
		current = append(current, d)
		total += len(d)
	}
	if len(current) > 0 {
		if c := strings.TrimSpace(strings.Join(current, s.Separator)); c != "" {
			chunks = append(chunks, c)
		}
	}
	return chunks
}
