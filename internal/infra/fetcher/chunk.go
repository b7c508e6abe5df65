package fetcher

import (
	"strings"
	"unicode/utf8"
)

// Chunking defaults for PDF text. Chunks of about 1000 characters with 200
// characters of overlap keep sentence context intact across boundaries when
// the chunks are later concatenated for the summary prompt.
const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// defaultSeparators is the boundary preference order: paragraph break, line
// break, word break, then hard character split as the last resort.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter splits text into overlapping chunks, preferring natural boundaries.
// It recursively descends the separator list: a piece still larger than
// ChunkSize after splitting on one separator is re-split on the next, and
// small pieces are merged back together up to ChunkSize with Overlap
// characters carried between consecutive chunks. Lengths are counted in runes.
type Splitter struct {
	ChunkSize  int
	Overlap    int
	Separators []string
}

// NewSplitter creates a Splitter with the given chunk size and overlap.
// Non-positive sizes fall back to the defaults, and the overlap is clamped
// below the chunk size.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return &Splitter{
		ChunkSize:  chunkSize,
		Overlap:    overlap,
		Separators: defaultSeparators,
	}
}

// Split splits text into chunks.
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return s.splitRecursive(text, s.Separators)
}

func (s *Splitter) splitRecursive(text string, separators []string) []string {
	// Pick the first separator that appears in the text; "" means a hard
	// character-level split.
	sep := separators[len(separators)-1]
	var remaining []string
	for i, candidate := range separators {
		if candidate == "" {
			sep = ""
			remaining = nil
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			remaining = separators[i+1:]
			break
		}
	}

	if sep == "" {
		return s.windows(text)
	}

	var chunks []string
	var pending []string
	for _, piece := range strings.Split(text, sep) {
		if utf8.RuneCountInString(piece) < s.ChunkSize {
			pending = append(pending, piece)
			continue
		}
		// Oversized piece: flush what we have, then split it finer.
		if len(pending) > 0 {
			chunks = append(chunks, s.mergeSplits(pending, sep)...)
			pending = nil
		}
		if len(remaining) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, s.splitRecursive(piece, remaining)...)
		}
	}
	if len(pending) > 0 {
		chunks = append(chunks, s.mergeSplits(pending, sep)...)
	}
	return chunks
}

// mergeSplits packs small pieces into chunks up to ChunkSize, carrying the
// last Overlap characters' worth of pieces into the next chunk.
func (s *Splitter) mergeSplits(splits []string, sep string) []string {
	sepLen := utf8.RuneCountInString(sep)

	var chunks []string
	var current []string
	total := 0

	for _, piece := range splits {
		pieceLen := utf8.RuneCountInString(piece)

		join := 0
		if len(current) > 0 {
			join = sepLen
		}
		if total+pieceLen+join > s.ChunkSize && len(current) > 0 {
			if chunk := joinPieces(current, sep); chunk != "" {
				chunks = append(chunks, chunk)
			}
			// 先頭から捨てて、重なり分だけ残して次のチャンクへ繰り越す
			for len(current) > 0 && (total > s.Overlap ||
				(total+pieceLen+sepIfNonEmpty(current, sepLen) > s.ChunkSize && total > 0)) {
				total -= utf8.RuneCountInString(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}

		current = append(current, piece)
		total += pieceLen
		if len(current) > 1 {
			total += sepLen
		}
	}

	if chunk := joinPieces(current, sep); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// windows emits fixed-width rune windows stepping ChunkSize-Overlap at a time.
// Used when no separator is left to split on.
func (s *Splitter) windows(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := s.ChunkSize - s.Overlap
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + s.ChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		if w := strings.TrimSpace(string(runes[start:end])); w != "" {
			chunks = append(chunks, w)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

func joinPieces(pieces []string, sep string) string {
	return strings.TrimSpace(strings.Join(pieces, sep))
}

func sepIfNonEmpty(pieces []string, sepLen int) int {
	if len(pieces) > 0 {
		return sepLen
	}
	return 0
}
