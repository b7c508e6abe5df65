package fetcher_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"rfp-radar/internal/infra/fetcher"
)

func TestSplit_ShortTextSingleChunk(t *testing.T) {
	s := fetcher.NewSplitter(1000, 200)

	chunks := s.Split("A short RFP notice.")
	if len(chunks) != 1 {
		t.Fatalf("len(chunks) = %d, want 1", len(chunks))
	}
	if chunks[0] != "A short RFP notice." {
		t.Errorf("chunks[0] = %q", chunks[0])
	}
}

func TestSplit_EmptyAndWhitespace(t *testing.T) {
	s := fetcher.NewSplitter(1000, 200)

	if chunks := s.Split(""); chunks != nil {
		t.Errorf("Split(\"\") = %v, want nil", chunks)
	}
	if chunks := s.Split("   \n\n  "); chunks != nil {
		t.Errorf("whitespace-only input = %v, want nil", chunks)
	}
}

func TestSplit_WordBoundariesWithOverlap(t *testing.T) {
	s := fetcher.NewSplitter(10, 3)

	chunks := s.Split("one two three four five six")

	want := []string{"one two", "two three", "four five", "six"}
	if len(chunks) != len(want) {
		t.Fatalf("chunks = %q, want %q", chunks, want)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunks[%d] = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestSplit_PrefersParagraphBoundaries(t *testing.T) {
	text := "First paragraph about the project scope.\n\nSecond paragraph about the deadline.\n\nThird paragraph about submission."
	s := fetcher.NewSplitter(60, 10)

	chunks := s.Split(text)

	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %q", chunks)
	}
	// 段落単位で切れていること（段落の途中で切らない）
	for _, c := range chunks {
		if strings.Contains(c, "\n\n") && utf8.RuneCountInString(c) > 60 {
			t.Errorf("chunk crosses paragraphs beyond size: %q", c)
		}
	}
	if chunks[0] != "First paragraph about the project scope." {
		t.Errorf("chunks[0] = %q", chunks[0])
	}
}

func TestSplit_ChunksNeverExceedSize(t *testing.T) {
	// 長文でも各チャンクは ChunkSize 以下に収まる
	text := strings.Repeat("The agency seeks proposals for a healthcare claims system. ", 200)
	s := fetcher.NewSplitter(1000, 200)

	chunks := s.Split(text)
	if len(chunks) < 5 {
		t.Fatalf("expected many chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if n := utf8.RuneCountInString(c); n > 1000 {
			t.Errorf("chunks[%d] has %d runes, want <= 1000", i, n)
		}
	}
}

func TestSplit_HardSplitWithoutSeparators(t *testing.T) {
	// 区切り文字の無い連続文字列はウィンドウ分割に落ちる
	text := strings.Repeat("x", 25)
	s := fetcher.NewSplitter(10, 2)

	chunks := s.Split(text)

	want := []string{
		strings.Repeat("x", 10), // [0,10)
		strings.Repeat("x", 10), // [8,18)
		strings.Repeat("x", 10), // [16,25) -> 9 runes
	}
	want[2] = strings.Repeat("x", 9)
	if len(chunks) != len(want) {
		t.Fatalf("chunks = %v, want %v", chunks, want)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunks[%d] = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestSplit_MultibyteRunesNotBroken(t *testing.T) {
	text := strings.Repeat("医療情報システム", 10) // 80 runes, 240 bytes
	s := fetcher.NewSplitter(30, 5)

	chunks := s.Split(text)
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunks[%d] is not valid UTF-8", i)
		}
		if n := utf8.RuneCountInString(c); n > 30 {
			t.Errorf("chunks[%d] has %d runes, want <= 30", i, n)
		}
	}
}

func TestNewSplitter_NormalizesArguments(t *testing.T) {
	s := fetcher.NewSplitter(0, 0)
	if s.ChunkSize != fetcher.DefaultChunkSize {
		t.Errorf("ChunkSize = %d, want %d", s.ChunkSize, fetcher.DefaultChunkSize)
	}

	// overlap >= size はサイズの 1/5 に丸める
	s = fetcher.NewSplitter(100, 150)
	if s.Overlap != 20 {
		t.Errorf("Overlap = %d, want 20", s.Overlap)
	}
}
