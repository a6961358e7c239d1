package chunker

import (
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"
)

func paragraph(word string, runes int) string {
	var b strings.Builder
	for b.Len() < runes {
		b.WriteString(word)
		b.WriteString(" ")
	}
	return strings.TrimSpace(b.String()[:runes])
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		target  int
		overlap int
		wantErr bool
	}{
		{name: "defaults", target: 800, overlap: 80},
		{name: "no overlap", target: 100, overlap: 0},
		{name: "zero target", target: 0, overlap: 0, wantErr: true},
		{name: "overlap too large", target: 100, overlap: 100, wantErr: true},
		{name: "negative overlap", target: 100, overlap: -1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.target, tt.overlap)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestChunker_Chunk_Short(t *testing.T) {
	c := Default()

	if got := c.Chunk("  \n\n "); got != nil {
		t.Errorf("Chunk(whitespace) = %v, want nil", got)
	}

	got := c.Chunk("hello world\n")
	want := []Chunk{{Ordinal: 0, Text: "hello world"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Chunk() = %v, want %v", got, want)
	}
}

func TestChunker_Chunk_Paragraphs(t *testing.T) {
	c := Default()
	paras := []string{paragraph("alpha", 500), paragraph("beta", 500), paragraph("gamma", 500)}

	got := c.Chunk(strings.Join(paras, "\n\n"))
	if len(got) != 3 {
		t.Fatalf("Chunk() returned %d chunks, want 3", len(got))
	}
	for i, ch := range got {
		if ch.Ordinal != i {
			t.Errorf("chunk %d Ordinal = %d", i, ch.Ordinal)
		}
		if ch.Text != paras[i] {
			t.Errorf("chunk %d = %q..., want paragraph %d", i, ch.Text[:20], i)
		}
	}
}

func TestChunker_Chunk_SmallParagraphsMerge(t *testing.T) {
	c := &Chunker{TargetSize: 30, Overlap: 0}

	got := c.Chunk("one two\n\nthree four\n\nfive six seven eight nine")
	want := []string{"one two\n\nthree four", "five six seven eight nine"}
	if len(got) != len(want) {
		t.Fatalf("Chunk() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i].Text != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, got[i].Text, want[i])
		}
	}
}

func TestChunker_Chunk_FixedWidthFallback(t *testing.T) {
	c := Default()
	text := strings.Repeat("x", 2000)

	got := c.Chunk(text)
	if len(got) != 3 {
		t.Fatalf("Chunk() returned %d chunks, want 3", len(got))
	}
	wantLens := []int{800, 800, 560}
	for i, ch := range got {
		if n := utf8.RuneCountInString(ch.Text); n != wantLens[i] {
			t.Errorf("chunk %d length = %d, want %d", i, n, wantLens[i])
		}
	}
}

func TestChunker_Chunk_Overlap(t *testing.T) {
	c := &Chunker{TargetSize: 40, Overlap: 12}
	text := "aaaa bbbb cccc dddd eeee ffff gggg hhhh iiii jjjj kkkk llll mmmm nnnn"

	got := c.Chunk(text)
	if len(got) < 2 {
		t.Fatalf("Chunk() returned %d chunks, want at least 2", len(got))
	}
	for i, ch := range got {
		if n := utf8.RuneCountInString(ch.Text); n > c.TargetSize {
			t.Errorf("chunk %d length %d exceeds target", i, n)
		}
	}
	for i := 1; i < len(got); i++ {
		prevWords := strings.Fields(got[i-1].Text)
		last := prevWords[len(prevWords)-1]
		if !strings.Contains(got[i].Text, last) {
			t.Errorf("chunk %d does not overlap previous chunk: %q / %q", i, got[i-1].Text, got[i].Text)
		}
	}
}

func TestChunker_Chunk_Multibyte(t *testing.T) {
	c := &Chunker{TargetSize: 10, Overlap: 0}
	text := strings.Repeat("日本語", 7)

	for i, ch := range c.Chunk(text) {
		if !utf8.ValidString(ch.Text) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
		if n := utf8.RuneCountInString(ch.Text); n > 10 {
			t.Errorf("chunk %d length = %d runes, want <= 10", i, n)
		}
	}
}

func TestChunker_Chunk_Deterministic(t *testing.T) {
	c := Default()
	text := strings.Join([]string{paragraph("one", 900), paragraph("two", 300), "Short. Sentences. Here."}, "\n\n")

	if a, b := c.Chunk(text), c.Chunk(text); !reflect.DeepEqual(a, b) {
		t.Error("Chunk() is not deterministic")
	}
}

func TestChunker_Chunk_EditChangesOneChunk(t *testing.T) {
	c := Default()
	paras := []string{paragraph("alpha", 500), paragraph("beta", 500), paragraph("gamma", 500), paragraph("delta", 500)}
	before := c.Chunk(strings.Join(paras, "\n\n"))

	paras[2] = paragraph("omega", 450)
	after := c.Chunk(strings.Join(paras, "\n\n"))

	if len(before) != len(after) {
		t.Fatalf("chunk count changed: %d -> %d", len(before), len(after))
	}
	changed := 0
	for i := range before {
		if before[i].Text != after[i].Text {
			changed++
		}
	}
	if changed != 1 {
		t.Errorf("changed chunks = %d, want 1", changed)
	}
}

func TestChunker_Signature(t *testing.T) {
	if got := Default().Signature(); got != "recursive-800-80" {
		t.Errorf("Signature() = %q", got)
	}
}
