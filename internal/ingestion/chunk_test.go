package ingestion

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSentences(t *testing.T) {
	t.Parallel()
	got := splitSentences("The tenant shall pay rent.  Is it due?\nYes! Section 4.2 applies;  see below\n\nNew   paragraph")
	want := []string{
		"The tenant shall pay rent.",
		"Is it due?",
		"Yes!",
		"Section 4.2 applies;",
		"see below",
		"New paragraph",
	}
	assert.Equal(t, want, got)
}

func TestChunkText(t *testing.T) {
	t.Parallel()

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, chunkText("   ", 100, 10))
	})

	t.Run("fits in one chunk", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, []string{"One. Two."}, chunkText("One.\nTwo.", 100, 10))
	})

	t.Run("sentence boundaries without overlap", func(t *testing.T) {
		t.Parallel()
		// each sentence is 10 characters
		text := "Aaaaaaaaa. Bbbbbbbbb. Ccccccccc. Ddddddddd."
		got := chunkText(text, 21, 0)
		assert.Equal(t, []string{"Aaaaaaaaa. Bbbbbbbbb.", "Ccccccccc. Ddddddddd."}, got)
	})

	t.Run("overlap carries trailing sentence", func(t *testing.T) {
		t.Parallel()
		text := "Aaaaaaaaa. Bbbbbbbbb. Ccccccccc. Ddddddddd."
		got := chunkText(text, 32, 10)
		assert.Equal(t, []string{
			"Aaaaaaaaa. Bbbbbbbbb. Ccccccccc.",
			"Ccccccccc. Ddddddddd.",
		}, got)
	})

	t.Run("long sentence is windowed", func(t *testing.T) {
		t.Parallel()
		long := strings.Repeat("x", 25) + "."
		got := chunkText("Short. "+long+" Tail.", 10, 2)
		require.GreaterOrEqual(t, len(got), 4)
		assert.Equal(t, "Short.", got[0])
		assert.Equal(t, "Tail.", got[len(got)-1])
		for _, c := range got {
			assert.LessOrEqual(t, len(c), 10)
		}
	})

	t.Run("multi-byte runes are never split", func(t *testing.T) {
		t.Parallel()
		text := "Tenant invoked " + strings.Repeat("§§ ", 60)
		got := chunkText(text, 101, 10)
		require.Len(t, got, 3)
		for i, c := range got {
			assert.True(t, utf8.ValidString(c), "chunk %d is not valid UTF-8: %q", i, c)
			assert.LessOrEqual(t, utf8.RuneCountInString(c), 101)
		}
		assert.True(t, strings.HasPrefix(got[0], "Tenant invoked §§"))
	})

	t.Run("size counts runes not bytes", func(t *testing.T) {
		t.Parallel()
		// 19 runes and 23 bytes per sentence
		text := "Árbitro José Núñez. Árbitro José Núñez."
		assert.Equal(t, []string{text}, chunkText(text, 40, 0))
	})

	t.Run("no chunk exceeds size", func(t *testing.T) {
		t.Parallel()
		text := strings.Repeat("The court held that the statute applied. Damages were awarded! ", 30)
		for _, c := range chunkText(text, 120, 40) {
			assert.LessOrEqual(t, len(c), 120)
			assert.NotEmpty(t, c)
		}
	})
}
