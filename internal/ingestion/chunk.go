package ingestion

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// chunk splits text into chunks of at most cfg.ChunkSize runes made of
// whole sentences. Consecutive chunks share trailing sentences totalling at
// most cfg.ChunkOverlap runes. A sentence longer than ChunkSize is cut with
// a fixed window on rune boundaries.
func (p *Pipeline) chunk(text string) []string {
	return chunkText(text, p.cfg.ChunkSize, p.cfg.ChunkOverlap)
}

func chunkText(text string, size, overlap int) []string {
	var (
		chunks  []string
		current []string
		// fresh is set while current holds sentences not yet emitted.
		fresh bool
	)
	emit := func() {
		if fresh {
			chunks = append(chunks, strings.Join(current, " "))
			fresh = false
		}
	}

	for _, s := range splitSentences(text) {
		n := utf8.RuneCountInString(s)
		if n > size {
			emit()
			current = nil
			chunks = append(chunks, windowSplit(s, size, overlap)...)
			continue
		}
		if len(current) > 0 && joinedLen(current)+1+n > size {
			emit()
			current = tailWithin(current, overlap)
			for len(current) > 0 && joinedLen(current)+1+n > size {
				current = current[1:]
			}
		}
		current = append(current, s)
		fresh = true
	}
	emit()
	return chunks
}

// tailWithin returns the trailing sentences of ss whose joined rune length is
// at most limit.
func tailWithin(ss []string, limit int) []string {
	total := 0
	start := len(ss)
	for i := len(ss) - 1; i >= 0; i-- {
		add := utf8.RuneCountInString(ss[i])
		if total > 0 {
			add++
		}
		if total+add > limit {
			break
		}
		total += add
		start = i
	}
	out := make([]string, len(ss)-start)
	copy(out, ss[start:])
	return out
}

// joinedLen is the rune count of strings.Join(ss, " ").
func joinedLen(ss []string) int {
	if len(ss) == 0 {
		return 0
	}
	n := len(ss) - 1
	for _, s := range ss {
		n += utf8.RuneCountInString(s)
	}
	return n
}

// windowSplit cuts s into fixed windows of size runes with overlap.
func windowSplit(s string, size, overlap int) []string {
	runes := []rune(s)
	var out []string
	for start := 0; start < len(runes); start += size - overlap {
		end := min(start+size, len(runes))
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}

// splitSentences breaks text on sentence-ending punctuation followed by
// whitespace, and on blank lines. Whitespace inside a sentence is collapsed.
func splitSentences(text string) []string {
	var (
		out []string
		b   strings.Builder
	)
	emit := func() {
		if s := strings.Join(strings.Fields(b.String()), " "); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}

	runes := []rune(text)
	for i, r := range runes {
		b.WriteRune(r)
		var next rune
		if i+1 < len(runes) {
			next = runes[i+1]
		}
		switch {
		case (r == '.' || r == '?' || r == '!' || r == ';') && (next == 0 || unicode.IsSpace(next)):
			emit()
		case r == '\n' && next == '\n':
			emit()
		}
	}
	emit()
	return out
}
