package ingest

import (
	"regexp"
	"strings"
)

// Default chunking parameters, in characters.
const (
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

var sentenceRe = regexp.MustCompile(`(?s)(.*?[.!?])(?:\s+|$)`)

// splitSentences breaks text into sentences. Trailing text without
// sentence punctuation becomes one final sentence.
func splitSentences(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var sentences []string
	consumed := 0
	for _, m := range sentenceRe.FindAllStringSubmatchIndex(text, -1) {
		s := strings.TrimSpace(text[m[2]:m[3]])
		if s != "" {
			sentences = append(sentences, s)
		}
		consumed = m[1]
	}
	if rest := strings.TrimSpace(text[consumed:]); rest != "" {
		sentences = append(sentences, rest)
	}
	return sentences
}

// ChunkText splits text into chunks of at most chunkSize characters on
// sentence boundaries, with roughly overlap characters of trailing
// context repeated at the start of the next chunk. A single sentence
// longer than chunkSize becomes its own chunk.
func ChunkText(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultChunkOverlap
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	var current []string
	currentLen := 0

	appendChunk := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, strings.Join(current, " "))

		// Carry trailing sentences into the next chunk as overlap.
		var carry []string
		carryLen := 0
		for i := len(current) - 1; i >= 0; i-- {
			sentenceLen := len(current[i]) + 1
			if carryLen+sentenceLen > overlap {
				break
			}
			carry = append([]string{current[i]}, carry...)
			carryLen += sentenceLen
		}
		current = carry
		currentLen = carryLen
	}

	for _, s := range sentences {
		sentenceLen := len(s)
		if currentLen > 0 && currentLen+sentenceLen+1 > chunkSize {
			appendChunk()
		}
		current = append(current, s)
		currentLen += sentenceLen + 1
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}

	// Drop chunks that are pure overlap of the previous one.
	if len(chunks) > 1 {
		last := chunks[len(chunks)-1]
		prev := chunks[len(chunks)-2]
		if strings.HasSuffix(prev, last) {
			chunks = chunks[:len(chunks)-1]
		}
	}

	return chunks
}
