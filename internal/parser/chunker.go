package parser

import (
	"strings"
	"unicode"
)

// Chunk is one embeddable piece of a document.
type Chunk struct {
	Content     string
	Position    int
	HeadingPath string // Section context
}

// ChunkOptions defines chunking parameters.
type ChunkOptions struct {
	// Threshold: only chunk if content exceeds this length
	Threshold int
	// TargetSize: ideal chunk size
	TargetSize int
	// MinSize: minimum chunk size (smaller chunks merge with neighbors)
	MinSize int
	// MaxSize: maximum chunk size (larger chunks split at sentences)
	MaxSize int
	// Overlap: character overlap between chunks
	Overlap int
}

// DefaultChunkOptions returns sensible defaults (~1000-char chunks).
func DefaultChunkOptions() ChunkOptions {
	return NewChunkOptions(1000, 200)
}

// NewChunkOptions derives chunking parameters from a requested chunk size
// and overlap, as supplied by batch-embed task parameters.
func NewChunkOptions(chunkSize, overlap int) ChunkOptions {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = chunkSize / 5
	}
	return ChunkOptions{
		Threshold:  chunkSize + chunkSize/2,
		TargetSize: chunkSize * 3 / 4,
		MinSize:    chunkSize / 5,
		MaxSize:    chunkSize,
		Overlap:    overlap,
	}
}

// ShouldChunk returns true if content should be chunked.
func ShouldChunk(content string, opts ChunkOptions) bool {
	return len(content) > opts.Threshold
}

// ChunkMarkdown splits Markdown content into semantic chunks.
// Prioritizes section boundaries, then paragraph boundaries.
func ChunkMarkdown(doc *MarkdownDoc, opts ChunkOptions) []Chunk {
	// Nothing to embed
	if strings.TrimSpace(doc.Content) == "" {
		return nil
	}

	// Short content stays whole
	if !ShouldChunk(doc.Content, opts) {
		return []Chunk{{
			Content:     doc.Content,
			Position:    0,
			HeadingPath: "",
		}}
	}

	if len(doc.Sections) > 0 {
		return chunkBySections(doc.Sections, opts)
	}

	return chunkByParagraphs(doc.Content, opts)
}

// chunkBySections creates chunks from document sections.
func chunkBySections(sections []Section, opts ChunkOptions) []Chunk {
	var chunks []Chunk
	position := 0

	for _, section := range sections {
		// Headings with no body produce nothing to embed
		if strings.TrimSpace(section.Content) == "" {
			continue
		}

		if len(section.Content) <= opts.MaxSize {
			if len(section.Content) >= opts.MinSize || len(chunks) == 0 {
				chunks = append(chunks, Chunk{
					Content:     section.Content,
					Position:    position,
					HeadingPath: section.Path,
				})
				position++
			} else if len(chunks) > 0 {
				// Merge tiny section with previous
				lastChunk := &chunks[len(chunks)-1]
				lastChunk.Content += "\n\n" + section.Content
			}
			continue
		}

		// Large section: split into paragraphs
		paragraphChunks := chunkByParagraphs(section.Content, opts)
		for _, pc := range paragraphChunks {
			chunks = append(chunks, Chunk{
				Content:     pc.Content,
				Position:    position,
				HeadingPath: section.Path,
			})
			position++
		}
	}

	return applyOverlap(chunks, opts.Overlap)
}

// chunkByParagraphs splits content by paragraph boundaries.
func chunkByParagraphs(content string, opts ChunkOptions) []Chunk {
	paragraphs := strings.Split(content, "\n\n")

	var chunks []Chunk
	var currentChunk strings.Builder
	position := 0

	for _, para := range paragraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		// If adding this paragraph would exceed max, flush current chunk
		if currentChunk.Len()+len(para) > opts.MaxSize && currentChunk.Len() > 0 {
			chunks = append(chunks, Chunk{
				Content:  strings.TrimSpace(currentChunk.String()),
				Position: position,
			})
			position++
			currentChunk.Reset()
		}

		// If a single paragraph exceeds max, split by sentences
		if len(para) > opts.MaxSize {
			if currentChunk.Len() > 0 {
				chunks = append(chunks, Chunk{
					Content:  strings.TrimSpace(currentChunk.String()),
					Position: position,
				})
				position++
				currentChunk.Reset()
			}

			for _, sc := range chunkBySentences(para, opts) {
				chunks = append(chunks, Chunk{
					Content:  sc,
					Position: position,
				})
				position++
			}
			continue
		}

		if currentChunk.Len() > 0 {
			currentChunk.WriteString("\n\n")
		}
		currentChunk.WriteString(para)
	}

	if currentChunk.Len() > 0 {
		chunks = append(chunks, Chunk{
			Content:  strings.TrimSpace(currentChunk.String()),
			Position: position,
		})
	}

	return chunks
}

// chunkBySentences splits text by sentence boundaries.
func chunkBySentences(text string, opts ChunkOptions) []string {
	sentences := splitSentences(text)

	var chunks []string
	var currentChunk strings.Builder

	for _, sentence := range sentences {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if currentChunk.Len()+len(sentence) > opts.TargetSize && currentChunk.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(currentChunk.String()))
			currentChunk.Reset()
		}

		if currentChunk.Len() > 0 {
			currentChunk.WriteString(" ")
		}
		currentChunk.WriteString(sentence)
	}

	if currentChunk.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(currentChunk.String()))
	}

	return chunks
}

// splitSentences splits text into sentences.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		current.WriteRune(r)

		if r == '.' || r == '!' || r == '?' {
			// Look ahead for space or end
			if i+1 >= len(runes) || unicode.IsSpace(runes[i+1]) {
				// Not an abbreviation (simple heuristic)
				if i > 1 && unicode.IsUpper(runes[i-1]) {
					continue // Likely abbreviation like "Dr."
				}
				sentences = append(sentences, current.String())
				current.Reset()
			}
		}
	}

	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}

	return sentences
}

// applyOverlap adds overlap between adjacent chunks.
func applyOverlap(chunks []Chunk, overlap int) []Chunk {
	if overlap <= 0 || len(chunks) <= 1 {
		return chunks
	}

	result := make([]Chunk, len(chunks))
	copy(result, chunks)

	for i := 1; i < len(result); i++ {
		prevContent := result[i-1].Content
		if len(prevContent) > overlap {
			// Take the tail of the previous chunk, snapped to a sentence
			// boundary when one falls in the window, else a word boundary.
			overlapText := prevContent[len(prevContent)-overlap:]
			if idx := lastSentenceEnd(overlapText); idx >= 0 {
				overlapText = strings.TrimSpace(overlapText[idx+1:])
			} else if spaceIdx := strings.Index(overlapText, " "); spaceIdx >= 0 {
				overlapText = overlapText[spaceIdx+1:]
			}
			if overlapText != "" {
				result[i].Content = overlapText + " " + result[i].Content
			}
		}
	}

	return result
}

// lastSentenceEnd returns the index of the last sentence-ending punctuation
// that is followed by whitespace, or -1 if none exists.
func lastSentenceEnd(text string) int {
	runes := []rune(text)
	byteIdx := len(text)
	for i := len(runes) - 1; i >= 0; i-- {
		byteIdx -= len(string(runes[i]))
		r := runes[i]
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			return byteIdx
		}
	}
	return -1
}
