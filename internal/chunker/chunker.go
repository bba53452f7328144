// Package chunker splits extracted document text into bounded, overlapping,
// boundary-aware chunks for embedding and retrieval. It is a pure text
// transform: it persists nothing and assigns chunk indexes in emission order.
package chunker

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
)

// Options configures the chunking behaviour.
type Options struct {
	// TargetSize is the window size in characters
	TargetSize int

	// Overlap is the character overlap between consecutive windows.
	// Must be strictly smaller than TargetSize.
	Overlap int

	// MinChunkSize is the smallest chunk worth emitting; trimmed
	// fragments below this are dropped
	MinChunkSize int

	// PreserveStructure partitions the text into sections on structural
	// markers before windowing
	PreserveStructure bool
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() Options {
	return Options{
		TargetSize:        1000,
		Overlap:           200,
		MinChunkSize:      100,
		PreserveStructure: true,
	}
}

// Chunk is one emitted span of document content.
type Chunk struct {
	Index int
	Text  string

	// Start and End are absolute character offsets into the input text.
	// For structured chunks (tables, images) they are zero.
	Start int
	End   int

	WordCount     int
	SentenceCount int

	Type         domain.ChunkType
	Section      string
	SectionTitle string
}

const (
	sectionContent = "content"
	sectionHeader  = "section_header"
)

// Sentence boundaries: terminator followed by whitespace.
var sentenceEnding = regexp.MustCompile(`[.!?;:]\s+`)

// endsWithTerminator matches text that already closes a sentence.
var endsWithTerminator = regexp.MustCompile(`[.!?]\s*$`)

// Structural markers found in technical documents. A match opens a new
// section; the text between markers is a content section.
var sectionMarkers = []*regexp.Regexp{
	regexp.MustCompile(`(?mi)\n\s*SECTION\s+\d+`),
	regexp.MustCompile(`(?mi)\n\s*CHAPTER\s+\d+`),
	regexp.MustCompile(`(?mi)\n\s*APPENDIX\s+[A-Z]`),
	regexp.MustCompile(`(?mi)\n\s*TABLE\s+\d+`),
	regexp.MustCompile(`(?mi)\n\s*FIGURE\s+\d+`),
	regexp.MustCompile(`(?mi)\n\s*PROCEDURE\s+\d+`),
	regexp.MustCompile(`(?mi)\n\s*STEP\s+\d+`),
}

var sectionTitle = regexp.MustCompile(`(?i)(?:SECTION|CHAPTER|APPENDIX)\s+([^\n]+)`)

// boundaryLookback is how far back from the window end the sentence
// boundary search reaches.
const boundaryLookback = 200

// Chunker splits text into chunks according to its Options.
type Chunker struct {
	opts Options
}

// New validates the options and creates a Chunker.
// Overlap >= TargetSize would stall the window, so it is rejected
// eagerly rather than clamped.
func New(opts Options) (*Chunker, error) {
	if opts.TargetSize <= 0 {
		return nil, fmt.Errorf("%w: target size must be positive, got %d", domain.ErrConfiguration, opts.TargetSize)
	}
	if opts.Overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", domain.ErrConfiguration, opts.Overlap)
	}
	if opts.Overlap >= opts.TargetSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than target size %d", domain.ErrConfiguration, opts.Overlap, opts.TargetSize)
	}
	if opts.MinChunkSize <= 0 {
		opts.MinChunkSize = DefaultOptions().MinChunkSize
	}
	return &Chunker{opts: opts}, nil
}

// Chunk splits text into ordered chunks. Empty or whitespace-only input
// yields an empty list.
func (c *Chunker) Chunk(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []Chunk
	if c.opts.PreserveStructure {
		for _, sec := range identifySections(text, c.opts.MinChunkSize) {
			secChunks := c.chunkWindow(text[sec.start:sec.end], sec.kind, sec.title)
			// Rebase section-relative offsets to the full document
			for i := range secChunks {
				secChunks[i].Start += sec.start
				secChunks[i].End += sec.start
			}
			chunks = append(chunks, secChunks...)
		}
	} else {
		chunks = c.chunkWindow(text, sectionContent, "")
	}

	for i := range chunks {
		finishChunk(&chunks[i], i)
	}
	return chunks
}

// chunkWindow slides a TargetSize window over the text, snapping the cut
// to the last sentence boundary within the lookback distance.
func (c *Chunker) chunkWindow(text, section, title string) []Chunk {
	var chunks []Chunk
	pos := 0
	prevStart := -1

	for pos < len(text) {
		end := pos + c.opts.TargetSize
		if end > len(text) {
			end = len(text)
		}
		if end < len(text) {
			end = c.findSentenceBoundary(text, pos, end)
		}

		trimmed := strings.TrimSpace(text[pos:end])
		if len(trimmed) >= c.opts.MinChunkSize {
			chunks = append(chunks, Chunk{
				Text:    trimmed,
				Start:   pos,
				End:     end,
				Type:    domain.ChunkTypeText,
				Section: section,

				SectionTitle: title,
			})
			prevStart = pos
		}

		next := pos + c.opts.TargetSize - c.opts.Overlap
		if end > next {
			next = end
		}
		// Guard against a window that fails to advance
		if next <= prevStart || next <= pos {
			next = pos + c.opts.TargetSize/2
			if next <= pos {
				next = pos + 1
			}
		}
		pos = next
	}

	return chunks
}

// findSentenceBoundary searches backward from preferredEnd for the last
// sentence-ending pattern. The boundary is used only when it lands past
// MinChunkSize into the window; otherwise the raw offset stands.
func (c *Chunker) findSentenceBoundary(text string, start, preferredEnd int) int {
	searchStart := preferredEnd - boundaryLookback
	if searchStart < start {
		searchStart = start
	}

	matches := sentenceEnding.FindAllStringIndex(text[searchStart:preferredEnd], -1)
	if len(matches) == 0 {
		return preferredEnd
	}
	boundary := searchStart + matches[len(matches)-1][1]
	if boundary > start+c.opts.MinChunkSize {
		return boundary
	}
	return preferredEnd
}

// section is a structural partition of the input text.
type section struct {
	start, end int
	kind       string
	title      string
}

// identifySections partitions text on structural markers. Content
// sections smaller than minSize are merged into the previous section so
// a stray blank line cannot produce a degenerate micro-section.
func identifySections(text string, minSize int) []section {
	var markers [][]int
	for _, re := range sectionMarkers {
		markers = append(markers, re.FindAllStringIndex(text, -1)...)
	}
	if len(markers) == 0 {
		return []section{{start: 0, end: len(text), kind: sectionContent}}
	}

	// Order markers by position and drop overlaps
	sortMarkers(markers)
	var sections []section
	pos := 0
	for _, m := range markers {
		if m[0] < pos {
			continue
		}
		if m[0] > pos {
			sections = append(sections, section{start: pos, end: m[0], kind: sectionContent})
		}
		sections = append(sections, section{
			start: m[0],
			end:   m[1],
			kind:  sectionHeader,
			title: extractTitle(text, m[0]),
		})
		pos = m[1]
	}
	if pos < len(text) {
		sections = append(sections, section{start: pos, end: len(text), kind: sectionContent})
	}

	// Merge small content sections into their predecessor
	merged := sections[:0]
	for _, s := range sections {
		if s.kind == sectionContent && s.end-s.start < minSize && len(merged) > 0 {
			merged[len(merged)-1].end = s.end
			continue
		}
		merged = append(merged, s)
	}

	// A header marker is only a few characters, so its title would be
	// lost with it. Carry it onto the body that follows.
	for i := 0; i < len(merged)-1; i++ {
		if merged[i].kind == sectionHeader && merged[i+1].title == "" {
			merged[i+1].title = merged[i].title
		}
	}
	return merged
}

func sortMarkers(markers [][]int) {
	for i := 1; i < len(markers); i++ {
		for j := i; j > 0 && markers[j][0] < markers[j-1][0]; j-- {
			markers[j], markers[j-1] = markers[j-1], markers[j]
		}
	}
}

func extractTitle(text string, markerStart int) string {
	end := markerStart + 100
	if end > len(text) {
		end = len(text)
	}
	m := sectionTitle.FindStringSubmatch(text[markerStart:end])
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// finishChunk assigns the emission-order index and derived counts.
func finishChunk(ch *Chunk, index int) {
	ch.Index = index
	ch.WordCount = len(strings.Fields(ch.Text))
	ch.SentenceCount = countSentences(ch.Text)
}

// countSentences approximates the sentence count by terminator matches,
// counting an unterminated trailing sentence as one.
func countSentences(text string) int {
	n := len(sentenceEnding.FindAllString(text, -1))
	if text != "" && !endsWithTerminator.MatchString(text) {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}
