package chunker

import (
	"fmt"
	"strings"

	"github.com/docflow-labs/docflow-core/internal/core/domain"
)

// Table is extracted tabular content.
type Table struct {
	Caption string     `json:"caption,omitempty"`
	Rows    [][]string `json:"rows"`
}

// Image is an extracted image reference; only the caption is chunkable.
type Image struct {
	Caption string `json:"caption,omitempty"`
}

// Element is a heading or outline entry from the document structure.
type Element struct {
	Type  string `json:"type"`
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// StructuredContent bundles the non-prose content a parser extracted.
type StructuredContent struct {
	Tables   []Table   `json:"tables,omitempty"`
	Images   []Image   `json:"images,omitempty"`
	Elements []Element `json:"elements,omitempty"`
}

// IsEmpty reports whether there is nothing to chunk.
func (s StructuredContent) IsEmpty() bool {
	return len(s.Tables) == 0 && len(s.Images) == 0 && len(s.Elements) == 0
}

// ChunkTable emits one chunk per table row (cells pipe-joined), preceded
// by a caption header chunk when a caption exists. Rows are atomic, so
// the sentence-boundary logic does not apply.
func (c *Chunker) ChunkTable(rows [][]string, caption string) []Chunk {
	if len(rows) == 0 {
		return nil
	}

	var chunks []Chunk
	if caption != "" {
		chunks = append(chunks, Chunk{
			Text:         "Table: " + caption,
			Type:         domain.ChunkTypeTable,
			Section:      "table_header",
			SectionTitle: caption,
		})
	}

	for _, row := range rows {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			if cell != "" {
				cells = append(cells, cell)
			}
		}
		text := strings.Join(cells, " | ")
		if strings.TrimSpace(text) == "" {
			continue
		}
		chunks = append(chunks, Chunk{
			Text:         text,
			Type:         domain.ChunkTypeTable,
			Section:      "table_row",
			SectionTitle: caption,
		})
	}
	return chunks
}

// ChunkStructured chunks tables, image descriptions and structure
// elements. Indexes are assigned in emission order, continuing from
// startIndex so callers can append these after the text chunks.
func (c *Chunker) ChunkStructured(content StructuredContent, startIndex int) []Chunk {
	var chunks []Chunk

	for _, table := range content.Tables {
		chunks = append(chunks, c.ChunkTable(table.Rows, table.Caption)...)
	}

	for i, img := range content.Images {
		caption := img.Caption
		if caption == "" {
			caption = "No caption available"
		}
		chunks = append(chunks, Chunk{
			Text:         fmt.Sprintf("Image %d: %s", i+1, caption),
			Type:         domain.ChunkTypeImage,
			Section:      "image_description",
			SectionTitle: img.Caption,
		})
	}

	for _, el := range content.Elements {
		if el.Text == "" {
			continue
		}
		kind := el.Type
		if kind == "" {
			kind = "unknown"
		}
		chunks = append(chunks, Chunk{
			Text:    el.Text,
			Type:    domain.ChunkTypeStructure,
			Section: "structure_" + kind,
		})
	}

	for i := range chunks {
		finishChunk(&chunks[i], startIndex+i)
	}
	return chunks
}

// Stats summarizes a chunking run.
type Stats struct {
	TotalChunks      int            `json:"total_chunks"`
	TotalCharacters  int            `json:"total_characters"`
	TotalWords       int            `json:"total_words"`
	AverageChunkSize float64        `json:"average_chunk_size"`
	AverageWordCount float64        `json:"average_word_count"`
	MinChunkSize     int            `json:"min_chunk_size"`
	MaxChunkSize     int            `json:"max_chunk_size"`
	ByType           map[string]int `json:"by_type"`
}

// Statistics aggregates counts over a chunking run's output.
func Statistics(chunks []Chunk) Stats {
	if len(chunks) == 0 {
		return Stats{}
	}

	stats := Stats{
		TotalChunks:  len(chunks),
		MinChunkSize: len(chunks[0].Text),
		ByType:       make(map[string]int),
	}
	for _, ch := range chunks {
		size := len(ch.Text)
		stats.TotalCharacters += size
		stats.TotalWords += ch.WordCount
		if size < stats.MinChunkSize {
			stats.MinChunkSize = size
		}
		if size > stats.MaxChunkSize {
			stats.MaxChunkSize = size
		}
		stats.ByType[string(ch.Type)]++
	}
	stats.AverageChunkSize = float64(stats.TotalCharacters) / float64(len(chunks))
	stats.AverageWordCount = float64(stats.TotalWords) / float64(len(chunks))
	return stats
}
