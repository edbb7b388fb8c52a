package ingest

import (
	"strings"

	"litrag/internal/models"
	"litrag/internal/util"
)

// BuildChunks splits text into word-bounded chunks, section by section, with
// chunk indices running across the whole paper starting at 0.
func BuildChunks(paperID, text string, size, overlap, minWords int) ([]models.Chunk, error) {
	sections := util.SplitSections(text)
	if len(sections) == 0 {
		return nil, nil
	}
	var out []models.Chunk
	for sectionIdx, section := range sections {
		parts, err := util.ChunkWords(section.Text, size, overlap, minWords)
		if err != nil {
			return nil, err
		}
		for _, part := range parts {
			out = append(out, models.Chunk{
				PaperID:      paperID,
				ChunkIndex:   len(out),
				Section:      section.Name,
				SectionIndex: sectionIdx,
				Text:         part,
				WordCount:    len(strings.Fields(part)),
			})
		}
	}
	return out, nil
}
