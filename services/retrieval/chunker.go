package retrieval

import "strings"

// SplitDocument cuts a document's content into fixed-size spans, breaking on
// whitespace where possible so words stay intact. Empty spans are dropped.
func SplitDocument(doc Document, chunkSize int) []string {
	if chunkSize <= 0 {
		chunkSize = 500
	}

	content := strings.TrimSpace(doc.Content)
	var chunks []string
	for len(content) > 0 {
		if len(content) <= chunkSize {
			chunks = append(chunks, content)
			break
		}

		cut := chunkSize
		if idx := strings.LastIndexAny(content[:chunkSize], " \t\n"); idx > 0 {
			cut = idx
		}
		piece := strings.TrimSpace(content[:cut])
		if piece != "" {
			chunks = append(chunks, piece)
		}
		content = strings.TrimSpace(content[cut:])
	}
	return chunks
}
