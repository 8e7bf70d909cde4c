package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

// chunkRecord is the on-disk shape written by the ingestion pipeline:
// one JSON object per line with the passage text and a metadata envelope.
type chunkRecord struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	Metadata struct {
		Source      string `json:"source"`
		Title       string `json:"title"`
		Page        int    `json:"page"`
		ContentType string `json:"content_type"`
		Chapter     string `json:"chapter"`
		URL         string `json:"url"`
	} `json:"metadata"`
}

// LoadJSONL reads ingested ordinance chunks from a JSON-lines file.
// Blank lines are skipped. Returns ErrEmptyCorpus if no documents were read
// and ErrDuplicateID if two chunks share an identifier.
func LoadJSONL(path string) ([]*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening corpus file: %w", err)
	}
	defer f.Close()

	return ReadJSONL(f)
}

// ReadJSONL decodes ingested chunks from r. See LoadJSONL.
func ReadJSONL(r io.Reader) ([]*Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var docs []*Document
	seen := make(map[string]struct{})
	line := 0

	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var rec chunkRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decoding corpus line %d: %w", line, err)
		}
		if rec.ID == "" {
			return nil, fmt.Errorf("corpus line %d: missing document id", line)
		}
		if _, dup := seen[rec.ID]; dup {
			return nil, fmt.Errorf("corpus line %d: %w: %s", line, ErrDuplicateID, rec.ID)
		}
		seen[rec.ID] = struct{}{}

		docs = append(docs, &Document{
			ID:          rec.ID,
			Text:        rec.Text,
			Source:      rec.Metadata.Source,
			Title:       rec.Metadata.Title,
			Page:        rec.Metadata.Page,
			ContentType: rec.Metadata.ContentType,
			Chapter:     rec.Metadata.Chapter,
			URL:         rec.Metadata.URL,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading corpus: %w", err)
	}

	if len(docs) == 0 {
		return nil, ErrEmptyCorpus
	}

	return docs, nil
}
