// Package corpus provides read-only access to the ingested ordinance chunk
// collection. Documents are produced by the upstream ingestion pipeline and
// are immutable once loaded; the retrieval core never writes to the corpus.
package corpus

// Document is a single indexed passage unit from a municipal ordinance.
type Document struct {
	// ID uniquely identifies the chunk across the corpus.
	ID string `json:"id"`

	// Text is the raw passage text used for sparse scoring and for the
	// context block handed to the answer generator.
	Text string `json:"text"`

	// Source is the originating ordinance reference, typically the source
	// document filename (e.g. "Ordno-2019-045.pdf").
	Source string `json:"source,omitempty"`

	// Title is a human-readable title derived at ingestion time. May be
	// empty, in which case a title is derived from Source.
	Title string `json:"title,omitempty"`

	// Page is the page number within the source document, zero if unknown.
	Page int `json:"page,omitempty"`

	// ContentType classifies the chunk ("abstract", "section", "table", ...).
	ContentType string `json:"content_type,omitempty"`

	// Chapter is the ordinance chapter reference, if any.
	Chapter string `json:"chapter,omitempty"`

	// URL points at the published source document, if available.
	URL string `json:"url,omitempty"`
}
