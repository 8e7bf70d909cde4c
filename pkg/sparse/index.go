package sparse

import (
	"sort"

	"github.com/civitaslabs/ordina/pkg/corpus"
)

// Index is an immutable inverted index over one snapshot of the corpus,
// together with the global statistics the BM25 formula needs. Build a new
// Index and swap it in rather than mutating one in place.
type Index struct {
	postings  map[string]PostingList
	docLength map[string]int
	docCount  int
	avgDocLen float64
}

// Stats describes an index snapshot for operational endpoints.
type Stats struct {
	Documents int     `json:"documents"`
	Terms     int     `json:"terms"`
	AvgDocLen float64 `json:"avg_doc_length"`
}

// BuildIndex tokenizes every document and constructs the term postings and
// length statistics in one pass. The returned index is never mutated again.
func BuildIndex(docs []*corpus.Document) *Index {
	idx := &Index{
		postings:  make(map[string]PostingList),
		docLength: make(map[string]int, len(docs)),
	}

	var totalLen int
	for _, doc := range docs {
		if doc == nil {
			continue
		}

		tokens := Tokenize(doc.Text)
		idx.docLength[doc.ID] = len(tokens)
		idx.docCount++
		totalLen += len(tokens)

		freq := make(map[string]int, len(tokens))
		for _, term := range tokens {
			freq[term]++
		}
		for term, n := range freq {
			idx.postings[term] = append(idx.postings[term], Posting{
				DocID:     doc.ID,
				Frequency: n,
			})
		}
	}

	// Keep posting lists ordered so scoring walks documents deterministically.
	for term := range idx.postings {
		list := idx.postings[term]
		sort.Slice(list, func(i, j int) bool { return list[i].DocID < list[j].DocID })
	}

	if idx.docCount > 0 {
		idx.avgDocLen = float64(totalLen) / float64(idx.docCount)
	}

	return idx
}

// Postings returns the posting list for a term, or nil if the term is not
// indexed.
func (idx *Index) Postings(term string) PostingList {
	return idx.postings[term]
}

// DocLength returns the token count of a document at index-build time.
func (idx *Index) DocLength(docID string) int {
	return idx.docLength[docID]
}

// Stats returns the snapshot statistics.
func (idx *Index) Stats() Stats {
	return Stats{
		Documents: idx.docCount,
		Terms:     len(idx.postings),
		AvgDocLen: idx.avgDocLen,
	}
}
