package sparse

// Posting is a single inverted-index entry: a document containing a term and
// how often the term occurs in it.
type Posting struct {
	DocID     string
	Frequency int
}

// PostingList holds every posting for one term, ordered by document ID.
type PostingList []Posting
