package corpus

import "errors"

var (
	// ErrEmptyCorpus is returned when a loader produced no documents.
	ErrEmptyCorpus = errors.New("corpus contains no documents")

	// ErrDuplicateID is returned when two documents share an identifier.
	ErrDuplicateID = errors.New("duplicate document id")
)
