package testutils

import "github.com/civitaslabs/ordina/pkg/corpus"

// OrdinanceFixtures returns a small corpus of ordinance chunks used across
// retrieval tests.
func OrdinanceFixtures() []*corpus.Document {
	return []*corpus.Document{
		{
			ID:          "ord-2007-wm-01",
			Text:        "The city waste management program mandates weekly waste collection and segregation at source for all residential zones.",
			Source:      "Ordno-2007-035.pdf",
			Title:       "Solid Waste Management Ordinance",
			Page:        2,
			ContentType: "excerpt",
			Chapter:     "3",
			URL:         "https://example.gov/ordinances/2007-035.pdf",
		},
		{
			ID:          "ord-2010-tr-01",
			Text:        "Tricycle franchises shall be renewed annually with the city treasurer upon payment of the prescribed fees.",
			Source:      "Ordno-2010-112.pdf",
			Title:       "Tricycle Franchising Ordinance",
			Page:        5,
			ContentType: "excerpt",
			Chapter:     "1",
		},
		{
			ID:          "ord-2015-pk-01",
			Text:        "Public parks shall remain open from five in the morning until ten in the evening, with quiet hours enforced after eight.",
			Source:      "Ordno-2015-201.pdf",
			Title:       "Public Parks Regulation",
			Page:        1,
			ContentType: "abstract",
		},
	}
}
