package rag_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/civitaslabs/ordina/pkg/rag"
)

var _ = Describe("FormatPassages", func() {
	It("renders each passage as text followed by its citation label", func() {
		passages := []rag.Passage{
			{DocID: "a", Text: "Waste collection is weekly.", Title: "Solid Waste Management", Page: 2, ContentType: "excerpt", Chapter: "3"},
		}

		block := rag.FormatPassages(passages, 0)
		Expect(block).To(Equal("Waste collection is weekly.\n[Solid Waste Management p.2 (excerpt) Ch.3]"))
	})

	It("renders the citation as a markdown link when a URL is present", func() {
		passages := []rag.Passage{
			{DocID: "a", Text: "Parks close at ten.", Title: "Public Parks Regulation", Page: 1, URL: "https://example.gov/2015-201.pdf"},
		}

		block := rag.FormatPassages(passages, 0)
		Expect(block).To(ContainSubstring("[Public Parks Regulation p.1](https://example.gov/2015-201.pdf)"))
	})

	It("falls back to a cleaned source filename when the title is missing", func() {
		passages := []rag.Passage{
			{DocID: "a", Text: "Fees are due annually.", Source: "Ordno-2010-112.pdf"},
		}

		block := rag.FormatPassages(passages, 0)
		Expect(block).To(ContainSubstring("[Ordinance No. 2010 112]"))
	})

	It("labels passages with no title or source as Document", func() {
		passages := []rag.Passage{{DocID: "a", Text: "Some text."}}
		Expect(rag.FormatPassages(passages, 0)).To(ContainSubstring("[Document]"))
	})

	It("places abstracts before excerpts regardless of input order", func() {
		passages := []rag.Passage{
			{DocID: "excerpt-1", Text: "Excerpt text.", ContentType: "excerpt"},
			{DocID: "abstract-1", Text: "Abstract text.", ContentType: "abstract"},
		}

		block := rag.FormatPassages(passages, 0)
		Expect(strings.Index(block, "Abstract text.")).To(BeNumerically("<", strings.Index(block, "Excerpt text.")))
	})

	It("separates passages with a blank line", func() {
		passages := []rag.Passage{
			{DocID: "a", Text: "First."},
			{DocID: "b", Text: "Second."},
		}

		block := rag.FormatPassages(passages, 0)
		Expect(strings.Count(block, "\n\n")).To(Equal(1))
	})

	It("truncates at whole-passage granularity once the budget is reached", func() {
		passages := []rag.Passage{
			{DocID: "a", Text: strings.Repeat("x", 50)},
			{DocID: "b", Text: strings.Repeat("y", 50)},
			{DocID: "c", Text: strings.Repeat("z", 50)},
		}

		block := rag.FormatPassages(passages, 130)
		Expect(block).To(ContainSubstring("x"))
		Expect(block).To(ContainSubstring("y"))
		Expect(block).NotTo(ContainSubstring("z"))
	})

	It("always includes the first passage even when it alone exceeds the budget", func() {
		passages := []rag.Passage{
			{DocID: "a", Text: strings.Repeat("x", 500)},
			{DocID: "b", Text: "short"},
		}

		block := rag.FormatPassages(passages, 100)
		Expect(block).To(ContainSubstring("x"))
		Expect(block).NotTo(ContainSubstring("short"))
	})

	It("returns an empty block for no passages", func() {
		Expect(rag.FormatPassages(nil, 0)).To(BeEmpty())
	})
})
