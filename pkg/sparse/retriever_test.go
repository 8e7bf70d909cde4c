package sparse_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/civitaslabs/ordina/pkg/corpus"
	"github.com/civitaslabs/ordina/pkg/logger"
	"github.com/civitaslabs/ordina/pkg/retrieval"
	"github.com/civitaslabs/ordina/pkg/sparse"
)

var _ = Describe("Retriever", func() {
	var (
		ctx       context.Context
		retriever *sparse.Retriever
	)

	doc := func(id, text string) *corpus.Document {
		return &corpus.Document{ID: id, Text: text}
	}

	BeforeEach(func() {
		ctx = context.Background()
		retriever = sparse.NewRetriever(sparse.DefaultParams(), logger.Nop())
	})

	Describe("before any index is built", func() {
		It("fails searches with ErrIndexUnavailable", func() {
			_, err := retriever.Search(ctx, "waste collection", 5)
			Expect(err).To(MatchError(sparse.ErrIndexUnavailable))
		})

		It("fails Stats with ErrIndexUnavailable", func() {
			_, err := retriever.Stats()
			Expect(err).To(MatchError(sparse.ErrIndexUnavailable))
		})
	})

	Describe("Rebuild", func() {
		It("reports index statistics", func() {
			stats := retriever.Rebuild([]*corpus.Document{
				doc("a", "waste collection schedule"),
				doc("b", "tricycle franchise renewal"),
			})

			Expect(stats.Documents).To(Equal(2))
			Expect(stats.Terms).To(Equal(6))
			Expect(stats.AvgDocLen).To(BeNumerically("~", 3.0, 1e-9))

			fromStats, err := retriever.Stats()
			Expect(err).NotTo(HaveOccurred())
			Expect(fromStats).To(Equal(stats))
		})

		It("swaps in the new index for subsequent searches", func() {
			retriever.Rebuild([]*corpus.Document{doc("a", "parking regulations")})

			results, err := retriever.Search(ctx, "parking", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))

			retriever.Rebuild([]*corpus.Document{doc("b", "noise ordinance")})

			results, err = retriever.Search(ctx, "parking", 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})
	})

	Describe("Search", func() {
		BeforeEach(func() {
			retriever.Rebuild([]*corpus.Document{
				doc("doc-a", "waste management waste collection program"),
				doc("doc-b", "waste disposal facility guidelines text"),
				doc("doc-c", "tricycle franchise renewal procedure fees"),
			})
		})

		It("ranks a document with repeated query terms above a single mention", func() {
			results, err := retriever.Search(ctx, "waste management", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))

			Expect(results[0].DocID).To(Equal("doc-a"))
			Expect(results[1].DocID).To(Equal("doc-b"))
			Expect(results[0].Score).To(BeNumerically(">", results[1].Score))
		})

		It("excludes documents sharing no query terms", func() {
			results, err := retriever.Search(ctx, "waste management", 10)
			Expect(err).NotTo(HaveOccurred())

			for _, r := range results {
				Expect(r.DocID).NotTo(Equal("doc-c"))
			}
		})

		It("tags every result with the sparse source", func() {
			results, err := retriever.Search(ctx, "waste", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).NotTo(BeEmpty())

			for _, r := range results {
				Expect(r.Source).To(Equal(retrieval.SourceSparse))
			}
		})

		It("rounds scores to four decimal places", func() {
			results, err := retriever.Search(ctx, "waste management collection", 10)
			Expect(err).NotTo(HaveOccurred())

			for _, r := range results {
				Expect(r.Score).To(Equal(math.Round(r.Score*10000) / 10000))
			}
		})

		It("is deterministic across repeated invocations", func() {
			first, err := retriever.Search(ctx, "waste disposal collection", 10)
			Expect(err).NotTo(HaveOccurred())

			for i := 0; i < 20; i++ {
				again, err := retriever.Search(ctx, "waste disposal collection", 10)
				Expect(err).NotTo(HaveOccurred())
				Expect(again).To(Equal(first))
			}
		})

		It("returns an empty non-error result for unindexed terms", func() {
			results, err := retriever.Search(ctx, "zoning variance", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).NotTo(BeNil())
			Expect(results).To(BeEmpty())
		})

		It("returns an empty result when the query has no usable tokens", func() {
			results, err := retriever.Search(ctx, "a of the", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})

		It("truncates to the requested limit", func() {
			results, err := retriever.Search(ctx, "waste", 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
		})

		It("breaks equal scores by document ID ascending", func() {
			retriever.Rebuild([]*corpus.Document{
				doc("z-doc", "curfew hours enforcement"),
				doc("a-doc", "curfew hours enforcement"),
			})

			results, err := retriever.Search(ctx, "curfew", 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].Score).To(Equal(results[1].Score))
			Expect(results[0].DocID).To(Equal("a-doc"))
		})
	})
})
