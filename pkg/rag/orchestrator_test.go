package rag_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/civitaslabs/ordina/pkg/corpus"
	"github.com/civitaslabs/ordina/pkg/corpus/inmemory"
	"github.com/civitaslabs/ordina/pkg/dense"
	"github.com/civitaslabs/ordina/pkg/fusion"
	"github.com/civitaslabs/ordina/pkg/llm"
	"github.com/civitaslabs/ordina/pkg/logger"
	"github.com/civitaslabs/ordina/pkg/moderation"
	"github.com/civitaslabs/ordina/pkg/rag"
	"github.com/civitaslabs/ordina/pkg/retrieval"
	"github.com/civitaslabs/ordina/pkg/session"
	"github.com/civitaslabs/ordina/pkg/sparse"
	testutils "github.com/civitaslabs/ordina/pkg/utils/test"
)

var _ = Describe("Orchestrator", func() {
	var (
		ctx         context.Context
		store       corpus.Store
		sessions    *session.Store
		sparseSide  *stubSearcher
		denseSide   *stubSearcher
		generator   *testutils.MockGenerator
		orchestrate func(cfg rag.Config, denseSearcher rag.Searcher) *rag.Orchestrator
	)

	sparseResult := func(id string, score float64) retrieval.ScoredResult {
		return retrieval.ScoredResult{DocID: id, Score: score, Source: retrieval.SourceSparse}
	}
	denseResult := func(id string, score float64) retrieval.ScoredResult {
		return retrieval.ScoredResult{DocID: id, Score: score, Source: retrieval.SourceDense}
	}

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewStore([]*corpus.Document{
			{ID: "doc-a", Text: "Waste management program text.", Title: "Solid Waste Management", ContentType: "excerpt"},
			{ID: "doc-b", Text: "Waste disposal guidelines text.", Title: "Disposal Guidelines", ContentType: "excerpt"},
			{ID: "doc-c", Text: "Tricycle franchise renewal text.", Title: "Tricycle Franchising", ContentType: "excerpt"},
		})
		sessions = session.NewStore(session.DefaultWindow)
		sparseSide = &stubSearcher{results: []retrieval.ScoredResult{
			sparseResult("doc-a", 3.0),
			sparseResult("doc-b", 1.0),
		}}
		denseSide = &stubSearcher{results: []retrieval.ScoredResult{
			denseResult("doc-b", 0.9),
			denseResult("doc-a", 0.4),
		}}
		generator = testutils.NewMockGenerator("The collection schedule is weekly.")

		orchestrate = func(cfg rag.Config, denseSearcher rag.Searcher) *rag.Orchestrator {
			o, err := rag.NewOrchestrator(cfg, sparseSide, denseSearcher, store, sessions, generator, moderation.NewChecker(nil), nil, logger.Nop())
			Expect(err).NotTo(HaveOccurred())
			return o
		}
	})

	Describe("NewOrchestrator", func() {
		It("rejects invalid fusion weights at construction time", func() {
			_, err := rag.NewOrchestrator(rag.Config{
				Weights: fusion.Weights{Dense: 0.9, Sparse: 0.9},
			}, sparseSide, denseSide, store, nil, nil, nil, nil, nil)
			Expect(err).To(MatchError(fusion.ErrInvalidWeights))
		})

		It("requires a sparse searcher and a corpus store", func() {
			_, err := rag.NewOrchestrator(rag.Config{}, nil, denseSide, store, nil, nil, nil, nil, nil)
			Expect(err).To(HaveOccurred())

			_, err = rag.NewOrchestrator(rag.Config{}, sparseSide, denseSide, nil, nil, nil, nil, nil, nil)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Search", func() {
		It("fuses both sides and hydrates passages from the corpus", func() {
			o := orchestrate(rag.Config{}, denseSide)

			out, err := o.Search(ctx, "waste disposal", rag.SearchOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Degraded).To(BeFalse())
			Expect(out.Count).To(Equal(2))

			// Dense dominates under the default 70/30 split.
			Expect(out.Results[0].DocID).To(Equal("doc-b"))
			Expect(out.Results[0].Text).To(Equal("Waste disposal guidelines text."))
			Expect(out.Results[0].Title).To(Equal("Disposal Guidelines"))
			Expect(out.Results[1].DocID).To(Equal("doc-a"))
		})

		It("widens each retriever's limit beyond top-K for fusion overlap", func() {
			o := orchestrate(rag.Config{TopK: 5}, denseSide)

			_, err := o.Search(ctx, "waste disposal", rag.SearchOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(sparseSide.limits).To(ConsistOf(10))
			Expect(denseSide.limits).To(ConsistOf(10))
		})

		It("honors a per-request top-K override", func() {
			o := orchestrate(rag.Config{}, denseSide)

			out, err := o.Search(ctx, "waste disposal", rag.SearchOptions{TopK: 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Count).To(Equal(1))
		})

		It("honors a per-request weight override", func() {
			o := orchestrate(rag.Config{}, denseSide)

			sparseOnly := fusion.Weights{Dense: 0, Sparse: 1}
			out, err := o.Search(ctx, "waste disposal", rag.SearchOptions{Weights: &sparseOnly})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Results[0].DocID).To(Equal("doc-a"))
		})

		It("returns an empty non-error output when both sides find nothing", func() {
			sparseSide.results = nil
			denseSide.results = nil
			o := orchestrate(rag.Config{}, denseSide)

			out, err := o.Search(ctx, "zoning variance", rag.SearchOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Results).NotTo(BeNil())
			Expect(out.Count).To(BeZero())
			Expect(out.Degraded).To(BeFalse())
		})

		It("propagates sparse failures as fatal", func() {
			sparseSide.err = sparse.ErrIndexUnavailable
			o := orchestrate(rag.Config{}, denseSide)

			_, err := o.Search(ctx, "waste", rag.SearchOptions{})
			Expect(err).To(MatchError(sparse.ErrIndexUnavailable))
		})

		It("drops fused results whose documents left the corpus", func() {
			sparseSide.results = append(sparseSide.results, sparseResult("doc-gone", 2.0))
			o := orchestrate(rag.Config{}, denseSide)

			out, err := o.Search(ctx, "waste disposal", rag.SearchOptions{})
			Expect(err).NotTo(HaveOccurred())
			for _, p := range out.Results {
				Expect(p.DocID).NotTo(Equal("doc-gone"))
			}
		})

		Context("when the dense side fails", func() {
			BeforeEach(func() {
				denseSide.err = dense.ErrUnavailable
			})

			It("degrades to sparse-only under the degrade policy", func() {
				o := orchestrate(rag.Config{OnDenseFailure: rag.DegradeToSparse}, denseSide)

				out, err := o.Search(ctx, "waste disposal", rag.SearchOptions{})
				Expect(err).NotTo(HaveOccurred())
				Expect(out.Degraded).To(BeTrue())
				Expect(out.DegradedCause).To(ContainSubstring("dense retrieval unavailable"))

				// Sparse order under an effective sparse weight of 1.0.
				Expect(out.Count).To(Equal(2))
				Expect(out.Results[0].DocID).To(Equal("doc-a"))
				Expect(out.Results[0].Score).To(BeNumerically("~", 1.0, 1e-9))
				Expect(out.Results[0].DenseScore).To(BeZero())
				Expect(out.Results[1].DocID).To(Equal("doc-b"))
				Expect(out.Results[1].Score).To(BeNumerically("~", 0.0, 1e-9))
			})

			It("fails the query under the fail-fast policy", func() {
				o := orchestrate(rag.Config{OnDenseFailure: rag.FailFast}, denseSide)

				_, err := o.Search(ctx, "waste disposal", rag.SearchOptions{})
				Expect(err).To(MatchError(dense.ErrUnavailable))
			})

			It("keeps succeeding on later queries once the dense side recovers", func() {
				o := orchestrate(rag.Config{OnDenseFailure: rag.DegradeToSparse}, denseSide)

				out, err := o.Search(ctx, "waste disposal", rag.SearchOptions{})
				Expect(err).NotTo(HaveOccurred())
				Expect(out.Degraded).To(BeTrue())

				denseSide.err = nil
				out, err = o.Search(ctx, "waste disposal", rag.SearchOptions{})
				Expect(err).NotTo(HaveOccurred())
				Expect(out.Degraded).To(BeFalse())
			})
		})

		It("treats a nil dense searcher as permanently degraded", func() {
			o := orchestrate(rag.Config{}, nil)

			out, err := o.Search(ctx, "waste disposal", rag.SearchOptions{})
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Degraded).To(BeTrue())
			Expect(out.Results[0].DocID).To(Equal("doc-a"))
		})

		Context("for exhaustive queries", func() {
			It("widens the candidate count and marks the output", func() {
				o := orchestrate(rag.Config{TopK: 5, ExhaustiveTopK: 50}, denseSide)

				out, err := o.Search(ctx, "list waste ordinances", rag.SearchOptions{})
				Expect(err).NotTo(HaveOccurred())
				Expect(out.Exhaustive).To(BeTrue())
				Expect(sparseSide.limits).To(ConsistOf(100))
			})

			It("keeps only results scoring at least half of the best", func() {
				sparseSide.results = []retrieval.ScoredResult{
					sparseResult("doc-a", 10.0),
					sparseResult("doc-b", 8.0),
					sparseResult("doc-c", 1.0),
				}
				o := orchestrate(rag.Config{}, nil)

				out, err := o.Search(ctx, "list waste ordinances", rag.SearchOptions{})
				Expect(err).NotTo(HaveOccurred())
				Expect(out.Count).To(Equal(2))
				Expect(out.Results[0].DocID).To(Equal("doc-a"))
				Expect(out.Results[1].DocID).To(Equal("doc-b"))
			})
		})
	})

	Describe("Answer", func() {
		collect := func() (func(llm.Chunk) error, *[]llm.Chunk) {
			var chunks []llm.Chunk
			return func(chunk llm.Chunk) error {
				chunks = append(chunks, chunk)
				return nil
			}, &chunks
		}

		It("requires a generator", func() {
			o, err := rag.NewOrchestrator(rag.Config{}, sparseSide, denseSide, store, sessions, nil, nil, nil, nil)
			Expect(err).NotTo(HaveOccurred())

			emit, _ := collect()
			_, err = o.Answer(ctx, rag.AnswerInput{Query: "waste"}, emit)
			Expect(err).To(HaveOccurred())
		})

		It("streams the generated answer and records the turn", func() {
			o := orchestrate(rag.Config{}, denseSide)
			emit, chunks := collect()

			out, err := o.Answer(ctx, rag.AnswerInput{Query: "what is the waste schedule"}, emit)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Answer).To(Equal("The collection schedule is weekly."))
			Expect(out.Blocked).To(BeFalse())
			Expect(out.SessionID).NotTo(BeEmpty())
			Expect(out.Search.Count).To(Equal(2))

			var streamed string
			for _, c := range *chunks {
				streamed += c.Content
			}
			Expect(streamed).To(Equal(out.Answer))
			Expect((*chunks)[len(*chunks)-1].Done).To(BeTrue())

			turns := sessions.History(out.SessionID)
			Expect(turns).To(HaveLen(1))
			Expect(turns[0].Query).To(Equal("what is the waste schedule"))
			Expect(turns[0].Answer).To(Equal(out.Answer))
		})

		It("hands the generator the retrieved context and system prompt", func() {
			o := orchestrate(rag.Config{Model: "test-model"}, denseSide)
			emit, _ := collect()

			_, err := o.Answer(ctx, rag.AnswerInput{Query: "what is the waste schedule"}, emit)
			Expect(err).NotTo(HaveOccurred())

			Expect(generator.Requests).To(HaveLen(1))
			req := generator.Requests[0]
			Expect(req.Model).To(Equal("test-model"))
			Expect(req.Messages).To(HaveLen(2))
			Expect(req.Messages[0].Role).To(Equal(llm.RoleSystem))
			Expect(req.Messages[1].Content).To(ContainSubstring("Waste disposal guidelines text."))
			Expect(req.Messages[1].Content).To(ContainSubstring("Current Question: what is the waste schedule"))
		})

		It("refuses blocked queries without touching the session", func() {
			o := orchestrate(rag.Config{}, denseSide)
			emit, chunks := collect()

			out, err := o.Answer(ctx, rag.AnswerInput{SessionID: "s1", Query: "how to make a bomb"}, emit)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Blocked).To(BeTrue())
			Expect(out.Answer).To(Equal(moderation.RefusalMessage))
			Expect(out.Search).To(BeNil())

			Expect((*chunks)[0].Content).To(Equal(moderation.RefusalMessage))
			Expect((*chunks)[1].Done).To(BeTrue())
			Expect(sessions.History("s1")).To(BeEmpty())
			Expect(generator.Requests).To(BeEmpty())
		})

		It("streams the no-results message and still records the turn", func() {
			sparseSide.results = nil
			denseSide.results = nil
			o := orchestrate(rag.Config{}, denseSide)
			emit, chunks := collect()

			out, err := o.Answer(ctx, rag.AnswerInput{SessionID: "s1", Query: "zoning variance rules"}, emit)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Answer).To(Equal(rag.NoResultsMessage))
			Expect((*chunks)[0].Content).To(Equal(rag.NoResultsMessage))

			turns := sessions.History("s1")
			Expect(turns).To(HaveLen(1))
			Expect(turns[0].Answer).To(Equal(rag.NoResultsMessage))
			Expect(generator.Requests).To(BeEmpty())
		})

		It("rewrites follow-up queries from session history", func() {
			sessions.Append("s1", session.Turn{Query: "what is the waste collection schedule", Answer: "Weekly."})
			o := orchestrate(rag.Config{}, denseSide)
			emit, _ := collect()

			out, err := o.Answer(ctx, rag.AnswerInput{SessionID: "s1", Query: "and the fines?"}, emit)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Search.RewrittenQuery).To(HavePrefix("and the fines?"))
			Expect(out.Search.RewrittenQuery).To(ContainSubstring("waste"))
		})

		It("leaves RewrittenQuery empty when no rewriting happened", func() {
			o := orchestrate(rag.Config{}, denseSide)
			emit, _ := collect()

			out, err := o.Answer(ctx, rag.AnswerInput{Query: "what is the waste collection schedule"}, emit)
			Expect(err).NotTo(HaveOccurred())
			Expect(out.Search.RewrittenQuery).To(BeEmpty())
		})

		It("renders prior turns into the prompt history", func() {
			sessions.Append("s1", session.Turn{Query: "what is the waste collection schedule", Answer: "Weekly."})
			o := orchestrate(rag.Config{}, denseSide)
			emit, _ := collect()

			_, err := o.Answer(ctx, rag.AnswerInput{SessionID: "s1", Query: "when does waste segregation apply here"}, emit)
			Expect(err).NotTo(HaveOccurred())

			req := generator.Requests[0]
			Expect(req.Messages[1].Content).To(ContainSubstring("Human: what is the waste collection schedule"))
			Expect(req.Messages[1].Content).To(ContainSubstring("Assistant: Weekly."))
		})

		It("surfaces generator failures", func() {
			generator.Fail = true
			o := orchestrate(rag.Config{}, denseSide)
			emit, _ := collect()

			_, err := o.Answer(ctx, rag.AnswerInput{SessionID: "s1", Query: "waste schedule please"}, emit)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, sparse.ErrIndexUnavailable)).To(BeFalse())
		})
	})
})
