// Package rag coordinates the per-turn retrieval flow: moderation, query
// rewriting from conversation context, concurrent dense and sparse
// retrieval, weighted fusion, context-block assembly, and streamed answer
// generation.
package rag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/civitaslabs/ordina/pkg/corpus"
	"github.com/civitaslabs/ordina/pkg/dense"
	"github.com/civitaslabs/ordina/pkg/fusion"
	"github.com/civitaslabs/ordina/pkg/llm"
	"github.com/civitaslabs/ordina/pkg/moderation"
	"github.com/civitaslabs/ordina/pkg/retrieval"
	"github.com/civitaslabs/ordina/pkg/session"
)

const (
	// DefaultTopK is the default fused result count.
	DefaultTopK = 5

	// DefaultExhaustiveTopK is the widened candidate count used when the
	// query asks for exhaustive coverage.
	DefaultExhaustiveTopK = 50

	// DefaultRetrievalTimeout bounds each retriever call independently so a
	// slow collaborator cannot stall the whole request.
	DefaultRetrievalTimeout = 5 * time.Second

	// exhaustiveScoreFloor keeps, for exhaustive queries, only candidates
	// whose fused score is at least this fraction of the best score.
	exhaustiveScoreFloor = 0.5

	// candidateMultiplier widens each retriever's limit beyond top-K so
	// fusion sees enough overlap between the two sides.
	candidateMultiplier = 2
)

// NoResultsMessage is streamed when retrieval finds nothing.
const NoResultsMessage = "I didn't find that information in my knowledge base, but you can try rephrasing your question and I'll search again."

// DenseFailurePolicy selects how the orchestrator reacts when the dense
// retriever is unavailable.
type DenseFailurePolicy string

const (
	// DegradeToSparse serves sparse-only results with a degraded marker.
	DegradeToSparse DenseFailurePolicy = "degrade"

	// FailFast fails the whole query instead of serving degraded answers.
	FailFast DenseFailurePolicy = "fail"
)

// Searcher is the common retrieval contract the orchestrator fans out to.
// Both the sparse and dense retrievers implement it.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]retrieval.ScoredResult, error)
}

// Config tunes the orchestrator.
type Config struct {
	// TopK is the fused result count. Defaults to DefaultTopK.
	TopK int

	// ExhaustiveTopK is the widened candidate count for exhaustive queries.
	// Defaults to DefaultExhaustiveTopK.
	ExhaustiveTopK int

	// Weights are the fusion weights. Zero value means fusion defaults.
	Weights fusion.Weights

	// RetrievalTimeout bounds each retriever call. Defaults to
	// DefaultRetrievalTimeout.
	RetrievalTimeout time.Duration

	// OnDenseFailure selects the degradation policy. Defaults to
	// DegradeToSparse.
	OnDenseFailure DenseFailurePolicy

	// MaxContextChars bounds the assembled context block. Defaults to
	// DefaultMaxContextChars.
	MaxContextChars int

	// Model overrides the generator's default model when non-empty.
	Model string
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.ExhaustiveTopK <= 0 {
		c.ExhaustiveTopK = DefaultExhaustiveTopK
	}
	if (c.Weights == fusion.Weights{}) {
		c.Weights = fusion.DefaultWeights()
	}
	if c.RetrievalTimeout <= 0 {
		c.RetrievalTimeout = DefaultRetrievalTimeout
	}
	if c.OnDenseFailure == "" {
		c.OnDenseFailure = DegradeToSparse
	}
	if c.MaxContextChars <= 0 {
		c.MaxContextChars = DefaultMaxContextChars
	}
	return c
}

// Passage is one fused result hydrated with its document text and metadata.
type Passage struct {
	DocID       string  `json:"doc_id"`
	Text        string  `json:"text"`
	Score       float64 `json:"score"`
	DenseScore  float64 `json:"dense_score"`
	SparseScore float64 `json:"sparse_score"`
	Title       string  `json:"title,omitempty"`
	Source      string  `json:"source,omitempty"`
	Page        int     `json:"page,omitempty"`
	ContentType string  `json:"content_type,omitempty"`
	Chapter     string  `json:"chapter,omitempty"`
	URL         string  `json:"url,omitempty"`
}

// SearchOptions carries per-request overrides for Search.
type SearchOptions struct {
	// TopK overrides the configured fused result count when positive.
	TopK int

	// Weights overrides the configured fusion weights when non-nil. Callers
	// must validate overrides before passing them in.
	Weights *fusion.Weights
}

// SearchOutput is the structured retrieval response. An empty Results slice
// with a nil error means both retrievers legitimately found nothing.
type SearchOutput struct {
	Query          string    `json:"query"`
	RewrittenQuery string    `json:"rewritten_query,omitempty"`
	Results        []Passage `json:"results"`
	Count          int       `json:"count"`
	Exhaustive     bool      `json:"exhaustive,omitempty"`
	Degraded       bool      `json:"degraded,omitempty"`
	DegradedCause  string    `json:"degraded_cause,omitempty"`
}

// AnswerInput is one conversational turn request.
type AnswerInput struct {
	// SessionID identifies the conversation. Empty means a new session.
	SessionID string `json:"session_id"`

	// Query is the raw user question.
	Query string `json:"query"`
}

// AnswerOutput summarizes a completed turn after the stream has finished.
type AnswerOutput struct {
	SessionID string        `json:"session_id"`
	Answer    string        `json:"answer"`
	Blocked   bool          `json:"blocked,omitempty"`
	Search    *SearchOutput `json:"search,omitempty"`
}

// Orchestrator wires the retrieval pipeline together. All collaborators are
// passed in at construction.
type Orchestrator struct {
	config    Config
	sparse    Searcher
	dense     Searcher
	store     corpus.Store
	sessions  *session.Store
	generator llm.Generator
	checker   *moderation.Checker
	monitor   Monitor
	logger    *zap.Logger
}

// NewOrchestrator creates an orchestrator over the given collaborators.
// dense, generator, checker and monitor may be nil; a nil dense searcher
// behaves as a permanently degraded dense side under the configured policy.
func NewOrchestrator(cfg Config, sparseSearcher, denseSearcher Searcher, store corpus.Store, sessions *session.Store, generator llm.Generator, checker *moderation.Checker, monitor Monitor, logger *zap.Logger) (*Orchestrator, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Weights.Validate(); err != nil {
		return nil, err
	}
	if sparseSearcher == nil {
		return nil, errors.New("sparse searcher is required")
	}
	if store == nil {
		return nil, errors.New("corpus store is required")
	}
	if sessions == nil {
		sessions = session.NewStore(session.DefaultWindow)
	}
	if checker == nil {
		checker = moderation.NewChecker(nil)
	}
	if monitor == nil {
		monitor = NoopMonitor{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		config:    cfg,
		sparse:    sparseSearcher,
		dense:     denseSearcher,
		store:     store,
		sessions:  sessions,
		generator: generator,
		checker:   checker,
		monitor:   monitor,
		logger:    logger,
	}, nil
}

// Sessions exposes the conversation store.
func (o *Orchestrator) Sessions() *session.Store {
	return o.sessions
}

// Search runs the retrieval pipeline for a standalone query: concurrent
// dense and sparse retrieval, weighted fusion, and hydration from the
// corpus. It does not touch conversation state.
func (o *Orchestrator) Search(ctx context.Context, query string, opts SearchOptions) (*SearchOutput, error) {
	started := time.Now()

	topK := o.config.TopK
	if opts.TopK > 0 {
		topK = opts.TopK
	}
	weights := o.config.Weights
	if opts.Weights != nil {
		weights = *opts.Weights
	}

	out := &SearchOutput{Query: query}

	if IsExhaustive(query) {
		out.Exhaustive = true
		topK = o.config.ExhaustiveTopK
	}

	fused, degradedCause, err := o.retrieve(ctx, query, topK, weights)
	if err != nil {
		return nil, err
	}
	if degradedCause != "" {
		out.Degraded = true
		out.DegradedCause = degradedCause
	}

	if out.Exhaustive {
		fused = filterByScoreFloor(fused, exhaustiveScoreFloor)
	}

	passages, err := o.hydrate(ctx, fused)
	if err != nil {
		return nil, err
	}
	out.Results = passages
	out.Count = len(passages)

	o.monitor.RetrievalCompleted(query, out.Count, out.Degraded, time.Since(started))
	o.logger.Debug("retrieval completed",
		zap.String("query", query),
		zap.Int("results", out.Count),
		zap.Bool("exhaustive", out.Exhaustive),
		zap.Bool("degraded", out.Degraded),
		zap.Duration("elapsed", time.Since(started)))

	return out, nil
}

// retrieve fans out to both retrievers concurrently, applies the dense
// degradation policy, and fuses the two result sets. The returned cause is
// non-empty when the dense side was degraded away.
func (o *Orchestrator) retrieve(ctx context.Context, query string, topK int, weights fusion.Weights) ([]fusion.Result, string, error) {
	limit := topK * candidateMultiplier

	var (
		denseResults  []retrieval.ScoredResult
		sparseResults []retrieval.ScoredResult
		denseErr      error
	)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		callCtx, cancel := context.WithTimeout(groupCtx, o.config.RetrievalTimeout)
		defer cancel()

		results, err := o.sparse.Search(callCtx, query, limit)
		if err != nil {
			return fmt.Errorf("sparse retrieval: %w", err)
		}
		sparseResults = results
		return nil
	})

	group.Go(func() error {
		if o.dense == nil {
			denseErr = dense.ErrUnavailable
			return nil
		}

		callCtx, cancel := context.WithTimeout(groupCtx, o.config.RetrievalTimeout)
		defer cancel()

		results, err := o.dense.Search(callCtx, query, limit)
		if err != nil {
			// Recorded, not returned: the degradation policy decides below
			// once the sparse side has finished too.
			denseErr = err
			return nil
		}
		denseResults = results
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, "", err
	}

	cause := ""
	if denseErr != nil {
		if o.config.OnDenseFailure == FailFast {
			return nil, "", fmt.Errorf("dense retrieval: %w", denseErr)
		}

		o.logger.Warn("dense retrieval unavailable, serving sparse-only results", zap.Error(denseErr))
		cause = denseErr.Error()
		weights = fusion.Weights{Dense: 0, Sparse: 1}
	}

	return fusion.Fuse(denseResults, sparseResults, weights, topK), cause, nil
}

// hydrate resolves fused results to passages with document text and
// metadata. Identifiers no longer present in the corpus are dropped.
func (o *Orchestrator) hydrate(ctx context.Context, fused []fusion.Result) ([]Passage, error) {
	if len(fused) == 0 {
		return []Passage{}, nil
	}

	ids := make([]string, len(fused))
	byID := make(map[string]fusion.Result, len(fused))
	for i, r := range fused {
		ids[i] = r.DocID
		byID[r.DocID] = r
	}

	docs, err := o.store.Get(ctx, ids...)
	if err != nil {
		return nil, fmt.Errorf("hydrating fused results: %w", err)
	}

	passages := make([]Passage, 0, len(docs))
	for _, doc := range docs {
		r := byID[doc.ID]
		passages = append(passages, Passage{
			DocID:       doc.ID,
			Text:        doc.Text,
			Score:       r.Score,
			DenseScore:  r.DenseScore,
			SparseScore: r.SparseScore,
			Title:       doc.Title,
			Source:      doc.Source,
			Page:        doc.Page,
			ContentType: doc.ContentType,
			Chapter:     doc.Chapter,
			URL:         doc.URL,
		})
	}

	if dropped := len(fused) - len(passages); dropped > 0 {
		o.logger.Warn("dropped fused results with dangling document IDs", zap.Int("dropped", dropped))
	}

	return passages, nil
}

// filterByScoreFloor keeps results whose score is at least floor times the
// best score. The input is already sorted descending.
func filterByScoreFloor(results []fusion.Result, floor float64) []fusion.Result {
	if len(results) == 0 {
		return results
	}

	threshold := results[0].Score * floor
	kept := results[:0:0]
	for _, r := range results {
		if r.Score >= threshold {
			kept = append(kept, r)
		}
	}
	return kept
}

// Answer runs one full conversational turn: moderation, query rewriting
// from session history, retrieval, prompt assembly, and streamed
// generation. Chunks are forwarded to emit as they arrive; the completed
// turn is appended to the session afterwards.
func (o *Orchestrator) Answer(ctx context.Context, in AnswerInput, emit func(llm.Chunk) error) (*AnswerOutput, error) {
	if o.generator == nil {
		return nil, errors.New("no generator configured")
	}

	started := time.Now()
	sessionID, turns := o.sessions.Resolve(in.SessionID)
	o.monitor.QueryReceived(sessionID, in.Query)

	out := &AnswerOutput{SessionID: sessionID}

	if !o.checker.Allowed(in.Query) {
		o.logger.Info("query blocked by moderation", zap.String("session_id", sessionID))
		out.Blocked = true
		out.Answer = moderation.RefusalMessage
		return out, emitAll(emit, moderation.RefusalMessage)
	}

	query := Rewrite(in.Query, turns)
	search, err := o.Search(ctx, query, SearchOptions{})
	if err != nil {
		return nil, err
	}
	search.RewrittenQuery = rewrittenOrEmpty(in.Query, query)
	out.Search = search

	if search.Count == 0 {
		out.Answer = NoResultsMessage
		o.sessions.Append(sessionID, session.Turn{Query: in.Query, Answer: NoResultsMessage, At: time.Now()})
		return out, emitAll(emit, NoResultsMessage)
	}

	contextBlock := FormatPassages(search.Results, o.config.MaxContextChars)
	history := llm.FormatHistory(toExchanges(turns), llm.DefaultMaxHistoryExchanges)

	var answer []byte
	err = o.generator.Generate(ctx, llm.Request{
		Model:    o.config.Model,
		Messages: llm.BuildPrompt(in.Query, history, contextBlock),
	}, func(chunk llm.Chunk) error {
		answer = append(answer, chunk.Content...)
		return emit(chunk)
	})
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	out.Answer = string(answer)
	o.sessions.Append(sessionID, session.Turn{Query: in.Query, Answer: out.Answer, At: time.Now()})
	o.monitor.AnswerCompleted(sessionID, len([]rune(out.Answer)), time.Since(started))

	return out, nil
}

// emitAll streams a fixed message as one content chunk plus the terminator.
func emitAll(emit func(llm.Chunk) error, message string) error {
	if err := emit(llm.Chunk{Content: message}); err != nil {
		return err
	}
	return emit(llm.Chunk{Done: true})
}

func rewrittenOrEmpty(original, rewritten string) string {
	if rewritten == original {
		return ""
	}
	return rewritten
}

func toExchanges(turns []session.Turn) []llm.Exchange {
	exchanges := make([]llm.Exchange, len(turns))
	for i, t := range turns {
		exchanges[i] = llm.Exchange{Query: t.Query, Answer: t.Answer}
	}
	return exchanges
}
