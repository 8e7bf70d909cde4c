// Package reindexcmder provides the reindex command for building the
// retrieval indexes from the document corpus.
package reindexcmder

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	servecmder "github.com/civitaslabs/ordina/cmd/ordina/serve"
	"github.com/civitaslabs/ordina/pkg/cliui"
	"github.com/civitaslabs/ordina/pkg/config"
	"github.com/civitaslabs/ordina/pkg/indexer"
	"github.com/civitaslabs/ordina/pkg/logger"
	"github.com/civitaslabs/ordina/pkg/sparse"
)

type reindexCommander struct {
	cfg       *config.Config
	apiTarget string
	localOnly bool
	debug     bool
	logger    *zap.Logger
}

const reindexLongDesc string = `Build the retrieval indexes from the document corpus.

Embeds every corpus document and upserts the vectors into the configured
vector store. Afterwards, a running ordina API server (if reachable at the
client API target) is told to rebuild its in-process keyword index so both
sides serve the same corpus. Use --local-only to skip the API call.

Examples:
  ordina reindex
  ordina reindex --corpus-path ./data/corpus.jsonl
  ordina reindex --local-only`

const reindexShortDesc string = "Build the retrieval indexes from the corpus"

var reindexFlags = config.FlagSet{
	config.FlagCorpusPath: {
		Name: "corpus-path", Shorthand: "c", ViperKey: "corpus.path",
		Description: "Path to the JSONL document corpus",
	},
	config.FlagVectorProvider: {
		Name: "vector-store-provider", ViperKey: "vector_store.provider",
		Description: "Vector store provider (qdrant, chroma)",
	},
	config.FlagVectorTarget: {
		Name: "vector-store-target", ViperKey: "vector_store.target",
		Description: "Vector store target (host:port for qdrant, URL for chroma)",
	},
	config.FlagEmbeddingTgt: {
		Name: "embedding-target", ViperKey: "embedding.target",
		Description: "Embedding service URL",
	},
	config.FlagEmbeddingModel: {
		Name: "embedding-model", ViperKey: "embedding.model",
		Description: "Embedding model name",
	},
	config.FlagAPITarget: {
		Name: "api-target", ViperKey: "client.api_target",
		Description: "Running ordina API server to notify after reindexing",
	},
}

var reindexFlagKeys = []string{
	config.FlagCorpusPath,
	config.FlagVectorProvider,
	config.FlagVectorTarget,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagAPITarget,
}

func NewReindexCmd() *cobra.Command {
	cmder := &reindexCommander{}

	var flagTargets struct {
		corpusPath     string
		vectorProvider string
		vectorTarget   string
		embeddingTgt   string
		embeddingModel string
		apiTarget      string
	}

	cmd := &cobra.Command{
		Use:   "reindex",
		Short: reindexShortDesc,
		Long:  reindexLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(v, cmd, reindexFlags, reindexFlagKeys)

			cmder.cfg, err = config.FromViper(v)
			if err != nil {
				return err
			}
			cmder.apiTarget = cmder.cfg.Client.APITarget
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run()
		},
	}

	config.AddStringFlag(cmd, reindexFlags, config.FlagCorpusPath, &flagTargets.corpusPath)
	config.AddStringFlag(cmd, reindexFlags, config.FlagVectorProvider, &flagTargets.vectorProvider)
	config.AddStringFlag(cmd, reindexFlags, config.FlagVectorTarget, &flagTargets.vectorTarget)
	config.AddStringFlag(cmd, reindexFlags, config.FlagEmbeddingTgt, &flagTargets.embeddingTgt)
	config.AddStringFlag(cmd, reindexFlags, config.FlagEmbeddingModel, &flagTargets.embeddingModel)
	config.AddStringFlag(cmd, reindexFlags, config.FlagAPITarget, &flagTargets.apiTarget)
	cmd.Flags().BoolVar(&cmder.localOnly, "local-only", false, "Skip notifying the running API server")

	return cmd
}

func (c *reindexCommander) run() error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	ctx := context.Background()
	cfg := c.cfg

	store, err := servecmder.LoadCorpus(cfg)
	if err != nil {
		return err
	}

	count, err := store.Count(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\n  %s %s\n\n",
		cliui.KeyStyle.Render("Corpus:"),
		cliui.ValueStyle.Render(fmt.Sprintf("%s (%d documents)", cfg.Corpus.Path, count)),
	)

	driver, err := servecmder.BuildVectorDriver(cfg, c.logger)
	if err != nil {
		return fmt.Errorf("connecting to vector store: %w", err)
	}
	defer driver.Close()

	embedder, err := servecmder.BuildEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	retriever := sparse.NewRetriever(sparse.Params{K1: cfg.Retrieval.BM25K1, B: cfg.Retrieval.BM25B}, c.logger)
	idx := indexer.NewIndexer(store, retriever, embedder, driver, c.logger)

	var indexed int
	err = cliui.Step(os.Stdout, "Embedding and upserting documents", func() error {
		var stepErr error
		indexed, stepErr = idx.ReindexDense(ctx)
		return stepErr
	})
	if err != nil {
		return err
	}
	fmt.Printf("  %s %s\n", cliui.KeyStyle.Render("Indexed:"), cliui.ValueStyle.Render(fmt.Sprintf("%d documents", indexed)))

	if c.localOnly {
		fmt.Println()
		return nil
	}

	// Best effort: a running server picks up the corpus on its own rebuild
	// endpoint; failure here is not fatal to the reindex.
	if err := notifyAPI(c.apiTarget); err != nil {
		fmt.Printf("  %s %s\n\n",
			cliui.DimStyle.Render("API server not notified:"),
			cliui.DimStyle.Render(err.Error()),
		)
		return nil
	}

	fmt.Printf("  %s API server keyword index rebuilt\n\n", cliui.SuccessMark)
	return nil
}

// notifyAPI asks a running API server to rebuild its sparse index.
func notifyAPI(apiTarget string) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, apiTarget+"/v1/index/rebuild", nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("rebuild returned status %d", resp.StatusCode)
	}

	return nil
}
