// Package ordinacmder
package ordinacmder

import (
	"github.com/spf13/cobra"

	chatcmder "github.com/civitaslabs/ordina/cmd/ordina/chat"
	configcmder "github.com/civitaslabs/ordina/cmd/ordina/config"
	reindexcmder "github.com/civitaslabs/ordina/cmd/ordina/reindex"
	searchcmder "github.com/civitaslabs/ordina/cmd/ordina/search"
	servecmder "github.com/civitaslabs/ordina/cmd/ordina/serve"
)

const ordinaLongDesc string = `Ordina is hybrid retrieval for municipal ordinances.

It combines an in-process keyword index with a vector store to answer
questions about city ordinances, regulations, and public announcements,
with citations back to the source documents.

Common workflows:
  ordina serve              Run the API server
  ordina reindex            Build the retrieval indexes from the corpus
  ordina search "query"     Search the corpus via the API
  ordina chat               Interactive Q&A session via the API`

const ordinaShortDesc string = "Ordina - Municipal Ordinance Retrieval"

func NewOrdinaCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ordina",
		Short: ordinaShortDesc,
		Long:  ordinaLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .ordina/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(searchcmder.NewSearchCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(reindexcmder.NewReindexCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())

	return cmd
}
