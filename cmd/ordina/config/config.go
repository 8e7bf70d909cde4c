// Package configcmder provides the config command for managing persistent
// ordina configuration stored in the .ordina/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent ordina configuration.

Configuration is stored as config.toml in the .ordina/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  api.listen, client.api_target, corpus.path,
  vector_store.provider, vector_store.target, vector_store.collection,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  llm.provider, llm.target, llm.model,
  retrieval.top_k, retrieval.dense_weight, retrieval.sparse_weight,
  retrieval.on_dense_failure, chat.history_window

Use subcommands to get, set, or list configuration values:
  ordina config set <key> <value>    Set a configuration value
  ordina config get <key>            Get a configuration value
  ordina config list                 List all configuration values

Examples:
  ordina config set retrieval.dense_weight 0.6
  ordina config set retrieval.sparse_weight 0.4
  ordina config get vector_store.target
  ordina config list`

const configShortDesc string = "Manage persistent ordina configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
