package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewPublishScriptsCmd returns the "publish-scripts" subcommand: a thin
// wrapper around the Chain collaborator's script-publishing entrypoint.
// Publishing the head validator scripts to the settlement chain is out of
// this engine's core scope (the core only ever posts PostChainTx values
// against scripts that already exist on chain), but every real deployment
// needs to do it once, so the CLI carries a stub command for it, mirroring
// cmd/babble's separate "keygen" subcommand: a one-shot operational task
// that lives next to "run" without being part of the node's own loop.
func NewPublishScriptsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish-scripts",
		Short: "Publish the head validator scripts to the settlement chain",
		RunE:  runPublishScripts,
	}
	addPublishScriptsFlags(cmd)
	return cmd
}

func addPublishScriptsFlags(cmd *cobra.Command) {
	cmd.Flags().String("chain-config", publishScriptsOpts.ChainConfig, "Path to the settlement-chain client configuration")
	cmd.Flags().String("scripts-dir", publishScriptsOpts.ScriptsDir, "Directory containing the compiled head validator scripts")
	cmd.Flags().String("output-tx-file", publishScriptsOpts.OutputTxFile, "Where to write the resulting hydra-scripts-tx-id")
}

func runPublishScripts(cmd *cobra.Command, args []string) error {
	if err := bindFlagsLoadViper(cmd, publishScriptsOpts); err != nil {
		return err
	}

	// Publishing requires a concrete settlement-chain client able to build
	// and submit a script-carrying transaction; chain.SimpleChain (this
	// command's default chain.Submitter) has no on-chain notion of scripts
	// at all, so there is nothing to wire this stub to yet. It exists so
	// the two-command shape spec.md §6 describes ("run" and
	// "publish-scripts") is present end-to-end.
	return fmt.Errorf("command: publish-scripts requires a settlement-chain client (none configured for %s)", publishScriptsOpts.ChainConfig)
}
