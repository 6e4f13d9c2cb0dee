package command

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	runOpts            = NewDefaultRunOptions()
	publishScriptsOpts = NewDefaultPublishScriptsOptions()
)

// RootCmd is the hydra-node entrypoint, grounded on
// cmd/babble/commands/root.go's modular (separate-file-per-subcommand)
// layout: this file only declares the tree, each subcommand's own file
// owns its flags and Run func.
var RootCmd = &cobra.Command{
	Use:              "hydra-node",
	Short:            "Run a head-protocol node",
	TraverseChildren: true,
}

func init() {
	RootCmd.AddCommand(NewRunCmd())
	RootCmd.AddCommand(NewPublishScriptsCmd())
	RootCmd.AddCommand(NewVersionCmd())
}

// Execute runs the root command, the package's sole exported entrypoint
// for cmd/hydra-node/main.go.
func Execute() error {
	return RootCmd.Execute()
}

// bindFlagsLoadViper registers cmd's flags with viper and unmarshals them
// into target, mirroring cmd/babble/command/run.go's bindFlagsLoadViper
// (config-file search is skipped here: spec.md §6 describes RunOptions as
// CLI-flag/env-driven, not config-file-driven, so only flags are bound).
func bindFlagsLoadViper(cmd *cobra.Command, target interface{}) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	return viper.Unmarshal(target)
}
