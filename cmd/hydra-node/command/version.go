package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hydra-head/hydra-node/version"
)

// NewVersionCmd prints the build version, grounded on cmd/babble's
// top-level "version" command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version.Version)
			return nil
		},
	}
}
