package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/philios33/predictor2-backend-sub000/internal/config"
)

// NewValidateCommand creates the validate command: checks the config file
// against the schema without starting anything.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "validate",
		Short:        "Validate the config file",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := config.Load(rootOpts.ConfigPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: config valid\n", rootOpts.ConfigPath)
			return nil
		},
	}
}
