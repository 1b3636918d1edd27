// Package cli wires the cobra command surface over the pipeline.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/doeshing/cmdgate/internal/app"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// NewRootCmd wires the cobra root command.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, error) {
	container, err := app.BuildContainer(ctx, opts.Verbose)
	if err != nil {
		return nil, err
	}

	root := &cobra.Command{
		Use:   "cmdgate",
		Short: "cmdgate - risk gate for AI-generated shell commands",
		Long: "cmdgate classifies candidate shell commands against a rule table,\n" +
			"gates them by policy, and runs approved commands under sandbox\n" +
			"isolation with a full audit trail.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return container.Close()
		},
	}

	root.AddCommand(newCheckCommand(container))
	root.AddCommand(newRunCommand(container))
	root.AddCommand(newAuditCommand(container))
	root.AddCommand(newRulesCommand(container))
	root.AddCommand(newDoctorCommand(container))
	root.AddCommand(newServeCommand(container))
	return root, nil
}
