package cli

import (
	"github.com/spf13/cobra"

	"github.com/doeshing/cmdgate/internal/app"
	"github.com/doeshing/cmdgate/internal/infrastructure/api"
)

func newServeCommand(container *app.Container) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the validate/execute/audit HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = container.Config.Server.Addr
			}
			server := api.NewServer(addr, container.Pipeline, container.DoctorService)
			return server.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config server.addr)")
	return cmd
}
