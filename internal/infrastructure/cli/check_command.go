package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/cmdgate/internal/app"
	"github.com/doeshing/cmdgate/internal/application/pipeline"
	"github.com/doeshing/cmdgate/internal/domain"
)

func newCheckCommand(container *app.Container) *cobra.Command {
	var (
		sessionID  string
		confidence float64
		source     string
	)

	cmd := &cobra.Command{
		Use:   "check [command...]",
		Short: "Classify and gate a command without executing it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := container.Pipeline.Validate(cmd.Context(), pipeline.ValidateRequest{
				SessionID: sessionID,
				Origin:    domain.OriginManual,
				Input: domain.TranslationInput{
					RawCommand:    strings.Join(args, " "),
					Confidence:    confidence,
					SourceRequest: source,
				},
			})
			if err != nil {
				return err
			}
			RenderValidation(resp)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "default", "session id")
	cmd.Flags().Float64Var(&confidence, "confidence", 1.0, "translator confidence")
	cmd.Flags().StringVar(&source, "source", "", "original natural-language request")
	return cmd
}
