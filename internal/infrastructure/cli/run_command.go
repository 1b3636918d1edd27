package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/cmdgate/internal/app"
	"github.com/doeshing/cmdgate/internal/application/pipeline"
	"github.com/doeshing/cmdgate/internal/domain"
)

func newRunCommand(container *app.Container) *cobra.Command {
	var (
		sessionID string
		assumeYes bool
		elevate   bool
	)

	cmd := &cobra.Command{
		Use:   "run [command...]",
		Short: "Validate a command and execute it if policy allows",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := container.Pipeline

			resp, err := svc.Validate(ctx, pipeline.ValidateRequest{
				SessionID: sessionID,
				Origin:    domain.OriginManual,
				Input: domain.TranslationInput{
					RawCommand: strings.Join(args, " "),
					Confidence: 1.0,
				},
			})
			if err != nil {
				return err
			}
			RenderValidation(resp)

			if resp.Decision.Action == domain.ActionDeny {
				return fmt.Errorf("denied: %s", resp.Decision.Reason)
			}

			if elevate {
				if err := svc.GrantElevation(ctx, sessionID); err != nil {
					return err
				}
				fmt.Println("Elevation granted for this session (time-bounded).")
			}

			if needsApproval(resp.Decision.Action) {
				approved, err := approve(resp, assumeYes)
				if err != nil {
					return err
				}
				if err := svc.Confirm(resp.Token, approved); err != nil {
					return err
				}
				if !approved {
					fmt.Println("Cancelled.")
					return nil
				}
			}

			execResp, err := svc.Execute(ctx, resp.Token)
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrElevationRequired):
					return fmt.Errorf("%w (re-run with --elevate to grant it for this session)", err)
				case errors.Is(err, domain.ErrSandboxUnavailable):
					return fmt.Errorf("%w (check `cmdgate doctor`)", err)
				}
				return err
			}
			RenderExecution(execResp)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "default", "session id")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "approve confirmation prompts")
	cmd.Flags().BoolVar(&elevate, "elevate", false, "grant session elevation before executing")
	return cmd
}

func needsApproval(action domain.PolicyAction) bool {
	return action == domain.ActionConfirm || action == domain.ActionElevate
}

func approve(resp pipeline.ValidateResponse, assumeYes bool) (bool, error) {
	// --yes covers confirm-gated commands, never elevate-gated ones: those
	// always take the explicit interactive word.
	if assumeYes && resp.Decision.Action == domain.ActionConfirm {
		return true, nil
	}
	prompter := NewPrompter(nil, nil)
	if !prompter.Enabled() {
		return false, fmt.Errorf("confirmation required but no terminal is attached")
	}
	return prompter.Confirm(resp.Decision, resp.Command.Raw, resp.Classification.Reasons)
}
