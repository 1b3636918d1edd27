package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doeshing/cmdgate/internal/app"
	"github.com/doeshing/cmdgate/internal/domain"
)

func newDoctorCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose configuration, rule table, audit log and sandbox backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := container.DoctorService.Run(cmd.Context())
			for _, check := range report.Checks {
				fmt.Printf("[%-4s] %-22s %s\n", marker(check.Status), check.Name, check.Message)
			}
			if err != nil {
				return err
			}
			if !report.Healthy() {
				return fmt.Errorf("one or more checks failed")
			}
			return nil
		},
	}
}

func marker(status domain.HealthStatus) string {
	switch status {
	case domain.HealthOK:
		return "ok"
	case domain.HealthWarn:
		return "warn"
	default:
		return "FAIL"
	}
}
