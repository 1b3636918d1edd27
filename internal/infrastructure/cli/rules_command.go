package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doeshing/cmdgate/internal/app"
)

func newRulesCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "Print the effective rule table in evaluation order",
		RunE: func(cmd *cobra.Command, args []string) error {
			rules := container.Classifier.Rules()
			fmt.Printf("%d rules loaded\n\n", len(rules))
			for _, rule := range rules {
				fmt.Printf("%-24s %-10s %-22s %s\n", rule.ID, rule.Severity, rule.Category, rule.Pattern)
			}
			return nil
		},
	}
}
