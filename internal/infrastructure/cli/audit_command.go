package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doeshing/cmdgate/internal/app"
)

func newAuditCommand(container *app.Container) *cobra.Command {
	var (
		sessionID  string
		limit      int
		offset     int
		exportPath string
	)

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			if exportPath != "" {
				exporter, ok := container.AuditLog.(interface{ ExportJSON(string) error })
				if !ok {
					return fmt.Errorf("configured audit backend does not support export")
				}
				if err := exporter.ExportJSON(exportPath); err != nil {
					return err
				}
				fmt.Printf("Exported audit records to %s\n", exportPath)
				return nil
			}

			records, err := container.Pipeline.AuditRecords(sessionID, limit, offset)
			if err != nil {
				return err
			}
			RenderAudit(records)
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "filter by session id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum records")
	cmd.Flags().IntVar(&offset, "offset", 0, "pagination offset")
	cmd.Flags().StringVar(&exportPath, "export", "", "export all records to a jsonl file")
	return cmd
}
