package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/doeshing/cmdgate/internal/application/pipeline"
	"github.com/doeshing/cmdgate/internal/domain"
)

// RenderValidation prints a classification and gate outcome in a friendly,
// ASCII-only format.
func RenderValidation(resp pipeline.ValidateResponse) {
	fmt.Println("Command:")
	fmt.Printf("  %s\n", resp.Command.Raw)
	if resp.Command.Normalized != resp.Command.Raw {
		fmt.Printf("Normalized for matching:\n  %s\n", resp.Command.Normalized)
	}

	fmt.Printf("\nRisk: %s -> %s\n", strings.ToUpper(string(resp.Classification.Severity)), resp.Decision.Action)
	fmt.Printf(" - %s\n", resp.Decision.Reason)
	for _, reason := range resp.Classification.Reasons {
		fmt.Printf(" - %s\n", reason)
	}
	if len(resp.Classification.RuleIDs) > 0 {
		fmt.Printf("Matched rules: %s\n", strings.Join(resp.Classification.RuleIDs, ", "))
	}
	if resp.Decision.OverrideUsed {
		fmt.Println("Note: administrator override in effect (override-used).")
	}
	if resp.AuditGap != "" {
		fmt.Printf("WARNING: audit write failed: %s\n", resp.AuditGap)
	}
}

// RenderExecution prints an execution result including its termination
// reason, never just the exit code.
func RenderExecution(resp pipeline.ExecuteResponse) {
	result := resp.Result
	switch result.Termination {
	case domain.TerminationCompleted:
		fmt.Printf("\nCompleted in %s (exit code %d)\n", result.Duration.Round(time.Millisecond), result.ExitCode)
	case domain.TerminationTimeout:
		fmt.Printf("\nTimed out after %s; process terminated\n", result.Duration.Round(time.Millisecond))
	case domain.TerminationKilled:
		fmt.Printf("\nKilled after %s\n", result.Duration.Round(time.Millisecond))
	case domain.TerminationUnavailable:
		fmt.Println("\nSandbox backend unavailable; command did not run")
	}
	fmt.Printf("Isolation: %s\n", result.Isolation)

	if result.Stdout != "" {
		fmt.Println("\nstdout:")
		fmt.Println(result.Stdout)
	}
	if result.Stderr != "" {
		fmt.Println("\nstderr:")
		fmt.Println(result.Stderr)
	}
	if result.Truncated {
		fmt.Println("(output truncated at capture cap)")
	}
	if resp.AuditGap != "" {
		fmt.Printf("WARNING: audit write failed: %s\n", resp.AuditGap)
	}
}

// RenderAudit prints audit records, newest last.
func RenderAudit(records []domain.AuditRecord) {
	if len(records) == 0 {
		fmt.Println("No audit records.")
		return
	}
	for _, rec := range records {
		line := fmt.Sprintf("#%d  %s  [%s] %s -> %s  %s",
			rec.Seq,
			humanize.Time(rec.Timestamp),
			rec.SessionID,
			rec.Classification.Severity,
			rec.Decision.Action,
			rec.Command.Raw,
		)
		fmt.Println(line)
		if rec.Execution != nil {
			fmt.Printf("     ran: %s, exit %d, %s, output %s\n",
				rec.Execution.Termination,
				rec.Execution.ExitCode,
				rec.Execution.Duration.Round(time.Millisecond),
				humanize.Bytes(uint64(len(rec.Execution.Stdout)+len(rec.Execution.Stderr))),
			)
		}
	}
}
