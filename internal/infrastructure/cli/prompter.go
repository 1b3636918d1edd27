package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/doeshing/cmdgate/internal/domain"
	"github.com/doeshing/cmdgate/internal/ports"
)

// Prompter implements ConfirmationPrompter using stdin/stdout.
type Prompter struct {
	in          *bufio.Reader
	out         io.Writer
	interactive bool
}

// NewPrompter constructs a prompter referencing stdio.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	if in == nil {
		in = os.Stdin
	} else {
		interactive = true
	}
	if out == nil {
		out = os.Stdout
	}
	return &Prompter{
		in:          bufio.NewReader(in),
		out:         out,
		interactive: interactive,
	}
}

// Enabled reports whether interactive confirmation is possible. Without a
// terminal a pending confirm can never be approved here.
func (p *Prompter) Enabled() bool {
	return p.interactive
}

// Confirm asks the user for approval of a gated command. Elevate-gated
// commands require the explicit word; a plain y/N suffices for confirm.
func (p *Prompter) Confirm(decision domain.PolicyDecision, command string, reasons []string) (bool, error) {
	fmt.Fprintf(p.out, "\n%s risk detected (%s)\n", strings.ToUpper(string(decision.Severity)), decision.Action)
	fmt.Fprintf(p.out, " - %s\n", decision.Reason)
	for _, reason := range reasons {
		fmt.Fprintf(p.out, " - %s\n", reason)
	}
	fmt.Fprintf(p.out, "Command:\n  %s\n", command)

	switch decision.Action {
	case domain.ActionConfirm:
		return p.ask("[y/N]: ")
	case domain.ActionElevate:
		return p.askExplicit()
	default:
		return false, nil
	}
}

func (p *Prompter) ask(prompt string) (bool, error) {
	fmt.Fprint(p.out, "Continue? ", prompt)
	line, err := p.in.ReadString('\n')
	if err != nil {
		return false, err
	}
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes", nil
}

func (p *Prompter) askExplicit() (bool, error) {
	fmt.Fprint(p.out, "Type 'yes' to confirm this elevated operation (or anything else to cancel): ")
	line, err := p.in.ReadString('\n')
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(line) == "yes", nil
}

var _ ports.ConfirmationPrompter = (*Prompter)(nil)
