package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stepgrid/pkg/document"
	"github.com/matzehuels/stepgrid/pkg/editor"
)

// session is an open document being edited by one command.
type session struct {
	cmd  *cobra.Command
	path string
	doc  *document.Document
	ed   *editor.Editor
}

// editFlags are shared by every editing command.
type editFlags struct {
	step int  // 1-indexed; 0 keeps the document's current step
	yes  bool // answer yes to every question
}

func (f *editFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.step, "step", 0, "timeline step to edit at, 1-indexed (default: the document's current step)")
	cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "accept panel extensions and cascades without asking")
}

// openSession loads the document at path into an editor.
func (c *CLI) openSession(cmd *cobra.Command, path string, flags editFlags) (*session, error) {
	d, err := document.Import(path)
	if err != nil {
		return nil, err
	}
	s, err := d.Store()
	if err != nil {
		return nil, err
	}

	step := d.CurrentStep
	if flags.step > 0 {
		if n := d.Timeline().Len(); flags.step > max(n, 1) {
			return nil, fmt.Errorf("--step %d outside timeline of %d steps", flags.step, n)
		}
		step = flags.step - 1
	}

	confirm := editor.Always
	if !flags.yes {
		confirm = newPromptConfirmer(cmd.InOrStdin(), cmd.OutOrStdout())
	}

	ed := editor.New(s, d.Timeline(), editor.Options{
		Binding:   c.resolver(d),
		Step:      step,
		Confirmer: confirm,
		Logger:    loggerFromContext(cmd.Context()),
	})
	return &session{cmd: cmd, path: path, doc: d, ed: ed}, nil
}

func (s *session) ctx() context.Context { return s.cmd.Context() }

// save writes the edited scene back to the document file.
func (s *session) save() error {
	s.doc.SetStore(s.ed.Store())
	return document.Export(s.doc, s.path)
}

// =============================================================================
// Confirmation
// =============================================================================

// promptConfirmer asks yes/no questions on a terminal. Anything but an
// answer starting with y, including end of input, is no.
type promptConfirmer struct {
	in  *bufio.Reader
	out io.Writer
}

func newPromptConfirmer(in io.Reader, out io.Writer) *promptConfirmer {
	return &promptConfirmer{in: bufio.NewReader(in), out: out}
}

// Confirm implements editor.Confirmer.
func (p *promptConfirmer) Confirm(ctx context.Context, question string) bool {
	if ctx.Err() != nil {
		return false
	}
	fmt.Fprintf(p.out, "%s %s %s ", styleIconWarning.Render(iconWarning), question, StyleDim.Render("[y/N]"))
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(p.out)
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return strings.HasPrefix(answer, "y")
}
