package ui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// Run launches the TUI over the given build jobs and blocks until all
// complete or the user quits.
func Run(ctx context.Context, jobs []Job, opts Options) error {
	m := NewModel(ctx, jobs, opts)
	prog := tea.NewProgram(m, tea.WithContext(ctx))
	final, err := prog.Run()
	if err != nil {
		return err
	}
	if fm, ok := final.(Model); ok {
		var failed []string
		for _, id := range fm.jobOrder {
			js := fm.jobs[id]
			if js != nil && js.err != nil {
				label := js.label
				msg := js.err.Error()
				if label != "" {
					failed = append(failed, fmt.Sprintf("- %s: %s", label, msg))
				} else {
					failed = append(failed, fmt.Sprintf("- %s", msg))
				}
			}
		}
		if len(failed) > 0 {
			return fmt.Errorf("%d build(s) failed:\n%s", len(failed), strings.Join(failed, "\n"))
		}
	}
	return nil
}
