package ui

import (
	"context"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"

	"promptreel/internal/progress"
)

// Job is one build the TUI drives. Run receives a reporter wired into
// the event loop and returns the final output path.
type Job struct {
	ID    string
	Label string
	Run   func(ctx context.Context, rep progress.Reporter) (string, error)
}

type jobState struct {
	id     string
	label  string
	stage  progress.Stage
	status string
	err    error
	done   bool

	outputPath string
	bytes      int64
	percent    float64 // -1 means unknown
	nodesDone  int
	nodesAll   int

	spinner spinner.Model
	bar     bubblesprogress.Model

	started bool

	// Optional: recent logs (kept small)
	logsRing []string
}

func newJobState(j Job, styles Styles) jobState {
	sp := spinner.New()
	sp.Style = styles.Spinner
	bar := bubblesprogress.New(
		bubblesprogress.WithDefaultGradient(),
		bubblesprogress.WithWidth(40),
	)
	return jobState{
		id:      j.ID,
		label:   j.Label,
		stage:   progress.StagePlanning,
		status:  "Queued",
		percent: -1,
		spinner: sp,
		bar:     bar,
	}
}
