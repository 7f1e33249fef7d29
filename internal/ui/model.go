package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	bubblesprogress "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"promptreel/internal/progress"
	"promptreel/internal/util/deps"
)

// Options tune the TUI session.
type Options struct {
	Workers     int
	FFmpegPath  string
	FFprobePath string
}

type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	// App state (deps)
	depsChecked bool
	depsErr     error
	ffmpegPath  string
	ffprobePath string

	// Jobs
	list     []Job
	jobOrder []string
	jobs     map[string]*jobState
	workers  int

	// UI
	width, height int
	styles        Styles

	// Internal event channel used by reporter to feed tea messages
	eventCh chan tea.Msg
}

func NewModel(ctx context.Context, list []Job, opts Options) Model {
	c, cancel := context.WithCancel(ctx)
	sty := defaultStyles()

	jobs := make(map[string]*jobState, len(list))
	order := make([]string, 0, len(list))
	for i := range list {
		if list[i].ID == "" {
			list[i].ID = "job-" + strconv.Itoa(i)
		}
		js := newJobState(list[i], sty)
		js.bar = bubblesprogress.New(bubblesprogress.WithDefaultGradient(), bubblesprogress.WithWidth(40))
		jobs[list[i].ID] = &js
		order = append(order, list[i].ID)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 2
	}

	return Model{
		ctx:         c,
		cancel:      cancel,
		list:        list,
		jobs:        jobs,
		jobOrder:    order,
		workers:     workers,
		ffmpegPath:  opts.FFmpegPath,
		ffprobePath: opts.FFprobePath,
		styles:      sty,
		eventCh:     make(chan tea.Msg, 256),
	}
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		sp := m.jobs[id].spinner
		cmds = append(cmds, sp.Tick)
	}
	// Listen for reporter events
	cmds = append(cmds, m.listenEventsCmd())
	// Kick off dependency check
	cmds = append(cmds, m.checkDepsCmd())
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.cancel()
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case depsCheckedMsg:
		m.depsChecked = true
		m.depsErr = msg.Err
		m.ffmpegPath = msg.FFmpegPath
		m.ffprobePath = msg.FFprobePath
		if m.depsErr != nil {
			// Mark all as errored
			for _, id := range m.jobOrder {
				js := m.jobs[id]
				js.stage = progress.StageError
				js.status = fmt.Sprintf("Dependency error: %v", m.depsErr)
				js.err = m.depsErr
				js.done = true
			}
			return m, tea.Quit
		}
		// Start initial workers
		return m, m.startNextWorkersCmd()

	case jobUpdateMsg:
		u := msg.U
		if js, ok := m.jobs[u.JobID]; ok {
			js.stage = u.Stage
			js.percent = u.Percent
			js.status = u.Message
			js.nodesDone = u.NodesDone
			js.nodesAll = u.NodesAll
		}
	case jobLogMsg:
		l := msg.L
		if js, ok := m.jobs[l.JobID]; ok {
			// small ring buffer
			line := strings.TrimRight(l.Line, "\r\n")
			if len(js.logsRing) > 1000 {
				js.logsRing = js.logsRing[1:]
			}
			js.logsRing = append(js.logsRing, line)
		}
	case jobResultMsg:
		r := msg.R
		if js, ok := m.jobs[r.JobID]; ok && !js.done {
			js.done = true
			js.err = r.Err
			if r.Err == nil {
				js.stage = progress.StageCompleted
				js.percent = 100
				js.outputPath = r.OutputPath
				js.bytes = r.Bytes
				js.status = savedStatus(r)
			} else {
				js.stage = progress.StageError
				js.status = r.Err.Error()
				js.percent = -1
			}
			// Start next job if any remain
			return m, m.startNextWorkersCmd()
		}
	case allDoneMsg:
		return m, tea.Quit
	}

	// Update per-job components (spinner)
	var cmds []tea.Cmd
	for _, id := range m.jobOrder {
		js := m.jobs[id]
		var c tea.Cmd
		js.spinner, c = js.spinner.Update(msg)
		if c != nil {
			cmds = append(cmds, c)
		}
	}
	// Keep listening for events
	cmds = append(cmds, m.listenEventsCmd())
	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	summary := m.viewSummary()
	if summary != "" {
		return m.viewHeader() + "\n\n" + m.viewJobs() + "\n" + summary
	}
	return m.viewHeader() + "\n\n" + m.viewJobs()
}

func (m Model) listenEventsCmd() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.ctx.Done():
			return allDoneMsg{}
		case msg := <-m.eventCh:
			return msg
		}
	}
}

func (m Model) checkDepsCmd() tea.Cmd {
	return func() tea.Msg {
		ff, ferr := deps.FindFFmpeg(m.ffmpegPath)
		if ferr != nil {
			return depsCheckedMsg{Err: ferr}
		}
		fp, perr := deps.FindFFprobe(m.ffprobePath)
		if perr != nil {
			return depsCheckedMsg{Err: perr}
		}
		return depsCheckedMsg{FFmpegPath: ff, FFprobePath: fp, Err: nil}
	}
}

// startNextWorkersCmd fills free worker slots with unstarted jobs. The
// scheduling state lives in the shared job map, so repeated invocations
// never relaunch a job.
func (m Model) startNextWorkersCmd() tea.Cmd {
	return func() tea.Msg {
		// If canceled, stop
		select {
		case <-m.ctx.Done():
			return allDoneMsg{}
		default:
		}
		running, done := 0, 0
		for _, id := range m.jobOrder {
			js := m.jobs[id]
			if js.done {
				done++
			} else if js.started {
				running++
			}
		}
		for _, job := range m.list {
			if running >= m.workers {
				break
			}
			js := m.jobs[job.ID]
			if js == nil || js.started || js.done {
				continue
			}
			// Mark job started
			js.started = true
			js.status = "Queued"
			js.stage = progress.StagePlanning
			running++
			// Launch job goroutine
			go m.runJob(job)
		}
		if done == len(m.jobOrder) {
			return allDoneMsg{}
		}
		// No specific message now; rely on reporter events
		return nil
	}
}

func (m Model) runJob(job Job) {
	rep := teaReporter{id: job.ID, ch: m.eventCh}
	out, err := job.Run(m.ctx, rep)
	// The build reports its own result; this one only lands if the job
	// failed before a builder was constructed.
	rep.Result(progress.Result{JobID: job.ID, OutputPath: out, Err: err})
}

// teaReporter feeds build progress into the event loop, rewriting the
// job id so events land on the right row regardless of what id the
// producer used.
type teaReporter struct {
	id string
	ch chan tea.Msg
}

func (r teaReporter) Update(u progress.Update) {
	u.JobID = r.id
	// Block on completion messages to ensure they're delivered
	if u.Stage == progress.StageCompleted || u.Stage == progress.StageError {
		r.ch <- jobUpdateMsg{U: u}
		return
	}
	select {
	case r.ch <- jobUpdateMsg{U: u}:
	default:
	}
}

func (r teaReporter) Log(l progress.Log) {
	l.JobID = r.id
	select {
	case r.ch <- jobLogMsg{L: l}:
	default:
	}
}

func (r teaReporter) Result(res progress.Result) {
	res.JobID = r.id
	// Always block on Result messages - they're critical
	r.ch <- jobResultMsg{R: res}
}
