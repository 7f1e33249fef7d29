package util

import "context"

// CmdRunner abstracts subprocess execution so tests can substitute a
// fake for ffmpeg/ffprobe invocations.
type CmdRunner interface {
	Run(ctx context.Context, spec CmdSpec) (CmdResult, error)
}

type defaultRunner struct{}

func (defaultRunner) Run(ctx context.Context, spec CmdSpec) (CmdResult, error) {
	return Run(ctx, spec)
}

// NewDefaultRunner returns a CmdRunner backed by the real Run.
func NewDefaultRunner() CmdRunner {
	return defaultRunner{}
}
