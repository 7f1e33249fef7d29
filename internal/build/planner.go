// Package build plans and executes video-node builds: it linearizes the
// node tree into a dependency-respecting order, dispatches each node
// through its handler pipeline (sequentially or concurrently), and
// finalizes the root output.
package build

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"promptreel/internal/gateway"
	"promptreel/internal/model"
	"promptreel/internal/progress"
	"promptreel/internal/toolbox"
	"promptreel/internal/util"
	"promptreel/internal/video"
)

// Builder wires the collaborators a build needs. Zero-value fields get
// sensible defaults except Gateway and Toolbox, which are required.
type Builder struct {
	Gateway  gateway.Gateway
	Toolbox  *toolbox.Toolbox
	Reporter progress.Reporter
	HTTP     *http.Client

	// Now is injectable for deterministic file names in tests.
	Now func() time.Time
}

// Build runs the full pipeline for the tree under root and returns the
// path of the final media file. The working directory is preserved on
// failure for inspection.
func (b *Builder) Build(ctx context.Context, root video.Node, settings model.BuildSettings) (string, error) {
	if b.Gateway == nil || b.Toolbox == nil {
		return "", errors.New("build: gateway and toolbox are required")
	}
	if !model.KnownProvider(settings.TargetModelProvider) {
		return "", fail(KindInvalidInput, "", fmt.Errorf("unknown provider %q", settings.TargetModelProvider))
	}
	if settings.Prompt != nil {
		if err := settings.Prompt.Validate(); err != nil {
			return "", fail(KindInvalidInput, "", err)
		}
	}

	ownWorkDir := false
	if settings.WorkDir == "" {
		dir, err := util.MakeTempWorkdir("build")
		if err != nil {
			return "", fail(KindIO, "", err)
		}
		settings.WorkDir = dir
		ownWorkDir = true
	} else if err := util.EnsureDir(settings.WorkDir); err != nil {
		return "", fail(KindIO, "", err)
	}

	now := time.Now()
	if b.Now != nil {
		now = b.Now()
	}
	r := &run{
		gw:        b.Gateway,
		tb:        b.Toolbox,
		rep:       b.Reporter,
		http:      b.HTTP,
		root:      root,
		settings:  settings,
		workDir:   settings.WorkDir,
		buildID:   uuid.NewString()[:8],
		buildDate: now.Format("20060102"),
		buildTime: now.Format("150405"),
	}
	if r.http == nil {
		r.http = http.DefaultClient
	}

	out, err := r.execute(ctx)
	if err != nil {
		r.report(progress.Update{JobID: r.buildID, Stage: progress.StageError, Percent: -1, Message: err.Error()})
		r.result(progress.Result{JobID: r.buildID, Err: err})
		return "", err
	}
	r.report(progress.Update{JobID: r.buildID, Stage: progress.StageCompleted, Percent: 100, NodesDone: r.total, NodesAll: r.total})
	r.result(progress.Result{JobID: r.buildID, OutputPath: out, Bytes: fileSize(out)})

	// The scratch directory only goes away when we created it and the
	// output was copied out of it.
	if ownWorkDir && !insideDir(out, r.workDir) {
		_ = os.RemoveAll(r.workDir)
	}
	return out, nil
}

// run is the per-build state: one run per call to Build, never shared.
type run struct {
	gw       gateway.Gateway
	tb       *toolbox.Toolbox
	rep      progress.Reporter
	http     *http.Client
	root     video.Node
	settings model.BuildSettings
	workDir  string

	buildID   string
	buildDate string
	buildTime string

	mu    sync.Mutex
	done  int
	total int
}

func (r *run) execute(ctx context.Context) (string, error) {
	r.report(progress.Update{JobID: r.buildID, Stage: progress.StagePlanning, Percent: 0, Message: "preparing node tree"})

	if err := r.root.PrepareBuild(ctx, r.settings); err != nil {
		return "", fail(KindInvalidInput, r.root.Base().ID(), err)
	}
	order := ResolveOrder(r.root)
	r.total = len(order)
	r.report(progress.Update{JobID: r.buildID, Stage: progress.StageGenerating, Percent: 0, NodesAll: r.total,
		Message: fmt.Sprintf("building %d nodes", r.total)})

	var err error
	if r.settings.RunAsync {
		err = r.dispatchAsync(ctx, order)
	} else {
		err = r.dispatchSequential(ctx, order)
	}
	if err != nil {
		return "", err
	}
	out := r.root.Base().MediaURL()
	if out == "" {
		return "", fail(KindToolFailed, r.root.Base().ID(), errors.New("build produced no output"))
	}
	return out, nil
}

func (r *run) dispatchSequential(ctx context.Context, order []video.Node) error {
	for _, n := range order {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.buildNode(ctx, n); err != nil {
			return err
		}
		r.nodeFinished(n)
	}
	return nil
}

// dispatchAsync launches one task per node. Each task waits for its
// dependency edges; the gateway's inflight semaphore bounds remote
// concurrency, so independent nodes are otherwise free to overlap.
func (r *run) dispatchAsync(ctx context.Context, order []video.Node) error {
	g, ctx := errgroup.WithContext(ctx)

	ready := make(map[string]chan struct{}, len(order))
	for _, n := range order {
		ready[n.Base().ID()] = make(chan struct{})
	}

	for _, n := range order {
		n := n
		deps := append(childrenOf(n), n.Dependencies()...)
		g.Go(func() error {
			defer close(ready[n.Base().ID()])
			for _, d := range deps {
				select {
				case <-ready[d.Base().ID()]:
				case <-ctx.Done():
					return ctx.Err()
				}
				if d.Base().State() == video.StateFailed {
					return fail(KindDependencyUnsatisfied, n.Base().ID(),
						fmt.Errorf("dependency %s failed", d.Base().ID()))
				}
			}
			if err := r.buildNode(ctx, n); err != nil {
				return err
			}
			r.nodeFinished(n)
			return nil
		})
	}
	return g.Wait()
}

func (r *run) nodeFinished(n video.Node) {
	r.mu.Lock()
	r.done++
	done := r.done
	r.mu.Unlock()
	pct := float64(done) / float64(r.total) * 100
	r.report(progress.Update{JobID: r.buildID, Stage: progress.StageGenerating, Percent: pct,
		NodesDone: done, NodesAll: r.total, Message: n.Title()})
}

func (r *run) report(u progress.Update) {
	if r.rep != nil {
		r.rep.Update(u)
	}
}

func (r *run) log(line string) {
	if r.rep != nil {
		r.rep.Log(progress.Log{JobID: r.buildID, Stream: progress.StreamStdout, Line: line})
	}
}

func (r *run) result(res progress.Result) {
	if r.rep != nil {
		r.rep.Result(res)
	}
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func insideDir(path, dir string) bool {
	return len(path) > len(dir) && path[:len(dir)] == dir
}
