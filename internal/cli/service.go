package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"promptreel/internal/gateway"
	"promptreel/internal/model"
	promptpkg "promptreel/internal/prompt"
	"promptreel/internal/progress"
	"promptreel/internal/toolbox"
	"promptreel/internal/util"
	"promptreel/internal/util/deps"
	"promptreel/internal/video"
)

// Service holds the wired collaborators for one invocation.
type Service struct {
	Gateway gateway.Gateway
	Toolbox *toolbox.Toolbox
	WorkDir string
}

// NewService locates the media tools, creates the working directory and
// constructs the gateway (stub in test mode, HTTP otherwise). The
// inputs' settings are updated with the working directory.
func NewService(in *Inputs) (*Service, error) {
	ffmpeg, err := deps.FindFFmpeg(in.FFmpegPath)
	if err != nil {
		return nil, err
	}
	ffprobe, err := deps.FindFFprobe(in.FFprobePath)
	if err != nil {
		return nil, err
	}
	tb := toolbox.New(toolbox.Options{
		FFmpegPath:  ffmpeg,
		FFprobePath: ffprobe,
		Verbose:     in.Settings.Verbose,
	})

	workDir := in.Settings.WorkDir
	if workDir == "" {
		workDir, err = util.MakeTempWorkdir("build")
		if err != nil {
			return nil, err
		}
		in.Settings.WorkDir = workDir
	}

	var gw gateway.Gateway
	if in.Settings.TestMode {
		stub := gateway.NewStub(filepath.Join(workDir, "stub"))
		if in.StubManifest != "" {
			m, err := gateway.LoadStubManifest(in.StubManifest)
			if err != nil {
				return nil, err
			}
			stub = stub.WithManifest(m)
		}
		gw = stub
	} else {
		remote, err := gateway.NewRemote(gateway.Config{
			BaseURL:     in.GatewayURL,
			APIKey:      in.GatewayKey,
			MaxRetries:  in.Settings.MaxRetries,
			MaxInflight: in.Settings.MaxInflight,
		})
		if err != nil {
			return nil, err
		}
		gw = remote
	}

	return &Service{Gateway: gw, Toolbox: tb, WorkDir: workDir}, nil
}

// ExtractPrompt turns the invocation's content source into a Prompt,
// or nil when only imported clips or an image were given.
func (s *Service) ExtractPrompt(ctx context.Context, in Inputs) (*model.Prompt, error) {
	switch {
	case in.AudioPath != "":
		ex := &promptpkg.RecordingExtractor{
			Gateway:      s.Gateway,
			Toolbox:      s.Toolbox,
			ChunkS:       in.ChunkS,
			MinDurationS: in.MinSubtitleS,
		}
		return ex.Extract(ctx, in.AudioPath, s.WorkDir)
	case in.PromptText != "":
		return promptpkg.ExtractFromText(in.PromptText, promptpkg.HeuristicConfig{
			WordsPerSubtitle: in.WordsPerSubtitle,
			SecondsPerWord:   in.SecondsPerWord,
		})
	default:
		return nil, nil
	}
}

// ComposeTree builds the root node for the invocation: a root composite
// holding a prompt-based node, an image clip and any imported files, in
// that order.
func (s *Service) ComposeTree(ctx context.Context, in Inputs, p *model.Prompt) (video.Node, error) {
	root := video.NewRootComposite()

	if p != nil {
		if in.Enhance == EnhanceEnhanced {
			if err := s.enhanceSubtitles(ctx, p); err != nil {
				return nil, err
			}
		}
		var rewriter video.KeywordRewriter
		if in.Enhance == EnhanceKeywords {
			rewriter = s.Gateway
		}
		root.AppendChild(video.NewPromptBased(*p, rewriter))
	}
	if in.ImagePath != "" {
		root.AppendChild(video.NewRawImage(in.ImagePath))
	}
	for _, path := range in.ImportPaths {
		root.AppendChild(video.NewImported(path))
	}
	if len(root.Children()) == 0 {
		return nil, fmt.Errorf("no content to build")
	}
	return root, nil
}

// enhanceSubtitles rewrites each subtitle into one descriptive sentence
// before expansion.
func (s *Service) enhanceSubtitles(ctx context.Context, p *model.Prompt) error {
	enh := &promptpkg.Enhancer{Gateway: s.Gateway}
	for i := range p.Subtitles {
		text, _, err := enh.Enhanced(ctx, p.Subtitles[i].Text)
		if err != nil {
			return fmt.Errorf("enhance subtitle %d: %w", i, err)
		}
		if text != "" {
			p.Subtitles[i].Text = text
		}
	}
	return nil
}

// ConsoleReporter prints progress as plain lines for non-TTY runs.
type ConsoleReporter struct {
	Out     io.Writer
	Verbose bool
}

func (r ConsoleReporter) Update(u progress.Update) {
	if u.Percent >= 0 && u.NodesAll > 0 {
		fmt.Fprintf(r.Out, "[%s] %3.0f%% (%d/%d) %s\n", u.Stage, u.Percent, u.NodesDone, u.NodesAll, u.Message)
		return
	}
	fmt.Fprintf(r.Out, "[%s] %s\n", u.Stage, u.Message)
}

func (r ConsoleReporter) Log(l progress.Log) {
	if r.Verbose {
		fmt.Fprintln(r.Out, l.Line)
	}
}

func (r ConsoleReporter) Result(res progress.Result) {
	if res.Err != nil {
		fmt.Fprintf(r.Out, "build failed: %v\n", res.Err)
		return
	}
	fmt.Fprintf(r.Out, "Saved: %s\n", res.OutputPath)
}
