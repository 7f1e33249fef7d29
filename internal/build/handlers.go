package build

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"promptreel/internal/progress"
	"promptreel/internal/toolbox"
	"promptreel/internal/util"
	"promptreel/internal/video"
)

// buildNode runs the handler pipeline for one node. Already-generated
// nodes (imported files, retried trees) short-circuit.
func (r *run) buildNode(ctx context.Context, n video.Node) error {
	base := n.Base()
	if base.IsGenerated() && base.MediaURL() != "" {
		return nil
	}
	if err := base.Transition(video.StateBuilding); err != nil {
		return fail(KindInvalidInput, base.ID(), err)
	}

	var err error
	switch c := n.(type) {
	case *video.RawText:
		err = r.buildRawText(ctx, c)
	case *video.RawImage:
		err = r.buildRawImage(ctx, c)
	case *video.Transition:
		err = r.buildTransition(ctx, c)
	case *video.Composite:
		err = r.buildContainer(ctx, n, c.Children())
	case *video.PromptBased:
		err = r.buildContainer(ctx, n, c.Children())
	case *video.Imported:
		// Media already on disk; nothing to produce.
		err = nil
	default:
		err = fail(KindInvalidInput, base.ID(), fmt.Errorf("unknown node type %T", n))
	}
	if err != nil {
		base.MarkFailed(err)
		return err
	}
	if base.State() == video.StateFinalized {
		return nil
	}
	return base.Transition(video.StateBuilt)
}

func (r *run) buildRawText(ctx context.Context, n *video.RawText) error {
	url, err := r.gw.GenerateClipFromText(ctx, n.TextPrompt, r.settings.TargetModelProvider)
	if err != nil {
		return fail(KindGenerationFailed, n.Base().ID(), err)
	}
	return r.finishLeaf(ctx, n, url)
}

func (r *run) buildRawImage(ctx context.Context, n *video.RawImage) error {
	url, err := r.gw.GenerateClipFromImage(ctx, n.ImagePath)
	if err != nil {
		return fail(KindGenerationFailed, n.Base().ID(), err)
	}
	return r.finishLeaf(ctx, n, url)
}

func (r *run) buildTransition(ctx context.Context, n *video.Transition) error {
	src, tgt := n.Source.Base(), n.Target.Base()
	if !src.IsGenerated() || src.MediaURL() == "" || !tgt.IsGenerated() || tgt.MediaURL() == "" {
		return fail(KindMissingEndpointMedia, n.Base().ID(), errors.New("endpoint media not built"))
	}
	frameA, err := r.tb.LastFrame(ctx, src.MediaURL())
	if err != nil {
		return fail(KindFrameExtraction, n.Base().ID(), err)
	}
	frameB, err := r.tb.FirstFrame(ctx, tgt.MediaURL())
	if err != nil {
		return fail(KindFrameExtraction, n.Base().ID(), err)
	}
	url, err := r.gw.GenerateTransition(ctx, frameA, frameB)
	if err != nil {
		return fail(KindGenerationFailed, n.Base().ID(), err)
	}
	return r.finishLeaf(ctx, n, url)
}

// finishLeaf applies the shared tail of every leaf pipeline:
// interpolation before the download, then localization, then an
// optional normalizing re-encode, then the duration probe.
func (r *run) finishLeaf(ctx context.Context, n video.Node, url string) error {
	base := n.Base()

	if r.settings.InterpolateEffective() {
		interpolated, err := r.gw.Interpolate(ctx, url)
		if err != nil {
			return fail(KindGenerationFailed, base.ID(), err)
		}
		url = interpolated
		base.MarkInterpolated()
	}

	local, err := r.localize(ctx, n, url, "mp4")
	if err != nil {
		return err
	}
	base.SetMediaURL(local)
	base.MarkGenerated()

	if base.NeedsReencoding() {
		if err := r.reencodeStep(ctx, n); err != nil {
			return err
		}
	}
	return r.probeStep(ctx, n)
}

// buildContainer concatenates the children's media in declaration
// order and, for the build's top node, applies the post-process chain:
// re-encode, background music, narration, target placement.
func (r *run) buildContainer(ctx context.Context, n video.Node, children []video.Node) error {
	base := n.Base()
	if len(children) == 0 {
		return fail(KindInvalidInput, base.ID(), errors.New("composite has no children"))
	}

	clips := make([]string, 0, len(children))
	actualS := 0.0
	for _, ch := range children {
		cb := ch.Base()
		if !cb.IsGenerated() || cb.MediaURL() == "" {
			return fail(KindDependencyUnsatisfied, base.ID(),
				fmt.Errorf("child %s has no media", cb.ID()))
		}
		clips = append(clips, cb.MediaURL())
		actualS += cb.DurationS()
	}

	isTop := base.ID() == r.root.Base().ID()
	if isTop {
		r.report(progress.Update{JobID: r.buildID, Stage: progress.StageConcatenating, Percent: -1,
			NodesDone: r.doneCount(), NodesAll: r.total, Message: "concatenating clips"})
	}

	playlist := filepath.Join(r.workDir, "playlist_"+base.ID()+".txt")
	if err := toolbox.WritePlaylist(playlist, clips); err != nil {
		return fail(KindIO, base.ID(), err)
	}
	target := r.nodeFile(n, "mp4")
	if _, err := r.tb.Concatenate(ctx, playlist, target, r.rateMultiplier(actualS)); err != nil {
		return fail(KindToolFailed, base.ID(), err)
	}
	base.SetMediaURL(target)
	base.MarkGenerated()
	if err := r.probeStep(ctx, n); err != nil {
		return err
	}

	if base.NeedsReencoding() {
		if err := r.reencodeStep(ctx, n); err != nil {
			return err
		}
	}

	if !isTop {
		return nil
	}
	if r.settings.Music.ApplyBackgroundMusic {
		if err := r.musicStep(ctx, n, children); err != nil {
			return err
		}
	}
	if r.settings.IncludeReadAloudPrompt {
		if err := r.narrationStep(ctx, n); err != nil {
			return err
		}
	}
	return r.targetStep(n)
}

// rateMultiplier rescales the concatenation to the expected length:
// the configured target wins, then the prompt clock, else no rescale.
func (r *run) rateMultiplier(actualS float64) float64 {
	expectedS := r.settings.ExpectedLengthS
	if expectedS <= 0 && r.settings.Prompt != nil {
		expectedS = r.settings.Prompt.DurationS
	}
	if expectedS <= 0 || actualS <= 0 {
		return 1.0
	}
	return actualS / expectedS
}

// musicStep lays a background track under the composite's video. One
// of three sources applies: generated music, the recorded narration,
// or a slice of the stock track.
func (r *run) musicStep(ctx context.Context, n video.Node, children []video.Node) error {
	base := n.Base()
	r.report(progress.Update{JobID: r.buildID, Stage: progress.StageMusic, Percent: -1,
		NodesDone: r.doneCount(), NodesAll: r.total, Message: "applying background music"})

	var audio string
	switch {
	case r.settings.Music.GenerateBackgroundMusic:
		musicPrompt := r.musicPrompt(children)
		durationS := r.settings.MusicDurationS()
		if durationS <= 0 {
			durationS = base.DurationS()
		}
		url, err := r.gw.GenerateMusic(ctx, durationS, musicPrompt)
		if err != nil {
			return fail(KindGenerationFailed, base.ID(), err)
		}
		base.MarkBgMusicGenerated()
		local, err := r.localize(ctx, n, url, "mp3")
		if err != nil {
			return err
		}
		audio = local

	case r.settings.Music.UseRecordedPromptAsAudio:
		if r.settings.Prompt == nil || r.settings.Prompt.NarrationAudioPath == "" {
			return fail(KindInvalidInput, base.ID(), errors.New("recorded-prompt music requested without narration"))
		}
		base.MarkBgMusicApplied()
		audio = r.settings.Prompt.NarrationAudioPath

	default:
		if r.settings.Music.DefaultMusicPath == "" {
			return fail(KindInvalidInput, base.ID(), errors.New("default music requested without a track"))
		}
		base.MarkBgMusicApplied()
		slice := r.nodeFile(n, "mp3")
		if _, err := r.tb.AudioSlice(ctx, r.settings.Music.DefaultMusicPath, 0, base.DurationS(), slice); err != nil {
			return fail(KindToolFailed, base.ID(), err)
		}
		audio = slice
	}

	return r.muxStep(ctx, n, audio)
}

func (r *run) musicPrompt(children []video.Node) string {
	if r.settings.Prompt != nil && r.settings.Prompt.Text != "" {
		return r.settings.Prompt.Text
	}
	titles := make([]string, 0, len(children))
	for _, ch := range children {
		titles = append(titles, ch.Title())
	}
	return strings.Join(titles, " ")
}

// narrationStep muxes the prompt narration over the final visual
// stream, synthesizing speech when no recording exists.
func (r *run) narrationStep(ctx context.Context, n video.Node) error {
	base := n.Base()
	if r.settings.Prompt == nil {
		return nil
	}
	audio := r.settings.Prompt.NarrationAudioPath
	if audio == "" {
		if r.settings.Prompt.Text == "" {
			return nil
		}
		url, err := r.gw.SynthesizeSpeech(ctx, r.settings.Prompt.Text)
		if err != nil {
			return fail(KindGenerationFailed, base.ID(), err)
		}
		local, err := r.localize(ctx, n, url, "mp3")
		if err != nil {
			return err
		}
		audio = local
	}
	base.MarkReadAloud()
	return r.muxStep(ctx, n, audio)
}

func (r *run) muxStep(ctx context.Context, n video.Node, audio string) error {
	base := n.Base()
	out := r.nodeFile(n, "mp4")
	if _, err := r.tb.MuxAudioOverVideo(ctx, base.MediaURL(), audio, out); err != nil {
		return fail(KindToolFailed, base.ID(), err)
	}
	base.SetMediaURL(out)
	return nil
}

// targetStep copies the finished file to its configured destination and
// finalizes the node. Without a destination the output stays in the
// working directory.
func (r *run) targetStep(n video.Node) error {
	base := n.Base()
	if r.settings.TargetDirPath == "" || r.settings.OutputFileName == "" {
		return nil
	}
	r.report(progress.Update{JobID: r.buildID, Stage: progress.StageFinalizing, Percent: -1,
		NodesDone: r.doneCount(), NodesAll: r.total, Message: "placing final file"})

	dst := filepath.Join(r.settings.TargetDirPath, r.settings.OutputFileName)
	if err := util.CopyFile(base.MediaURL(), dst); err != nil {
		return fail(KindIO, base.ID(), err)
	}
	base.SetMediaURL(dst)
	r.log("final file placed at " + dst)
	if err := base.Transition(video.StateBuilt); err != nil {
		return fail(KindInvalidInput, base.ID(), err)
	}
	return base.Transition(video.StateFinalized)
}

func (r *run) reencodeStep(ctx context.Context, n video.Node) error {
	base := n.Base()
	base.MarkReencoded()
	out := r.nodeFile(n, "mp4")
	if _, err := r.tb.Reencode(ctx, base.MediaURL(), out); err != nil {
		return fail(KindToolFailed, base.ID(), err)
	}
	base.SetMediaURL(out)
	return nil
}

// probeStep records the media duration (and frame size, best effort)
// from the produced file.
func (r *run) probeStep(ctx context.Context, n video.Node) error {
	base := n.Base()
	seconds, err := r.tb.ProbeDuration(ctx, base.MediaURL())
	if err != nil {
		return fail(KindToolFailed, base.ID(), err)
	}
	base.SetDuration(seconds)
	if w, h, err := r.tb.ProbeDimensions(ctx, base.MediaURL()); err == nil {
		base.SetDimensions(w, h)
	}
	return nil
}

// localize brings a gateway result into the working directory under the
// node's state-dependent file name. Remote URLs are downloaded; local
// paths are copied so every artifact of the build is addressable.
func (r *run) localize(ctx context.Context, n video.Node, url, ext string) (string, error) {
	dst := r.nodeFile(n, ext)
	if url == dst {
		return dst, nil
	}
	if util.IsRemoteURL(url) {
		if err := util.DownloadFile(ctx, r.http, url, dst); err != nil {
			return "", fail(KindIO, n.Base().ID(), err)
		}
		return dst, nil
	}
	if err := util.CopyFile(url, dst); err != nil {
		return "", fail(KindIO, n.Base().ID(), err)
	}
	return dst, nil
}

// nodeFile renders the node's current state-dependent file name inside
// the working directory. Successive pipeline steps flip metadata flags
// first, so each step writes a distinct file and earlier artifacts
// survive for debugging.
func (r *run) nodeFile(n video.Node, ext string) string {
	m := n.Base().Metadata()
	f := video.FileName{
		Title:     n.Title(),
		VideoType: n.ShortTypeName(),
		BuildID:   r.buildID,
		BuildDate: r.buildDate,
		BuildTime: r.buildTime,
		UniqueID:  n.Base().ID(),
		Ext:       ext,

		GeneratedMusic: m.IsBgMusicGenerated,
		DefaultMusic:   m.IsBgMusicApplied && !m.IsBgMusicGenerated,
		ReadAloud:      m.IsPromptReadAloud,
		Reencoded:      m.IsReencoded,
		Interpolated:   m.IsInterpolated,
	}
	return filepath.Join(r.workDir, f.Format())
}

func (r *run) doneCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.done
}
