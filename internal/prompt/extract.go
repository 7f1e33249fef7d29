// Package prompt turns user input (free text, a narration recording, or
// an image) into a model.Prompt with timed subtitles. Two extractors
// exist: a heuristic one for text-only previews and a recording-based
// one that transcribes narration audio chunk by chunk.
package prompt

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"promptreel/internal/gateway"
	"promptreel/internal/model"
	"promptreel/internal/toolbox"
)

// HeuristicConfig tunes the text-only extractor.
type HeuristicConfig struct {
	WordsPerSubtitle int
	SecondsPerWord   float64
}

// DefaultHeuristic matches a comfortable reading pace.
var DefaultHeuristic = HeuristicConfig{
	WordsPerSubtitle: 7,
	SecondsPerWord:   0.5,
}

// ExtractFromText splits text into subtitles of up to WordsPerSubtitle
// words each, timed at a fixed SecondsPerWord. No narration is
// attached.
func ExtractFromText(text string, cfg HeuristicConfig) (*model.Prompt, error) {
	if cfg.WordsPerSubtitle <= 0 {
		cfg.WordsPerSubtitle = DefaultHeuristic.WordsPerSubtitle
	}
	if cfg.SecondsPerWord <= 0 {
		cfg.SecondsPerWord = DefaultHeuristic.SecondsPerWord
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, errors.New("prompt: empty text")
	}

	var subs []model.Subtitle
	clock := 0.0
	for start := 0; start < len(words); start += cfg.WordsPerSubtitle {
		end := start + cfg.WordsPerSubtitle
		if end > len(words) {
			end = len(words)
		}
		span := float64(end-start) * cfg.SecondsPerWord
		subs = append(subs, model.Subtitle{
			Index:   len(subs),
			StartMs: int(clock * 1000),
			EndMs:   int((clock + span) * 1000),
			Text:    strings.Join(words[start:end], " "),
		})
		clock += span
	}

	p := &model.Prompt{
		Text:      strings.Join(words, " "),
		Subtitles: subs,
		DurationS: clock,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// RecordingExtractor builds a Prompt from a narration recording by
// slicing it into chunks, transcribing each through the gateway, and
// merging undersized subtitles.
type RecordingExtractor struct {
	Gateway      gateway.Gateway
	Toolbox      *toolbox.Toolbox
	ChunkS       float64
	MinDurationS float64
}

const (
	defaultChunkS       = 30.0
	defaultMinDurationS = 7.0
)

// Extract transcribes audioPath. Chunk slices are written under
// workDir.
func (e *RecordingExtractor) Extract(ctx context.Context, audioPath, workDir string) (*model.Prompt, error) {
	if e.Gateway == nil || e.Toolbox == nil {
		return nil, errors.New("prompt: extractor needs a gateway and a toolbox")
	}
	chunkS := e.ChunkS
	if chunkS <= 0 {
		chunkS = defaultChunkS
	}
	minS := e.MinDurationS
	if minS <= 0 {
		minS = defaultMinDurationS
	}

	totalS, err := e.Toolbox.ProbeDuration(ctx, audioPath)
	if err != nil {
		return nil, fmt.Errorf("prompt: probe narration: %w", err)
	}
	if totalS <= 0 {
		return nil, fmt.Errorf("prompt: narration %s has no duration", audioPath)
	}

	var subs []model.Subtitle
	for i := 0; ; i++ {
		startS := float64(i) * chunkS
		if startS >= totalS {
			break
		}
		endS := startS + chunkS
		if endS > totalS {
			endS = totalS
		}
		chunkPath := filepath.Join(workDir, fmt.Sprintf("narration_chunk_%03d%s", i, filepath.Ext(audioPath)))
		if _, err := e.Toolbox.AudioSlice(ctx, audioPath, startS, endS, chunkPath); err != nil {
			return nil, fmt.Errorf("prompt: slice chunk %d: %w", i, err)
		}
		chunkSubs, err := e.Gateway.Transcribe(ctx, chunkPath)
		if err != nil {
			return nil, fmt.Errorf("prompt: transcribe chunk %d: %w", i, err)
		}
		// Shift chunk-local timing back into the global clock. Backends
		// may report the chunk's nominal length rather than the short
		// final slice, so the shifted end is clamped to the narration.
		offsetMs := int(startS * 1000)
		totalMs := int(totalS * 1000)
		for _, s := range chunkSubs {
			startMs := s.StartMs + offsetMs
			endMs := s.EndMs + offsetMs
			if endMs > totalMs {
				endMs = totalMs
			}
			if startMs >= endMs {
				continue
			}
			subs = append(subs, model.Subtitle{
				Index:   len(subs),
				StartMs: startMs,
				EndMs:   endMs,
				Text:    s.Text,
			})
		}
	}
	if len(subs) == 0 {
		return nil, fmt.Errorf("prompt: no speech found in %s", audioPath)
	}

	subs = MergeShortSubtitles(subs, int(minS*1000))

	texts := make([]string, len(subs))
	for i, s := range subs {
		texts[i] = s.Text
	}
	p := &model.Prompt{
		Text:               strings.Join(texts, " "),
		Subtitles:          subs,
		NarrationAudioPath: audioPath,
		DurationS:          totalS,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// MergeShortSubtitles folds items shorter than minDurationMs into their
// right neighbour (last item folds left) until every item meets the
// minimum. A single remaining item may stay short when the whole
// narration is below the threshold. Indices are renumbered.
func MergeShortSubtitles(subs []model.Subtitle, minDurationMs int) []model.Subtitle {
	out := append([]model.Subtitle(nil), subs...)
	for len(out) > 1 {
		short := -1
		for i, s := range out {
			if s.DurationMs() < minDurationMs {
				short = i
				break
			}
		}
		if short == -1 {
			break
		}
		if short < len(out)-1 {
			out[short+1].StartMs = out[short].StartMs
			out[short+1].Text = joinText(out[short].Text, out[short+1].Text)
			out = append(out[:short], out[short+1:]...)
		} else {
			out[short-1].EndMs = out[short].EndMs
			out[short-1].Text = joinText(out[short-1].Text, out[short].Text)
			out = out[:short]
		}
	}
	for i := range out {
		out[i].Index = i
	}
	return out
}

func joinText(a, b string) string {
	a = strings.TrimSpace(a)
	b = strings.TrimSpace(b)
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}
