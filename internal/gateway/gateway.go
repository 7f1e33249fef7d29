// Package gateway is the uniform contract over remote generative-media
// services: clip generation, transitions, interpolation, music, speech
// and transcription. Two implementations exist: Remote talks to the
// real backend over HTTP, Stub returns canned local files for tests and
// dry runs.
package gateway

import (
	"context"
	"fmt"

	"promptreel/internal/model"
)

// Gateway abstracts the remote generative-media backend. Results are
// either remote URLs (downloaded by the caller) or local paths.
type Gateway interface {
	// GenerateClipFromText commissions a short clip from a text prompt
	// using the given provider model family.
	GenerateClipFromText(ctx context.Context, prompt string, provider model.Provider) (string, error)

	// GenerateClipFromImage commissions a short clip animating a still
	// image.
	GenerateClipFromImage(ctx context.Context, imagePath string) (string, error)

	// GenerateTransition commissions a clip morphing between two still
	// frames.
	GenerateTransition(ctx context.Context, frameA, frameB string) (string, error)

	// Interpolate frame-rate upsamples a playable clip.
	Interpolate(ctx context.Context, clipURL string) (string, error)

	// GenerateMusic produces a background track of the given duration.
	// durationS must be within [1, 60].
	GenerateMusic(ctx context.Context, durationS float64, prompt string) (string, error)

	// SynthesizeSpeech renders text as narration audio (MP3).
	SynthesizeSpeech(ctx context.Context, text string) (string, error)

	// Transcribe converts narration audio into timed subtitles.
	Transcribe(ctx context.Context, audioPath string) ([]model.Subtitle, error)

	// RewritePromptKeywords turns free text into vivid keywords plus a
	// short title stem, avoiding the excluded words.
	RewritePromptKeywords(ctx context.Context, text string, excluded []string) (keywords, titleStem string, err error)

	// RewritePromptEnhanced turns free text into one enhanced
	// descriptive sentence plus a title stem.
	RewritePromptEnhanced(ctx context.Context, text string) (enhanced, titleStem string, err error)
}

const (
	// DefaultMaxInflight bounds concurrent gateway calls; the backend
	// rejects more than ~20 concurrent generations.
	DefaultMaxInflight = 15

	// DefaultMaxRetries bounds attempts per call.
	DefaultMaxRetries = 5

	minMusicDurationS = 1.0
	maxMusicDurationS = 60.0
)

func validateMusicDuration(durationS float64) error {
	if durationS < minMusicDurationS || durationS > maxMusicDurationS {
		return fmt.Errorf("music duration %.1fs out of range [%.0f, %.0f]",
			durationS, minMusicDurationS, maxMusicDurationS)
	}
	return nil
}

// semaphore bounds inflight calls across one gateway instance.
type semaphore chan struct{}

func newSemaphore(n int) semaphore {
	if n <= 0 {
		n = DefaultMaxInflight
	}
	return make(semaphore, n)
}

func (s semaphore) acquire(ctx context.Context) error {
	select {
	case s <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s semaphore) release() { <-s }
