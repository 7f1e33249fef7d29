package model

import "fmt"

// Subtitle is a single timed caption item in an SRT-like structure.
type Subtitle struct {
	Index   int
	StartMs int
	EndMs   int
	Text    string
}

// DurationMs returns the span of the subtitle in milliseconds.
func (s Subtitle) DurationMs() int {
	return s.EndMs - s.StartMs
}

// Prompt is the canonical decomposed user input driving a build.
type Prompt struct {
	Text      string
	Subtitles []Subtitle

	// NarrationAudioPath points at a recorded narration file when the
	// prompt came from audio; empty otherwise.
	NarrationAudioPath string

	// ImagePath is set when the prompt is image-based.
	ImagePath string

	// DurationS is derived: duration of the narration when present,
	// otherwise the end of the last subtitle.
	DurationS float64
}

// Validate checks the subtitle ordering invariants: items are
// non-overlapping and strictly increasing in start time, and when a
// narration is present the last subtitle ends within it.
func (p *Prompt) Validate() error {
	prevEnd := -1
	prevStart := -1
	for i, s := range p.Subtitles {
		if s.EndMs <= s.StartMs {
			return fmt.Errorf("subtitle %d: end %dms not after start %dms", i, s.EndMs, s.StartMs)
		}
		if s.StartMs <= prevStart {
			return fmt.Errorf("subtitle %d: start %dms not increasing", i, s.StartMs)
		}
		if s.StartMs < prevEnd {
			return fmt.Errorf("subtitle %d: overlaps previous item", i)
		}
		prevStart = s.StartMs
		prevEnd = s.EndMs
	}
	if p.NarrationAudioPath != "" && len(p.Subtitles) > 0 {
		last := p.Subtitles[len(p.Subtitles)-1]
		if float64(last.EndMs) > p.DurationS*1000.0+1 {
			return fmt.Errorf("last subtitle ends at %dms, beyond narration (%.1fs)", last.EndMs, p.DurationS)
		}
	}
	return nil
}
