package model

// Metadata describes a video node's produced media. The boolean flags
// are monotonic: once a handler sets one it never reverts.
type Metadata struct {
	ID          string
	Title       string
	DurationS   float64
	Width       int
	Height      int
	TopParentID string

	IsVideoGenerated   bool
	IsReencoded        bool
	IsInterpolated     bool
	IsBgMusicApplied   bool
	IsBgMusicGenerated bool
	IsPromptReadAloud  bool
}
