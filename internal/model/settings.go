package model

// Provider identifies the remote clip-generation model family.
type Provider string

const (
	ProviderVideocrafter Provider = "videocrafter"
	ProviderStabilityAI  Provider = "stabilityai"
	ProviderHaiper       Provider = "haiper"
	ProviderVikit        Provider = "vikit"
	ProviderDefault      Provider = ""
)

// KnownProvider reports whether p is one of the supported providers.
func KnownProvider(p Provider) bool {
	switch p {
	case ProviderVideocrafter, ProviderStabilityAI, ProviderHaiper, ProviderVikit, ProviderDefault:
		return true
	}
	return false
}

// MusicBuildingContext bundles the background-music options carried
// through a build.
type MusicBuildingContext struct {
	ApplyBackgroundMusic     bool
	GenerateBackgroundMusic  bool
	UseRecordedPromptAsAudio bool

	// ExpectedMusicLengthS overrides the generated music duration;
	// 0 falls back to the prompt duration.
	ExpectedMusicLengthS float64

	// DefaultMusicPath is the stock background track used when music is
	// applied but neither generated nor taken from the narration.
	DefaultMusicPath string
}

// BuildSettings is the configuration bundle bound to every node of a
// build at prepare time.
type BuildSettings struct {
	// TestMode selects the stub gateway over the real backend.
	TestMode bool

	// TargetModelProvider picks the remote generator for text-to-clip
	// calls and drives the interpolation default.
	TargetModelProvider Provider

	// Interpolate forces frame interpolation on or off. When nil the
	// provider default applies (videocrafter on, others off).
	Interpolate *bool

	IncludeReadAloudPrompt bool
	Music                  MusicBuildingContext

	// ExpectedLengthS is the target total duration used to rescale
	// during concatenation; 0 means no rescale target.
	ExpectedLengthS float64

	// Prompt, when set, is the authoritative text for music prompts,
	// narration, and subtitle timing.
	Prompt *Prompt

	TargetDirPath  string
	OutputFileName string

	// RunAsync selects concurrent dispatch; sequential is kept for
	// debugging.
	RunAsync bool

	// MaxInflight bounds concurrent gateway calls; 0 uses the default.
	MaxInflight int

	// MaxRetries bounds gateway retry attempts; 0 uses the default.
	MaxRetries int

	// WorkDir is the per-build scratch directory. Bound by the planner
	// before dispatch.
	WorkDir string

	Verbose bool
}

// InterpolateEffective resolves the interpolation flag: an explicit
// setting wins, otherwise the provider policy applies.
func (s BuildSettings) InterpolateEffective() bool {
	if s.Interpolate != nil {
		return *s.Interpolate
	}
	return s.TargetModelProvider == ProviderVideocrafter
}

// MusicDurationS returns the duration to request from the music
// generator. The concat rescale target is deliberately ignored here;
// music follows the prompt clock.
func (s BuildSettings) MusicDurationS() float64 {
	if s.Music.ExpectedMusicLengthS > 0 {
		return s.Music.ExpectedMusicLengthS
	}
	if s.Prompt != nil {
		return s.Prompt.DurationS
	}
	return 0
}
