package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"promptreel/internal/model"
	"promptreel/internal/util"
)

// StubManifest optionally maps operations to sample asset files the
// stub hands out instead of writing placeholders. Useful for exercising
// the full toolbox path against real media in integration runs.
type StubManifest struct {
	Clip       string `yaml:"clip"`
	Transition string `yaml:"transition"`
	Music      string `yaml:"music"`
	Speech     string `yaml:"speech"`
}

// LoadStubManifest reads a YAML manifest of sample assets.
func LoadStubManifest(path string) (StubManifest, error) {
	var m StubManifest
	b, err := os.ReadFile(path)
	if err != nil {
		return m, err
	}
	if err := yaml.Unmarshal(b, &m); err != nil {
		return m, fmt.Errorf("stub manifest %s: %w", path, err)
	}
	return m, nil
}

// Stub is the deterministic offline gateway used in test mode. Every
// operation succeeds instantly and returns a local file in the stub's
// directory; identical inputs produce identical paths.
type Stub struct {
	dir      string
	manifest StubManifest

	mu    sync.Mutex
	calls map[string]int
}

// NewStub creates a stub writing canned files under dir.
func NewStub(dir string) *Stub {
	return &Stub{dir: dir, calls: make(map[string]int)}
}

// WithManifest attaches sample assets to hand out.
func (s *Stub) WithManifest(m StubManifest) *Stub {
	s.manifest = m
	return s
}

var _ Gateway = (*Stub)(nil)

// Calls reports how often the named operation ran; tests rely on it.
func (s *Stub) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *Stub) record(op string) {
	s.mu.Lock()
	s.calls[op]++
	s.mu.Unlock()
}

func (s *Stub) GenerateClipFromText(ctx context.Context, prompt string, provider model.Provider) (string, error) {
	s.record("clip_from_text")
	return s.cannedFile(s.manifest.Clip, "clip", prompt+string(provider), ".mp4")
}

func (s *Stub) GenerateClipFromImage(ctx context.Context, imagePath string) (string, error) {
	s.record("clip_from_image")
	return s.cannedFile(s.manifest.Clip, "imgclip", imagePath, ".mp4")
}

func (s *Stub) GenerateTransition(ctx context.Context, frameA, frameB string) (string, error) {
	s.record("transition")
	return s.cannedFile(s.manifest.Transition, "transition", frameA+frameB, ".mp4")
}

func (s *Stub) Interpolate(ctx context.Context, clipURL string) (string, error) {
	s.record("interpolate")
	return s.cannedFile(s.manifest.Clip, "interpolated", clipURL, ".mp4")
}

func (s *Stub) GenerateMusic(ctx context.Context, durationS float64, prompt string) (string, error) {
	s.record("music")
	if err := validateMusicDuration(durationS); err != nil {
		return "", err
	}
	return s.cannedFile(s.manifest.Music, "music", fmt.Sprintf("%s%.1f", prompt, durationS), ".mp3")
}

func (s *Stub) SynthesizeSpeech(ctx context.Context, text string) (string, error) {
	s.record("speech")
	return s.cannedFile(s.manifest.Speech, "speech", text, ".mp3")
}

// Transcribe emits one canned subtitle spanning the first half minute;
// recording-based extraction tests substitute their own gateway.
func (s *Stub) Transcribe(ctx context.Context, audioPath string) ([]model.Subtitle, error) {
	s.record("transcribe")
	return []model.Subtitle{
		{Index: 0, StartMs: 0, EndMs: 30000, Text: "canned transcript for " + filepath.Base(audioPath)},
	}, nil
}

func (s *Stub) RewritePromptKeywords(ctx context.Context, text string, excluded []string) (string, string, error) {
	s.record("keywords")
	words := strings.Fields(text)
	stem := "scene"
	if len(words) > 0 {
		stem = strings.ToLower(words[0])
	}
	return strings.Join(words, ", "), stem, nil
}

func (s *Stub) RewritePromptEnhanced(ctx context.Context, text string) (string, string, error) {
	s.record("enhanced")
	words := strings.Fields(text)
	stem := "scene"
	if len(words) > 0 {
		stem = strings.ToLower(words[len(words)-1])
	}
	return "A vivid rendering of " + text, stem, nil
}

// cannedFile returns a deterministic local file for the given input,
// copying the sample asset when the manifest provides one and writing a
// small placeholder otherwise.
func (s *Stub) cannedFile(sample, kind, seed, ext string) (string, error) {
	sum := sha256.Sum256([]byte(seed))
	name := kind + "_" + hex.EncodeToString(sum[:])[:12] + ext
	path := filepath.Join(s.dir, name)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := util.EnsureDir(s.dir); err != nil {
		return "", err
	}
	if sample != "" {
		if err := util.CopyFile(sample, path); err != nil {
			return "", err
		}
		return path, nil
	}
	if err := os.WriteFile(path, []byte("stub "+kind+" media\n"), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
