package video

import (
	"fmt"
	"strings"

	"promptreel/internal/util"
)

// Type tokens embedded in file names. They double as the node type
// discriminator when a name is parsed back.
const (
	TypeCompositeRoot  = "comproot"
	TypeCompositeChild = "compchild"
	TypeRawText        = "rawtext"
	TypeRawImage       = "rawimage"
	TypeTransition     = "transition"
	TypePromptBased    = "prmptbasd"
	TypeImported       = "imported"
)

var typeTokens = map[string]bool{
	TypeCompositeRoot:  true,
	TypeCompositeChild: true,
	TypeRawText:        true,
	TypeRawImage:       true,
	TypeTransition:     true,
	TypePromptBased:    true,
	TypeImported:       true,
}

// FileName is the deterministic decomposition of a produced media file
// name. Format and Parse are inverses over valid values.
type FileName struct {
	Title     string
	VideoType string
	BuildID   string
	BuildDate string // yyyymmdd
	BuildTime string // hhmmss
	UniqueID  string
	Ext       string

	GeneratedMusic bool
	DefaultMusic   bool
	ReadAloud      bool
	Reencoded      bool
	Interpolated   bool
}

const uidMarker = "UID"

// FeatureBits renders the 5-char positional feature code. Position
// order: generated music, default music, read-aloud narration,
// re-encoded, interpolated; 'o' means off.
func (f FileName) FeatureBits() string {
	bits := []byte("ooooo")
	if f.GeneratedMusic {
		bits[0] = 'g'
	}
	if f.DefaultMusic {
		bits[1] = 'd'
	}
	if f.ReadAloud {
		bits[2] = 'r'
	}
	if f.Reencoded {
		bits[3] = 'e'
	}
	if f.Interpolated {
		bits[4] = 'i'
	}
	return string(bits)
}

// Format renders the stable file name:
//
//	{title}_{type}_{bits}_{buildID}_{date}_{time}_UID_{uid}.{ext}
//
// The title is slugged through SanitizeFilename, so it may itself
// contain underscores; Parse recovers the fixed fields from the right.
func (f FileName) Format() string {
	title := util.SanitizeFilename(f.Title)
	return fmt.Sprintf("%s_%s_%s_%s_%s_%s_%s_%s.%s",
		title, f.VideoType, f.FeatureBits(), f.BuildID,
		f.BuildDate, f.BuildTime, uidMarker, f.UniqueID, f.Ext)
}

// ParseFileName recovers the fields of a name produced by Format.
func ParseFileName(name string) (FileName, error) {
	var f FileName

	dot := strings.LastIndex(name, ".")
	if dot <= 0 || dot == len(name)-1 {
		return f, fmt.Errorf("file name %q: missing extension", name)
	}
	f.Ext = name[dot+1:]

	parts := strings.Split(name[:dot], "_")
	// title (>=1 token) + type + bits + buildID + date + time + UID + uid
	if len(parts) < 8 {
		return f, fmt.Errorf("file name %q: expected at least 8 fields, got %d", name, len(parts))
	}
	n := len(parts)
	f.UniqueID = parts[n-1]
	if parts[n-2] != uidMarker {
		return f, fmt.Errorf("file name %q: missing %s marker", name, uidMarker)
	}
	f.BuildTime = parts[n-3]
	f.BuildDate = parts[n-4]
	f.BuildID = parts[n-5]
	bits := parts[n-6]
	f.VideoType = parts[n-7]
	f.Title = strings.Join(parts[:n-7], "_")

	if !typeTokens[f.VideoType] {
		return f, fmt.Errorf("file name %q: unknown video type %q", name, f.VideoType)
	}
	if err := f.applyFeatureBits(bits); err != nil {
		return f, fmt.Errorf("file name %q: %w", name, err)
	}
	return f, nil
}

func (f *FileName) applyFeatureBits(bits string) error {
	if len(bits) != 5 {
		return fmt.Errorf("feature bits %q: want 5 chars", bits)
	}
	for i, want := range []byte{'g', 'd', 'r', 'e', 'i'} {
		switch bits[i] {
		case want:
		case 'o':
			continue
		default:
			return fmt.Errorf("feature bits %q: bad char at %d", bits, i)
		}
		switch i {
		case 0:
			f.GeneratedMusic = true
		case 1:
			f.DefaultMusic = true
		case 2:
			f.ReadAloud = true
		case 3:
			f.Reencoded = true
		case 4:
			f.Interpolated = true
		}
	}
	return nil
}
