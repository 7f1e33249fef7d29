package video

import "testing"

func TestFileNameRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		f    FileName
	}{
		{
			name: "plain leaf",
			f: FileName{
				Title:     "a calm forest stream",
				VideoType: TypeRawText,
				BuildID:   "b1a2c3d4",
				BuildDate: "20260830",
				BuildTime: "141500",
				UniqueID:  "8f14e45f-ceea-467f-a1d6-91b1e0f1a001",
				Ext:       "mp4",
			},
		},
		{
			name: "root with every feature",
			f: FileName{
				Title:          "city at night",
				VideoType:      TypeCompositeRoot,
				BuildID:        "deadbeef",
				BuildDate:      "20260101",
				BuildTime:      "010203",
				UniqueID:       "u-1",
				Ext:            "mp4",
				GeneratedMusic: true,
				DefaultMusic:   true,
				ReadAloud:      true,
				Reencoded:      true,
				Interpolated:   true,
			},
		},
		{
			name: "title with punctuation that slugs to underscores",
			f: FileName{
				Title:        "what? a wild:title/here",
				VideoType:    TypeTransition,
				BuildID:      "0000aaaa",
				BuildDate:    "20251231",
				BuildTime:    "235959",
				UniqueID:     "u-2",
				Ext:          "mp4",
				Interpolated: true,
			},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			name := tc.f.Format()
			got, err := ParseFileName(name)
			if err != nil {
				t.Fatalf("parse %q: %v", name, err)
			}
			if got.VideoType != tc.f.VideoType {
				t.Errorf("video type: got %q want %q", got.VideoType, tc.f.VideoType)
			}
			if got.BuildID != tc.f.BuildID || got.BuildDate != tc.f.BuildDate || got.BuildTime != tc.f.BuildTime {
				t.Errorf("build fields: got %q/%q/%q", got.BuildID, got.BuildDate, got.BuildTime)
			}
			if got.UniqueID != tc.f.UniqueID {
				t.Errorf("unique id: got %q want %q", got.UniqueID, tc.f.UniqueID)
			}
			if got.Ext != tc.f.Ext {
				t.Errorf("ext: got %q want %q", got.Ext, tc.f.Ext)
			}
			if got.FeatureBits() != tc.f.FeatureBits() {
				t.Errorf("feature bits: got %q want %q", got.FeatureBits(), tc.f.FeatureBits())
			}
			// format(parse(name)) must reproduce the name exactly.
			if again := got.Format(); again != name {
				t.Errorf("format not stable: %q -> %q", name, again)
			}
		})
	}
}

func TestFeatureBitsPositions(t *testing.T) {
	var f FileName
	if got := f.FeatureBits(); got != "ooooo" {
		t.Fatalf("zero value bits: got %q", got)
	}
	f.GeneratedMusic = true
	if got := f.FeatureBits(); got != "goooo" {
		t.Fatalf("generated music bits: got %q", got)
	}
	f = FileName{DefaultMusic: true, Reencoded: true}
	if got := f.FeatureBits(); got != "odoeo" {
		t.Fatalf("default+reencode bits: got %q", got)
	}
	f = FileName{ReadAloud: true, Interpolated: true}
	if got := f.FeatureBits(); got != "ooroi" {
		t.Fatalf("readaloud+interpolated bits: got %q", got)
	}
}

func TestParseFileNameRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"noextension",
		"too_few_fields.mp4",
		"title_rawtext_xxxxx_b1_20260101_010101_UID_u1.mp4", // bad bits
		"title_nosuchtype_ooooo_b1_20260101_010101_UID_u1.mp4",
		"title_rawtext_ooooo_b1_20260101_010101_NOPE_u1.mp4", // missing marker
	}
	for _, name := range bad {
		if _, err := ParseFileName(name); err == nil {
			t.Errorf("expected error for %q", name)
		}
	}
}
