package catalogstore

import (
	"context"
	"testing"

	"github.com/videocatalog/catalogcore/internal/cleaner"
)

func versionVideo(name string) Video {
	return Video{
		Name:   name,
		Year:   2010,
		TypeID: 1,
		PlayURLs: cleaner.PlayURLs{
			"line1": {{Label: "HD", URL: "https://play.example.com/v.m3u8"}},
		},
	}
}

func TestFindAllVersionsAndMergeVersions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	names := []string{"禁闭岛国语4K", "禁闭岛4K", "禁闭岛粤语"}
	var firstID string
	for i, name := range names {
		_, id, err := s.Ingest(ctx, versionVideo(name), "source-a")
		if err != nil {
			t.Fatalf("Ingest(%q) error = %v", name, err)
		}
		if i == 0 {
			firstID = id
		}
	}

	versions, err := s.FindAllVersions(ctx, firstID)
	if err != nil {
		t.Fatalf("FindAllVersions() error = %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("FindAllVersions() returned %d rows, want 3", len(versions))
	}

	merged := MergeVersions(versions)
	if merged.BaseName != "禁闭岛" {
		t.Errorf("BaseName = %q, want 禁闭岛", merged.BaseName)
	}

	wantLangs := map[string]bool{"国语": true, "原声": true, "粤语": true}
	if len(merged.AvailableLanguages) != len(wantLangs) {
		t.Fatalf("AvailableLanguages = %v, want %v", merged.AvailableLanguages, wantLangs)
	}
	for _, l := range merged.AvailableLanguages {
		if !wantLangs[l] {
			t.Errorf("unexpected language %q in %v", l, merged.AvailableLanguages)
		}
	}

	foundQuality4K := false
	for _, q := range merged.AvailableQualities {
		if q == "4K" {
			foundQuality4K = true
		}
	}
	if !foundQuality4K {
		t.Errorf("AvailableQualities = %v, want to include 4K", merged.AvailableQualities)
	}

	for _, src := range merged.Sources {
		if len(src.Episodes) == 0 {
			t.Errorf("source %+v has no episodes", src)
		}
	}
}
