package catalogstore

import (
	"context"
	"testing"
)

func TestFindExistingLayeredMatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, id, err := s.Ingest(ctx, sampleVideo("分层匹配", 2015), "source-a")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	t.Run("exact name+year+area", func(t *testing.T) {
		v, ok, err := s.FindExisting(ctx, "分层匹配", 2015, "中国大陆", "冯小刚")
		if err != nil || !ok {
			t.Fatalf("FindExisting() = %v, %v, %v", v, ok, err)
		}
		if v.VideoID != id {
			t.Errorf("VideoID = %s, want %s", v.VideoID, id)
		}
	})

	t.Run("year only", func(t *testing.T) {
		v, ok, err := s.FindExisting(ctx, "分层匹配", 2015, "", "")
		if err != nil || !ok {
			t.Fatalf("FindExisting() = %v, %v, %v", v, ok, err)
		}
		if v.VideoID != id {
			t.Errorf("VideoID = %s, want %s", v.VideoID, id)
		}
	})

	t.Run("director only", func(t *testing.T) {
		v, ok, err := s.FindExisting(ctx, "分层匹配", 0, "", "冯小刚")
		if err != nil || !ok {
			t.Fatalf("FindExisting() = %v, %v, %v", v, ok, err)
		}
		if v.VideoID != id {
			t.Errorf("VideoID = %s, want %s", v.VideoID, id)
		}
	})

	t.Run("loose name only", func(t *testing.T) {
		v, ok, err := s.FindExisting(ctx, "分层匹配", 0, "", "")
		if err != nil || !ok {
			t.Fatalf("FindExisting() = %v, %v, %v", v, ok, err)
		}
		if v.VideoID != id {
			t.Errorf("VideoID = %s, want %s", v.VideoID, id)
		}
	})

	t.Run("no match for unseen title", func(t *testing.T) {
		_, ok, err := s.FindExisting(ctx, "从未出现过的标题", 1999, "中国大陆", "")
		if err != nil {
			t.Fatalf("FindExisting() error = %v", err)
		}
		if ok {
			t.Error("expected no match for an unseen title")
		}
	})
}

// TestFindExistingBackfillsYear covers spec §4.G find_existing step 5: an
// incoming record with a year should back-fill (not duplicate) a same-name
// row the catalog only ever saw without one.
func TestFindExistingBackfillsYear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	yearless := sampleVideo("某片", 0)
	yearless.Area = ""
	yearless.Directors = nil
	_, id, err := s.Ingest(ctx, yearless, "source-a")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}

	v, ok, err := s.FindExisting(ctx, "某片", 2020, "", "")
	if err != nil {
		t.Fatalf("FindExisting() error = %v", err)
	}
	if !ok {
		t.Fatal("expected the yearless row to be found via backfill")
	}
	if v.VideoID != id {
		t.Errorf("VideoID = %s, want %s (expected backfill into the existing row, not a new one)", v.VideoID, id)
	}
	if v.Year != 2020 {
		t.Errorf("Year = %d, want 2020 backfilled", v.Year)
	}

	outcome, mergedID, err := s.Ingest(ctx, sampleVideo("某片", 2020), "source-b")
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if outcome != OutcomeUpdate {
		t.Fatalf("outcome = %v, want update (should merge into the backfilled row)", outcome)
	}
	if mergedID != id {
		t.Errorf("merged into %s, want %s", mergedID, id)
	}

	merged, ok, err := s.FindExisting(ctx, "某片", 2020, "中国大陆", "冯小刚")
	if err != nil || !ok {
		t.Fatalf("FindExisting() after merge = %v, %v, %v", merged, ok, err)
	}
	if merged.Year != 2020 {
		t.Errorf("merged Year = %d, want 2020", merged.Year)
	}
}
