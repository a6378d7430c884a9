package profile

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/busantable/busantable/internal/domain/restaurant"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRecordSearch_BumpsWeights(t *testing.T) {
	p := New("u1")
	p.RecordSearch("갈비", "한식", "해운대", testTime)

	if p.FavoriteCategories["한식"] != 1 {
		t.Errorf("category weight = %g, want 1", p.FavoriteCategories["한식"])
	}
	if p.FavoriteAreas["해운대"] != 1 {
		t.Errorf("area weight = %g, want 1", p.FavoriteAreas["해운대"])
	}
	if len(p.History) != 1 {
		t.Fatalf("history length = %d, want 1", len(p.History))
	}
	if p.History[0].Keyword != "갈비" {
		t.Errorf("history keyword = %q, want 갈비", p.History[0].Keyword)
	}
}

func TestRecordSearch_HistoryCap(t *testing.T) {
	p := New("u1")
	for i := 0; i < HistoryLimit+1; i++ {
		p.RecordSearch(fmt.Sprintf("kw%d", i), "", "", testTime)
	}

	if len(p.History) != HistoryLimit {
		t.Fatalf("history length = %d, want %d", len(p.History), HistoryLimit)
	}
	// Oldest entry evicted first.
	if p.History[0].Keyword != "kw1" {
		t.Errorf("oldest entry = %q, want kw1", p.History[0].Keyword)
	}
	if p.History[len(p.History)-1].Keyword != fmt.Sprintf("kw%d", HistoryLimit) {
		t.Errorf("newest entry = %q, want kw%d", p.History[len(p.History)-1].Keyword, HistoryLimit)
	}
}

func TestRecordSearch_EmptyDimensionsSkipped(t *testing.T) {
	p := New("u1")
	p.RecordSearch("아무거나", "", "", testTime)

	if len(p.FavoriteCategories) != 0 || len(p.FavoriteAreas) != 0 {
		t.Error("empty category/area must not create weight entries")
	}
}

func TestRecordView_HalfWeights(t *testing.T) {
	p := New("u1")
	p.RecordView("일식", "광안리", "25,000-40,000원", testTime)

	if p.FavoriteCategories["일식"] != 0.5 {
		t.Errorf("category weight = %g, want 0.5", p.FavoriteCategories["일식"])
	}
	if p.FavoriteAreas["광안리"] != 0.5 {
		t.Errorf("area weight = %g, want 0.5", p.FavoriteAreas["광안리"])
	}
	if p.PricePreference["medium-high"] != 0.5 {
		t.Errorf("price weight = %g, want 0.5", p.PricePreference["medium-high"])
	}
}

func TestRecordSave_DedupByID(t *testing.T) {
	p := New("u1")
	sum := restaurant.Summary{ID: "busan_001", Name: "해운대암소갈비집", Category: "한식", Area: "해운대"}

	p.RecordSave(sum, testTime)
	p.RecordSave(sum, testTime)

	if len(p.Saved) != 1 {
		t.Fatalf("saved length = %d, want 1", len(p.Saved))
	}
	// Weights still bump on the repeated save.
	if p.FavoriteCategories["한식"] != 4 {
		t.Errorf("category weight = %g, want 4", p.FavoriteCategories["한식"])
	}
}

func TestRecordRate_RunningAverage(t *testing.T) {
	p := New("u1")

	// Empty history: divisor falls back to 1.
	p.RecordRate(5, testTime)
	want := (DefaultAverageRating*1 + 5) / 2
	if math.Abs(p.AverageRating-want) > 1e-9 {
		t.Errorf("average = %g, want %g", p.AverageRating, want)
	}

	p.RecordSearch("국밥", "한식", "", testTime)
	p.RecordSearch("밀면", "한식", "", testTime)

	prev := p.AverageRating
	p.RecordRate(3, testTime)
	want = (prev*2 + 3) / 3
	if math.Abs(p.AverageRating-want) > 1e-9 {
		t.Errorf("average = %g, want %g", p.AverageRating, want)
	}
}

func TestMaxWeight_FlooredAtOne(t *testing.T) {
	if got := MaxWeight(nil); got != 1 {
		t.Errorf("MaxWeight(nil) = %g, want 1", got)
	}
	if got := MaxWeight(map[string]float64{"한식": 0.5}); got != 1 {
		t.Errorf("MaxWeight below floor = %g, want 1", got)
	}
	if got := MaxWeight(map[string]float64{"한식": 4, "일식": 2}); got != 4 {
		t.Errorf("MaxWeight = %g, want 4", got)
	}
}

func TestAction_Validate(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		wantErr bool
	}{
		{"search", Action{Type: ActionSearch}, false},
		{"view", Action{Type: ActionView}, false},
		{"save with id", Action{Type: ActionSave, RestaurantID: "busan_001"}, false},
		{"save without id", Action{Type: ActionSave}, true},
		{"rate in range", Action{Type: ActionRate, Rating: 4.5}, false},
		{"rate too high", Action{Type: ActionRate, Rating: 5.5}, true},
		{"rate negative", Action{Type: ActionRate, Rating: -1}, true},
		{"unknown type", Action{Type: "like"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
