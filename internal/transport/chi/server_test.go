package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/busantable/busantable/internal/catalog"
	"github.com/busantable/busantable/internal/db/memory"
	"github.com/busantable/busantable/internal/domain/restaurant"
	profilerepo "github.com/busantable/busantable/internal/repository/profile"
	sessionrepo "github.com/busantable/busantable/internal/repository/session"
	"github.com/busantable/busantable/internal/usecase/browse"
	chatuc "github.com/busantable/busantable/internal/usecase/chat"
	"github.com/busantable/busantable/internal/usecase/quality"
	"github.com/busantable/busantable/internal/usecase/recommend"
)

// --- Fixtures ---

type stubCompleter struct {
	response string
	err      error
}

func (s *stubCompleter) Complete(_ context.Context, _, _ string) (string, error) {
	return s.response, s.err
}

type stubPinger struct{ err error }

func (s *stubPinger) Ping(_ context.Context) error { return s.err }

type stubHealthChecker struct{ err error }

func (s *stubHealthChecker) HealthCheck(_ context.Context) error { return s.err }

func testCatalog() catalog.Static {
	return catalog.Static{
		{ID: "r1", Name: "금수복국", Category: "한식", Area: "해운대", PriceRange: "12,000-25,000원", Rating: 4.2,
			Location: &restaurant.Coordinates{Latitude: 35.1598, Longitude: 129.1622}},
		{ID: "r2", Name: "스시미유", Category: "일식", Area: "해운대", PriceRange: "60,000-120,000원", Rating: 4.6},
	}
}

func newTestRouter(t *testing.T, store Pinger, provider HealthChecker) http.Handler {
	t.Helper()

	kv := memory.NewStore()
	browseSvc := browse.New(testCatalog())
	recommendSvc := recommend.New(profilerepo.New(kv))
	qualityEngine := quality.New(quality.DefaultRules())
	chatSvc := chatuc.New(
		browseSvc, recommendSvc,
		&stubCompleter{response: `{"reply": "네"}`},
		sessionrepo.New(kv),
		chatuc.Config{}, zap.NewNop(),
	)

	if store == nil {
		store = kv
	}
	srv := NewServer(browseSvc, recommendSvc, qualityEngine, chatSvc, store, provider, zap.NewNop())

	r := chi.NewRouter()
	srv.Routes(r)
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// --- Restaurants ---

func TestListRestaurants(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	w := doJSON(t, h, http.MethodGet, "/api/v1/restaurants?category=한식", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got []restaurant.Restaurant
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(got) != 1 || got[0].ID != "r1" {
		t.Errorf("expected just r1, got %+v", got)
	}
}

func TestListRestaurants_BadMinRating(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	w := doJSON(t, h, http.MethodGet, "/api/v1/restaurants?min_rating=abc", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListRestaurants_UnknownBucket(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	w := doJSON(t, h, http.MethodGet, "/api/v1/restaurants?price=luxury", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var resp ErrorResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp.Code != CodeValidationFailed {
		t.Errorf("error code = %q, want %q", resp.Code, CodeValidationFailed)
	}
}

func TestListNearby(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	w := doJSON(t, h, http.MethodGet, "/api/v1/restaurants/near?lat=35.1600&lng=129.1620&radius_m=1000", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var got []browse.Located
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	// r2 has no coordinates.
	if len(got) != 1 || got[0].ID != "r1" {
		t.Errorf("expected just r1, got %+v", got)
	}
}

func TestListNearby_MissingCoords(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	w := doJSON(t, h, http.MethodGet, "/api/v1/restaurants/near", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// --- User actions and recommendations ---

func TestRecordAction(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	w := doJSON(t, h, http.MethodPost, "/api/v1/users/u1/actions",
		`{"type": "search", "keyword": "갈비", "category": "한식"}`)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	// The recorded action shifts the ranking toward 한식.
	w = doJSON(t, h, http.MethodGet, "/api/v1/users/u1/recommendations?limit=1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var ranked []recommend.Scored
	if err := json.NewDecoder(w.Body).Decode(&ranked); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(ranked) != 1 || ranked[0].ID != "r1" {
		t.Errorf("expected the 한식 record on top, got %+v", ranked)
	}
}

func TestRecordAction_InvalidType(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	w := doJSON(t, h, http.MethodPost, "/api/v1/users/u1/actions", `{"type": "like"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var resp ErrorResponse
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp.Code != CodeValidationFailed {
		t.Errorf("error code = %q, want %q", resp.Code, CodeValidationFailed)
	}
}

func TestRecordAction_MalformedBody(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	w := doJSON(t, h, http.MethodPost, "/api/v1/users/u1/actions", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSimilarUsers_Empty(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	w := doJSON(t, h, http.MethodGet, "/api/v1/users/u1/similar", "")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

// --- Quality ---

func TestQualityCleaned(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	body := `[
		{"id": "a", "name": "금수복국", "address": "부산 해운대구 중동1로 23", "price_range": "12,000-25,000원", "rating": 4.2},
		{"id": "b", "name": "금수복국", "address": "부산 해운대구 좌동순환로 5", "price_range": "12,000-25,000원", "rating": 4.0}
	]`
	w := doJSON(t, h, http.MethodPost, "/api/v1/quality/cleaned", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var cleaned []restaurant.Restaurant
	if err := json.NewDecoder(w.Body).Decode(&cleaned); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(cleaned) != 1 {
		t.Fatalf("expected 1 survivor, got %d", len(cleaned))
	}
	if cleaned[0].ID != "busan_001" {
		t.Errorf("id = %q, want busan_001", cleaned[0].ID)
	}
}

func TestQualityReport(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	w := doJSON(t, h, http.MethodPost, "/api/v1/quality/report", `[{"id": "a", "name": "1", "address": ""}]`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var report quality.Report
	if err := json.NewDecoder(w.Body).Decode(&report); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(report.Corrupted) != 1 {
		t.Errorf("expected 1 corrupt record, got %+v", report)
	}
}

// --- Chat ---

func TestChat(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	w := doJSON(t, h, http.MethodPost, "/api/v1/chat", `{"user_id": "u1", "message": "해운대 맛집"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var reply chatuc.Reply
	if err := json.NewDecoder(w.Body).Decode(&reply); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if reply.SessionID == "" || reply.Message == "" {
		t.Errorf("incomplete reply: %+v", reply)
	}
}

func TestChat_MissingFields(t *testing.T) {
	h := newTestRouter(t, nil, nil)

	w := doJSON(t, h, http.MethodPost, "/api/v1/chat", `{"message": "안녕"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

// --- Health ---

func TestHealth_OK(t *testing.T) {
	h := newTestRouter(t, nil, &stubHealthChecker{})

	w := doJSON(t, h, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestHealth_StoreDown(t *testing.T) {
	h := newTestRouter(t, &stubPinger{err: errors.New("connection refused")}, nil)

	w := doJSON(t, h, http.MethodGet, "/health", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestHealth_ProviderDownStillServes(t *testing.T) {
	h := newTestRouter(t, nil, &stubHealthChecker{err: errors.New("quota exceeded")})

	w := doJSON(t, h, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("provider outage must not fail health, got %d", w.Code)
	}

	var resp struct {
		Status string `json:"status"`
	}
	_ = json.NewDecoder(w.Body).Decode(&resp)
	if resp.Status != "degraded" {
		t.Errorf("status = %q, want degraded", resp.Status)
	}
}
