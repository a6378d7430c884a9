package chat

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/busantable/busantable/internal/domain"
	"github.com/busantable/busantable/internal/domain/restaurant"
	"github.com/busantable/busantable/internal/usecase/browse"
	"github.com/busantable/busantable/internal/usecase/recommend"
)

// --- Mocks ---

type mockBrowser struct {
	records   []restaurant.Restaurant
	err       error
	lastQuery browse.Query
}

func (m *mockBrowser) Filter(_ context.Context, q browse.Query) ([]restaurant.Restaurant, error) {
	m.lastQuery = q
	return m.records, m.err
}

type mockRanker struct {
	err error
}

func (m *mockRanker) Rank(_ context.Context, _ string, records []restaurant.Restaurant, limit int) ([]recommend.Scored, error) {
	if m.err != nil {
		return nil, m.err
	}
	scored := make([]recommend.Scored, 0, limit)
	for i, r := range records {
		if i == limit {
			break
		}
		scored = append(scored, recommend.Scored{Restaurant: r, Score: 100 - i})
	}
	return scored, nil
}

type mockCompleter struct {
	response   string
	err        error
	lastSystem string
}

func (m *mockCompleter) Complete(_ context.Context, systemPrompt, _ string) (string, error) {
	m.lastSystem = systemPrompt
	return m.response, m.err
}

type mockSessions struct {
	sessions map[string]*Session
	putErr   error
}

func newMockSessions() *mockSessions {
	return &mockSessions{sessions: make(map[string]*Session)}
}

func (m *mockSessions) Get(_ context.Context, id string) (*Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

func (m *mockSessions) Put(_ context.Context, s *Session) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.sessions[s.ID] = s
	return nil
}

func (m *mockSessions) Delete(_ context.Context, id string) error {
	delete(m.sessions, id)
	return nil
}

func candidateRecords() []restaurant.Restaurant {
	return []restaurant.Restaurant{
		{ID: "r1", Name: "해운대암소갈비집", Category: "한식", Area: "해운대", Rating: 4.5},
		{ID: "r2", Name: "금수복국", Category: "한식", Area: "해운대", Rating: 4.2},
		{ID: "r3", Name: "스시미유", Category: "일식", Area: "해운대", Rating: 4.6},
		{ID: "r4", Name: "송정집", Category: "카페", Area: "송정", Rating: 4.3},
	}
}

func newTestService(b *mockBrowser, r *mockRanker, c *mockCompleter, s *mockSessions) *Service {
	svc := New(b, r, c, s, Config{}, zap.NewNop())
	svc.newID = func() string { return "session-1" }
	return svc
}

// --- Converse ---

func TestConverse_NewSession(t *testing.T) {
	browser := &mockBrowser{records: candidateRecords()}
	completer := &mockCompleter{response: `{"reply": "해운대라면 금수복국 어때요?", "restaurant_ids": ["r2"]}`}
	sessions := newMockSessions()
	svc := newTestService(browser, &mockRanker{}, completer, sessions)

	reply, err := svc.Converse(context.Background(), "u1", "", "해운대 맛집 알려줘")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.SessionID != "session-1" {
		t.Errorf("session id = %q, want session-1", reply.SessionID)
	}
	if reply.Fallback {
		t.Error("fallback flag set on a successful provider call")
	}
	if len(reply.Restaurants) != 1 || reply.Restaurants[0].ID != "r2" {
		t.Errorf("expected only the referenced record, got %+v", reply.Restaurants)
	}

	stored, ok := sessions.sessions["session-1"]
	if !ok {
		t.Fatal("session not persisted")
	}
	if len(stored.Turns) != 2 {
		t.Errorf("expected user and assistant turns, got %d", len(stored.Turns))
	}
}

func TestConverse_DerivesQueryFromText(t *testing.T) {
	browser := &mockBrowser{records: candidateRecords()}
	completer := &mockCompleter{response: `{"reply": "네"}`}
	svc := newTestService(browser, &mockRanker{}, completer, newMockSessions())

	_, err := svc.Converse(context.Background(), "u1", "", "광안리에서 초밥 먹고 싶어")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if browser.lastQuery.Category != "일식" {
		t.Errorf("derived category = %q, want 일식", browser.lastQuery.Category)
	}
	if browser.lastQuery.Area != "광안리" {
		t.Errorf("derived area = %q, want 광안리", browser.lastQuery.Area)
	}
}

func TestConverse_ProviderFailureFallsBack(t *testing.T) {
	browser := &mockBrowser{records: candidateRecords()}
	completer := &mockCompleter{err: domain.ErrChatProviderError}
	svc := newTestService(browser, &mockRanker{}, completer, newMockSessions())

	reply, err := svc.Converse(context.Background(), "u1", "", "저녁 추천해줘")
	if err != nil {
		t.Fatalf("provider failure must not propagate: %v", err)
	}
	if !reply.Fallback {
		t.Error("fallback flag not set")
	}
	if reply.Message == "" {
		t.Error("fallback reply is empty")
	}
	// The canned reply names at most three candidates.
	if len(reply.Restaurants) != 3 {
		t.Errorf("fallback referenced %d records, want 3", len(reply.Restaurants))
	}
}

func TestConverse_EmptyCandidatesFallback(t *testing.T) {
	browser := &mockBrowser{err: domain.ErrCatalogUnavailable}
	completer := &mockCompleter{err: errors.New("timeout")}
	svc := newTestService(browser, &mockRanker{}, completer, newMockSessions())

	reply, err := svc.Converse(context.Background(), "u1", "", "아무거나")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reply.Fallback || reply.Message == "" {
		t.Errorf("expected a canned apology, got %+v", reply)
	}
}

func TestConverse_RankerFailureDegrades(t *testing.T) {
	browser := &mockBrowser{records: candidateRecords()}
	completer := &mockCompleter{response: `{"reply": "네"}`}
	svc := newTestService(browser, &mockRanker{err: errors.New("store down")}, completer, newMockSessions())

	reply, err := svc.Converse(context.Background(), "u1", "", "맛집")
	if err != nil {
		t.Fatalf("ranking failure must not propagate: %v", err)
	}
	if len(reply.Restaurants) != 4 {
		t.Errorf("expected unranked candidates served, got %d", len(reply.Restaurants))
	}
}

func TestConverse_UnknownSessionRecreated(t *testing.T) {
	browser := &mockBrowser{records: candidateRecords()}
	completer := &mockCompleter{response: `{"reply": "네"}`}
	sessions := newMockSessions()
	svc := newTestService(browser, &mockRanker{}, completer, sessions)

	reply, err := svc.Converse(context.Background(), "u1", "expired-id", "맛집")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.SessionID != "expired-id" {
		t.Errorf("session id = %q, want the caller-provided id", reply.SessionID)
	}
}

func TestConverse_EmptyText(t *testing.T) {
	svc := newTestService(&mockBrowser{}, &mockRanker{}, &mockCompleter{}, newMockSessions())

	_, err := svc.Converse(context.Background(), "u1", "", "")
	if !errors.Is(err, domain.ErrInvalidQuery) {
		t.Errorf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestConverse_HistoryCapped(t *testing.T) {
	browser := &mockBrowser{records: candidateRecords()}
	completer := &mockCompleter{response: `{"reply": "네"}`}
	sessions := newMockSessions()
	svc := New(browser, &mockRanker{}, completer, sessions, Config{HistoryLimit: 4}, zap.NewNop())
	svc.newID = func() string { return "session-1" }

	for i := 0; i < 5; i++ {
		if _, err := svc.Converse(context.Background(), "u1", "session-1", "맛집"); err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
	}

	stored := sessions.sessions["session-1"]
	if len(stored.Turns) != 4 {
		t.Errorf("transcript length = %d, want 4", len(stored.Turns))
	}
}

func TestConverse_CandidatesInPrompt(t *testing.T) {
	browser := &mockBrowser{records: candidateRecords()}
	completer := &mockCompleter{response: `{"reply": "네"}`}
	svc := newTestService(browser, &mockRanker{}, completer, newMockSessions())

	if _, err := svc.Converse(context.Background(), "u1", "", "맛집"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(completer.lastSystem, "해운대암소갈비집") {
		t.Error("candidate records missing from the system prompt")
	}
}

// --- parseReply ---

func TestParseReply(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantText string
		wantIDs  int
	}{
		{
			"plain json",
			`{"reply": "여기 어때요", "restaurant_ids": ["r1", "r2"]}`,
			"여기 어때요", 2,
		},
		{
			"fenced json",
			"```json\n{\"reply\": \"여기 어때요\", \"restaurant_ids\": [\"r1\"]}\n```",
			"여기 어때요", 1,
		},
		{
			"free text",
			"그냥 금수복국 가세요.",
			"그냥 금수복국 가세요.", 0,
		},
		{
			"json without reply field",
			`{"answer": "wrong shape"}`,
			`{"answer": "wrong shape"}`, 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseReply(tt.raw)
			if got.Reply != tt.wantText {
				t.Errorf("reply = %q, want %q", got.Reply, tt.wantText)
			}
			if len(got.RestaurantIDs) != tt.wantIDs {
				t.Errorf("ids = %d, want %d", len(got.RestaurantIDs), tt.wantIDs)
			}
		})
	}
}

// --- deriveQuery ---

func TestDeriveQuery(t *testing.T) {
	tests := []struct {
		text     string
		category string
		area     string
	}{
		{"해운대에서 국밥 한 그릇", "한식", "해운대"},
		{"pizza near seomyeon", "양식", "서면"},
		{"자갈치 시장 근처 횟집", "해산물", "남포동"},
		{"그냥 배고파", "", ""},
		{"커피 마시고 싶다", "카페", ""},
	}

	for _, tt := range tests {
		q := deriveQuery(tt.text)
		if q.Category != tt.category {
			t.Errorf("deriveQuery(%q).Category = %q, want %q", tt.text, q.Category, tt.category)
		}
		if q.Area != tt.area {
			t.Errorf("deriveQuery(%q).Area = %q, want %q", tt.text, q.Area, tt.area)
		}
	}
}

// --- Session ---

func TestSession_AppendCap(t *testing.T) {
	s := &Session{ID: "s1"}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		s.Append(Turn{Role: RoleUser, Content: "m", At: at}, 20)
	}
	if len(s.Turns) != 20 {
		t.Errorf("transcript length = %d, want 20", len(s.Turns))
	}
	if !s.UpdatedAt.Equal(at) {
		t.Error("UpdatedAt not advanced by Append")
	}
}
