package chat

import "time"

// Role identifies the author of a chat turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a chat session.
type Turn struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// Session is a rolling conversation transcript for one user.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Turns     []Turn    `json:"turns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Append adds a turn and trims the transcript to limit entries.
func (s *Session) Append(t Turn, limit int) {
	s.Turns = append(s.Turns, t)
	if limit > 0 && len(s.Turns) > limit {
		s.Turns = s.Turns[len(s.Turns)-limit:]
	}
	s.UpdatedAt = t.At
}
