package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/busantable/busantable/internal/usecase/recommend"
)

// buildSystemPrompt assembles the instruction block: conversation history,
// candidate records as JSON, and the reply contract.
func buildSystemPrompt(session *Session, candidates []recommend.Scored) string {
	var history strings.Builder
	for _, t := range session.Turns {
		history.WriteString(fmt.Sprintf("%s: %s\n", t.Role, t.Content))
	}

	candidatesJSON, err := json.Marshal(candidates)
	if err != nil {
		candidatesJSON = []byte("[]")
	}

	var b strings.Builder
	b.WriteString("You are a friendly restaurant guide for Busan. ")
	b.WriteString("Recommend restaurants using ONLY the candidate records below; ")
	b.WriteString("never invent names, prices, or addresses. ")
	b.WriteString("If a detail is missing from the data, omit it.\n\n")
	b.WriteString("Conversation so far:\n")
	b.WriteString(history.String())
	b.WriteString("\nCandidate restaurants (JSON, already ranked by preference score):\n")
	b.Write(candidatesJSON)
	b.WriteString("\n\nAnswer in the user's language. Respond with a single JSON object of the form\n")
	b.WriteString(`{"reply": "<your conversational answer>", "restaurant_ids": ["<ids of records you mention>"]}`)
	b.WriteString("\nwith no text outside the JSON object.")
	return b.String()
}

// modelReply is the JSON shape the model is asked to produce.
type modelReply struct {
	Reply         string   `json:"reply"`
	RestaurantIDs []string `json:"restaurant_ids"`
}

// parseReply extracts the reply text and referenced ids from the raw model
// output. Parsing is lenient: markdown fences are stripped, and anything
// that still fails to parse is treated as the reply verbatim.
func parseReply(raw string) modelReply {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var parsed modelReply
	if err := json.Unmarshal([]byte(text), &parsed); err == nil && parsed.Reply != "" {
		return parsed
	}
	return modelReply{Reply: strings.TrimSpace(raw)}
}

// fallbackReply is the canned answer used when the provider fails. It
// lists up to three candidates so the caller always gets usable output.
func fallbackReply(candidates []recommend.Scored) modelReply {
	if len(candidates) == 0 {
		return modelReply{Reply: "죄송해요, 지금은 추천을 불러올 수 없어요. 잠시 후 다시 시도해 주세요."}
	}

	var b strings.Builder
	b.WriteString("지금 상세한 답변을 드리기 어렵지만, 이런 곳은 어떠세요?\n")
	ids := make([]string, 0, 3)
	for i, c := range candidates {
		if i == 3 {
			break
		}
		b.WriteString(fmt.Sprintf("- %s (%s, %s, 평점 %.1f)\n", c.Name, c.Category, c.Area, c.Rating))
		ids = append(ids, c.ID)
	}
	return modelReply{Reply: strings.TrimSpace(b.String()), RestaurantIDs: ids}
}
