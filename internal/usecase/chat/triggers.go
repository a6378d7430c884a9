package chat

import (
	"strings"

	"github.com/busantable/busantable/internal/usecase/browse"
)

// trigger maps one canonical tag to the substrings that imply it in free
// text. The table is the single source for keyword-to-tag heuristics;
// nothing else in the codebase string-matches categories or areas.
type trigger struct {
	tag      string
	triggers []string
}

var categoryTriggers = []trigger{
	{tag: "한식", triggers: []string{"한식", "korean", "국밥", "비빔밥", "불고기", "백반"}},
	{tag: "일식", triggers: []string{"일식", "스시", "초밥", "사시미", "라멘", "sushi"}},
	{tag: "중식", triggers: []string{"중식", "짜장", "짬뽕", "탕수육", "chinese"}},
	{tag: "양식", triggers: []string{"양식", "파스타", "피자", "스테이크", "pasta", "pizza"}},
	{tag: "해산물", triggers: []string{"해산물", "회", "횟집", "조개", "대게", "seafood"}},
	{tag: "카페", triggers: []string{"카페", "커피", "디저트", "브런치", "cafe"}},
}

var areaTriggers = []trigger{
	{tag: "해운대", triggers: []string{"해운대", "haeundae"}},
	{tag: "광안리", triggers: []string{"광안리", "광안", "gwangalli"}},
	{tag: "서면", triggers: []string{"서면", "seomyeon"}},
	{tag: "남포동", triggers: []string{"남포동", "남포", "자갈치", "nampo"}},
	{tag: "동래", triggers: []string{"동래", "dongnae"}},
	{tag: "기장", triggers: []string{"기장", "gijang"}},
}

// deriveQuery extracts a structural filter from free text by scanning the
// trigger tables. At most one category and one area are picked, first
// match wins.
func deriveQuery(text string) browse.Query {
	lower := strings.ToLower(text)

	var q browse.Query
	for _, t := range categoryTriggers {
		if containsAny(lower, t.triggers) {
			q.Category = t.tag
			break
		}
	}
	for _, t := range areaTriggers {
		if containsAny(lower, t.triggers) {
			q.Area = t.tag
			break
		}
	}
	return q
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, strings.ToLower(n)) {
			return true
		}
	}
	return false
}
