// Package quality implements the offline dedup and corruption analysis
// over a raw restaurant collection, and the cleaned-collection projection.
package quality

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/busantable/busantable/internal/domain/restaurant"
)

// DuplicateFlag marks one raw record that collides with an earlier one.
// A record can carry both a name and an address collision at once.
type DuplicateFlag struct {
	Index   int                   `json:"index"`
	Record  restaurant.Restaurant `json:"record"`
	Key     string                `json:"key"` // grouping key: normalized name, else trimmed address
	Reasons []string              `json:"reasons"`
}

// CorruptRecord marks one structurally invalid raw record. Reasons are
// accumulated, never short-circuited.
type CorruptRecord struct {
	Index   int                   `json:"index"`
	Record  restaurant.Restaurant `json:"record"`
	Reasons []string              `json:"reasons"`
}

// Report partitions a raw collection into duplicates, corrupted, and clean.
type Report struct {
	Duplicates []DuplicateFlag         `json:"duplicates"`
	Corrupted  []CorruptRecord         `json:"corrupted"`
	Clean      []restaurant.Restaurant `json:"clean"`
}

// Engine runs batch analysis. It never mutates its input.
type Engine struct {
	rules Rules
}

// New creates a quality engine.
func New(rules Rules) *Engine {
	if rules.IDPrefix == "" {
		rules = DefaultRules()
	}
	return &Engine{rules: rules}
}

// Analyze partitions records into duplicates, corrupted, and clean. The
// duplicate and corrupted sets can overlap; the clean partition holds
// every index flagged by neither.
func (e *Engine) Analyze(records []restaurant.Restaurant) Report {
	dupFlags, dupIdx := e.findDuplicates(records)
	corrupted, corruptIdx := e.findCorrupted(records)

	var clean []restaurant.Restaurant
	for i, r := range records {
		if _, dup := dupIdx[i]; dup {
			continue
		}
		if _, bad := corruptIdx[i]; bad {
			continue
		}
		clean = append(clean, r)
	}

	return Report{Duplicates: dupFlags, Corrupted: corrupted, Clean: clean}
}

// BuildCleaned produces the deduplicated collection: the best member of
// each duplicate group (corrupted members excluded) followed by the
// remaining clean records, with identifiers re-assigned sequentially. It
// is a one-shot projection over the raw input, not an iterative fixpoint.
//
// A duplicate group is resolved to exactly one survivor, so the record
// that first introduced the colliding key competes inside its group
// instead of passing through as clean.
func (e *Engine) BuildCleaned(records []restaurant.Restaurant) []restaurant.Restaurant {
	report := e.Analyze(records)

	dupIdx := make(map[int]struct{}, len(report.Duplicates))
	for _, f := range report.Duplicates {
		dupIdx[f.Index] = struct{}{}
	}
	corruptIdx := make(map[int]struct{}, len(report.Corrupted))
	for _, c := range report.Corrupted {
		corruptIdx[c.Index] = struct{}{}
	}

	// Key owners: the earliest index that introduced each name/address key.
	nameFirst := make(map[string]int)
	addrFirst := make(map[string]int)
	for i, r := range records {
		if name := normalizeName(r.Name); name != "" {
			if _, ok := nameFirst[name]; !ok {
				nameFirst[name] = i
			}
		}
		if addr := strings.TrimSpace(r.Address); addr != "" {
			if _, ok := addrFirst[addr]; !ok {
				addrFirst[addr] = i
			}
		}
	}

	// Group flagged duplicates by key, preserving first-flagged order, and
	// seed each group with the record that owns the key.
	groups := make(map[string][]restaurant.Restaurant)
	var order []string
	grouped := make(map[int]struct{})
	for _, f := range report.Duplicates {
		if _, seen := groups[f.Key]; !seen {
			order = append(order, f.Key)
			owner, ok := nameFirst[f.Key]
			if !ok {
				owner, ok = addrFirst[f.Key]
			}
			if ok {
				grouped[owner] = struct{}{}
				if _, bad := corruptIdx[owner]; !bad {
					groups[f.Key] = append(groups[f.Key], records[owner])
				}
			}
		}
		if _, bad := corruptIdx[f.Index]; bad {
			continue
		}
		groups[f.Key] = append(groups[f.Key], f.Record)
	}

	cleaned := make([]restaurant.Restaurant, 0, len(order)+len(report.Clean))
	for _, key := range order {
		if len(groups[key]) == 0 {
			continue
		}
		cleaned = append(cleaned, SelectBest(e, groups[key]))
	}
	for i, r := range records {
		if _, dup := dupIdx[i]; dup {
			continue
		}
		if _, bad := corruptIdx[i]; bad {
			continue
		}
		if _, owns := grouped[i]; owns {
			continue
		}
		cleaned = append(cleaned, r)
	}

	for i := range cleaned {
		cleaned[i].ID = fmt.Sprintf("%s%03d", e.rules.IDPrefix, i+1)
	}
	return cleaned
}

// SelectBest picks the highest quality-scored member of a duplicate group.
// The comparison is a strict greater-than left fold, so on a tie the
// earlier-seen record wins; later equal scores never displace it.
func SelectBest(e *Engine, group []restaurant.Restaurant) restaurant.Restaurant {
	best := group[0]
	bestScore := e.QualityScore(best)
	for _, r := range group[1:] {
		if score := e.QualityScore(r); score > bestScore {
			best = r
			bestScore = score
		}
	}
	return best
}

// findDuplicates flags records whose normalized name or trimmed address
// was seen at an earlier index. Both flags can apply; reasons accumulate.
func (e *Engine) findDuplicates(records []restaurant.Restaurant) ([]DuplicateFlag, map[int]struct{}) {
	seenName := make(map[string]int)
	seenAddr := make(map[string]int)
	flagged := make(map[int]struct{})
	var flags []DuplicateFlag

	for i, r := range records {
		name := normalizeName(r.Name)
		addr := strings.TrimSpace(r.Address)

		var reasons []string
		key := ""
		if first, ok := seenName[name]; ok && name != "" {
			reasons = append(reasons, fmt.Sprintf("name collides with record %d", first))
			key = name
		}
		if first, ok := seenAddr[addr]; ok && addr != "" {
			reasons = append(reasons, fmt.Sprintf("address collides with record %d", first))
			if key == "" {
				key = addr
			}
		}

		if len(reasons) > 0 {
			flags = append(flags, DuplicateFlag{Index: i, Record: r, Key: key, Reasons: reasons})
			flagged[i] = struct{}{}
		}

		if name != "" {
			if _, ok := seenName[name]; !ok {
				seenName[name] = i
			}
		}
		if addr != "" {
			if _, ok := seenAddr[addr]; !ok {
				seenAddr[addr] = i
			}
		}
	}
	return flags, flagged
}

// findCorrupted accumulates every structural issue per record.
func (e *Engine) findCorrupted(records []restaurant.Restaurant) ([]CorruptRecord, map[int]struct{}) {
	idCount := make(map[string]int)
	for _, r := range records {
		if r.ID != "" {
			idCount[r.ID]++
		}
	}

	flagged := make(map[int]struct{})
	var corrupted []CorruptRecord
	for i, r := range records {
		reasons := e.recordIssues(r, idCount)
		if len(reasons) > 0 {
			corrupted = append(corrupted, CorruptRecord{Index: i, Record: r, Reasons: reasons})
			flagged[i] = struct{}{}
		}
	}
	return corrupted, flagged
}

func (e *Engine) recordIssues(r restaurant.Restaurant, idCount map[string]int) []string {
	var reasons []string

	name := strings.TrimSpace(r.Name)
	switch {
	case name == "":
		reasons = append(reasons, "name missing")
	case len([]rune(name)) < 2:
		reasons = append(reasons, "name too short")
	}
	if name != "" {
		for _, tok := range e.rules.BannedNameTokens {
			if strings.Contains(name, tok) {
				reasons = append(reasons, fmt.Sprintf("name contains address-like text %q", strings.TrimSpace(tok)))
				break
			}
		}
		if unicode.IsDigit([]rune(name)[0]) {
			reasons = append(reasons, "name starts with a digit")
		}
	}

	addr := strings.TrimSpace(r.Address)
	if addr == "" {
		reasons = append(reasons, "address missing")
	} else {
		for _, tok := range e.rules.LocalityTokens {
			if !strings.Contains(addr, tok) {
				reasons = append(reasons, fmt.Sprintf("address lacks locality marker %q", tok))
			}
		}
		for _, tok := range e.rules.PromoTokens {
			if strings.Contains(addr, tok) {
				reasons = append(reasons, fmt.Sprintf("address contains promotional text %q", tok))
			}
		}
	}

	if r.PriceRange != "" && !restaurant.WellFormedPrice(r.PriceRange) {
		reasons = append(reasons, "malformed price text")
	}

	if r.ID != "" && idCount[r.ID] > 1 {
		reasons = append(reasons, fmt.Sprintf("identifier %q assigned to multiple records", r.ID))
	}

	return reasons
}

// QualityScore accumulates fixed bonuses for structural hygiene. Scores
// are compared only within a duplicate group; the absolute scale does not
// matter.
func (e *Engine) QualityScore(r restaurant.Restaurant) int {
	score := 0

	if n := len([]rune(strings.TrimSpace(r.Name))); n >= 2 && n <= 30 {
		score += 10
	}

	addr := strings.TrimSpace(r.Address)
	if addr != "" && e.addressWellFormed(addr) {
		score += 15
	}

	if plausiblePhone(r.Phone) {
		score += 5
	}
	if r.Rating >= 3 {
		score += 10
	}
	if len(r.Features) > 0 {
		score += 5
	}
	if restaurant.WellFormedPrice(r.PriceRange) {
		score += 5
	}
	if r.Verified {
		score += 10
	}

	return score
}

func (e *Engine) addressWellFormed(addr string) bool {
	for _, tok := range e.rules.LocalityTokens {
		if !strings.Contains(addr, tok) {
			return false
		}
	}
	for _, tok := range e.rules.PromoTokens {
		if strings.Contains(addr, tok) {
			return false
		}
	}
	return true
}

// plausiblePhone accepts anything with 9 to 11 digits after stripping
// formatting, which covers Korean landline and mobile numbers.
func plausiblePhone(phone string) bool {
	digits := 0
	for _, c := range phone {
		if unicode.IsDigit(c) {
			digits++
		}
	}
	return digits >= 9 && digits <= 11
}

// normalizeName lowercases the name and strips all whitespace.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "")
}
