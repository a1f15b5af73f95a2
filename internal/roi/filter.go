package roi

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/btcprophets/leaderboard/internal/model"
)

// DateLayout is the only accepted leaderboard date format.
const DateLayout = "2006-01-02"

var dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// maxMarketSpan is the longest allowed gap between a market's creation date
// and its deadline date.
const maxMarketSpan = 24 * time.Hour

// ParseDate validates a YYYY-MM-DD string and returns midnight UTC of that day.
// Shape and calendar validity are both checked, so 2025-13-40 is rejected.
func ParseDate(raw string) (time.Time, error) {
	if !dateRegex.MatchString(raw) {
		return time.Time{}, fmt.Errorf("%w: %q (expected YYYY-MM-DD)", ErrInvalidDate, raw)
	}
	day, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a calendar date", ErrInvalidDate, raw)
	}
	return day, nil
}

// KeywordPolicy decides which markets are about the leaderboard's asset.
// A market matches when its lower-cased title contains any TitleTerms entry
// or its lower-cased description contains any DescriptionTerms entry.
type KeywordPolicy struct {
	TitleTerms       []string
	DescriptionTerms []string
}

// DefaultKeywordPolicy selects bitcoin markets.
func DefaultKeywordPolicy() KeywordPolicy {
	return KeywordPolicy{
		TitleTerms:       []string{"btc"},
		DescriptionTerms: []string{"bitcoin"},
	}
}

// Matches reports whether the market is in the policy's domain.
func (p KeywordPolicy) Matches(m model.Market) bool {
	return containsAny(strings.ToLower(m.Title), p.TitleTerms) ||
		containsAny(strings.ToLower(m.Description), p.DescriptionTerms)
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" && strings.Contains(text, term) {
			return true
		}
	}
	return false
}

// FilterMarkets returns the resolved, short-duration, in-domain markets
// created on day. Calendar dates are taken in UTC. No match is an empty
// result, not an error.
func FilterMarkets(markets []model.Market, day time.Time, policy KeywordPolicy) []model.Market {
	target := dateOf(day)
	var out []model.Market
	for _, m := range markets {
		if m.Status != model.StatusResolved {
			continue
		}
		if m.CreatedAt.IsZero() || m.Deadline.IsZero() {
			continue
		}
		created := dateOf(m.CreatedAt)
		if !created.Equal(target) {
			continue
		}
		if dateOf(m.Deadline).Sub(created) > maxMarketSpan {
			continue
		}
		if !policy.Matches(m) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func dateOf(t time.Time) time.Time {
	y, mo, d := t.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// Resolve maps a market's winning index to its outcome label. Index 1 means
// NO; every other value, including an unrecorded index, means YES.
func Resolve(m model.Market) string {
	if m.WinningIndex != nil && *m.WinningIndex == 1 {
		return model.OutcomeNo
	}
	return model.OutcomeYes
}

// Resolutions returns the outcome label of every market, keyed by market ID.
func Resolutions(markets []model.Market) map[string]string {
	out := make(map[string]string, len(markets))
	for _, m := range markets {
		out[m.ID] = Resolve(m)
	}
	return out
}
