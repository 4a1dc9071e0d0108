package scoring

import (
	"math"
	"strings"

	"concierge/internal/queue"
	"concierge/internal/research"
)

// Influence tiers by combined public follower count.
const (
	TierMega  = "mega"
	TierMacro = "macro"
	TierMicro = "micro"
	TierNano  = "nano"
	TierNone  = "none"
)

const maxScore = 10

var tierFloors = []struct {
	tier      string
	followers int64
	points    int
}{
	{TierMega, 1_000_000, 5},
	{TierMacro, 100_000, 4},
	{TierMicro, 10_000, 2},
	{TierNano, 1_000, 1},
}

var seniorTitles = []string{
	"founder", "ceo", "chief", "president", "chair", "owner",
	"partner", "director", "minister", "ambassador", "senator",
}

var publicFigureTitles = []string{
	"actor", "actress", "musician", "singer", "athlete", "author",
	"chef", "artist", "influencer", "journalist", "producer",
}

var wealthWords = []string{"billion", "billionaire", "million", "millionaire"}

// InfluenceTier maps a follower count to its tier.
func InfluenceTier(followers int64) string {
	for _, floor := range tierFloors {
		if followers >= floor.followers {
			return floor.tier
		}
	}
	return TierNone
}

// VIPScore returns the provider's score when it is a finite value in [0, 10],
// rounded to the nearest integer. Otherwise the score is derived from
// audience size, seniority, and wealth hints.
func VIPScore(f research.Finding) int {
	if f.VIPScore != nil {
		score := *f.VIPScore
		if !math.IsNaN(score) && !math.IsInf(score, 0) && score >= 0 && score <= maxScore {
			return int(math.Round(score))
		}
	}
	return derivedScore(f)
}

func derivedScore(f research.Finding) int {
	score := 0
	for _, floor := range tierFloors {
		if f.Followers >= floor.followers {
			score += floor.points
			break
		}
	}
	occupation := strings.ToLower(f.Occupation + " " + f.Summary)
	switch {
	case containsAny(occupation, seniorTitles):
		score += 3
	case containsAny(occupation, publicFigureTitles):
		score += 2
	}
	netWorth := strings.ToLower(f.NetWorth)
	switch {
	case strings.Contains(netWorth, "billion"):
		score += 3
	case containsAny(netWorth, wealthWords):
		score += 2
	}
	return min(score, maxScore)
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}

// Result converts a finding into the stored result for a guest.
func Result(guestID int64, f research.Finding) queue.Result {
	return queue.Result{
		GuestID:       guestID,
		Status:        queue.ResultFound,
		VIPScore:      VIPScore(f),
		InfluenceTier: InfluenceTier(f.Followers),
		Summary:       f.Summary,
		Occupation:    f.Occupation,
		Company:       f.Company,
		Location:      f.Location,
		Followers:     f.Followers,
		Sources:       f.Sources,
		Provider:      f.Provider,
		Model:         f.Model,
	}
}
