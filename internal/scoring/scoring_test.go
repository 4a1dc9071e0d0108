package scoring_test

import (
	"math"
	"testing"

	"concierge/internal/queue"
	"concierge/internal/research"
	"concierge/internal/scoring"
)

func ptr(v float64) *float64 { return &v }

func TestInfluenceTier(t *testing.T) {
	cases := []struct {
		followers int64
		want      string
	}{
		{0, scoring.TierNone},
		{999, scoring.TierNone},
		{1_000, scoring.TierNano},
		{9_999, scoring.TierNano},
		{10_000, scoring.TierMicro},
		{100_000, scoring.TierMacro},
		{999_999, scoring.TierMacro},
		{1_000_000, scoring.TierMega},
	}
	for _, tc := range cases {
		if got := scoring.InfluenceTier(tc.followers); got != tc.want {
			t.Fatalf("InfluenceTier(%d) = %q, want %q", tc.followers, got, tc.want)
		}
	}
}

func TestVIPScoreAcceptsProviderScoreInRange(t *testing.T) {
	if got := scoring.VIPScore(research.Finding{VIPScore: ptr(6.6)}); got != 7 {
		t.Fatalf("expected rounded provider score 7, got %d", got)
	}
	if got := scoring.VIPScore(research.Finding{VIPScore: ptr(0)}); got != 0 {
		t.Fatalf("expected provider score 0, got %d", got)
	}
}

func TestVIPScoreDerivesWhenProviderScoreInvalid(t *testing.T) {
	finding := research.Finding{
		VIPScore:   ptr(42),
		Followers:  250_000,
		Occupation: "Founder and CEO",
		NetWorth:   "estimated $2 billion",
	}
	if got := scoring.VIPScore(finding); got != 10 {
		t.Fatalf("expected derived score 10, got %d", got)
	}

	finding.VIPScore = ptr(math.NaN())
	finding.NetWorth = ""
	if got := scoring.VIPScore(finding); got != 7 {
		t.Fatalf("expected derived score 7, got %d", got)
	}
}

func TestVIPScoreDerivedForUnknownProfile(t *testing.T) {
	if got := scoring.VIPScore(research.Finding{Occupation: "accountant"}); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
	if got := scoring.VIPScore(research.Finding{Occupation: "touring musician", Followers: 12_000}); got != 4 {
		t.Fatalf("expected 4, got %d", got)
	}
}

func TestResultCarriesFindingFields(t *testing.T) {
	result := scoring.Result(9, research.Finding{
		Summary:   "Film producer",
		Followers: 1_500_000,
		Sources:   []queue.Source{{URL: "https://example.com"}},
		Provider:  "gemini",
		Model:     "gemini-test",
	})
	if result.GuestID != 9 || result.Status != queue.ResultFound {
		t.Fatalf("unexpected identity: %+v", result)
	}
	if result.InfluenceTier != scoring.TierMega {
		t.Fatalf("expected mega tier, got %q", result.InfluenceTier)
	}
	if result.VIPScore != 7 {
		t.Fatalf("expected derived score 7, got %d", result.VIPScore)
	}
	if len(result.Sources) != 1 || result.Provider != "gemini" {
		t.Fatalf("unexpected provenance: %+v", result)
	}
}
