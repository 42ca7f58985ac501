package main

// creditsResponse mirrors the credits endpoint body. Missing fields
// unmarshal to zero.
type creditsResponse struct {
	UsageUnitsRemaining                int `json:"usageUnitsRemaining"`
	UsageUnitsConsumedThisBillingCycle int `json:"usageUnitsConsumedThisBillingCycle"`
}

// CreditsSnapshot is the result of one successful poll. Never
// persisted; superseded wholesale by the next poll.
type CreditsSnapshot struct {
	Remaining int
	Consumed  int
}

func (s CreditsSnapshot) Total() int { return s.Remaining + s.Consumed }

func (s CreditsSnapshot) Percentage() float64 {
	total := s.Total()
	if total <= 0 {
		return 0.0
	}
	return float64(s.Remaining) / float64(total) * 100
}

// Permille is the percentage in tenths of a percent (0–1000), the
// resolution the progress bar renders at.
func (s CreditsSnapshot) Permille() int {
	return int(s.Percentage() * 10)
}
