package models

// Tier is a subscription plan.
type Tier string

const (
	TierTrial    Tier = "trial"
	TierWeekly   Tier = "weekly"
	TierMonthly  Tier = "monthly"
	TierYearly   Tier = "yearly"
	TierLifetime Tier = "lifetime"
)

// SubscriptionStatus is fetched from GET /subscription/status and never
// persisted.
type SubscriptionStatus struct {
	Tier           Tier    `json:"subscription_tier"`
	Active         bool    `json:"is_active"`
	HoursRemaining float64 `json:"hours_remaining"`
	TrialUsed      bool    `json:"trial_used"`
	IsPremium      bool    `json:"is_premium,omitempty"`
}

func (s SubscriptionStatus) IsLifetime() bool { return s.Tier == TierLifetime }

// UserLimits is the quota snapshot returned by GET /user/limits.
type UserLimits struct {
	MedicationsRemaining int  `json:"medications_remaining"`
	SearchesRemaining    int  `json:"searches_remaining"`
	IsPremium            bool `json:"is_premium"`
}
