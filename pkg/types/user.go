// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// PlanID names a subscription plan.
type PlanID string

const (
	PlanNone    PlanID = "none"
	PlanMonthly PlanID = "monthly"
	PlanAnnual  PlanID = "annual"
)

// Plan describes a premium subscription offer.
type Plan struct {
	ID        PlanID `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Price     string `json:"price" yaml:"price"`
	Period    string `json:"period" yaml:"period"`
	BestValue bool   `json:"best_value" yaml:"best_value"`
}

// TrialDays is the length of the free trial offered with every plan.
const TrialDays = 7

// Plans is the fixed premium catalog.
var Plans = []Plan{
	{ID: PlanMonthly, Name: "Monthly", Price: "$4.99", Period: "month"},
	{ID: PlanAnnual, Name: "Annual", Price: "$44.99", Period: "year", BestValue: true},
}

// PremiumFeatures lists what the paywall advertises.
var PremiumFeatures = []string{
	"Unlimited Plant Identification",
	"Access to all Scientific Articles",
	"Detailed Genetic Data",
	"Advanced Search Filters",
	"Ad-Free Experience",
}

// LookupPlan returns the catalog entry for id.
func LookupPlan(id PlanID) (Plan, bool) {
	for _, p := range Plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// User is a registered FloraFind account.
type User struct {
	ID           string    `json:"id" yaml:"id"`
	Email        string    `json:"email" yaml:"email"`
	PasswordHash string    `json:"-" yaml:"-"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	Plan         PlanID    `json:"plan" yaml:"plan"`
	TrialEndsAt  time.Time `json:"trial_ends_at,omitempty" yaml:"trial_ends_at,omitempty"`
}

// InTrial reports whether the user has an active free trial at now.
func (u User) InTrial(now time.Time) bool {
	return u.Plan != "" && u.Plan != PlanNone && now.Before(u.TrialEndsAt)
}
