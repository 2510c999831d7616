package subscription

import (
	"time"

	"github.com/KAsare1/subscriptions-server/cmd/models"
	"github.com/shopspring/decimal"
)

const (
	uncategorized   = "Uncategorized"
	nextBillingsCap = 5
)

var (
	twelve   = decimal.NewFromInt(12)
	fiftyTwo = decimal.NewFromInt(52)
)

type NextBilling struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	NextBillingAt time.Time       `json:"nextBillingAt"`
}

// Stats summarizes an owner's subscriptions in one currency.
type Stats struct {
	TotalMonthly decimal.Decimal            `json:"totalMonthly"`
	TotalYearly  decimal.Decimal            `json:"totalYearly"`
	Currency     models.Currency            `json:"currency"`
	ActiveCount  int                        `json:"activeCount"`
	PausedCount  int                        `json:"pausedCount"`
	ByCategory   map[string]decimal.Decimal `json:"byCategory"`
	NextBillings []NextBilling              `json:"nextBillings"`
}

// MonthlyCost normalizes one billing period to a per-month amount. Custom
// cycles are read as "every intervalCount months".
func MonthlyCost(sub models.Subscription) decimal.Decimal {
	interval := sub.IntervalCount
	if interval < 1 {
		interval = 1
	}
	per := decimal.NewFromInt(int64(interval))

	switch sub.BillingCycle {
	case models.BillingWeekly:
		return sub.Price.Mul(fiftyTwo).Div(twelve).Div(per)
	case models.BillingYearly:
		return sub.Price.Div(twelve).Div(per)
	default:
		return sub.Price.Div(per)
	}
}

// ComputeStats expects subs ordered by next billing date ascending.
func ComputeStats(subs []models.Subscription, currency models.Currency, now time.Time) Stats {
	st := Stats{
		TotalMonthly: decimal.Zero,
		Currency:     currency,
		ByCategory:   map[string]decimal.Decimal{},
		NextBillings: []NextBilling{},
	}

	for _, sub := range subs {
		if sub.IsPaused {
			st.PausedCount++
			continue
		}
		st.ActiveCount++

		monthly := MonthlyCost(sub)
		st.TotalMonthly = st.TotalMonthly.Add(monthly)

		category := uncategorized
		if sub.Category != nil && *sub.Category != "" {
			category = *sub.Category
		}
		st.ByCategory[category] = st.ByCategory[category].Add(monthly)

		if len(st.NextBillings) < nextBillingsCap && !sub.NextBillingAt.Before(now) {
			st.NextBillings = append(st.NextBillings, NextBilling{
				ID:            sub.ID,
				Name:          sub.Name,
				Price:         sub.Price,
				NextBillingAt: sub.NextBillingAt,
			})
		}
	}

	st.TotalYearly = st.TotalMonthly.Mul(twelve).Round(2)
	st.TotalMonthly = st.TotalMonthly.Round(2)
	for k, v := range st.ByCategory {
		st.ByCategory[k] = v.Round(2)
	}
	return st
}
