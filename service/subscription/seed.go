package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/KAsare1/subscriptions-server/cmd/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type sample struct {
	name     string
	price    int64
	currency models.Currency
	cycle    models.BillingCycle
	next     string
	method   models.PaymentMethod
	category string
	memo     string
	paused   bool
}

var samples = []sample{
	{"Netflix", 13500, models.CurrencyKRW, models.BillingMonthly, "2025-12-16", models.PaymentCreditCard, "Entertainment", "Standard plan", false},
	{"Spotify Premium", 10900, models.CurrencyKRW, models.BillingMonthly, "2025-12-01", models.PaymentCreditCard, "Entertainment", "Individual plan", false},
	{"GitHub Pro", 4, models.CurrencyUSD, models.BillingMonthly, "2025-12-20", models.PaymentCreditCard, "Development", "Pro plan for private repos", false},
	{"ChatGPT Plus", 20, models.CurrencyUSD, models.BillingMonthly, "2025-12-05", models.PaymentCreditCard, "AI", "GPT-4 access", false},
	{"Adobe Creative Cloud", 65000, models.CurrencyKRW, models.BillingMonthly, "2025-12-10", models.PaymentCreditCard, "Design", "Photography plan", false},
	{"New York Times Digital", 4, models.CurrencyUSD, models.BillingMonthly, "2025-12-25", models.PaymentCreditCard, "News", "Digital subscription", false},
	{"iCloud Storage", 1300, models.CurrencyKRW, models.BillingMonthly, "2025-12-15", models.PaymentCreditCard, "Storage", "50GB plan", false},
	{"Notion Personal Pro (Paused)", 10, models.CurrencyUSD, models.BillingYearly, "2026-01-15", models.PaymentCreditCard, "Productivity", "Currently paused", true},
	{"Gym Membership", 89000, models.CurrencyKRW, models.BillingMonthly, "2025-12-01", models.PaymentBankTransfer, "Health", "24/7 access", false},
	{"AWS", 50, models.CurrencyUSD, models.BillingMonthly, "2025-12-28", models.PaymentCreditCard, "Infrastructure", "Estimated monthly cost", false},
}

// SampleSubscriptions returns the demo data set for ownerID.
func SampleSubscriptions(ownerID string) []models.Subscription {
	subs := make([]models.Subscription, 0, len(samples))
	for _, s := range samples {
		next, _ := time.Parse("2006-01-02", s.next)
		method, category, memo := s.method, s.category, s.memo
		subs = append(subs, models.Subscription{
			UserID:        ownerID,
			Name:          s.name,
			Price:         decimal.NewFromInt(s.price),
			Currency:      s.currency,
			BillingCycle:  s.cycle,
			IntervalCount: DefaultInterval,
			NextBillingAt: next.UTC(),
			PaymentMethod: &method,
			Category:      &category,
			Memo:          &memo,
			IsPaused:      s.paused,
		})
	}
	return subs
}

// EnsureOwner inserts the owner row unless it already exists. Subscriptions
// reference it through a foreign key.
func EnsureOwner(ctx context.Context, db *gorm.DB, log *zap.Logger, ownerID, email string) error {
	user := models.User{ID: ownerID, Email: email}
	res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&user)
	if res.Error != nil {
		return fmt.Errorf("ensure owner: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		log.Info("owner created", zap.String("id", ownerID), zap.String("email", email))
	}
	return nil
}

// Seed upserts the owner and inserts the sample subscriptions. Rows that
// already exist for the owner are left alone, so seeding twice is harmless.
func Seed(ctx context.Context, db *gorm.DB, log *zap.Logger, ownerID, email string) (int, error) {
	if err := EnsureOwner(ctx, db, log, ownerID, email); err != nil {
		return 0, err
	}

	created := 0
	for _, sub := range SampleSubscriptions(ownerID) {
		res := db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}, {Name: "name"}},
				DoNothing: true,
			}).
			Create(&sub)
		if res.Error != nil {
			return created, fmt.Errorf("seed %q: %w", sub.Name, res.Error)
		}
		if res.RowsAffected > 0 {
			created++
			log.Info("subscription seeded",
				zap.String("name", sub.Name),
				zap.String("currency", string(sub.Currency)),
				zap.String("price", sub.Price.String()),
			)
		}
	}
	return created, nil
}
