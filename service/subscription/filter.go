package subscription

import (
	"github.com/KAsare1/subscriptions-server/cmd/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Filter restricts a query to the owner's subscriptions matching q. Every
// value is bound as a parameter.
func Filter(ownerID string, q ListQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ?", ownerID)
		if q.From != nil {
			db = db.Where("next_billing_at >= ?", *q.From)
		}
		if q.To != nil {
			db = db.Where("next_billing_at <= ?", *q.To)
		}
		if q.Category != nil {
			db = db.Where("category = ?", *q.Category)
		}
		if q.Method != nil {
			db = db.Where("payment_method = ?", *q.Method)
		}
		if q.IsPaused != nil {
			db = db.Where("is_paused = ?", *q.IsPaused)
		}
		return db
	}
}

// Page orders by next billing date and applies the limit/offset window.
func Page(q ListQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.
			Order(clause.OrderByColumn{Column: clause.Column{Name: "next_billing_at"}, Desc: q.Order == "desc"}).
			Limit(q.Limit).
			Offset(q.Offset)
	}
}

type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// ListResult is the list response envelope.
type ListResult struct {
	Items      []models.Subscription `json:"items"`
	Total      int64                 `json:"total"`
	Pagination Pagination            `json:"pagination"`
}

func NewListResult(items []models.Subscription, total int64, q ListQuery) ListResult {
	if items == nil {
		items = []models.Subscription{}
	}
	return ListResult{
		Items: items,
		Total: total,
		Pagination: Pagination{
			Limit:   q.Limit,
			Offset:  q.Offset,
			HasMore: int64(q.Offset+len(items)) < total,
		},
	}
}
