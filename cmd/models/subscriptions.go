package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// Prices go over the wire as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type BillingCycle string

const (
	BillingMonthly BillingCycle = "monthly"
	BillingWeekly  BillingCycle = "weekly"
	BillingYearly  BillingCycle = "yearly"
	BillingCustom  BillingCycle = "custom"
)

type Currency string

const (
	CurrencyKRW Currency = "KRW"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyJPY Currency = "JPY"
	CurrencyGBP Currency = "GBP"
)

// DefaultCurrency is applied when a create payload omits currency.
const DefaultCurrency = CurrencyKRW

type PaymentMethod string

const (
	PaymentCreditCard    PaymentMethod = "credit_card"
	PaymentDebitCard     PaymentMethod = "debit_card"
	PaymentBankTransfer  PaymentMethod = "bank_transfer"
	PaymentPaypal        PaymentMethod = "paypal"
	PaymentMobilePayment PaymentMethod = "mobile_payment"
	PaymentOther         PaymentMethod = "other"
)

// Subscription is a recurring payment tracked for a single owner.
type Subscription struct {
	ID            string          `gorm:"column:id;primaryKey;size:64" json:"id"`
	UserID        string          `gorm:"column:user_id;size:64;not null;index;uniqueIndex:idx_subscriptions_user_name,priority:1" json:"userId"`
	Name          string          `gorm:"column:name;size:100;not null;uniqueIndex:idx_subscriptions_user_name,priority:2" json:"name"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Currency      Currency        `gorm:"column:currency;size:3;not null;default:KRW" json:"currency"`
	BillingCycle  BillingCycle    `gorm:"column:billing_cycle;size:16;not null" json:"billingCycle"`
	IntervalCount int             `gorm:"column:interval_count;not null;default:1" json:"intervalCount"`
	NextBillingAt time.Time       `gorm:"column:next_billing_at;not null;index" json:"nextBillingAt"`
	PaymentMethod *PaymentMethod  `gorm:"column:payment_method;size:32" json:"paymentMethod"`
	Category      *string         `gorm:"column:category;size:50;index" json:"category"`
	Memo          *string         `gorm:"column:memo;size:500" json:"memo"`
	IsPaused      bool            `gorm:"column:is_paused;not null;default:false" json:"isPaused"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`

	User *User `gorm:"foreignKey:UserID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// BeforeCreate assigns an id when the caller did not provide one.
func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}
