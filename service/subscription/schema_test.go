package subscription

import (
	"net/url"
	"testing"
	"time"

	"github.com/KAsare1/subscriptions-server/cmd/models"
	"github.com/KAsare1/subscriptions-server/service/apierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validationDetails(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	apiErr := apierror.As(err)
	require.Equal(t, apierror.KindValidation, apiErr.Kind, err.Error())
	out := map[string]string{}
	for _, d := range apiErr.Details {
		out[d.Path] = d.Message
	}
	return out
}

func TestParseCreateAppliesDefaults(t *testing.T) {
	sub, err := ParseCreate([]byte(`{
		"name": "  Netflix  ",
		"price": 13500,
		"billingCycle": "monthly",
		"nextBillingAt": "2025-12-16"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "Netflix", sub.Name)
	assert.Equal(t, "13500", sub.Price.String())
	assert.Equal(t, models.CurrencyKRW, sub.Currency)
	assert.Equal(t, 1, sub.IntervalCount)
	assert.False(t, sub.IsPaused)
	assert.Equal(t, day("2025-12-16"), sub.NextBillingAt)
	assert.Nil(t, sub.PaymentMethod)
	assert.Nil(t, sub.Category)
	assert.Nil(t, sub.Memo)
}

func TestParseCreateKeepsOptionalFields(t *testing.T) {
	sub, err := ParseCreate([]byte(`{
		"name": "GitHub Pro",
		"price": 4.99,
		"currency": "USD",
		"billingCycle": "yearly",
		"intervalCount": 2,
		"nextBillingAt": "2025-12-20T09:30:00+09:00",
		"paymentMethod": "paypal",
		"category": " Development ",
		"memo": "team plan",
		"isPaused": true
	}`))
	require.NoError(t, err)

	assert.Equal(t, "4.99", sub.Price.String())
	assert.Equal(t, models.CurrencyUSD, sub.Currency)
	assert.Equal(t, 2, sub.IntervalCount)
	assert.Equal(t, time.Date(2025, 12, 20, 0, 30, 0, 0, time.UTC), sub.NextBillingAt)
	require.NotNil(t, sub.PaymentMethod)
	assert.Equal(t, models.PaymentPaypal, *sub.PaymentMethod)
	assert.Equal(t, "Development", *sub.Category)
	assert.True(t, sub.IsPaused)
}

func TestParseCreateRejectsThirdDecimal(t *testing.T) {
	details := validationDetails(t, func() error {
		_, err := ParseCreate([]byte(`{"name":"x","price":9.999,"billingCycle":"monthly","nextBillingAt":"2025-12-01"}`))
		return err
	}())

	assert.Equal(t, map[string]string{"price": "Price must have at most 2 decimal places"}, details)
}

func TestParseCreateAggregatesViolations(t *testing.T) {
	_, err := ParseCreate([]byte(`{"price":-5,"billingCycle":"monthly","nextBillingAt":"2025-12-01"}`))
	details := validationDetails(t, err)

	assert.Len(t, details, 2)
	assert.Equal(t, "Required", details["name"])
	assert.Equal(t, "Number must be greater than 0", details["price"])
}

func TestParseCreateReportsEveryMissingField(t *testing.T) {
	_, err := ParseCreate(nil)
	details := validationDetails(t, err)

	for _, path := range []string{"name", "price", "billingCycle", "nextBillingAt"} {
		assert.Contains(t, details, path)
	}
	assert.Len(t, details, 4)
}

func TestParseCreateFieldRules(t *testing.T) {
	tests := []struct {
		name string
		body string
		path string
	}{
		{"blank name", `"name":"   "`, "name"},
		{"long name", `"name":"` + longString(101) + `"`, "name"},
		{"unknown currency", `"currency":"BTC"`, "currency"},
		{"bad cycle", `"billingCycle":"daily"`, "billingCycle"},
		{"interval zero", `"intervalCount":0`, "intervalCount"},
		{"interval too big", `"intervalCount":13`, "intervalCount"},
		{"bad date", `"nextBillingAt":"next tuesday"`, "nextBillingAt"},
		{"bad method", `"paymentMethod":"cash"`, "paymentMethod"},
		{"long category", `"category":"` + longString(51) + `"`, "category"},
		{"long memo", `"memo":"` + longString(501) + `"`, "memo"},
		{"price as string", `"price":"100"`, "price"},
		{"paused as string", `"isPaused":"yes"`, "isPaused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := map[string]string{
				"name":          `"name":"Netflix"`,
				"price":         `"price":100`,
				"billingCycle":  `"billingCycle":"monthly"`,
				"nextBillingAt": `"nextBillingAt":"2025-12-16"`,
			}
			body := "{" + tt.body
			for key, kv := range base {
				if key != tt.path {
					body += "," + kv
				}
			}
			body += "}"

			_, err := ParseCreate([]byte(body))
			details := validationDetails(t, err)
			assert.Contains(t, details, tt.path)
		})
	}
}

func longString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}

func TestParseCreateMalformedJSON(t *testing.T) {
	_, err := ParseCreate([]byte(`{"name":`))
	details := validationDetails(t, err)
	assert.Equal(t, map[string]string{"": "Malformed JSON body"}, details)

	_, err = ParseUpdate([]byte(`[1,2]`))
	details = validationDetails(t, err)
	assert.Equal(t, map[string]string{"": "Expected object, received array"}, details)
}

func TestParseCreateAggregatesTypeMismatches(t *testing.T) {
	_, err := ParseCreate([]byte(`{"name":"Netflix","price":100,"billingCycle":"monthly","nextBillingAt":"2025-12-16","memo":7,"category":8,"isPaused":"yes"}`))
	details := validationDetails(t, err)
	assert.Equal(t, map[string]string{
		"memo":     "Expected string, received number",
		"category": "Expected string, received number",
		"isPaused": "Expected boolean, received string",
	}, details)

	_, err = ParseCreate([]byte(`{"name":1,"price":"100","billingCycle":"monthly","nextBillingAt":"2025-12-16"}`))
	details = validationDetails(t, err)
	assert.Equal(t, "Expected string, received number", details["name"])
	assert.Equal(t, "Expected number, received string", details["price"])
	assert.Len(t, details, 2)
}

func TestParseUpdateAggregatesTypeMismatches(t *testing.T) {
	_, err := ParseUpdate([]byte(`{"memo":7,"category":8}`))
	details := validationDetails(t, err)
	assert.Equal(t, map[string]string{
		"memo":     "Expected string, received number",
		"category": "Expected string, received number",
	}, details)

	_, err = ParseUpdate([]byte(`{"intervalCount":"2","isPaused":1,"name":"ok"}`))
	details = validationDetails(t, err)
	assert.Equal(t, map[string]string{
		"intervalCount": "Expected integer, received string",
		"isPaused":      "Expected boolean, received number",
	}, details)
}

func TestParseCreateIgnoresOwnerAndID(t *testing.T) {
	sub, err := ParseCreate([]byte(`{"id":"x","userId":"intruder","name":"n","price":1,"billingCycle":"weekly","nextBillingAt":"2025-12-01"}`))
	require.NoError(t, err)
	assert.Empty(t, sub.ID)
	assert.Empty(t, sub.UserID)
}

func TestParseUpdateOnlyPresentFields(t *testing.T) {
	patch, err := ParseUpdate([]byte(`{"isPaused":true}`))
	require.NoError(t, err)

	assert.Equal(t, map[string]interface{}{"is_paused": true}, patch.Columns())
}

func TestParseUpdateEmptyBody(t *testing.T) {
	patch, err := ParseUpdate([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, patch.Columns())
}

func TestParseUpdateConvertsValues(t *testing.T) {
	patch, err := ParseUpdate([]byte(`{"price":12.5,"nextBillingAt":"2026-01-01","name":" Renamed "}`))
	require.NoError(t, err)

	cols := patch.Columns()
	assert.Len(t, cols, 3)
	assert.Equal(t, "Renamed", cols["name"])
	assert.Equal(t, day("2026-01-01"), cols["next_billing_at"])
	assert.Equal(t, "12.5", patch.Price.String())
}

func TestParseUpdateValidatesPresentFields(t *testing.T) {
	_, err := ParseUpdate([]byte(`{"price":1.001,"intervalCount":20}`))
	details := validationDetails(t, err)
	assert.Len(t, details, 2)
	assert.Contains(t, details, "price")
	assert.Contains(t, details, "intervalCount")
}

func TestParseListQueryDefaults(t *testing.T) {
	q, err := ParseListQuery(url.Values{})
	require.NoError(t, err)

	assert.Equal(t, 20, q.Limit)
	assert.Equal(t, 0, q.Offset)
	assert.Equal(t, "asc", q.Order)
	assert.Nil(t, q.From)
	assert.Nil(t, q.To)
	assert.Nil(t, q.IsPaused)
	assert.Nil(t, q.Category)
	assert.Nil(t, q.Method)
}

func TestParseListQueryCoercesValues(t *testing.T) {
	q, err := ParseListQuery(url.Values{
		"from":     {"2025-12-10"},
		"to":       {"2025-12-20T23:59:59Z"},
		"category": {"Entertainment"},
		"method":   {"credit_card"},
		"isPaused": {"false"},
		"limit":    {"50"},
		"offset":   {"10"},
		"order":    {"desc"},
	})
	require.NoError(t, err)

	assert.Equal(t, day("2025-12-10"), *q.From)
	assert.Equal(t, time.Date(2025, 12, 20, 23, 59, 59, 0, time.UTC), *q.To)
	assert.Equal(t, "Entertainment", *q.Category)
	assert.Equal(t, models.PaymentCreditCard, *q.Method)
	require.NotNil(t, q.IsPaused)
	assert.False(t, *q.IsPaused)
	assert.Equal(t, 50, q.Limit)
	assert.Equal(t, 10, q.Offset)
	assert.Equal(t, "desc", q.Order)
}

func TestParseListQueryBounds(t *testing.T) {
	_, err := ParseListQuery(url.Values{
		"limit":  {"101"},
		"offset": {"-1"},
		"order":  {"sideways"},
		"method": {"cash"},
	})
	details := validationDetails(t, err)
	assert.Len(t, details, 4)

	_, err = ParseListQuery(url.Values{"limit": {"0"}})
	assert.Contains(t, validationDetails(t, err), "limit")
}

func TestParseListQueryCoercionFailures(t *testing.T) {
	_, err := ParseListQuery(url.Values{
		"from":     {"yesterday"},
		"isPaused": {"maybe"},
		"limit":    {"ten"},
	})
	details := validationDetails(t, err)

	assert.Equal(t, "Invalid date", details["from"])
	assert.Contains(t, details, "isPaused")
	assert.Contains(t, details, "limit")
	assert.Len(t, details, 3)
}

func TestParseStatsQuery(t *testing.T) {
	q, err := ParseStatsQuery(url.Values{})
	require.NoError(t, err)
	assert.Equal(t, models.CurrencyKRW, q.Currency)

	q, err = ParseStatsQuery(url.Values{"currency": {"usd"}})
	require.NoError(t, err)
	assert.Equal(t, models.CurrencyUSD, q.Currency)

	_, err = ParseStatsQuery(url.Values{"currency": {"BTC"}})
	assert.Contains(t, validationDetails(t, err), "currency")
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2025-12-16", "2025-12-16T00:00:00", "2025-12-16T00:00", "2025-12-16T00:00:00Z", "2025-12-16T09:00:00.000+09:00", "2025-12-16T09:00:00+0900"} {
		got, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, day("2025-12-16"), got, s)
	}

	_, err := ParseDate("16/12/2025")
	assert.Error(t, err)
}
