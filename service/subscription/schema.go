package subscription

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/KAsare1/subscriptions-server/cmd/models"
	"github.com/KAsare1/subscriptions-server/service/apierror"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	DefaultLimit    = 20
	MaxLimit        = 100
	DefaultInterval = 1
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("cents", func(fl validator.FieldLevel) bool {
		d := decimal.NewFromFloat(fl.Field().Float())
		return d.Equal(d.Round(2))
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, err := ParseDate(fl.Field().String())
		return err == nil
	})
	return v
}

// CreateInput is the raw create payload. Pointer fields separate "absent"
// from zero values.
type CreateInput struct {
	Name          *string               `json:"name" validate:"required,min=1,max=100"`
	Price         *float64              `json:"price" validate:"required,gt=0,lte=9999999999.99,cents"`
	Currency      *models.Currency      `json:"currency" validate:"omitnil,oneof=KRW USD EUR JPY GBP"`
	BillingCycle  *models.BillingCycle  `json:"billingCycle" validate:"required,oneof=monthly weekly yearly custom"`
	IntervalCount *int                  `json:"intervalCount" validate:"omitnil,min=1,max=12"`
	NextBillingAt *string               `json:"nextBillingAt" validate:"required,isodate"`
	PaymentMethod *models.PaymentMethod `json:"paymentMethod" validate:"omitnil,oneof=credit_card debit_card bank_transfer paypal mobile_payment other"`
	Category      *string               `json:"category" validate:"omitnil,max=50"`
	Memo          *string               `json:"memo" validate:"omitnil,max=500"`
	IsPaused      *bool                 `json:"isPaused"`
}

// UpdateInput carries the same rules as CreateInput with every field optional.
// A nil field is left untouched.
type UpdateInput struct {
	Name          *string               `json:"name" validate:"omitnil,min=1,max=100"`
	Price         *float64              `json:"price" validate:"omitnil,gt=0,lte=9999999999.99,cents"`
	Currency      *models.Currency      `json:"currency" validate:"omitnil,oneof=KRW USD EUR JPY GBP"`
	BillingCycle  *models.BillingCycle  `json:"billingCycle" validate:"omitnil,oneof=monthly weekly yearly custom"`
	IntervalCount *int                  `json:"intervalCount" validate:"omitnil,min=1,max=12"`
	NextBillingAt *string               `json:"nextBillingAt" validate:"omitnil,isodate"`
	PaymentMethod *models.PaymentMethod `json:"paymentMethod" validate:"omitnil,oneof=credit_card debit_card bank_transfer paypal mobile_payment other"`
	Category      *string               `json:"category" validate:"omitnil,max=50"`
	Memo          *string               `json:"memo" validate:"omitnil,max=500"`
	IsPaused      *bool                 `json:"isPaused"`
}

// Patch is a validated partial update. Only non-nil attributes are written.
type Patch struct {
	Name          *string
	Price         *decimal.Decimal
	Currency      *models.Currency
	BillingCycle  *models.BillingCycle
	IntervalCount *int
	NextBillingAt *time.Time
	PaymentMethod *models.PaymentMethod
	Category      *string
	Memo          *string
	IsPaused      *bool
}

// Columns returns the column/value pairs of the present attributes.
func (p Patch) Columns() map[string]interface{} {
	cols := map[string]interface{}{}
	if p.Name != nil {
		cols["name"] = *p.Name
	}
	if p.Price != nil {
		cols["price"] = *p.Price
	}
	if p.Currency != nil {
		cols["currency"] = *p.Currency
	}
	if p.BillingCycle != nil {
		cols["billing_cycle"] = *p.BillingCycle
	}
	if p.IntervalCount != nil {
		cols["interval_count"] = *p.IntervalCount
	}
	if p.NextBillingAt != nil {
		cols["next_billing_at"] = *p.NextBillingAt
	}
	if p.PaymentMethod != nil {
		cols["payment_method"] = *p.PaymentMethod
	}
	if p.Category != nil {
		cols["category"] = *p.Category
	}
	if p.Memo != nil {
		cols["memo"] = *p.Memo
	}
	if p.IsPaused != nil {
		cols["is_paused"] = *p.IsPaused
	}
	return cols
}

// ParseCreate validates a create payload and returns a subscription with
// defaults applied. Owner and id are left for the caller.
func ParseCreate(body []byte) (*models.Subscription, error) {
	var in CreateInput
	details, err := decodeJSON(body, &in)
	if err != nil {
		return nil, err
	}
	trim(in.Name, in.Category, in.Memo)
	if details = merge(details, validate.Struct(in)); len(details) > 0 {
		return nil, apierror.Validation(details...)
	}

	next, _ := ParseDate(*in.NextBillingAt)
	sub := &models.Subscription{
		Name:          *in.Name,
		Price:         decimal.NewFromFloat(*in.Price),
		Currency:      models.DefaultCurrency,
		BillingCycle:  *in.BillingCycle,
		IntervalCount: DefaultInterval,
		NextBillingAt: next,
		PaymentMethod: in.PaymentMethod,
		Category:      in.Category,
		Memo:          in.Memo,
	}
	if in.Currency != nil {
		sub.Currency = *in.Currency
	}
	if in.IntervalCount != nil {
		sub.IntervalCount = *in.IntervalCount
	}
	if in.IsPaused != nil {
		sub.IsPaused = *in.IsPaused
	}
	return sub, nil
}

// ParseUpdate validates a partial payload.
func ParseUpdate(body []byte) (Patch, error) {
	var in UpdateInput
	details, err := decodeJSON(body, &in)
	if err != nil {
		return Patch{}, err
	}
	trim(in.Name, in.Category, in.Memo)
	if details = merge(details, validate.Struct(in)); len(details) > 0 {
		return Patch{}, apierror.Validation(details...)
	}

	p := Patch{
		Name:          in.Name,
		Currency:      in.Currency,
		BillingCycle:  in.BillingCycle,
		IntervalCount: in.IntervalCount,
		PaymentMethod: in.PaymentMethod,
		Category:      in.Category,
		Memo:          in.Memo,
		IsPaused:      in.IsPaused,
	}
	if in.Price != nil {
		price := decimal.NewFromFloat(*in.Price)
		p.Price = &price
	}
	if in.NextBillingAt != nil {
		next, _ := ParseDate(*in.NextBillingAt)
		p.NextBillingAt = &next
	}
	return p, nil
}

// ListQuery is a validated list request.
type ListQuery struct {
	From     *time.Time            `json:"from"`
	To       *time.Time            `json:"to"`
	Category *string               `json:"category"`
	Method   *models.PaymentMethod `json:"method" validate:"omitnil,oneof=credit_card debit_card bank_transfer paypal mobile_payment other"`
	IsPaused *bool                 `json:"isPaused"`
	Limit    int                   `json:"limit" validate:"min=1,max=100"`
	Offset   int                   `json:"offset" validate:"min=0"`
	Order    string                `json:"order" validate:"oneof=asc desc"`
}

// ParseListQuery coerces query-string values into a ListQuery. Empty values
// count as absent.
func ParseListQuery(values url.Values) (ListQuery, error) {
	q := ListQuery{Limit: DefaultLimit, Order: "asc"}
	var details []apierror.Detail
	fail := func(path, msg string) {
		details = append(details, apierror.Detail{Path: path, Message: msg})
	}

	if s := values.Get("from"); s != "" {
		if t, err := ParseDate(s); err != nil {
			fail("from", "Invalid date")
		} else {
			q.From = &t
		}
	}
	if s := values.Get("to"); s != "" {
		if t, err := ParseDate(s); err != nil {
			fail("to", "Invalid date")
		} else {
			q.To = &t
		}
	}
	if s := values.Get("category"); s != "" {
		q.Category = &s
	}
	if s := values.Get("method"); s != "" {
		m := models.PaymentMethod(s)
		q.Method = &m
	}
	if s := values.Get("isPaused"); s != "" {
		if b, err := strconv.ParseBool(s); err != nil {
			fail("isPaused", "Expected boolean, received string")
		} else {
			q.IsPaused = &b
		}
	}
	if s := values.Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err != nil {
			fail("limit", "Expected integer, received string")
		} else {
			q.Limit = n
		}
	}
	if s := values.Get("offset"); s != "" {
		if n, err := strconv.Atoi(s); err != nil {
			fail("offset", "Expected integer, received string")
		} else {
			q.Offset = n
		}
	}
	if s := values.Get("order"); s != "" {
		q.Order = s
	}

	if details = merge(details, validate.Struct(q)); len(details) > 0 {
		return ListQuery{}, apierror.Validation(details...)
	}
	return q, nil
}

// StatsQuery selects the currency a stats summary is computed in.
type StatsQuery struct {
	Currency models.Currency `json:"currency" validate:"oneof=KRW USD EUR JPY GBP"`
}

func ParseStatsQuery(values url.Values) (StatsQuery, error) {
	q := StatsQuery{Currency: models.DefaultCurrency}
	if s := values.Get("currency"); s != "" {
		q.Currency = models.Currency(strings.ToUpper(s))
	}
	if details := merge(nil, validate.Struct(q)); len(details) > 0 {
		return StatsQuery{}, apierror.Validation(details...)
	}
	return q, nil
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDate accepts an ISO-8601 date or date-time. Values without an offset
// are read as UTC; the result is always UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// decodeJSON fills dst one field at a time so that every type mismatch is
// reported as a detail and field rules still run. A body that is not a JSON
// object fails outright. An empty body decodes as an empty object.
func decodeJSON(body []byte, dst interface{}) ([]apierror.Detail, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, apierror.Validation(apierror.Detail{
				Message: fmt.Sprintf("Expected object, received %s", typeErr.Value),
			})
		}
		return nil, apierror.Validation(apierror.Detail{Message: "Malformed JSON body"})
	}

	var details []apierror.Detail
	rv := reflect.ValueOf(dst).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		name, _, _ := strings.Cut(rt.Field(i).Tag.Get("json"), ",")
		value, ok := raw[name]
		if name == "" || name == "-" || !ok {
			continue
		}
		field := rv.Field(i)
		if err := json.Unmarshal(value, field.Addr().Interface()); err != nil {
			field.Set(reflect.Zero(field.Type()))
			details = append(details, apierror.Detail{Path: name, Message: typeMessage(field.Type(), err)})
		}
	}
	return details, nil
}

func typeMessage(t reflect.Type, err error) string {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return fmt.Sprintf("Expected %s, received %s", jsonKind(t), typeErr.Value)
	}
	return fmt.Sprintf("Expected %s", jsonKind(t))
}

func jsonKind(t reflect.Type) string {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	default:
		return t.Kind().String()
	}
}

// merge appends validator failures to details, skipping paths that already
// failed to decode.
func merge(details []apierror.Detail, err error) []apierror.Detail {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return details
	}
	seen := make(map[string]bool, len(details))
	for _, d := range details {
		seen[d.Path] = true
	}
	for _, fe := range verrs {
		path := fieldPath(fe)
		if seen[path] {
			continue
		}
		seen[path] = true
		details = append(details, apierror.Detail{Path: path, Message: message(fe)})
	}
	return details
}

// fieldPath drops the root struct name from the namespace: "CreateInput.price" -> "price".
func fieldPath(fe validator.FieldError) string {
	_, path, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		return fe.Field()
	}
	return path
}

func message(fe validator.FieldError) string {
	isString := fe.Kind() == reflect.String
	switch fe.Tag() {
	case "required":
		return "Required"
	case "min":
		if isString {
			return fmt.Sprintf("String must contain at least %s character(s)", fe.Param())
		}
		return fmt.Sprintf("Number must be greater than or equal to %s", fe.Param())
	case "max":
		if isString {
			return fmt.Sprintf("String must contain at most %s character(s)", fe.Param())
		}
		return fmt.Sprintf("Number must be less than or equal to %s", fe.Param())
	case "gt":
		return fmt.Sprintf("Number must be greater than %s", fe.Param())
	case "lte":
		return fmt.Sprintf("Number must be less than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Invalid enum value. Expected '%s', received '%v'",
			strings.Join(strings.Fields(fe.Param()), "' | '"), fe.Value())
	case "cents":
		return "Price must have at most 2 decimal places"
	case "isodate":
		return "Invalid date"
	default:
		return fmt.Sprintf("Failed on the '%s' rule", fe.Tag())
	}
}

func trim(fields ...*string) {
	for _, f := range fields {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
}
