package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Monthly BillingCycle = "MONTHLY"
	Yearly  BillingCycle = "YEARLY"
)

// DateLayout is the ISO calendar date format used for start dates.
const DateLayout = "2006-01-02"

// MaxAmountCents bounds amounts so every stored value and yearly sum stays
// exactly representable as a JSON number.
const MaxAmountCents int64 = 10_000_000_000

// Input length limits, in characters.
const (
	MaxNameLength     = 200
	MaxCategoryLength = 100
	MaxNotesLength    = 1000
	MaxURLLength      = 500
)

type (
	BillingCycle string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Subscription struct {
		ID           string
		Name         string
		Category     string
		Amount       Money
		BillingCycle BillingCycle
		StartDate    Date
		Notes        string
		CancelURL    string
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}

	Expense struct {
		ID           string
		Name         string
		Category     string
		Amount       Money
		BillingCycle BillingCycle
		Notes        string
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}
)

var (
	ErrInvalidAmount       = errors.New("amount_cents must be greater than 0")
	ErrAmountTooLarge      = fmt.Errorf("amount_cents must not exceed %d", MaxAmountCents)
	ErrInvalidBillingCycle = errors.New("billing_cycle must be MONTHLY or YEARLY")
	ErrInvalidDate         = errors.New("date must use the YYYY-MM-DD format")
	ErrInvalidCancelURL    = errors.New("cancel_url must start with http:// or https://")
	ErrEmptyName           = errors.New("empty name")
	ErrEmptyCategory       = errors.New("empty category")
)

// ParseBillingCycle accepts only the closed set of supported cycles.
func ParseBillingCycle(s string) (BillingCycle, error) {
	switch c := BillingCycle(strings.TrimSpace(s)); c {
	case Monthly, Yearly:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidBillingCycle, s)
	}
}

func (c BillingCycle) Valid() bool {
	return c == Monthly || c == Yearly
}

func (c BillingCycle) String() string {
	return string(c)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// DateOf drops the clock part of t, keeping its calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	if m.Cents > MaxAmountCents {
		return ErrAmountTooLarge
	}
	return nil
}

// ValidateCancelURL enforces the absolute http(s) rule; empty means "no URL".
func ValidateCancelURL(u string) error {
	u = strings.TrimSpace(u)
	if u == "" {
		return nil
	}
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return ErrInvalidCancelURL
	}
	if utf8.RuneCountInString(u) > MaxURLLength {
		return fmt.Errorf("cancel_url too long (max %d characters)", MaxURLLength)
	}
	return nil
}

func validateLabels(name, category, notes string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("name too long (max %d characters)", MaxNameLength)
	}
	if strings.TrimSpace(category) == "" {
		return ErrEmptyCategory
	}
	if utf8.RuneCountInString(category) > MaxCategoryLength {
		return fmt.Errorf("category too long (max %d characters)", MaxCategoryLength)
	}
	if utf8.RuneCountInString(notes) > MaxNotesLength {
		return fmt.Errorf("notes too long (max %d characters)", MaxNotesLength)
	}
	return nil
}

func (s Subscription) Validate() error {
	if err := validateLabels(s.Name, s.Category, s.Notes); err != nil {
		return err
	}
	if err := s.Amount.Validate(); err != nil {
		return err
	}
	if !s.BillingCycle.Valid() {
		return ErrInvalidBillingCycle
	}
	if err := s.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	return ValidateCancelURL(s.CancelURL)
}

func (e Expense) Validate() error {
	if err := validateLabels(e.Name, e.Category, e.Notes); err != nil {
		return err
	}
	if err := e.Amount.Validate(); err != nil {
		return err
	}
	if !e.BillingCycle.Valid() {
		return ErrInvalidBillingCycle
	}
	return nil
}
