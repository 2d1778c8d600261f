package core

import (
	"encoding/json"
	"time"
)

// Wire shapes of the records. Amounts are flattened to amount_cents.
type subscriptionJSON struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Category     string       `json:"category"`
	AmountCents  int64        `json:"amount_cents"`
	BillingCycle BillingCycle `json:"billing_cycle"`
	StartDate    Date         `json:"start_date"`
	Notes        string       `json:"notes,omitempty"`
	CancelURL    string       `json:"cancel_url,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    *time.Time   `json:"updated_at,omitempty"`
}

type expenseJSON struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Category     string       `json:"category"`
	AmountCents  int64        `json:"amount_cents"`
	BillingCycle BillingCycle `json:"billing_cycle"`
	Notes        string       `json:"notes,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    *time.Time   `json:"updated_at,omitempty"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (s Subscription) MarshalJSON() ([]byte, error) {
	return json.Marshal(subscriptionJSON{
		ID:           s.ID,
		Name:         s.Name,
		Category:     s.Category,
		AmountCents:  s.Amount.Cents,
		BillingCycle: s.BillingCycle,
		StartDate:    s.StartDate,
		Notes:        s.Notes,
		CancelURL:    s.CancelURL,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    optionalTime(s.UpdatedAt),
	})
}

func (s *Subscription) UnmarshalJSON(b []byte) error {
	var v subscriptionJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = Subscription{
		ID:           v.ID,
		Name:         v.Name,
		Category:     v.Category,
		Amount:       Money{Cents: v.AmountCents},
		BillingCycle: v.BillingCycle,
		StartDate:    v.StartDate,
		Notes:        v.Notes,
		CancelURL:    v.CancelURL,
		CreatedAt:    v.CreatedAt,
	}
	if v.UpdatedAt != nil {
		s.UpdatedAt = *v.UpdatedAt
	}
	return nil
}

func (e Expense) MarshalJSON() ([]byte, error) {
	return json.Marshal(expenseJSON{
		ID:           e.ID,
		Name:         e.Name,
		Category:     e.Category,
		AmountCents:  e.Amount.Cents,
		BillingCycle: e.BillingCycle,
		Notes:        e.Notes,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    optionalTime(e.UpdatedAt),
	})
}

func (e *Expense) UnmarshalJSON(b []byte) error {
	var v expenseJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*e = Expense{
		ID:           v.ID,
		Name:         v.Name,
		Category:     v.Category,
		Amount:       Money{Cents: v.AmountCents},
		BillingCycle: v.BillingCycle,
		Notes:        v.Notes,
		CreatedAt:    v.CreatedAt,
	}
	if v.UpdatedAt != nil {
		e.UpdatedAt = *v.UpdatedAt
	}
	return nil
}
