package core

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// NotificationTypeRenewal tags upcoming-renewal alerts.
const NotificationTypeRenewal = "renewal"

// Notification is an upcoming-renewal alert computed on demand.
type Notification struct {
	ID               string `json:"id"`
	SubscriptionID   string `json:"subscription_id"`
	SubscriptionName string `json:"subscription_name"`
	ScheduledDate    Date   `json:"scheduled_date"`
	DaysUntil        int    `json:"days_until"`
	Message          string `json:"message"`
	Type             string `json:"type"`
	AmountCents      int64  `json:"amount_cents"`
}

// SkippedRenewal reports a record that could not be evaluated.
type SkippedRenewal struct {
	SubscriptionID   string `json:"subscription_id"`
	SubscriptionName string `json:"subscription_name"`
	Reason           string `json:"reason"`
}

// lastDayOfMonth returns the number of days in the given month.
func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// clampedDate builds year/month/day, moving day back to the month's last day
// when it overflows (31 -> 30, Feb 29 -> Feb 28 in non-leap years).
func clampedDate(year int, month time.Month, day int) Date {
	if last := lastDayOfMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, int(month), day)
}

// NextRenewal returns the first renewal strictly after today.
//
// Monthly: the anchor's day in today's month, else the following month.
// Yearly: the anchor's month/day in today's year, else the following year.
// The anchor day is clamped per target month and always taken from start, so
// a 31st anchor renews on Feb 28 and again on Mar 31.
func NextRenewal(start Date, cycle BillingCycle, today Date) (Date, error) {
	if start.IsZero() {
		return Date{}, errors.New("missing start date")
	}
	switch cycle {
	case Monthly:
		next := clampedDate(today.Year(), today.Month(), start.Day())
		if !next.After(today.Time) {
			y, m := today.Year(), today.Month()+1
			if m > time.December {
				m = time.January
				y++
			}
			next = clampedDate(y, m, start.Day())
		}
		return next, nil
	case Yearly:
		next := clampedDate(today.Year(), start.Month(), start.Day())
		if !next.After(today.Time) {
			next = clampedDate(today.Year()+1, start.Month(), start.Day())
		}
		return next, nil
	default:
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidBillingCycle, cycle)
	}
}

// DaysBetween returns the whole calendar days from a to b.
func DaysBetween(a, b Date) int {
	return int(math.Round(b.Sub(a.Time).Hours() / 24))
}

// RenewalMessage is the default alert text.
func RenewalMessage(s Subscription, daysUntil int, currency string) string {
	amount := s.Amount.String() + " " + currency
	switch daysUntil {
	case 0:
		return fmt.Sprintf("%s renews today (%s)", s.Name, amount)
	case 1:
		return fmt.Sprintf("%s renews tomorrow (%s)", s.Name, amount)
	default:
		return fmt.Sprintf("%s renews in %d days (%s)", s.Name, daysUntil, amount)
	}
}

// ScheduleRenewals computes the alerts due today.
//
// Offsets come from the subscription's override, else the global settings,
// else DefaultDaysBefore. An offset fires only when it equals days_until
// exactly; duplicate offsets fire once each.
func ScheduleRenewals(subs []Subscription, today Date, settings AppSettings, overrides map[string]NotificationSettings) ([]Notification, []SkippedRenewal) {
	notifications := []Notification{}
	skipped := []SkippedRenewal{}
	if !settings.NotificationEnabled {
		return notifications, skipped
	}

	global := settings.NotificationDaysBefore
	if len(global) == 0 {
		global = DefaultDaysBefore
	}

	for _, s := range subs {
		daysBefore := global
		customMessage := ""
		if o, ok := overrides[s.ID]; ok {
			if !o.Enabled {
				continue
			}
			if len(o.DaysBefore) > 0 {
				daysBefore = o.DaysBefore
			}
			customMessage = o.CustomMessage
		}

		next, err := NextRenewal(s.StartDate, s.BillingCycle, today)
		if err != nil {
			skipped = append(skipped, SkippedRenewal{
				SubscriptionID:   s.ID,
				SubscriptionName: s.Name,
				Reason:           err.Error(),
			})
			continue
		}
		daysUntil := DaysBetween(today, next)

		for i, offset := range daysBefore {
			if offset != daysUntil {
				continue
			}
			msg := customMessage
			if msg == "" {
				msg = RenewalMessage(s, daysUntil, settings.Currency)
			}
			notifications = append(notifications, Notification{
				ID:               fmt.Sprintf("%s-%s-%d", s.ID, next, i),
				SubscriptionID:   s.ID,
				SubscriptionName: s.Name,
				ScheduledDate:    next,
				DaysUntil:        daysUntil,
				Message:          msg,
				Type:             NotificationTypeRenewal,
				AmountCents:      s.Amount.Cents,
			})
		}
	}
	return notifications, skipped
}
