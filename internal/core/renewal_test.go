package core

import (
	"strings"
	"testing"
)

func TestNextRenewal(t *testing.T) {
	cases := []struct {
		name  string
		start Date
		cycle BillingCycle
		today Date
		want  Date
	}{
		{"monthly later this month", NewDate(2024, 1, 15), Monthly, NewDate(2025, 6, 10), NewDate(2025, 6, 15)},
		{"monthly on anchor day advances", NewDate(2024, 1, 15), Monthly, NewDate(2025, 6, 15), NewDate(2025, 7, 15)},
		{"monthly past anchor day", NewDate(2024, 1, 15), Monthly, NewDate(2025, 6, 20), NewDate(2025, 7, 15)},
		{"monthly december rollover", NewDate(2024, 1, 5), Monthly, NewDate(2025, 12, 20), NewDate(2026, 1, 5)},
		{"monthly clamp to 30", NewDate(2024, 1, 31), Monthly, NewDate(2025, 4, 10), NewDate(2025, 4, 30)},
		{"monthly clamp then full day", NewDate(2024, 1, 31), Monthly, NewDate(2025, 2, 28), NewDate(2025, 3, 31)},
		{"monthly clamp february leap", NewDate(2024, 1, 30), Monthly, NewDate(2028, 2, 1), NewDate(2028, 2, 29)},
		{"yearly this year", NewDate(2024, 3, 1), Yearly, NewDate(2025, 2, 1), NewDate(2025, 3, 1)},
		{"yearly on anchor advances", NewDate(2024, 3, 1), Yearly, NewDate(2025, 3, 1), NewDate(2026, 3, 1)},
		{"yearly leap anchor non-leap year", NewDate(2024, 2, 29), Yearly, NewDate(2025, 1, 1), NewDate(2025, 2, 28)},
		{"yearly leap anchor leap year", NewDate(2024, 2, 29), Yearly, NewDate(2027, 12, 31), NewDate(2028, 2, 29)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NextRenewal(tc.start, tc.cycle, tc.today)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tc.want.Time) {
				t.Fatalf("got %s, want %s", got, tc.want)
			}
			if !got.After(tc.today.Time) {
				t.Fatalf("renewal %s is not after today %s", got, tc.today)
			}
		})
	}
}

func TestNextRenewalErrors(t *testing.T) {
	if _, err := NextRenewal(Date{}, Monthly, NewDate(2025, 1, 1)); err == nil {
		t.Fatalf("expected error for missing start date")
	}
	if _, err := NextRenewal(NewDate(2024, 1, 1), "WEEKLY", NewDate(2025, 1, 1)); err == nil {
		t.Fatalf("expected error for unknown cycle")
	}
}

func TestDaysBetween(t *testing.T) {
	if got := DaysBetween(NewDate(2025, 6, 10), NewDate(2025, 6, 15)); got != 5 {
		t.Fatalf("got %d", got)
	}
	if got := DaysBetween(NewDate(2025, 3, 29), NewDate(2025, 4, 2)); got != 4 {
		t.Fatalf("got %d", got)
	}
	if got := DaysBetween(NewDate(2025, 12, 31), NewDate(2026, 1, 1)); got != 1 {
		t.Fatalf("got %d", got)
	}
}

func TestScheduleRenewalsExactMatch(t *testing.T) {
	s := sub("netflix", "Streaming", 1299, Monthly)
	settings := DefaultAppSettings()
	settings.NotificationDaysBefore = []int{1, 5, 7}

	got, skipped := ScheduleRenewals([]Subscription{s}, NewDate(2025, 6, 10), settings, nil)
	if len(skipped) != 0 {
		t.Fatalf("unexpected skipped: %+v", skipped)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(got))
	}
	n := got[0]
	if n.DaysUntil != 5 || n.ScheduledDate.String() != "2025-06-15" {
		t.Fatalf("unexpected notification %+v", n)
	}
	if n.SubscriptionID != "netflix" || n.AmountCents != 1299 || n.Type != NotificationTypeRenewal {
		t.Fatalf("unexpected notification fields %+v", n)
	}
	if !strings.Contains(n.Message, "in 5 days") || !strings.Contains(n.Message, "12.99 EUR") {
		t.Fatalf("unexpected message %q", n.Message)
	}
}

func TestScheduleRenewalsNoNeighbourMatch(t *testing.T) {
	s := sub("netflix", "Streaming", 1299, Monthly)
	settings := DefaultAppSettings()
	settings.NotificationDaysBefore = []int{3}
	for _, day := range []int{11, 13} { // days_until 4 and 2
		got, _ := ScheduleRenewals([]Subscription{s}, NewDate(2025, 6, day), settings, nil)
		if len(got) != 0 {
			t.Fatalf("day %d: expected none, got %+v", day, got)
		}
	}
	got, _ := ScheduleRenewals([]Subscription{s}, NewDate(2025, 6, 12), settings, nil)
	if len(got) != 1 {
		t.Fatalf("expected one notification on days_until 3, got %d", len(got))
	}
}

func TestScheduleRenewalsDuplicateOffsets(t *testing.T) {
	s := sub("netflix", "Streaming", 1299, Monthly)
	settings := DefaultAppSettings()
	settings.NotificationDaysBefore = []int{5, 5}
	got, _ := ScheduleRenewals([]Subscription{s}, NewDate(2025, 6, 10), settings, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(got))
	}
	if got[0].ID == got[1].ID {
		t.Fatalf("expected distinct ids, got %s twice", got[0].ID)
	}
}

func TestScheduleRenewalsOffsetResolution(t *testing.T) {
	s := sub("netflix", "Streaming", 1299, Monthly)
	today := NewDate(2025, 6, 10) // days_until 5

	settings := DefaultAppSettings()
	settings.NotificationDaysBefore = nil
	if got, _ := ScheduleRenewals([]Subscription{s}, today, settings, nil); len(got) != 0 {
		t.Fatalf("defaults [1,3,7] should not fire at 5, got %+v", got)
	}

	settings.NotificationDaysBefore = []int{1}
	overrides := map[string]NotificationSettings{
		"netflix": {SubscriptionID: "netflix", Enabled: true, DaysBefore: []int{5}, CustomMessage: "cancel soon"},
	}
	got, _ := ScheduleRenewals([]Subscription{s}, today, settings, overrides)
	if len(got) != 1 || got[0].Message != "cancel soon" {
		t.Fatalf("override should fire with custom message, got %+v", got)
	}

	overrides["netflix"] = NotificationSettings{SubscriptionID: "netflix", Enabled: false, DaysBefore: []int{5}}
	if got, _ := ScheduleRenewals([]Subscription{s}, today, settings, overrides); len(got) != 0 {
		t.Fatalf("disabled override should suppress, got %+v", got)
	}
}

func TestScheduleRenewalsGloballyDisabled(t *testing.T) {
	s := sub("netflix", "Streaming", 1299, Monthly)
	settings := DefaultAppSettings()
	settings.NotificationEnabled = false
	settings.NotificationDaysBefore = []int{5}
	got, skipped := ScheduleRenewals([]Subscription{s}, NewDate(2025, 6, 10), settings, nil)
	if got == nil || skipped == nil {
		t.Fatalf("expected empty non-nil slices")
	}
	if len(got) != 0 {
		t.Fatalf("expected none, got %+v", got)
	}
}

func TestScheduleRenewalsSkipsBrokenRecords(t *testing.T) {
	good := sub("netflix", "Streaming", 1299, Monthly)
	broken := sub("broken", "Streaming", 500, Monthly)
	broken.StartDate = Date{}
	weird := sub("weird", "Streaming", 500, "WEEKLY")

	settings := DefaultAppSettings()
	settings.NotificationDaysBefore = []int{5}
	got, skipped := ScheduleRenewals([]Subscription{broken, good, weird}, NewDate(2025, 6, 10), settings, nil)
	if len(got) != 1 || got[0].SubscriptionID != "netflix" {
		t.Fatalf("expected the valid subscription only, got %+v", got)
	}
	if len(skipped) != 2 || skipped[0].SubscriptionID != "broken" || skipped[1].SubscriptionID != "weird" {
		t.Fatalf("unexpected skipped list %+v", skipped)
	}
	if skipped[0].Reason == "" {
		t.Fatalf("expected a reason")
	}
}

func TestRenewalMessage(t *testing.T) {
	s := sub("Spotify", "Musik", 999, Monthly)
	cases := map[int]string{
		0: "Spotify renews today (9.99 EUR)",
		1: "Spotify renews tomorrow (9.99 EUR)",
		3: "Spotify renews in 3 days (9.99 EUR)",
	}
	for days, want := range cases {
		if got := RenewalMessage(s, days, "EUR"); got != want {
			t.Fatalf("days %d: got %q, want %q", days, got, want)
		}
	}
}
