package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()
	if err := s.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if s.Currency != "EUR" || !s.NotificationEnabled || s.NotificationTime != "09:00" || s.Theme != "dark" {
		t.Fatalf("unexpected defaults %+v", s)
	}
	s.NotificationDaysBefore[0] = 99
	if DefaultDaysBefore[0] != 1 {
		t.Fatalf("defaults must not alias DefaultDaysBefore")
	}
}

func TestAppSettingsValidate(t *testing.T) {
	cases := []func(*AppSettings){
		func(s *AppSettings) { s.Currency = "EURO" },
		func(s *AppSettings) { s.NotificationTime = "9am" },
		func(s *AppSettings) { s.NotificationTime = "25:00" },
		func(s *AppSettings) { s.BackupInterval = "hourly" },
		func(s *AppSettings) { s.Theme = "neon" },
		func(s *AppSettings) { s.NotificationDaysBefore = []int{-1} },
		func(s *AppSettings) { s.NotificationDaysBefore = []int{366} },
		func(s *AppSettings) { s.NotificationDaysBefore = []int{} },
		func(s *AppSettings) { s.NotificationDaysBefore = nil },
	}
	for i, mutate := range cases {
		s := DefaultAppSettings()
		mutate(&s)
		if err := s.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestBackupDue(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-2 * 24 * time.Hour)
	old := now.Add(-8 * 24 * time.Hour)

	cases := []struct {
		interval string
		last     *time.Time
		want     bool
	}{
		{BackupWeekly, nil, true},
		{BackupWeekly, &recent, false},
		{BackupWeekly, &old, true},
		{BackupDaily, &recent, true},
		{BackupMonthly, &old, false},
		{BackupNever, nil, false},
		{"bogus", nil, false},
	}
	for _, tc := range cases {
		s := DefaultAppSettings()
		s.BackupInterval = tc.interval
		s.LastBackup = tc.last
		if got := s.BackupDue(now); got != tc.want {
			t.Fatalf("%s last=%v: got %v, want %v", tc.interval, tc.last, got, tc.want)
		}
	}
}

func TestNotificationSettingsValidate(t *testing.T) {
	n := DefaultNotificationSettings("abc")
	if err := n.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if !n.Enabled || n.SubscriptionID != "abc" {
		t.Fatalf("unexpected defaults %+v", n)
	}
	n.DaysBefore = []int{400}
	if err := n.Validate(); err == nil {
		t.Fatalf("expected error")
	}
	n.DaysBefore = []int{}
	if err := n.Validate(); !errors.Is(err, ErrNoDaysBefore) {
		t.Fatalf("expected ErrNoDaysBefore, got %v", err)
	}
	n.DaysBefore = []int{3}
	n.CustomMessage = strings.Repeat("ä", MaxNotesLength)
	if err := n.Validate(); err != nil {
		t.Fatalf("multibyte message at the limit should pass, got %v", err)
	}
}
