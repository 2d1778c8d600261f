package core

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Backup intervals accepted by AppSettings.BackupInterval.
const (
	BackupDaily   = "daily"
	BackupWeekly  = "weekly"
	BackupMonthly = "monthly"
	BackupNever   = "never"
)

// DefaultDaysBefore applies when neither a per-subscription override nor the
// global settings provide renewal offsets.
var DefaultDaysBefore = []int{1, 3, 7}

// AppSettings is the singleton application configuration record.
type AppSettings struct {
	Currency               string     `json:"currency"`
	NotificationEnabled    bool       `json:"notification_enabled"`
	NotificationTime       string     `json:"notification_time"`
	NotificationDaysBefore []int      `json:"notification_days_before"`
	Theme                  string     `json:"theme"`
	BackupInterval         string     `json:"backup_interval"`
	LastBackup             *time.Time `json:"last_backup"`
}

// NotificationSettings overrides alerting for a single subscription.
type NotificationSettings struct {
	SubscriptionID string `json:"subscription_id"`
	Enabled        bool   `json:"enabled"`
	DaysBefore     []int  `json:"days_before"`
	CustomMessage  string `json:"custom_message,omitempty"`
}

func DefaultAppSettings() AppSettings {
	return AppSettings{
		Currency:               "EUR",
		NotificationEnabled:    true,
		NotificationTime:       "09:00",
		NotificationDaysBefore: append([]int(nil), DefaultDaysBefore...),
		Theme:                  "dark",
		BackupInterval:         BackupWeekly,
	}
}

func DefaultNotificationSettings(subscriptionID string) NotificationSettings {
	return NotificationSettings{
		SubscriptionID: subscriptionID,
		Enabled:        true,
		DaysBefore:     append([]int(nil), DefaultDaysBefore...),
	}
}

// BackupPeriod converts a backup interval name into a duration. Ok is false for
// "never" and unknown values.
func BackupPeriod(interval string) (time.Duration, bool) {
	switch interval {
	case BackupDaily:
		return 24 * time.Hour, true
	case BackupWeekly:
		return 7 * 24 * time.Hour, true
	case BackupMonthly:
		return 30 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// BackupDue reports whether a backup should run at now.
func (s AppSettings) BackupDue(now time.Time) bool {
	period, ok := BackupPeriod(s.BackupInterval)
	if !ok {
		return false
	}
	if s.LastBackup == nil || s.LastBackup.IsZero() {
		return true
	}
	return now.Sub(*s.LastBackup) >= period
}

// ErrNoDaysBefore rejects an empty offset list; alerts are switched off with
// the enabled flags instead.
var ErrNoDaysBefore = errors.New("days_before must contain at least one offset; disable notifications to turn alerts off")

func validateDaysBefore(days []int) error {
	if len(days) == 0 {
		return ErrNoDaysBefore
	}
	for _, d := range days {
		if d < 0 || d > 365 {
			return fmt.Errorf("days_before value %d out of range 0..365", d)
		}
	}
	return nil
}

func (s AppSettings) Validate() error {
	if len(s.Currency) != 3 {
		return errors.New("currency must be a 3-letter ISO 4217 code")
	}
	if _, err := time.Parse("15:04", s.NotificationTime); err != nil {
		return errors.New("notification_time must use the HH:MM format")
	}
	switch s.Theme {
	case "dark", "light", "system":
	default:
		return fmt.Errorf("invalid theme %q", s.Theme)
	}
	switch s.BackupInterval {
	case BackupDaily, BackupWeekly, BackupMonthly, BackupNever:
	default:
		return fmt.Errorf("invalid backup_interval %q", s.BackupInterval)
	}
	return validateDaysBefore(s.NotificationDaysBefore)
}

func (n NotificationSettings) Validate() error {
	if utf8.RuneCountInString(n.CustomMessage) > MaxNotesLength {
		return fmt.Errorf("custom_message too long (max %d characters)", MaxNotesLength)
	}
	return validateDaysBefore(n.DaysBefore)
}
