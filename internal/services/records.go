package services

import (
	"fmt"

	"subtrack/internal/core"
	"subtrack/internal/store"
)

const (
	settingsTypeApp          = "app_settings"
	settingsTypeNotification = "notification_settings"
)

func subscriptionDocument(s core.Subscription) store.Document {
	d := store.Document{
		"name":          s.Name,
		"category":      s.Category,
		"amount_cents":  s.Amount.Cents,
		"billing_cycle": string(s.BillingCycle),
		"start_date":    s.StartDate.String(),
		"notes":         s.Notes,
		"cancel_url":    s.CancelURL,
		"created_at":    s.CreatedAt,
	}
	if !s.UpdatedAt.IsZero() {
		d["updated_at"] = s.UpdatedAt
	}
	return d
}

// subscriptionFromDocument always returns the decoded record; the error
// reports a start date that cannot be used for renewal math.
func subscriptionFromDocument(d store.Document) (core.Subscription, error) {
	cents, _ := d.Int64("amount_cents")
	s := core.Subscription{
		ID:           d.ID(),
		Name:         d.String("name"),
		Category:     d.String("category"),
		Amount:       core.Money{Cents: cents},
		BillingCycle: core.BillingCycle(d.String("billing_cycle")),
		Notes:        d.String("notes"),
		CancelURL:    d.String("cancel_url"),
	}
	s.CreatedAt, _ = d.Time("created_at")
	s.UpdatedAt, _ = d.Time("updated_at")

	// Older records may hold a full timestamp instead of a calendar date.
	if t, ok := d.Time("start_date"); ok {
		s.StartDate = core.DateOf(t)
		return s, nil
	}
	raw := d.String("start_date")
	date, err := core.ParseDate(raw)
	if err != nil {
		return s, fmt.Errorf("invalid stored start_date %q", raw)
	}
	s.StartDate = date
	return s, nil
}

func expenseDocument(e core.Expense) store.Document {
	d := store.Document{
		"name":          e.Name,
		"category":      e.Category,
		"amount_cents":  e.Amount.Cents,
		"billing_cycle": string(e.BillingCycle),
		"notes":         e.Notes,
		"created_at":    e.CreatedAt,
	}
	if !e.UpdatedAt.IsZero() {
		d["updated_at"] = e.UpdatedAt
	}
	return d
}

func expenseFromDocument(d store.Document) (core.Expense, error) {
	cents, _ := d.Int64("amount_cents")
	e := core.Expense{
		ID:           d.ID(),
		Name:         d.String("name"),
		Category:     d.String("category"),
		Amount:       core.Money{Cents: cents},
		BillingCycle: core.BillingCycle(d.String("billing_cycle")),
		Notes:        d.String("notes"),
	}
	e.CreatedAt, _ = d.Time("created_at")
	e.UpdatedAt, _ = d.Time("updated_at")
	return e, nil
}

func appSettingsDocument(s core.AppSettings) store.Document {
	d := store.Document{
		"type":                     settingsTypeApp,
		"currency":                 s.Currency,
		"notification_enabled":     s.NotificationEnabled,
		"notification_time":        s.NotificationTime,
		"notification_days_before": s.NotificationDaysBefore,
		"theme":                    s.Theme,
		"backup_interval":          s.BackupInterval,
		"last_backup":              nil,
	}
	if s.LastBackup != nil {
		d["last_backup"] = *s.LastBackup
	}
	return d
}

// appSettingsFromDocument falls back to defaults for missing fields.
func appSettingsFromDocument(d store.Document) core.AppSettings {
	s := core.DefaultAppSettings()
	if v := d.String("currency"); v != "" {
		s.Currency = v
	}
	if v, ok := d["notification_enabled"].(bool); ok {
		s.NotificationEnabled = v
	}
	if v := d.String("notification_time"); v != "" {
		s.NotificationTime = v
	}
	if v, ok := store.AsInts(d["notification_days_before"]); ok && len(v) > 0 {
		s.NotificationDaysBefore = v
	}
	if v := d.String("theme"); v != "" {
		s.Theme = v
	}
	if v := d.String("backup_interval"); v != "" {
		s.BackupInterval = v
	}
	if t, ok := d.Time("last_backup"); ok {
		s.LastBackup = &t
	}
	return s
}

func notificationDocument(n core.NotificationSettings) store.Document {
	days := n.DaysBefore
	if days == nil {
		days = []int{}
	}
	return store.Document{
		"type":            settingsTypeNotification,
		"subscription_id": n.SubscriptionID,
		"enabled":         n.Enabled,
		"days_before":     days,
		"custom_message":  n.CustomMessage,
	}
}

func notificationFromDocument(d store.Document) core.NotificationSettings {
	n := core.DefaultNotificationSettings(d.String("subscription_id"))
	if v, ok := d["enabled"].(bool); ok {
		n.Enabled = v
	}
	if v, ok := store.AsInts(d["days_before"]); ok && len(v) > 0 {
		n.DaysBefore = v
	}
	n.CustomMessage = d.String("custom_message")
	return n
}
