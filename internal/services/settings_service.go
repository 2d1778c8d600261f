package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"subtrack/internal/core"
	"subtrack/internal/store"
)

// SettingsPatch is a partial update of the application settings.
type SettingsPatch struct {
	Currency               *string
	NotificationEnabled    *bool
	NotificationTime       *string
	NotificationDaysBefore []int
	Theme                  *string
	BackupInterval         *string
}

func (p SettingsPatch) apply(s *core.AppSettings) {
	if p.Currency != nil {
		s.Currency = *p.Currency
	}
	if p.NotificationEnabled != nil {
		s.NotificationEnabled = *p.NotificationEnabled
	}
	if p.NotificationTime != nil {
		s.NotificationTime = *p.NotificationTime
	}
	if p.NotificationDaysBefore != nil {
		s.NotificationDaysBefore = p.NotificationDaysBefore
	}
	if p.Theme != nil {
		s.Theme = *p.Theme
	}
	if p.BackupInterval != nil {
		s.BackupInterval = *p.BackupInterval
	}
}

// NotificationPatch is a partial update of a subscription's alert settings.
type NotificationPatch struct {
	Enabled       *bool
	DaysBefore    []int
	CustomMessage *string
}

// SettingsService owns the settings collection: one app_settings document and
// one notification_settings document per customized subscription.
type SettingsService struct {
	st   store.Store
	coll store.Collection
	subs store.Collection
	pub  Publisher
}

func NewSettingsService(st store.Store, pub Publisher) *SettingsService {
	return &SettingsService{
		st:   st,
		coll: st.Collection(CollectionSettings),
		subs: st.Collection(CollectionSubscriptions),
		pub:  pub,
	}
}

// Get returns the stored settings, or the defaults when none were saved.
func (s *SettingsService) Get(ctx context.Context) (core.AppSettings, error) {
	d, err := s.coll.FindOne(ctx, store.Filter{"type": settingsTypeApp})
	if errors.Is(err, store.ErrNoDocument) {
		return core.DefaultAppSettings(), nil
	}
	if err != nil {
		return core.AppSettings{}, storeError("failed to load settings", err)
	}
	return appSettingsFromDocument(d), nil
}

func (s *SettingsService) Update(ctx context.Context, patch SettingsPatch) (core.AppSettings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return core.AppSettings{}, err
	}
	patch.apply(&current)
	if err := current.Validate(); err != nil {
		return core.AppSettings{}, core.NewValidationError(err.Error(), nil)
	}
	if err := s.save(ctx, current); err != nil {
		return core.AppSettings{}, err
	}
	slog.InfoContext(ctx, "Settings updated",
		"currency", current.Currency,
		"notification_enabled", current.NotificationEnabled,
		"backup_interval", current.BackupInterval)
	notify(ctx, s.pub, CollectionSettings, OpUpdate, settingsTypeApp)
	return current, nil
}

// Replace stores settings as given, after validation.
func (s *SettingsService) Replace(ctx context.Context, settings core.AppSettings) error {
	if err := settings.Validate(); err != nil {
		return core.NewValidationError(err.Error(), nil)
	}
	return s.save(ctx, settings)
}

// MarkBackup records a completed backup. No change message is published so
// that the backup itself does not dirty the dataset.
func (s *SettingsService) MarkBackup(ctx context.Context, at time.Time) error {
	current, err := s.Get(ctx)
	if err != nil {
		return err
	}
	at = at.UTC().Truncate(time.Millisecond)
	current.LastBackup = &at
	return s.save(ctx, current)
}

// save upserts the app_settings document.
func (s *SettingsService) save(ctx context.Context, settings core.AppSettings) error {
	doc := appSettingsDocument(settings)
	n, err := s.coll.UpdateOne(ctx, store.Filter{"type": settingsTypeApp}, doc)
	if err != nil {
		return storeError("failed to save settings", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return storeError("failed to save settings", err)
	}
	return nil
}

// GetNotification returns the subscription's override or the defaults.
func (s *SettingsService) GetNotification(ctx context.Context, subscriptionID string) (core.NotificationSettings, error) {
	if err := s.requireSubscription(ctx, subscriptionID); err != nil {
		return core.NotificationSettings{}, err
	}
	d, err := s.coll.FindOne(ctx, notificationFilter(subscriptionID))
	if errors.Is(err, store.ErrNoDocument) {
		return core.DefaultNotificationSettings(subscriptionID), nil
	}
	if err != nil {
		return core.NotificationSettings{}, storeError("failed to load notification settings", err)
	}
	return notificationFromDocument(d), nil
}

func (s *SettingsService) UpdateNotification(ctx context.Context, subscriptionID string, patch NotificationPatch) (core.NotificationSettings, error) {
	current, err := s.GetNotification(ctx, subscriptionID)
	if err != nil {
		return core.NotificationSettings{}, err
	}
	if patch.Enabled != nil {
		current.Enabled = *patch.Enabled
	}
	if patch.DaysBefore != nil {
		current.DaysBefore = patch.DaysBefore
	}
	if patch.CustomMessage != nil {
		current.CustomMessage = CleanText(*patch.CustomMessage)
	}
	if err := current.Validate(); err != nil {
		return core.NotificationSettings{}, core.NewValidationError(err.Error(), nil)
	}

	doc := notificationDocument(current)
	n, err := s.coll.UpdateOne(ctx, notificationFilter(subscriptionID), doc)
	if err != nil {
		return core.NotificationSettings{}, storeError("failed to save notification settings", err)
	}
	if n == 0 {
		if _, err := s.coll.InsertOne(ctx, doc); err != nil {
			return core.NotificationSettings{}, storeError("failed to save notification settings", err)
		}
	}
	slog.InfoContext(ctx, "Notification settings updated",
		"record_id", subscriptionID,
		"enabled", current.Enabled,
		"days_before", current.DaysBefore)
	notify(ctx, s.pub, CollectionSettings, OpUpdate, subscriptionID)
	return current, nil
}

// Overrides returns every stored per-subscription override keyed by
// subscription id.
func (s *SettingsService) Overrides(ctx context.Context) (map[string]core.NotificationSettings, error) {
	docs, err := s.coll.Find(ctx, store.Filter{"type": settingsTypeNotification}, store.FindOptions{})
	if err != nil {
		return nil, storeError("failed to load notification settings", err)
	}
	out := make(map[string]core.NotificationSettings, len(docs))
	for _, d := range docs {
		n := notificationFromDocument(d)
		if n.SubscriptionID == "" {
			continue
		}
		out[n.SubscriptionID] = n
	}
	return out, nil
}

// Reset drops every settings document; Get falls back to defaults afterwards.
func (s *SettingsService) Reset(ctx context.Context) error {
	if _, err := s.coll.DeleteMany(ctx, nil); err != nil {
		return storeError("failed to reset settings", err)
	}
	return nil
}

func (s *SettingsService) requireSubscription(ctx context.Context, id string) error {
	if err := validateID(s.st, id); err != nil {
		return err
	}
	_, err := s.subs.FindOne(ctx, store.Filter{store.IDField: id})
	if errors.Is(err, store.ErrNoDocument) {
		return core.NewNotFoundError("subscription", id)
	}
	if err != nil {
		return storeError("failed to load subscription", err)
	}
	return nil
}

func notificationFilter(subscriptionID string) store.Filter {
	return store.Filter{"type": settingsTypeNotification, "subscription_id": subscriptionID}
}
