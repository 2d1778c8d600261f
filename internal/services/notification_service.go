package services

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"subtrack/internal/core"
	"subtrack/internal/store"
)

// ScheduledNotifications is the result of a renewal evaluation. Skipped lists
// records whose stored data could not be evaluated.
type ScheduledNotifications struct {
	Notifications []core.Notification   `json:"notifications"`
	Count         int                   `json:"count"`
	Skipped       []core.SkippedRenewal `json:"skipped"`
}

type NotificationService struct {
	subs     store.Collection
	settings *SettingsService
}

func NewNotificationService(st store.Store, settings *SettingsService) *NotificationService {
	return &NotificationService{
		subs:     st.Collection(CollectionSubscriptions),
		settings: settings,
	}
}

// Scheduled computes the renewal alerts that fire on today.
func (s *NotificationService) Scheduled(ctx context.Context, today core.Date) (ScheduledNotifications, error) {
	var (
		docs      []store.Document
		settings  core.AppSettings
		overrides map[string]core.NotificationSettings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		docs, err = s.subs.Find(gctx, nil, store.FindOptions{SortField: "name"})
		if err != nil {
			return storeError("failed to list subscriptions", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		settings, err = s.settings.Get(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		overrides, err = s.settings.Overrides(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return ScheduledNotifications{}, err
	}

	subs := make([]core.Subscription, 0, len(docs))
	var broken []core.SkippedRenewal
	for _, d := range docs {
		sub, err := subscriptionFromDocument(d)
		if err != nil {
			broken = append(broken, core.SkippedRenewal{
				SubscriptionID:   sub.ID,
				SubscriptionName: sub.Name,
				Reason:           err.Error(),
			})
			continue
		}
		subs = append(subs, sub)
	}

	notifications, skipped := core.ScheduleRenewals(subs, today, settings, overrides)
	skipped = append(broken, skipped...)
	if skipped == nil {
		skipped = []core.SkippedRenewal{}
	}
	for _, sk := range skipped {
		slog.WarnContext(ctx, "Subscription skipped in renewal evaluation",
			"record_id", sk.SubscriptionID,
			"record_name", sk.SubscriptionName,
			"reason", sk.Reason)
	}

	return ScheduledNotifications{
		Notifications: notifications,
		Count:         len(notifications),
		Skipped:       skipped,
	}, nil
}
