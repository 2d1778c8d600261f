package services

import (
	"context"
	"log/slog"

	"subtrack/internal/core"
	"subtrack/internal/store"
)

// SubscriptionInput is a new subscription as received from a client.
type SubscriptionInput struct {
	Name         string
	Category     string
	AmountCents  int64
	BillingCycle string
	StartDate    string
	Notes        string
	CancelURL    string
}

// SubscriptionPatch carries the fields of a partial update; nil means
// unchanged.
type SubscriptionPatch struct {
	Name         *string
	Category     *string
	AmountCents  *int64
	BillingCycle *string
	StartDate    *string
	Notes        *string
	CancelURL    *string
}

func (p SubscriptionPatch) IsEmpty() bool {
	return p.Name == nil && p.Category == nil && p.AmountCents == nil &&
		p.BillingCycle == nil && p.StartDate == nil && p.Notes == nil && p.CancelURL == nil
}

type SubscriptionService struct {
	repo     recordRepo[core.Subscription]
	settings store.Collection
	pub      Publisher
}

func NewSubscriptionService(st store.Store, pub Publisher) *SubscriptionService {
	return &SubscriptionService{
		repo: recordRepo[core.Subscription]{
			st:         st,
			resource:   "subscription",
			collection: CollectionSubscriptions,
			encode:     subscriptionDocument,
			decode:     subscriptionFromDocument,
		},
		settings: st.Collection(CollectionSettings),
		pub:      pub,
	}
}

func (s *SubscriptionService) List(ctx context.Context) ([]core.Subscription, error) {
	return s.repo.list(ctx)
}

func (s *SubscriptionService) Get(ctx context.Context, id string) (core.Subscription, error) {
	return s.repo.get(ctx, id)
}

// BuildSubscription cleans and validates in without touching the store.
func BuildSubscription(in SubscriptionInput) (core.Subscription, error) {
	cycle, err := core.ParseBillingCycle(in.BillingCycle)
	if err != nil {
		return core.Subscription{}, core.InvalidField("billing_cycle", err)
	}
	start, err := core.ParseDate(in.StartDate)
	if err != nil {
		return core.Subscription{}, core.InvalidField("start_date", err)
	}
	sub := core.Subscription{
		Name:         CleanText(in.Name),
		Category:     CleanText(in.Category),
		Amount:       core.Money{Cents: in.AmountCents},
		BillingCycle: cycle,
		StartDate:    start,
		Notes:        CleanText(in.Notes),
		CancelURL:    CleanText(in.CancelURL),
	}
	if err := sub.Validate(); err != nil {
		return core.Subscription{}, core.NewValidationError(err.Error(), nil)
	}
	return sub, nil
}

func (s *SubscriptionService) Create(ctx context.Context, in SubscriptionInput) (core.Subscription, error) {
	sub, err := BuildSubscription(in)
	if err != nil {
		return core.Subscription{}, err
	}
	sub.CreatedAt = timeNow()

	id, err := s.repo.insert(ctx, sub)
	if err != nil {
		return core.Subscription{}, err
	}
	sub.ID = id

	slog.InfoContext(ctx, "Subscription created",
		"record_id", id,
		"record_name", sub.Name,
		"amount_cents", sub.Amount.Cents,
		"billing_cycle", sub.BillingCycle)
	notify(ctx, s.pub, CollectionSubscriptions, OpCreate, id)
	return sub, nil
}

// Update applies patch and returns the stored result. An empty patch is
// rejected before any store access.
func (s *SubscriptionService) Update(ctx context.Context, id string, patch SubscriptionPatch) (core.Subscription, error) {
	if patch.IsEmpty() {
		return core.Subscription{}, core.NewValidationError("no fields to update", nil)
	}
	current, err := s.repo.get(ctx, id)
	if err != nil {
		return core.Subscription{}, err
	}

	set := store.Document{}
	if patch.Name != nil {
		current.Name = CleanText(*patch.Name)
		set["name"] = current.Name
	}
	if patch.Category != nil {
		current.Category = CleanText(*patch.Category)
		set["category"] = current.Category
	}
	if patch.AmountCents != nil {
		current.Amount = core.Money{Cents: *patch.AmountCents}
		set["amount_cents"] = current.Amount.Cents
	}
	if patch.BillingCycle != nil {
		cycle, err := core.ParseBillingCycle(*patch.BillingCycle)
		if err != nil {
			return core.Subscription{}, core.InvalidField("billing_cycle", err)
		}
		current.BillingCycle = cycle
		set["billing_cycle"] = string(cycle)
	}
	if patch.StartDate != nil {
		start, err := core.ParseDate(*patch.StartDate)
		if err != nil {
			return core.Subscription{}, core.InvalidField("start_date", err)
		}
		current.StartDate = start
		set["start_date"] = start.String()
	}
	if patch.Notes != nil {
		current.Notes = CleanText(*patch.Notes)
		set["notes"] = current.Notes
	}
	if patch.CancelURL != nil {
		current.CancelURL = CleanText(*patch.CancelURL)
		set["cancel_url"] = current.CancelURL
	}
	if err := current.Validate(); err != nil {
		return core.Subscription{}, core.NewValidationError(err.Error(), nil)
	}
	set["updated_at"] = timeNow()

	updated, err := s.repo.update(ctx, id, set)
	if err != nil {
		return core.Subscription{}, err
	}
	slog.InfoContext(ctx, "Subscription updated", "record_id", id, "fields", len(set)-1)
	notify(ctx, s.pub, CollectionSubscriptions, OpUpdate, id)
	return updated, nil
}

// Delete removes the subscription and its notification override.
func (s *SubscriptionService) Delete(ctx context.Context, id string) error {
	if err := s.repo.delete(ctx, id); err != nil {
		return err
	}
	if _, err := s.settings.DeleteMany(ctx, store.Filter{"type": settingsTypeNotification, "subscription_id": id}); err != nil {
		slog.WarnContext(ctx, "Failed to remove notification settings of deleted subscription",
			"record_id", id, "error", err)
	}
	slog.InfoContext(ctx, "Subscription deleted", "record_id", id)
	notify(ctx, s.pub, CollectionSubscriptions, OpDelete, id)
	return nil
}
