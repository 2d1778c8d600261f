package http

import (
	"subtrack/internal/core"
	"subtrack/internal/services"
)

// Request bodies. Struct tags catch malformed requests early; the domain
// rules (billing cycle set, date format, cancel URL scheme) are enforced by
// the services so imports and API writes share them.

type subscriptionRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Category     string `json:"category" validate:"required,max=100"`
	AmountCents  int64  `json:"amount_cents" validate:"gt=0,lte=10000000000"`
	BillingCycle string `json:"billing_cycle" validate:"required"`
	StartDate    string `json:"start_date" validate:"required"`
	Notes        string `json:"notes" validate:"max=1000"`
	CancelURL    string `json:"cancel_url" validate:"max=500"`
}

func (r subscriptionRequest) input() services.SubscriptionInput {
	return services.SubscriptionInput{
		Name:         r.Name,
		Category:     r.Category,
		AmountCents:  r.AmountCents,
		BillingCycle: r.BillingCycle,
		StartDate:    r.StartDate,
		Notes:        r.Notes,
		CancelURL:    r.CancelURL,
	}
}

type subscriptionPatchRequest struct {
	Name         *string `json:"name" validate:"omitempty,max=200"`
	Category     *string `json:"category" validate:"omitempty,max=100"`
	AmountCents  *int64  `json:"amount_cents" validate:"omitempty,lte=10000000000"`
	BillingCycle *string `json:"billing_cycle"`
	StartDate    *string `json:"start_date"`
	Notes        *string `json:"notes" validate:"omitempty,max=1000"`
	CancelURL    *string `json:"cancel_url" validate:"omitempty,max=500"`
}

func (r subscriptionPatchRequest) patch() services.SubscriptionPatch {
	return services.SubscriptionPatch{
		Name:         r.Name,
		Category:     r.Category,
		AmountCents:  r.AmountCents,
		BillingCycle: r.BillingCycle,
		StartDate:    r.StartDate,
		Notes:        r.Notes,
		CancelURL:    r.CancelURL,
	}
}

type expenseRequest struct {
	Name         string `json:"name" validate:"required,max=200"`
	Category     string `json:"category" validate:"required,max=100"`
	AmountCents  int64  `json:"amount_cents" validate:"gt=0,lte=10000000000"`
	BillingCycle string `json:"billing_cycle" validate:"required"`
	Notes        string `json:"notes" validate:"max=1000"`
}

func (r expenseRequest) input() services.ExpenseInput {
	return services.ExpenseInput{
		Name:         r.Name,
		Category:     r.Category,
		AmountCents:  r.AmountCents,
		BillingCycle: r.BillingCycle,
		Notes:        r.Notes,
	}
}

type expensePatchRequest struct {
	Name         *string `json:"name" validate:"omitempty,max=200"`
	Category     *string `json:"category" validate:"omitempty,max=100"`
	AmountCents  *int64  `json:"amount_cents" validate:"omitempty,lte=10000000000"`
	BillingCycle *string `json:"billing_cycle"`
	Notes        *string `json:"notes" validate:"omitempty,max=1000"`
}

func (r expensePatchRequest) patch() services.ExpensePatch {
	return services.ExpensePatch{
		Name:         r.Name,
		Category:     r.Category,
		AmountCents:  r.AmountCents,
		BillingCycle: r.BillingCycle,
		Notes:        r.Notes,
	}
}

type settingsPatchRequest struct {
	Currency               *string `json:"currency" validate:"omitempty,len=3"`
	NotificationEnabled    *bool   `json:"notification_enabled"`
	NotificationTime       *string `json:"notification_time"`
	NotificationDaysBefore []int   `json:"notification_days_before" validate:"omitempty,dive,min=0,max=365"`
	Theme                  *string `json:"theme" validate:"omitempty,oneof=dark light system"`
	BackupInterval         *string `json:"backup_interval" validate:"omitempty,oneof=daily weekly monthly never"`
}

func (r settingsPatchRequest) patch() services.SettingsPatch {
	return services.SettingsPatch{
		Currency:               r.Currency,
		NotificationEnabled:    r.NotificationEnabled,
		NotificationTime:       r.NotificationTime,
		NotificationDaysBefore: r.NotificationDaysBefore,
		Theme:                  r.Theme,
		BackupInterval:         r.BackupInterval,
	}
}

type notificationPatchRequest struct {
	Enabled       *bool   `json:"enabled"`
	DaysBefore    []int   `json:"days_before" validate:"omitempty,dive,min=0,max=365"`
	CustomMessage *string `json:"custom_message" validate:"omitempty,max=1000"`
}

func (r notificationPatchRequest) patch() services.NotificationPatch {
	return services.NotificationPatch{
		Enabled:       r.Enabled,
		DaysBefore:    r.DaysBefore,
		CustomMessage: r.CustomMessage,
	}
}

// Responses.

type demoDataResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Subscriptions int    `json:"subscriptions"`
	Expenses      int    `json:"expenses"`
}

type importResponse struct {
	Success               bool   `json:"success"`
	Message               string `json:"message"`
	SubscriptionsImported int    `json:"subscriptions_imported"`
	ExpensesImported      int    `json:"expenses_imported"`
	Merged                bool   `json:"merged"`
}

type resetData struct {
	SubscriptionsDeleted int64 `json:"subscriptions_deleted"`
	ExpensesDeleted      int64 `json:"expenses_deleted"`
}

type topSubscription struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Category     string            `json:"category"`
	AmountCents  int64             `json:"amount_cents"`
	BillingCycle core.BillingCycle `json:"billing_cycle"`
	MonthlyCents int64             `json:"monthly_cents"`
}

func topSubscriptionsView(ranked []core.RankedSubscription) []topSubscription {
	out := make([]topSubscription, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, topSubscription{
			ID:           r.Subscription.ID,
			Name:         r.Subscription.Name,
			Category:     r.Subscription.Category,
			AmountCents:  r.Subscription.Amount.Cents,
			BillingCycle: r.Subscription.BillingCycle,
			MonthlyCents: r.MonthlyCents,
		})
	}
	return out
}

type bannerResponse struct {
	Message string `json:"message"`
}
