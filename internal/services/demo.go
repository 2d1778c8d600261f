package services

import (
	"time"

	"subtrack/internal/core"
)

var demoSubscriptions = []SubscriptionInput{
	{Name: "Netflix", Category: "Streaming", AmountCents: 1299, BillingCycle: "MONTHLY", StartDate: "2024-01-15", Notes: "Premium Abo", CancelURL: "https://www.netflix.com/cancelplan"},
	{Name: "Spotify", Category: "Musik", AmountCents: 999, BillingCycle: "MONTHLY", StartDate: "2023-06-01", Notes: "Family Plan", CancelURL: "https://www.spotify.com/account"},
	{Name: "Amazon Prime", Category: "Shopping", AmountCents: 8990, BillingCycle: "YEARLY", StartDate: "2024-03-01", Notes: "Inkl. Prime Video", CancelURL: "https://www.amazon.de/prime"},
	{Name: "Microsoft 365", Category: "Software", AmountCents: 6900, BillingCycle: "YEARLY", StartDate: "2024-02-15", Notes: "Family", CancelURL: "https://account.microsoft.com"},
}

var demoExpenses = []ExpenseInput{
	{Name: "Miete", Category: "Wohnen", AmountCents: 85000, BillingCycle: "MONTHLY", Notes: "Kaltmiete inkl. Nebenkosten"},
	{Name: "Strom", Category: "Wohnen", AmountCents: 7500, BillingCycle: "MONTHLY", Notes: "Stadtwerke"},
	{Name: "Internet", Category: "Kommunikation", AmountCents: 3999, BillingCycle: "MONTHLY", Notes: "100 Mbit/s"},
	{Name: "KFZ-Versicherung", Category: "Versicherung", AmountCents: 48000, BillingCycle: "YEARLY", Notes: "Vollkasko"},
	{Name: "Handyvertrag", Category: "Kommunikation", AmountCents: 2999, BillingCycle: "MONTHLY", Notes: "10GB Daten"},
}

// demoData builds the sample record set stamped with createdAt.
func demoData(createdAt time.Time) ([]core.Subscription, []core.Expense, error) {
	subs := make([]core.Subscription, 0, len(demoSubscriptions))
	for _, in := range demoSubscriptions {
		s, err := BuildSubscription(in)
		if err != nil {
			return nil, nil, err
		}
		s.CreatedAt = createdAt
		subs = append(subs, s)
	}
	exps := make([]core.Expense, 0, len(demoExpenses))
	for _, in := range demoExpenses {
		e, err := BuildExpense(in)
		if err != nil {
			return nil, nil, err
		}
		e.CreatedAt = createdAt
		exps = append(exps, e)
	}
	return subs, exps, nil
}
