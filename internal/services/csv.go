package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"subtrack/internal/core"
)

var (
	SubscriptionColumns = []string{"id", "name", "category", "amount", "billing_cycle", "start_date", "notes", "cancel_url", "created_at"}
	ExpenseColumns      = []string{"id", "name", "category", "amount", "billing_cycle", "notes", "created_at"}
)

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// SubscriptionRows renders subscriptions as table rows, header first. Amounts
// are in currency units.
func SubscriptionRows(subs []core.Subscription) [][]string {
	rows := make([][]string, 0, len(subs)+1)
	rows = append(rows, SubscriptionColumns)
	for _, s := range subs {
		rows = append(rows, []string{
			s.ID,
			s.Name,
			s.Category,
			s.Amount.String(),
			string(s.BillingCycle),
			s.StartDate.String(),
			s.Notes,
			s.CancelURL,
			formatTimestamp(s.CreatedAt),
		})
	}
	return rows
}

func ExpenseRows(exps []core.Expense) [][]string {
	rows := make([][]string, 0, len(exps)+1)
	rows = append(rows, ExpenseColumns)
	for _, e := range exps {
		rows = append(rows, []string{
			e.ID,
			e.Name,
			e.Category,
			e.Amount.String(),
			string(e.BillingCycle),
			e.Notes,
			formatTimestamp(e.CreatedAt),
		})
	}
	return rows
}

func encodeCSV(rows [][]string) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	return buf.String(), nil
}
