package core

import "sort"

// DefaultTopN is the size of the top-subscriptions ranking when none is given.
const DefaultTopN = 5

// DashboardSummary holds the headline totals, all in cents.
type DashboardSummary struct {
	MonthlySubscriptions int64 `json:"monthly_subscriptions"`
	MonthlyExpenses      int64 `json:"monthly_expenses"`
	TotalMonthly         int64 `json:"total_monthly"`
	YearlyTotal          int64 `json:"yearly_total"`
	SubscriptionCount    int   `json:"subscription_count"`
	ExpenseCount         int   `json:"expense_count"`
}

// CategoryAmount is the monthly-equivalent total of one category.
type CategoryAmount struct {
	Category     string  `json:"category"`
	MonthlyCents int64   `json:"monthly_cents"`
	Count        int     `json:"count"`
	Percentage   float64 `json:"percentage"`
}

// RankedSubscription pairs a subscription with its monthly equivalent.
type RankedSubscription struct {
	Subscription Subscription
	MonthlyCents int64
}

// Summarize computes the dashboard totals.
//
// YearlyTotal is computed from raw amounts, not from the monthly figures:
// (monthly subs + monthly expenses) * 12 + yearly subs + yearly expenses.
// Deriving it from TotalMonthly would apply the /12 floor twice.
func Summarize(subs []Subscription, exps []Expense) DashboardSummary {
	var (
		sum                   DashboardSummary
		monthlyRaw, yearlyRaw int64
	)
	for _, s := range subs {
		sum.MonthlySubscriptions += s.MonthlyCents()
		if s.BillingCycle == Yearly {
			yearlyRaw += s.Amount.Cents
		} else {
			monthlyRaw += s.Amount.Cents
		}
	}
	for _, e := range exps {
		sum.MonthlyExpenses += e.MonthlyCents()
		if e.BillingCycle == Yearly {
			yearlyRaw += e.Amount.Cents
		} else {
			monthlyRaw += e.Amount.Cents
		}
	}
	sum.TotalMonthly = sum.MonthlySubscriptions + sum.MonthlyExpenses
	sum.YearlyTotal = monthlyRaw*12 + yearlyRaw
	sum.SubscriptionCount = len(subs)
	sum.ExpenseCount = len(exps)
	return sum
}

// BreakdownByCategory groups subscriptions then expenses by exact category
// string. Result is sorted by MonthlyCents descending; ties keep the order in
// which categories were first encountered.
func BreakdownByCategory(subs []Subscription, exps []Expense) []CategoryAmount {
	index := map[string]int{}
	var out []CategoryAmount
	add := func(category string, cents int64) {
		i, ok := index[category]
		if !ok {
			i = len(out)
			index[category] = i
			out = append(out, CategoryAmount{Category: category})
		}
		out[i].MonthlyCents += cents
		out[i].Count++
	}
	for _, s := range subs {
		add(s.Category, s.MonthlyCents())
	}
	for _, e := range exps {
		add(e.Category, e.MonthlyCents())
	}

	var total int64
	for _, c := range out {
		total += c.MonthlyCents
	}
	for i := range out {
		out[i].Percentage = Percentage(out[i].MonthlyCents, total)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MonthlyCents > out[j].MonthlyCents
	})
	return out
}

// TopSubscriptions ranks subscriptions by monthly equivalent, descending, and
// returns at most n of them. Equal amounts keep their input order.
func TopSubscriptions(subs []Subscription, n int) []RankedSubscription {
	ranked := make([]RankedSubscription, len(subs))
	for i, s := range subs {
		ranked[i] = RankedSubscription{Subscription: s, MonthlyCents: s.MonthlyCents()}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].MonthlyCents > ranked[j].MonthlyCents
	})
	if n < 0 {
		n = 0
	}
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
