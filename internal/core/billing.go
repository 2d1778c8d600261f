package core

// MonthlyEquivalent normalizes an amount to a per-month figure.
// Yearly amounts use integer floor division: the remainder is dropped each
// month (8990 -> 749), never rounded.
func MonthlyEquivalent(amountCents int64, cycle BillingCycle) int64 {
	if cycle == Yearly {
		return amountCents / 12
	}
	return amountCents
}

// YearlyEquivalent normalizes an amount to a per-year figure.
func YearlyEquivalent(amountCents int64, cycle BillingCycle) int64 {
	if cycle == Yearly {
		return amountCents
	}
	return amountCents * 12
}

func (s Subscription) MonthlyCents() int64 {
	return MonthlyEquivalent(s.Amount.Cents, s.BillingCycle)
}

func (s Subscription) YearlyCents() int64 {
	return YearlyEquivalent(s.Amount.Cents, s.BillingCycle)
}

func (e Expense) MonthlyCents() int64 {
	return MonthlyEquivalent(e.Amount.Cents, e.BillingCycle)
}

func (e Expense) YearlyCents() int64 {
	return YearlyEquivalent(e.Amount.Cents, e.BillingCycle)
}
