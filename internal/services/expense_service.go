package services

import (
	"context"
	"log/slog"

	"subtrack/internal/core"
	"subtrack/internal/store"
)

type ExpenseInput struct {
	Name         string
	Category     string
	AmountCents  int64
	BillingCycle string
	Notes        string
}

type ExpensePatch struct {
	Name         *string
	Category     *string
	AmountCents  *int64
	BillingCycle *string
	Notes        *string
}

func (p ExpensePatch) IsEmpty() bool {
	return p.Name == nil && p.Category == nil && p.AmountCents == nil &&
		p.BillingCycle == nil && p.Notes == nil
}

// ExpenseService manages recurring fixed costs.
type ExpenseService struct {
	repo recordRepo[core.Expense]
	pub  Publisher
}

func NewExpenseService(st store.Store, pub Publisher) *ExpenseService {
	return &ExpenseService{
		repo: recordRepo[core.Expense]{
			st:         st,
			resource:   "expense",
			collection: CollectionExpenses,
			encode:     expenseDocument,
			decode:     expenseFromDocument,
		},
		pub: pub,
	}
}

func (s *ExpenseService) List(ctx context.Context) ([]core.Expense, error) {
	return s.repo.list(ctx)
}

func (s *ExpenseService) Get(ctx context.Context, id string) (core.Expense, error) {
	return s.repo.get(ctx, id)
}

func BuildExpense(in ExpenseInput) (core.Expense, error) {
	cycle, err := core.ParseBillingCycle(in.BillingCycle)
	if err != nil {
		return core.Expense{}, core.InvalidField("billing_cycle", err)
	}
	e := core.Expense{
		Name:         CleanText(in.Name),
		Category:     CleanText(in.Category),
		Amount:       core.Money{Cents: in.AmountCents},
		BillingCycle: cycle,
		Notes:        CleanText(in.Notes),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, core.NewValidationError(err.Error(), nil)
	}
	return e, nil
}

func (s *ExpenseService) Create(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	e, err := BuildExpense(in)
	if err != nil {
		return core.Expense{}, err
	}
	e.CreatedAt = timeNow()

	id, err := s.repo.insert(ctx, e)
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = id

	slog.InfoContext(ctx, "Expense created",
		"record_id", id,
		"record_name", e.Name,
		"amount_cents", e.Amount.Cents)
	notify(ctx, s.pub, CollectionExpenses, OpCreate, id)
	return e, nil
}

func (s *ExpenseService) Update(ctx context.Context, id string, patch ExpensePatch) (core.Expense, error) {
	if patch.IsEmpty() {
		return core.Expense{}, core.NewValidationError("no fields to update", nil)
	}
	current, err := s.repo.get(ctx, id)
	if err != nil {
		return core.Expense{}, err
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
			return core.Expense{}, core.InvalidField("billing_cycle", err)
		}
		current.BillingCycle = cycle
		set["billing_cycle"] = string(cycle)
	}
	if patch.Notes != nil {
		current.Notes = CleanText(*patch.Notes)
		set["notes"] = current.Notes
	}
	if err := current.Validate(); err != nil {
		return core.Expense{}, core.NewValidationError(err.Error(), nil)
	}
	set["updated_at"] = timeNow()

	updated, err := s.repo.update(ctx, id, set)
	if err != nil {
		return core.Expense{}, err
	}
	slog.InfoContext(ctx, "Expense updated", "record_id", id, "fields", len(set)-1)
	notify(ctx, s.pub, CollectionExpenses, OpUpdate, id)
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	if err := s.repo.delete(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Expense deleted", "record_id", id)
	notify(ctx, s.pub, CollectionExpenses, OpDelete, id)
	return nil
}
