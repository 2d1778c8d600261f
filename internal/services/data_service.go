package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"subtrack/internal/core"
	"subtrack/internal/store"
)

const (
	AppName       = "SubTrack"
	ExportVersion = "1.0.0"
)

// ExportData is the full JSON dump.
type ExportData struct {
	Version       string              `json:"version"`
	AppName       string              `json:"app_name"`
	ExportedAt    time.Time           `json:"exported_at"`
	Subscriptions []core.Subscription `json:"subscriptions"`
	Expenses      []core.Expense      `json:"expenses"`
	Settings      core.AppSettings    `json:"settings"`
}

type CSVExport struct {
	SubscriptionsCSV string    `json:"subscriptions_csv"`
	ExpensesCSV      string    `json:"expenses_csv"`
	ExportedAt       time.Time `json:"exported_at"`
}

// ImportSubscription is a subscription as found in an export file.
type ImportSubscription struct {
	Name         string     `json:"name"`
	Category     string     `json:"category"`
	AmountCents  int64      `json:"amount_cents"`
	BillingCycle string     `json:"billing_cycle"`
	StartDate    string     `json:"start_date"`
	Notes        string     `json:"notes"`
	CancelURL    string     `json:"cancel_url"`
	CreatedAt    *time.Time `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

type ImportExpense struct {
	Name         string     `json:"name"`
	Category     string     `json:"category"`
	AmountCents  int64      `json:"amount_cents"`
	BillingCycle string     `json:"billing_cycle"`
	Notes        string     `json:"notes"`
	CreatedAt    *time.Time `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

type ImportData struct {
	Subscriptions []ImportSubscription `json:"subscriptions"`
	Expenses      []ImportExpense      `json:"expenses"`
	Settings      *core.AppSettings    `json:"settings,omitempty"`
	Merge         bool                 `json:"merge"`
}

type ImportResult struct {
	Subscriptions int
	Expenses      int
	Merged        bool
}

type ResetResult struct {
	Subscriptions int64
	Expenses      int64
}

// DataService implements the bulk operations: demo data, export, import and
// factory reset. None of them are atomic across collections.
type DataService struct {
	subs     *SubscriptionService
	exps     *ExpenseService
	settings *SettingsService
	pub      Publisher
}

func NewDataService(subs *SubscriptionService, exps *ExpenseService, settings *SettingsService, pub Publisher) *DataService {
	return &DataService{subs: subs, exps: exps, settings: settings, pub: pub}
}

// LoadDemoData replaces all records with the sample set.
func (s *DataService) LoadDemoData(ctx context.Context) (int, int, error) {
	subs, exps, err := demoData(timeNow())
	if err != nil {
		return 0, 0, fmt.Errorf("build demo data: %w", err)
	}
	if err := s.dropOverrides(ctx); err != nil {
		return 0, 0, err
	}
	nSubs, err := s.subs.repo.replace(ctx, subs, false)
	if err != nil {
		return 0, 0, err
	}
	nExps, err := s.exps.repo.replace(ctx, exps, false)
	if err != nil {
		return nSubs, 0, err
	}
	slog.InfoContext(ctx, "Demo data loaded", "subscriptions", nSubs, "expenses", nExps)
	notify(ctx, s.pub, CollectionSubscriptions, OpSeed, "")
	notify(ctx, s.pub, CollectionExpenses, OpSeed, "")
	return nSubs, nExps, nil
}

// Snapshot loads every record and the settings concurrently.
func (s *DataService) Snapshot(ctx context.Context) ([]core.Subscription, []core.Expense, core.AppSettings, error) {
	var (
		subs     []core.Subscription
		exps     []core.Expense
		settings core.AppSettings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		subs, err = s.subs.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		exps, err = s.exps.List(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		settings, err = s.settings.Get(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, core.AppSettings{}, err
	}
	return subs, exps, settings, nil
}

func (s *DataService) ExportJSON(ctx context.Context) (ExportData, error) {
	subs, exps, settings, err := s.Snapshot(ctx)
	if err != nil {
		return ExportData{}, err
	}
	return ExportData{
		Version:       ExportVersion,
		AppName:       AppName,
		ExportedAt:    timeNow(),
		Subscriptions: subs,
		Expenses:      exps,
		Settings:      settings,
	}, nil
}

func (s *DataService) ExportCSV(ctx context.Context) (CSVExport, error) {
	subs, exps, _, err := s.Snapshot(ctx)
	if err != nil {
		return CSVExport{}, err
	}
	subsCSV, err := encodeCSV(SubscriptionRows(subs))
	if err != nil {
		return CSVExport{}, err
	}
	expsCSV, err := encodeCSV(ExpenseRows(exps))
	if err != nil {
		return CSVExport{}, err
	}
	return CSVExport{
		SubscriptionsCSV: subsCSV,
		ExpensesCSV:      expsCSV,
		ExportedAt:       timeNow(),
	}, nil
}

// Import loads data. Every record is validated before anything is written;
// without Merge the existing records are removed first.
func (s *DataService) Import(ctx context.Context, data ImportData) (ImportResult, error) {
	now := timeNow()

	subs := make([]core.Subscription, 0, len(data.Subscriptions))
	for i, in := range data.Subscriptions {
		sub, err := BuildSubscription(SubscriptionInput{
			Name:         in.Name,
			Category:     in.Category,
			AmountCents:  in.AmountCents,
			BillingCycle: in.BillingCycle,
			StartDate:    in.StartDate,
			Notes:        in.Notes,
			CancelURL:    in.CancelURL,
		})
		if err != nil {
			return ImportResult{}, importError("subscriptions", i, err)
		}
		sub.CreatedAt = createdAtOr(in.CreatedAt, now)
		sub.UpdatedAt = updatedAt(in.UpdatedAt)
		subs = append(subs, sub)
	}

	exps := make([]core.Expense, 0, len(data.Expenses))
	for i, in := range data.Expenses {
		e, err := BuildExpense(ExpenseInput{
			Name:         in.Name,
			Category:     in.Category,
			AmountCents:  in.AmountCents,
			BillingCycle: in.BillingCycle,
			Notes:        in.Notes,
		})
		if err != nil {
			return ImportResult{}, importError("expenses", i, err)
		}
		e.CreatedAt = createdAtOr(in.CreatedAt, now)
		e.UpdatedAt = updatedAt(in.UpdatedAt)
		exps = append(exps, e)
	}

	if data.Settings != nil {
		if err := data.Settings.Validate(); err != nil {
			return ImportResult{}, core.NewValidationError("invalid settings: "+err.Error(), nil)
		}
	}

	if !data.Merge {
		if err := s.dropOverrides(ctx); err != nil {
			return ImportResult{}, err
		}
	}
	nSubs, err := s.subs.repo.replace(ctx, subs, data.Merge)
	if err != nil {
		return ImportResult{}, err
	}
	nExps, err := s.exps.repo.replace(ctx, exps, data.Merge)
	if err != nil {
		return ImportResult{Subscriptions: nSubs, Merged: data.Merge}, err
	}
	if data.Settings != nil {
		if err := s.settings.Replace(ctx, *data.Settings); err != nil {
			return ImportResult{Subscriptions: nSubs, Expenses: nExps, Merged: data.Merge}, err
		}
	}

	slog.InfoContext(ctx, "Data imported",
		"subscriptions", nSubs,
		"expenses", nExps,
		"merge", data.Merge)
	notify(ctx, s.pub, CollectionSubscriptions, OpImport, "")
	notify(ctx, s.pub, CollectionExpenses, OpImport, "")
	return ImportResult{Subscriptions: nSubs, Expenses: nExps, Merged: data.Merge}, nil
}

// ResetAll deletes every record and every settings document.
func (s *DataService) ResetAll(ctx context.Context) (ResetResult, error) {
	nSubs, err := s.subs.repo.clear(ctx)
	if err != nil {
		return ResetResult{}, err
	}
	nExps, err := s.exps.repo.clear(ctx)
	if err != nil {
		return ResetResult{Subscriptions: nSubs}, err
	}
	if err := s.settings.Reset(ctx); err != nil {
		return ResetResult{Subscriptions: nSubs, Expenses: nExps}, err
	}
	slog.InfoContext(ctx, "All data deleted", "subscriptions", nSubs, "expenses", nExps)
	notify(ctx, s.pub, CollectionSubscriptions, OpReset, "")
	notify(ctx, s.pub, CollectionExpenses, OpReset, "")
	return ResetResult{Subscriptions: nSubs, Expenses: nExps}, nil
}

// dropOverrides removes the notification overrides of replaced subscriptions.
func (s *DataService) dropOverrides(ctx context.Context) error {
	if _, err := s.settings.coll.DeleteMany(ctx, store.Filter{"type": settingsTypeNotification}); err != nil {
		return storeError("failed to clear notification settings", err)
	}
	return nil
}

func createdAtOr(t *time.Time, fallback time.Time) time.Time {
	if t == nil || t.IsZero() {
		return fallback
	}
	return t.UTC()
}

func updatedAt(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return t.UTC()
}

// importError points a record validation failure at its position.
func importError(collection string, index int, err error) error {
	details := map[string]any{"collection": collection, "index": index}
	msg := err.Error()
	if ce, ok := err.(*core.Error); ok {
		for k, v := range ce.Details {
			details[k] = v
		}
		msg = ce.Message
		if ce.Err != nil {
			msg = ce.Error()
		}
	}
	return core.NewValidationError(fmt.Sprintf("%s[%d]: %s", collection, index, msg), details)
}
