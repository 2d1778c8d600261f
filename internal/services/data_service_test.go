package services

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"sort"
	"strings"
	"testing"
	"time"

	"subtrack/internal/core"
)

func TestLoadDemoDataReplacesRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.subs.Create(ctx, netflixInput()); err != nil {
		t.Fatalf("create: %v", err)
	}

	nSubs, nExps, err := f.data.LoadDemoData(ctx)
	if err != nil {
		t.Fatalf("demo data: %v", err)
	}
	if nSubs != 4 || nExps != 5 {
		t.Fatalf("expected 4/5 records, got %d/%d", nSubs, nExps)
	}
	subs, _ := f.subs.List(ctx)
	if len(subs) != 4 {
		t.Fatalf("expected previous records to be replaced, got %d", len(subs))
	}

	// Loading twice must not accumulate.
	if _, _, err := f.data.LoadDemoData(ctx); err != nil {
		t.Fatalf("demo data: %v", err)
	}
	exps, _ := f.exps.List(ctx)
	if len(exps) != 5 {
		t.Fatalf("expected 5 expenses, got %d", len(exps))
	}
}

func importFixture() ImportData {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	return ImportData{
		Subscriptions: []ImportSubscription{
			{Name: "Disney+", Category: "Streaming", AmountCents: 899, BillingCycle: "MONTHLY", StartDate: "2024-05-31", CreatedAt: &created},
		},
		Expenses: []ImportExpense{
			{Name: "Gym", Category: "Sport", AmountCents: 2990, BillingCycle: "MONTHLY"},
			{Name: "GEZ", Category: "Rundfunk", AmountCents: 22032, BillingCycle: "YEARLY"},
		},
	}
}

func TestImportReplace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, _, err := f.data.LoadDemoData(ctx); err != nil {
		t.Fatalf("demo data: %v", err)
	}

	res, err := f.data.Import(ctx, importFixture())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if res.Subscriptions != 1 || res.Expenses != 2 || res.Merged {
		t.Fatalf("unexpected result %+v", res)
	}
	subs, _ := f.subs.List(ctx)
	exps, _ := f.exps.List(ctx)
	if len(subs) != 1 || len(exps) != 2 {
		t.Fatalf("expected prior records removed, got %d/%d", len(subs), len(exps))
	}
	want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if !subs[0].CreatedAt.Equal(want) {
		t.Fatalf("expected created_at to be preserved, got %v", subs[0].CreatedAt)
	}
	if exps[0].CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be stamped when missing")
	}
}

func TestImportMerge(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, _, err := f.data.LoadDemoData(ctx); err != nil {
		t.Fatalf("demo data: %v", err)
	}

	data := importFixture()
	data.Merge = true
	res, err := f.data.Import(ctx, data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !res.Merged {
		t.Fatalf("expected merged result")
	}
	subs, _ := f.subs.List(ctx)
	exps, _ := f.exps.List(ctx)
	if len(subs) != 5 || len(exps) != 7 {
		t.Fatalf("expected appended records, got %d/%d", len(subs), len(exps))
	}
}

func TestImportValidatesBeforeWriting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, _, err := f.data.LoadDemoData(ctx); err != nil {
		t.Fatalf("demo data: %v", err)
	}

	data := importFixture()
	data.Expenses[1].AmountCents = 0
	_, err := f.data.Import(ctx, data)
	if !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var ce *core.Error
	if e, ok := err.(*core.Error); ok {
		ce = e
	}
	if ce == nil || ce.Details["collection"] != "expenses" || ce.Details["index"] != 1 {
		t.Fatalf("expected error to point at expenses[1], got %+v", err)
	}

	subs, _ := f.subs.List(ctx)
	if len(subs) != 4 {
		t.Fatalf("failed import must not touch existing data, got %d subscriptions", len(subs))
	}
}

func TestImportSettings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	settings := core.DefaultAppSettings()
	settings.Currency = "CHF"
	data := importFixture()
	data.Settings = &settings
	if _, err := f.data.Import(ctx, data); err != nil {
		t.Fatalf("import: %v", err)
	}
	got, err := f.settings.Get(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if got.Currency != "CHF" {
		t.Fatalf("expected imported currency, got %s", got.Currency)
	}

	bad := core.DefaultAppSettings()
	bad.Currency = "EURO"
	data.Settings = &bad
	if _, err := f.data.Import(ctx, data); !core.IsValidation(err) {
		t.Fatalf("expected validation error for settings, got %v", err)
	}
}

func recordKey(name, category string, cents int64, cycle core.BillingCycle, extra string) string {
	return strings.Join([]string{name, category, core.Money{Cents: cents}.String(), string(cycle), extra}, "|")
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, _, err := f.data.LoadDemoData(ctx); err != nil {
		t.Fatalf("demo data: %v", err)
	}
	subs, err := f.subs.List(ctx)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if _, err := f.subs.Update(ctx, subs[0].ID, SubscriptionPatch{Notes: strPtr("edited")}); err != nil {
		t.Fatalf("update subscription: %v", err)
	}
	exps, err := f.exps.List(ctx)
	if err != nil {
		t.Fatalf("list expenses: %v", err)
	}
	if _, err := f.exps.Update(ctx, exps[0].ID, ExpensePatch{Notes: strPtr("edited")}); err != nil {
		t.Fatalf("update expense: %v", err)
	}

	before, err := f.data.ExportJSON(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if before.AppName != AppName || before.Version != ExportVersion {
		t.Fatalf("unexpected header %s %s", before.AppName, before.Version)
	}

	raw, err := json.Marshal(before)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var data ImportData
	if err := json.Unmarshal(raw, &data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, err := f.data.Import(ctx, data); err != nil {
		t.Fatalf("import: %v", err)
	}

	after, err := f.data.ExportJSON(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	stamp := func(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }
	keys := func(e ExportData) []string {
		var out []string
		for _, s := range e.Subscriptions {
			out = append(out, recordKey(s.Name, s.Category, s.Amount.Cents, s.BillingCycle, s.StartDate.String()+s.Notes+s.CancelURL+stamp(s.CreatedAt)+stamp(s.UpdatedAt)))
		}
		for _, x := range e.Expenses {
			out = append(out, recordKey(x.Name, x.Category, x.Amount.Cents, x.BillingCycle, x.Notes+stamp(x.CreatedAt)+stamp(x.UpdatedAt)))
		}
		sort.Strings(out)
		return out
	}
	b, a := keys(before), keys(after)
	if len(a) != len(b) {
		t.Fatalf("record count changed: %d vs %d", len(b), len(a))
	}
	for i := range b {
		if a[i] != b[i] {
			t.Fatalf("record %d differs:\n%s\n%s", i, b[i], a[i])
		}
	}

	edited := 0
	for _, s := range after.Subscriptions {
		if !s.UpdatedAt.IsZero() {
			edited++
		}
	}
	for _, x := range after.Expenses {
		if !x.UpdatedAt.IsZero() {
			edited++
		}
	}
	if edited != 2 {
		t.Fatalf("expected updated_at on both edited records, got %d", edited)
	}
}

func TestExportCSV(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, err := f.subs.Create(ctx, SubscriptionInput{
		Name:         "Netflix, Premium",
		Category:     "Streaming",
		AmountCents:  1299,
		BillingCycle: "MONTHLY",
		StartDate:    "2024-01-15",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}

	out, err := f.data.ExportCSV(ctx)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	rows, err := csv.NewReader(strings.NewReader(out.SubscriptionsCSV)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and one row, got %d", len(rows))
	}
	if rows[0][3] != "amount" || rows[1][1] != "Netflix, Premium" || rows[1][3] != "12.99" {
		t.Fatalf("unexpected rows %v", rows)
	}
	expRows, err := csv.NewReader(strings.NewReader(out.ExpensesCSV)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(expRows) != 1 {
		t.Fatalf("expected header only, got %d rows", len(expRows))
	}
}

func TestResetAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if _, _, err := f.data.LoadDemoData(ctx); err != nil {
		t.Fatalf("demo data: %v", err)
	}
	if _, err := f.settings.Update(ctx, SettingsPatch{Currency: strPtr("USD")}); err != nil {
		t.Fatalf("update settings: %v", err)
	}

	res, err := f.data.ResetAll(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if res.Subscriptions != 4 || res.Expenses != 5 {
		t.Fatalf("unexpected counts %+v", res)
	}
	settings, err := f.settings.Get(ctx)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if settings.Currency != "EUR" {
		t.Fatalf("expected default settings after reset, got %s", settings.Currency)
	}

	// Resetting an empty dataset is a no-op, not an error.
	res, err = f.data.ResetAll(ctx)
	if err != nil || res.Subscriptions != 0 {
		t.Fatalf("expected empty reset, got %+v %v", res, err)
	}
}
