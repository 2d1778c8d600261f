package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"subtrack/internal/core"
)

// AnalyticsService computes the read-only aggregate views.
type AnalyticsService struct {
	subs *SubscriptionService
	exps *ExpenseService
}

func NewAnalyticsService(subs *SubscriptionService, exps *ExpenseService) *AnalyticsService {
	return &AnalyticsService{subs: subs, exps: exps}
}

// load fetches both record sets concurrently.
func (s *AnalyticsService) load(ctx context.Context) ([]core.Subscription, []core.Expense, error) {
	var (
		subs []core.Subscription
		exps []core.Expense
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
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return subs, exps, nil
}

func (s *AnalyticsService) Dashboard(ctx context.Context) (core.DashboardSummary, error) {
	subs, exps, err := s.load(ctx)
	if err != nil {
		return core.DashboardSummary{}, err
	}
	return core.Summarize(subs, exps), nil
}

func (s *AnalyticsService) CategoryBreakdown(ctx context.Context) ([]core.CategoryAmount, error) {
	subs, exps, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return core.BreakdownByCategory(subs, exps), nil
}

// TopSubscriptions ranks subscriptions by monthly equivalent; n <= 0 selects
// core.DefaultTopN.
func (s *AnalyticsService) TopSubscriptions(ctx context.Context, n int) ([]core.RankedSubscription, error) {
	subs, err := s.subs.List(ctx)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		n = core.DefaultTopN
	}
	return core.TopSubscriptions(subs, n), nil
}
