package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"monetization-ledger/internal/lock"
	"monetization-ledger/internal/metrics"
	"monetization-ledger/internal/models"
	"monetization-ledger/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// SnapshotCache holds the last successfully computed snapshot per day.
type SnapshotCache interface {
	Get(day string) (models.DailySnapshot, bool)
	Set(snap models.DailySnapshot) bool
}

// MetricsComputer recomputes the derived fields of a day on demand.
type MetricsComputer struct {
	store     repository.Store
	amortizer *Amortizer
	locker    lock.Locker
	cache     SnapshotCache
	timeout   time.Duration
	currency  string
	logger    *logrus.Logger
	now       func() time.Time
}

func NewMetricsComputer(store repository.Store, amortizer *Amortizer, locker lock.Locker, cache SnapshotCache, timeout time.Duration, currency string, logger *logrus.Logger) *MetricsComputer {
	return &MetricsComputer{
		store:     store,
		amortizer: amortizer,
		locker:    locker,
		cache:     cache,
		timeout:   timeout,
		currency:  currency,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetOrComputeDailySnapshot recomputes and persists the day's derived
// metrics. When the computation fails or times out it returns the last known
// snapshot marked stale instead of an error.
func (m *MetricsComputer) GetOrComputeDailySnapshot(ctx context.Context, day time.Time) (models.DailySnapshot, error) {
	key := models.DayKey(day)

	computeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	snap, err := m.compute(computeCtx, day)
	if err == nil {
		m.cache.Set(snap)
		return snap, nil
	}
	if IsValidation(err) {
		return models.DailySnapshot{}, err
	}

	m.logger.WithError(err).WithField("day", key).Warn("Snapshot computation failed, serving last known snapshot")
	metrics.SnapshotStale.Inc()
	return m.lastKnown(key), nil
}

func (m *MetricsComputer) compute(ctx context.Context, day time.Time) (models.DailySnapshot, error) {
	key := models.DayKey(day)

	unlock, err := m.locker.Lock(ctx, dayLockKey(day))
	if err != nil {
		return models.DailySnapshot{}, fmt.Errorf("lock day %s: %w", key, err)
	}
	defer unlock()

	if _, err := m.amortizer.ensureLocked(ctx, day); err != nil {
		return models.DailySnapshot{}, fmt.Errorf("amortize flat revenue: %w", err)
	}

	derived, err := m.derive(ctx, day)
	if err != nil {
		return models.DailySnapshot{}, err
	}
	if err := m.store.SetDerived(ctx, key, m.currency, derived); err != nil {
		return models.DailySnapshot{}, err
	}

	row, err := m.store.GetDay(ctx, key)
	if err != nil {
		return models.DailySnapshot{}, err
	}
	return row.Snapshot(), nil
}

func (m *MetricsComputer) derive(ctx context.Context, day time.Time) (models.DerivedMetrics, error) {
	start, end := models.DayBounds(day)
	_, prevEnd := models.DayBounds(start.AddDate(0, 0, -1))

	var d models.DerivedMetrics
	var err error

	if d.DAU, err = m.store.CountDistinctUsers(ctx, start, end); err != nil {
		return d, fmt.Errorf("dau: %w", err)
	}
	if d.MAU, err = m.store.CountDistinctUsers(ctx, start.AddDate(0, 0, -29), end); err != nil {
		return d, fmt.Errorf("mau: %w", err)
	}
	if d.ActiveSubscribers, err = m.store.CountActiveAt(ctx, end); err != nil {
		return d, fmt.Errorf("active subscribers: %w", err)
	}
	if d.NewSubscribers, err = m.store.CountStartedBetween(ctx, start, end); err != nil {
		return d, fmt.Errorf("new subscribers: %w", err)
	}
	if d.CanceledSubscribers, err = m.store.CountCanceledBetween(ctx, start, end); err != nil {
		return d, fmt.Errorf("canceled subscribers: %w", err)
	}

	activePrev, err := m.store.CountActiveAt(ctx, prevEnd)
	if err != nil {
		return d, fmt.Errorf("previous active subscribers: %w", err)
	}
	d.ChurnRate = ChurnRate(d.CanceledSubscribers, activePrev)

	row, err := m.store.GetDay(ctx, models.DayKey(day))
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return d, err
	}
	if row == nil {
		row = &models.DailyLedgerRow{}
	}
	d.ARPU = ARPU(row.SubsNet, row.Refunds, row.AdsRevenue(), d.DAU)

	if d.MRR, err = m.monthlyRecurring(ctx, end); err != nil {
		return d, fmt.Errorf("mrr: %w", err)
	}
	d.ARR = d.MRR.Mul(decimal.NewFromInt(12))
	d.ComputedAt = m.now()
	if row.ComputedAt != nil && d.SameAs(*row) {
		d.ComputedAt = *row.ComputedAt
	}
	return d, nil
}

func (m *MetricsComputer) monthlyRecurring(ctx context.Context, at time.Time) (decimal.Decimal, error) {
	subs, err := m.store.ListActiveAt(ctx, at)
	if err != nil {
		return decimal.Zero, err
	}

	seen := make(map[string]struct{})
	var ids []string
	for _, s := range subs {
		if _, ok := seen[s.PlanID]; !ok {
			seen[s.PlanID] = struct{}{}
			ids = append(ids, s.PlanID)
		}
	}
	plans, err := m.store.ListPlansByIDs(ctx, ids)
	if err != nil {
		return decimal.Zero, err
	}

	monthly := make(map[string]decimal.Decimal, len(plans))
	for _, p := range plans {
		monthly[p.ID] = p.MonthlyPrice()
	}

	mrr := decimal.Zero
	for _, s := range subs {
		if price, ok := monthly[s.PlanID]; ok {
			mrr = mrr.Add(price)
		}
	}
	return mrr.Round(4), nil
}

func (m *MetricsComputer) lastKnown(key string) models.DailySnapshot {
	if snap, ok := m.cache.Get(key); ok {
		snap.Stale = true
		return snap
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()
	if row, err := m.store.GetDay(ctx, key); err == nil {
		snap := row.Snapshot()
		snap.Stale = true
		return snap
	}

	return models.DailySnapshot{Day: key, Currency: m.currency, Stale: true}
}

// ChurnRate is canceled over previously active, 0 when nothing was active.
func ChurnRate(canceled, activePrev int64) float64 {
	if activePrev <= 0 {
		return 0
	}
	return float64(canceled) / float64(activePrev)
}

// ARPU is (max(0, subsNet - refunds) + adsRevenue) / dau, 0 without users.
func ARPU(subsNet, refunds, adsRevenue decimal.Decimal, dau int64) decimal.Decimal {
	if dau <= 0 {
		return decimal.Zero
	}
	net := subsNet.Sub(refunds)
	if net.IsNegative() {
		net = decimal.Zero
	}
	return net.Add(adsRevenue).Div(decimal.NewFromInt(dau)).Round(4)
}
