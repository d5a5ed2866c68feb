// Package memory is an in-process implementation of repository.Store used by
// tests and local runs without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"monetization-ledger/internal/models"
	"monetization-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu sync.RWMutex

	days          map[string]*models.DailyLedgerRow
	applied       map[string]models.AppliedEvent
	ads           map[string]*models.Ad
	campaigns     map[string]*models.AdCampaign
	adEvents      []models.AdEvent
	invoices      map[string]models.Invoice
	refunds       map[string]models.Refund
	subscriptions map[string]models.Subscription
	plans         map[string]models.Plan
	sessions      []models.Session
	friendships   []models.Friendship
	posts         map[string]models.Post
	users         map[string]models.User
}

var _ repository.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		days:          make(map[string]*models.DailyLedgerRow),
		applied:       make(map[string]models.AppliedEvent),
		ads:           make(map[string]*models.Ad),
		campaigns:     make(map[string]*models.AdCampaign),
		invoices:      make(map[string]models.Invoice),
		refunds:       make(map[string]models.Refund),
		subscriptions: make(map[string]models.Subscription),
		plans:         make(map[string]models.Plan),
		posts:         make(map[string]models.Post),
		users:         make(map[string]models.User),
	}
}

// Ledger

func (s *Store) IncrementDay(ctx context.Context, day, currency string, delta models.LedgerDelta, eventKey string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.markApplied(eventKey, day) {
		return false, nil
	}
	delta.Apply(s.ensureDay(day, currency))
	return true, nil
}

func (s *Store) SetFlatAdsRevenue(ctx context.Context, day, currency string, amount decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.ensureDay(day, currency)
	row.FlatAdsRevenue = amount
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) SetDerived(ctx context.Context, day, currency string, m models.DerivedMetrics) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.ensureDay(day, currency)
	m.Apply(row)
	row.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) GetDay(ctx context.Context, day string) (*models.DailyLedgerRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.days[day]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (s *Store) ListDays(ctx context.Context, fromDay, toDay string) ([]models.DailyLedgerRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []models.DailyLedgerRow
	for day, row := range s.days {
		if day >= fromDay && day <= toDay {
			rows = append(rows, *row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Day < rows[j].Day })
	return rows, nil
}

// Ad events

func (s *Store) RecordAdEvent(ctx context.Context, rec repository.AdEventRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := rec.Event
	campaign, ok := s.campaigns[ev.CampaignID]
	if !ok {
		return false, repository.ErrNotFound
	}
	ad, ok := s.ads[ev.AdID]
	if !ok {
		return false, repository.ErrNotFound
	}
	if !s.markApplied(rec.EventKey, ev.Day) {
		return false, nil
	}

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.CreatedAt = time.Now().UTC()
	s.adEvents = append(s.adEvents, ev)

	delta := models.LedgerDelta{AdsRevenueCounter: rec.Revenue}
	if ev.Type == models.AdEventClick {
		campaign.ClickCount += ev.Count
		ad.ClickCount += ev.Count
		delta.Clicks = ev.Count
	} else {
		campaign.ImpressionCount += ev.Count
		ad.ImpressionCount += ev.Count
		delta.Impressions = ev.Count
	}
	campaign.SpendAmount = campaign.SpendAmount.Add(rec.Revenue)
	delta.Apply(s.ensureDay(ev.Day, rec.Currency))
	return true, nil
}

func (s *Store) AggregateAdEvents(ctx context.Context, adID, fromDay, toDay string) ([]models.AdDailyStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDay := make(map[string]*models.AdDailyStat)
	for _, ev := range s.adEvents {
		if ev.AdID != adID || ev.Day < fromDay || ev.Day > toDay {
			continue
		}
		st, ok := byDay[ev.Day]
		if !ok {
			st = &models.AdDailyStat{Day: ev.Day}
			byDay[ev.Day] = st
		}
		if ev.Type == models.AdEventClick {
			st.Clicks += ev.Count
		} else {
			st.Impressions += ev.Count
		}
	}

	stats := make([]models.AdDailyStat, 0, len(byDay))
	for _, st := range byDay {
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Day < stats[j].Day })
	return stats, nil
}

// Ads and campaigns

func (s *Store) GetAd(ctx context.Context, id string) (*models.Ad, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ad, ok := s.ads[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *ad
	return &cp, nil
}

func (s *Store) ListEligibleAds(ctx context.Context, placement models.AdPlacement, now time.Time, excludeIDs []string, limit int) ([]models.Ad, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	excluded := make(map[string]struct{}, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = struct{}{}
	}

	var ads []models.Ad
	for _, ad := range s.ads {
		if _, skip := excluded[ad.ID]; skip || !ad.IsEligible(placement, now) {
			continue
		}
		ads = append(ads, *ad)
	}
	sort.Slice(ads, func(i, j int) bool {
		if ads[i].Priority != ads[j].Priority {
			return ads[i].Priority > ads[j].Priority
		}
		return ads[i].CreatedAt.After(ads[j].CreatedAt)
	})
	if limit > 0 && len(ads) > limit {
		ads = ads[:limit]
	}
	return ads, nil
}

func (s *Store) CountLiveAds(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, ad := range s.ads {
		if ad.IsEligible(ad.Placement, now) {
			n++
		}
	}
	return n, nil
}

func (s *Store) IncrementAdCounter(ctx context.Context, id string, eventType models.AdEventType, count int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ad, ok := s.ads[id]
	if !ok {
		return repository.ErrNotFound
	}
	if eventType == models.AdEventClick {
		ad.ClickCount += count
	} else {
		ad.ImpressionCount += count
	}
	return nil
}

func (s *Store) GetCampaign(ctx context.Context, id string) (*models.AdCampaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.campaigns[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListFlatCampaigns(ctx context.Context) ([]models.AdCampaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.AdCampaign
	for _, c := range s.campaigns {
		if c.PricingModel != models.PricingFlat || c.StartAt == nil || c.EndAt == nil {
			continue
		}
		if c.Status != models.CampaignActive && c.Status != models.CampaignEnded {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) FindActiveCampaignForAd(ctx context.Context, adID string, at time.Time) (*models.AdCampaign, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *models.AdCampaign
	for _, c := range s.campaigns {
		if c.AdID != adID || c.Status != models.CampaignActive {
			continue
		}
		if (c.StartAt != nil && c.StartAt.After(at)) || (c.EndAt != nil && c.EndAt.Before(at)) {
			continue
		}
		if found == nil || c.CreatedAt.After(found.CreatedAt) {
			found = c
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	cp := *found
	return &cp, nil
}

// Billing

func (s *Store) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &inv, nil
}

func (s *Store) CountPaidInvoices(ctx context.Context, from, to time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, inv := range s.invoices {
		if inv.Status == models.InvoicePaid && inv.PaidAt != nil && within(*inv.PaidAt, from, to) {
			n++
		}
	}
	return n, nil
}

func (s *Store) SumPaidInvoices(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, inv := range s.invoices {
		if inv.Status != models.InvoicePaid || inv.PaidAt == nil || !within(*inv.PaidAt, from, to) {
			continue
		}
		amount := inv.NetAmount
		if amount.IsZero() {
			amount = inv.GrossAmount
		}
		total = total.Add(amount)
	}
	return total, nil
}

func (s *Store) SumApprovedRefunds(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, rf := range s.refunds {
		if rf.Status == models.RefundApproved && rf.RefundedAt != nil && within(*rf.RefundedAt, from, to) {
			total = total.Add(rf.Amount)
		}
	}
	return total, nil
}

func (s *Store) CountRefundsByStatus(ctx context.Context, status models.RefundStatus) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, rf := range s.refunds {
		if rf.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *Store) GetRefund(ctx context.Context, id string) (*models.Refund, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rf, ok := s.refunds[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rf, nil
}

func (s *Store) CountActiveAt(ctx context.Context, at time.Time) (int64, error) {
	subs, err := s.ListActiveAt(ctx, at)
	return int64(len(subs)), err
}

func (s *Store) CountStartedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, sub := range s.subscriptions {
		if within(sub.StartAt, from, to) {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountCanceledBetween(ctx context.Context, from, to time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, sub := range s.subscriptions {
		if sub.Status != models.SubscriptionCanceled && sub.Status != models.SubscriptionExpired {
			continue
		}
		if sub.CanceledAt != nil && within(*sub.CanceledAt, from, to) {
			n++
		}
	}
	return n, nil
}

func (s *Store) ListActiveAt(ctx context.Context, at time.Time) ([]models.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Subscription
	for _, sub := range s.subscriptions {
		if sub.ActiveAt(at) {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *Store) HasActiveSubscription(ctx context.Context, userID string, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, sub := range s.subscriptions {
		if sub.UserID == userID && sub.ActiveAt(at) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListPlansByIDs(ctx context.Context, ids []string) ([]models.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Plan
	for _, id := range ids {
		if p, ok := s.plans[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

// Sessions and social graph

func (s *Store) CountDistinctUsers(ctx context.Context, from, to time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, sess := range s.sessions {
		if within(sess.LastHeartbeatAt, from, to) {
			seen[sess.UserID] = struct{}{}
		}
	}
	return int64(len(seen)), nil
}

func (s *Store) ListAcceptedFriendIDs(ctx context.Context, userID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for _, f := range s.friendships {
		if f.Status == models.FriendshipAccepted && (f.UserA == userID || f.UserB == userID) {
			ids = append(ids, f.Other(userID))
		}
	}
	return ids, nil
}

func (s *Store) ListFeedPosts(ctx context.Context, authorIDs []string, before *time.Time, limit int) ([]models.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	authors := make(map[string]struct{}, len(authorIDs))
	for _, id := range authorIDs {
		authors[id] = struct{}{}
	}

	var posts []models.Post
	for _, p := range s.posts {
		if _, ok := authors[p.AuthorID]; !ok || !p.VisibleInFeed() {
			continue
		}
		if before != nil && !p.CreatedAt.Before(*before) {
			continue
		}
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	if limit > 0 && len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

// caller holds s.mu
func (s *Store) markApplied(key, day string) bool {
	if key == "" {
		return true
	}
	if _, dup := s.applied[key]; dup {
		return false
	}
	s.applied[key] = models.AppliedEvent{EventID: key, Day: day, AppliedAt: time.Now().UTC()}
	return true
}

// caller holds s.mu
func (s *Store) ensureDay(day, currency string) *models.DailyLedgerRow {
	row, ok := s.days[day]
	if !ok {
		now := time.Now().UTC()
		row = &models.DailyLedgerRow{
			ID:        uuid.NewString(),
			Day:       day,
			Currency:  currency,
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.days[day] = row
	}
	return row
}

func within(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
