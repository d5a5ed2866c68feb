package memory

import (
	"time"

	"monetization-ledger/internal/models"

	"github.com/google/uuid"
)

// The Put helpers insert or replace records and return the stored id.

func (s *Store) PutAd(ad models.Ad) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ad.ID == "" {
		ad.ID = uuid.NewString()
	}
	if ad.CreatedAt.IsZero() {
		ad.CreatedAt = time.Now().UTC()
	}
	s.ads[ad.ID] = &ad
	return ad.ID
}

func (s *Store) PutCampaign(c models.AdCampaign) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	s.campaigns[c.ID] = &c
	return c.ID
}

func (s *Store) PutInvoice(inv models.Invoice) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	s.invoices[inv.ID] = inv
	return inv.ID
}

func (s *Store) PutRefund(rf models.Refund) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rf.ID == "" {
		rf.ID = uuid.NewString()
	}
	s.refunds[rf.ID] = rf
	return rf.ID
}

func (s *Store) PutSubscription(sub models.Subscription) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	s.subscriptions[sub.ID] = sub
	return sub.ID
}

func (s *Store) PutPlan(p models.Plan) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.plans[p.ID] = p
	return p.ID
}

func (s *Store) PutSession(sess models.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.ID == "" {
		sess.ID = uuid.NewString()
	}
	s.sessions = append(s.sessions, sess)
}

func (s *Store) PutFriendship(f models.Friendship) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	s.friendships = append(s.friendships, f)
}

func (s *Store) PutPost(p models.Post) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.posts[p.ID] = p
	return p.ID
}

func (s *Store) PutUser(u models.User) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[u.ID] = u
	return u.ID
}

// AdEvents returns a copy of the audit log.
func (s *Store) AdEvents() []models.AdEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AdEvent(nil), s.adEvents...)
}
