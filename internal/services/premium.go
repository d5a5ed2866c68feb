package services

import (
	"context"
	"time"

	"monetization-ledger/internal/models"
	"monetization-ledger/internal/repository"

	"github.com/sirupsen/logrus"
)

// PremiumResolver decides whether a feed request is ad-free.
type PremiumResolver struct {
	subs   repository.SubscriptionRepository
	logger *logrus.Logger
}

func NewPremiumResolver(subs repository.SubscriptionRepository, logger *logrus.Logger) *PremiumResolver {
	return &PremiumResolver{subs: subs, logger: logger}
}

// IsPremium is true while the user's premium window is open or the user
// holds a trialing or active subscription that has not lapsed. A failed
// subscription lookup counts as not premium.
func (r *PremiumResolver) IsPremium(ctx context.Context, user *models.User, now time.Time) bool {
	if user == nil {
		return false
	}
	if !IsEligibleForAds(user, now) {
		return true
	}

	active, err := r.subs.HasActiveSubscription(ctx, user.ID, now)
	if err != nil {
		r.logger.WithError(err).WithField("user_id", user.ID).Warn("Subscription lookup failed, treating user as free")
		return false
	}
	return active
}
