package dto

import (
	"time"

	"github.com/openclaw/billing/internal/core/domain"
)

// SubscriptionResponse defines the data returned for an account's subscription.
type SubscriptionResponse struct {
	Tier               string    `json:"tier"`
	Status             string    `json:"status"`
	CurrentPeriodStart time.Time `json:"currentPeriodStart,omitzero"`
	CurrentPeriodEnd   time.Time `json:"currentPeriodEnd,omitzero"`
	CancelAtPeriodEnd  bool      `json:"cancelAtPeriodEnd"`
}

// ToSubscriptionResponse converts a domain.Subscription to its DTO.
func ToSubscriptionResponse(sub *domain.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		Tier:               string(sub.Tier),
		Status:             string(sub.Status),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
	}
}
