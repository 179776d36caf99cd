package services

import (
	portsrepo "github.com/openclaw/billing/internal/core/ports/repositories"
	portssvc "github.com/openclaw/billing/internal/core/ports/services"
	"github.com/openclaw/billing/internal/platform/config"
	"github.com/openclaw/billing/internal/utils"
)

// NewServiceContainer wires the application services. The metering and payment
// services write through the ledger service so every balance mutation shares
// one code path.
func NewServiceContainer(cfg *config.Config, repos *portsrepo.RepositoryProvider, analytics *utils.AnalyticsClient) *portssvc.ServiceContainer {
	ledgerSvc := NewLedgerService(repos.LedgerRepo)
	return &portssvc.ServiceContainer{
		Ledger:        ledgerSvc,
		Metering:      NewMeteringService(ledgerSvc),
		PaymentEvents: NewPaymentEventService(cfg, ledgerSvc, repos.SubscriptionRepo, analytics),
		Purchase:      NewPurchaseService(cfg),
	}
}
