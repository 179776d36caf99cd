package repositories

// RepositoryProvider bundles all repository implementations for dependency
// injection into the service container.
type RepositoryProvider struct {
	LedgerRepo       LedgerRepositoryFacade
	SubscriptionRepo SubscriptionRepository
}
