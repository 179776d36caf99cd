// analytics_client.go wraps the posthog client so callers never have to check
// whether analytics is configured.
package utils

import (
	"log/slog"

	"github.com/posthog/posthog-go"
)

// AnalyticsClient wraps posthog.Client and degrades to a no-op when no API
// key is configured.
type AnalyticsClient struct {
	posthogClient posthog.Client
	logger        *slog.Logger
}

// InitializeAnalyticsClient builds the wrapper. An empty API key yields a
// client whose Enqueue is a no-op.
func InitializeAnalyticsClient(apiKey string, logger *slog.Logger) *AnalyticsClient {
	if apiKey == "" {
		logger.Warn("Posthog API key is empty, analytics events will be dropped.")
		return &AnalyticsClient{logger: logger}
	}
	client, err := posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: "https://eu.i.posthog.com"})
	if err != nil {
		logger.Warn("Failed to initialize Posthog client, analytics events will be dropped.", slog.String("error", err.Error()))
		return &AnalyticsClient{logger: logger}
	}
	return &AnalyticsClient{posthogClient: client, logger: logger}
}

// IsInitialized reports whether a real posthog client is backing the wrapper.
func (c *AnalyticsClient) IsInitialized() bool {
	return c != nil && c.posthogClient != nil
}

// Enqueue sends an event for the given account. Errors are logged, never
// surfaced: analytics must not affect request outcomes.
func (c *AnalyticsClient) Enqueue(accountID, eventName string, properties map[string]any) {
	if !c.IsInitialized() {
		return
	}
	props := posthog.NewProperties()
	for k, v := range properties {
		props.Set(k, v)
	}
	err := c.posthogClient.Enqueue(posthog.Capture{
		DistinctId: accountID,
		Event:      eventName,
		Properties: props,
	})
	if err != nil {
		c.logger.Warn("Failed to enqueue analytics event", slog.String("event", eventName), slog.String("error", err.Error()))
	}
}

// Close flushes and shuts down the underlying client.
func (c *AnalyticsClient) Close() {
	if c.IsInitialized() {
		_ = c.posthogClient.Close()
	}
}
