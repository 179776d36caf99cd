package domain

// ResourceType identifies a metered unit of resource consumption.
type ResourceType string

const (
	ResourceWorkflowExecution ResourceType = "workflow_execution"
	ResourceNodeExecution     ResourceType = "node_execution"
	ResourceAPICallOpenAI     ResourceType = "api_call_openai"
	ResourceAPICallAnthropic  ResourceType = "api_call_anthropic"
	ResourceAPICallGoogle     ResourceType = "api_call_google"
	ResourceStorageMB         ResourceType = "storage_mb"
)
