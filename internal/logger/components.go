package logger

// Component names used with For.
const (
	ComponentService      = "Service"
	ComponentOrchestrator = "Orchestrator"
	ComponentWatchdog     = "Watchdog"
	ComponentTask         = "Task"
	ComponentAPI          = "API"
	ComponentCLI          = "CLI"
	ComponentExport       = "Export"
	ComponentConfig       = "Config"
	ComponentImport       = "Import"
	ComponentProject      = "Project"
)
