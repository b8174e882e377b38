package pipeline

// Step names used in logs and wrapped errors.
const (
	StepLoad            = "load"
	StepNormalize       = "normalize"
	StepCategorize      = "categorize"
	StepAnalyze         = "analyze"
	StepDetectAnomalies = "detect_anomalies"
	StepExport          = "export"
)
