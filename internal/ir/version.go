package ir

// Version constants recorded in the run log.
const (
	// TraceVersion is the encoding version of recorded events and statements.
	TraceVersion = "1"

	// EngineVersion is the bpsync engine version.
	EngineVersion = "0.1.0"
)
