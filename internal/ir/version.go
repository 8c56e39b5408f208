package ir

// Version constants for the schema format and module.
const (
	// SchemaVersion is the descriptor schema version accepted by the compiler.
	SchemaVersion = "1"

	// Version is the qcase module version.
	Version = "0.1.0"
)
