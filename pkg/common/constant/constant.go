package constant

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	// Ledger retention high-water mark: only the most recent entries are kept.
	DefaultLedgerRetention = 5000
)
