package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// Default pagination
	DefaultPage            = 1
	DefaultTicketPageSize  = 20
	DefaultMessagePageSize = 50
	MaxPageSize            = 100

	// Local store table names
	TableCustomers = "customers"
	TableUsers     = "users"
	TableProfiles  = "profiles"
	TableTickets   = "tickets"
	TableMessages  = "messages"
	TableSyncLogs  = "sync_logs"
)
