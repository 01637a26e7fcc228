package config

const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./library.db"

	// DefaultNotifierSchedule runs the due-soon scan once a day
	DefaultNotifierSchedule = "@every 24h"
)
