package constants

import "time"

const (
	ShutdownTimeout = 5 * time.Second
	LoadTimeout     = 2 * time.Minute
	RequestTimeout  = 30 * time.Second
)

const (
	DefaultDataPath     = "online_gaming_behavior_dataset.csv"
	DefaultServerPort   = "8080"
	DefaultLogLevel     = "info"
	DefaultRateLimit    = 20
	DefaultScatterLimit = 2000
	DefaultCORSOrigins  = "*"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
)
