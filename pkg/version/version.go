package version

var (
	Version    = "dev"
	CommitHash = "unknown"
	BuildDate  = "unknown"
)
