package config

import "flag"

// flagSet holds the raw command-line flag values before precedence
// resolution. Flags left at "" fall through to env vars and defaults.
type flagSet struct {
	fs *flag.FlagSet

	env      string
	logLevel string
	envFile  string

	username string
	queries  string

	dataDir  string
	cacheTTL string

	port         string
	readTimeout  string
	writeTimeout string
	idleTimeout  string
	corsOrigins  string
}

func newFlagSet() *flagSet {
	f := &flagSet{
		fs: flag.NewFlagSet("gameshelf", flag.ContinueOnError),
	}

	f.fs.StringVar(&f.env, "env", "", "Environment (development, staging, production)")
	f.fs.StringVar(&f.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	f.fs.StringVar(&f.envFile, "env-file", ".env", "Path to .env file")

	f.fs.StringVar(&f.username, "username", "", "BoardGameGeek username whose collection is synced")
	f.fs.StringVar(&f.queries, "bgg-queries", "", "Comma-separated collection query strings (default: own=1)")

	f.fs.StringVar(&f.dataDir, "data-dir", "", "Data directory for database, cache and search index")
	f.fs.StringVar(&f.cacheTTL, "cache-ttl", "", "Upstream response cache TTL (default: 12h)")

	f.fs.StringVar(&f.port, "port", "", "Server port (default: 8080)")
	f.fs.StringVar(&f.readTimeout, "read-timeout", "", "HTTP read timeout (default: 15s)")
	f.fs.StringVar(&f.writeTimeout, "write-timeout", "", "HTTP write timeout (default: 15s)")
	f.fs.StringVar(&f.idleTimeout, "idle-timeout", "", "HTTP idle timeout (default: 60s)")
	f.fs.StringVar(&f.corsOrigins, "cors-origins", "", "Comma-separated allowed CORS origins (default: *)")

	return f
}

func (f *flagSet) parse(args []string) error {
	return f.fs.Parse(args)
}
