// Package config loads runtime settings for threads, logging and metrics from
// the environment.
//
// Values come from process environment variables prefixed with THREADOBJECT_,
// falling back to `.env` files read with github.com/joho/godotenv, and are
// parsed into Config by github.com/caarlos0/env/v11. Variables already set in
// the process environment always win over file values, and earlier files win
// over later ones. Files are read, never exported into the process
// environment.
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	logger, err := cfg.NewLogger(os.Stderr)
package config
