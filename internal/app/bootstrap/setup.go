// Package bootstrap prepares the process and assembles the components every
// command needs.
package bootstrap

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"asnlookup/internal/config"
	"asnlookup/internal/support"
)

// Setup loads .env, configures logging and reads the settings file. The
// returned closer releases the log file.
func Setup() (io.Closer, error) {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found. Falling back to system environment variables.")
	}

	closer := support.ConfigureLogging()

	if err := config.ReadSettings(); err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("bootstrap: read settings: %w", err)
	}
	return closer, nil
}
