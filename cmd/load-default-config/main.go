// load-default-config removes every stored configuration override so that all
// sections fall back to the built-in defaults. Removals are recorded in the
// configuration history with a "seed" reason.
//
// Usage (from backend directory):
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/load-default-config
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gainwell-gia/s2t_backend/config"
	"github.com/gainwell-gia/s2t_backend/models"
)

func main() {
	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	if err := models.ResetConfigurationDefaults(context.Background(), "seeded default configuration"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to reset configuration: %v\n", err)
		os.Exit(1)
	}

	full, err := models.FullConfiguration(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read configuration back: %v\n", err)
		os.Exit(1)
	}
	for section, values := range full {
		fmt.Printf("%s: %d keys at defaults\n", section, len(values))
	}
	fmt.Println("Configuration reset to defaults")
}
