// cmd/gyan/main.go
package main

import (
	"github.com/joho/godotenv"

	cmd "github.com/mwiater/gyan/internal/cli"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var (
	loadEnv        = func() error { return godotenv.Load() }
	setVersionInfo = cmd.SetVersionInfo
	executeCmd     = cmd.Execute
)

// main loads an optional .env file so GYAN_* variables reach the config
// layer, then hands off to the cobra root command.
func main() {
	// A missing .env is normal; variables may come from the environment.
	_ = loadEnv()
	setVersionInfo(version, commit, buildDate)
	executeCmd()
}
