package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/librarian/internal/flagx"
)

// ValueFlags lists the flags that take a value; the CLI skips them when it
// looks for the command name.
var ValueFlags = []string{"-a", "-t", "-l", "-at", "-rt", "-c", "-config"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   address and port of the backend server (default from Config)
//	-t int      request timeout in seconds (default from Config)
//	-l string   holder login
//	-at string  access token
//	-rt string  refresh token
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with the command arguments.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-l", "-at", "-rt"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.Login, "l", cfg.Login, "holder login")
	fs.StringVar(&cfg.AccessToken, "at", cfg.AccessToken, "access token")
	fs.StringVar(&cfg.RefreshToken, "rt", cfg.RefreshToken, "refresh token")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
