package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/phonebind/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
//	-d string   data directory
//	-l string   log level
//	-t int      HTTP timeout in seconds
//
// args is filtered with flagx.FilterArgs first, so -c and unknown flags do
// not trip the parser.
func parseFlags(cfg *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-d", "-l", "-t"})

	fs := flag.NewFlagSet("phonebind", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")
	timeout := fs.Int("t", int(cfg.HTTPTimeout.Seconds()), "HTTP timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// -t was not given: keep sub-second precision from earlier sources.
	seen := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "t" {
			seen = true
		}
	})
	if seen {
		cfg.HTTPTimeout = time.Duration(*timeout) * time.Second
	}
	return nil
}
