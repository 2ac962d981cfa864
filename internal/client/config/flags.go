package config

import (
	"flag"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"

	"github.com/dmitrijs2005/medkeeper/internal/flagx"
)

// loadFlags overlays k with the flags present in args.
//
// Supported flags (short forms):
//
//	-a string   backend base URL
//	-i int      subscription poll interval in seconds
//	-l string   display language
//
// args are filtered with flagx.FilterArgs first, so flags owned by other
// components do not fail parsing. Only flags actually given are applied.
func loadFlags(k *koanf.Koanf, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-i", "-l"})

	fs := flag.NewFlagSet("medkeeper", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	serverURL := fs.String("a", "", "backend base URL")
	interval := fs.String("i", "", "subscription status poll interval (in seconds)")
	lang := fs.String("l", "", "display language (en or ar)")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	set := map[string]any{}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "a":
			set["server.url"] = *serverURL
		case "l":
			set["language"] = *lang
		}
	})
	if *interval != "" {
		n, err := strconv.Atoi(*interval)
		if err != nil {
			return fmt.Errorf("parse flags: -i must be a number of seconds: %w", err)
		}
		set["subscription.poll_interval"] = (time.Duration(n) * time.Second).String()
	}
	if len(set) == 0 {
		return nil
	}
	if err := k.Load(confmap.Provider(set, "."), nil); err != nil {
		return fmt.Errorf("failed to load flags: %w", err)
	}
	return nil
}
