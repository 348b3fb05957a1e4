package config

import (
	"flag"
	"os"

	"github.com/kyan-si/kyan/internal/flagx"
)

// parseFlags overlays selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   PostgreSQL DSN
//	-b string   base directory for local state
//	-k string   backup directory for original uploads ("" disables)
//	-m string   main announce URL
//	-t string   tracker API URL
//	-s string   external site URL (used in torrent comment links)
//
// Args are filtered through flagx so the JSON -c/-config flags and any
// flags owned by other components are ignored here.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-b", "-k", "-m", "-t", "-s"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.BaseDir, "b", config.BaseDir, "base directory")
	fs.StringVar(&config.BackupDir, "k", config.BackupDir, "backup directory for original uploads")
	fs.StringVar(&config.MainAnnounceURL, "m", config.MainAnnounceURL, "main announce URL")
	fs.StringVar(&config.TrackerAPIURL, "t", config.TrackerAPIURL, "tracker API URL")
	fs.StringVar(&config.SiteURL, "s", config.SiteURL, "external site URL")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
