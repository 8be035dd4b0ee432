package config

import "flag"

// flagFields maps global flag names to config field names.
var flagFields = map[string]string{
	"data":           "data_file",
	"reset-ids":      "reset_ids_when_empty",
	"addr":           "listen_addr",
	"log-level":      "log_level",
	"log-format":     "log_format",
	"log-timestamps": "log_timestamps",
	"log-caller":     "log_caller",
}

// parseFlags defines the global flags on fs and parses args into cfg.
// Flag defaults are the values loaded so far, so unset flags change nothing.
func parseFlags(cfg *Config, fs *flag.FlagSet, args []string, sources map[string]ConfigSource) error {
	if fs == nil {
		fs = flag.NewFlagSet("todos", flag.ContinueOnError)
	}

	fs.StringVar(&cfg.DataFile, "data", cfg.DataFile, "Path to the task snapshot file")
	fs.BoolVar(&cfg.ResetIDsWhenEmpty, "reset-ids", cfg.ResetIDsWhenEmpty, "Restart ids at 1 once every task is deleted")
	fs.StringVar(&cfg.ListenAddr, "addr", cfg.ListenAddr, "Listen address for the HTTP API")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json, logfmt)")
	fs.BoolVar(&cfg.LogTimestamps, "log-timestamps", cfg.LogTimestamps, "Show timestamps in logs")
	fs.BoolVar(&cfg.LogCaller, "log-caller", cfg.LogCaller, "Show caller location in logs")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if sources != nil {
		fs.Visit(func(f *flag.Flag) {
			if field, ok := flagFields[f.Name]; ok {
				sources[field] = SourceFlag
			}
		})
	}
	return nil
}
