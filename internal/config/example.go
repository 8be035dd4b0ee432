package config

// ExampleConfig returns an example configuration showing all available options.
func ExampleConfig() string {
	return `# todos configuration file
# Values can be overridden by environment variables or CLI flags

# Snapshot file (relative to the working directory)
data_file = "todos.json"

# Start ids from 1 again once every task has been deleted
reset_ids_when_empty = false

# Address for "todos serve"
listen_addr = "127.0.0.1:8080"

# Logging: debug, info, warn, error
log_level = "warn"

# Log format: text, json, logfmt
log_format = "text"
log_timestamps = false
log_caller = false
`
}
