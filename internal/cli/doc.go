// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It maps
// the plan, worker and serve subcommands and their flags onto app.Config,
// taking defaults from PLANNER_* environment variables.
package cli
