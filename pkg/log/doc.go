/*
Package log provides structured logging for l3check using zerolog.

A single global Logger is configured once by Init and then specialized with
child loggers that carry the fields of the current unit of work:

	logger := log.WithComponent("inspector")
	logger = log.WithContext(logger, "neutron_agents_1")
	logger = log.WithRouterID(logger, "8c3c...")
	logger.Warn().Int("missing", 1).Msg("floating ips missing from gateway interface")

Output goes to stderr by default. The inspect subcommand relies on this:
its stdout carries the JSON report back to the dispatcher and must not
contain log lines.

# Formats

JSON output, one object per line:

	{"level":"info","component":"check","run_id":"...","time":"...","message":"check run complete"}

Console output for interactive use:

	10:30AM INF check run complete component=check run_id=...

# Levels

debug, info, warn and error. ParseLevel maps unknown names to info.
*/
package log
