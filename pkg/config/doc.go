// Package config loads l3check configuration from a YAML file, an optional
// .env file and L3CHECK_* environment variables, in that order of precedence.
package config
