// Package config loads service settings from defaults, an optional TOML file,
// .env files, and environment variables.
package config
