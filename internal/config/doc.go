// Package config loads, normalizes, and validates settingsd configuration.
//
// It supplies repository defaults for the session bus names the helper talks
// to, expands user paths (including tilde shortcuts), and reads an optional
// TOML file from $XDG_CONFIG_HOME/settingsd/config.toml. A missing file is
// not an error; the helper must start on a stock desktop without any setup.
//
// Always obtain settings through this package so downstream code receives
// trimmed bus names, absolute paths and clear validation errors.
package config
