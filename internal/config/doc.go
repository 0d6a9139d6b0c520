// Package config loads, normalizes, and validates postroll configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// POSTROLL_DATABASE_URL and the S3 credential variables. A .env file in the
// working directory is loaded before the TOML so secrets can live outside the
// config file.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical enum values, and clear validation errors.
package config
