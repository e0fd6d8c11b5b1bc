// Package config loads, normalizes, and validates pipeline configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment fallbacks such as ERC_DATA_ROOT. The Config type centralizes
// every knob the merger, the dataset accessors, the batch preprocessor and the
// CLI need, so corpus roots, cache locations and encoder endpoints are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
