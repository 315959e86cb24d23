// Package config loads and validates the gateway's YAML configuration.
//
// Configuration files support environment variable substitution with
// ${VAR} and ${VAR:-default} syntax and human-readable durations like
// "30s". Routes are fixed at startup: the route table is built once
// from the routes section and is not re-read while the gateway runs.
package config
