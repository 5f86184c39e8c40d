// Package config loads, normalizes, and validates dockhand configuration.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and applies the Docker environment signals DOCKER_HOST,
// DOCKER_CERT_PATH and DOCKER_TLS_VERIFY exactly once, at load time. The
// transport layer never consults the environment itself; it receives the
// resolved values through TransportOptions.
package config
