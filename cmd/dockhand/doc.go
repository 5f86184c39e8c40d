// Command dockhand is a small Docker daemon client.
//
// It resolves the daemon address the way the docker CLI does (DOCKER_HOST,
// DOCKER_CERT_PATH, DOCKER_TLS_VERIFY, then the config file) and offers
// ping, version, info, events, attach, a local event journal and a doctor
// command that explains why a daemon cannot be reached.
package main
