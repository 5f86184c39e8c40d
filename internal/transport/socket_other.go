//go:build !unix

package transport

const unixSocketsSupported = false
