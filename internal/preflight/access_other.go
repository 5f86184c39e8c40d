//go:build !unix

package preflight

import (
	"fmt"
	"os"
)

// CheckSocketAccess always fails: this platform has no Unix socket
// transport.
func CheckSocketAccess(path string) Result {
	return Result{Name: "Docker socket", Detail: fmt.Sprintf("%s (error: unix sockets are not supported on this platform)", path)}
}

// dirWritable creates and removes a scratch file in dir.
func dirWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".dockhand-preflight-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
