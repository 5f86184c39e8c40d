package docker

import (
	"context"
	"strings"
)

// Version is the subset of GET /version dockhand reports.
type Version struct {
	Version       string `json:"Version"`
	APIVersion    string `json:"ApiVersion"`
	MinAPIVersion string `json:"MinAPIVersion,omitempty"`
	GitCommit     string `json:"GitCommit"`
	GoVersion     string `json:"GoVersion"`
	Os            string `json:"Os"`
	Arch          string `json:"Arch"`
	KernelVersion string `json:"KernelVersion,omitempty"`
	BuildTime     string `json:"BuildTime,omitempty"`
}

// Info is the subset of GET /info dockhand reports.
type Info struct {
	ID                string `json:"ID"`
	Name              string `json:"Name"`
	ServerVersion     string `json:"ServerVersion"`
	OperatingSystem   string `json:"OperatingSystem"`
	OSType            string `json:"OSType"`
	Architecture      string `json:"Architecture"`
	KernelVersion     string `json:"KernelVersion"`
	Driver            string `json:"Driver"`
	DockerRootDir     string `json:"DockerRootDir"`
	NCPU              int    `json:"NCPU"`
	MemTotal          int64  `json:"MemTotal"`
	Containers        int    `json:"Containers"`
	ContainersRunning int    `json:"ContainersRunning"`
	ContainersPaused  int    `json:"ContainersPaused"`
	ContainersStopped int    `json:"ContainersStopped"`
	Images            int    `json:"Images"`
}

// Ping checks that the daemon answers. It returns the body, normally "OK".
func (c *Client) Ping(ctx context.Context) (string, error) {
	body, err := c.Get(ctx, "/_ping")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(body), nil
}

func (c *Client) Version(ctx context.Context) (Version, error) {
	return GetJSON[Version](ctx, c, "/version")
}

func (c *Client) Info(ctx context.Context) (Info, error) {
	return GetJSON[Info](ctx, c, "/info")
}
