package main

import (
	"fmt"
	"strconv"

	"github.com/docker/go-units"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"dockhand/internal/docker"
)

func newSystemCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newPingCommand(ctx),
		newVersionCommand(ctx),
		newInfoCommand(ctx),
	}
}

func newPingCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the daemon answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *docker.Client) error {
				pong, err := client.Ping(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]string{
						"endpoint": client.Transport().String(),
						"response": pong,
					})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s %s\n", colorize(shouldColorize(out), pong, text.FgGreen), client.Transport())
				return nil
			})
		},
	}
}

func newVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the daemon version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *docker.Client) error {
				version, err := client.Version(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, version)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues([][2]string{
					{"Version", version.Version},
					{"API version", version.APIVersion},
					{"Minimum API", version.MinAPIVersion},
					{"Go version", version.GoVersion},
					{"Git commit", version.GitCommit},
					{"OS/Arch", version.Os + "/" + version.Arch},
					{"Kernel", version.KernelVersion},
					{"Built", version.BuildTime},
				}))
				return nil
			})
		},
	}
}

func newInfoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show daemon-wide information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(cmd, func(client *docker.Client) error {
				info, err := client.Info(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, info)
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderKeyValues([][2]string{
					{"Name", info.Name},
					{"Server version", info.ServerVersion},
					{"Operating system", info.OperatingSystem},
					{"OS type", info.OSType},
					{"Architecture", info.Architecture},
					{"Kernel", info.KernelVersion},
					{"Storage driver", info.Driver},
					{"Root dir", info.DockerRootDir},
					{"CPUs", strconv.Itoa(info.NCPU)},
					{"Memory", units.BytesSize(float64(info.MemTotal))},
					{"Containers", fmt.Sprintf("%d (%d running, %d paused, %d stopped)",
						info.Containers, info.ContainersRunning, info.ContainersPaused, info.ContainersStopped)},
					{"Images", strconv.Itoa(info.Images)},
				}))
				return nil
			})
		},
	}
}
