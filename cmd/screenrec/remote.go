package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jvlcode/screen-recorder/internal/daemon"
)

const dialTimeout = 2 * time.Second

// dial connects to the running daemon.
func (c *cli) dial() (*daemon.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	client, err := daemon.Connect(ctx, c.cfg.SocketPath)
	if err != nil {
		return nil, fmt.Errorf("daemon not running at %s (start it with \"screenrec serve\"): %w", c.cfg.SocketPath, err)
	}
	return client, nil
}

// withClient runs fn against a fresh daemon connection.
func (c *cli) withClient(fn func(*daemon.Client) error) error {
	client, err := c.dial()
	if err != nil {
		return err
	}
	defer client.Close()
	return fn(client)
}

func (c *cli) startCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start a new segment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(func(client *daemon.Client) error {
				file, err := client.Start()
				if err != nil {
					return err
				}
				c.out.RecordingStarted(file)
				return nil
			})
		},
	}
}

func (c *cli) stopCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the current segment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(func(client *daemon.Client) error {
				status, err := client.Status()
				if err != nil {
					return err
				}
				file, err := client.Stop()
				if err != nil {
					return err
				}
				var d time.Duration
				if status.StartedAt != nil {
					d = time.Since(*status.StartedAt)
				}
				c.out.RecordingStopped(file, d)
				return nil
			})
		},
	}
}

func (c *cli) trimCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "trim <file> <start-seconds> <end-seconds>",
		Short: "Keep only part of a segment",
		Long: `Re-encode a segment keeping the range between start and end, drawing
click markers recorded during the take. The segment is replaced in place.`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := parseSeconds("start", args[1])
			if err != nil {
				return err
			}
			end, err := parseSeconds("end", args[2])
			if err != nil {
				return err
			}
			path, err := segmentArg(args[0])
			if err != nil {
				return err
			}
			return c.withClient(func(client *daemon.Client) error {
				file, err := client.Trim(path, start, end)
				if err != nil {
					return err
				}
				c.out.Trimmed(file, start, end)
				return nil
			})
		},
	}
}

func (c *cli) discardCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "discard <file>",
		Short: "Delete a segment and its click data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := segmentArg(args[0])
			if err != nil {
				return err
			}
			return c.withClient(func(client *daemon.Client) error {
				file, err := client.Discard(path)
				if err != nil {
					return err
				}
				c.out.Discarded(file)
				return nil
			})
		},
	}
}

func (c *cli) finalizeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "finalize",
		Short: "Join pending segments into the next compilation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(func(client *daemon.Client) error {
				comp, err := client.Finalize()
				if err != nil {
					return err
				}
				c.out.Finalized(comp)
				return nil
			})
		},
	}
}

func (c *cli) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the recording state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(func(client *daemon.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				c.out.Status(resp.State, resp.File, resp.StartedAt, resp.Pid, time.Now())
				return nil
			})
		},
	}
}

func (c *cli) segmentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "segments",
		Short: "List segments waiting to be joined",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(func(client *daemon.Client) error {
				segs, err := client.Segments()
				if err != nil {
					return err
				}
				c.out.SegmentList(segs)
				return nil
			})
		},
	}
}

func (c *cli) compilationsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "compilations",
		Short: "List finished compilations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(func(client *daemon.Client) error {
				comps, err := client.Compilations()
				if err != nil {
					return err
				}
				c.out.CompilationList(comps)
				return nil
			})
		},
	}
}

// segmentArg resolves a relative segment path against the caller's working
// directory; the daemon runs elsewhere. file:// URLs are passed through.
func segmentArg(arg string) (string, error) {
	if strings.HasPrefix(arg, "file://") {
		return arg, nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", arg, err)
	}
	return abs, nil
}

func parseSeconds(name, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s time %q: must be seconds", name, s)
	}
	return v, nil
}
