// Command eventlogctl is a thin diagnostic/demo driver over an event
// log file, mirroring the original implementation's bin/example.rs and
// examples/example.rs: open a file, append a few events, iterate a
// range, or dump it for inspection.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/flashlog/eventlog"
	"github.com/flashlog/eventlog/cache"
)

func main() {
	app := &cli.App{
		Name:  "eventlogctl",
		Usage: "inspect and exercise a prefix-forgettable event log file",
		Commands: []*cli.Command{
			appendCommand,
			iterCommand,
			dumpCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var commonFlags = []cli.Flag{
	&cli.StringFlag{Name: "file", Required: true, Usage: "path to the event log file"},
	&cli.UintFlag{Name: "user-version", Value: 0},
	&cli.IntFlag{Name: "compression-threshold", Value: 4096},
	&cli.UintFlag{Name: "block-event-limit", Value: 1024},
}

func openFromContext(c *cli.Context) (*eventlog.EventFile, error) {
	lru, err := cache.New(0, 0)
	if err != nil {
		return nil, err
	}
	return eventlog.Open(
		1,
		c.String("file"),
		uint32(c.Uint("user-version")),
		c.Int("compression-threshold"),
		uint32(c.Uint("block-event-limit")),
		lru,
	)
}

var appendCommand = &cli.Command{
	Name:      "append",
	Usage:     "append each argument as one event",
	ArgsUsage: "EVENT...",
	Flags:     commonFlags,
	Action: func(c *cli.Context) error {
		ef, err := openFromContext(c)
		if err != nil {
			return err
		}
		defer ef.Close()

		for _, arg := range c.Args().Slice() {
			if err := ef.Append([]byte(arg)); err != nil {
				return err
			}
		}
		return ef.Flush()
	},
}

var iterCommand = &cli.Command{
	Name:  "iter",
	Usage: "print events in an inclusive index range",
	Flags: append(commonFlags,
		&cli.Uint64Flag{Name: "from", Value: 0},
		&cli.Uint64Flag{Name: "to", Value: ^uint64(0)},
	),
	Action: func(c *cli.Context) error {
		ef, err := openFromContext(c)
		if err != nil {
			return err
		}
		defer ef.Close()

		it, err := ef.Iter(c.Uint64("from"), c.Uint64("to"))
		if err != nil {
			return err
		}
		w := bufio.NewWriter(os.Stdout)
		defer w.Flush()
		for {
			slice, ok := it.Next()
			if !ok {
				break
			}
			for _, event := range slice.Events() {
				fmt.Fprintf(w, "%s\n", event)
			}
		}
		return it.Err()
	},
}

var dumpCommand = &cli.Command{
	Name:  "dump",
	Usage: "render a diagnostic textual dump of the file",
	Flags: commonFlags,
	Action: func(c *cli.Context) error {
		ef, err := openFromContext(c)
		if err != nil {
			return err
		}
		defer ef.Close()

		return ef.Dump(os.Stdout)
	},
}
