// Command psycho is a CLI front-end over the interpreter: it loads a BIOS
// image, optionally arms a PS-X EXE for side-loading, then steps the
// system for --steps instructions (forever when 0), printing a
// disassembly trace line before each step when --trace is set. Any
// error-level log message ends the process with exit status 1.
package main

import (
	"fmt"
	"os"

	"github.com/lunaspis-go/psycho/ctx"
	"github.com/lunaspis-go/psycho/dbglog"

	cli "gopkg.in/urfave/cli.v2"
)

type stderrSink struct{}

func (stderrSink) Emit(level dbglog.Level, msg string) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", level, msg)
	if level == dbglog.Err {
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	biosPath := c.Args().First()
	if biosPath == "" {
		return fmt.Errorf("usage: psycho <bios-path> [flags]")
	}

	bios, err := os.ReadFile(biosPath)
	if err != nil {
		return fmt.Errorf("reading BIOS image: %w", err)
	}

	log := dbglog.Binding{Sink: stderrSink{}, Level: levelFromString(c.String("log-level"))}

	system, err := ctx.New(bios, log)
	if err != nil {
		return fmt.Errorf("creating system: %w", err)
	}
	system.Reset()

	if exePath := c.String("exe"); exePath != "" {
		exe, err := os.ReadFile(exePath)
		if err != nil {
			return fmt.Errorf("reading PS-X EXE image: %w", err)
		}
		if !system.RunPSXEXE(exe) {
			return fmt.Errorf("invalid PS-X EXE image: %s", exePath)
		}
	}

	steps := c.Int64("steps")
	for i := int64(0); steps <= 0 || i < steps; i++ {
		if c.Bool("trace") {
			fmt.Println(system.Trace())
		}
		system.Step()
	}

	return nil
}

func levelFromString(s string) dbglog.Level {
	switch s {
	case "trace":
		return dbglog.Trace
	case "debug":
		return dbglog.Dbg
	case "warn":
		return dbglog.Warn
	case "error":
		return dbglog.Err
	default:
		return dbglog.Info
	}
}

func main() {
	app := &cli.App{
		Name:      "psycho",
		Usage:     "LR33300 interpreter front-end",
		ArgsUsage: "<bios-path>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "exe", Usage: "path to a PS-X EXE image to side-load"},
			&cli.BoolFlag{Name: "trace", Usage: "print a disassembly trace for every step"},
			&cli.Int64Flag{Name: "steps", Usage: "number of instructions to execute (0 = run forever)"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "trace|debug|info|warn|error"},
		},
		Action: run,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
