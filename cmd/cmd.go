// Package cmd wires the goscript command-line surface: run a script
// directly, build it to a binary, or print the resolved compilation
// manifest.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"goscript/compiler"
	"goscript/config"
	"goscript/entry"
)

// Execute runs the goscript CLI with the given version string. It is
// the single place a process exit happens: 0 on a successful
// invocation, the script's own code when the script exits nonzero, 1
// on every usage, resolution, compilation, or entry-point error.
func Execute(version string) {
	setupColor()

	cmd := &cli.Command{
		Name:                   "goscript",
		Usage:                  "Run plain Go source files directly, no build step",
		Version:                version,
		UseShortOptionHandling: true,
		// Allow `goscript script.go args...` as shorthand for
		// `goscript run script.go args...`
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() > 0 {
				arg := cmd.Args().First()
				if strings.HasSuffix(arg, ".go") || isScript(arg) {
					return runScript(arg, "", cmd.Args().Tail())
				}
			}
			return cli.DefaultShowRootCommandHelp(cmd)
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "Compile and run a script",
				ArgsUsage: "<file.go> [args...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "entry",
						Usage: "Entry procedure as Type.Method (default: the one Main)",
					},
				},
				Action: runAction,
			},
			{
				Name:      "build",
				Usage:     "Compile a script to a native binary",
				ArgsUsage: "<file.go>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output binary name",
					},
					&cli.StringFlag{
						Name:  "entry",
						Usage: "Entry procedure as Type.Method",
					},
				},
				Action: buildAction,
			},
			{
				Name:      "emit",
				Usage:     "Print the resolved compilation manifest",
				ArgsUsage: "<file.go>",
				Action:    emitAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		var exitErr *compiler.ExitError
		if errors.As(err, &exitErr) {
			// The script already wrote its own output.
			os.Exit(exitErr.Code)
		}
		if !errors.Is(err, compiler.ErrCompileFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// setupColor disables colored output when NO_COLOR is set or stderr is
// not a terminal.
func setupColor() {
	if os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stderr.Fd())) {
		color.NoColor = true
	}
}

// newCompiler loads the script's project config and builds the
// orchestrator around it.
func newCompiler(scriptPath string) (*compiler.Compiler, *config.Config, error) {
	cfg, err := config.Load(scriptPath)
	if err != nil {
		return nil, nil, err
	}
	return &compiler.Compiler{Config: cfg}, cfg, nil
}

// runScript compiles and runs one script. The entry flag is validated
// before any file is opened: malformed values are usage errors.
func runScript(scriptPath, entryFlag string, args []string) error {
	spec, err := entry.ParseSpec(entryFlag)
	if err != nil {
		return err
	}
	comp, cfg, err := newCompiler(scriptPath)
	if err != nil {
		return err
	}
	if entryFlag == "" && cfg.Run.Entry != "" {
		if spec, err = entry.ParseSpec(cfg.Run.Entry); err != nil {
			return err
		}
	}
	return comp.Run(scriptPath, spec, args)
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: goscript run [-entry Type.Method] <file.go> [args...]")
	}
	return runScript(cmd.Args().First(), cmd.String("entry"), cmd.Args().Tail())
}

func buildAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: goscript build [-o output] [-entry Type.Method] <file.go>")
	}
	scriptPath := cmd.Args().First()
	spec, err := entry.ParseSpec(cmd.String("entry"))
	if err != nil {
		return err
	}
	comp, cfg, err := newCompiler(scriptPath)
	if err != nil {
		return err
	}
	if cmd.String("entry") == "" && cfg.Run.Entry != "" {
		if spec, err = entry.ParseSpec(cfg.Run.Entry); err != nil {
			return err
		}
	}
	return comp.Build(scriptPath, cmd.String("output"), spec)
}

func emitAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.NArg() < 1 {
		return fmt.Errorf("usage: goscript emit <file.go>")
	}
	comp, _, err := newCompiler(cmd.Args().First())
	if err != nil {
		return err
	}
	m, err := comp.Emit(cmd.Args().First())
	if err != nil {
		return err
	}
	for _, u := range m.Units {
		if u.Rewritten {
			fmt.Printf("unit %s (rewritten, offset %d)\n", u.Path, u.Offset)
		} else {
			fmt.Printf("unit %s\n", u.Path)
		}
		for _, inc := range u.Includes {
			fmt.Printf("  include %s\n", inc)
		}
		for _, imp := range u.Imports {
			fmt.Printf("  import %s\n", imp)
		}
	}
	if len(m.Imports) > 0 {
		fmt.Printf("references: %s\n", strings.Join(m.Imports, ", "))
	}
	return nil
}

// isScript checks if a file exists and starts with a metadata header.
func isScript(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	buf := make([]byte, 64)
	n, _ := f.Read(buf)
	return strings.HasPrefix(string(buf[:n]), "::{")
}
