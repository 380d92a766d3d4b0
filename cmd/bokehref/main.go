// Command bokehref renders depth of field offline with any of the backends, for reference
// images and backend comparisons.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"bokeh-gl/config"
	"bokeh-gl/liblog"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"
)

type backend string

const (
	backendSw backend = "sw"
	backendGl backend = "gl"
	backendCl backend = "cl"
)

func (b *backend) String() string {
	return string(*b)
}

func (b *backend) Set(s string) error {
	switch backend(strings.ToLower(s)) {
	case backendSw, "software":
		*b = backendSw
	case backendGl, "opengl":
		*b = backendGl
	case backendCl, "opencl":
		*b = backendCl
	default:
		return fmt.Errorf("%s is not a valid backend", s)
	}
	return nil
}

type commonArgs struct {
	config string
	out    string
	quiet  bool
}

var (
	cargs *commonArgs
	cfg   *config.Config
	log   zerolog.Logger
)

type command struct {
	Run   func(self *command)
	Name  string
	Help  string
	Flags *flag.FlagSet
}

var commands = []*command{}

func printGeneralUsage() {
	exe := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [arguments]\n\n", exe)
	fmt.Fprintf(os.Stderr, "The commands are:\n\n")
	longest := slices.MaxFunc(commands, func(a, b *command) int {
		return len(a.Name) - len(b.Name)
	})
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "    %*s%s\n", -len(longest.Name)-4, c.Name, c.Help)
	}
	fmt.Fprintln(os.Stderr, "")
	os.Exit(1)
}

func printCommandUsage(cmd *command, suffix string) {
	exe := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s %s [arguments]%s\n\n", exe, cmd.Name, suffix)
	fmt.Fprintf(os.Stderr, "The arguments are:\n\n")
	cmd.Flags.SetOutput(os.Stderr)
	cmd.Flags.PrintDefaults()
	os.Exit(1)
}

func main() {
	commands = append(commands, createRenderCommand())
	commands = append(commands, createSceneCommand())

	slices.SortFunc(commands, func(a, b *command) int {
		return strings.Compare(a.Name, b.Name)
	})

	if len(os.Args) < 2 {
		printGeneralUsage()
	}

	var cmd *command
	for _, c := range commands {
		if strings.EqualFold(c.Name, os.Args[1]) {
			cmd = c
			break
		}
	}
	if cmd == nil {
		printGeneralUsage()
	}

	err := cmd.Flags.Parse(os.Args[2:])
	harderr(err)

	cmd.Run(cmd)
}

func registerCommonFlags(flags *flag.FlagSet, args *commonArgs) {
	flags.StringVar(&args.config, "config", args.config, "the config file, the defaults and BOKEH_* variables apply without one")
	flags.StringVar(&args.out, "out", args.out, "the output file or directory")
	flags.StringVar(&args.out, "o", args.out, "shorthand for out")
	flags.BoolVar(&args.quiet, "quiet", args.quiet, "disables informational logging")
	flags.BoolVar(&args.quiet, "q", args.quiet, "shorthand for quiet")
}

// setCommonArgs loads the config and sets up logging, flags given on the command line
// are applied on top of the config afterwards.
func setCommonArgs(args *commonArgs) {
	cargs = args
	var err error
	cfg, err = config.Load(args.config)
	harderr(err)

	level := liblog.Level(cfg.Log.Level)
	if args.quiet {
		level = liblog.LevelWarn
	}
	liblog.Setup(os.Stderr, level, cfg.Log.Pretty)
	log = liblog.With("bokehref")
}

func close(closer io.Closer) {
	closer.Close()
}

func harderr(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
