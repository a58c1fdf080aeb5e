package cli

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/silouanwright/cdb/internal/config"
	"github.com/silouanwright/cdb/internal/output"
)

// CLI is the root command structure for the CircleCI debugger
type CLI struct {
	// Global flags
	Format  string `short:"f" default:"${config_format}" enum:"text,json" help:"Output format"`
	Quiet   bool   `short:"q" help:"Suppress informational output"`
	Verbose bool   `short:"v" help:"Show debug output (API requests, subprocess calls, cache writes)"`
	NoColor bool   `help:"Disable colored output"`

	Version VersionCmd `cmd:"" help:"Show version information"`

	// Commands
	Build  BuildCmd  `cmd:"" help:"Analyze a failed build from its URL (smart summary + last 50 lines by default)"`
	Pr     PrCmd     `cmd:"" help:"Check PR status and CircleCI checks (requires gh CLI)"`
	Doctor DoctorCmd `cmd:"" help:"Check system requirements and configuration"`
}

// Globals holds shared state for all commands
type Globals struct {
	Format  string
	Quiet   bool
	Verbose bool
	NoColor bool
	Stdout  io.Writer
	Stderr  io.Writer
	Config  *config.Config
	Log     *zap.Logger
}

// NewGlobalsWithConfig creates a Globals instance with config fallbacks
func NewGlobalsWithConfig(cli *CLI, cfg *config.Config) *Globals {
	g := &Globals{
		Format:  cli.Format,
		Quiet:   cli.Quiet,
		Verbose: cli.Verbose,
		NoColor: cli.NoColor,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Config:  cfg,
	}

	// Apply config values if CLI flags weren't explicitly set
	if cfg != nil {
		if !cli.Quiet && cfg.Quiet {
			g.Quiet = cfg.Quiet
		}
		if !cli.Verbose && cfg.Verbose {
			g.Verbose = cfg.Verbose
		}
	}

	// Styling is suppressed when output is not a terminal or NO_COLOR is set
	if !g.NoColor {
		if os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd()) {
			g.NoColor = true
		}
	}

	g.Log = buildLogger(g.Verbose)

	return g
}

// buildLogger returns a development logger on stderr in verbose mode and a
// nop logger otherwise
func buildLogger(verbose bool) *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	cfg.OutputPaths = []string{"stderr"}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// Printer returns a styled printer for the command's stdout
func (g *Globals) Printer() *output.Printer {
	p := output.NewPrinter(g.Stdout, g.NoColor)
	p.SetQuiet(g.Quiet)
	return p
}

// VersionCmd shows version information
type VersionCmd struct{}

// Run executes the version command
func (v *VersionCmd) Run(globals *Globals) error {
	if globals.Format == "json" {
		_, err := io.WriteString(globals.Stdout, `{"type":"version","version":"`+Version+`","commit":"`+Commit+`"}`+"\n")
		return err
	}
	_, err := io.WriteString(globals.Stdout, "cdb version "+Version+" ("+Commit+")\n")
	return err
}

// Version information (set at build time)
var (
	Version = "dev"
	Commit  = "none"
)
