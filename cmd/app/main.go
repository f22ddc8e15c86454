package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"lox/internal/diag"
	"lox/internal/evaluator"
	"lox/internal/log"
	"lox/internal/parser"
	"lox/internal/repl"
	"lox/internal/util"
	"os"
)

// exit codes, following sysexits.h
const (
	exitOK       = 0
	exitUsage    = 64
	exitDataErr  = 65
	exitNoInput  = 66
	exitSoftware = 70
)

var (
	// Version is the current version of the lox binary, set at build time.
	Version   = "dev"
	BuildDate = "unknown"
	Commit    = "unknown"
	help      bool
	version   bool
	// logging
	logLevel string
	logFile  string
	// config vars
	configPath  string
	debugAST    string
	noColor     bool
	showContext bool
)

func init() {
	flag.BoolVar(&help, "help", false, "Display help information and exit")
	flag.BoolVar(&help, "h", false, "Display help information and exit")
	flag.BoolVar(&version, "version", false, "Display version information and exit")
	flag.BoolVar(&version, "v", false, "Display version information and exit")
	flag.StringVar(&configPath, "config", "", "Path to a TOML config file (default ./lox.toml if present)")
	// parser config
	flag.StringVar(&debugAST, "debug-ast", "", "Dump the syntax tree before running: json, yaml or text")
	// diagnostics
	flag.BoolVar(&noColor, "no-color", false, "Disable coloured error output")
	flag.BoolVar(&showContext, "context", true, "Show the offending source line under errors")
	// log config
	flag.StringVar(&logLevel, "log-level", "none", "Log level: debug, info, warn, error, none")
	flag.StringVar(&logFile, "log-file", "", "Log file path (if not set, logs to stderr)")
}

func main() {
	os.Exit(run())
}

func run() int {
	flag.Parse()

	if version {
		printVersion()
		return exitOK
	}

	if help {
		printHelp()
		return exitOK
	}

	config, err := loadConfiguration()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	closeLog := configureLogger(config)
	defer closeLog()

	switch flag.NArg() {
	case 0:
		repl.Start(config)
		return exitOK
	case 1:
		return runFile(config, flag.Arg(0), os.Stdout, os.Stderr)
	default:
		fmt.Fprintln(os.Stderr, "Usage: lox [options] [script]")
		return exitUsage
	}
}

// loadConfiguration layers defaults, the TOML file and explicitly set flags,
// in that order.
func loadConfiguration() (util.Configuration, error) {
	config := util.DefaultConfiguration()
	config.Version = Version
	config.BuildDate = BuildDate
	config.Commit = Commit

	var err error
	if configPath != "" {
		err = util.LoadConfig(configPath, &config)
	} else {
		err = util.LoadDefaultConfig(".", &config)
	}
	if err != nil {
		return config, err
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			config.LogLevel = logLevel
		case "log-file":
			config.LogFile = logFile
		case "debug-ast":
			config.DebugAST = debugAST
		case "no-color":
			config.Color = !noColor
		case "context":
			config.ShowContext = showContext
		}
	})

	switch config.DebugAST {
	case "", parser.DumpJSON, parser.DumpYAML, parser.DumpText:
	default:
		return config, fmt.Errorf("invalid -debug-ast format %q (want json, yaml or text)", config.DebugAST)
	}
	return config, nil
}

// configureLogger installs a JSON slog handler as the default logger and
// returns a func that releases the log file, if any.
func configureLogger(config util.Configuration) func() {
	level, enabled := log.ParseLevel(config.LogLevel)
	if !enabled {
		slog.SetDefault(slog.New(slog.NewJSONHandler(io.Discard, nil)))
		return func() {}
	}

	var logWriter io.Writer = os.Stderr
	closeLog := func() {}
	if config.LogFile != "" {
		f, err := log.OpenFile(config.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v; falling back to stderr\n", err)
		} else {
			logWriter = f
			closeLog = func() { _ = f.Close() }
		}
	}

	loggerOptions := &slog.HandlerOptions{
		AddSource: false,
		Level:     level,
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(logWriter, loggerOptions)))
	return closeLog
}

// runFile scans, parses and runs the script at path. Static errors stop the
// run before anything executes.
func runFile(config util.Configuration, path string, stdout, stderr io.Writer) int {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stderr, "could not read '%s': %v\n", path, err)
		return exitNoInput
	}

	reporter := diag.NewWriter(stderr,
		diag.WithColor(config.Color),
		diag.WithContext(config.ShowContext),
		diag.WithSource(string(src)))

	program, errs := parser.Parse(string(src))
	slog.Debug("parsed script",
		slog.String("path", path),
		slog.Int("statements", len(program.Statements)),
		slog.Int("errors", len(errs)))

	if config.DebugAST != "" {
		dump, err := parser.RenderAST(config.DebugAST, program)
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitSoftware
		}
		fmt.Fprint(stdout, dump)
	}

	if len(errs) > 0 {
		for _, err := range errs {
			diag.ReportError(reporter, err)
		}
		return exitDataErr
	}

	interp := evaluator.New(
		evaluator.WithStdout(stdout),
		evaluator.WithReporter(reporter))
	defer func() {
		if err := interp.Close(); err != nil {
			slog.Warn("failed to release database handles", slog.Any("error", err))
		}
	}()

	if !interp.Interpret(program.Statements) {
		return exitSoftware
	}
	return exitOK
}

func printVersion() {
	fmt.Printf("lox version 'v%s' %s %s\n", Version, BuildDate, Commit)
}

func printHelp() {
	fmt.Printf(`Usage: lox [options] [script]

Options:
  -config <path>      Read settings from a TOML file. Default is ./lox.toml when present.
  -debug-ast <format> Dump the syntax tree before running: json, yaml or text.
  -no-color           Disable coloured error output.
  -context=false      Do not show source lines under errors.
  -help               Display this help information and exit.
  -version            Display version information and exit.
  -log-level <level>  Set the log level: debug, info, warn, error, none. Default is 'none'.
  -log-file <path>    Specify a log file to write logs. Default is stderr.

Details:
With a script argument the script is run; without one an interactive session
starts. History is kept in $LOX_HOME/.lox_history (or ~/.lox_history).

Exit codes:
  65  the script has syntax errors
  66  the script could not be read
  70  a runtime error occurred

Examples:
  lox                         Start an interactive session
  lox hello.lox               Run the provided script
  lox -debug-ast=yaml a.lox   Print the syntax tree of a.lox as YAML, then run it

Version Information:
  Version:    %s
  Build Date: %s
  Commit:     %s
`, Version, BuildDate, Commit)
}
