// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/trifactor-tui/internal/flow"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// ErrIncomplete is returned when the user leaves before all three factors
// were verified.
var ErrIncomplete = errors.New("authentication not completed")

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAuth
	CmdDoctor
	CmdConfig
	CmdHistory
	CmdVersion
	CmdHelp
)

func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdAuth:
		return "auth"
	case CmdDoctor:
		return "doctor"
	case CmdConfig:
		return "config"
	case CmdHistory:
		return "history"
	case CmdVersion:
		return "version"
	default:
		return "help"
	}
}

// DefaultHistoryLimit is how many attempts history shows by default.
const DefaultHistoryLimit = 20

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string
	JSON       bool
	Verbose    bool

	// Flow
	Stage flow.Stage

	// Command-specific
	Subcommand string
	ConfigKey  string
	ConfigVal  string
	Limit      int
	Session    string

	// Raw holds the positional arguments after the command name.
	Raw []string
}

var boolFlagNames = []string{"json", "verbose", "v", "help", "h", "version"}

// Parse parses argv (without the program name).
func Parse(argv []string) (Command, Args, error) {
	p := NewArgParser(argv, boolFlagNames...)

	// Everything after "config set <key>" is the value, verbatim, so
	// command lines such as "ffmpeg -f v4l2 ..." survive. Flags for
	// trifactor itself must come before the key.
	var setValue []string
	if strings.EqualFold(p.Subcommand(), "config") && strings.EqualFold(p.Positional(1), "set") && p.PositionalCount() > 2 {
		keyAt := p.PositionalIndex(2)
		setValue = p.Raw()[keyAt+1:]
		p = NewArgParser(argv[:keyAt+1], boolFlagNames...)
	}

	args := Args{
		ConfigPath: p.Flag("config"),
		JSON:       p.BoolFlag("json"),
		Verbose:    p.BoolFlag("verbose") || p.BoolFlag("v"),
		Limit:      DefaultHistoryLimit,
		Session:    p.Flag("session"),
		Raw:        p.PositionalFrom(1),
	}

	if p.HasFlag("stage") {
		stage, err := flow.ParseStage(p.Flag("stage"))
		if err != nil {
			return CmdHelp, args, err
		}
		args.Stage = stage
	}
	if p.HasFlag("limit") {
		n, err := ParseIntWithValidation(p.Flag("limit"), "--limit")
		if err != nil {
			return CmdHelp, args, err
		}
		args.Limit = n
	}

	if p.BoolFlag("help") || p.BoolFlag("h") {
		return CmdHelp, args, nil
	}
	if p.BoolFlag("version") {
		return CmdVersion, args, nil
	}

	switch cmd := strings.ToLower(p.Subcommand()); cmd {
	case "", "tui":
		return CmdTUI, args, nil
	case "auth", "login":
		return CmdAuth, args, nil
	case "doctor", "diag":
		return CmdDoctor, args, nil
	case "config":
		args.Subcommand = strings.ToLower(p.Positional(1))
		args.ConfigKey = p.Positional(2)
		args.ConfigVal = strings.Join(p.PositionalFrom(3), " ")
		if setValue != nil {
			args.ConfigVal = strings.Join(setValue, " ")
		}
		return CmdConfig, args, nil
	case "history", "log":
		return CmdHistory, args, nil
	case "version":
		return CmdVersion, args, nil
	case "help":
		return CmdHelp, args, nil
	default:
		return CmdHelp, args, fmt.Errorf("unknown command %q", cmd)
	}
}

// =============================================================================
// HELP / VERSION
// =============================================================================

const usageText = "# trifactor\n\n" +
	"Three-factor authentication client: **PIN**, then **face**, then **voice**.\n\n" +
	"## Usage\n\n" +
	"```\n" +
	"trifactor                       Start the interactive flow (default)\n" +
	"trifactor auth                  Run the flow in line mode\n" +
	"trifactor doctor                Check config, service, camera and journal\n" +
	"trifactor config [show]         Show configuration\n" +
	"trifactor config get <key>      Print one value\n" +
	"trifactor config set <key> <v>  Change one value (words after the key are the value)\n" +
	"trifactor config path           Show the config file location\n" +
	"trifactor config keys           List configuration keys\n" +
	"trifactor config reset          Write the default configuration\n" +
	"trifactor history               Recent verification attempts\n" +
	"trifactor version               Version information\n" +
	"```\n\n" +
	"## Flags\n\n" +
	"```\n" +
	"--config PATH      Use a specific config file\n" +
	"--stage STAGE      Open the flow at pin, face or voice\n" +
	"--limit N          history: number of attempts (default 20)\n" +
	"--session ID       history: attempts of one session\n" +
	"--json             JSON output (doctor, config, history)\n" +
	"-v, --verbose      Debug logging\n" +
	"```\n\n" +
	"## Environment\n\n" +
	"`TRIFACTOR_SERVICE_URL`, `TRIFACTOR_TIMEOUT`, `TRIFACTOR_CAMERA`, " +
	"`TRIFACTOR_CAMERA_DEVICE`, `TRIFACTOR_LOG_LEVEL`, `TRIFACTOR_METRICS_ADDR`\n\n" +
	"## Keys\n\n" +
	"In the interactive flow, **Enter** runs the current step and **Esc** quits. " +
	"A failed step can always be retried.\n"

// Usage returns the help text, rendered as markdown when styled is set.
func Usage(styled bool) string {
	if !styled {
		return usageText
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(GetTerminalWidth()-4),
	)
	if err != nil {
		return usageText
	}
	out, err := r.Render(usageText)
	if err != nil {
		return usageText
	}
	return out
}

// PrintUsage writes the help text to w. Markdown is rendered only when
// stdout is a color terminal.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, Usage(ColorsEnabled()))
}

// PrintVersion writes version information to w.
func PrintVersion(w io.Writer) {
	fmt.Fprintf(w, "trifactor version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	fmt.Fprintf(w, "  Go:         %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
