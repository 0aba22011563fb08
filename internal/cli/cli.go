package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Serve  *ServeCommand
	Wait   *WaitCommand
	Events *EventsCommand
	Status *StatusCommand
	Audit  *AuditCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "pagetrace"
	parser.LongDescription = "Record page interactions and report when a hosted page has settled."

	cmds := &commands{
		Serve:  &ServeCommand{globals: &globals, version: version},
		Wait:   &WaitCommand{globals: &globals, version: version},
		Events: &EventsCommand{globals: &globals, version: version},
		Status: &StatusCommand{globals: &globals, version: version},
		Audit:  &AuditCommand{globals: &globals, version: version},
	}

	parser.AddCommand("serve", "Host an instrumented page", "Load a page, install the recorder and settling detector, and serve the probe over HTTP.", cmds.Serve)
	parser.AddCommand("wait", "Wait until the page settles", "Poll a running probe until the page has stopped changing.", cmds.Wait)
	parser.AddCommand("events", "Print recorded events", "Print the interaction log recorded by a running probe.", cmds.Events)
	parser.AddCommand("status", "Show probe status", "Show the document id, event count and settling state of a running probe.", cmds.Status)
	parser.AddCommand("audit", "Check page selectors", "Report id and class selectors that would not resolve to exactly one element.", cmds.Audit)

	return parser, &globals, cmds
}

// Run is the main entry point for the pagetrace CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("pagetrace %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
