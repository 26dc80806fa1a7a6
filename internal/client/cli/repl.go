package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Record(ctx context.Context, args []string) error
	Sync(ctx context.Context) error
	Status(ctx context.Context) error
	Violations(ctx context.Context, args []string) error
	Passages(ctx context.Context, args []string) error
	Photo(ctx context.Context, args []string) error
}

// runREPL starts a simple read–eval–print loop for the checkpost device.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Prompt & Commands
//
// The prompt shows the current status (from statusFn) and accepts commands:
//
//   - help                        show available commands
//   - login / logout              start or end the ranger session
//   - r | record [plate [type]]   record a passage (prompts for what is missing)
//   - sync                        run a sync cycle now
//   - status                      connectivity, queue and cache counters
//   - v | violations [all]        list verdicts, stale ones with "all"
//   - passages [n]                list the last n passages
//   - photo <client_id> [path]    upload and attach a passage photo
//   - exit | quit                 leave the program
//
// Recording works without a server session as long as a ranger has signed
// in on this device before. Errors returned by command handlers are printed
// and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("cp> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: (r)ecord, sync, status, (v)iolations, passages, photo, logout, exit")
			} else {
				printlnFn("Available commands: login, (r)ecord, status, (v)iolations, passages, exit")
			}

		case "login":
			err = a.Login(ctx)

		case "logout":
			err = a.Logout(ctx)

		case "r", "record":
			err = a.Record(ctx, args)

		case "sync":
			err = a.Sync(ctx)

		case "status":
			err = a.Status(ctx)

		case "v", "violations":
			err = a.Violations(ctx, args)

		case "passages":
			err = a.Passages(ctx, args)

		case "photo":
			err = a.Photo(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("error:", err)
		}
	}
}
