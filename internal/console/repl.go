package console

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// printlnFn is a test seam for operator-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. *Console
// satisfies it; tests use a recording stub.
type execIface interface {
	Users(ctx context.Context) error
	Premium(ctx context.Context) error
	AddCredits(ctx context.Context, userID, amount int64) error
	RemoveCredits(ctx context.Context, userID, amount int64) error
	SetValidity(ctx context.Context, userID, days int64) error
	RemoveValidity(ctx context.Context, userID int64) error
	AddAdmin(ctx context.Context, userID int64) error
	Sweep(ctx context.Context) error
}

const helpText = `Available commands:
  users                         list all accounts
  premium                       list premium accounts
  credits add|remove <id> <n>   change a balance
  validity set <id> <days>      open a validity window
  validity remove <id>          clear a validity window
  admin add <id>                grant admin rights
  sweep                         revoke expired accounts now
  exit | quit`

// runREPL reads one command per line and dispatches it to a. promptFn, when
// not nil, prints the prompt before each read. Handler errors are reported
// and the loop goes on; it ends on EOF, "exit" or "quit", or ctx.
func runREPL(ctx context.Context, a execIface, promptFn func(), scanner *bufio.Scanner) {
	for ctx.Err() == nil {
		if promptFn != nil {
			promptFn()
		}
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}

		cmd, args := parts[0], parts[1:]
		var err error

		switch cmd {
		case "help":
			printlnFn(helpText)

		case "users":
			err = a.Users(ctx)

		case "premium":
			err = a.Premium(ctx)

		case "credits":
			id, n, ok := parseTwo(args, "add", "remove")
			if !ok {
				printlnFn("Usage: credits add|remove <id> <n>")
				continue
			}
			if args[0] == "add" {
				err = a.AddCredits(ctx, id, n)
			} else {
				err = a.RemoveCredits(ctx, id, n)
			}

		case "validity":
			switch {
			case len(args) == 3 && args[0] == "set":
				id, n, ok := parseTwo(args, "set")
				if !ok {
					printlnFn("Usage: validity set <id> <days>")
					continue
				}
				err = a.SetValidity(ctx, id, n)
			case len(args) == 2 && args[0] == "remove":
				id, perr := strconv.ParseInt(args[1], 10, 64)
				if perr != nil {
					printlnFn("Usage: validity remove <id>")
					continue
				}
				err = a.RemoveValidity(ctx, id)
			default:
				printlnFn("Usage: validity set <id> <days> | validity remove <id>")
				continue
			}

		case "admin":
			if len(args) != 2 || args[0] != "add" {
				printlnFn("Usage: admin add <id>")
				continue
			}
			id, perr := strconv.ParseInt(args[1], 10, 64)
			if perr != nil {
				printlnFn("Usage: admin add <id>")
				continue
			}
			err = a.AddAdmin(ctx, id)

		case "sweep":
			err = a.Sweep(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}

// parseTwo accepts "<verb> <id> <n>" where verb is one of verbs.
func parseTwo(args []string, verbs ...string) (id, n int64, ok bool) {
	if len(args) != 3 {
		return 0, 0, false
	}
	known := false
	for _, v := range verbs {
		if args[0] == v {
			known = true
		}
	}
	if !known {
		return 0, 0, false
	}
	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	n, err = strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return id, n, true
}
