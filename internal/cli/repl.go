package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

const helpText = "Available commands: accounts, add, edit, delete, login, cancel, sessions, " +
	"balance, auto on|off, provider, record, backup, exit"

// execIface is the command surface the REPL dispatches to. App satisfies
// it; tests provide a stub.
type execIface interface {
	Accounts(ctx context.Context) error
	Add(ctx context.Context) error
	Edit(ctx context.Context) error
	Delete(ctx context.Context) error
	Login(ctx context.Context) error
	Cancel(ctx context.Context) error
	Sessions(ctx context.Context) error
	Balance(ctx context.Context) error
	Auto(ctx context.Context, on bool) error
	Provider(ctx context.Context) error
	Record(ctx context.Context) error
	Backup(ctx context.Context) error
}

// runREPL reads commands from reader until EOF, "exit" or "quit", or until
// ctx is done. Handler errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, status func() string, reader *bufio.Reader, w io.Writer) {
	for ctx.Err() == nil {
		fmt.Fprintf(w, "pb%s> ", status())
		line, err := readLine(reader)
		if err != nil {
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		var cmdErr error
		switch cmd {
		case "help", "?":
			fmt.Fprintln(w, helpText)
		case "accounts", "ls":
			cmdErr = a.Accounts(ctx)
		case "add":
			cmdErr = a.Add(ctx)
		case "edit":
			cmdErr = a.Edit(ctx)
		case "delete", "rm":
			cmdErr = a.Delete(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "cancel":
			cmdErr = a.Cancel(ctx)
		case "sessions":
			cmdErr = a.Sessions(ctx)
		case "balance":
			cmdErr = a.Balance(ctx)
		case "auto":
			if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
				fmt.Fprintln(w, "Usage: auto on|off")
				continue
			}
			cmdErr = a.Auto(ctx, args[0] == "on")
		case "provider":
			cmdErr = a.Provider(ctx)
		case "record":
			cmdErr = a.Record(ctx)
		case "backup":
			cmdErr = a.Backup(ctx)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}
		if cmdErr != nil {
			fmt.Fprintln(w, "Error:", cmdErr)
		}
	}
}
