// Package cli implements the interactive phonebind shell.
//
// The REPL reads one command per line from stdin and dispatches to App
// methods. Commands that need more input prompt for it line by line; the
// lease provider password is read without echo.
//
// Commands
//
//	help                 show available commands
//	accounts             list accounts with today's quota and phone
//	add                  create an account
//	edit                 change display name or phone
//	delete               remove an account
//	login                bind a phone (manual or auto mode)
//	cancel               abort the running auto-mode login
//	sessions             list persisted login sessions
//	balance              query the lease provider balance
//	auto on|off          switch auto lease mode
//	provider             edit lease provider credentials
//	record               book a completed appeal submission
//	backup               upload a snapshot of the data documents
//	exit | quit          leave the program
//
// Auto-mode logins run in the background once the verification code was
// requested, so the shell stays usable while the code is polled.
package cli
