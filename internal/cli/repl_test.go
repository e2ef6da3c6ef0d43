package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	calls []string
	fail  string
}

func (f *fakeExec) call(name string) error {
	f.calls = append(f.calls, name)
	if name == f.fail {
		return errors.New(name + " broke")
	}
	return nil
}

func (f *fakeExec) Accounts(context.Context) error { return f.call("accounts") }
func (f *fakeExec) Add(context.Context) error      { return f.call("add") }
func (f *fakeExec) Edit(context.Context) error     { return f.call("edit") }
func (f *fakeExec) Delete(context.Context) error   { return f.call("delete") }
func (f *fakeExec) Login(context.Context) error    { return f.call("login") }
func (f *fakeExec) Cancel(context.Context) error   { return f.call("cancel") }
func (f *fakeExec) Sessions(context.Context) error { return f.call("sessions") }
func (f *fakeExec) Balance(context.Context) error  { return f.call("balance") }
func (f *fakeExec) Provider(context.Context) error { return f.call("provider") }
func (f *fakeExec) Record(context.Context) error   { return f.call("record") }
func (f *fakeExec) Backup(context.Context) error   { return f.call("backup") }
func (f *fakeExec) Auto(_ context.Context, on bool) error {
	if on {
		return f.call("auto on")
	}
	return f.call("auto off")
}

func runScript(t *testing.T, exec execIface, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	in := bufio.NewReader(strings.NewReader(strings.Join(lines, "\n") + "\n"))
	runREPL(context.Background(), exec, func() string { return "" }, in, &out)
	return out.String()
}

func TestRunREPL_Dispatch(t *testing.T) {
	exec := &fakeExec{}
	out := runScript(t, exec,
		"help", "accounts", "ls", "add", "edit", "rm", "login", "cancel", "sessions",
		"balance", "auto on", "auto off", "provider", "record", "backup", "", "exit", "accounts")

	assert.Equal(t, []string{
		"accounts", "accounts", "add", "edit", "delete", "login", "cancel", "sessions",
		"balance", "auto on", "auto off", "provider", "record", "backup",
	}, exec.calls)
	assert.Contains(t, out, "Available commands")
	assert.Contains(t, out, "Bye!")
}

func TestRunREPL_UsageAndUnknown(t *testing.T) {
	exec := &fakeExec{}
	out := runScript(t, exec, "auto", "auto maybe", "foobar", "quit")

	assert.Empty(t, exec.calls)
	assert.Equal(t, 2, strings.Count(out, "Usage: auto on|off"))
	assert.Contains(t, out, "Unknown command: foobar")
}

func TestRunREPL_ErrorsKeepLoopAlive(t *testing.T) {
	exec := &fakeExec{fail: "balance"}
	out := runScript(t, exec, "balance", "accounts")

	assert.Equal(t, []string{"balance", "accounts"}, exec.calls)
	assert.Contains(t, out, "Error: balance broke")
}

func TestRunREPL_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	exec := &fakeExec{}
	var out bytes.Buffer
	runREPL(ctx, exec, func() string { return "" }, bufio.NewReader(strings.NewReader("accounts\n")), &out)
	assert.Empty(t, exec.calls)
}
