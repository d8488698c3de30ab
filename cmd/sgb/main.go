// sgb - SGB1 save file tool
//
// Usage:
//
//	sgb info FILE...                       Print container and state summary
//	sgb verify FILE                        Check the stored checksum
//	sgb dump FILE                          Print the Lua state as YAML
//	sgb import FILE DUMP.yaml [-o OUT]     Replace the Lua state from YAML
//	sgb edit FILE -script S.lua [-o OUT]   Run a Lua script against the save
//	sgb get FILE PATH...                   Print one value, e.g. GameState.Resources
//	sgb repl FILE                          Interactive Lua prompt over the save
//	sgb backups FILE                       List backup archives of FILE
//	sgb restore ARCHIVE OUT                Restore a backup archive
//	sgb version                            Print version info
//
// Commands that overwrite a save archive the original first unless
// -no-backup is given or SGB_BACKUP=false.
//
// Exit status is 2 for usage errors, 3 when an input is not a valid
// save and 1 otherwise.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Neumenon/sgb/derrors"
	"github.com/Neumenon/sgb/internal/config"
	"github.com/Neumenon/sgb/internal/log"
)

const version = "0.3.0"

func main() {
	stdlog.SetPrefix("[sgb] ")
	stdlog.SetFlags(0)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fatal("%v", err)
	}
	log.SetLevel(cfg.LogLevel)

	a := &app{
		cfg:    cfg,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		now:    time.Now,
	}
	if err := a.run(ctx, os.Args[1:]); err != nil {
		switch {
		case errors.Is(err, flag.ErrHelp):
			// The subcommand's FlagSet has printed its flags.
		case errors.Is(err, errUsage):
			printUsage(os.Stderr)
		default:
			fmt.Fprintf(os.Stderr, "sgb: %v\n", err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode is 0 for a -h request, 2 for usage errors, 3 when the input
// is not a valid save and 1 for any other failure.
func exitCode(err error) int {
	switch {
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		return 2
	}
	switch derrors.Kind(err) {
	case derrors.Format, derrors.Truncated, derrors.Encoding, derrors.Compression, derrors.Checksum:
		return 3
	}
	return 1
}

var errUsage = errors.New("usage")

// app carries what every subcommand needs, so tests can swap the
// streams and the clock.
type app struct {
	cfg    *config.Config
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, args := args[0], args[1:]
	switch cmd {
	case "info":
		return a.cmdInfo(ctx, args)
	case "verify":
		return a.cmdVerify(ctx, args)
	case "dump":
		return a.cmdDump(ctx, args)
	case "import":
		return a.cmdImport(ctx, args)
	case "edit":
		return a.cmdEdit(ctx, args)
	case "get":
		return a.cmdGet(ctx, args)
	case "repl":
		return a.cmdRepl(ctx, args)
	case "backups":
		return a.cmdBackups(ctx, args)
	case "restore":
		return a.cmdRestore(ctx, args)
	case "version", "-v", "--version":
		fmt.Fprintf(a.stdout, "sgb %s (SGB1 v16, v17)\n", version)
		return nil
	case "help", "-h", "--help":
		printUsage(a.stdout)
		return nil
	default:
		fmt.Fprintf(a.stderr, "unknown command: %s\n", cmd)
		return errUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `sgb - SGB1 save file tool

Usage:
  sgb info [options] FILE...                 Print container and state summary
  sgb verify FILE                            Check the stored checksum
  sgb dump [options] FILE                    Print the Lua state as YAML
  sgb import [options] FILE DUMP.yaml        Replace the Lua state from YAML
  sgb edit [options] FILE -script S.lua      Run a Lua script against the save
  sgb get [options] FILE PATH...             Print one value, e.g. GameState.Resources
  sgb repl [options] FILE                    Interactive Lua prompt over the save
  sgb backups [options] FILE                 List backup archives of FILE
  sgb restore ARCHIVE OUT                    Restore a backup archive
  sgb version                                Print version info

Options:
  -o OUT              Write to OUT instead of overwriting FILE
  -no-backup          Do not archive FILE before overwriting it
  -backup-dir DIR     Where archives go (default: next to FILE)
  -verify-checksum    Reject files whose stored checksum is wrong
  -trim-v16           Trim v16 state to the encoded values
  -workers N          Files inspected in parallel by info

Environment:
  SGB_LOG_LEVEL, SGB_VERIFY_CHECKSUM, SGB_TRIM_V16, SGB_BACKUP,
  SGB_BACKUP_DIR, SGB_WORKERS

Examples:
  sgb info ~/Saved\ Games/Hades/Profile1.sav
  sgb get Profile1.sav GameState.Resources.Gems
  echo 'GameState.Resources.Gems = 9999' > gems.lua
  sgb edit Profile1.sav -script gems.lua
  sgb dump Profile1.sav > state.yaml && sgb import Profile1.sav state.yaml
`)
}

// options are one subcommand's settings: a copy of the environment
// config with its flags applied, plus the flags that only make sense
// per invocation.
type options struct {
	cfg      config.Config
	out      string
	noBackup bool
	script   string
}

// flagSet returns a FlagSet for name whose defaults come from the
// environment config.
func (a *app) flagSet(name string, o *options) *flag.FlagSet {
	fs := flag.NewFlagSet("sgb "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	o.cfg = *a.cfg
	fs.BoolVar(&o.cfg.VerifyChecksum, "verify-checksum", a.cfg.VerifyChecksum, "reject files whose stored checksum is wrong")
	fs.BoolVar(&o.cfg.TrimV16, "trim-v16", a.cfg.TrimV16, "trim v16 state to the encoded values")
	switch name {
	case "info":
		fs.IntVar(&o.cfg.Workers, "workers", a.cfg.Workers, "files inspected in parallel")
	case "import", "edit", "repl":
		fs.StringVar(&o.out, "o", "", "write to `OUT` instead of overwriting FILE")
		fs.BoolVar(&o.noBackup, "no-backup", !a.cfg.Backup, "do not archive FILE before overwriting it")
		fs.StringVar(&o.cfg.BackupDir, "backup-dir", a.cfg.BackupDir, "where archives go")
	case "backups":
		fs.StringVar(&o.cfg.BackupDir, "backup-dir", a.cfg.BackupDir, "where archives go")
	}
	if name == "edit" {
		fs.StringVar(&o.script, "script", "", "Lua `FILE` to run")
	}
	return fs
}

// parseArgs parses flags that may appear before, between or after the
// positional arguments, and returns the positionals.
func parseArgs(fs *flag.FlagSet, args []string) ([]string, error) {
	var pos []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			return pos, nil
		}
		pos = append(pos, args[0])
		args = args[1:]
	}
}

// splitPath turns "A.B" "C" into [A B C].
func splitPath(args []string) []string {
	var path []string
	for _, arg := range args {
		for _, seg := range strings.Split(arg, ".") {
			if seg != "" {
				path = append(path, seg)
			}
		}
	}
	return path
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "sgb: "+format+"\n", args...)
	os.Exit(1)
}
