package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/Neumenon/sgb/luastate"
)

const replHelp = `Enter Lua statements or expressions. Save globals are loaded.
  :save [OUT]   write the current state to FILE (or OUT)
  :quit         leave without saving
`

func (a *app) cmdRepl(ctx context.Context, args []string) error {
	var o options
	pos, err := parseArgs(a.flagSet("repl", &o), args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errUsage
	}
	path := pos[0]

	save, forest, err := load(path, &o)
	if err != nil {
		return err
	}
	e := luastate.NewEngine(luastate.PolicyFor(save.Version()))
	defer e.Close()
	if err := e.Load(forest); err != nil {
		return err
	}

	fmt.Fprintf(a.stderr, "%s (%s) loaded; :help for commands\n", path, save.Version())
	sc := bufio.NewScanner(a.stdin)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for {
		fmt.Fprint(a.stderr, "> ")
		if !sc.Scan() {
			fmt.Fprintln(a.stderr)
			return sc.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(sc.Text())

		switch cmd, arg, _ := strings.Cut(line, " "); cmd {
		case "":
			continue
		case ":quit", ":q":
			return nil
		case ":help":
			fmt.Fprint(a.stderr, replHelp)
			continue
		case ":save":
			forest, err := e.Extract()
			if err != nil {
				fmt.Fprintf(a.stderr, "error: %v\n", err)
				continue
			}
			so := o
			if arg = strings.TrimSpace(arg); arg != "" {
				so.out = arg
			}
			if err := a.store(ctx, path, &so, save, forest); err != nil {
				fmt.Fprintf(a.stderr, "error: %v\n", err)
			}
			continue
		}

		results, err := e.Eval(line)
		if err != nil {
			fmt.Fprintf(a.stderr, "error: %v\n", err)
			continue
		}
		for _, r := range results {
			fmt.Fprintln(a.stdout, r)
		}
	}
}
