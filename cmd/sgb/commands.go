package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/Neumenon/sgb/backup"
	"github.com/Neumenon/sgb/internal/fsutil"
	"github.com/Neumenon/sgb/internal/log"
	"github.com/Neumenon/sgb/luabins"
	"github.com/Neumenon/sgb/luastate"
	"github.com/Neumenon/sgb/savefile"
)

// load reads and decodes the save at path.
func load(path string, o *options) (savefile.Save, []*luabins.Value, error) {
	save, err := savefile.ReadFile(path, o.cfg.ReadOptions()...)
	if err != nil {
		return nil, nil, err
	}
	forest, err := luabins.Decode(save.Common().LuaState)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: lua_state: %w", path, err)
	}
	return save, forest, nil
}

// store writes forest into save at o.out, or over path. Overwriting path
// archives its current contents first unless backups are off.
func (a *app) store(ctx context.Context, path string, o *options, save savefile.Save, forest []*luabins.Value) error {
	dst := o.out
	if dst == "" {
		dst = path
	}
	switch {
	case dst != path:
	case o.noBackup:
		log.Warningf(ctx, "overwriting %s without a backup", path)
	default:
		orig, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		archive, err := backup.Write(o.cfg.BackupDir, path, orig, a.now())
		if err != nil {
			return err
		}
		log.Infof(ctx, "backed up %s to %s", path, archive)
	}
	if err := savefile.EncodeFile(dst, save, forest); err != nil {
		return err
	}
	log.Infof(ctx, "wrote %s", dst)
	return nil
}

// ============================================================
// info
// ============================================================

func (a *app) cmdInfo(ctx context.Context, args []string) error {
	var o options
	fs := a.flagSet("info", &o)
	files, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return errUsage
	}

	reports := make([]string, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, o.cfg.Workers))
	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := report(path, &o)
			if err != nil {
				return err
			}
			reports[i] = r
			log.Debugf(ctx, "inspected %s", path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Fprint(a.stdout, strings.Join(reports, "\n"))
	return nil
}

// report renders the summary of one save.
func report(path string, o *options) (string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	save, forest, err := load(path, o)
	if err != nil {
		return "", err
	}
	fp, err := luabins.FingerprintHex(forest)
	if err != nil {
		return "", err
	}

	h := save.Common()
	p := message.NewPrinter(language.English)
	var b strings.Builder
	p.Fprintf(&b, "%s\n", path)
	p.Fprintf(&b, "  version:      %s\n", save.Version())
	fmt.Fprintf(&b, "  timestamp:    %d\n", h.Timestamp)
	p.Fprintf(&b, "  location:     %s\n", h.Location)
	p.Fprintf(&b, "  runs:         %d\n", h.Runs)
	if v16, ok := save.(*savefile.SaveV16); ok {
		p.Fprintf(&b, "  meta points:  %d\n", v16.ActiveMetaPoints)
		p.Fprintf(&b, "  shrine:       %d\n", v16.ActiveShrinePoints)
	}
	p.Fprintf(&b, "  god mode:     %t\n", h.GodModeEnabled)
	p.Fprintf(&b, "  hell mode:    %t\n", h.HellModeEnabled)
	p.Fprintf(&b, "  lua keys:     %s\n", strings.Join(h.LuaKeys, ", "))
	p.Fprintf(&b, "  map:          %s\n", h.CurrentMapName)
	p.Fprintf(&b, "  next map:     %s\n", h.StartNextMap)
	fmt.Fprintf(&b, "  checksum:     %08x\n", h.Checksum)
	p.Fprintf(&b, "  file size:    %d bytes\n", fi.Size())
	p.Fprintf(&b, "  state size:   %d bytes\n", len(h.LuaState))
	p.Fprintf(&b, "  values:       %d\n", len(forest))
	p.Fprintf(&b, "  fingerprint:  %s\n", fp)
	return b.String(), nil
}

// ============================================================
// verify, dump, get
// ============================================================

func (a *app) cmdVerify(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	data = bytes.TrimPrefix(data, savefile.BOM)
	if err := savefile.VerifyChecksum(data); err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	fmt.Fprintf(a.stdout, "%s: checksum ok (%08x)\n", args[0], savefile.Checksum(data))
	return nil
}

func (a *app) cmdDump(ctx context.Context, args []string) error {
	var o options
	files, err := parseArgs(a.flagSet("dump", &o), args)
	if err != nil {
		return err
	}
	if len(files) != 1 {
		return errUsage
	}
	_, forest, err := load(files[0], &o)
	if err != nil {
		return err
	}
	out, err := luabins.ToYAML(forest)
	if err != nil {
		return err
	}
	_, err = a.stdout.Write(out)
	return err
}

func (a *app) cmdGet(ctx context.Context, args []string) error {
	var o options
	pos, err := parseArgs(a.flagSet("get", &o), args)
	if err != nil {
		return err
	}
	if len(pos) < 2 {
		return errUsage
	}
	_, forest, err := load(pos[0], &o)
	if err != nil {
		return err
	}
	e := luastate.NewEngine(luastate.Policy{})
	defer e.Close()
	if err := e.Load(forest); err != nil {
		return err
	}
	v, err := e.Lookup(splitPath(pos[1:])...)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, v)
	return nil
}

// ============================================================
// import, edit
// ============================================================

func (a *app) cmdImport(ctx context.Context, args []string) error {
	var o options
	pos, err := parseArgs(a.flagSet("import", &o), args)
	if err != nil {
		return err
	}
	if len(pos) != 2 {
		return errUsage
	}
	path, dump := pos[0], pos[1]

	save, err := savefile.ReadFile(path, o.cfg.ReadOptions()...)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(dump)
	if err != nil {
		return err
	}
	forest, err := luabins.FromYAML(data)
	if err != nil {
		return fmt.Errorf("%s: %w", dump, err)
	}
	return a.store(ctx, path, &o, save, forest)
}

func (a *app) cmdEdit(ctx context.Context, args []string) error {
	var o options
	pos, err := parseArgs(a.flagSet("edit", &o), args)
	if err != nil {
		return err
	}
	if len(pos) != 1 || o.script == "" {
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
	before, err := e.Extract()
	if err != nil {
		return err
	}
	if err := e.ExecFile(o.script); err != nil {
		return err
	}
	after, err := e.Extract()
	if err != nil {
		return err
	}
	if luabins.ForestEqual(before, after) && o.out == "" {
		log.Infof(ctx, "%s left the state unchanged; not writing %s", o.script, path)
		return nil
	}
	return a.store(ctx, path, &o, save, after)
}

// ============================================================
// backups, restore
// ============================================================

func (a *app) cmdBackups(ctx context.Context, args []string) error {
	var o options
	pos, err := parseArgs(a.flagSet("backups", &o), args)
	if err != nil {
		return err
	}
	if len(pos) != 1 {
		return errUsage
	}
	archives, err := backup.List(o.cfg.BackupDir, pos[0])
	if err != nil {
		return err
	}
	if len(archives) == 0 {
		log.Infof(ctx, "no backups of %s", pos[0])
	}
	for _, archive := range archives {
		fmt.Fprintln(a.stdout, archive)
	}
	return nil
}

func (a *app) cmdRestore(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	archive, out := args[0], args[1]
	data, err := backup.Read(archive)
	if err != nil {
		return err
	}
	if _, err := savefile.Read(bytes.TrimPrefix(data, savefile.BOM)); err != nil {
		return fmt.Errorf("%s does not hold a readable save: %w", archive, err)
	}
	if err := fsutil.WriteFileAtomic(out, data, 0o644); err != nil {
		return err
	}
	log.Infof(ctx, "restored %s from %s", out, archive)
	return nil
}
