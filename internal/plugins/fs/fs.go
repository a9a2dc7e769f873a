// Package fs is the filesystem plugin. Every path is resolved inside a base
// directory; callers cannot reach outside it, by name or through symlinks.
package fs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/driftshell/driftshell/internal/events"
	"github.com/driftshell/driftshell/internal/plugin"
)

const Name = "fs"

// ErrOutsideBase is returned when a path resolves outside the base directory
var ErrOutsideBase = errors.New("path resolves outside the base directory")

// Change is the payload of an fs_changed event. Path is relative to the base.
type Change struct {
	WatchID uint64 `json:"watch_id"`
	Path    string `json:"path"`
	Op      string `json:"op"`
}

// Entry describes one directory entry or stat result
type Entry struct {
	Name     string `json:"name"`
	IsDir    bool   `json:"is_dir"`
	IsFile   bool   `json:"is_file"`
	Size     int64  `json:"size"`
	Readable bool   `json:"readable"`
	Writable bool   `json:"writable"`
}

type watch struct {
	id      uint64
	session string
	w       *fsnotify.Watcher
	done    chan struct{}
}

// Plugin implements plugin.Plugin for files under a base directory
type Plugin struct {
	base   string
	root   *os.Root
	logger *slog.Logger

	mu      sync.Mutex
	nextID  uint64
	watches map[uint64]*watch
}

// New creates the fs plugin rooted at base. The directory is created if missing.
func New(base string, logger *slog.Logger) (*Plugin, error) {
	if logger == nil {
		logger = slog.Default()
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve base directory")
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create base directory")
	}
	abs, err = filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve base directory")
	}
	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open base directory")
	}
	return &Plugin{
		base:    abs,
		root:    root,
		logger:  logger.With("plugin", Name),
		watches: make(map[uint64]*watch),
	}, nil
}

func (p *Plugin) Name() string { return Name }

// Base returns the absolute base directory
func (p *Plugin) Base() string { return p.base }

// rootPath maps a caller path onto a path relative to the base. Leading
// slashes and ".." segments cannot climb above the base.
func rootPath(path string) string {
	name := strings.TrimPrefix(filepath.Clean("/"+path), "/")
	if name == "" {
		return "."
	}
	return name
}

// resolve is rootPath joined onto the base directory
func (p *Plugin) resolve(path string) string {
	return filepath.Join(p.base, rootPath(path))
}

// within resolves symlinks in path and fails unless the result stays inside
// the base directory.
func (p *Plugin) within(path string) (string, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return "", err
	}
	if resolved != p.base && !strings.HasPrefix(resolved, p.base+string(filepath.Separator)) {
		return "", errors.Wrap(ErrOutsideBase, p.relative(path))
	}
	return resolved, nil
}

// mkdirAll creates name and any missing parents through the root
func (p *Plugin) mkdirAll(name string) error {
	if name == "." {
		return nil
	}
	dir := ""
	for _, part := range strings.Split(name, string(filepath.Separator)) {
		dir = filepath.Join(dir, part)
		err := p.root.Mkdir(dir, 0755)
		if err == nil {
			continue
		}
		if info, statErr := p.root.Stat(dir); statErr != nil || !info.IsDir() {
			return err
		}
	}
	return nil
}

func (p *Plugin) relative(abs string) string {
	rel, err := filepath.Rel(p.base, abs)
	if err != nil {
		return abs
	}
	return filepath.ToSlash(rel)
}

type args struct {
	Path      string `json:"path"`
	Contents  string `json:"contents"`
	Append    bool   `json:"append"`
	Recursive bool   `json:"recursive"`
	ID        uint64 `json:"id"`
}

// Invoke runs a filesystem operation
func (p *Plugin) Invoke(ctx context.Context, call plugin.Call) (any, error) {
	var a args
	if err := plugin.Decode(call, &a); err != nil {
		return nil, err
	}
	name := rootPath(a.Path)
	target := p.resolve(a.Path)

	switch call.Op {
	case "read_text":
		f, err := p.root.Open(name)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", a.Path)
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", a.Path)
		}
		return string(data), nil

	case "write_text":
		flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		if a.Append {
			flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		}
		f, err := p.root.OpenFile(name, flags, 0644)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open %s", a.Path)
		}
		if _, err := f.WriteString(a.Contents); err != nil {
			f.Close()
			return nil, errors.Wrapf(err, "failed to write %s", a.Path)
		}
		return nil, errors.Wrapf(f.Close(), "failed to close %s", a.Path)

	case "exists":
		_, err := p.root.Stat(name)
		if os.IsNotExist(err) {
			return false, nil
		}
		if err != nil {
			return nil, errors.Wrapf(err, "failed to stat %s", a.Path)
		}
		return true, nil

	case "stat":
		info, err := p.root.Stat(name)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to stat %s", a.Path)
		}
		return entryFor(target, info), nil

	case "mkdir":
		var err error
		if a.Recursive {
			err = p.mkdirAll(name)
		} else {
			err = p.root.Mkdir(name, 0755)
		}
		return nil, errors.Wrapf(err, "failed to create %s", a.Path)

	case "remove":
		if name == "." {
			return nil, plugin.InvalidArgs("remove: refusing to remove the base directory")
		}
		if !a.Recursive {
			return nil, errors.Wrapf(p.root.Remove(name), "failed to remove %s", a.Path)
		}
		// RemoveAll does not follow a final symlink, only its parents need checking
		parent, err := p.within(filepath.Dir(target))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to remove %s", a.Path)
		}
		return nil, errors.Wrapf(os.RemoveAll(filepath.Join(parent, filepath.Base(target))), "failed to remove %s", a.Path)

	case "read_dir":
		dir, err := p.root.Open(name)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read directory %s", a.Path)
		}
		defer dir.Close()
		dirEntries, err := dir.ReadDir(-1)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read directory %s", a.Path)
		}
		sort.Slice(dirEntries, func(i, j int) bool { return dirEntries[i].Name() < dirEntries[j].Name() })
		out := make([]Entry, 0, len(dirEntries))
		for _, de := range dirEntries {
			info, err := de.Info()
			if err != nil {
				continue
			}
			out = append(out, entryFor(filepath.Join(target, de.Name()), info))
		}
		return out, nil

	case "watch":
		if call.Emitter == nil {
			return nil, errors.Wrap(plugin.ErrNoSession, "fs.watch")
		}
		resolved, err := p.within(target)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to watch %s", a.Path)
		}
		return p.watch(call.SessionID, resolved, a.Recursive, call.Emitter)

	case "unwatch":
		return p.unwatch(a.ID), nil

	default:
		return nil, plugin.UnknownOp(Name, call.Op)
	}
}

// entryFor describes info. Access checks follow links, so they are skipped
// for symlinks that may point outside the base.
func entryFor(path string, info os.FileInfo) Entry {
	e := Entry{
		Name:   info.Name(),
		IsDir:  info.IsDir(),
		IsFile: info.Mode().IsRegular(),
		Size:   info.Size(),
	}
	if info.Mode()&os.ModeSymlink == 0 {
		e.Readable = unix.Access(path, unix.R_OK) == nil
		e.Writable = unix.Access(path, unix.W_OK) == nil
	}
	return e
}

func (p *Plugin) watch(session, target string, recursive bool, emitter events.Emitter) (uint64, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return 0, errors.Wrap(err, "failed to create watcher")
	}

	dirs := []string{target}
	if recursive {
		dirs, err = subdirectories(target)
		if err != nil {
			w.Close()
			return 0, err
		}
	}
	for _, dir := range dirs {
		if err := w.Add(dir); err != nil {
			w.Close()
			return 0, errors.Wrapf(err, "failed to watch %s", p.relative(dir))
		}
	}

	p.mu.Lock()
	p.nextID++
	wt := &watch{id: p.nextID, session: session, w: w, done: make(chan struct{})}
	p.watches[wt.id] = wt
	p.mu.Unlock()

	go p.forward(wt, recursive, emitter)

	return wt.id, nil
}

func (p *Plugin) forward(wt *watch, recursive bool, emitter events.Emitter) {
	defer close(wt.done)
	for {
		select {
		case ev, ok := <-wt.w.Events:
			if !ok {
				return
			}
			if recursive && ev.Has(fsnotify.Create) {
				if info, err := os.Lstat(ev.Name); err == nil && info.IsDir() {
					_ = wt.w.Add(ev.Name)
				}
			}
			change := Change{WatchID: wt.id, Path: p.relative(ev.Name), Op: opName(ev.Op)}
			if err := emitter.Emit(events.EventFSChanged, change); err != nil {
				p.logger.Debug("fs change not delivered", "watch", wt.id, "error", err)
			}
		case err, ok := <-wt.w.Errors:
			if !ok {
				return
			}
			p.logger.Warn("watch error", "watch", wt.id, "error", err)
		}
	}
}

func (p *Plugin) unwatch(id uint64) bool {
	p.mu.Lock()
	wt, ok := p.watches[id]
	delete(p.watches, id)
	p.mu.Unlock()

	if !ok {
		return false
	}
	wt.w.Close()
	<-wt.done
	return true
}

// CloseSession stops every watch registered by session
func (p *Plugin) CloseSession(session string) {
	p.mu.Lock()
	var ids []uint64
	for id, wt := range p.watches {
		if wt.session == session {
			ids = append(ids, id)
		}
	}
	p.mu.Unlock()

	for _, id := range ids {
		p.unwatch(id)
	}
}

// Close stops all watches
func (p *Plugin) Close() error {
	p.mu.Lock()
	ids := make([]uint64, 0, len(p.watches))
	for id := range p.watches {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		p.unwatch(id)
	}
	return p.root.Close()
}

func subdirectories(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to walk %s", root)
	}
	return dirs, nil
}

func opName(op fsnotify.Op) string {
	var names []string
	for _, o := range []struct {
		op   fsnotify.Op
		name string
	}{
		{fsnotify.Create, "create"},
		{fsnotify.Write, "write"},
		{fsnotify.Remove, "remove"},
		{fsnotify.Rename, "rename"},
		{fsnotify.Chmod, "chmod"},
	} {
		if op.Has(o.op) {
			names = append(names, o.name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}
