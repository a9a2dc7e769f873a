package process

import (
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/process"
)

// Resolver maps window PIDs to process names. Names are cached per PID since
// a PID keeps its executable for its lifetime; stale entries are dropped when
// the cache grows past maxEntries.
type Resolver struct {
	mu         sync.Mutex
	cache      map[int]string
	maxEntries int
	lookup     func(pid int) (string, error)
}

// NewResolver creates a Resolver backed by gopsutil
func NewResolver() *Resolver {
	return &Resolver{
		cache:      make(map[int]string),
		maxEntries: 256,
		lookup:     lookupName,
	}
}

func lookupName(pid int) (string, error) {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", errors.Wrapf(err, "failed to find process %d", pid)
	}
	name, err := proc.Name()
	if err != nil {
		return "", errors.Wrapf(err, "failed to read name of process %d", pid)
	}
	return strings.TrimSpace(name), nil
}

// Name returns the process name for pid
func (r *Resolver) Name(pid int) (string, error) {
	if pid <= 0 {
		return "", errors.Errorf("invalid pid %d", pid)
	}

	r.mu.Lock()
	if name, ok := r.cache[pid]; ok {
		r.mu.Unlock()
		return name, nil
	}
	r.mu.Unlock()

	name, err := r.lookup(pid)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	if len(r.cache) >= r.maxEntries {
		r.cache = make(map[int]string)
	}
	r.cache[pid] = name
	r.mu.Unlock()

	return name, nil
}

// IsAvailable reports whether process information can be read on this system
func (r *Resolver) IsAvailable() bool {
	ok, err := process.PidExists(1)
	return err == nil && ok
}
