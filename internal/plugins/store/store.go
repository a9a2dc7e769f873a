// Package store is the persistent key-value storage plugin. Values are
// arbitrary JSON documents kept in named stores inside one SQLite file.
package store

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/driftshell/driftshell/internal/database"
	"github.com/driftshell/driftshell/internal/plugin"
)

const (
	// Name is the plugin name used for dispatch
	Name = "store"

	// DefaultStore is used when a call does not name a store
	DefaultStore = "default"
)

// Plugin implements plugin.Plugin on top of a database.Repository
type Plugin struct {
	repo *database.Repository
}

// New creates the store plugin
func New(repo *database.Repository) *Plugin {
	return &Plugin{repo: repo}
}

func (p *Plugin) Name() string { return Name }

func (p *Plugin) Close() error { return nil }

type keyArgs struct {
	Store string          `json:"store"`
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

func (a *keyArgs) storeName() string {
	if a.Store == "" {
		return DefaultStore
	}
	return a.Store
}

// Invoke runs one of get, set, delete, has, keys, entries, length or clear
func (p *Plugin) Invoke(ctx context.Context, call plugin.Call) (any, error) {
	var args keyArgs
	if err := plugin.Decode(call, &args); err != nil {
		return nil, err
	}
	store := args.storeName()

	switch call.Op {
	case "get":
		if args.Key == "" {
			return nil, plugin.InvalidArgs("get: key is required")
		}
		entry, err := p.repo.Get(store, args.Key)
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return json.RawMessage(entry.Value), nil

	case "set":
		if args.Key == "" {
			return nil, plugin.InvalidArgs("set: key is required")
		}
		value := args.Value
		if len(value) == 0 {
			value = json.RawMessage("null")
		}
		if !json.Valid(value) {
			return nil, plugin.InvalidArgs("set: value is not valid JSON")
		}
		if err := p.repo.Set(store, args.Key, string(value)); err != nil {
			return nil, err
		}
		return nil, nil

	case "delete":
		if args.Key == "" {
			return nil, plugin.InvalidArgs("delete: key is required")
		}
		return p.repo.Delete(store, args.Key)

	case "has":
		if args.Key == "" {
			return nil, plugin.InvalidArgs("has: key is required")
		}
		return p.repo.Has(store, args.Key)

	case "keys":
		return p.repo.Keys(store)

	case "entries":
		entries, err := p.repo.Entries(store)
		if err != nil {
			return nil, err
		}
		out := make([][2]any, 0, len(entries))
		for _, e := range entries {
			out = append(out, [2]any{e.Key, json.RawMessage(e.Value)})
		}
		return out, nil

	case "length":
		keys, err := p.repo.Keys(store)
		if err != nil {
			return nil, err
		}
		return len(keys), nil

	case "clear":
		_, err := p.repo.Clear(store)
		return nil, err

	default:
		return nil, plugin.UnknownOp(Name, call.Op)
	}
}
