/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package registry

import (
	"context"
	"fmt"
	"io"
	"sync"

	"golang.org/x/exp/slog"

	"github.com/suparena/recordstore/codec"
	"github.com/suparena/recordstore/datastore"
	"github.com/suparena/recordstore/schema"
)

// Entry is a registered record type.
type Entry struct {
	Type  *schema.Type
	Codec *codec.Codec
}

// Registry is an append-only table of record types bound to one connection.
type Registry struct {
	conn   datastore.Conn
	log    *slog.Logger
	mu     sync.RWMutex
	types  map[string]*Entry
	order  []string
	codec  *codec.Codec
	loaded map[string]bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger
func WithLogger(log *slog.Logger) Option {
	return func(r *Registry) { r.log = log }
}

// New creates an empty Registry for conn
func New(conn datastore.Conn, opts ...Option) *Registry {
	r := &Registry{
		conn:   conn,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		types:  make(map[string]*Entry),
		loaded: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Conn returns the connection the registry is bound to.
func (r *Registry) Conn() datastore.Conn {
	return r.conn
}

// Register resolves d and prepares the store for it. Registering a name twice is an error.
func (r *Registry) Register(ctx context.Context, d *schema.Declaration) (*Entry, error) {
	t, err := schema.Resolve(d)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[t.Name]; exists {
		return nil, fmt.Errorf("type registry: type %q already registered", t.Name)
	}

	scripts := []string{datastore.ScriptPrimaryKeyClaim}
	if len(t.Unique) > 0 {
		scripts = append(scripts, datastore.ScriptUniquenessClaim, datastore.ScriptUniquenessRelease)
	}
	for _, name := range scripts {
		if r.loaded[name] {
			continue
		}
		if err := r.conn.LoadScript(ctx, name); err != nil {
			return nil, fmt.Errorf("type registry: load script %s for %s: %w", name, t.Name, err)
		}
		r.loaded[name] = true
	}

	if r.codec == nil {
		c, err := codec.New(r.conn.Encoding())
		if err != nil {
			return nil, fmt.Errorf("type registry: %w", err)
		}
		r.codec = c
	}

	e := &Entry{Type: t, Codec: r.codec}
	r.types[t.Name] = e
	r.order = append(r.order, t.Name)
	r.log.Debug("record type registered",
		slog.String("type", t.Name),
		slog.Int("fields", len(t.Fields)),
		slog.Int("unique", len(t.Unique)),
		slog.String("encoding", r.codec.Name()))
	return e, nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(ctx context.Context, d *schema.Declaration) *Entry {
	e, err := r.Register(ctx, d)
	if err != nil {
		panic(err)
	}
	return e
}

// Lookup returns the registered type with the given name.
func (r *Registry) Lookup(name string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.types[name]
	if !ok {
		return nil, fmt.Errorf("type registry: no type registered as %q", name)
	}
	return e, nil
}

// Names returns the registered type names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
