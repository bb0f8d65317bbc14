/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package recordstore

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"github.com/suparena/recordstore/datastore"
	"github.com/suparena/recordstore/registry"
	"github.com/suparena/recordstore/schema"
)

var timeNow = time.Now // Tests override this.

// Store maps record types onto one store connection.
type Store struct {
	conn datastore.Conn
	reg  *registry.Registry
	log  *slog.Logger

	mu     sync.RWMutex
	models map[string]*Model
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// New creates a Store on conn
func New(conn datastore.Conn, opts ...Option) *Store {
	s := &Store{
		conn:   conn,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		models: make(map[string]*Model),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reg = registry.New(conn, registry.WithLogger(s.log))
	return s
}

// Conn returns the underlying connection.
func (s *Store) Conn() datastore.Conn {
	return s.conn
}

// Registry returns the type registry.
func (s *Store) Registry() *registry.Registry {
	return s.reg
}

// Register declares a record type and returns its Model.
func (s *Store) Register(ctx context.Context, d *schema.Declaration) (*Model, error) {
	entry, err := s.reg.Register(ctx, d)
	if err != nil {
		return nil, err
	}
	m := &Model{store: s, typ: entry.Type, codec: entry.Codec}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[entry.Type.Name] = m
	return m, nil
}

// MustRegister is like Register but panics on error.
func (s *Store) MustRegister(ctx context.Context, d *schema.Declaration) *Model {
	m, err := s.Register(ctx, d)
	if err != nil {
		panic(err)
	}
	return m
}

// Model returns the Model of a registered type.
func (s *Store) Model(name string) (*Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, exists := s.models[name]
	if !exists {
		return nil, fmt.Errorf("record type %q not registered", name)
	}
	return m, nil
}
