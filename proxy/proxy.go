/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package proxy exposes store commands bound to a single key.
//
// A Command is what a standalone, non synchronized field returns: it keeps no
// local state and forwards every call to the connection with its key
// inserted as the first argument.
//
//	log := rec.Proxy(ctx, "log")
//	log.Cmd("RPUSH").Do(ctx, "entry")
//	n, err := log.Do(ctx, "LLEN")
package proxy

import (
	"context"
	"strings"
	"sync"

	"github.com/suparena/recordstore/datastore"
)

// Command forwards store commands to one key. Call handles are created lazily and cached.
type Command struct {
	key  string
	conn datastore.Conn

	mu    sync.Mutex
	calls map[string]*Call
}

// New binds a Command to key
func New(key string, conn datastore.Conn) *Command {
	return &Command{key: key, conn: conn, calls: make(map[string]*Call)}
}

// Key returns the bound key.
func (c *Command) Key() string {
	return c.key
}

// Cmd returns the cached handle for the named command.
func (c *Command) Cmd(name string) *Call {
	name = strings.ToUpper(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	call, ok := c.calls[name]
	if !ok {
		call = &Call{name: name, cmd: c}
		c.calls[name] = call
	}
	return call
}

// Do runs the named command against the bound key.
func (c *Command) Do(ctx context.Context, name string, args ...any) (any, error) {
	return c.Cmd(name).Do(ctx, args...)
}

// Call is one command bound to a key.
type Call struct {
	name string
	cmd  *Command
}

// Name returns the command name.
func (c *Call) Name() string {
	return c.name
}

// Do runs the command with the bound key followed by args.
func (c *Call) Do(ctx context.Context, args ...any) (any, error) {
	full := make([]any, 0, len(args)+2)
	full = append(full, c.name, c.cmd.key)
	full = append(full, args...)
	return c.cmd.conn.Do(ctx, full...)
}
