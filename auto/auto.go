/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package auto implements synchronized containers: local mirrors of a remote
// set, list, counter or string that stay equal to the remote value without
// refetching.
//
// Every mutating method issues the remote command(s) with the same effect
// first and updates local state only once they succeed. Operations with no
// remote equivalent return an UnsupportedOperationError and change nothing.
//
// Writes go through Backend.Writer, which is the record's batch while one is
// open. In that case the local mirror runs ahead of the store until the
// batch commits.
//
// Containers are owned by one record and are not safe for concurrent use.
package auto

import (
	"context"

	"github.com/suparena/recordstore/datastore"
	"github.com/suparena/recordstore/errors"
	"github.com/suparena/recordstore/metrics"
)

// Backend supplies the connections a container talks to.
type Backend interface {
	// Writer receives mutating commands.
	Writer() datastore.Writer
	// Conn serves reads and commands that return a value.
	Conn() datastore.Conn
}

type direct struct {
	conn datastore.Conn
}

func (d direct) Writer() datastore.Writer { return d.conn }
func (d direct) Conn() datastore.Conn     { return d.conn }

// Direct returns a Backend that writes straight to conn.
func Direct(conn datastore.Conn) Backend {
	return direct{conn: conn}
}

// incrementer is implemented by writers that return the incremented value.
type incrementer interface {
	Incr(ctx context.Context, key string, delta int64) (int64, error)
}

func unsupported(container, op string) error {
	metrics.UnsupportedInc(container, op)
	return errors.NewUnsupportedOperationError(container, op)
}
