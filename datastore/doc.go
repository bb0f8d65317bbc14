/*
Package datastore defines the narrow store abstraction RecordStore is built on.

The store is a remote key-value service with typed primitives (string, hash,
set, list, ordered set), named atomic scripts and buffered pipelines:

	type Conn interface {
	    Reader
	    Writer
	    Incr(ctx context.Context, key string, delta int64) (int64, error)
	    Do(ctx context.Context, args ...any) (any, error)
	    LoadScript(ctx context.Context, name string) error
	    Eval(ctx context.Context, name string, keys []string, args ...any) (any, error)
	    Pipeline() Pipeline
	    Encoding() string
	}

Writer holds the mutating commands; a Pipeline implements Writer by buffering
and executes the buffered commands in order on Exec. Commands that must
observe the store (reads, scripts) are only available on Conn.

Three scripts must be available from every backend:

	primary_key_claim(keys=[index_key], args=[score, pk]) -> 1 | 0
	uniqueness_claim(keys=[reverse_key...], args=[pk, json_array_of_values]) -> 0 | position
	uniqueness_release(keys=[reverse_key...], args=[pk, json_array_of_values]) -> released

uniqueness_release removes each reverse lookup entry only while it still maps
to pk; entries taken over by another record are left alone.

Implementations:
  - mock: in-memory backend, scripts implemented natively under one lock
  - redisstore: Redis via go-redis, scripts in Lua
  - ddb: DynamoDB single-table layout, scripts as conditional writes and transactions
*/
package datastore
