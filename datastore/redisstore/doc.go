/*
Package redisstore implements datastore.Conn on Redis with github.com/redis/go-redis/v9.

Both atomic scripts ship embedded in the package and are loaded with
SCRIPT LOAD when a record type is registered. Eval runs them with EVALSHA and
falls back to EVAL when the server lost its script cache.

Usage:

	conn, err := redisstore.New(ctx, redisstore.Options{Addrs: []string{"localhost:6379"}})
	if err != nil {
		return err
	}
	defer conn.Close()
	store := recordstore.New(conn)

Any redis.UniversalClient can be wrapped with Wrap, which lets callers share a
client, use a cluster or a sentinel setup.
*/
package redisstore
