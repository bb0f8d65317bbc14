/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"context"
	"fmt"
	"io"

	"github.com/suparena/recordstore/datastore"
	"github.com/suparena/recordstore/datastore/ddb"
	"github.com/suparena/recordstore/datastore/mock"
	"github.com/suparena/recordstore/datastore/redisstore"
)

// Open connects to the configured backend.
func Open(ctx context.Context, cfg Config) (datastore.Conn, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendMemory:
		return mock.New().WithEncoding(cfg.Encoding), nil
	case BackendRedis:
		conn, err := redisstore.New(ctx, redisstore.Options{
			Addrs:        cfg.Redis.Addrs,
			Username:     cfg.Redis.Username,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
			Encoding:     cfg.Encoding,
		})
		if err != nil {
			return nil, err
		}
		return conn, nil
	case BackendDynamoDB:
		conn, err := ddb.New(ctx, ddb.Options{
			Region:    cfg.DynamoDB.Region,
			Table:     cfg.DynamoDB.Table,
			Endpoint:  cfg.DynamoDB.Endpoint,
			AccessKey: cfg.DynamoDB.AccessKey,
			SecretKey: cfg.DynamoDB.SecretKey,
			Logger:    cfg.Logger(),
		})
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
	return nil, fmt.Errorf("config: unknown backend %q", cfg.Backend)
}

// Close closes conn if its backend holds resources.
func Close(conn datastore.Conn) error {
	if c, ok := conn.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
