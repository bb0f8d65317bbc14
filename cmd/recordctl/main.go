/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Command recordctl inspects the records of a store at the key level.
//
// Usage:
//
//	recordctl [-config file] count <Type>
//	recordctl [-config file] range [-min n] [-max n] [-offset n] [-limit n] [-desc] <Type>
//	recordctl [-config file] get <Type> <pk>
//	recordctl [-config file] owner <Type> <field> <value>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/suparena/recordstore"
	"github.com/suparena/recordstore/config"
	"github.com/suparena/recordstore/datastore"
	"github.com/suparena/recordstore/keys"
)

var errUsage = errors.New("usage: recordctl [-config file] count|range|get|owner <Type> ...")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("recordctl", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML configuration file")
	versionFlag := fs.Bool("version", false, "Show version information")
	vFlag := fs.Bool("v", false, "Show version information (short)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *versionFlag || *vFlag {
		info := recordstore.GetVersionInfo()
		fmt.Fprintf(out, "RecordStore recordctl version %s\n", info.Version)
		fmt.Fprintf(out, "Git commit: %s\n", info.GitCommit)
		fmt.Fprintf(out, "Build date: %s\n", info.BuildDate)
		fmt.Fprintf(out, "Go version: %s\n", info.GoVersion)
		return nil
	}
	if fs.NArg() < 2 {
		return errUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	conn, err := config.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer config.Close(conn)

	return execute(ctx, conn, fs.Arg(0), fs.Args()[1:], out)
}

func execute(ctx context.Context, conn datastore.Conn, cmd string, args []string, out io.Writer) error {
	switch cmd {
	case "count":
		n, err := conn.ZCard(ctx, keys.Index(args[0]))
		if err != nil {
			return err
		}
		fmt.Fprintln(out, n)
		return nil

	case "range":
		fs := flag.NewFlagSet("range", flag.ContinueOnError)
		lo := fs.Float64("min", math.Inf(-1), "lowest score")
		hi := fs.Float64("max", math.Inf(1), "highest score")
		offset := fs.Int64("offset", 0, "records to skip")
		limit := fs.Int64("limit", 0, "maximum records, 0 for all")
		desc := fs.Bool("desc", false, "highest scores first")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return errUsage
		}
		pks, err := conn.ZRangeByScore(ctx, keys.Index(fs.Arg(0)), datastore.ScoreRange{
			Min: *lo, Max: *hi, Offset: *offset, Count: *limit, Reverse: *desc,
		})
		if err != nil {
			return err
		}
		for _, pk := range pks {
			fmt.Fprintln(out, pk)
		}
		return nil

	case "get":
		if len(args) != 2 {
			return errUsage
		}
		h, err := conn.HGetAll(ctx, keys.Record(args[0], args[1]))
		if err != nil {
			return err
		}
		if len(h) == 0 {
			return fmt.Errorf("%s %q not found", args[0], args[1])
		}
		fields := make([]string, 0, len(h))
		for f := range h {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(out, "%s\t%s\n", f, h[f])
		}
		return nil

	case "owner":
		if len(args) != 3 {
			return errUsage
		}
		pk, ok, err := conn.HGet(ctx, keys.Unique(args[0], args[1]), args[2])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%s.%s %q is not claimed", args[0], args[1], args[2])
		}
		fmt.Fprintln(out, pk)
		return nil
	}
	return errUsage
}
