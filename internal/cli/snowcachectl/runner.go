package snowcachectl

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/snowcache/snowcache/internal/cache"
	"github.com/snowcache/snowcache/internal/warehouse"
)

// Client is the slice of the query client the CLI drives.
type Client interface {
	FetchData(ctx context.Context, querySource string, variables map[string]string, useCache bool) (warehouse.Table, error)
	ExecuteSQL(ctx context.Context, filePath string, variables map[string]string) error
	DropTable(ctx context.Context, database, schema, table string) error
}

type Options struct {
	Client Client
	Store  cache.Store
	Stdout io.Writer
	Stderr io.Writer
}

func Run(ctx context.Context, args []string, opts Options) int {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := opts.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	fs := flag.NewFlagSet("snowcachectl", flag.ContinueOnError)
	fs.SetOutput(stderr)

	noCache := fs.Bool("no-cache", false, "bypass the result cache and re-execute the query")
	database := fs.String("database", "", "target database for drop")
	schema := fs.String("schema", "", "target schema for drop")
	table := fs.String("table", "", "target table for drop")
	vars := varFlag{values: map[string]string{}}
	fs.Var(&vars, "var", "query variable as name=value (repeatable)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		writeUsage(stderr)
		return 2
	}

	command := strings.TrimSpace(fs.Arg(0))
	switch command {
	case "fetch":
		if fs.NArg() < 2 {
			_, _ = fmt.Fprintln(stderr, "fetch requires a query or .sql file argument")
			return 2
		}
		result, err := opts.Client.FetchData(ctx, fs.Arg(1), vars.values, !*noCache)
		if err != nil {
			_, _ = fmt.Fprintf(stderr, "fetch failed: %v\n", err)
			return 1
		}
		return writeResult(stdout, stderr, result)
	case "exec":
		if fs.NArg() < 2 {
			_, _ = fmt.Fprintln(stderr, "exec requires a .sql file argument")
			return 2
		}
		if err := opts.Client.ExecuteSQL(ctx, fs.Arg(1), vars.values); err != nil {
			_, _ = fmt.Fprintf(stderr, "exec failed: %v\n", err)
			return 1
		}
		return 0
	case "drop":
		if *database == "" || *schema == "" || *table == "" {
			_, _ = fmt.Fprintln(stderr, "drop requires -database, -schema and -table")
			return 2
		}
		if err := opts.Client.DropTable(ctx, *database, *schema, *table); err != nil {
			_, _ = fmt.Fprintf(stderr, "drop failed: %v\n", err)
			return 1
		}
		return 0
	case "cache-clear":
		if fs.NArg() < 2 {
			_, _ = fmt.Fprintln(stderr, "cache-clear requires a cache key argument")
			return 2
		}
		if opts.Store == nil {
			_, _ = fmt.Fprintln(stderr, "no cache store configured")
			return 1
		}
		if err := opts.Store.Delete(ctx, fs.Arg(1)); err != nil {
			_, _ = fmt.Fprintf(stderr, "cache-clear failed: %v\n", err)
			return 1
		}
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		writeUsage(stderr)
		return 2
	}
}

func writeResult(stdout, stderr io.Writer, result warehouse.Table) int {
	payload := struct {
		Columns  []string `json:"columns"`
		Rows     [][]any  `json:"rows"`
		RowCount int      `json:"row_count"`
	}{
		Columns:  result.ColumnNames(),
		Rows:     result.Rows,
		RowCount: len(result.Rows),
	}
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "encode result: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintln(stdout, string(encoded))
	return 0
}

func writeUsage(w io.Writer) {
	_, _ = fmt.Fprint(w, `Usage: snowcachectl [flags] <command> [args]

Commands:
  fetch <query|file.sql>   execute a query (cached) and print the result
  exec <file.sql>          run every statement in a SQL file
  drop                     drop a table (-database, -schema, -table)
  cache-clear <key>        delete one cache artifact

Flags:
`)
}

type varFlag struct {
	values map[string]string
}

func (v *varFlag) String() string {
	pairs := make([]string, 0, len(v.values))
	for name, value := range v.values {
		pairs = append(pairs, name+"="+value)
	}
	return strings.Join(pairs, ",")
}

func (v *varFlag) Set(raw string) error {
	name, value, ok := strings.Cut(raw, "=")
	if !ok || strings.TrimSpace(name) == "" {
		return fmt.Errorf("expected name=value, got %q", raw)
	}
	v.values[strings.TrimSpace(name)] = value
	return nil
}
