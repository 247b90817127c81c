package migrations

import (
	"context"
	"fmt"
	"strings"

	chstore "trade-pattern-lab/internal/storage/clickhouse"
)

// RunClickhouseMigrations creates the DSN's database if needed and applies
// every embedded file. Statements use IF NOT EXISTS, so reruns are no-ops.
// Returns a connection to the target database for reuse.
func RunClickhouseMigrations(ctx context.Context, dsn string) (_ *chstore.Conn, err error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}
	if err := ensureDatabase(ctx, dsn, dbName); err != nil {
		return nil, err
	}

	files, err := load(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse %s: %w", dbName, err)
	}
	defer func() {
		if err != nil {
			conn.Close()
		}
	}()

	for _, m := range files {
		stmts, err := splitStatements(m.sql)
		if err != nil {
			return nil, fmt.Errorf("parse migration %s: %w", m.name, err)
		}
		// The native driver rejects multi-statement Exec.
		for _, stmt := range stmts {
			if err := conn.Exec(ctx, stmt); err != nil {
				return nil, fmt.Errorf("apply migration %s: %w", m.name, err)
			}
		}
	}
	return conn, nil
}

// ensureDatabase creates dbName through a connection to the server default
// database.
func ensureDatabase(ctx context.Context, dsn, dbName string) error {
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse admin: %w", err)
	}
	defer admin.Close()

	if err := admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+dbName); err != nil {
		return fmt.Errorf("create database %s: %w", dbName, err)
	}
	return nil
}

// splitStatements splits SQL on semicolons outside single-quoted literals
// and drops -- line comments. Literals may escape quotes as '' or \'.
func splitStatements(input string) ([]string, error) {
	var (
		stmts []string
		cur   strings.Builder
	)
	flush := func() {
		if stmt := strings.TrimSpace(cur.String()); stmt != "" {
			stmts = append(stmts, stmt)
		}
		cur.Reset()
	}

	inString := false
	for i := 0; i < len(input); i++ {
		ch := input[i]
		switch {
		case inString:
			cur.WriteByte(ch)
			switch {
			case ch == '\\' && i+1 < len(input):
				i++
				cur.WriteByte(input[i])
			case ch == '\'' && i+1 < len(input) && input[i+1] == '\'':
				i++
				cur.WriteByte(input[i])
			case ch == '\'':
				inString = false
			}
		case ch == '\'':
			inString = true
			cur.WriteByte(ch)
		case ch == '-' && i+1 < len(input) && input[i+1] == '-':
			for i < len(input) && input[i] != '\n' {
				i++
			}
			cur.WriteByte('\n')
		case ch == ';':
			flush()
		default:
			cur.WriteByte(ch)
		}
	}
	if inString {
		return nil, fmt.Errorf("unterminated string literal")
	}
	flush()
	return stmts, nil
}

func databaseFromDSN(dsn string) (string, error) {
	opts, err := chstore.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	if opts.Auth.Database == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	return opts.Auth.Database, nil
}
