package sqlrepo

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	mssql "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"github.com/hamed0406/uptimechecker/internal/config"
)

const pingTimeout = 5 * time.Second

// Open connects to the configured engine and pings it. Any error here is a
// connectivity failure: the caller should abort the cycle.
func Open(ctx context.Context, cfg config.Database) (*Store, error) {
	engine, err := config.ParseEngine(cfg.Engine)
	if err != nil {
		return nil, err
	}
	hostPort := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))

	switch engine {
	case config.EnginePostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(cfg.Username, cfg.Password),
			Host:   hostPort,
			Path:   "/" + cfg.Name,
		}
		if cfg.SSLMode != "" {
			u.RawQuery = url.Values{"sslmode": {cfg.SSLMode}}.Encode()
		}
		return OpenPostgres(ctx, u.String())

	case config.EngineMySQL:
		mc := mysql.NewConfig()
		mc.Net = "tcp"
		mc.Addr = hostPort
		mc.User = cfg.Username
		mc.Passwd = cfg.Password
		mc.DBName = cfg.Name
		mc.ParseTime = true
		mc.Loc = time.UTC
		conn, err := mysql.NewConnector(mc)
		if err != nil {
			return nil, fmt.Errorf("mysql connector: %w", err)
		}
		return ping(ctx, New(sql.OpenDB(conn), MySQL))

	case config.EngineMSSQL:
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(cfg.Username, cfg.Password),
			Host:     hostPort,
			RawQuery: url.Values{"database": {cfg.Name}}.Encode(),
		}
		conn, err := mssql.NewConnector(u.String())
		if err != nil {
			return nil, fmt.Errorf("mssql connector: %w", err)
		}
		return ping(ctx, New(sql.OpenDB(conn), MSSQL))

	case config.EngineSQLite:
		return OpenSQLite(ctx, cfg.Name)
	}
	return nil, fmt.Errorf("engine %q has no SQL store", engine)
}

// OpenPostgres builds a pgx pool for dsn and exposes it through database/sql.
func OpenPostgres(ctx context.Context, dsn string) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.ParseConfig: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	s := New(stdlib.OpenDBFromPool(pool), Postgres)
	s.onClose = pool.Close
	return ping(ctx, s)
}

// OpenSQLite opens (creating if needed) the database file at path.
// SQLite allows a single writer, so the pool is capped at one connection.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := New(db, SQLite)
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("sqlite pragma: %w", err)
	}
	return ping(ctx, s)
}

func ping(ctx context.Context, s *Store) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("ping %s: %w", s.dialect.Name, err)
	}
	return s, nil
}
