package sqlrepo

import (
	"fmt"
	"strconv"
	"strings"
)

type idStrategy int

const (
	idLastInsert idStrategy = iota // sql.Result.LastInsertId
	idReturning                    // INSERT ... RETURNING alert_id
	idOutput                       // INSERT ... OUTPUT INSERTED.alert_id
)

// Dialect holds everything that differs between engines. Query text lives
// in store.go, written once with "?" placeholders.
type Dialect struct {
	Name        string
	placeholder func(n int) string
	limit       func(n int) string
	ids         idStrategy
	schema      []string
}

// Rebind rewrites "?" placeholders into the dialect's syntax.
func (d Dialect) Rebind(q string) string {
	if d.placeholder == nil {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 16)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteString(d.placeholder(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// Limit returns the clause that follows ORDER BY to cap the row count.
func (d Dialect) Limit(n int) string {
	return d.limit(n)
}

func limitClause(n int) string { return " LIMIT " + strconv.Itoa(n) }

var MySQL = Dialect{
	Name:  "mysql",
	limit: limitClause,
	ids:   idLastInsert,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS health_events (
			id                      BIGINT AUTO_INCREMENT PRIMARY KEY,
			endpoint_url            VARCHAR(255) NOT NULL,
			status_code             INT NOT NULL,
			classification          VARCHAR(50) NOT NULL,
			response_time           VARCHAR(50) NOT NULL,
			max_response_time       DOUBLE NOT NULL,
			acceptable_status_codes TEXT NOT NULL,
			partition_key           INT NOT NULL,
			created_at              DATETIME(6) NOT NULL,
			INDEX idx_health_events_lookup (endpoint_url, classification, created_at),
			INDEX idx_health_events_partition (partition_key)
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			alert_id      BIGINT AUTO_INCREMENT PRIMARY KEY,
			created_at    DATETIME(6) NOT NULL,
			endpoint_url  VARCHAR(255) NOT NULL,
			issue_type    VARCHAR(50) NOT NULL,
			alert_message TEXT NOT NULL,
			INDEX idx_alerts_lookup (endpoint_url, issue_type, created_at)
		)`,
	},
}

var Postgres = Dialect{
	Name:        "postgres",
	placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
	limit:       limitClause,
	ids:         idReturning,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS health_events (
			id                      BIGSERIAL PRIMARY KEY,
			endpoint_url            VARCHAR(255) NOT NULL,
			status_code             INTEGER NOT NULL,
			classification          VARCHAR(50) NOT NULL,
			response_time           VARCHAR(50) NOT NULL,
			max_response_time       DOUBLE PRECISION NOT NULL,
			acceptable_status_codes TEXT NOT NULL,
			partition_key           INTEGER NOT NULL,
			created_at              TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_health_events_lookup
			ON health_events (endpoint_url, classification, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_health_events_partition ON health_events (partition_key)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			alert_id      BIGSERIAL PRIMARY KEY,
			created_at    TIMESTAMPTZ NOT NULL,
			endpoint_url  VARCHAR(255) NOT NULL,
			issue_type    VARCHAR(50) NOT NULL,
			alert_message TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_lookup ON alerts (endpoint_url, issue_type, created_at)`,
	},
}

// MSSQL has no CREATE TABLE IF NOT EXISTS; each table is guarded by OBJECT_ID.
var MSSQL = Dialect{
	Name:        "mssql",
	placeholder: func(n int) string { return "@p" + strconv.Itoa(n) },
	limit: func(n int) string {
		return fmt.Sprintf(" OFFSET 0 ROWS FETCH NEXT %d ROWS ONLY", n)
	},
	ids: idOutput,
	schema: []string{
		`IF OBJECT_ID(N'health_events', N'U') IS NULL
		BEGIN
			CREATE TABLE health_events (
				id                      BIGINT IDENTITY(1,1) PRIMARY KEY,
				endpoint_url            NVARCHAR(255) NOT NULL,
				status_code             INT NOT NULL,
				classification          NVARCHAR(50) NOT NULL,
				response_time           NVARCHAR(50) NOT NULL,
				max_response_time       FLOAT NOT NULL,
				acceptable_status_codes NVARCHAR(MAX) NOT NULL,
				partition_key           INT NOT NULL,
				created_at              DATETIME2 NOT NULL
			);
			CREATE INDEX idx_health_events_lookup ON health_events (endpoint_url, classification, created_at);
			CREATE INDEX idx_health_events_partition ON health_events (partition_key);
		END`,
		`IF OBJECT_ID(N'alerts', N'U') IS NULL
		BEGIN
			CREATE TABLE alerts (
				alert_id      BIGINT IDENTITY(1,1) PRIMARY KEY,
				created_at    DATETIME2 NOT NULL,
				endpoint_url  NVARCHAR(255) NOT NULL,
				issue_type    NVARCHAR(50) NOT NULL,
				alert_message NVARCHAR(MAX) NOT NULL
			);
			CREATE INDEX idx_alerts_lookup ON alerts (endpoint_url, issue_type, created_at);
		END`,
	},
}

var SQLite = Dialect{
	Name:  "sqlite",
	limit: limitClause,
	ids:   idLastInsert,
	schema: []string{
		`CREATE TABLE IF NOT EXISTS health_events (
			id                      INTEGER PRIMARY KEY AUTOINCREMENT,
			endpoint_url            TEXT NOT NULL,
			status_code             INTEGER NOT NULL,
			classification          TEXT NOT NULL,
			response_time           TEXT NOT NULL,
			max_response_time       REAL NOT NULL,
			acceptable_status_codes TEXT NOT NULL,
			partition_key           INTEGER NOT NULL,
			created_at              TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_health_events_lookup
			ON health_events (endpoint_url, classification, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_health_events_partition ON health_events (partition_key)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			alert_id      INTEGER PRIMARY KEY AUTOINCREMENT,
			created_at    TIMESTAMP NOT NULL,
			endpoint_url  TEXT NOT NULL,
			issue_type    TEXT NOT NULL,
			alert_message TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_lookup ON alerts (endpoint_url, issue_type, created_at)`,
	},
}
