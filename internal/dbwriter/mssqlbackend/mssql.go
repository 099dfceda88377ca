// Package mssqlbackend implements dbwriter.Backend against SQL Server,
// styled on the one database/sql consumer in the corpus but swapping the
// driver, quoting, and INSERT...OUTPUT idiom for T-SQL.
package mssqlbackend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/google/uuid"

	"github.com/5342/C5SIGMA/internal/dbwriter"
	"github.com/5342/C5SIGMA/internal/xerrors"
	"github.com/5342/C5SIGMA/pkg/retry"
)

// Backend is a dbwriter.Backend backed by SQL Server. Identifiers are
// bracket-quoted and strings default to the 16-bit NVARCHAR precision cap.
type Backend struct {
	db *sql.DB
}

// New returns an unconnected Backend; call Connect before use.
func New() *Backend {
	return &Backend{}
}

// Connect opens the database and retries the initial ping under the
// default reconnect policy, since the backend is often brought up before
// the database is accepting connections in containerized deployments.
func (b *Backend) Connect(ctx context.Context, dsn string) error {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return xerrors.WrapFatal(xerrors.ErrDatabaseUnreachable, "mssqlbackend", "Connect", err.Error())
	}

	pingErr := retry.Do(ctx, xerrors.DefaultRetryPolicy().ToRetryConfig(), func() error {
		return db.PingContext(ctx)
	})
	if pingErr != nil {
		db.Close()
		return xerrors.WrapFatal(xerrors.ErrDatabaseUnreachable, "mssqlbackend", "Connect", pingErr.Error())
	}
	b.db = db
	return nil
}

func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

func (b *Backend) IntrospectTable(ctx context.Context, table string) (*dbwriter.TableDefinition, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT c.name, t.name, c.max_length
		FROM sys.columns c
		JOIN sys.types t ON c.user_type_id = t.user_type_id
		WHERE c.object_id = OBJECT_ID(@p1)`, table)
	if err != nil {
		return nil, xerrors.WrapTransient(err, "mssqlbackend", "IntrospectTable", "query sys.columns")
	}
	defer rows.Close()

	def := &dbwriter.TableDefinition{Name: table, Columns: map[string]dbwriter.ColumnDefinition{}}
	seen := false
	for rows.Next() {
		seen = true
		var name, sqlType string
		var maxLen int
		if err := rows.Scan(&name, &sqlType, &maxLen); err != nil {
			return nil, xerrors.WrapTransient(err, "mssqlbackend", "IntrospectTable", "scan column row")
		}
		if t := strings.ToLower(sqlType); (t == "nvarchar" || t == "nchar") && maxLen > 0 {
			maxLen /= 2 // max_length is in bytes; these types store two bytes per character
		}
		def.Columns[name] = dbwriter.ColumnDefinition{
			Name:         name,
			Semantic:     semanticFromSQLType(sqlType),
			SQLType:      strings.ToUpper(sqlType),
			SQLPrecision: maxLen,
		}
	}
	if !seen {
		return nil, fmt.Errorf("table %q not found", table)
	}
	return def, nil
}

func semanticFromSQLType(sqlType string) dbwriter.SemanticType {
	switch strings.ToLower(sqlType) {
	case "bit":
		return dbwriter.SemanticBoolean
	case "int":
		return dbwriter.SemanticInt32
	case "bigint":
		return dbwriter.SemanticInt64
	case "numeric", "decimal":
		return dbwriter.SemanticBigNumeric
	case "float", "real":
		return dbwriter.SemanticFloat
	case "datetime2", "datetime":
		return dbwriter.SemanticTimestamp
	case "nvarchar", "varchar":
		return dbwriter.SemanticString
	case "uniqueidentifier":
		return dbwriter.SemanticGUID
	default:
		return dbwriter.SemanticString
	}
}

func (b *Backend) CreateTable(ctx context.Context, def *dbwriter.TableDefinition) error {
	var cols []string
	cols = append(cols, "[_id] BIGINT IDENTITY(1,1) PRIMARY KEY")
	for name, col := range def.Columns {
		sqlType, _ := b.SQLType(col.Semantic, col.SQLPrecision)
		cols = append(cols, fmt.Sprintf("[%s] %s", name, sqlType))
	}
	stmt := fmt.Sprintf("CREATE TABLE [%s] (%s)", def.Name, strings.Join(cols, ", "))
	if _, err := b.db.ExecContext(ctx, stmt); err != nil {
		return xerrors.WrapTransient(err, "mssqlbackend", "CreateTable", "create table "+def.Name)
	}
	return nil
}

func (b *Backend) AddColumn(ctx context.Context, table string, col dbwriter.ColumnDefinition) error {
	sqlType, _ := b.SQLType(col.Semantic, col.SQLPrecision)
	stmt := fmt.Sprintf("ALTER TABLE [%s] ADD [%s] %s", table, col.Name, sqlType)
	if _, err := b.db.ExecContext(ctx, stmt); err != nil {
		return xerrors.WrapTransient(err, "mssqlbackend", "AddColumn", "add column "+table+"."+col.Name)
	}
	return nil
}

func (b *Backend) AlterColumn(ctx context.Context, table string, col dbwriter.ColumnDefinition) error {
	sqlType, _ := b.SQLType(col.Semantic, col.SQLPrecision)
	stmt := fmt.Sprintf("ALTER TABLE [%s] ALTER COLUMN [%s] %s", table, col.Name, sqlType)
	if _, err := b.db.ExecContext(ctx, stmt); err != nil {
		return xerrors.WrapTransient(err, "mssqlbackend", "AlterColumn", "alter column "+table+"."+col.Name)
	}
	return nil
}

func (b *Backend) AddForeignKey(ctx context.Context, table, column, refTable string) error {
	name := fmt.Sprintf("fk_%s_%s", table, strings.ReplaceAll(uuid.NewString(), "-", ""))
	stmt := fmt.Sprintf("ALTER TABLE [%s] ADD CONSTRAINT [%s] FOREIGN KEY ([%s]) REFERENCES [%s]([_id])",
		table, name, column, refTable)
	if _, err := b.db.ExecContext(ctx, stmt); err != nil {
		return xerrors.WrapTransient(err, "mssqlbackend", "AddForeignKey", "add foreign key on "+table+"."+column)
	}
	return nil
}

func (b *Backend) InsertRow(ctx context.Context, table string, cols []string, vals []any) (int64, error) {
	placeholders := make([]string, len(cols))
	quoted := make([]string, len(cols))
	for i, c := range cols {
		placeholders[i] = fmt.Sprintf("@p%d", i+1)
		quoted[i] = "[" + c + "]"
	}
	stmt := fmt.Sprintf("INSERT INTO [%s] (%s) OUTPUT INSERTED.[_id] VALUES (%s)",
		table, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	var id int64
	if err := b.db.QueryRowContext(ctx, stmt, vals...).Scan(&id); err != nil {
		return 0, xerrors.WrapTransient(err, "mssqlbackend", "InsertRow", "insert into "+table)
	}
	return id, nil
}

func (b *Backend) QuoteIdentifier(name string) string {
	return "[" + name + "]"
}

func (b *Backend) SQLType(semantic dbwriter.SemanticType, precision int) (string, int) {
	switch semantic {
	case dbwriter.SemanticBoolean:
		return "BIT", 0
	case dbwriter.SemanticInt32:
		return "INT", 0
	case dbwriter.SemanticInt64:
		return "BIGINT", 0
	case dbwriter.SemanticBigNumeric:
		return "DECIMAL(20,0)", 20
	case dbwriter.SemanticFloat:
		return "FLOAT", 0
	case dbwriter.SemanticTimestamp:
		return "DATETIME2(7)", 0
	case dbwriter.SemanticDuration:
		return "FLOAT", 0
	case dbwriter.SemanticBytes:
		return fmt.Sprintf("NVARCHAR(%d)", clamp(precision)), clamp(precision)
	case dbwriter.SemanticGUID:
		return "UNIQUEIDENTIFIER", 36
	default:
		return fmt.Sprintf("NVARCHAR(%d)", clamp(precision)), clamp(precision)
	}
}

func clamp(precision int) int {
	if precision <= 0 {
		return 250
	}
	if precision > 4000 {
		return 4000
	}
	return precision
}
