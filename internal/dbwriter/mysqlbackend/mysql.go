// Package mysqlbackend implements dbwriter.Backend against MySQL/MariaDB,
// styled on the one database/sql consumer in the corpus: plain sql.Open,
// sql.Exec for DDL, and result.LastInsertId for inserts.
package mysqlbackend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/5342/C5SIGMA/internal/dbwriter"
	"github.com/5342/C5SIGMA/internal/xerrors"
	"github.com/5342/C5SIGMA/pkg/retry"
)

// Backend is a dbwriter.Backend backed by MySQL. Identifiers are quoted
// with backticks and strings use the 8-bit VARCHAR/TEXT precision cap.
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
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return xerrors.WrapFatal(xerrors.ErrDatabaseUnreachable, "mysqlbackend", "Connect", err.Error())
	}

	pingErr := retry.Do(ctx, xerrors.DefaultRetryPolicy().ToRetryConfig(), func() error {
		return db.PingContext(ctx)
	})
	if pingErr != nil {
		db.Close()
		return xerrors.WrapFatal(xerrors.ErrDatabaseUnreachable, "mysqlbackend", "Connect", pingErr.Error())
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

// IntrospectTable reads column definitions from information_schema.
func (b *Backend) IntrospectTable(ctx context.Context, table string) (*dbwriter.TableDefinition, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT COLUMN_NAME, DATA_TYPE, CHARACTER_MAXIMUM_LENGTH
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?`, table)
	if err != nil {
		return nil, xerrors.WrapTransient(err, "mysqlbackend", "IntrospectTable", "query information_schema")
	}
	defer rows.Close()

	def := &dbwriter.TableDefinition{Name: table, Columns: map[string]dbwriter.ColumnDefinition{}}
	seen := false
	for rows.Next() {
		seen = true
		var name, dataType string
		var maxLen sql.NullInt64
		if err := rows.Scan(&name, &dataType, &maxLen); err != nil {
			return nil, xerrors.WrapTransient(err, "mysqlbackend", "IntrospectTable", "scan column row")
		}
		def.Columns[name] = dbwriter.ColumnDefinition{
			Name:         name,
			Semantic:     semanticFromDataType(dataType),
			SQLType:      strings.ToUpper(dataType),
			SQLPrecision: int(maxLen.Int64),
		}
	}
	if !seen {
		return nil, fmt.Errorf("table %q not found", table)
	}
	return def, nil
}

func semanticFromDataType(dataType string) dbwriter.SemanticType {
	switch strings.ToLower(dataType) {
	case "bit", "tinyint":
		return dbwriter.SemanticBoolean
	case "int":
		return dbwriter.SemanticInt32
	case "bigint":
		return dbwriter.SemanticInt64
	case "numeric", "decimal":
		return dbwriter.SemanticBigNumeric
	case "float", "double":
		return dbwriter.SemanticFloat
	case "datetime", "timestamp":
		return dbwriter.SemanticTimestamp
	case "varchar", "text":
		return dbwriter.SemanticString
	default:
		return dbwriter.SemanticString
	}
}

func (b *Backend) CreateTable(ctx context.Context, def *dbwriter.TableDefinition) error {
	var cols []string
	cols = append(cols, "`_id` BIGINT AUTO_INCREMENT PRIMARY KEY")
	for name, col := range def.Columns {
		sqlType, _ := b.SQLType(col.Semantic, col.SQLPrecision)
		cols = append(cols, fmt.Sprintf("`%s` %s", name, sqlType))
	}
	stmt := fmt.Sprintf("CREATE TABLE `%s` (%s)", def.Name, strings.Join(cols, ", "))
	if _, err := b.db.ExecContext(ctx, stmt); err != nil {
		return xerrors.WrapTransient(err, "mysqlbackend", "CreateTable", "create table "+def.Name)
	}
	return nil
}

func (b *Backend) AddColumn(ctx context.Context, table string, col dbwriter.ColumnDefinition) error {
	sqlType, _ := b.SQLType(col.Semantic, col.SQLPrecision)
	stmt := fmt.Sprintf("ALTER TABLE `%s` ADD COLUMN `%s` %s", table, col.Name, sqlType)
	if _, err := b.db.ExecContext(ctx, stmt); err != nil {
		return xerrors.WrapTransient(err, "mysqlbackend", "AddColumn", "add column "+table+"."+col.Name)
	}
	return nil
}

func (b *Backend) AlterColumn(ctx context.Context, table string, col dbwriter.ColumnDefinition) error {
	sqlType, _ := b.SQLType(col.Semantic, col.SQLPrecision)
	stmt := fmt.Sprintf("ALTER TABLE `%s` MODIFY COLUMN `%s` %s", table, col.Name, sqlType)
	if _, err := b.db.ExecContext(ctx, stmt); err != nil {
		return xerrors.WrapTransient(err, "mysqlbackend", "AlterColumn", "alter column "+table+"."+col.Name)
	}
	return nil
}

func (b *Backend) AddForeignKey(ctx context.Context, table, column, refTable string) error {
	name := fmt.Sprintf("fk_%s_%s", table, strings.ReplaceAll(uuid.NewString(), "-", ""))
	stmt := fmt.Sprintf("ALTER TABLE `%s` ADD CONSTRAINT `%s` FOREIGN KEY (`%s`) REFERENCES `%s`(`_id`)",
		table, name, column, refTable)
	if _, err := b.db.ExecContext(ctx, stmt); err != nil {
		return xerrors.WrapTransient(err, "mysqlbackend", "AddForeignKey", "add foreign key on "+table+"."+column)
	}
	return nil
}

func (b *Backend) InsertRow(ctx context.Context, table string, cols []string, vals []any) (int64, error) {
	placeholders := make([]string, len(cols))
	quoted := make([]string, len(cols))
	for i, c := range cols {
		placeholders[i] = "?"
		quoted[i] = "`" + c + "`"
	}
	stmt := fmt.Sprintf("INSERT INTO `%s` (%s) VALUES (%s)", table, strings.Join(quoted, ", "), strings.Join(placeholders, ", "))
	result, err := b.db.ExecContext(ctx, stmt, vals...)
	if err != nil {
		return 0, xerrors.WrapTransient(err, "mysqlbackend", "InsertRow", "insert into "+table)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, xerrors.WrapTransient(err, "mysqlbackend", "InsertRow", "read last insert id")
	}
	return id, nil
}

func (b *Backend) QuoteIdentifier(name string) string {
	return "`" + name + "`"
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
		return "NUMERIC(20,0)", 20
	case dbwriter.SemanticFloat:
		return "FLOAT", 0
	case dbwriter.SemanticTimestamp:
		return "DATETIME(6)", 0
	case dbwriter.SemanticDuration:
		return "FLOAT", 0
	case dbwriter.SemanticBytes:
		return fmt.Sprintf("VARCHAR(%d)", clamp(precision)), clamp(precision)
	case dbwriter.SemanticGUID:
		return "VARCHAR(36)", 36
	default:
		return fmt.Sprintf("VARCHAR(%d)", clamp(precision)), clamp(precision)
	}
}

func clamp(precision int) int {
	if precision <= 0 {
		return 250
	}
	if precision > 8000 {
		return 8000
	}
	return precision
}
