package gormdb

import (
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/callbacks"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/migrator"
	"gorm.io/gorm/schema"
)

// Dialector adapts an already-open database/sql pool to gorm, so
// engines without a dedicated gorm driver still get a session. Quoting
// and parameter binding follow the wrapped driver's conventions.
type Dialector struct {
	DriverName string
	Conn       gorm.ConnPool

	// Numbered switches parameter binding to $N placeholders.
	Numbered bool
	// Quote is the identifier quote byte, backtick when zero.
	Quote byte
}

// New builds a Dialector for the named driver, selecting the quoting
// and binding style it expects.
func New(driverName string, conn gorm.ConnPool) Dialector {
	d := Dialector{DriverName: driverName, Conn: conn, Quote: '`'}
	switch driverName {
	case "postgres", "postgresql", "pgx":
		d.Numbered = true
		d.Quote = '"'
	}
	return d
}

func (d Dialector) Name() string {
	if d.DriverName == "" {
		return "sql"
	}
	return d.DriverName
}

func (d Dialector) Initialize(db *gorm.DB) error {
	if d.Conn == nil {
		return gorm.ErrInvalidDB
	}
	db.ConnPool = d.Conn
	callbacks.RegisterDefaultCallbacks(db, &callbacks.Config{})
	return nil
}

func (d Dialector) Migrator(db *gorm.DB) gorm.Migrator {
	return migrator.Migrator{Config: migrator.Config{
		DB:                          db,
		Dialector:                   d,
		CreateIndexAfterCreateTable: true,
	}}
}

func (d Dialector) DataTypeOf(field *schema.Field) string {
	switch field.DataType {
	case schema.Bool:
		return "BOOLEAN"
	case schema.Int, schema.Uint:
		return "INTEGER"
	case schema.Float:
		return "REAL"
	case schema.String:
		return "TEXT"
	case schema.Time:
		return "DATETIME"
	case schema.Bytes:
		return "BLOB"
	}
	return string(field.DataType)
}

func (d Dialector) DefaultValueOf(field *schema.Field) clause.Expression {
	return clause.Expr{SQL: "DEFAULT"}
}

func (d Dialector) BindVarTo(writer clause.Writer, stmt *gorm.Statement, v interface{}) {
	if d.Numbered {
		writer.WriteByte('$')
		writer.WriteString(strconv.Itoa(len(stmt.Vars)))
		return
	}
	writer.WriteByte('?')
}

// QuoteTo quotes an identifier, doubling embedded quote bytes.
func (d Dialector) QuoteTo(writer clause.Writer, str string) {
	quote := d.Quote
	if quote == 0 {
		quote = '`'
	}
	writer.WriteByte(quote)
	for i := 0; i < len(str); i++ {
		if str[i] == quote {
			writer.WriteByte(quote)
		}
		writer.WriteByte(str[i])
	}
	writer.WriteByte(quote)
}

func (d Dialector) Explain(sql string, vars ...interface{}) string {
	return logger.ExplainSQL(sql, nil, `'`, vars...)
}
