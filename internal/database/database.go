// Package database contains useful functions to handle database operations, as create connections,
// close resources, run transactions and also helpers to parse result into structs.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"vet-clinic/internal/configs"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	uniqueViolation    = pq.ErrorCode("23505")
	exclusionViolation = pq.ErrorCode("23P01")
)

type defaultConnection struct {
	db     *sql.DB
	logger zerolog.Logger
}

// Connection holds a DB instance.
type Connection interface {
	DB() *sql.DB
	CreateContext(ctx context.Context) (context.Context, context.CancelFunc)
	Close()
}

// DB gets the DB instance associated to the connection.
func (d *defaultConnection) DB() *sql.DB {
	return d.db
}

// CreateContext creates a new context based on the given one, with a default timeout.
func (d *defaultConnection) CreateContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := 5 * time.Second
	return context.WithTimeout(ctx, timeout)
}

// NewConnection creates a new DB instance based on the given configurations. The connection reports
// through the given logger; CloseRows and WithTransaction, which have no connection at hand, use the
// global zerolog logger.
func NewConnection(config configs.Config, logger zerolog.Logger) (Connection, error) {
	db, err := sql.Open(config.DatabaseDriver(), config.DatabaseDSN())
	if err != nil {
		return nil, fmt.Errorf("could not create a connection: %w", err)
	}
	db.SetConnMaxLifetime(time.Minute * 3)
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("database is not reachable: %w", err)
	}
	return &defaultConnection{db: db, logger: logger}, nil
}

// Close closes the DB connection.
func (d *defaultConnection) Close() {
	if err := d.DB().Close(); err != nil {
		d.logger.Error().Err(err).Msg("could not close the database connection")
		return
	}
	d.logger.Info().Msg("database connection released successfully")
}

// CloseRows closes the given rows.
func CloseRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		log.Error().Err(err).Msg("could not close the given rows")
	}
}

// WithTransaction runs fn inside a transaction, committing it if fn succeeds and rolling it back
// otherwise.
func WithTransaction(ctx context.Context, dbConn Connection, fn func(tx *sql.Tx) error) error {
	tx, err := dbConn.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback the transaction")
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}
	return nil
}

// IsUniqueViolation checks if the given error was raised by an unique constraint.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// IsExclusionViolation checks if the given error was raised by an exclusion constraint.
func IsExclusionViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == exclusionViolation
}

// ContainsPattern builds an ILIKE pattern matching the values that contain the given text, which
// is matched literally.
func ContainsPattern(text string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(text)) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// TransformRow transforms the current row given by the into the given struct.
// The transformation is performed by reflection, using a field tag called dbfield for that.
// Every column must match a tagged field.
func TransformRow(rows *sql.Rows, model interface{}) error {
	modelType := reflect.TypeOf(model).Elem()
	modelValue := reflect.ValueOf(model)
	columns, err := rows.Columns()
	if err != nil {
		return err
	}
	values := make([]interface{}, 0, len(columns))
	for _, column := range columns {
		found := false
		for i := 0; i < modelType.NumField(); i++ {
			if modelType.Field(i).Tag.Get("dbfield") != column {
				continue
			}
			values = append(values, modelValue.Elem().Field(i).Addr().Interface())
			found = true
			break
		}
		if !found {
			return fmt.Errorf("no field tagged for column %q in %s", column, modelType.Name())
		}
	}
	return rows.Scan(values...)
}
