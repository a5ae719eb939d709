package auth

import (
	"context"
	"database/sql"
	"errors"
	"vet-clinic/internal/database"

	"github.com/google/uuid"
)

const (
	findUserByUUIDQuery  = "SELECT id, uuid, email, role FROM tb_user WHERE uuid = $1"
	findUserByEmailQuery = "SELECT id, uuid, email, role FROM tb_user WHERE lower(email) = lower($1)"
	findPasswordQuery    = "SELECT password FROM tb_user WHERE id = $1"
)

// Repository provides access to the staff users.
type Repository interface {

	// FindUserByUUID finds a user by its UUID. If no user was found, nil is returned.
	FindUserByUUID(ctx context.Context, uuid uuid.UUID) (*User, error)

	// FindUserByEmail finds a user by its email, ignoring case. If no user was found, nil is returned.
	FindUserByEmail(ctx context.Context, email string) (*User, error)

	// CheckUserPassword checks if the stored password of the given user matches the given one.
	CheckUserPassword(ctx context.Context, user User, password string) (bool, error)
}

type defaultRepository struct {
	dbConn database.Connection
}

func newRepository(dbConn database.Connection) Repository {
	return &defaultRepository{dbConn: dbConn}
}

func (d defaultRepository) findUser(ctx context.Context, query string, arg interface{}) (*User, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	if !rows.Next() {
		return nil, rows.Err()
	}
	user := new(User)
	if err = database.TransformRow(rows, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (d defaultRepository) FindUserByUUID(ctx context.Context, uuid uuid.UUID) (*User, error) {
	return d.findUser(ctx, findUserByUUIDQuery, uuid.String())
}

func (d defaultRepository) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	return d.findUser(ctx, findUserByEmailQuery, email)
}

func (d defaultRepository) CheckUserPassword(ctx context.Context, user User, password string) (bool, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	var hashedPass string
	err := d.dbConn.DB().QueryRowContext(ctx, findPasswordQuery, user.ID).Scan(&hashedPass)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return ComparePasswords(hashedPass, password), nil
}
