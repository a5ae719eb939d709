package shifts

import (
	"context"
	"database/sql"
	"errors"
	"vet-clinic/internal/database"

	"github.com/google/uuid"
)

const (
	findVeterinarianByUUIDQuery = "SELECT id, uuid, user_id, name, email, mobile_phone, specialty FROM tb_veterinarian WHERE uuid = $1"
	listVeterinariansQuery      = "SELECT id, uuid, user_id, name, email, mobile_phone, specialty FROM tb_veterinarian WHERE name ILIKE $1 ORDER BY name"
	listBlocksQuery             = "SELECT id, uuid, veterinarian_id, weekday, start_time, end_time FROM tb_availability_block WHERE veterinarian_id = $1 ORDER BY weekday, start_time"
	listWeekdayBlocksQuery      = "SELECT id, uuid, veterinarian_id, weekday, start_time, end_time FROM tb_availability_block WHERE veterinarian_id = $1 AND weekday = $2 ORDER BY start_time"
	findBlockByUUIDQuery        = "SELECT id, uuid, veterinarian_id, weekday, start_time, end_time FROM tb_availability_block WHERE uuid = $1"
	insertBlockQuery            = "INSERT INTO tb_availability_block (uuid, veterinarian_id, weekday, start_time, end_time) VALUES ($1, $2, $3, $4, $5) RETURNING id"
	deleteBlockQuery            = "DELETE FROM tb_availability_block WHERE id = $1"
)

// BlockReader reads the blocks of a veterinarian in a given weekday.
type BlockReader interface {

	// ListWeekdayBlocks lists the blocks of the veterinarian in the weekday, ordered by start time.
	ListWeekdayBlocks(ctx context.Context, veterinarianID int64, weekday Weekday) ([]Block, error)
}

// Repository provides access to veterinarians and their availability blocks.
type Repository interface {
	BlockReader

	// FindVeterinarianByUUID finds a veterinarian by its UUID. If none was found, nil is returned.
	FindVeterinarianByUUID(ctx context.Context, uuid uuid.UUID) (*Veterinarian, error)

	// ListVeterinarians lists the veterinarians whose name contains the given text, ordered by name.
	ListVeterinarians(ctx context.Context, name string) ([]Veterinarian, error)

	// ListBlocks lists every block of the veterinarian, ordered by weekday and start time.
	ListBlocks(ctx context.Context, veterinarianID int64) ([]Block, error)

	// FindBlockByUUID finds a block by its UUID. If none was found, nil is returned.
	FindBlockByUUID(ctx context.Context, uuid uuid.UUID) (*Block, error)

	// InsertBlock inserts the block, returning its ID.
	InsertBlock(ctx context.Context, block Block) (int64, error)

	// DeleteBlock deletes the block with the given ID.
	DeleteBlock(ctx context.Context, id int64) error
}

type defaultRepository struct {
	dbConn database.Connection
}

// NewRepository creates a new Repository.
func NewRepository(dbConn database.Connection) Repository {
	return &defaultRepository{dbConn: dbConn}
}

func (d defaultRepository) findVeterinarian(ctx context.Context, query string, arg interface{}) (*Veterinarian, error) {
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
	veterinarian := new(Veterinarian)
	if err = database.TransformRow(rows, veterinarian); err != nil {
		return nil, err
	}
	return veterinarian, nil
}

func (d defaultRepository) FindVeterinarianByUUID(ctx context.Context, uuid uuid.UUID) (*Veterinarian, error) {
	return d.findVeterinarian(ctx, findVeterinarianByUUIDQuery, uuid.String())
}

func (d defaultRepository) ListVeterinarians(ctx context.Context, name string) ([]Veterinarian, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, listVeterinariansQuery, database.ContainsPattern(name))
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	veterinarians := make([]Veterinarian, 0)
	for rows.Next() {
		var veterinarian Veterinarian
		if err = database.TransformRow(rows, &veterinarian); err != nil {
			return nil, err
		}
		veterinarians = append(veterinarians, veterinarian)
	}
	return veterinarians, rows.Err()
}

func (d defaultRepository) listBlocks(ctx context.Context, query string, params ...interface{}) ([]Block, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	rows, err := d.dbConn.DB().QueryContext(ctx, query, params...)
	if err != nil {
		return nil, err
	}
	defer database.CloseRows(rows)
	blocks := make([]Block, 0)
	for rows.Next() {
		var block Block
		if err = database.TransformRow(rows, &block); err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, rows.Err()
}

func (d defaultRepository) ListBlocks(ctx context.Context, veterinarianID int64) ([]Block, error) {
	return d.listBlocks(ctx, listBlocksQuery, veterinarianID)
}

func (d defaultRepository) ListWeekdayBlocks(ctx context.Context, veterinarianID int64, weekday Weekday) ([]Block, error) {
	return d.listBlocks(ctx, listWeekdayBlocksQuery, veterinarianID, int(weekday))
}

func (d defaultRepository) FindBlockByUUID(ctx context.Context, uuid uuid.UUID) (*Block, error) {
	blocks, err := d.listBlocks(ctx, findBlockByUUIDQuery, uuid.String())
	if err != nil || len(blocks) == 0 {
		return nil, err
	}
	return &blocks[0], nil
}

func (d defaultRepository) InsertBlock(ctx context.Context, block Block) (int64, error) {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	var id int64
	err := d.dbConn.DB().QueryRowContext(ctx, insertBlockQuery, block.UUID.String(), block.VeterinarianID, int(block.Weekday), block.Start, block.End).Scan(&id)
	if database.IsUniqueViolation(err) || database.IsExclusionViolation(err) {
		return 0, &OverlapError{}
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (d defaultRepository) DeleteBlock(ctx context.Context, id int64) error {
	ctx, cancel := d.dbConn.CreateContext(ctx)
	defer cancel()
	result, err := d.dbConn.DB().ExecContext(ctx, deleteBlockQuery, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// IsNotFound checks if the error means the row to change no longer exists.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
