// Package shifts contains handlers, services and structures used to manage the weekly working hours
// of the veterinarians, which bound the times appointments can be scheduled at.
package shifts

import (
	"context"
	"fmt"
	"net/http"
	"vet-clinic/internal/apierrors"
	"vet-clinic/internal/configs"
	"vet-clinic/internal/database"
	"vet-clinic/internal/metrics"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Reader determines the methods available to read the veterinarians availability.
type Reader interface {

	// FindVeterinarian finds a veterinarian by its UUID, failing with a not found error if there
	// is none.
	FindVeterinarian(ctx context.Context, veterinarianUUID uuid.UUID) (*Veterinarian, error)

	// ListVeterinarians lists the veterinarians, optionally only those whose name contains the
	// given text.
	ListVeterinarians(ctx context.Context, name string) ([]Veterinarian, error)

	// ListBlocks lists every block of the veterinarian, ordered by weekday and start time.
	ListBlocks(ctx context.Context, veterinarianUUID uuid.UUID) ([]Block, error)

	// WorkingBlocks lists the blocks of the veterinarian in the given weekday.
	WorkingBlocks(ctx context.Context, veterinarianID int64, weekday Weekday) ([]Block, error)
}

// Writer determines the methods available to change the veterinarians availability.
type Writer interface {

	// CreateBlocks opens the requested window in each requested weekday. Each weekday succeeds or
	// fails on its own; rejected weekdays are reported in the result.
	CreateBlocks(ctx context.Context, veterinarianUUID uuid.UUID, request BlockRequest) (*BatchResult, error)

	// DeleteBlock deletes the block with the given UUID.
	DeleteBlock(ctx context.Context, blockUUID uuid.UUID) error
}

// Service determines the methods used to manage the veterinarians availability.
type Service interface {
	Reader
	Writer
}

type defaultService struct {
	repository Repository
	cache      *Cache
}

// NewService creates a new shifts service. Reads of working blocks go through a Redis cache when
// a client is given.
func NewService(config configs.Config, dbConn database.Connection, redisClient *redis.Client, logger zerolog.Logger) Service {
	repository := NewRepository(dbConn)
	var cache *Cache
	if redisClient != nil {
		cache = NewCache(redisClient, repository, config.CacheTTL(), logger)
	}
	return newService(repository, cache)
}

func newService(repository Repository, cache *Cache) *defaultService {
	return &defaultService{repository: repository, cache: cache}
}

func (d defaultService) FindVeterinarian(ctx context.Context, veterinarianUUID uuid.UUID) (*Veterinarian, error) {
	veterinarian, err := d.repository.FindVeterinarianByUUID(ctx, veterinarianUUID)
	if err != nil {
		return nil, fmt.Errorf("could not find veterinarian: %w", err)
	}
	if veterinarian == nil {
		return nil, apierrors.NewAPIError(apierrors.WithDetail(ErrVeterinarianNotFound), apierrors.WithHTTPStatusCode(http.StatusNotFound))
	}
	return veterinarian, nil
}

func (d defaultService) ListVeterinarians(ctx context.Context, name string) ([]Veterinarian, error) {
	veterinarians, err := d.repository.ListVeterinarians(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("could not list veterinarians: %w", err)
	}
	return veterinarians, nil
}

func (d defaultService) ListBlocks(ctx context.Context, veterinarianUUID uuid.UUID) ([]Block, error) {
	veterinarian, err := d.FindVeterinarian(ctx, veterinarianUUID)
	if err != nil {
		return nil, err
	}
	blocks, err := d.repository.ListBlocks(ctx, veterinarian.ID)
	if err != nil {
		return nil, fmt.Errorf("could not list blocks: %w", err)
	}
	return blocks, nil
}

func (d defaultService) WorkingBlocks(ctx context.Context, veterinarianID int64, weekday Weekday) ([]Block, error) {
	var reader BlockReader = d.repository
	if d.cache != nil {
		reader = d.cache
	}
	blocks, err := reader.ListWeekdayBlocks(ctx, veterinarianID, weekday)
	if err != nil {
		return nil, fmt.Errorf("could not list %s blocks: %w", weekday, err)
	}
	return blocks, nil
}

func (d defaultService) invalidate(ctx context.Context, veterinarianID int64, weekday Weekday) error {
	if d.cache == nil {
		return nil
	}
	if err := d.cache.Invalidate(ctx, veterinarianID, weekday); err != nil {
		return fmt.Errorf("could not invalidate availability cache: %w", err)
	}
	return nil
}

// createBlock validates the block against the stored ones and inserts it. The existing blocks are
// read from the database, never from the cache.
func (d defaultService) createBlock(ctx context.Context, block Block) (Block, error) {
	existing, err := d.repository.ListWeekdayBlocks(ctx, block.VeterinarianID, block.Weekday)
	if err != nil {
		return block, fmt.Errorf("could not list %s blocks: %w", block.Weekday, err)
	}
	if err = ValidateBlock(block, existing); err != nil {
		return block, err
	}
	block.ID, err = d.repository.InsertBlock(ctx, block)
	if err != nil {
		return block, err
	}
	return block, d.invalidate(ctx, block.VeterinarianID, block.Weekday)
}

func (d defaultService) CreateBlocks(ctx context.Context, veterinarianUUID uuid.UUID, request BlockRequest) (*BatchResult, error) {
	veterinarian, err := d.FindVeterinarian(ctx, veterinarianUUID)
	if err != nil {
		return nil, err
	}
	if err = request.Validate(); err != nil {
		return nil, err
	}
	result := &BatchResult{Blocks: make([]Block, 0, len(request.Weekdays)), Failures: make([]Failure, 0)}
	for _, weekday := range request.Weekdays {
		block, err := d.createBlock(ctx, Block{
			UUID:           uuid.New(),
			VeterinarianID: veterinarian.ID,
			Weekday:        weekday,
			Start:          *request.Start,
			End:            *request.End,
		})
		switch err.(type) {
		case nil:
			result.Created++
			result.Blocks = append(result.Blocks, block)
		case *InvalidIntervalError:
			metrics.SchedulingRejected("invalid_interval")
			result.Failures = append(result.Failures, Failure{Weekday: weekday, Message: fmt.Sprintf("%s: %s", weekday, err)})
		case *OverlapError:
			metrics.SchedulingRejected("block_overlap")
			result.Failures = append(result.Failures, Failure{Weekday: weekday, Message: fmt.Sprintf("%s: %s", weekday, err)})
		default:
			return nil, fmt.Errorf("could not create %s block: %w", weekday, err)
		}
	}
	return result, nil
}

func (d defaultService) DeleteBlock(ctx context.Context, blockUUID uuid.UUID) error {
	block, err := d.repository.FindBlockByUUID(ctx, blockUUID)
	if err != nil {
		return fmt.Errorf("could not find block: %w", err)
	}
	notFound := apierrors.NewAPIError(apierrors.WithDetail(ErrBlockNotFound), apierrors.WithHTTPStatusCode(http.StatusNotFound))
	if block == nil {
		return notFound
	}
	if err = d.repository.DeleteBlock(ctx, block.ID); err != nil {
		if IsNotFound(err) {
			return notFound
		}
		return fmt.Errorf("could not delete block: %w", err)
	}
	return d.invalidate(ctx, block.VeterinarianID, block.Weekday)
}
