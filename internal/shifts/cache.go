package shifts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"vet-clinic/internal/logging"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const cacheKeyPrefix = "clinic:availability"

// Cache is a read-through cache of the blocks of a veterinarian per weekday, backed by Redis.
// Redis failures are logged and the read falls back to the underlying reader.
type Cache struct {
	client *redis.Client
	next   BlockReader
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCache creates a cache in front of the given reader.
func NewCache(client *redis.Client, next BlockReader, ttl time.Duration, logger zerolog.Logger) *Cache {
	return &Cache{client: client, next: next, ttl: ttl, logger: logger}
}

// cachedBlock keeps the fields of Block hidden from the API.
type cachedBlock struct {
	ID             int64     `json:"id"`
	UUID           uuid.UUID `json:"uuid"`
	VeterinarianID int64     `json:"veterinarian_id"`
	Weekday        Weekday   `json:"weekday"`
	Start          TimeOfDay `json:"start_time"`
	End            TimeOfDay `json:"end_time"`
}

func encodeBlocks(blocks []Block) ([]byte, error) {
	cached := make([]cachedBlock, len(blocks))
	for i, block := range blocks {
		cached[i] = cachedBlock(block)
	}
	return json.Marshal(cached)
}

func decodeBlocks(data []byte) ([]Block, error) {
	var cached []cachedBlock
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	blocks := make([]Block, len(cached))
	for i, block := range cached {
		blocks[i] = Block(block)
	}
	return blocks, nil
}

func cacheKey(veterinarianID int64, weekday Weekday) string {
	return fmt.Sprintf("%s:%d:%d", cacheKeyPrefix, veterinarianID, weekday)
}

// generationKey counts the invalidations of a cache key. An entry is only stored when the count
// did not change while the blocks were read from the database.
func generationKey(key string) string {
	return key + ":gen"
}

var errStaleRead = errors.New("blocks changed while they were read")

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func generation(ctx context.Context, client getter, key string) (int64, error) {
	count, err := client.Get(ctx, generationKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return count, err
}

func (c *Cache) ListWeekdayBlocks(ctx context.Context, veterinarianID int64, weekday Weekday) ([]Block, error) {
	key := cacheKey(veterinarianID, weekday)
	cached, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		blocks, decodeErr := decodeBlocks(cached)
		if decodeErr == nil {
			return blocks, nil
		}
		logging.PrintlnWarn(c.logger, "discarding unreadable cache entry ", key, ": ", decodeErr)
	case !errors.Is(err, redis.Nil):
		logging.PrintlnWarn(c.logger, "availability cache unavailable: ", err)
	}
	readAt, generationErr := generation(ctx, c.client, key)
	blocks, err := c.next.ListWeekdayBlocks(ctx, veterinarianID, weekday)
	if err != nil {
		return nil, err
	}
	if generationErr != nil {
		return blocks, nil
	}
	if err = c.store(ctx, key, readAt, blocks); err != nil {
		logging.PrintlnWarn(c.logger, "could not cache ", key, ": ", err)
	}
	return blocks, nil
}

// store caches the blocks unless the key was invalidated after the given generation was read.
func (c *Cache) store(ctx context.Context, key string, readAt int64, blocks []Block) error {
	payload, err := encodeBlocks(blocks)
	if err != nil {
		return err
	}
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := generation(ctx, tx, key)
		if err != nil {
			return err
		}
		if current != readAt {
			return errStaleRead
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, c.ttl)
			return nil
		})
		return err
	}, generationKey(key))
	if errors.Is(err, errStaleRead) || errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

// Invalidate drops the cached blocks of the veterinarian in the weekday. Reads in flight when it
// runs do not store their result.
func (c *Cache) Invalidate(ctx context.Context, veterinarianID int64, weekday Weekday) error {
	key := cacheKey(veterinarianID, weekday)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(key))
		pipe.Del(ctx, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not invalidate %s: %w", key, err)
	}
	return nil
}
