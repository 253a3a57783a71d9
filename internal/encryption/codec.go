package encryption

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	dErrors "assura/pkg/domain-errors"
)

// EntryState is the change-tracking state of an entity in a write.
type EntryState int

const (
	Unchanged EntryState = iota
	Added
	Modified
)

func (s EntryState) String() string {
	switch s {
	case Added:
		return "added"
	case Modified:
		return "modified"
	default:
		return "unchanged"
	}
}

// Entry pairs an entity with its state for a batched seal.
type Entry[T any] struct {
	Entity *T
	State  EntryState
}

// Option configures a Codec.
type Option func(*codecOptions)

type codecOptions struct {
	logger  *slog.Logger
	metrics *Metrics
}

// WithLogger sets the logger used to report fields that fail to decrypt.
func WithLogger(logger *slog.Logger) Option {
	return func(o *codecOptions) {
		o.logger = logger
	}
}

// WithMetrics sets the collectors for seal and open passes.
func WithMetrics(m *Metrics) Option {
	return func(o *codecOptions) {
		o.metrics = m
	}
}

// Codec runs the encrypt-before-write and decrypt-after-load passes for one
// entity type. It mutates the entities it is given.
type Codec[T any] struct {
	schema  *Schema[T]
	cipher  Cipher
	logger  *slog.Logger
	metrics *Metrics
}

func NewCodec[T any](schema *Schema[T], c Cipher, opts ...Option) *Codec[T] {
	o := codecOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Codec[T]{schema: schema, cipher: c, logger: o.logger, metrics: o.metrics}
}

func (c *Codec[T]) Schema() *Schema[T] { return c.schema }

type fieldWrite struct {
	target *string
	value  string
}

// Seal encrypts the classified fields of a single entity.
func (c *Codec[T]) Seal(ctx context.Context, entity *T, state EntryState) error {
	return c.SealChanges(ctx, []Entry[T]{{Entity: entity, State: state}})
}

// SealChanges encrypts every classified field of the Added and Modified
// entries and refreshes their search hashes. Empty values are skipped and
// clear their hash; values that already look encrypted are left alone.
//
// All ciphertexts are computed before any field is written, so a failure
// leaves every entity exactly as it was passed in.
func (c *Codec[T]) SealChanges(ctx context.Context, entries []Entry[T]) error {
	start := time.Now()
	kind := c.schema.kind

	var writes []fieldWrite
	sealed := 0
	for _, entry := range entries {
		if entry.Entity == nil || (entry.State != Added && entry.State != Modified) {
			continue
		}
		for _, b := range c.schema.bindings {
			if !b.Field.IsEncrypted {
				continue
			}
			text := b.Text(entry.Entity)
			plain := *text
			if plain == "" {
				if b.Field.CreatesSearchHash {
					writes = append(writes, fieldWrite{target: b.Hash(entry.Entity)})
				}
				continue
			}
			if LooksEncrypted(plain) {
				continue
			}
			ct, err := c.cipher.Encrypt(plain)
			if err != nil {
				c.metrics.incSealFailure(kind)
				return dErrors.Wrap(err, dErrors.CodeCrypto, fmt.Sprintf("encrypt %s.%s", kind, b.Field.FieldName))
			}
			writes = append(writes, fieldWrite{target: text, value: ct})
			if b.Field.CreatesSearchHash {
				writes = append(writes, fieldWrite{target: b.Hash(entry.Entity), value: c.cipher.CreateHash(plain)})
			}
			sealed++
		}
	}

	for _, w := range writes {
		*w.target = w.value
	}
	c.metrics.addFieldsSealed(kind, sealed)
	c.metrics.observeSeal(kind, time.Since(start).Seconds())
	return nil
}

// Open decrypts the classified fields of entity in place. A field that
// fails to decrypt keeps its raw value and is logged; the pass continues.
// It returns the number of fields that failed.
func (c *Codec[T]) Open(ctx context.Context, entity *T) int {
	if entity == nil {
		return 0
	}
	failures := 0
	for _, b := range c.schema.bindings {
		if !b.Field.IsEncrypted {
			continue
		}
		text := b.Text(entity)
		if *text == "" {
			continue
		}
		plain, err := c.cipher.Decrypt(*text)
		if err != nil {
			failures++
			c.metrics.incDecryptFailure(c.schema.kind, b.Field.FieldName)
			c.logger.WarnContext(ctx, "failed to decrypt field",
				"entity", string(c.schema.kind),
				"field", b.Field.FieldName,
				"error", err,
			)
			continue
		}
		*text = plain
	}
	return failures
}
