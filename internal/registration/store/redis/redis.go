// Package redis persists registrations as Redis hashes with a sorted
// creation index. Multi-key writes run as Lua scripts so the email
// reservation and the record insert are atomic.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"realform/internal/registration/models"
	id "realform/pkg/domain"
	"realform/pkg/platform/sentinel"
)

const defaultKeyPrefix = "realform:"

const (
	fieldID                = "id"
	fieldFirstName         = "first_name"
	fieldLastName          = "last_name"
	fieldPasswordDigest    = "password_digest"
	fieldEmail             = "email"
	fieldDateOfBirth       = "date_of_birth"
	fieldGender            = "gender"
	fieldBiography         = "biography"
	fieldProfilePictureURL = "profile_picture_url"
	fieldCreatedAt         = "created_at"
)

// KEYS: email key, record key, created index. ARGV: id, created millis, hash field/value pairs.
var createScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 or redis.call('EXISTS', KEYS[2]) == 1 then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1])
redis.call('HSET', KEYS[2], unpack(ARGV, 3))
redis.call('ZADD', KEYS[3], ARGV[2], ARGV[1])
return 1
`)

// KEYS: record key, created index. ARGV: id, email key prefix.
var deleteScript = redis.NewScript(`
local email = redis.call('HGET', KEYS[1], 'email')
if not email then
	return 0
end
redis.call('DEL', KEYS[1])
redis.call('DEL', ARGV[2] .. email)
redis.call('ZREM', KEYS[2], ARGV[1])
return 1
`)

// Store is a Redis-backed registration store.
type Store struct {
	client *redis.Client
	prefix string
}

// Option configures a Store.
type Option func(*Store)

// WithKeyPrefix namespaces every key the store writes.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New constructs a store on an existing client; the caller owns the client.
func New(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultKeyPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) recordKey(registrationID string) string {
	return s.prefix + "registration:" + registrationID
}

func (s *Store) emailKeyPrefix() string {
	return s.prefix + "registration-email:"
}

func (s *Store) createdIndexKey() string {
	return s.prefix + "registrations:created"
}

// Create stores reg unless its email is reserved (sentinel.ErrAlreadyUsed).
func (s *Store) Create(ctx context.Context, reg *models.Registration) error {
	regID := reg.ID.String()
	created := toMillis(reg.CreatedAt)

	args := []any{
		regID,
		created,
		fieldID, regID,
		fieldFirstName, reg.FirstName,
		fieldLastName, reg.LastName,
		fieldPasswordDigest, reg.PasswordDigest,
		fieldEmail, reg.Email,
		fieldDateOfBirth, reg.DateOfBirth.UTC().Format(time.DateOnly),
		fieldGender, reg.Gender,
		fieldBiography, reg.Biography,
		fieldProfilePictureURL, reg.ProfilePictureURL,
		fieldCreatedAt, created,
	}
	keys := []string{s.emailKeyPrefix() + reg.Email, s.recordKey(regID), s.createdIndexKey()}

	inserted, err := createScript.Run(ctx, s.client, keys, args...).Int()
	if err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	if inserted == 0 {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

// List returns one page ordered by creation time, newest first, plus the
// total count. Equal timestamps order by id descending.
func (s *Store) List(ctx context.Context, q models.PageQuery) ([]*models.Registration, int, error) {
	total, err := s.client.ZCard(ctx, s.createdIndexKey()).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}

	start := int64(q.Offset())
	if start >= total {
		return []*models.Registration{}, int(total), nil
	}
	ids, err := s.client.ZRevRange(ctx, s.createdIndexKey(), start, start+int64(q.Limit)-1).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("list registration ids: %w", err)
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, regID := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.recordKey(regID))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, 0, fmt.Errorf("load registrations: %w", err)
	}

	docs := make([]*models.Registration, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// deleted between the range read and the pipeline
			continue
		}
		reg, err := decode(fields)
		if err != nil {
			return nil, 0, err
		}
		docs = append(docs, reg)
	}
	return docs, int(total), nil
}

// Delete removes the record and its email reservation, or returns sentinel.ErrNotFound.
func (s *Store) Delete(ctx context.Context, registrationID id.RegistrationID) error {
	regID := registrationID.String()
	keys := []string{s.recordKey(regID), s.createdIndexKey()}

	deleted, err := deleteScript.Run(ctx, s.client, keys, regID, s.emailKeyPrefix()).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("delete registration: %w", err)
	}
	if deleted == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func decode(fields map[string]string) (*models.Registration, error) {
	regID, err := id.ParseRegistrationID(fields[fieldID])
	if err != nil {
		return nil, fmt.Errorf("decode registration id %q: %w", fields[fieldID], err)
	}
	dob, err := time.Parse(time.DateOnly, fields[fieldDateOfBirth])
	if err != nil {
		return nil, fmt.Errorf("decode date of birth: %w", err)
	}
	created, err := strconv.ParseInt(fields[fieldCreatedAt], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	return &models.Registration{
		ID:                regID,
		FirstName:         fields[fieldFirstName],
		LastName:          fields[fieldLastName],
		PasswordDigest:    fields[fieldPasswordDigest],
		Email:             fields[fieldEmail],
		DateOfBirth:       dob,
		Gender:            fields[fieldGender],
		Biography:         fields[fieldBiography],
		ProfilePictureURL: fields[fieldProfilePictureURL],
		CreatedAt:         fromMillis(created),
	}, nil
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}
