// Package media stores item images under per-identity object keys and hands
// out time-limited download URLs for them.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/abduss/bucketlist/internal/metrics"
)

const defaultURLTTL = 15 * time.Minute

var (
	// ErrInvalidFilename is returned for names that reduce to nothing usable.
	ErrInvalidFilename = errors.New("invalid filename")
	// ErrMissingIdentity is returned when no owner identity was supplied.
	ErrMissingIdentity = errors.New("missing identity")
)

// Store is the object storage backend.
type Store interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// Service namespaces objects as <prefix>/<identity>/<filename>.
type Service struct {
	store   Store
	prefix  string
	ttl     time.Duration
	nowFunc func() time.Time
}

// NewService builds a media service. A non-positive ttl falls back to 15 minutes.
func NewService(store Store, prefix string, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = defaultURLTTL
	}
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "media"
	}
	return &Service{
		store:   store,
		prefix:  prefix,
		ttl:     ttl,
		nowFunc: time.Now,
	}
}

// TTL reports how long resolved URLs stay valid.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Key returns the object key for identity's filename.
func (s *Service) Key(identity, filename string) (string, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" || strings.ContainsAny(identity, `/\`) {
		return "", ErrMissingIdentity
	}
	name := SanitizeFilename(filename)
	if name == "" {
		return "", ErrInvalidFilename
	}
	return path.Join(s.prefix, identity, name), nil
}

// Upload stores body under identity's namespace.
func (s *Service) Upload(ctx context.Context, identity, filename string, body io.Reader, size int64, contentType string) error {
	key, err := s.Key(identity, filename)
	if err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.store.Upload(ctx, key, body, size, contentType); err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}

// ResolveURL returns a presigned download URL and the time it stops working.
// Nothing is cached; each call signs a fresh URL.
func (s *Service) ResolveURL(ctx context.Context, identity, filename string) (string, time.Time, error) {
	key, err := s.Key(identity, filename)
	if err != nil {
		return "", time.Time{}, err
	}
	expires := s.nowFunc().Add(s.ttl)
	url, err := s.store.PresignGet(ctx, key, s.ttl)
	metrics.ObserveImageResolution(err)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("presign %s: %w", key, err)
	}
	return url, expires, nil
}

// SanitizeFilename strips directories and surrounding whitespace so a name
// can never escape its owner's namespace. It returns "" for unusable names.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	name = path.Base(name)
	switch name {
	case ".", "..", "/":
		return ""
	}
	return name
}
