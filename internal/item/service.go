package item

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/abduss/bucketlist/internal/logger"
	"github.com/abduss/bucketlist/internal/media"
	"github.com/abduss/bucketlist/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultMaxUpload = 10 * 1024 * 1024 // 10MB

// RecordStore persists item records. Repository and MongoRepository implement it.
type RecordStore interface {
	Create(ctx context.Context, it Item) (Item, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]Item, error)
	Delete(ctx context.Context, ownerID, itemID uuid.UUID) error
}

type mediaStore interface {
	Upload(ctx context.Context, identity, filename string, body io.Reader, size int64, contentType string) error
	ResolveURL(ctx context.Context, identity, filename string) (string, time.Time, error)
}

// Service is the single entry point for item records and their images.
type Service struct {
	records   RecordStore
	media     mediaStore
	log       *zap.Logger
	maxUpload int64
}

// Option tunes a Service.
type Option func(*Service)

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMaxUpload caps image size in bytes. Non-positive values are ignored.
func WithMaxUpload(n int64) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

// NewService wires the record store and the media store.
func NewService(records RecordStore, mediaStore mediaStore, opts ...Option) *Service {
	s := &Service{
		records:   records,
		media:     mediaStore,
		log:       zap.NewNop(),
		maxUpload: defaultMaxUpload,
	}
	s.Configure(opts...)
	return s
}

// Configure applies options to an existing service.
func (s *Service) Configure(opts ...Option) {
	for _, opt := range opts {
		opt(s)
	}
}

// Upload is an image attached to a new item.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CreateInput carries the fields of a new item. Image is optional.
type CreateInput struct {
	Title       string
	Description string
	Image       *Upload
}

// OpenUpload turns a multipart file into an Upload. The caller closes the
// returned file once Create returns.
func OpenUpload(fh *multipart.FileHeader) (*Upload, io.Closer, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("open upload: %w", err)
	}
	return &Upload{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	}, f, nil
}

// List fetches the owner's items and swaps every stored image name for a
// presigned URL. Resolutions run concurrently; the first failure cancels
// the rest and is returned.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID) (items []Item, err error) {
	defer func() { metrics.ObserveItemOp("list", err) }()
	log := logger.FromContext(ctx, s.log)

	records, err := s.records.ListByOwner(ctx, ownerID)
	if err != nil {
		log.Error("list items", zap.Stringer("owner", ownerID), zap.Error(err))
		return nil, err
	}

	items = make([]Item, len(records))
	copy(items, records)

	g, gctx := errgroup.WithContext(ctx)
	for i := range items {
		if items[i].Image == "" {
			continue
		}
		g.Go(func() error {
			url, _, err := s.media.ResolveURL(gctx, ownerID.String(), items[i].Image)
			if err != nil {
				return fmt.Errorf("resolve image of item %s: %w", items[i].ID, err)
			}
			items[i].Image = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("resolve item images", zap.Stringer("owner", ownerID), zap.Error(err))
		return nil, err
	}
	return items, nil
}

// Create stores the record first and uploads the image afterwards. If the
// upload fails the record stays behind and the error is returned.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (created Item, err error) {
	defer func() { metrics.ObserveItemOp("create", err) }()
	log := logger.FromContext(ctx, s.log)

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return Item{}, ErrMissingField
	}

	var imageName string
	if input.Image != nil {
		if input.Image.Size > s.maxUpload {
			return Item{}, ErrImageTooLarge
		}
		imageName = media.SanitizeFilename(input.Image.Filename)
		if imageName == "" {
			return Item{}, media.ErrInvalidFilename
		}
	}

	created, err = s.records.Create(ctx, Item{
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		Image:       imageName,
	})
	if err != nil {
		log.Error("create item", zap.Stringer("owner", ownerID), zap.Error(err))
		return Item{}, err
	}

	if input.Image != nil {
		img := input.Image
		if err := s.media.Upload(ctx, ownerID.String(), imageName, img.Body, img.Size, img.ContentType); err != nil {
			log.Error("upload item image",
				zap.Stringer("owner", ownerID),
				zap.Stringer("item", created.ID),
				zap.String("image", imageName),
				zap.Error(err))
			return created, err
		}
	}

	log.Info("item created", zap.Stringer("owner", ownerID), zap.Stringer("item", created.ID))
	return created, nil
}

// Delete removes the record. The image object is left in place.
func (s *Service) Delete(ctx context.Context, ownerID, itemID uuid.UUID) (err error) {
	defer func() { metrics.ObserveItemOp("delete", err) }()

	if err = s.records.Delete(ctx, ownerID, itemID); err != nil {
		if !errors.Is(err, ErrItemNotFound) {
			logger.FromContext(ctx, s.log).Error("delete item",
				zap.Stringer("owner", ownerID),
				zap.Stringer("item", itemID),
				zap.Error(err))
		}
		return err
	}
	return nil
}

// ResolveImageURL signs a fresh download URL for one of the owner's images.
func (s *Service) ResolveImageURL(ctx context.Context, ownerID uuid.UUID, filename string) (string, time.Time, error) {
	url, expires, err := s.media.ResolveURL(ctx, ownerID.String(), filename)
	if err != nil {
		logger.FromContext(ctx, s.log).Error("resolve image url",
			zap.Stringer("owner", ownerID),
			zap.String("image", filename),
			zap.Error(err))
		return "", time.Time{}, err
	}
	return url, expires, nil
}
