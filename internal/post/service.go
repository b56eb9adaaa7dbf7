package post

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/go-playground/validator/v10"

	"github.com/postly/service/internal/media"
)

// ErrInvalidInput is returned when required fields are missing on create or update.
var ErrInvalidInput = errors.New("invalid input")

// Input carries the text fields of a create or update request.
type Input struct {
	Title       string `validate:"required"`
	Description string `validate:"required"`
}

// FileUpload describes an image file attached to a create or update request.
type FileUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// Service contains business logic for post management: input validation
// before any I/O, and upload-before-write ordering so no record ever
// references an unconfirmed file.
type Service struct {
	store    Store
	uploader media.Uploader
	validate *validator.Validate
}

// NewService creates a new post Service.
func NewService(store Store, uploader media.Uploader) *Service {
	return &Service{
		store:    store,
		uploader: uploader,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Create validates in, uploads file when one is supplied, and persists the
// post. On a store failure after a successful upload the fresh object is
// removed again, best effort.
func (s *Service) Create(ctx context.Context, in Input, file *FileUpload) (*Post, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	ref, err := s.uploadIfPresent(ctx, file)
	if err != nil {
		return nil, err
	}

	var imageURL *string
	if ref != nil {
		imageURL = &ref.URL
	}

	p, err := s.store.Create(ctx, in.Title, in.Description, imageURL)
	if err != nil {
		s.removeOrphan(ctx, ref)
		return nil, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}

// GetAll returns every stored post.
func (s *Service) GetAll(ctx context.Context) ([]Post, error) {
	return s.store.GetAll(ctx)
}

// GetByID returns a post by its id.
func (s *Service) GetByID(ctx context.Context, id string) (*Post, error) {
	return s.store.GetByID(ctx, id)
}

// Update validates in, uploads file when one is supplied, and replaces the
// post's fields. Omitting the file keeps the existing image untouched.
func (s *Service) Update(ctx context.Context, id string, in Input, file *FileUpload) (*Post, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	ref, err := s.uploadIfPresent(ctx, file)
	if err != nil {
		return nil, err
	}

	fields := UpdateFields{Title: in.Title, Description: in.Description}
	if ref != nil {
		fields.ImageURL = &ref.URL
	}

	p, err := s.store.Update(ctx, id, fields)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			err = fmt.Errorf("update post: %w", err)
		}
		s.removeOrphan(ctx, ref)
		return nil, err
	}
	return p, nil
}

// Delete removes a post. Idempotent: deleting an absent id is success.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// IsNotFound returns true when the error indicates a post was not found.
func (s *Service) IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput returns true when the error indicates missing required fields.
func (s *Service) IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

func (s *Service) uploadIfPresent(ctx context.Context, file *FileUpload) (*media.Ref, error) {
	if file == nil {
		return nil, nil
	}
	return s.uploader.Upload(ctx, file.Filename, file.Reader, file.Size, file.ContentType)
}

// removeOrphan deletes an object whose post record was never written. The
// old image of an updated post is never touched.
func (s *Service) removeOrphan(ctx context.Context, ref *media.Ref) {
	if ref == nil {
		return
	}
	if err := s.uploader.Remove(ctx, ref.Key); err != nil {
		log.Printf("post: orphaned upload %q not removed: %v", ref.Key, err)
	}
}
