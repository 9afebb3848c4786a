package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/benjamins-shop/storefront-backend/internal/products"
	"github.com/benjamins-shop/storefront-backend/pkg/db/models"
	"github.com/benjamins-shop/storefront-backend/pkg/enums"
	pkgerrors "github.com/benjamins-shop/storefront-backend/pkg/errors"
	"github.com/benjamins-shop/storefront-backend/pkg/logger"
	"github.com/benjamins-shop/storefront-backend/pkg/outbox"
	"github.com/benjamins-shop/storefront-backend/pkg/storage/cloudinary"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type uploader interface {
	Upload(ctx context.Context, logg *logger.Logger, filename string, content io.Reader) (*cloudinary.UploadResult, error)
	Destroy(ctx context.Context, logg *logger.Logger, publicID string) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// AttachInput describes an incoming catalog image upload.
type AttachInput struct {
	ProductID uuid.UUID
	Filename  string
	Content   io.Reader
	AltText   *string
	AdminID   uuid.UUID
}

// Service manages hosted product images.
type Service interface {
	Attach(ctx context.Context, input AttachInput) (*models.ProductImage, error)
	Remove(ctx context.Context, productID, imageID uuid.UUID) error
}

type service struct {
	repo     *products.Repository
	tx       txRunner
	uploader uploader
	events   outboxEmitter
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the image pipeline against the catalog repository.
func NewService(repo *products.Repository, tx txRunner, up uploader, events outboxEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if up == nil {
		return nil, fmt.Errorf("uploader required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		uploader: up,
		events:   events,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func (s *service) Attach(ctx context.Context, input AttachInput) (*models.ProductImage, error) {
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Content == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image content is required")
	}

	product, err := s.repo.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading product")
	}

	result, err := s.uploader.Upload(ctx, s.logg, input.Filename, input.Content)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "uploading image")
	}

	image := &models.ProductImage{
		ID:        uuid.New(),
		ProductID: product.ID,
		URL:       result.SecureURL,
		PublicID:  result.PublicID,
		AltText:   input.AltText,
		Position:  len(product.Images),
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).AddImage(ctx, image); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "storing image")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventProductImageAttached,
			AggregateType: enums.AggregateProduct,
			AggregateID:   product.ID,
			Data: map[string]any{
				"imageId":  image.ID.String(),
				"url":      image.URL,
				"publicId": image.PublicID,
				"position": image.Position,
			},
			Version:    1,
			OccurredAt: s.now(),
		}
		if input.AdminID != uuid.Nil {
			event.Actor = &outbox.ActorRef{AdminID: input.AdminID.String()}
		}
		return s.events.Emit(ctx, tx, event)
	})
	if err != nil {
		// The asset is already hosted, remove it on a failed insert.
		cleanupCtx := context.WithoutCancel(ctx)
		if destroyErr := s.uploader.Destroy(cleanupCtx, s.logg, result.PublicID); destroyErr != nil && s.logg != nil {
			s.logg.Warn(cleanupCtx, "orphaned upload could not be removed")
		}
		return nil, err
	}

	return image, nil
}

func (s *service) Remove(ctx context.Context, productID, imageID uuid.UUID) error {
	if productID == uuid.Nil || imageID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id and image id are required")
	}

	image, err := s.repo.FindImage(ctx, imageID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "loading image")
	}
	if image.ProductID != productID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "image not found")
	}

	if _, err := s.repo.DeleteImage(ctx, imageID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "deleting image")
	}

	// Hosted asset removal is best effort, the row is already gone.
	if err := s.uploader.Destroy(ctx, s.logg, image.PublicID); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "hosted asset could not be removed")
	}

	return nil
}
