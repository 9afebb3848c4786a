package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/benjamins-shop/storefront-backend/api/middleware"
	"github.com/benjamins-shop/storefront-backend/api/responses"
	"github.com/benjamins-shop/storefront-backend/api/validators"
	mediasvc "github.com/benjamins-shop/storefront-backend/internal/media"
	pkgerrors "github.com/benjamins-shop/storefront-backend/pkg/errors"
	"github.com/benjamins-shop/storefront-backend/pkg/logger"
)

// maxUploadBytes caps a single image upload at 10 MiB.
const maxUploadBytes = 10 << 20

// UploadProductImage accepts a multipart form with an "image" part and
// attaches the hosted asset to the product.
func UploadProductImage(svc mediasvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, header, err := r.FormFile("image")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "image file is required"))
			return
		}
		defer file.Close()

		var altText *string
		if v := r.FormValue("alt_text"); v != "" {
			altText = &v
		}

		var adminID uuid.UUID
		if raw := middleware.AdminIDFromContext(r.Context()); raw != "" {
			adminID, _ = uuid.Parse(raw)
		}

		image, err := svc.Attach(r.Context(), mediasvc.AttachInput{
			ProductID: productID,
			Filename:  header.Filename,
			Content:   file,
			AltText:   altText,
			AdminID:   adminID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, productImageResponse{
			ID:       image.ID,
			URL:      image.URL,
			AltText:  image.AltText,
			Position: image.Position,
		})
	}
}

// maxBatchUploadFiles caps how many images one batch request may carry.
const maxBatchUploadFiles = 5

// UploadProductImages accepts a multipart form with up to five "images"
// parts and attaches each in order. Files are processed sequentially, so a
// failure part-way leaves the earlier attachments in place.
func UploadProductImages(svc mediasvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBatchUploadFiles*maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}

		headers := r.MultipartForm.File["images"]
		if len(headers) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "at least one image file is required"))
			return
		}
		if len(headers) > maxBatchUploadFiles {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "a batch upload carries at most 5 images"))
			return
		}

		var adminID uuid.UUID
		if raw := middleware.AdminIDFromContext(r.Context()); raw != "" {
			adminID, _ = uuid.Parse(raw)
		}

		// alt_text values pair with files by position, trailing files may
		// omit theirs.
		altTexts := r.MultipartForm.Value["alt_text"]

		attached := make([]productImageResponse, 0, len(headers))
		for i, header := range headers {
			file, err := header.Open()
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading uploaded file"))
				return
			}
			var altText *string
			if i < len(altTexts) && altTexts[i] != "" {
				altText = &altTexts[i]
			}
			image, err := svc.Attach(r.Context(), mediasvc.AttachInput{
				ProductID: productID,
				Filename:  header.Filename,
				Content:   file,
				AltText:   altText,
				AdminID:   adminID,
			})
			file.Close()
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			attached = append(attached, productImageResponse{
				ID:       image.ID,
				URL:      image.URL,
				AltText:  image.AltText,
				Position: image.Position,
			})
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, attached)
	}
}

// DeleteProductImage detaches an image from a product and removes the
// hosted asset.
func DeleteProductImage(svc mediasvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "media service unavailable"))
			return
		}

		productID, err := validators.ParseUUIDParam(chi.URLParam(r, "productID"), "productID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		imageID, err := validators.ParseUUIDParam(chi.URLParam(r, "imageID"), "imageID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Remove(r.Context(), productID, imageID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
