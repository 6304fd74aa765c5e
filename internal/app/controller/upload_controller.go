package controller

import (
	"net/http"

	apperrors "github.com/freshlyhq/freshly-backend/internal/errors"
	"github.com/freshlyhq/freshly-backend/internal/middleware"
	"github.com/freshlyhq/freshly-backend/internal/storage"
	"github.com/gin-gonic/gin"
)

// Product images are uploaded straight to S3 with a presigned URL; the API
// only hands out the URL and never proxies the bytes.
var allowedImageTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
}

const maxUploadSize = 5 * 1024 * 1024

type UploadController struct {
	storage *storage.S3Storage
}

func NewUploadController(storage *storage.S3Storage) *UploadController {
	return &UploadController{storage: storage}
}

type PresignRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
	Size        int64  `json:"size" binding:"required,min=1"`
}

// PresignProductImage issues a presigned PUT URL for a product image (admin)
// POST /api/v1/admin/uploads/product-image
func (ctrl *UploadController) PresignProductImage(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req PresignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Filename, content type and size are required")
		return
	}

	if err := ctrl.storage.ValidateContentType(req.ContentType, allowedImageTypes); err != nil {
		apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "Only JPEG, PNG and WebP images are allowed")
		return
	}

	if err := ctrl.storage.ValidateFileSize(req.Size, maxUploadSize); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "Image must be 5MB or smaller")
		return
	}

	presigned, err := ctrl.storage.GeneratePresignedURLWithFolder(req.Filename, req.ContentType, "products")
	if err != nil {
		log.Error("Failed to generate presigned URL", err, map[string]interface{}{
			"filename":     req.Filename,
			"content_type": req.ContentType,
		})
		apperrors.RespondWithError(c, http.StatusBadGateway, apperrors.UploadFailed, "Could not prepare the upload. Please try again")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"upload": presigned,
	})
}
