package handlers

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MaxAttachmentSize caps a single upload at 10MB.
const MaxAttachmentSize = 10 << 20

func allowedMimeType(t string) bool {
	switch t {
	case "image/jpeg", "image/png", "image/gif", "image/webp",
		"application/pdf", "application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"text/plain":
		return true
	}
	return false
}

// UploadAttachment resolves a raw file into a stored attachment. The client
// uploads first, gets back the URL and metadata, then references them in the
// send call; the message write itself never touches blob storage.
func (a *API) UploadAttachment(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	if header.Size > MaxAttachmentSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File exceeds the 10MB limit"})
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if !allowedMimeType(mimeType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File type not allowed"})
		return
	}
	isImage := strings.HasPrefix(mimeType, "image/")

	cld, err := cloudinary.NewFromURL(os.Getenv("CLOUDINARY_URL"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cloudinary configuration error"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	uploadParams := uploader.UploadParams{
		Folder:   "mentorchat/attachments",
		PublicID: uuid.NewString(),
	}
	if !isImage {
		// non-image files must not go through image transformation
		uploadParams.ResourceType = "raw"
	}

	uploadResult, err := cld.Upload.Upload(ctx, file, uploadParams)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Upload failed"})
		return
	}

	resp := gin.H{
		"id":       uuid.NewString(),
		"url":      uploadResult.SecureURL,
		"name":     header.Filename,
		"size":     header.Size,
		"mimeType": mimeType,
	}
	if isImage {
		resp["thumbnailUrl"] = thumbnailURL(uploadResult.SecureURL)
	}
	c.JSON(http.StatusCreated, resp)
}

// thumbnailURL derives a resized delivery URL by injecting a transformation
// segment, avoiding a second upload round-trip.
func thumbnailURL(secureURL string) string {
	return strings.Replace(secureURL, "/upload/", "/upload/c_limit,w_320,h_320,q_auto/", 1)
}
