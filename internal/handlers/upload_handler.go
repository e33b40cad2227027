package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Damage photos are the only thing uploaded, so anything that is not an
// image is refused outright.
var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// UploadFile handles POST /v1/upload. Damage photos land here before the
// return is processed; the returned URL goes into the return request.
func (h *Handlers) UploadFile(c *gin.Context) {
	// 1. Get the file from the request
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedImageExtensions[ext] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only image files are accepted (jpg, jpeg, png, gif, webp)"})
		return
	}

	// 2. Create "uploads" directory if it doesn't exist
	uploadPath := "./uploads"
	if _, err := os.Stat(uploadPath); os.IsNotExist(err) {
		os.Mkdir(uploadPath, 0755)
	}

	// 3. Build a safe unique filename: slugged original name + uuid.
	// The slug keeps the photo recognizable on disk; the uuid keeps two
	// returns of the same item from colliding.
	base := slug.Make(strings.TrimSuffix(filepath.Base(file.Filename), ext))
	if base == "" {
		base = "photo"
	}
	newFilename := fmt.Sprintf("%s-%s%s", base, uuid.New().String(), ext)
	savePath := filepath.Join(uploadPath, newFilename)

	// 4. Save the file
	if err := c.SaveUploadedFile(file, savePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}

	// 5. Return the public URL
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	publicURL := fmt.Sprintf("%s/uploads/%s", baseURL, newFilename)

	c.JSON(http.StatusOK, gin.H{
		"url": publicURL,
	})
}
