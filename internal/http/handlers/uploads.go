package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"geethika.lk/app/internal/shared/apperr"
	"geethika.lk/app/internal/storage"
)

type UploadHandler struct {
	Store storage.Storage
}

// FormImage stores the multipart "file" field under folder.
func FormImage(c *gin.Context, store storage.Storage, folder string) (storage.PutResult, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, storage.MaxUploadBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		Fail(c, apperr.InvalidErr("Choose an image to upload.", map[string]string{"file": "Choose an image to upload."}))
		return storage.PutResult{}, false
	}
	if fh.Size > storage.MaxUploadBytes {
		Fail(c, storage.ErrTooLarge)
		return storage.PutResult{}, false
	}
	f, err := fh.Open()
	if err != nil {
		Fail(c, err)
		return storage.PutResult{}, false
	}
	defer f.Close()

	res, err := storage.PutImage(c.Request.Context(), store, f, folder)
	if err != nil {
		Fail(c, err)
		return storage.PutResult{}, false
	}
	return res, true
}

// POST /api/uploads/customization
func (h *UploadHandler) Customization(c *gin.Context) {
	res, ok := FormImage(c, h.Store, storage.FolderCustomizations)
	if !ok {
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": res.URL, "key": res.Key})
}
