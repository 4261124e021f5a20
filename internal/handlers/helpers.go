// Package handlers holds helpers shared by the HTTP handler packages.
package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"leafsense_back_end/internal/apperr"
)

// ParamID parses the :name path parameter as a positive id.
func ParamID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return uint(id), true
}

// QueryInt reads an integer query parameter, falling back to def.
func QueryInt(c *gin.Context, name string, def int) (int, error) {
	v := c.Query(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Newf(apperr.ErrValidation, "%s must be an integer", name)
	}
	return n, nil
}

// Uploader is the slice of the blob store the handlers need.
type Uploader interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

var imageTypes = map[string]bool{"image/jpeg": true, "image/png": true, "image/webp": true}

// ReadImage reads the multipart field into memory, enforcing type and size.
func ReadImage(c *gin.Context, field string, maxBytes int64) ([]byte, string, string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, "", "", apperr.Newf(apperr.ErrValidation, "%s is required", field)
	}
	if fh.Size > maxBytes {
		return nil, "", "", apperr.Newf(apperr.ErrValidation, "file is larger than %d MB", maxBytes>>20)
	}
	ct := fh.Header.Get("Content-Type")
	if !imageTypes[ct] {
		return nil, "", "", apperr.New(apperr.ErrValidation, "file must be an image")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, "", "", err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, "", "", err
	}
	if int64(len(data)) > maxBytes {
		return nil, "", "", apperr.Newf(apperr.ErrValidation, "file is larger than %d MB", maxBytes>>20)
	}
	return data, ct, fh.Filename, nil
}

// UploadImage stores an image under folder with a random name.
func UploadImage(ctx context.Context, up Uploader, folder string, data []byte, contentType, filename string) (string, error) {
	if up == nil {
		return "", fmt.Errorf("%w: image storage is not configured", apperr.ErrStorage)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	url, err := up.Put(ctx, fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), ext), data, contentType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}
	return url, nil
}
