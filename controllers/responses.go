package controllers

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloudpharmacy/cloudstore/services"
	"github.com/cloudpharmacy/cloudstore/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temp files. The body itself is capped separately.
const multipartMemory = 8 << 20

var statusByKind = map[services.ErrorKind]int{
	services.KindValidation:   http.StatusBadRequest,
	services.KindNotFound:     http.StatusNotFound,
	services.KindConflict:     http.StatusConflict,
	services.KindStorage:      http.StatusInternalServerError,
	services.KindUnauthorized: http.StatusUnauthorized,
}

// writeError renders err with the {success:false, message} envelope and
// the status matching its kind.
func (a *App) writeError(c *gin.Context, err error) {
	var ce *services.CatalogError
	if !errors.As(err, &ce) {
		ce = services.NewStorageError("internal error", err)
	}
	status, ok := statusByKind[ce.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	body := gin.H{"success": false, "message": ce.Message}
	if ce.Field != "" {
		body["field"] = ce.Field
	}
	if ce.Err != nil {
		body["error"] = ce.Err.Error()
	}
	if status >= http.StatusInternalServerError {
		a.Logger.Error(ce.Message,
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(ce.Err),
		)
	}
	_ = c.Error(err)
	c.JSON(status, body)
}

// readProductForm parses a multipart or urlencoded product form. Empty
// fields count as absent. The photo is read at most one byte past the
// policy limit so the service can reject it.
func (a *App) readProductForm(c *gin.Context) (services.ProductInput, *services.PhotoUpload, error) {
	var in services.ProductInput
	policy := a.Catalog.PhotoPolicy()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, policy.Limit()+1<<20)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			return in, nil, formError(err, policy)
		}
		if err := c.Request.ParseForm(); err != nil {
			return in, nil, formError(err, policy)
		}
	}

	if v := formValue(c, "name"); v != "" {
		in.Name = &v
	}
	if v := formValue(c, "description"); v != "" {
		in.Description = &v
	}
	if v := formValue(c, "price"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
			return in, nil, services.NewValidationError("price", "Price must be a number")
		}
		in.Price = &price
	}
	if v := formValue(c, "category"); v != "" {
		in.CategoryID = &v
	}
	if v := formValue(c, "quantity"); v != "" {
		qty, err := strconv.Atoi(v)
		if err != nil {
			return in, nil, services.NewValidationError("quantity", "Quantity must be a whole number")
		}
		in.Quantity = &qty
	}
	shipping, err := utils.ParseBoolQuery(formValue(c, "shipping"))
	if err != nil {
		return in, nil, services.NewValidationError("shipping", "Shipping must be true or false")
	}
	in.Shipping = shipping

	photo, err := readPhoto(c, policy)
	if err != nil {
		return in, nil, err
	}
	return in, photo, nil
}

func formValue(c *gin.Context, key string) string {
	return strings.TrimSpace(c.Request.PostFormValue(key))
}

func readPhoto(c *gin.Context, policy services.PhotoPolicy) (*services.PhotoUpload, error) {
	if c.Request.MultipartForm == nil {
		return nil, nil
	}
	header, err := c.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, formError(err, policy)
	}

	f, err := header.Open()
	if err != nil {
		return nil, services.NewStorageError("Error while reading photo", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, policy.Limit()+1))
	if err != nil {
		return nil, services.NewStorageError("Error while reading photo", err)
	}
	return &services.PhotoUpload{Filename: header.Filename, Data: data}, nil
}

func formError(err error, policy services.PhotoPolicy) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return policy.TooLarge()
	}
	return services.NewValidationError("", "invalid form data")
}
