// internal/api/response_helpers.go
package api

import (
	"net/http"
	"strconv"
	"time"

	apperrors "github.com/allencreed/Sora-Prompt-Tool/internal/errors"
	"github.com/allencreed/Sora-Prompt-Tool/internal/models"
	"github.com/gin-gonic/gin"
)

// ResponseHelper writes envelopes.
type ResponseHelper struct{}

func NewResponseHelper() *ResponseHelper {
	return &ResponseHelper{}
}

// Success writes a 200 envelope.
func (rh *ResponseHelper) Success(c *gin.Context, data interface{}, message ...string) {
	rh.write(c, http.StatusOK, data, message...)
}

// Created writes a 201 envelope.
func (rh *ResponseHelper) Created(c *gin.Context, data interface{}, message ...string) {
	rh.write(c, http.StatusCreated, data, message...)
}

func (rh *ResponseHelper) write(c *gin.Context, status int, data interface{}, message ...string) {
	response := &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	}
	if len(message) > 0 {
		response.Message = message[0]
	}
	c.JSON(status, response)
}

// Error writes a failure envelope. Messages are shown to the user as is, so
// callers pass user-facing text only.
func (rh *ResponseHelper) Error(c *gin.Context, statusCode int, errorCode, message string, details ...string) {
	apiError := &APIError{
		Code:    errorCode,
		Message: message,
	}
	if len(details) > 0 {
		apiError.Details = details[0]
	}

	c.JSON(statusCode, &APIResponse{
		Success:   false,
		Error:     apiError,
		Timestamp: time.Now(),
		RequestID: rh.getRequestID(c),
	})
}

func (rh *ResponseHelper) BadRequest(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusBadRequest, ErrorBadRequest, message, details...)
}

func (rh *ResponseHelper) NotFound(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusNotFound, ErrorNotFound, message, details...)
}

func (rh *ResponseHelper) InternalError(c *gin.Context, message string, details ...string) {
	rh.Error(c, http.StatusInternalServerError, ErrorInternalError, message, details...)
}

// FromError maps an application error to its status and code. Errors that
// are not AppErrors become a 500 with fallback as the message.
func (rh *ResponseHelper) FromError(c *gin.Context, err error, fallback string) {
	message := apperrors.UserMessage(err, fallback)

	switch {
	case apperrors.IsValidationError(err):
		rh.Error(c, http.StatusBadRequest, ErrorValidation, message)
	case apperrors.IsNotFoundError(err):
		rh.Error(c, http.StatusNotFound, ErrorSessionNotFound, message)
	case apperrors.IsCredentialError(err):
		rh.Error(c, http.StatusUnauthorized, ErrorAPIKeyInvalid, message)
	case apperrors.IsServiceError(err):
		rh.Error(c, http.StatusBadGateway, ErrorServiceUnavailable, message)
	default:
		rh.InternalError(c, message)
	}
}

// DownloadResponse sends content as an attachment.
func (rh *ResponseHelper) DownloadResponse(c *gin.Context, content string, filename string, contentType string) {
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Length", strconv.Itoa(len(content)))
	c.Data(http.StatusOK, contentType, []byte(content))
}

// ExportResponse sends an export result as a file download.
func (rh *ResponseHelper) ExportResponse(c *gin.Context, result *models.ExportResult) {
	rh.DownloadResponse(c, result.Content, result.FileName, result.ContentType)
}

func (rh *ResponseHelper) getRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
