// internal/api/handlers.go
package api

import (
	"errors"
	"io"
	"strconv"
	"time"

	apperrors "github.com/allencreed/Sora-Prompt-Tool/internal/errors"
	"github.com/allencreed/Sora-Prompt-Tool/internal/models"
	"github.com/allencreed/Sora-Prompt-Tool/internal/services"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Fallback messages for failures that carry no user-facing text.
const (
	MsgRequestFailed = "The request could not be completed."
	MsgInvalidBody   = "The request body is not valid JSON."
	MsgInvalidIndex  = "Scene index must be a number."
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *APIError   `json:"error,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// APIError carries the code and user-facing message of a failure.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// CreateSessionRequest optionally seeds a new session.
type CreateSessionRequest struct {
	Scenes []models.Scene `json:"scenes"`
	Format string         `json:"format"`
}

// UpdateSceneRequest replaces one field of a scene.
type UpdateSceneRequest struct {
	Field string `json:"field" binding:"required"`
	Value string `json:"value"`
}

// SetFormatRequest selects the output format.
type SetFormatRequest struct {
	Format string `json:"format" binding:"required"`
}

// SelectKeyRequest carries the key chosen by the user. An empty key keeps
// the key configured in the environment.
type SelectKeyRequest struct {
	APIKey string `json:"api_key"`
}

// ProviderStatus reports the state of the generative-text client.
type ProviderStatus interface {
	IsReady() bool
	GetReadyState() string
	GetProviderName() string
}

// Handler serves the HTTP API.
type Handler struct {
	sessions    *services.SessionService
	prompts     *services.PromptService
	exports     *services.ExportService
	credentials *services.CredentialService
	provider    ProviderStatus
	hub         *StatusHub
	Response    *ResponseHelper
	logger      *zap.Logger
}

// HandlerDeps lists the services the handler needs.
type HandlerDeps struct {
	Sessions    *services.SessionService
	Prompts     *services.PromptService
	Exports     *services.ExportService
	Credentials *services.CredentialService
	Provider    ProviderStatus
	Hub         *StatusHub
	Logger      *zap.Logger
}

func NewHandler(deps HandlerDeps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		sessions:    deps.Sessions,
		prompts:     deps.Prompts,
		exports:     deps.Exports,
		credentials: deps.Credentials,
		provider:    deps.Provider,
		hub:         deps.Hub,
		Response:    NewResponseHelper(),
		logger:      logger.Named("api"),
	}
}

// fail writes err and records it on the gin context for the access log.
func (h *Handler) fail(c *gin.Context, err error, fallback string) {
	c.Error(err)
	h.Response.FromError(c, err, fallback)
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func sceneIndex(c *gin.Context) (int, error) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return 0, apperrors.NewValidationError(MsgInvalidIndex, err)
	}
	return index, nil
}

// ========================================
// System
// ========================================

// Health reports liveness and the state of the LLM client.
func (h *Handler) Health(c *gin.Context) {
	data := gin.H{
		"status":          "ok",
		"active_sessions": h.sessions.Len(),
		"key_ready":       h.credentials.KeyReady(),
	}
	if h.provider != nil {
		data["llm_provider"] = h.provider.GetProviderName()
		data["llm_ready"] = h.provider.IsReady()
		data["llm_state"] = h.provider.GetReadyState()
	}
	h.Response.Success(c, data)
}

// GetOptions returns every enumerated choice of the scene form.
func (h *Handler) GetOptions(c *gin.Context) {
	h.Response.Success(c, models.Catalog())
}

// ========================================
// Credentials
// ========================================

func (h *Handler) GetCredentials(c *gin.Context) {
	h.Response.Success(c, gin.H{"key_ready": h.credentials.KeyReady()})
}

// SelectKey applies a key without checking it against the API.
func (h *Handler) SelectKey(c *gin.Context) {
	var req SelectKeyRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.Response.BadRequest(c, MsgInvalidBody)
		return
	}

	if err := h.credentials.SelectKey(c.Request.Context(), req.APIKey); err != nil {
		h.fail(c, err, services.MsgKeySelectFailed)
		return
	}
	h.Response.Success(c, gin.H{"key_ready": h.credentials.KeyReady()}, "API key selected")
}

// ========================================
// Sessions
// ========================================

func (h *Handler) CreateSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.Response.BadRequest(c, MsgInvalidBody, err.Error())
		return
	}

	if len(req.Scenes) == 0 && req.Format == "" {
		h.Response.Created(c, h.sessions.Create())
		return
	}

	format, err := models.ParseOutputFormat(req.Format)
	if err != nil {
		h.fail(c, apperrors.NewValidationError("Unknown output format.", err), MsgRequestFailed)
		return
	}
	if len(req.Scenes) == 0 {
		snap := h.sessions.Create()
		if snap, err = h.sessions.SetFormat(snap.ID, string(format)); err != nil {
			h.fail(c, err, MsgRequestFailed)
			return
		}
		h.Response.Created(c, snap)
		return
	}

	snap, err := h.sessions.CreateFrom(req.Scenes, format)
	if err != nil {
		h.fail(c, err, MsgRequestFailed)
		return
	}
	h.Response.Created(c, snap)
}

func (h *Handler) GetSession(c *gin.Context) {
	snap, err := h.sessions.Snapshot(c.Param("id"))
	if err != nil {
		h.fail(c, err, MsgRequestFailed)
		return
	}
	h.Response.Success(c, snap)
}

func (h *Handler) DeleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Param("id")); err != nil {
		h.fail(c, err, MsgRequestFailed)
		return
	}
	h.Response.Success(c, nil, "Session deleted")
}

// ========================================
// Scenes
// ========================================

// AddScene appends a scene with the Cut transition.
func (h *Handler) AddScene(c *gin.Context) {
	snap, err := h.sessions.AddScene(c.Param("id"))
	if err != nil {
		h.fail(c, err, MsgRequestFailed)
		return
	}
	h.Response.Created(c, snap)
}

// RemoveScene is a no-op while only one scene is left.
func (h *Handler) RemoveScene(c *gin.Context) {
	index, err := sceneIndex(c)
	if err != nil {
		h.fail(c, err, MsgRequestFailed)
		return
	}
	snap, err := h.sessions.RemoveScene(c.Param("id"), index)
	if err != nil {
		h.fail(c, err, MsgRequestFailed)
		return
	}
	h.Response.Success(c, snap)
}

func (h *Handler) UpdateScene(c *gin.Context) {
	index, err := sceneIndex(c)
	if err != nil {
		h.fail(c, err, MsgRequestFailed)
		return
	}
	var req UpdateSceneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, MsgInvalidBody, err.Error())
		return
	}

	snap, err := h.sessions.UpdateScene(c.Param("id"), index, req.Field, req.Value)
	if err != nil {
		h.fail(c, err, MsgRequestFailed)
		return
	}
	h.Response.Success(c, snap)
}

func (h *Handler) SetFormat(c *gin.Context) {
	var req SetFormatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Response.BadRequest(c, MsgInvalidBody, err.Error())
		return
	}

	snap, err := h.sessions.SetFormat(c.Param("id"), req.Format)
	if err != nil {
		h.fail(c, err, MsgRequestFailed)
		return
	}
	h.Response.Success(c, snap)
}

// ========================================
// Generation
// ========================================

// Compile previews the instruction, schema and MIME type without sending
// anything.
func (h *Handler) Compile(c *gin.Context) {
	compiled, err := h.prompts.Compile(c.Param("id"))
	if err != nil {
		h.fail(c, err, MsgRequestFailed)
		return
	}
	h.Response.Success(c, compiled)
}

func (h *Handler) Generate(c *gin.Context) {
	snap, err := h.prompts.Generate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, services.MsgGenerateFailed)
		return
	}
	h.Response.Success(c, snap, "Prompt generated")
}

func (h *Handler) CheckConnection(c *gin.Context) {
	snap, err := h.prompts.CheckConnection(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, services.MsgCheckFailed)
		return
	}
	h.Response.Success(c, snap, "Connection successful")
}

// ========================================
// Export
// ========================================

// DownloadOutput sends the generated output as a file.
func (h *Handler) DownloadOutput(c *gin.Context) {
	result, err := h.exports.Prepare(c.Param("id"))
	if err != nil {
		h.fail(c, err, services.MsgExportFailed)
		return
	}
	h.Response.ExportResponse(c, result)
}

// SaveOutput writes the generated output under the data directory.
func (h *Handler) SaveOutput(c *gin.Context) {
	result, err := h.exports.Save(c.Param("id"))
	if err != nil {
		h.fail(c, err, services.MsgExportFailed)
		return
	}
	result.Content = ""
	h.Response.Created(c, result, "Prompt saved")
}

// ListExports names the files saved for the session.
func (h *Handler) ListExports(c *gin.Context) {
	files, err := h.exports.List(c.Param("id"))
	if err != nil {
		h.fail(c, err, services.MsgExportFailed)
		return
	}
	h.Response.Success(c, gin.H{"files": files})
}
