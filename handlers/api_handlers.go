package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"student-roster-go/cache"
	"student-roster-go/db"
	"student-roster-go/models"
	"student-roster-go/sanitize"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Agent answers free-text prompts. The reply is passed through sanitize.Sanitize.
type Agent interface {
	Ask(ctx context.Context, prompt string) (any, error)
}

// AgentFunc adapts a function to Agent
type AgentFunc func(ctx context.Context, prompt string) (any, error)

func (f AgentFunc) Ask(ctx context.Context, prompt string) (any, error) { return f(ctx, prompt) }

// APIHandler holds the dependencies for API handlers
type APIHandler struct {
	Store  *db.JSONStore
	Agent  Agent
	Cache  cache.Cache
	Logger *zap.Logger
}

// NewAPIHandler creates a new APIHandler. A nil cache disables reply caching.
func NewAPIHandler(store *db.JSONStore, agent Agent, replies cache.Cache, logger *zap.Logger) *APIHandler {
	if replies == nil {
		replies = cache.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIHandler{
		Store:  store,
		Agent:  agent,
		Cache:  replies,
		Logger: logger,
	}
}

// --- Chat Handler ---

type chatRequest struct {
	Prompt any `json:"prompt"`
}

// Chat handles POST /api/chat
func (h *APIHandler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing prompt (string) in body."})
		return
	}
	prompt, ok := req.Prompt.(string)
	if !ok || prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing prompt (string) in body."})
		return
	}

	ctx := c.Request.Context()
	revision := h.Store.Revision()
	key := cache.Key(revision, prompt)
	if cached, hit := h.Cache.Get(ctx, key); hit {
		h.Logger.Debug("Reply cache hit", zap.String("request_id", RequestID(c)))
		c.JSON(http.StatusOK, gin.H{"respuesta": cached})
		return
	}

	raw, err := h.Agent.Ask(ctx, prompt)
	if err != nil {
		h.Logger.Error("Agent failed", zap.String("request_id", RequestID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	answer := sanitize.Sanitize(raw)

	// replies to prompts that changed the roster must not be replayed
	if h.Store.Revision() == revision {
		h.Cache.Set(ctx, key, answer)
	}
	c.JSON(http.StatusOK, gin.H{"respuesta": answer})
}

// --- Student Handlers ---

// GetStudents handles GET /api/students
func (h *APIHandler) GetStudents(c *gin.Context) {
	c.JSON(http.StatusOK, h.Store.Students())
}

// GetListing handles GET /api/students/listing
func (h *APIHandler) GetListing(c *gin.Context) {
	c.String(http.StatusOK, h.Store.RenderListing())
}

// SearchStudents handles GET /api/students/search?name=...|surname=...
func (h *APIHandler) SearchStudents(c *gin.Context) {
	if name := c.Query("name"); name != "" {
		c.JSON(http.StatusOK, h.Store.SearchByName(name))
		return
	}
	if surname := c.Query("surname"); surname != "" {
		c.JSON(http.StatusOK, h.Store.SearchBySurname(surname))
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'name' or 'surname' is required"})
}

// AddStudent handles POST /api/students
func (h *APIHandler) AddStudent(c *gin.Context) {
	var student models.Student
	if err := c.ShouldBindJSON(&student); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	err := h.Store.Add(student.Nombre, student.Apellido, student.Curso)
	if err != nil {
		if errors.Is(err, db.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.Logger.Error("Error in AddStudent handler", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save student"})
		return
	}

	c.JSON(http.StatusCreated, student)
}

// --- Import / Export Handlers ---

// ImportStudents handles POST /api/import/students
func (h *APIHandler) ImportStudents(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Error retrieving uploaded file: " + err.Error()})
		return
	}
	defer file.Close()

	h.Logger.Info("Received file upload", zap.String("filename", header.Filename))

	importedCount, err := h.Store.ImportFromExcel(file)
	if err != nil {
		h.Logger.Error("Error importing students", zap.String("filename", header.Filename), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Failed to import students: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Import successful",
		"importedCount": importedCount,
	})
}

// ExportStudents handles GET /api/export/students
func (h *APIHandler) ExportStudents(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.Store.ExportExcel(&buf); err != nil {
		h.Logger.Error("Error exporting students", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export students"})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="alumnos.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// --- Ping Handler ---
func PingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Pong!"})
}
