package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docdesk/docdesk/backend/go-services/internal/jobs"
	"github.com/docdesk/docdesk/backend/go-services/internal/mail"
	"github.com/docdesk/docdesk/backend/go-services/pkg/logger"
	"github.com/docdesk/docdesk/backend/go-services/pkg/middleware"
	"github.com/docdesk/docdesk/backend/go-services/pkg/respond"
)

// JobQueue submits jobs and reports their status.
type JobQueue interface {
	Submit(ctx context.Context, name string, args interface{}) (string, error)
	Status(ctx context.Context, taskID string) (*jobs.Report, error)
}

// TasksHandler exposes background jobs over HTTP.
type TasksHandler struct {
	queue JobQueue
	log   *logger.Logger
}

func NewTasksHandler(q JobQueue, log *logger.Logger) *TasksHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &TasksHandler{queue: q, log: log}
}

// Register routes under /tasks. Every route requires authentication.
func (h *TasksHandler) Register(rg *gin.RouterGroup) {
	t := rg.Group("/tasks", middleware.RequireAuth(h.log))
	t.POST("/sample/", h.Sample)
	t.POST("/email/", h.Email)
	t.POST("/add/", h.Add)
	t.POST("/process/", h.Process)
	t.GET("/:id/status/", h.Status)
}

func (h *TasksHandler) Sample(c *gin.Context) {
	id, err := h.queue.Submit(c.Request.Context(), jobs.TaskSample, nil)
	if err != nil {
		h.log.Errorf("Error starting task: %v", err)
		respond.Error(c, h.log, http.StatusInternalServerError, "internal", "Failed to start task", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"task_id": id,
		"status":  "Task started",
		"message": "Sample task has been queued",
	})
}

type emailRequest struct {
	Email   string  `json:"email"`
	Subject *string `json:"subject"`
	Message *string `json:"message"`
}

func (h *TasksHandler) Email(c *gin.Context) {
	var req emailRequest
	if err := bindOptional(c, &req); err != nil {
		respond.Error(c, h.log, http.StatusBadRequest, "validation_error", "Malformed request body", err.Error())
		return
	}
	recipient := strings.TrimSpace(req.Email)
	if recipient == "" {
		respond.Error(c, h.log, http.StatusBadRequest, "validation_error", "Email recipient is required", nil)
		return
	}
	args := jobs.EmailArgs{
		Recipient: recipient,
		Subject:   "Test Email",
		Message:   "This is a test email sent via Celery.",
	}
	if req.Subject != nil {
		args.Subject = *req.Subject
	}
	if req.Message != nil {
		args.Message = *req.Message
	}
	bad := map[string]string{}
	if mail.CheckHeader(args.Recipient) != nil {
		bad["email"] = "Header values may not contain line breaks."
	}
	if mail.CheckHeader(args.Subject) != nil {
		bad["subject"] = "Header values may not contain line breaks."
	}
	if len(bad) > 0 {
		respond.Error(c, h.log, http.StatusBadRequest, "validation_error", "Invalid email header", bad)
		return
	}
	id, err := h.queue.Submit(c.Request.Context(), jobs.TaskSendEmail, args)
	if err != nil {
		h.log.Errorf("Error sending email: %v", err)
		respond.Error(c, h.log, http.StatusInternalServerError, "internal", "Failed to queue email", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"task_id": id,
		"status":  "Email queued",
		"message": fmt.Sprintf("Email to %s has been queued", recipient),
	})
}

func (h *TasksHandler) Add(c *gin.Context) {
	var req struct {
		X *float64 `json:"x"`
		Y *float64 `json:"y"`
	}
	if err := bindOptional(c, &req); err != nil {
		respond.Error(c, h.log, http.StatusBadRequest, "validation_error", "x and y must be numbers", err.Error())
		return
	}
	missing := map[string]string{}
	if req.X == nil {
		missing["x"] = "This field is required."
	}
	if req.Y == nil {
		missing["y"] = "This field is required."
	}
	if len(missing) > 0 {
		respond.Error(c, h.log, http.StatusBadRequest, "validation_error", "Invalid input.", missing)
		return
	}
	h.submit(c, jobs.TaskAddNumbers, jobs.AddArgs{X: *req.X, Y: *req.Y})
}

func (h *TasksHandler) Process(c *gin.Context) {
	var req struct {
		Data json.RawMessage `json:"data"`
	}
	if err := bindOptional(c, &req); err != nil {
		respond.Error(c, h.log, http.StatusBadRequest, "validation_error", "Malformed request body", err.Error())
		return
	}
	if len(req.Data) == 0 {
		respond.Error(c, h.log, http.StatusBadRequest, "validation_error", "Invalid input.", map[string]string{"data": "This field is required."})
		return
	}
	h.submit(c, jobs.TaskProcessData, jobs.ProcessArgs{Data: req.Data})
}

func (h *TasksHandler) submit(c *gin.Context, name string, args interface{}) {
	id, err := h.queue.Submit(c.Request.Context(), name, args)
	if err != nil {
		h.log.Errorf("Error starting %s: %v", name, err)
		respond.Error(c, h.log, http.StatusInternalServerError, "internal", "Failed to start task", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task_id": id, "status": "Task started"})
}

func (h *TasksHandler) Status(c *gin.Context) {
	rep, err := h.queue.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.log.Errorf("task status %s: %v", c.Param("id"), err)
		respond.Error(c, h.log, http.StatusInternalServerError, "internal", "Failed to load task status", nil)
		return
	}
	c.JSON(http.StatusOK, rep)
}
