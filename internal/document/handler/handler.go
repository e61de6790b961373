package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/docdesk/docdesk/backend/go-services/internal/document"
	"github.com/docdesk/docdesk/backend/go-services/internal/document/service"
	"github.com/docdesk/docdesk/backend/go-services/internal/models"
	"github.com/docdesk/docdesk/backend/go-services/pkg/logger"
	"github.com/docdesk/docdesk/backend/go-services/pkg/middleware"
	"github.com/docdesk/docdesk/backend/go-services/pkg/respond"
)

// Handler serves the documents and categories resources.
type Handler struct {
	svc service.Service
	log *logger.Logger
}

func New(svc service.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{svc: svc, log: log}
}

// RegisterRoutes mounts the resources under rg, which is expected to be the
// /api/documents group with AuthMiddleware already applied.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Use(middleware.RequireAuthForWrites(h.log))

	docs := rg.Group("/documents")
	docs.GET("/", h.listDocuments)
	docs.POST("/", h.createDocument)
	docs.GET("/my_documents/", middleware.RequireAuth(h.log), h.myDocuments)
	docs.GET("/:id/", h.getDocument)
	docs.PUT("/:id/", h.updateDocument(true))
	docs.PATCH("/:id/", h.updateDocument(false))
	docs.DELETE("/:id/", h.deleteDocument)

	cats := rg.Group("/categories")
	cats.GET("/", h.listCategories)
	cats.POST("/", h.createCategory)
	cats.GET("/tree/", h.categoryTree)
	cats.GET("/:id/", h.getCategory)
	cats.PUT("/:id/", h.updateCategory(true))
	cats.PATCH("/:id/", h.updateCategory(false))
	cats.DELETE("/:id/", h.deleteCategory)
}

type documentRequest struct {
	Title      *string `json:"title"`
	Content    *string `json:"content"`
	CategoryID *int64  `json:"category_id"`
	Category   *int64  `json:"category"`
}

func (r documentRequest) input() service.DocumentInput {
	in := service.DocumentInput{Title: r.Title, Content: r.Content, CategoryID: r.CategoryID}
	if in.CategoryID == nil {
		in.CategoryID = r.Category
	}
	return in
}

type categoryRequest struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	Parent      document.OptionalID `json:"parent"`
}

func (r categoryRequest) input() service.CategoryInput {
	return service.CategoryInput{Name: r.Name, Description: r.Description, Parent: r.Parent}
}

func actor(c *gin.Context) *models.User {
	u, _ := middleware.CurrentUser(c)
	return u
}

// fail maps service errors onto the standard error body.
func (h *Handler) fail(c *gin.Context, err error) {
	var ve *document.ValidationError
	switch {
	case errors.As(err, &ve):
		respond.Error(c, h.log, http.StatusBadRequest, "validation_error", "Invalid input.", ve.Fields)
	case errors.Is(err, document.ErrValidation):
		respond.Error(c, h.log, http.StatusBadRequest, "validation_error", "Invalid input.", nil)
	case errors.Is(err, document.ErrNotFound):
		respond.Error(c, h.log, http.StatusNotFound, "not_found", "Not found.", nil)
	case errors.Is(err, document.ErrUnauthenticated):
		respond.Error(c, h.log, http.StatusUnauthorized, "unauthenticated", "Authentication credentials were not provided.", nil)
	default:
		h.log.Errorf("documents %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		respond.Error(c, h.log, http.StatusInternalServerError, "internal", "Internal server error", nil)
	}
}

// pathID parses :id. A malformed id cannot name a resource, so it is a 404.
func (h *Handler) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(c, h.log, http.StatusNotFound, "not_found", "Not found.", nil)
		return 0, false
	}
	return id, true
}

func (h *Handler) queryID(c *gin.Context, name string) (*int64, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respond.Error(c, h.log, http.StatusBadRequest, "validation_error", "Invalid input.", map[string]string{name: "Select a valid choice."})
		return nil, false
	}
	return &id, true
}

func (h *Handler) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respond.Error(c, h.log, http.StatusBadRequest, "validation_error", "Malformed request body", err.Error())
		return false
	}
	return true
}

func (h *Handler) listDocuments(c *gin.Context) {
	authorID, ok := h.queryID(c, "author")
	if !ok {
		return
	}
	categoryID, ok := h.queryID(c, "category")
	if !ok {
		return
	}
	q := document.DocumentQuery{
		AuthorID:   authorID,
		CategoryID: categoryID,
		Search:     strings.TrimSpace(c.Query("search")),
		Ordering:   document.ParseOrdering(c.Query("ordering"), document.DocumentOrderFields, document.DefaultDocumentOrder),
	}
	list, err := h.svc.ListDocuments(c.Request.Context(), actor(c), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) myDocuments(c *gin.Context) {
	list, err := h.svc.MyDocuments(c.Request.Context(), actor(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) getDocument(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	d, err := h.svc.GetDocument(c.Request.Context(), actor(c), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) createDocument(c *gin.Context) {
	var req documentRequest
	if !h.bind(c, &req) {
		return
	}
	d, err := h.svc.CreateDocument(c.Request.Context(), actor(c), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *Handler) updateDocument(full bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.pathID(c)
		if !ok {
			return
		}
		var req documentRequest
		if !h.bind(c, &req) {
			return
		}
		d, err := h.svc.UpdateDocument(c.Request.Context(), actor(c), id, req.input(), full)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	}
}

func (h *Handler) deleteDocument(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteDocument(c.Request.Context(), actor(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) listCategories(c *gin.Context) {
	q := document.CategoryQuery{
		Search:   strings.TrimSpace(c.Query("search")),
		Ordering: document.ParseOrdering(c.Query("ordering"), document.CategoryOrderFields, document.DefaultCategoryOrder),
	}
	list, err := h.svc.ListCategories(c.Request.Context(), q)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) categoryTree(c *gin.Context) {
	list, err := h.svc.CategoryTree(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *Handler) getCategory(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	cat, err := h.svc.GetCategory(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cat)
}

func (h *Handler) createCategory(c *gin.Context) {
	var req categoryRequest
	if !h.bind(c, &req) {
		return
	}
	cat, err := h.svc.CreateCategory(c.Request.Context(), actor(c), req.input())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}

func (h *Handler) updateCategory(full bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := h.pathID(c)
		if !ok {
			return
		}
		var req categoryRequest
		if !h.bind(c, &req) {
			return
		}
		cat, err := h.svc.UpdateCategory(c.Request.Context(), actor(c), id, req.input(), full)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, cat)
	}
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteCategory(c.Request.Context(), actor(c), id); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
