package gateway

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/webforge-labs/site-builder/internal/auth"
	"github.com/webforge-labs/site-builder/internal/projects"
)

// Handler handles HTTP requests for the gateway layer
type Handler struct {
	projectService *projects.Service
	jwtManager     *auth.JWTManager
	pool           *pgxpool.Pool
}

// NewHandler creates a new gateway handler
func NewHandler(projectService *projects.Service, jwtManager *auth.JWTManager, pool *pgxpool.Pool) *Handler {
	return &Handler{
		projectService: projectService,
		jwtManager:     jwtManager,
		pool:           pool,
	}
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]string
// @Failure 401 {object} map[string]string
// @Router /auth/login [post]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var userID string
	var hashedPassword string
	err := h.pool.QueryRow(c.Request.Context(),
		`SELECT id, hashed_password FROM users WHERE email = $1`,
		req.Email,
	).Scan(&userID, &hashedPassword)

	if err != nil {
		log.Printf(`{"level":"warn","message":"User not found","email":"%s"}`, req.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(req.Password)); err != nil {
		log.Printf(`{"level":"warn","message":"Invalid password","email":"%s"}`, req.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	token, err := h.jwtManager.GenerateToken(
		c.Request.Context(),
		userID,
		req.Email,
		[]string{"user"},
		24*time.Hour,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:  token,
		UserID: userID,
	})
}

// CreateProjectRequest represents a project creation request
type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Prompt      string `json:"prompt" binding:"required"`
}

// UpdateProjectRequest represents a project update request
type UpdateProjectRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

// CreateProject godoc
// @Summary Create project
// @Description Create a new website project
// @Tags projects
// @Accept json
// @Produce json
// @Param request body CreateProjectRequest true "Project details"
// @Success 201 {object} models.Project
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /projects [post]
func (h *Handler) CreateProject(c *gin.Context) {
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	project, err := h.projectService.CreateProject(c.Request.Context(), userID, req.Name, req.Description, req.Prompt)
	if err != nil {
		log.Printf(`{"level":"error","message":"Failed to create project","error":"%v","user_id":"%s"}`, err, userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create project"})
		return
	}

	c.JSON(http.StatusCreated, project)
}

// ListProjects returns the authenticated user's projects
func (h *Handler) ListProjects(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}

	list, err := h.projectService.ListProjects(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list projects"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": list})
}

// ListPublicProjects returns recent public projects for the explore tab
func (h *Handler) ListPublicProjects(c *gin.Context) {
	list, err := h.projectService.ListPublicProjects(c.Request.Context(), 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list projects"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"projects": list})
}

// GetProject returns one project the caller owns or any public project
func (h *Handler) GetProject(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	project, err := h.projectService.GetProject(c.Request.Context(), projectID, userID)
	if errors.Is(err, projects.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get project"})
		return
	}
	c.JSON(http.StatusOK, project)
}

// UpdateProject changes a project's metadata and visibility
func (h *Handler) UpdateProject(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	err := h.projectService.UpdateProject(c.Request.Context(), projectID, userID, req.Name, req.Description, req.IsPublic)
	if errors.Is(err, projects.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update project"})
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteProject removes a project and its files
func (h *Handler) DeleteProject(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	err := h.projectService.DeleteProject(c.Request.Context(), projectID, userID)
	if errors.Is(err, projects.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete project"})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetProjectFiles returns the stored files of a project
func (h *Handler) GetProjectFiles(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	// Visibility check rides on GetProject
	if _, err := h.projectService.GetProject(c.Request.Context(), projectID, userID); err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get project"})
		return
	}

	files, err := h.projectService.GetFiles(c.Request.Context(), projectID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get files"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": files})
}

// UpdateFilesRequest carries a manual edit of a project's file collection
type UpdateFilesRequest struct {
	Files []FileEditRequest `json:"files" binding:"required"`
}

// FileEditRequest is one file in an UpdateFilesRequest
type FileEditRequest struct {
	Name    string `json:"name" binding:"required"`
	Content string `json:"content"`
}

// UpdateProjectFiles godoc
// @Summary Replace project files
// @Description Replace a project's file collection with manually edited content
// @Tags projects
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body UpdateFilesRequest true "Full file collection"
// @Success 204
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /projects/{id}/files [put]
func (h *Handler) UpdateProjectFiles(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req UpdateFilesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	edits := make([]projects.FileEdit, 0, len(req.Files))
	for _, f := range req.Files {
		edits = append(edits, projects.FileEdit{Name: f.Name, Content: f.Content})
	}

	err := h.projectService.ReplaceFiles(c.Request.Context(), projectID, userID, edits)
	if errors.Is(err, projects.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	if err != nil {
		log.Printf(`{"level":"error","message":"Failed to save files","error":"%v","project_id":"%s"}`, err, projectID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save files"})
		return
	}
	c.Status(http.StatusNoContent)
}

// RemixProject forks a public project into the caller's collection
func (h *Handler) RemixProject(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	remix, err := h.projectService.RemixProject(c.Request.Context(), projectID, userID)
	if errors.Is(err, projects.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found or not public"})
		return
	}
	if err != nil {
		log.Printf(`{"level":"error","message":"Failed to remix project","error":"%v","project_id":"%s"}`, err, projectID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remix project"})
		return
	}
	c.JSON(http.StatusCreated, remix)
}

// DomainRequest represents a domain attach request
type DomainRequest struct {
	Domain string `json:"domain" binding:"required"`
	Free   bool   `json:"free"`
}

// ListDomains returns the domains attached to a project
func (h *Handler) ListDomains(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	domains, err := h.projectService.ListDomains(c.Request.Context(), projectID, userID)
	if errors.Is(err, projects.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list domains"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"domains": domains})
}

// AddDomain claims a free subdomain or registers a custom domain for
// verification
func (h *Handler) AddDomain(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	projectID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	var req DomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	var domain interface{}
	var err error
	if req.Free {
		domain, err = h.projectService.ClaimSubdomain(c.Request.Context(), projectID, userID, req.Domain)
	} else {
		domain, err = h.projectService.AddCustomDomain(c.Request.Context(), projectID, userID, req.Domain)
	}

	switch {
	case errors.Is(err, projects.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Project not found"})
	case errors.Is(err, projects.ErrDomainTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "Domain already taken"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add domain"})
	default:
		c.JSON(http.StatusCreated, domain)
	}
}

// VerifyDomain marks a verifying custom domain as active
func (h *Handler) VerifyDomain(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	domainID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	err := h.projectService.VerifyDomain(c.Request.Context(), domainID, userID)
	if errors.Is(err, projects.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Domain not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify domain"})
		return
	}
	c.Status(http.StatusNoContent)
}

// RemoveDomain detaches a domain from its project
func (h *Handler) RemoveDomain(c *gin.Context) {
	userID, ok := h.currentUser(c)
	if !ok {
		return
	}
	domainID, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	err := h.projectService.RemoveDomain(c.Request.Context(), domainID, userID)
	if errors.Is(err, projects.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Domain not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove domain"})
		return
	}
	c.Status(http.StatusNoContent)
}

// currentUser pulls the authenticated user's id out of the gin context
func (h *Handler) currentUser(c *gin.Context) (uuid.UUID, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDVal.(string))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID"})
		return uuid.Nil, false
	}
	return userID, true
}

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return uuid.Nil, false
	}
	return id, true
}
