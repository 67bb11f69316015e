package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webforge-labs/site-builder/internal/auth"
	"github.com/webforge-labs/site-builder/internal/gateway"
	"github.com/webforge-labs/site-builder/internal/projects"
	"github.com/webforge-labs/site-builder/tests/helpers"
)

func setupRouter(t *testing.T, testDB *helpers.TestDatabase) (*gin.Engine, *auth.JWTManager) {
	t.Helper()

	if os.Getenv("JWT_SECRET") == "" {
		os.Setenv("JWT_SECRET", "integration-test-secret")
	}

	jwtManager, err := auth.NewJWTManager()
	require.NoError(t, err)

	projectService := projects.NewService(testDB.Pool)
	handler := gateway.NewHandler(projectService, jwtManager, testDB.Pool)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	api := router.Group("/api")
	api.POST("/auth/login", handler.Login)
	api.GET("/projects/public", handler.ListPublicProjects)

	protected := api.Group("")
	protected.Use(auth.RequireAuth(jwtManager))
	protected.POST("/projects", handler.CreateProject)
	protected.GET("/projects", handler.ListProjects)
	protected.GET("/projects/:id", handler.GetProject)
	protected.PUT("/projects/:id", handler.UpdateProject)
	protected.DELETE("/projects/:id", handler.DeleteProject)
	protected.GET("/projects/:id/files", handler.GetProjectFiles)
	protected.PUT("/projects/:id/files", handler.UpdateProjectFiles)
	protected.POST("/projects/:id/remix", handler.RemixProject)
	protected.GET("/projects/:id/domains", handler.ListDomains)
	protected.POST("/projects/:id/domains", handler.AddDomain)

	return router, jwtManager
}

func authedRequest(t *testing.T, router *gin.Engine, token, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewBuffer(data)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestProjectIntegration(t *testing.T) {
	testDB := helpers.NewTestDatabase(t)
	defer testDB.Close()

	config := SetupInClusterEnvironment()
	t.Logf("Using infrastructure - Database: %s, AI Gateway: %s", config.DatabaseURL, config.AIGatewayURL)

	router, jwtManager := setupRouter(t, testDB)

	userEmail := fmt.Sprintf("test-project-%d@example.com", time.Now().UnixNano())
	userID := testDB.CreateTestUser(t, userEmail, helpers.DefaultTestUser.Password)
	defer testDB.DeleteUser(t, userID)

	token, err := jwtManager.GenerateToken(context.Background(), userID, userEmail, []string{"user"}, time.Hour)
	require.NoError(t, err)

	t.Run("Login With Seeded Credentials", func(t *testing.T) {
		w := authedRequest(t, router, "", http.MethodPost, "/api/auth/login",
			helpers.CreateTestLoginRequest(userEmail, helpers.DefaultTestUser.Password))

		require.Equal(t, http.StatusOK, w.Code)
		resp := helpers.FromJSON(w.Body.String())
		assert.NotEmpty(t, resp["token"])
		assert.Equal(t, userID, resp["user_id"])
	})

	t.Run("Login Rejects Wrong Password", func(t *testing.T) {
		w := authedRequest(t, router, "", http.MethodPost, "/api/auth/login",
			helpers.CreateTestLoginRequest(userEmail, "wrong-password"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Project Lifecycle", func(t *testing.T) {
		// Create
		w := authedRequest(t, router, token, http.MethodPost, "/api/projects",
			helpers.CreateTestProjectRequest("My Portfolio", "personal site", "Build a portfolio"))
		require.Equal(t, http.StatusCreated, w.Code)

		created := helpers.FromJSON(w.Body.String())
		projectID, _ := created["id"].(string)
		require.NotEmpty(t, projectID)

		// Get
		w = authedRequest(t, router, token, http.MethodGet, "/api/projects/"+projectID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		got := helpers.FromJSON(w.Body.String())
		assert.Equal(t, "My Portfolio", got["name"])

		// List includes it
		w = authedRequest(t, router, token, http.MethodGet, "/api/projects", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), projectID)

		// Update visibility
		w = authedRequest(t, router, token, http.MethodPut, "/api/projects/"+projectID,
			map[string]interface{}{"name": "My Portfolio", "description": "now public", "is_public": true})
		require.Equal(t, http.StatusNoContent, w.Code)

		// Public listing picks it up without auth
		w = authedRequest(t, router, "", http.MethodGet, "/api/projects/public", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), projectID)

		// Delete
		w = authedRequest(t, router, token, http.MethodDelete, "/api/projects/"+projectID, nil)
		require.Equal(t, http.StatusNoContent, w.Code)

		w = authedRequest(t, router, token, http.MethodGet, "/api/projects/"+projectID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Create Without Description", func(t *testing.T) {
		w := authedRequest(t, router, token, http.MethodPost, "/api/projects",
			map[string]interface{}{"name": "Bare Project", "prompt": "Build something"})
		require.Equal(t, http.StatusCreated, w.Code)

		created := helpers.FromJSON(w.Body.String())
		projectID, _ := created["id"].(string)
		require.NotEmpty(t, projectID)
		assert.Nil(t, created["description"])

		// Clearing the description on update works too
		w = authedRequest(t, router, token, http.MethodPut, "/api/projects/"+projectID,
			map[string]interface{}{"name": "Bare Project", "description": "", "is_public": false})
		require.Equal(t, http.StatusNoContent, w.Code)

		w = authedRequest(t, router, token, http.MethodGet, "/api/projects/"+projectID, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, helpers.FromJSON(w.Body.String())["description"])
	})

	t.Run("Files Visible To Owner", func(t *testing.T) {
		projectID := testDB.CreateTestProject(t, userID, "Files Project", "prompt")
		testDB.CreateTestProjectFile(t, projectID, "App.tsx", "export default function App() {}")
		testDB.CreateTestProjectFile(t, projectID, "styles.css", "body { margin: 0 }")

		w := authedRequest(t, router, token, http.MethodGet, "/api/projects/"+projectID+"/files", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "App.tsx")
		assert.Contains(t, w.Body.String(), "styles.css")
		assert.Equal(t, 2, testDB.GetFileCount(t, projectID))
	})

	t.Run("Manual Edits Replace The File Collection", func(t *testing.T) {
		projectID := testDB.CreateTestProject(t, userID, "Edited Project", "prompt")
		testDB.CreateTestProjectFile(t, projectID, "App.tsx", "export default function App() {}")
		testDB.CreateTestProjectFile(t, projectID, "old.css", "body {}")

		w := authedRequest(t, router, token, http.MethodPut, "/api/projects/"+projectID+"/files",
			map[string]interface{}{"files": []map[string]string{
				{"name": "App.tsx", "content": "export default function App() { return null }"},
				{"name": "Hero.tsx", "content": "export function Hero() { return null }"},
			}})
		require.Equal(t, http.StatusNoContent, w.Code)

		// old.css is gone, App.tsx updated, Hero.tsx added
		w = authedRequest(t, router, token, http.MethodGet, "/api/projects/"+projectID+"/files", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Hero.tsx")
		assert.Contains(t, w.Body.String(), "return null")
		assert.NotContains(t, w.Body.String(), "old.css")
		assert.Equal(t, 2, testDB.GetFileCount(t, projectID))
	})

	t.Run("Remix Copies A Public Project", func(t *testing.T) {
		otherEmail := fmt.Sprintf("test-remix-%d@example.com", time.Now().UnixNano())
		otherID := testDB.CreateTestUser(t, otherEmail, "another-password")
		defer testDB.DeleteUser(t, otherID)

		sourceID := testDB.CreateTestProject(t, otherID, "Shared Site", "prompt")
		testDB.CreateTestProjectFile(t, sourceID, "App.tsx", "original")
		testDB.MarkProjectPublic(t, sourceID)

		w := authedRequest(t, router, token, http.MethodPost, "/api/projects/"+sourceID+"/remix", nil)
		require.Equal(t, http.StatusCreated, w.Code)

		remix := helpers.FromJSON(w.Body.String())
		assert.Equal(t, "Shared Site (Remix)", remix["name"])
		remixID, _ := remix["id"].(string)
		require.NotEmpty(t, remixID)
		assert.Equal(t, 1, testDB.GetFileCount(t, remixID))

		// Private projects cannot be remixed
		privateID := testDB.CreateTestProject(t, otherID, "Private Site", "prompt")
		w = authedRequest(t, router, token, http.MethodPost, "/api/projects/"+privateID+"/remix", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Domains", func(t *testing.T) {
		projectID := testDB.CreateTestProject(t, userID, "Domain Project", "prompt")

		// Free subdomain activates immediately
		sub := fmt.Sprintf("site-%d", time.Now().UnixNano())
		w := authedRequest(t, router, token, http.MethodPost, "/api/projects/"+projectID+"/domains",
			map[string]interface{}{"domain": sub, "free": true})
		require.Equal(t, http.StatusCreated, w.Code)
		free := helpers.FromJSON(w.Body.String())
		assert.Equal(t, "active", free["status"])

		// Custom domain starts in verifying with a token
		custom := fmt.Sprintf("example-%d.com", time.Now().UnixNano())
		w = authedRequest(t, router, token, http.MethodPost, "/api/projects/"+projectID+"/domains",
			map[string]interface{}{"domain": custom})
		require.Equal(t, http.StatusCreated, w.Code)
		pending := helpers.FromJSON(w.Body.String())
		assert.Equal(t, "verifying", pending["status"])
		assert.NotEmpty(t, pending["verification_token"])

		// Claiming the same domain again conflicts
		w = authedRequest(t, router, token, http.MethodPost, "/api/projects/"+projectID+"/domains",
			map[string]interface{}{"domain": custom})
		assert.Equal(t, http.StatusConflict, w.Code)

		// Both show up in the listing
		w = authedRequest(t, router, token, http.MethodGet, "/api/projects/"+projectID+"/domains", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), custom)
	})

	t.Run("Other Users Cannot Touch Private Projects", func(t *testing.T) {
		strangerEmail := fmt.Sprintf("test-stranger-%d@example.com", time.Now().UnixNano())
		strangerID := testDB.CreateTestUser(t, strangerEmail, "stranger-password")
		defer testDB.DeleteUser(t, strangerID)

		strangerToken, err := jwtManager.GenerateToken(context.Background(), strangerID, strangerEmail, []string{"user"}, time.Hour)
		require.NoError(t, err)

		projectID := testDB.CreateTestProject(t, userID, "Secret Project", "prompt")

		w := authedRequest(t, router, strangerToken, http.MethodGet, "/api/projects/"+projectID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = authedRequest(t, router, strangerToken, http.MethodDelete, "/api/projects/"+projectID, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
