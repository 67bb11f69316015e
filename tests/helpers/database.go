package helpers

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

// GetTestDatabasePool creates a database connection pool for testing
func GetTestDatabasePool(ctx context.Context) (*pgxpool.Pool, error) {
	databaseURL := buildDatabaseURL()

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test the connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// buildDatabaseURL constructs the database URL from environment variables
func buildDatabaseURL() string {
	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}

	port := os.Getenv("POSTGRES_PORT")
	if port == "" {
		port = "5432"
	}

	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		user = "postgres"
	}

	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		password = "postgres"
	}

	dbname := os.Getenv("POSTGRES_DB")
	if dbname == "" {
		dbname = "site_builder"
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=prefer",
		user, password, host, port, dbname)
}

// TestDatabase provides database utilities for testing
type TestDatabase struct {
	Pool *pgxpool.Pool
	ctx  context.Context
}

// NewTestDatabase creates a new test database instance. Tests that need
// a real database skip when none is reachable.
func NewTestDatabase(t *testing.T) *TestDatabase {
	ctx := context.Background()

	pool, err := GetTestDatabasePool(ctx)
	if err != nil {
		t.Skipf("Skipping: test database not available: %v", err)
	}

	return &TestDatabase{
		Pool: pool,
		ctx:  ctx,
	}
}

// Close closes the database connection
func (db *TestDatabase) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// CreateTestUser creates a test user with a bcrypt-hashed password and
// returns the user ID
func (db *TestDatabase) CreateTestUser(t *testing.T, email, password string) string {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}

	var userID string
	err = db.Pool.QueryRow(db.ctx, `
		INSERT INTO users (email, hashed_password, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id
	`, email, string(hashed)).Scan(&userID)

	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return userID
}

// CreateTestProject creates a test project and returns the project ID
func (db *TestDatabase) CreateTestProject(t *testing.T, userID, name, prompt string) string {
	var projectID string
	err := db.Pool.QueryRow(db.ctx, `
		INSERT INTO projects (user_id, name, prompt, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING id
	`, userID, name, prompt).Scan(&projectID)

	if err != nil {
		t.Fatalf("Failed to create test project: %v", err)
	}

	return projectID
}

// CreateTestProjectFile inserts one file into a project
func (db *TestDatabase) CreateTestProjectFile(t *testing.T, projectID, name, content string) string {
	var fileID string
	err := db.Pool.QueryRow(db.ctx, `
		INSERT INTO project_files (project_id, name, content, language, created_at, updated_at)
		VALUES ($1, $2, $3, 'typescript', NOW(), NOW())
		RETURNING id
	`, projectID, name, content).Scan(&fileID)

	if err != nil {
		t.Fatalf("Failed to create test project file: %v", err)
	}

	return fileID
}

// MarkProjectPublic flips a project's visibility for remix tests
func (db *TestDatabase) MarkProjectPublic(t *testing.T, projectID string) {
	if _, err := db.Pool.Exec(db.ctx, `UPDATE projects SET is_public = TRUE WHERE id = $1`, projectID); err != nil {
		t.Fatalf("Failed to mark project public: %v", err)
	}
}

// DeleteUser removes a test user and, through cascades, everything the
// user owns
func (db *TestDatabase) DeleteUser(t *testing.T, userID string) {
	if _, err := db.Pool.Exec(db.ctx, `DELETE FROM users WHERE id = $1`, userID); err != nil {
		t.Logf("Warning: failed to delete test user %s: %v", userID, err)
	}
}

// GetProjectCount returns the number of projects a user owns
func (db *TestDatabase) GetProjectCount(t *testing.T, userID string) int {
	var count int
	err := db.Pool.QueryRow(db.ctx, `SELECT COUNT(*) FROM projects WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to get project count: %v", err)
	}
	return count
}

// GetFileCount returns the number of files stored for a project
func (db *TestDatabase) GetFileCount(t *testing.T, projectID string) int {
	var count int
	err := db.Pool.QueryRow(db.ctx, `SELECT COUNT(*) FROM project_files WHERE project_id = $1`, projectID).Scan(&count)
	if err != nil {
		t.Fatalf("Failed to get file count: %v", err)
	}
	return count
}
