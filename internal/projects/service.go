package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/webforge-labs/site-builder/internal/generation"
	"github.com/webforge-labs/site-builder/internal/models"
)

// ErrNotFound is returned when a project or domain does not exist or is
// not visible to the caller
var ErrNotFound = errors.New("not found")

// Service owns persistence of projects, their files, and their domains
type Service struct {
	pool *pgxpool.Pool
}

// NewService creates a project service backed by a Postgres pool
func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

// CreateProject stores a new project for a user
func (s *Service) CreateProject(ctx context.Context, userID uuid.UUID, name, description, prompt string) (*models.Project, error) {
	var project models.Project
	err := s.pool.QueryRow(ctx,
		`INSERT INTO projects (user_id, name, description, prompt)
		 VALUES ($1, $2, NULLIF($3, ''), $4)
		 RETURNING id, user_id, name, description, prompt, is_public, remix_count, original_project_id, created_at, updated_at`,
		userID, name, description, prompt,
	).Scan(&project.ID, &project.UserID, &project.Name, &project.Description, &project.Prompt,
		&project.IsPublic, &project.RemixCount, &project.OriginalProjectID, &project.CreatedAt, &project.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return &project, nil
}

// GetProject returns a project the user owns, or any public project
func (s *Service) GetProject(ctx context.Context, projectID, userID uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, name, description, prompt, is_public, remix_count, original_project_id, created_at, updated_at
		 FROM projects
		 WHERE id = $1 AND (user_id = $2 OR is_public = true)`,
		projectID, userID,
	).Scan(&project.ID, &project.UserID, &project.Name, &project.Description, &project.Prompt,
		&project.IsPublic, &project.RemixCount, &project.OriginalProjectID, &project.CreatedAt, &project.UpdatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &project, nil
}

// ListProjects returns the user's projects, most recently updated first
func (s *Service) ListProjects(ctx context.Context, userID uuid.UUID) ([]models.Project, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, description, prompt, is_public, remix_count, original_project_id, created_at, updated_at
		 FROM projects
		 WHERE user_id = $1
		 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	return scanProjects(rows)
}

// ListPublicProjects returns the newest public projects for the explore tab
func (s *Service) ListPublicProjects(ctx context.Context, limit int) ([]models.Project, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, description, prompt, is_public, remix_count, original_project_id, created_at, updated_at
		 FROM projects
		 WHERE is_public = true
		 ORDER BY updated_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list public projects: %w", err)
	}
	defer rows.Close()

	return scanProjects(rows)
}

// UpdateProject changes a project's name, description, and visibility
func (s *Service) UpdateProject(ctx context.Context, projectID, userID uuid.UUID, name, description string, isPublic bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE projects
		 SET name = $1, description = NULLIF($2, ''), is_public = $3, updated_at = NOW()
		 WHERE id = $4 AND user_id = $5`,
		name, description, isPublic, projectID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProject removes a project and, via cascade, its files and domains
func (s *Service) DeleteProject(ctx context.Context, projectID, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM projects WHERE id = $1 AND user_id = $2`,
		projectID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetFiles returns a project's stored files
func (s *Service) GetFiles(ctx context.Context, projectID uuid.UUID) ([]models.ProjectFile, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, name, content, language, created_at, updated_at
		 FROM project_files
		 WHERE project_id = $1
		 ORDER BY created_at ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get project files: %w", err)
	}
	defer rows.Close()

	var files []models.ProjectFile
	for rows.Next() {
		var f models.ProjectFile
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Name, &f.Content, &f.Language, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// SaveGeneratedFiles persists the reducer's completed file collection
// verbatim. Runs after a generation reaches its completed state; each
// name is upserted so repeated generations replace prior content.
func (s *Service) SaveGeneratedFiles(ctx context.Context, projectID, userID uuid.UUID, files []generation.SessionFile) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var owner uuid.UUID
	err = tx.QueryRow(ctx, `SELECT user_id FROM projects WHERE id = $1`, projectID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check project owner: %w", err)
	}
	if owner != userID {
		return ErrNotFound
	}

	for _, file := range files {
		_, err := tx.Exec(ctx,
			`INSERT INTO project_files (project_id, name, content, language)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (project_id, name)
			 DO UPDATE SET content = EXCLUDED.content, updated_at = NOW()`,
			projectID, file.Name, file.Content, languageFor(file.Name),
		)
		if err != nil {
			return fmt.Errorf("failed to save file %s: %w", file.Name, err)
		}
	}

	_, err = tx.Exec(ctx, `UPDATE projects SET updated_at = NOW() WHERE id = $1`, projectID)
	if err != nil {
		return fmt.Errorf("failed to touch project: %w", err)
	}

	return tx.Commit(ctx)
}

// FileEdit is one file in a manual edit of a project's collection.
type FileEdit struct {
	Name    string
	Content string
}

// ReplaceFiles swaps a project's file collection for the given set.
// Files absent from the set are removed; the rest are upserted. Used
// by the editor's save path, which owns the collection once a
// generation has finished.
func (s *Service) ReplaceFiles(ctx context.Context, projectID, userID uuid.UUID, files []FileEdit) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var owner uuid.UUID
	err = tx.QueryRow(ctx, `SELECT user_id FROM projects WHERE id = $1`, projectID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check project owner: %w", err)
	}
	if owner != userID {
		return ErrNotFound
	}

	names := make([]string, 0, len(files))
	for _, file := range files {
		names = append(names, file.Name)
	}
	_, err = tx.Exec(ctx,
		`DELETE FROM project_files WHERE project_id = $1 AND name != ALL($2)`,
		projectID, names,
	)
	if err != nil {
		return fmt.Errorf("failed to prune files: %w", err)
	}

	for _, file := range files {
		_, err := tx.Exec(ctx,
			`INSERT INTO project_files (project_id, name, content, language)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (project_id, name)
			 DO UPDATE SET content = EXCLUDED.content, updated_at = NOW()`,
			projectID, file.Name, file.Content, languageFor(file.Name),
		)
		if err != nil {
			return fmt.Errorf("failed to save file %s: %w", file.Name, err)
		}
	}

	_, err = tx.Exec(ctx, `UPDATE projects SET updated_at = NOW() WHERE id = $1`, projectID)
	if err != nil {
		return fmt.Errorf("failed to touch project: %w", err)
	}

	return tx.Commit(ctx)
}

// RemixProject forks a public project into the user's own collection:
// copy metadata and files, record the origin, bump the remix counter.
func (s *Service) RemixProject(ctx context.Context, sourceID, userID uuid.UUID) (*models.Project, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var source models.Project
	err = tx.QueryRow(ctx,
		`SELECT id, name, description, prompt, remix_count
		 FROM projects
		 WHERE id = $1 AND is_public = true`,
		sourceID,
	).Scan(&source.ID, &source.Name, &source.Description, &source.Prompt, &source.RemixCount)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load source project: %w", err)
	}

	var remix models.Project
	err = tx.QueryRow(ctx,
		`INSERT INTO projects (user_id, name, description, prompt, is_public, original_project_id)
		 VALUES ($1, $2, $3, $4, false, $5)
		 RETURNING id, user_id, name, description, prompt, is_public, remix_count, original_project_id, created_at, updated_at`,
		userID, source.Name+" (Remix)", source.Description, source.Prompt, source.ID,
	).Scan(&remix.ID, &remix.UserID, &remix.Name, &remix.Description, &remix.Prompt,
		&remix.IsPublic, &remix.RemixCount, &remix.OriginalProjectID, &remix.CreatedAt, &remix.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create remix: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO project_files (project_id, name, content, language)
		 SELECT $1, name, content, language FROM project_files WHERE project_id = $2`,
		remix.ID, source.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to copy files: %w", err)
	}

	_, err = tx.Exec(ctx,
		`UPDATE projects SET remix_count = remix_count + 1 WHERE id = $1`,
		source.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to bump remix count: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit remix: %w", err)
	}
	return &remix, nil
}

func scanProjects(rows pgx.Rows) ([]models.Project, error) {
	var projects []models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.Prompt,
			&p.IsPublic, &p.RemixCount, &p.OriginalProjectID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func languageFor(name string) string {
	switch {
	case strings.HasSuffix(name, ".tsx"), strings.HasSuffix(name, ".ts"):
		return "typescript"
	case strings.HasSuffix(name, ".jsx"), strings.HasSuffix(name, ".js"):
		return "javascript"
	case strings.HasSuffix(name, ".css"):
		return "css"
	default:
		return "text"
	}
}
