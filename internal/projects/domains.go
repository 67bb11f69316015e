package projects

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/webforge-labs/site-builder/internal/models"
)

// ErrDomainTaken is returned when the requested domain already belongs
// to another project
var ErrDomainTaken = errors.New("domain already taken")

// ListDomains returns all domains attached to a project the user owns
func (s *Service) ListDomains(ctx context.Context, projectID, userID uuid.UUID) ([]models.ProjectDomain, error) {
	if err := s.checkOwner(ctx, projectID, userID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, project_id, domain, is_free, status, verification_token, created_at
		 FROM project_domains
		 WHERE project_id = $1
		 ORDER BY created_at ASC`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list domains: %w", err)
	}
	defer rows.Close()

	var domains []models.ProjectDomain
	for rows.Next() {
		var d models.ProjectDomain
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.Domain, &d.IsFree, &d.Status, &d.VerificationToken, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan domain: %w", err)
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

// ClaimSubdomain attaches a free platform subdomain, active immediately
func (s *Service) ClaimSubdomain(ctx context.Context, projectID, userID uuid.UUID, subdomain string) (*models.ProjectDomain, error) {
	if err := s.checkOwner(ctx, projectID, userID); err != nil {
		return nil, err
	}

	domain := strings.ToLower(subdomain) + ".sites.webforge.dev"
	return s.insertDomain(ctx, projectID, domain, true, models.DomainActive, nil)
}

// AddCustomDomain attaches a user-owned domain. It starts in verifying
// state with a token the owner publishes as a _verify TXT record.
func (s *Service) AddCustomDomain(ctx context.Context, projectID, userID uuid.UUID, domain string) (*models.ProjectDomain, error) {
	if err := s.checkOwner(ctx, projectID, userID); err != nil {
		return nil, err
	}

	token := uuid.NewString()
	return s.insertDomain(ctx, projectID, strings.ToLower(domain), false, models.DomainVerifying, &token)
}

// VerifyDomain flips a verifying domain to active. DNS lookup of the
// TXT record is done by the caller; this is the bookkeeping step.
func (s *Service) VerifyDomain(ctx context.Context, domainID, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE project_domains d
		 SET status = 'active', verification_token = NULL
		 FROM projects p
		 WHERE d.id = $1 AND d.project_id = p.id AND p.user_id = $2 AND d.status = 'verifying'`,
		domainID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to verify domain: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveDomain detaches a domain from its project
func (s *Service) RemoveDomain(ctx context.Context, domainID, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM project_domains d
		 USING projects p
		 WHERE d.id = $1 AND d.project_id = p.id AND p.user_id = $2`,
		domainID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to remove domain: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) insertDomain(ctx context.Context, projectID uuid.UUID, domain string, isFree bool, status models.DomainStatus, token *string) (*models.ProjectDomain, error) {
	var d models.ProjectDomain
	err := s.pool.QueryRow(ctx,
		`INSERT INTO project_domains (project_id, domain, is_free, status, verification_token)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (domain) DO NOTHING
		 RETURNING id, project_id, domain, is_free, status, verification_token, created_at`,
		projectID, domain, isFree, status, token,
	).Scan(&d.ID, &d.ProjectID, &d.Domain, &d.IsFree, &d.Status, &d.VerificationToken, &d.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDomainTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add domain: %w", err)
	}
	return &d, nil
}

func (s *Service) checkOwner(ctx context.Context, projectID, userID uuid.UUID) error {
	var owner uuid.UUID
	err := s.pool.QueryRow(ctx, `SELECT user_id FROM projects WHERE id = $1`, projectID).Scan(&owner)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check project owner: %w", err)
	}
	if owner != userID {
		return ErrNotFound
	}
	return nil
}
