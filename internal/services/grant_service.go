package services

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"

	"github.com/nrdvana/slidelink/internal/models"
)

var (
	ErrGrantNotFound = errors.New("grant not found")
	ErrGrantInactive = errors.New("grant is not active")
	ErrDuplicateKey  = errors.New("key already granted")
	ErrUnknownRole   = errors.New("unknown role")
	ErrEmptyKey      = errors.New("key is required")
)

const grantColumns = `id, key, label, roles, is_active, use_count, last_used, created_at, updated_at`

// GrantService stores the roles handed to each connection key
type GrantService struct {
	database *sql.DB
	log      zerolog.Logger
}

// NewGrantService creates a new grant service
func NewGrantService(database *sql.DB, logger zerolog.Logger) *GrantService {
	return &GrantService{
		database: database,
		log:      logger.With().Str("component", "grants").Logger(),
	}
}

// normalizeRoles trims, dedupes and sorts role names, rejecting unknown ones
func normalizeRoles(names []string) ([]string, error) {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		switch name {
		case models.RoleLead, models.RoleFollow, models.RoleNavigate, models.RoleNotes:
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownRole, name)
		}
		seen[name] = true
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func splitRoles(raw string) []string {
	if raw == "" {
		return []string{}
	}
	return strings.Split(raw, ",")
}

// CreateGrant registers a key with its roles
func (gs *GrantService) CreateGrant(key, label string, roleNames []string) (*models.Grant, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrEmptyKey
	}
	roleNames, err := normalizeRoles(roleNames)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	query := `INSERT INTO grants
		(id, key, label, roles, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = gs.database.Exec(query, id, key, label, strings.Join(roleNames, ","), true, now, now)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("failed to insert grant: %w", err)
	}

	gs.log.Info().Str("id", id).Str("label", label).Strs("roles", roleNames).Msg("grant created")
	return gs.GetGrant(id)
}

func scanGrant(scan func(dest ...any) error) (*models.Grant, error) {
	var grant models.Grant
	var roles string
	var lastUsed sql.NullTime

	err := scan(
		&grant.ID,
		&grant.Key,
		&grant.Label,
		&roles,
		&grant.IsActive,
		&grant.UseCount,
		&lastUsed,
		&grant.CreatedAt,
		&grant.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	grant.Roles = splitRoles(roles)
	if lastUsed.Valid {
		grant.LastUsed = &lastUsed.Time
	}
	return &grant, nil
}

func (gs *GrantService) getBy(column, value string) (*models.Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM grants WHERE ` + column + ` = ?`
	grant, err := scanGrant(gs.database.QueryRow(query, value).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrGrantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query grant: %w", err)
	}
	return grant, nil
}

// GetGrant returns a grant by id
func (gs *GrantService) GetGrant(id string) (*models.Grant, error) {
	return gs.getBy("id", id)
}

// GetGrantByKey returns a grant by its connection key
func (gs *GrantService) GetGrantByKey(key string) (*models.Grant, error) {
	return gs.getBy("key", strings.TrimSpace(key))
}

// ListGrants returns all grants, newest first
func (gs *GrantService) ListGrants() ([]*models.Grant, error) {
	query := `SELECT ` + grantColumns + ` FROM grants ORDER BY created_at DESC`

	rows, err := gs.database.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query grants: %w", err)
	}
	defer rows.Close()

	grants := []*models.Grant{}
	for rows.Next() {
		grant, err := scanGrant(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grant: %w", err)
		}
		grants = append(grants, grant)
	}
	return grants, rows.Err()
}

// GrantUpdate carries the fields of a partial update; nil fields are kept
type GrantUpdate struct {
	Label    *string
	Roles    []string
	IsActive *bool
}

// UpdateGrant changes a grant's label, roles or active flag. Peers already
// connected keep the roles they joined with.
func (gs *GrantService) UpdateGrant(id string, upd GrantUpdate) (*models.Grant, error) {
	grant, err := gs.GetGrant(id)
	if err != nil {
		return nil, err
	}
	if upd.Label != nil {
		grant.Label = *upd.Label
	}
	if upd.Roles != nil {
		if grant.Roles, err = normalizeRoles(upd.Roles); err != nil {
			return nil, err
		}
	}
	if upd.IsActive != nil {
		grant.IsActive = *upd.IsActive
	}

	query := `UPDATE grants
		SET label = ?, roles = ?, is_active = ?, updated_at = ?
		WHERE id = ?`
	_, err = gs.database.Exec(query, grant.Label, strings.Join(grant.Roles, ","), grant.IsActive, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update grant: %w", err)
	}

	gs.log.Info().Str("id", id).Strs("roles", grant.Roles).Bool("active", grant.IsActive).Msg("grant updated")
	return gs.GetGrant(id)
}

// DeleteGrant removes a grant
func (gs *GrantService) DeleteGrant(id string) error {
	result, err := gs.database.Exec(`DELETE FROM grants WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete grant: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrGrantNotFound
	}

	gs.log.Info().Str("id", id).Msg("grant deleted")
	return nil
}

// ResolveRoles looks up the roles for a connecting key and records the use
func (gs *GrantService) ResolveRoles(key string) ([]string, error) {
	grant, err := gs.GetGrantByKey(key)
	if err != nil {
		return nil, err
	}
	if !grant.IsActive {
		return nil, ErrGrantInactive
	}

	query := `UPDATE grants
		SET use_count = use_count + 1, last_used = ?
		WHERE id = ?`
	if _, err := gs.database.Exec(query, time.Now().UTC(), grant.ID); err != nil {
		return nil, fmt.Errorf("failed to record grant use: %w", err)
	}
	return grant.Roles, nil
}
