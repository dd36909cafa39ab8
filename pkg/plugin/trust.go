package plugin

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// TrustStatus is the outcome of checking a manifest checksum against the
// user's recorded approval.
type TrustStatus string

const (
	// TrustUnknown means the plugin was never approved.
	TrustUnknown TrustStatus = "unknown"

	// TrustApproved means the checksum matches the approved one and the
	// plugin is enabled.
	TrustApproved TrustStatus = "approved"

	// TrustStale means the manifest changed since approval; capabilities
	// must stay inactive until the user re-approves.
	TrustStale TrustStatus = "stale"

	// TrustDisabled means the user switched the plugin off.
	TrustDisabled TrustStatus = "disabled"
)

// Approval is one trust-on-first-use record.
type Approval struct {
	PluginID   string
	Checksum   string
	Enabled    bool
	ApprovedAt time.Time
}

// TrustStore persists per-plugin approvals in SQLite.
type TrustStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// OpenTrustStore opens (and initializes) the trust database at path.
func OpenTrustStore(path string, logger zerolog.Logger) (*TrustStore, error) {
	if path == "" {
		return nil, errors.New("trust store path is required")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trust database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &TrustStore{
		db:     db,
		logger: logger.With().Str("component", "trust-store").Logger(),
	}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *TrustStore) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS plugin_trust (
		plugin_id   TEXT PRIMARY KEY,
		checksum    TEXT NOT NULL,
		enabled     INTEGER NOT NULL DEFAULT 1,
		approved_at TIMESTAMP NOT NULL
	)`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to initialize trust schema: %w", err)
	}
	return nil
}

// Approve records the user's approval of a specific manifest checksum,
// replacing any previous approval.
func (s *TrustStore) Approve(pluginID, checksum string) error {
	if pluginID == "" || checksum == "" {
		return errors.New("plugin id and checksum are required")
	}

	_, err := s.db.Exec(`
		INSERT INTO plugin_trust (plugin_id, checksum, enabled, approved_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(plugin_id) DO UPDATE SET
			checksum = excluded.checksum,
			enabled = 1,
			approved_at = excluded.approved_at`,
		pluginID, checksum, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record approval for %s: %w", pluginID, err)
	}

	s.logger.Info().Str("plugin", pluginID).Str("checksum", checksum).Msg("Plugin approved")
	return nil
}

// SetEnabled flips the enabled flag without touching the approved checksum.
func (s *TrustStore) SetEnabled(pluginID string, enabled bool) error {
	res, err := s.db.Exec(`UPDATE plugin_trust SET enabled = ? WHERE plugin_id = ?`, enabled, pluginID)
	if err != nil {
		return fmt.Errorf("failed to update enabled flag for %s: %w", pluginID, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("plugin %s has no approval record", pluginID)
	}
	return nil
}

// Revoke removes a plugin's approval entirely.
func (s *TrustStore) Revoke(pluginID string) error {
	if _, err := s.db.Exec(`DELETE FROM plugin_trust WHERE plugin_id = ?`, pluginID); err != nil {
		return fmt.Errorf("failed to revoke approval for %s: %w", pluginID, err)
	}
	return nil
}

// Approval returns the stored approval for a plugin, or nil when none
// exists.
func (s *TrustStore) Approval(pluginID string) (*Approval, error) {
	row := s.db.QueryRow(`
		SELECT plugin_id, checksum, enabled, approved_at
		FROM plugin_trust WHERE plugin_id = ?`, pluginID)

	var a Approval
	if err := row.Scan(&a.PluginID, &a.Checksum, &a.Enabled, &a.ApprovedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read approval for %s: %w", pluginID, err)
	}
	return &a, nil
}

// Status classifies a checksum against the stored approval.
func (s *TrustStore) Status(pluginID, checksum string) (TrustStatus, error) {
	approval, err := s.Approval(pluginID)
	if err != nil {
		return "", err
	}
	switch {
	case approval == nil:
		return TrustUnknown, nil
	case !approval.Enabled:
		return TrustDisabled, nil
	case approval.Checksum != checksum:
		return TrustStale, nil
	default:
		return TrustApproved, nil
	}
}

// Close closes the underlying database.
func (s *TrustStore) Close() error {
	return s.db.Close()
}
