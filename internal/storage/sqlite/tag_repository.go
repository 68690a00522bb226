package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ifa-automation/scada-edge-agent/internal/core/domain"
	_ "modernc.org/sqlite"
)

// TagRepository is a database/sql-backed domain.TagRepository, the local
// tag/device table ConfigManager upserts into on every hot reload. Ported
// from infrastructure/src/database/tag_repository/*.rs, rebuilt for a
// single-tenant local store rather than the central server's shared
// Postgres table (edge-agent Tags carry no agent_id since V2).
type TagRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTagRepository opens (creating if needed) the SQLite-backed tag table
// at path.
func NewTagRepository(ctx context.Context, path string, logger *slog.Logger) (*TagRepository, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if path == "" {
		return nil, fmt.Errorf("tag repository path cannot be empty")
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create tag repository directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open tag repository: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("tag repository ping failed: %w", err)
	}

	r := &TagRepository{db: db, logger: logger}
	if err := r.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *TagRepository) initSchema(ctx context.Context) error {
	schema := `
CREATE TABLE IF NOT EXISTS tags (
    id TEXT PRIMARY KEY,
    device_id TEXT NOT NULL DEFAULT '',
    source_config BLOB,
    update_mode BLOB NOT NULL,
    value_type TEXT NOT NULL,
    value_schema BLOB,
    pipeline_config BLOB,
    enabled INTEGER NOT NULL DEFAULT 1
);
`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize tag repository schema: %w", err)
	}
	return nil
}

// Save upserts tag, keyed by its TagID.
func (r *TagRepository) Save(ctx context.Context, tag *domain.Tag) error {
	sourceConfig, err := json.Marshal(tag.SourceConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal source config for tag %s: %w", tag.ID(), err)
	}
	updateMode, err := json.Marshal(tag.UpdateMode())
	if err != nil {
		return fmt.Errorf("failed to marshal update mode for tag %s: %w", tag.ID(), err)
	}
	valueSchema, err := json.Marshal(tag.ValueSchema())
	if err != nil {
		return fmt.Errorf("failed to marshal value schema for tag %s: %w", tag.ID(), err)
	}
	pipelineConfig, err := json.Marshal(tag.PipelineConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal pipeline config for tag %s: %w", tag.ID(), err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO tags (id, device_id, source_config, update_mode, value_type, value_schema, pipeline_config, enabled)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    device_id = excluded.device_id,
    source_config = excluded.source_config,
    update_mode = excluded.update_mode,
    value_type = excluded.value_type,
    value_schema = excluded.value_schema,
    pipeline_config = excluded.pipeline_config,
    enabled = excluded.enabled
`,
		tag.ID().String(), tag.DeviceID(), sourceConfig, updateMode, string(tag.ValueType()), valueSchema, pipelineConfig, boolToInt(tag.IsEnabled()),
	)
	if err != nil {
		return fmt.Errorf("failed to save tag %s: %w", tag.ID(), err)
	}
	return nil
}

// FindByID returns the tag stored under id, or found=false if absent.
func (r *TagRepository) FindByID(ctx context.Context, id domain.TagID) (*domain.Tag, bool, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, device_id, source_config, update_mode, value_type, value_schema, pipeline_config, enabled
FROM tags WHERE id = ?`, id.String())

	tag, err := scanTag(row)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to find tag %s: %w", id, err)
	}
	return tag, true, nil
}

// FindAll returns every tag in the repository.
func (r *TagRepository) FindAll(ctx context.Context) ([]*domain.Tag, error) {
	return r.query(ctx, `SELECT id, device_id, source_config, update_mode, value_type, value_schema, pipeline_config, enabled FROM tags`)
}

// FindEnabled returns every enabled tag.
func (r *TagRepository) FindEnabled(ctx context.Context) ([]*domain.Tag, error) {
	return r.query(ctx, `SELECT id, device_id, source_config, update_mode, value_type, value_schema, pipeline_config, enabled FROM tags WHERE enabled = 1`)
}

func (r *TagRepository) query(ctx context.Context, query string) ([]*domain.Tag, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []*domain.Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// Delete removes the tag stored under id, a no-op if it isn't present.
func (r *TagRepository) Delete(ctx context.Context, id domain.TagID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete tag %s: %w", id, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (r *TagRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTag(row rowScanner) (*domain.Tag, error) {
	var (
		id, deviceID, valueType string
		sourceConfig            []byte
		updateModeRaw           []byte
		valueSchemaRaw          []byte
		pipelineConfigRaw       []byte
		enabled                 int
	)
	if err := row.Scan(&id, &deviceID, &sourceConfig, &updateModeRaw, &valueType, &valueSchemaRaw, &pipelineConfigRaw, &enabled); err != nil {
		return nil, err
	}

	tagID, err := domain.NewTagID(id)
	if err != nil {
		return nil, err
	}

	var source any
	if len(sourceConfig) > 0 {
		if err := json.Unmarshal(sourceConfig, &source); err != nil {
			return nil, err
		}
	}

	var updateMode domain.UpdateMode
	if err := json.Unmarshal(updateModeRaw, &updateMode); err != nil {
		return nil, err
	}

	var valueSchema any
	if len(valueSchemaRaw) > 0 {
		if err := json.Unmarshal(valueSchemaRaw, &valueSchema); err != nil {
			return nil, err
		}
	}

	var pipelineConfig domain.PipelineConfig
	if len(pipelineConfigRaw) > 0 {
		if err := json.Unmarshal(pipelineConfigRaw, &pipelineConfig); err != nil {
			return nil, err
		}
	}

	tag := domain.NewTag(tagID, deviceID, source, updateMode, domain.TagValueType(valueType), pipelineConfig)
	if valueSchema != nil {
		tag.SetValueSchema(valueSchema)
	}
	if enabled == 0 {
		tag.Disable()
	}
	return tag, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
