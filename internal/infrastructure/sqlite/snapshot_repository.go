package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/implindex/internal/domain/implementors"
	"github.com/zjrosen/implindex/internal/log"
	"github.com/zjrosen/implindex/internal/tracing"
)

// Store errors
var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrDuplicateBuildID = errors.New("snapshot build id already stored")
)

// SnapshotSummary describes a stored snapshot without its modules.
type SnapshotSummary struct {
	BuildID     string
	ModuleCount int
	CreatedAt   time.Time
}

// Snapshot is a stored index: every module in the order it was saved.
type Snapshot struct {
	SnapshotSummary
	Modules []implementors.ModuleIndex
}

// SnapshotRepository stores and loads index snapshots.
type SnapshotRepository struct {
	db     *sql.DB
	tracer trace.Tracer
	now    func() time.Time
}

func newSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db, tracer: tracing.Noop(), now: time.Now}
}

// WithTracer sets the tracer used for Save spans.
func (r *SnapshotRepository) WithTracer(t trace.Tracer) *SnapshotRepository {
	if t != nil {
		r.tracer = t
	}
	return r
}

// NewBuildID returns a fresh build identifier.
func NewBuildID() string {
	return uuid.NewString()
}

// Save stores modules as one snapshot in a single transaction. An empty
// buildID is replaced with a generated one.
func (r *SnapshotRepository) Save(ctx context.Context, buildID string, modules []implementors.ModuleIndex) (SnapshotSummary, error) {
	if buildID == "" {
		buildID = NewBuildID()
	}
	ctx, span := r.tracer.Start(ctx, tracing.SpanSnapshot, trace.WithAttributes(
		attribute.String(tracing.AttrBuildID, buildID),
		attribute.Int(tracing.AttrModuleCount, len(modules)),
	))
	defer span.End()

	summary, err := r.save(ctx, buildID, modules)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.ErrorErr(log.CatStore, "snapshot save failed", err, "build_id", buildID)
		return SnapshotSummary{}, err
	}
	log.Info(log.CatStore, "snapshot saved", "build_id", buildID, "modules", len(modules))
	return summary, nil
}

func (r *SnapshotRepository) save(ctx context.Context, buildID string, modules []implementors.ModuleIndex) (SnapshotSummary, error) {
	model := SnapshotModel{BuildID: buildID, ModuleCount: len(modules), CreatedAt: r.now().Unix()}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return SnapshotSummary{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots WHERE build_id = ?`, buildID).Scan(&exists)
	if err != nil {
		return SnapshotSummary{}, fmt.Errorf("failed to check build id: %w", err)
	}
	if exists > 0 {
		return SnapshotSummary{}, fmt.Errorf("%w: %s", ErrDuplicateBuildID, buildID)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO snapshots (build_id, module_count, created_at) VALUES (?, ?, ?)`,
		model.BuildID, model.ModuleCount, model.CreatedAt,
	)
	if err != nil {
		return SnapshotSummary{}, fmt.Errorf("failed to insert snapshot: %w", err)
	}
	model.ID, err = result.LastInsertId()
	if err != nil {
		return SnapshotSummary{}, fmt.Errorf("failed to get last insert id: %w", err)
	}

	for i, idx := range modules {
		m, err := toModuleModel(model.ID, i, idx, buildID)
		if err != nil {
			return SnapshotSummary{}, err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO snapshot_modules (snapshot_id, position, name, record_count, payload) VALUES (?, ?, ?, ?, ?)`,
			m.SnapshotID, m.Position, m.Name, m.RecordCount, m.Payload,
		)
		if err != nil {
			return SnapshotSummary{}, fmt.Errorf("failed to insert module %s: %w", m.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return SnapshotSummary{}, fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return model.toSummary(), nil
}

// Load returns the snapshot stored under buildID.
// Returns ErrSnapshotNotFound if there is none.
func (r *SnapshotRepository) Load(ctx context.Context, buildID string) (Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, build_id, module_count, created_at FROM snapshots WHERE build_id = ?`, buildID)
	return r.loadRow(ctx, row, buildID)
}

// Latest returns the most recently saved snapshot.
// Returns ErrSnapshotNotFound if the store is empty.
func (r *SnapshotRepository) Latest(ctx context.Context) (Snapshot, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, build_id, module_count, created_at FROM snapshots ORDER BY created_at DESC, id DESC LIMIT 1`)
	return r.loadRow(ctx, row, "latest")
}

func (r *SnapshotRepository) loadRow(ctx context.Context, row *sql.Row, label string) (Snapshot, error) {
	var model SnapshotModel
	err := row.Scan(&model.ID, &model.BuildID, &model.ModuleCount, &model.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrSnapshotNotFound, label)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to find snapshot: %w", err)
	}

	modules, err := r.loadModules(ctx, model.ID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{SnapshotSummary: model.toSummary(), Modules: modules}, nil
}

func (r *SnapshotRepository) loadModules(ctx context.Context, snapshotID int64) ([]implementors.ModuleIndex, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, snapshot_id, position, name, record_count, payload
		 FROM snapshot_modules WHERE snapshot_id = ? ORDER BY position`, snapshotID)
	if err != nil {
		return nil, fmt.Errorf("failed to query modules: %w", err)
	}
	defer rows.Close()

	var modules []implementors.ModuleIndex
	for rows.Next() {
		var m ModuleModel
		if err := rows.Scan(&m.ID, &m.SnapshotID, &m.Position, &m.Name, &m.RecordCount, &m.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}
		idx, err := m.toDomain()
		if err != nil {
			return nil, err
		}
		modules = append(modules, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating modules: %w", err)
	}
	return modules, nil
}

// List returns every stored snapshot, newest first.
func (r *SnapshotRepository) List(ctx context.Context) ([]SnapshotSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, build_id, module_count, created_at FROM snapshots ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotSummary
	for rows.Next() {
		var model SnapshotModel
		if err := rows.Scan(&model.ID, &model.BuildID, &model.ModuleCount, &model.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, model.toSummary())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshots: %w", err)
	}
	return out, nil
}

// Delete removes the snapshot stored under buildID and its modules.
func (r *SnapshotRepository) Delete(ctx context.Context, buildID string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM snapshots WHERE build_id = ?`, buildID)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, buildID)
	}
	log.Info(log.CatStore, "snapshot deleted", "build_id", buildID)
	return nil
}
