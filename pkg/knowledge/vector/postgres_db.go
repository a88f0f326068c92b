package vector

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" sqlx driver
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"

	"github.com/recist-project/recist/internal/errors"
	"github.com/recist-project/recist/pkg/domain"
	sharedmath "github.com/recist-project/recist/pkg/shared/math"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresIndex is the "postgresql" VectorDBConfig.Backend: knowledge
// records persist to a table and every Similar call filters by
// namespace/error_type in SQL, then scores the filtered rows in Go.
// The corpus carries jackc/pgx and jmoiron/sqlx but no pgvector Go
// driver, so embeddings are stored as a JSON float array column and
// there is no ANN index on either side: every Similar call is a linear
// scan of the filtered rows.
type PostgresIndex struct {
	db *sqlx.DB
}

func NewPostgresIndex(dsn string) (*PostgresIndex, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, errors.NewBackendUnavailableError("postgresql", err)
	}
	idx := &PostgresIndex{db: db}
	if err := idx.ensureSchema(); err != nil {
		return nil, err
	}
	return idx, nil
}

// ensureSchema runs the embedded goose migrations against the connected
// database, the same migration-on-boot pattern the teacher's goose
// dependency exists for but never wired: a fresh database gets
// knowledge_records created, and a database that already has it is a
// no-op (goose tracks applied versions in its own bookkeeping table).
func (p *PostgresIndex) ensureSchema() error {
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Wrap(err, errors.ErrorTypeDatabase, "failed to set goose dialect")
	}
	if err := goose.Up(p.db.DB, "migrations"); err != nil {
		return errors.Wrap(err, errors.ErrorTypeDatabase, "failed to run knowledge_records migrations")
	}
	return nil
}

type recordRow struct {
	ID        string    `db:"id"`
	Timestamp time.Time `db:"timestamp"`
	Namespace string    `db:"namespace"`
	Target    string    `db:"target"`
	ErrorType string    `db:"error_type"`
	Diagnosis []byte    `db:"diagnosis"`
	Plan      []byte    `db:"plan"`
	Outcome   []byte    `db:"outcome"`
	Embedding []byte    `db:"embedding"`
}

func (p *PostgresIndex) Insert(ctx context.Context, record domain.KnowledgeRecord) error {
	diagnosisJSON, err := json.Marshal(record.Diagnosis)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeParse, "failed to encode diagnosis")
	}
	planJSON, err := json.Marshal(record.Plan)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeParse, "failed to encode plan")
	}
	outcomeJSON, err := json.Marshal(record.Outcome)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeParse, "failed to encode outcome")
	}
	embeddingJSON, err := json.Marshal(record.Embedding)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeParse, "failed to encode embedding")
	}

	_, err = p.db.ExecContext(ctx, `
INSERT INTO knowledge_records (id, timestamp, namespace, target, error_type, diagnosis, plan, outcome, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (id) DO NOTHING`,
		record.ID, record.Timestamp, record.Namespace, record.Target, string(record.ErrorType),
		diagnosisJSON, planJSON, outcomeJSON, embeddingJSON)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeDatabase, "failed to insert knowledge record")
	}
	return nil
}

func (p *PostgresIndex) Similar(ctx context.Context, embedding []float64, k int, namespace string, errorType domain.FaultKind) ([]Scored, error) {
	query := `SELECT id, timestamp, namespace, target, error_type, diagnosis, plan, outcome, embedding FROM knowledge_records WHERE 1=1`
	args := []interface{}{}
	if namespace != "" {
		args = append(args, namespace)
		query += fmt.Sprintf(" AND namespace = $%d", len(args))
	}
	if errorType != "" {
		args = append(args, string(errorType))
		query += fmt.Sprintf(" AND error_type = $%d", len(args))
	}

	var rows []recordRow
	if err := p.db.SelectContext(ctx, &rows, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.ErrorTypeDatabase, "failed to query knowledge records")
	}

	scored := make([]Scored, 0, len(rows))
	for _, row := range rows {
		record, rowEmbedding, err := decodeRow(row)
		if err != nil {
			continue
		}
		scored = append(scored, Scored{Record: record, Score: sharedmath.CosineSimilarity(embedding, rowEmbedding)})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func decodeRow(row recordRow) (domain.KnowledgeRecord, []float64, error) {
	var diagnosis domain.Diagnosis
	var plan domain.Plan
	var outcome domain.Outcome
	var embedding []float64
	if err := json.Unmarshal(row.Diagnosis, &diagnosis); err != nil {
		return domain.KnowledgeRecord{}, nil, err
	}
	if err := json.Unmarshal(row.Plan, &plan); err != nil {
		return domain.KnowledgeRecord{}, nil, err
	}
	if err := json.Unmarshal(row.Outcome, &outcome); err != nil {
		return domain.KnowledgeRecord{}, nil, err
	}
	if err := json.Unmarshal(row.Embedding, &embedding); err != nil {
		return domain.KnowledgeRecord{}, nil, err
	}
	return domain.KnowledgeRecord{
		ID:        row.ID,
		Timestamp: row.Timestamp,
		Namespace: row.Namespace,
		Target:    row.Target,
		ErrorType: domain.FaultKind(row.ErrorType),
		Diagnosis: diagnosis,
		Plan:      plan,
		Outcome:   outcome,
		Embedding: embedding,
	}, embedding, nil
}

func (p *PostgresIndex) Close() error {
	return p.db.Close()
}
