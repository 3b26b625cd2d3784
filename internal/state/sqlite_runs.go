package state

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/leapstack-labs/leapflow/pkg/core"
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, media_type, media_class, source, target, origin, status,
	gross_total, net_total, checksum, error, response, started_at, completed_at`

// CreateRun records the start of a run. An empty req.ID gets a new UUID.
func (s *SQLiteStore) CreateRun(req core.RunRequest) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	id := req.ID
	if id == "" {
		id = generateID()
	}
	origin := req.Origin
	if origin == "" {
		origin = core.OriginDirect
	}
	run := &core.Run{
		ID:         id,
		MediaType:  req.MediaType,
		MediaClass: req.MediaClass,
		Source:     req.Source,
		Target:     req.Target,
		Origin:     origin,
		Status:     core.RunStatusRunning,
		StartedAt:  time.Now().UTC(),
	}

	s.logger.Debug("creating run", slog.String("id", id),
		slog.String("media_type", req.MediaType), slog.String("media_class", req.MediaClass))

	_, err := s.db.ExecContext(ctx(),
		`INSERT INTO runs (id, media_type, media_class, source, target, origin, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.MediaType, run.MediaClass, string(run.Source), string(run.Target), run.Origin,
		string(run.Status), run.StartedAt.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	return run, nil
}

// CompleteRun stores the result of a run.
func (s *SQLiteStore) CompleteRun(id string, result core.RunResult) error {
	if s.db == nil {
		return fmt.Errorf("database not opened")
	}

	res, err := s.db.ExecContext(ctx(),
		`UPDATE runs SET target = COALESCE(?, target), status = ?, gross_total = ?, net_total = ?,
		 checksum = ?, error = ?, response = ?, completed_at = ? WHERE id = ?`,
		nullString(string(result.Target)), string(result.Status), result.GrossTotal, result.NetTotal,
		nullString(result.Checksum), nullString(result.Error), result.Response,
		time.Now().UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run not found: %s", id)
	}
	return nil
}

// GetRun retrieves a run by ID.
func (s *SQLiteStore) GetRun(id string) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx(), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs matching filter, newest first.
func (s *SQLiteStore) ListRuns(filter core.RunFilter) ([]*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	var where []string
	var args []any
	if filter.MediaType != "" {
		where = append(where, "media_type = ?")
		args = append(args, filter.MediaType)
	}
	if filter.MediaClass != "" {
		where = append(where, "media_class = ?")
		args = append(args, filter.MediaClass)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY started_at DESC, rowid DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []*core.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetLatestRun returns the most recent run of a class into target, or nil
// when there is none.
func (s *SQLiteStore) GetLatestRun(mediaType, mediaClass string, target core.Layer) (*core.Run, error) {
	if s.db == nil {
		return nil, fmt.Errorf("database not opened")
	}

	row := s.db.QueryRowContext(ctx(),
		`SELECT `+runColumns+` FROM runs WHERE media_type = ? AND media_class = ? AND target = ?
		 ORDER BY started_at DESC, rowid DESC LIMIT 1`,
		mediaType, mediaClass, string(target))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*core.Run, error) {
	var (
		run              core.Run
		source, target   string
		status           string
		checksum, errMsg sql.NullString
		startedAt        string
		completedAt      sql.NullString
	)
	err := row.Scan(&run.ID, &run.MediaType, &run.MediaClass, &source, &target, &run.Origin, &status,
		&run.GrossTotal, &run.NetTotal, &checksum, &errMsg, &run.Response, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	run.Source = core.Layer(source)
	run.Target = core.Layer(target)
	run.Status = core.RunStatus(status)
	run.Checksum = checksum.String
	run.Error = errMsg.String

	if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("invalid started_at %q: %w", startedAt, err)
	}
	if completedAt.Valid {
		t, err := time.Parse(timeLayout, completedAt.String)
		if err != nil {
			return nil, fmt.Errorf("invalid completed_at %q: %w", completedAt.String, err)
		}
		run.CompletedAt = &t
	}
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
