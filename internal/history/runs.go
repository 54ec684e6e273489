package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Status of a run.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
	StatusFailed Status = "failed"
)

// ErrNotFound is returned when a run id is unknown.
var ErrNotFound = errors.New("run not found")

// Run is one maskpack session.
type Run struct {
	ID                 string     `json:"id"`
	Status             Status     `json:"status"`
	LaunchDir          string     `json:"launch_dir"`
	User               string     `json:"user,omitempty"`
	MaskName           string     `json:"mask_name,omitempty"`
	Revision           string     `json:"revision,omitempty"`
	Dataprep           string     `json:"dataprep,omitempty"`
	FinalMask          string     `json:"final_mask,omitempty"`
	SyntheticFinalMask bool       `json:"synthetic_final_mask,omitempty"`
	LedgerPath         string     `json:"ledger_path,omitempty"`
	ErrorMessage       string     `json:"error,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	FinishedAt         *time.Time `json:"finished_at,omitempty"`
}

// Folders is the resolved project layout stored for a run.
type Folders struct {
	MaskName           string
	Revision           string
	Dataprep           string
	FinalMask          string
	SyntheticFinalMask bool
}

// Archive is one archive build attempted during a run.
type Archive struct {
	RunID        string    `json:"run_id"`
	Target       string    `json:"target"`
	Path         string    `json:"path"`
	Files        int       `json:"files"`
	Bytes        int64     `json:"bytes"`
	ErrorMessage string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// OK reports whether the archive was written.
func (a Archive) OK() bool {
	return a.ErrorMessage == ""
}

// timeLayout is fixed width so stored timestamps sort chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = "id, status, launch_dir, username, mask_name, revision, dataprep, final_mask, synthetic_final_mask, ledger_path, error_message, started_at, finished_at"

// StartRun inserts an open run.
func (s *Store) StartRun(ctx context.Context, id, launchDir, user, ledgerPath string, startedAt time.Time) error {
	_, err := s.exec(ctx,
		`INSERT INTO runs (id, status, launch_dir, username, ledger_path, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(StatusOpen), launchDir, nullString(user), nullString(ledgerPath), startedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", id, err)
	}
	return nil
}

// SetFolders stores the resolved project layout of a run.
func (s *Store) SetFolders(ctx context.Context, id string, f Folders) error {
	res, err := s.exec(ctx,
		`UPDATE runs SET mask_name = ?, revision = ?, dataprep = ?, final_mask = ?, synthetic_final_mask = ? WHERE id = ?`,
		f.MaskName, f.Revision, f.Dataprep, f.FinalMask, boolInt(f.SyntheticFinalMask), id,
	)
	if err != nil {
		return fmt.Errorf("update run %s folders: %w", id, err)
	}
	return expectOne(res, id)
}

// AddArchive records an archive build result for a run.
func (s *Store) AddArchive(ctx context.Context, a Archive) error {
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	_, err := s.exec(ctx,
		`INSERT INTO archives (run_id, target, path, files, bytes, error_message, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.RunID, a.Target, a.Path, a.Files, a.Bytes, nullString(a.ErrorMessage), created.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert archive for run %s: %w", a.RunID, err)
	}
	return nil
}

// FinishRun closes a run. A non-empty errMsg marks it failed.
func (s *Store) FinishRun(ctx context.Context, id, ledgerPath, errMsg string, finishedAt time.Time) error {
	status := StatusClosed
	if errMsg != "" {
		status = StatusFailed
	}
	res, err := s.exec(ctx,
		`UPDATE runs SET status = ?, ledger_path = COALESCE(?, ledger_path), error_message = ?, finished_at = ? WHERE id = ?`,
		string(status), nullString(ledgerPath), nullString(errMsg), finishedAt.UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	return expectOne(res, id)
}

// GetRun loads one run.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Archives lists the archive results of a run in the order they were recorded.
func (s *Store) Archives(ctx context.Context, runID string) ([]Archive, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT run_id, target, path, files, bytes, error_message, created_at FROM archives WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer rows.Close()

	var out []Archive
	for rows.Next() {
		var (
			a          Archive
			errMsg     sql.NullString
			createdRaw string
		)
		if err := rows.Scan(&a.RunID, &a.Target, &a.Path, &a.Files, &a.Bytes, &errMsg, &createdRaw); err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		a.ErrorMessage = errMsg.String
		a.CreatedAt = parseTime(createdRaw)
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		status      string
		user        sql.NullString
		maskName    sql.NullString
		revision    sql.NullString
		dataprep    sql.NullString
		finalMask   sql.NullString
		synthetic   sql.NullInt64
		ledgerPath  sql.NullString
		errMsg      sql.NullString
		startedRaw  string
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(&run.ID, &status, &run.LaunchDir, &user, &maskName, &revision, &dataprep, &finalMask,
		&synthetic, &ledgerPath, &errMsg, &startedRaw, &finishedRaw); err != nil {
		return nil, err
	}
	run.Status = Status(status)
	run.User = user.String
	run.MaskName = maskName.String
	run.Revision = revision.String
	run.Dataprep = dataprep.String
	run.FinalMask = finalMask.String
	run.SyntheticFinalMask = synthetic.Int64 != 0
	run.LedgerPath = ledgerPath.String
	run.ErrorMessage = errMsg.String
	run.StartedAt = parseTime(startedRaw)
	if finishedRaw.Valid && finishedRaw.String != "" {
		finished := parseTime(finishedRaw.String)
		run.FinishedAt = &finished
	}
	return &run, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func boolInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func expectOne(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
