// Package pg implements the programme and directory stores on PostgreSQL.
// Assignment lists and attachments are stored as jsonb; the per-programme
// atomic append uses a row-level lock so concurrent status changes serialize
// into last-writer-wins on status while every ledger entry survives.
package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"progtrack.org/internal/auth"
	"progtrack.org/internal/ids"
	"progtrack.org/internal/programme"
)

// Open connects to PostgreSQL with tuned pool defaults.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// ProgrammeStore implements programme.Store.
type ProgrammeStore struct {
	db *sql.DB
}

var _ programme.Store = (*ProgrammeStore)(nil)

func NewProgrammeStore(db *sql.DB) *ProgrammeStore {
	return &ProgrammeStore{db: db}
}

const programmeColumns = `id, title, description, owner_actor_id, created_at, last_updated_at,
	due_date, priority, portfolio_id, frequency, scope_mode,
	assigned_districts, assigned_divisions, status, is_active, remarks, attachments`

func (s *ProgrammeStore) Create(ctx context.Context, p *programme.Programme) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	districts, divisions, attachments, err := marshalLists(p)
	if err != nil {
		return err
	}
	row := s.db.QueryRowContext(ctx, `
		insert into programmes(
			id, title, description, owner_actor_id, due_date, priority,
			portfolio_id, frequency, scope_mode, assigned_districts,
			assigned_divisions, status, is_active, remarks, attachments)
		values($1,$2,$3,$4,$5,$6,nullif($7,''),$8,$9,$10,$11,$12,$13,$14,$15)
		returning created_at, last_updated_at`,
		p.ID, p.Title, p.Description, p.OwnerActorID, p.DueDate, p.Priority.String(),
		p.PortfolioID, string(p.Frequency), p.ScopeMode.String(), districts,
		divisions, p.Status.String(), p.Active, p.Remarks, attachments,
	)
	return row.Scan(&p.CreatedAt, &p.LastUpdatedAt)
}

func (s *ProgrammeStore) Get(ctx context.Context, id string) (*programme.Programme, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+programmeColumns+` from programmes where id=$1`, id)
	return scanProgramme(row)
}

func (s *ProgrammeStore) List(ctx context.Context, f programme.Filter, page programme.Page) ([]programme.Programme, error) {
	page = page.Normalize()
	where, args, err := filterPredicate(f)
	if err != nil {
		return nil, err
	}
	args = append(args, page.Offset, page.Limit)
	query := fmt.Sprintf(`
		select %s from programmes
		where %s
		order by due_date desc nulls last, id desc
		offset $%d limit $%d`,
		programmeColumns, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []programme.Programme
	for rows.Next() {
		p, err := scanProgramme(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *p)
	}
	return res, rows.Err()
}

// filterPredicate translates a visibility filter into SQL. The zero filter
// deliberately compiles to `false`: unknown roles read nothing.
func filterPredicate(f programme.Filter) (string, []any, error) {
	switch {
	case f.All:
		return "true", nil, nil
	case f.DistrictID != "":
		closure, err := json.Marshal(f.DistrictDivisions)
		if err != nil {
			return "", nil, err
		}
		return `(assigned_districts ? $1
			or (scope_mode = 'all_divisions' and exists (
				select 1 from jsonb_array_elements_text(assigned_divisions) dv
				where dv in (select jsonb_array_elements_text($2::jsonb)))))`,
			[]any{f.DistrictID, string(closure)}, nil
	case f.DivisionID != "":
		return `assigned_divisions ? $1`, []any{f.DivisionID}, nil
	default:
		return "false", nil, nil
	}
}

func (s *ProgrammeStore) Apply(ctx context.Context, id string, patch programme.Patch) (*programme.Programme, error) {
	sets := []string{"last_updated_at=now()"}
	var args []any
	add := func(expr string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf(expr, len(args)))
	}
	if patch.Title != nil {
		add("title=$%d", *patch.Title)
	}
	if patch.Description != nil {
		add("description=$%d", *patch.Description)
	}
	if patch.ClearDue {
		sets = append(sets, "due_date=null")
	} else if patch.DueDate != nil {
		add("due_date=$%d", *patch.DueDate)
	}
	if patch.Priority != nil {
		add("priority=$%d", patch.Priority.String())
	}
	if patch.PortfolioID != nil {
		add("portfolio_id=nullif($%d,'')", *patch.PortfolioID)
	}
	if patch.Frequency != nil {
		add("frequency=$%d", string(*patch.Frequency))
	}
	if patch.ScopeMode != nil {
		add("scope_mode=$%d", patch.ScopeMode.String())
	}
	if patch.Districts != nil {
		raw, err := json.Marshal(patch.Districts)
		if err != nil {
			return nil, err
		}
		add("assigned_districts=$%d", string(raw))
	}
	if patch.Divisions != nil {
		raw, err := json.Marshal(patch.Divisions)
		if err != nil {
			return nil, err
		}
		add("assigned_divisions=$%d", string(raw))
	}
	if patch.Active != nil {
		add("is_active=$%d", *patch.Active)
	}
	if patch.Remarks != nil {
		add("remarks=$%d", *patch.Remarks)
	}
	if patch.Attachments != nil {
		raw, err := json.Marshal(patch.Attachments)
		if err != nil {
			return nil, err
		}
		add("attachments=$%d", string(raw))
	}
	args = append(args, id)
	query := fmt.Sprintf(`update programmes set %s where id=$%d`, strings.Join(sets, ", "), len(args))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, programme.ErrNotFound
	}
	return s.Get(ctx, id)
}

// AppendUpdate inserts the ledger entry and conditionally moves status inside
// one transaction. The `for update` lock on the programme row serializes
// concurrent appends to the same programme; appends to other programmes
// proceed in parallel.
func (s *ProgrammeStore) AppendUpdate(ctx context.Context, u *programme.Update, newStatus *programme.Status) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	attachments, err := json.Marshal(u.Attachments)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	err = tx.QueryRowContext(ctx,
		`select status from programmes where id=$1 for update`, u.ProgrammeID).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return programme.ErrNotFound
	}
	if err != nil {
		return err
	}

	if err := tx.QueryRowContext(ctx, `
		insert into programme_updates(id, programme_id, author_actor_id, kind, content, attachments)
		values($1,$2,$3,$4,$5,$6)
		returning created_at`,
		u.ID, u.ProgrammeID, u.AuthorID, u.Kind.String(), u.Content, string(attachments),
	).Scan(&u.CreatedAt); err != nil {
		return err
	}

	if newStatus != nil {
		if _, err := tx.ExecContext(ctx,
			`update programmes set status=$2, last_updated_at=now() where id=$1`,
			u.ProgrammeID, newStatus.String()); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *ProgrammeStore) Feed(ctx context.Context, programmeID string, limit int) ([]programme.Update, error) {
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}
	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from programmes where id=$1)`, programmeID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, programme.ErrNotFound
	}

	rows, err := s.db.QueryContext(ctx, `
		select u.id, u.programme_id, u.author_actor_id, u.kind, u.content, u.attachments, u.created_at,
		       a.username, a.name, a.role, coalesce(a.district_id,''), coalesce(a.division_id,''), a.active
		from programme_updates u
		join actors a on a.id = u.author_actor_id
		where u.programme_id=$1
		order by u.created_at asc, u.id asc
		limit $2`, programmeID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var feed []programme.Update
	for rows.Next() {
		var (
			u           programme.Update
			kind        string
			attachments []byte
			role        string
		)
		if err := rows.Scan(&u.ID, &u.ProgrammeID, &u.AuthorID, &kind, &u.Content, &attachments, &u.CreatedAt,
			&u.Author.Username, &u.Author.Name, &role, &u.Author.DistrictID, &u.Author.DivisionID, &u.Author.Active); err != nil {
			return nil, err
		}
		parsedKind, err := programme.ParseKind(kind)
		if err != nil {
			return nil, err
		}
		u.Kind = parsedKind
		parsedRole, err := auth.ParseRole(role)
		if err != nil {
			return nil, err
		}
		u.Author.ID = u.AuthorID
		u.Author.Role = parsedRole
		if len(attachments) > 0 {
			if err := json.Unmarshal(attachments, &u.Attachments); err != nil {
				return nil, err
			}
		}
		feed = append(feed, u)
	}
	return feed, rows.Err()
}

func marshalLists(p *programme.Programme) (districts, divisions, attachments string, err error) {
	d, err := json.Marshal(emptyIfNil(p.Districts))
	if err != nil {
		return "", "", "", err
	}
	v, err := json.Marshal(emptyIfNil(p.Divisions))
	if err != nil {
		return "", "", "", err
	}
	a, err := json.Marshal(p.Attachments)
	if err != nil {
		return "", "", "", err
	}
	return string(d), string(v), string(a), nil
}

func emptyIfNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

func scanProgramme(row interface{ Scan(...any) error }) (*programme.Programme, error) {
	var (
		p           programme.Programme
		description sql.NullString
		dueDate     sql.NullTime
		priority    string
		portfolioID sql.NullString
		frequency   string
		scopeMode   string
		districts   []byte
		divisions   []byte
		status      string
		remarks     sql.NullString
		attachments []byte
	)
	err := row.Scan(&p.ID, &p.Title, &description, &p.OwnerActorID, &p.CreatedAt, &p.LastUpdatedAt,
		&dueDate, &priority, &portfolioID, &frequency, &scopeMode,
		&districts, &divisions, &status, &p.Active, &remarks, &attachments)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, programme.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Description = description.String
	if dueDate.Valid {
		t := dueDate.Time
		p.DueDate = &t
	}
	p.PortfolioID = portfolioID.String
	p.Remarks = remarks.String
	if p.Priority, err = programme.ParsePriority(priority); err != nil {
		return nil, err
	}
	if p.Frequency, err = programme.ParseFrequency(frequency); err != nil {
		return nil, err
	}
	if p.ScopeMode, err = programme.ParseScopeMode(scopeMode); err != nil {
		return nil, err
	}
	if p.Status, err = programme.ParseStatus(status); err != nil {
		return nil, err
	}
	if len(districts) > 0 {
		if err := json.Unmarshal(districts, &p.Districts); err != nil {
			return nil, err
		}
	}
	if len(divisions) > 0 {
		if err := json.Unmarshal(divisions, &p.Divisions); err != nil {
			return nil, err
		}
	}
	if len(attachments) > 0 {
		if err := json.Unmarshal(attachments, &p.Attachments); err != nil {
			return nil, err
		}
	}
	return &p, nil
}
