package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"progtrack.org/internal/ids"
)

var _ ActorStore = (*PGActorStore)(nil)

// PGActorStore implements ActorStore using PostgreSQL.
type PGActorStore struct {
	db *sql.DB
}

func NewPGActorStore(db *sql.DB) *PGActorStore {
	return &PGActorStore{db: db}
}

const actorColumns = `id, username, name, password_hash, role, district_id, division_id, active, created_at, last_login`

func (s *PGActorStore) Create(ctx context.Context, actor *Actor) error {
	if actor.ID == "" {
		actor.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into actors(id, username, name, password_hash, role, district_id, division_id, active)
		 values($1,$2,$3,$4,$5,nullif($6,''),nullif($7,''),$8)`,
		actor.ID, actor.Username, actor.Name, actor.PasswordHash, actor.Role.String(),
		actor.DistrictID, actor.DivisionID, actor.Active,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: username %q", ErrAlreadyExists, actor.Username)
	}
	return err
}

func (s *PGActorStore) Find(ctx context.Context, id string) (*Actor, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+actorColumns+` from actors where id=$1`, id)
	return scanActor(row)
}

func (s *PGActorStore) FindByUsername(ctx context.Context, username string) (*Actor, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+actorColumns+` from actors where username=$1`, username)
	return scanActor(row)
}

func (s *PGActorStore) List(ctx context.Context, offset, limit int) ([]*Actor, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`select `+actorColumns+` from actors order by created_at asc, id asc offset $1 limit $2`,
		offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actors []*Actor
	for rows.Next() {
		actor, err := scanActor(rows)
		if err != nil {
			return nil, err
		}
		actors = append(actors, actor)
	}
	return actors, rows.Err()
}

func (s *PGActorStore) Update(ctx context.Context, id string, upd ActorUpdate) (*Actor, error) {
	sets := make([]string, 0, 6)
	args := make([]any, 0, 7)
	add := func(expr string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf(expr, len(args)))
	}
	if upd.Name != nil {
		add("name=$%d", *upd.Name)
	}
	if upd.Password != nil {
		add("password_hash=$%d", *upd.Password)
	}
	if upd.Role != nil {
		add("role=$%d", upd.Role.String())
	}
	if upd.DistrictID != nil {
		add("district_id=nullif($%d,'')", *upd.DistrictID)
	}
	if upd.DivisionID != nil {
		add("division_id=nullif($%d,'')", *upd.DivisionID)
	}
	if upd.Active != nil {
		add("active=$%d", *upd.Active)
	}
	if len(sets) == 0 {
		return s.Find(ctx, id)
	}
	args = append(args, id)
	query := fmt.Sprintf(`update actors set %s where id=$%d`, strings.Join(sets, ", "), len(args))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}
	return s.Find(ctx, id)
}

func (s *PGActorStore) TouchLastLogin(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `update actors set last_login=now() where id=$1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanActor(row rowScanner) (*Actor, error) {
	var (
		a          Actor
		role       string
		districtID sql.NullString
		divisionID sql.NullString
		lastLogin  sql.NullTime
	)
	err := row.Scan(&a.ID, &a.Username, &a.Name, &a.PasswordHash, &role,
		&districtID, &divisionID, &a.Active, &a.CreatedAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	parsed, err := ParseRole(role)
	if err != nil {
		return nil, err
	}
	a.Role = parsed
	a.DistrictID = districtID.String
	a.DivisionID = divisionID.String
	if lastLogin.Valid {
		t := lastLogin.Time
		a.LastLogin = &t
	}
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pg *pgconn.PgError
	return errors.As(err, &pg) && pg.Code == "23505"
}
