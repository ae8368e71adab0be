package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"progtrack.org/internal/directory"
	"progtrack.org/internal/ids"
)

// DirectoryStore implements directory.Store.
type DirectoryStore struct {
	db *sql.DB
}

var _ directory.Store = (*DirectoryStore)(nil)

func NewDirectoryStore(db *sql.DB) *DirectoryStore {
	return &DirectoryStore{db: db}
}

func (s *DirectoryStore) CreateDistrict(ctx context.Context, d *directory.District) error {
	if d.ID == "" {
		d.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx,
		`insert into districts(id, name, code) values($1,$2,nullif($3,'')) returning created_at`,
		d.ID, d.Name, d.Code).Scan(&d.CreatedAt)
	if isUnique(err) {
		return fmt.Errorf("%w: district %q", directory.ErrAlreadyExists, d.Name)
	}
	return err
}

func (s *DirectoryStore) ListDistricts(ctx context.Context) ([]directory.District, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, coalesce(code,''), created_at from districts order by name asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []directory.District
	for rows.Next() {
		var d directory.District
		if err := rows.Scan(&d.ID, &d.Name, &d.Code, &d.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (s *DirectoryStore) CreateDivision(ctx context.Context, d *directory.Division) error {
	if d.ID == "" {
		d.ID = ids.New()
	}
	err := s.db.QueryRowContext(ctx,
		`insert into divisions(id, name, code, district_id) values($1,$2,nullif($3,''),$4) returning created_at`,
		d.ID, d.Name, d.Code, d.DistrictID).Scan(&d.CreatedAt)
	if isForeignKey(err) {
		return fmt.Errorf("%w: district %s", directory.ErrNotFound, d.DistrictID)
	}
	return err
}

func (s *DirectoryStore) ListDivisions(ctx context.Context) ([]directory.Division, error) {
	return s.queryDivisions(ctx,
		`select id, name, coalesce(code,''), district_id, created_at from divisions order by name asc`)
}

func (s *DirectoryStore) DivisionsByDistrict(ctx context.Context, districtID string) ([]directory.Division, error) {
	return s.queryDivisions(ctx,
		`select id, name, coalesce(code,''), district_id, created_at from divisions
		 where district_id=$1 order by created_at asc, id asc`, districtID)
}

func (s *DirectoryStore) queryDivisions(ctx context.Context, query string, args ...any) ([]directory.Division, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []directory.Division
	for rows.Next() {
		var d directory.Division
		if err := rows.Scan(&d.ID, &d.Name, &d.Code, &d.DistrictID, &d.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (s *DirectoryStore) CreatePortfolio(ctx context.Context, p *directory.Portfolio) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into portfolios(id, name, description) values($1,$2,nullif($3,''))`,
		p.ID, p.Name, p.Description)
	if isUnique(err) {
		return fmt.Errorf("%w: portfolio %q", directory.ErrAlreadyExists, p.Name)
	}
	return err
}

func (s *DirectoryStore) ListPortfolios(ctx context.Context) ([]directory.Portfolio, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, name, coalesce(description,'') from portfolios order by name asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []directory.Portfolio
	for rows.Next() {
		var p directory.Portfolio
		if err := rows.Scan(&p.ID, &p.Name, &p.Description); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func isUnique(err error) bool {
	var pg *pgconn.PgError
	return errors.As(err, &pg) && pg.Code == "23505"
}

func isForeignKey(err error) bool {
	var pg *pgconn.PgError
	return errors.As(err, &pg) && pg.Code == "23503"
}
