package pg

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"progtrack.org/internal/programme"
)

func TestAppendUpdateMovesStatusInOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("select status from programmes where id=\\$1 for update").
		WithArgs("prog-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("received"))
	mock.ExpectQuery("insert into programme_updates").
		WithArgs(sqlmock.AnyArg(), "prog-1", "actor-1", "status_change", "in_progress", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectExec("update programmes set status=\\$2").
		WithArgs("prog-1", "in_progress").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	store := NewProgrammeStore(db)
	status := programme.StatusInProgress
	u := &programme.Update{
		ProgrammeID: "prog-1",
		AuthorID:    "actor-1",
		Kind:        programme.KindStatusChange,
		Content:     "in_progress",
	}
	if err := store.AppendUpdate(context.Background(), u, &status); err != nil {
		t.Fatalf("AppendUpdate: %v", err)
	}
	if u.ID == "" {
		t.Fatal("update id not assigned")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppendUpdateCommentSkipsStatusWrite(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("select status from programmes where id=\\$1 for update").
		WithArgs("prog-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("received"))
	mock.ExpectQuery("insert into programme_updates").
		WithArgs(sqlmock.AnyArg(), "prog-1", "actor-1", "comment", "progress noted", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	store := NewProgrammeStore(db)
	u := &programme.Update{
		ProgrammeID: "prog-1",
		AuthorID:    "actor-1",
		Kind:        programme.KindComment,
		Content:     "progress noted",
	}
	if err := store.AppendUpdate(context.Background(), u, nil); err != nil {
		t.Fatalf("AppendUpdate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestAppendUpdateMissingProgramme(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("select status from programmes where id=\\$1 for update").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"status"}))
	mock.ExpectRollback()

	store := NewProgrammeStore(db)
	u := &programme.Update{
		ProgrammeID: "missing",
		AuthorID:    "actor-1",
		Kind:        programme.KindComment,
		Content:     "hello",
	}
	err = store.AppendUpdate(context.Background(), u, nil)
	if !errors.Is(err, programme.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFilterPredicate(t *testing.T) {
	where, args, err := filterPredicate(programme.Filter{All: true})
	if err != nil {
		t.Fatalf("filterPredicate: %v", err)
	}
	if where != "true" || len(args) != 0 {
		t.Fatalf("admin predicate = %q args=%v", where, args)
	}

	where, args, err = filterPredicate(programme.Filter{
		DistrictID:        "dist-1",
		DistrictDivisions: []string{"div-1", "div-2"},
	})
	if err != nil {
		t.Fatalf("filterPredicate: %v", err)
	}
	if !strings.Contains(where, "assigned_districts ?") {
		t.Errorf("district predicate missing containment: %q", where)
	}
	if !strings.Contains(where, "all_divisions") {
		t.Errorf("district predicate missing closure branch: %q", where)
	}
	if len(args) != 2 {
		t.Errorf("district predicate args = %v", args)
	}

	where, args, err = filterPredicate(programme.Filter{DivisionID: "div-1"})
	if err != nil {
		t.Fatalf("filterPredicate: %v", err)
	}
	if !strings.Contains(where, "assigned_divisions ?") {
		t.Errorf("division predicate = %q", where)
	}
	if len(args) != 1 || args[0] != "div-1" {
		t.Errorf("division predicate args = %v", args)
	}

	// Zero filter must read nothing.
	where, args, err = filterPredicate(programme.Filter{})
	if err != nil {
		t.Fatalf("filterPredicate: %v", err)
	}
	if where != "false" || len(args) != 0 {
		t.Fatalf("zero-filter predicate = %q args=%v", where, args)
	}
}

func TestGetMissingProgramme(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("select .* from programmes where id=\\$1").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	store := NewProgrammeStore(db)
	_, err = store.Get(context.Background(), "missing")
	if !errors.Is(err, programme.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
