// Package repository implements the application ports on SQLite.
package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/garyjia/trip-expense/internal/domain/entity"
	"github.com/garyjia/trip-expense/internal/infrastructure/persistence/sqlite"
	apperrors "github.com/garyjia/trip-expense/pkg/errors"
)

// base carries the connection shared by every repository
type base struct {
	db *sql.DB
}

// getExecutor returns the transaction carried by ctx or the database
func (b base) getExecutor(ctx context.Context) sqlite.Querier {
	return sqlite.QuerierFrom(ctx, b.db)
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// checkAffected maps a compare-and-set update that matched no row to port.ErrStatusChanged
func checkAffected(result sql.Result, onMiss error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return onMiss
	}
	return nil
}

// uniqueConflict turns a UNIQUE violation into a conflict error
func uniqueConflict(err error, message string) error {
	if sqlite.IsUniqueViolation(err) {
		return apperrors.Wrap(apperrors.CodeConflict, err, message)
	}
	return nil
}

// missingParent turns a FOREIGN KEY violation into a not-found error
func missingParent(err error, message string) error {
	if sqlite.IsForeignKeyViolation(err) {
		return apperrors.Wrap(apperrors.CodeNotFound, err, message)
	}
	return nil
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullMoney(m *entity.Money) interface{} {
	if m == nil {
		return nil
	}
	return int64(*m)
}

func moneyPtr(n sql.NullInt64) *entity.Money {
	if !n.Valid {
		return nil
	}
	m := entity.Money(n.Int64)
	return &m
}

func nullInt64(v *int64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

// scopeWhere renders the trip scope against the trips alias
func scopeWhere(scope entity.TripScope, alias string) ([]string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if scope.OwnerID != "" {
		conds = append(conds, alias+".owner_id = ?")
		args = append(args, scope.OwnerID)
	}
	if scope.OwnerAreaCode != "" {
		conds = append(conds, alias+".owner_area_code = ?")
		args = append(args, scope.OwnerAreaCode)
	}
	return conds, args
}

// whereClause joins conditions with AND; empty conditions yield an empty clause
func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// pageClause appends LIMIT/OFFSET; a non-positive limit means no limit
func pageClause(limit, offset int) (string, []interface{}) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	return " LIMIT ? OFFSET ?", []interface{}{limit, offset}
}
