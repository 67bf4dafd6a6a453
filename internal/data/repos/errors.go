package repos

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	pkgerrors "github.com/jomapps/aladdin-sub006/internal/pkg/errors"
)

// mapDBError folds driver-level failures into the shared sentinels so
// callers can branch with errors.Is instead of sniffing SQLSTATEs.
func mapDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", op, pkgerrors.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return fmt.Errorf("%s: %w: %s", op, pkgerrors.ErrConflict, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%s: %w: %s", op, pkgerrors.ErrInvalidArgument, pgErr.ConstraintName)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}
