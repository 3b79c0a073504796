package auth

import (
	"errors"
	"strings"

	autherrors "go-leave/internal/auth/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// mapPersistError translates driver-level failures into stable domain
// errors. Only the unique-email violation is mapped; everything else
// stays a server fault.
func mapPersistError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return autherrors.ErrEmailAlreadyRegistered
		}
		return err
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return autherrors.ErrEmailAlreadyRegistered
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "duplicate key value") {
		return autherrors.ErrEmailAlreadyRegistered
	}

	return err
}
