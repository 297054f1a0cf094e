package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/openrport/userd/db/migration/users"
	dbsqlite "github.com/openrport/userd/db/sqlite"
	userspkg "github.com/openrport/userd/server/api/users"
	"github.com/openrport/userd/share/logger"
)

type userRow struct {
	ID         string     `db:"id"`
	Name       string     `db:"name"`
	BirthDate  string     `db:"birth_date"`
	CustomData string     `db:"custom_data"`
	CreatedAt  time.Time  `db:"created_at"`
	UpdatedAt  *time.Time `db:"updated_at"`
}

// Repository implements users.Repository on top of a sqlite database.
// SQL failures are reported as users.KindLock errors.
type Repository struct {
	db     *sqlx.DB
	now    func() time.Time
	logger *logger.Logger
}

var _ userspkg.Repository = (*Repository)(nil)

// NewMemory opens a private in-memory database with the users schema.
func NewMemory(l *logger.Logger) (*Repository, error) {
	db, err := dbsqlite.NewMemory(users.AssetNames(), users.Asset)
	if err != nil {
		return nil, err
	}
	return New(db, l), nil
}

func New(db *sqlx.DB, l *logger.Logger) *Repository {
	return &Repository{
		db:     db,
		now:    time.Now,
		logger: l,
	}
}

func (r *Repository) Get(ctx context.Context, id uuid.UUID) (userspkg.User, error) {
	var row userRow
	err := r.db.GetContext(ctx, &row, "SELECT * FROM `users` WHERE `id` = ?", id.String())
	if err == sql.ErrNoRows {
		return userspkg.User{}, userspkg.NewInvalidIDError(id)
	}
	if err != nil {
		return userspkg.User{}, r.backendError(err, "get user %s", id)
	}
	return row.toUser()
}

func (r *Repository) Create(ctx context.Context, user userspkg.User) (userspkg.User, error) {
	user = user.Clone()
	user.CreatedAt = userspkg.Time(r.now().UTC())
	user.UpdatedAt = nil

	row, err := newUserRow(user)
	if err != nil {
		return userspkg.User{}, r.backendError(err, "encode user %s", user.ID)
	}

	_, err = r.db.NamedExecContext(
		ctx,
		"INSERT INTO `users` (`id`, `name`, `birth_date`, `custom_data`, `created_at`, `updated_at`)"+
			" VALUES (:id, :name, :birth_date, :custom_data, :created_at, :updated_at)",
		row,
	)
	if isPrimaryKeyViolation(err) {
		return userspkg.User{}, userspkg.NewAlreadyExistsError(user.ID)
	}
	if err != nil {
		return userspkg.User{}, r.backendError(err, "insert user %s", user.ID)
	}

	r.logger.Debugf("user %s created", user.ID)
	return user, nil
}

func (r *Repository) Update(ctx context.Context, user userspkg.User) (updated userspkg.User, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return userspkg.User{}, r.backendError(err, "begin update of user %s", user.ID)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var createdAt time.Time
	err = tx.GetContext(ctx, &createdAt, "SELECT `created_at` FROM `users` WHERE `id` = ?", user.ID.String())
	if err == sql.ErrNoRows {
		return userspkg.User{}, userspkg.NewDoesNotExistError(user.ID)
	}
	if err != nil {
		return userspkg.User{}, r.backendError(err, "read user %s", user.ID)
	}

	now := r.now().UTC()
	if now.Before(createdAt) {
		now = createdAt
	}
	user = user.Clone()
	user.CreatedAt = userspkg.Time(createdAt)
	user.UpdatedAt = userspkg.Time(now)

	row, err := newUserRow(user)
	if err != nil {
		return userspkg.User{}, r.backendError(err, "encode user %s", user.ID)
	}

	_, err = tx.NamedExecContext(
		ctx,
		"UPDATE `users` SET `name` = :name, `birth_date` = :birth_date, `custom_data` = :custom_data,"+
			" `updated_at` = :updated_at WHERE `id` = :id",
		row,
	)
	if err != nil {
		return userspkg.User{}, r.backendError(err, "update user %s", user.ID)
	}

	if err = tx.Commit(); err != nil {
		return userspkg.User{}, r.backendError(err, "commit update of user %s", user.ID)
	}

	r.logger.Debugf("user %s updated", user.ID)
	return user, nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	_, err := r.db.ExecContext(ctx, "DELETE FROM `users` WHERE `id` = ?", id.String())
	if err != nil {
		return uuid.Nil, r.backendError(err, "delete user %s", id)
	}
	r.logger.Debugf("user %s deleted", id)
	return id, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// backendError wraps err as a lock error. Canceled requests are only worth a debug line.
func (r *Repository) backendError(err error, format string, args ...interface{}) error {
	err = errors.Wrapf(err, format, args...)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		r.logger.Debugf("%s", err)
	} else {
		r.logger.Errorf("%s", err)
	}
	return userspkg.WrapLockError(err)
}

func isPrimaryKeyViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func newUserRow(u userspkg.User) (userRow, error) {
	customData, err := json.Marshal(u.CustomData)
	if err != nil {
		return userRow{}, err
	}
	row := userRow{
		ID:         u.ID.String(),
		Name:       u.Name,
		CustomData: string(customData),
		UpdatedAt:  u.UpdatedAt,
	}
	if !u.BirthDate.IsZero() {
		row.BirthDate = u.BirthDate.String()
	}
	if u.CreatedAt != nil {
		row.CreatedAt = *u.CreatedAt
	}
	return row, nil
}

func (row userRow) toUser() (userspkg.User, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return userspkg.User{}, userspkg.WrapLockError(errors.Wrapf(err, "stored id %q", row.ID))
	}
	u := userspkg.User{
		ID:        id,
		Name:      row.Name,
		CreatedAt: userspkg.Time(row.CreatedAt),
		UpdatedAt: row.UpdatedAt,
	}
	if row.BirthDate != "" {
		u.BirthDate, err = civil.ParseDate(row.BirthDate)
		if err != nil {
			return userspkg.User{}, userspkg.WrapLockError(errors.Wrapf(err, "stored birth date of %s", id))
		}
	}
	if err := json.Unmarshal([]byte(row.CustomData), &u.CustomData); err != nil {
		return userspkg.User{}, userspkg.WrapLockError(errors.Wrapf(err, "stored custom data of %s", id))
	}
	return u, nil
}
