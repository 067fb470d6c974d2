// Package pg stores accounts and groups in PostgreSQL through gorm.
package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/Arthur-Pio/axelor-open-platform/internal/auth"
	"github.com/Arthur-Pio/axelor-open-platform/internal/obs"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

// DBProvider hands out the gorm handle for the tenant in ctx.
type DBProvider interface {
	DB(ctx context.Context) (*gorm.DB, error)
}

// ChangeListener is told which identity codes were affected by a write.
type ChangeListener func(ctx context.Context, codes ...string)

type Store struct {
	db        DBProvider
	logger    zerolog.Logger
	mu        sync.RWMutex
	listeners []ChangeListener
}

var _ auth.AccountFinder = (*Store)(nil)

func New(db DBProvider) *Store {
	return &Store{db: db, logger: obs.WithComponent("store")}
}

// Static adapts a single gorm handle to DBProvider.
func Static(db *gorm.DB) DBProvider { return staticDB{db: db} }

type staticDB struct{ db *gorm.DB }

func (s staticDB) DB(ctx context.Context) (*gorm.DB, error) {
	if s.db == nil {
		return nil, errors.New("database connection unavailable")
	}
	return s.db.WithContext(ctx), nil
}

// OnChange registers a listener invoked after every successful write.
func (s *Store) OnChange(fn ChangeListener) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) notify(ctx context.Context, codes ...string) {
	if len(codes) == 0 {
		return
	}
	s.mu.RLock()
	listeners := append([]ChangeListener(nil), s.listeners...)
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(ctx, codes...)
	}
}

func (s *Store) conn(ctx context.Context) (*gorm.DB, error) {
	db, err := s.db.DB(ctx)
	if err != nil {
		return nil, auth.StoreUnavailable(err)
	}
	return db, nil
}

// FindAccountByCode loads the account and its group. A dangling group reference is logged
// and treated as no group.
func (s *Store) FindAccountByCode(ctx context.Context, code string) (*auth.Account, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, auth.ErrNotFound
	}
	db, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	var user AuthUser
	if err := db.Where("code = ?", code).Take(&user).Error; err != nil {
		return nil, mapReadError(err)
	}
	account := toAccount(user)
	if user.GroupID == nil {
		return account, nil
	}
	var group AuthGroup
	err = db.Take(&group, *user.GroupID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		s.logger.Warn().Str("code", code).Int64("group_id", *user.GroupID).Msg("account references missing group")
	case err != nil:
		return nil, mapReadError(err)
	default:
		account.Group = toGroup(group)
	}
	return account, nil
}

func toAccount(u AuthUser) *auth.Account {
	return &auth.Account{
		ID:         u.ID,
		Code:       u.Code,
		Name:       u.Name,
		Password:   u.Password,
		Blocked:    u.Blocked,
		Archived:   u.Archived,
		ActivateOn: u.ActivateOn,
		ExpiresOn:  u.ExpiresOn,
	}
}

func toGroup(g AuthGroup) *auth.Group {
	return &auth.Group{ID: g.ID, Code: g.Code, Name: g.Name}
}

func mapReadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return auth.ErrNotFound
	}
	return auth.StoreUnavailable(err)
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return fmt.Errorf("%w: %s", auth.ErrConflict, pgErr.ConstraintName)
		case pgErrForeignKeyViolation:
			return fmt.Errorf("%w: %s", auth.ErrNotFound, pgErr.ConstraintName)
		}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return auth.ErrConflict
	}
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, auth.ErrNotFound) {
		return auth.ErrNotFound
	}
	if errors.Is(err, auth.ErrInvalidInput) || errors.Is(err, auth.ErrConflict) {
		return err
	}
	return auth.StoreUnavailable(err)
}

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}
