package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/Arthur-Pio/axelor-open-platform/internal/auth"
)

// NewAccount describes an account to provision. PasswordHash is an already hashed secret.
type NewAccount struct {
	Code         string
	Name         string
	PasswordHash string
	GroupCode    string
	ActivateOn   *time.Time
	ExpiresOn    *time.Time
}

func (s *Store) CreateGroup(ctx context.Context, code, name string) (auth.Group, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return auth.Group{}, fmt.Errorf("%w: group code is required", auth.ErrInvalidInput)
	}
	if name = strings.TrimSpace(name); name == "" {
		name = code
	}
	db, err := s.conn(ctx)
	if err != nil {
		return auth.Group{}, err
	}
	group := AuthGroup{Code: code, Name: name}
	if err := db.Create(&group).Error; err != nil {
		return auth.Group{}, mapWriteError(err)
	}
	return *toGroup(group), nil
}

// DeleteGroup detaches every member and removes the group.
func (s *Store) DeleteGroup(ctx context.Context, code string) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	var members []string
	err = db.Transaction(func(tx *gorm.DB) error {
		group, err := groupByCode(tx, code)
		if err != nil {
			return err
		}
		if err := tx.Model(&AuthUser{}).Where("group_id = ?", group.ID).Pluck("code", &members).Error; err != nil {
			return err
		}
		if len(members) > 0 {
			if err := tx.Model(&AuthUser{}).Where("group_id = ?", group.ID).Update("group_id", nil).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&AuthGroup{}, group.ID).Error
	})
	if err != nil {
		return mapWriteError(err)
	}
	s.notify(ctx, members...)
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, in NewAccount) (auth.Account, error) {
	in.Code = strings.TrimSpace(in.Code)
	if in.Code == "" {
		return auth.Account{}, fmt.Errorf("%w: account code is required", auth.ErrInvalidInput)
	}
	if in.PasswordHash == "" {
		return auth.Account{}, fmt.Errorf("%w: password is required", auth.ErrInvalidInput)
	}
	if in.Name = strings.TrimSpace(in.Name); in.Name == "" {
		in.Name = in.Code
	}
	db, err := s.conn(ctx)
	if err != nil {
		return auth.Account{}, err
	}

	user := AuthUser{
		Code:       in.Code,
		Name:       in.Name,
		Password:   in.PasswordHash,
		ActivateOn: in.ActivateOn,
		ExpiresOn:  in.ExpiresOn,
	}
	var group *AuthGroup
	err = db.Transaction(func(tx *gorm.DB) error {
		if code := strings.TrimSpace(in.GroupCode); code != "" {
			g, err := groupByCode(tx, code)
			if err != nil {
				return err
			}
			group = &g
			user.GroupID = &g.ID
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return auth.Account{}, mapWriteError(err)
	}
	account := toAccount(user)
	if group != nil {
		account.Group = toGroup(*group)
	}
	s.notify(ctx, user.Code)
	return *account, nil
}

// ChangePassword replaces the stored secret reference.
func (s *Store) ChangePassword(ctx context.Context, code, passwordHash string) error {
	if passwordHash == "" {
		return fmt.Errorf("%w: password is required", auth.ErrInvalidInput)
	}
	return s.updateAccount(ctx, code, map[string]any{"password": passwordHash})
}

func (s *Store) SetBlocked(ctx context.Context, code string, blocked bool) error {
	return s.updateAccount(ctx, code, map[string]any{"blocked": blocked})
}

func (s *Store) SetArchived(ctx context.Context, code string, archived bool) error {
	return s.updateAccount(ctx, code, map[string]any{"archived": archived})
}

// AssignGroup moves the account into groupCode, or out of any group when groupCode is empty.
func (s *Store) AssignGroup(ctx context.Context, code, groupCode string) error {
	groupCode = strings.TrimSpace(groupCode)
	if groupCode == "" {
		return s.updateAccount(ctx, code, map[string]any{"group_id": nil})
	}
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	err = db.Transaction(func(tx *gorm.DB) error {
		group, err := groupByCode(tx, groupCode)
		if err != nil {
			return err
		}
		return updateByCode(tx, code, map[string]any{"group_id": group.ID})
	})
	if err != nil {
		return mapWriteError(err)
	}
	s.notify(ctx, strings.TrimSpace(code))
	return nil
}

func (s *Store) updateAccount(ctx context.Context, code string, values map[string]any) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	if err := updateByCode(db, code, values); err != nil {
		return mapWriteError(err)
	}
	s.notify(ctx, strings.TrimSpace(code))
	return nil
}

func updateByCode(db *gorm.DB, code string, values map[string]any) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: account code is required", auth.ErrInvalidInput)
	}
	res := db.Model(&AuthUser{}).Where("code = ?", code).Updates(values)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return auth.ErrNotFound
	}
	return nil
}

func groupByCode(db *gorm.DB, code string) (AuthGroup, error) {
	var group AuthGroup
	err := db.Where("code = ?", strings.TrimSpace(code)).Take(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return AuthGroup{}, fmt.Errorf("%w: group %s", auth.ErrNotFound, code)
	}
	return group, err
}
