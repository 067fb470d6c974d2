package pg

import "time"

// AuthGroup is the gorm model of a role label (table auth_group).
type AuthGroup struct {
	ID        int64  `gorm:"primaryKey"`
	Code      string `gorm:"size:190;not null;uniqueIndex"`
	Name      string `gorm:"size:255;not null"`
	CreatedBy string `gorm:"size:190"`
	UpdatedBy string `gorm:"size:190"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuthUser is the gorm model of a login identity (table auth_user).
type AuthUser struct {
	ID         int64  `gorm:"primaryKey"`
	Code       string `gorm:"size:190;not null;uniqueIndex"`
	Name       string `gorm:"size:255;not null"`
	Password   string `gorm:"size:255;not null"`
	Blocked    bool   `gorm:"not null;default:false"`
	Archived   bool   `gorm:"not null;default:false"`
	ActivateOn *time.Time
	ExpiresOn  *time.Time
	GroupID    *int64 `gorm:"index"`
	CreatedBy  string `gorm:"size:190"`
	UpdatedBy  string `gorm:"size:190"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ModelPackage identifies these models when registering them for scanning.
const ModelPackage = "github.com/Arthur-Pio/axelor-open-platform/internal/store/pg"

// Models lists the models managed by this store, parents first.
func Models() []any {
	return []any{&AuthGroup{}, &AuthUser{}}
}
