package persistence

import "gorm.io/gorm"

const (
	createdByField = "CreatedBy"
	updatedByField = "UpdatedBy"
)

// auditPlugin stamps CreatedBy/UpdatedBy on models that declare them, using the actor carried
// by the statement context.
type auditPlugin struct{}

func (auditPlugin) Name() string { return "realm:audit" }

func (auditPlugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Create().Before("gorm:create").Register("realm:audit_create", stampCreate); err != nil {
		return err
	}
	return db.Callback().Update().Before("gorm:update").Register("realm:audit_update", stampUpdate)
}

func stampCreate(db *gorm.DB) {
	stamp(db, createdByField)
	stamp(db, updatedByField)
}

func stampUpdate(db *gorm.DB) {
	stamp(db, updatedByField)
}

func stamp(db *gorm.DB, field string) {
	if db.Error != nil || db.Statement.Schema == nil {
		return
	}
	if db.Statement.Schema.LookUpField(field) == nil {
		return
	}
	actor, ok := ActorFromContext(db.Statement.Context)
	if !ok {
		return
	}
	db.Statement.SetColumn(field, actor, true)
}
