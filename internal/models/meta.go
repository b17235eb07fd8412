package models

// Owner types for meta fields and rates.
const (
	OwnerTimesheet = "timesheet"
	OwnerCustomer  = "customer"
	OwnerProject   = "project"
	OwnerActivity  = "activity"
	OwnerUser      = "user"
)

// MetaField is a free-form key/value attached to an entity.
type MetaField struct {
	ID        uint   `gorm:"primarykey" json:"-"`
	OwnerType string `gorm:"size:20;not null;uniqueIndex:idx_meta_owner_name" json:"-"`
	OwnerID   uint   `gorm:"not null;uniqueIndex:idx_meta_owner_name" json:"-"`
	Name      string `gorm:"size:50;not null;uniqueIndex:idx_meta_owner_name" json:"name"`
	Value     string `json:"value"`
	Visible   bool   `gorm:"not null" json:"visible"`
}

// MetaValue returns the value of the named field.
func MetaValue(fields []MetaField, name string) (string, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Rate overrides the hourly rate for a customer, project or activity,
// optionally only for a single user.
type Rate struct {
	ID           uint     `gorm:"primarykey" json:"id"`
	Kind         string   `gorm:"size:20;not null;index:idx_rate_owner" json:"kind"`
	OwnerID      uint     `gorm:"not null;index:idx_rate_owner" json:"owner_id"`
	UserID       *uint    `gorm:"index" json:"user_id"`
	Rate         float64  `gorm:"not null" json:"rate"`
	InternalRate *float64 `json:"internal_rate"`
	Fixed        bool     `gorm:"not null" json:"is_fixed"`
}
