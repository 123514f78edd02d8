package models

// Location is a fixed counting point. Reference data, immutable at runtime.
type Location struct {
	LocationID int64  `gorm:"column:locationid;primaryKey;autoIncrement" json:"id"`
	Name       string `gorm:"column:name" json:"name"`
}

func (Location) TableName() string { return "locations" }
