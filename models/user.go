package models

// User is an observer account. Password holds a bcrypt hash.
type User struct {
	UserID   int64  `gorm:"column:userid;primaryKey;autoIncrement" json:"userid"`
	Username string `gorm:"column:username;uniqueIndex" json:"username"`
	Password string `gorm:"column:password" json:"-"`
}

func (User) TableName() string { return "users" }
