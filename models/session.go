package models

// Session is a time-bounded login. End = 0 marks the open session; logout
// closes it by setting End, so the row doubles as the audit trail. Magic
// is the opaque token the client carries in a cookie.
type Session struct {
	SessionID int64  `gorm:"column:sessionid;primaryKey;autoIncrement" json:"sessionid"`
	UserID    int64  `gorm:"column:userid;index" json:"userid"`
	Magic     string `gorm:"column:magic;index" json:"-"`
	Start     int64  `gorm:"column:start" json:"start"`
	End       int64  `gorm:"column:end" json:"end"`
}

func (Session) TableName() string { return "session" }
