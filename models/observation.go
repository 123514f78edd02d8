package models

// Vehicle type codes, in CSV column order.
const (
	VehicleCar = iota + 1
	VehicleBus
	VehicleBicycle
	VehicleMotorbike
	VehicleVan
	VehicleTruck
	VehicleTaxi
	VehicleOther
)

const (
	VehicleTypeMin = VehicleCar
	VehicleTypeMax = VehicleOther

	OccupancyMin = 1
	OccupancyMax = 4
)

// Observation is one signed entry in the append-only traffic ledger.
// Mode is +1 for a sighting and -1 for a compensating retraction; a
// retraction carries the timestamp of the sighting it offsets, not the
// time the retraction was requested. Rows are never updated or deleted.
type Observation struct {
	RecordID   int64 `gorm:"column:recordid;primaryKey;autoIncrement" json:"recordid"`
	SessionID  int64 `gorm:"column:sessionid;index" json:"sessionid"`
	Time       int64 `gorm:"column:time" json:"time"`
	VType      int   `gorm:"column:type" json:"type"`
	LocationID int64 `gorm:"column:locationid;index" json:"locationid"`
	Occupancy  int   `gorm:"column:occupancy" json:"occupancy"`
	Mode       int   `gorm:"column:mode" json:"mode"`
}

func (Observation) TableName() string { return "traffic" }
