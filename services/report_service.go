package services

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"traffic-count-api/models"
)

// ExportHeader is the exact CSV header line consumers expect. Note the
// spaces after the commas; data rows have none.
const ExportHeader = "Date, Location ID, Location Name, Car, Bus, Bicycle, Motorbike, Van, Truck, Taxi, Other\n"

// ReportService computes read-only aggregates over the ledger.
type ReportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// Locations lists the counting locations ordered by id.
func (s *ReportService) Locations() ([]models.Location, error) {
	var locations []models.Location
	err := s.db.Order("locationid").Find(&locations).Error
	return locations, err
}

// Summary returns the location's display name and the session's net count
// per vehicle type. Always eight entries; types with no records are zero,
// never absent.
func (s *ReportService) Summary(sessionID, locationID int64) (string, [models.VehicleTypeMax]int, error) {
	var counts [models.VehicleTypeMax]int

	var location models.Location
	err := s.db.First(&location, "locationid = ?", locationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", counts, ErrInvalidLocation
	}
	if err != nil {
		return "", counts, err
	}

	var rows []struct {
		VType int `gorm:"column:vtype"`
		Net   int `gorm:"column:net"`
	}
	err = s.db.Model(&models.Observation{}).
		Select("type AS vtype, SUM(mode) AS net").
		Where("sessionid = ? AND locationid = ?", sessionID, locationID).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return "", counts, err
	}

	for _, row := range rows {
		if row.VType >= models.VehicleTypeMin && row.VType <= models.VehicleTypeMax {
			counts[row.VType-1] = row.Net
		}
	}
	return location.Name, counts, nil
}

// ExportCSV renders the full ledger as one row per (day, location) pair
// holding the eight net counts. Rows are sorted by day then location id;
// a bucket with records but an all-zero net is still emitted. Days are
// local-time YYYY-MM-DD, bucketed on the original event timestamps, so
// retractions net out against the day they compensate.
func (s *ReportService) ExportCSV() (string, error) {
	var records []models.Observation
	if err := s.db.Order("recordid").Find(&records).Error; err != nil {
		return "", err
	}
	locations, err := s.Locations()
	if err != nil {
		return "", err
	}
	names := make(map[int64]string, len(locations))
	for _, l := range locations {
		names[l.LocationID] = l.Name
	}

	type bucket struct {
		day string
		loc int64
	}
	groups := make(map[bucket]*[models.VehicleTypeMax]int)
	for _, r := range records {
		b := bucket{day: time.Unix(r.Time, 0).Format("2006-01-02"), loc: r.LocationID}
		counts := groups[b]
		if counts == nil {
			counts = &[models.VehicleTypeMax]int{}
			groups[b] = counts
		}
		if r.VType >= models.VehicleTypeMin && r.VType <= models.VehicleTypeMax {
			counts[r.VType-1] += r.Mode
		}
	}

	keys := make([]bucket, 0, len(groups))
	for b := range groups {
		keys = append(keys, b)
	}
	// Day sorts lexically; the format is zero-padded ISO.
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].day != keys[j].day {
			return keys[i].day < keys[j].day
		}
		return keys[i].loc < keys[j].loc
	})

	var sb strings.Builder
	sb.WriteString(ExportHeader)
	for _, b := range keys {
		sb.WriteString(b.day)
		sb.WriteByte(',')
		sb.WriteString(strconv.FormatInt(b.loc, 10))
		sb.WriteByte(',')
		sb.WriteString(names[b.loc])
		for _, n := range groups[b] {
			sb.WriteByte(',')
			sb.WriteString(strconv.Itoa(n))
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
