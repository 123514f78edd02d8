package services

import (
	"errors"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"traffic-count-api/models"
)

func dayUnix(t *testing.T, day string) int64 {
	t.Helper()
	// Noon local time, well inside the local day whatever the zone.
	parsed, err := time.ParseInLocation("2006-01-02 15:04", day+" 12:00", time.Local)
	if err != nil {
		t.Fatalf("bad day %q: %v", day, err)
	}
	return parsed.Unix()
}

func insertRecord(t *testing.T, db *gorm.DB, sessionID int64, ts int64, vtype int, location int64, occupancy, mode int) {
	t.Helper()
	record := models.Observation{
		SessionID: sessionID, Time: ts, VType: vtype,
		LocationID: location, Occupancy: occupancy, Mode: mode,
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("insert failed: %v", err)
	}
}

func TestSummaryAlwaysEightEntries(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db)

	name, counts, err := svc.Summary(1, 1)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if name != "High Street" {
		t.Errorf("name = %q, want %q", name, "High Street")
	}
	if len(counts) != models.VehicleTypeMax {
		t.Fatalf("got %d entries, want %d", len(counts), models.VehicleTypeMax)
	}
	for i, count := range counts {
		if count != 0 {
			t.Errorf("counts[%d] = %d, want 0", i, count)
		}
	}
}

func TestSummaryNetCounts(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db)

	ts := dayUnix(t, "2024-03-01")
	insertRecord(t, db, 1, ts, models.VehicleBus, 1, 1, 1)
	insertRecord(t, db, 1, ts+1, models.VehicleBus, 1, 1, 1)
	insertRecord(t, db, 1, ts, models.VehicleBus, 1, 1, -1)
	insertRecord(t, db, 1, ts, models.VehicleTaxi, 1, 2, 1)
	// Other session and other location must not leak in.
	insertRecord(t, db, 2, ts, models.VehicleBus, 1, 1, 1)
	insertRecord(t, db, 1, ts, models.VehicleBus, 2, 1, 1)

	_, counts, err := svc.Summary(1, 1)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}
	if counts[models.VehicleBus-1] != 1 {
		t.Errorf("bus net = %d, want 1", counts[models.VehicleBus-1])
	}
	if counts[models.VehicleTaxi-1] != 1 {
		t.Errorf("taxi net = %d, want 1", counts[models.VehicleTaxi-1])
	}
	if counts[models.VehicleCar-1] != 0 {
		t.Errorf("car net = %d, want 0", counts[models.VehicleCar-1])
	}
}

func TestSummaryInvalidLocation(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db)

	_, _, err := svc.Summary(1, 99)
	if !errors.Is(err, ErrInvalidLocation) {
		t.Errorf("err = %v, want ErrInvalidLocation", err)
	}
}

func TestExportEmptyLedger(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db)

	csv, err := svc.ExportCSV()
	if err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	if csv != ExportHeader {
		t.Errorf("empty export = %q, want header only", csv)
	}
}

func TestExportHeaderLine(t *testing.T) {
	want := "Date, Location ID, Location Name, Car, Bus, Bicycle, Motorbike, Van, Truck, Taxi, Other\n"
	if ExportHeader != want {
		t.Errorf("header = %q, want %q", ExportHeader, want)
	}
}

func TestExportSortOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db)

	// Inserted deliberately out of order.
	insertRecord(t, db, 1, dayUnix(t, "2024-01-02"), 1, 5, 1, 1)
	insertRecord(t, db, 1, dayUnix(t, "2024-01-01"), 1, 5, 1, 1)
	insertRecord(t, db, 2, dayUnix(t, "2024-01-01"), 1, 2, 1, 1)

	csv, err := svc.ExportCSV()
	if err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	lines := strings.Split(strings.TrimSuffix(csv, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4: %q", len(lines), csv)
	}
	wantPrefixes := []string{
		"Date, Location ID",
		"2024-01-01,2,",
		"2024-01-01,5,",
		"2024-01-02,5,",
	}
	for i, prefix := range wantPrefixes {
		if !strings.HasPrefix(lines[i], prefix) {
			t.Errorf("line %d = %q, want prefix %q", i, lines[i], prefix)
		}
	}
}

func TestExportNetArithmetic(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db)

	ts := dayUnix(t, "2024-03-01")
	// Three sightings of a motorbike (type 4) and one retraction.
	insertRecord(t, db, 1, ts, models.VehicleMotorbike, 3, 1, 1)
	insertRecord(t, db, 1, ts+10, models.VehicleMotorbike, 3, 1, 1)
	insertRecord(t, db, 2, ts+20, models.VehicleMotorbike, 3, 2, 1)
	insertRecord(t, db, 1, ts, models.VehicleMotorbike, 3, 1, -1)

	csv, err := svc.ExportCSV()
	if err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	want := "2024-03-01,3,Market Square,0,0,0,2,0,0,0,0\n"
	if csv != ExportHeader+want {
		t.Errorf("export = %q, want header + %q", csv, want)
	}
}

func TestExportZeroNetBucketStillEmitted(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db)

	ts := dayUnix(t, "2024-05-05")
	insertRecord(t, db, 1, ts, models.VehicleCar, 1, 1, 1)
	insertRecord(t, db, 1, ts, models.VehicleCar, 1, 1, -1)

	csv, err := svc.ExportCSV()
	if err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	want := "2024-05-05,1,High Street,0,0,0,0,0,0,0,0\n"
	if csv != ExportHeader+want {
		t.Errorf("export = %q, want an all-zero row for the bucket", csv)
	}
}

func TestExportGroupsAllSessions(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db)

	ts := dayUnix(t, "2024-06-01")
	insertRecord(t, db, 1, ts, models.VehicleCar, 1, 1, 1)
	insertRecord(t, db, 7, ts+30, models.VehicleCar, 1, 2, 1)

	csv, err := svc.ExportCSV()
	if err != nil {
		t.Fatalf("ExportCSV failed: %v", err)
	}
	want := "2024-06-01,1,High Street,2,0,0,0,0,0,0,0\n"
	if csv != ExportHeader+want {
		t.Errorf("export = %q, want sightings from all sessions combined", csv)
	}
}

func TestLocationsOrderedByID(t *testing.T) {
	db := newTestDB(t)
	svc := NewReportService(db)

	locations, err := svc.Locations()
	if err != nil {
		t.Fatalf("Locations failed: %v", err)
	}
	if len(locations) != 4 {
		t.Fatalf("got %d locations, want 4", len(locations))
	}
	for i := 1; i < len(locations); i++ {
		if locations[i-1].LocationID >= locations[i].LocationID {
			t.Errorf("locations not ordered by id: %v", locations)
		}
	}
}
