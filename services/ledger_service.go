package services

import (
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"traffic-count-api/models"
)

// LedgerService owns the append-only observation ledger. All sightings
// and retractions pass through here; a retraction is a new row with
// Mode = -1, never an update or delete.
type LedgerService struct {
	db *gorm.DB
	// mu serializes Undo's read-then-append. Two concurrent undos for the
	// same key must not both select the same unmatched sighting.
	mu  sync.Mutex
	now func() int64
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{
		db:  db,
		now: func() int64 { return time.Now().Unix() },
	}
}

// CountResult is returned by Add and Undo: the display name of the
// location plus the caller's running net count across the whole session.
type CountResult struct {
	LocationName string
	Total        int
}

// Add validates the fields and appends a +1 observation stamped with the
// current time. Nothing is written when any validation fails.
func (s *LedgerService) Add(sessionID, locationID int64, vtype, occupancy int) (*CountResult, error) {
	var location models.Location
	err := s.db.First(&location, "locationid = ?", locationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidLocation
	}
	if err != nil {
		return nil, err
	}
	if vtype < models.VehicleTypeMin || vtype > models.VehicleTypeMax {
		return nil, ErrInvalidType
	}
	if occupancy < models.OccupancyMin || occupancy > models.OccupancyMax {
		return nil, ErrInvalidOccupancy
	}

	record := models.Observation{
		SessionID:  sessionID,
		Time:       s.now(),
		VType:      vtype,
		LocationID: locationID,
		Occupancy:  occupancy,
		Mode:       1,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, err
	}

	total, err := s.SessionTotal(sessionID)
	if err != nil {
		return nil, err
	}
	return &CountResult{LocationName: location.Name, Total: total}, nil
}

// Undo appends a compensating -1 entry for one unmatched sighting of the
// given key. The compensating row carries the timestamp of the sighting
// it offsets, so day-bucketed aggregates net out against the original
// event, not against the time of the retraction request.
func (s *LedgerService) Undo(sessionID, locationID int64, vtype, occupancy int) (*CountResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Progressively narrowing existence checks, each with its own code so
	// the client can tell which field failed to match.
	if err := s.requireMatch(map[string]interface{}{
		"sessionid": sessionID,
	}, ErrNoSessionRecords); err != nil {
		return nil, err
	}
	if err := s.requireMatch(map[string]interface{}{
		"sessionid": sessionID, "locationid": locationID,
	}, ErrNoLocationMatch); err != nil {
		return nil, err
	}
	if err := s.requireMatch(map[string]interface{}{
		"sessionid": sessionID, "locationid": locationID, "type": vtype,
	}, ErrNoTypeMatch); err != nil {
		return nil, err
	}
	key := map[string]interface{}{
		"sessionid": sessionID, "locationid": locationID, "type": vtype, "occupancy": occupancy,
	}
	if err := s.requireMatch(key, ErrNoOccupancyMatch); err != nil {
		return nil, err
	}

	addTimes, err := s.keyTimes(key, 1)
	if err != nil {
		return nil, err
	}
	undoTimes, err := s.keyTimes(key, -1)
	if err != nil {
		return nil, err
	}

	if multisetEqual(addTimes, undoTimes) {
		return nil, ErrAlreadyUndone
	}
	target, ok := unmatchedTimestamp(addTimes, undoTimes)
	if !ok {
		return nil, ErrAlreadyUndone
	}

	record := models.Observation{
		SessionID:  sessionID,
		Time:       target,
		VType:      vtype,
		LocationID: locationID,
		Occupancy:  occupancy,
		Mode:       -1,
	}
	if err := s.db.Create(&record).Error; err != nil {
		return nil, err
	}

	var location models.Location
	if err := s.db.First(&location, "locationid = ?", locationID).Error; err != nil {
		return nil, err
	}
	total, err := s.SessionTotal(sessionID)
	if err != nil {
		return nil, err
	}
	return &CountResult{LocationName: location.Name, Total: total}, nil
}

// SessionTotal is the net number of vehicles the session has on record,
// any location, any type. Signed sum, never a row count.
func (s *LedgerService) SessionTotal(sessionID int64) (int, error) {
	var total int
	err := s.db.Model(&models.Observation{}).
		Where("sessionid = ?", sessionID).
		Select("COALESCE(SUM(mode), 0)").
		Scan(&total).Error
	return total, err
}

func (s *LedgerService) requireMatch(key map[string]interface{}, failure *CommandError) error {
	var count int64
	if err := s.db.Model(&models.Observation{}).Where(key).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return failure
	}
	return nil
}

// keyTimes returns the timestamps of all records for the key with the
// given mode, in insertion order.
func (s *LedgerService) keyTimes(key map[string]interface{}, mode int) ([]int64, error) {
	var times []int64
	err := s.db.Model(&models.Observation{}).
		Where(key).
		Where("mode = ?", mode).
		Order("recordid").
		Pluck("time", &times).Error
	return times, err
}

// unmatchedTimestamp picks the sighting a retraction should offset. The
// first pass is a plain membership difference: keep the adds whose
// timestamp never appears among the undos. When every remaining add
// shares its timestamp with some undo that view goes blind, so the
// fallback subtracts multiset counts per distinct timestamp. Both passes
// scan in insertion order, so the oldest remaining occurrence wins.
func unmatchedTimestamp(adds, undos []int64) (int64, bool) {
	undone := make(map[int64]bool, len(undos))
	for _, t := range undos {
		undone[t] = true
	}
	for _, t := range adds {
		if !undone[t] {
			return t, true
		}
	}

	remaining := make(map[int64]int, len(adds))
	for _, t := range adds {
		remaining[t]++
	}
	for _, t := range undos {
		remaining[t]--
	}
	for _, t := range adds {
		if remaining[t] > 0 {
			return t, true
		}
	}
	return 0, false
}

func multisetEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[int64]int, len(a))
	for _, t := range a {
		counts[t]++
	}
	for _, t := range b {
		counts[t]--
	}
	for _, c := range counts {
		if c != 0 {
			return false
		}
	}
	return true
}
