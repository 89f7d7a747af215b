package appointments

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/namanhealth/booking-api/internal/schedule"
	"github.com/namanhealth/booking-api/pkg/logging"
)

// DayAvailability is the public slot grid for one doctor on one date.
type DayAvailability struct {
	DoctorID    uuid.UUID       `json:"doctorId"`
	Date        string          `json:"date"`
	SlotMinutes int             `json:"slotMinutes"`
	Slots       []schedule.Slot `json:"slots"`
}

// AvailabilityService computes slot grids from the booking store and caches
// them in Redis for a short TTL. The cache is advisory only; the conflict
// guard on the booking path remains the source of truth, so a stale grid can
// at worst show a slot that is rejected at checkout.
type AvailabilityService struct {
	store       *Store
	cache       *redis.Client
	window      schedule.Window
	slotMinutes int
	ttl         time.Duration
	logger      *logging.Logger
}

func NewAvailabilityService(store *Store, cache *redis.Client, window schedule.Window, slotMinutes int, ttl time.Duration, logger *logging.Logger) *AvailabilityService {
	if slotMinutes <= 0 {
		slotMinutes = schedule.DefaultSlotMinutes
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityService{
		store:       store,
		cache:       cache,
		window:      window,
		slotMinutes: slotMinutes,
		ttl:         ttl,
		logger:      logger,
	}
}

func availabilityCacheKey(doctorID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("availability:%s:%s", doctorID, date.Format("2006-01-02"))
}

// ForDay returns the slot grid for a doctor and date, serving from cache when
// a fresh entry exists.
func (s *AvailabilityService) ForDay(ctx context.Context, doctorID uuid.UUID, date time.Time) (*DayAvailability, error) {
	date = schedule.NormalizeDate(date)
	key := availabilityCacheKey(doctorID, date)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Bytes()
		if err == nil {
			var day DayAvailability
			if err := json.Unmarshal(cached, &day); err == nil {
				return &day, nil
			}
			s.logger.Warn("dropping undecodable availability cache entry", "key", key)
		} else if err != redis.Nil {
			s.logger.Warn("availability cache read failed", "key", key, "error", err)
		}
	}

	taken, err := s.store.TakenSlots(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}
	slots, err := schedule.BuildDayGrid(date, s.window, s.slotMinutes, taken)
	if err != nil {
		return nil, err
	}
	day := &DayAvailability{
		DoctorID:    doctorID,
		Date:        date.Format("2006-01-02"),
		SlotMinutes: s.slotMinutes,
		Slots:       slots,
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(day); err == nil {
			if err := s.cache.Set(ctx, key, encoded, s.ttl).Err(); err != nil {
				s.logger.Warn("availability cache write failed", "key", key, "error", err)
			}
		}
	}
	return day, nil
}
