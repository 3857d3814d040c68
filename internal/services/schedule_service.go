package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/automas/booking-engine/internal/gateway"
	"github.com/automas/booking-engine/internal/models"
	"github.com/sirupsen/logrus"
)

var (
	errScheduleUnconfigured = errors.New("location has no schedule configured")
	errScheduleEmpty        = errors.New("no slots returned")
)

var (
	slotLabelKeys        = []string{"time", "hour", "horario", "franja", "label"}
	slotAvailabilityKeys = []string{"available", "available_count", "disponibles", "cupos", "capacity"}
)

// ScheduleService resolves bookable slot labels
type ScheduleService struct {
	actions ActionExecutor
	logger  *logrus.Logger
}

// NewScheduleService creates a new schedule service
func NewScheduleService(actions ActionExecutor, logger *logrus.Logger) *ScheduleService {
	return &ScheduleService{
		actions: actions,
		logger:  logger,
	}
}

type agendaDate struct {
	Day   int `json:"day"`
	Month int `json:"month"`
	Year  int `json:"year"`
}

func agendaDateOf(d models.Day) agendaDate {
	return agendaDate{Day: d.Day, Month: int(d.Month), Year: d.Year}
}

type slotsRequest struct {
	Location string     `json:"sede"`
	Service  string     `json:"servicio,omitempty"`
	Date     agendaDate `json:"fecha_agenda"`
	Flow     string     `json:"from_flow"`
}

// AvailableSlots returns the distinct slot labels with capacity for a location, service and day.
// When no schedule can be obtained the single "to be confirmed" label is returned.
func (s *ScheduleService) AvailableSlots(ctx context.Context, vertical models.Vertical, location, service string, day models.Day) Result[[]string] {
	req := slotsRequest{
		Location: strings.TrimSpace(location),
		Service:  service,
		Date:     agendaDateOf(day),
		Flow:     vertical.Flow(),
	}

	log := s.logger.WithFields(logrus.Fields{
		"location": req.Location,
		"service":  service,
		"day":      day.String(),
	})

	var raw json.RawMessage
	if err := s.actions.Execute(ctx, gateway.ActionAvailableSlots, nil, req, &raw); err != nil {
		log.WithError(err).Warn("Schedule lookup failed, slot to be confirmed")
		return fallbackOf(toBeConfirmed(), FallbackScheduleUnavailable, err)
	}

	labels, err := NormalizeSlots(raw)
	switch {
	case errors.Is(err, errScheduleUnconfigured):
		log.Info("Location has no schedule configured, slot to be confirmed")
		return fallbackOf(toBeConfirmed(), FallbackScheduleUnconfigured, err)
	case err != nil:
		log.WithError(err).Warn("Unreadable schedule response, slot to be confirmed")
		return fallbackOf(toBeConfirmed(), FallbackScheduleUnavailable, err)
	case len(labels) == 0:
		log.Info("No available slots, slot to be confirmed")
		return fallbackOf(toBeConfirmed(), FallbackScheduleUnconfigured, errScheduleEmpty)
	}

	return resultOf(labels)
}

func toBeConfirmed() []string {
	return []string{models.SlotToBeConfirmed}
}

// NormalizeSlots extracts slot labels from any of the shapes the scheduler answers with:
// [{slots:[...]}], {data:[{slots:[...]}]}, {data:[labels]} or [labels].
// Slots with a zero availability counter are removed; labels are trimmed and deduplicated in order.
func NormalizeSlots(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var body interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("failed to parse slots: %w", err)
	}

	if obj, ok := body.(map[string]interface{}); ok {
		if unconfiguredSignal(obj) {
			return nil, errScheduleUnconfigured
		}
		body = obj["data"]
	}

	items, _ := body.([]interface{})

	seen := make(map[string]bool)
	labels := make([]string, 0, len(items))
	add := func(label string) {
		label = strings.TrimSpace(label)
		if label == "" || seen[label] {
			return
		}
		seen[label] = true
		labels = append(labels, label)
	}

	for _, item := range items {
		switch v := item.(type) {
		case string:
			add(v)
		case map[string]interface{}:
			if nested, ok := v["slots"].([]interface{}); ok {
				for _, slot := range nested {
					if label, ok := slotLabel(slot); ok {
						add(label)
					}
				}
				continue
			}
			if label, ok := slotLabel(v); ok {
				add(label)
			}
		}
	}

	return labels, nil
}

// slotLabel returns the label of an available slot
func slotLabel(slot interface{}) (string, bool) {
	switch v := slot.(type) {
	case string:
		return v, true
	case map[string]interface{}:
		for _, key := range slotAvailabilityKeys {
			if count, present := v[key]; present && !hasCapacity(count) {
				return "", false
			}
		}
		for _, key := range slotLabelKeys {
			if label, ok := v[key].(string); ok && strings.TrimSpace(label) != "" {
				return label, true
			}
		}
	}
	return "", false
}

// hasCapacity interprets an availability counter. Unrecognized values count as available.
func hasCapacity(v interface{}) bool {
	switch c := v.(type) {
	case float64:
		return c > 0
	case bool:
		return c
	case string:
		if n, err := strconv.ParseFloat(strings.TrimSpace(c), 64); err == nil {
			return n > 0
		}
	}
	return true
}

func unconfiguredSignal(obj map[string]interface{}) bool {
	if configured, ok := obj["configured"].(bool); ok && !configured {
		return true
	}
	for _, key := range []string{"message", "detail", "mensaje"} {
		if msg, ok := obj[key].(string); ok {
			lower := strings.ToLower(msg)
			if strings.Contains(lower, "sin agenda") || strings.Contains(lower, "no tiene agenda") {
				return true
			}
		}
	}
	return false
}
