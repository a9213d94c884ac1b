package models

import (
	"errors"
	"strings"
)

// AirReadingRequest is the body of an air quality reading posted by a box
type AirReadingRequest struct {
	BoxID      string `json:"box_id"`
	RecordedAt string `json:"recorded_at"` // RFC3339, or "YYYY-MM-DD HH:MM:SS" in local time

	Temperature  *float64 `json:"temperature"`
	Humidity     *float64 `json:"humidity"`
	Fire         *float64 `json:"fire"`
	MQ135Ammonia *float64 `json:"mq135_ammonia"`
	MQ135Benzene *float64 `json:"mq135_benzene"`
	MQ135Smoke   *float64 `json:"mq135_smoke"`
	MQ2LPG       *float64 `json:"mq2_lpg"`
	MQ2H2        *float64 `json:"mq2_h2"`
	MQ2CO2       *float64 `json:"mq2_co2"`
	MQ2Alcohol   *float64 `json:"mq2_alcohol"`
	MQ2Propane   *float64 `json:"mq2_propane"`
	MQ9CO        *float64 `json:"mq9_co"`
	MQ9Methane   *float64 `json:"mq9_methane"`
}

// Validate checks the required fields
func (r *AirReadingRequest) Validate() error {
	if strings.TrimSpace(r.BoxID) == "" {
		return errors.New("box_id is required")
	}
	if len(r.BoxID) > 64 {
		return errors.New("box_id must be at most 64 characters")
	}
	if strings.TrimSpace(r.RecordedAt) == "" {
		return errors.New("recorded_at is required")
	}
	return nil
}

// GardenReadingRequest is the body of a reading from the garden station
type GardenReadingRequest struct {
	RecordedAt  string   `json:"recorded_at"`
	SoilWet     *float64 `json:"soil_wet"`
	SoilDry     *float64 `json:"soil_dry"`
	Temperature *float64 `json:"temperature"`
	AirHumidity *float64 `json:"air_humidity"`
}

// Validate checks the required fields
func (r *GardenReadingRequest) Validate() error {
	if strings.TrimSpace(r.RecordedAt) == "" {
		return errors.New("recorded_at is required")
	}
	return nil
}

// PumpEventRequest records a pump state change
type PumpEventRequest struct {
	EventTime string `json:"event_time"`
	Status    string `json:"status"`
	Origin    string `json:"origin,omitempty"`
}

// Validate checks the required fields
func (r *PumpEventRequest) Validate() error {
	if strings.TrimSpace(r.EventTime) == "" || strings.TrimSpace(r.Status) == "" {
		return errors.New("event_time and status are required")
	}
	if len(r.Status) > 32 {
		return errors.New("status must be at most 32 characters")
	}
	return nil
}

// AlertRequest raises an alert; the server assigns its timestamp
type AlertRequest struct {
	SourceID string   `json:"source_id"`
	Sensor   string   `json:"sensor"`
	Value    *float64 `json:"value"`
	Level    string   `json:"level"`
	Message  string   `json:"message"`
}

// Validate checks the required fields
func (r *AlertRequest) Validate() error {
	if strings.TrimSpace(r.Sensor) == "" {
		return errors.New("sensor is required")
	}
	if r.Value == nil {
		return errors.New("value is required")
	}
	if len(r.Message) > 512 {
		return errors.New("message must be at most 512 characters")
	}
	return nil
}
