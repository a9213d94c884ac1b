package storage

import (
	"time"

	"gorm.io/gorm"
)

// LocalBuckets are the bucket keys of a reading in the configured timezone.
// They are computed once at insert so every supported database can group by
// plain columns.
type LocalBuckets struct {
	LocalDate    string `gorm:"size:10;not null;index" json:"-"` // YYYY-MM-DD
	LocalHour    int    `gorm:"not null" json:"-"`               // 0..23
	LocalWeekday int    `gorm:"not null" json:"-"`               // 1 = Sunday .. 7 = Saturday
}

// AirReading is one air quality sample from a box
type AirReading struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	BoxID      string    `gorm:"size:64;not null;index:idx_air_box_time,priority:1" json:"box_id"`
	RecordedAt time.Time `gorm:"not null;index:idx_air_box_time,priority:2;index" json:"recorded_at"`
	LocalBuckets

	Temperature  *float64 `json:"temperature"`
	Humidity     *float64 `json:"humidity"`
	Fire         *float64 `json:"fire"`
	MQ135Ammonia *float64 `gorm:"column:mq135_ammonia" json:"mq135_ammonia"`
	MQ135Benzene *float64 `gorm:"column:mq135_benzene" json:"mq135_benzene"`
	MQ135Smoke   *float64 `gorm:"column:mq135_smoke" json:"mq135_smoke"`
	MQ2LPG       *float64 `gorm:"column:mq2_lpg" json:"mq2_lpg"`
	MQ2H2        *float64 `gorm:"column:mq2_h2" json:"mq2_h2"`
	MQ2CO2       *float64 `gorm:"column:mq2_co2" json:"mq2_co2"`
	MQ2Alcohol   *float64 `gorm:"column:mq2_alcohol" json:"mq2_alcohol"`
	MQ2Propane   *float64 `gorm:"column:mq2_propane" json:"mq2_propane"`
	MQ9CO        *float64 `gorm:"column:mq9_co" json:"mq9_co"`
	MQ9Methane   *float64 `gorm:"column:mq9_methane" json:"mq9_methane"`
}

// TableName customizes the table name
func (AirReading) TableName() string { return "air_readings" }

// AfterFind normalizes timestamps read back from drivers that attach a zone
func (r *AirReading) AfterFind(*gorm.DB) error {
	r.RecordedAt = r.RecordedAt.UTC()
	return nil
}

// Values returns the sensor columns keyed by column name
func (r *AirReading) Values() map[string]*float64 {
	return map[string]*float64{
		"temperature":   r.Temperature,
		"humidity":      r.Humidity,
		"fire":          r.Fire,
		"mq135_ammonia": r.MQ135Ammonia,
		"mq135_benzene": r.MQ135Benzene,
		"mq135_smoke":   r.MQ135Smoke,
		"mq2_lpg":       r.MQ2LPG,
		"mq2_h2":        r.MQ2H2,
		"mq2_co2":       r.MQ2CO2,
		"mq2_alcohol":   r.MQ2Alcohol,
		"mq2_propane":   r.MQ2Propane,
		"mq9_co":        r.MQ9CO,
		"mq9_methane":   r.MQ9Methane,
	}
}

// GardenReading is one sample from the garden station
type GardenReading struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	RecordedAt time.Time `gorm:"not null;index" json:"recorded_at"`
	LocalBuckets

	SoilWet     *float64 `json:"soil_wet"`
	SoilDry     *float64 `json:"soil_dry"`
	Temperature *float64 `json:"temperature"`
	AirHumidity *float64 `json:"air_humidity"`
}

// TableName customizes the table name
func (GardenReading) TableName() string { return "garden_readings" }

// AfterFind normalizes timestamps to UTC
func (r *GardenReading) AfterFind(*gorm.DB) error {
	r.RecordedAt = r.RecordedAt.UTC()
	return nil
}

// PumpEvent records a change of the irrigation pump state
type PumpEvent struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	EventTime time.Time `gorm:"not null;index" json:"event_time"`
	Status    string    `gorm:"size:32;not null;index" json:"status"`
	Origin    string    `gorm:"size:64" json:"origin,omitempty"`
}

// TableName customizes the table name
func (PumpEvent) TableName() string { return "pump_events" }

// AfterFind normalizes timestamps to UTC
func (e *PumpEvent) AfterFind(*gorm.DB) error {
	e.EventTime = e.EventTime.UTC()
	return nil
}

// Alert is a threshold notification raised by a box
type Alert struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	SourceID  string    `gorm:"size:64;index" json:"source_id"`
	Sensor    string    `gorm:"size:64;not null;index" json:"sensor"`
	Value     float64   `json:"value"`
	Level     string    `gorm:"size:32" json:"level"`
	Message   string    `gorm:"size:512" json:"message"`
	Timestamp time.Time `gorm:"column:raised_at;not null;index" json:"timestamp"`
}

// TableName customizes the table name
func (Alert) TableName() string { return "alerts" }

// AfterFind normalizes timestamps to UTC
func (a *Alert) AfterFind(*gorm.DB) error {
	a.Timestamp = a.Timestamp.UTC()
	return nil
}

// AllModels returns all models for migration
func AllModels() []interface{} {
	return []interface{}{
		&AirReading{},
		&GardenReading{},
		&PumpEvent{},
		&Alert{},
	}
}
