// Package domain describes the sensor domains the aggregation engine serves.
// A Domain is only data: the table, the optional source column and the
// allow-list of sensors a client may ask for.
package domain

import (
	"fmt"
	"sort"
)

// Domain parameterizes the series engine for one family of readings
type Domain struct {
	Name         string
	Table        string
	SourceColumn string // empty when the domain has a single implicit source

	// Sensors maps API sensor names to storage columns
	Sensors map[string]string

	// ComparisonSensors is the default set for multi-sensor comparisons
	ComparisonSensors []string
}

// Column returns the storage column for a sensor, rejecting anything not on
// the allow-list.
func (d Domain) Column(sensor string) (string, error) {
	col, ok := d.Sensors[sensor]
	if !ok {
		return "", fmt.Errorf("unknown sensor %q for %s, valid sensors: %v", sensor, d.Name, d.SensorNames())
	}
	return col, nil
}

// HasSources reports whether readings carry a source id
func (d Domain) HasSources() bool {
	return d.SourceColumn != ""
}

// SensorNames returns the allow-listed sensor names, sorted
func (d Domain) SensorNames() []string {
	names := make([]string, 0, len(d.Sensors))
	for name := range d.Sensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sensor names of the air quality domain
const (
	Temperature  = "temperature"
	Humidity     = "humidity"
	Fire         = "fire"
	MQ135Ammonia = "mq135_ammonia"
	MQ135Benzene = "mq135_benzene"
	MQ135Smoke   = "mq135_smoke"
	MQ2LPG       = "mq2_lpg"
	MQ2H2        = "mq2_h2"
	MQ2CO2       = "mq2_co2"
	MQ2Alcohol   = "mq2_alcohol"
	MQ2Propane   = "mq2_propane"
	MQ9CO        = "mq9_co"
	MQ9Methane   = "mq9_methane"
)

// Sensor names of the garden domain
const (
	SoilWet     = "soil_wet"
	SoilDry     = "soil_dry"
	AirHumidity = "air_humidity"
)

// ToxicGases are the gas channels averaged into the toxic gas indicator
var ToxicGases = []string{
	MQ135Ammonia, MQ135Benzene, MQ135Smoke,
	MQ2LPG, MQ2H2, MQ2CO2, MQ2Alcohol, MQ2Propane,
	MQ9CO, MQ9Methane,
}

// Air is the air quality domain: many boxes, each with gas, climate and fire sensors
var Air = Domain{
	Name:         "air",
	Table:        "air_readings",
	SourceColumn: "box_id",
	Sensors: map[string]string{
		Temperature:  "temperature",
		Humidity:     "humidity",
		Fire:         "fire",
		MQ135Ammonia: "mq135_ammonia",
		MQ135Benzene: "mq135_benzene",
		MQ135Smoke:   "mq135_smoke",
		MQ2LPG:       "mq2_lpg",
		MQ2H2:        "mq2_h2",
		MQ2CO2:       "mq2_co2",
		MQ2Alcohol:   "mq2_alcohol",
		MQ2Propane:   "mq2_propane",
		MQ9CO:        "mq9_co",
		MQ9Methane:   "mq9_methane",
	},
}

// Garden is the single-station garden domain comparing irrigated and dry beds
var Garden = Domain{
	Name:  "garden",
	Table: "garden_readings",
	Sensors: map[string]string{
		SoilWet:     "soil_wet",
		SoilDry:     "soil_dry",
		Temperature: "temperature",
		AirHumidity: "air_humidity",
	},
	ComparisonSensors: []string{SoilWet, SoilDry},
}

// Registry looks domains up by name
type Registry struct {
	domains map[string]Domain
}

// NewRegistry creates a registry holding the given domains
func NewRegistry(domains ...Domain) *Registry {
	r := &Registry{domains: make(map[string]Domain, len(domains))}
	for _, d := range domains {
		r.domains[d.Name] = d
	}
	return r
}

// DefaultRegistry holds the air and garden domains
func DefaultRegistry() *Registry {
	return NewRegistry(Air, Garden)
}

// Get returns the named domain
func (r *Registry) Get(name string) (Domain, error) {
	d, ok := r.domains[name]
	if !ok {
		return Domain{}, fmt.Errorf("unknown domain %q", name)
	}
	return d, nil
}

// Names returns the registered domain names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.domains))
	for name := range r.domains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
