package main

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sensorhub/sensorhub/internal/models"
)

// generator produces plausible readings for a set of simulated boxes
type generator struct {
	rng    *rand.Rand
	boxes  []string
	loc    *time.Location
	jitter float64
}

func newGenerator(boxCount int, seed int64, loc *time.Location) *generator {
	boxes := make([]string, boxCount)
	for i := range boxes {
		boxes[i] = fmt.Sprintf("box-%02d", i+1)
	}
	return &generator{
		rng:    rand.New(rand.NewSource(seed)),
		boxes:  boxes,
		loc:    loc,
		jitter: 0.1,
	}
}

// around returns base with up to jitter relative noise, rounded to 2 places
func (g *generator) around(base float64) *float64 {
	v := base * (1 + (g.rng.Float64()*2-1)*g.jitter)
	v = math.Round(v*100) / 100
	return &v
}

// dayCurve follows the local hour: lowest before dawn, highest mid afternoon
func dayCurve(t time.Time) float64 {
	h := float64(t.Hour()) + float64(t.Minute())/60
	return math.Sin((h - 9) / 24 * 2 * math.Pi)
}

func (g *generator) airReadings(now time.Time) []models.AirReadingRequest {
	local := now.In(g.loc)
	curve := dayCurve(local)

	out := make([]models.AirReadingRequest, 0, len(g.boxes))
	for _, box := range g.boxes {
		fire := 0.0
		if g.rng.Intn(1000) == 0 {
			fire = 1
		}
		out = append(out, models.AirReadingRequest{
			BoxID:        box,
			RecordedAt:   local.Format(time.RFC3339),
			Temperature:  g.around(24 + 6*curve),
			Humidity:     g.around(65 - 15*curve),
			Fire:         &fire,
			MQ135Ammonia: g.around(12),
			MQ135Benzene: g.around(3),
			MQ135Smoke:   g.around(8),
			MQ2LPG:       g.around(4),
			MQ2H2:        g.around(6),
			MQ2CO2:       g.around(410 + 40*curve),
			MQ2Alcohol:   g.around(2),
			MQ2Propane:   g.around(5),
			MQ9CO:        g.around(4),
			MQ9Methane:   g.around(7),
		})
	}
	return out
}

func (g *generator) gardenReading(now time.Time) models.GardenReadingRequest {
	local := now.In(g.loc)
	curve := dayCurve(local)
	wet := g.around(55 - 10*curve)
	dry := 100 - *wet
	return models.GardenReadingRequest{
		RecordedAt:  local.Format(time.RFC3339),
		SoilWet:     wet,
		SoilDry:     &dry,
		Temperature: g.around(22 + 7*curve),
		AirHumidity: g.around(70 - 15*curve),
	}
}

// pumpEvent switches the pump on when the soil is dry and off once it is wet
func (g *generator) pumpEvent(now time.Time, garden models.GardenReadingRequest, running bool) (models.PumpEventRequest, bool) {
	switch {
	case !running && *garden.SoilWet < 50:
		return models.PumpEventRequest{EventTime: now.In(g.loc).Format(time.RFC3339), Status: "on", Origin: "box_sim"}, true
	case running && *garden.SoilWet >= 55:
		return models.PumpEventRequest{EventTime: now.In(g.loc).Format(time.RFC3339), Status: "off", Origin: "box_sim"}, true
	}
	return models.PumpEventRequest{}, false
}
