// Package generator synthesizes per-flight aircraft telemetry with
// random-walk kinematics and injected anomalies.
package generator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/yegors/intel-pipeline/internal/telemetry"
)

// Base state distributions and random-walk step sizes
const (
	baseLat, baseLatStd           = 37.0, 0.5
	baseLon, baseLonStd           = -122.0, 0.5
	baseAltitude, baseAltitudeStd = 30000.0, 500.0
	baseSpeed, baseSpeedStd       = 450.0, 10.0

	stepLatStd      = 0.0015
	stepLonStd      = 0.0015
	stepAltitudeStd = 5.0
	stepSpeedStd    = 1.5

	sampleInterval = 10 * time.Second
	flightStagger  = 5 * time.Minute

	speedSpikeProbability = 0.6
	speedSpikeMinFactor   = 1.5
	speedSpikeMaxFactor   = 3.0
	altDropMin            = 5000.0
	altDropMax            = 15000.0
)

// Options controls multi-flight generation
type Options struct {
	NumFlights      int
	PointsPerFlight int
	BaseSeed        int64
	Now             time.Time
}

// FlightID formats the identifier of the i-th flight (zero based)
func FlightID(i int) string {
	return fmt.Sprintf("FLIGHT_%03d", i+1)
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
}

// GenerateFlight produces n points for one flight. The same seed always
// yields the same points.
func GenerateFlight(flightID string, start time.Time, n int, seed int64) []telemetry.Point {
	if n <= 0 {
		return nil
	}
	rng := newRand(seed)

	lat0 := baseLat + rng.NormFloat64()*baseLatStd
	lon0 := baseLon + rng.NormFloat64()*baseLonStd
	alt0 := baseAltitude + rng.NormFloat64()*baseAltitudeStd
	speed0 := baseSpeed + rng.NormFloat64()*baseSpeedStd

	lats := randomWalk(rng, lat0, stepLatStd, n)
	lons := randomWalk(rng, lon0, stepLonStd, n)
	alts := randomWalk(rng, alt0, stepAltitudeStd, n)
	speeds := randomWalk(rng, speed0, stepSpeedStd, n)

	points := make([]telemetry.Point, n)
	start = start.UTC()
	for i := range points {
		points[i] = telemetry.Point{
			Timestamp: start.Add(time.Duration(i) * sampleInterval),
			FlightID:  flightID,
			Lat:       lats[i],
			Lon:       lons[i],
			Altitude:  alts[i],
			Speed:     speeds[i],
			Heading:   math.Round(rng.Float64()*360*10) / 10,
			Status:    telemetry.StatusOK,
		}
	}

	injectAnomalies(rng, points)
	return points
}

// randomWalk returns base plus the cumulative sum of n normal increments
func randomWalk(rng *rand.Rand, base, std float64, n int) []float64 {
	out := make([]float64, n)
	sum := 0.0
	for i := range out {
		sum += rng.NormFloat64() * std
		out[i] = base + sum
	}
	return out
}

// injectAnomalies marks max(1, n/100) distinct points as speed spikes or
// altitude drops
func injectAnomalies(rng *rand.Rand, points []telemetry.Point) {
	n := len(points)
	count := max(1, n/100)
	for _, i := range rng.Perm(n)[:count] {
		p := &points[i]
		if rng.Float64() < speedSpikeProbability {
			p.Speed *= 1 + uniform(rng, speedSpikeMinFactor, speedSpikeMaxFactor)
			p.Status = telemetry.StatusSpeedSpike
		} else {
			p.Altitude -= uniform(rng, altDropMin, altDropMax)
			p.Status = telemetry.StatusAltDrop
		}
		p.IsAnomaly = true
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// Generate builds opts.NumFlights staggered flights and returns them
// sorted by flight ID and timestamp
func Generate(opts Options) []telemetry.Point {
	var points []telemetry.Point
	for i := 0; i < opts.NumFlights; i++ {
		start := opts.Now.Add(time.Duration(i) * flightStagger)
		points = append(points, GenerateFlight(FlightID(i), start, opts.PointsPerFlight, opts.BaseSeed+int64(i))...)
	}

	sort.SliceStable(points, func(a, b int) bool {
		if points[a].FlightID != points[b].FlightID {
			return points[a].FlightID < points[b].FlightID
		}
		return points[a].Timestamp.Before(points[b].Timestamp)
	})
	return points
}
