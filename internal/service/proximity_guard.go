package service

import (
	"go.uber.org/zap"

	"github.com/Kishore-Procode/work-flow-lms-api-sub000/internal/geo"
)

// DefaultMaxDistanceMeters bounds how far a new photo may be taken from the
// entity's most recent prior photo.
const DefaultMaxDistanceMeters = 25.0

// ProximityResult reports the location check outcome.
type ProximityResult struct {
	OK             bool
	DistanceMeters float64
}

// ProximityGuard rejects photos taken too far from the previous submission
// location. Missing coordinates on either side pass the check: the policy
// fails open on absent location data.
type ProximityGuard struct {
	maxMeters float64
	logger    *zap.Logger
}

// NewProximityGuard constructs the guard; maxMeters <= 0 falls back to the
// default.
func NewProximityGuard(maxMeters float64, logger *zap.Logger) *ProximityGuard {
	if maxMeters <= 0 {
		maxMeters = DefaultMaxDistanceMeters
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProximityGuard{maxMeters: maxMeters, logger: logger}
}

// Check compares the candidate location against the prior one.
func (g *ProximityGuard) Check(candidate, prior *geo.Point) ProximityResult {
	if candidate == nil || prior == nil {
		g.logger.Debug("proximity check skipped, missing coordinates",
			zap.Bool("candidate_present", candidate != nil),
			zap.Bool("prior_present", prior != nil))
		return ProximityResult{OK: true}
	}
	distance := geo.Haversine(*candidate, *prior)
	return ProximityResult{OK: distance <= g.maxMeters, DistanceMeters: distance}
}

// MaxMeters exposes the configured threshold for error messages.
func (g *ProximityGuard) MaxMeters() float64 {
	return g.maxMeters
}
