// Package proximity answers which active meetings a participant is close to.
//
// Distances are planar Euclidean in the units of the supplied coordinates;
// no geodesic correction is applied.
package proximity

import (
	"math"

	"github.com/example/meeting-presence/internal/activecache"
)

// DefaultRadius is the inclusive distance threshold used when none is configured.
const DefaultRadius = 100.0

// Point is a coordinate pair. For meetings X is the latitude and Y the longitude.
type Point struct {
	X float64
	Y float64
}

// Distance returns the planar Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Within reports whether target lies within radius of origin, inclusive.
func Within(origin, target Point, radius float64) bool {
	return Distance(origin, target) <= radius
}

// FindNearby returns the ids of the meetings email is invited to whose
// location lies within radius of origin. The result follows the order of
// meetings.
func FindNearby(meetings []activecache.ActiveMeeting, email string, origin Point, radius float64) []string {
	ids := make([]string, 0)
	for _, m := range meetings {
		if !m.IsInvited(email) {
			continue
		}
		if Within(origin, Point{X: m.Latitude, Y: m.Longitude}, radius) {
			ids = append(ids, m.ID)
		}
	}
	return ids
}
