// Package geo provides the GPS fix value type shared by every companion
// component, together with great-circle distance and bearing on the WGS84
// ellipsoid.
//
// # Validity
//
// Stratux reports 0/0 when it has no position. A Fix is therefore valid only
// when neither coordinate is exactly zero:
//
//	geo.Fix{Lat: 0, Lng: 0}.Valid()          // false
//	geo.Fix{Lat: 30.45, Lng: 0}.Valid()      // false
//	geo.Fix{Lat: 30.45, Lng: -97.68}.Valid() // true
//
// # Distances
//
// DistanceTo and BearingTo solve the geodesic inverse problem (Karney's
// algorithm, via github.com/tidwall/geodesic), so results agree with the
// usual aviation tooling to well under a metre at the ranges a traffic
// receiver can hear.
package geo
