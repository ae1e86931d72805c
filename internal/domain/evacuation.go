package domain

// RadialRoutes builds straight-line evacuation routes from a threat's
// epicentre to each shelter, passing through the point where the line leaves
// the impact zone. This is a placeholder for real road routing.
func RadialRoutes(threat Threat, shelters []Shelter) []EvacuationRoute {
	if !threat.Location.Known() || len(shelters) == 0 {
		return nil
	}

	origin := threat.Location.Point()
	radiusKm := threat.ImpactRadiusKm()
	routes := make([]EvacuationRoute, 0, len(shelters))

	for _, s := range shelters {
		target := Point{Lat: s.Lat, Lon: s.Lon}
		if !ValidPoint(target) {
			continue
		}
		bearing := Bearing(origin, target)
		distance := Haversine(origin, target)

		waypoints := []Point{origin}
		if distance > radiusKm && radiusKm > 0 {
			waypoints = append(waypoints, Destination(origin, bearing, radiusKm))
		}
		waypoints = append(waypoints, target)

		routes = append(routes, EvacuationRoute{
			ShelterID:  s.ID,
			Shelter:    s.Name,
			Waypoints:  waypoints,
			DistanceKm: distance,
			BearingDeg: bearing,
		})
	}
	return routes
}
