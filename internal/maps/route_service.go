// README: Google Maps Directions client for route estimates.
package maps

import (
	"context"
	"fmt"
	"time"

	"googlemaps.github.io/maps"

	"parcelo/internal/types"
)

// RouteEstimate is the result of the external routing function.
type RouteEstimate struct {
	DistanceM int
	Duration  time.Duration
	Polyline  string
}

// RouteService handles interactions with the Google Maps Directions API.
type RouteService struct {
	client *maps.Client
}

// NewRouteService creates a new RouteService with the given API key.
func NewRouteService(apiKey string) (*RouteService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &RouteService{client: client}, nil
}

// Route returns distance, duration, and an encoded polyline for a driving
// trip from origin to destination.
func (s *RouteService) Route(ctx context.Context, origin, destination types.Point) (RouteEstimate, error) {
	r := &maps.DirectionsRequest{
		Origin:      fmt.Sprintf("%f,%f", origin.Lat, origin.Lng),
		Destination: fmt.Sprintf("%f,%f", destination.Lat, destination.Lng),
		Mode:        maps.TravelModeDriving,
	}

	routes, _, err := s.client.Directions(ctx, r)
	if err != nil {
		return RouteEstimate{}, fmt.Errorf("maps api error: %w", err)
	}

	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return RouteEstimate{}, fmt.Errorf("no route found")
	}

	leg := routes[0].Legs[0]
	return RouteEstimate{
		DistanceM: leg.Distance.Meters,
		Duration:  leg.Duration,
		Polyline:  routes[0].OverviewPolyline.Points,
	}, nil
}
