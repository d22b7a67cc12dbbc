// README: Tracking service: location ingestion and ETA derivation.
package tracking

import (
	"context"
	"errors"
	"log"
	"time"

	"parcelo/internal/maps"
	"parcelo/internal/modules/delivery"
	"parcelo/internal/types"
)

// Router is the external route function. The production implementation is
// maps.RouteService.
type Router interface {
	Route(ctx context.Context, origin, destination types.Point) (maps.RouteEstimate, error)
}

// Deliveries is the slice of the delivery service the tracker needs.
type Deliveries interface {
	Get(ctx context.Context, id types.ID) (*delivery.Delivery, error)
}

type Service struct {
	store      Store
	deliveries Deliveries
	router     Router
	now        func() time.Time
}

func NewService(store Store, deliveries Deliveries, router Router) *Service {
	return &Service{store: store, deliveries: deliveries, router: router, now: time.Now}
}

var (
	ErrNoSample  = errors.New("no location sample")
	ErrForbidden = errors.New("carrier not assigned to this delivery")
)

// fallbackSpeedKmh is the assumed average speed when the route function is
// unavailable and the estimate degrades to straight-line distance.
const fallbackSpeedKmh = 25.0

type ReportCommand struct {
	DeliveryID types.ID
	CarrierID  types.ID
	Position   types.Point
	AccuracyM  *float64
	HeadingDeg *float64
	SpeedKmh   *float64
}

// Report ingests one position sample. Accepted only from the delivery's
// assigned carrier while the delivery is in an in-progress status.
func (s *Service) Report(ctx context.Context, cmd ReportCommand) (*Sample, error) {
	d, err := s.deliveries.Get(ctx, cmd.DeliveryID)
	if err != nil {
		return nil, err
	}
	if d.CarrierID == nil || *d.CarrierID != cmd.CarrierID {
		return nil, ErrForbidden
	}
	if !d.Status.InProgress() {
		return nil, ErrForbidden
	}

	sample := &Sample{
		DeliveryID: cmd.DeliveryID,
		CarrierID:  cmd.CarrierID,
		Position:   cmd.Position,
		AccuracyM:  cmd.AccuracyM,
		HeadingDeg: cmd.HeadingDeg,
		SpeedKmh:   cmd.SpeedKmh,
		CapturedAt: s.now(),
	}
	if err := s.store.Append(ctx, sample); err != nil {
		return nil, err
	}
	return sample, nil
}

// EstimateArrival derives an ETA from the carrier's last known position and
// the drop-off location. Returns (nil, nil) when no sample exists yet:
// callers must treat that as "unknown", never as zero. A route-function
// failure degrades to a straight-line estimate instead of failing the call.
func (s *Service) EstimateArrival(ctx context.Context, deliveryID types.ID) (*ETA, error) {
	d, err := s.deliveries.Get(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	sample, err := s.store.Latest(ctx, deliveryID)
	if errors.Is(err, ErrNoSample) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if s.router != nil {
		est, err := s.router.Route(ctx, sample.Position, d.Dropoff)
		if err == nil {
			return &ETA{
				ArrivalAt: s.now().Add(est.Duration),
				Duration:  est.Duration,
				DistanceM: est.DistanceM,
				Polyline:  est.Polyline,
			}, nil
		}
		log.Printf("tracking: route function failed for %s: %v", deliveryID, err)
	}

	return s.straightLineETA(sample.Position, d.Dropoff), nil
}

// Distance returns the straight-line distance in metres from the last
// sample to the drop-off, for proximity classification.
func (s *Service) Distance(ctx context.Context, deliveryID types.ID) (float64, error) {
	d, err := s.deliveries.Get(ctx, deliveryID)
	if err != nil {
		return 0, err
	}
	sample, err := s.store.Latest(ctx, deliveryID)
	if err != nil {
		return 0, err
	}
	return haversineKm(sample.Position, d.Dropoff) * 1000, nil
}

// Latest exposes the current position for snapshot reads.
func (s *Service) Latest(ctx context.Context, deliveryID types.ID) (*Sample, error) {
	return s.store.Latest(ctx, deliveryID)
}

func (s *Service) straightLineETA(from, to types.Point) *ETA {
	km := haversineKm(from, to)
	dur := time.Duration(km / fallbackSpeedKmh * float64(time.Hour))
	return &ETA{
		ArrivalAt: s.now().Add(dur),
		Duration:  dur,
		DistanceM: int(km * 1000),
		Degraded:  true,
	}
}
