// README: Tracking service tests (report authorization, ETA fallback, proximity).
package tracking

import (
	"context"
	"errors"
	"testing"
	"time"

	"parcelo/internal/maps"
	"parcelo/internal/modules/delivery"
	"parcelo/internal/types"
)

// stubRouter is a test double for the external route function.
type stubRouter struct {
	est maps.RouteEstimate
	err error
}

func (s *stubRouter) Route(_ context.Context, _, _ types.Point) (maps.RouteEstimate, error) {
	return s.est, s.err
}

func setupDelivery(t *testing.T) (*delivery.Service, types.ID) {
	t.Helper()
	svc := delivery.NewService(delivery.NewMemoryStore())
	ctx := context.Background()
	id, err := svc.Create(ctx, delivery.CreateCommand{
		RequesterID: "req1",
		Pickup:      types.Point{Lat: 48.8566, Lng: 2.3522},
		Dropoff:     types.Point{Lat: 48.8606, Lng: 2.3376},
	})
	if err != nil {
		t.Fatalf("create delivery: %v", err)
	}
	if _, err := svc.Accept(ctx, delivery.AcceptCommand{DeliveryID: id, CarrierID: "car1"}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	return svc, id
}

func TestReportRejectsUnassignedCarrier(t *testing.T) {
	deliveries, id := setupDelivery(t)
	svc := NewService(NewMemoryStore(), deliveries, nil)

	_, err := svc.Report(context.Background(), ReportCommand{
		DeliveryID: id,
		CarrierID:  "car2",
		Position:   types.Point{Lat: 48.85, Lng: 2.35},
	})
	if err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestReportRejectsTerminalDelivery(t *testing.T) {
	deliveries, id := setupDelivery(t)
	ctx := context.Background()
	if _, err := deliveries.Transition(ctx, delivery.TransitionCommand{
		DeliveryID: id, To: delivery.StatusCancelled, ActorRole: delivery.RoleRequester, ActorID: "req1",
	}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	svc := NewService(NewMemoryStore(), deliveries, nil)
	_, err := svc.Report(ctx, ReportCommand{
		DeliveryID: id,
		CarrierID:  "car1",
		Position:   types.Point{Lat: 48.85, Lng: 2.35},
	})
	if err != ErrForbidden {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

// TestEstimateArrivalNoSample checks the "unknown" contract: no sample yet
// means a nil ETA with no error, never a zero estimate.
func TestEstimateArrivalNoSample(t *testing.T) {
	deliveries, id := setupDelivery(t)
	svc := NewService(NewMemoryStore(), deliveries, &stubRouter{})

	eta, err := svc.EstimateArrival(context.Background(), id)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if eta != nil {
		t.Fatalf("expected nil ETA without samples, got %+v", eta)
	}
}

func TestEstimateArrivalUsesRouter(t *testing.T) {
	deliveries, id := setupDelivery(t)
	router := &stubRouter{est: maps.RouteEstimate{
		DistanceM: 3200,
		Duration:  9 * time.Minute,
		Polyline:  "abc123",
	}}
	svc := NewService(NewMemoryStore(), deliveries, router)
	ctx := context.Background()

	if _, err := svc.Report(ctx, ReportCommand{
		DeliveryID: id, CarrierID: "car1", Position: types.Point{Lat: 48.85, Lng: 2.35},
	}); err != nil {
		t.Fatalf("report: %v", err)
	}

	eta, err := svc.EstimateArrival(ctx, id)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if eta == nil {
		t.Fatal("expected ETA")
	}
	if eta.Degraded {
		t.Fatal("expected routed estimate, got degraded")
	}
	if eta.DistanceM != 3200 || eta.Duration != 9*time.Minute || eta.Polyline != "abc123" {
		t.Fatalf("unexpected estimate: %+v", eta)
	}
}

// TestEstimateArrivalDegradesOnRouterFailure verifies the straight-line
// fallback: a failing route function yields an estimate flagged degraded
// instead of an error.
func TestEstimateArrivalDegradesOnRouterFailure(t *testing.T) {
	deliveries, id := setupDelivery(t)
	router := &stubRouter{err: errors.New("quota exceeded")}
	svc := NewService(NewMemoryStore(), deliveries, router)
	ctx := context.Background()

	if _, err := svc.Report(ctx, ReportCommand{
		DeliveryID: id, CarrierID: "car1", Position: types.Point{Lat: 48.85, Lng: 2.35},
	}); err != nil {
		t.Fatalf("report: %v", err)
	}

	eta, err := svc.EstimateArrival(ctx, id)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if eta == nil {
		t.Fatal("expected fallback ETA")
	}
	if !eta.Degraded {
		t.Fatal("expected degraded flag on fallback estimate")
	}
	if eta.DistanceM <= 0 {
		t.Fatalf("expected positive distance, got %d", eta.DistanceM)
	}
	if eta.Duration <= 0 {
		t.Fatalf("expected positive duration, got %s", eta.Duration)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		distanceM float64
		want      Proximity
	}{
		{10, ProximityArrived},
		{50, ProximityArrived},
		{51, ProximityNearby},
		{500, ProximityNearby},
		{501, ProximityApproaching},
		{2000, ProximityApproaching},
		{2001, ProximityNone},
		{15000, ProximityNone},
	}
	for _, tc := range cases {
		if got := Classify(tc.distanceM); got != tc.want {
			t.Errorf("Classify(%.0f) = %q, want %q", tc.distanceM, got, tc.want)
		}
	}
}

func TestHaversine(t *testing.T) {
	// Paris → Lyon is roughly 392 km as the crow flies.
	paris := types.Point{Lat: 48.8566, Lng: 2.3522}
	lyon := types.Point{Lat: 45.7640, Lng: 4.8357}
	km := haversineKm(paris, lyon)
	if km < 380 || km > 405 {
		t.Fatalf("haversine Paris-Lyon = %.1f km, want ~392", km)
	}
	if d := haversineKm(paris, paris); d != 0 {
		t.Fatalf("zero distance = %f, want 0", d)
	}
}
