package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/product"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() (*Service, *mocks.MockOrderStore, *mocks.MockPublisher) {
	orders := mocks.NewMockOrderStore()
	publisher := &mocks.MockPublisher{}
	return NewService(orders, publisher), orders, publisher
}

func seedOrder(orders *mocks.MockOrderStore, status order.Status) {
	orders.SetRecord("uid-1", order.Record{
		ID: "ORD-000042",
		Items: []cart.Line{{
			Product:  product.Medicine{Base: product.Base{ID: "med-1", Name: "Dolo 650", Price: 30, MRP: 35}},
			Quantity: 1,
		}},
		Total:     30,
		Status:    status,
		UserEmail: "asha@example.com",
	})
}

// ============================================
// Update Status Tests
// ============================================

func TestService_UpdateStatus_Delivered(t *testing.T) {
	svc, orders, publisher := newTestService()
	seedOrder(orders, order.StatusProcessing)

	rec, err := svc.UpdateStatus(context.Background(), UpdateStatus{
		UserID: "uid-1", OrderID: "ORD-000042", Status: order.StatusDelivered,
	})

	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, rec.Status)
	require.Len(t, orders.Calls(), 1)
	assert.Equal(t, order.StatusDelivered, orders.Calls()[0].Record.Status)

	require.Len(t, publisher.Published, 1)
	assert.Equal(t, "ORD-000042", publisher.Published[0].Key)
	event, ok := publisher.Published[0].Event.(store.Event)
	require.True(t, ok)
	assert.Equal(t, order.EventOrderStatusChanged, event.EventType)

	var changed order.OrderStatusChanged
	require.NoError(t, json.Unmarshal(event.Data, &changed))
	assert.Equal(t, order.StatusProcessing, changed.From)
	assert.Equal(t, order.StatusDelivered, changed.To)
	assert.Equal(t, "asha@example.com", changed.UserEmail)
}

func TestService_UpdateStatus_ClearsDriverLocation(t *testing.T) {
	svc, orders, _ := newTestService()
	seedOrder(orders, order.StatusProcessing)
	ctx := context.Background()

	_, err := svc.UpdateDriverLocation(ctx, UpdateDriverLocation{
		UserID: "uid-1", OrderID: "ORD-000042", Latitude: 12.97, Longitude: 77.59,
	})
	require.NoError(t, err)

	rec, err := svc.UpdateStatus(ctx, UpdateStatus{
		UserID: "uid-1", OrderID: "ORD-000042", Status: order.StatusCancelled,
	})

	require.NoError(t, err)
	assert.Nil(t, rec.DriverLocation)
}

func TestService_UpdateStatus_SameStatusIsNoop(t *testing.T) {
	svc, orders, publisher := newTestService()
	seedOrder(orders, order.StatusProcessing)

	rec, err := svc.UpdateStatus(context.Background(), UpdateStatus{
		UserID: "uid-1", OrderID: "ORD-000042", Status: order.StatusProcessing,
	})

	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, rec.Status)
	assert.Empty(t, orders.Calls())
	assert.Empty(t, publisher.Published)
}

func TestService_UpdateStatus_TerminalStates(t *testing.T) {
	tests := []struct {
		name    string
		from    order.Status
		to      order.Status
		wantErr error
	}{
		{"delivered to cancelled", order.StatusDelivered, order.StatusCancelled, order.ErrOrderDelivered},
		{"cancelled to delivered", order.StatusCancelled, order.StatusDelivered, order.ErrOrderCancelled},
		{"delivered back to processing", order.StatusDelivered, order.StatusProcessing, order.ErrOrderDelivered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, orders, publisher := newTestService()
			seedOrder(orders, tt.from)

			_, err := svc.UpdateStatus(context.Background(), UpdateStatus{
				UserID: "uid-1", OrderID: "ORD-000042", Status: tt.to,
			})

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, orders.Calls())
			assert.Empty(t, publisher.Published)
		})
	}
}

func TestService_UpdateStatus_UnknownStatus(t *testing.T) {
	svc, orders, _ := newTestService()
	seedOrder(orders, order.StatusProcessing)

	_, err := svc.UpdateStatus(context.Background(), UpdateStatus{
		UserID: "uid-1", OrderID: "ORD-000042", Status: "Shipped",
	})

	assert.ErrorIs(t, err, order.ErrUnknownStatus)
}

func TestService_UpdateStatus_NotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.UpdateStatus(context.Background(), UpdateStatus{
		UserID: "uid-1", OrderID: "ORD-404404", Status: order.StatusDelivered,
	})

	assert.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestService_UpdateStatus_PutFailsPublishesNothing(t *testing.T) {
	svc, orders, publisher := newTestService()
	seedOrder(orders, order.StatusProcessing)
	orders.PutErr = errors.New("write failed")

	_, err := svc.UpdateStatus(context.Background(), UpdateStatus{
		UserID: "uid-1", OrderID: "ORD-000042", Status: order.StatusDelivered,
	})

	assert.Error(t, err)
	assert.Empty(t, publisher.Published)
}

func TestService_UpdateStatus_PublishFailureStillSucceeds(t *testing.T) {
	svc, orders, publisher := newTestService()
	seedOrder(orders, order.StatusProcessing)
	publisher.PublishErr = errors.New("broker down")

	rec, err := svc.UpdateStatus(context.Background(), UpdateStatus{
		UserID: "uid-1", OrderID: "ORD-000042", Status: order.StatusDelivered,
	})

	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, rec.Status)
}

// ============================================
// Driver Location Tests
// ============================================

func TestService_UpdateDriverLocation_Success(t *testing.T) {
	svc, orders, publisher := newTestService()
	seedOrder(orders, order.StatusProcessing)

	rec, err := svc.UpdateDriverLocation(context.Background(), UpdateDriverLocation{
		UserID: "uid-1", OrderID: "ORD-000042", Latitude: 12.97, Longitude: 77.59,
	})

	require.NoError(t, err)
	require.NotNil(t, rec.DriverLocation)
	assert.Equal(t, 12.97, rec.DriverLocation.Latitude)
	assert.Equal(t, 77.59, rec.DriverLocation.Longitude)
	assert.Equal(t, order.StatusProcessing, rec.Status)
	assert.Empty(t, publisher.Published)
}

func TestService_UpdateDriverLocation_NotInFlight(t *testing.T) {
	svc, orders, _ := newTestService()
	seedOrder(orders, order.StatusDelivered)

	_, err := svc.UpdateDriverLocation(context.Background(), UpdateDriverLocation{
		UserID: "uid-1", OrderID: "ORD-000042", Latitude: 12.97, Longitude: 77.59,
	})

	assert.ErrorIs(t, err, order.ErrOrderNotInFlight)
	assert.Empty(t, orders.Calls())
}

func TestService_UpdateDriverLocation_InvalidCoordinates(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
	}{
		{"latitude too large", 91, 0},
		{"longitude too small", 0, -181},
		{"NaN", math.NaN(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, orders, _ := newTestService()
			seedOrder(orders, order.StatusProcessing)

			_, err := svc.UpdateDriverLocation(context.Background(), UpdateDriverLocation{
				UserID: "uid-1", OrderID: "ORD-000042", Latitude: tt.lat, Longitude: tt.lng,
			})

			assert.ErrorIs(t, err, ErrInvalidLocation)
		})
	}
}
