package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"order-lifecycle-service/internal/models"
)

// Event subjects published on the lifecycle bus
const (
	SubjectOrderStatusChanged = "order.status_changed"
	SubjectOrderShipped       = "order.shipped"
	SubjectOrderDelivered     = "order.delivered"
	SubjectOrderCancelled     = "order.cancelled"
	SubjectReturnRequested    = "return.requested"
	SubjectReturnApproved     = "return.approved"
	SubjectReturnRejected     = "return.rejected"
	SubjectReturnRefunded     = "return.refund_issued"
	SubjectWalletCredited     = "wallet.credited"
)

// Publisher emits lifecycle events for downstream consumers (notifications,
// inventory, analytics). Publishing is best-effort: a failed publish is
// logged and never rolls back the state change it describes.
type Publisher interface {
	PublishOrderStatusChanged(order *models.Order, previous, next models.OrderStatus, actor models.Actor)
	PublishOrderShipped(order *models.Order)
	PublishOrderDelivered(order *models.Order)
	PublishOrderCancelled(order *models.Order, log *models.CancellationLog)
	PublishReturnRequested(ret *models.ReturnRequest)
	PublishReturnDecision(ret *models.ReturnRequest, approved bool)
	PublishReturnRefunded(ret *models.ReturnRequest, newBalance float64)
	PublishWalletCredited(customerID string, amount, newBalance float64, reason string)
	Close()
}

type natsPublisher struct {
	conn   *nats.Conn
	logger *logrus.Entry
}

// NewNATSPublisher connects to the NATS server and returns a publisher
func NewNATSPublisher(natsURL string, logger *logrus.Logger) (Publisher, error) {
	conn, err := nats.Connect(natsURL,
		nats.Name("order-lifecycle-service"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &natsPublisher{
		conn:   conn,
		logger: logger.WithField("component", "lifecycle-events"),
	}, nil
}

func (p *natsPublisher) publish(subject string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.WithError(err).WithField("subject", subject).Error("Failed to marshal event payload")
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.WithError(err).WithField("subject", subject).Error("Failed to publish event")
		return
	}
	p.logger.WithField("subject", subject).Debug("Published event")
}

func (p *natsPublisher) PublishOrderStatusChanged(order *models.Order, previous, next models.OrderStatus, actor models.Actor) {
	p.publish(SubjectOrderStatusChanged, map[string]interface{}{
		"orderId":        order.ID,
		"orderNumber":    order.OrderNumber,
		"previousStatus": previous,
		"newStatus":      next,
		"actorId":        actor.ID,
		"actorRole":      actor.Role,
		"occurredAt":     time.Now().UTC().Format(time.RFC3339),
	})
}

func (p *natsPublisher) PublishOrderShipped(order *models.Order) {
	p.publish(SubjectOrderShipped, map[string]interface{}{
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
		"courierName": order.CourierName,
		"trackingId":  order.TrackingID,
		"occurredAt":  time.Now().UTC().Format(time.RFC3339),
	})
}

func (p *natsPublisher) PublishOrderDelivered(order *models.Order) {
	p.publish(SubjectOrderDelivered, map[string]interface{}{
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
		"deliveredAt": order.DeliveredAt,
	})
}

func (p *natsPublisher) PublishOrderCancelled(order *models.Order, log *models.CancellationLog) {
	p.publish(SubjectOrderCancelled, map[string]interface{}{
		"orderId":      order.ID,
		"orderNumber":  order.OrderNumber,
		"cancelledBy":  log.ActorRole,
		"reason":       log.Reason,
		"reasonText":   log.ReasonText,
		"refundAmount": log.RefundAmount,
		"refunded":     log.RefundProcessed,
		"occurredAt":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (p *natsPublisher) PublishReturnRequested(ret *models.ReturnRequest) {
	p.publish(SubjectReturnRequested, map[string]interface{}{
		"returnId":   ret.ID,
		"rmaNumber":  ret.RMANumber,
		"orderId":    ret.OrderID,
		"customerId": ret.CustomerID,
		"sellerId":   ret.SellerID,
		"reason":     ret.Reason,
		"occurredAt": time.Now().UTC().Format(time.RFC3339),
	})
}

func (p *natsPublisher) PublishReturnDecision(ret *models.ReturnRequest, approved bool) {
	subject := SubjectReturnRejected
	if approved {
		subject = SubjectReturnApproved
	}
	p.publish(subject, map[string]interface{}{
		"returnId":   ret.ID,
		"rmaNumber":  ret.RMANumber,
		"orderId":    ret.OrderID,
		"customerId": ret.CustomerID,
		"status":     ret.Status,
		"occurredAt": time.Now().UTC().Format(time.RFC3339),
	})
}

func (p *natsPublisher) PublishReturnRefunded(ret *models.ReturnRequest, newBalance float64) {
	p.publish(SubjectReturnRefunded, map[string]interface{}{
		"returnId":     ret.ID,
		"rmaNumber":    ret.RMANumber,
		"customerId":   ret.CustomerID,
		"refundAmount": ret.RefundAmount,
		"newBalance":   newBalance,
		"occurredAt":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (p *natsPublisher) PublishWalletCredited(customerID string, amount, newBalance float64, reason string) {
	p.publish(SubjectWalletCredited, map[string]interface{}{
		"customerId": customerID,
		"amount":     amount,
		"newBalance": newBalance,
		"reason":     reason,
		"occurredAt": time.Now().UTC().Format(time.RFC3339),
	})
}

func (p *natsPublisher) Close() {
	if p.conn != nil {
		p.conn.Drain()
	}
}

// NoopPublisher satisfies Publisher when no event bus is configured
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderStatusChanged(*models.Order, models.OrderStatus, models.OrderStatus, models.Actor) {
}
func (NoopPublisher) PublishOrderShipped(*models.Order)                           {}
func (NoopPublisher) PublishOrderDelivered(*models.Order)                         {}
func (NoopPublisher) PublishOrderCancelled(*models.Order, *models.CancellationLog) {}
func (NoopPublisher) PublishReturnRequested(*models.ReturnRequest)                {}
func (NoopPublisher) PublishReturnDecision(*models.ReturnRequest, bool)           {}
func (NoopPublisher) PublishReturnRefunded(*models.ReturnRequest, float64)        {}
func (NoopPublisher) PublishWalletCredited(string, float64, float64, string)      {}
func (NoopPublisher) Close()                                                      {}
