package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderStatus represents the fulfillment state of an order, distinct from
// its payment status
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"    // Created at checkout, awaiting seller confirmation
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"  // Seller accepted the order
	OrderStatusProcessing OrderStatus = "PROCESSING" // Being packed
	OrderStatusShipped    OrderStatus = "SHIPPED"    // Handed to courier, tracking attached
	OrderStatusDelivered  OrderStatus = "DELIVERED"  // Terminal
	OrderStatusCancelled  OrderStatus = "CANCELLED"  // Terminal
)

// PaymentStatus represents whether funds have been captured
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID" // Collectable, e.g. cash on delivery
	PaymentStatusPaid   PaymentStatus = "PAID"   // Funds captured (prepaid or wallet)
)

// PaymentMethod identifies how the customer pays
type PaymentMethod string

const (
	PaymentMethodCOD    PaymentMethod = "COD"
	PaymentMethodCard   PaymentMethod = "CARD"
	PaymentMethodWallet PaymentMethod = "WALLET"
)

// CourierName is one of the network couriers plus an "Other" escape value
type CourierName string

const (
	CourierTCS      CourierName = "TCS"
	CourierLeopards CourierName = "Leopards"
	CourierMP       CourierName = "M&P"
	CourierTrax     CourierName = "Trax"
	CourierPostEx   CourierName = "PostEx"
	CourierOther    CourierName = "Other"
)

// Couriers lists the selectable courier names in display order
var Couriers = []CourierName{CourierTCS, CourierLeopards, CourierMP, CourierTrax, CourierPostEx, CourierOther}

// ValidCourier reports whether name is a selectable courier
func ValidCourier(name CourierName) bool {
	for _, c := range Couriers {
		if c == name {
			return true
		}
	}
	return false
}

// Order is the main order entity. Status only moves forward along the
// transition graph in state_machine.go; tracking fields are written in the
// same update that moves the order to SHIPPED, never independently.
type Order struct {
	ID            uuid.UUID     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrderNumber   string        `json:"orderNumber" gorm:"not null;uniqueIndex:idx_orders_order_number"`
	CustomerID    uuid.UUID     `json:"customerId" gorm:"type:uuid;not null;index:idx_orders_customer"`
	Status        OrderStatus   `json:"status" gorm:"type:varchar(20);not null;default:'PENDING';index:idx_orders_status"`
	PaymentMethod PaymentMethod `json:"paymentMethod" gorm:"type:varchar(20);not null;default:'COD'"`
	PaymentStatus PaymentStatus `json:"paymentStatus" gorm:"type:varchar(20);not null;default:'UNPAID'"`
	Total         float64       `json:"total" gorm:"type:decimal(12,2);not null"`
	Currency      string        `json:"currency" gorm:"type:varchar(3);not null;default:'PKR'"`

	// Shipping address
	Street     string `json:"street" gorm:"not null"`
	City       string `json:"city" gorm:"not null"`
	Province   string `json:"province"`
	PostalCode string `json:"postalCode"`
	Phone      string `json:"phone"`

	// Set together with the SHIPPED transition, in a single update
	CourierName CourierName `json:"courierName,omitempty" gorm:"type:varchar(30)"`
	TrackingID  string      `json:"trackingId,omitempty" gorm:"type:varchar(100)"`

	DeliveredAt *time.Time     `json:"deliveredAt,omitempty"`
	CreatedAt   time.Time      `json:"createdAt" gorm:"index:idx_orders_created,sort:desc"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	Items []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// OrderItem belongs to exactly one order and one seller. The seller id
// scopes seller-role visibility and cancellation/return authority.
type OrderItem struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OrderID     uuid.UUID `json:"orderId" gorm:"type:uuid;not null;index"`
	SellerID    uuid.UUID `json:"sellerId" gorm:"type:uuid;not null;index:idx_order_items_seller"`
	ProductID   uuid.UUID `json:"productId" gorm:"type:uuid;not null"`
	ProductName string    `json:"productName" gorm:"not null"`
	Quantity    int       `json:"quantity" gorm:"not null"`
	UnitPrice   float64   `json:"unitPrice" gorm:"type:decimal(12,2);not null"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BeforeCreate hook to generate order number
func (o *Order) BeforeCreate(tx *gorm.DB) (err error) {
	if o.OrderNumber == "" {
		o.OrderNumber = generateOrderNumber()
	}
	return
}

func generateOrderNumber() string {
	return fmt.Sprintf("ORD-%d-%s", time.Now().Unix(), uuid.New().String()[:6])
}

// HasSeller reports whether any line item belongs to the given seller
func (o *Order) HasSeller(sellerID uuid.UUID) bool {
	for _, item := range o.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}

// ItemByID returns the line item with the given id, or nil
func (o *Order) ItemByID(itemID uuid.UUID) *OrderItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// IsPaid reports whether funds were captured for this order
func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}
