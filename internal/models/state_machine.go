package models

// ValidOrderTransitions defines the legal state transitions for OrderStatus.
// Flow: PENDING → CONFIRMED → PROCESSING → SHIPPED → DELIVERED
// CANCELLED is reachable from any pre-shipment state.
var ValidOrderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {}, // Terminal state
	OrderStatusCancelled:  {}, // Terminal state
}

// orderTransitionRoles defines which roles may drive each transition.
// Admins may drive any legal transition; this table covers the rest.
var orderTransitionRoles = map[OrderStatus]map[ActorRole]bool{
	OrderStatusConfirmed:  {RoleSeller: true},
	OrderStatusProcessing: {RoleSeller: true},
	OrderStatusShipped:    {RoleSeller: true},
	OrderStatusDelivered:  {RoleSeller: true},
	OrderStatusCancelled:  {RoleSeller: true, RoleCustomer: true},
}

// CanTransitionOrderStatus checks if a transition from one order status to
// another is valid
func CanTransitionOrderStatus(from, to OrderStatus) bool {
	validTransitions, exists := ValidOrderTransitions[from]
	if !exists {
		return false
	}
	for _, validTo := range validTransitions {
		if validTo == to {
			return true
		}
	}
	return false
}

// RoleCanTransition checks whether the actor role is allowed to drive a
// transition into the target status. Ownership checks (own order, own line
// items) are enforced separately at the point of commit.
func RoleCanTransition(role ActorRole, to OrderStatus) bool {
	if role == RoleAdmin {
		return true
	}
	allowed, exists := orderTransitionRoles[to]
	if !exists {
		return false
	}
	return allowed[role]
}

// ValidateOrderStatusTransition returns an error if the transition is
// invalid. The caller never silently clamps or no-ops a rejected request.
func ValidateOrderStatusTransition(from, to OrderStatus) error {
	if !CanTransitionOrderStatus(from, to) {
		return &InvalidTransitionError{From: string(from), To: string(to)}
	}
	return nil
}

// NextOrderStatuses returns the set of valid next statuses for an order
func NextOrderStatuses(current OrderStatus) []OrderStatus {
	return ValidOrderTransitions[current]
}

// IsTerminalOrderStatus checks if the order status is a terminal state
func IsTerminalOrderStatus(status OrderStatus) bool {
	return len(ValidOrderTransitions[status]) == 0
}

// DisplayName returns a human-readable name for the order status
func (s OrderStatus) DisplayName() string {
	switch s {
	case OrderStatusPending:
		return "Pending"
	case OrderStatusConfirmed:
		return "Confirmed"
	case OrderStatusProcessing:
		return "Processing"
	case OrderStatusShipped:
		return "Shipped"
	case OrderStatusDelivered:
		return "Delivered"
	case OrderStatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}
