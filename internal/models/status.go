package models

// TableState is the closed set of occupancy codes a table status row maps to.
type TableState string

const (
	TableFree     TableState = "free"
	TableReserved TableState = "reserved"
	TableOccupied TableState = "occupied"
)

// TableStates lists every table state in seeding order.
var TableStates = []TableState{TableFree, TableReserved, TableOccupied}

var tableTransitions = map[TableState][]TableState{
	TableFree:     {TableReserved, TableOccupied},
	TableReserved: {TableFree, TableOccupied},
	TableOccupied: {TableFree},
}

func (s TableState) Valid() bool {
	_, ok := tableTransitions[s]
	return ok
}

// CanTransition reports whether a table may move from s to to.
// Staying in the same state is always allowed.
func (s TableState) CanTransition(to TableState) bool {
	if s == to {
		return s.Valid()
	}
	for _, next := range tableTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderState is the closed set of lifecycle codes an order status row maps to.
type OrderState string

const (
	OrderNew        OrderState = "new"
	OrderInProgress OrderState = "in_progress"
	OrderCompleted  OrderState = "completed"
	OrderCancelled  OrderState = "cancelled"
)

// OrderStates lists every order state in seeding order.
var OrderStates = []OrderState{OrderNew, OrderInProgress, OrderCompleted, OrderCancelled}

var orderTransitions = map[OrderState][]OrderState{
	OrderNew:        {OrderInProgress, OrderCompleted, OrderCancelled},
	OrderInProgress: {OrderCompleted, OrderCancelled},
	OrderCompleted:  {},
	OrderCancelled:  {},
}

func (s OrderState) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal is true for completed and cancelled orders.
func (s OrderState) IsTerminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// IsOpen is true while line items may still change.
func (s OrderState) IsOpen() bool {
	return s == OrderNew || s == OrderInProgress
}

func (s OrderState) CanTransition(to OrderState) bool {
	if s == to {
		return s.Valid()
	}
	for _, next := range orderTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// TableStatus is a deployment-named row for one TableState.
type TableStatus struct {
	ID   uint       `gorm:"primary_key" json:"id"`
	Name string     `gorm:"size:250;not null" json:"name"`
	Code TableState `gorm:"size:32;not null;unique_index" json:"code"`
}

func (TableStatus) TableName() string {
	return "table_statuses"
}

// OrderStatus is a deployment-named row for one OrderState.
type OrderStatus struct {
	ID   uint       `gorm:"primary_key" json:"id"`
	Name string     `gorm:"size:250;not null" json:"name"`
	Code OrderState `gorm:"size:32;not null;unique_index" json:"code"`
}

func (OrderStatus) TableName() string {
	return "order_statuses"
}
