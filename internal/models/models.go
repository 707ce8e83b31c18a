package models

import (
	"time"

	"github.com/google/uuid"
)

// All money amounts are integer cents.

// Stage is the fulfillment path a cart item is assigned to.
type Stage string

const (
	StageCrowdfunding Stage = "crowdfunding"
	StagePreorder     Stage = "preorder"
	StageStock        Stage = "stock"
)

type Project struct {
	ID               uint       `gorm:"primaryKey"       json:"id"`
	Name             string     `gorm:"not null"         json:"name"`
	Teaser           string     `json:"teaser"`
	Keywords         string     `json:"keywords"`
	Target           int64      `gorm:"not null;default:0" json:"target"`
	StartTime        time.Time  `gorm:"not null"         json:"start_time"`
	EndTime          time.Time  `gorm:"not null"         json:"end_time"`
	SuspendedTime    *time.Time `json:"suspended_time,omitempty"`
	Successful       bool       `gorm:"not null;default:false" json:"successful"`
	AcceptsPreorders bool       `gorm:"not null;default:true"  json:"accepts_preorders"`

	Products []Product `json:"products,omitempty"`
}

func (Project) TableName() string { return "projects" }

type Product struct {
	ID                     uint   `gorm:"primaryKey"     json:"id"`
	ProjectID              uint   `gorm:"index;not null" json:"project_id"`
	Name                   string `gorm:"not null"       json:"name"`
	Price                  int64  `gorm:"not null"       json:"price"`
	InternationalSurcharge int64  `gorm:"not null;default:0"    json:"international_surcharge"`
	InternationalAvailable bool   `gorm:"not null;default:true" json:"international_available"`
	NonPhysical            bool   `gorm:"not null;default:false" json:"non_physical"`
	AcceptsPreorders       bool   `gorm:"not null;default:true"  json:"accepts_preorders"`

	Project *Project `json:"project,omitempty"`
	Batches []Batch  `json:"batches,omitempty"`
}

func (Product) TableName() string { return "products" }

// Batch is a capacity-bounded delivery commitment for crowdfunding or
// pre-order fulfillment. Qty of zero means unlimited capacity.
type Batch struct {
	ID        uint      `gorm:"primaryKey"     json:"id"`
	ProductID uint      `gorm:"index;not null" json:"product_id"`
	Qty       int       `gorm:"not null;default:0" json:"qty"`
	ShipTime  time.Time `gorm:"not null"       json:"ship_time"`
}

func (Batch) TableName() string { return "batches" }

type ProductOption struct {
	ID        uint   `gorm:"primaryKey"     json:"id"`
	ProductID uint   `gorm:"index;not null" json:"product_id"`
	Name      string `gorm:"not null"       json:"name"`

	Values []OptionValue `gorm:"foreignKey:OptionID" json:"values,omitempty"`
}

func (ProductOption) TableName() string { return "product_options" }

type OptionValue struct {
	ID            uint   `gorm:"primaryKey"     json:"id"`
	OptionID      uint   `gorm:"index;not null" json:"option_id"`
	Description   string `gorm:"not null"       json:"description"`
	PriceIncrease int64  `gorm:"not null;default:0" json:"price_increase"`
}

func (OptionValue) TableName() string { return "option_values" }

// SKU is one option-value combination of a product.
type SKU struct {
	ID        uint   `gorm:"primaryKey"     json:"id"`
	ProductID uint   `gorm:"index;not null" json:"product_id"`
	Code      string `gorm:"index"          json:"code"`

	OptionValues []OptionValue `gorm:"many2many:sku_option_values" json:"option_values,omitempty"`
}

func (SKU) TableName() string { return "skus" }

// Item is one physical unit of stock. CartItemID is the reservation: an
// item belongs to at most one cart item at any instant, and a destroyed
// item is permanently excluded from reservation.
type Item struct {
	ID          uint       `gorm:"primaryKey"     json:"id"`
	SKUID       uint       `gorm:"column:sku_id;index;not null" json:"sku_id"`
	CreateTime  time.Time  `gorm:"not null;autoCreateTime" json:"create_time"`
	DestroyTime *time.Time `json:"destroy_time,omitempty"`
	CartItemID  *uint      `gorm:"index" json:"cart_item_id,omitempty"`
}

func (Item) TableName() string { return "items" }

type Cart struct {
	ID          uint      `gorm:"primaryKey"          json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	UpdatedTime time.Time `gorm:"not null;index"      json:"updated_time"`

	Items []CartItem `json:"items,omitempty"`
	Order *Order     `json:"order,omitempty"`
}

func (Cart) TableName() string { return "carts" }

// Total is the price of all non-cancelled items including shipping.
func (c *Cart) Total() int64 {
	var total int64
	for i := range c.Items {
		if c.Items[i].Status != StatusCancelled {
			total += c.Items[i].Total()
		}
	}
	return total
}

func (c *Cart) ItemsTotal() int64 {
	var total int64
	for i := range c.Items {
		if c.Items[i].Status != StatusCancelled {
			total += c.Items[i].PriceEach * int64(c.Items[i].QtyDesired)
		}
	}
	return total
}

func (c *Cart) ShippingTotal() int64 {
	var total int64
	for i := range c.Items {
		if c.Items[i].Status != StatusCancelled {
			total += c.Items[i].ShippingPrice * int64(c.Items[i].QtyDesired)
		}
	}
	return total
}

// CartItem is one product line within a cart, the unit of fulfillment
// tracking after checkout.
type CartItem struct {
	ID            uint   `gorm:"primaryKey"     json:"id"`
	CartID        uint   `gorm:"index;not null" json:"cart_id"`
	ProductID     uint   `gorm:"index;not null" json:"product_id"`
	SKUID         uint   `gorm:"column:sku_id;index;not null" json:"sku_id"`
	BatchID       *uint  `gorm:"index"          json:"batch_id,omitempty"`
	PriceEach     int64  `gorm:"not null"       json:"price_each"`
	ShippingPrice int64  `gorm:"not null;default:0" json:"shipping_price"`
	QtyDesired    int    `gorm:"not null;default:1" json:"qty_desired"`
	Stage         Stage  `gorm:"type:varchar(16)"   json:"stage"`
	Status        Status `gorm:"type:varchar(16);not null;default:'cart'" json:"status"`

	ExpectedShipTime *time.Time `json:"expected_ship_time,omitempty"`
	ShippedTime      *time.Time `json:"shipped_time,omitempty"`

	Product *Product `json:"product,omitempty"`
	Batch   *Batch   `json:"batch,omitempty"`
	SKU     *SKU     `json:"sku,omitempty"`
}

func (CartItem) TableName() string { return "cart_items" }

// Total is the price of this line item including shipping.
func (ci *CartItem) Total() int64 {
	return (ci.PriceEach + ci.ShippingPrice) * int64(ci.QtyDesired)
}

// Closed reports whether this item is in a final, resolved state.
func (ci *CartItem) Closed() bool {
	switch ci.Status {
	case StatusCancelled, StatusShipped, StatusAbandoned, StatusFailed:
		return true
	}
	return false
}

// Order capture guard states. The guard is flipped idle -> in progress
// with a conditional update before a gateway call and held until the
// outcome is known; uncertain outcomes park the order for manual
// reconciliation.
const (
	CaptureStateIdle       = "idle"
	CaptureStateInProgress = "in progress"
	CaptureStateUncertain  = "uncertain"
)

type Order struct {
	ID           uint      `gorm:"primaryKey"           json:"id"`
	CartID       uint      `gorm:"uniqueIndex;not null" json:"cart_id"`
	UserID       uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	CreatedAt    time.Time `gorm:"not null"             json:"created_at"`
	Gateway      string    `gorm:"not null"             json:"gateway"`
	MethodRef    string    `gorm:"not null"             json:"-"`
	CaptureState string    `gorm:"type:varchar(16);not null;default:'idle'" json:"capture_state"`

	// Fraud-signal metadata recorded at checkout and passed through to
	// the payment gateway.
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
	Referrer  string `json:"-"`

	Cart     *Cart     `json:"cart,omitempty"`
	Payments []Payment `json:"payments,omitempty"`
}

func (Order) TableName() string { return "orders" }

// Payment records exactly one successful gateway transaction. Declined
// attempts never produce a row.
type Payment struct {
	ID               uint      `gorm:"primaryKey"     json:"id"`
	OrderID          uint      `gorm:"index;not null" json:"order_id"`
	Amount           int64     `gorm:"not null"       json:"amount"`
	TransactionID    string    `gorm:"not null"       json:"transaction_id"`
	Descriptor       string    `json:"descriptor"`
	AVSAddressResult string    `json:"avs_address_result"`
	AVSZipResult     string    `json:"avs_zip_result"`
	CCVResult        string    `json:"ccv_result"`
	CardType         string    `json:"card_type"`
	CreatedBy        uuid.UUID `gorm:"type:uuid" json:"created_by"`
	CreatedAt        time.Time `gorm:"not null"  json:"created_at"`
}

func (Payment) TableName() string { return "payments" }
