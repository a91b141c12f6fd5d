package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"feasto-api/apperr"
	"feasto-api/metrics"
	"feasto-api/models"
	"feasto-api/policy"
	"feasto-api/statemachine"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type OrderOptions struct {
	// StrictTransitions enforces the forward transition table on status updates.
	StrictTransitions bool
	// VerifyTotal rejects orders whose total differs from the line item sum.
	VerifyTotal bool
}

// OrderService owns order creation, visibility and the status lifecycle.
type OrderService struct {
	db     *gorm.DB
	policy *policy.Policy
	log    *logrus.Logger
	opts   OrderOptions
	now    func() time.Time
}

func NewOrderService(db *gorm.DB, p *policy.Policy, log *logrus.Logger, opts OrderOptions) *OrderService {
	return &OrderService{db: db, policy: p, log: log, opts: opts, now: time.Now}
}

type OrderFilter struct {
	Status string
}

type OrderItemInput struct {
	FoodItemID uint
	Name       string
	Quantity   int
	Price      *decimal.Decimal
}

type CreateOrderInput struct {
	CustomerID          *uint
	CustomerName        string
	DeliveryAddress     string
	PhoneNumber         string
	SpecialInstructions *string
	PaymentMethod       models.PaymentMethod
	Total               decimal.Decimal
	Items               []OrderItemInput
}

// UpdateOrderInput carries the editable order fields; nil means unchanged.
type UpdateOrderInput struct {
	DeliveryAddress     *string
	PhoneNumber         *string
	SpecialInstructions *string
	PaymentMethod       *models.PaymentMethod
	Status              *string
}

// scoped restricts orders to what caller may see. Delivery staff see their
// own assignments plus every order that is ready to be claimed.
func (s *OrderService) scoped(ctx context.Context, caller policy.Caller) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Order{})
	switch caller.Role {
	case models.RoleCustomer:
		q = q.Where("customer_id = ?", caller.UserID)
	case models.RoleDelivery:
		q = q.Where(s.db.Where("delivery_staff_id = ?", caller.UserID).Or("status = ?", models.StatusReady))
	}
	return q
}

func withDetails(q *gorm.DB) *gorm.DB {
	return q.Preload("Customer").
		Preload("DeliveryStaff").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
}

func (s *OrderService) List(ctx context.Context, caller policy.Caller, filter OrderFilter) ([]models.Order, error) {
	if err := s.policy.Authorize(policy.OrderList, caller); err != nil {
		return nil, err
	}
	q := s.scoped(ctx, caller)
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	orders := []models.Order{}
	if err := withDetails(q).Order("created_at desc, id desc").Find(&orders).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return orders, nil
}

func (s *OrderService) Get(ctx context.Context, caller policy.Caller, id uint) (*models.Order, error) {
	if err := s.policy.Authorize(policy.OrderRetrieve, caller); err != nil {
		return nil, err
	}
	return s.find(ctx, caller, id)
}

func (s *OrderService) find(ctx context.Context, caller policy.Caller, id uint) (*models.Order, error) {
	var order models.Order
	if err := withDetails(s.scoped(ctx, caller)).First(&order, id).Error; err != nil {
		return nil, apperr.FromDB(err, "Order")
	}
	return &order, nil
}

func (s *OrderService) reload(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	if err := withDetails(s.db.WithContext(ctx)).First(&order, id).Error; err != nil {
		return nil, apperr.FromDB(err, "Order")
	}
	return &order, nil
}

// Create stores the order and all its line items in one transaction.
func (s *OrderService) Create(ctx context.Context, caller policy.Caller, in CreateOrderInput) (*models.Order, error) {
	if err := s.policy.Authorize(policy.OrderCreate, caller); err != nil {
		return nil, err
	}
	customerID := caller.UserID
	if in.CustomerID != nil && *in.CustomerID != caller.UserID {
		if err := s.policy.Authorize(policy.OrderCreateForOther, caller); err != nil {
			return nil, err
		}
		customerID = *in.CustomerID
	}
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	var orderID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var customer models.User
		if err := tx.First(&customer, customerID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.Field("customer", "Invalid customer")
			}
			return apperr.Internal(err)
		}

		items, sum, err := snapshotItems(tx, in.Items)
		if err != nil {
			return err
		}
		if s.opts.VerifyTotal && !sum.Equal(in.Total) {
			return &apperr.Error{
				Code:    apperr.ErrOrderTotalMismatch.Code,
				Message: apperr.ErrOrderTotalMismatch.Message,
				Fields:  map[string]string{"total": "expected " + sum.StringFixed(2)},
			}
		}

		name := in.CustomerName
		if name == "" {
			name = customer.FullName()
		}
		order := models.Order{
			CustomerID:          customer.ID,
			CustomerName:        name,
			DeliveryAddress:     in.DeliveryAddress,
			PhoneNumber:         in.PhoneNumber,
			SpecialInstructions: in.SpecialInstructions,
			PaymentMethod:       in.PaymentMethod,
			Total:               in.Total,
			Status:              models.StatusPending,
		}
		if err := tx.Omit("Customer", "DeliveryStaff", "Items").Create(&order).Error; err != nil {
			return apperr.Internal(err)
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return apperr.Internal(err)
		}
		orderID = order.ID
		return recordHistory(tx, order.ID, "", models.StatusPending, caller, "Order placed")
	})
	if err != nil {
		return nil, err
	}

	metrics.OrdersCreated.Inc()
	s.log.WithFields(logrus.Fields{"order_id": orderID, "customer_id": customerID, "items": len(in.Items)}).Info("order created")
	return s.reload(ctx, orderID)
}

func validateCreate(in CreateOrderInput) error {
	fields := map[string]string{}
	if in.DeliveryAddress == "" {
		fields["delivery_address"] = "This field is required."
	}
	if in.PhoneNumber == "" {
		fields["phone_number"] = "This field is required."
	}
	if in.PaymentMethod != models.PaymentCash && in.PaymentMethod != models.PaymentCard {
		fields["payment_method"] = fmt.Sprintf("%q is not a valid choice.", in.PaymentMethod)
	}
	if in.Total.IsNegative() {
		fields["total"] = "Ensure this value is greater than or equal to 0."
	}
	if len(in.Items) == 0 {
		fields["items"] = "An order needs at least one item."
	}
	for i, item := range in.Items {
		if item.Quantity < 1 {
			fields[fmt.Sprintf("items[%d].quantity", i)] = "Ensure this value is greater than or equal to 1."
		}
		if item.Price != nil && item.Price.IsNegative() {
			fields[fmt.Sprintf("items[%d].price", i)] = "Ensure this value is greater than or equal to 0."
		}
	}
	if len(fields) > 0 {
		return apperr.Validation("Invalid order", fields)
	}
	return nil
}

// snapshotItems copies name and unit price from the menu when the caller left
// them out, and sums the line totals.
func snapshotItems(tx *gorm.DB, inputs []OrderItemInput) ([]models.OrderItem, decimal.Decimal, error) {
	items := make([]models.OrderItem, 0, len(inputs))
	sum := decimal.Zero
	for i, in := range inputs {
		var food models.FoodItem
		if err := tx.First(&food, in.FoodItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, sum, apperr.Field(fmt.Sprintf("items[%d].food_item", i),
					fmt.Sprintf("Invalid food item id %d", in.FoodItemID))
			}
			return nil, sum, apperr.Internal(err)
		}
		if !food.Available {
			return nil, sum, apperr.Field(fmt.Sprintf("items[%d].food_item", i),
				fmt.Sprintf("%s is not available", food.Name))
		}
		item := models.OrderItem{
			FoodItemID: food.ID,
			Name:       in.Name,
			Quantity:   in.Quantity,
			Price:      food.Price,
		}
		if item.Name == "" {
			item.Name = food.Name
		}
		if in.Price != nil {
			item.Price = *in.Price
		}
		sum = sum.Add(item.LineTotal())
		items = append(items, item)
	}
	return items, sum, nil
}

func (s *OrderService) Update(ctx context.Context, caller policy.Caller, id uint, in UpdateOrderInput) (*models.Order, error) {
	if err := s.policy.Authorize(policy.OrderUpdate, caller); err != nil {
		return nil, err
	}
	order, err := s.find(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.DeliveryAddress != nil {
		if *in.DeliveryAddress == "" {
			return nil, apperr.Field("delivery_address", "This field may not be blank.")
		}
		updates["delivery_address"] = *in.DeliveryAddress
	}
	if in.PhoneNumber != nil {
		if *in.PhoneNumber == "" {
			return nil, apperr.Field("phone_number", "This field may not be blank.")
		}
		updates["phone_number"] = *in.PhoneNumber
	}
	if in.SpecialInstructions != nil {
		updates["special_instructions"] = *in.SpecialInstructions
	}
	if in.PaymentMethod != nil {
		if *in.PaymentMethod != models.PaymentCash && *in.PaymentMethod != models.PaymentCard {
			return nil, apperr.Field("payment_method", fmt.Sprintf("%q is not a valid choice.", *in.PaymentMethod))
		}
		updates["payment_method"] = *in.PaymentMethod
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(order).Updates(updates).Error; err != nil {
			return nil, apperr.Internal(err)
		}
	}
	if in.Status != nil {
		return s.setStatus(ctx, caller, order, *in.Status)
	}
	return s.reload(ctx, order.ID)
}

// Delete removes the order; its line items and history go with it.
func (s *OrderService) Delete(ctx context.Context, caller policy.Caller, id uint) error {
	if err := s.policy.Authorize(policy.OrderDelete, caller); err != nil {
		return err
	}
	order, err := s.find(ctx, caller, id)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return deleteOrders(tx, []uint{order.ID})
	})
	if err != nil {
		return apperr.Internal(err)
	}
	s.log.WithField("order_id", order.ID).Info("order deleted")
	return nil
}

// deleteOrders cascades explicitly so behaviour does not depend on the
// database enforcing foreign keys.
func deleteOrders(tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := tx.Where("order_id IN ?", ids).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	if err := tx.Where("order_id IN ?", ids).Delete(&models.OrderStatusHistory{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&models.Order{}).Error
}

// UpdateStatus sets any recognized status. Entering delivered stamps
// delivered_at; leaving it clears the stamp.
func (s *OrderService) UpdateStatus(ctx context.Context, caller policy.Caller, id uint, status string) (*models.Order, error) {
	if err := s.policy.Authorize(policy.OrderUpdateStatus, caller); err != nil {
		return nil, err
	}
	order, err := s.find(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return s.setStatus(ctx, caller, order, status)
}

func (s *OrderService) setStatus(ctx context.Context, caller policy.Caller, order *models.Order, status string) (*models.Order, error) {
	next := models.OrderStatus(status)
	if !next.Valid() {
		return nil, apperr.ErrInvalidStatus
	}
	if s.opts.StrictTransitions {
		if err := statemachine.CanTransition(order.Status, next); err != nil {
			return nil, apperr.InvalidTransition(err)
		}
	}

	updates := map[string]interface{}{"status": next}
	if next == models.StatusDelivered {
		updates["delivered_at"] = s.now()
	} else if order.DeliveredAt != nil {
		updates["delivered_at"] = nil
	}

	prev := order.Status
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Order{ID: order.ID}).Updates(updates).Error; err != nil {
			return apperr.Internal(err)
		}
		return recordHistory(tx, order.ID, prev, next, caller, "")
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(string(next))
	s.log.WithFields(logrus.Fields{"order_id": order.ID, "from": prev, "to": next, "by": caller.UserID}).Info("order status updated")
	return s.reload(ctx, order.ID)
}

// AssignDelivery hands the order to a delivery user and moves it to
// out_for_delivery whatever its current status.
func (s *OrderService) AssignDelivery(ctx context.Context, caller policy.Caller, id uint, staffID *uint) (*models.Order, error) {
	if err := s.policy.Authorize(policy.OrderAssignDelivery, caller); err != nil {
		return nil, err
	}
	order, err := s.find(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if staffID == nil {
		return nil, apperr.ErrInvalidDeliveryStaff
	}

	var staff models.User
	if err := s.db.WithContext(ctx).Where("id = ? AND role = ?", *staffID, models.RoleDelivery).First(&staff).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrInvalidDeliveryStaff
		}
		return nil, apperr.Internal(err)
	}

	updates := map[string]interface{}{
		"delivery_staff_id": staff.ID,
		"status":            models.StatusOutForDelivery,
		"delivered_at":      nil,
	}
	prev := order.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Order{ID: order.ID}).Updates(updates).Error; err != nil {
			return apperr.Internal(err)
		}
		return recordHistory(tx, order.ID, prev, models.StatusOutForDelivery, caller,
			fmt.Sprintf("Assigned to %s", staff.Username))
	})
	if err != nil {
		return nil, err
	}

	metrics.DeliveriesAssigned.Inc()
	metrics.RecordTransition(string(models.StatusOutForDelivery))
	s.log.WithFields(logrus.Fields{"order_id": order.ID, "staff_id": staff.ID, "from": prev}).Info("delivery assigned")
	return s.reload(ctx, order.ID)
}

// History returns the audit trail of an order the caller can see.
func (s *OrderService) History(ctx context.Context, caller policy.Caller, id uint) ([]models.OrderStatusHistory, error) {
	if err := s.policy.Authorize(policy.OrderHistory, caller); err != nil {
		return nil, err
	}
	if _, err := s.find(ctx, caller, id); err != nil {
		return nil, err
	}
	history := []models.OrderStatusHistory{}
	if err := s.db.WithContext(ctx).Where("order_id = ?", id).Order("id").Find(&history).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return history, nil
}

func recordHistory(tx *gorm.DB, orderID uint, from, to models.OrderStatus, caller policy.Caller, note string) error {
	entry := models.OrderStatusHistory{OrderID: orderID, FromStatus: from, ToStatus: to, Note: note}
	if caller.Authenticated() {
		by := caller.UserID
		entry.ChangedBy = &by
	}
	if err := tx.Omit("Order").Create(&entry).Error; err != nil {
		return apperr.Internal(err)
	}
	return nil
}
