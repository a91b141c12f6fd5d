package policy

import (
	"feasto-api/apperr"
	"feasto-api/models"
)

// Caller is the request-scoped identity handed to every domain operation.
// The zero value is the anonymous caller.
type Caller struct {
	UserID uint
	Role   models.UserRole
}

var Anonymous = Caller{}

func (c Caller) Authenticated() bool { return c.UserID != 0 }

func (c Caller) IsAdmin() bool { return c.Authenticated() && c.Role == models.RoleAdmin }

type Operation string

const (
	AuthRegister       Operation = "auth.register"
	AuthLogin          Operation = "auth.login"
	AuthLogout         Operation = "auth.logout"
	AuthChangePassword Operation = "auth.change_password"

	UserList       Operation = "user.list"
	UserRetrieve   Operation = "user.retrieve"
	UserUpdate     Operation = "user.update"
	UserDelete     Operation = "user.delete"
	UserChangeRole Operation = "user.change_role"

	FoodRead  Operation = "food.read"
	FoodWrite Operation = "food.write"

	OrderList           Operation = "order.list"
	OrderRetrieve       Operation = "order.retrieve"
	OrderCreate         Operation = "order.create"
	OrderCreateForOther Operation = "order.create_for_other"
	OrderUpdate         Operation = "order.update"
	OrderDelete         Operation = "order.delete"
	OrderUpdateStatus   Operation = "order.update_status"
	OrderAssignDelivery Operation = "order.assign_delivery"
	OrderHistory        Operation = "order.history"

	EnquiryRead  Operation = "enquiry.read"
	EnquiryWrite Operation = "enquiry.write"

	DashboardStats Operation = "dashboard.stats"
)

// Rule is the requirement an operation places on its caller.
type Rule int

const (
	Anyone Rule = iota
	Authenticated
	AdminOnly
)

func (r Rule) String() string {
	switch r {
	case Anyone:
		return "anyone"
	case Authenticated:
		return "authenticated"
	case AdminOnly:
		return "admin"
	}
	return "unknown"
}

var defaultRules = map[Operation]Rule{
	AuthRegister:       Anyone,
	AuthLogin:          Anyone,
	AuthLogout:         Anyone,
	AuthChangePassword: Authenticated,

	UserList:       AdminOnly,
	UserDelete:     AdminOnly,
	UserRetrieve:   Authenticated,
	UserUpdate:     Authenticated,
	UserChangeRole: AdminOnly,

	FoodRead:  Anyone,
	FoodWrite: Anyone,

	OrderList:           Authenticated,
	OrderRetrieve:       Authenticated,
	OrderCreate:         Authenticated,
	OrderCreateForOther: AdminOnly,
	OrderUpdate:         Authenticated,
	OrderDelete:         Authenticated,
	OrderUpdateStatus:   Authenticated,
	OrderAssignDelivery: Authenticated,
	OrderHistory:        Authenticated,

	EnquiryRead:  Anyone,
	EnquiryWrite: Anyone,

	DashboardStats: AdminOnly,
}

// Policy maps operations to rules.
type Policy struct {
	rules map[Operation]Rule
}

type Options struct {
	// AdminOnlyMenuWrites gates food item writes to administrators.
	AdminOnlyMenuWrites bool
}

func New(opts Options) *Policy {
	rules := make(map[Operation]Rule, len(defaultRules))
	for op, r := range defaultRules {
		rules[op] = r
	}
	if opts.AdminOnlyMenuWrites {
		rules[FoodWrite] = AdminOnly
	}
	return &Policy{rules: rules}
}

// RuleFor returns the rule for op. Unknown operations are admin only.
func (p *Policy) RuleFor(op Operation) Rule {
	if r, ok := p.rules[op]; ok {
		return r
	}
	return AdminOnly
}

// Authorize returns nil when caller may perform op.
func (p *Policy) Authorize(op Operation, caller Caller) error {
	switch p.RuleFor(op) {
	case Anyone:
		return nil
	case Authenticated:
		if !caller.Authenticated() {
			return apperr.ErrAuthenticationRequired
		}
		return nil
	default:
		if !caller.IsAdmin() {
			return apperr.ErrForbidden
		}
		return nil
	}
}

// Allowed is Authorize as a boolean.
func (p *Policy) Allowed(op Operation, caller Caller) bool {
	return p.Authorize(op, caller) == nil
}
