package services

import (
	"context"

	"feasto-api/apperr"
	"feasto-api/models"
	"feasto-api/policy"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type DashboardStats struct {
	TotalOrders    int64            `json:"total_orders"`
	PendingOrders  int64            `json:"pending_orders"`
	TotalCustomers int64            `json:"total_customers"`
	TotalRevenue   float64          `json:"total_revenue"`
	OrdersByStatus map[string]int64 `json:"orders_by_status"`
	Revenue        decimal.Decimal  `json:"-"`
}

type DashboardService struct {
	db     *gorm.DB
	policy *policy.Policy
}

func NewDashboardService(db *gorm.DB, p *policy.Policy) *DashboardService {
	return &DashboardService{db: db, policy: p}
}

// Stats is a point-in-time snapshot over the whole store. Revenue counts
// delivered orders only.
func (s *DashboardService) Stats(ctx context.Context, caller policy.Caller) (*DashboardStats, error) {
	if err := s.policy.Authorize(policy.DashboardStats, caller); err != nil {
		return nil, apperr.ErrAdminRequired
	}
	db := s.db.WithContext(ctx)
	stats := &DashboardStats{OrdersByStatus: map[string]int64{}}

	if err := db.Model(&models.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if err := db.Model(&models.Order{}).Where("status = ?", models.StatusPending).Count(&stats.PendingOrders).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if err := db.Model(&models.User{}).Where("role = ?", models.RoleCustomer).Count(&stats.TotalCustomers).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	var totals []decimal.Decimal
	if err := db.Model(&models.Order{}).Where("status = ?", models.StatusDelivered).Pluck("total", &totals).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	stats.Revenue = decimal.Sum(decimal.Zero, totals...)
	stats.TotalRevenue = stats.Revenue.InexactFloat64()

	var rows []struct {
		Status string
		Count  int64
	}
	if err := db.Model(&models.Order{}).Select("status, count(*) as count").Group("status").Scan(&rows).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	for _, r := range rows {
		stats.OrdersByStatus[r.Status] = r.Count
	}
	return stats, nil
}
