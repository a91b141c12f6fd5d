package services

import (
	"context"

	"feasto-api/apperr"
	"feasto-api/models"
	"feasto-api/policy"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

type UserService struct {
	db     *gorm.DB
	policy *policy.Policy
	log    *logrus.Logger
}

func NewUserService(db *gorm.DB, p *policy.Policy, log *logrus.Logger) *UserService {
	return &UserService{db: db, policy: p, log: log}
}

type UserFilter struct {
	Role string
}

type UpdateUserInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Phone     *string
	Address   *string
	Role      *models.UserRole
	IsActive  *bool
}

func (s *UserService) List(ctx context.Context, caller policy.Caller, filter UserFilter) ([]models.User, error) {
	if err := s.policy.Authorize(policy.UserList, caller); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Order("id")
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	users := []models.User{}
	if err := q.Find(&users).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

func (s *UserService) Get(ctx context.Context, caller policy.Caller, id uint) (*models.User, error) {
	if err := s.policy.Authorize(policy.UserRetrieve, caller); err != nil {
		return nil, err
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, apperr.FromDB(err, "User")
	}
	return &user, nil
}

// Update lets any authenticated caller edit profile fields of any user.
// Role and active flag changes are reserved for administrators. Moving a
// delivery user to another role releases the orders assigned to them.
func (s *UserService) Update(ctx context.Context, caller policy.Caller, id uint, in UpdateUserInput) (*models.User, error) {
	if err := s.policy.Authorize(policy.UserUpdate, caller); err != nil {
		return nil, err
	}
	user, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Email != nil {
		updates["email"] = *in.Email
	}
	if in.FirstName != nil {
		updates["first_name"] = *in.FirstName
	}
	if in.LastName != nil {
		updates["last_name"] = *in.LastName
	}
	if in.Phone != nil {
		updates["phone"] = *in.Phone
	}
	if in.Address != nil {
		updates["address"] = *in.Address
	}
	if (in.Role != nil && *in.Role != user.Role) || (in.IsActive != nil && *in.IsActive != user.IsActive) {
		if err := s.policy.Authorize(policy.UserChangeRole, caller); err != nil {
			return nil, err
		}
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return nil, apperr.Field("role", `"`+string(*in.Role)+`" is not a valid choice.`)
		}
		updates["role"] = *in.Role
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}

	if len(updates) > 0 {
		leavesDelivery := user.Role == models.RoleDelivery && in.Role != nil && *in.Role != models.RoleDelivery
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(user).Updates(updates).Error; err != nil {
				return err
			}
			if !leavesDelivery {
				return nil
			}
			// Only delivery users may stay assigned to orders.
			return tx.Model(&models.Order{}).Where("delivery_staff_id = ?", user.ID).
				Update("delivery_staff_id", nil).Error
		})
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if leavesDelivery {
			s.log.WithFields(logrus.Fields{"user_id": user.ID, "role": *in.Role}).Info("delivery assignments released")
		}
	}
	return s.Get(ctx, caller, id)
}

// Delete removes a user. Orders the user placed go with them; orders they
// were delivering lose their assignment.
func (s *UserService) Delete(ctx context.Context, caller policy.Caller, id uint) error {
	if err := s.policy.Authorize(policy.UserDelete, caller); err != nil {
		return err
	}
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return apperr.FromDB(err, "User")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var orderIDs []uint
		if err := tx.Model(&models.Order{}).Where("customer_id = ?", user.ID).Pluck("id", &orderIDs).Error; err != nil {
			return err
		}
		if err := deleteOrders(tx, orderIDs); err != nil {
			return err
		}
		if err := tx.Model(&models.Order{}).Where("delivery_staff_id = ?", user.ID).
			Update("delivery_staff_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		return apperr.Internal(err)
	}
	s.log.WithFields(logrus.Fields{"user_id": user.ID, "by": caller.UserID}).Info("user deleted")
	return nil
}
