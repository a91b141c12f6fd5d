package services

import (
	"context"
	"net/mail"
	"strings"

	"feasto-api/apperr"
	"feasto-api/models"
	"feasto-api/policy"

	"gorm.io/gorm"
)

type EnquiryService struct {
	db     *gorm.DB
	policy *policy.Policy
}

func NewEnquiryService(db *gorm.DB, p *policy.Policy) *EnquiryService {
	return &EnquiryService{db: db, policy: p}
}

type EnquiryInput struct {
	Name    *string
	Email   *string
	Phone   *string
	Subject *string
	Message *string
	Status  *models.EnquiryStatus
}

func validEnquiryStatus(s models.EnquiryStatus) bool {
	switch s {
	case models.EnquiryNew, models.EnquiryInProgress, models.EnquiryResolved:
		return true
	}
	return false
}

func validateEnquiry(in EnquiryInput, create bool) error {
	fields := map[string]string{}
	required := func(name string, v *string) {
		if v == nil {
			if create {
				fields[name] = "This field is required."
			}
			return
		}
		if strings.TrimSpace(*v) == "" {
			fields[name] = "This field may not be blank."
		}
	}
	required("name", in.Name)
	required("email", in.Email)
	required("message", in.Message)
	if in.Email != nil && *in.Email != "" {
		if _, err := mail.ParseAddress(*in.Email); err != nil {
			fields["email"] = "Enter a valid email address."
		}
	}
	if in.Status != nil && !validEnquiryStatus(*in.Status) {
		fields["status"] = `"` + string(*in.Status) + `" is not a valid choice.`
	}
	if len(fields) > 0 {
		return apperr.Validation("Invalid enquiry", fields)
	}
	return nil
}

func (s *EnquiryService) List(ctx context.Context, caller policy.Caller, status string) ([]models.CustomerEnquiry, error) {
	if err := s.policy.Authorize(policy.EnquiryRead, caller); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Order("created_at desc, id desc")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	out := []models.CustomerEnquiry{}
	if err := q.Find(&out).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return out, nil
}

func (s *EnquiryService) Get(ctx context.Context, caller policy.Caller, id uint) (*models.CustomerEnquiry, error) {
	if err := s.policy.Authorize(policy.EnquiryRead, caller); err != nil {
		return nil, err
	}
	var e models.CustomerEnquiry
	if err := s.db.WithContext(ctx).First(&e, id).Error; err != nil {
		return nil, apperr.FromDB(err, "Enquiry")
	}
	return &e, nil
}

func (s *EnquiryService) Create(ctx context.Context, caller policy.Caller, in EnquiryInput) (*models.CustomerEnquiry, error) {
	if err := s.policy.Authorize(policy.EnquiryWrite, caller); err != nil {
		return nil, err
	}
	if err := validateEnquiry(in, true); err != nil {
		return nil, err
	}
	e := models.CustomerEnquiry{
		Name:    *in.Name,
		Email:   *in.Email,
		Phone:   in.Phone,
		Subject: models.DefaultEnquirySubject,
		Message: *in.Message,
		Status:  models.EnquiryNew,
	}
	if in.Subject != nil && strings.TrimSpace(*in.Subject) != "" {
		e.Subject = *in.Subject
	}
	if in.Status != nil {
		e.Status = *in.Status
	}
	if err := s.db.WithContext(ctx).Create(&e).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return &e, nil
}

func (s *EnquiryService) Update(ctx context.Context, caller policy.Caller, id uint, in EnquiryInput) (*models.CustomerEnquiry, error) {
	if err := s.policy.Authorize(policy.EnquiryWrite, caller); err != nil {
		return nil, err
	}
	e, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if err := validateEnquiry(in, false); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if in.Name != nil {
		updates["name"] = *in.Name
	}
	if in.Email != nil {
		updates["email"] = *in.Email
	}
	if in.Phone != nil {
		updates["phone"] = *in.Phone
	}
	if in.Subject != nil {
		subject := *in.Subject
		if strings.TrimSpace(subject) == "" {
			subject = models.DefaultEnquirySubject
		}
		updates["subject"] = subject
	}
	if in.Message != nil {
		updates["message"] = *in.Message
	}
	if in.Status != nil {
		updates["status"] = *in.Status
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(e).Updates(updates).Error; err != nil {
			return nil, apperr.Internal(err)
		}
	}
	return s.Get(ctx, caller, id)
}

func (s *EnquiryService) Delete(ctx context.Context, caller policy.Caller, id uint) error {
	if err := s.policy.Authorize(policy.EnquiryWrite, caller); err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Delete(&models.CustomerEnquiry{}, id)
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Enquiry")
	}
	return nil
}
