package models

import "time"

type EnquiryStatus string

const (
	EnquiryNew        EnquiryStatus = "new"
	EnquiryInProgress EnquiryStatus = "in_progress"
	EnquiryResolved   EnquiryStatus = "resolved"
)

// DefaultEnquirySubject is used when a submission leaves the subject blank.
const DefaultEnquirySubject = "Contact Form Submission"

type CustomerEnquiry struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	Name      string        `json:"name" gorm:"size:200;not null"`
	Email     string        `json:"email" gorm:"size:254;not null"`
	Phone     *string       `json:"phone" gorm:"size:15"`
	Subject   string        `json:"subject" gorm:"size:200;not null"`
	Message   string        `json:"message" gorm:"type:text;not null"`
	Status    EnquiryStatus `json:"status" gorm:"type:varchar(20);not null;default:'new';index"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

func (CustomerEnquiry) TableName() string {
	return "customer_enquiries"
}
