package services

import (
	"io"

	"feasto-api/models"
	"feasto-api/policy"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func callerFor(u *models.User) policy.Caller {
	return policy.Caller{UserID: u.ID, Role: u.Role}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

func uintPtr(v uint) *uint { return &v }
