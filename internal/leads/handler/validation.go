package handler

import (
	"lead_engine_backend/internal/leads/domain"

	"github.com/go-playground/validator/v10"
)

func validateLeadStatus(fl validator.FieldLevel) bool {
	return domain.IsKnownStatus(domain.Status(fl.Field().String()))
}
