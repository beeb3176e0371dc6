package services

import (
	"github.com/fly8app/fly8_backend/models"
	"github.com/fly8app/fly8_backend/utils"
)

// Fallback base amounts, applied visibly (recorded in the commission
// description and audit detail) when the source tables carry no usable value.
const (
	DefaultApplicationBaseAmount = 10000.0
	DefaultServiceFee            = 500.0
)

// BaseAmountFromTuition derives the application base amount from a
// university tuition table: the first entry's numeric value, digits only.
// Returns the 10000 default, and defaulted=true, when the table is empty or
// unparsable.
func BaseAmountFromTuition(tuition []models.TuitionEntry) (amount float64, defaulted bool) {
	if len(tuition) > 0 {
		if parsed := utils.ParseTuitionAmount(tuition[0].Amount); parsed > 0 {
			return parsed, false
		}
	}
	return DefaultApplicationBaseAmount, true
}

// BaseAmountForService derives the VAS base amount from the configured
// service fee table, falling back to 500 when the fee is unset.
func BaseAmountForService(settings *models.PlatformSettings, serviceType string) (amount float64, defaulted bool) {
	if settings != nil {
		if fee := settings.ServiceFees.FeeForServiceType(serviceType); fee > 0 {
			return fee, false
		}
	}
	return DefaultServiceFee, true
}
