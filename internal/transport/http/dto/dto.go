// Package dto defines the JSON request/response shapes the HTTP
// transport layer exchanges with clients, independent of the engine's
// domain types. Requests validate their own shape (required fields,
// lengths) via struct tags; the engine still owns every domain-level
// rule (username charset, role grant hierarchy, password policy).
package dto

import (
	"github.com/go-playground/validator/v10"

	"github.com/kestrelauth/authn-engine/internal/domain"
)

var validate = validator.New()

func validationErr(err error) error {
	if ve, ok := err.(validator.ValidationErrors); ok && len(ve) > 0 {
		fe := ve[0]
		if fe.Tag() == "required" {
			return domain.ErrMissingParameter(fe.Field())
		}
		return domain.ErrIllegalParameter(fe.Field() + " failed " + fe.Tag())
	}
	return domain.ErrIllegalParameter(err.Error())
}
