package view

import (
	"ShelfAPI/internal/apperr"
	"ShelfAPI/internal/model"
	"ShelfAPI/internal/query"
	"ShelfAPI/internal/store"
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// translate maps the errors an operation can explain onto apperr kinds.
// Anything else is returned wrapped and ends up as a 500.
func (v *View) translate(op string, err error) error {
	if err == nil {
		return nil
	}
	var (
		appErr    *apperr.Error
		fieldErr  *model.FieldError
		windowErr *query.WindowError
		fields    validation.Errors
	)
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &fields):
		return apperr.FieldErrors(fields)
	case errors.As(err, &fieldErr):
		return apperr.FieldErrors(validation.Errors{
			fieldErr.Field: validation.NewError("validation_invalid_filter", fieldErr.Reason),
		})
	case errors.As(err, &windowErr):
		return apperr.FieldErrors(validation.Errors{
			windowErr.Key: validation.NewError("validation_invalid_window", windowErr.Reason),
		})
	case errors.Is(err, store.ErrNotFound):
		return apperr.NotFound("%s", "not found")
	case errors.Is(err, store.ErrConflict):
		return apperr.Conflict(err, "%s", v.res.Name+" already exists")
	case errors.Is(err, store.ErrInvalid):
		return apperr.Validation("%s", err.Error())
	}
	return fmt.Errorf("%s %s: %w", v.res.Name, op, err)
}

func orderError(err error) error {
	return apperr.FieldErrors(validation.Errors{
		"order_by": validation.NewError("validation_invalid_order", err.Error()),
	})
}
