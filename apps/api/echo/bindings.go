package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo/training/core"
)

var (
	orderingParam = "ordering"
	userParam     = "user"
)

type Ordering struct {
	Orderings []core.DBOrdering
}

// Bind reads the `ordering` query param, keeping the allowed fields only.
func (ord *Ordering) Bind(ctx echo.Context, allowed ...string) {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return
	}
	ord.Orderings = core.ParseOrderings(val, allowed...)
}

// appValidator plugs the app validator into echo.Context.Validate.
type appValidator struct {
	validate *validator.Validate
}

func newAppValidator(validate *validator.Validate) echo.Validator {
	return &appValidator{validate: validate}
}

func (v *appValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}
