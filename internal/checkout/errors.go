package checkout

import (
	"errors"
	"fmt"

	"github.com/fjod/go_food/internal/apperr"
)

var (
	ErrCheckoutInProgress = errors.New("checkout already in progress")
	ErrNotAuthenticated   = fmt.Errorf("%w: please log in to place an order", apperr.ErrUnauthorized)
	ErrEmptyCart          = fmt.Errorf("%w: cart is empty", apperr.ErrValidation)
	ErrNothingToRetry     = errors.New("no failed order commit to retry")
)
