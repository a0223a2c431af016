package service

import "errors"

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidEmail    = errors.New("invalid email address")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrProductNotFound = errors.New("product not found")
	ErrEmptyUserID     = errors.New("user id is required")
)
