package services

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrStaleStatus        = errors.New("pickup status changed concurrently")
	ErrNotEditable        = errors.New("item quantities can only be edited while status is Ditimbang")
	ErrNotCompleted       = errors.New("pickup is not completed")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrTransactionClosed  = errors.New("transaction is no longer pending")
	ErrAlreadySettled     = errors.New("pickup points already added")
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account awaiting verification")
)
