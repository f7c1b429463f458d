package services

import (
	"errors"
	"fmt"

	repo "github.com/aolagbe/vtuwallet/internal/repository"
)

var (
	// ErrValidation rejects bad input before any state is touched.
	ErrValidation = errors.New("validation failed")

	// ErrInsufficientBalance is the repository sentinel re-exported so
	// handlers never import the repository package for error checks.
	ErrInsufficientBalance = repo.ErrInsufficientBalance
)

func validationErr(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// CreditApplicationError means verification succeeded but the wallet
// write did not. The payment has been reverted to pending; the caller
// (user retry or sweep) can safely invoke settlement again.
type CreditApplicationError struct {
	TxRef string
	Err   error
}

func (e *CreditApplicationError) Error() string {
	return fmt.Sprintf("credit application failed for %s: %v", e.TxRef, e.Err)
}

func (e *CreditApplicationError) Unwrap() error { return e.Err }
