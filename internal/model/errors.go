package model

import "errors"

var (
	// ErrElementNotFound means a polled UI condition never became true.
	ErrElementNotFound = errors.New("element not found")
	// ErrCredentialsUnavailable means the identity relay exhausted its retries.
	ErrCredentialsUnavailable = errors.New("credentials unavailable")
	// ErrInsufficientBalance means the purchase amount exceeds the available balance.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrParseFailure means a rate or date text did not match the expected pattern.
	ErrParseFailure = errors.New("parse failure")
	// ErrBackingStore means a write to the persistent store failed.
	ErrBackingStore = errors.New("backing store failure")
)
