package domain

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
	ErrUnauthorized = errors.New("unauthorized")
	ErrLockHeld     = errors.New("lock already held")

	// Execution-loop abort causes. All of them are terminal for the trade
	// being copied: the ledger row is marked processed and never retried.
	ErrNoLiquidity         = errors.New("orderbook empty on required side")
	ErrBelowMinimum        = errors.New("order value below venue minimum")
	ErrPriceDrift          = errors.New("best price moved beyond tolerance")
	ErrMarketClosed        = errors.New("market closed or not accepting orders")
	ErrInsufficientBalance = errors.New("balance below venue minimum")
	ErrSignatureRejected   = errors.New("order signature rejected")
	ErrTokenResolution     = errors.New("token id could not be resolved")
)
