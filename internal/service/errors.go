package service

import "errors"

var (
	ErrNotFound = errors.New("error not found")
	ErrNoPrices = errors.New("error no prices available")
)
