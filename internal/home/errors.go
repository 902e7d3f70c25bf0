package home

import "errors"

// ErrEmptyResult is recorded when the client reports success without a record.
var ErrEmptyResult = errors.New("weather client returned no data")
