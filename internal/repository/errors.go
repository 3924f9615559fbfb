package repository

import "errors"

// ErrStaleStatus is returned by compare-and-swap updates when the row no
// longer holds the expected status. Two requests racing the same transition
// resolve deterministically: one wins, the other sees this error.
var ErrStaleStatus = errors.New("status changed concurrently")
