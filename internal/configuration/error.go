package configuration

import "errors"

// maxScreenDimension is the largest resolution a screen record can carry.
const maxScreenDimension = 1<<15 - 1

var ErrInvalidValue = errors.New("invalid configuration value")
