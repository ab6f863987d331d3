package public

import "errors"

var ErrInvalidRequest = errors.New("invalid_request")
