package nodes

import (
	"errors"
	"fmt"
)

var ErrInvalidParams = errors.New("invalid node params")

func errInvalidSize(w, h int) error {
	return fmt.Errorf("%w: size %dx%d", ErrInvalidParams, w, h)
}
