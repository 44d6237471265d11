package cli

import (
	"errors"
	"fmt"

	"placeholder-cli/internal/listedit"
)

type notFoundError struct {
	kind string
	id   string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.kind, e.id)
}

func errNotFound(kind, id string) error {
	return notFoundError{kind: kind, id: id}
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, listedit.ErrNotFound)
}
