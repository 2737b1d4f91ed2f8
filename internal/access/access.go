// Package access holds the ownership rule shared by every owner-scoped
// resource: a record that exists but belongs to someone else is reported
// exactly like a record that does not exist.
package access

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("resource not found")
	ErrNoActor  = errors.New("no authenticated user")
)

// Owned is any record that carries its owner's user id.
type Owned interface {
	Owner() string
}

// Authorize loads a record with load and returns it only if actorID owns it.
// Missing and foreign records both yield ErrNotFound. isNotFound lets each
// store map its own not-found sentinel.
func Authorize[R Owned](
	ctx context.Context,
	actorID string,
	load func(context.Context) (R, error),
	isNotFound func(error) bool,
) (R, error) {
	var zero R

	if actorID == "" {
		return zero, ErrNoActor
	}

	rec, err := load(ctx)
	if err != nil {
		if isNotFound != nil && isNotFound(err) {
			return zero, ErrNotFound
		}
		return zero, err
	}

	if rec.Owner() != actorID {
		return zero, ErrNotFound
	}
	return rec, nil
}
