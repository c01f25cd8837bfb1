package tempmongo

import "errors"

var (
	// ErrIdentityNotSet is returned by teardown operations when the manager
	// never completed a create, so there is no container to target. No
	// engine call is made in that case.
	ErrIdentityNotSet = errors.New("tempmongo: no container identity bound, create was never completed")

	// ErrAlreadyCreated is returned by Create when the manager already
	// bound a container. A manager owns one container for its lifetime.
	ErrAlreadyCreated = errors.New("tempmongo: container already created")

	// ErrTornDown is returned when the manager is used after teardown.
	ErrTornDown = errors.New("tempmongo: manager was torn down")

	// ErrNotConnected is returned by operations that need the database
	// client before a successful create established one.
	ErrNotConnected = errors.New("tempmongo: database client not connected")
)
