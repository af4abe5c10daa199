package di

import "errors"

var (
	// ErrServiceNotRegistered is returned when attempting to resolve a service
	// that has not been registered with the Container or any parent scope.
	ErrServiceNotRegistered = errors.New("service not registered")

	// ErrDependencyCycle is returned when a dependency cycle is detected while resolving.
	ErrDependencyCycle = errors.New("dependency cycle detected")

	// ErrContainerClosed is returned when the Container has already been closed.
	ErrContainerClosed = errors.New("container closed")
)
