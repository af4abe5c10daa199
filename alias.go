package di

import "reflect"

// As registers an alias for a service. Use when calling [WithService].
//
// The service will be registered as type T instead of its concrete type.
// This option can be used multiple times to register multiple aliases.
//
// Example:
//
//	c, err := di.NewContainer(
//		di.WithService(storage.NewPostgresStore, di.As[storage.Store]()),
//	)
func As[T any]() ServiceOption {
	return serviceOption(func(s service) error {
		return s.AddAlias(reflect.TypeFor[T]())
	})
}
