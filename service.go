package di

import (
	"fmt"
	"reflect"

	"github.com/tkrause/scopekit/internal/errors"
)

// WithService registers the provided function or value with a new Container
// when calling [NewContainer] or [Container.NewScope].
//
// If a function is provided, it will be called to create the service when resolved.
//
// The function can take any number of arguments which will also be resolved from the Container.
// The function may also accept a [context.Context] or [di.Scope].
//
// The function must return a service, or the service and an error.
// The service will be registered as the return type of the function (struct, pointer, or interface).
//
// If a resolved service implements [Closer], or a compatible Close method signature,
// it will be closed when the Container is closed.
//
// If a value is provided, it will be returned as the service when resolved.
// The value can be a struct or pointer.
// (It will be registered as the actual type even if the variable was declared as an interface.)
//
// Available options:
//   - [Lifetime] specifies how services are created when resolved.
//   - [As] registers an alias for a service.
//   - [WithTag] specifies a tag to differentiate between services of the same type.
//   - [WithTagged] specifies a tag for a service dependency.
//   - [WithCloseFunc] specifies a function to be called when the service is closed.
//   - [IgnoreCloser] specifies that the service should not be closed by the Container.
//   - [WithCloser] specifies that the service should be closed by the Container if it
//     implements [Closer] or a compatible function signature.
//     This is the default for function services. Value services are not closed by default.
func WithService(funcOrValue any, opts ...ServiceOption) ContainerOption {
	// A single WithService function for both function and value services
	// because it's easier to use than separate functions.
	//
	// WithFunc(NewService)    // Correct
	// WithFunc(NewService())  // Wrong - easy mistake
	// WithValue(NewService()) // Correct
	// WithValue(NewService)   // Wrong - easy mistake
	// WithService(NewService)   // This works as a func
	// WithService(NewService()) // This works as a value

	return newContainerOption(orderService, func(c *Container) error {
		if funcOrValue == nil {
			return errors.New("with service: funcOrValue is nil")
		}

		if _, ok := funcOrValue.(ServiceOption); ok {
			return errors.Errorf("with service %T: unexpected ServiceOption as funcOrValue", funcOrValue)
		}

		t := reflect.TypeOf(funcOrValue)

		var svc service
		var err error
		if t.Kind() == reflect.Func {
			svc, err = newFuncService(funcOrValue, opts...)
		} else {
			svc, err = newValueService(funcOrValue, opts...)
		}

		if err != nil {
			return errors.Wrapf(err, "with service %T", funcOrValue)
		}

		c.register(svc)
		return nil
	})
}

func validateServiceType(t reflect.Type) error {
	switch t {
	// These are the only special types used by the Container.
	case typeContext,
		typeScope,
		typeError:
		return errors.New("invalid service type")
	}

	switch t.Kind() {
	case reflect.Interface,
		reflect.Ptr,
		reflect.Struct:
		return nil
	}

	return errors.New("invalid service type")
}

// ServiceOption is used to configure service registration when calling [WithService].
type ServiceOption interface {
	applyService(s service) error
}

type serviceOption func(service) error

func (o serviceOption) applyService(s service) error {
	return o(s)
}

// service provides information about a registered service and how to resolve it.
type service interface {
	// Type returns the type of the service.
	Type() reflect.Type

	// Lifetime returns the lifetime of the service.
	Lifetime() Lifetime
	setLifetime(Lifetime)

	// Aliases returns the types this service can be resolved as.
	Aliases() []reflect.Type
	AddAlias(reflect.Type) error

	// Tag returns the tag associated with the service.
	Tag() any
	setTag(any)

	// Scope returns the Container the service was registered with.
	Scope() *Container
	setScope(*Container)

	// Dependencies returns the keys of the services this service depends on.
	Dependencies() []serviceKey

	// New uses the resolved dependencies to create a new instance of the service.
	New(deps []reflect.Value) (any, error)

	// CloserFor returns a Closer for the resolved value, or nil if the value
	// should not be closed by the Container.
	CloserFor(val any) Closer
	setCloserFactory(closerFactory)
}

type serviceKey struct {
	Type reflect.Type
	Tag  any
}

func (k serviceKey) String() string {
	if k.Tag == nil {
		return k.Type.String()
	}
	return fmt.Sprintf("%s (Tag %v)", k.Type, k.Tag)
}
