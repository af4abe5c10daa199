package di

import (
	"reflect"

	"github.com/tkrause/scopekit/internal/errors"
)

// WithDecorator registers a decorator function with a new Container.
//
// The function must return a service and take the same service type as one of
// its arguments. Additional arguments are resolved from the Container.
// The decorator is applied when an instance of the service is created.
//
// Available options:
//   - [WithTag] specifies the tag associated with the decorated service.
//   - [WithTagged] specifies a tag for a dependency of the decorator function.
func WithDecorator(decorateFunc any, opts ...DecoratorOption) ContainerOption {
	return newContainerOption(orderDecorator, func(c *Container) error {
		if decorateFunc == nil {
			return errors.New("with decorator: decorateFunc is nil")
		}

		if _, ok := decorateFunc.(DecoratorOption); ok {
			return errors.Errorf("with decorator %T: unexpected DecoratorOption as decorateFunc", decorateFunc)
		}

		d, err := newDecorator(decorateFunc, opts)
		if err != nil {
			return errors.Wrapf(err, "with decorator %T", decorateFunc)
		}

		c.registerDecorator(d)
		return nil
	})
}

// DecoratorOption is an option for registering a decorator function.
//
// See [WithDecorator] for more information.
type DecoratorOption interface {
	applyDecorator(*decorator) error
}

func newDecorator(fn any, opts []DecoratorOption) (*decorator, error) {
	fnType := reflect.TypeOf(fn)

	if fnType.Kind() != reflect.Func {
		return nil, errors.Errorf("expected function, got %T", fn)
	}

	if fnType.NumOut() != 1 {
		return nil, errors.New("function must return Service")
	}

	t := fnType.Out(0)
	if err := validateServiceType(t); err != nil {
		return nil, err
	}

	svcInArgs := false
	deps := make([]serviceKey, fnType.NumIn())

	for i := 0; i < fnType.NumIn(); i++ {
		depType := fnType.In(i)
		if depType == t {
			svcInArgs = true
		}

		deps[i] = serviceKey{
			Type: depType,
		}
	}

	if !svcInArgs {
		return nil, errors.New("function must have a Service argument")
	}

	d := &decorator{
		key:  serviceKey{Type: t},
		deps: deps,
		fn:   reflect.ValueOf(fn),
	}

	var errs errors.MultiError
	for _, opt := range opts {
		errs = errs.Append(opt.applyDecorator(d))
	}
	if err := errs.Join(); err != nil {
		return nil, err
	}

	return d, nil
}

type decorator struct {
	key  serviceKey
	fn   reflect.Value
	deps []serviceKey
}

func (d *decorator) setTag(tag any) error {
	d.key.Tag = tag

	// The service argument gets the same tag as the decorated service.
	for i, dep := range d.deps {
		if dep.Type == d.key.Type && dep.Tag == nil {
			d.deps[i].Tag = tag
			return nil
		}
	}

	return errors.New("with tag: argument not found")
}

func (d *decorator) Decorate(deps []reflect.Value) any {
	out := d.fn.Call(deps)
	return out[0].Interface()
}

func (d *decorator) String() string {
	return d.fn.Type().String()
}
