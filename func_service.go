package di

import (
	"reflect"

	"github.com/tkrause/scopekit/internal/errors"
)

type funcService struct {
	t             reflect.Type
	fn            reflect.Value
	aliases       []reflect.Type
	deps          []serviceKey
	lifetime      Lifetime
	tag           any
	scope         *Container
	closerFactory closerFactory
}

func newFuncService(fn any, opts ...ServiceOption) (*funcService, error) {
	fnType := reflect.TypeOf(fn)
	fnVal := reflect.ValueOf(fn)

	// Get the return type
	var t reflect.Type
	if fnType.NumOut() == 1 {
		t = fnType.Out(0)
	} else if fnType.NumOut() == 2 && fnType.Out(1) == typeError {
		t = fnType.Out(0)
	} else {
		return nil, errors.New("function must return Service or (Service, error)")
	}

	if err := validateServiceType(t); err != nil {
		return nil, err
	}

	// Get the dependencies
	var deps []serviceKey
	if fnType.NumIn() > 0 {
		deps = make([]serviceKey, fnType.NumIn())
		for i := 0; i < fnType.NumIn(); i++ {
			deps[i] = serviceKey{
				Type: fnType.In(i),
			}
		}
	}

	svc := &funcService{
		t:             t,
		fn:            fnVal,
		deps:          deps,
		closerFactory: getCloser,
	}

	err := applyOptions(opts, func(opt ServiceOption) error {
		return opt.applyService(svc)
	})
	if err != nil {
		return nil, err
	}

	return svc, nil
}

func (s *funcService) Type() reflect.Type {
	return s.t
}

func (s *funcService) Lifetime() Lifetime {
	return s.lifetime
}

func (s *funcService) setLifetime(l Lifetime) {
	s.lifetime = l
}

func (s *funcService) Aliases() []reflect.Type {
	return s.aliases
}

func (s *funcService) AddAlias(alias reflect.Type) error {
	if !s.t.AssignableTo(alias) {
		return errors.Errorf("as %s: type %s not assignable to %s", alias, s.t, alias)
	}

	s.aliases = append(s.aliases, alias)
	return nil
}

func (s *funcService) Tag() any {
	return s.tag
}

func (s *funcService) setTag(tag any) {
	s.tag = tag
}

func (s *funcService) Scope() *Container {
	return s.scope
}

func (s *funcService) setScope(c *Container) {
	s.scope = c
}

func (s *funcService) Dependencies() []serviceKey {
	return s.deps
}

// IsVariadic reports whether the constructor function is variadic.
// A variadic trailing dependency is treated as optional when resolving.
func (s *funcService) IsVariadic() bool {
	return s.fn.Type().IsVariadic()
}

func (s *funcService) New(deps []reflect.Value) (any, error) {
	var out []reflect.Value

	// Call the constructor function
	if s.fn.Type().IsVariadic() {
		out = s.fn.CallSlice(deps)
	} else {
		out = s.fn.Call(deps)
	}

	// Extract the return value and error, if any
	val := out[0].Interface()

	var err error
	if len(out) == 2 && !out[1].IsNil() {
		err = out[1].Interface().(error)
	}

	return val, err
}

func (s *funcService) CloserFor(val any) Closer {
	if val == nil {
		return nil
	}

	if s.closerFactory != nil {
		return s.closerFactory(val)
	}

	return nil
}

func (s *funcService) setCloserFactory(cf closerFactory) {
	s.closerFactory = cf
}

var _ service = (*funcService)(nil)
