package di

import (
	"cmp"
	"context"
	"fmt"
	"reflect"
	"slices"
	"strings"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/tkrause/scopekit/internal/errors"
)

// Container is a dependency injection container.
// It is used to resolve services by first resolving their dependencies.
type Container struct {
	parent     *Container
	services   map[serviceKey][]service
	decorators map[serviceKey][]*decorator
	resolved   *xsync.MapOf[service, *promise]
	closers    []Closer
	closersMu  sync.Mutex
	closedMu   sync.RWMutex
	closed     bool
}

var _ Scope = (*Container)(nil)

// NewContainer creates a new [Container] with the provided options.
//
// Available options:
//   - [WithService] registers a service with a value or constructor function.
//   - [WithDecorator] registers a decorator function for a service.
//   - [WithModule] applies a group of options.
//   - [WithDependencyValidation] validates service dependencies.
func NewContainer(opts ...ContainerOption) (*Container, error) {
	c := &Container{
		services: make(map[serviceKey][]service),
		resolved: xsync.NewMapOf[service, *promise](),
	}

	err := c.applyOptions(opts)
	if err != nil {
		return nil, errors.Wrap(err, "di.NewContainer")
	}

	return c, nil
}

// ContainerOption is used to configure a new [Container] when calling [NewContainer]
// or [Container.NewScope].
type ContainerOption interface {
	order() optionOrder
	applyContainer(*Container) error
}

func (c *Container) applyOptions(opts []ContainerOption) error {
	// Flatten any modules before sorting and applying options
	opts = flattenModules(opts)

	// Sort options by precedence.
	// Use stable sort because the registration order of services matters.
	slices.SortStableFunc(opts, func(a, b ContainerOption) int {
		return cmp.Compare(a.order(), b.order())
	})

	var errs errors.MultiError
	for _, o := range opts {
		errs = errs.Append(o.applyContainer(c))
	}

	return errs.Join()
}

func (c *Container) register(sc service) {
	if c.services == nil {
		c.services = make(map[serviceKey][]service)
	}

	sc.setScope(c)

	if len(sc.Aliases()) == 0 {
		c.registerType(sc.Type(), sc)
	} else {
		for _, alias := range sc.Aliases() {
			c.registerType(alias, sc)
		}
	}

	// Add closers for value services.
	// No locks needed here because this only runs while building the Container.
	if vs, ok := sc.(*valueService); ok {
		if closer := sc.CloserFor(vs.val); closer != nil {
			c.closers = append(c.closers, closer)
		}
	}
}

func (c *Container) registerType(t reflect.Type, sc service) {
	key := serviceKey{
		Type: t,
		Tag:  sc.Tag(),
	}
	c.services[key] = append(c.services[key], sc)
}

func (c *Container) registerDecorator(d *decorator) {
	if c.decorators == nil {
		c.decorators = make(map[serviceKey][]*decorator)
	}
	c.decorators[d.key] = append(c.decorators[d.key], d)
}

func (c *Container) lookupService(key serviceKey) service {
	for scope := c; scope != nil; scope = scope.parent {
		svcs, ok := scope.services[key]
		if !ok {
			continue
		}

		// Return the last registered service for this key
		return svcs[len(svcs)-1]
	}

	return nil
}

// lookupDecorators returns decorators for the key from the root scope down to c,
// in registration order.
func (c *Container) lookupDecorators(key serviceKey) []*decorator {
	var ds []*decorator
	if c.parent != nil {
		ds = c.parent.lookupDecorators(key)
	}
	return append(ds, c.decorators[key]...)
}

// WithDependencyValidation validates registered services on [Container] creation.
//
// This will check that all dependencies are registered and that there are no dependency cycles.
// It will return an error with details if any issues are found.
//
// Scoped services registered with a parent Container are validated against the
// scope being created, because their dependencies may be registered with a child scope.
func WithDependencyValidation() ContainerOption {
	return newContainerOption(orderValidation, func(c *Container) error {
		err := c.validateDependencies()
		if err != nil {
			return errors.Wrap(err, "WithDependencyValidation")
		}

		return nil
	})
}

func (c *Container) validateDependencies() error {
	var errs errors.MultiError
	svcProblems := make(map[service]string)

	for _, svcs := range c.services {
		for _, svc := range svcs {
			if svc.Lifetime() == Scoped && c.parent == nil {
				// Scoped services are not validated on the root Container
				continue
			}

			prob := c.validateService(svc, svcProblems, make(resolveVisitor))
			if prob != "" {
				errs = errs.Append(errors.Errorf("service %s: %s", svc.Type(), prob))
			}
		}
	}

	if c.parent != nil {
		// Validate scoped services registered with parent scopes
		for scope := c.parent; scope != nil; scope = scope.parent {
			for _, svcs := range scope.services {
				for _, svc := range svcs {
					if svc.Lifetime() != Scoped {
						continue
					}

					prob := c.validateService(svc, svcProblems, make(resolveVisitor))
					if prob != "" {
						errs = errs.Append(errors.Errorf("service %s: %s", svc.Type(), prob))
					}
				}
			}
		}
	}

	return errs.Join()
}

func (c *Container) validateService(svc service, svcProblems map[service]string, visitor resolveVisitor) string {
	if prob, ok := svcProblems[svc]; ok {
		return prob
	}

	deps := svc.Dependencies()
	if len(deps) == 0 {
		svcProblems[svc] = ""
		return ""
	}

	if !visitor.Enter(svc) {
		return ErrDependencyCycle.Error()
	}
	defer visitor.Leave(svc)

	var problems []string
	for _, depKey := range deps {
		if depKey.Type == typeContext || depKey.Type == typeScope {
			continue
		}

		if depKey.Type.Kind() == reflect.Slice {
			if fs, ok := svc.(*funcService); ok && fs.IsVariadic() {
				// If the service is variadic, registration is optional
				continue
			}

			// Check that the element type is registered
			depKey.Type = depKey.Type.Elem()
		}

		depSvc := c.lookupService(depKey)
		if depSvc == nil {
			prob := fmt.Sprintf("dependency %s: service not registered", depKey)
			problems = append(problems, prob)
			continue
		}

		prob := c.validateService(depSvc, svcProblems, visitor)
		if prob != "" {
			problems = append(problems, fmt.Sprintf("dependency %s: %s", depKey, prob))
		}
	}

	if len(problems) > 0 {
		probs := strings.Join(problems, "; ")
		svcProblems[svc] = probs
		return probs
	}

	return ""
}

// NewScope creates a new [Container] with a child scope.
//
// Services registered with the parent [Container] will be inherited by the child [Container].
// Additional services can be registered with the new scope and they will be isolated from
// the parent and sibling containers.
//
// Available options:
//   - [WithService] registers a service with a value or constructor function.
//   - [WithDecorator] registers a decorator function for a service.
//   - [WithDependencyValidation] validates service dependencies.
func (c *Container) NewScope(opts ...ContainerOption) (*Container, error) {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()

	if c.closed {
		return nil, errors.Wrap(ErrContainerClosed, "di.Container.NewScope")
	}

	scope := &Container{
		parent:   c,
		resolved: xsync.NewMapOf[service, *promise](),
	}

	err := scope.applyOptions(opts)
	if err != nil {
		return nil, errors.Wrap(err, "di.Container.NewScope")
	}

	return scope, nil
}

// Contains returns true if the [Container] has a service registered for the given [reflect.Type].
//
// Available options:
//   - [WithTag] specifies the tag associated with the service.
func (c *Container) Contains(t reflect.Type, opts ...ResolveOption) bool {
	// For slice types, look for the element type
	if t.Kind() == reflect.Slice {
		t = t.Elem()
	}

	key := serviceKey{Type: t}
	for _, opt := range opts {
		key = opt.applyServiceKey(key)
	}

	for scope := c; scope != nil; scope = scope.parent {
		if _, found := scope.services[key]; found {
			return true
		}
	}

	return false
}

// ResolveOption can be used when calling [Resolve], [MustResolve],
// [Container.Resolve], or [Container.Contains].
//
// Available options:
//   - [WithTag]
type ResolveOption interface {
	applyServiceKey(serviceKey) serviceKey
}

// Resolve a service of the given [reflect.Type].
//
// The type must be registered with the [Container].
// This will return an error if the [Container] has been closed.
//
// Available options:
//   - [WithTag] specifies the tag associated with the service.
func (c *Container) Resolve(ctx context.Context, t reflect.Type, opts ...ResolveOption) (any, error) {
	key := serviceKey{Type: t}
	for _, opt := range opts {
		key = opt.applyServiceKey(key)
	}

	c.closedMu.RLock()
	defer c.closedMu.RUnlock()

	if c.closed {
		return nil, errors.Wrapf(ErrContainerClosed, "di.Container.Resolve %s", key)
	}

	val, err := resolveKey(ctx, c, key, make(resolveVisitor), false)
	if err != nil {
		return val, errors.Wrapf(err, "di.Container.Resolve %s", key)
	}

	return val, nil
}

func resolveKey(
	ctx context.Context,
	scope *Container,
	key serviceKey,
	visitor resolveVisitor,
	optional bool,
) (any, error) {
	if key.Type.Kind() == reflect.Slice {
		return resolveSliceKey(ctx, scope, key, visitor, optional)
	}

	svc := scope.lookupService(key)
	if svc == nil {
		return nil, ErrServiceNotRegistered
	}

	return resolveService(ctx, scope, key, svc, visitor)
}

// resolveSliceKey resolves all services registered for the slice's element type
// across the scope chain.
func resolveSliceKey(
	ctx context.Context,
	scope *Container,
	key serviceKey,
	visitor resolveVisitor,
	optional bool,
) (any, error) {
	sliceVal := reflect.MakeSlice(key.Type, 0, 0)
	elementKey := serviceKey{
		Type: key.Type.Elem(),
		Tag:  key.Tag,
	}
	found := false

	for s := scope; s != nil; s = s.parent {
		for _, svc := range s.services[elementKey] {
			val, err := resolveService(ctx, scope, elementKey, svc, visitor)
			if err != nil {
				return nil, err
			}
			if val != nil {
				sliceVal = reflect.Append(sliceVal, reflect.ValueOf(val))
			}

			found = true
		}
	}

	if !found && !optional {
		return nil, ErrServiceNotRegistered
	}

	return sliceVal.Interface(), nil
}

func resolveService(
	ctx context.Context,
	scope *Container,
	key serviceKey,
	svc service,
	visitor resolveVisitor,
) (val any, err error) {
	// Check context for errors
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// For singleton services, use the scope the service is registered with.
	// Otherwise, use the current scope.
	lifetime := svc.Lifetime()
	if lifetime == Singleton {
		scope = svc.Scope()
	} else if lifetime == Scoped && scope == svc.Scope() {
		return nil, errors.New("scoped service must be resolved from a child scope")
	}

	// Throw an error if we've already visited this service.
	// This must happen before the cache lookup so a re-entrant resolve reports
	// a cycle instead of waiting on its own promise.
	if !visitor.Enter(svc) {
		return nil, ErrDependencyCycle
	}
	defer visitor.Leave(svc)

	// For Singleton or Scoped services, see if this service has already been resolved.
	if lifetime != Transient {
		if p, ok := scope.resolved.Load(svc); ok {
			return p.Result()
		}
	}

	// Recursively resolve dependencies
	var depVals []reflect.Value

	deps := svc.Dependencies()
	if len(deps) > 0 {
		depVals = make([]reflect.Value, len(deps))
		for i, depKey := range deps {
			var depVal any
			var depErr error

			switch depKey.Type {
			case typeContext:
				// Pass along the context
				depVal = ctx

			case typeScope:
				var ready func()
				depVal, ready = newInjectedScope(scope, key)
				defer ready()

			default:
				optional := false
				if fs, ok := svc.(*funcService); ok &&
					i == len(deps)-1 && fs.IsVariadic() {
					// If this is the last arg and the constructor function is variadic,
					// we treat it as optional.
					optional = true
				}

				// Recursive call
				depVal, depErr = resolveKey(ctx, scope, depKey, visitor, optional)
			}

			if depErr != nil {
				// Stop at the first error
				return nil, errors.Wrapf(depErr, "dependency %s", depKey)
			}
			depVals[i] = safeVal(depKey.Type, depVal)
		}
	}

	if lifetime != Transient {
		// Concurrent resolvers race to store the promise.
		// The winner creates the instance, everyone else waits on the promise.
		p, loaded := scope.resolved.LoadOrCompute(svc, newPromise)
		if loaded {
			return p.Result()
		}

		defer func() {
			p.setResult(val, err)
		}()
	}

	// Create the service
	val, err = svc.New(depVals)
	if err != nil {
		return val, err
	}

	// Apply any registered decorators
	val, err = scope.decorate(ctx, key, svc, val, visitor)
	if err != nil {
		return nil, err
	}

	// Add Closer for the service
	if closer := svc.CloserFor(val); closer != nil {
		scope.closersMu.Lock()
		scope.closers = append(scope.closers, closer)
		scope.closersMu.Unlock()
	}

	return val, nil
}

// decorate applies decorators registered for the key to a newly created instance.
func (c *Container) decorate(
	ctx context.Context,
	key serviceKey,
	svc service,
	val any,
	visitor resolveVisitor,
) (any, error) {
	for _, d := range c.lookupDecorators(key) {
		depVals := make([]reflect.Value, len(d.deps))
		used := false

		for i, depKey := range d.deps {
			var depVal any
			var depErr error

			switch {
			case !used && depKey == d.key:
				// The service argument receives the instance being decorated
				depVal = val
				used = true

			case depKey.Type == typeContext:
				depVal = ctx

			case depKey.Type == typeScope:
				depVal = Scope(c)

			default:
				depVal, depErr = resolveKey(ctx, c, depKey, visitor, false)
			}

			if depErr != nil {
				return nil, errors.Wrapf(depErr, "decorator %s: dependency %s", d, depKey)
			}
			depVals[i] = safeVal(depKey.Type, depVal)
		}

		val = d.Decorate(depVals)
	}

	return val, nil
}

// Close the [Container] and resolved services.
//
// Services are closed in the reverse order they were resolved/created.
// Errors returned from closing services are joined together.
//
// Close will return an error if called more than once.
func (c *Container) Close(ctx context.Context) error {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()

	if c.closed {
		return errors.Wrap(ErrContainerClosed, "di.Container.Close: closed already")
	}
	c.closed = true

	// Close services in LIFO order
	// This is important because of dependencies
	var errs errors.MultiError
	for i := len(c.closers) - 1; i >= 0; i-- {
		errs = errs.Append(c.closers[i].Close(ctx))
	}

	return errs.Wrap("di.Container.Close")
}

type optionOrder int8

const (
	orderService optionOrder = iota
	orderDecorator
	orderValidation
)

func newContainerOption(order optionOrder, fn func(*Container) error) ContainerOption {
	return containerOption{fn: fn, ord: order}
}

type containerOption struct {
	fn  func(*Container) error
	ord optionOrder
}

func (o containerOption) order() optionOrder {
	return o.ord
}

func (o containerOption) applyContainer(c *Container) error {
	return o.fn(c)
}

type resolveVisitor map[service]struct{}

func (v resolveVisitor) Enter(s service) bool {
	if _, exists := v[s]; exists {
		return false
	}

	v[s] = struct{}{}
	return true
}

func (v resolveVisitor) Leave(s service) {
	delete(v, s)
}
