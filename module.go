package di

import "slices"

// A Module is a collection of container options.
// It can be used to export a re-usable group of related services.
//
// Example:
//
//	var StorageModule = di.Module{
//		di.WithService(NewDB),
//		di.WithService(NewStore),
//	}
type Module []ContainerOption

func (Module) applyContainer(c *Container) error { return nil }
func (Module) order() optionOrder                { return orderService }

// WithModule applies the options in a [Module] when calling [NewContainer] or [Container.NewScope].
//
// Example:
//
//	c, err := di.NewContainer(
//		di.WithModule(StorageModule),
//		di.WithService(NewHandler),
//	)
func WithModule(m Module) ContainerOption {
	return m
}

// flattenModules expands any Module options in place so the contained options
// are sorted and applied individually.
//
// Iterate by index over the growing slice so options inserted by a Module,
// including nested Modules, are scanned as well.
func flattenModules(opts []ContainerOption) []ContainerOption {
	for i := 0; i < len(opts); i++ {
		if mod, ok := opts[i].(Module); ok {
			opts = slices.Insert(opts, i+1, mod...)
		}
	}

	return opts
}
