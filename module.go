package unify

// ModuleOption represents a registration action within a module.
type ModuleOption func(*ConfigBuilder) error

// NewModule creates a new module with the given name and builders.
// Modules group related component registrations together.
//
// Example:
//
//	var StorageModule = unify.NewModule("storage",
//	    unify.AddComponent("file-store", (*FileStore)(nil)),
//	    unify.AddComponent("cache", (*Cache)(nil), unify.WithSetting("size", "128")),
//	)
//
//	var AppModule = unify.NewModule("app",
//	    StorageModule,
//	    unify.AddComponent("app-boot", (*Boot)(nil)),
//	    unify.Property(unify.PropertyBoot, "app-boot"),
//	)
func NewModule(name string, builders ...ModuleOption) ModuleOption {
	return func(b *ConfigBuilder) error {
		for _, builder := range builders {
			if builder == nil {
				continue
			}

			if err := builder(b); err != nil {
				return ModuleError{Module: name, Cause: err}
			}
		}

		return nil
	}
}

// AddComponent creates a ModuleOption registering a component.
func AddComponent(name string, sample any, opts ...ComponentOption) ModuleOption {
	return func(b *ConfigBuilder) error {
		return b.AddComponent(name, sample, opts...)
	}
}

// Alias creates a ModuleOption registering an alias.
func Alias(alias, target string) ModuleOption {
	return func(b *ConfigBuilder) error {
		b.Alias(alias, target)
		return nil
	}
}

// Property creates a ModuleOption setting a container property.
func Property(name string, value any) ModuleOption {
	return func(b *ConfigBuilder) error {
		b.SetProperty(name, value)
		return nil
	}
}

// PropertyIfBlank creates a ModuleOption setting a property only when unset.
func PropertyIfBlank(name string, value any) ModuleOption {
	return func(b *ConfigBuilder) error {
		b.SetPropertyIfBlank(name, value)
		return nil
	}
}
