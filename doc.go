// Package unify is a component container for long running Go services.
// Components are named, configured through string settings and wired to
// each other by name or by capability. The container owns their lifecycle
// and runs their periodic and cluster broadcast methods.
//
// # Overview
//
// unify provides:
//   - Two component lifetimes: Singleton and Transient
//   - Property injection from struct tags, settings and capability tokens
//   - Aliases and customization suffixes for replacing components per deployment
//   - Auto-injection of the unique implementation of a capability
//   - Business services with pre and post logic plugin sockets
//   - Periodic methods driven by a pluggable task manager
//   - Broadcast methods applied on every node of a cluster
//   - Views compiled from descriptors and cached per locale
//
// # Basic Usage
//
// Register components on a ConfigBuilder, then start a container:
//
//	b := unify.NewConfigBuilder()
//	b.AddComponent("store", (*FileStore)(nil), unify.WithSetting("root", "/var/data"))
//	b.AddComponent("indexer", (*Indexer)(nil))
//
//	c, err := unify.New(unify.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := c.Startup(unify.Environment{Locale: language.English}, b.Build()); err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Shutdown(c.AccessKey())
//
//	indexer, err := unify.ResolveNamed[*Indexer](c, "indexer")
//
// # Properties
//
// Tagged fields are configurable properties:
//
//	type Indexer struct {
//	    unify.Base
//
//	    Store     Store          `unify:"store"`            // auto-injected when unset
//	    Workers   int            `unify:"workers,default=4"`
//	    Analyzers []Analyzer     `unify:"analyzers,default=$c{Analyzer}"`
//	    Token     string         `unify:"token,hidden"`
//	}
//
// A setting value is a literal, a component name, $c{Capability} for every
// component implementing a capability, or $s{text} for text that must not
// be read as a component name. When a Set<Field> method exists it is
// called instead of writing the field.
//
// # Lifetimes
//
//   - Singleton: created on first request, shared, terminated at shutdown
//     in reverse creation order
//   - Transient: a new instance per request; the only kind that accepts
//     alternate settings through GetComponentWithSettings
//
// # Method Declarations
//
// Component types implement Declarer to declare periodic, broadcast and
// plugin methods:
//
//	func (*Indexer) DeclareMethods(d *unify.Declarations) {
//	    d.Periodic("Reindex", unify.Slow, true)
//	    d.Broadcast("Invalidate")
//	}
//
// Periodic methods take a single TaskMonitor. Broadcast methods take
// nothing, a []string, a context.Context or both, and return nothing.
//
// # Well-known Components
//
// Startup installs a default for every well-known name that is not
// registered: request context manager, view compiler, cluster service,
// session manager, task manager, boot service and attribute provider.
// Register a component under the same name to replace one.
package unify
