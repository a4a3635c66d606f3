// Package normalizer normalizes tenant clinical resources onto a canonical
// data model.
//
// Two subsystems do the work:
//
//   - The concept normalization registry (package registry) resolves tenant
//     source codes to canonical codes and serves value sets, using a cached,
//     versioned registry manifest fetched through a DocumentLoader.
//   - The resource tree mapper (package walker) applies a resource mapper to a
//     resource and then walks every nested structured value, invoking element
//     mappers where one is registered for the value's type.
//
// # Quick Start
//
//	reg := registry.New(loader.NewDir("/srv/registry"),
//	    normalizer.WithCacheTTLHours(12),
//	)
//	m := walker.New(rules.ResourceMappers(reg), rules.ElementMappers(reg))
//
//	mapped, result, err := m.MapResource(ctx, condition, "tenantA", nil)
//	if err != nil {
//	    // configuration gap or inconsistent registry content
//	}
//	for _, issue := range result.Issues {
//	    fmt.Println(issue)
//	}
//
// The package itself holds the pieces shared by every layer: the Issue and
// Result types used to accumulate normalization issues, functional Options,
// and Metrics.
package normalizer
