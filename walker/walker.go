package walker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	normalizer "github.com/gofhir/normalizer"
	"github.com/gofhir/normalizer/fhir"
	"github.com/gofhir/normalizer/mapper"
	"github.com/gofhir/normalizer/pool"
)

// UnregisteredTypeError is returned when no ResourceMapper serves a resource type.
type UnregisteredTypeError struct {
	ResourceType string
}

func (e *UnregisteredTypeError) Error() string {
	return fmt.Sprintf("no resource mapper registered for %q", e.ResourceType)
}

// Mapper runs mapping passes. The registration tables are fixed at construction.
type Mapper struct {
	resources map[string]mapper.ResourceMapper
	elements  map[string]mapper.ElementMapper

	metrics *normalizer.Metrics
	log     zerolog.Logger
}

// New builds a Mapper. A later mapper for the same type replaces an earlier one.
func New(resources []mapper.ResourceMapper, elements []mapper.ElementMapper, opts ...normalizer.Option) *Mapper {
	o := normalizer.ApplyOptions(opts...)
	m := &Mapper{
		resources: make(map[string]mapper.ResourceMapper, len(resources)),
		elements:  make(map[string]mapper.ElementMapper, len(elements)),
		metrics:   o.Metrics,
		log:       o.Logger.With().Str("component", "walker").Logger(),
	}
	for _, rm := range resources {
		m.resources[rm.ResourceType()] = rm
	}
	for _, em := range elements {
		m.elements[em.ElementType()] = em
	}
	return m
}

// walk is the state of one mapping pass.
type walk struct {
	ctx      context.Context
	resource fhir.Resource
	scope    mapper.Scope
}

// MapResource normalizes resource for tenant. force, when set, is the
// registry freshness floor for every lookup in this pass.
//
// A nil resource with a nil error means the resource mapper rejected the
// resource; the result explains why. The input is never modified.
func (m *Mapper) MapResource(ctx context.Context, resource fhir.Resource, tenant string, force *time.Time) (fhir.Resource, *normalizer.Result, error) {
	start := time.Now()
	result := normalizer.NewResult()
	if resource == nil {
		return nil, result, fmt.Errorf("nil resource")
	}
	rt := resource.ResourceType()
	result.ResourceType = rt
	result.ResourceID = resource.GetID()

	out, err := m.mapResource(ctx, resource, tenant, force, result)

	m.metrics.RecordResource(time.Since(start), err == nil && out != nil)
	for _, issue := range result.Issues {
		m.metrics.RecordIssue(issue.Severity)
	}
	if err != nil {
		m.log.Error().Err(err).
			Str("resource_type", rt).
			Str("resource_id", result.ResourceID).
			Str("tenant", tenant).
			Msg("resource mapping failed")
		return nil, result, err
	}
	if out == nil {
		m.log.Debug().
			Str("resource_type", rt).
			Str("resource_id", result.ResourceID).
			Int("issues", len(result.Issues)).
			Msg("resource mapper rejected resource")
	}
	return out, result, nil
}

func (m *Mapper) mapResource(ctx context.Context, resource fhir.Resource, tenant string, force *time.Time, result *normalizer.Result) (fhir.Resource, error) {
	rt := resource.ResourceType()
	rm, ok := m.resources[rt]
	if !ok {
		return nil, &UnregisteredTypeError{ResourceType: rt}
	}

	scope := mapper.Scope{
		Tenant:             tenant,
		Location:           rt,
		Result:             result,
		ForceCacheReloadTS: force,
	}
	mapped, err := rm.Map(ctx, resource, scope)
	if err != nil {
		return nil, err
	}
	if mapped == nil {
		return nil, nil
	}

	w := &walk{ctx: ctx, resource: mapped, scope: scope}
	out, err := m.walkFields(w, mapped, rt)
	if err != nil {
		return nil, err
	}
	res, ok := out.(fhir.Resource)
	if !ok {
		return nil, fmt.Errorf("%s: rebuilt node %T is not a resource", rt, out)
	}
	return res, nil
}

// walkFields maps every property of node and returns node itself when
// nothing below it changed.
func (m *Mapper) walkFields(w *walk, node fhir.Node, loc string) (fhir.Node, error) {
	out := node
	for _, f := range node.Fields() {
		if err := w.ctx.Err(); err != nil {
			return nil, err
		}

		switch v := f.Value.(type) {
		case fhir.ContainedList:
			continue

		case []fhir.Node:
			var items []fhir.Node
			for i, item := range v {
				if item == nil {
					continue
				}
				mapped, err := m.mapValue(w, item, pool.Item(loc, f.Name, i))
				if err != nil {
					return nil, err
				}
				if mapped == item {
					continue
				}
				if items == nil {
					items = make([]fhir.Node, len(v))
					copy(items, v)
				}
				items[i] = mapped
			}
			if items != nil {
				out = out.WithField(f.Name, items)
			}

		case *fhir.DynamicValue:
			held, ok := v.Node()
			if !ok {
				continue
			}
			mapped, err := m.mapValue(w, held, pool.Child(loc, v.PropertyName(f.Name)))
			if err != nil {
				return nil, err
			}
			if mapped != held {
				out = out.WithField(f.Name, fhir.NewDynamicValue(mapped))
			}

		case fhir.Node:
			mapped, err := m.mapValue(w, v, pool.Child(loc, f.Name))
			if err != nil {
				return nil, err
			}
			if mapped != v {
				out = out.WithField(f.Name, mapped)
			}
		}
	}
	return out, nil
}

// mapValue offers value to its element mapper, then walks whatever the
// mapper kept.
func (m *Mapper) mapValue(w *walk, value fhir.Node, loc string) (fhir.Node, error) {
	if em, ok := m.elements[value.TypeName()]; ok {
		mapped, err := em.Map(w.ctx, value, w.resource, w.scope.At(loc))
		if err != nil {
			return nil, err
		}
		if mapped == nil {
			return value, nil
		}
		value = mapped
	}
	return m.walkFields(w, value, loc)
}
