package voxcube

import (
	"slices"
)

// To get more queries:
//  1. Add QueryN and MakeQueryN
//  2. Copy MapN-1() and resolve one more column with queryColumn
type Query1[A any] struct {
	ecs    *Ecs
	filter queryFilter
}
type Query2[A, B any] struct {
	ecs    *Ecs
	filter queryFilter
}
type Query3[A, B, C any] struct {
	ecs    *Ecs
	filter queryFilter
}
type Query4[A, B, C, D any] struct {
	ecs    *Ecs
	filter queryFilter
}
type Query5[A, B, C, D, E any] struct {
	ecs    *Ecs
	filter queryFilter
}

func MakeQuery1[A any](cmd *Commands) Query1[A]             { return Query1[A]{ecs: cmd.app.ecs} }
func MakeQuery2[A, B any](cmd *Commands) Query2[A, B]       { return Query2[A, B]{ecs: cmd.app.ecs} }
func MakeQuery3[A, B, C any](cmd *Commands) Query3[A, B, C] { return Query3[A, B, C]{ecs: cmd.app.ecs} }
func MakeQuery4[A, B, C, D any](cmd *Commands) Query4[A, B, C, D] {
	return Query4[A, B, C, D]{ecs: cmd.app.ecs}
}
func MakeQuery5[A, B, C, D, E any](cmd *Commands) Query5[A, B, C, D, E] {
	return Query5[A, B, C, D, E]{ecs: cmd.app.ecs}
}

// queryFilter restricts matching archetypes by components that are not
// handed to the Map callback.
type queryFilter struct {
	with    []any
	without []any
}

func (f queryFilter) withTypes(components ...any) queryFilter {
	return queryFilter{with: append(slices.Clone(f.with), components...), without: f.without}
}

func (f queryFilter) withoutTypes(components ...any) queryFilter {
	return queryFilter{with: f.with, without: append(slices.Clone(f.without), components...)}
}

func (f queryFilter) matches(ecs *Ecs, arch *archetype) bool {
	for _, c := range f.with {
		if _, ok := arch.componentData[ecs.getComponentId(componentType(c))]; !ok {
			return false
		}
	}
	for _, c := range f.without {
		if _, ok := arch.componentData[ecs.getComponentId(componentType(c))]; ok {
			return false
		}
	}
	return true
}

func (q Query1[A]) WithTypes(components ...any) Query1[A] {
	q.filter = q.filter.withTypes(components...)
	return q
}
func (q Query1[A]) WithoutTypes(components ...any) Query1[A] {
	q.filter = q.filter.withoutTypes(components...)
	return q
}
func (q Query2[A, B]) WithTypes(components ...any) Query2[A, B] {
	q.filter = q.filter.withTypes(components...)
	return q
}
func (q Query2[A, B]) WithoutTypes(components ...any) Query2[A, B] {
	q.filter = q.filter.withoutTypes(components...)
	return q
}
func (q Query3[A, B, C]) WithTypes(components ...any) Query3[A, B, C] {
	q.filter = q.filter.withTypes(components...)
	return q
}
func (q Query3[A, B, C]) WithoutTypes(components ...any) Query3[A, B, C] {
	q.filter = q.filter.withoutTypes(components...)
	return q
}
func (q Query4[A, B, C, D]) WithTypes(components ...any) Query4[A, B, C, D] {
	q.filter = q.filter.withTypes(components...)
	return q
}
func (q Query4[A, B, C, D]) WithoutTypes(components ...any) Query4[A, B, C, D] {
	q.filter = q.filter.withoutTypes(components...)
	return q
}
func (q Query5[A, B, C, D, E]) WithTypes(components ...any) Query5[A, B, C, D, E] {
	q.filter = q.filter.withTypes(components...)
	return q
}
func (q Query5[A, B, C, D, E]) WithoutTypes(components ...any) Query5[A, B, C, D, E] {
	q.filter = q.filter.withoutTypes(components...)
	return q
}

// queryColumn resolves one component column of an archetype. A nil column
// with ok=true means the component is optional and absent.
func queryColumn[T any](arch *archetype, id componentId, opt set[componentId]) (column []T, ok bool) {
	if data, present := arch.componentData[id]; present {
		return data.([]T), true
	}
	if _, optional := opt[id]; optional {
		return nil, true
	}
	return nil, false
}

func columnRef[T any](column []T, r row) *T {
	if column == nil {
		return nil
	}
	return &column[r]
}

func (q Query1[A]) Map(m func(EntityId, *A) bool, optionals ...any) {
	id1 := identifyComponent[A](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		if !q.filter.matches(q.ecs, arch) {
			continue
		}
		comps1, ok := queryColumn[A](arch, id1, opt)
		if !ok {
			continue
		}

		for entityId, row := range arch.entities {
			if !m(entityId, columnRef(comps1, row)) {
				return
			}
		}
	}
}

func (q Query2[A, B]) Map(m func(EntityId, *A, *B) bool, optionals ...any) {
	id1, id2 := identifyComponent[A](q.ecs), identifyComponent[B](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		if !q.filter.matches(q.ecs, arch) {
			continue
		}
		comps1, ok := queryColumn[A](arch, id1, opt)
		if !ok {
			continue
		}
		comps2, ok := queryColumn[B](arch, id2, opt)
		if !ok {
			continue
		}

		for entityId, row := range arch.entities {
			if !m(entityId, columnRef(comps1, row), columnRef(comps2, row)) {
				return
			}
		}
	}
}

func (q Query3[A, B, C]) Map(m func(EntityId, *A, *B, *C) bool, optionals ...any) {
	id1, id2, id3 := identifyComponent[A](q.ecs), identifyComponent[B](q.ecs), identifyComponent[C](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		if !q.filter.matches(q.ecs, arch) {
			continue
		}
		comps1, ok := queryColumn[A](arch, id1, opt)
		if !ok {
			continue
		}
		comps2, ok := queryColumn[B](arch, id2, opt)
		if !ok {
			continue
		}
		comps3, ok := queryColumn[C](arch, id3, opt)
		if !ok {
			continue
		}

		for entityId, row := range arch.entities {
			if !m(entityId, columnRef(comps1, row), columnRef(comps2, row), columnRef(comps3, row)) {
				return
			}
		}
	}
}

func (q Query4[A, B, C, D]) Map(m func(EntityId, *A, *B, *C, *D) bool, optionals ...any) {
	id1, id2 := identifyComponent[A](q.ecs), identifyComponent[B](q.ecs)
	id3, id4 := identifyComponent[C](q.ecs), identifyComponent[D](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		if !q.filter.matches(q.ecs, arch) {
			continue
		}
		comps1, ok := queryColumn[A](arch, id1, opt)
		if !ok {
			continue
		}
		comps2, ok := queryColumn[B](arch, id2, opt)
		if !ok {
			continue
		}
		comps3, ok := queryColumn[C](arch, id3, opt)
		if !ok {
			continue
		}
		comps4, ok := queryColumn[D](arch, id4, opt)
		if !ok {
			continue
		}

		for entityId, row := range arch.entities {
			if !m(entityId, columnRef(comps1, row), columnRef(comps2, row), columnRef(comps3, row), columnRef(comps4, row)) {
				return
			}
		}
	}
}

func (q Query5[A, B, C, D, E]) Map(m func(EntityId, *A, *B, *C, *D, *E) bool, optionals ...any) {
	id1, id2 := identifyComponent[A](q.ecs), identifyComponent[B](q.ecs)
	id3, id4 := identifyComponent[C](q.ecs), identifyComponent[D](q.ecs)
	id5 := identifyComponent[E](q.ecs)
	opt := identifyOptionals(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		if !q.filter.matches(q.ecs, arch) {
			continue
		}
		comps1, ok := queryColumn[A](arch, id1, opt)
		if !ok {
			continue
		}
		comps2, ok := queryColumn[B](arch, id2, opt)
		if !ok {
			continue
		}
		comps3, ok := queryColumn[C](arch, id3, opt)
		if !ok {
			continue
		}
		comps4, ok := queryColumn[D](arch, id4, opt)
		if !ok {
			continue
		}
		comps5, ok := queryColumn[E](arch, id5, opt)
		if !ok {
			continue
		}

		for entityId, row := range arch.entities {
			if !m(entityId, columnRef(comps1, row), columnRef(comps2, row), columnRef(comps3, row), columnRef(comps4, row), columnRef(comps5, row)) {
				return
			}
		}
	}
}

func identifyOptionals(ecs *Ecs, components ...any) set[componentId] {
	res := make(set[componentId])
	for _, c := range components {
		res[ecs.getComponentId(componentType(c))] = struct{}{}
	}
	return res
}

func identifyComponent[A any](ecs *Ecs) componentId {
	return ecs.getComponentId(typeOf[A]())
}
