package voxcube

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuery_Map(t *testing.T) {
	type Comp1 struct{ a int }
	type Comp2 struct{ b float32 }
	type Comp3 struct{}

	ecs := MakeEcs()
	ecs.addEntity(Comp1{a: 1})                                 // comp1 only                       -- shouldn't match
	id2 := ecs.addEntity(Comp1{a: 2}, Comp2{b: 1.37})          // comp1 & comp2                    -- should match
	id3 := ecs.addEntity(Comp1{a: 3}, Comp2{b: 4.20}, Comp3{}) // comp1 & comp2 + something extra  -- should match
	ecs.addEntity(Comp1{a: 4}, Comp3{})                        // comp1 + something extra          -- shouldn't match
	ecs.addEntity(Comp2{b: 3.14})                              // comp2 only                       -- shouldn't match

	query := Query2[Comp1, Comp2]{ecs: &ecs}

	type result struct {
		a Comp1
		b Comp2
	}
	got := map[EntityId]result{}
	query.Map(func(entityId EntityId, comp1 *Comp1, comp2 *Comp2) bool {
		got[entityId] = result{*comp1, *comp2}
		return true
	})

	assert.Equal(t, map[EntityId]result{
		id2: {Comp1{a: 2}, Comp2{b: 1.37}},
		id3: {Comp1{a: 3}, Comp2{b: 4.20}},
	}, got)
}

func TestQuery_MapWritesThrough(t *testing.T) {
	type Counter struct{ n int }

	ecs := MakeEcs()
	id := ecs.addEntity(Counter{n: 1})

	Query1[Counter]{ecs: &ecs}.Map(func(_ EntityId, c *Counter) bool {
		c.n++
		return true
	})

	Query1[Counter]{ecs: &ecs}.Map(func(eid EntityId, c *Counter) bool {
		assert.Equal(t, id, eid)
		assert.Equal(t, 2, c.n)
		return true
	})
}

func TestQuery_Optionals(t *testing.T) {
	type Body struct{}
	type Marker struct{ tag string }

	ecs := MakeEcs()
	plain := ecs.addEntity(Body{})
	marked := ecs.addEntity(Body{}, Marker{tag: "x"})

	seen := map[EntityId]*Marker{}
	Query2[Body, Marker]{ecs: &ecs}.Map(func(eid EntityId, _ *Body, m *Marker) bool {
		seen[eid] = m
		return true
	}, Marker{})

	assert.Len(t, seen, 2)
	assert.Nil(t, seen[plain])
	if assert.NotNil(t, seen[marked]) {
		assert.Equal(t, "x", seen[marked].tag)
	}
}

func TestQuery_Filters(t *testing.T) {
	type Body struct{}
	type Hidden struct{}
	type Player struct{}

	ecs := MakeEcs()
	ecs.addEntity(Body{})
	hidden := ecs.addEntity(Body{}, Hidden{})
	player := ecs.addEntity(Body{}, Player{})

	var without, with []EntityId
	Query1[Body]{ecs: &ecs}.WithoutTypes(Hidden{}).Map(func(eid EntityId, _ *Body) bool {
		without = append(without, eid)
		return true
	})
	Query1[Body]{ecs: &ecs}.WithTypes(Player{}).Map(func(eid EntityId, _ *Body) bool {
		with = append(with, eid)
		return true
	})

	assert.Len(t, without, 2)
	assert.NotContains(t, without, hidden)
	assert.Equal(t, []EntityId{player}, with)
}

func TestQuery_StopsWhenCallbackReturnsFalse(t *testing.T) {
	type Body struct{}

	ecs := MakeEcs()
	for i := 0; i < 5; i++ {
		ecs.addEntity(Body{})
	}

	calls := 0
	Query1[Body]{ecs: &ecs}.Map(func(EntityId, *Body) bool {
		calls++
		return false
	})
	assert.Equal(t, 1, calls)
}
