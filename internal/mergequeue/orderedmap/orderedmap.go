// Package orderedmap provides a map that keeps the insertion order of its
// elements.
package orderedmap

import (
	"container/list"
)

type entry[K comparable, V any] struct {
	key K
	val V
}

// Map is a map datastructure that allows accessing it's element in a
// fixed order.
type Map[K comparable, V any] struct {
	order   *list.List
	m       map[K]*list.Element
	zeroval V
}

func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		order: list.New(),
		m:     map[K]*list.Element{},
	}
}

func elemVal[K comparable, V any](e *list.Element) V {
	return e.Value.(*entry[K, V]).val
}

// EnqueueIfNotExist appends val to the map if K does not exist.
// isFirst is true when the value is the only element in the map.
func (m *Map[K, V]) EnqueueIfNotExist(key K, val V) (isFirst, added bool) {
	if _, exist := m.m[key]; exist {
		return false, false
	}

	elem := m.order.PushBack(&entry[K, V]{key: key, val: val})
	m.m[key] = elem

	return m.order.Len() == 1, true
}

// Get returns the value for the given key.
// If the key does not exist, the zero value is returned
func (m *Map[K, V]) Get(key K) V {
	e, exist := m.m[key]
	if !exist {
		return m.zeroval
	}

	return elemVal[K, V](e)
}

// Contains returns true if key exists in the map.
func (m *Map[K, V]) Contains(key K) bool {
	_, exist := m.m[key]
	return exist
}

// Dequeue removes the value with the key from the map and returns it.
// If the key does not exist in the map, the zero value and false is returned.
func (m *Map[K, V]) Dequeue(key K) (removedElem V, removed bool) {
	e, exist := m.m[key]
	if !exist {
		return m.zeroval, false
	}
	delete(m.m, key)

	return m.order.Remove(e).(*entry[K, V]).val, true
}

// First returns the first element in the map.
// If the map is empty, the zero value is returned.
func (m *Map[K, V]) First() V {
	if e := m.order.Front(); e != nil {
		return elemVal[K, V](e)
	}

	return m.zeroval
}

// IsFirst returns true if key is the key of the first element.
func (m *Map[K, V]) IsFirst(key K) bool {
	e := m.order.Front()
	return e != nil && e.Value.(*entry[K, V]).key == key
}

// Len returns the number of elements in the maps.
func (m *Map[K, V]) Len() int {
	return m.order.Len()
}

// Foreach itereates through the map in order.
// When fn returns false the iteration is aborted.
func (m *Map[K, V]) Foreach(fn func(V) bool) {
	for e := m.order.Front(); e != nil; e = e.Next() {
		if !fn(elemVal[K, V](e)) {
			return
		}
	}
}

// Before returns the values that were enqueued before the value with the
// given key, in order.
// If key does not exist, false is returned.
func (m *Map[K, V]) Before(key K) ([]V, bool) {
	target, exist := m.m[key]
	if !exist {
		return nil, false
	}

	var result []V
	for e := m.order.Front(); e != target; e = e.Next() {
		result = append(result, elemVal[K, V](e))
	}

	return result, true
}

// AsSlice returns a new slice containing the elements of the orderedMap in
// order.
func (m *Map[K, V]) AsSlice() []V {
	result := make([]V, 0, m.order.Len())

	for e := m.order.Front(); e != nil; e = e.Next() {
		result = append(result, elemVal[K, V](e))
	}

	return result
}
