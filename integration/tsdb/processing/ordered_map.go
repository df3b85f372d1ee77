package processing

import (
	"bytes"
	"encoding/json"
)

// OrderedMap is a string keyed map which remembers insertion order.
// Setting an existing key replaces the value and keeps the key at its original position.
// Zero value is ready to use.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

func NewOrderedMap[V any]() *OrderedMap[V] {
	return &OrderedMap[V]{values: map[string]V{}}
}

func (m *OrderedMap[V]) Set(key string, val V) {
	if m.values == nil {
		m.values = map[string]V{}
	}
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = val
}

func (m *OrderedMap[V]) Get(key string) (V, bool) {
	val, ok := m.values[key]
	return val, ok
}

// Keys returns a copy of keys in insertion order.
func (m *OrderedMap[V]) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

func (m *OrderedMap[V]) Len() int {
	return len(m.keys)
}

// Range calls fn for every entry in insertion order until fn returns false.
func (m *OrderedMap[V]) Range(fn func(key string, val V) bool) {
	for _, k := range m.keys {
		if !fn(k, m.values[k]) {
			return
		}
	}
}

func (m *OrderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONMember(&buf, k, m.values[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONMember(buf *bytes.Buffer, key string, val interface{}) error {
	kb, err := json.Marshal(key)
	if err != nil {
		return err
	}
	vb, err := json.Marshal(val)
	if err != nil {
		return err
	}
	buf.Write(kb)
	buf.WriteByte(':')
	buf.Write(vb)
	return nil
}
