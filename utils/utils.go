// Package utils holds small generic helpers shared across packages.
package utils

import (
	"cmp"
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
)

// MapToStruct is a generic function that converts a `map[string]any` into
// a new instance of the specified generic struct type `T`, following the
// struct's json tags.
//
// The generic type `T` must be a struct type. If `T` is specified as a pointer
// type (e.g., `*MyStruct`), the function will unmarshal into the dereferenced
// struct and return a pointer to it.
//
// Example:
//
//	type Category struct {
//		Name  string   `json:"name"`
//		Words []string `json:"words"`
//	}
//	input := map[string]any{"name": "animals", "words": []any{"dog", "cat"}}
//	category, err := MapToStruct[Category](input)
//	// category will be Category{Name: "animals", Words: []string{"dog", "cat"}}
func MapToStruct[T any](input map[string]any) (T, error) {
	var zero T

	if input == nil {
		return zero, fmt.Errorf("MapToStruct: input map cannot be nil")
	}

	typ := reflect.TypeOf(zero)
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return zero, fmt.Errorf("MapToStruct: generic type T must be a struct type (or pointer to struct), got %s", typ.Kind())
	}

	jsonBytes, err := json.Marshal(input)
	if err != nil {
		return zero, fmt.Errorf("MapToStruct: failed to marshal input map to JSON: %w", err)
	}

	var result T
	if err := json.Unmarshal(jsonBytes, &result); err != nil {
		return zero, fmt.Errorf("MapToStruct: failed to unmarshal JSON to target struct: %w", err)
	}

	return result, nil
}

// GroupBy splits items by key. Keys are returned in order of first
// appearance and items keep their relative order within a group.
func GroupBy[T any, K comparable](items []T, key func(T) K) ([]K, map[K][]T) {
	var keys []K
	groups := make(map[K][]T)
	for _, item := range items {
		k := key(item)
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], item)
	}
	return keys, groups
}

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
