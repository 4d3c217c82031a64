package canonical

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalize_StringPassthrough(t *testing.T) {
	got, err := Canonicalize(Path{String: "m/44'/60'/0'/0/0"})
	require.NoError(t, err)
	require.Equal(t, "m/44'/60'/0'/0/0", got)
}

func TestCanonicalize_StructuredEquality(t *testing.T) {
	// spec.md §8 scenario 2: two structured paths with the same content in
	// different key/nesting order must canonicalize byte-identically.
	p1 := Path{Structured: &StructuredPath{
		Chain:  60,
		Domain: "example.com",
		Meta:   map[string]any{"a": 1, "b": 2},
	}}
	p2 := Path{Structured: &StructuredPath{
		Chain:  60,
		Domain: "example.com",
		Meta:   map[string]any{"b": 2, "a": 1},
	}}

	got1, err := Canonicalize(p1)
	require.NoError(t, err)
	got2, err := Canonicalize(p2)
	require.NoError(t, err)

	const want = `{"chain":60,"domain":"example.com","meta":{"a":1,"b":2}}`
	require.Equal(t, want, got1)
	require.Equal(t, got1, got2)
}

func TestCanonicalize_OmitsEmptyDomainAndNilMeta(t *testing.T) {
	got, err := Canonicalize(Path{Structured: &StructuredPath{Chain: 118}})
	require.NoError(t, err)
	require.Equal(t, `{"chain":118}`, got)
}

func TestCanonicalize_NestedObjectsAndArrays(t *testing.T) {
	p := Path{Structured: &StructuredPath{
		Chain: 60,
		Meta: map[string]any{
			"list":   []any{3, 1, 2},
			"nested": map[string]any{"z": "last", "a": "first"},
		},
	}}
	got, err := Canonicalize(p)
	require.NoError(t, err)
	require.Equal(t, `{"chain":60,"meta":{"list":[3,1,2],"nested":{"a":"first","z":"last"}}}`, got)
}

func TestCanonicalize_Idempotent(t *testing.T) {
	p := Path{Structured: &StructuredPath{Chain: 60, Domain: "a.com", Meta: map[string]any{"x": 1}}}
	first, err := Canonicalize(p)
	require.NoError(t, err)
	second, err := Canonicalize(p)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
