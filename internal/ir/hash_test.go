package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintDeterminism(t *testing.T) {
	v := Object{"brand": String("BMW"), "count": Int(2)}

	a, err := Fingerprint(DomainQuery, v)
	require.NoError(t, err)
	b, err := Fingerprint(DomainQuery, Object{"count": Int(2), "brand": String("BMW")})
	require.NoError(t, err)

	assert.Equal(t, a, b, "key insertion order must not matter")
	assert.Len(t, a, 64, "SHA-256 hex is 64 characters")
}

func TestFingerprintDomainSeparation(t *testing.T) {
	v := String("same")

	q, err := Fingerprint(DomainQuery, v)
	require.NoError(t, err)
	r, err := Fingerprint(DomainRepository, v)
	require.NoError(t, err)

	assert.NotEqual(t, q, r)
}
