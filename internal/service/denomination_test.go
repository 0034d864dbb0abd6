package service_test

import (
	"testing"

	"cashledger/internal/apierror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDenominationTotal(t *testing.T) {
	c := testCounter()

	total, err := c.Total(map[string]int{"10000": 2, "5000": 1, "1000": 3})
	require.NoError(t, err)
	assert.Equal(t, "28000", total.String())
}

func TestDenominationTotalEmpty(t *testing.T) {
	c := testCounter()

	total, err := c.Total(map[string]int{})
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestDenominationNormalizesKey(t *testing.T) {
	c := testCounter()

	// "500.00" counts against the configured "500".
	total, err := c.Total(map[string]int{"500.00": 4})
	require.NoError(t, err)
	assert.Equal(t, "2000", total.String())
}

func TestDenominationUnknown(t *testing.T) {
	c := testCounter()

	_, err := c.Total(map[string]int{"7": 3})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}

func TestDenominationNegativeCount(t *testing.T) {
	c := testCounter()

	_, err := c.Total(map[string]int{"500": -1})
	require.Error(t, err)
	assert.True(t, apierror.IsKind(err, apierror.KindValidation))
}
