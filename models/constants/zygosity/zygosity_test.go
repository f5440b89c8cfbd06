package zygosity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromGenotype(t *testing.T) {
	assert.Equal(t, Heterozygous, FromGenotype("1|0"))
	assert.Equal(t, Heterozygous, FromGenotype("0|1"))
	assert.Equal(t, Heterozygous, FromGenotype("0/1"))
	assert.Equal(t, Heterozygous, FromGenotype("1/0"))
	assert.Equal(t, Heterozygous, FromGenotype("1|2"))

	assert.Equal(t, Homozygous, FromGenotype("1/1"))
	assert.Equal(t, Homozygous, FromGenotype("1|1"))
	assert.Equal(t, Homozygous, FromGenotype("0/0"))

	// hemizygous single-allele call
	assert.Equal(t, Homozygous, FromGenotype("1"))

	assert.Equal(t, Unknown, FromGenotype("./."))
	assert.Equal(t, Unknown, FromGenotype(".|1"))
	assert.Equal(t, Unknown, FromGenotype("."))
}

func TestIsKnown(t *testing.T) {
	assert.True(t, IsKnown(Heterozygous))
	assert.True(t, IsKnown(Homozygous))
	assert.False(t, IsKnown(Unknown))
}
