package update

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSkipSetAddContainsRemove(t *testing.T) {
	s := &skipSet{}
	assert.True(t, s.add(encKey(5)))
	assert.False(t, s.add(encKey(5)))
	assert.True(t, s.contains(encKey(5)))
	assert.False(t, s.contains(encKey(6)))
	assert.Equal(t, 1, s.len())

	s.remove(encKey(5))
	assert.False(t, s.contains(encKey(5)))
	assert.Equal(t, 0, s.len())
}

func TestSkipSetOrderIndependent(t *testing.T) {
	s := &skipSet{}
	s.add(encKey(5))
	s.add(encKey(1))
	s.add(encKey(3))
	assert.True(t, s.contains(encKey(1)))
	assert.True(t, s.contains(encKey(3)))
	assert.True(t, s.contains(encKey(5)))
	assert.Equal(t, 3, s.len())
}
