package procprobe

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSelfIsAlive(t *testing.T) {
	assert.True(t, Alive(os.Getpid()))
}

func TestZeroAndNegativeAreNotAlive(t *testing.T) {
	assert.False(t, Alive(0))
	assert.False(t, Alive(-1))
}

func TestImplausiblyHighPIDIsNotAlive(t *testing.T) {
	assert.False(t, Alive(1<<30))
}
