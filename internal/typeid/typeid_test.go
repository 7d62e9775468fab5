package typeid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_PrefixesRoundTrip(t *testing.T) {
	assert := assert.New(t)

	for _, prefix := range []string{PrefixLayer, PrefixBone, PrefixBonePoint, PrefixPin, PrefixSnapshot} {
		id := New(prefix)
		assert.True(strings.HasPrefix(id, prefix+"_"), id)
		assert.NoError(Validate(id, prefix))
	}
}

func TestValidate_WrongPrefix(t *testing.T) {
	assert := assert.New(t)

	id := NewPinID()
	assert.Error(Validate(id, PrefixBone))
	assert.Error(Validate("not-an-id", PrefixBone))
}
