package firestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresClient(t *testing.T) {
	_, err := New(nil, Config{}, nil)
	require.Error(t, err)
}

func TestEmailIDIsCaseInsensitive(t *testing.T) {
	assert.Equal(t, emailID("Ann@Example.com "), emailID("ann@example.com"))
	assert.NotEqual(t, emailID("ann@example.com"), emailID("bob@example.com"))
	assert.Len(t, emailID("x"), 32)
}
