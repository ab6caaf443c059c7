package model

import (
	"bytes"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewParticipantPair_OrderIndependent(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	p1, err := NewParticipantPair(a, b)
	require.NoError(t, err)
	p2, err := NewParticipantPair(b, a)
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
	assert.True(t, bytes.Compare(p1.Lo[:], p1.Hi[:]) < 0)
}

func TestNewParticipantPair_RejectsNil(t *testing.T) {
	_, err := NewParticipantPair(uuid.Nil, uuid.New())
	require.ErrorIs(t, err, ErrPairIncomplete)

	_, err = NewParticipantPair(uuid.New(), uuid.Nil)
	require.ErrorIs(t, err, ErrPairIncomplete)
}

func TestNewParticipantPair_RejectsSelf(t *testing.T) {
	id := uuid.New()
	_, err := NewParticipantPair(id, id)
	require.ErrorIs(t, err, ErrPairSelf)
}

func TestParticipantPair_Contains(t *testing.T) {
	a := uuid.New()
	b := uuid.New()
	p, err := NewParticipantPair(a, b)
	require.NoError(t, err)

	assert.True(t, p.Contains(a))
	assert.True(t, p.Contains(b))
	assert.False(t, p.Contains(uuid.New()))
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleIdeator.Valid())
	assert.True(t, RoleConsultant.Valid())
	assert.False(t, Role("admin").Valid())
	assert.False(t, Role("").Valid())
}
