package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionDecodeMove(t *testing.T) {
	var a Action
	require.NoError(t, json.Unmarshal([]byte(`{"type":"move","dx":5,"dy":-3}`), &a))
	assert.Equal(t, Action{Type: ActionMove, DX: 5, DY: -3}, a)
}

func TestActionDecodeMovePartialDeltas(t *testing.T) {
	var a Action
	require.NoError(t, json.Unmarshal([]byte(`{"type":"move","dx":2}`), &a))
	assert.Equal(t, 2, a.DX)
	assert.Zero(t, a.DY)
}

func TestActionDecodeAttackDefaultDamage(t *testing.T) {
	var a Action
	require.NoError(t, json.Unmarshal([]byte(`{"type":"attack","targetId":"b"}`), &a))
	assert.Equal(t, Action{Type: ActionAttack, TargetID: "b", Damage: DefaultDamage}, a)
}

func TestActionDecodeAttackExplicitDamage(t *testing.T) {
	var a Action
	require.NoError(t, json.Unmarshal([]byte(`{"type":"attack","targetId":"b","damage":30}`), &a))
	assert.Equal(t, 30, a.Damage)
}

func TestActionDecodeHeal(t *testing.T) {
	var a Action
	require.NoError(t, json.Unmarshal([]byte(`{"type":"heal"}`), &a))
	assert.Equal(t, ActionHeal, a.Type)
}

func TestActionDecodeUnknownType(t *testing.T) {
	var a Action
	err := json.Unmarshal([]byte(`{"type":"teleport"}`), &a)
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestActionEncodeOmitsUnrelatedFields(t *testing.T) {
	raw, err := json.Marshal(Action{Type: ActionHeal})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"heal"}`, string(raw))

	raw, err = json.Marshal(Action{Type: ActionAttack, TargetID: "b", Damage: 30})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"attack","targetId":"b","damage":30}`, string(raw))
}
