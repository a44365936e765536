package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type patchPayload struct {
	RoomID       NullableString     `json:"roomId"`
	PersonnelIDs NullableStringList `json:"personnelIds"`
}

func TestNullableAbsentField(t *testing.T) {
	var p patchPayload
	require.NoError(t, json.Unmarshal([]byte(`{}`), &p))
	assert.False(t, p.RoomID.Present)
	assert.False(t, p.PersonnelIDs.Present)
}

func TestNullableExplicitNull(t *testing.T) {
	var p patchPayload
	require.NoError(t, json.Unmarshal([]byte(`{"roomId":null,"personnelIds":null}`), &p))
	assert.True(t, p.RoomID.Present)
	assert.Nil(t, p.RoomID.Value)
	assert.True(t, p.PersonnelIDs.Present)
	assert.Nil(t, p.PersonnelIDs.Value)
}

func TestNullableWithValue(t *testing.T) {
	var p patchPayload
	require.NoError(t, json.Unmarshal([]byte(`{"roomId":"room-1","personnelIds":["p-1","p-2"]}`), &p))
	require.True(t, p.RoomID.Present)
	require.NotNil(t, p.RoomID.Value)
	assert.Equal(t, "room-1", *p.RoomID.Value)
	assert.Equal(t, []string{"p-1", "p-2"}, p.PersonnelIDs.Value)
}
