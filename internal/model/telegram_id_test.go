package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTelegramID(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    TelegramID
		wantErr bool
	}{
		{name: "plain", in: "123456789", want: "123456789"},
		{name: "padded", in: "  42 ", want: "42"},
		{name: "leading zeros", in: "007", want: "7"},
		{name: "empty", in: "", wantErr: true},
		{name: "negative", in: "-5", wantErr: true},
		{name: "zero", in: "0", wantErr: true},
		{name: "letters", in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTelegramID(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidTelegramID)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTelegramID_UnmarshalJSON(t *testing.T) {
	var payload struct {
		ID TelegramID `json:"id"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"id": 987654321}`), &payload))
	assert.Equal(t, TelegramID("987654321"), payload.ID)

	require.NoError(t, json.Unmarshal([]byte(`{"id": "987654321"}`), &payload))
	assert.Equal(t, TelegramID("987654321"), payload.ID)

	require.Error(t, json.Unmarshal([]byte(`{"id": "nope"}`), &payload))
}
