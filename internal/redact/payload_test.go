package redact

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicy_MaskPayload(t *testing.T) {
	p := DefaultPolicy()

	res := p.MaskPayload(`{"userId":"12345678-1234-1234-1234-123456789012","status":"ok"}`)
	require.Equal(t, PayloadRewritten, res.Outcome)
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Masked)

	var got map[string]string
	require.NoError(t, json.Unmarshal([]byte(res.Value), &got))
	assert.Equal(t, "ok", got["status"])
	assert.Equal(t, "123"+strings.Repeat("*", 33), got["userId"])
}

func TestPolicy_MaskPayloadOutcomes(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name    string
		in      string
		want    string
		outcome PayloadOutcome
		masked  int
		wantErr bool
	}{
		{
			name:    "malformed object keeps original",
			in:      `{"userId": not-json}`,
			want:    `{"userId": not-json}`,
			outcome: PayloadInvalid,
			wantErr: true,
		},
		{
			name:    "trailing data after object",
			in:      `{"userId":"abc"}}`,
			want:    `{"userId":"abc"}}`,
			outcome: PayloadInvalid,
			wantErr: true,
		},
		{
			name:    "plain string",
			in:      "6f1c2d9e-7a41-4c55-9a0b-3e2f11d0c8aa",
			want:    "6f1c2d9e-7a41-4c55-9a0b-3e2f11d0c8aa",
			outcome: PayloadNotObject,
		},
		{
			name:    "array is not an object",
			in:      `[{"userId":"abc"}]`,
			want:    `[{"userId":"abc"}]`,
			outcome: PayloadNotObject,
		},
		{
			name:    "numbers keep their literal form",
			in:      `{"Id":12345678901234567890,"UserId":"abc","Total":12.50}`,
			want:    `{"Id":12345678901234567890,"Total":12.50,"UserId":"***"}`,
			outcome: PayloadRewritten,
			masked:  1,
		},
		{
			name:    "only top-level strings are masked",
			in:      `{"buyer":{"buyerId":"b-1"},"userId":42}`,
			want:    `{"buyer":{"buyerId":"b-1"},"userId":42}`,
			outcome: PayloadRewritten,
		},
		{
			name:    "html characters are not escaped",
			in:      `{"note":"a<b>&c"}`,
			want:    `{"note":"a<b>&c"}`,
			outcome: PayloadRewritten,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := p.MaskPayload(tt.in)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Equal(t, tt.want, res.Value)
			assert.Equal(t, tt.masked, res.Masked)
			if tt.wantErr {
				assert.Error(t, res.Err)
			} else {
				assert.NoError(t, res.Err)
			}
		})
	}
}

func TestPayloadOutcome_String(t *testing.T) {
	assert.Equal(t, "not_object", PayloadNotObject.String())
	assert.Equal(t, "rewritten", PayloadRewritten.String())
	assert.Equal(t, "invalid", PayloadInvalid.String())
	assert.Equal(t, "PayloadOutcome(9)", PayloadOutcome(9).String())
}

func TestLooksLikeObject(t *testing.T) {
	assert.True(t, LooksLikeObject("{}"))
	assert.True(t, LooksLikeObject(`{"a":1}`))
	assert.False(t, LooksLikeObject("{"))
	assert.False(t, LooksLikeObject(" {}"))
	assert.False(t, LooksLikeObject(""))
}
