package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eduportal/internal/models"
)

func TestRememberTokenRoundTrip(t *testing.T) {
	token, err := IssueRememberToken("secret", models.KindStudent, 42, time.Hour)
	require.NoError(t, err)

	kind, id, err := ParseRememberToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, models.KindStudent, kind)
	assert.Equal(t, int64(42), id)
}

func TestParseRememberTokenRejects(t *testing.T) {
	valid, err := IssueRememberToken("secret", models.KindTeacher, 7, time.Hour)
	require.NoError(t, err)

	expired, err := IssueRememberToken("secret", models.KindStudent, 7, -time.Hour)
	require.NoError(t, err)

	adminKind, err := IssueRememberToken("secret", models.KindAdmin, 7, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{"wrong secret", "other", valid},
		{"garbage token", "secret", "not.a.jwt"},
		{"expired token", "secret", expired},
		{"admin kind not restorable", "secret", adminKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, id, err := ParseRememberToken(tt.secret, tt.token)
			assert.ErrorIs(t, err, ErrInvalidRememberToken)
			assert.Equal(t, models.KindNone, kind)
			assert.Zero(t, id)
		})
	}
}
