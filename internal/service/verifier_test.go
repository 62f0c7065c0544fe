package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"eduportal/internal/models"
	"eduportal/internal/repository"
)

func TestVerify(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewPrincipalRepository(db)
	verifier := NewCredentialVerifier(repo, zap.NewNop())

	student := seedStudent(t, db, "Ada", "ada@example.com", true)
	seedStudent(t, db, "Bob", "bob@example.com", false)
	seedTeacher(t, db, "Tess", "tess@example.com", models.TeacherApproved)
	seedTeacher(t, db, "Pat", "pat@example.com", models.TeacherPending)

	tests := []struct {
		name    string
		kind    models.PrincipalKind
		email   string
		secret  string
		wantErr error
	}{
		{"student success", models.KindStudent, "ada@example.com", "correct-horse1", nil},
		{"teacher success", models.KindTeacher, "tess@example.com", "correct-horse1", nil},
		{"unknown email", models.KindStudent, "nobody@example.com", "correct-horse1", ErrInvalidCredentials},
		{"wrong password", models.KindStudent, "ada@example.com", "wrong", ErrInvalidCredentials},
		{"unverified student", models.KindStudent, "bob@example.com", "correct-horse1", ErrNotVerified},
		{"pending teacher", models.KindTeacher, "pat@example.com", "correct-horse1", ErrNotApproved},
		{"kind mismatch", models.KindTeacher, "ada@example.com", "correct-horse1", ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			principal, err := verifier.Verify(tt.kind, tt.email, tt.secret)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, principal)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, principal)
			assert.Equal(t, tt.email, principal.Email)
			assert.Equal(t, tt.kind, principal.Kind)
		})
	}

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		_, errUnknown := verifier.Verify(models.KindStudent, "nobody@example.com", "whatever")
		_, errWrong := verifier.Verify(models.KindStudent, "ada@example.com", "whatever")
		assert.Equal(t, errUnknown, errWrong)
	})

	t.Run("gates apply only after the password check", func(t *testing.T) {
		// Wrong password on an unverified account must not leak that the
		// account exists but is unverified.
		_, err := verifier.Verify(models.KindStudent, "bob@example.com", "wrong")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("successful login touches last_login", func(t *testing.T) {
		_, err := verifier.Verify(models.KindStudent, "ada@example.com", "correct-horse1")
		require.NoError(t, err)
		reloaded, err := repo.GetByID(models.KindStudent, student.ID)
		require.NoError(t, err)
		assert.NotNil(t, reloaded.LastLogin)
	})
}

func TestVerifyRejectsMalformedInput(t *testing.T) {
	db := newTestDB(t)
	verifier := NewCredentialVerifier(repository.NewPrincipalRepository(db), zap.NewNop())

	_, err := verifier.Verify(models.KindStudent, "not-an-email", "secret")
	assert.Error(t, err)

	_, err = verifier.Verify(models.KindStudent, "ada@example.com", "")
	assert.Error(t, err)
}
