package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/RubachokBoss/edujury/internal/config"
	"github.com/RubachokBoss/edujury/internal/models"
)

func newAuth(profiles *fakeProfileRepo, tokens *fakeTokenRepo) *authService {
	s := NewAuthService(profiles, tokens, config.AuthConfig{
		JWTSecret:  "test-secret",
		Issuer:     "edujury",
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, zerolog.Nop()).(*authService)
	s.now = fixedClock
	return s
}

func signUpRequest(email, role string) *models.SignUpRequest {
	return &models.SignUpRequest{
		Email:    email,
		Password: "correct horse battery",
		FullName: "Dr. Sarah Chen",
		Role:     role,
	}
}

func TestSignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	auth := newAuth(newFakeProfileRepo(), newFakeTokenRepo())

	res, err := auth.SignUp(ctx, signUpRequest("  Sarah.Chen@Example.com ", "jury"))
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.Equal(t, "sarah.chen@example.com", res.Profile.Email)
	assert.Equal(t, models.RoleJury, res.Profile.Role)
	assert.Equal(t, testNow.Add(time.Hour), res.ExpiresAt)
	assert.NotEqual(t, "correct horse battery", res.Profile.PasswordHash)

	profile, err := auth.CurrentIdentity(ctx, res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, res.Profile.ID, profile.ID)

	signIn, err := auth.SignIn(ctx, &models.SignInRequest{Email: "sarah.chen@example.com", Password: "correct horse battery"})
	require.NoError(t, err)
	assert.Equal(t, res.Profile.ID, signIn.Profile.ID)

	_, err = auth.SignIn(ctx, &models.SignInRequest{Email: "sarah.chen@example.com", Password: "wrong password"})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = auth.SignIn(ctx, &models.SignInRequest{Email: "nobody@example.com", Password: "correct horse battery"})
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestSignUpDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	auth := newAuth(newFakeProfileRepo(), newFakeTokenRepo())

	_, err := auth.SignUp(ctx, signUpRequest("jury@example.com", "jury"))
	require.NoError(t, err)

	_, err = auth.SignUp(ctx, signUpRequest("JURY@example.com", "student"))
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestSignUpAdminOnlyWhileNoneExists(t *testing.T) {
	ctx := context.Background()
	auth := newAuth(newFakeProfileRepo(), newFakeTokenRepo())

	_, err := auth.SignUp(ctx, signUpRequest("first@example.com", "admin"))
	require.NoError(t, err)

	_, err = auth.SignUp(ctx, signUpRequest("second@example.com", "admin"))
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestSignUpInvalidRole(t *testing.T) {
	auth := newAuth(newFakeProfileRepo(), newFakeTokenRepo())

	_, err := auth.SignUp(context.Background(), signUpRequest("x@example.com", "dean"))
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "role", verr.Fields[0].Field)
}

func TestSignUpBackendFailure(t *testing.T) {
	profiles := newFakeProfileRepo()
	profiles.fail = errBackend
	auth := newAuth(profiles, newFakeTokenRepo())

	_, err := auth.SignUp(context.Background(), signUpRequest("x@example.com", "jury"))
	assert.True(t, models.IsCollaboratorError(err))
	assert.ErrorIs(t, err, errBackend)
}

func TestSignOutRevokesToken(t *testing.T) {
	ctx := context.Background()
	tokens := newFakeTokenRepo()
	auth := newAuth(newFakeProfileRepo(), tokens)

	res, err := auth.SignUp(ctx, signUpRequest("coord@example.com", "coordinator"))
	require.NoError(t, err)

	require.NoError(t, auth.SignOut(ctx, res.AccessToken))

	_, err = auth.CurrentIdentity(ctx, res.AccessToken)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	// A fresh sign-in is unaffected.
	again, err := auth.SignIn(ctx, &models.SignInRequest{Email: "coord@example.com", Password: "correct horse battery"})
	require.NoError(t, err)
	_, err = auth.CurrentIdentity(ctx, again.AccessToken)
	assert.NoError(t, err)
}

func TestSignOutPurgesExpiredRevocations(t *testing.T) {
	tokens := newFakeTokenRepo()
	tokens.revoked["stale"] = testNow.Add(-time.Minute)
	auth := newAuth(newFakeProfileRepo(), tokens)

	res, err := auth.SignUp(context.Background(), signUpRequest("a@example.com", "jury"))
	require.NoError(t, err)
	require.NoError(t, auth.SignOut(context.Background(), res.AccessToken))

	assert.NotContains(t, tokens.revoked, "stale")
	assert.Len(t, tokens.revoked, 1)
}

func TestCurrentIdentityRejectsBadTokens(t *testing.T) {
	ctx := context.Background()
	profiles := newFakeProfileRepo()
	auth := newAuth(profiles, newFakeTokenRepo())

	res, err := auth.SignUp(ctx, signUpRequest("jury@example.com", "jury"))
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := auth.CurrentIdentity(ctx, "not-a-token")
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("expired", func(t *testing.T) {
		later := newAuth(profiles, newFakeTokenRepo())
		later.now = func() time.Time { return testNow.Add(2 * time.Hour) }
		_, err := later.CurrentIdentity(ctx, res.AccessToken)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("wrong secret", func(t *testing.T) {
		claims := tokenClaims{
			Role: "admin",
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        "jti",
				Subject:   res.Profile.ID,
				Issuer:    "edujury",
				ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
			},
		}
		forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
		require.NoError(t, err)

		_, err = auth.CurrentIdentity(ctx, forged)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})

	t.Run("deactivated profile", func(t *testing.T) {
		require.NoError(t, profiles.Deactivate(ctx, res.Profile.ID))
		_, err := auth.CurrentIdentity(ctx, res.AccessToken)
		assert.ErrorIs(t, err, models.ErrUnauthorized)
	})
}
