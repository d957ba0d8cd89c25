package cognito

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIDP struct {
	initiateAuth func(*cognitoidentityprovider.InitiateAuthInput) (*cognitoidentityprovider.InitiateAuthOutput, error)
	getUser      func(*cognitoidentityprovider.GetUserInput) (*cognitoidentityprovider.GetUserOutput, error)
	getUserCalls int
}

func (f *fakeIDP) InitiateAuth(ctx context.Context, in *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error) {
	return f.initiateAuth(in)
}

func (f *fakeIDP) GetUser(ctx context.Context, in *cognitoidentityprovider.GetUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GetUserOutput, error) {
	f.getUserCalls++
	return f.getUser(in)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testManager(idp *fakeIDP) *Manager {
	return &Manager{
		api:      idp,
		clientID: "client-1",
		log:      discardLogger(),
		now:      func() time.Time { return time.Date(2025, 6, 14, 10, 0, 0, 0, time.UTC) },
	}
}

func signedIDToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

func authResult(idToken string) *cognitoidentityprovider.InitiateAuthOutput {
	return &cognitoidentityprovider.InitiateAuthOutput{
		AuthenticationResult: &types.AuthenticationResultType{
			IdToken:      aws.String(idToken),
			AccessToken:  aws.String("access-token"),
			RefreshToken: aws.String("refresh-token"),
			ExpiresIn:    3600,
		},
	}
}

func TestNewFailsFastOnMissingConfig(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.ElementsMatch(t, []string{"USER_POOL_ID", "USER_POOL_CLIENT_ID"}, cfgErr.Missing)
}

func TestRegionDerivedFromPoolID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "us-west-2", regionOf("us-west-2_AbCdEfGhI"))
	assert.Empty(t, regionOf("not-a-pool-id"))
}

func TestSignInSuccessWithEmailClaim(t *testing.T) {
	t.Parallel()

	idToken := signedIDToken(t, jwt.MapClaims{"email": "clerk@ward.example"})
	idp := &fakeIDP{
		initiateAuth: func(in *cognitoidentityprovider.InitiateAuthInput) (*cognitoidentityprovider.InitiateAuthOutput, error) {
			assert.Equal(t, types.AuthFlowTypeUserPasswordAuth, in.AuthFlow)
			assert.Equal(t, "clerk@ward.example", in.AuthParameters["USERNAME"])
			return authResult(idToken), nil
		},
	}
	m := testManager(idp)

	sess, err := m.SignIn(t.Context(), "clerk@ward.example", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "clerk@ward.example", sess.Email)
	assert.Equal(t, "access-token", sess.AccessToken)
	assert.Equal(t, time.Date(2025, 6, 14, 11, 0, 0, 0, time.UTC), sess.ExpiresAt)
	assert.Zero(t, idp.getUserCalls, "no attribute fetch when the claim is present")
}

func TestSignInFallsBackToAttributeFetch(t *testing.T) {
	t.Parallel()

	idToken := signedIDToken(t, jwt.MapClaims{"sub": "user-1"})
	idp := &fakeIDP{
		initiateAuth: func(in *cognitoidentityprovider.InitiateAuthInput) (*cognitoidentityprovider.InitiateAuthOutput, error) {
			return authResult(idToken), nil
		},
		getUser: func(in *cognitoidentityprovider.GetUserInput) (*cognitoidentityprovider.GetUserOutput, error) {
			assert.Equal(t, "access-token", aws.ToString(in.AccessToken))
			return &cognitoidentityprovider.GetUserOutput{
				UserAttributes: []types.AttributeType{
					{Name: aws.String("sub"), Value: aws.String("user-1")},
					{Name: aws.String("email"), Value: aws.String("clerk@ward.example")},
				},
			}, nil
		},
	}
	m := testManager(idp)

	sess, err := m.SignIn(t.Context(), "clerk@ward.example", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "clerk@ward.example", sess.Email)
	assert.Equal(t, 1, idp.getUserCalls)
}

func TestSignInInvalidCredentials(t *testing.T) {
	t.Parallel()

	idp := &fakeIDP{
		initiateAuth: func(in *cognitoidentityprovider.InitiateAuthInput) (*cognitoidentityprovider.InitiateAuthOutput, error) {
			return nil, &types.NotAuthorizedException{Message: aws.String("Incorrect username or password.")}
		},
	}
	m := testManager(idp)

	_, err := m.SignIn(t.Context(), "clerk@ward.example", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignInUnknownUserIsInvalidCredentials(t *testing.T) {
	t.Parallel()

	idp := &fakeIDP{
		initiateAuth: func(in *cognitoidentityprovider.InitiateAuthInput) (*cognitoidentityprovider.InitiateAuthOutput, error) {
			return nil, &types.UserNotFoundException{Message: aws.String("User does not exist.")}
		},
	}
	m := testManager(idp)

	_, err := m.SignIn(t.Context(), "stranger@ward.example", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignInChallengeUnsupported(t *testing.T) {
	t.Parallel()

	idp := &fakeIDP{
		initiateAuth: func(in *cognitoidentityprovider.InitiateAuthInput) (*cognitoidentityprovider.InitiateAuthOutput, error) {
			return &cognitoidentityprovider.InitiateAuthOutput{
				ChallengeName: types.ChallengeNameTypeNewPasswordRequired,
			}, nil
		},
	}
	m := testManager(idp)

	_, err := m.SignIn(t.Context(), "clerk@ward.example", "expired-password")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}
