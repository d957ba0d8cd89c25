// Package cognito adapts the hosted identity service to the blog's needs:
// username/password sign-in yielding a token bundle plus the operator's
// email claim. It implements none of the identity protocol itself.
package cognito

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidCredentials is returned when the identity service rejects the
// email/password pair. The caller stays signed out.
var ErrInvalidCredentials = errors.New("cognito: invalid credentials")

// Config identifies the user pool. Both fields are required; Region is
// derived from the pool id unless set.
type Config struct {
	UserPoolID string
	ClientID   string
	Region     string
	Logger     *slog.Logger
}

// ConfigError reports missing pool configuration, detected before any
// network call.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "cognito: missing configuration: " + strings.Join(e.Missing, ", ")
}

// Session is the authenticated result handed to the web layer. The web
// layer persists it (cookie session) and inspects ExpiresAt locally;
// nothing here re-checks with the identity service.
type Session struct {
	Email        string
	IDToken      string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// api is the slice of the identity provider the manager uses.
type api interface {
	InitiateAuth(ctx context.Context, in *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	GetUser(ctx context.Context, in *cognitoidentityprovider.GetUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GetUserOutput, error)
}

// Manager signs operators in against the user pool.
type Manager struct {
	api      api
	clientID string
	log      *slog.Logger
	now      func() time.Time
}

// New validates cfg and returns a Manager. Sign-in calls are
// unauthenticated at the AWS level, so no credentials are needed here.
func New(cfg Config) (*Manager, error) {
	var missing []string
	if cfg.UserPoolID == "" {
		missing = append(missing, "USER_POOL_ID")
	}
	if cfg.ClientID == "" {
		missing = append(missing, "USER_POOL_CLIENT_ID")
	}
	if len(missing) > 0 {
		return nil, &ConfigError{Missing: missing}
	}

	region := cfg.Region
	if region == "" {
		region = regionOf(cfg.UserPoolID)
	}
	if region == "" {
		return nil, &ConfigError{Missing: []string{"region (unrecognized USER_POOL_ID format)"}}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := cognitoidentityprovider.New(cognitoidentityprovider.Options{
		Region:      region,
		Credentials: aws.AnonymousCredentials{},
	})
	return &Manager{
		api:      client,
		clientID: cfg.ClientID,
		log:      logger.With("component", "cognito"),
		now:      time.Now,
	}, nil
}

// regionOf extracts the region prefix from a pool id like
// "us-west-2_AbCdEfGhI".
func regionOf(poolID string) string {
	region, _, ok := strings.Cut(poolID, "_")
	if !ok {
		return ""
	}
	return region
}

// SignIn authenticates with the USER_PASSWORD_AUTH flow. Rejected
// credentials are ErrInvalidCredentials; anything else is a transient
// identity-service failure.
func (m *Manager) SignIn(ctx context.Context, email, password string) (Session, error) {
	out, err := m.api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(m.clientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		var notAuthorized *types.NotAuthorizedException
		var userNotFound *types.UserNotFoundException
		if errors.As(err, &notAuthorized) || errors.As(err, &userNotFound) {
			m.log.Info("sign-in rejected", "email", email)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("cognito: sign in: %w", err)
	}
	if out.AuthenticationResult == nil {
		// A challenge (MFA, forced password reset) is outside this flow.
		return Session{}, fmt.Errorf("cognito: sign in requires challenge %q", out.ChallengeName)
	}

	result := out.AuthenticationResult
	sess := Session{
		IDToken:      aws.ToString(result.IdToken),
		AccessToken:  aws.ToString(result.AccessToken),
		RefreshToken: aws.ToString(result.RefreshToken),
		ExpiresAt:    m.now().Add(time.Duration(result.ExpiresIn) * time.Second),
	}

	sess.Email, err = m.resolveEmail(ctx, sess)
	if err != nil {
		return Session{}, err
	}
	m.log.Info("operator signed in", "email", sess.Email)
	return sess, nil
}

// resolveEmail reads the email claim from the ID token payload, falling
// back to an explicit attribute fetch when the claim is absent. The token
// is read, not verified: it arrived moments ago over the same TLS channel.
func (m *Manager) resolveEmail(ctx context.Context, sess Session) (string, error) {
	if email := emailClaim(sess.IDToken); email != "" {
		return email, nil
	}

	out, err := m.api.GetUser(ctx, &cognitoidentityprovider.GetUserInput{
		AccessToken: aws.String(sess.AccessToken),
	})
	if err != nil {
		return "", fmt.Errorf("cognito: fetch user attributes: %w", err)
	}
	for _, attr := range out.UserAttributes {
		if aws.ToString(attr.Name) == "email" {
			return aws.ToString(attr.Value), nil
		}
	}
	return "", fmt.Errorf("cognito: no email attribute on user")
}

func emailClaim(idToken string) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err != nil {
		return ""
	}
	email, _ := claims["email"].(string)
	return email
}
