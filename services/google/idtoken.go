package googlesvc

import (
	"context"

	"github.com/pkg/errors"
	"google.golang.org/api/idtoken"

	"github.com/trezcool/ies/core/user"
)

var ErrInvalidCredential = errors.New("invalid google credential")

// Profile is the identity held by a verified Google ID token.
type Profile struct {
	GoogleID      string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// NewGoogleUser returns the sign-in data of the profile. role may be empty.
func (p Profile) NewGoogleUser(role string) user.NewGoogleUser {
	return user.NewGoogleUser{
		GoogleID: p.GoogleID,
		Name:     p.Name,
		Email:    p.Email,
		Picture:  p.Picture,
		Role:     role,
	}
}

// Verifier verifies Google ID tokens issued to the app.
type Verifier interface {
	Verify(ctx context.Context, credential string) (Profile, error)
}

type validateFunc func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

type tokenVerifier struct {
	clientID string
	validate validateFunc
}

func NewVerifier(clientID string) Verifier {
	return &tokenVerifier{clientID: clientID, validate: idtoken.Validate}
}

func (v *tokenVerifier) Verify(ctx context.Context, credential string) (Profile, error) {
	if credential == "" || v.clientID == "" {
		return Profile{}, ErrInvalidCredential
	}
	payload, err := v.validate(ctx, credential, v.clientID)
	if err != nil {
		return Profile{}, errors.Wrap(ErrInvalidCredential, err.Error())
	}
	return profileFromClaims(payload.Subject, payload.Claims), nil
}

func profileFromClaims(subject string, claims map[string]interface{}) Profile {
	str := func(key string) string {
		s, _ := claims[key].(string)
		return s
	}
	p := Profile{
		GoogleID: subject,
		Email:    str("email"),
		Name:     str("name"),
		Picture:  str("picture"),
	}
	switch v := claims["email_verified"].(type) {
	case bool:
		p.EmailVerified = v
	case string:
		p.EmailVerified = v == "true"
	}
	return p
}
