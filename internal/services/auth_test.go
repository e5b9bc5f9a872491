package services

import (
	"serviceinfo/internal/auth"

	"github.com/google/uuid"
)

func (s *ServicesSuite) TestActivateAndLogin() {
	p, key := s.register("new@example.org")

	_, err := s.auth.LoginLocal(s.ctx, LoginInput{Email: "new@example.org", Password: "s3cret-pass"})
	s.ErrorIs(err, ErrInactiveAccount)

	session, err := s.auth.Activate(s.ctx, key)
	s.Require().NoError(err)
	s.Equal("new@example.org", session.User.Email)
	s.NotEmpty(session.AccessToken)

	claims, err := s.jwt.VerifyToken(session.AccessToken, auth.AccessToken)
	s.Require().NoError(err)
	s.Equal(p.UserID.String(), claims.UserID)

	// Keys are single use.
	_, err = s.auth.Activate(s.ctx, key)
	s.requireFieldError(err, "activation_key")

	session, err = s.auth.LoginLocal(s.ctx, LoginInput{Email: "NEW@example.org", Password: "s3cret-pass"})
	s.Require().NoError(err)
	s.Equal(p.UserID.String(), session.User.ID)

	_, err = s.auth.LoginLocal(s.ctx, LoginInput{Email: "new@example.org", Password: "wrong"})
	s.ErrorIs(err, ErrInvalidCredentials)
	_, err = s.auth.LoginLocal(s.ctx, LoginInput{Email: "nobody@example.org", Password: "wrong"})
	s.ErrorIs(err, ErrInvalidCredentials)
}

func (s *ServicesSuite) TestLoginBlankFields() {
	_, err := s.auth.LoginLocal(s.ctx, LoginInput{Email: "a@example.org"})
	verr := s.requireFieldError(err, "password")
	s.Equal(map[string][]string{"password": {msgBlank}}, verr.Fields)
}

func (s *ServicesSuite) TestRefreshAndLogout() {
	p, key := s.register("new@example.org")
	session, err := s.auth.Activate(s.ctx, key)
	s.Require().NoError(err)

	pair, err := s.auth.Refresh(s.ctx, session.RefreshToken)
	s.Require().NoError(err)
	s.NotEmpty(pair.AccessToken)

	_, err = s.auth.Refresh(s.ctx, session.AccessToken)
	s.ErrorIs(err, ErrInvalidCredentials)

	ok, err := s.auth.CheckTokenVersion(s.ctx, p.UserID.String(), 0)
	s.Require().NoError(err)
	s.True(ok)

	s.Require().NoError(s.auth.Logout(s.ctx, p.UserID))

	_, err = s.auth.Refresh(s.ctx, session.RefreshToken)
	s.ErrorIs(err, ErrInvalidCredentials)
	ok, err = s.auth.CheckTokenVersion(s.ctx, p.UserID.String(), 0)
	s.Require().NoError(err)
	s.False(ok)
	ok, err = s.auth.CheckTokenVersion(s.ctx, uuid.NewString(), 0)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ServicesSuite) TestResendActivation() {
	in := ResendActivationInput{Email: "nobody@example.org", BaseActivationLink: activationBase}
	verr := s.requireFieldError(s.auth.ResendActivation(s.ctx, in), "email")
	s.Equal([]string{"No user with that email"}, verr.Fields["email"])

	in.Email = "org@example.org"
	verr = s.requireFieldError(s.auth.ResendActivation(s.ctx, in), "email")
	s.Equal([]string{"User is not pending activation"}, verr.Fields["email"])

	_, oldKey := s.register("new@example.org")
	in.Email = "new@example.org"
	s.Require().NoError(s.auth.ResendActivation(s.ctx, in))
	newKey := s.notifier.last().link[len(activationBase):]
	s.NotEqual(oldKey, newKey)

	_, err := s.auth.Activate(s.ctx, oldKey)
	s.requireFieldError(err, "activation_key")
	_, err = s.auth.Activate(s.ctx, newKey)
	s.Require().NoError(err)
}

func (s *ServicesSuite) TestMe() {
	u, err := s.store.Users().GetByID(s.ctx, s.provider.UserID)
	s.Require().NoError(err)

	info, p, err := s.auth.Me(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Equal("org@example.org", info.Email)
	s.Require().NotNil(p)
	s.Equal(s.provider.ID, p.ID)
	s.NotNil(info.Roles)
}
