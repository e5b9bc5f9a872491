package services

import (
	"strings"

	"serviceinfo/internal/auth"
	"serviceinfo/internal/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

const activationBase = "https://example.org/activate/"

func (s *ServicesSuite) registration(email string) RegistrationInput {
	beneficiaries := 120
	return RegistrationInput{
		Email:              email,
		Password:           "s3cret-pass",
		BaseActivationLink: activationBase,
		ProviderInput: ProviderInput{
			NameEN:                       "Relief Org",
			TypeID:                       s.providerType.ID,
			PhoneNumber:                  "01-555555",
			NumberOfMonthlyBeneficiaries: &beneficiaries,
		},
	}
}

// register returns the new provider and the raw activation key from the link.
func (s *ServicesSuite) register(email string) (*models.Provider, string) {
	p, err := s.providers.Register(s.ctx, s.registration(email))
	s.Require().NoError(err)
	notice := s.notifier.last()
	s.Require().Equal("activation", notice.kind)
	s.Require().True(strings.HasPrefix(notice.link, activationBase))
	return p, strings.TrimPrefix(notice.link, activationBase)
}

func (s *ServicesSuite) TestRegisterProvider() {
	p, key := s.register("new@example.org")
	s.NotEmpty(key)
	s.Equal("Relief Org", p.NameEN)
	s.Equal(120, p.NumberOfMonthlyBeneficiaries)

	u, err := s.store.Users().GetByID(s.ctx, p.UserID)
	s.Require().NoError(err)
	s.False(u.IsActive)
	s.Equal(auth.HashToken(key), u.ActivationKey)
	s.NotEqual("s3cret-pass", u.PasswordHash)
	s.NoError(ComparePassword(u.PasswordHash, "s3cret-pass"))
	s.InDelta(1, testutil.ToFloat64(s.metrics.Registrations), 0)
}

func (s *ServicesSuite) TestRegisterValidation() {
	in := s.registration("")
	in.Password = ""
	in.PhoneNumber = ""
	negative := -1
	in.NumberOfMonthlyBeneficiaries = &negative
	_, err := s.providers.Register(s.ctx, in)
	verr := s.requireFieldError(err, "email")
	s.Equal([]string{msgBlank}, verr.Fields["email"])
	s.Equal([]string{msgBlank}, verr.Fields["password"])
	s.Contains(verr.Fields, "phone_number")
	s.Contains(verr.Fields, "number_of_monthly_beneficiaries")

	_, err = s.providers.Register(s.ctx, s.registration("not-an-email"))
	verr = s.requireFieldError(err, "email")
	s.Equal([]string{msgEmail}, verr.Fields["email"])

	in = s.registration("x@example.org")
	in.TypeID = 999
	in.NumberOfMonthlyBeneficiaries = nil
	_, err = s.providers.Register(s.ctx, in)
	verr = s.requireFieldError(err, "type")
	s.Contains(verr.Fields, "number_of_monthly_beneficiaries")

	s.Empty(s.notifier.sent)
}

func (s *ServicesSuite) TestRegisterDuplicateEmail() {
	_, err := s.providers.Register(s.ctx, s.registration("ORG@example.org"))
	verr := s.requireFieldError(err, "email")
	s.Equal([]string{"A user with that email already exists."}, verr.Fields["email"])
}

func (s *ServicesSuite) TestUpdateProviderWritesAudit() {
	in := ProviderInput{
		NameEN:      "Helping Hands Intl",
		NameFR:      "Mains Secourables",
		TypeID:      s.providerType.ID,
		PhoneNumber: "01-000000",
		Website:     "https://hands.example.org",
	}
	zero := 0
	in.NumberOfMonthlyBeneficiaries = &zero

	p, err := s.providers.Update(s.ctx, s.provider.ID, in)
	s.Require().NoError(err)
	s.Equal("Mains Secourables", p.Name("fr"))
	s.Equal(s.provider.UserID, p.UserID)

	recs, err := s.store.JiraRecords().ListUnsynced(s.ctx, 0)
	s.Require().NoError(err)
	s.Empty(recs)

	got, err := s.store.JiraRecords().Get(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal(models.UpdateProviderChange, got.UpdateType)
	s.Require().NotNil(got.ProviderID)
	s.Equal(s.provider.ID, *got.ProviderID)

	in.Website = "not a url"
	_, err = s.providers.Update(s.ctx, s.provider.ID, in)
	s.requireFieldError(err, "website")
}
