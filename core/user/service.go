package user

import (
	"context"
	"fmt"
	"math"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusdesk/portal/core"
)

var (
	// errors
	ErrNotFound          = core.NewNotFoundError("user")
	ErrChallengeNotFound = core.NewNotFoundError("sign-in code")
	ErrEmailExists       = errors.New("a user with this email already exists")
	ErrCodeRecentlySent  = errors.New("a sign-in code was sent recently, try again shortly")

	invalidCodeText = "invalid or expired code"

	codeHashCost = bcrypt.DefaultCost
	NowFunc      = time.Now // mockable
)

type (
	Repository interface {
		CreateUser(user User) (User, error)
		GetUserByID(id string) (User, error)
		GetUserByEmail(email string) (User, error)
		UpdateUser(user User) (User, error)

		// SaveChallenge replaces any pending challenge for the same email.
		SaveChallenge(ch Challenge) error
		GetChallenge(email string) (Challenge, error)
		// UseChallenge runs fn on the pending challenge for email while holding it exclusively,
		// then keeps the challenge (with fn's changes) or deletes it. It returns
		// ErrChallengeNotFound when there is none.
		UseChallenge(email string, fn func(ch *Challenge) (keep bool)) error
		DeleteExpiredChallenges(now time.Time) (int, error)
	}

	Service struct {
		repo           Repository
		mailSvc        core.EmailService
		codes          codeGenerator
		codeTTL        time.Duration
		resendAfter    time.Duration
		maxAttempts    int
		allowedDomains []string
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:           repo,
		mailSvc:        mailSvc,
		codes:          codeGenerator{secretKey: []byte(conf.SecretKey)},
		codeTTL:        conf.Auth.CodeTTL,
		resendAfter:    conf.Auth.CodeResendInterval,
		maxAttempts:    conf.Auth.CodeMaxAttempts,
		allowedDomains: conf.Auth.AllowedDomains,
	}
}

func (svc *Service) GetByID(id string) (User, error) {
	return svc.repo.GetUserByID(id)
}

// RequestCode mails a fresh sign-in code to email, replacing any pending one. It returns
// ErrCodeRecentlySent while the previous code is younger than the resend interval.
func (svc *Service) RequestCode(email string) error {
	email = core.CleanString(email, true /* lower */)
	if err := checkEmailDomain(email, svc.allowedDomains); err != nil {
		return err
	}

	now := NowFunc().UTC()
	prev, err := svc.repo.GetChallenge(email)
	switch {
	case err == nil:
		if !prev.Expired(now) && now.Sub(prev.IssuedAt) < svc.resendAfter {
			return ErrCodeRecentlySent
		}
	case !core.IsNotFound(err):
		return errors.Wrap(err, "finding challenge")
	}

	code, err := svc.codes.makeCode(email)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), codeHashCost)
	if err != nil {
		return errors.Wrap(err, "hashing code")
	}
	err = svc.repo.SaveChallenge(Challenge{
		Email:     email,
		CodeHash:  hash,
		IssuedAt:  now,
		ExpiresAt: now.Add(svc.codeTTL),
	})
	if err != nil {
		return errors.Wrap(err, "saving challenge")
	}

	name := nameFromEmail(email)
	if usr, err := svc.repo.GetUserByEmail(email); err == nil {
		name = usr.Name
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: name, Address: email}},
		Subject:      "Your sign-in code",
		TemplateName: "login_code",
		TemplateData: map[string]interface{}{
			"Name":    name,
			"Code":    code,
			"Minutes": int(math.Ceil(svc.codeTTL.Minutes())),
		},
	})
	return nil
}

// Login consumes the pending code for cl.Email and returns its user, creating the account on
// first sign-in. A wrong code counts as an attempt and the code dies after maxAttempts of them.
func (svc *Service) Login(cl CodeLogin) (User, error) {
	now := NowFunc().UTC()
	valid := false
	err := svc.repo.UseChallenge(cl.Email, func(ch *Challenge) bool {
		if ch.Expired(now) {
			return false
		}
		if bcrypt.CompareHashAndPassword(ch.CodeHash, []byte(cl.Code)) != nil {
			ch.Attempts++
			return ch.Attempts < svc.maxAttempts
		}
		valid = true
		return false
	})
	if err != nil && !core.IsNotFound(err) {
		return User{}, errors.Wrap(err, "using challenge")
	}
	if !valid {
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "code", Error: invalidCodeText})
	}

	usr, err := svc.repo.GetUserByEmail(cl.Email)
	if core.IsNotFound(err) {
		usr, err = svc.create(cl, now)
	}
	if err != nil {
		return User{}, err
	}
	usr.LastLogin = now
	usr.UpdatedAt = now
	return svc.repo.UpdateUser(usr)
}

func (svc *Service) create(cl CodeLogin, now time.Time) (User, error) {
	name := cl.Name
	if name == "" {
		name = nameFromEmail(cl.Email)
	}
	usr, err := svc.repo.CreateUser(User{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     cl.Email,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if errors.Cause(err) == ErrEmailExists { // concurrent first sign-in
		return svc.repo.GetUserByEmail(cl.Email)
	}
	return usr, errors.Wrap(err, "creating user")
}

// SweepChallenges deletes the challenges expired at now.
func (svc *Service) SweepChallenges(now time.Time) (int, error) {
	return svc.repo.DeleteExpiredChallenges(now.UTC())
}

// RunChallengeSweeper calls SweepChallenges every interval until ctx is done.
func (svc *Service) RunChallengeSweeper(ctx context.Context, interval time.Duration, logger core.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.SweepChallenges(NowFunc())
			if err != nil {
				logger.Error(fmt.Sprintf("sweeping sign-in codes: %v", err), err)
				continue
			}
			if n > 0 {
				logger.Debug(fmt.Sprintf("swept %d expired sign-in codes", n))
			}
		}
	}
}
