package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/ies/core"
)

var (
	// errors
	ErrNotFound         = errors.New("user not found")
	ErrEmailExists      = errors.New("a user with this email already exists")
	ErrNoPassword       = errors.New("this account signs in with Google")
	ErrInvalidUID       = errors.New("invalid uid")
	errInvalidValue     = "invalid value"
	errEmailNotVerified = errors.New("google account email is not verified")
)

type (
	Repository interface {
		// CheckEmailUniqueness returns ErrEmailExists if a User other than excludedUsers has this email.
		CheckEmailUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		CreateUser(ctx context.Context, usr User) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		// QueryFilter.Search does a case-insensitive match on one of User.Name or User.Email.
		QueryUsers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetUser(ctx context.Context, filter GetFilter) (User, error)
		// GetUsersByID ignores unknown ids.
		GetUsersByID(ctx context.Context, ids ...string) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		logger  core.Logger
		tokens  tokenGenerator
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		mailSvc: mailSvc,
		logger:  logger,
		tokens:  newTokenGenerator(conf.SecretKey, conf.PasswordResetTimeoutDelta),
	}
}

func (svc *Service) CheckUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	if err := svc.repo.CheckEmailUniqueness(ctx, email, exclUsers...); err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return errors.Wrap(err, "checking email uniqueness")
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	role := nu.Role
	if role == "" {
		role = RoleStudent
	}
	now := time.Now().UTC()
	usr := User{
		Name:      nu.Name,
		Email:     nu.Email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// SignInWithGoogle finds the User linked to a verified Google identity.
// A User with the same email gets linked to the Google account; otherwise a new User is created.
func (svc *Service) SignInWithGoogle(ctx context.Context, gu NewGoogleUser, emailVerified bool) (usr User, created bool, err error) {
	usr, err = svc.repo.GetUser(ctx, GetFilter{GoogleID: gu.GoogleID})
	if err == nil {
		return usr, false, nil
	} else if errors.Cause(err) != ErrNotFound {
		return User{}, false, errors.Wrap(err, "finding user by google id")
	}

	if !emailVerified {
		return User{}, false, core.NewValidationError(errEmailNotVerified)
	}

	usr, err = svc.repo.GetUser(ctx, GetFilter{Email: gu.Email})
	switch errors.Cause(err) {
	case nil:
		usr.GoogleID = gu.GoogleID
		if usr.Picture == "" {
			usr.Picture = gu.Picture
		}
		usr.UpdatedAt = time.Now().UTC()
		usr, err = svc.repo.UpdateUser(ctx, usr)
		return usr, false, errors.Wrap(err, "linking google account")
	case ErrNotFound:
	default:
		return User{}, false, errors.Wrap(err, "finding user by email")
	}

	role := gu.Role
	if role == "" {
		role = RoleStudent
	}
	now := time.Now().UTC()
	usr, err = svc.repo.CreateUser(ctx, User{
		Name:      gu.Name,
		Email:     gu.Email,
		GoogleID:  gu.GoogleID,
		Picture:   gu.Picture,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	return usr, true, errors.Wrap(err, "creating google user")
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Email: core.CleanString(email, true /* lower */)})
}

// GetRefs resolves the given User ids. Unknown ids are absent from the map.
func (svc *Service) GetRefs(ctx context.Context, ids ...string) (map[string]*Ref, error) {
	refs := make(map[string]*Ref, len(ids))
	if len(ids) == 0 {
		return refs, nil
	}
	users, err := svc.repo.GetUsersByID(ctx, ids...)
	if err != nil {
		return nil, errors.Wrap(err, "getting users by id")
	}
	for i := range users {
		refs[users[i].ID] = users[i].Ref()
	}
	return refs, nil
}

// ActiveStudentAddresses returns the email addresses of all active students.
func (svc *Service) ActiveStudentAddresses(ctx context.Context) ([]mail.Address, error) {
	active := true
	students, err := svc.repo.QueryUsers(ctx, &QueryFilter{Roles: []string{RoleStudent}, IsActive: &active}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	addrs := make([]mail.Address, 0, len(students))
	for _, s := range students {
		addrs = append(addrs, mail.Address{Name: s.Name, Address: s.Email})
	}
	return addrs, nil
}

func (svc *Service) Update(ctx context.Context, usr User, uu UpdateUser) (User, error) {
	usr.Name = uu.Name
	usr.Email = uu.Email
	if uu.Role != "" {
		usr.Role = uu.Role
	}
	if uu.IsActive != nil {
		usr.IsActive = *uu.IsActive
	}
	if uu.Password != "" {
		if err := usr.SetPassword(uu.Password); err != nil {
			return User{}, errors.Wrap(err, "setting password")
		}
	}
	usr.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = time.Now().UTC()
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	return svc.repo.DeleteUsersByID(ctx, ids...)
}

// MakePasswordResetToken returns the uid & token used to reset the password of usr.
func (svc *Service) MakePasswordResetToken(usr User) (uid, token string, err error) {
	token, err = svc.tokens.makeToken(usr)
	return EncodeUID(usr), token, err
}

func (svc *Service) RequestPasswordReset(ctx context.Context, email string) error {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !usr.IsActive {
		return ErrNotFound
	}
	if !usr.HasPassword() {
		return ErrNoPassword
	}
	return svc.sendPasswordResetMail(usr)
}

func (svc *Service) sendPasswordResetMail(usr User) error {
	uid, token, err := svc.MakePasswordResetToken(usr)
	if err != nil {
		return errors.Wrap(err, "making password reset token")
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Password Reset",
		TemplateName: "password_reset",
		TemplateData: map[string]string{"Name": usr.Name, "UID": uid, "Token": token},
	})
	return nil
}

func (svc *Service) ResetPassword(ctx context.Context, data ResetUserPassword) error {
	id, err := decodeUID(data.UID)
	if err != nil {
		return core.NewValidationError(ErrInvalidUID, core.FieldError{Field: "uid", Error: errInvalidValue})
	}
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(ErrInvalidUID, core.FieldError{Field: "uid", Error: errInvalidValue})
		}
		return errors.Wrap(err, "finding user by ID")
	}
	if err = svc.tokens.verifyToken(usr, data.Token); err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "token", Error: errInvalidValue})
	}

	if err = usr.SetPassword(data.Password); err != nil {
		return errors.Wrap(err, "setting password")
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = svc.repo.UpdateUser(ctx, usr)
	return errors.Wrap(err, "updating user")
}
