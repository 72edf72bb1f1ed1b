package account

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/dalemusser/learnhub/internal/app/store"
	"github.com/dalemusser/learnhub/internal/app/store/audit"
	"github.com/dalemusser/learnhub/internal/app/store/emailverify"
	"github.com/dalemusser/learnhub/internal/app/system/apperr"
	"github.com/dalemusser/learnhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/learnhub/internal/app/system/inputval"
	"github.com/dalemusser/learnhub/internal/app/system/mailer"
	"github.com/dalemusser/learnhub/internal/app/system/media"
	"github.com/dalemusser/learnhub/internal/app/system/normalize"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt cost for stored password hashes.
const PasswordCost = 10

const msgBadCredentials = "Invalid email or password"

// Verifications issues and checks email OTPs. *emailverify.Store
// satisfies it.
type Verifications interface {
	Create(ctx context.Context, userID primitive.ObjectID, email string, isResend bool) (*emailverify.Issued, error)
	VerifyCode(ctx context.Context, userID primitive.ObjectID, code string) (*emailverify.Verification, error)
}

type Service struct {
	Users    store.IdentityRepository
	Codes    Verifications
	Mailer   *mailer.Mailer
	Media    media.Uploader
	SiteName string

	// VerifyExpiry is shown in the OTP email.
	VerifyExpiry time.Duration
	// RequireVerification blocks login for unverified password accounts.
	RequireVerification bool

	Log *zap.Logger
}

// SignupInput is the signup body. Role defaults to student; admin cannot
// be requested.
type SignupInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=8,max=72,strongpw"`
	Role     string `json:"role" validate:"omitempty,oneof=student instructor"`
	Bio      string `json:"bio" validate:"max=500"`

	ProfileImage *multipart.FileHeader `json:"-" validate:"-"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type VerifyInput struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type ResendInput struct {
	Email string `json:"email" validate:"required,email"`
}

// Signup creates a password identity. The OTP mail is best effort: a
// send failure is logged, the account still exists and codeSent is false.
func (s *Service) Signup(ctx context.Context, in SignupInput) (u models.User, codeSent bool, err error) {
	in.Name = normalize.Name(in.Name)
	in.Email = normalize.Email(in.Email)
	in.Role = strings.ToLower(strings.TrimSpace(in.Role))
	if err := inputval.Struct(in); err != nil {
		return models.User{}, false, err
	}

	role := models.RoleStudent
	if in.Role != "" {
		role = models.Role(in.Role)
	}

	if _, err := s.Users.GetByEmail(ctx, in.Email); err == nil {
		return models.User{}, false, apperr.Conflict("Email already exists")
	} else if !errors.Is(err, store.ErrNotFound) {
		return models.User{}, false, apperr.Upstream("check email", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), PasswordCost)
	if err != nil {
		return models.User{}, false, apperr.Upstream("hash password", err)
	}

	var image string
	if in.ProfileImage != nil && s.Media != nil {
		image, err = s.Media.Upload(ctx, media.FolderProfileImages, in.ProfileImage)
		if err != nil {
			return models.User{}, false, apperr.Upstream("upload profile image", err)
		}
	}

	u, err = s.Users.Create(ctx, models.User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         role,
		AuthMethod:   models.AuthPassword,
		Bio:          strings.TrimSpace(htmlsanitize.PlainText(in.Bio)),
		ProfileImage: image,
	})
	if errors.Is(err, store.ErrDuplicateEmail) {
		return models.User{}, false, apperr.Conflict("Email already exists")
	}
	if err != nil {
		return models.User{}, false, apperr.Upstream("create user", err)
	}

	if s.Codes == nil || s.Mailer == nil {
		return u, false, nil
	}
	if err := s.sendCode(ctx, u, false); err != nil {
		s.Log.Warn("signup verification email not sent", zap.String("user_id", u.ID.Hex()), zap.Error(err))
		return u, false, nil
	}
	return u, true, nil
}

// Login checks credentials. On failure it also returns the audit event
// type describing why; the client only ever sees the generic message for
// unknown email and wrong password.
func (s *Service) Login(ctx context.Context, in LoginInput) (models.User, string, error) {
	in.Email = normalize.Email(in.Email)
	if err := inputval.Struct(in); err != nil {
		return models.User{}, "", err
	}

	u, err := s.Users.GetByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, audit.EventLoginFailedUserNotFound, apperr.Unauthenticated(msgBadCredentials)
	}
	if err != nil {
		return models.User{}, "", apperr.Upstream("load user", err)
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)) != nil {
		return u, audit.EventLoginFailedWrongPassword, apperr.Unauthenticated(msgBadCredentials)
	}
	if u.IsBanned {
		return u, audit.EventLoginFailedBanned, apperr.Forbidden("Your account has been banned")
	}
	if s.RequireVerification && !u.IsVerified {
		return u, audit.EventLoginFailedUnverified, apperr.Forbidden("Please verify your email before logging in")
	}
	return u, "", nil
}

// Me returns the identity fresh from the store.
func (s *Service) Me(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, apperr.NotFound("User not found")
	}
	if err != nil {
		return models.User{}, apperr.Upstream("load user", err)
	}
	return u, nil
}

// Verify consumes an OTP and marks the account verified. Verifying an
// already verified account succeeds without touching the code.
func (s *Service) Verify(ctx context.Context, in VerifyInput) (models.User, error) {
	in.Email = normalize.Email(in.Email)
	in.OTP = strings.TrimSpace(in.OTP)
	if err := inputval.Struct(in); err != nil {
		return models.User{}, err
	}

	invalid := apperr.Validation("Invalid or expired verification code")
	u, err := s.Users.GetByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, invalid
	}
	if err != nil {
		return models.User{}, apperr.Upstream("load user", err)
	}
	if u.IsVerified {
		return u, nil
	}

	_, err = s.Codes.VerifyCode(ctx, u.ID, in.OTP)
	switch {
	case errors.Is(err, emailverify.ErrTooManyAttempts):
		return u, apperr.RateLimited("Too many attempts. Request a new code.")
	case errors.Is(err, emailverify.ErrNotFound), errors.Is(err, emailverify.ErrInvalidCode):
		return u, invalid
	case err != nil:
		return models.User{}, apperr.Upstream("verify code", err)
	}

	if err := s.Users.MarkVerified(ctx, u.ID); err != nil {
		return models.User{}, apperr.Upstream("mark verified", err)
	}
	u.IsVerified = true
	return u, nil
}

// ResendOTP issues a fresh code. Unknown and already verified emails
// succeed silently so the endpoint does not reveal which accounts exist.
func (s *Service) ResendOTP(ctx context.Context, in ResendInput) (*models.User, error) {
	in.Email = normalize.Email(in.Email)
	if err := inputval.Struct(in); err != nil {
		return nil, err
	}
	u, err := s.Users.GetByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Upstream("load user", err)
	}
	if u.IsVerified {
		return nil, nil
	}

	err = s.sendCode(ctx, u, true)
	if errors.Is(err, emailverify.ErrTooManyResends) {
		return nil, apperr.RateLimited("Too many code requests. Please wait a few minutes.")
	}
	if err != nil {
		return nil, apperr.Upstream("send verification code", err)
	}
	return &u, nil
}

func (s *Service) sendCode(ctx context.Context, u models.User, isResend bool) error {
	if s.Codes == nil || s.Mailer == nil {
		return nil
	}
	issued, err := s.Codes.Create(ctx, u.ID, u.Email, isResend)
	if err != nil {
		return err
	}
	expiry := s.VerifyExpiry
	if expiry <= 0 {
		expiry = emailverify.DefaultExpiry
	}
	msg, err := mailer.BuildOTPEmail(mailer.OTPEmailData{
		SiteName:  s.SiteName,
		Name:      u.Name,
		Code:      issued.Code,
		ExpiresIn: mailer.FormatExpiry(expiry),
	})
	if err != nil {
		return err
	}
	msg.To = u.Email
	return s.Mailer.Send(ctx, msg)
}
