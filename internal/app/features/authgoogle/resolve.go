// internal/app/features/authgoogle/resolve.go
package authgoogle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/learnhub/internal/app/store"
	"github.com/dalemusser/learnhub/internal/app/system/normalize"
	"github.com/dalemusser/learnhub/internal/domain/models"
	"golang.org/x/oauth2"
)

// DefaultUserInfoURL is Google's v2 userinfo endpoint.
const DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var (
	errUserBanned      = errors.New("user banned")
	errEmailUnverified = errors.New("google email not verified")
)

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func fetchUserInfo(ctx context.Context, cfg *oauth2.Config, token *oauth2.Token, url string) (*googleUserInfo, error) {
	resp, err := cfg.Client(ctx, token).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch user info: unexpected status %d", resp.StatusCode)
	}
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode user info: %w", err)
	}
	if info.Email == "" || info.ID == "" {
		return nil, errors.New("user info missing id or email")
	}
	return &info, nil
}

// resolveUser finds the identity for info by email, linking the Google id
// and marking it verified, or creates a verified student. created reports
// which happened.
func resolveUser(ctx context.Context, users store.IdentityRepository, info *googleUserInfo) (u models.User, created bool, err error) {
	if !info.EmailVerified {
		return models.User{}, false, errEmailUnverified
	}
	email := normalize.Email(info.Email)

	u, err = users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if u.IsBanned {
			return u, false, errUserBanned
		}
		if u.GoogleID == "" {
			if err := users.LinkGoogle(ctx, u.ID, info.ID); err != nil {
				return u, false, fmt.Errorf("link google id: %w", err)
			}
			u.GoogleID, u.IsVerified = info.ID, true
		}
		if !u.IsVerified {
			if err := users.MarkVerified(ctx, u.ID); err != nil {
				return u, false, fmt.Errorf("mark verified: %w", err)
			}
			u.IsVerified = true
		}
		return u, false, nil
	case !errors.Is(err, store.ErrNotFound):
		return models.User{}, false, err
	}

	name := normalize.Name(info.Name)
	if name == "" {
		name = email
	}
	u, err = users.Create(ctx, models.User{
		Name:         name,
		Email:        email,
		Role:         models.RoleStudent,
		AuthMethod:   models.AuthGoogle,
		GoogleID:     info.ID,
		ProfileImage: info.Picture,
		IsVerified:   true,
	})
	if errors.Is(err, store.ErrDuplicateEmail) {
		// Lost a race with a concurrent first sign-in.
		u, err = users.GetByEmail(ctx, email)
		return u, false, err
	}
	if err != nil {
		return models.User{}, false, err
	}
	return u, true, nil
}
