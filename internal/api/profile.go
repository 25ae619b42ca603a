package api

import (
	"context"

	"github.com/lapmarkt/lapcli/internal/errs"
	"github.com/lapmarkt/lapcli/internal/httpclient"
	"github.com/lapmarkt/lapcli/internal/model"
)

// Profile binds the account profile endpoints.
type Profile struct {
	client *httpclient.Client
}

// NewProfile constructs the profile bindings.
func NewProfile(client *httpclient.Client) *Profile {
	return &Profile{client: client}
}

// Get returns the signed-in user's profile.
func (s *Profile) Get(ctx context.Context) (model.Profile, error) {
	var p model.Profile
	if err := s.client.GetJSON(ctx, "/profile", nil, &p); err != nil {
		return model.Profile{}, err
	}
	return p, nil
}

// UploadAvatar replaces the account avatar and returns its new URL.
func (s *Profile) UploadAvatar(ctx context.Context, filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", &errs.ValidationError{Field: "avatar", Message: "is required"}
	}
	if len(data) > model.MaxImageBytes {
		return "", &errs.ValidationError{Field: "avatar", Message: "must be smaller than 2MB"}
	}
	form := httpclient.NewForm().AddFile("avatar", filename, data)
	var resp struct {
		AvatarURL string `json:"avatarUrl"`
		Message   string `json:"message"`
	}
	if err := s.client.PostMultipart(ctx, "/profile/avatar", form, &resp); err != nil {
		return "", err
	}
	return resp.AvatarURL, nil
}

// RemoveAvatar deletes the account avatar.
func (s *Profile) RemoveAvatar(ctx context.Context) error {
	return s.client.Delete(ctx, "/profile/avatar", nil, nil)
}

// ChangePassword rotates the account password.
func (s *Profile) ChangePassword(ctx context.Context, change model.PasswordChange) error {
	if err := checkValid(change); err != nil {
		return err
	}
	return s.client.PostJSON(ctx, "/profile/change-password", change, nil)
}
