package services

import (
	"strings"
	"unicode"

	apperrors "github.com/yueyuegd/sonarqube/pkg/errors"
	appvalidator "github.com/yueyuegd/sonarqube/pkg/validator"
)

// organization key length is bounded independently of the name.
const organizationKeyMaxLength = 32

// OrganizationValidation validates the fields of a new organization and
// derives keys from user logins. Implementations return descriptive
// InvalidArgument errors which the provisioner propagates verbatim.
type OrganizationValidation interface {
	CheckKey(key string) error
	CheckDescription(description string) error
	CheckURL(url string) error
	CheckAvatar(avatarURL string) error
	GenerateKeyFrom(login string) string
}

// NewOrganizationValidation returns the production validation collaborator.
func NewOrganizationValidation() OrganizationValidation {
	return organizationValidation{}
}

type organizationValidation struct{}

type keyPayload struct {
	Key string `json:"key" validate:"required,orgkey,max=32"`
}

type descriptionPayload struct {
	Description string `json:"description" validate:"omitempty,max=256"`
}

type urlPayload struct {
	URL string `json:"url" validate:"omitempty,url,max=256"`
}

type avatarPayload struct {
	AvatarURL string `json:"avatar_url" validate:"omitempty,url,max=256"`
}

func (organizationValidation) CheckKey(key string) error {
	if err := appvalidator.ValidateStruct(keyPayload{Key: key}); err != nil {
		return apperrors.NewBadRequest("organization key is invalid: " + err.Error())
	}
	return nil
}

func (organizationValidation) CheckDescription(description string) error {
	if err := appvalidator.ValidateStruct(descriptionPayload{Description: description}); err != nil {
		return apperrors.NewBadRequest("organization description is invalid: " + err.Error())
	}
	return nil
}

func (organizationValidation) CheckURL(url string) error {
	if err := appvalidator.ValidateStruct(urlPayload{URL: url}); err != nil {
		return apperrors.NewBadRequest("organization url is invalid: " + err.Error())
	}
	return nil
}

func (organizationValidation) CheckAvatar(avatarURL string) error {
	if err := appvalidator.ValidateStruct(avatarPayload{AvatarURL: avatarURL}); err != nil {
		return apperrors.NewBadRequest("organization avatar is invalid: " + err.Error())
	}
	return nil
}

// GenerateKeyFrom slugifies a login into a valid organization key: lowercase,
// runs of unsupported characters collapsed into a single dash, bounded to the
// key length limit.
func (organizationValidation) GenerateKeyFrom(login string) string {
	var b strings.Builder
	lastDash := true // suppress leading dashes
	for _, r := range strings.ToLower(strings.TrimSpace(login)) {
		switch {
		case r >= 'a' && r <= 'z', unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}

	key := strings.TrimRight(b.String(), "-")
	return truncateRunes(key, organizationKeyMaxLength)
}
