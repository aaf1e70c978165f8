package services

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	apierrors "github.com/yukikurage/org-task-api/internal/errors"
	"github.com/yukikurage/org-task-api/internal/models"
	"github.com/yukikurage/org-task-api/internal/utils"
)

var (
	ErrInvalidOrganizationUpdate = fmt.Errorf("%w: invalid updates", apierrors.ErrInvalidUpdate)
	ErrInvalidTheme              = fmt.Errorf("%w: theme must be light or dark", apierrors.ErrValidation)
	ErrInvalidTimezone           = fmt.Errorf("%w: unknown timezone", apierrors.ErrValidation)
)

// OrganizationPatch is a partial update of name and settings. Nil fields are
// left unchanged.
type OrganizationPatch struct {
	Name     *string
	Theme    *models.Theme
	Timezone *string
}

var (
	organizationPatchKeys = map[string]bool{"name": true, "settings": true}
	settingsPatchKeys     = map[string]bool{"theme": true, "timezone": true}
)

// DecodeOrganizationPatch parses a JSON object into an OrganizationPatch. Any
// key outside name and settings.{theme,timezone} rejects the whole patch.
func DecodeOrganizationPatch(data []byte) (OrganizationPatch, error) {
	var patch OrganizationPatch

	fields, err := decodeObject(data)
	if err != nil {
		return patch, err
	}
	if rejected := rejectedKeys(fields, organizationPatchKeys, ""); len(rejected) > 0 {
		return patch, invalidKeys(ErrInvalidOrganizationUpdate, rejected)
	}

	if raw, ok := fields["name"]; ok {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil {
			return patch, fieldTypeError("name", "a string")
		}
		patch.Name = &name
	}

	if raw, ok := fields["settings"]; ok {
		settings, err := decodeObject(raw)
		if err != nil {
			return patch, fieldTypeError("settings", "an object")
		}
		if rejected := rejectedKeys(settings, settingsPatchKeys, "settings."); len(rejected) > 0 {
			return patch, invalidKeys(ErrInvalidOrganizationUpdate, rejected)
		}

		if raw, ok := settings["theme"]; ok {
			var theme models.Theme
			if err := json.Unmarshal(raw, &theme); err != nil {
				return patch, fieldTypeError("settings.theme", "a string")
			}
			patch.Theme = &theme
		}
		if raw, ok := settings["timezone"]; ok {
			var tz string
			if err := json.Unmarshal(raw, &tz); err != nil {
				return patch, fieldTypeError("settings.timezone", "a string")
			}
			patch.Timezone = &tz
		}
	}

	return patch, nil
}

func (p OrganizationPatch) apply(org *models.Organization) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		slug := utils.Slugify(name)
		if slug == "" {
			return ErrInvalidOrganizationName
		}
		org.Name = name
		org.Slug = slug
	}

	if p.Theme != nil {
		if !p.Theme.Valid() {
			return ErrInvalidTheme
		}
		org.Settings.Theme = *p.Theme
	}

	if p.Timezone != nil {
		tz := strings.TrimSpace(*p.Timezone)
		if tz == "" {
			return ErrInvalidTimezone
		}
		if _, err := time.LoadLocation(tz); err != nil {
			return ErrInvalidTimezone
		}
		org.Settings.Timezone = tz
	}

	return nil
}

// decodeObject splits a JSON object into raw fields. null and non-object
// input are rejected.
func decodeObject(data []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: body must be a JSON object", apierrors.ErrValidation)
	}
	return fields, nil
}

func rejectedKeys(fields map[string]json.RawMessage, allowed map[string]bool, prefix string) []string {
	var rejected []string
	for key := range fields {
		if !allowed[key] {
			rejected = append(rejected, prefix+key)
		}
	}
	sort.Strings(rejected)
	return rejected
}

func invalidKeys(kind error, keys []string) error {
	return apierrors.WithDetails(kind, map[string]interface{}{"rejected": keys})
}

func fieldTypeError(field, want string) error {
	return fmt.Errorf("%w: %s must be %s", apierrors.ErrValidation, field, want)
}
