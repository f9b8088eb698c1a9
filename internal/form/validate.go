package form

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ticketless/admin-console/internal/domain"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// Report fields by their JSON name so errors line up with the payload.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	validate.RegisterValidation("html_content", validateHTMLContent)
}

// validateHTMLContent rejects editor output that has no visible text, such as
// "<p></p>" or "<p>&nbsp;</p>".
func validateHTMLContent(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	var text strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			text.WriteRune(r)
		}
	}
	visible := strings.ReplaceAll(text.String(), "&nbsp;", "")
	return strings.TrimSpace(visible) != ""
}

type eventDraft struct {
	Name          string `json:"name" validate:"required,max=100"`
	Location      string `json:"location" validate:"required"`
	Type          string `json:"type" validate:"required"`
	Date          string `json:"date" validate:"required"`
	Status        string `json:"status" validate:"required,oneof=active inactive scheduled redirect"`
	ActiveFrom    string `json:"activeFrom" validate:"required_if=Status scheduled"`
	ActiveTo      string `json:"activeTo" validate:"required_if=Status scheduled"`
	TicketSaleURL string `json:"ticketSaleUrl" validate:"required_if=Status redirect"`
	RedirectText  string `json:"redirectCustomText" validate:"max=500"`
}

type ticketDraft struct {
	Header             string   `json:"header" validate:"required"`
	Quantity           int      `json:"quantity" validate:"required,min=1"`
	IsSelling          bool     `json:"isSelling"`
	Price              *float64 `json:"price" validate:"required_if=IsSelling true,omitempty,min=0"`
	RequiresMembership bool     `json:"requiresMembership"`
	Association        string   `json:"association" validate:"required_if=RequiresMembership true"`
}

type userDraft struct {
	FirstName      string `json:"firstName" validate:"required,max=100"`
	LastName       string `json:"lastName" validate:"required,max=100"`
	Email          string `json:"email" validate:"required,email,max=100"`
	UserType       string `json:"userType" validate:"required,oneof=user admin superadmin"`
	OrganizationID *int64 `json:"organizationID" validate:"required_unless=UserType user"`
}

type organizationDraft struct {
	Name     string `json:"name" validate:"required,max=100"`
	License  string `json:"license" validate:"required,oneof=free basic pro"`
	Location string `json:"location" validate:"required"`
}

type advertisementDraft struct {
	Advertiser  string `json:"advertiser" validate:"required,max=100"`
	ContentHTML string `json:"contentHtml" validate:"required,html_content"`
	Type        string `json:"type" validate:"required,oneof=global local toast"`
	Location    string `json:"location" validate:"required_if=Type local"`
}

type fileDraft struct {
	FileName string `json:"fileName" validate:"required"`
}

// PasswordChange is the account password form.
type PasswordChange struct {
	OldPassword       string `json:"oldPassword" validate:"required"`
	NewPassword       string `json:"newPassword" validate:"required,min=8"`
	NewPasswordRepeat string `json:"newPasswordRepeat" validate:"required,eqfield=NewPassword"`
}

// MemberInvite adds an existing account to an organization.
type MemberInvite struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"omitempty,oneof=user admin"`
}

// AccountChanges is the editable part of the signed-in user's own profile.
type AccountChanges struct {
	FirstName   *string `json:"firstName" validate:"omitnil,min=1,max=100"`
	LastName    *string `json:"lastName" validate:"omitnil,min=1,max=100"`
	Email       *string `json:"email" validate:"omitnil,email,max=100"`
	PhoneNumber *string `json:"phoneNumber" validate:"omitempty,max=30"`
	City        *string `json:"city" validate:"omitempty,max=100"`
}

// AccountFields lists the profile fields a user may change themselves.
var AccountFields = []string{"firstName", "lastName", "email", "phoneNumber", "city"}

// CheckAccount validates a partial profile update.
func CheckAccount(r domain.Record) error {
	return checkDraft[AccountChanges](r)
}

// Check validates any tagged struct and returns a domain validation error.
func Check(v any) error {
	if err := validate.Struct(v); err != nil {
		return validationError(err)
	}
	return nil
}

// checkDraft decodes a record into a draft struct and validates it.
func checkDraft[D any](r domain.Record) error {
	raw, err := json.Marshal(r)
	if err != nil {
		return domain.ErrInvalidParameter(err.Error())
	}
	var d D
	if err := json.Unmarshal(raw, &d); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return domain.ErrValidation(map[string]string{typeErr.Field: "type"})
		}
		return domain.ErrInvalidParameter(err.Error())
	}
	return Check(&d)
}

func validationError(err error) error {
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return domain.ErrInvalidParameter(err.Error())
	}
	fields := make(map[string]string, len(ves))
	for _, fe := range ves {
		fields[fe.Field()] = fe.Tag()
	}
	return domain.ErrValidation(fields)
}
