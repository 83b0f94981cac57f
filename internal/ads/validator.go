package ads

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"ijara_backend/internal/model"
)

// ImageSource is one incoming image: either raw multipart bytes or a
// base64 string (optionally a data URL).
type ImageSource struct {
	Filename string
	Raw      []byte
	Encoded  string
}

// Payload carries the writable ad fields. A nil pointer means the field was
// not submitted.
type Payload struct {
	Title        *string             `json:"title" validate:"omitempty,max=200"`
	Description  *string             `json:"description"`
	MonthlyRent  *int64              `json:"monthly_rent" validate:"omitempty,min=1,max=1000000000"`
	PropertyType *model.PropertyType `json:"property_type" validate:"omitempty,oneof=APARTMENT HOUSE STUDIO COMMERCIAL"`
	Bedrooms     *int                `json:"bedrooms" validate:"omitempty,min=0,max=50"`
	Bathrooms    *int                `json:"bathrooms" validate:"omitempty,min=0,max=50"`
	AreaM2       *float64            `json:"area_m2" validate:"omitempty,gt=0,max=100000"`
	Address      *string             `json:"address" validate:"omitempty,max=255"`
	Latitude     *float64            `json:"latitude"`
	Longitude    *float64            `json:"longitude"`
	Amenities    *[]uint             `json:"amenities"`
	ContactName  *string             `json:"contact_name" validate:"omitempty,max=120"`
	ContactPhone *string             `json:"contact_phone" validate:"omitempty,max=32"`
	Images       []ImageSource       `json:"-"`
}

// Validated is a payload that passed every rule, plus the column names it
// touches on the ads table.
type Validated struct {
	*Payload
	Columns []string
}

var rangeMessages = map[string]string{
	"monthly_rent":  "Rent must be between 1 and 1,000,000,000.",
	"bedrooms":      "Bedrooms must be between 0 and 50.",
	"bathrooms":     "Bathrooms must be between 0 and 50.",
	"area_m2":       "Area must be greater than 0 and at most 100000 square meters.",
	"property_type": "Not a valid choice.",
}

var requiredOnCreate = []string{"title", "description", "monthly_rent", "property_type", "area_m2", "address"}

var editableWhenApproved = map[string]bool{"monthly_rent": true, "contact_phone": true}

// Validator enforces field-level and cross-field ad rules.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// Validate checks p and returns every violation keyed by field name.
// requester supplies contact defaults on creation; existingImages is the
// number of images the ad already has.
func (val *Validator) Validate(p *Payload, requester *Actor, existingImages int, isUpdate bool, status model.AdStatus) (*Validated, error) {
	verr := &ValidationError{}
	present := p.Present()

	if isUpdate && status == model.AdStatusApproved {
		for _, f := range present {
			if !editableWhenApproved[f] {
				verr.Add(f, MsgFieldNotEditable)
			}
		}
		if !verr.Empty() {
			return nil, verr
		}
	}

	if !isUpdate {
		for _, f := range requiredOnCreate {
			if !contains(present, f) {
				verr.Add(f, MsgRequired)
			}
		}
	}

	for field, s := range map[string]*string{"title": p.Title, "description": p.Description, "address": p.Address} {
		if s != nil && strings.TrimSpace(*s) == "" {
			verr.Add(field, "This field may not be blank.")
		}
	}

	if err := val.v.Struct(p); err != nil {
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				verr.Add(fe.Field(), messageFor(fe))
			}
		} else {
			return nil, err
		}
	}

	if (p.Latitude == nil) != (p.Longitude == nil) {
		if p.Latitude == nil {
			verr.Add("latitude", MsgLocationPair)
		} else {
			verr.Add("longitude", MsgLocationPair)
		}
	}

	if existingImages+len(p.Images) > model.MaxAdImages {
		verr.Add("images", MsgImageLimit)
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	if !isUpdate {
		p.applyContactDefaults(requester)
		present = p.Present()
	}

	return &Validated{Payload: p, Columns: columnsOf(present)}, nil
}

func messageFor(fe validator.FieldError) string {
	if msg, ok := rangeMessages[fe.Field()]; ok {
		return msg
	}
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("Ensure this field has no more than %s characters.", fe.Param())
	default:
		return fmt.Sprintf("Failed on the '%s' rule.", fe.Tag())
	}
}

// applyContactDefaults fills blank contact fields from the requester's
// profile. Missing values become empty strings, never null.
func (p *Payload) applyContactDefaults(requester *Actor) {
	var name, phone string
	if requester != nil {
		name, phone = requester.FullName, requester.Phone
	}
	if p.ContactName == nil || strings.TrimSpace(*p.ContactName) == "" {
		p.ContactName = &name
	}
	if p.ContactPhone == nil || strings.TrimSpace(*p.ContactPhone) == "" {
		p.ContactPhone = &phone
	}
}

// Present lists the submitted fields in a stable order.
func (p *Payload) Present() []string {
	var out []string
	add := func(name string, ok bool) {
		if ok {
			out = append(out, name)
		}
	}
	add("title", p.Title != nil)
	add("description", p.Description != nil)
	add("monthly_rent", p.MonthlyRent != nil)
	add("property_type", p.PropertyType != nil)
	add("bedrooms", p.Bedrooms != nil)
	add("bathrooms", p.Bathrooms != nil)
	add("area_m2", p.AreaM2 != nil)
	add("address", p.Address != nil)
	add("latitude", p.Latitude != nil)
	add("longitude", p.Longitude != nil)
	add("amenities", p.Amenities != nil)
	add("contact_name", p.ContactName != nil)
	add("contact_phone", p.ContactPhone != nil)
	add("images", len(p.Images) > 0)
	return out
}

// ApplyTo copies the submitted scalar fields onto ad.
func (p *Payload) ApplyTo(ad *model.Ad) {
	if p.Title != nil {
		ad.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		ad.Description = *p.Description
	}
	if p.MonthlyRent != nil {
		ad.MonthlyRent = *p.MonthlyRent
	}
	if p.PropertyType != nil {
		ad.PropertyType = *p.PropertyType
	}
	if p.Bedrooms != nil {
		ad.Bedrooms = *p.Bedrooms
	}
	if p.Bathrooms != nil {
		ad.Bathrooms = *p.Bathrooms
	}
	if p.AreaM2 != nil {
		ad.AreaM2 = *p.AreaM2
	}
	if p.Address != nil {
		ad.Address = *p.Address
	}
	if p.Latitude != nil && p.Longitude != nil {
		lat, lng := *p.Latitude, *p.Longitude
		ad.Latitude, ad.Longitude = &lat, &lng
	}
	if p.ContactName != nil {
		ad.ContactName = *p.ContactName
	}
	if p.ContactPhone != nil {
		ad.ContactPhone = *p.ContactPhone
	}
}

func columnsOf(present []string) []string {
	cols := make([]string, 0, len(present))
	for _, f := range present {
		if f == "amenities" || f == "images" {
			continue
		}
		cols = append(cols, f)
	}
	return cols
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
