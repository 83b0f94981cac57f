package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"ijara_backend/internal/ads"
	"ijara_backend/internal/model"
	"ijara_backend/pkg/utils/image"
)

// values is a request body flattened to string lists, the shape shared by
// multipart forms and JSON objects.
type values map[string][]string

func (v values) has(key string) bool {
	_, ok := v[key]
	return ok
}

func (v values) first(key string) string {
	if list := v[key]; len(list) > 0 {
		return list[0]
	}
	return ""
}

// readBody returns the submitted fields and any uploaded files.
func readBody(c *fiber.Ctx) (values, []*multipart.FileHeader, error) {
	if strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return nil, nil, ads.FieldError("non_field_errors", "Malformed multipart body.")
		}
		var files []*multipart.FileHeader
		files = append(files, form.File["images"]...)
		files = append(files, form.File["image"]...)
		return values(form.Value), files, nil
	}

	body := bytes.TrimSpace(c.Body())
	if len(body) == 0 {
		return values{}, nil, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, nil, ads.FieldError("non_field_errors", "JSON parse error.")
	}
	out := values{}
	for key, msg := range raw {
		list, ok := flatten(msg)
		if ok {
			out[key] = list
		}
	}
	return out, nil, nil
}

// flatten turns a JSON value into strings. null is reported as absent.
func flatten(msg json.RawMessage) ([]string, bool) {
	msg = bytes.TrimSpace(msg)
	switch {
	case len(msg) == 0 || bytes.Equal(msg, []byte("null")):
		return nil, false
	case msg[0] == '[':
		var items []json.RawMessage
		if err := json.Unmarshal(msg, &items); err != nil {
			return []string{string(msg)}, true
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			if s, ok := flatten(item); ok {
				out = append(out, s...)
			}
		}
		return out, true
	case msg[0] == '"':
		var s string
		if err := json.Unmarshal(msg, &s); err != nil {
			return []string{string(msg)}, true
		}
		return []string{s}, true
	default:
		return []string{string(msg)}, true
	}
}

// parsePayload builds an ad payload from the request body. Type errors are
// accumulated like validation errors.
func parsePayload(c *fiber.Ctx) (*ads.Payload, error) {
	vals, files, err := readBody(c)
	if err != nil {
		return nil, err
	}

	p := &ads.Payload{}
	verr := &ads.ValidationError{}

	str := func(key string) *string {
		if !vals.has(key) {
			return nil
		}
		s := vals.first(key)
		return &s
	}
	p.Title = str("title")
	p.Description = str("description")
	p.Address = str("address")
	p.ContactName = str("contact_name")
	p.ContactPhone = str("contact_phone")

	if s := str("property_type"); s != nil {
		pt := model.PropertyType(strings.ToUpper(strings.TrimSpace(*s)))
		p.PropertyType = &pt
	}

	p.MonthlyRent = parseInt64(vals, "monthly_rent", verr)
	p.Bedrooms = parseInt(vals, "bedrooms", verr)
	p.Bathrooms = parseInt(vals, "bathrooms", verr)
	p.AreaM2 = parseFloat(vals, "area_m2", verr)
	p.Latitude = parseFloat(vals, "latitude", verr)
	p.Longitude = parseFloat(vals, "longitude", verr)

	if vals.has("amenities") {
		ids, err := parseIDs(vals["amenities"])
		if err != nil {
			verr.Add("amenities", err.Error())
		}
		p.Amenities = &ids
	}

	if p.Images, err = readImages(vals, files); err != nil {
		return nil, err
	}

	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return p, nil
}

// parseImages reads only the image parts of the body.
func parseImages(c *fiber.Ctx) ([]ads.ImageSource, error) {
	vals, files, err := readBody(c)
	if err != nil {
		return nil, err
	}
	return readImages(vals, files)
}

// readImages collects uploaded files and base64 fields under images or image.
func readImages(vals values, files []*multipart.FileHeader) ([]ads.ImageSource, error) {
	var out []ads.ImageSource
	for _, fh := range files {
		d, err := image.ProcessImage(fh)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", fh.Filename, err)
		}
		out = append(out, ads.ImageSource{Filename: fh.Filename, Raw: d.Data})
	}
	for _, key := range []string{"images", "image"} {
		for _, encoded := range vals[key] {
			if strings.TrimSpace(encoded) != "" {
				out = append(out, ads.ImageSource{Encoded: encoded})
			}
		}
	}
	return out, nil
}

func parseInt64(vals values, key string, verr *ads.ValidationError) *int64 {
	if !vals.has(key) {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(vals.first(key)), 10, 64)
	if err != nil {
		verr.Add(key, "A valid integer is required.")
		return nil
	}
	return &n
}

func parseInt(vals values, key string, verr *ads.ValidationError) *int {
	n := parseInt64(vals, key, verr)
	if n == nil {
		return nil
	}
	v := int(*n)
	return &v
}

func parseFloat(vals values, key string, verr *ads.ValidationError) *float64 {
	if !vals.has(key) {
		return nil
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(vals.first(key)), 64)
	if err != nil {
		verr.Add(key, "A valid number is required.")
		return nil
	}
	return &f
}

// parseIDs accepts repeated values and comma-separated lists.
func parseIDs(raw []string) ([]uint, error) {
	ids := []uint{}
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.ParseUint(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("Incorrect type. Expected pk value, received %q.", part)
			}
			ids = append(ids, uint(n))
		}
	}
	return ids, nil
}

// parseFilter reads listing filters from the query string.
func parseFilter(c *fiber.Ctx) (ads.Filter, error) {
	q := values{}
	c.Context().QueryArgs().VisitAll(func(k, v []byte) {
		q[string(k)] = append(q[string(k)], string(v))
	})

	var f ads.Filter
	verr := &ads.ValidationError{}

	if s := strings.TrimSpace(q.first("property_type")); s != "" {
		pt := model.PropertyType(strings.ToUpper(s))
		if !pt.Valid() {
			verr.Add("property_type", "Select a valid choice. That choice is not one of the available choices.")
		} else {
			f.PropertyType = &pt
		}
	}
	nonEmpty := func(key string) values {
		if strings.TrimSpace(q.first(key)) == "" {
			return values{}
		}
		return values{key: q[key]}
	}
	f.Bedrooms = parseInt(nonEmpty("bedrooms"), "bedrooms", verr)
	f.Bathrooms = parseInt(nonEmpty("bathrooms"), "bathrooms", verr)
	f.MinPrice = parseInt64(nonEmpty("min_price"), "min_price", verr)
	f.MaxPrice = parseInt64(nonEmpty("max_price"), "max_price", verr)
	f.MinArea = parseFloat(nonEmpty("min_area"), "min_area", verr)
	f.MaxArea = parseFloat(nonEmpty("max_area"), "max_area", verr)

	if q.has("amenities") {
		ids, err := parseIDs(q["amenities"])
		if err != nil {
			verr.Add("amenities", err.Error())
		}
		f.Amenities = ids
	}
	f.Search = q.first("search")
	f.Ordering = q.first("ordering")

	return f, verr.OrNil()
}

func parsePage(c *fiber.Ctx) ads.Page {
	return ads.NewPage(c.QueryInt("page", 1), c.QueryInt("page_size", ads.DefaultPageSize))
}

func parseID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 64)
	if err != nil || id == 0 {
		return 0, ads.ErrNotFound
	}
	return uint(id), nil
}

// parseNote reads moderation_note from a JSON or form body.
func parseNote(c *fiber.Ctx) (string, error) {
	vals, _, err := readBody(c)
	if err != nil {
		return "", err
	}
	return vals.first("moderation_note"), nil
}
