package controller

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ijara_backend/internal/model"
	"ijara_backend/internal/repository"
	"ijara_backend/internal/service"
	"ijara_backend/pkg/logger"
	"ijara_backend/pkg/ratelimit"
	"ijara_backend/pkg/utils/jwt"
	"ijara_backend/pkg/utils/storage"
)

type testEnv struct {
	app    *fiber.App
	store  *repository.MemoryStore
	owner  string
	other  string
	staff  string
	wifiID uint
}

func setupTestApp(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	log := logger.NewWithWriter(io.Discard, io.Discard)

	store := repository.NewMemoryStore()
	blobs, err := storage.NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)
	tokens := jwt.NewManager("test-secret", time.Hour)

	app := NewApp(log)
	SetupRoutes(app, Deps{
		Ads:       service.NewAdService(store, blobs, log),
		Identity:  service.NewIdentityService(store, tokens),
		Amenities: service.NewAmenityService(store),
		Limiter:   ratelimit.NewMemoryLimiter(ratelimit.Rule{Limit: 10, Window: 24 * time.Hour}),
		Log:       log,
	})

	mk := func(email, first string, staff bool) string {
		u := &model.User{Email: email, Password: "x", FirstName: first, LastName: "Test", IsStaff: staff, IsActive: true}
		require.NoError(t, store.CreateUser(ctx, u))
		token, err := tokens.GenerateToken(u.ID, u.Email, u.IsStaff)
		require.NoError(t, err)
		return token
	}

	env := &testEnv{
		app:   app,
		store: store,
		owner: mk("owner@example.com", "Olim", false),
		other: mk("other@example.com", "Bek", false),
		staff: mk("mod@example.com", "Mod", true),
	}
	wifi := &model.Amenity{Name: "WiFi", Slug: "wifi"}
	require.NoError(t, store.CreateAmenity(ctx, wifi))
	env.wifiID = wifi.ID
	return env
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (r response) object(t *testing.T) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(r.body, &out), string(r.body))
	return out
}

func (r response) list(t *testing.T) []interface{} {
	t.Helper()
	var out []interface{}
	require.NoError(t, json.Unmarshal(r.body, &out), string(r.body))
	return out
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(t, req, token)
}

func (e *testEnv) send(t *testing.T, req *http.Request, token string) response {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return response{status: resp.StatusCode, header: resp.Header, body: body}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func adBody(title string) map[string]interface{} {
	return map[string]interface{}{
		"title":         title,
		"description":   "Two rooms near Chilonzor metro",
		"monthly_rent":  4500000,
		"property_type": "APARTMENT",
		"bedrooms":      2,
		"bathrooms":     1,
		"area_m2":       65.5,
		"address":       "Chilonzor 9, Tashkent",
	}
}

func (e *testEnv) createAd(t *testing.T, token, title string) uint {
	t.Helper()
	res := e.do(t, http.MethodPost, "/api/ads", token, adBody(title))
	require.Equal(t, fiber.StatusCreated, res.status, string(res.body))
	return uint(res.object(t)["id"].(float64))
}

func adPath(id uint, suffix string) string {
	return "/api/ads/" + strconv.FormatUint(uint64(id), 10) + suffix
}

func TestCreateAdJSON(t *testing.T) {
	env := setupTestApp(t)

	body := adBody("Sunny flat")
	body["amenities"] = []uint{env.wifiID}
	body["images"] = []string{"data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes(t))}
	body["latitude"] = 41.2995
	body["longitude"] = 69.2401

	res := env.do(t, http.MethodPost, "/api/ads", env.owner, body)
	require.Equal(t, fiber.StatusCreated, res.status, string(res.body))

	ad := res.object(t)
	assert.Equal(t, "PENDING", ad["status"])
	assert.Equal(t, true, ad["is_active"])
	assert.Equal(t, "65.50", ad["area_m2"])
	assert.Equal(t, "41.299500", ad["latitude"])
	assert.Equal(t, "Olim Test", ad["contact_name"])
	assert.Equal(t, "", ad["contact_phone"])
	assert.Regexp(t, `^sunny-flat-[0-9a-f]{6}$`, ad["slug"])

	owner := ad["owner"].(map[string]interface{})
	assert.Equal(t, "owner@example.com", owner["username"])
	assert.IsType(t, "", owner["id"])

	images := ad["images"].([]interface{})
	require.Len(t, images, 1)
	img := images[0].(map[string]interface{})
	assert.Equal(t, float64(0), img["order"])
	assert.Contains(t, img["image"], "/media/")

	amenities := ad["amenities"].([]interface{})
	require.Len(t, amenities, 1)
	assert.Equal(t, "wifi", amenities[0].(map[string]interface{})["slug"])
}

func TestCreateAdMultipart(t *testing.T) {
	env := setupTestApp(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range adBody("Garden house") {
		require.NoError(t, w.WriteField(k, fmt.Sprint(v)))
	}
	require.NoError(t, w.WriteField("amenities", strconv.FormatUint(uint64(env.wifiID), 10)))
	for i := 0; i < 2; i++ {
		part, err := w.CreateFormFile("images", fmt.Sprintf("photo%d.png", i))
		require.NoError(t, err)
		_, err = part.Write(pngBytes(t))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/ads", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	res := env.send(t, req, env.owner)
	require.Equal(t, fiber.StatusCreated, res.status, string(res.body))

	ad := res.object(t)
	images := ad["images"].([]interface{})
	require.Len(t, images, 2)
	assert.Equal(t, float64(1), images[1].(map[string]interface{})["order"])
	assert.Len(t, ad["amenities"], 1)
}

func TestCreateAdRejectsGarbageImage(t *testing.T) {
	env := setupTestApp(t)

	body := adBody("Broken photo")
	body["images"] = []string{base64.StdEncoding.EncodeToString([]byte("definitely not an image"))}
	res := env.do(t, http.MethodPost, "/api/ads", env.owner, body)
	assert.Equal(t, fiber.StatusBadRequest, res.status)
	assert.Contains(t, res.object(t), "images")

	list := env.do(t, http.MethodGet, "/api/ads", "", nil).object(t)
	assert.Equal(t, float64(0), list["count"])
}

func TestCreateAdRequiresAuth(t *testing.T) {
	env := setupTestApp(t)

	res := env.do(t, http.MethodPost, "/api/ads", "", adBody("Anonymous"))
	assert.Equal(t, fiber.StatusUnauthorized, res.status)

	res = env.do(t, http.MethodPost, "/api/ads", "not-a-token", adBody("Anonymous"))
	assert.Equal(t, fiber.StatusUnauthorized, res.status)
}

func TestCreateAdValidationErrors(t *testing.T) {
	env := setupTestApp(t)

	res := env.do(t, http.MethodPost, "/api/ads", env.owner, map[string]interface{}{
		"monthly_rent": 0,
		"bedrooms":     "many",
		"latitude":     41.3,
	})
	require.Equal(t, fiber.StatusBadRequest, res.status)
	errs := res.object(t)
	assert.Contains(t, errs, "bedrooms")

	res = env.do(t, http.MethodPost, "/api/ads", env.owner, map[string]interface{}{
		"monthly_rent": 0,
		"latitude":     41.3,
	})
	require.Equal(t, fiber.StatusBadRequest, res.status)
	errs = res.object(t)
	assert.Equal(t, []interface{}{"This field is required."}, errs["title"])
	assert.Contains(t, errs, "monthly_rent")
	assert.Contains(t, errs, "longitude")
}

func TestCreateAdRateLimit(t *testing.T) {
	env := setupTestApp(t)

	for i := 0; i < 10; i++ {
		env.createAd(t, env.owner, fmt.Sprintf("Flat %d", i))
	}
	res := env.do(t, http.MethodPost, "/api/ads", env.owner, adBody("Flat 11"))
	assert.Equal(t, fiber.StatusTooManyRequests, res.status)
	assert.NotEmpty(t, res.header.Get(fiber.HeaderRetryAfter))

	// other users keep their own quota
	env.createAd(t, env.other, "Flat 11")
}

func TestDuplicateTitleRejected(t *testing.T) {
	env := setupTestApp(t)

	env.createAd(t, env.owner, "Loft")
	res := env.do(t, http.MethodPost, "/api/ads", env.owner, adBody("Loft"))
	require.Equal(t, fiber.StatusBadRequest, res.status)
	assert.Equal(t, []interface{}{"You already have an active ad with this title."}, res.object(t)["title"])
}

func TestApprovedAdFieldRestrictions(t *testing.T) {
	env := setupTestApp(t)
	id := env.createAd(t, env.owner, "Studio")

	res := env.do(t, http.MethodPost, adPath(id, "/approve"), env.staff, map[string]string{"moderation_note": "ok"})
	require.Equal(t, fiber.StatusOK, res.status, string(res.body))
	assert.Equal(t, "APPROVED", res.object(t)["status"])

	res = env.do(t, http.MethodPatch, adPath(id, ""), env.owner, map[string]interface{}{"title": "Renamed"})
	require.Equal(t, fiber.StatusBadRequest, res.status)
	assert.Contains(t, res.object(t), "title")

	res = env.do(t, http.MethodPatch, adPath(id, ""), env.owner, map[string]interface{}{"monthly_rent": 5000000})
	require.Equal(t, fiber.StatusOK, res.status, string(res.body))
	ad := res.object(t)
	assert.Equal(t, float64(5000000), ad["monthly_rent"])
	assert.Equal(t, "APPROVED", ad["status"])

	res = env.do(t, http.MethodPut, adPath(id, ""), env.owner, map[string]interface{}{"contact_phone": "+998901112233"})
	require.Equal(t, fiber.StatusOK, res.status, string(res.body))

	res = env.do(t, http.MethodDelete, adPath(id, ""), env.owner, nil)
	assert.Equal(t, fiber.StatusForbidden, res.status)
}

func TestModerationPermissions(t *testing.T) {
	env := setupTestApp(t)
	id := env.createAd(t, env.owner, "Cottage")

	res := env.do(t, http.MethodPost, adPath(id, "/approve"), env.owner, nil)
	assert.Equal(t, fiber.StatusForbidden, res.status)

	res = env.do(t, http.MethodPost, adPath(id, "/reject"), env.staff, map[string]string{})
	require.Equal(t, fiber.StatusBadRequest, res.status)
	assert.Equal(t, map[string]interface{}{"moderation_note": []interface{}{"This field is required."}}, res.object(t))

	res = env.do(t, http.MethodPost, adPath(id, "/reject"), env.staff, map[string]string{"moderation_note": "Photos missing"})
	require.Equal(t, fiber.StatusOK, res.status)
	ad := res.object(t)
	assert.Equal(t, "REJECTED", ad["status"])
	assert.Equal(t, "Photos missing", ad["moderation_note"])

	res = env.do(t, http.MethodGet, adPath(id, "/history"), env.staff, nil)
	require.Equal(t, fiber.StatusOK, res.status)
	logs := res.list(t)
	require.Len(t, logs, 1)
	assert.Equal(t, "REJECTED", logs[0].(map[string]interface{})["to_status"])

	res = env.do(t, http.MethodGet, adPath(id, "/history"), env.owner, nil)
	assert.Equal(t, fiber.StatusForbidden, res.status)
}

func TestOtherUserAccess(t *testing.T) {
	env := setupTestApp(t)
	id := env.createAd(t, env.owner, "Penthouse")

	res := env.do(t, http.MethodPatch, adPath(id, ""), env.other, map[string]interface{}{"monthly_rent": 1})
	assert.Equal(t, fiber.StatusForbidden, res.status)

	res = env.do(t, http.MethodGet, fmt.Sprintf("/api/ads/my/%d", id), env.other, nil)
	assert.Equal(t, fiber.StatusNotFound, res.status)

	res = env.do(t, http.MethodGet, fmt.Sprintf("/api/ads/my/%d", id), env.owner, nil)
	assert.Equal(t, fiber.StatusOK, res.status)

	// a pending ad is hidden from other authenticated users
	res = env.do(t, http.MethodGet, adPath(id, ""), env.other, nil)
	assert.Equal(t, fiber.StatusNotFound, res.status)
}

func TestDeleteIsSoft(t *testing.T) {
	env := setupTestApp(t)
	id := env.createAd(t, env.owner, "Basement")

	res := env.do(t, http.MethodDelete, adPath(id, ""), env.owner, nil)
	require.Equal(t, fiber.StatusNoContent, res.status)

	res = env.do(t, http.MethodGet, adPath(id, ""), "", nil)
	assert.Equal(t, fiber.StatusNotFound, res.status)

	res = env.do(t, http.MethodGet, adPath(id, ""), env.staff, nil)
	require.Equal(t, fiber.StatusOK, res.status)
	assert.Equal(t, false, res.object(t)["is_active"])

	page := env.do(t, http.MethodGet, "/api/ads/my", env.owner, nil).object(t)
	assert.Equal(t, float64(0), page["count"])
}

func TestImageEndpoints(t *testing.T) {
	env := setupTestApp(t)
	id := env.createAd(t, env.owner, "Villa")
	encoded := base64.StdEncoding.EncodeToString(pngBytes(t))

	res := env.do(t, http.MethodPost, adPath(id, "/images"), env.owner, map[string]interface{}{"image": encoded})
	require.Equal(t, fiber.StatusCreated, res.status, string(res.body))
	created := res.list(t)
	require.Len(t, created, 1)
	imageID := uint(created[0].(map[string]interface{})["id"].(float64))

	res = env.do(t, http.MethodPost, adPath(id, "/images"), env.owner, map[string]interface{}{"image": encoded, "monthly_rent": "cheap"})
	require.Equal(t, fiber.StatusCreated, res.status, string(res.body))
	assert.Equal(t, float64(1), res.list(t)[0].(map[string]interface{})["order"])

	res = env.do(t, http.MethodPost, adPath(id, "/images"), env.other, map[string]interface{}{"image": encoded})
	assert.Equal(t, fiber.StatusForbidden, res.status)

	res = env.do(t, http.MethodPost, adPath(id, "/images"), env.owner, map[string]interface{}{})
	assert.Equal(t, fiber.StatusBadRequest, res.status)

	res = env.do(t, http.MethodDelete, adPath(id, fmt.Sprintf("/images/%d", imageID)), env.owner, nil)
	assert.Equal(t, fiber.StatusNoContent, res.status)

	res = env.do(t, http.MethodDelete, adPath(id, fmt.Sprintf("/images/%d", imageID)), env.owner, nil)
	assert.Equal(t, fiber.StatusNotFound, res.status)
}

func TestImageLimit(t *testing.T) {
	env := setupTestApp(t)
	encoded := base64.StdEncoding.EncodeToString(pngBytes(t))

	body := adBody("Gallery")
	images := make([]string, 11)
	for i := range images {
		images[i] = encoded
	}
	body["images"] = images
	res := env.do(t, http.MethodPost, "/api/ads", env.owner, body)
	require.Equal(t, fiber.StatusBadRequest, res.status)
	assert.Equal(t, []interface{}{"Maximum of 10 images allowed per ad."}, res.object(t)["images"])
}

func TestListingFiltersAndPagination(t *testing.T) {
	env := setupTestApp(t)
	for i := 0; i < 3; i++ {
		env.createAd(t, env.owner, fmt.Sprintf("Room %d", i))
	}
	body := adBody("Shop front")
	body["property_type"] = "COMMERCIAL"
	body["monthly_rent"] = 9000000
	res := env.do(t, http.MethodPost, "/api/ads", env.other, body)
	require.Equal(t, fiber.StatusCreated, res.status)

	page := env.do(t, http.MethodGet, "/api/ads?page_size=2", "", nil).object(t)
	assert.Equal(t, float64(4), page["count"])
	assert.Len(t, page["results"], 2)

	page = env.do(t, http.MethodGet, "/api/ads?property_type=commercial", "", nil).object(t)
	assert.Equal(t, float64(1), page["count"])

	page = env.do(t, http.MethodGet, "/api/ads?min_price=5000000&ordering=-monthly_rent", "", nil).object(t)
	assert.Equal(t, float64(1), page["count"])

	page = env.do(t, http.MethodGet, "/api/ads?search=shop", "", nil).object(t)
	assert.Equal(t, float64(1), page["count"])

	page = env.do(t, http.MethodGet, "/api/ads?page=9", "", nil).object(t)
	assert.Empty(t, page["results"])

	res = env.do(t, http.MethodGet, "/api/ads?property_type=castle", "", nil)
	assert.Equal(t, fiber.StatusBadRequest, res.status)

	// authenticated non-staff see approved ads plus their own
	page = env.do(t, http.MethodGet, "/api/ads", env.other, nil).object(t)
	assert.Equal(t, float64(1), page["count"])

	page = env.do(t, http.MethodGet, "/api/ads/my", env.owner, nil).object(t)
	assert.Equal(t, float64(3), page["count"])

	res = env.do(t, http.MethodGet, "/api/ads/moderation", env.staff, nil)
	require.Equal(t, fiber.StatusOK, res.status)
	assert.Equal(t, float64(4), res.object(t)["count"])

	res = env.do(t, http.MethodGet, "/api/ads/moderation", env.owner, nil)
	assert.Equal(t, fiber.StatusForbidden, res.status)
}

func TestStatsAndLocations(t *testing.T) {
	env := setupTestApp(t)
	approved := env.createAd(t, env.owner, "Approved")
	env.createAd(t, env.owner, "Waiting")
	res := env.do(t, http.MethodPost, adPath(approved, "/approve"), env.staff, nil)
	require.Equal(t, fiber.StatusOK, res.status)

	res = env.do(t, http.MethodGet, "/api/ads/stats", "", nil)
	require.Equal(t, fiber.StatusOK, res.status)
	assert.Equal(t, map[string]interface{}{
		"available": float64(1),
		"pending":   float64(1),
		"rented":    float64(0),
		"total":     float64(2),
	}, res.object(t))

	body := adBody("Mapped")
	body["latitude"] = 41.3
	body["longitude"] = 69.25
	mapped := env.do(t, http.MethodPost, "/api/ads", env.owner, body)
	require.Equal(t, fiber.StatusCreated, mapped.status)

	locs := env.do(t, http.MethodGet, "/api/ads/locations", "", nil).list(t)
	require.Len(t, locs, 1)
	assert.Equal(t, 41.3, locs[0].(map[string]interface{})["latitude"])

	near := env.do(t, http.MethodGet, "/api/ads/nearby?lat=41.31&lng=69.25", "", nil).object(t)
	assert.Equal(t, float64(1), near["count"])

	near = env.do(t, http.MethodGet, "/api/ads/nearby?lat=40&lng=69.25&radius_km=1", "", nil).object(t)
	assert.Equal(t, float64(0), near["count"])

	res = env.do(t, http.MethodGet, "/api/ads/nearby?lat=north", "", nil)
	require.Equal(t, fiber.StatusBadRequest, res.status)
	assert.Equal(t, "Invalid coordinates.", res.object(t)["error"])
}

func TestSimilarAds(t *testing.T) {
	env := setupTestApp(t)
	base := env.createAd(t, env.owner, "Base flat")
	env.createAd(t, env.owner, "Twin flat")

	res := env.do(t, http.MethodGet, adPath(base, "/similar"), "", nil)
	require.Equal(t, fiber.StatusOK, res.status, string(res.body))
	for _, item := range res.list(t) {
		assert.NotEqual(t, float64(base), item.(map[string]interface{})["id"])
	}

	res = env.do(t, http.MethodGet, adPath(9999, "/similar"), "", nil)
	assert.Equal(t, fiber.StatusNotFound, res.status)
}

func TestUnknownAd(t *testing.T) {
	env := setupTestApp(t)

	assert.Equal(t, fiber.StatusNotFound, env.do(t, http.MethodGet, adPath(404, ""), "", nil).status)
	assert.Equal(t, fiber.StatusNotFound, env.do(t, http.MethodPatch, adPath(404, ""), env.owner, map[string]int{"bedrooms": 1}).status)
}

func TestAuthFlow(t *testing.T) {
	env := setupTestApp(t)

	res := env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":      "new@example.com",
		"password":   "longenough",
		"first_name": "Dilnoza",
	})
	require.Equal(t, fiber.StatusCreated, res.status, string(res.body))
	reg := res.object(t)
	assert.NotEmpty(t, reg["token"])

	res = env.do(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"email":    "new@example.com",
		"password": "longenough",
	})
	require.Equal(t, fiber.StatusBadRequest, res.status)
	assert.Contains(t, res.object(t), "email")

	res = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "new@example.com", "password": "wrong-pass"})
	assert.Equal(t, fiber.StatusUnauthorized, res.status)

	res = env.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "new@example.com", "password": "longenough"})
	require.Equal(t, fiber.StatusOK, res.status)
	token := res.object(t)["token"].(string)

	res = env.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, fiber.StatusOK, res.status)
	user := res.object(t)["user"].(map[string]interface{})
	assert.Equal(t, "new@example.com", user["email"])
	assert.Equal(t, "Dilnoza", user["full_name"])

	assert.Equal(t, fiber.StatusUnauthorized, env.do(t, http.MethodGet, "/api/auth/me", "", nil).status)
}

func TestAmenityEndpoints(t *testing.T) {
	env := setupTestApp(t)

	res := env.do(t, http.MethodPost, "/api/amenities", env.owner, map[string]string{"name": "Balcony"})
	assert.Equal(t, fiber.StatusForbidden, res.status)

	res = env.do(t, http.MethodPost, "/api/amenities", env.staff, map[string]string{"name": "Balcony"})
	require.Equal(t, fiber.StatusCreated, res.status)
	assert.Equal(t, "balcony", res.object(t)["slug"])

	list := env.do(t, http.MethodGet, "/api/amenities", "", nil).list(t)
	assert.Len(t, list, 2)
}

func TestListAndDetailShareRepresentation(t *testing.T) {
	env := setupTestApp(t)
	id := env.createAd(t, env.owner, "Loft")

	detail := env.do(t, http.MethodGet, adPath(id, ""), env.owner, nil)
	require.Equal(t, fiber.StatusOK, detail.status, string(detail.body))

	listed := env.do(t, http.MethodGet, "/api/ads/my", env.owner, nil)
	require.Equal(t, fiber.StatusOK, listed.status, string(listed.body))
	results := listed.object(t)["results"].([]interface{})
	require.Len(t, results, 1)

	assert.Equal(t, detail.object(t), results[0])
}
