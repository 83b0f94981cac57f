package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"io"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ijara_backend/internal/ads"
	"ijara_backend/internal/model"
	"ijara_backend/internal/repository"
	"ijara_backend/pkg/logger"
	"ijara_backend/pkg/utils/storage"
)

type fixture struct {
	store  *repository.MemoryStore
	blobs  *storage.LocalStore
	ads    *AdService
	clock  time.Time
	owner  *ads.Actor
	other  *ads.Actor
	staff  *ads.Actor
	wifiID uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := repository.NewMemoryStore()
	blobs, err := storage.NewLocalStore(t.TempDir(), "/media")
	require.NoError(t, err)

	f := &fixture{
		store: store,
		blobs: blobs,
		ads:   NewAdService(store, blobs, logger.NewWithWriter(io.Discard, io.Discard)),
		clock: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
	}
	f.ads.now = func() time.Time {
		f.clock = f.clock.Add(time.Second)
		return f.clock
	}

	mk := func(email, first, phone string, staff bool) *ads.Actor {
		u := &model.User{Email: email, Password: "x", FirstName: first, LastName: "Test", PhoneNumber: phone, IsStaff: staff, IsActive: true}
		require.NoError(t, store.CreateUser(ctx, u))
		return ActorFor(u)
	}
	f.owner = mk("owner@example.com", "Olim", "+998900000001", false)
	f.other = mk("other@example.com", "Bek", "+998900000002", false)
	f.staff = mk("mod@example.com", "Mod", "", true)

	wifi := &model.Amenity{Name: "WiFi", Slug: "wifi"}
	require.NoError(t, store.CreateAmenity(ctx, wifi))
	f.wifiID = wifi.ID
	return f
}

func (f *fixture) blobCount(t *testing.T) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(f.blobs.Root(), func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

func pngData(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func ptr[T any](v T) *T { return &v }

func validPayload(title string) *ads.Payload {
	pt := model.PropertyTypeApartment
	return &ads.Payload{
		Title:        ptr(title),
		Description:  ptr("Bright flat near the metro"),
		MonthlyRent:  ptr(int64(4500000)),
		PropertyType: &pt,
		Bedrooms:     ptr(2),
		Bathrooms:    ptr(1),
		AreaM2:       ptr(65.0),
		Address:      ptr("Yakkasaroy, Tashkent"),
	}
}

// createWithStatus creates an ad as actor and forces its status.
func (f *fixture) createWithStatus(t *testing.T, actor *ads.Actor, title string, status model.AdStatus) *model.Ad {
	t.Helper()
	ctx := context.Background()
	d, err := f.ads.Create(ctx, actor, validPayload(title))
	require.NoError(t, err)
	ad := d.Ad
	if status != model.AdStatusPending {
		ad.Status = status
		require.NoError(t, f.store.UpdateAd(ctx, ad, "status"))
	}
	return ad
}

func b64(t *testing.T) string {
	return base64.StdEncoding.EncodeToString(pngData(t))
}
