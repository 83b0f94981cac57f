package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"ijara_backend/internal/ads"
	"ijara_backend/internal/model"
	"ijara_backend/internal/repository"
	"ijara_backend/pkg/logger"
	"ijara_backend/pkg/utils/image"
	"ijara_backend/pkg/utils/storage"
)

const imagePrefix = "ads"

// Scope selects which ads a single-item operation can reach.
type Scope int

const (
	// ScopePublic uses detail visibility for reads and reaches every ad for
	// writes, leaving the decision to the permission check.
	ScopePublic Scope = iota
	// ScopeMine reaches only the caller's own ads.
	ScopeMine
)

type OwnerSummary struct {
	ID        uint
	Username  string
	FullName  string
	ActiveAds int64
}

type AdDetail struct {
	Ad    *model.Ad
	Owner *OwnerSummary
}

type AdPage struct {
	Items  []model.Ad
	Owners map[uint]*OwnerSummary
	Count  int64
	Page   ads.Page
}

type Stats struct {
	Available int64 `json:"available"`
	Pending   int64 `json:"pending"`
	Rented    int64 `json:"rented"`
	Total     int64 `json:"total"`
}

type Location struct {
	ID        uint    `json:"id"`
	Price     int64   `json:"price"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// AdService runs the ad lifecycle: every mutating call is one store
// transaction, and blobs written for a failed transaction are removed.
type AdService struct {
	store     repository.Store
	blobs     storage.BlobStore
	validator *ads.Validator
	log       *logger.Logger
	now       func() time.Time
}

func NewAdService(store repository.Store, blobs storage.BlobStore, log *logger.Logger) *AdService {
	return &AdService{
		store:     store,
		blobs:     blobs,
		validator: ads.NewValidator(),
		log:       log,
		now:       time.Now,
	}
}

func (s *AdService) readScope(actor *ads.Actor, scope Scope) ads.Predicate {
	if scope == ScopeMine {
		return ads.OwnedBy(actorID(actor))
	}
	return ads.DetailVisibility(actor)
}

func (s *AdService) writeScope(actor *ads.Actor, scope Scope) ads.Predicate {
	if scope == ScopeMine {
		return ads.OwnedBy(actorID(actor))
	}
	return ads.All()
}

func actorID(actor *ads.Actor) uint {
	if actor == nil {
		return 0
	}
	return actor.ID
}

// Create validates p, then stores the ad, its amenities and its images in a
// single transaction. The new ad is always PENDING.
func (s *AdService) Create(ctx context.Context, actor *ads.Actor, p *ads.Payload) (*AdDetail, error) {
	if !actor.Authenticated() {
		return nil, ads.ErrUnauthenticated
	}
	v, err := s.validator.Validate(p, actor, 0, false, "")
	if err != nil {
		return nil, err
	}
	decoded, err := decodeImages(p.Images)
	if err != nil {
		return nil, err
	}

	now := s.now()
	ad := ads.NewAd(actor, v, now)
	var written []string

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		taken, err := tx.TitleInUse(ctx, ad.OwnerID, ad.Title, 0)
		if err != nil {
			return err
		}
		if taken {
			return ads.FieldError("title", ads.MsgTitleTaken)
		}
		if err := tx.CreateAd(ctx, ad); err != nil {
			return err
		}
		if v.Amenities != nil {
			if err := tx.ReplaceAmenities(ctx, ad.ID, *v.Amenities); err != nil {
				return err
			}
		}
		refs, err := s.attachImages(ctx, tx, ad.ID, decoded, 0, now)
		written = refs
		return err
	})
	if err != nil {
		s.discard(written)
		return nil, s.translate(err, "title")
	}

	s.log.Info("ad %d created by user %d", ad.ID, actor.ID)
	return s.detail(ctx, ad.ID, ads.All())
}

// Get returns one ad with its owner summary.
func (s *AdService) Get(ctx context.Context, actor *ads.Actor, id uint, scope Scope) (*AdDetail, error) {
	return s.detail(ctx, id, s.readScope(actor, scope))
}

func (s *AdService) detail(ctx context.Context, id uint, scope ads.Predicate) (*AdDetail, error) {
	ad, err := s.store.FindAd(ctx, id, scope)
	if err != nil {
		return nil, err
	}
	owner, err := s.ownerSummary(ctx, ad.OwnerID)
	if err != nil {
		return nil, err
	}
	return &AdDetail{Ad: ad, Owner: owner}, nil
}

func (s *AdService) ownerSummary(ctx context.Context, ownerID uint) (*OwnerSummary, error) {
	summary := &OwnerSummary{ID: ownerID}
	user, err := s.store.FindUser(ctx, ownerID)
	switch {
	case err == nil:
		summary.Username = user.Email
		summary.FullName = user.GetFullName()
	case !errors.Is(err, ads.ErrNotFound):
		return nil, err
	}
	n, err := s.store.CountAds(ctx, ads.OwnedBy(ownerID), ads.Active(), ads.StatusIs(model.AdStatusApproved))
	if err != nil {
		return nil, err
	}
	summary.ActiveAds = n
	return summary, nil
}

// Update applies a partial update. Field restrictions on APPROVED ads are
// reported as validation errors.
func (s *AdService) Update(ctx context.Context, actor *ads.Actor, id uint, p *ads.Payload, scope Scope) (*AdDetail, error) {
	ad, err := s.store.FindAd(ctx, id, s.writeScope(actor, scope))
	if err != nil {
		return nil, err
	}
	v, err := ads.PrepareUpdate(ad, actor, p, s.validator, len(ad.Images))
	if err != nil {
		return nil, err
	}
	decoded, err := decodeImages(p.Images)
	if err != nil {
		return nil, err
	}

	now := s.now()
	before := *ad
	beforeAmenities := ad.AmenityIDs()
	ads.ApplyUpdate(ad, v, now)
	var written []string

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if contains(v.Columns, "title") && ad.Title != before.Title {
			taken, err := tx.TitleInUse(ctx, ad.OwnerID, ad.Title, ad.ID)
			if err != nil {
				return err
			}
			if taken && (ad.Status == model.AdStatusPending || ad.Status == model.AdStatusApproved) {
				return ads.FieldError("title", ads.MsgTitleTaken)
			}
		}
		if err := tx.UpdateAd(ctx, ad, v.Columns...); err != nil {
			return err
		}
		if v.Amenities != nil {
			if err := tx.ReplaceAmenities(ctx, ad.ID, *v.Amenities); err != nil {
				return err
			}
		}
		// The count read before the transaction may be stale.
		count, err := tx.CountImages(ctx, ad.ID)
		if err != nil {
			return err
		}
		if len(decoded) > 0 && count+len(decoded) > model.MaxAdImages {
			return ads.FieldError("images", ads.MsgImageLimit)
		}
		start, err := tx.NextImageOrder(ctx, ad.ID)
		if err != nil {
			return err
		}
		if written, err = s.attachImages(ctx, tx, ad.ID, decoded, start, now); err != nil {
			return s.translate(err, "images")
		}

		changes := diffAd(&before, ad, v.Columns)
		if v.Amenities != nil {
			changes["amenities"] = change{From: beforeAmenities, To: *v.Amenities}
		}
		if len(decoded) > 0 {
			changes["images"] = change{From: count, To: count + len(decoded)}
		}
		return s.record(ctx, tx, ad, actor, model.ModerationUpdate, before.Status, "", changes)
	})
	if err != nil {
		s.discard(written)
		return nil, s.translate(err, "title")
	}
	return s.detail(ctx, ad.ID, ads.All())
}

// Delete soft-deletes an ad. The status is left unchanged.
func (s *AdService) Delete(ctx context.Context, actor *ads.Actor, id uint, scope Scope) error {
	ad, err := s.store.FindAd(ctx, id, s.writeScope(actor, scope))
	if err != nil {
		return err
	}
	if err := ads.SoftDelete(ad, actor, s.now()); err != nil {
		return err
	}
	return s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.UpdateAd(ctx, ad, "is_active"); err != nil {
			return err
		}
		return s.record(ctx, tx, ad, actor, model.ModerationDelete, ad.Status, "", changeSet{
			"is_active": {From: true, To: false},
		})
	})
}

// AppendImages adds images at the end of the ad's image order.
func (s *AdService) AppendImages(ctx context.Context, actor *ads.Actor, id uint, sources []ads.ImageSource) ([]model.AdImage, error) {
	ad, err := s.store.FindAd(ctx, id, ads.All())
	if err != nil {
		return nil, err
	}
	if !ads.CanAccess(ad, actor, ads.MethodPost) {
		return nil, ads.ErrForbidden
	}
	if len(sources) == 0 {
		return nil, ads.MissingField("image")
	}
	decoded, err := decodeImages(sources)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var (
		written []string
		created []model.AdImage
	)
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		count, err := tx.CountImages(ctx, ad.ID)
		if err != nil {
			return err
		}
		if count+len(decoded) > model.MaxAdImages {
			return ads.FieldError("images", ads.MsgImageLimit)
		}
		start, err := tx.NextImageOrder(ctx, ad.ID)
		if err != nil {
			return err
		}
		images, err := s.createImages(ctx, tx, ad.ID, decoded, start, now, &written)
		if err != nil {
			return err
		}
		for _, img := range images {
			created = append(created, *img)
		}
		return nil
	})
	if err != nil {
		s.discard(written)
		return nil, s.translate(err, "images")
	}
	return created, nil
}

// DeleteImage removes one image; its blob is deleted after the commit.
func (s *AdService) DeleteImage(ctx context.Context, actor *ads.Actor, adID, imageID uint) error {
	ad, err := s.store.FindAd(ctx, adID, ads.All())
	if err != nil {
		return err
	}
	if !ads.CanAccess(ad, actor, ads.MethodDelete) {
		return ads.ErrForbidden
	}
	img, err := s.store.FindImage(ctx, ad.ID, imageID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteImage(ctx, img.ID); err != nil {
		return err
	}
	s.discard([]string{img.Image})
	return nil
}

func (s *AdService) Approve(ctx context.Context, actor *ads.Actor, id uint, note string) (*AdDetail, error) {
	return s.moderate(ctx, actor, id, note, model.ModerationApprove, ads.Approve)
}

func (s *AdService) Reject(ctx context.Context, actor *ads.Actor, id uint, note string) (*AdDetail, error) {
	return s.moderate(ctx, actor, id, note, model.ModerationReject, ads.Reject)
}

type transition func(ad *model.Ad, actor *ads.Actor, note string, now time.Time) error

func (s *AdService) moderate(ctx context.Context, actor *ads.Actor, id uint, note string, action model.ModerationAction, apply transition) (*AdDetail, error) {
	ad, err := s.store.FindAd(ctx, id, ads.All())
	if err != nil {
		return nil, err
	}
	from := ad.Status
	if err := apply(ad, actor, note, s.now()); err != nil {
		return nil, err
	}
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.UpdateAd(ctx, ad, "status", "moderation_note"); err != nil {
			return err
		}
		return s.record(ctx, tx, ad, actor, action, from, ad.ModerationNote, nil)
	})
	if err != nil {
		return nil, s.translate(err, "title")
	}
	s.log.Info("ad %d %s by moderator %d", ad.ID, action, actor.ID)
	return s.detail(ctx, ad.ID, ads.All())
}

// History lists the moderation log of an ad, oldest first. Staff only.
func (s *AdService) History(ctx context.Context, actor *ads.Actor, id uint) ([]model.ModerationLog, error) {
	if !actor.Staff() {
		return nil, ads.ErrForbidden
	}
	if _, err := s.store.FindAd(ctx, id, ads.All()); err != nil {
		return nil, err
	}
	return s.store.ListModerationLogs(ctx, id)
}

// List returns the filtered public listing.
func (s *AdService) List(ctx context.Context, actor *ads.Actor, f ads.Filter, page ads.Page) (*AdPage, error) {
	return s.page(ctx, f.Query(ads.ListVisibility(actor)), page)
}

// ListMine lists the caller's active ads in any status.
func (s *AdService) ListMine(ctx context.Context, actor *ads.Actor, f ads.Filter, page ads.Page) (*AdPage, error) {
	if !actor.Authenticated() {
		return nil, ads.ErrUnauthenticated
	}
	return s.page(ctx, f.Query(ads.And(ads.OwnedBy(actor.ID), ads.Active())), page)
}

// ModerationQueue lists active PENDING ads. Staff only.
func (s *AdService) ModerationQueue(ctx context.Context, actor *ads.Actor, f ads.Filter, page ads.Page) (*AdPage, error) {
	if !actor.Staff() {
		return nil, ads.ErrForbidden
	}
	return s.page(ctx, f.Query(ads.And(ads.Active(), ads.StatusIs(model.AdStatusPending))), page)
}

// Nearby lists visible ads inside a lat/lng box around the given point.
func (s *AdService) Nearby(ctx context.Context, actor *ads.Actor, lat, lng, radiusKm float64, page ads.Page) (*AdPage, error) {
	q := ads.Query{
		Where:   []ads.Predicate{ads.ListVisibility(actor), ads.BoundingBox(lat, lng, radiusKm)},
		OrderBy: ads.DefaultOrdering,
	}
	return s.page(ctx, q, page)
}

func (s *AdService) page(ctx context.Context, q ads.Query, page ads.Page) (*AdPage, error) {
	items, total, err := s.store.ListAds(ctx, page.Apply(q))
	if err != nil {
		return nil, err
	}
	owners, err := s.owners(ctx, items)
	if err != nil {
		return nil, err
	}
	return &AdPage{Items: items, Owners: owners, Count: total, Page: page}, nil
}

// owners loads one summary per distinct owner in items.
func (s *AdService) owners(ctx context.Context, items []model.Ad) (map[uint]*OwnerSummary, error) {
	out := make(map[uint]*OwnerSummary)
	for _, ad := range items {
		if _, ok := out[ad.OwnerID]; ok {
			continue
		}
		summary, err := s.ownerSummary(ctx, ad.OwnerID)
		if err != nil {
			return nil, err
		}
		out[ad.OwnerID] = summary
	}
	return out, nil
}

// Similar returns up to three other approved, active ads of the same
// property type, newest first.
func (s *AdService) Similar(ctx context.Context, actor *ads.Actor, id uint) (*AdPage, error) {
	source, err := s.store.FindAd(ctx, id, ads.DetailVisibility(actor))
	if err != nil {
		return nil, err
	}
	items, _, err := s.store.ListAds(ctx, ads.Query{
		Where: []ads.Predicate{
			ads.Active(),
			ads.StatusIs(model.AdStatusApproved),
			ads.PropertyTypeIs(source.PropertyType),
			ads.ExcludeID(source.ID),
		},
		OrderBy: ads.DefaultOrdering,
		Limit:   3,
	})
	if err != nil {
		return nil, err
	}
	owners, err := s.owners(ctx, items)
	if err != nil {
		return nil, err
	}
	return &AdPage{Items: items, Owners: owners, Count: int64(len(items))}, nil
}

// Stats counts active ads by availability.
func (s *AdService) Stats(ctx context.Context) (*Stats, error) {
	count := func(st model.AdStatus) (int64, error) {
		return s.store.CountAds(ctx, ads.Active(), ads.StatusIs(st))
	}
	var (
		out Stats
		err error
	)
	if out.Available, err = count(model.AdStatusApproved); err != nil {
		return nil, err
	}
	if out.Pending, err = count(model.AdStatusPending); err != nil {
		return nil, err
	}
	if out.Rented, err = count(model.AdStatusArchived); err != nil {
		return nil, err
	}
	out.Total = out.Available + out.Pending + out.Rented
	return &out, nil
}

// PendingCount is the size of the moderation queue.
func (s *AdService) PendingCount(ctx context.Context) (int64, error) {
	return s.store.CountAds(ctx, ads.Active(), ads.StatusIs(model.AdStatusPending))
}

// Locations reduces every visible ad with coordinates to a map marker.
func (s *AdService) Locations(ctx context.Context, actor *ads.Actor) ([]Location, error) {
	items, _, err := s.store.ListAds(ctx, ads.Query{
		Where:   []ads.Predicate{ads.ListVisibility(actor), ads.HasLocation()},
		OrderBy: ads.DefaultOrdering,
	})
	if err != nil {
		return nil, err
	}
	out := make([]Location, 0, len(items))
	for _, ad := range items {
		out = append(out, Location{
			ID:        ad.ID,
			Price:     ad.MonthlyRent,
			Latitude:  *ad.Latitude,
			Longitude: *ad.Longitude,
		})
	}
	return out, nil
}

func decodeImages(sources []ads.ImageSource) ([]*image.Decoded, error) {
	out := make([]*image.Decoded, 0, len(sources))
	for i, src := range sources {
		var (
			d   *image.Decoded
			err error
		)
		if src.Raw != nil {
			d, err = image.ProcessBytes(src.Raw)
		} else {
			d, err = image.ProcessBase64(src.Encoded)
		}
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *AdService) attachImages(ctx context.Context, tx repository.Store, adID uint, decoded []*image.Decoded, start int, now time.Time) ([]string, error) {
	var written []string
	_, err := s.createImages(ctx, tx, adID, decoded, start, now, &written)
	return written, err
}

// createImages writes blobs and image rows numbered from start. Every blob
// reference written is appended to written, even on failure.
func (s *AdService) createImages(ctx context.Context, tx repository.Store, adID uint, decoded []*image.Decoded, start int, now time.Time, written *[]string) ([]*model.AdImage, error) {
	if len(decoded) == 0 {
		return nil, nil
	}
	images := make([]*model.AdImage, 0, len(decoded))
	for i, d := range decoded {
		ref, err := s.blobs.Put(ctx, image.UniqueFilename(imagePrefix, d, now), d.ContentType, d.Data)
		if err != nil {
			return nil, err
		}
		*written = append(*written, ref)
		images = append(images, &model.AdImage{AdID: adID, Image: ref, Order: start + i, CreatedAt: now})
	}
	if err := tx.CreateImages(ctx, images); err != nil {
		return nil, err
	}
	return images, nil
}

// discard removes blobs best-effort.
func (s *AdService) discard(refs []string) {
	for _, ref := range refs {
		if err := s.blobs.Delete(context.Background(), ref); err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
			s.log.Warn("could not delete blob %s: %v", ref, err)
		}
	}
}

// translate turns store uniqueness violations into validation errors.
func (s *AdService) translate(err error, field string) error {
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	if field == "images" {
		return ads.FieldError("images", ads.MsgImageConflict)
	}
	return ads.FieldError(field, ads.MsgTitleTaken)
}

type change struct {
	From interface{} `json:"from"`
	To   interface{} `json:"to"`
}

type changeSet map[string]change

func (s *AdService) record(ctx context.Context, tx repository.Store, ad *model.Ad, actor *ads.Actor, action model.ModerationAction, from model.AdStatus, note string, changes changeSet) error {
	entry := &model.ModerationLog{
		AdID:       ad.ID,
		ActorID:    actorID(actor),
		Action:     action,
		FromStatus: from,
		ToStatus:   ad.Status,
		Note:       note,
		CreatedAt:  s.now(),
	}
	if len(changes) > 0 {
		raw, err := json.Marshal(changes)
		if err != nil {
			return err
		}
		entry.Changes = datatypes.JSON(raw)
	}
	return tx.CreateModerationLog(ctx, entry)
}

func diffAd(before, after *model.Ad, columns []string) changeSet {
	out := changeSet{}
	for _, col := range columns {
		from, to := adColumn(before, col), adColumn(after, col)
		out[col] = change{From: from, To: to}
	}
	return out
}

func adColumn(ad *model.Ad, col string) interface{} {
	switch col {
	case "title":
		return ad.Title
	case "description":
		return ad.Description
	case "monthly_rent":
		return ad.MonthlyRent
	case "property_type":
		return ad.PropertyType
	case "bedrooms":
		return ad.Bedrooms
	case "bathrooms":
		return ad.Bathrooms
	case "area_m2":
		return ad.AreaM2
	case "address":
		return ad.Address
	case "latitude":
		return ad.Latitude
	case "longitude":
		return ad.Longitude
	case "contact_name":
		return ad.ContactName
	case "contact_phone":
		return ad.ContactPhone
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
