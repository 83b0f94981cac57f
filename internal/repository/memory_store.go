package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"ijara_backend/internal/ads"
	"ijara_backend/internal/model"
)

type memoryState struct {
	ads          map[uint]model.Ad
	adAmenities  map[uint][]uint
	images       map[uint]model.AdImage
	amenities    map[uint]model.Amenity
	users        map[uint]model.User
	logs         []model.ModerationLog
	nextAdID     uint
	nextImageID  uint
	nextAmenity  uint
	nextUserID   uint
	nextLogEntry uint
}

func (st *memoryState) clone() *memoryState {
	c := *st
	c.ads = make(map[uint]model.Ad, len(st.ads))
	for k, v := range st.ads {
		c.ads[k] = v
	}
	c.adAmenities = make(map[uint][]uint, len(st.adAmenities))
	for k, v := range st.adAmenities {
		c.adAmenities[k] = append([]uint(nil), v...)
	}
	c.images = make(map[uint]model.AdImage, len(st.images))
	for k, v := range st.images {
		c.images[k] = v
	}
	c.amenities = make(map[uint]model.Amenity, len(st.amenities))
	for k, v := range st.amenities {
		c.amenities[k] = v
	}
	c.users = make(map[uint]model.User, len(st.users))
	for k, v := range st.users {
		c.users[k] = v
	}
	c.logs = append([]model.ModerationLog(nil), st.logs...)
	return &c
}

type memoryDB struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	st   *memoryState
	now  func() time.Time
}

// MemoryStore is an in-process Store used in development mode and tests.
// It evaluates query predicates with their Go matchers and enforces the same
// uniqueness rules as the database schema. Transactions are serialized and
// roll back by restoring a snapshot; writes outside a transaction wait for
// the running one to finish. Reads never wait and may observe uncommitted
// writes.
type MemoryStore struct {
	*memoryDB
	inTx bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{memoryDB: &memoryDB{
		st: &memoryState{
			ads:         map[uint]model.Ad{},
			adAmenities: map[uint][]uint{},
			images:      map[uint]model.AdImage{},
			amenities:   map[uint]model.Amenity{},
			users:       map[uint]model.User{},
		},
		now: time.Now,
	}}
}

func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	if err := fn(&MemoryStore{memoryDB: s.memoryDB, inTx: true}); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// lockWrite takes the write lock, and the transaction lock too when s is not
// bound to a transaction. The returned func releases both.
func (s *MemoryStore) lockWrite() func() {
	if !s.inTx {
		s.txMu.Lock()
	}
	s.mu.Lock()
	return func() {
		s.mu.Unlock()
		if !s.inTx {
			s.txMu.Unlock()
		}
	}
}

func duplicate(what string) error {
	return fmt.Errorf("%s: %w", what, gorm.ErrDuplicatedKey)
}

// assemble attaches amenities and images; callers hold mu.
func (s *MemoryStore) assemble(ad model.Ad) model.Ad {
	ad.Amenities = nil
	for _, id := range s.st.adAmenities[ad.ID] {
		if am, ok := s.st.amenities[id]; ok {
			ad.Amenities = append(ad.Amenities, am)
		}
	}
	sort.Slice(ad.Amenities, func(i, j int) bool { return ad.Amenities[i].ID < ad.Amenities[j].ID })

	ad.Images = nil
	for _, img := range s.st.images {
		if img.AdID == ad.ID {
			ad.Images = append(ad.Images, img)
		}
	}
	sort.Slice(ad.Images, func(i, j int) bool { return ad.Images[i].Order < ad.Images[j].Order })
	return ad
}

func reservesTitle(ad model.Ad) bool {
	for _, st := range titleReserved {
		if ad.Status == st {
			return true
		}
	}
	return false
}

// checkAdUnique enforces the slug and (owner, title) constraints; callers
// hold mu.
func (s *MemoryStore) checkAdUnique(ad model.Ad) error {
	for _, other := range s.st.ads {
		if other.ID == ad.ID {
			continue
		}
		if other.Slug == ad.Slug {
			return duplicate("ads.slug")
		}
		if reservesTitle(ad) && reservesTitle(other) && other.OwnerID == ad.OwnerID && other.Title == ad.Title {
			return duplicate("idx_owner_title_active")
		}
	}
	return nil
}

func (s *MemoryStore) CreateAd(_ context.Context, ad *model.Ad) error {
	defer s.lockWrite()()

	row := *ad
	row.Amenities, row.Images = nil, nil
	row.ID = s.st.nextAdID + 1
	if row.CreatedAt.IsZero() {
		row.CreatedAt = s.now()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	if err := s.checkAdUnique(row); err != nil {
		return err
	}
	s.st.nextAdID++
	s.st.ads[row.ID] = row
	ad.ID, ad.CreatedAt, ad.UpdatedAt = row.ID, row.CreatedAt, row.UpdatedAt
	return nil
}

func (s *MemoryStore) UpdateAd(_ context.Context, ad *model.Ad, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	defer s.lockWrite()()

	row, ok := s.st.ads[ad.ID]
	if !ok {
		return ads.ErrNotFound
	}
	for _, col := range columns {
		switch col {
		case "title":
			row.Title = ad.Title
		case "description":
			row.Description = ad.Description
		case "monthly_rent":
			row.MonthlyRent = ad.MonthlyRent
		case "property_type":
			row.PropertyType = ad.PropertyType
		case "bedrooms":
			row.Bedrooms = ad.Bedrooms
		case "bathrooms":
			row.Bathrooms = ad.Bathrooms
		case "area_m2":
			row.AreaM2 = ad.AreaM2
		case "address":
			row.Address = ad.Address
		case "latitude":
			row.Latitude = ad.Latitude
		case "longitude":
			row.Longitude = ad.Longitude
		case "contact_name":
			row.ContactName = ad.ContactName
		case "contact_phone":
			row.ContactPhone = ad.ContactPhone
		case "status":
			row.Status = ad.Status
		case "moderation_note":
			row.ModerationNote = ad.ModerationNote
		case "is_active":
			row.IsActive = ad.IsActive
		default:
			return fmt.Errorf("unknown ad column %q", col)
		}
	}
	row.UpdatedAt = ad.UpdatedAt
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = s.now()
	}
	if err := s.checkAdUnique(row); err != nil {
		return err
	}
	s.st.ads[row.ID] = row
	return nil
}

func (s *MemoryStore) FindAd(_ context.Context, id uint, scope ads.Predicate) (*model.Ad, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.st.ads[id]
	if !ok {
		return nil, ads.ErrNotFound
	}
	ad := s.assemble(row)
	if !scope.Match(&ad) {
		return nil, ads.ErrNotFound
	}
	return &ad, nil
}

func (s *MemoryStore) ListAds(_ context.Context, q ads.Query) ([]model.Ad, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []model.Ad
	for _, row := range s.st.ads {
		ad := s.assemble(row)
		if q.Matches(&ad) {
			matched = append(matched, ad)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return q.Less(&matched[i], &matched[j]) })

	total := int64(len(matched))
	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []model.Ad{}, total, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	if matched == nil {
		matched = []model.Ad{}
	}
	return matched, total, nil
}

func (s *MemoryStore) CountAds(ctx context.Context, preds ...ads.Predicate) (int64, error) {
	_, n, err := s.ListAds(ctx, ads.Query{Where: preds})
	return n, err
}

func (s *MemoryStore) TitleInUse(_ context.Context, ownerID uint, title string, excludeID uint) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ad := range s.st.ads {
		if ad.ID != excludeID && ad.OwnerID == ownerID && ad.Title == title && reservesTitle(ad) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) ReplaceAmenities(_ context.Context, adID uint, amenityIDs []uint) error {
	defer s.lockWrite()()

	var missing []uint
	seen := map[uint]bool{}
	ids := make([]uint, 0, len(amenityIDs))
	for _, id := range amenityIDs {
		if _, ok := s.st.amenities[id]; !ok {
			missing = append(missing, id)
			continue
		}
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if len(missing) > 0 {
		return unknownAmenities(missing)
	}
	if _, ok := s.st.ads[adID]; !ok {
		return ads.ErrNotFound
	}
	s.st.adAmenities[adID] = ids
	return nil
}

func (s *MemoryStore) CountImages(_ context.Context, adID uint) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, img := range s.st.images {
		if img.AdID == adID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) NextImageOrder(_ context.Context, adID uint) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	next := 0
	for _, img := range s.st.images {
		if img.AdID == adID && img.Order >= next {
			next = img.Order + 1
		}
	}
	return next, nil
}

func (s *MemoryStore) CreateImages(_ context.Context, images []*model.AdImage) error {
	defer s.lockWrite()()

	taken := map[[2]uint]bool{}
	for _, img := range s.st.images {
		taken[[2]uint{img.AdID, uint(img.Order)}] = true
	}
	for _, img := range images {
		k := [2]uint{img.AdID, uint(img.Order)}
		if taken[k] {
			return duplicate("idx_ad_image_order")
		}
		taken[k] = true
	}
	for _, img := range images {
		s.st.nextImageID++
		img.ID = s.st.nextImageID
		if img.CreatedAt.IsZero() {
			img.CreatedAt = s.now()
		}
		s.st.images[img.ID] = *img
	}
	return nil
}

func (s *MemoryStore) FindImage(_ context.Context, adID, imageID uint) (*model.AdImage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	img, ok := s.st.images[imageID]
	if !ok || img.AdID != adID {
		return nil, ads.ErrNotFound
	}
	return &img, nil
}

func (s *MemoryStore) DeleteImage(_ context.Context, imageID uint) error {
	defer s.lockWrite()()

	if _, ok := s.st.images[imageID]; !ok {
		return ads.ErrNotFound
	}
	delete(s.st.images, imageID)
	return nil
}

func (s *MemoryStore) CreateModerationLog(_ context.Context, entry *model.ModerationLog) error {
	defer s.lockWrite()()

	s.st.nextLogEntry++
	entry.ID = s.st.nextLogEntry
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	s.st.logs = append(s.st.logs, *entry)
	return nil
}

func (s *MemoryStore) ListModerationLogs(_ context.Context, adID uint) ([]model.ModerationLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []model.ModerationLog{}
	for _, l := range s.st.logs {
		if l.AdID == adID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListAmenities(_ context.Context) ([]model.Amenity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Amenity, 0, len(s.st.amenities))
	for _, a := range s.st.amenities {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) CreateAmenity(_ context.Context, amenity *model.Amenity) error {
	defer s.lockWrite()()

	for _, a := range s.st.amenities {
		if a.Name == amenity.Name || a.Slug == amenity.Slug {
			return duplicate("amenities")
		}
	}
	s.st.nextAmenity++
	amenity.ID = s.st.nextAmenity
	s.st.amenities[amenity.ID] = *amenity
	return nil
}

func (s *MemoryStore) CreateUser(_ context.Context, user *model.User) error {
	defer s.lockWrite()()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	for _, u := range s.st.users {
		if u.Email == user.Email {
			return duplicate("users.email")
		}
	}
	s.st.nextUserID++
	user.ID = s.st.nextUserID
	now := s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	row := *user
	row.Ads = nil
	s.st.users[user.ID] = row
	return nil
}

func (s *MemoryStore) FindUser(_ context.Context, id uint) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.st.users[id]
	if !ok {
		return nil, ads.ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.st.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ads.ErrNotFound
}
