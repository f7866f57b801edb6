package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"brewfeed/internal/models"
)

// errMockFailure is returned by every mock method while ShouldFail is set.
var errMockFailure = errors.New("mock: store failure")

// MockStore is an in-memory stand-in for the database used in tests. The
// repositories built on it honour the same contracts as the gorm ones,
// including gorm.ErrRecordNotFound and gorm.ErrDuplicatedKey.
type MockStore struct {
	mu          sync.Mutex
	Users       map[uuid.UUID]models.User
	Friendships map[uuid.UUID]models.Friendship
	Posts       map[uuid.UUID]models.Post
	Tokens      map[string]models.AuthToken
	ShouldFail  bool // flag to simulate failures

	last time.Time
}

// NewMock initializes a new mock store.
func NewMock() *MockStore {
	return &MockStore{
		Users:       make(map[uuid.UUID]models.User),
		Friendships: make(map[uuid.UUID]models.Friendship),
		Posts:       make(map[uuid.UUID]models.Post),
		Tokens:      make(map[string]models.AuthToken),
	}
}

// SetShouldFail toggles simulated failures.
func (m *MockStore) SetShouldFail(fail bool) {
	m.mu.Lock()
	m.ShouldFail = fail
	m.mu.Unlock()
}

// tick returns a strictly increasing timestamp so ordering by creation time
// is deterministic even within one clock tick. Callers hold mu.
func (m *MockStore) tick() time.Time {
	now := time.Now().UTC()
	if !now.After(m.last) {
		now = m.last.Add(time.Millisecond)
	}
	m.last = now
	return now
}

func (m *MockStore) stamp(b *models.BaseModel) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	now := m.tick()
	b.CreatedAt = now
	b.UpdatedAt = now
}

// MockUserRepository implements UserRepository on a MockStore.
type MockUserRepository struct{ s *MockStore }

// NewMockUserRepository returns a UserRepository backed by s.
func NewMockUserRepository(s *MockStore) *MockUserRepository { return &MockUserRepository{s: s} }

func (r *MockUserRepository) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return errMockFailure
	}
	for _, u := range r.s.Users {
		if u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	r.s.stamp(&user.BaseModel)
	r.s.Users[user.ID] = *user
	return nil
}

func (r *MockUserRepository) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return nil, errMockFailure
	}
	u, ok := r.s.Users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &u, nil
}

func (r *MockUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return nil, errMockFailure
	}
	for _, u := range r.s.Users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *MockUserRepository) Update(_ context.Context, id uuid.UUID, updates map[string]interface{}) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return nil, errMockFailure
	}
	u, ok := r.s.Users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if len(updates) > 0 {
		if v, ok := updates["name"].(string); ok {
			u.Name = v
		}
		if v, ok := updates["avatar"].(string); ok {
			u.Avatar = &v
		}
		u.UpdatedAt = r.s.tick()
		r.s.Users[id] = u
	}
	return &u, nil
}

func (r *MockUserRepository) SearchUsers(_ context.Context, query string, currentUserID uuid.UUID) ([]models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return nil, errMockFailure
	}
	q := strings.ToLower(query)
	users := make([]models.User, 0)
	for _, u := range r.s.Users {
		if u.ID == currentUserID {
			continue
		}
		if strings.Contains(strings.ToLower(u.Name), q) || strings.Contains(strings.ToLower(u.Email), q) {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	if len(users) > searchLimit {
		users = users[:searchLimit]
	}
	return users, nil
}

func (r *MockUserRepository) GetBasicInfoByID(_ context.Context, id uuid.UUID) (*models.UserBasicInfo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return nil, errMockFailure
	}
	u, ok := r.s.Users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u.BasicInfo(), nil
}

func (r *MockUserRepository) GetMultipleBasicInfoByIDs(_ context.Context, userIDs []uuid.UUID) ([]*models.UserBasicInfo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return nil, errMockFailure
	}
	infos := make([]*models.UserBasicInfo, 0, len(userIDs))
	for _, id := range userIDs {
		if u, ok := r.s.Users[id]; ok {
			infos = append(infos, u.BasicInfo())
		}
	}
	return infos, nil
}

// MockFriendshipRepository implements FriendshipRepository on a MockStore.
type MockFriendshipRepository struct{ s *MockStore }

// NewMockFriendshipRepository returns a FriendshipRepository backed by s.
func NewMockFriendshipRepository(s *MockStore) *MockFriendshipRepository {
	return &MockFriendshipRepository{s: s}
}

func (r *MockFriendshipRepository) Create(_ context.Context, f *models.Friendship) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return errMockFailure
	}
	if f.SenderID == f.ReceiverID {
		return gorm.ErrCheckConstraintViolated
	}
	f.EnsureCanonicalOrder()
	for _, existing := range r.s.Friendships {
		if existing.SamePair(f.SenderID, f.ReceiverID) {
			return gorm.ErrDuplicatedKey
		}
	}
	if _, ok := r.s.Users[f.SenderID]; !ok {
		return gorm.ErrForeignKeyViolated
	}
	if _, ok := r.s.Users[f.ReceiverID]; !ok {
		return gorm.ErrForeignKeyViolated
	}
	if f.Status == "" {
		f.Status = models.FriendshipStatusPending
	}
	r.s.stamp(&f.BaseModel)
	r.s.Friendships[f.ID] = *f
	return nil
}

func (r *MockFriendshipRepository) FindByID(_ context.Context, id uuid.UUID) (*models.Friendship, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return nil, errMockFailure
	}
	f, ok := r.s.Friendships[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &f, nil
}

func (r *MockFriendshipRepository) FindBetween(_ context.Context, a, b uuid.UUID) (*models.Friendship, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return nil, errMockFailure
	}
	for _, f := range r.s.Friendships {
		if f.SamePair(a, b) {
			return &f, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *MockFriendshipRepository) UpdateStatus(_ context.Context, id uuid.UUID, status models.FriendshipStatus) (*models.Friendship, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return nil, errMockFailure
	}
	f, ok := r.s.Friendships[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	f.Status = status
	f.UpdatedAt = r.s.tick()
	r.s.Friendships[id] = f
	return &f, nil
}

func (r *MockFriendshipRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return errMockFailure
	}
	if _, ok := r.s.Friendships[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.s.Friendships, id)
	return nil
}

func (r *MockFriendshipRepository) ListByUserAndStatus(_ context.Context, userID uuid.UUID, role models.FriendshipRole, status models.FriendshipStatus) ([]models.Friendship, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return nil, errMockFailure
	}
	out := make([]models.Friendship, 0)
	for _, f := range r.s.Friendships {
		if f.Status != status {
			continue
		}
		switch role {
		case models.RoleSender:
			if f.SenderID != userID {
				continue
			}
		case models.RoleReceiver:
			if f.ReceiverID != userID {
				continue
			}
		default:
			if !f.Involves(userID) {
				continue
			}
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MockFriendshipRepository) ListBetweenUserAndMany(_ context.Context, userID uuid.UUID, others []uuid.UUID) ([]models.Friendship, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return nil, errMockFailure
	}
	out := make([]models.Friendship, 0)
	for _, f := range r.s.Friendships {
		for _, other := range others {
			if f.SamePair(userID, other) {
				out = append(out, f)
				break
			}
		}
	}
	return out, nil
}

// MockPostRepository implements PostRepository on a MockStore.
type MockPostRepository struct{ s *MockStore }

// NewMockPostRepository returns a PostRepository backed by s.
func NewMockPostRepository(s *MockStore) *MockPostRepository { return &MockPostRepository{s: s} }

func (r *MockPostRepository) Create(_ context.Context, post *models.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return errMockFailure
	}
	r.s.stamp(&post.BaseModel)
	r.s.Posts[post.ID] = *post
	return nil
}

func (r *MockPostRepository) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return nil, errMockFailure
	}
	p, ok := r.s.Posts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &p, nil
}

func (r *MockPostRepository) Update(_ context.Context, id uuid.UUID, patch models.PostPatch) (*models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return nil, errMockFailure
	}
	p, ok := r.s.Posts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if len(patchColumns(patch)) == 0 {
		return &p, nil
	}
	if patch.BeerName != nil {
		p.BeerName = *patch.BeerName
	}
	if patch.Place != nil {
		p.Place = *patch.Place
	}
	if patch.Rating != nil {
		p.Rating = *patch.Rating
	}
	if patch.Notes != nil {
		notes := *patch.Notes
		p.Notes = &notes
	}
	if patch.ImageURL != nil {
		imageURL := *patch.ImageURL
		p.ImageURL = &imageURL
	}
	p.UpdatedAt = r.s.tick()
	r.s.Posts[id] = p
	return &p, nil
}

func (r *MockPostRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return errMockFailure
	}
	if _, ok := r.s.Posts[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.s.Posts, id)
	return nil
}

func (r *MockPostRepository) ListByAuthors(_ context.Context, authorIDs []uuid.UUID) ([]models.Post, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return nil, errMockFailure
	}
	wanted := make(map[uuid.UUID]bool, len(authorIDs))
	for _, id := range authorIDs {
		wanted[id] = true
	}
	out := make([]models.Post, 0)
	for _, p := range r.s.Posts {
		if wanted[p.UserID] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// MockTokenRepository implements TokenRepository on a MockStore.
type MockTokenRepository struct{ s *MockStore }

// NewMockTokenRepository returns a TokenRepository backed by s.
func NewMockTokenRepository(s *MockStore) *MockTokenRepository { return &MockTokenRepository{s: s} }

func (r *MockTokenRepository) Create(_ context.Context, token *models.AuthToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return errMockFailure
	}
	if _, ok := r.s.Tokens[token.JTI]; ok {
		return gorm.ErrDuplicatedKey
	}
	r.s.stamp(&token.BaseModel)
	r.s.Tokens[token.JTI] = *token
	return nil
}

func (r *MockTokenRepository) DeleteByJTI(_ context.Context, jti string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return errMockFailure
	}
	delete(r.s.Tokens, jti)
	return nil
}

func (r *MockTokenRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.ShouldFail {
		return 0, errMockFailure
	}
	var n int64
	for jti, t := range r.s.Tokens {
		if t.ExpiresAt.Before(now) {
			delete(r.s.Tokens, jti)
			n++
		}
	}
	return n, nil
}

var (
	_ UserRepository       = (*MockUserRepository)(nil)
	_ FriendshipRepository = (*MockFriendshipRepository)(nil)
	_ PostRepository       = (*MockPostRepository)(nil)
	_ TokenRepository      = (*MockTokenRepository)(nil)
)
