package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repositories for service tests.

type memSessions struct {
	mu       sync.Mutex
	sessions map[string]*domain.WorkoutSession
}

func newMemSessions() *memSessions {
	return &memSessions{sessions: map[string]*domain.WorkoutSession{}}
}

func (m *memSessions) Create(_ context.Context, s *domain.WorkoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = primitive.NewObjectID().Hex()
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memSessions) GetByID(_ context.Context, id string) (*domain.WorkoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.NewNotFoundError("workout session", id)
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) ListByUser(_ context.Context, userID string) ([]*domain.WorkoutSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.WorkoutSession{}
	for _, s := range m.sessions {
		if s.UserID == userID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memSessions) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return domain.NewNotFoundError("workout session", id)
	}
	delete(m.sessions, id)
	return nil
}

type memCompletions struct {
	mu        sync.Mutex
	sessions  *memSessions
	records   []*domain.CompletionRecord
	entries   []*domain.ExerciseHistoryEntry
	appendErr error
}

func (m *memCompletions) Append(_ context.Context, r *domain.CompletionRecord, entries []*domain.ExerciseHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	if r.IdempotencyKey != "" {
		for _, existing := range m.records {
			if existing.UserID == r.UserID && existing.IdempotencyKey == r.IdempotencyKey {
				return domain.ErrConflict
			}
		}
	}
	if r.Source == domain.SourceSession && m.sessions != nil {
		m.sessions.mu.Lock()
		s, ok := m.sessions.sessions[r.SessionID]
		if !ok || s.UserID != r.UserID {
			m.sessions.mu.Unlock()
			return domain.NewNotFoundError("workout session", r.SessionID)
		}
		s.CompletionCount++
		at := r.CompletedAt
		s.LastCompletedAt = &at
		m.sessions.mu.Unlock()
	}
	m.records = append(m.records, r)
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *memCompletions) GetByIdempotencyKey(_ context.Context, userID, key string) (*domain.CompletionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.UserID == userID && r.IdempotencyKey == key {
			return r, nil
		}
	}
	return nil, domain.NewNotFoundError("completion", key)
}

func (m *memCompletions) ListByUser(_ context.Context, userID string, limit int64) ([]*domain.CompletionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.CompletionRecord{}
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memCompletions) ListHistoryByUser(_ context.Context, userID string) ([]*domain.ExerciseHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.ExerciseHistoryEntry{}
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.Before(out[j].CompletedAt)
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

func (m *memCompletions) ListUserIDs(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, r := range m.records {
		if !seen[r.UserID] {
			seen[r.UserID] = true
			out = append(out, r.UserID)
		}
	}
	return out, nil
}

// add seeds a completion directly, bypassing the pipeline
func (m *memCompletions) add(userID string, at time.Time, exercises ...domain.ExercisePlan) {
	r, entries := buildCompletion(snapshot{
		userID:    userID,
		source:    domain.SourceSession,
		sessionID: "seed",
		exercises: exercises,
	}, at)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	m.entries = append(m.entries, entries...)
}

type memRecords struct {
	mu      sync.Mutex
	records map[string]*domain.PersonalRecord
	saveErr error
}

func newMemRecords() *memRecords {
	return &memRecords{records: map[string]*domain.PersonalRecord{}}
}

func (m *memRecords) Get(_ context.Context, userID, name string) (*domain.PersonalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pr, ok := m.records[userID+"|"+name]
	if !ok {
		return nil, domain.NewNotFoundError("personal record", name)
	}
	cp := *pr
	return &cp, nil
}

func (m *memRecords) Save(_ context.Context, pr *domain.PersonalRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *pr
	m.records[pr.UserID+"|"+pr.ExerciseName] = &cp
	return nil
}

func (m *memRecords) ListByUser(_ context.Context, userID string) ([]*domain.PersonalRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.PersonalRecord{}
	for _, pr := range m.records {
		if pr.UserID == userID {
			cp := *pr
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TimesPerformed != out[j].TimesPerformed {
			return out[i].TimesPerformed > out[j].TimesPerformed
		}
		return out[i].ExerciseName < out[j].ExerciseName
	})
	return out, nil
}

func (m *memRecords) DeleteByUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, pr := range m.records {
		if pr.UserID == userID {
			delete(m.records, k)
		}
	}
	return nil
}

type memStats struct {
	mu        sync.Mutex
	rows      map[string]*domain.ProgressStats
	upsertErr error
}

func newMemStats() *memStats {
	return &memStats{rows: map[string]*domain.ProgressStats{}}
}

func (m *memStats) Get(_ context.Context, userID string) (*domain.ProgressStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.rows[userID]
	if !ok {
		return nil, domain.NewNotFoundError("progress stats", userID)
	}
	cp := *s
	return &cp, nil
}

func (m *memStats) Upsert(_ context.Context, s *domain.ProgressStats) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	cp := *s
	m.rows[s.UserID] = &cp
	return nil
}

type memAchievements struct {
	mu       sync.Mutex
	catalog  []*domain.Achievement
	unlocked []*domain.UnlockedAchievement
}

func (m *memAchievements) ListCatalog(_ context.Context) ([]*domain.Achievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Achievement{}, m.catalog...), nil
}

func (m *memAchievements) UpsertCatalogEntry(_ context.Context, a *domain.Achievement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.catalog {
		if existing.ID == a.ID {
			m.catalog[i] = a
			return nil
		}
	}
	m.catalog = append(m.catalog, a)
	return nil
}

func (m *memAchievements) ListLocked(_ context.Context, userID string) ([]*domain.Achievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Achievement
	for _, a := range m.catalog {
		if !m.isUnlocked(userID, a.ID) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memAchievements) ListUnlocked(_ context.Context, userID string) ([]*domain.UnlockedAchievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.UnlockedAchievement{}
	for _, u := range m.unlocked {
		if u.UserID == userID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memAchievements) Unlock(_ context.Context, u *domain.UnlockedAchievement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.isUnlocked(u.UserID, u.AchievementID) {
		return domain.ErrConflict
	}
	m.unlocked = append(m.unlocked, u)
	return nil
}

func (m *memAchievements) isUnlocked(userID, id string) bool {
	for _, u := range m.unlocked {
		if u.UserID == userID && u.AchievementID == id {
			return true
		}
	}
	return false
}

type memFeed struct {
	mu        sync.Mutex
	posts     []*domain.FeedPost
	createErr error
}

func (m *memFeed) Create(_ context.Context, p *domain.FeedPost) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.posts = append(m.posts, p)
	return nil
}

func (m *memFeed) List(_ context.Context, f domain.FeedFilter) ([]*domain.FeedItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	allowed := map[string]bool{}
	for _, id := range f.AuthorIDs {
		allowed[id] = true
	}
	out := []*domain.FeedItem{}
	for i := len(m.posts) - 1; i >= 0; i-- {
		p := m.posts[i]
		if f.AuthorIDs != nil && !allowed[p.UserID] {
			continue
		}
		out = append(out, &domain.FeedItem{FeedPost: *p})
		if f.Limit > 0 && int64(len(out)) == f.Limit {
			break
		}
	}
	return out, nil
}

func (m *memFeed) byKind(kind string) []*domain.FeedPost {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.FeedPost
	for _, p := range m.posts {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

type memUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]*domain.User{}}
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return domain.ErrEmailTaken
		}
	}
	u.ID = primitive.NewObjectID().Hex()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) find(match func(*domain.User) bool, ref string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.NewNotFoundError("user", ref)
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.ID == id }, id)
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.Email == email }, email)
}

func (m *memUsers) GetByFirebaseUID(_ context.Context, uid string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.FirebaseUID != "" && u.FirebaseUID == uid }, uid)
}

func (m *memUsers) UpdateFirebaseUID(_ context.Context, id, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.NewNotFoundError("user", id)
	}
	u.FirebaseUID = uid
	return nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id string, p domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return domain.NewNotFoundError("user", id)
	}
	u.Profile = p
	return nil
}

func (m *memUsers) Search(_ context.Context, q, excludeID string, limit int64) ([]*domain.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q = strings.ToLower(q)
	out := []*domain.UserSummary{}
	for _, u := range m.users {
		if u.ID == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(u.DisplayName), q) || strings.Contains(strings.ToLower(u.Email), q) {
			out = append(out, &domain.UserSummary{ID: u.ID, DisplayName: u.DisplayName, Email: u.Email})
		}
	}
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memUsers) GetSummaries(_ context.Context, ids []string) ([]*domain.UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.UserSummary{}
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, &domain.UserSummary{ID: u.ID, DisplayName: u.DisplayName})
		}
	}
	return out, nil
}

type memRefreshTokens struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
}

func newMemRefreshTokens() *memRefreshTokens {
	return &memRefreshTokens{tokens: map[string]*domain.RefreshToken{}}
}

func (m *memRefreshTokens) Create(_ context.Context, t *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.tokens[t.TokenHash] = &cp
	return nil
}

func (m *memRefreshTokens) FindByHash(_ context.Context, hash string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[hash]
	if !ok || t.Revoked {
		return nil, domain.NewNotFoundError("refresh token", "")
	}
	cp := *t
	return &cp, nil
}

func (m *memRefreshTokens) RevokeByHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[hash]; ok {
		t.Revoked = true
	}
	return nil
}

func (m *memRefreshTokens) RevokeAllByUserID(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (m *memRefreshTokens) DeleteExpired(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, t := range m.tokens {
		if t.ExpiresAt.Before(cutoff) {
			delete(m.tokens, k)
			n++
		}
	}
	return n, nil
}

type memFollows struct {
	mu    sync.Mutex
	edges []domain.Follow
}

func (m *memFollows) Toggle(_ context.Context, follower, following string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.edges {
		if e.FollowerID == follower && e.FollowingID == following {
			m.edges = append(m.edges[:i], m.edges[i+1:]...)
			return false, nil
		}
	}
	m.edges = append(m.edges, domain.Follow{FollowerID: follower, FollowingID: following, CreatedAt: time.Now()})
	return true, nil
}

func (m *memFollows) IsFollowing(_ context.Context, follower, following string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.edges {
		if e.FollowerID == follower && e.FollowingID == following {
			return true, nil
		}
	}
	return false, nil
}

func (m *memFollows) count(match func(domain.Follow) bool) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, e := range m.edges {
		if match(e) {
			n++
		}
	}
	return n
}

func (m *memFollows) CountFollowers(_ context.Context, userID string) (int64, error) {
	return m.count(func(e domain.Follow) bool { return e.FollowingID == userID }), nil
}

func (m *memFollows) CountFollowing(_ context.Context, userID string) (int64, error) {
	return m.count(func(e domain.Follow) bool { return e.FollowerID == userID }), nil
}

func (m *memFollows) ListFollowingIDs(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for i := len(m.edges) - 1; i >= 0; i-- {
		if m.edges[i].FollowerID == userID {
			out = append(out, m.edges[i].FollowingID)
		}
	}
	return out, nil
}

type memChallenges struct {
	mu         sync.Mutex
	challenges map[string]*domain.Challenge
}

func newMemChallenges() *memChallenges {
	return &memChallenges{challenges: map[string]*domain.Challenge{}}
}

func (m *memChallenges) Create(_ context.Context, c *domain.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.challenges[c.ID] = &cp
	return nil
}

func (m *memChallenges) GetByID(_ context.Context, id string) (*domain.Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[id]
	if !ok {
		return nil, domain.NewNotFoundError("challenge", id)
	}
	cp := *c
	return &cp, nil
}

func (m *memChallenges) list(match func(*domain.Challenge) bool, now time.Time) []*domain.Challenge {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Challenge{}
	for _, c := range m.challenges {
		if !match(c) || c.Status == domain.ChallengeExpired {
			continue
		}
		if (c.Status == domain.ChallengePending || c.Status == domain.ChallengeAccepted) && !now.Before(c.ExpiresAt) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out
}

func (m *memChallenges) ListReceived(_ context.Context, userID string, now time.Time) ([]*domain.Challenge, error) {
	return m.list(func(c *domain.Challenge) bool { return c.ChallengedID == userID }, now), nil
}

func (m *memChallenges) ListSent(_ context.Context, userID string, now time.Time) ([]*domain.Challenge, error) {
	return m.list(func(c *domain.Challenge) bool { return c.ChallengerID == userID }, now), nil
}

func (m *memChallenges) UpdateStatus(_ context.Context, id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.challenges[id]
	if !ok {
		return domain.NewNotFoundError("challenge", id)
	}
	c.Status = status
	return nil
}

func (m *memChallenges) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.challenges[id]; !ok {
		return domain.NewNotFoundError("challenge", id)
	}
	delete(m.challenges, id)
	return nil
}

type memNotifications struct {
	mu    sync.Mutex
	items []*domain.Notification
}

func (m *memNotifications) Create(_ context.Context, n *domain.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, n)
	return nil
}

func (m *memNotifications) ListByUser(_ context.Context, userID string, limit int64) ([]*domain.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Notification{}
	for i := len(m.items) - 1; i >= 0; i-- {
		if m.items[i].UserID == userID {
			out = append(out, m.items[i])
		}
	}
	return out, nil
}

func (m *memNotifications) MarkAllRead(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.items {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

type memLeaderboard struct {
	calls []string
}

func (m *memLeaderboard) Top(_ context.Context, criteria string, _ int64) ([]*domain.LeaderboardEntry, error) {
	m.calls = append(m.calls, criteria)
	return []*domain.LeaderboardEntry{}, nil
}

type memCache struct {
	mu      sync.Mutex
	deleted []string
}

func (m *memCache) Get(context.Context, string, interface{}) error {
	return domain.ErrNotFound
}

func (m *memCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }

func (m *memCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, keys...)
	return nil
}
