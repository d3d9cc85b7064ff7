package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	feedLimit         = 50
	searchLimit       = 20
	leaderboardLimit  = 100
	notificationLimit = 50
	recentWorkouts    = 5
)

// CommunityService covers follows, the feed, search, leaderboards and public profiles
type CommunityService struct {
	users         domain.UserRepository
	follows       domain.FollowRepository
	feed          domain.FeedRepository
	leaderboard   domain.LeaderboardRepository
	notifications domain.NotificationRepository
	achievements  domain.AchievementRepository
	completions   domain.CompletionRepository
	stats         *StatsAggregator
	now           func() time.Time
	log           *zap.Logger
}

func NewCommunityService(
	users domain.UserRepository,
	follows domain.FollowRepository,
	feed domain.FeedRepository,
	leaderboard domain.LeaderboardRepository,
	notifications domain.NotificationRepository,
	achievements domain.AchievementRepository,
	completions domain.CompletionRepository,
	stats *StatsAggregator,
	log *zap.Logger,
) *CommunityService {
	return &CommunityService{
		users:         users,
		follows:       follows,
		feed:          feed,
		leaderboard:   leaderboard,
		notifications: notifications,
		achievements:  achievements,
		completions:   completions,
		stats:         stats,
		now:           time.Now,
		log:           log.Named("community"),
	}
}

// ToggleFollow follows the target when not followed yet, else unfollows.
// It reports whether the user now follows the target.
func (s *CommunityService) ToggleFollow(ctx context.Context, userID, targetID string) (bool, error) {
	if userID == targetID {
		return false, domain.NewValidationError("user_id", "cannot follow yourself")
	}
	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return false, err
	}

	following, err := s.follows.Toggle(ctx, userID, target.ID)
	if err != nil {
		return false, err
	}
	if !following {
		return false, nil
	}

	follower, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return true, nil
	}
	n := &domain.Notification{
		ID:         generateULID(),
		UserID:     target.ID,
		Kind:       domain.NotificationFollow,
		FromUserID: userID,
		Message:    fmt.Sprintf("%s started following you", follower.DisplayName),
		CreatedAt:  s.now().UTC(),
	}
	if err := s.notifications.Create(ctx, n); err != nil {
		s.log.Warn("follow notification not stored", zap.String("user_id", target.ID), zap.Error(err))
	}
	return true, nil
}

// ListFollowing returns the cards of everyone the user follows, newest follow first
func (s *CommunityService) ListFollowing(ctx context.Context, userID string) ([]*domain.UserSummary, error) {
	ids, err := s.follows.ListFollowingIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*domain.UserSummary{}, nil
	}

	cards, err := s.users.GetSummaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	rank := make(map[string]int, len(ids))
	for i, id := range ids {
		rank[id] = i
	}
	sort.SliceStable(cards, func(i, j int) bool { return rank[cards[i].ID] < rank[cards[j].ID] })
	return cards, nil
}

// Feed lists the newest posts, optionally only from followed users and the user themself.
func (s *CommunityService) Feed(ctx context.Context, userID string, followingOnly bool) ([]*domain.FeedItem, error) {
	filter := domain.FeedFilter{Limit: feedLimit}
	if followingOnly {
		ids, err := s.follows.ListFollowingIDs(ctx, userID)
		if err != nil {
			return nil, err
		}
		filter.AuthorIDs = append(ids, userID)
	}
	return s.feed.List(ctx, filter)
}

func (s *CommunityService) SearchUsers(ctx context.Context, userID, query string) ([]*domain.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*domain.UserSummary{}, nil
	}
	return s.users.Search(ctx, query, userID, searchLimit)
}

func (s *CommunityService) Leaderboard(ctx context.Context, criteria string) ([]*domain.LeaderboardEntry, error) {
	switch criteria {
	case domain.LeaderboardXP, domain.LeaderboardWorkouts, domain.LeaderboardStreak:
	default:
		return nil, domain.NewValidationError("criteria", "must be one of xp, workouts, streak")
	}
	return s.leaderboard.Top(ctx, criteria, leaderboardLimit)
}

// CommunityProfile is another user's public page
type CommunityProfile struct {
	User           *domain.User               `json:"user"`
	Level          int                        `json:"level"`
	FollowersCount int64                      `json:"followers_count"`
	FollowingCount int64                      `json:"following_count"`
	IsFollowing    bool                       `json:"is_following"`
	IsOwnProfile   bool                       `json:"is_own_profile"`
	Stats          *domain.ProgressStats      `json:"stats,omitempty"`
	Achievements   []*UnlockedAchievementCard `json:"achievements,omitempty"`
	RecentWorkouts []*domain.CompletionRecord `json:"recent_workouts,omitempty"`
}

// UnlockedAchievementCard is an unlock joined with its catalog entry
type UnlockedAchievementCard struct {
	domain.Achievement
	UnlockedAt time.Time `json:"unlocked_at"`
}

// Level grows by one every ten workouts
func Level(totalWorkouts int) int {
	return totalWorkouts/10 + 1
}

func (s *CommunityService) GetCommunityProfile(ctx context.Context, viewerID, targetID string) (*CommunityProfile, error) {
	user, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	own := viewerID == user.ID
	out := &CommunityProfile{User: user, IsOwnProfile: own}

	var (
		stats    *domain.ProgressStats
		unlocked []*domain.UnlockedAchievement
		catalog  []*domain.Achievement
		recent   []*domain.CompletionRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		stats, err = s.stats.Get(gctx, user.ID)
		return err
	})
	g.Go(func() (err error) {
		out.FollowersCount, err = s.follows.CountFollowers(gctx, user.ID)
		return err
	})
	g.Go(func() (err error) {
		out.FollowingCount, err = s.follows.CountFollowing(gctx, user.ID)
		return err
	})
	if !own {
		g.Go(func() (err error) {
			out.IsFollowing, err = s.follows.IsFollowing(gctx, viewerID, user.ID)
			return err
		})
	}
	if own || user.Profile.ShowAchievements {
		g.Go(func() (err error) {
			unlocked, err = s.achievements.ListUnlocked(gctx, user.ID)
			return err
		})
		g.Go(func() (err error) {
			catalog, err = s.achievements.ListCatalog(gctx)
			return err
		})
	}
	if own || user.Profile.ShowWorkouts {
		g.Go(func() (err error) {
			recent, err = s.completions.ListByUser(gctx, user.ID, recentWorkouts)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out.Level = Level(stats.TotalWorkouts)
	if own || user.Profile.ShowStats {
		out.Stats = stats
	}
	if own || user.Profile.ShowAchievements {
		out.Achievements = joinUnlocked(catalog, unlocked)
	}
	if own || user.Profile.ShowWorkouts {
		out.RecentWorkouts = recent
	}
	return out, nil
}

// joinUnlocked pairs unlock rows with catalog entries, newest unlock first
func joinUnlocked(catalog []*domain.Achievement, unlocked []*domain.UnlockedAchievement) []*UnlockedAchievementCard {
	byID := make(map[string]*domain.Achievement, len(catalog))
	for _, a := range catalog {
		byID[a.ID] = a
	}
	cards := make([]*UnlockedAchievementCard, 0, len(unlocked))
	for _, u := range unlocked {
		a, ok := byID[u.AchievementID]
		if !ok {
			continue
		}
		cards = append(cards, &UnlockedAchievementCard{Achievement: *a, UnlockedAt: u.UnlockedAt})
	}
	sort.SliceStable(cards, func(i, j int) bool { return cards[i].UnlockedAt.After(cards[j].UnlockedAt) })
	return cards
}

func (s *CommunityService) ListNotifications(ctx context.Context, userID string) ([]*domain.Notification, error) {
	return s.notifications.ListByUser(ctx, userID, notificationLimit)
}

func (s *CommunityService) MarkNotificationsRead(ctx context.Context, userID string) error {
	return s.notifications.MarkAllRead(ctx, userID)
}
