package directory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/jackiedee967/episoda-sub002/internal/models"
	"github.com/jackiedee967/episoda-sub002/internal/store"
	"github.com/sirupsen/logrus"
)

// Service implements DirectoryInterface over the data store, with an
// optional ranked search RPC as the primary candidate lookup.
type Service struct {
	store  store.DirectoryStore
	client *resty.Client
	rpcURL string
	limit  int
}

// Ensure Service implements DirectoryInterface
var _ DirectoryInterface = (*Service)(nil)

// NewService creates a directory service. rpcURL may be empty, in which case
// candidate search always uses the prefix fallback.
func NewService(st store.DirectoryStore, rpcURL string, limit int) *Service {
	if limit <= 0 {
		limit = 10
	}
	return &Service{
		store:  st,
		client: resty.New().SetTimeout(10 * time.Second),
		rpcURL: rpcURL,
		limit:  limit,
	}
}

// Following returns the viewer's follow set.
func (s *Service) Following(ctx context.Context, viewerID string) ([]string, error) {
	return s.store.FollowingIDs(ctx, viewerID)
}

// ResolveUsernames maps usernames to ids, dropping unknown usernames.
func (s *Service) ResolveUsernames(ctx context.Context, usernames []string) (map[string]string, error) {
	return s.store.UserIDsByUsernames(ctx, usernames)
}

// rankedSearchRequest is the payload of the ranked search RPC.
type rankedSearchRequest struct {
	SearchTerm    string   `json:"search_term"`
	CurrentUserID string   `json:"current_user_id"`
	FollowingIDs  []string `json:"following_ids"`
	ResultLimit   int      `json:"result_limit"`
}

// SearchCandidates is a two-step strategy: the ranked RPC first, then the
// plain prefix query on any RPC failure. Both branches produce the same
// result shape, so callers never see which path answered. An empty term
// returns no candidates without touching the network.
func (s *Service) SearchCandidates(ctx context.Context, term, viewerID string, following []string) ([]models.CandidateUser, error) {
	if term == "" {
		return nil, nil
	}

	if s.rpcURL != "" {
		users, err := s.searchRanked(ctx, term, viewerID, following)
		if err == nil {
			return users, nil
		}
		logrus.Debugf("Ranked mention search unavailable, using prefix fallback: %v", err)
	}

	return s.searchPrefix(ctx, term, viewerID, following)
}

func (s *Service) searchRanked(ctx context.Context, term, viewerID string, following []string) ([]models.CandidateUser, error) {
	if following == nil {
		following = []string{}
	}

	var users []models.CandidateUser
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(rankedSearchRequest{
			SearchTerm:    term,
			CurrentUserID: viewerID,
			FollowingIDs:  following,
			ResultLimit:   s.limit,
		}).
		SetResult(&users).
		Post(s.rpcURL)

	if err != nil {
		return nil, fmt.Errorf("calling ranked search: %w", err)
	}

	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("ranked search returned status %d: %s", resp.StatusCode(), string(resp.Body()))
	}

	return users, nil
}

func (s *Service) searchPrefix(ctx context.Context, term, viewerID string, following []string) ([]models.CandidateUser, error) {
	users, err := s.store.SearchProfilesByPrefix(ctx, term, viewerID, s.limit)
	if err != nil {
		return nil, fmt.Errorf("prefix search: %w", err)
	}

	followed := make(map[string]struct{}, len(following))
	for _, id := range following {
		followed[id] = struct{}{}
	}
	for i := range users {
		_, users[i].IsFollowing = followed[users[i].UserID]
	}

	rankCandidates(users)
	return users, nil
}

// rankCandidates sorts followed users first, then by username.
func rankCandidates(users []models.CandidateUser) {
	sort.SliceStable(users, func(i, j int) bool {
		if users[i].IsFollowing != users[j].IsFollowing {
			return users[i].IsFollowing
		}
		return users[i].Username < users[j].Username
	})
}
