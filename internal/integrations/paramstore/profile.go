package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"restaurant-assistant/internal/domain"
)

const defaultProfileTTL = 5 * time.Minute

type cachedProfile struct {
	profile domain.RestaurantProfile
	expires time.Time
}

// ProfileStore serves restaurant profiles stored as JSON parameters at
// {prefix}/restaurants/{id}/profile. Profiles are cached for a short TTL so
// FAQ answers do not hit SSM on every message.
type ProfileStore struct {
	getter Getter
	prefix string
	ttl    time.Duration
	now    func() time.Time

	mu    sync.RWMutex
	cache map[string]cachedProfile
}

// NewProfileStore returns a ProfileStore. A non-positive ttl selects the default.
func NewProfileStore(g Getter, prefix string, ttl time.Duration) (*ProfileStore, error) {
	if g == nil {
		return nil, errors.New("paramstore: getter must not be nil")
	}
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return nil, errors.New("paramstore: parameter prefix must not be empty")
	}
	if ttl <= 0 {
		ttl = defaultProfileTTL
	}
	return &ProfileStore{
		getter: g,
		prefix: prefix,
		ttl:    ttl,
		now:    time.Now,
		cache:  make(map[string]cachedProfile),
	}, nil
}

func (s *ProfileStore) parameterName(restaurantID string) string {
	return s.prefix + "/restaurants/" + restaurantID + "/profile"
}

// GetProfile returns the profile for restaurantID.
func (s *ProfileStore) GetProfile(ctx context.Context, restaurantID string) (domain.RestaurantProfile, error) {
	restaurantID = strings.TrimSpace(restaurantID)
	if restaurantID == "" || strings.Contains(restaurantID, "/") {
		return domain.RestaurantProfile{}, fmt.Errorf("paramstore: invalid restaurant id %q", restaurantID)
	}

	now := s.now()
	s.mu.RLock()
	entry, ok := s.cache[restaurantID]
	s.mu.RUnlock()
	if ok && now.Before(entry.expires) {
		return entry.profile, nil
	}

	var p domain.RestaurantProfile
	if err := GetJSON(ctx, s.getter, s.parameterName(restaurantID), &p); err != nil {
		return domain.RestaurantProfile{}, fmt.Errorf("paramstore: load profile: %w", err)
	}

	s.mu.Lock()
	for id, e := range s.cache {
		if !now.Before(e.expires) {
			delete(s.cache, id)
		}
	}
	s.cache[restaurantID] = cachedProfile{profile: p, expires: now.Add(s.ttl)}
	s.mu.Unlock()
	return p, nil
}

func (s *ProfileStore) cached() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}
