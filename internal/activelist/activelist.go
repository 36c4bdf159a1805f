// Package activelist caches membership of the externally refreshed active
// observing-request list in Redis. The snapshot itself comes from object
// storage or a local file drop; this package only answers "is this obsid on
// the list right now".
package activelist

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	setKey     = "activelist:obsids"
	stagingKey = "activelist:obsids:staging"
	loadedKey  = "activelist:loaded_at"
)

// Service answers active-list membership queries from a Redis set, refreshed
// from a snapshot fetcher.
type Service struct {
	client  *redis.Client
	fetcher SnapshotFetcher
}

func New(redisURL string, fetcher SnapshotFetcher) (*Service, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &Service{client: client, fetcher: fetcher}, nil
}

// NewWithClient builds a service from an existing Redis client.
func NewWithClient(client *redis.Client, fetcher SnapshotFetcher) *Service {
	return &Service{client: client, fetcher: fetcher}
}

func (s *Service) Close() error {
	return s.client.Close()
}

// IsOnList reports whether the obsid appears in the cached list, refreshing
// the cache first if it has never been loaded.
func (s *Service) IsOnList(ctx context.Context, obsid int) (bool, error) {
	loaded, err := s.client.Exists(ctx, loadedKey).Result()
	if err != nil {
		return false, fmt.Errorf("check active list cache: %w", err)
	}
	if loaded == 0 {
		if err := s.Refresh(ctx); err != nil {
			return false, err
		}
	}
	member, err := s.client.SIsMember(ctx, setKey, strconv.Itoa(obsid)).Result()
	if err != nil {
		return false, fmt.Errorf("check active list membership: %w", err)
	}
	return member, nil
}

// Refresh re-reads the snapshot and swaps the cached set in one rename so
// concurrent readers never see a half-loaded list.
func (s *Service) Refresh(ctx context.Context) error {
	reader, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch active list snapshot: %w", err)
	}
	defer reader.Close()

	var obsids []any
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		for _, field := range strings.Fields(scanner.Text()) {
			if obsid, ok := parseEntry(field); ok {
				obsids = append(obsids, strconv.Itoa(obsid))
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read active list snapshot: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, stagingKey)
	if len(obsids) > 0 {
		pipe.SAdd(ctx, stagingKey, obsids...)
		pipe.Rename(ctx, stagingKey, setKey)
	} else {
		pipe.Del(ctx, setKey)
	}
	pipe.Set(ctx, loadedKey, time.Now().UTC().Format(time.RFC3339), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("swap active list cache: %w", err)
	}
	return nil
}

// parseEntry accepts plain obsids and obsid.version entries, ignoring all
// other tokens in the snapshot.
func parseEntry(field string) (int, bool) {
	if base, _, ok := strings.Cut(field, "."); ok {
		field = base
	}
	obsid, err := strconv.Atoi(field)
	if err != nil || obsid <= 0 {
		return 0, false
	}
	return obsid, true
}
