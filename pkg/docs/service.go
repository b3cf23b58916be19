package docs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/singleflight"

	"github.com/learnloop/mentor/pkg/config"
	"github.com/learnloop/mentor/pkg/models"
	"github.com/learnloop/mentor/pkg/specialist"
)

const (
	defaultCacheTTL     = 10 * time.Minute
	defaultFetchTimeout = 15 * time.Second
)

// Service answers documentation queries from a fixed catalog and fetches
// resource content over HTTP. Content fetches are cached with a TTL and
// deduplicated, so concurrent readers of a cold entry trigger one request.
type Service struct {
	byID       map[string]models.Resource
	ordered    []models.Resource
	cache      *Cache
	flight     singleflight.Group
	httpClient *http.Client
}

// NewService creates a documentation service over the given catalog.
// Duplicate catalog IDs keep the first entry. A nil cfg uses defaults.
func NewService(cfg *config.DocsConfig, catalog []models.Resource) *Service {
	cacheTTL := defaultCacheTTL
	fetchTimeout := defaultFetchTimeout
	if cfg != nil {
		if cfg.CacheTTL > 0 {
			cacheTTL = cfg.CacheTTL
		}
		if cfg.FetchTimeout > 0 {
			fetchTimeout = cfg.FetchTimeout
		}
	}

	s := &Service{
		byID:       make(map[string]models.Resource, len(catalog)),
		cache:      NewCache(cacheTTL),
		httpClient: &http.Client{Timeout: fetchTimeout},
	}
	for _, res := range catalog {
		if _, dup := s.byID[res.ID]; dup {
			continue
		}
		s.byID[res.ID] = res
		s.ordered = append(s.ordered, res)
	}
	return s
}

// SearchDocumentation returns catalog resources matching the query, best
// match first. Topic matches outweigh title matches, which outweigh summary
// matches. limit <= 0 means no limit.
func (s *Service) SearchDocumentation(ctx context.Context, query string, limit int) ([]models.Resource, error) {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return []models.Resource{}, nil
	}

	type scored struct {
		res   models.Resource
		score float64
	}
	var matches []scored
	for _, res := range s.ordered {
		if sc := searchScore(res, tokens); sc > 0 {
			matches = append(matches, scored{res: res, score: sc})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}

	out := make([]models.Resource, len(matches))
	for i, m := range matches {
		out[i] = m.res
	}
	return out, nil
}

// GetResourceContent fetches the resource's content, serving repeats from
// the cache. Concurrent cold fetches of the same resource share one HTTP
// request.
func (s *Service) GetResourceContent(ctx context.Context, resourceID string) (string, error) {
	res, ok := s.byID[resourceID]
	if !ok {
		return "", fmt.Errorf("resource %s: %w", resourceID, specialist.ErrUnknownResource)
	}

	if content, ok := s.cache.Get(resourceID); ok {
		return content, nil
	}

	v, err, _ := s.flight.Do(resourceID, func() (any, error) {
		// A waiter released just after the leader finished lands here with
		// the cache already warm.
		if content, ok := s.cache.Get(resourceID); ok {
			return content, nil
		}
		content, err := s.fetch(ctx, res.URL)
		if err != nil {
			return nil, err
		}
		s.cache.Set(resourceID, content)
		return content, nil
	})
	if err != nil {
		return "", fmt.Errorf("fetch resource %s: %w", resourceID, err)
	}
	return v.(string), nil
}

// VerifyResourceQuality scores a resource from 0 to 1: reachability over
// HTTP plus catalog completeness (summary, topics, skill level, kind). A
// non-2xx answer makes the resource unreachable but is not an error; only a
// failed check (transport error, cancellation) is.
func (s *Service) VerifyResourceQuality(ctx context.Context, resourceID string) (*models.QualityReport, error) {
	res, ok := s.byID[resourceID]
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", resourceID, specialist.ErrUnknownResource)
	}

	report := &models.QualityReport{ResourceID: resourceID}

	status, err := s.probe(ctx, res.URL)
	if err != nil {
		return nil, fmt.Errorf("probe %s: %w", res.URL, err)
	}
	if status >= 200 && status < 300 {
		report.Reachable = true
		report.Score += 0.4
	} else {
		report.Issues = append(report.Issues, fmt.Sprintf("returns HTTP %d", status))
	}

	if res.Summary != "" {
		report.Score += 0.2
	} else {
		report.Issues = append(report.Issues, "missing summary")
	}
	if len(res.Topics) > 0 {
		report.Score += 0.2
	} else {
		report.Issues = append(report.Issues, "no topics")
	}
	if res.SkillLevel != "" {
		report.Score += 0.1
	} else {
		report.Issues = append(report.Issues, "no skill level")
	}
	if res.Kind != "" {
		report.Score += 0.1
	} else {
		report.Issues = append(report.Issues, "no kind")
	}
	return report, nil
}

// GetRelatedResources returns catalog resources sharing topics with the
// given one, most overlap first. limit <= 0 means no limit.
func (s *Service) GetRelatedResources(ctx context.Context, resourceID string, limit int) ([]models.Resource, error) {
	base, ok := s.byID[resourceID]
	if !ok {
		return nil, fmt.Errorf("resource %s: %w", resourceID, specialist.ErrUnknownResource)
	}

	baseTopics := make(map[string]struct{}, len(base.Topics))
	for _, t := range base.Topics {
		baseTopics[strings.ToLower(t)] = struct{}{}
	}

	type scored struct {
		res     models.Resource
		overlap int
	}
	var matches []scored
	for _, res := range s.ordered {
		if res.ID == resourceID {
			continue
		}
		overlap := 0
		for _, t := range res.Topics {
			if _, shared := baseTopics[strings.ToLower(t)]; shared {
				overlap++
			}
		}
		if overlap > 0 {
			matches = append(matches, scored{res: res, overlap: overlap})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].overlap > matches[j].overlap
	})
	if limit > 0 && limit < len(matches) {
		matches = matches[:limit]
	}

	out := make([]models.Resource, len(matches))
	for i, m := range matches {
		out[i] = m.res
	}
	return out, nil
}

func (s *Service) fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("documentation host returned HTTP %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response body: %w", err)
	}
	return string(body), nil
}

func (s *Service) probe(ctx context.Context, rawURL string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// searchScore weighs how well a resource matches the query tokens: exact
// topic hits count most, then partial topic hits, then title and summary
// mentions.
func searchScore(res models.Resource, tokens []string) float64 {
	title := strings.ToLower(res.Title)
	summary := strings.ToLower(res.Summary)

	var score float64
	for _, tok := range tokens {
		for _, topic := range res.Topics {
			tl := strings.ToLower(topic)
			switch {
			case tl == tok:
				score += 3
			case strings.Contains(tl, tok) || strings.Contains(tok, tl):
				score += 2
			}
		}
		if strings.Contains(title, tok) {
			score++
		}
		if strings.Contains(summary, tok) {
			score += 0.5
		}
	}
	return score
}
