// Package roster keeps student applications in step with the registration backend.
package roster

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"hostel-allotment-backend/config"
	"hostel-allotment-backend/internal/model"
	"hostel-allotment-backend/internal/store"
)

// Service periodically pulls applications and upserts them by student ID.
type Service struct {
	cfg    *config.RosterConfig
	store  store.Store
	client *http.Client
	logger *zap.Logger
}

// NewService creates the roster sync service.
func NewService(cfg *config.RosterConfig, st store.Store, logger *zap.Logger) *Service {
	var transport http.RoundTripper = &http.Transport{}
	if cfg.HTTPProxy != "" {
		proxyURL, err := url.Parse(cfg.HTTPProxy)
		if err != nil {
			logger.Warn("Invalid roster proxy URL, connecting directly", zap.String("proxy", cfg.HTTPProxy), zap.Error(err))
		} else {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &Service{
		cfg:   cfg,
		store: st,
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
		},
		logger: logger,
	}
}

// Run syncs once and then on every interval until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if !s.cfg.Enabled {
		s.logger.Info("Roster sync is disabled. Not starting.")
		return
	}
	s.logger.Info("Starting roster sync", zap.Duration("interval", s.cfg.Interval))

	s.syncAndLog(ctx)

	timer := time.NewTimer(s.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Roster sync shutting down.")
			return
		case <-timer.C:
			s.syncAndLog(ctx)
			timer.Reset(s.cfg.Interval)
		}
	}
}

func (s *Service) syncAndLog(ctx context.Context) {
	if _, err := s.SyncOnce(ctx); err != nil {
		s.logger.Error("Roster sync failed", zap.Error(err))
	}
}

// SyncOnce fetches every page and upserts the valid applications. It returns
// the number of applications written.
func (s *Service) SyncOnce(ctx context.Context) (int, error) {
	var items []ApiItem
	total := 1
	pageSize := s.cfg.PageSize
	var fetchErr error
	for page := 1; (page-1)*pageSize < total; page++ {
		resp, err := s.fetchPage(ctx, page)
		if err != nil {
			s.logger.Warn("Failed to fetch roster page", zap.Int("page", page), zap.Error(err))
			fetchErr = err
			break
		}
		if resp.Data.Total == 0 || len(resp.Data.Items) == 0 {
			break
		}
		total = resp.Data.Total
		items = append(items, resp.Data.Items...)
		s.logger.Debug("Fetched roster page", zap.Int("page", page), zap.Int("total", total), zap.Int("so_far", len(items)))
	}

	// Nothing fetched and an error: keep what we have rather than act on nothing.
	if fetchErr != nil && len(items) == 0 {
		return 0, fmt.Errorf("roster sync aborted: %w", fetchErr)
	}

	apps := make([]model.StudentApplication, 0, len(items))
	for _, it := range items {
		app, err := it.Application()
		if err != nil {
			s.logger.Warn("Skipping invalid application", zap.Error(err))
			continue
		}
		apps = append(apps, app)
	}

	if err := s.store.UpsertApplications(ctx, apps); err != nil {
		return 0, err
	}
	s.logger.Info("Roster sync finished", zap.Int("fetched", len(items)), zap.Int("upserted", len(apps)))
	return len(apps), nil
}

func (s *Service) fetchPage(ctx context.Context, page int) (*ApiResponse, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid roster url: %w", err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("pageSize", strconv.Itoa(s.cfg.PageSize))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range s.cfg.Headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var apiResp ApiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal api response: %w", err)
	}
	if apiResp.Code != 0 {
		return nil, fmt.Errorf("API returned non-zero application code: %d", apiResp.Code)
	}
	return &apiResp, nil
}
