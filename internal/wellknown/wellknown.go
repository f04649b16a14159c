package wellknown

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/core-coin/walletx/internal/models"
	"github.com/core-coin/walletx/pkg/logger"
)

const tokenCacheKey = "funding-token"

// TokenMetadata represents detailed information about a single token
type TokenMetadata struct {
	Blockchain string `json:"blockchain"`
	Network    string `json:"network"`
	Ticker     string `json:"ticker"`
	Name       string `json:"name"`
	Decimals   int    `json:"decimals"`
	Symbol     string `json:"symbol"`
	Type       string `json:"type"`
	URL        string `json:"url"`
	CreatedAt  string `json:"createdAt"`
}

// WellKnownService keeps the funding token metadata published by the
// well-known service. Cached metadata expires after two missed refreshes.
type WellKnownService struct {
	logger       *logger.Logger
	baseURL      string
	network      string
	tokenAddress string
	refresh      time.Duration
	client       *http.Client

	cache *cache.Cache

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWellKnownService creates a new WellKnownService instance
func NewWellKnownService(logger *logger.Logger, baseURL, network, tokenAddress string, refresh time.Duration) *WellKnownService {
	ctx, cancel := context.WithCancel(context.Background())
	return &WellKnownService{
		logger:       logger,
		baseURL:      baseURL,
		network:      network,
		tokenAddress: tokenAddress,
		refresh:      refresh,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		cache:  cache.New(2*refresh, 0),
		ctx:    ctx,
		cancel: cancel,
	}
}

// FetchAndUpdateToken fetches the funding token metadata and refreshes the cache.
func (w *WellKnownService) FetchAndUpdateToken() error {
	metadata, err := w.fetchTokenMetadata(w.tokenAddress)
	if err != nil {
		return err
	}
	if metadata.Type != "CBC20" {
		return fmt.Errorf("funding token %s has type %q, expected CBC20", w.tokenAddress, metadata.Type)
	}

	token := &models.Token{
		Address:   w.tokenAddress,
		Name:      metadata.Name,
		Symbol:    metadata.Symbol,
		Decimals:  metadata.Decimals,
		Type:      metadata.Type,
		Network:   metadata.Network,
		UpdatedAt: time.Now().Unix(),
	}
	w.cache.SetDefault(tokenCacheKey, token)
	w.logger.Debug("Token cached", "address", token.Address, "symbol", token.Symbol)
	return nil
}

// fetchTokenMetadata fetches detailed metadata for a specific token
func (w *WellKnownService) fetchTokenMetadata(address string) (*TokenMetadata, error) {
	url := fmt.Sprintf("%s/.well-known/tokens/%s/%s.json", w.baseURL, w.network, address)

	req, err := http.NewRequestWithContext(w.ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build token metadata request: %w", err)
	}
	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var metadata TokenMetadata
	if err := json.NewDecoder(resp.Body).Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode token metadata: %w", err)
	}

	return &metadata, nil
}

// Token returns a copy of the cached funding token metadata.
func (w *WellKnownService) Token() (*models.Token, bool) {
	v, ok := w.cache.Get(tokenCacheKey)
	if !ok {
		return nil, false
	}
	token := *v.(*models.Token)
	return &token, true
}

// StartPeriodicUpdate starts a goroutine that refreshes the token metadata
func (w *WellKnownService) StartPeriodicUpdate() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		// Initial fetch with retry logic
		backoff := 5 * time.Second
		maxBackoff := 5 * time.Minute

		for {
			if err := w.FetchAndUpdateToken(); err != nil {
				w.logger.Error("Failed to fetch funding token, retrying...", "error", err, "retry_in", backoff)

				select {
				case <-time.After(backoff):
					backoff = backoff * 2
					if backoff > maxBackoff {
						backoff = maxBackoff
					}
					continue
				case <-w.ctx.Done():
					w.logger.Info("WellKnown service stopped during initial fetch")
					return
				}
			}
			w.logger.Info("Successfully loaded funding token metadata")
			break
		}

		ticker := time.NewTicker(w.refresh)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := w.FetchAndUpdateToken(); err != nil {
					w.logger.Error("Failed to refresh funding token", "error", err)
				}
			case <-w.ctx.Done():
				w.logger.Info("WellKnown service periodic update stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the WellKnownService
func (w *WellKnownService) Stop() {
	w.logger.Info("Stopping WellKnown service")
	w.cancel()
	w.wg.Wait()
	w.logger.Info("WellKnown service stopped")
}
