package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"chain-arena/internal/config"
	"chain-arena/internal/constants"
	"chain-arena/internal/domain"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
	"github.com/valyala/fasthttp"
)

// ErrEmptyWallet marks an address with no on-chain activity: a distinct
// upstream condition, not a generic failure.
var ErrEmptyWallet = errors.New("wallet has no activity")

// ErrCharacterUnavailable wraps transport-level failures from the character
// service.
var ErrCharacterUnavailable = errors.New("character service unavailable")

// CharacterClient fetches externally derived character sheets. Wallet data
// acquisition and stat derivation live behind this boundary; the engine only
// sees the resulting sheet.
type CharacterClient struct {
	baseURL string
	client  *fasthttp.Client
	logger  zerolog.Logger
}

func NewCharacterClient(cfg *config.Config, logger zerolog.Logger) *CharacterClient {
	return &CharacterClient{
		baseURL: cfg.CharacterAPIURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger: logger.With().Str("component", "character_client").Logger(),
	}
}

// GetCharacter fetches the sheet for one address. Transient upstream errors
// are retried a few times with backoff and jitter; timeouts are not retried
// because a slow upstream is assumed to stay slow.
func (c *CharacterClient) GetCharacter(ctx context.Context, address string) (*domain.CharacterSheet, error) {
	backoff := retry.WithMaxRetries(2, retry.WithJitterPercent(20, retry.NewExponential(200*time.Millisecond)))

	var sheet *domain.CharacterSheet
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		s, err := c.fetch(address)
		if err == nil {
			sheet = s
			return nil
		}
		if errors.Is(err, fasthttp.ErrTimeout) || errors.Is(err, ErrEmptyWallet) {
			return err
		}
		return retry.RetryableError(err)
	})
	if err != nil {
		c.logger.Error().Err(err).Str("address", address).Msg("failed to fetch character sheet")
		return nil, err
	}
	return sheet, nil
}

func (c *CharacterClient) fetch(address string) (*domain.CharacterSheet, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(fmt.Sprintf("%s/api/characters/%s", c.baseURL, address))
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := c.client.DoTimeout(req, resp, constants.ExternalAPITimeout); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			return nil, fmt.Errorf("character fetch timed out: %w", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrCharacterUnavailable, err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: %s", ErrEmptyWallet, address)
	default:
		return nil, fmt.Errorf("%w: status %d", ErrCharacterUnavailable, resp.StatusCode())
	}

	var sheet domain.CharacterSheet
	if err := json.Unmarshal(resp.Body(), &sheet); err != nil {
		return nil, fmt.Errorf("failed to decode character sheet: %w", err)
	}
	return &sheet, nil
}
