package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/fabricaconecta/parceria-api/utils"
)

// ErrAddressNotFound is returned when the postal code does not exist
var ErrAddressNotFound = errors.New("address not found")

// ErrCacheMiss is returned by an AddressCache that has no entry for a key
var ErrCacheMiss = errors.New("cache miss")

// AddressInfo is the subset of a postal-code lookup used to pre-fill addresses
type AddressInfo struct {
	CEP        string `json:"cep"`
	Logradouro string `json:"logradouro"`
	Bairro     string `json:"bairro"`
	Cidade     string `json:"cidade"`
	Estado     string `json:"estado"`
}

// AddressLookup resolves a postal code into an address
type AddressLookup interface {
	Lookup(ctx context.Context, cep string) (*AddressInfo, error)
}

// AddressCache stores serialized lookups
type AddressCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
}

// RedisAddressCache is an AddressCache backed by Redis
type RedisAddressCache struct {
	client *redis.Client
}

// NewRedisAddressCache wraps a redis client
func NewRedisAddressCache(client *redis.Client) *RedisAddressCache {
	return &RedisAddressCache{client: client}
}

// Get returns the cached value or ErrCacheMiss
func (r *RedisAddressCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	return val, err
}

// Set stores value under key
func (r *RedisAddressCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

type viaCEPResponse struct {
	CEP        string `json:"cep"`
	Logradouro string `json:"logradouro"`
	Bairro     string `json:"bairro"`
	Localidade string `json:"localidade"`
	UF         string `json:"uf"`
	Erro       any    `json:"erro"`
}

// ViaCEPService looks addresses up on ViaCEP, with an optional cache in front
type ViaCEPService struct {
	baseURL    string
	httpClient *http.Client
	cache      AddressCache
	cacheTTL   time.Duration
	logger     *zap.Logger
}

var addressServiceInstance AddressLookup

// NewViaCEPService creates the lookup client. cache may be nil.
func NewViaCEPService(baseURL string, cache AddressCache, cacheTTL time.Duration, logger *zap.Logger) *ViaCEPService {
	return &ViaCEPService{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// InitAddressService initializes the global address lookup
func InitAddressService(baseURL string, cache AddressCache, cacheTTL time.Duration, logger *zap.Logger) AddressLookup {
	addressServiceInstance = NewViaCEPService(baseURL, cache, cacheTTL, logger)
	return addressServiceInstance
}

// GetAddressService returns the initialized address lookup
func GetAddressService() AddressLookup {
	return addressServiceInstance
}

// SetAddressService sets the address lookup (primarily for testing)
func SetAddressService(service AddressLookup) {
	addressServiceInstance = service
}

// Lookup resolves cep, consulting the cache first
func (s *ViaCEPService) Lookup(ctx context.Context, cep string) (*AddressInfo, error) {
	digits := utils.OnlyDigits(cep)
	if len(digits) != 8 {
		return nil, newValidationError("INVALID_CEP", "CEP must have 8 digits", map[string]string{"cep": "cep"})
	}
	key := "cep:" + digits

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key)
		if err == nil {
			var info AddressInfo
			if jsonErr := json.Unmarshal([]byte(cached), &info); jsonErr == nil {
				return &info, nil
			}
		} else if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn("address cache read failed", zap.String("cep", digits), zap.Error(err))
		}
	}

	info, err := s.fetch(ctx, digits)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(info); err == nil {
			if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
				s.logger.Warn("address cache write failed", zap.String("cep", digits), zap.Error(err))
			}
		}
	}
	return info, nil
}

func (s *ViaCEPService) fetch(ctx context.Context, digits string) (*AddressInfo, error) {
	url := fmt.Sprintf("%s/%s/json/", s.baseURL, digits)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call address lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("address lookup returned status %d: %s", resp.StatusCode, string(body))
	}

	var payload viaCEPResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode address lookup response: %w", err)
	}
	// ViaCEP answers unknown codes with 200 and "erro": true (or "true")
	if payload.Erro != nil && payload.Erro != false {
		return nil, ErrAddressNotFound
	}

	return &AddressInfo{
		CEP:        payload.CEP,
		Logradouro: payload.Logradouro,
		Bairro:     payload.Bairro,
		Cidade:     payload.Localidade,
		Estado:     payload.UF,
	}, nil
}
