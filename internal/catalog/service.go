// Package catalog proxies the upstream product listing, caching pages in
// Redis for a short TTL. The cart copies tier data out of these pages at add
// time and never re-reads them, so staleness here only affects browsing.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	pkgerrors "github.com/hondusoft/fieldsales-backend/pkg/errors"
	"github.com/hondusoft/fieldsales-backend/pkg/logger"
	"github.com/hondusoft/fieldsales-backend/pkg/redis"
	"github.com/hondusoft/fieldsales-backend/pkg/sap"
)

type upstream interface {
	ListProductDiscounts(ctx context.Context, token string, query sap.ProductQuery) (*sap.ProductPage, error)
}

type pageCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CatalogKey(parts ...string) string
}

// Service lists catalog products with their volume tiers.
type Service interface {
	ListProducts(ctx context.Context, upstreamToken string, query sap.ProductQuery) (*sap.ProductPage, error)
}

type service struct {
	upstream upstream
	cache    pageCache
	log      *logger.Logger
	ttl      time.Duration
}

// NewService builds the catalog service. The cache is optional; without it
// every listing goes upstream.
func NewService(up upstream, cache pageCache, log *logger.Logger, ttl time.Duration) (Service, error) {
	if up == nil {
		return nil, fmt.Errorf("upstream client required")
	}
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		upstream: up,
		cache:    cache,
		log:      log,
		ttl:      ttl,
	}, nil
}

// ListProducts returns one catalog page, from cache when fresh. Cache
// failures degrade to a direct upstream call rather than an error.
func (s *service) ListProducts(ctx context.Context, upstreamToken string, query sap.ProductQuery) (*sap.ProductPage, error) {
	key := s.cacheKey(query)

	if page := s.fromCache(ctx, key); page != nil {
		return page, nil
	}

	page, err := s.upstream.ListProductDiscounts(ctx, upstreamToken, query)
	if err != nil {
		var apiErr *sap.APIError
		if errors.As(err, &apiErr) && apiErr.NotFound() {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product group not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	s.toCache(ctx, key, page)
	return page, nil
}

func (s *service) cacheKey(query sap.ProductQuery) string {
	if s.cache == nil {
		return ""
	}
	return s.cache.CatalogKey(
		strconv.Itoa(query.GroupCode),
		query.PriceListNum,
		strconv.Itoa(query.Page),
		strconv.Itoa(query.PageSize),
	)
}

func (s *service) fromCache(ctx context.Context, key string) *sap.ProductPage {
	if s.cache == nil || s.ttl <= 0 {
		return nil
	}
	raw, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn(ctx, "catalog cache read failed: "+err.Error())
		}
		return nil
	}
	var page sap.ProductPage
	if err := json.Unmarshal([]byte(raw), &page); err != nil {
		// Treat unreadable entries as a miss; they get overwritten.
		return nil
	}
	return &page
}

func (s *service) toCache(ctx context.Context, key string, page *sap.ProductPage) {
	if s.cache == nil || s.ttl <= 0 || page == nil {
		return
	}
	encoded, err := json.Marshal(page)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, string(encoded), s.ttl); err != nil {
		s.log.Warn(ctx, "catalog cache write failed: "+err.Error())
	}
}
