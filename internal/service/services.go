package service

import (
	"log/slog"

	"github.com/kirinyoku/cine-go/internal/backend"
	redisx "github.com/kirinyoku/cine-go/internal/redis"
	postgres "github.com/kirinyoku/cine-go/internal/repository/postgres"
	redis "github.com/kirinyoku/cine-go/internal/repository/redis"
	"github.com/kirinyoku/cine-go/internal/service/catalog"
	"github.com/kirinyoku/cine-go/internal/service/seatmap"
	"github.com/kirinyoku/cine-go/internal/service/tickets"
)

type Services struct {
	Seatmap *seatmap.Service
	Catalog *catalog.Service
	Tickets *tickets.Service
}

type Config struct {
	Seatmap seatmap.Config
	Catalog catalog.Config
}

func NewServices(
	store *postgres.Store,
	cache *redis.Cache,
	client *backend.Client,
	pubsub *redisx.CheckoutEventsPubSub,
	logger *slog.Logger,
	cfg Config,
) *Services {
	return &Services{
		Seatmap: seatmap.New(client, cache, cfg.Seatmap),
		Catalog: catalog.New(client, cache, cfg.Catalog),
		Tickets: tickets.New(store, pubsub, logger),
	}
}
