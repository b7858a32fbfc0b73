package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kirinyoku/cine-go/internal/backend"
	"github.com/kirinyoku/cine-go/internal/domain"
	redisrepo "github.com/kirinyoku/cine-go/internal/repository/redis"
)

type Config struct {
	MoviesTTL   time.Duration
	MovieTTL    time.Duration
	TheatersTTL time.Duration
}

// Service serves the browsable catalog, caching upstream responses so the
// backend is not hit on every page view.
type Service struct {
	backend *backend.Client
	cache   *redisrepo.Cache
	cfg     Config
}

func New(client *backend.Client, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.MoviesTTL <= 0 {
		cfg.MoviesTTL = 5 * time.Minute
	}

	if cfg.MovieTTL <= 0 {
		cfg.MovieTTL = 5 * time.Minute
	}

	if cfg.TheatersTTL <= 0 {
		cfg.TheatersTTL = 60 * time.Second
	}

	return &Service{
		backend: client,
		cache:   cache,
		cfg:     cfg,
	}
}

// Movies returns the full movie catalog.
func (s *Service) Movies(ctx context.Context) ([]domain.Movie, error) {
	const op = "service.catalog.Movies"

	movies, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyMovieCatalog(),
		s.cfg.MoviesTTL,
		func(ctx context.Context) ([]domain.Movie, error) {
			return s.backend.Movies(ctx)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return movies, nil
}

// Movie returns one movie's details.
//
// Returns:
//   - error: catalog.ErrMovieNotFound if the movie does not exist.
func (s *Service) Movie(ctx context.Context, movieID string) (*domain.Movie, error) {
	const op = "service.catalog.Movie"

	movie, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyMovie(movieID),
		s.cfg.MovieTTL,
		func(ctx context.Context) (domain.Movie, error) {
			m, err := s.backend.Movie(ctx, movieID)
			if err != nil {
				if errors.Is(err, backend.ErrNotFound) {
					return domain.Movie{}, ErrMovieNotFound
				}

				return domain.Movie{}, err
			}

			return *m, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &movie, nil
}

// Theaters returns the shows for a movie grouped by theater.
func (s *Service) Theaters(ctx context.Context, movieID string) ([]domain.Show, error) {
	const op = "service.catalog.Theaters"

	shows, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyMovieTheaters(movieID),
		s.cfg.TheatersTTL,
		func(ctx context.Context) ([]domain.Show, error) {
			return s.backend.TheatersByMovie(ctx, movieID)
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return shows, nil
}
