package seatmap

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
	LayoutTTL time.Duration
}

// Service fetches and validates screen layouts. A layout that fails
// validation is treated as unavailable as a whole; the seat map never
// renders a grid whose pricing or geometry cannot be trusted.
type Service struct {
	backend *backend.Client
	cache   *redisrepo.Cache
	cfg     Config
}

func New(client *backend.Client, cache *redisrepo.Cache, cfg Config) *Service {
	if cfg.LayoutTTL <= 0 {
		cfg.LayoutTTL = 30 * time.Second
	}

	return &Service{
		backend: client,
		cache:   cache,
		cfg:     cfg,
	}
}

// Layout returns the validated layout for a screen, from cache when fresh.
//
// Returns:
//   - error: seatmap.ErrScreenNotFound if the theater/screen pair is
//     unknown upstream.
//   - error: seatmap.ErrLayoutUnavailable if the backend is unreachable
//     or the payload fails validation.
func (s *Service) Layout(ctx context.Context, theaterID, screenID string) (*domain.ScreenLayout, error) {
	const op = "service.seatmap.Layout"

	layout, err := redisrepo.GetOrSetJSON(
		ctx,
		s.cache,
		redisrepo.KeyScreenLayout(theaterID, screenID),
		s.cfg.LayoutTTL,
		func(ctx context.Context) (domain.ScreenLayout, error) {
			l, err := s.backend.ScreenLayout(ctx, theaterID, screenID)
			if err != nil {
				if errors.Is(err, backend.ErrNotFound) {
					return domain.ScreenLayout{}, ErrScreenNotFound
				}

				return domain.ScreenLayout{}, ErrLayoutUnavailable
			}

			if err := validate(l); err != nil {
				return domain.ScreenLayout{}, fmt.Errorf("%w: %v", ErrLayoutUnavailable, err)
			}

			return *l, nil
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &layout, nil
}

// Refresh drops the cached layout and refetches it. Used when the seat
// map regains focus, so availability shown to the user is not stale.
func (s *Service) Refresh(ctx context.Context, theaterID, screenID string) (*domain.ScreenLayout, error) {
	const op = "service.seatmap.Refresh"

	if err := s.cache.InvalidateScreen(ctx, theaterID, screenID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	layout, err := s.Layout(ctx, theaterID, screenID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return layout, nil
}

// validate rejects layouts the selection logic cannot safely operate on:
// an empty grid, a row longer than the label alphabet, or a seat type
// missing from the pricing table.
func validate(l *domain.ScreenLayout) error {
	if len(l.Rows) == 0 {
		return errors.New("empty seat grid")
	}

	if len(l.Rows) > 26 {
		return errors.New("more rows than row labels")
	}

	for i, row := range l.Rows {
		if len(row) == 0 {
			return fmt.Errorf("row %d is empty", i)
		}

		for _, seat := range row {
			if _, ok := l.SeatPricing[seat.Type]; !ok {
				return fmt.Errorf("seat type %q has no price", seat.Type)
			}
		}
	}

	return nil
}
