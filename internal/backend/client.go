package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kirinyoku/cine-go/internal/domain"
	"github.com/kirinyoku/cine-go/internal/metrics"
)

// Client talks to the upstream storefront API that owns the catalog,
// payment orders and bookings. The storefront never reaches the payment
// provider's servers directly; order creation, verification and booking
// commit all go through this backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type wireSeat struct {
	Type      domain.SeatType `json:"type"`
	Available bool            `json:"available"`
}

type wireScreen struct {
	ID          string                    `json:"_id"`
	Name        string                    `json:"name"`
	TotalSeats  int                       `json:"totalSeats"`
	Layout      [][]wireSeat              `json:"layout"`
	SeatPricing map[domain.SeatType]int64 `json:"seatPricing"`
}

// ScreenLayout fetches the seat grid and pricing table for a screen.
// Row and column indexes are derived from grid position; the backend
// only ships type and availability per cell.
//
// Returns:
//   - error: backend.ErrNotFound if the theater/screen pair is unknown.
//   - error: backend.ErrUnavailable on transport failure.
func (c *Client) ScreenLayout(ctx context.Context, theaterID, screenID string) (*domain.ScreenLayout, error) {
	const op = "backend.Client.ScreenLayout"

	var out struct {
		Screen wireScreen `json:"screen"`
	}

	path := fmt.Sprintf("/theaters/%s/screens/%s", theaterID, screenID)
	if err := c.getJSON(ctx, "screen_layout", path, "", &out); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	layout := &domain.ScreenLayout{
		ScreenID:    screenID,
		TheaterID:   theaterID,
		Name:        out.Screen.Name,
		TotalSeats:  out.Screen.TotalSeats,
		SeatPricing: out.Screen.SeatPricing,
		Rows:        make([][]domain.Seat, len(out.Screen.Layout)),
	}

	for i, row := range out.Screen.Layout {
		layout.Rows[i] = make([]domain.Seat, len(row))
		for j, s := range row {
			layout.Rows[i][j] = domain.Seat{
				Row:       i,
				Col:       j,
				Type:      s.Type,
				Available: s.Available,
			}
		}
	}

	return layout, nil
}

// Me probes the backend session endpoint with the user's bearer token
// and returns the profile it reports.
//
// Returns:
//   - error: backend.ErrSessionInvalid if the token is missing, expired
//     or the backend does not include user details.
func (c *Client) Me(ctx context.Context, token string) (domain.UserProfile, error) {
	const op = "backend.Client.Me"

	var out struct {
		UserDetails *struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Phone string `json:"phone"`
		} `json:"userDetails"`
	}

	if err := c.getJSON(ctx, "me", "/", token, &out); err != nil {
		return domain.UserProfile{}, fmt.Errorf("%s:%w", op, err)
	}

	if out.UserDetails == nil {
		return domain.UserProfile{}, fmt.Errorf("%s:%w", op, ErrSessionInvalid)
	}

	return domain.UserProfile{
		Name:  out.UserDetails.Name,
		Email: out.UserDetails.Email,
		Phone: out.UserDetails.Phone,
	}, nil
}

// Movies returns the browsable catalog.
func (c *Client) Movies(ctx context.Context) ([]domain.Movie, error) {
	const op = "backend.Client.Movies"

	var out struct {
		Movies []domain.Movie `json:"movies"`
	}

	if err := c.getJSON(ctx, "movies", "/get-movies", "", &out); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out.Movies, nil
}

// Movie returns a single movie's details.
func (c *Client) Movie(ctx context.Context, movieID string) (*domain.Movie, error) {
	const op = "backend.Client.Movie"

	var out struct {
		Data *domain.Movie `json:"data"`
	}

	if err := c.getJSON(ctx, "movie", "/movies/"+movieID, "", &out); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if out.Data == nil {
		return nil, fmt.Errorf("%s:%w", op, ErrNotFound)
	}

	return out.Data, nil
}

// TheatersByMovie returns the shows grouped by theater for a movie.
func (c *Client) TheatersByMovie(ctx context.Context, movieID string) ([]domain.Show, error) {
	const op = "backend.Client.TheatersByMovie"

	var out struct {
		Theaters []struct {
			ID       string         `json:"_id"`
			Theater  domain.Theater `json:"theaterId"`
			ScreenID string         `json:"screenId"`
			Time     string         `json:"time"`
			Format   string         `json:"format"`
		} `json:"theaters"`
	}

	if err := c.getJSON(ctx, "theaters", "/get-theater/"+movieID, "", &out); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	shows := make([]domain.Show, len(out.Theaters))
	for i, t := range out.Theaters {
		shows[i] = domain.Show{
			ID:       t.ID,
			Theater:  t.Theater,
			ScreenID: t.ScreenID,
			Time:     t.Time,
			Format:   t.Format,
		}
	}

	return shows, nil
}

func (c *Client) getJSON(ctx context.Context, call, path, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.BackendRequestDuration.WithLabelValues(call).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrSessionInvalid
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	return nil
}
