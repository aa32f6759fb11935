package example

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("not found")

type Team struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Player struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	TeamID int    `json:"teamId"`
}

type Game struct {
	ID        int       `json:"id"`
	TeamID    int       `json:"teamId"`
	Opponent  string    `json:"opponent"`
	StartedAt time.Time `json:"startedAt"`
}

type Point struct {
	ID               int       `json:"id"`
	GameID           int       `json:"gameId"`
	TeamID           int       `json:"teamId"`
	Scored           bool      `json:"scored"`
	StartedOnOffense bool      `json:"startedOnOffense"`
	PlayerIDs        []int     `json:"playerIds"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// NewPoint holds the values of a point to create.
type NewPoint struct {
	GameID           int
	Scored           bool
	StartedOnOffense bool
	PlayerIDs        []int
}

// Store is an in-memory database of teams, players, games and points.
// It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	now     func() time.Time
	nextID  int
	teams   map[int]*Team
	players map[int]*Player
	games   map[int]*Game
	points  map[int]*Point
}

// NewStore returns an empty store. now defaults to time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:     now,
		teams:   map[int]*Team{},
		players: map[int]*Player{},
		games:   map[int]*Game{},
		points:  map[int]*Point{},
	}
}

func (s *Store) id() int {
	s.nextID++
	return s.nextID
}

func (s *Store) AddTeam(name string) *Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &Team{ID: s.id(), Name: name}
	s.teams[t.ID] = t
	return t
}

func (s *Store) AddPlayer(teamID int, name string) (*Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[teamID]; !ok {
		return nil, fmt.Errorf("team %d: %w", teamID, ErrNotFound)
	}
	p := &Player{ID: s.id(), Name: name, TeamID: teamID}
	s.players[p.ID] = p
	return p, nil
}

func (s *Store) AddGame(teamID int, opponent string) (*Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[teamID]; !ok {
		return nil, fmt.Errorf("team %d: %w", teamID, ErrNotFound)
	}
	g := &Game{ID: s.id(), TeamID: teamID, Opponent: opponent, StartedAt: s.now()}
	s.games[g.ID] = g
	return g, nil
}

// CreatePoint records a point of an existing game, credited to the game's team.
func (s *Store) CreatePoint(ctx context.Context, in NewPoint) (*Point, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[in.GameID]
	if !ok {
		return nil, fmt.Errorf("game %d: %w", in.GameID, ErrNotFound)
	}
	for _, id := range in.PlayerIDs {
		if _, ok := s.players[id]; !ok {
			return nil, fmt.Errorf("player %d: %w", id, ErrNotFound)
		}
	}
	now := s.now()
	p := &Point{
		ID:               s.id(),
		GameID:           g.ID,
		TeamID:           g.TeamID,
		Scored:           in.Scored,
		StartedOnOffense: in.StartedOnOffense,
		PlayerIDs:        slices.Clone(in.PlayerIDs),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	s.points[p.ID] = p
	return p, nil
}

// byIDs returns the records of m for ids, aligned with ids; unknown or
// malformed ids load as nil.
func byIDs[T any](s *Store, m map[int]*T, ids []string) []any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]any, len(ids))
	for i, raw := range ids {
		id, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		if v, ok := m[id]; ok {
			out[i] = v
		}
	}
	return out
}

func (s *Store) TeamsByID(_ context.Context, ids []string) ([]any, error) {
	return byIDs(s, s.teams, ids), nil
}

func (s *Store) PlayersByID(_ context.Context, ids []string) ([]any, error) {
	return byIDs(s, s.players, ids), nil
}

func (s *Store) GamesByID(_ context.Context, ids []string) ([]any, error) {
	return byIDs(s, s.games, ids), nil
}

func (s *Store) PointsByID(_ context.Context, ids []string) ([]any, error) {
	return byIDs(s, s.points, ids), nil
}

func (s *Store) Team(id int) (*Team, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	return t, ok
}

func (s *Store) Game(id int) (*Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[id]
	return g, ok
}

// Teams returns all teams ordered by id.
func (s *Store) Teams() []*Team {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sorted(s.teams, func(t *Team) int { return t.ID })
}

// GamesOf returns the games of a team ordered by id.
func (s *Store) GamesOf(teamID int) []*Game {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Game
	for _, g := range sorted(s.games, func(g *Game) int { return g.ID }) {
		if g.TeamID == teamID {
			out = append(out, g)
		}
	}
	return out
}

// PlayersByIDs returns existing players of ids, in order.
func (s *Store) PlayersByIDs(ids []int) []*Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Player, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.players[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// PointsOf returns the points of a game ordered by id, descending when desc.
func (s *Store) PointsOf(gameID int, desc bool) []*Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Point
	for _, p := range sorted(s.points, func(p *Point) int { return p.ID }) {
		if p.GameID == gameID {
			out = append(out, p)
		}
	}
	if desc {
		slices.Reverse(out)
	}
	return out
}

func sorted[T any](m map[int]*T, id func(*T) int) []*T {
	out := make([]*T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b *T) int { return id(a) - id(b) })
	return out
}
