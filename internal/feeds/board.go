package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/pulse"
	"github.com/dmitrymomot/pulse/pkg/logger"
	"github.com/dmitrymomot/pulse/pkg/realtime"
)

// ScoreEvent is the realtime event carrying a scoreboard delta. Its payload is
// a partial Score; absent fields keep their current value.
const ScoreEvent = "score"

// MatchTopic returns the realtime topic of a match.
func MatchTopic(matchID string) string {
	return "match:" + matchID
}

// MatchParams returns the scores resource params of a match.
func MatchParams(matchID string) pulse.Params {
	return pulse.Params{"match": matchID}
}

type watch struct {
	unhandle func()
	live     Score
	refs     int
	patched  bool
}

// Board is the live view of watched matches. Realtime deltas patch the
// board's own state and never touch the scores cache: the cached REST
// snapshot is the base, the board holds everything newer.
type Board struct {
	manager *realtime.Manager
	scores  *pulse.Resource[Score]
	log     *slog.Logger
	matches map[string]*watch
	mu      sync.Mutex
}

// NewBoard creates a board reading snapshots from scores and deltas from m.
func NewBoard(m *realtime.Manager, scores *pulse.Resource[Score], log *slog.Logger) *Board {
	if log == nil {
		log = logger.NewNope()
	}
	return &Board{
		manager: m,
		scores:  scores,
		log:     log,
		matches: make(map[string]*watch),
	}
}

// Watch starts following a match. Watches are reference counted: the topic
// is joined by the first watcher and left when the last one stops.
// The returned func is safe to call more than once.
func (b *Board) Watch(ctx context.Context, matchID string) (func(context.Context) error, error) {
	b.mu.Lock()
	w, ok := b.matches[matchID]
	if ok {
		w.refs++
		b.mu.Unlock()
		return b.stopper(matchID), nil
	}
	w = &watch{refs: 1}
	b.matches[matchID] = w
	w.unhandle = b.manager.Handle(MatchTopic(matchID), func(ctx context.Context, msg realtime.Message) {
		b.apply(ctx, matchID, msg)
	})
	b.mu.Unlock()

	if err := b.manager.Join(ctx, MatchTopic(matchID)); err != nil {
		_ = b.stopper(matchID)(ctx)
		return nil, err
	}
	return b.stopper(matchID), nil
}

func (b *Board) stopper(matchID string) func(context.Context) error {
	var once sync.Once
	return func(ctx context.Context) error {
		var err error
		once.Do(func() { err = b.release(ctx, matchID) })
		return err
	}
}

func (b *Board) release(ctx context.Context, matchID string) error {
	b.mu.Lock()
	w, ok := b.matches[matchID]
	if !ok {
		b.mu.Unlock()
		return nil
	}
	w.refs--
	if w.refs > 0 {
		b.mu.Unlock()
		return nil
	}
	delete(b.matches, matchID)
	b.mu.Unlock()

	w.unhandle()
	if err := b.manager.Leave(ctx, MatchTopic(matchID)); err != nil && !errors.Is(err, realtime.ErrClosed) {
		return err
	}
	return nil
}

// apply patches the live score with a delta. It runs on the realtime read
// loop and only does in-memory work.
func (b *Board) apply(ctx context.Context, matchID string, msg realtime.Message) {
	if msg.Event != ScoreEvent || len(msg.Payload) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	w, ok := b.matches[matchID]
	if !ok {
		return
	}

	next := w.live
	if !w.patched {
		next = Score{MatchID: matchID}
		if s := b.scores.Peek(MatchParams(matchID)); s.Ready {
			next = s.Data
		}
	}
	if err := json.Unmarshal(msg.Payload, &next); err != nil {
		b.log.WarnContext(ctx, "dropping malformed score delta",
			slog.String("match", matchID),
			slog.Any("error", errors.Join(realtime.ErrMalformedMessage, err)),
		)
		return
	}
	next.MatchID = matchID
	w.live, w.patched = next, true
}

// Score returns the freshest known scoreboard: the patched live state of a
// watched match, otherwise the coalesced REST snapshot.
func (b *Board) Score(ctx context.Context, matchID string) (Score, error) {
	b.mu.Lock()
	if w, ok := b.matches[matchID]; ok && w.patched {
		s := w.live
		b.mu.Unlock()
		return s, nil
	}
	b.mu.Unlock()

	res, err := b.scores.Fetch(ctx, MatchParams(matchID))
	return res.Value, err
}

// Handler serves GET /{match} with the board score as JSON.
func (b *Board) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/{match}", func(w http.ResponseWriter, r *http.Request) {
		s, err := b.Score(r.Context(), chi.URLParam(r, "match"))
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": err.Error(), "data": s})
			return
		}
		_ = json.NewEncoder(w).Encode(s)
	})
	return r
}
