// Package engine drives the conversation: it routes inbound events
// through the per-user session state machine, consults the schedule
// gateway and the favorites store, and produces replies.
//
// Handling is split in three phases so the per-user lock is never held
// across a network fetch. Phase one routes the event under the lock,
// applies local mutations and marks the session busy when a fetch is
// needed. Phase two performs the fetch with no lock held. Phase three
// re-acquires the lock, clears the busy marker and applies the result.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"log/slog"

	"github.com/granalabs/parada/internal/logging"
	"github.com/granalabs/parada/pkg/domain"
	"github.com/granalabs/parada/pkg/keyboard"
	"github.com/granalabs/parada/pkg/ports"
	"github.com/granalabs/parada/pkg/session"
)

// DefaultBusyMaxAge is how old a busy marker may grow before it is
// considered abandoned. It covers the worst-case retried fetch with
// slack; a marker older than this belongs to a fetch whose apply phase
// never ran.
const DefaultBusyMaxAge = 30 * time.Second

// Gateway is the read side the engine consumes. *schedule.Gateway
// implements it; tests substitute fakes.
type Gateway interface {
	Departures(ctx context.Context, stopID domain.StopID) ([]domain.Departure, error)
	SearchStops(ctx context.Context, query string) ([]domain.Stop, error)
	Stops(ctx context.Context) ([]domain.Stop, error)
	Stop(ctx context.Context, stopID domain.StopID) (domain.Stop, error)
	LineBoard(ctx context.Context) ([]domain.StopArrivals, error)
}

// Engine is the conversational core.
type Engine struct {
	sessions  *session.Manager
	favorites ports.FavoritesStore
	gateway   Gateway

	logger     *slog.Logger
	hooks      domain.Hooks
	capacity   int
	busyMaxAge time.Duration
	now        func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger configures a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHooks wires observability callbacks.
func WithHooks(hooks domain.Hooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithCapacity tells the engine the favorites capacity configured on
// the store, used for the limit notice.
func WithCapacity(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.capacity = n
		}
	}
}

// WithBusyMaxAge sets the staleness bound for busy markers.
func WithBusyMaxAge(d time.Duration) Option {
	return func(e *Engine) {
		e.busyMaxAge = d
	}
}

// New creates the engine.
func New(sessions *session.Manager, favorites ports.FavoritesStore, gateway Gateway, opts ...Option) *Engine {
	e := &Engine{
		sessions:   sessions,
		favorites:  favorites,
		gateway:    gateway,
		logger:     logging.NewNop(),
		capacity:   domain.DefaultFavoritesCapacity,
		busyMaxAge: DefaultBusyMaxAge,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// jobKind names the fetch a routed event asked for.
type jobKind int

const (
	jobPicker jobKind = iota
	jobSearch
	jobDepartures
	jobFavorites
	jobBoard
)

// fetchJob is the work phase two performs without the session lock.
type fetchJob struct {
	kind   jobKind
	stopID domain.StopID // jobDepartures
	query  string        // jobSearch
	note   string        // confirmation line prepended to the rendered reply
}

// outcome carries phase two's results into phase three.
type outcome struct {
	kind    jobKind
	stop    domain.Stop
	deps    []domain.Departure
	matches []domain.Stop
	favs    []domain.Stop
	stops   []domain.Stop
	board   []domain.StopArrivals
	note    string
	err     error
}

// Handle processes one inbound event and returns the reply. Events
// for one user are handled strictly in sequence; a non-nil error means
// infrastructure failed and no meaningful reply exists.
func (e *Engine) Handle(ctx context.Context, ev domain.Event) (domain.Reply, error) {
	if err := ev.Validate(); err != nil {
		return domain.Reply{}, fmt.Errorf("invalid event: %w", err)
	}

	var reply domain.Reply
	var job *fetchJob

	err := e.sessions.WithSession(ctx, ev.UserID, func(ctx context.Context, s *domain.Session) error {
		e.hooks.EmitEvent(ctx, ev.UserID, ev.Kind, s.State)
		from := s.State

		var err error
		reply, job, err = e.route(ctx, s, ev)
		if err != nil {
			return err
		}
		e.hooks.EmitTransition(ctx, from, s.State)
		return nil
	})
	if err != nil {
		e.logger.Error("event handling failed", "user_id", ev.UserID, "kind", ev.Kind, "err", err)
		return domain.Reply{}, err
	}
	if job == nil {
		return reply, nil
	}

	// No lock held here: other users proceed, and further fetch
	// requests from this user bounce off the busy marker.
	out := e.runJob(ctx, ev.UserID, job)

	err = e.sessions.WithSession(ctx, ev.UserID, func(ctx context.Context, s *domain.Session) error {
		s.ClearBusy()
		from := s.State
		reply = e.applyOutcome(ctx, s, out)
		e.hooks.EmitTransition(ctx, from, s.State)
		return nil
	})
	if err != nil {
		e.logger.Error("applying fetch result failed", "user_id", ev.UserID, "err", err)
		return domain.Reply{}, err
	}
	return reply, nil
}

// route decides what an event means in the session's current state.
// It returns either a final reply or a fetch job; never both.
func (e *Engine) route(ctx context.Context, s *domain.Session, ev domain.Event) (domain.Reply, *fetchJob, error) {
	switch ev.Kind {
	case domain.EventCommand:
		return e.routeCommand(ctx, s, ev.Command)
	case domain.EventButton:
		btn, err := domain.ParseCallback(ev.Data)
		if err != nil {
			// Stale clients and forged payloads land here; answer like
			// any other noise.
			e.logger.Debug("unparseable callback", "user_id", s.UserID, "data", ev.Data)
			return e.reprompt(ctx, s), nil, nil
		}
		return e.routeButton(ctx, s, btn)
	default:
		return e.routeText(ctx, s, ev.Text)
	}
}

func (e *Engine) routeCommand(ctx context.Context, s *domain.Session, cmd domain.Command) (domain.Reply, *fetchJob, error) {
	switch cmd {
	case domain.CommandStart:
		s.ResetTransient()
		return e.menuReply(ctx, s.UserID, msgWelcome), nil, nil
	case domain.CommandSearch:
		return e.gate(s, &fetchJob{kind: jobPicker})
	case domain.CommandFavorites:
		return e.enterFavorites(ctx, s)
	case domain.CommandLine:
		return e.gate(s, &fetchJob{kind: jobBoard})
	case domain.CommandInfo:
		return e.infoReply(ctx, s.UserID), nil, nil
	default:
		return e.reprompt(ctx, s), nil, nil
	}
}

func (e *Engine) routeButton(ctx context.Context, s *domain.Session, btn domain.Button) (domain.Reply, *fetchJob, error) {
	switch btn.Op {
	case domain.OpMenu:
		s.State = domain.StateIdle
		s.CurrentStop = ""
		return e.menuReply(ctx, s.UserID, msgMainMenu), nil, nil
	case domain.OpSearch:
		return e.gate(s, &fetchJob{kind: jobPicker})
	case domain.OpFavorites:
		return e.enterFavorites(ctx, s)
	case domain.OpLine:
		return e.gate(s, &fetchJob{kind: jobBoard})
	case domain.OpInfo:
		return e.infoReply(ctx, s.UserID), nil, nil
	case domain.OpView:
		// Honored from any state so board and stale picker taps keep
		// working.
		return e.gate(s, &fetchJob{kind: jobDepartures, stopID: btn.StopID})
	case domain.OpAdd:
		return e.addFavorite(ctx, s, btn.StopID)
	case domain.OpRemove:
		return e.removeFavorite(ctx, s, btn.StopID)
	default:
		return e.reprompt(ctx, s), nil, nil
	}
}

func (e *Engine) routeText(ctx context.Context, s *domain.Session, text string) (domain.Reply, *fetchJob, error) {
	if s.State == domain.StateAwaitingStopQuery {
		query := strings.TrimSpace(text)
		if query == "" {
			return domain.Reply{Text: msgAskStopAgain}, nil, nil
		}
		return e.gate(s, &fetchJob{kind: jobSearch, query: query})
	}

	// The persistent menu writes its label as plain text; match it the
	// way the menu itself is matched, folded.
	folded := domain.Fold(text)
	switch {
	case strings.Contains(folded, "ver paradas"):
		return e.gate(s, &fetchJob{kind: jobPicker})
	case strings.Contains(folded, "favoritas"):
		return e.enterFavorites(ctx, s)
	case strings.Contains(folded, "ver toda la linea"):
		return e.gate(s, &fetchJob{kind: jobBoard})
	case strings.Contains(folded, "informacion"), strings.Contains(folded, "info"):
		return e.infoReply(ctx, s.UserID), nil, nil
	default:
		return e.reprompt(ctx, s), nil, nil
	}
}

// gate marks the session busy and hands out the fetch job, or bounces
// the event with a notice when a fetch is already in flight. A busy
// marker past its maximum age is logged and overridden.
func (e *Engine) gate(s *domain.Session, job *fetchJob) (domain.Reply, *fetchJob, error) {
	now := e.now().UTC()
	if s.Busy {
		if !s.BusyStale(now, e.busyMaxAge) {
			return domain.Reply{Text: msgBusy}, nil, nil
		}
		e.logger.Warn("overriding stale busy marker",
			"user_id", s.UserID,
			"busy_since", s.BusySince,
		)
	}
	s.MarkBusy(now)
	return domain.Reply{}, job, nil
}

// enterFavorites opens the favorites list. An empty list is answered
// immediately; a populated one needs the catalog for names, so it
// becomes a fetch job.
func (e *Engine) enterFavorites(ctx context.Context, s *domain.Session) (domain.Reply, *fetchJob, error) {
	favs, err := e.favorites.List(ctx, s.UserID)
	if err != nil {
		return domain.Reply{}, nil, fmt.Errorf("list favorites: %w", err)
	}
	if len(favs) == 0 {
		return e.menuReply(ctx, s.UserID, msgNoFavorites), nil, nil
	}
	return e.gate(s, &fetchJob{kind: jobFavorites})
}

// addFavorite applies an add tap. The payload carries the stop, so
// stale taps from earlier schedule views still work.
func (e *Engine) addFavorite(ctx context.Context, s *domain.Session, stopID domain.StopID) (domain.Reply, *fetchJob, error) {
	err := e.favorites.Add(ctx, s.UserID, stopID)
	switch {
	case err == nil:
		return e.menuReply(ctx, s.UserID, msgFavAdded), nil, nil
	case errors.Is(err, domain.ErrAlreadyFavorite):
		return e.menuReply(ctx, s.UserID, msgFavAlready), nil, nil
	case errors.Is(err, domain.ErrCapacityExceeded):
		return e.menuReply(ctx, s.UserID, fmt.Sprintf(msgFavLimitFmt, e.capacity)), nil, nil
	default:
		return domain.Reply{}, nil, fmt.Errorf("add favorite: %w", err)
	}
}

// removeFavorite applies a remove tap. Inside the favorites list the
// list is re-rendered afterwards; elsewhere a plain confirmation is
// enough.
func (e *Engine) removeFavorite(ctx context.Context, s *domain.Session, stopID domain.StopID) (domain.Reply, *fetchJob, error) {
	err := e.favorites.Remove(ctx, s.UserID, stopID)
	switch {
	case errors.Is(err, domain.ErrFavoriteNotFound):
		return e.menuReply(ctx, s.UserID, msgFavGone), nil, nil
	case err != nil:
		return domain.Reply{}, nil, fmt.Errorf("remove favorite: %w", err)
	}

	if s.State == domain.StateManagingFavorites {
		// Re-render the list; unless a fetch is already in flight, in
		// which case the confirmation alone has to do.
		if s.Busy && !s.BusyStale(e.now().UTC(), e.busyMaxAge) {
			return e.menuReply(ctx, s.UserID, msgFavDeleted), nil, nil
		}
		return e.gate(s, &fetchJob{kind: jobFavorites, note: msgFavDeleted})
	}
	return e.menuReply(ctx, s.UserID, msgFavRemoved), nil, nil
}

// runJob performs the remote work for a routed event. It never touches
// the session; results travel to applyOutcome.
func (e *Engine) runJob(ctx context.Context, userID string, job *fetchJob) *outcome {
	out := &outcome{kind: job.kind, note: job.note}
	switch job.kind {
	case jobPicker:
		out.stops, out.err = e.gateway.Stops(ctx)
	case jobSearch:
		matches, err := e.gateway.SearchStops(ctx, job.query)
		if err != nil {
			out.err = err
			return out
		}
		if len(matches) == 1 {
			// Unambiguous: go straight to the schedule.
			out.kind = jobDepartures
			out.stop = matches[0]
			out.deps, out.err = e.gateway.Departures(ctx, matches[0].ID)
			return out
		}
		out.matches = matches
	case jobDepartures:
		out.deps, out.err = e.gateway.Departures(ctx, job.stopID)
		if out.err != nil {
			return out
		}
		out.stop = e.resolveStop(ctx, job.stopID)
	case jobFavorites:
		favs, err := e.favorites.List(ctx, userID)
		if err != nil {
			out.err = err
			return out
		}
		out.favs, out.err = e.resolveFavorites(ctx, favs)
	case jobBoard:
		out.board, out.err = e.gateway.LineBoard(ctx)
	}
	return out
}

// applyOutcome folds phase two's result into the session and builds
// the reply. Failures keep the dialog position so a retry picks up
// where the user left off.
func (e *Engine) applyOutcome(ctx context.Context, s *domain.Session, out *outcome) domain.Reply {
	if out.err != nil {
		if errors.Is(out.err, domain.ErrUnknownStop) {
			e.logger.Info("stop rejected by feed", "user_id", s.UserID, "err", out.err)
			return e.menuReply(ctx, s.UserID, msgUnknownStop)
		}
		e.logger.Warn("fetch failed", "user_id", s.UserID, "err", out.err)
		return e.menuReply(ctx, s.UserID, msgFetchError)
	}

	switch out.kind {
	case jobPicker:
		s.State = domain.StateAwaitingStopQuery
		s.CurrentStop = ""
		menu := keyboard.Build(keyboard.ModeStopPicker, keyboard.Input{Stops: out.stops})
		return domain.Reply{Text: msgAskStop, Keyboard: &menu}

	case jobSearch:
		s.State = domain.StateAwaitingStopQuery
		switch len(out.matches) {
		case 0:
			return domain.Reply{Text: msgNoMatches}
		default:
			menu := keyboard.Build(keyboard.ModeStopPicker, keyboard.Input{Stops: out.matches})
			return domain.Reply{Text: msgManyMatches, Keyboard: &menu}
		}

	case jobDepartures:
		s.State = domain.StateShowingSchedule
		s.CurrentStop = out.stop.ID
		isFav := e.isFavorite(ctx, s.UserID, out.stop.ID)
		menu := keyboard.Build(keyboard.ModeSchedule, keyboard.Input{Current: out.stop, IsFavorite: isFav})
		return domain.Reply{Text: scheduleText(out.stop.Name, out.deps, isFav), Keyboard: &menu}

	case jobFavorites:
		if len(out.favs) == 0 {
			// Everything was removed while the fetch ran.
			s.State = domain.StateIdle
			return e.menuReply(ctx, s.UserID, joinNote(out.note, msgNoFavorites))
		}
		s.State = domain.StateManagingFavorites
		s.CurrentStop = ""
		menu := keyboard.Build(keyboard.ModeFavorites, keyboard.Input{Favorites: out.favs})
		return domain.Reply{Text: joinNote(out.note, msgFavoritesHeader), Keyboard: &menu}

	case jobBoard:
		menu := keyboard.Build(keyboard.ModeLineBoard, keyboard.Input{Board: out.board})
		return domain.Reply{Text: msgBoardHeader, Keyboard: &menu}
	}

	// Reaching here means a job kind was added without a branch above.
	e.logger.Error("unhandled job kind", "user_id", s.UserID, "kind", int(out.kind))
	s.ResetTransient()
	return e.menuReply(ctx, s.UserID, msgMainMenu)
}

// reprompt answers events that make no sense where the session stands.
func (e *Engine) reprompt(ctx context.Context, s *domain.Session) domain.Reply {
	if s.State == domain.StateAwaitingStopQuery {
		return domain.Reply{Text: msgAskStopAgain}
	}
	return e.menuReply(ctx, s.UserID, msgLost)
}

// menuReply pairs a text with the main menu keyboard.
func (e *Engine) menuReply(ctx context.Context, userID, text string) domain.Reply {
	menu := keyboard.Build(keyboard.ModeMain, keyboard.Input{HasFavorites: e.hasFavorites(ctx, userID)})
	return domain.Reply{Text: text, Keyboard: &menu}
}

func (e *Engine) infoReply(ctx context.Context, userID string) domain.Reply {
	return e.menuReply(ctx, userID, msgInfo)
}

func (e *Engine) hasFavorites(ctx context.Context, userID string) bool {
	favs, err := e.favorites.List(ctx, userID)
	if err != nil {
		e.logger.Warn("listing favorites for menu failed", "user_id", userID, "err", err)
		return false
	}
	return len(favs) > 0
}

func (e *Engine) isFavorite(ctx context.Context, userID string, stopID domain.StopID) bool {
	favs, err := e.favorites.List(ctx, userID)
	if err != nil {
		e.logger.Warn("listing favorites failed", "user_id", userID, "err", err)
		return false
	}
	for _, f := range favs {
		if f.StopID == stopID {
			return true
		}
	}
	return false
}

// resolveStop names a stop via the catalog. Departure fetches succeed
// for stops the catalog may have dropped, so failure only degrades the
// label.
func (e *Engine) resolveStop(ctx context.Context, stopID domain.StopID) domain.Stop {
	stop, err := e.gateway.Stop(ctx, stopID)
	if err != nil {
		e.logger.Debug("stop not in catalog", "stop_id", stopID, "err", err)
		return domain.Stop{ID: stopID, Name: unknownStopName}
	}
	return stop
}

// resolveFavorites turns stored stop IDs into named stops, preserving
// insertion order. IDs the catalog dropped keep their raw ID as label.
func (e *Engine) resolveFavorites(ctx context.Context, favs []domain.Favorite) ([]domain.Stop, error) {
	stops, err := e.gateway.Stops(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[domain.StopID]domain.Stop, len(stops))
	for _, s := range stops {
		byID[s.ID] = s
	}

	resolved := make([]domain.Stop, 0, len(favs))
	for _, f := range favs {
		if stop, ok := byID[f.StopID]; ok {
			resolved = append(resolved, stop)
			continue
		}
		resolved = append(resolved, domain.Stop{ID: f.StopID, Name: string(f.StopID)})
	}
	return resolved, nil
}

func joinNote(note, text string) string {
	if note == "" {
		return text
	}
	return note + "\n\n" + text
}
