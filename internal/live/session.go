package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/contactlearncert-blip/prospection/internal/metrics"
	"github.com/contactlearncert-blip/prospection/internal/model"
	"github.com/contactlearncert-blip/prospection/internal/view"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
	persistTimeout = 15 * time.Second
	sendBuffer     = 16
)

// Prospects is the part of the prospect service a session uses.
type Prospects interface {
	UpdateStatus(ctx context.Context, userID, id string, status model.Status) (*model.Prospect, error)
	MarkMessageSent(ctx context.Context, userID, id, message string) (*model.Prospect, error)
	Subscribe(ctx context.Context, userID string, onChange func([]*model.Prospect), onError func(error)) (unsubscribe func())
}

var errClosed = errors.New("live: connection closed")

// outcome is the result of a background write started by an optimistic change.
type outcome struct {
	id      string
	cmd     string
	name    string
	gen     uint64
	before  []*model.Prospect
	updated *model.Prospect
	err     error
}

// Session is one connected client. All table state is owned by the loop
// goroutine; the reader, the writer, the feed and background writes talk to it
// over channels.
type Session struct {
	conn      *websocket.Conn
	userID    string
	prospects Prospects
	now       func() time.Time

	table  *view.Table
	store  *view.Store
	gen    uint64
	loaded bool

	commands  chan Command
	invalid   chan error
	snapshots chan []*model.Prospect
	feedErrs  chan error
	outcomes  chan outcome
	send      chan Event

	inflight sync.WaitGroup
}

// NewSession wraps an upgraded connection for userID.
func NewSession(conn *websocket.Conn, userID string, prospects Prospects) *Session {
	return &Session{
		conn:      conn,
		userID:    userID,
		prospects: prospects,
		now:       time.Now,
		table:     view.NewTable(),
		store:     view.NewStore(),
		commands:  make(chan Command),
		invalid:   make(chan error),
		snapshots: make(chan []*model.Prospect),
		feedErrs:  make(chan error),
		outcomes:  make(chan outcome),
		send:      make(chan Event, sendBuffer),
	}
}

// Serve runs the session until the client disconnects or ctx is done. It
// closes the connection before returning.
func (s *Session) Serve(ctx context.Context) error {
	metrics.LiveSessionOpened()
	defer metrics.LiveSessionClosed()
	slog.Info("live session opened", "user_id", s.userID)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.readPump(ctx) })
	g.Go(func() error { return s.writePump(ctx) })
	g.Go(func() error { return s.loop(ctx) })

	unsubscribe := s.prospects.Subscribe(ctx, s.userID, s.onSnapshot(ctx), s.onFeedError(ctx))
	err := g.Wait()
	unsubscribe()
	s.inflight.Wait()

	slog.Info("live session closed", "user_id", s.userID)
	if errors.Is(err, errClosed) {
		return nil
	}
	return err
}

func (s *Session) onSnapshot(ctx context.Context) func([]*model.Prospect) {
	return func(ps []*model.Prospect) {
		select {
		case s.snapshots <- ps:
		case <-ctx.Done():
		}
	}
}

func (s *Session) onFeedError(ctx context.Context) func(error) {
	return func(err error) {
		select {
		case s.feedErrs <- err:
		case <-ctx.Done():
		}
	}
}

func (s *Session) readPump(ctx context.Context) error {
	s.conn.SetReadLimit(maxMessageSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("live read failed", "user_id", s.userID, "error", err)
			}
			return errClosed
		}

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			select {
			case s.invalid <- err:
			case <-ctx.Done():
				return nil
			}
			continue
		}
		select {
		case s.commands <- cmd:
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Session) writePump(ctx context.Context) error {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case ev := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(ev); err != nil {
				return fmt.Errorf("write event: %w", err)
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("write ping: %w", err)
			}
		case <-ctx.Done():
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return nil
		}
	}
}

func (s *Session) loop(ctx context.Context) error {
	s.render(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-s.commands:
			s.handle(ctx, cmd)
		case err := <-s.invalid:
			slog.Debug("live command rejected", "user_id", s.userID, "error", err)
			s.toast(ctx, errorToast("Commande invalide", "Le message reçu n'a pas pu être lu."))
		case ps := <-s.snapshots:
			s.store.Replace(ps)
			s.gen++
			s.loaded = true
			s.render(ctx)
		case err := <-s.feedErrs:
			slog.Warn("live feed failed", "user_id", s.userID, "error", err)
			s.toast(ctx, errorToast("Erreur de synchronisation", "Impossible de charger les prospects."))
		case o := <-s.outcomes:
			s.settle(ctx, o)
		}
	}
}

func (s *Session) handle(ctx context.Context, cmd Command) {
	switch cmd.Type {
	case CmdSearch:
		s.table.Search = cmd.Value
	case CmdFilterStatus:
		if cmd.Value != view.All && !model.Status(cmd.Value).Valid() {
			s.toast(ctx, errorToast("Filtre invalide", fmt.Sprintf("Statut inconnu : %s", cmd.Value)))
			return
		}
		s.table.StatusFilter = cmd.Value
	case CmdFilterIndustry:
		if cmd.Value != view.All && !model.Industry(cmd.Value).Valid() {
			s.toast(ctx, errorToast("Filtre invalide", fmt.Sprintf("Secteur inconnu : %s", cmd.Value)))
			return
		}
		s.table.IndustryFilter = cmd.Value
	case CmdSort:
		key, err := view.ParseSortKey(cmd.Key)
		if err != nil {
			s.toast(ctx, errorToast("Tri invalide", fmt.Sprintf("Colonne inconnue : %s", cmd.Key)))
			return
		}
		s.table.RequestSort(key)
	case CmdChangeStatus:
		if !cmd.Status.Valid() {
			s.toast(ctx, errorToast("Statut invalide", fmt.Sprintf("Statut inconnu : %s", cmd.Status)))
			return
		}
		s.optimistic(ctx, cmd, cmd.Status, func(pctx context.Context) (*model.Prospect, error) {
			return s.prospects.UpdateStatus(pctx, s.userID, cmd.ID, cmd.Status)
		})
		return
	case CmdSendMessage:
		if cmd.Message == "" {
			s.toast(ctx, errorToast("Message vide", "Écrivez un message avant de l'envoyer."))
			return
		}
		s.optimistic(ctx, cmd, model.StatusContacted, func(pctx context.Context) (*model.Prospect, error) {
			return s.prospects.MarkMessageSent(pctx, s.userID, cmd.ID, cmd.Message)
		})
		return
	default:
		s.toast(ctx, errorToast("Commande inconnue", cmd.Type))
		return
	}
	s.render(ctx)
}

// optimistic applies status locally, renders, and persists in the background.
// The outcome comes back to the loop through s.outcomes.
func (s *Session) optimistic(ctx context.Context, cmd Command, status model.Status, persist func(context.Context) (*model.Prospect, error)) {
	before, ok := s.store.SetStatus(cmd.ID, status, s.now().UTC())
	if !ok {
		s.toast(ctx, errorToast("Prospect introuvable", "Ce prospect n'existe plus."))
		return
	}
	s.gen++
	o := outcome{id: cmd.ID, cmd: cmd.Type, gen: s.gen, before: before}
	for _, p := range before {
		if p.ID == cmd.ID {
			o.name = p.Name
		}
	}
	s.render(ctx)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		// The write finishes even if the client goes away meanwhile.
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()
		o.updated, o.err = persist(pctx)
		select {
		case s.outcomes <- o:
		case <-ctx.Done():
		}
	}()
}

// settle confirms or rolls back an optimistic change. When nothing else
// changed the list since, the exact prior list is restored; otherwise only the
// affected row is put back.
func (s *Session) settle(ctx context.Context, o outcome) {
	if o.err == nil {
		if o.updated != nil {
			s.store.Put(o.updated)
		}
		s.render(ctx)
		if o.cmd == CmdSendMessage {
			s.toast(ctx, &Toast{
				Title:       "Message envoyé",
				Description: fmt.Sprintf("Votre message à %s a été envoyé.", o.name),
				Variant:     ToastDefault,
			})
		}
		return
	}

	slog.Warn("optimistic update rolled back", "user_id", s.userID, "prospect_id", o.id, "command", o.cmd, "error", o.err)
	if o.gen == s.gen {
		s.store.Restore(o.before)
	} else {
		for _, p := range o.before {
			if p.ID == o.id {
				s.store.Put(p)
			}
		}
	}
	s.gen++
	s.render(ctx)

	title := "Échec de la mise à jour"
	if o.cmd == CmdSendMessage {
		title = "Échec de l'envoi"
	}
	s.toast(ctx, errorToast(title, "Le changement n'a pas pu être enregistré et a été annulé."))
}

func (s *Session) render(ctx context.Context) {
	all := s.store.Snapshot()
	s.emit(ctx, Event{Type: EventState, State: &State{
		Loading:   !s.loaded,
		Table:     *s.table,
		Rows:      s.table.Apply(all),
		Total:     len(all),
		Dashboard: view.BuildDashboard(all),
	}})
}

func (s *Session) toast(ctx context.Context, t *Toast) {
	s.emit(ctx, Event{Type: EventToast, Toast: t})
}

func (s *Session) emit(ctx context.Context, ev Event) {
	select {
	case s.send <- ev:
	case <-ctx.Done():
	}
}
