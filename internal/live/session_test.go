package live

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/contactlearncert-blip/prospection/internal/model"
	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProspects records the feed callbacks so tests can push snapshots, and
// lets each test decide how writes behave.
type fakeProspects struct {
	mu           sync.Mutex
	onChange     func([]*model.Prospect)
	onError      func(error)
	subscribed   chan struct{}
	unsubscribed chan struct{}

	updateStatusFunc    func(ctx context.Context, userID, id string, status model.Status) (*model.Prospect, error)
	markMessageSentFunc func(ctx context.Context, userID, id, message string) (*model.Prospect, error)
}

func newFakeProspects() *fakeProspects {
	return &fakeProspects{
		subscribed:   make(chan struct{}),
		unsubscribed: make(chan struct{}),
	}
}

func (f *fakeProspects) UpdateStatus(ctx context.Context, userID, id string, status model.Status) (*model.Prospect, error) {
	if f.updateStatusFunc != nil {
		return f.updateStatusFunc(ctx, userID, id, status)
	}
	return nil, nil
}

func (f *fakeProspects) MarkMessageSent(ctx context.Context, userID, id, message string) (*model.Prospect, error) {
	if f.markMessageSentFunc != nil {
		return f.markMessageSentFunc(ctx, userID, id, message)
	}
	return nil, nil
}

func (f *fakeProspects) Subscribe(_ context.Context, _ string, onChange func([]*model.Prospect), onError func(error)) func() {
	f.mu.Lock()
	f.onChange, f.onError = onChange, onError
	f.mu.Unlock()
	close(f.subscribed)
	var once sync.Once
	return func() { once.Do(func() { close(f.unsubscribed) }) }
}

func (f *fakeProspects) push(t *testing.T, ps []*model.Prospect) {
	t.Helper()
	<-f.subscribed
	f.mu.Lock()
	fn := f.onChange
	f.mu.Unlock()
	fn(ps)
}

func (f *fakeProspects) fail(t *testing.T, err error) {
	t.Helper()
	<-f.subscribed
	f.mu.Lock()
	fn := f.onError
	f.mu.Unlock()
	fn(err)
}

func seed() []*model.Prospect {
	last := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)
	return []*model.Prospect{
		{ID: "p1", Name: "Sophie Martin", Company: "TechCorp", Industry: model.IndustryTech, Status: model.StatusNew},
		{ID: "p2", Name: "Luc Bernard", Company: "FinTrust", Industry: model.IndustryFinance, Status: model.StatusContacted, LastContacted: &last},
		{ID: "p3", Name: "Emma Petit", Company: "EduNet", Industry: model.IndustryEducation, Status: model.StatusInterested, LastContacted: &last},
	}
}

type harness struct {
	conn   *websocket.Conn
	fake   *fakeProspects
	served chan error
}

func startSession(t *testing.T, fake *fakeProspects) *harness {
	t.Helper()
	served := make(chan error, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			served <- err
			return
		}
		served <- NewSession(conn, "user-1", fake).Serve(r.Context())
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return &harness{conn: conn, fake: fake, served: served}
}

func (h *harness) send(t *testing.T, cmd Command) {
	t.Helper()
	require.NoError(t, h.conn.WriteJSON(cmd))
}

// next reads events until one satisfies match.
func (h *harness) next(t *testing.T, match func(Event) bool) Event {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, h.conn.SetReadDeadline(deadline))
		var ev Event
		require.NoError(t, h.conn.ReadJSON(&ev))
		if match(ev) {
			return ev
		}
	}
}

func (h *harness) nextState(t *testing.T, match func(*State) bool) *State {
	t.Helper()
	return h.next(t, func(ev Event) bool {
		return ev.Type == EventState && !ev.State.Loading && match(ev.State)
	}).State
}

func (h *harness) nextToast(t *testing.T) *Toast {
	t.Helper()
	return h.next(t, func(ev Event) bool { return ev.Type == EventToast }).Toast
}

func (h *harness) close(t *testing.T) {
	t.Helper()
	_ = h.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	h.conn.Close()
	select {
	case err := <-h.served:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("session did not stop after the client disconnected")
	}
}

func rowIDs(s *State) []string {
	ids := make([]string, len(s.Rows))
	for i, p := range s.Rows {
		ids[i] = p.ID
	}
	return ids
}

func anyState(*State) bool { return true }

func statusOf(s *State, id string) model.Status {
	for _, p := range s.Rows {
		if p.ID == id {
			return p.Status
		}
	}
	return ""
}

func TestSession_RendersLoadingThenSnapshot(t *testing.T) {
	h := startSession(t, newFakeProspects())

	first := h.next(t, func(ev Event) bool { return ev.Type == EventState })
	assert.True(t, first.State.Loading)
	assert.Empty(t, first.State.Rows)

	h.fake.push(t, seed())
	st := h.nextState(t, anyState)
	assert.Equal(t, []string{"p1", "p2", "p3"}, rowIDs(st))
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 3, st.Dashboard.Overview.Total)
	assert.Equal(t, "50.0", st.Dashboard.Overview.ConversionLabel)

	h.close(t)
	<-h.fake.unsubscribed
}

func TestSession_TableCommands(t *testing.T) {
	h := startSession(t, newFakeProspects())
	h.fake.push(t, seed())
	h.nextState(t, anyState)

	h.send(t, Command{Type: CmdSearch, Value: "fin"})
	st := h.nextState(t, func(s *State) bool { return s.Table.Search == "fin" })
	assert.Equal(t, []string{"p2"}, rowIDs(st))
	assert.Equal(t, 3, st.Total, "total counts the whole list")

	h.send(t, Command{Type: CmdSearch, Value: ""})
	h.send(t, Command{Type: CmdFilterStatus, Value: "interested"})
	st = h.nextState(t, func(s *State) bool { return s.Table.StatusFilter == "interested" })
	assert.Equal(t, []string{"p3"}, rowIDs(st))

	h.send(t, Command{Type: CmdFilterStatus, Value: "all"})
	h.send(t, Command{Type: CmdFilterIndustry, Value: "Tech"})
	st = h.nextState(t, func(s *State) bool { return s.Table.IndustryFilter == "Tech" })
	assert.Equal(t, []string{"p1"}, rowIDs(st))

	h.send(t, Command{Type: CmdFilterIndustry, Value: "all"})
	h.send(t, Command{Type: CmdSort, Key: "name"})
	st = h.nextState(t, func(s *State) bool { return s.Table.Sort != nil })
	assert.Equal(t, []string{"p3", "p2", "p1"}, rowIDs(st))

	h.send(t, Command{Type: CmdSort, Key: "name"})
	st = h.nextState(t, func(s *State) bool { return s.Table.Sort != nil && s.Table.Sort.Direction == "descending" })
	assert.Equal(t, []string{"p1", "p2", "p3"}, rowIDs(st))

	h.close(t)
}

func TestSession_RejectsBadCommands(t *testing.T) {
	h := startSession(t, newFakeProspects())
	h.fake.push(t, seed())
	h.nextState(t, anyState)

	tests := []struct {
		raw   string
		title string
	}{
		{`{"type":"dance"}`, "Commande inconnue"},
		{`not json`, "Commande invalide"},
		{`{"type":"sort","key":"avatar"}`, "Tri invalide"},
		{`{"type":"filter_status","value":"archived"}`, "Filtre invalide"},
		{`{"type":"filter_industry","value":"Mining"}`, "Filtre invalide"},
		{`{"type":"change_status","id":"p1","status":"archived"}`, "Statut invalide"},
		{`{"type":"change_status","id":"nope","status":"replied"}`, "Prospect introuvable"},
		{`{"type":"send_message","id":"p1"}`, "Message vide"},
	}
	for _, tt := range tests {
		require.NoError(t, h.conn.WriteMessage(websocket.TextMessage, []byte(tt.raw)))
		toast := h.nextToast(t)
		assert.Equal(t, tt.title, toast.Title, tt.raw)
		assert.Equal(t, ToastDestructive, toast.Variant)
	}

	h.close(t)
}

func TestSession_ChangeStatusRollsBackOnFailure(t *testing.T) {
	fake := newFakeProspects()
	release := make(chan struct{})
	fake.updateStatusFunc = func(context.Context, string, string, model.Status) (*model.Prospect, error) {
		<-release
		return nil, errors.New("db down")
	}
	h := startSession(t, fake)
	fake.push(t, seed())
	original := h.nextState(t, anyState)

	h.send(t, Command{Type: CmdChangeStatus, ID: "p1", Status: model.StatusReplied})
	optimistic := h.nextState(t, func(s *State) bool { return statusOf(s, "p1") == model.StatusReplied })
	assert.NotNil(t, optimistic.Rows[0].LastContacted)

	close(release)
	rolledBack := h.nextState(t, func(s *State) bool { return statusOf(s, "p1") == model.StatusNew })
	if diff := cmp.Diff(original.Rows, rolledBack.Rows); diff != "" {
		t.Errorf("rollback is not exact (-want +got):\n%s", diff)
	}
	toast := h.nextToast(t)
	assert.Equal(t, "Échec de la mise à jour", toast.Title)
	assert.Equal(t, ToastDestructive, toast.Variant)

	h.close(t)
}

func TestSession_RollbackKeepsLaterSnapshot(t *testing.T) {
	fake := newFakeProspects()
	release := make(chan struct{})
	fake.updateStatusFunc = func(context.Context, string, string, model.Status) (*model.Prospect, error) {
		<-release
		return nil, errors.New("db down")
	}
	h := startSession(t, fake)
	fake.push(t, seed())
	h.nextState(t, anyState)

	h.send(t, Command{Type: CmdChangeStatus, ID: "p1", Status: model.StatusReplied})
	h.nextState(t, func(s *State) bool { return statusOf(s, "p1") == model.StatusReplied })

	// Another tab renamed p2 while the write was in flight.
	fresher := seed()
	fresher[1].Name = "Luc B."
	fresher[0].Status = model.StatusReplied
	fake.push(t, fresher)
	h.nextState(t, func(s *State) bool { return s.Rows[1].Name == "Luc B." })

	close(release)
	st := h.nextState(t, func(s *State) bool { return statusOf(s, "p1") == model.StatusNew })
	assert.Equal(t, "Luc B.", st.Rows[1].Name, "only the failed row is reverted")
	h.nextToast(t)

	h.close(t)
}

func TestSession_ChangeStatusSuccess(t *testing.T) {
	fake := newFakeProspects()
	var gotUser, gotID string
	fake.updateStatusFunc = func(_ context.Context, userID, id string, status model.Status) (*model.Prospect, error) {
		gotUser, gotID = userID, id
		p := seed()[0]
		p.Status = status
		return p, nil
	}
	h := startSession(t, fake)
	fake.push(t, seed())
	h.nextState(t, anyState)

	h.send(t, Command{Type: CmdChangeStatus, ID: "p1", Status: model.StatusInterested})
	st := h.nextState(t, func(s *State) bool { return statusOf(s, "p1") == model.StatusInterested })
	assert.Equal(t, 2, st.Dashboard.Overview.Interested)

	updated := seed()
	updated[0].Status = model.StatusInterested
	fake.push(t, updated)
	h.nextState(t, func(s *State) bool { return statusOf(s, "p1") == model.StatusInterested })

	h.close(t)
	assert.Equal(t, "user-1", gotUser)
	assert.Equal(t, "p1", gotID)
}

func TestSession_SendMessage(t *testing.T) {
	fake := newFakeProspects()
	var gotMessage string
	fake.markMessageSentFunc = func(_ context.Context, _, id, message string) (*model.Prospect, error) {
		gotMessage = message
		p := seed()[0]
		p.Status = model.StatusContacted
		return p, nil
	}
	h := startSession(t, fake)
	fake.push(t, seed())
	h.nextState(t, anyState)

	h.send(t, Command{Type: CmdSendMessage, ID: "p1", Message: "Bonjour Sophie"})
	h.nextState(t, func(s *State) bool { return statusOf(s, "p1") == model.StatusContacted })
	toast := h.nextToast(t)
	assert.Equal(t, "Message envoyé", toast.Title)
	assert.Contains(t, toast.Description, "Sophie Martin")
	assert.Equal(t, ToastDefault, toast.Variant)

	h.close(t)
	assert.Equal(t, "Bonjour Sophie", gotMessage)
}

func TestSession_FeedError(t *testing.T) {
	h := startSession(t, newFakeProspects())

	h.fake.fail(t, errors.New("listen failed"))
	toast := h.nextToast(t)
	assert.Equal(t, "Erreur de synchronisation", toast.Title)

	h.close(t)
}

func TestSession_StopsWhenContextDone(t *testing.T) {
	fake := newFakeProspects()
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			served <- err
			return
		}
		served <- NewSession(conn, "user-1", fake).Serve(ctx)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	<-fake.subscribed

	cancel()
	select {
	case err := <-served:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("session did not stop on context cancellation")
	}
	<-fake.unsubscribed

	// The server sent a close frame.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
			break
		}
	}
}
