package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/nwestfall/parley/internal/types"
)

type statusCall struct {
	id, status, updatedBy string
}

type fakeAPI struct {
	statusCalls  []statusCall
	statusErr    error
	statusHook   func() // runs while the status call is in flight
	created      types.Channel
	createErr    error
	createHook   func() // runs while the create call is in flight
	channelCalls []string
	messageCalls []types.Message
	messageErr   error
}

func (f *fakeAPI) UpdateChannelStatus(_ context.Context, id, status, updatedBy, _ string) (types.Channel, error) {
	if f.statusHook != nil {
		f.statusHook()
	}
	f.statusCalls = append(f.statusCalls, statusCall{id, status, updatedBy})
	if f.statusErr != nil {
		return types.Channel{}, f.statusErr
	}
	return types.Channel{ID: id, CurrentStatus: status}, nil
}

func (f *fakeAPI) CreateChannel(_ context.Context, userEmail, _ string) (types.Channel, error) {
	if f.createHook != nil {
		f.createHook()
	}
	f.channelCalls = append(f.channelCalls, userEmail)
	if f.createErr != nil {
		return types.Channel{}, f.createErr
	}
	return f.created, nil
}

func (f *fakeAPI) CreateMessage(_ context.Context, msg types.Message, _ string) (types.Message, error) {
	f.messageCalls = append(f.messageCalls, msg)
	if f.messageErr != nil {
		return types.Message{}, f.messageErr
	}
	return msg, nil
}

type fakePublisher struct {
	sent []types.Message
	err  error
}

func (f *fakePublisher) Send(msg types.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

var (
	agent       = types.User{Email: "agent@x.io", Role: types.RoleAdmin, Token: "tok"}
	participant = types.User{Email: "me@x.io", Role: types.RoleUser, Token: "tok"}
)

func selected(e *Engine, ch types.Channel) {
	st := e.Dispatch(SelectChannel{Channel: ch})
	full := ch
	e.Dispatch(HistoryLoaded{Generation: st.Generation, Channel: full})
}

func TestHistoryPlusInboundAppendsInOrder(t *testing.T) {
	e := New(agent, &fakeAPI{}, &fakePublisher{}, nil)
	history := []types.Message{
		{ChannelID: "ch1", Message: "m1", MessageFrom: "me@x.io"},
		{ChannelID: "ch1", Message: "m2", MessageFrom: "me@x.io"},
	}
	st := e.Dispatch(SelectChannel{Channel: types.Channel{ID: "ch1", CurrentStatus: types.StatusInProgress}})
	e.Dispatch(HistoryLoaded{Generation: st.Generation, Channel: types.Channel{ID: "ch1", Messages: history}})

	const n = 5
	for i := 0; i < n; i++ {
		e.Dispatch(Inbound{Event: types.Message{ChannelID: "ch1", Message: fmt.Sprintf("live-%d", i), MessageFrom: "me@x.io"}})
	}

	got := e.State().Messages
	if len(got) != len(history)+n {
		t.Fatalf("sequence length = %d, want %d", len(got), len(history)+n)
	}
	for i := 0; i < n; i++ {
		if got[len(history)+i].Message != fmt.Sprintf("live-%d", i) {
			t.Errorf("position %d = %q, out of call order", len(history)+i, got[len(history)+i].Message)
		}
	}
}

func TestSelfEchoCollapsesToOneMessage(t *testing.T) {
	pub := &fakePublisher{}
	e := New(agent, &fakeAPI{}, pub, nil)
	selected(e, types.Channel{ID: "ch1", CurrentStatus: types.StatusInProgress})

	if err := e.Send(context.Background(), "hello there"); err != nil {
		t.Fatal(err)
	}
	// The push channel echoes the identical payload back.
	e.Dispatch(Inbound{Event: types.Message{ChannelID: "ch1", Message: "hello there", MessageFrom: agent.Email}})

	got := e.State().Messages
	if len(got) != 1 {
		t.Fatalf("visible messages = %d, want exactly 1", len(got))
	}
	if len(pub.sent) != 1 {
		t.Fatalf("published frames = %d, want 1", len(pub.sent))
	}
}

func TestBlankSendIsANoOp(t *testing.T) {
	apiClient := &fakeAPI{}
	pub := &fakePublisher{}
	e := New(participant, apiClient, pub, nil)
	selected(e, types.Channel{ID: "ch1", CurrentStatus: types.StatusInProgress})

	for _, text := range []string{"", "   ", "\n\t "} {
		if err := e.Send(context.Background(), text); !errors.Is(err, ErrEmptyMessage) {
			t.Errorf("Send(%q) = %v, want ErrEmptyMessage", text, err)
		}
	}
	if len(e.State().Messages) != 0 {
		t.Error("blank send mutated the message sequence")
	}
	if len(apiClient.statusCalls)+len(apiClient.channelCalls)+len(apiClient.messageCalls) != 0 {
		t.Error("blank send reached a collaborator")
	}
	if len(pub.sent) != 0 {
		t.Error("blank send was published")
	}
}

func TestSendWithoutSelection(t *testing.T) {
	e := New(agent, &fakeAPI{}, &fakePublisher{}, nil)
	if err := e.Send(context.Background(), "hello"); !errors.Is(err, ErrNoChannel) {
		t.Errorf("Send with no selection = %v, want ErrNoChannel", err)
	}
}

func TestAgentReplyClaimsActiveChannelOnce(t *testing.T) {
	apiClient := &fakeAPI{}
	e := New(agent, apiClient, &fakePublisher{}, nil)
	selected(e, types.Channel{ID: "ch1", CurrentStatus: types.StatusActive})

	if err := e.Send(context.Background(), "first reply"); err != nil {
		t.Fatal(err)
	}
	if err := e.Send(context.Background(), "second reply"); err != nil {
		t.Fatal(err)
	}

	if len(apiClient.statusCalls) != 1 {
		t.Fatalf("status calls = %d, want exactly 1", len(apiClient.statusCalls))
	}
	call := apiClient.statusCalls[0]
	if call.status != types.StatusInProgress || call.updatedBy != agent.Email {
		t.Errorf("status call = %+v", call)
	}
	if got := e.State().Selected.CurrentStatus; got != types.StatusInProgress {
		t.Errorf("channel status = %q, want IN_PROGRESS", got)
	}
}

func TestUserReplyReopensInactiveChannel(t *testing.T) {
	apiClient := &fakeAPI{}
	e := New(participant, apiClient, &fakePublisher{}, nil)
	selected(e, types.Channel{ID: "ch1", CurrentStatus: types.StatusInactive})

	if err := e.Send(context.Background(), "are you still there?"); err != nil {
		t.Fatal(err)
	}
	if len(apiClient.statusCalls) != 1 || apiClient.statusCalls[0].status != types.StatusActive {
		t.Fatalf("status calls = %+v, want one ACTIVE transition", apiClient.statusCalls)
	}
	if got := e.State().Selected.CurrentStatus; got != types.StatusActive {
		t.Errorf("channel status = %q, want ACTIVE", got)
	}
}

func TestStatusFailureKeepsOptimisticMessage(t *testing.T) {
	var notices []string
	apiClient := &fakeAPI{statusErr: errors.New("boom")}
	e := New(agent, apiClient, &fakePublisher{}, func(s string) { notices = append(notices, s) })
	selected(e, types.Channel{ID: "ch1", CurrentStatus: types.StatusActive})

	if err := e.Send(context.Background(), "reply"); err != nil {
		t.Fatal(err)
	}
	if len(e.State().Messages) != 1 {
		t.Error("optimistic append was rolled back on status failure")
	}
	if len(notices) == 0 {
		t.Error("status failure produced no notice")
	}
	// Transition was not confirmed, so the local status must not move.
	if got := e.State().Selected.CurrentStatus; got != types.StatusActive {
		t.Errorf("status = %q after failed update", got)
	}
}

func TestFirstMessageCreatesChannel(t *testing.T) {
	apiClient := &fakeAPI{created: types.Channel{ID: "ch-new", UserEmail: participant.Email, CurrentStatus: types.StatusActive}}
	pub := &fakePublisher{}
	e := New(participant, apiClient, pub, nil)
	e.Dispatch(StartCompose{})

	if err := e.Send(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}

	if len(apiClient.channelCalls) != 1 || apiClient.channelCalls[0] != participant.Email {
		t.Fatalf("createChannel calls = %+v", apiClient.channelCalls)
	}
	if len(apiClient.messageCalls) != 1 {
		t.Fatalf("createMessage calls = %d", len(apiClient.messageCalls))
	}
	persisted := apiClient.messageCalls[0]
	if persisted.ChannelID != "ch-new" || persisted.Message != "hello" {
		t.Errorf("persisted message = %+v", persisted)
	}

	st := e.State()
	if st.SelectedID() != "ch-new" {
		t.Errorf("selected channel = %q, want ch-new", st.SelectedID())
	}
	if len(st.Messages) != 1 || st.Messages[0].Message != "hello" || st.Messages[0].MessageFrom != participant.Email {
		t.Errorf("messages = %+v", st.Messages)
	}
	if st.Messages[0].ChannelID != "ch-new" {
		t.Errorf("optimistic entry not rewritten to the assigned id: %+v", st.Messages[0])
	}
	if len(pub.sent) != 1 || pub.sent[0].ChannelID != "ch-new" {
		t.Errorf("published = %+v", pub.sent)
	}
}

func TestStatusConfirmationAfterReselectIsDiscarded(t *testing.T) {
	apiClient := &fakeAPI{}
	e := New(agent, apiClient, &fakePublisher{}, nil)
	selected(e, types.Channel{ID: "chA", CurrentStatus: types.StatusActive})

	// The user moves to channel B while A's status update is in flight.
	apiClient.statusHook = func() {
		selected(e, types.Channel{ID: "chB", CurrentStatus: types.StatusInactive})
	}

	if err := e.Send(context.Background(), "claiming A"); err != nil {
		t.Fatal(err)
	}

	st := e.State()
	if st.SelectedID() != "chB" {
		t.Fatalf("selection = %q, want chB", st.SelectedID())
	}
	if got := st.Selected.CurrentStatus; got != types.StatusInactive {
		t.Errorf("channel B status = %q; channel A's confirmed transition was applied to B", got)
	}
}

func TestCreatedChannelNotAdoptedAfterComposeAbandoned(t *testing.T) {
	apiClient := &fakeAPI{created: types.Channel{ID: "ch-new", UserEmail: participant.Email, CurrentStatus: types.StatusActive}}
	e := New(participant, apiClient, &fakePublisher{}, nil)
	e.Dispatch(StartCompose{})

	// The user opens an existing channel while the create call is in
	// flight.
	apiClient.createHook = func() {
		selected(e, types.Channel{ID: "ch-old", CurrentStatus: types.StatusInProgress})
	}

	if err := e.Send(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}

	st := e.State()
	if st.SelectedID() != "ch-old" {
		t.Errorf("selection = %q; the stale created channel was installed", st.SelectedID())
	}
}

func TestStaleHistoryIsDiscarded(t *testing.T) {
	e := New(agent, &fakeAPI{}, &fakePublisher{}, nil)

	stA := e.Dispatch(SelectChannel{Channel: types.Channel{ID: "chA"}})
	genA := stA.Generation
	stB := e.Dispatch(SelectChannel{Channel: types.Channel{ID: "chB"}})

	// Channel A's fetch resolves late, after B was selected.
	e.Dispatch(HistoryLoaded{Generation: genA, Channel: types.Channel{ID: "chA", Messages: []types.Message{
		{ChannelID: "chA", Message: "m1", MessageFrom: "me@x.io"},
		{ChannelID: "chA", Message: "m2", MessageFrom: "me@x.io"},
	}}})

	st := e.State()
	if st.SelectedID() != "chB" {
		t.Fatalf("selection = %q", st.SelectedID())
	}
	if len(st.Messages) != 0 {
		t.Errorf("channel A's late history landed on B: %+v", st.Messages)
	}
	if st.Phase != Loading {
		t.Errorf("phase = %v, B's fetch is still outstanding", st.Phase)
	}

	e.Dispatch(HistoryLoaded{Generation: stB.Generation, Channel: types.Channel{ID: "chB", Messages: []types.Message{
		{ChannelID: "chB", Message: "b1", MessageFrom: "me@x.io"},
	}}})
	st = e.State()
	if st.Phase != Ready || len(st.Messages) != 1 || st.Messages[0].Message != "b1" {
		t.Errorf("B's own history not applied: %+v", st.Messages)
	}
}

func TestLoadingMergeAppend(t *testing.T) {
	e := New(agent, &fakeAPI{}, &fakePublisher{}, nil)
	st := e.Dispatch(SelectChannel{Channel: types.Channel{ID: "ch1"}})

	// A live event lands while the history fetch is still in flight.
	e.Dispatch(Inbound{Event: types.Message{ChannelID: "ch1", Message: "raced in", MessageFrom: "them@x.io"}})
	if got := e.State().Messages; len(got) != 1 {
		t.Fatalf("event during Loading not applied: %+v", got)
	}

	history := []types.Message{
		{ChannelID: "ch1", Message: "older", MessageFrom: "them@x.io"},
	}
	e.Dispatch(HistoryLoaded{Generation: st.Generation, Channel: types.Channel{ID: "ch1", Messages: history}})

	got := e.State().Messages
	if len(got) != 2 {
		t.Fatalf("merge result = %+v, want history then raced event", got)
	}
	if got[0].Message != "older" || got[1].Message != "raced in" {
		t.Errorf("merge order wrong: %+v", got)
	}
}

func TestLoadingMergeDropsEntriesAlreadyInSnapshot(t *testing.T) {
	e := New(agent, &fakeAPI{}, &fakePublisher{}, nil)
	st := e.Dispatch(SelectChannel{Channel: types.Channel{ID: "ch1"}})

	e.Dispatch(Inbound{Event: types.Message{ChannelID: "ch1", Message: "hi", MessageFrom: "them@x.io"}})

	// The fetch completed late enough to already include the event.
	history := []types.Message{
		{ChannelID: "ch1", Message: "hi", MessageFrom: "them@x.io"},
	}
	e.Dispatch(HistoryLoaded{Generation: st.Generation, Channel: types.Channel{ID: "ch1", Messages: history}})

	if got := e.State().Messages; len(got) != 1 {
		t.Errorf("buffered event duplicated against snapshot: %+v", got)
	}
}

func TestClearSelectionReturnsToIdle(t *testing.T) {
	e := New(agent, &fakeAPI{}, &fakePublisher{}, nil)
	selected(e, types.Channel{ID: "ch1", CurrentStatus: types.StatusInProgress})
	e.Dispatch(Inbound{Event: types.Message{ChannelID: "ch1", Message: "hi", MessageFrom: "them@x.io"}})

	st := e.Dispatch(ClearSelection{})
	if st.Selected != nil || st.Phase != Idle || len(st.Messages) != 0 {
		t.Errorf("state after clear = %+v", st)
	}

	// Events after the clear are discarded again.
	e.Dispatch(Inbound{Event: types.Message{ChannelID: "ch1", Message: "late", MessageFrom: "them@x.io"}})
	if len(e.State().Messages) != 0 {
		t.Error("event applied with no selection")
	}
}

func TestInboundDiscardRules(t *testing.T) {
	e := New(agent, &fakeAPI{}, &fakePublisher{}, nil)

	// Idle: nothing applies.
	e.Dispatch(Inbound{Event: types.Message{ChannelID: "ch1", Message: "hi", MessageFrom: "them@x.io"}})
	if len(e.State().Messages) != 0 {
		t.Error("event applied while idle")
	}

	selected(e, types.Channel{ID: "ch1", CurrentStatus: types.StatusInProgress})

	// Other channel: discarded, not buffered.
	e.Dispatch(Inbound{Event: types.Message{ChannelID: "ch2", Message: "hi", MessageFrom: "them@x.io"}})
	// Empty body: discarded.
	e.Dispatch(Inbound{Event: types.Message{ChannelID: "ch1", Message: "", MessageFrom: "them@x.io"}})
	if len(e.State().Messages) != 0 {
		t.Errorf("discard rules leaked: %+v", e.State().Messages)
	}
}

func TestPublishFailureKeepsMessageAndNotifies(t *testing.T) {
	var notices []string
	pub := &fakePublisher{err: errors.New("socket closed")}
	e := New(agent, &fakeAPI{}, pub, func(s string) { notices = append(notices, s) })
	selected(e, types.Channel{ID: "ch1", CurrentStatus: types.StatusInProgress})

	if err := e.Send(context.Background(), "hello"); err != nil {
		t.Fatal(err)
	}
	if len(e.State().Messages) != 1 {
		t.Error("publish failure rolled back the optimistic append")
	}
	if len(notices) == 0 {
		t.Error("publish failure produced no notice")
	}
}

func TestNextStatus(t *testing.T) {
	tests := []struct {
		current, role string
		want          string
		ok            bool
	}{
		{types.StatusActive, types.RoleAdmin, types.StatusInProgress, true},
		{types.StatusInactive, types.RoleUser, types.StatusActive, true},
		{types.StatusInProgress, types.RoleAdmin, "", false},
		{types.StatusInProgress, types.RoleUser, "", false},
		{types.StatusActive, types.RoleUser, "", false},
		{types.StatusInactive, types.RoleAdmin, "", false},
		{types.StatusComplete, types.RoleUser, "", false},
	}
	for _, tt := range tests {
		got, ok := NextStatus(tt.current, tt.role)
		if got != tt.want || ok != tt.ok {
			t.Errorf("NextStatus(%s, %s) = (%q, %v), want (%q, %v)", tt.current, tt.role, got, ok, tt.want, tt.ok)
		}
	}
}
