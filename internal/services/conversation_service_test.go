package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"techlight-support/internal/domain"
	"techlight-support/internal/events"
	support_errors "techlight-support/pkg/errors"
)

func newConversationFixture(t *testing.T) (*ConversationService, *MessageService, *memConversations, *recorder) {
	t.Helper()
	convRepo := newMemConversations()
	msgRepo := newMemMessages()
	rec := &recorder{}
	locks := NewConversationLocks()
	l := testLogger()
	cs := NewConversationService(convRepo, msgRepo, rec, nil, locks, l)
	ms := NewMessageService(convRepo, msgRepo, rec, locks, l)
	return cs, ms, convRepo, rec
}

func customer() domain.Actor {
	return domain.Actor{ID: uuid.New(), Name: "Dana Customer", Role: domain.RoleUser}
}

func moderator(name string) domain.Actor {
	return domain.Actor{ID: uuid.New(), Name: name, Role: domain.RoleModerator}
}

func admin() domain.Actor {
	return domain.Actor{ID: uuid.New(), Name: "Ada Admin", Role: domain.RoleAdmin}
}

func mustCreate(t *testing.T, cs *ConversationService, user domain.Actor) domain.Conversation {
	t.Helper()
	conv, err := cs.Create(context.Background(), CreateConversationInput{
		UserID:    user.ID,
		UserName:  user.Name,
		UserEmail: "dana@example.com",
		Subject:   "Order never arrived",
		Category:  "shipping",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return conv
}

func TestCreateValidatesInput(t *testing.T) {
	cs, _, _, _ := newConversationFixture(t)
	_, err := cs.Create(context.Background(), CreateConversationInput{
		UserID:   uuid.New(),
		UserName: "Dana",
		// no email, no subject
	})
	if !errors.Is(err, support_errors.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestCreateOpensUnassignedAndAlertsTeam(t *testing.T) {
	cs, _, _, rec := newConversationFixture(t)
	conv := mustCreate(t, cs, customer())

	if conv.Status != domain.StatusOpen {
		t.Errorf("status = %s, want open", conv.Status)
	}
	if conv.AssignedTo != nil {
		t.Error("new conversation must be unassigned")
	}
	if rec.count(events.EventNewConversation, events.SupportTeamRoom) != 1 {
		t.Error("expected new_support_conversation in the support-team room")
	}
}

func TestClaimMutualExclusion(t *testing.T) {
	cs, _, _, _ := newConversationFixture(t)
	conv := mustCreate(t, cs, customer())

	const contenders = 16
	mods := make([]domain.Actor, contenders)
	for i := range mods {
		mods[i] = moderator("Mod")
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := range mods {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = cs.Claim(context.Background(), mods[i], conv.ID)
		}(i)
	}
	wg.Wait()

	var wins, losses int
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, support_errors.ErrAlreadyAssigned):
			losses++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("wins = %d, want exactly 1", wins)
	}
	if losses != contenders-1 {
		t.Fatalf("losses = %d, want %d", losses, contenders-1)
	}
}

func TestClaimIsIdempotentForHolder(t *testing.T) {
	cs, _, _, _ := newConversationFixture(t)
	conv := mustCreate(t, cs, customer())
	mod := moderator("Riley")

	if _, err := cs.Claim(context.Background(), mod, conv.ID); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	got, err := cs.Claim(context.Background(), mod, conv.ID)
	if err != nil {
		t.Fatalf("re-claim by holder: %v", err)
	}
	if !got.IsAssignedTo(mod.ID) {
		t.Error("holder should still be assigned")
	}
}

func TestClaimForbiddenForCustomers(t *testing.T) {
	cs, _, _, _ := newConversationFixture(t)
	user := customer()
	conv := mustCreate(t, cs, user)

	if _, err := cs.Claim(context.Background(), user, conv.ID); !errors.Is(err, support_errors.ErrForbidden) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}
}

func TestReleaseOnlyAssigneeOrAdmin(t *testing.T) {
	cs, _, _, rec := newConversationFixture(t)
	conv := mustCreate(t, cs, customer())
	modA := moderator("A")
	modB := moderator("B")

	if _, err := cs.Claim(context.Background(), modA, conv.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := cs.Release(context.Background(), modB, conv.ID); !errors.Is(err, support_errors.ErrForbidden) {
		t.Fatalf("non-assignee release: want ErrForbidden, got %v", err)
	}
	got, err := cs.Release(context.Background(), modA, conv.ID)
	if err != nil {
		t.Fatalf("assignee release: %v", err)
	}
	if got.AssignedTo != nil {
		t.Error("released conversation must be unassigned")
	}
	if rec.count(events.EventReleased, events.SupportTeamRoom) != 1 {
		t.Error("release should notify the team room")
	}

	// Admin may force-release somebody else's claim.
	if _, err := cs.Claim(context.Background(), modB, conv.ID); err != nil {
		t.Fatalf("re-claim: %v", err)
	}
	if _, err := cs.Release(context.Background(), admin(), conv.ID); err != nil {
		t.Fatalf("admin release: %v", err)
	}
}

func TestReleaseClosedConversation(t *testing.T) {
	cs, _, _, _ := newConversationFixture(t)
	conv := mustCreate(t, cs, customer())
	mod := moderator("Riley")
	ctx := context.Background()

	if _, err := cs.Claim(ctx, mod, conv.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := cs.SetStatus(ctx, admin(), conv.ID, domain.StatusClosed); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Closing freezes the assignment record; even the assignee cannot
	// return the thread to the pool.
	if _, err := cs.Release(ctx, mod, conv.ID); !errors.Is(err, support_errors.ErrConversationClosed) {
		t.Fatalf("release after close: want ErrConversationClosed, got %v", err)
	}
}

func TestSetStatusLifecycle(t *testing.T) {
	cs, _, _, _ := newConversationFixture(t)
	conv := mustCreate(t, cs, customer())
	mod := moderator("Riley")
	ctx := context.Background()

	if _, err := cs.Claim(ctx, mod, conv.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	// open -> resolved skips in-progress and must fail.
	if _, err := cs.SetStatus(ctx, mod, conv.ID, domain.StatusResolved); !errors.Is(err, support_errors.ErrInvalidTransition) {
		t.Fatalf("open->resolved: want ErrInvalidTransition, got %v", err)
	}

	for _, next := range []domain.Status{domain.StatusInProgress, domain.StatusResolved, domain.StatusInProgress, domain.StatusOpen} {
		if _, err := cs.SetStatus(ctx, mod, conv.ID, next); err != nil {
			t.Fatalf("transition to %s: %v", next, err)
		}
	}
}

func TestCloseIsAdminOnly(t *testing.T) {
	cs, _, _, _ := newConversationFixture(t)
	conv := mustCreate(t, cs, customer())
	mod := moderator("Riley")
	ctx := context.Background()

	if _, err := cs.SetStatus(ctx, mod, conv.ID, domain.StatusClosed); !errors.Is(err, support_errors.ErrForbidden) {
		t.Fatalf("moderator close: want ErrForbidden, got %v", err)
	}
	if _, err := cs.SetStatus(ctx, admin(), conv.ID, domain.StatusClosed); err != nil {
		t.Fatalf("admin close: %v", err)
	}

	// The role gate wins over the state check: a moderator asking to
	// close an already-closed conversation still sees Forbidden.
	if _, err := cs.SetStatus(ctx, mod, conv.ID, domain.StatusClosed); !errors.Is(err, support_errors.ErrForbidden) {
		t.Fatalf("moderator close on closed: want ErrForbidden, got %v", err)
	}
}

func TestClosedIsTerminal(t *testing.T) {
	cs, ms, _, _ := newConversationFixture(t)
	user := customer()
	conv := mustCreate(t, cs, user)
	ctx := context.Background()
	adm := admin()

	if _, err := cs.SetStatus(ctx, adm, conv.ID, domain.StatusClosed); err != nil {
		t.Fatalf("close: %v", err)
	}

	for _, next := range []domain.Status{domain.StatusOpen, domain.StatusInProgress, domain.StatusResolved} {
		if _, err := cs.SetStatus(ctx, adm, conv.ID, next); !errors.Is(err, support_errors.ErrInvalidTransition) {
			t.Fatalf("reopen to %s: want ErrInvalidTransition, got %v", next, err)
		}
	}
	if _, err := ms.Append(ctx, user, conv.ID, "hello?"); !errors.Is(err, support_errors.ErrConversationClosed) {
		t.Fatalf("append after close: want ErrConversationClosed, got %v", err)
	}
	if _, err := cs.Claim(ctx, moderator("Late"), conv.ID); !errors.Is(err, support_errors.ErrConversationClosed) {
		t.Fatalf("claim after close: want ErrConversationClosed, got %v", err)
	}
}

func TestStatusChangeBroadcastsToBothRooms(t *testing.T) {
	cs, _, _, rec := newConversationFixture(t)
	conv := mustCreate(t, cs, customer())
	mod := moderator("Riley")
	ctx := context.Background()

	if _, err := cs.SetStatus(ctx, mod, conv.ID, domain.StatusInProgress); err != nil {
		t.Fatalf("set status: %v", err)
	}
	if rec.count(events.EventStatusChanged, events.ConversationRoom(conv.ID)) != 1 {
		t.Error("status change missing from the conversation room")
	}
	if rec.count(events.EventStatusChanged, events.SupportTeamRoom) != 1 {
		t.Error("status change missing from the support-team room")
	}
}

func TestCloseArchivesTranscript(t *testing.T) {
	convRepo := newMemConversations()
	msgRepo := newMemMessages()
	rec := &recorder{}
	locks := NewConversationLocks()
	l := testLogger()
	arch := newBlockingArchiver()
	cs := NewConversationService(convRepo, msgRepo, rec, arch, locks, l)
	ms := NewMessageService(convRepo, msgRepo, rec, locks, l)

	user := customer()
	conv := mustCreate(t, cs, user)
	ctx := context.Background()

	if _, err := ms.Append(ctx, user, conv.ID, "my order is missing"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := cs.SetStatus(ctx, admin(), conv.ID, domain.StatusClosed); err != nil {
		t.Fatalf("close: %v", err)
	}

	select {
	case <-arch.done:
	case <-time.After(2 * time.Second):
		t.Fatal("transcript was never archived")
	}

	arch.mu.Lock()
	defer arch.mu.Unlock()
	if arch.conv.ID != conv.ID {
		t.Errorf("archived conversation %s, want %s", arch.conv.ID, conv.ID)
	}
	if len(arch.msgs) != 1 {
		t.Errorf("archived %d messages, want 1", len(arch.msgs))
	}
}

func TestListScopesCustomersToOwnThreads(t *testing.T) {
	cs, _, _, _ := newConversationFixture(t)
	userA := customer()
	userB := customer()
	mustCreate(t, cs, userA)
	mustCreate(t, cs, userB)
	ctx := context.Background()

	mine, err := cs.List(ctx, userA, ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mine) != 1 || mine[0].UserID != userA.ID {
		t.Fatalf("customer list leaked other threads: %+v", mine)
	}

	all, err := cs.List(ctx, moderator("Riley"), ListFilter{})
	if err != nil {
		t.Fatalf("staff list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("staff list = %d conversations, want 2", len(all))
	}
}

func TestGetAppliesVisibility(t *testing.T) {
	cs, _, _, _ := newConversationFixture(t)
	conv := mustCreate(t, cs, customer())
	modA := moderator("A")
	modB := moderator("B")
	ctx := context.Background()

	if _, err := cs.Claim(ctx, modA, conv.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := cs.Get(ctx, modB, conv.ID); !errors.Is(err, support_errors.ErrForbidden) {
		t.Fatalf("outsider moderator get: want ErrForbidden, got %v", err)
	}
	if _, err := cs.Get(ctx, admin(), conv.ID); err != nil {
		t.Fatalf("admin get: %v", err)
	}
}

// TestSupportSessionEndToEnd walks a full session: a customer opens a
// thread, one of two racing moderators wins it, the loser is locked
// out, messages flow, and an admin resolves and closes it.
func TestSupportSessionEndToEnd(t *testing.T) {
	cs, ms, _, rec := newConversationFixture(t)
	ctx := context.Background()
	user := customer()
	modA := moderator("A")
	modB := moderator("B")
	adm := admin()

	conv := mustCreate(t, cs, user)

	if _, err := ms.Append(ctx, user, conv.ID, "package says delivered, nothing arrived"); err != nil {
		t.Fatalf("customer message: %v", err)
	}

	if _, err := cs.Claim(ctx, modA, conv.ID); err != nil {
		t.Fatalf("modA claim: %v", err)
	}
	if _, err := cs.Claim(ctx, modB, conv.ID); !errors.Is(err, support_errors.ErrAlreadyAssigned) {
		t.Fatalf("modB claim: want ErrAlreadyAssigned, got %v", err)
	}
	if _, err := ms.List(ctx, modB, conv.ID); !errors.Is(err, support_errors.ErrForbidden) {
		t.Fatalf("modB read: want ErrForbidden, got %v", err)
	}

	if _, err := cs.SetStatus(ctx, modA, conv.ID, domain.StatusInProgress); err != nil {
		t.Fatalf("in-progress: %v", err)
	}
	if _, err := ms.Append(ctx, modA, conv.ID, "checking with the carrier now"); err != nil {
		t.Fatalf("modA message: %v", err)
	}
	if _, err := cs.SetStatus(ctx, modA, conv.ID, domain.StatusResolved); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if _, err := cs.SetStatus(ctx, adm, conv.ID, domain.StatusClosed); err != nil {
		t.Fatalf("close: %v", err)
	}

	log, err := ms.List(ctx, adm, conv.ID)
	if err != nil {
		t.Fatalf("final read: %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("log length = %d, want 2", len(log))
	}
	for i, msg := range log {
		if msg.Seq != int64(i+1) {
			t.Errorf("message %d seq = %d", i, msg.Seq)
		}
	}

	room := events.ConversationRoom(conv.ID)
	if rec.count(events.EventNewMessage, room) != 2 {
		t.Error("expected two new_support_message broadcasts")
	}
	if rec.count(events.EventNewUserMessage, room) != 1 {
		t.Error("expected one new_user_message broadcast")
	}
}
