package websocket

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"imis/internal/microservices/http-api/models"
	"imis/internal/microservices/notify"
	"imis/internal/microservices/presence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouter_DuplicateDiscussionJoinListsPrincipalOnce(t *testing.T) {
	env := newTestEnv(t, Limits{})
	c := env.connect(t, u1)

	env.send(t, c, EventJoinDiscussionRoom, projectRoomRequest{ProjectID: p1})
	env.send(t, c, EventJoinDiscussionRoom, projectRoomRequest{ProjectID: p1})

	var last roomUsersPayload
	for _, e := range ofEvent(drain(t, c), EventRoomUsers) {
		p := decode[roomUsersPayload](t, e)
		if p.Scope == string(presence.ScopeDiscussion) {
			last = p
		}
	}
	require.Len(t, last.Users, 1)
	assert.Equal(t, u1, last.Users[0].ID)
	assert.Equal(t, "Ada", last.Users[0].DisplayName)
}

func TestRouter_JoinDiscussionAlsoJoinsPage(t *testing.T) {
	env := newTestEnv(t, Limits{})
	c := env.connect(t, u1)

	env.send(t, c, EventJoinDiscussionRoom, projectRoomRequest{ProjectID: p1})

	assert.True(t, env.rooms.Contains(presence.PageScope(p1), u1))
	assert.True(t, env.rooms.Contains(presence.DiscussionScope(p1), u1))
}

func TestRouter_NonMemberIsRefused(t *testing.T) {
	env := newTestEnv(t, Limits{})
	c := env.connect(t, u4)

	env.send(t, c, EventJoinProjectPage, projectRoomRequest{ProjectID: p1})

	errs := ofEvent(drain(t, c), EventError)
	require.Len(t, errs, 1)
	payload := decode[ErrorPayload](t, errs[0])
	assert.Equal(t, EventJoinProjectPage, payload.Event)
	assert.Equal(t, "You are not a member of this project.", payload.Message)
	assert.Empty(t, env.rooms.Projects())
}

func TestRouter_PrivateRoomRequiresParticipant(t *testing.T) {
	env := newTestEnv(t, Limits{})
	c := env.connect(t, u3)

	env.send(t, c, EventJoinPrivateRoom, privateRoomRequest{ProjectID: p1, RoomID: r1})

	errs := ofEvent(drain(t, c), EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, "You are not a participant of this conversation.", decode[ErrorPayload](t, errs[0]).Message)
	assert.False(t, env.rooms.Contains(presence.PrivateScope(p1, r1), u3))
}

func TestRouter_LeaveBroadcastsRemainingMembers(t *testing.T) {
	env := newTestEnv(t, Limits{})
	a := env.connect(t, u1)
	b := env.connect(t, u2)
	env.send(t, a, EventJoinProjectPage, projectRoomRequest{ProjectID: p1})
	env.send(t, b, EventJoinProjectPage, projectRoomRequest{ProjectID: p1})
	drain(t, a)

	env.send(t, b, EventLeaveProjectPage, projectRoomRequest{ProjectID: p1})

	updates := ofEvent(drain(t, a), EventRoomUsers)
	require.Len(t, updates, 1)
	users := decode[roomUsersPayload](t, updates[0]).Users
	require.Len(t, users, 1)
	assert.Equal(t, u1, users[0].ID)
}

func TestRouter_MalformedFrames(t *testing.T) {
	env := newTestEnv(t, Limits{})
	c := env.connect(t, u1)

	env.router.Handle(context.Background(), c, []byte("not json"))
	env.send(t, c, "teleport", map[string]string{})
	env.send(t, c, EventJoinProjectPage, map[string]string{})

	errs := ofEvent(drain(t, c), EventError)
	require.Len(t, errs, 3)
	assert.Equal(t, "Unknown event.", decode[ErrorPayload](t, errs[1]).Message)
	assert.Equal(t, EventJoinProjectPage, decode[ErrorPayload](t, errs[2]).Event)
}

func TestRouter_RateLimit(t *testing.T) {
	env := newTestEnv(t, Limits{RatePerSecond: 0.001, Burst: 1})
	c := env.connect(t, u1)

	env.send(t, c, EventJoinProjectPage, projectRoomRequest{ProjectID: p1})
	env.send(t, c, EventLeaveProjectPage, projectRoomRequest{ProjectID: p1})

	errs := ofEvent(drain(t, c), EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, "Too many events, slow down.", decode[ErrorPayload](t, errs[0]).Message)
	assert.True(t, env.rooms.Contains(presence.PageScope(p1), u1))
}

func TestRouter_HandlerPanicIsContained(t *testing.T) {
	env := newTestEnv(t, Limits{})
	env.router.Notifier = nil
	c := env.connect(t, u1)

	assert.NotPanics(t, func() {
		env.send(t, c, EventChangeStatus, changeStatusRequest{
			ProjectRoom: p1, Item: workItem{TaskID: t1}, Type: "tasks", Status: "Done",
		})
	})
	assert.Equal(t, StateActive, c.State())
}

func TestRouter_ChangeStatus(t *testing.T) {
	env := newTestEnv(t, Limits{})
	c := env.connect(t, u1)

	env.send(t, c, EventChangeStatus, changeStatusRequest{
		ProjectRoom: p1, Item: workItem{TaskID: t1, Title: "client supplied"}, Type: "tasks", Status: "Done",
	})

	assert.Empty(t, ofEvent(drain(t, c), EventError))
	assert.Equal(t, "Done", env.tasks.tasks[t1].Status)

	intents := env.notifier.all()
	require.Len(t, intents, 1)
	assert.Equal(t, notify.StatusChange{ItemType: notify.ItemTask, Title: "Pour footing", Status: "Done"}, intents[0].Action)
	assert.ElementsMatch(t, []string{u1, u2, u3}, intents[0].RecipientIDs())
	assert.Equal(t, u1, intents[0].ActorID)

	require.Len(t, env.audit.entries, 2)
	assert.Equal(t, models.LogTypeSystem, env.audit.entries[0].Type)
	assert.Equal(t, models.LogTypeActivity, env.audit.entries[1].Type)
	assert.Equal(t, "marked Task - Pour footing as Done", env.audit.entries[0].Message)
	assert.Equal(t, "client", env.audit.entries[0].Version)
}

func TestRouter_ChangeProjectStatus(t *testing.T) {
	env := newTestEnv(t, Limits{})
	c := env.connect(t, u2)

	env.send(t, c, EventChangeStatus, changeStatusRequest{
		ProjectRoom: p1, Item: workItem{ID: p1}, Type: "projects", Status: "In Progress",
	})

	assert.Equal(t, "In Progress", env.projects.projects[p1].Status)
	require.Len(t, env.audit.entries, 2)
	assert.Equal(t, "marked Project - Bridge Survey as In Progress", env.audit.entries[1].Message)
}

func TestRouter_ChangePriorityRejectsForeignTask(t *testing.T) {
	env := newTestEnv(t, Limits{})
	env.projects.members[p2] = []string{u1}
	c := env.connect(t, u1)

	env.send(t, c, EventChangePriority, changePriorityRequest{
		ProjectRoom: p2, Item: workItem{TaskID: t1}, Priority: "High",
	})

	errs := ofEvent(drain(t, c), EventError)
	require.Len(t, errs, 1)
	assert.Equal(t, "The requested item was not found.", decode[ErrorPayload](t, errs[0]).Message)
	assert.Equal(t, "", env.tasks.tasks[t1].Priority)
	assert.Empty(t, env.notifier.all())
}

func TestRouter_ChangePriority(t *testing.T) {
	env := newTestEnv(t, Limits{})
	c := env.connect(t, u1)

	env.send(t, c, EventChangePriority, changePriorityRequest{
		ProjectRoom: p1, Item: workItem{TaskID: t1}, Priority: "High",
	})

	assert.Equal(t, "High", env.tasks.tasks[t1].Priority)
	require.Len(t, env.notifier.all(), 1)
	require.Len(t, env.audit.entries, 2)
	assert.Equal(t, "marked Task - Pour footing with priority High", env.audit.entries[0].Message)
}

func TestRouter_AddComment(t *testing.T) {
	env := newTestEnv(t, Limits{})
	author := env.connect(t, u1)
	assignee := env.connect(t, u2)
	env.send(t, assignee, EventJoinProjectPage, projectRoomRequest{ProjectID: p1})
	drain(t, assignee)

	env.send(t, author, EventAddComment, addCommentRequest{
		ProjectID: p1, Item: workItem{TaskID: t1}, Comment: "Rebar is in",
	})

	got := drain(t, assignee)
	comments := ofEvent(got, EventReceiveComment)
	require.Len(t, comments, 1)
	rc := decode[receiveCommentPayload](t, comments[0])
	assert.Equal(t, t1, rc.TaskID)
	assert.Equal(t, "Rebar is in", rc.Comment.Details)
	assert.Equal(t, "Ada", rc.Comment.CreatedBy.DisplayName)

	toasts := ofEvent(got, notify.EventTaskNotif)
	require.Len(t, toasts, 1)
	toast := decode[notify.PushPayload](t, toasts[0])
	assert.Equal(t, "New Comment on Task - Pour footing", toast.Title)
	assert.Equal(t, "Ada : Rebar is in", toast.Message)
	assert.Equal(t, p1, toast.RoomID)

	assert.Empty(t, ofEvent(drain(t, author), notify.EventTaskNotif))

	intents := env.notifier.all()
	require.Len(t, intents, 1)
	assert.ElementsMatch(t, []string{u2, u3}, intents[0].RecipientIDs())
	assert.Equal(t, notify.KindComment, intents[0].Action.Kind())

	require.Len(t, env.audit.entries, 2)
	assert.Equal(t, "commented on Task - Pour footing with comment - Rebar is in", env.audit.entries[0].Message)
}

func TestRouter_AddCommentIncludesOfflineWatchersOutsideProject(t *testing.T) {
	env := newTestEnv(t, Limits{})
	env.tasks.tasks[t1].AssignedTo = []string{u2, u4}
	author := env.connect(t, u1)

	env.send(t, author, EventAddComment, addCommentRequest{
		ProjectID: p1, Item: workItem{TaskID: t1}, Comment: "ping",
	})

	intents := env.notifier.all()
	require.Len(t, intents, 1)
	assert.ElementsMatch(t, []string{u2, u3, u4}, intents[0].RecipientIDs())
}

func seedComment(env *testEnv, id, author string) {
	env.comments.comments[id] = &models.TaskComment{
		CommentID: id, ProjectID: p1, TaskID: t1, Details: "Looks good", CreatedBy: author,
	}
}

func TestRouter_LikeToggle(t *testing.T) {
	env := newTestEnv(t, Limits{})
	seedComment(env, "c-1", u1)
	c := env.connect(t, u1)
	likeC := likeCommentRequest{}
	likeC.Comment.CommentID = "c-1"

	env.send(t, c, EventLikeComment, likeC)
	env.send(t, c, EventLikeComment, likeC)

	liked := ofEvent(drain(t, c), EventCommentLiked)
	require.Len(t, liked, 2)
	first := decode[commentLikedPayload](t, liked[0])
	require.Len(t, first.LikedBy, 1)
	assert.Equal(t, u1, first.LikedBy[0].ID)
	assert.Empty(t, decode[commentLikedPayload](t, liked[1]).LikedBy)
	assert.Empty(t, env.comments.comments["c-1"].LikedBy)
}

func TestRouter_LikeNotifiesOnlineAuthor(t *testing.T) {
	env := newTestEnv(t, Limits{})
	seedComment(env, "c-1", u1)
	author := env.connect(t, u1)
	fan := env.connect(t, u2)
	req := likeCommentRequest{}
	req.Comment.CommentID = "c-1"

	env.send(t, fan, EventLikeComment, req)

	got := drain(t, author)
	assert.Len(t, ofEvent(got, EventCommentLiked), 1)
	notes := ofEvent(got, EventCommentNotification)
	require.Len(t, notes, 1)
	note := decode[notify.PushPayload](t, notes[0])
	assert.Equal(t, "Someone Just Liked Your Comment", note.Title)
	assert.Equal(t, "Grace Liked Your Comment - Looks good", note.Message)

	// unlike sends no notice
	env.send(t, fan, EventLikeComment, req)
	assert.Empty(t, ofEvent(drain(t, author), EventCommentNotification))
	assert.Empty(t, ofEvent(drain(t, fan), EventCommentNotification))
}

func TestRouter_ConcurrentLikesLoseNoUpdate(t *testing.T) {
	env := newTestEnv(t, Limits{})
	seedComment(env, "c-1", u3)

	ids := []string{u1, u2, u3}
	toggles := map[string]int{u1: 1, u2: 2, u3: 3}
	clients := make(map[string]*Client)
	for _, id := range ids {
		clients[id] = env.connect(t, id)
	}
	req := likeCommentRequest{}
	req.Comment.CommentID = "c-1"

	var wg sync.WaitGroup
	for id, n := range toggles {
		wg.Add(1)
		go func(c *Client, n int) {
			defer wg.Done()
			for i := 0; i < n; i++ {
				frame, _ := Encode(EventLikeComment, req)
				env.router.Handle(context.Background(), c, frame)
			}
		}(clients[id], n)
	}
	wg.Wait()

	var got []string
	for _, l := range env.comments.comments["c-1"].LikedBy {
		got = append(got, l.ID)
	}
	assert.ElementsMatch(t, []string{u1, u3}, got, fmt.Sprintf("liked by %v", got))
}

func TestRouter_DiscussionMessage(t *testing.T) {
	env := newTestEnv(t, Limits{})
	sender := env.connect(t, u1)
	inRoom := env.connect(t, u2)
	elsewhere := env.connect(t, u3)
	env.send(t, sender, EventJoinDiscussionRoom, projectRoomRequest{ProjectID: p1})
	env.send(t, inRoom, EventJoinDiscussionRoom, projectRoomRequest{ProjectID: p1})
	drain(t, sender)
	drain(t, inRoom)

	env.send(t, sender, EventSendDiscussionMsg, discussionMessageRequest{
		ProjectID: p1, WorkOrderNo: "WO-17", Message: "standup in 5",
	})

	require.Len(t, env.messages.saved, 1)
	assert.Equal(t, models.MessageKindDiscussion, env.messages.saved[0].Kind)
	assert.False(t, env.messages.saved[0].TimeSent.IsZero())

	got := drain(t, inRoom)
	msgs := ofEvent(got, EventReceiveDiscussionMessage)
	require.Len(t, msgs, 1)
	view := decode[messageView](t, msgs[0])
	assert.Equal(t, "Ada", view.Sender.DisplayName)
	assert.Equal(t, "standup in 5", view.Message)
	assert.Len(t, ofEvent(got, EventReceiveLatestMessage), 1)
	assert.Empty(t, ofEvent(got, notify.EventMsgNotif))

	senderGot := drain(t, sender)
	assert.Empty(t, ofEvent(senderGot, EventReceiveDiscussionMessage))

	alerts := ofEvent(drain(t, elsewhere), notify.EventMsgNotif)
	require.Len(t, alerts, 1)
	alert := decode[notify.PushPayload](t, alerts[0])
	assert.Equal(t, "Message from WO-17 Discussion Room.", alert.Title)
	assert.Equal(t, "Ada: standup in 5", alert.Message)
}

func TestRouter_PrivateMessageStaysInConversation(t *testing.T) {
	env := newTestEnv(t, Limits{})
	sender := env.connect(t, u1)
	recipient := env.connect(t, u2)
	bystander := env.connect(t, u3)
	env.send(t, bystander, EventJoinProjectPage, projectRoomRequest{ProjectID: p1})
	drain(t, bystander)

	req := privateMessageRequest{ProjectID: p1, RoomID: r1, Message: "psst"}
	req.Recipient.ID = u2
	env.send(t, sender, EventSendPrivateMsg, req)

	require.Len(t, env.messages.saved, 1)
	saved := env.messages.saved[0]
	require.NotNil(t, saved.RecipientID)
	assert.Equal(t, u2, *saved.RecipientID)

	got := drain(t, recipient)
	assert.Len(t, ofEvent(got, EventReceiveLatestMessage), 1)
	alerts := ofEvent(got, notify.EventMsgNotif)
	require.Len(t, alerts, 1)
	assert.Equal(t, "New Private Message", decode[notify.PushPayload](t, alerts[0]).Title)

	assert.Empty(t, drain(t, bystander))
}

func TestRouter_PrivateMessageToNonParticipantIsRefused(t *testing.T) {
	env := newTestEnv(t, Limits{})
	sender := env.connect(t, u1)

	req := privateMessageRequest{ProjectID: p1, RoomID: r1, Message: "psst"}
	req.Recipient.ID = u3
	env.send(t, sender, EventSendPrivateMsg, req)

	assert.Len(t, ofEvent(drain(t, sender), EventError), 1)
	assert.Empty(t, env.messages.saved)
}

func TestRouter_JoinOnEvictedConnectionIsDropped(t *testing.T) {
	env := newTestEnv(t, Limits{})
	old := env.connect(t, u1)
	fresh := env.connect(t, u1)
	page := presence.PageScope(p1)
	drain(t, old)

	env.send(t, old, EventJoinProjectPage, projectRoomRequest{ProjectID: p1})
	env.send(t, fresh, EventJoinProjectPage, projectRoomRequest{ProjectID: p1})

	members := env.rooms.Members(page)
	require.Len(t, members, 1)
	assert.Equal(t, fresh.ID(), members[0].ConnID)
	assert.Empty(t, drain(t, old))

	// the fresh connection is reachable by page broadcasts
	drain(t, fresh)
	env.hub.Publish(page, EventRoomUsers, roomUsers(env.rooms, page))
	assert.Len(t, drain(t, fresh), 1)

	env.gateway.Disconnect(fresh, "closed")
	assert.Zero(t, env.rooms.RoomCount())
}

func TestRouter_JoinRacingDisconnectLeavesNoMember(t *testing.T) {
	env := newTestEnv(t, Limits{})
	c := env.connect(t, u1)
	// the connection is torn down while its membership lookup is in flight
	env.projects.onIsMember = func(string) { env.gateway.Disconnect(c, "closed") }

	env.send(t, c, EventJoinDiscussionRoom, projectRoomRequest{ProjectID: p1})

	assert.False(t, env.rooms.Contains(presence.PageScope(p1), u1))
	assert.False(t, env.rooms.Contains(presence.DiscussionScope(p1), u1))
	assert.Zero(t, env.rooms.RoomCount())
}

func TestRouter_EventsAfterDisconnectAreIgnored(t *testing.T) {
	env := newTestEnv(t, Limits{})
	c := env.connect(t, u1)
	env.gateway.Disconnect(c, "closed")

	env.send(t, c, EventAddComment, addCommentRequest{ProjectID: p1, Item: workItem{ID: t1}, Comment: "late"})

	assert.Empty(t, env.comments.comments)
	assert.Empty(t, env.notifier.all())
}
