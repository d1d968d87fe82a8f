package chat

import (
	"context"
	"testing"

	"campus-chat-be/internal/models"
	"campus-chat-be/internal/ws"
	"campus-chat-be/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendGroupFanOut(t *testing.T) {
	f := newFixture(t)
	u1 := f.user(t, "one")
	u2 := f.user(t, "two")
	u3 := f.user(t, "three")
	g := f.group(t, "ece-3a", u1.ID, u2.ID, u3.ID)

	msg, err := f.svc.SendGroup(context.Background(), u1.ID, SendGroupInput{
		GroupID: g.ID,
		Content: "hello",
	})
	require.NoError(t, err)
	f.waitPush()

	require.NotNil(t, msg.Sender)
	assert.Equal(t, "one", msg.Sender.Name)

	// one broadcast to the group room
	evs := f.hub.ofType(ws.EvtChatMessage)
	require.Len(t, evs, 1)
	assert.Equal(t, ws.GroupRoom(g.ID), evs[0].Room)

	// every member gets a conversation update
	for _, uid := range []uint{u1.ID, u2.ID, u3.ID} {
		assert.Len(t, f.hub.toUser(uid, ws.EvtConversationUpdate), 1)
	}

	// push excludes the sender
	require.Equal(t, 1, f.push.callCount())
	assert.ElementsMatch(t, []uint{u2.ID, u3.ID}, f.push.calls[0])
}

func TestSendGroupRejectsNonMember(t *testing.T) {
	f := newFixture(t)
	u1 := f.user(t, "member")
	outsider := f.user(t, "outsider")
	g := f.group(t, "ece-3a", u1.ID)

	_, err := f.svc.SendGroup(context.Background(), outsider.ID, SendGroupInput{
		GroupID: g.ID,
		Content: "let me in",
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodePermissionDenied, errors.CodeOf(err))

	var n int64
	f.db.Model(&models.GroupMessage{}).Count(&n)
	assert.Zero(t, n)
	f.waitPush()
	assert.Zero(t, f.push.callCount())
}

func TestGroupHistoryMembersOnly(t *testing.T) {
	f := newFixture(t)
	u1 := f.user(t, "member")
	outsider := f.user(t, "outsider")
	g := f.group(t, "ece-3a", u1.ID)

	_, err := f.svc.GroupHistory(context.Background(), outsider.ID, g.ID, 50, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodePermissionDenied, errors.CodeOf(err))
}

func TestGroupHistorySkipsDeleted(t *testing.T) {
	f := newFixture(t)
	u1 := f.user(t, "one")
	u2 := f.user(t, "two")
	g := f.group(t, "ece-3a", u1.ID, u2.ID)

	keep, err := f.svc.SendGroup(context.Background(), u1.ID, SendGroupInput{GroupID: g.ID, Content: "keep"})
	require.NoError(t, err)
	gone, err := f.svc.SendGroup(context.Background(), u1.ID, SendGroupInput{GroupID: g.ID, Content: "gone"})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteGroup(context.Background(), u1.ID, g.ID, gone.ID))

	page, err := f.svc.GroupHistory(context.Background(), u2.ID, g.ID, 50, nil)
	require.NoError(t, err)
	require.Len(t, page.Messages, 1)
	assert.Equal(t, keep.ID, page.Messages[0].ID)
}

func TestDeleteGroupIsSoftAndScoped(t *testing.T) {
	f := newFixture(t)
	u1 := f.user(t, "author")
	u2 := f.user(t, "other")
	g := f.group(t, "ece-3a", u1.ID, u2.ID)

	msg, err := f.svc.SendGroup(context.Background(), u1.ID, SendGroupInput{GroupID: g.ID, Content: "hello"})
	require.NoError(t, err)

	// a non-author delete is not-found and flips nothing
	err = f.svc.DeleteGroup(context.Background(), u2.ID, g.ID, msg.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.CodeOf(err))

	var stored models.GroupMessage
	require.NoError(t, f.db.First(&stored, msg.ID).Error)
	assert.False(t, stored.IsDeleted)

	require.NoError(t, f.svc.DeleteGroup(context.Background(), u1.ID, g.ID, msg.ID))

	require.NoError(t, f.db.First(&stored, msg.ID).Error)
	assert.True(t, stored.IsDeleted, "group delete keeps the row")

	evs := f.hub.ofType(ws.EvtChatMessageDelete)
	require.Len(t, evs, 1)
	assert.Equal(t, ws.GroupRoom(g.ID), evs[0].Room)
}

func TestEditGroup(t *testing.T) {
	f := newFixture(t)
	u1 := f.user(t, "author")
	u2 := f.user(t, "other")
	g := f.group(t, "ece-3a", u1.ID, u2.ID)

	msg, err := f.svc.SendGroup(context.Background(), u1.ID, SendGroupInput{GroupID: g.ID, Content: "typo"})
	require.NoError(t, err)

	_, err = f.svc.EditGroup(context.Background(), u2.ID, g.ID, msg.ID, "not yours")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.CodeOf(err))

	edited, err := f.svc.EditGroup(context.Background(), u1.ID, g.ID, msg.ID, "fixed")
	require.NoError(t, err)
	assert.Equal(t, "fixed", edited.Content)
	require.NotNil(t, edited.EditedAt)

	evs := f.hub.ofType(ws.EvtChatMessageEdit)
	require.Len(t, evs, 1)
	assert.Equal(t, ws.GroupRoom(g.ID), evs[0].Room)
}

func TestGroupUnreadWatermark(t *testing.T) {
	f := newFixture(t)
	u1 := f.user(t, "one")
	u2 := f.user(t, "two")
	g := f.group(t, "ece-3a", u1.ID, u2.ID)

	for i := 0; i < 3; i++ {
		_, err := f.svc.SendGroup(context.Background(), u1.ID, SendGroupInput{GroupID: g.ID, Content: "post"})
		require.NoError(t, err)
	}

	// derived purely from the watermark, excluding own messages
	sum, err := f.svc.Summary(context.Background(), u2.ID, models.ConversationGroup, g.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, sum.UnreadCount)

	sum, err = f.svc.Summary(context.Background(), u1.ID, models.ConversationGroup, g.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, sum.UnreadCount)

	require.NoError(t, f.svc.MarkGroupRead(context.Background(), u2.ID, g.ID))

	sum, err = f.svc.Summary(context.Background(), u2.ID, models.ConversationGroup, g.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, sum.UnreadCount)

	// no per-message read flags exist for groups: only the state row moved
	var states int64
	f.db.Model(&models.ConversationState{}).
		Where("user_id = ? AND conversation_type = ?", u2.ID, models.ConversationGroup).
		Count(&states)
	assert.EqualValues(t, 1, states)
}
