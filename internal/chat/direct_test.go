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

func TestSendDirectRejectsEmptyMessage(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	_, err := f.svc.SendDirect(context.Background(), alice.ID, SendDirectInput{
		ReceiverID: bob.ID,
		Content:    "   ",
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err))

	// validation failures leave zero side effects
	var n int64
	f.db.Model(&models.DirectMessage{}).Count(&n)
	assert.Zero(t, n)
	assert.Empty(t, f.hub.events)
	f.waitPush()
	assert.Zero(t, f.push.callCount())
}

func TestSendDirectAttachmentsOnlyIsAllowed(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	msg, err := f.svc.SendDirect(context.Background(), alice.ID, SendDirectInput{
		ReceiverID:  bob.ID,
		Attachments: []models.Attachment{{Name: "notes.pdf", URL: "/files/notes.pdf", MimeType: "application/pdf", Size: 1024}},
	})
	require.NoError(t, err)
	assert.Empty(t, msg.Content)
	assert.NotEmpty(t, msg.Attachments)
}

func TestSendDirectFanOut(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	msg, err := f.svc.SendDirect(context.Background(), alice.ID, SendDirectInput{
		ReceiverID: bob.ID,
		Content:    "hi",
	})
	require.NoError(t, err)
	f.waitPush()

	// persisted with receipt defaults
	assert.False(t, msg.IsRead)
	assert.Nil(t, msg.DeliveredAt)
	require.NotNil(t, msg.Sender)
	assert.Equal(t, "alice", msg.Sender.Name)

	// realtime event reaches both private rooms
	evs := f.hub.ofType(ws.EvtPrivateMessage)
	require.Len(t, evs, 1)
	assert.ElementsMatch(t, []uint{alice.ID, bob.ID}, evs[0].Users)

	// one conversation update each
	assert.Len(t, f.hub.toUser(alice.ID, ws.EvtConversationUpdate), 1)
	assert.Len(t, f.hub.toUser(bob.ID, ws.EvtConversationUpdate), 1)

	// push goes to the receiver only
	require.Equal(t, 1, f.push.callCount())
	assert.Equal(t, []uint{bob.ID}, f.push.calls[0])
}

func TestSendDirectUnknownReceiver(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")

	_, err := f.svc.SendDirect(context.Background(), alice.ID, SendDirectInput{
		ReceiverID: 9999,
		Content:    "hello?",
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.CodeOf(err))
}

func TestSendDirectSurvivesPushFailure(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")
	f.push.panic = true

	msg, err := f.svc.SendDirect(context.Background(), alice.ID, SendDirectInput{
		ReceiverID: bob.ID,
		Content:    "still arrives",
	})
	f.waitPush()

	require.NoError(t, err)
	require.NotNil(t, msg)

	// the message committed and the realtime emission happened anyway
	var stored models.DirectMessage
	require.NoError(t, f.db.First(&stored, msg.ID).Error)
	assert.Len(t, f.hub.ofType(ws.EvtPrivateMessage), 1)
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	_, err := f.svc.SendDirect(context.Background(), alice.ID, SendDirectInput{
		ReceiverID: bob.ID,
		Content:    "hi",
	})
	require.NoError(t, err)

	list, err := f.svc.Conversations(context.Background(), bob.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, alice.ID, list[0].ID)
	assert.Equal(t, "alice", list[0].Name)
	assert.EqualValues(t, 1, list[0].UnreadCount)

	// the sender's own view has nothing unread
	senderList, err := f.svc.Conversations(context.Background(), alice.ID)
	require.NoError(t, err)
	require.Len(t, senderList, 1)
	assert.EqualValues(t, 0, senderList[0].UnreadCount)

	require.NoError(t, f.svc.MarkConversationRead(context.Background(), bob.ID, alice.ID))

	list, err = f.svc.Conversations(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, list[0].UnreadCount)

	// messages flipped and acked per id
	var msg models.DirectMessage
	require.NoError(t, f.db.Where("sender_id = ?", alice.ID).First(&msg).Error)
	assert.True(t, msg.IsRead)
	assert.Len(t, f.hub.ofType(ws.EvtMessageRead), 1)
}

func TestDirectHistoryPagination(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	for i := 0; i < 51; i++ {
		_, err := f.svc.SendDirect(context.Background(), alice.ID, SendDirectInput{
			ReceiverID: bob.ID,
			Content:    "msg",
		})
		require.NoError(t, err)
	}

	page, err := f.svc.DirectHistory(context.Background(), bob.ID, alice.ID, 50, nil)
	require.NoError(t, err)
	require.Len(t, page.Messages, 50)
	assert.True(t, page.HasMore)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, page.Messages[0].CreatedAt, *page.NextCursor)

	// page is chronological
	for i := 1; i < len(page.Messages); i++ {
		assert.False(t, page.Messages[i].CreatedAt.Before(page.Messages[i-1].CreatedAt))
	}

	// next page: no overlap, union covers everything
	rest, err := f.svc.DirectHistory(context.Background(), bob.ID, alice.ID, 50, page.NextCursor)
	require.NoError(t, err)
	require.Len(t, rest.Messages, 1)
	assert.False(t, rest.HasMore)
	assert.Nil(t, rest.NextCursor)

	seen := map[uint]bool{}
	for _, m := range append(rest.Messages, page.Messages...) {
		assert.False(t, seen[m.ID], "message %d repeated across pages", m.ID)
		seen[m.ID] = true
	}
	assert.Len(t, seen, 51)
}

func TestEditDirectResetsReceiptState(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	msg, err := f.svc.SendDirect(context.Background(), alice.ID, SendDirectInput{
		ReceiverID: bob.ID,
		Content:    "first",
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.MarkDelivered(context.Background(), bob.ID, msg.ID))
	require.NoError(t, f.svc.MarkMessageRead(context.Background(), bob.ID, msg.ID))

	var stored models.DirectMessage
	require.NoError(t, f.db.First(&stored, msg.ID).Error)
	require.True(t, stored.IsRead)
	require.NotNil(t, stored.DeliveredAt)

	edited, err := f.svc.EditDirect(context.Background(), alice.ID, msg.ID, "second")
	require.NoError(t, err)

	// an edited message is reintroduced as unread and undelivered
	assert.Equal(t, "second", edited.Content)
	assert.False(t, edited.IsRead)
	assert.Nil(t, edited.DeliveredAt)
	require.NotNil(t, edited.EditedAt)

	assert.Len(t, f.hub.ofType(ws.EvtPrivateMessageEdit), 1)
}

func TestEditDirectOwnershipScoped(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	msg, err := f.svc.SendDirect(context.Background(), alice.ID, SendDirectInput{
		ReceiverID: bob.ID,
		Content:    "mine",
	})
	require.NoError(t, err)

	_, err = f.svc.EditDirect(context.Background(), bob.ID, msg.ID, "hijacked")
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.CodeOf(err))

	var stored models.DirectMessage
	require.NoError(t, f.db.First(&stored, msg.ID).Error)
	assert.Equal(t, "mine", stored.Content)
}

func TestDeleteDirect(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice")
	bob := f.user(t, "bob")

	msg, err := f.svc.SendDirect(context.Background(), alice.ID, SendDirectInput{
		ReceiverID: bob.ID,
		Content:    "oops",
	})
	require.NoError(t, err)

	// only the author may delete
	err = f.svc.DeleteDirect(context.Background(), bob.ID, msg.ID)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotFound, errors.CodeOf(err))

	require.NoError(t, f.svc.DeleteDirect(context.Background(), alice.ID, msg.ID))

	var n int64
	f.db.Model(&models.DirectMessage{}).Where("id = ?", msg.ID).Count(&n)
	assert.Zero(t, n, "direct delete is a hard delete")

	evs := f.hub.ofType(ws.EvtPrivateMessageDelete)
	require.Len(t, evs, 1)
	assert.ElementsMatch(t, []uint{alice.ID, bob.ID}, evs[0].Users)
}
