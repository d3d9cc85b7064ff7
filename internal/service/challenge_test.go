package service

import (
	"context"
	"testing"
	"time"

	"github.com/mansoorceksport/fittrack/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChallengeLifecycle(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alice := h.user(t, "alice")
	bob := h.user(t, "bob")
	s := h.session(t, alice.ID, "Hill Sprints", cardio("Sprint", 15, 1.5))

	c, err := h.challengeSvc.Send(ctx, alice.ID, SendChallengeRequest{ChallengedID: bob.ID, SessionID: s.ID, Message: "beat this"})
	require.NoError(t, err)
	assert.Equal(t, domain.ChallengePending, c.Status)
	assert.Equal(t, "Hill Sprints", c.SessionName)
	assert.True(t, c.ExpiresAt.Equal(fixedNow.Add(domain.ChallengeTTL)))

	notes, err := h.notifications.ListByUser(ctx, bob.ID, 10)
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, domain.NotificationChallenge, notes[0].Kind)
	assert.Equal(t, c.ID, notes[0].ReferenceID)

	received, err := h.challengeSvc.ListReceived(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, received, 1)

	// only the challenged user may answer
	_, err = h.challengeSvc.Respond(ctx, alice.ID, c.ID, "accept")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	accepted, err := h.challengeSvc.Respond(ctx, bob.ID, c.ID, "accept")
	require.NoError(t, err)
	assert.Equal(t, domain.ChallengeAccepted, accepted.Status)

	_, err = h.challengeSvc.Respond(ctx, bob.ID, c.ID, "decline")
	assert.ErrorIs(t, err, domain.ErrConflict)

	res, err := h.challengeSvc.Complete(ctx, bob.ID, c.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceChallenge, res.Record.Source)
	assert.Equal(t, c.ID, res.Record.ChallengeID)
	assert.Equal(t, bob.ID, res.Record.UserID)

	stored, err := h.challenges.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChallengeCompleted, stored.Status)

	// bob's progress moved, alice's session counter did not
	stats, err := h.stats.Get(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalWorkouts)
	session, err := h.sessions.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Zero(t, session.CompletionCount)

	_, err = h.challengeSvc.Complete(ctx, bob.ID, c.ID, "")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestChallengeSendValidation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alice := h.user(t, "alice")
	bob := h.user(t, "bob")
	own := h.session(t, alice.ID, "Mine", strength("Squat", 1, 1, 1))
	theirs := h.session(t, bob.ID, "Theirs", strength("Squat", 1, 1, 1))

	tests := []struct {
		name    string
		req     SendChallengeRequest
		wantErr error
	}{
		{"self challenge", SendChallengeRequest{ChallengedID: alice.ID, SessionID: own.ID}, domain.ErrValidation},
		{"unknown user", SendChallengeRequest{ChallengedID: "000000000000000000000000", SessionID: own.ID}, domain.ErrNotFound},
		{"someone else's session", SendChallengeRequest{ChallengedID: bob.ID, SessionID: theirs.ID}, domain.ErrNotFound},
		{"missing session id", SendChallengeRequest{ChallengedID: bob.ID}, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.challengeSvc.Send(ctx, alice.ID, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestChallengeExpiry(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alice := h.user(t, "alice")
	bob := h.user(t, "bob")
	s := h.session(t, alice.ID, "Push", strength("Bench Press", 3, 10, 60))

	c, err := h.challengeSvc.Send(ctx, alice.ID, SendChallengeRequest{ChallengedID: bob.ID, SessionID: s.ID})
	require.NoError(t, err)

	h.now = fixedNow.Add(domain.ChallengeTTL + time.Minute)

	_, err = h.challengeSvc.Respond(ctx, bob.ID, c.ID, "accept")
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = h.challengeSvc.Complete(ctx, bob.ID, c.ID, "")
	assert.ErrorIs(t, err, domain.ErrConflict)

	received, err := h.challengeSvc.ListReceived(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, received)
}

func TestChallengeCancel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	alice := h.user(t, "alice")
	bob := h.user(t, "bob")
	s := h.session(t, alice.ID, "Push", strength("Bench Press", 3, 10, 60))

	c, err := h.challengeSvc.Send(ctx, alice.ID, SendChallengeRequest{ChallengedID: bob.ID, SessionID: s.ID})
	require.NoError(t, err)

	assert.ErrorIs(t, h.challengeSvc.Cancel(ctx, bob.ID, c.ID), domain.ErrForbidden)
	require.NoError(t, h.challengeSvc.Cancel(ctx, alice.ID, c.ID))

	_, err = h.challenges.GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
