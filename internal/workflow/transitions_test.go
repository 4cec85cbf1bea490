package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hse-tools/permit-service/internal/domain"
	apperrors "github.com/hse-tools/permit-service/pkg/util/errorutil"
)

func TestNext(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		itemType domain.ItemType
		from     domain.ItemStatus
		action   Action
		want     domain.ItemStatus
		wantErr  error
	}{
		{"moc submit draft", domain.ItemTypeMOC, domain.ItemStatusDraft, ActionSubmit, domain.ItemStatusSubmitted, nil},
		{"moc approve submitted", domain.ItemTypeMOC, domain.ItemStatusSubmitted, ActionApprove, domain.ItemStatusApproved, nil},
		{"moc reject submitted", domain.ItemTypeMOC, domain.ItemStatusSubmitted, ActionReject, domain.ItemStatusRejected, nil},
		{"moc approve draft", domain.ItemTypeMOC, domain.ItemStatusDraft, ActionApprove, "", apperrors.ErrInvalidTransition},
		{"moc approve approved", domain.ItemTypeMOC, domain.ItemStatusApproved, ActionApprove, "", apperrors.ErrInvalidTransition},
		{"moc reject rejected", domain.ItemTypeMOC, domain.ItemStatusRejected, ActionReject, "", apperrors.ErrInvalidTransition},
		{"moc submit submitted", domain.ItemTypeMOC, domain.ItemStatusSubmitted, ActionSubmit, "", apperrors.ErrInvalidTransition},
		{"moc cannot be accepted", domain.ItemTypeMOC, domain.ItemStatusApproved, ActionAccept, "", apperrors.ErrInvalidTransition},
		{"ptw submit draft", domain.ItemTypePTW, domain.ItemStatusDraft, ActionSubmit, domain.ItemStatusSubmitted, nil},
		{"ptw approve submitted", domain.ItemTypePTW, domain.ItemStatusSubmitted, ActionApprove, domain.ItemStatusApproved, nil},
		{"ptw accept approved", domain.ItemTypePTW, domain.ItemStatusApproved, ActionAccept, domain.ItemStatusJobStarted, nil},
		{"ptw accept twice", domain.ItemTypePTW, domain.ItemStatusJobStarted, ActionAccept, "", apperrors.ErrInvalidTransition},
		{"ptw accept draft", domain.ItemTypePTW, domain.ItemStatusDraft, ActionAccept, "", apperrors.ErrInvalidTransition},
		{"unknown type", domain.ItemType("JSA"), domain.ItemStatusDraft, ActionSubmit, "", apperrors.ErrInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(tt.itemType, tt.from, tt.action)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApply_StampsTimestamps(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	item := &domain.Item{Type: domain.ItemTypeMOC, Status: domain.ItemStatusDraft}

	require.NoError(t, Apply(item, domain.RoleContractor, ActionSubmit, now))
	assert.Equal(t, domain.ItemStatusSubmitted, item.Status)
	require.NotNil(t, item.SubmittedAt)
	assert.Equal(t, now, *item.SubmittedAt)

	require.NoError(t, Apply(item, domain.RoleHSE, ActionApprove, now.Add(time.Hour)))
	assert.Equal(t, domain.ItemStatusApproved, item.Status)
	require.NotNil(t, item.ReviewedAt)
	assert.Nil(t, item.AcceptedAt)
}

func TestApply_RejectsWithoutMutation(t *testing.T) {
	now := time.Now()

	t.Run("contractor cannot approve", func(t *testing.T) {
		item := &domain.Item{Type: domain.ItemTypeMOC, Status: domain.ItemStatusSubmitted}
		err := Apply(item, domain.RoleContractor, ActionApprove, now)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Equal(t, domain.ItemStatusSubmitted, item.Status)
		assert.Nil(t, item.ReviewedAt)
	})

	t.Run("approve draft", func(t *testing.T) {
		item := &domain.Item{Type: domain.ItemTypeMOC, Status: domain.ItemStatusDraft}
		err := Apply(item, domain.RoleHSE, ActionApprove, now)
		assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
		assert.Equal(t, domain.ItemStatusDraft, item.Status)
		assert.Nil(t, item.ReviewedAt)
	})

	t.Run("hse cannot accept permit", func(t *testing.T) {
		item := &domain.Item{Type: domain.ItemTypePTW, Status: domain.ItemStatusApproved}
		err := Apply(item, domain.RoleHSE, ActionAccept, now)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Equal(t, domain.ItemStatusApproved, item.Status)
	})

	t.Run("contractor cannot submit permit", func(t *testing.T) {
		item := &domain.Item{Type: domain.ItemTypePTW, Status: domain.ItemStatusDraft}
		err := Apply(item, domain.RoleContractor, ActionSubmit, now)
		assert.ErrorIs(t, err, apperrors.ErrForbidden)
		assert.Nil(t, item.SubmittedAt)
	})
}

func TestActionFor(t *testing.T) {
	t.Parallel()
	a, ok := ActionFor(domain.ItemStatusJobStarted)
	assert.True(t, ok)
	assert.Equal(t, ActionAccept, a)

	_, ok = ActionFor(domain.ItemStatusDraft)
	assert.False(t, ok)
}
