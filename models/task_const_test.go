package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTaskStatus(t *testing.T) {
	t.Run(`IsTerminal check`, func(t *testing.T) {
		require.Equal(t, false, TaskStatusPendingApproval.IsTerminal())
		require.Equal(t, false, TaskStatusWorking.IsTerminal())
		require.Equal(t, true, TaskStatusCompleted.IsTerminal())
		require.Equal(t, true, TaskStatusRejected.IsTerminal())
		require.Equal(t, true, TaskStatusFailed.IsTerminal())
	})

	t.Run(`IsAllowChange check`, func(t *testing.T) {
		require.Equal(t, true, TaskStatusPendingApproval.IsAllowChange(TaskStatusWorking))
		require.Equal(t, true, TaskStatusPendingApproval.IsAllowChange(TaskStatusRejected))
		require.Equal(t, true, TaskStatusPendingApproval.IsAllowChange(TaskStatusFailed))
		require.Equal(t, true, TaskStatusWorking.IsAllowChange(TaskStatusCompleted))
		require.Equal(t, true, TaskStatusWorking.IsAllowChange(TaskStatusFailed))

		// из терминального статуса переходов нет
		require.Equal(t, false, TaskStatusCompleted.IsAllowChange(TaskStatusWorking))
		require.Equal(t, false, TaskStatusRejected.IsAllowChange(TaskStatusPendingApproval))
		require.Equal(t, false, TaskStatusFailed.IsAllowChange(TaskStatusCompleted))
		// назад в ожидание решения задача не возвращается
		require.Equal(t, false, TaskStatusWorking.IsAllowChange(TaskStatusPendingApproval))
	})

	t.Run(`resolution validate check`, func(t *testing.T) {
		require.Nil(t, TaskResolutionApproved.Validate())
		require.Nil(t, TaskResolutionRejected.Validate())
		require.NotNil(t, TaskResolution("maybe").Validate())
	})
}

func TestToolName(t *testing.T) {
	t.Run(`validate check`, func(t *testing.T) {
		require.Nil(t, ToolCreateMediaBuy.Validate())
		require.Nil(t, ToolUpdateMediaBuy.Validate())
		require.Nil(t, ToolAddCreativeAssets.Validate())
		require.Nil(t, ToolCheckMediaBuy.Validate())
		require.NotNil(t, ToolName("delete_media_buy").Validate())
	})

	t.Run(`SLA check`, func(t *testing.T) {
		require.Equal(t, 4*time.Hour, ToolCreateMediaBuy.SLA())
		require.Equal(t, 2*time.Hour, ToolUpdateMediaBuy.SLA())
		require.Equal(t, 24*time.Hour, ToolAddCreativeAssets.SLA())
		require.Equal(t, 4*time.Hour, ToolCheckMediaBuy.SLA())
	})
}

func TestMediaBuyConsts(t *testing.T) {
	t.Run(`status IsTerminal check`, func(t *testing.T) {
		require.Equal(t, false, MediaBuyStatusPendingActivation.IsTerminal())
		require.Equal(t, false, MediaBuyStatusPendingManual.IsTerminal())
		require.Equal(t, false, MediaBuyStatusPaused.IsTerminal())
		require.Equal(t, true, MediaBuyStatusActive.IsTerminal())
		require.Equal(t, true, MediaBuyStatusCompleted.IsTerminal())
		require.Equal(t, true, MediaBuyStatusFailed.IsTerminal())
	})

	t.Run(`update action validate check`, func(t *testing.T) {
		require.Nil(t, UpdateActionPauseMediaBuy.Validate())
		require.Nil(t, UpdateActionUpdatePackageBudget.Validate())
		require.NotNil(t, UpdateMediaBuyAction("archive").Validate())
	})

	t.Run(`update action to task action check`, func(t *testing.T) {
		require.Equal(t, TaskActionPause, UpdateActionPauseMediaBuy.TaskAction())
		require.Equal(t, TaskActionPause, UpdateActionPausePackage.TaskAction())
		require.Equal(t, TaskActionResume, UpdateActionResumeMediaBuy.TaskAction())
		require.Equal(t, TaskActionResume, UpdateActionResumePackage.TaskAction())
		require.Equal(t, TaskActionUpdateBudget, UpdateActionUpdatePackageBudget.TaskAction())
	})

	t.Run(`platform validate check`, func(t *testing.T) {
		require.Nil(t, PlatformMock.Validate())
		require.Nil(t, PlatformGAM.Validate())
		require.NotNil(t, PlatformCode("yandex").Validate())
	})
}
