package models

import "github.com/pkg/errors"

type PlatformCode string

const (
	PlatformGAM   PlatformCode = "gam"
	PlatformKevel PlatformCode = "kevel"
	PlatformMock  PlatformCode = "mock"
)

func (p PlatformCode) Validate() error {
	switch p {
	case PlatformGAM, PlatformKevel, PlatformMock:
		return nil
	}
	return errors.Errorf("неизвестная рекламная площадка: %v", p)
}

type MediaBuyStatus string

const (
	MediaBuyStatusPendingManual     MediaBuyStatus = "pending_manual"     // ожидает согласования паблишером
	MediaBuyStatusPendingActivation MediaBuyStatus = "pending_activation" // площадка ещё обрабатывает кампанию
	MediaBuyStatusActive            MediaBuyStatus = "active"
	MediaBuyStatusPaused            MediaBuyStatus = "paused"
	MediaBuyStatusCompleted         MediaBuyStatus = "completed"
	MediaBuyStatusFailed            MediaBuyStatus = "failed"
)

// IsTerminal терминальный статус на стороне площадки, опрос можно останавливать
func (s MediaBuyStatus) IsTerminal() bool {
	switch s {
	case MediaBuyStatusActive, MediaBuyStatusCompleted, MediaBuyStatusFailed:
		return true
	}
	return false
}

type UpdateMediaBuyAction string

const (
	UpdateActionPauseMediaBuy       UpdateMediaBuyAction = "pause_media_buy"
	UpdateActionResumeMediaBuy      UpdateMediaBuyAction = "resume_media_buy"
	UpdateActionPausePackage        UpdateMediaBuyAction = "pause_package"
	UpdateActionResumePackage       UpdateMediaBuyAction = "resume_package"
	UpdateActionUpdatePackageBudget UpdateMediaBuyAction = "update_package_budget"
)

func (a UpdateMediaBuyAction) Validate() error {
	switch a {
	case UpdateActionPauseMediaBuy, UpdateActionResumeMediaBuy,
		UpdateActionPausePackage, UpdateActionResumePackage, UpdateActionUpdatePackageBudget:
		return nil
	}
	return errors.Errorf("недопустимое действие над кампанией: %v", a)
}

// TaskAction действие для отображения в задаче
func (a UpdateMediaBuyAction) TaskAction() TaskAction {
	switch a {
	case UpdateActionPauseMediaBuy, UpdateActionPausePackage:
		return TaskActionPause
	case UpdateActionResumeMediaBuy, UpdateActionResumePackage:
		return TaskActionResume
	case UpdateActionUpdatePackageBudget:
		return TaskActionUpdateBudget
	}
	return TaskActionUpdateBudget
}
