package models

import (
	"time"

	"github.com/pkg/errors"
)

type TaskStatus string

const (
	TaskStatusPendingApproval TaskStatus = "pending_approval" // ожидает решения согласующего
	TaskStatusWorking         TaskStatus = "working"          // фоновая задача в работе
	TaskStatusCompleted       TaskStatus = "completed"
	TaskStatusRejected        TaskStatus = "rejected"
	TaskStatusFailed          TaskStatus = "failed"
)

// NonTerminalTaskStatuses статусы, из которых задача ещё может перейти в терминальный
var NonTerminalTaskStatuses = []TaskStatus{TaskStatusPendingApproval, TaskStatusWorking}

func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusRejected, TaskStatusFailed:
		return true
	}
	return false
}

func (s TaskStatus) IsAllowChange(newStatus TaskStatus) bool {
	if s.IsTerminal() {
		return false
	}
	switch s {
	case TaskStatusPendingApproval:
		return newStatus == TaskStatusWorking || newStatus.IsTerminal()
	case TaskStatusWorking:
		return newStatus.IsTerminal()
	}
	return false
}

type TaskStepType string

const (
	TaskStepApproval   TaskStepType = "approval"
	TaskStepCreation   TaskStepType = "creation"
	TaskStepBackground TaskStepType = "background_task"
)

type TaskOwner string

const (
	TaskOwnerPublisher TaskOwner = "publisher"
	TaskOwnerSystem    TaskOwner = "system" // фоновые задачи всегда системные
)

type TaskAction string

const (
	TaskActionCreate         TaskAction = "create"
	TaskActionActivate       TaskAction = "activate"
	TaskActionApprove        TaskAction = "approve"
	TaskActionPause          TaskAction = "pause"
	TaskActionResume         TaskAction = "resume"
	TaskActionUpdateBudget   TaskAction = "update_budget"
	TaskActionAssignCreative TaskAction = "assign_creative"
	TaskActionCheckStatus    TaskAction = "check_status"
)

type TaskResolution string

const (
	TaskResolutionApproved TaskResolution = "approved"
	TaskResolutionRejected TaskResolution = "rejected"
)

func (r TaskResolution) Validate() error {
	switch r {
	case TaskResolutionApproved, TaskResolutionRejected:
		return nil
	}
	return errors.Errorf("недопустимое решение по задаче: %v", r)
}

type ToolName string

const (
	ToolCreateMediaBuy    ToolName = "create_media_buy"
	ToolUpdateMediaBuy    ToolName = "update_media_buy"
	ToolAddCreativeAssets ToolName = "add_creative_assets"
	ToolCheckMediaBuy     ToolName = "check_media_buy_status"
)

func (t ToolName) Validate() error {
	switch t {
	case ToolCreateMediaBuy, ToolUpdateMediaBuy, ToolAddCreativeAssets, ToolCheckMediaBuy:
		return nil
	}
	return errors.Errorf("неизвестная операция: %v", t)
}

// SLA срок реакции на задачу согласования, по типу операции
func (t ToolName) SLA() time.Duration {
	switch t {
	case ToolCreateMediaBuy:
		return 4 * time.Hour
	case ToolUpdateMediaBuy:
		return 2 * time.Hour
	case ToolAddCreativeAssets:
		return 24 * time.Hour
	}
	return 4 * time.Hour
}

type TaskEventType string

const (
	TaskEventCreated         TaskEventType = "task_created"
	TaskEventExecuted        TaskEventType = "task_executed"
	TaskEventRejected        TaskEventType = "task_rejected"
	TaskEventExecutionFailed TaskEventType = "task_execution_failed"
	TaskEventPollingStarted  TaskEventType = "polling_started"
	TaskEventPollingTimeout  TaskEventType = "polling_timeout"
	TaskEventCompleted       TaskEventType = "task_completed"
	TaskEventEscalated       TaskEventType = "task_escalated"
)

const PollingTimeoutReason = "polling_timeout"
