package domain

import (
	"github.com/hzi-braunschweig/pia-system-sub012/internal/domain/instances"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/domain/jobs"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/domain/participants"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/domain/studies"
)

const (
	CycleUnitOnce    = studies.CycleUnitOnce
	CycleUnitDate    = studies.CycleUnitDate
	CycleUnitSpontan = studies.CycleUnitSpontan
	CycleUnitHour    = studies.CycleUnitHour
	CycleUnitDay     = studies.CycleUnitDay
	CycleUnitWeek    = studies.CycleUnitWeek
	CycleUnitMonth   = studies.CycleUnitMonth

	PublishAll          = studies.PublishAll
	PublishHidden       = studies.PublishHidden
	PublishTestProbands = studies.PublishTestProbands

	TypeForProbands     = studies.TypeForProbands
	TypeForResearchTeam = studies.TypeForResearchTeam

	ConditionTypeInternalLast = studies.ConditionTypeInternalLast
	ConditionTypeExternal     = studies.ConditionTypeExternal

	LinkAnd = studies.LinkAnd
	LinkOr  = studies.LinkOr
	LinkXor = studies.LinkXor

	AnswerTypeSingleSelect = studies.AnswerTypeSingleSelect
	AnswerTypeMultiSelect  = studies.AnswerTypeMultiSelect
	AnswerTypeNumber       = studies.AnswerTypeNumber
	AnswerTypeText         = studies.AnswerTypeText
	AnswerTypeDate         = studies.AnswerTypeDate
	AnswerTypeTimestamp    = studies.AnswerTypeTimestamp

	RoleProband = participants.RoleProband

	ParticipantActive      = participants.StatusActive
	ParticipantDeactivated = participants.StatusDeactivated
	ParticipantDeleted     = participants.StatusDeleted

	InstanceInactive      = instances.StatusInactive
	InstanceActive        = instances.StatusActive
	InstanceInProgress    = instances.StatusInProgress
	InstanceReleasedOnce  = instances.StatusReleasedOnce
	InstanceReleasedTwice = instances.StatusReleasedTwice
	InstanceReleased      = instances.StatusReleased
	InstanceExpired       = instances.StatusExpired

	NotificationTypeReminder = instances.NotificationTypeReminder

	MessageCreated   = instances.MessageCreated
	MessageActivated = instances.MessageActivated
	MessageExpired   = instances.MessageExpired

	SweepStatusRunning   = jobs.SweepStatusRunning
	SweepStatusSucceeded = jobs.SweepStatusSucceeded
	SweepStatusFailed    = jobs.SweepStatusFailed

	SweepTriggerTemporal = jobs.SweepTriggerTemporal
	SweepTriggerTicker   = jobs.SweepTriggerTicker
	SweepTriggerHTTP     = jobs.SweepTriggerHTTP
	SweepTriggerCLI      = jobs.SweepTriggerCLI
)

type (
	Questionnaire = studies.Questionnaire
	Condition     = studies.Condition
	AnswerOption  = studies.AnswerOption

	Participant     = participants.Participant
	StudyMembership = participants.StudyMembership

	QuestionnaireInstance = instances.QuestionnaireInstance
	InstanceKey           = instances.IdentityKey
	Answer                = instances.Answer
	QueuedInstance        = instances.QueuedInstance
	NotificationSchedule  = instances.NotificationSchedule
	LifecycleMessage      = instances.LifecycleMessage

	SweepRun = jobs.SweepRun
)

var NewLifecycleMessage = instances.NewLifecycleMessage

// Models lists every table the scheduler owns or reads, in migration order.
func Models() []interface{} {
	return []interface{}{
		&Questionnaire{},
		&Condition{},
		&AnswerOption{},
		&Participant{},
		&StudyMembership{},
		&QuestionnaireInstance{},
		&Answer{},
		&QueuedInstance{},
		&NotificationSchedule{},
		&SweepRun{},
	}
}
