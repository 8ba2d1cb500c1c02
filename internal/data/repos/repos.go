package repos

import (
	"gorm.io/gorm"

	"github.com/hzi-braunschweig/pia-system-sub012/internal/data/repos/instances"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/data/repos/jobs"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/data/repos/participants"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/data/repos/studies"
	"github.com/hzi-braunschweig/pia-system-sub012/internal/platform/logger"
)

type QuestionnaireRepo = studies.QuestionnaireRepo
type ConditionRepo = studies.ConditionRepo
type AnswerOptionRepo = studies.AnswerOptionRepo

type ParticipantRepo = participants.ParticipantRepo
type ProbandQuery = participants.ProbandQuery

type InstanceRepo = instances.InstanceRepo
type InstanceFilter = instances.Filter
type SweepCandidate = instances.SweepCandidate
type AnswerRepo = instances.AnswerRepo
type QueueRepo = instances.QueueRepo
type ReminderRepo = instances.ReminderRepo

type SweepRunRepo = jobs.SweepRunRepo

func NewQuestionnaireRepo(db *gorm.DB, baseLog *logger.Logger) QuestionnaireRepo {
	return studies.NewQuestionnaireRepo(db, baseLog)
}
func NewConditionRepo(db *gorm.DB, baseLog *logger.Logger) ConditionRepo {
	return studies.NewConditionRepo(db, baseLog)
}
func NewAnswerOptionRepo(db *gorm.DB, baseLog *logger.Logger) AnswerOptionRepo {
	return studies.NewAnswerOptionRepo(db, baseLog)
}

func NewParticipantRepo(db *gorm.DB, baseLog *logger.Logger) ParticipantRepo {
	return participants.NewParticipantRepo(db, baseLog)
}

func NewInstanceRepo(db *gorm.DB, baseLog *logger.Logger) InstanceRepo {
	return instances.NewInstanceRepo(db, baseLog)
}
func NewAnswerRepo(db *gorm.DB, baseLog *logger.Logger) AnswerRepo {
	return instances.NewAnswerRepo(db, baseLog)
}
func NewQueueRepo(db *gorm.DB, baseLog *logger.Logger) QueueRepo {
	return instances.NewQueueRepo(db, baseLog)
}
func NewReminderRepo(db *gorm.DB, baseLog *logger.Logger) ReminderRepo {
	return instances.NewReminderRepo(db, baseLog)
}

func NewSweepRunRepo(db *gorm.DB, baseLog *logger.Logger) SweepRunRepo {
	return jobs.NewSweepRunRepo(db, baseLog)
}

// Set bundles every repo the scheduler uses.
type Set struct {
	Questionnaires QuestionnaireRepo
	Conditions     ConditionRepo
	AnswerOptions  AnswerOptionRepo
	Participants   ParticipantRepo
	Instances      InstanceRepo
	Answers        AnswerRepo
	Queue          QueueRepo
	Reminders      ReminderRepo
	SweepRuns      SweepRunRepo
}

func NewSet(db *gorm.DB, baseLog *logger.Logger) Set {
	return Set{
		Questionnaires: NewQuestionnaireRepo(db, baseLog),
		Conditions:     NewConditionRepo(db, baseLog),
		AnswerOptions:  NewAnswerOptionRepo(db, baseLog),
		Participants:   NewParticipantRepo(db, baseLog),
		Instances:      NewInstanceRepo(db, baseLog),
		Answers:        NewAnswerRepo(db, baseLog),
		Queue:          NewQueueRepo(db, baseLog),
		Reminders:      NewReminderRepo(db, baseLog),
		SweepRuns:      NewSweepRunRepo(db, baseLog),
	}
}
