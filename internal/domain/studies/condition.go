package studies

const (
	ConditionTypeInternalLast = "internal_last"
	ConditionTypeExternal     = "external"

	LinkAnd = "AND"
	LinkOr  = "OR"
	LinkXor = "XOR"
)

// Answer type ids as stored in answer_options.answer_type_id.
const (
	AnswerTypeSingleSelect = 1
	AnswerTypeMultiSelect  = 2
	AnswerTypeNumber       = 3
	AnswerTypeText         = 4
	AnswerTypeDate         = 5
	AnswerTypeSample       = 6
	AnswerTypePZN          = 7
	AnswerTypeImage        = 8
	AnswerTypeTimestamp    = 9
	AnswerTypeFile         = 10
)

// Condition gates the questionnaire version it belongs to on an answer given
// to a target questionnaire.
type Condition struct {
	ID                                  int     `gorm:"column:id;primaryKey" json:"id"`
	ConditionType                       string  `gorm:"column:condition_type;not null" json:"condition_type"`
	ConditionQuestionnaireID            int     `gorm:"column:condition_questionnaire_id;not null;index:idx_condition_owner,priority:1" json:"condition_questionnaire_id"`
	ConditionQuestionnaireVersion       int     `gorm:"column:condition_questionnaire_version;not null;index:idx_condition_owner,priority:2" json:"condition_questionnaire_version"`
	ConditionTargetQuestionnaire        int     `gorm:"column:condition_target_questionnaire;not null;index:idx_condition_target,priority:1" json:"condition_target_questionnaire"`
	ConditionTargetQuestionnaireVersion int     `gorm:"column:condition_target_questionnaire_version;not null;index:idx_condition_target,priority:2" json:"condition_target_questionnaire_version"`
	ConditionTargetAnswerOption         int     `gorm:"column:condition_target_answer_option;not null;index:idx_condition_target,priority:3" json:"condition_target_answer_option"`
	ConditionOperand                    string  `gorm:"column:condition_operand;not null" json:"condition_operand"`
	ConditionValue                      string  `gorm:"column:condition_value;not null" json:"condition_value"`
	ConditionLink                       *string `gorm:"column:condition_link" json:"condition_link"`
}

func (Condition) TableName() string { return "conditions" }

// Link returns the combinator, OR when unset.
func (c *Condition) Link() string {
	if c.ConditionLink == nil || *c.ConditionLink == "" {
		return LinkOr
	}
	return *c.ConditionLink
}

type AnswerOption struct {
	ID           int `gorm:"column:id;primaryKey" json:"id"`
	QuestionID   int `gorm:"column:question_id;not null;index" json:"question_id"`
	AnswerTypeID int `gorm:"column:answer_type_id;not null" json:"answer_type_id"`
}

func (AnswerOption) TableName() string { return "answer_options" }
