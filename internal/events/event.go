// Package events turns database change notifications into scheduler calls.
package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
	apperrors "github.com/hzi-braunschweig/pia-system-sub012/internal/pkg/errors"
)

const (
	ChannelInsert = "table_insert"
	ChannelUpdate = "table_update"
	ChannelDelete = "table_delete"
)

// Channels lists every channel the listener subscribes to.
var Channels = []string{ChannelInsert, ChannelUpdate, ChannelDelete}

const (
	KindQuestionnaireInserted = "questionnaire_inserted"
	KindQuestionnaireUpdated  = "questionnaire_updated"
	KindParticipantUpdated    = "participant_updated"
	KindParticipantDeleted    = "participant_deleted"
	KindParticipantEnrolled   = "participant_enrolled"
	KindParticipantUnenrolled = "participant_unenrolled"
	KindInstanceReleased      = "instance_released"
)

const (
	tableQuestionnaires = "questionnaires"
	tableParticipants   = "participants"
	tableStudyUsers     = "study_users"
	tableInstances      = "questionnaire_instances"
)

// Event is one decoded change. Only the row pair matching Kind is set.
type Event struct {
	Kind    string
	Channel string
	Table   string

	OldQuestionnaire *types.Questionnaire
	Questionnaire    *types.Questionnaire

	OldParticipant *types.Participant
	Participant    *types.Participant

	Membership *types.StudyMembership

	OldInstance *types.QuestionnaireInstance
	Instance    *types.QuestionnaireInstance
}

type envelope struct {
	Table  string          `json:"table"`
	RowOld json.RawMessage `json:"row_old"`
	RowNew json.RawMessage `json:"row_new"`
}

// Decode maps a notification to an Event. Changes the scheduler does not
// react to give nil, nil. Undecodable payloads wrap ErrMalformedEvent.
func Decode(channel string, payload []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, malformed("payload: %v", err)
	}
	table := strings.TrimSpace(env.Table)
	if table == "" {
		return nil, malformed("missing table")
	}
	ev := &Event{Channel: channel, Table: table}

	switch {
	case channel == ChannelInsert && table == tableQuestionnaires:
		ev.Kind = KindQuestionnaireInserted
		q, err := decodeRow(env.RowNew, questionnaireFromRow)
		if err != nil {
			return nil, err
		}
		ev.Questionnaire = q

	case channel == ChannelUpdate && table == tableQuestionnaires:
		ev.Kind = KindQuestionnaireUpdated
		old, err := decodeRow(env.RowOld, questionnaireFromRow)
		if err != nil {
			return nil, err
		}
		q, err := decodeRow(env.RowNew, questionnaireFromRow)
		if err != nil {
			return nil, err
		}
		ev.OldQuestionnaire, ev.Questionnaire = old, q

	case channel == ChannelUpdate && table == tableParticipants:
		ev.Kind = KindParticipantUpdated
		old, err := decodeRow(env.RowOld, participantFromRow)
		if err != nil {
			return nil, err
		}
		p, err := decodeRow(env.RowNew, participantFromRow)
		if err != nil {
			return nil, err
		}
		ev.OldParticipant, ev.Participant = old, p

	case channel == ChannelDelete && table == tableParticipants:
		ev.Kind = KindParticipantDeleted
		old, err := decodeRow(env.RowOld, participantFromRow)
		if err != nil {
			return nil, err
		}
		ev.OldParticipant = old

	case channel == ChannelInsert && table == tableStudyUsers:
		ev.Kind = KindParticipantEnrolled
		m, err := decodeMembership(env.RowNew)
		if err != nil {
			return nil, err
		}
		ev.Membership = m

	case channel == ChannelDelete && table == tableStudyUsers:
		ev.Kind = KindParticipantUnenrolled
		m, err := decodeMembership(env.RowOld)
		if err != nil {
			return nil, err
		}
		ev.Membership = m

	case channel == ChannelUpdate && table == tableInstances:
		ev.Kind = KindInstanceReleased
		old, err := decodeRow(env.RowOld, instanceFromRow)
		if err != nil {
			return nil, err
		}
		qi, err := decodeRow(env.RowNew, instanceFromRow)
		if err != nil {
			return nil, err
		}
		ev.OldInstance, ev.Instance = old, qi

	default:
		return nil, nil
	}
	return ev, nil
}

func malformed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", apperrors.ErrMalformedEvent, fmt.Sprintf(format, args...))
}

func isNull(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

func decodeRow[R any, T any](raw json.RawMessage, convert func(*R) *T) (*T, error) {
	if isNull(raw) {
		return nil, malformed("missing row")
	}
	var row R
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, malformed("row: %v", err)
	}
	return convert(&row), nil
}

func decodeMembership(raw json.RawMessage) (*types.StudyMembership, error) {
	if isNull(raw) {
		return nil, malformed("missing row")
	}
	var m types.StudyMembership
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, malformed("row: %v", err)
	}
	if m.StudyID == "" || m.UserID == "" {
		return nil, malformed("study membership without study_id or user_id")
	}
	return &m, nil
}

// The row types shadow the time columns of the domain structs so that every
// timestamp format row_to_json produces is accepted.

type questionnaireRow struct {
	types.Questionnaire
	ActivateAtDate *flexTime `json:"activate_at_date"`
	CreatedAt      flexTime  `json:"created_at"`
	UpdatedAt      flexTime  `json:"updated_at"`
}

func questionnaireFromRow(r *questionnaireRow) *types.Questionnaire {
	q := r.Questionnaire
	q.ActivateAtDate = r.ActivateAtDate.ptr()
	q.CreatedAt = r.CreatedAt.Time
	q.UpdatedAt = r.UpdatedAt.Time
	return &q
}

type participantRow struct {
	types.Participant
	FirstLoggedInAt *flexTime `json:"first_logged_in_at"`
	CreatedAt       flexTime  `json:"created_at"`
	UpdatedAt       flexTime  `json:"updated_at"`
}

func participantFromRow(r *participantRow) *types.Participant {
	p := r.Participant
	p.FirstLoggedInAt = r.FirstLoggedInAt.ptr()
	p.CreatedAt = r.CreatedAt.Time
	p.UpdatedAt = r.UpdatedAt.Time
	return &p
}

type instanceRow struct {
	types.QuestionnaireInstance
	DateOfIssue     flexTime  `json:"date_of_issue"`
	DateOfReleaseV1 *flexTime `json:"date_of_release_v1"`
	DateOfReleaseV2 *flexTime `json:"date_of_release_v2"`
	CreatedAt       flexTime  `json:"created_at"`
	UpdatedAt       flexTime  `json:"updated_at"`
}

func instanceFromRow(r *instanceRow) *types.QuestionnaireInstance {
	qi := r.QuestionnaireInstance
	qi.DateOfIssue = r.DateOfIssue.Time
	qi.DateOfReleaseV1 = r.DateOfReleaseV1.ptr()
	qi.DateOfReleaseV2 = r.DateOfReleaseV2.ptr()
	qi.CreatedAt = r.CreatedAt.Time
	qi.UpdatedAt = r.UpdatedAt.Time
	return &qi
}

// flexTime accepts RFC 3339 as well as the zone-less and date-only forms of
// timestamp and date columns. Zone-less values are read as UTC.
type flexTime struct{ time.Time }

var flexLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-07",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999-07",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func (t *flexTime) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		t.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for _, layout := range flexLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unsupported time %q", raw)
}

func (t *flexTime) ptr() *time.Time {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}
