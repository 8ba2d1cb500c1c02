package cycle

import (
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	types "github.com/hzi-braunschweig/pia-system-sub012/internal/domain"
)

var (
	loginAt   = time.Date(2024, 1, 10, 9, 30, 0, 0, time.UTC)
	createdAt = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	evening   = ClockTime{Hour: 18}
)

func questionnaire(mod func(q *types.Questionnaire)) *types.Questionnaire {
	q := &types.Questionnaire{
		ID:               7,
		Version:          1,
		StudyID:          "Study1",
		Name:             "Daily symptoms",
		CycleUnit:        types.CycleUnitOnce,
		ExpiresAfterDays: 14,
		Publish:          types.PublishAll,
		Type:             types.TypeForProbands,
		Active:           true,
		CreatedAt:        createdAt,
	}
	if mod != nil {
		mod(q)
	}
	return q
}

func participant(login *time.Time) *types.Participant {
	return &types.Participant{
		Pseudonym:       "qtest-0001",
		Role:            types.RoleProband,
		Status:          types.ParticipantActive,
		FirstLoggedInAt: login,
	}
}

func ptr[T any](v T) *T { return &v }

func utcOptions() Options {
	return Options{Location: time.UTC, DefaultNotificationTime: evening, Now: loginAt}
}

func TestDatesGolden(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	scenarios := []struct {
		name string
		q    *types.Questionnaire
		p    *types.Participant
		opts Options
	}{
		{
			name: "day_every_2_days",
			q: questionnaire(func(q *types.Questionnaire) {
				q.CycleUnit, q.CycleAmount, q.ActivateAfterDays, q.DeactivateAfterDays = types.CycleUnitDay, 2, 1, 4
			}),
			p:    participant(&loginAt),
			opts: utcOptions(),
		},
		{
			name: "week_with_weekday",
			q: questionnaire(func(q *types.Questionnaire) {
				q.CycleUnit, q.CycleAmount, q.DeactivateAfterDays = types.CycleUnitWeek, 1, 21
				q.NotificationWeekday = ptr("monday")
			}),
			p:    participant(&loginAt),
			opts: utcOptions(),
		},
		{
			name: "month_clamped_from_31st",
			q: questionnaire(func(q *types.Questionnaire) {
				q.CycleUnit, q.CycleAmount, q.DeactivateAfterDays = types.CycleUnitMonth, 1, 100
			}),
			p:    participant(ptr(time.Date(2024, 1, 31, 8, 0, 0, 0, time.UTC))),
			opts: utcOptions(),
		},
		{
			name: "hour_three_per_day",
			q: questionnaire(func(q *types.Questionnaire) {
				q.CycleUnit, q.CycleAmount, q.DeactivateAfterDays = types.CycleUnitHour, 4, 1
				q.CyclePerDay, q.CycleFirstHour = ptr(3), ptr(8)
			}),
			p:    participant(&loginAt),
			opts: utcOptions(),
		},
		{
			name: "hour_negative_first_hour",
			q: questionnaire(func(q *types.Questionnaire) {
				q.CycleUnit, q.CycleAmount, q.DeactivateAfterDays = types.CycleUnitHour, 4, 1
				q.CyclePerDay, q.CycleFirstHour = ptr(10), ptr(-2)
			}),
			p:    participant(&loginAt),
			opts: utcOptions(),
		},
		{
			name: "once_with_offset",
			q: questionnaire(func(q *types.Questionnaire) {
				q.ActivateAfterDays = 3
			}),
			p:    participant(&loginAt),
			opts: utcOptions(),
		},
		{
			name: "spontan_keeps_midnight",
			q: questionnaire(func(q *types.Questionnaire) {
				q.CycleUnit = types.CycleUnitSpontan
			}),
			p:    participant(&loginAt),
			opts: utcOptions(),
		},
		{
			name: "date_uses_activate_at_date",
			q: questionnaire(func(q *types.Questionnaire) {
				q.CycleUnit, q.ActivateAfterDays = types.CycleUnitDate, 5
				q.ActivateAtDate = ptr(time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC))
			}),
			p:    participant(nil),
			opts: utcOptions(),
		},
		{
			name: "internal_condition_collapses_day_cycle",
			q: questionnaire(func(q *types.Questionnaire) {
				q.CycleUnit, q.CycleAmount, q.ActivateAfterDays, q.DeactivateAfterDays = types.CycleUnitDay, 1, 2, 10
			}),
			p: participant(&loginAt),
			opts: Options{
				HasInternalCondition:    true,
				Location:                time.UTC,
				DefaultNotificationTime: evening,
			},
		},
		{
			name: "participant_notification_time",
			q: questionnaire(func(q *types.Questionnaire) {
				q.CycleUnit, q.CycleAmount, q.DeactivateAfterDays = types.CycleUnitDay, 1, 2
			}),
			p: func() *types.Participant {
				p := participant(&loginAt)
				p.NotificationTime = ptr("07:30")
				return p
			}(),
			opts: utcOptions(),
		},
		{
			name: "research_team_uses_created_at",
			q: questionnaire(func(q *types.Questionnaire) {
				q.Type, q.ActivateAfterDays = types.TypeForResearchTeam, 1
			}),
			p:    participant(nil),
			opts: utcOptions(),
		},
		{
			name: "created_after_login",
			q: questionnaire(func(q *types.Questionnaire) {
				q.CycleUnit, q.CycleAmount, q.DeactivateAfterDays = types.CycleUnitDay, 3, 6
				q.CreatedAt = time.Date(2024, 1, 20, 5, 0, 0, 0, time.UTC)
			}),
			p:    participant(&loginAt),
			opts: utcOptions(),
		},
		{
			name: "berlin_daily_across_dst",
			q: questionnaire(func(q *types.Questionnaire) {
				q.CycleUnit, q.CycleAmount, q.DeactivateAfterDays = types.CycleUnitDay, 1, 2
			}),
			p:    participant(ptr(time.Date(2024, 3, 30, 9, 0, 0, 0, time.UTC))),
			opts: Options{Location: berlin, DefaultNotificationTime: evening},
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, sc := range scenarios {
		t.Run(sc.name, func(t *testing.T) {
			g.Assert(t, sc.name, render(Dates(sc.q, sc.p, sc.opts)))
		})
	}
}

func render(dates []time.Time) []byte {
	var b strings.Builder
	for _, d := range dates {
		b.WriteString(d.Format(time.RFC3339))
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func TestDatesDayScenario(t *testing.T) {
	q := questionnaire(func(q *types.Questionnaire) {
		q.CycleUnit, q.CycleAmount, q.ActivateAfterDays, q.DeactivateAfterDays = types.CycleUnitDay, 2, 1, 4
	})
	got := Dates(q, participant(&loginAt), utcOptions())
	require.Len(t, got, 3)

	start := time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC)
	require.Equal(t, start.AddDate(0, 0, 1), got[0])
	require.Equal(t, start.AddDate(0, 0, 3), got[1])
	require.Equal(t, start.AddDate(0, 0, 5), got[2])
}

func TestDatesIneligible(t *testing.T) {
	day := questionnaire(func(q *types.Questionnaire) { q.CycleUnit, q.CycleAmount = types.CycleUnitDay, 1 })
	dated := questionnaire(func(q *types.Questionnaire) {
		q.CycleUnit = types.CycleUnitDate
		q.ActivateAtDate = ptr(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	})
	team := questionnaire(func(q *types.Questionnaire) { q.Type = types.TypeForResearchTeam })

	require.Empty(t, Dates(nil, participant(&loginAt), utcOptions()), "nil questionnaire")
	require.Empty(t, Dates(day, nil, utcOptions()), "nil participant")
	require.Empty(t, Dates(day, participant(nil), utcOptions()), "no first login")
	require.Len(t, Dates(dated, participant(nil), utcOptions()), 1, "date cycles do not need a login")
	require.Len(t, Dates(team, participant(nil), utcOptions()), 1, "research team does not need a login")

	loginOnly := utcOptions()
	loginOnly.OnlyLoginDependent = true
	require.Empty(t, Dates(dated, participant(&loginAt), loginOnly), "date cycle excluded")
	require.Empty(t, Dates(team, participant(&loginAt), loginOnly), "research team excluded")
	require.NotEmpty(t, Dates(day, participant(&loginAt), loginOnly))

	noAnchor := questionnaire(func(q *types.Questionnaire) { q.CycleUnit = types.CycleUnitDate })
	require.Empty(t, Dates(noAnchor, participant(&loginAt), utcOptions()), "date cycle without activate_at_date")
}

func TestDatesAmountBelowOneIsSingle(t *testing.T) {
	q := questionnaire(func(q *types.Questionnaire) {
		q.CycleUnit, q.CycleAmount, q.ActivateAfterDays, q.DeactivateAfterDays = types.CycleUnitWeek, 0, 2, 30
	})
	got := Dates(q, participant(&loginAt), utcOptions())
	require.Equal(t, []time.Time{time.Date(2024, 1, 12, 18, 0, 0, 0, time.UTC)}, got)
}

func TestHourDatesRespectDailyQuota(t *testing.T) {
	for _, perDay := range []int{1, 2, 3, 5, 24} {
		for _, amount := range []int{1, 3, 5, 7} {
			for _, firstHour := range []int{0, 6, 9} {
				q := questionnaire(func(q *types.Questionnaire) {
					q.CycleUnit, q.CycleAmount, q.DeactivateAfterDays = types.CycleUnitHour, amount, 4
					q.CyclePerDay, q.CycleFirstHour = ptr(perDay), ptr(firstHour)
				})
				dates := Dates(q, participant(&loginAt), utcOptions())
				require.NotEmpty(t, dates)

				perCalendarDay := map[string]int{}
				for i, d := range dates {
					key := d.Format("2006-01-02")
					perCalendarDay[key]++
					require.LessOrEqualf(t, perCalendarDay[key], perDay,
						"perDay=%d amount=%d firstHour=%d on %s", perDay, amount, firstHour, key)
					if i == 0 || dates[i-1].Format("2006-01-02") != key {
						require.Equalf(t, firstHour, d.Hour(),
							"rollover must re-anchor: perDay=%d amount=%d firstHour=%d at %s", perDay, amount, firstHour, d)
					}
					if i > 0 {
						require.True(t, d.After(dates[i-1]), "dates must increase")
					}
				}
			}
		}
	}
}

func TestHourDatesNegativeFirstHourTerminates(t *testing.T) {
	for _, amount := range []int{1, 2, 5} {
		q := questionnaire(func(q *types.Questionnaire) {
			q.CycleUnit, q.CycleAmount, q.DeactivateAfterDays = types.CycleUnitHour, amount, 3
			q.CyclePerDay, q.CycleFirstHour = ptr(24), ptr(-3)
		})
		dates := Dates(q, participant(&loginAt), utcOptions())
		require.NotEmpty(t, dates)
		require.Equal(t, 21, dates[0].Hour())
		for i := 1; i < len(dates); i++ {
			require.True(t, dates[i].After(dates[i-1]), "amount=%d: dates must increase", amount)
		}
	}
}
