//go:build integration_test || all_tests

package test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/stretchr/testify/assert"

	"github.com/2beens/liftlog/internal/workouts/sets"
	"github.com/2beens/liftlog/internal/workouts/volume"
)

const (
	dumbbellPress = "ダンベルチェストプレス"
	pullUp        = volume.PullUpLabel
)

func (s *IntegrationTestSuite) TestWorkouts_Unauthorized() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for _, path := range []string{
		"/workouts/sets/page/1/size/10",
		"/workouts/volume",
		"/workouts/exercises",
		"/workouts/sets/export",
	} {
		status, _, _ := s.doRequest(ctx, http.MethodGet, path, "", "", nil)
		s.Equal(http.StatusUnauthorized, status, path)
	}
}

func (s *IntegrationTestSuite) TestWorkouts_LogImportAnalyzeDelete() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := s.doLogin(ctx)

	// log one entry
	entryJson, err := json.Marshal(sets.Entry{
		Date:         "2025/8/26",
		BodyweightKg: 57,
		Exercise:     dumbbellPress,
		Details:      []sets.Detail{{Load: 35, Reps: 13, SetCount: 2}},
	})
	s.Require().NoError(err)
	status, body, _ := s.doRequest(ctx, http.MethodPost, "/workouts/sets", token, "application/json", entryJson)
	s.Require().Equal(http.StatusCreated, status, string(body))

	var addResp sets.AddSetsResponse
	s.Require().NoError(json.Unmarshal(body, &addResp))
	s.Require().Len(addResp.Sets, 1)
	assert.Equal(t, "2025-08-26", addResp.Sets[0].Date)
	assert.Equal(t, 1820.0, addResp.TotalVolume)
	loggedID := addResp.Sets[0].ID

	// import two more
	csvBody := "date,weight,exercise,load,reps,sets,comment\n" +
		"2025/8/27,60," + pullUp + ",0,10,3,\n" +
		"2025/8/27,60," + dumbbellPress + ",40,10,2,heavier\n"
	status, body, _ = s.doRequest(ctx, http.MethodPost, "/workouts/sets/import", token, "text/csv", []byte(csvBody))
	s.Require().Equal(http.StatusCreated, status, string(body))
	assert.JSONEq(t, `{"imported":2}`, string(body))
	assert.Equal(t, 2, s.workoutSetsCount(dumbbellPress))
	assert.Equal(t, 1, s.workoutSetsCount(pullUp))

	// volume table, newest date first
	status, body, _ = s.doRequest(ctx, http.MethodGet, "/workouts/volume", token, "", nil)
	s.Require().Equal(http.StatusOK, status)
	var volumeTable []volume.VolumeEntry
	s.Require().NoError(json.Unmarshal(body, &volumeTable))
	s.Require().Len(volumeTable, 3)
	assert.Equal(t, "2025-08-27", volumeTable[0].Date)
	assert.Equal(t, "2025-08-27", volumeTable[1].Date)
	assert.Equal(t, "2025-08-26", volumeTable[2].Date)
	assert.Equal(t, 1820.0, volumeTable[2].Volume)

	status, body, _ = s.doRequest(ctx, http.MethodGet, "/workouts/volume?from=2025-08-27", token, "", nil)
	s.Require().Equal(http.StatusOK, status)
	s.Require().NoError(json.Unmarshal(body, &volumeTable))
	assert.Len(t, volumeTable, 2)

	status, body, _ = s.doRequest(ctx, http.MethodGet, "/workouts/exercises", token, "", nil)
	s.Require().Equal(http.StatusOK, status)
	var exercises []string
	s.Require().NoError(json.Unmarshal(body, &exercises))
	assert.ElementsMatch(t, []string{dumbbellPress, pullUp}, exercises)

	summary := s.exerciseSummary(ctx, token, dumbbellPress)
	assert.Equal(t, volume.ExerciseStat{
		Exercise:       dumbbellPress,
		LastDate:       "2025-08-27",
		MaxDailyVolume: 1820,
		MaxLoad:        40,
		WorkoutDays:    2,
	}, summary)

	status, body, _ = s.doRequest(ctx, http.MethodGet, "/workouts/exercises/series?exercise="+url.QueryEscape(pullUp), token, "", nil)
	s.Require().Equal(http.StatusOK, status)
	var series []volume.SeriesPoint
	s.Require().NoError(json.Unmarshal(body, &series))
	s.Require().Len(series, 1)
	assert.Equal(t, "2025-08-27", series[0].Date)
	assert.InDelta(t, 60*volume.KgToLb*10*3, series[0].Volume, 1e-9)

	// export has the header and all the rows
	status, body, headers := s.doRequest(ctx, http.MethodGet, "/workouts/sets/export", token, "", nil)
	s.Require().Equal(http.StatusOK, status)
	assert.Contains(t, headers.Get("Content-Disposition"), "liftlog-")
	lines := strings.Split(strings.TrimSpace(string(body)), "\n")
	assert.Equal(t, "date,weight,exercise,load,reps,sets,comment", lines[0])
	assert.Len(t, lines, 4)

	// delete the logged one, the derived views follow
	status, body, _ = s.doRequest(ctx, http.MethodDelete, fmt.Sprintf("/workouts/sets/%d", loggedID), token, "", nil)
	s.Require().Equal(http.StatusOK, status, string(body))
	assert.JSONEq(t, fmt.Sprintf(`{"deletedId":%d}`, loggedID), string(body))
	assert.Equal(t, 1, s.workoutSetsCount(dumbbellPress))

	summary = s.exerciseSummary(ctx, token, dumbbellPress)
	assert.Equal(t, 1600.0, summary.MaxDailyVolume)
	assert.Equal(t, 1, summary.WorkoutDays)

	status, _, _ = s.doRequest(ctx, http.MethodGet, fmt.Sprintf("/workouts/sets/%d", loggedID), token, "", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func (s *IntegrationTestSuite) TestWorkouts_ImportInvalidRows() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := s.doLogin(ctx)
	exercise := "ブルガリアンスクワット(左右)"

	csvBody := "date,weight,exercise,load,reps,sets,comment\n" +
		"2025/8/28,60," + exercise + ",20,10,2,\n" +
		"2025/2/30,60," + exercise + ",20,10,2,\n"
	status, body, _ := s.doRequest(ctx, http.MethodPost, "/workouts/sets/import", token, "text/csv", []byte(csvBody))
	s.Equal(http.StatusBadRequest, status)
	s.Contains(string(body), "row 3")
	// nothing is stored
	s.Equal(0, s.workoutSetsCount(exercise))
}

func (s *IntegrationTestSuite) exerciseSummary(ctx context.Context, token, exercise string) volume.ExerciseStat {
	status, body, _ := s.doRequest(ctx, http.MethodGet, "/workouts/exercises/summary?exercise="+url.QueryEscape(exercise), token, "", nil)
	s.Require().Equal(http.StatusOK, status, string(body))

	var summary volume.ExerciseStat
	s.Require().NoError(json.Unmarshal(body, &summary))
	return summary
}
