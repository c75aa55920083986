package species_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moorebrett0/digicord/internal/species"
)

func TestParseStage(t *testing.T) {
	testCases := []struct {
		input string
		want  species.Stage
	}{
		{"Baby", species.StageBaby},
		{"In-Training", species.StageInTraining},
		{"in-training", species.StageInTraining},
		{"IN_TRAINING", species.StageInTraining},
		{"Rookie", species.StageRookie},
		{"Champion", species.StageChampion},
		{"Ultimate", species.StageUltimate},
		{"Mega", species.StageMega},
		{"Ultra", species.StageUltra},
		{"Armor", species.StageArmor},
		{"None", species.StageNone},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := species.ParseStage(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseStageRejectsUnknown(t *testing.T) {
	for _, input := range []string{"", "Hybrid", "In Training", " Rookie"} {
		_, err := species.ParseStage(input)
		assert.Error(t, err, input)
	}
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "In-Training", species.StageInTraining.String())
	assert.Equal(t, "None", species.StageNone.String())
	assert.Equal(t, "Stage(99)", species.Stage(99).String())
}

func TestStageJSON(t *testing.T) {
	data, err := json.Marshal(map[string]species.Stage{"stage": species.StageInTraining})
	require.NoError(t, err)
	assert.JSONEq(t, `{"stage": "In-Training"}`, string(data))

	var decoded map[string]species.Stage
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, species.StageInTraining, decoded["stage"])

	_, err = json.Marshal(species.Stage(99))
	assert.Error(t, err)
}
