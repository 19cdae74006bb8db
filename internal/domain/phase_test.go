package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhases_OrderedCatalog(t *testing.T) {
	phases := Phases()
	require.Len(t, phases, 9)

	// 阶段目录按 SortOrder 严格递增
	for i, p := range phases {
		assert.Equal(t, i+1, p.SortOrder)
	}

	assert.Equal(t, PhaseFoundation, phases[0].ID)
	assert.Equal(t, PhaseFinalInspection, phases[8].ID)
}

func TestNextPhase_WalksFullChain(t *testing.T) {
	want := []PhaseID{
		PhaseWalls1, PhaseWalls2, PhaseRoof, PhaseTradesRough,
		PhaseBackframeBasement, PhaseBackframeMain, PhaseBackframeBacking,
		PhaseFinalInspection,
	}

	cur := PhaseFoundation
	for _, next := range want {
		p, err := NextPhase(cur)
		require.NoError(t, err)
		require.NotNil(t, p, "no next phase after %s", cur)
		assert.Equal(t, next, p.ID)
		cur = p.ID
	}

	// 终点之后没有下一阶段
	p, err := NextPhase(PhaseFinalInspection)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestNextPhase_UnknownPhase(t *testing.T) {
	_, err := NextPhase(PhaseID("demolition"))
	assert.ErrorIs(t, err, ErrPhaseNotFound)
}

func TestRequiredTransition(t *testing.T) {
	tests := []struct {
		phase      PhaseID
		transition Transition
		required   bool
	}{
		{PhaseFoundation, "", false},
		{PhaseWalls1, "", false},
		{PhaseWalls2, TransitionFramingToRoofing, true},
		{PhaseRoof, TransitionRoofingToTrades, true},
		{PhaseTradesRough, "", false},
		{PhaseBackframeBasement, TransitionTradesToBackframe, true},
		{PhaseBackframeMain, "", false},
		{PhaseBackframeBacking, TransitionBackframeToFinal, true},
		{PhaseFinalInspection, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.phase), func(t *testing.T) {
			transition, ok := RequiredTransition(tt.phase)
			assert.Equal(t, tt.required, ok)
			assert.Equal(t, tt.transition, transition)
		})
	}
}

func TestOptionalPhases(t *testing.T) {
	basement, err := GetPhase(PhaseBackframeBasement)
	require.NoError(t, err)
	assert.True(t, basement.IsOptional)
	assert.True(t, basement.IsBackframe)

	for _, p := range Phases() {
		if p.ID == PhaseBackframeBasement {
			continue
		}
		assert.False(t, p.IsOptional, "phase %s should not be optional", p.ID)
	}
}

func TestEnumValid(t *testing.T) {
	assert.True(t, ItemSafety.Valid())
	assert.True(t, SeverityCritical.Valid())
	assert.True(t, ResultNA.Valid())
	assert.True(t, TransitionFramingToRoofing.Valid())
	assert.True(t, AssignmentCancelled.Valid())

	assert.False(t, ItemType("complaint").Valid())
	assert.False(t, Severity("urgent").Valid())
	assert.False(t, ItemResult("skip").Valid())
	assert.False(t, Transition("roof_to_sale").Valid())
	assert.False(t, PhaseID("landscaping").Valid())
}

func TestGateCheckStatusTerminal(t *testing.T) {
	assert.False(t, GateCheckInProgress.Terminal())
	assert.True(t, GateCheckPassed.Terminal())
	assert.True(t, GateCheckFailed.Terminal())
}

func TestSeedTemplates(t *testing.T) {
	for _, tr := range Transitions() {
		lines := SeedTemplates(tr)
		require.NotEmpty(t, lines, "transition %s has no template seed", tr)
		for i, l := range lines {
			assert.Equal(t, i+1, l.SortOrder)
			assert.Equal(t, tr, l.Transition)
			assert.NotEmpty(t, l.ItemCode)
			assert.NotEmpty(t, l.ItemLabel)
		}
	}

	assert.Len(t, SeedTemplates(TransitionFramingToRoofing), 16)
}
