package voice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveLowEnergyForcesAI(t *testing.T) {
	// Model votes human with high probability, but the energy variance is
	// deep in the synthetic band. The rule must win.
	proba := []float64{0.9, 0.1}

	class, confidence, band := resolve(0.003, classHuman, proba)

	assert.Equal(t, classAI, class, "Low energy variance should force the AI class")
	assert.Equal(t, "rule_ai", band)
	// boost = 0.65 + (0.008-0.003)/0.008*0.3 = 0.8375
	assert.InDelta(t, 0.8375, confidence, 1e-9, "Disagreement should use the boost alone")
}

func TestResolveLowEnergyAgreementTakesMax(t *testing.T) {
	// Model already votes AI with a probability above the boost.
	proba := []float64{0.05, 0.95}

	class, confidence, band := resolve(0.003, classAI, proba)

	assert.Equal(t, classAI, class)
	assert.Equal(t, "rule_ai", band)
	assert.Equal(t, 0.95, confidence, "Agreement should keep the larger of proba and boost")
}

func TestResolveHighEnergyForcesHuman(t *testing.T) {
	proba := []float64{0.2, 0.8}

	class, confidence, band := resolve(0.03, classAI, proba)

	assert.Equal(t, classHuman, class, "High energy variance should force the human class")
	assert.Equal(t, "rule_human", band)
	// boost = 0.65 + (0.03-0.015)/0.035*0.2
	assert.InDelta(t, 0.65+(0.03-0.015)/0.035*0.2, confidence, 1e-9)
}

func TestResolveBoostIsCapped(t *testing.T) {
	proba := []float64{0.5, 0.5}

	_, confidence, _ := resolve(0.0, classHuman, proba)
	assert.InDelta(t, 0.85, confidence, 1e-9, "AI boost should cap at 0.85 for zero variance")

	_, confidence, _ = resolve(0.2, classAI, proba)
	assert.InDelta(t, 0.85, confidence, 1e-9, "Human boost should cap at 0.85 for extreme variance")
}

func TestResolveBorderlinePassesModelThrough(t *testing.T) {
	proba := []float64{0.3, 0.7}

	class, confidence, band := resolve(0.010, classAI, proba)

	assert.Equal(t, classAI, class, "Borderline variance should keep the model's class")
	assert.Equal(t, 0.7, confidence, "Borderline variance should keep the model's probability")
	assert.Equal(t, "model", band)
}

func TestResolveThresholdBoundariesAreExclusive(t *testing.T) {
	proba := []float64{0.6, 0.4}

	class, _, band := resolve(aiEnergyThreshold, classHuman, proba)
	assert.Equal(t, classHuman, class, "ev equal to the AI threshold is borderline")
	assert.Equal(t, "model", band)

	class, _, band = resolve(humanEnergyThreshold, classHuman, proba)
	assert.Equal(t, classHuman, class, "ev equal to the human threshold is borderline")
	assert.Equal(t, "model", band)
}

func TestExplainAIWording(t *testing.T) {
	text := explain(LabelAI, 0.004, 0.9)
	assert.Contains(t, text, "no natural breathing patterns", "Extreme low variance wording")

	text = explain(LabelAI, 0.007, 0.9)
	assert.Contains(t, text, "no natural breathing rhythm", "Low variance wording")

	text = explain(LabelAI, 0.012, 0.85)
	assert.Contains(t, text, "High consistency in pitch", "High confidence wording")

	text = explain(LabelAI, 0.012, 0.7)
	assert.Contains(t, text, "Moderate indicators", "Moderate confidence wording")

	text = explain(LabelAI, 0.012, 0.5)
	assert.Contains(t, text, "Slight synthetic characteristics", "Fallback wording")
}

func TestExplainHumanWording(t *testing.T) {
	text := explain(LabelHuman, 0.02, 0.5)
	assert.Contains(t, text, "breathing and emphasis", "High variance wording")

	text = explain(LabelHuman, 0.012, 0.5)
	assert.Contains(t, text, "consistent with live human speech", "Mid variance wording")

	text = explain(LabelHuman, 0.009, 0.85)
	assert.Contains(t, text, "confirm human speech", "High confidence wording")

	text = explain(LabelHuman, 0.009, 0.7)
	assert.Contains(t, text, "natural human speech variations", "Moderate confidence wording")

	text = explain(LabelHuman, 0.009, 0.5)
	assert.Contains(t, text, "some uncertainty", "Fallback wording")
}

func TestExplainVariancePrecedesConfidence(t *testing.T) {
	// Even at maximum confidence the concrete energy evidence is reported.
	text := explain(LabelAI, 0.002, 1.0)
	assert.Contains(t, text, "Extremely low energy variance")

	text = explain(LabelHuman, 0.03, 1.0)
	assert.Contains(t, text, "High energy variance")
}
