package alerts

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCondense_NoParameters(t *testing.T) {
	text, ok := Condense(Record{Headline: "Test Message", Severity: "Severe"})
	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestCondense_FlagsDropUnknownAndPast(t *testing.T) {
	text, ok := Condense(Record{
		Headline:    "Air Quality Alert",
		Severity:    "Unknown",
		Urgency:     "Past",
		Certainty:   "Likely",
		Instruction: "Stay indoors.",
		Parameters:  &Parameters{},
	})
	require.True(t, ok)
	assert.Equal(t, "**Air Quality Alert**\nLikely\nInstruction: Stay indoors.", text)
}

func TestCondense(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		want string
	}{
		{
			name: "NWS headlines preferred",
			rec: Record{
				Headline:  "Winter Storm Warning issued by NWS",
				Severity:  "Severe",
				Urgency:   "Expected",
				Certainty: "Likely",
				Parameters: &Parameters{NWSHeadline: []string{
					"WINTER STORM WARNING IN EFFECT",
					"HEAVY SNOW EXPECTED",
				}},
				Instruction: "Travel could be very difficult.",
			},
			want: "**WINTER STORM WARNING IN EFFECT**\n**HEAVY SNOW EXPECTED**\nSevere / Expected / Likely\nInstruction: Travel could be very difficult.",
		},
		{
			name: "blank instruction falls back to response",
			rec: Record{
				Headline:    "Flood Watch",
				Severity:    "Moderate",
				Instruction: "  \n\t ",
				Response:    "Prepare",
				Parameters:  &Parameters{},
			},
			want: "**Flood Watch**\nModerate\nInstruction: Prepare",
		},
		{
			name: "whitespace collapsed and flags trimmed",
			rec: Record{
				Headline:    "Heat Advisory",
				Severity:    " Minor ",
				Urgency:     "Unknown ",
				Instruction: "Drink plenty\n of fluids,\tstay in\n\nair-conditioning. ",
				Parameters:  &Parameters{},
			},
			want: "**Heat Advisory**\nMinor\nInstruction: Drink plenty of fluids, stay in air-conditioning.",
		},
		{
			name: "all flags dropped",
			rec: Record{
				Headline:   "Special Statement",
				Severity:   "Unknown",
				Urgency:    "Past",
				Parameters: &Parameters{},
			},
			want: "**Special Statement**\n\nInstruction: ",
		},
		{
			name: "flags are case sensitive",
			rec: Record{
				Headline:   "Special Statement",
				Severity:   "unknown",
				Parameters: &Parameters{},
			},
			want: "**Special Statement**\nunknown\nInstruction: ",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Condense(tt.rec)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestCondenseAll verifies records are condensed in order, unreportable ones are
// skipped, and bulletins are separated by a blank line.
func TestCondenseAll(t *testing.T) {
	body, err := os.ReadFile("testdata/active_point.json")
	require.NoError(t, err)
	env, err := Parse(body)
	require.NoError(t, err)

	want := "**WIND ADVISORY IN EFFECT UNTIL 5 AM PDT THURSDAY**\n" +
		"Moderate / Expected / Likely\n" +
		"Instruction: Use extra caution when driving, especially if operating a high profile vehicle.\n" +
		"\n" +
		"**Air Quality Alert issued May 1 at 9:00AM PDT by NWS Seattle WA**\n" +
		"Likely\n" +
		"Instruction: Monitor"
	assert.Equal(t, want, CondenseAll(env))
}

func TestCondenseAll_Empty(t *testing.T) {
	assert.Equal(t, "", CondenseAll(nil))
	assert.Equal(t, "", CondenseAll(&Envelope{Graph: []Record{}}))
	assert.Equal(t, "", CondenseAll(&Envelope{Graph: []Record{{Headline: "no params"}}}))
}
