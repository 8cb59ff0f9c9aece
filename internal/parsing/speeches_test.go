package parsing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProtocol = "Präsidentin Bärbel Bas:\n" +
	"Guten Tag, ich eröffne die Sitzung.\n\n" +
	"Dr. Marco Buschmann (FDP):\n" +
	"Wir beraten heute wichtige Gesetzesinitiativen. (Beifall)\n\n" +
	"Zuruf von der SPD: Das sehen wir auch so!\n\n" +
	"Bundesministerin Annalena Baerbock:\n" +
	"Außenpolitisch stehen wir vor großen Herausforderungen.\n"

func TestParseSpeechesSampleProtocol(t *testing.T) {
	speeches := ParseSpeeches(sampleProtocol, "TEST-1")
	require.Len(t, speeches, 3)

	first := speeches[0]
	assert.Equal(t, "TEST-1", first.ProtocolID)
	assert.Equal(t, 1, first.SequenceNumber)
	assert.Equal(t, "Bärbel Bas", first.SpeakerName)
	require.NotNil(t, first.Role)
	assert.Equal(t, "Präsidentin", *first.Role)
	assert.Nil(t, first.Party)
	assert.Contains(t, first.Text, "eröffne die Sitzung")

	second := speeches[1]
	assert.Equal(t, 2, second.SequenceNumber)
	assert.Equal(t, "Dr. Marco Buschmann", second.SpeakerName)
	require.NotNil(t, second.Party)
	assert.Equal(t, "FDP", *second.Party)
	assert.Nil(t, second.Role)
	assert.NotContains(t, second.Text, "Beifall")
	assert.NotContains(t, second.Text, "Zuruf von der SPD")

	third := speeches[2]
	assert.Equal(t, 3, third.SequenceNumber)
	assert.Equal(t, "Annalena Baerbock", third.SpeakerName)
	require.NotNil(t, third.Role)
	assert.Equal(t, "Bundesministerin", *third.Role)
}

func TestParseSpeechesEmptyInput(t *testing.T) {
	assert.Empty(t, ParseSpeeches("", "TEST-2"))
	assert.Empty(t, ParseSpeeches("kein sprecher, nur text ohne struktur", "TEST-2"))
	assert.Empty(t, ParseSpeeches("\x00\x01\x02", "TEST-2"))
}

func TestParseSpeechesEmptyBodyLeavesGap(t *testing.T) {
	text := "Erster Redner:\nZweiter Redner:\nHier steht der einzige Beitrag.\n"
	speeches := ParseSpeeches(text, "TEST-3")
	require.Len(t, speeches, 1)
	assert.Equal(t, "Zweiter Redner", speeches[0].SpeakerName)
	// Sequence numbers keep their header position; the dropped first body
	// leaves a gap instead of renumbering.
	assert.Equal(t, 2, speeches[0].SequenceNumber)
}

func TestParseSpeechesOrdering(t *testing.T) {
	var b strings.Builder
	names := []string{"Anna Beispiel", "Bernd Muster", "Clara Probe", "Doris Test"}
	for _, name := range names {
		b.WriteString(name + ":\nEin Beitrag von " + name + ".\n\n")
	}
	speeches := ParseSpeeches(b.String(), "TEST-4")
	require.Len(t, speeches, len(names))
	for i, speech := range speeches {
		assert.Equal(t, i+1, speech.SequenceNumber)
		assert.Equal(t, names[i], speech.SpeakerName)
	}
}

func TestParseSpeechesStageDirections(t *testing.T) {
	text := "Gregor Gysi (DIE LINKE):\n" +
		"Meine Damen und Herren! (Beifall bei der LINKEN) Das Gesetz (siehe Drucksache 20/123) " +
		"ist unzureichend. (Lachen bei der FDP) (Zuruf des Abg. Müller) Wir lehnen es ab. (Unruhe)\n"
	speeches := ParseSpeeches(text, "TEST-5")
	require.Len(t, speeches, 1)

	got := speeches[0].Text
	for _, keyword := range stageKeywords {
		assert.NotContains(t, got, keyword)
	}
	// Parentheticals without reaction keywords survive the cleaning.
	assert.Contains(t, got, "(siehe Drucksache 20/123)")
	assert.NotContains(t, got, "  ")
	assert.Equal(t, got, strings.TrimSpace(got))
}

func TestParseSpeechesInterjectionRemovedBeforeHeaderScan(t *testing.T) {
	// The interjection line ends in a colon-bearing prefix that would
	// otherwise look like a speaker header.
	text := "Olaf Scholz (SPD):\nWir handeln entschlossen.\n" +
		"Zuruf von der CDU/CSU: Wo denn?\n" +
		"Das werde ich gleich ausführen.\n"
	speeches := ParseSpeeches(text, "TEST-6")
	require.Len(t, speeches, 1)
	assert.Equal(t, "Olaf Scholz", speeches[0].SpeakerName)
	assert.Contains(t, speeches[0].Text, "Das werde ich gleich ausführen.")
	assert.NotContains(t, speeches[0].Text, "Wo denn?")
}

func TestParseSpeechesUnicodeNamesAndParties(t *testing.T) {
	text := "Staatssekretär Cem Özdemir (Bündnis 90/Die Grünen):\n" +
		"Die Landwirtschaft braucht Planungssicherheit.\n\n" +
		"Ülle Schauws (BÜNDNIS 90/DIE GRÜNEN) :\n" +
		"Ich schließe mich an.\n"
	speeches := ParseSpeeches(text, "TEST-7")
	require.Len(t, speeches, 2)

	assert.Equal(t, "Cem Özdemir", speeches[0].SpeakerName)
	require.NotNil(t, speeches[0].Role)
	assert.Equal(t, "Staatssekretär", *speeches[0].Role)
	require.NotNil(t, speeches[0].Party)
	assert.Equal(t, "Bündnis 90/Die Grünen", *speeches[0].Party)

	// Whitespace before the terminating colon is tolerated.
	assert.Equal(t, "Ülle Schauws", speeches[1].SpeakerName)
	require.NotNil(t, speeches[1].Party)
	assert.Equal(t, "BÜNDNIS 90/DIE GRÜNEN", *speeches[1].Party)
}

func TestParseSpeechesMultipleParentheses(t *testing.T) {
	text := "Alice Beispiel (AfD) (Fraktionsvorsitzende):\nDazu sage ich etwas.\n"
	speeches := ParseSpeeches(text, "TEST-8")
	require.Len(t, speeches, 1)
	// Only the first fragment counts as party; all fragments leave the name.
	require.NotNil(t, speeches[0].Party)
	assert.Equal(t, "AfD", *speeches[0].Party)
	assert.Equal(t, "Alice Beispiel", speeches[0].SpeakerName)
}

func TestParseSpeechesHeaderDecompositionLossless(t *testing.T) {
	speeches := ParseSpeeches(sampleProtocol, "TEST-9")
	require.Len(t, speeches, 3)
	headers := []string{
		"Präsidentin Bärbel Bas",
		"Dr. Marco Buschmann (FDP)",
		"Bundesministerin Annalena Baerbock",
	}
	for i, speech := range speeches {
		var parts []string
		if speech.Role != nil {
			parts = append(parts, *speech.Role)
		}
		parts = append(parts, speech.SpeakerName)
		if speech.Party != nil {
			parts = append(parts, *speech.Party)
		}
		reassembled := strings.Join(parts, " ")
		stripped := strings.NewReplacer("(", "", ")", "").Replace(headers[i])
		assert.ElementsMatch(t, strings.Fields(stripped), strings.Fields(reassembled))
	}
}

func TestParseSpeechesCleaningIsStable(t *testing.T) {
	speeches := ParseSpeeches(sampleProtocol, "TEST-10")
	require.NotEmpty(t, speeches)
	for _, speech := range speeches {
		// Re-feeding a cleaned body finds no further headers to split on.
		assert.Empty(t, ParseSpeeches(speech.Text, "TEST-10"))
	}
}

func TestParseSpeechesDeterministic(t *testing.T) {
	first := ParseSpeeches(sampleProtocol, "TEST-11")
	second := ParseSpeeches(sampleProtocol, "TEST-11")
	assert.Equal(t, first, second)
}
